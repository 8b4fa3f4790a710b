// Package memory is the long-term memory index: every committed message
// gets one vector record, and similar past messages are retrieved by
// vector similarity with an owner-scoped metadata filter.
package memory

import "context"

// Record is the embedding record for one message. ID equals the source
// message id, so re-embedding an edited message replaces the old entry
// instead of accumulating stale duplicates.
type Record struct {
	ID       string
	Vector   []float32
	Metadata Metadata
}

// Metadata travels with the vector and carries everything retrieval
// needs without a second store round trip.
type Metadata struct {
	Chat string
	User string
	Text string
}

// Match is one similarity result, highest score first.
type Match struct {
	ID       string
	Score    float64
	Metadata Metadata
}

// Store is the vector index backend. Implementations: Pinecone
// (production) and chromem (embedded, local dev and tests).
type Store interface {
	Upsert(ctx context.Context, rec Record) error
	// Query returns up to topK matches for the owner, ranked by
	// similarity.
	Query(ctx context.Context, vector []float32, topK int, userID string) ([]Match, error)
	// DeleteByChat removes all records of one chat. Called on chat
	// deletion so similarity results never leak text from deleted
	// threads.
	DeleteByChat(ctx context.Context, userID, chatID string) error
}
