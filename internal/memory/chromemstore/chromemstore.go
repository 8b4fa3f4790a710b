// Package chromemstore backs the memory index with chromem-go, a pure Go
// embedded vector database. Used for local development and tests; the
// Pinecone store is the production backend.
package chromemstore

import (
	"context"
	"fmt"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/yungbote/recall-backend/internal/memory"
	"github.com/yungbote/recall-backend/internal/platform/logger"
)

type Store struct {
	log         *logger.Logger
	db          *chromem.DB
	mu          sync.Mutex
	collections map[string]*chromem.Collection
}

func New(log *logger.Logger) (*Store, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Store{
		log:         log.With("store", "ChromemStore"),
		db:          chromem.NewDB(),
		collections: make(map[string]*chromem.Collection),
	}, nil
}

// Each user gets their own collection, so the owner filter of Query is
// structural rather than a metadata predicate.
func (s *Store) collection(userID string) (*chromem.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if col, ok := s.collections[userID]; ok {
		return col, nil
	}
	col, err := s.db.GetOrCreateCollection("user_"+userID, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("get or create collection: %w", err)
	}
	s.collections[userID] = col
	return col, nil
}

func (s *Store) Upsert(ctx context.Context, rec memory.Record) error {
	col, err := s.collection(rec.Metadata.User)
	if err != nil {
		return err
	}
	doc := chromem.Document{
		ID:        rec.ID,
		Content:   rec.Metadata.Text,
		Embedding: rec.Vector,
		Metadata: map[string]string{
			"chat": rec.Metadata.Chat,
			"user": rec.Metadata.User,
		},
	}
	if err := col.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("add document: %w", err)
	}
	return nil
}

func (s *Store) Query(ctx context.Context, vector []float32, topK int, userID string) ([]memory.Match, error) {
	col, err := s.collection(userID)
	if err != nil {
		return nil, err
	}

	// chromem rejects nResults greater than the collection size.
	if count := col.Count(); count < topK {
		topK = count
	}
	if topK <= 0 {
		return nil, nil
	}

	results, err := col.QueryEmbedding(ctx, vector, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	matches := make([]memory.Match, 0, len(results))
	for _, r := range results {
		matches = append(matches, memory.Match{
			ID:    r.ID,
			Score: float64(r.Similarity),
			Metadata: memory.Metadata{
				Chat: r.Metadata["chat"],
				User: r.Metadata["user"],
				Text: r.Content,
			},
		})
	}
	return matches, nil
}

func (s *Store) DeleteByChat(ctx context.Context, userID, chatID string) error {
	col, err := s.collection(userID)
	if err != nil {
		return err
	}
	if col.Count() == 0 {
		return nil
	}
	if err := col.Delete(ctx, map[string]string{"chat": chatID}, nil); err != nil {
		return fmt.Errorf("chromem delete: %w", err)
	}
	return nil
}
