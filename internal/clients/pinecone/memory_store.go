package pinecone

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/yungbote/recall-backend/internal/memory"
	"github.com/yungbote/recall-backend/internal/platform/logger"
)

// MemoryStore implements memory.Store on top of a Pinecone index. One
// namespace holds all users; records are filtered by owner metadata, the
// same shape the original index used.
type MemoryStore struct {
	log       *logger.Logger
	pc        Client
	indexName string
	indexHost string
	namespace string
}

func NewMemoryStore(log *logger.Logger, pc Client) (*MemoryStore, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if pc == nil {
		return nil, fmt.Errorf("pinecone client required")
	}

	indexName := strings.TrimSpace(os.Getenv("PINECONE_INDEX_NAME"))
	if indexName == "" {
		return nil, fmt.Errorf("missing PINECONE_INDEX_NAME")
	}

	host := strings.TrimSpace(os.Getenv("PINECONE_INDEX_HOST"))
	namespace := strings.TrimSpace(os.Getenv("PINECONE_NAMESPACE"))
	if namespace == "" {
		namespace = "recall"
	}

	// If host missing, bootstrap via describe_index (fine for local/dev;
	// avoid in prod).
	if host == "" {
		desc, err := pc.DescribeIndex(context.Background(), indexName)
		if err != nil {
			return nil, fmt.Errorf("pinecone describe_index failed: %w", err)
		}
		host = strings.TrimSpace(desc.Host)
		if host == "" {
			return nil, fmt.Errorf("pinecone describe_index returned empty host")
		}
		log.Warn("PINECONE_INDEX_HOST not set; resolved via describe_index (avoid this in production)",
			"index_name", indexName,
			"index_host", host,
		)
	}

	return &MemoryStore{
		log:       log.With("store", "PineconeMemoryStore"),
		pc:        pc,
		indexName: indexName,
		indexHost: host,
		namespace: namespace,
	}, nil
}

func (s *MemoryStore) Upsert(ctx context.Context, rec memory.Record) error {
	_, err := s.pc.UpsertVectors(ctx, s.indexHost, UpsertRequest{
		Namespace: s.namespace,
		Vectors: []Vector{{
			ID:     rec.ID,
			Values: rec.Vector,
			Metadata: map[string]any{
				"chat": rec.Metadata.Chat,
				"user": rec.Metadata.User,
				"text": rec.Metadata.Text,
			},
		}},
	})
	return err
}

func (s *MemoryStore) Query(ctx context.Context, vector []float32, topK int, userID string) ([]memory.Match, error) {
	resp, err := s.pc.Query(ctx, s.indexHost, QueryRequest{
		Namespace:       s.namespace,
		Vector:          vector,
		TopK:            topK,
		Filter:          map[string]any{"user": userID},
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, err
	}
	matches := make([]memory.Match, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		matches = append(matches, memory.Match{
			ID:    m.ID,
			Score: m.Score,
			Metadata: memory.Metadata{
				Chat: metaString(m.Metadata, "chat"),
				User: metaString(m.Metadata, "user"),
				Text: metaString(m.Metadata, "text"),
			},
		})
	}
	return matches, nil
}

func (s *MemoryStore) DeleteByChat(ctx context.Context, userID, chatID string) error {
	return s.pc.DeleteVectors(ctx, s.indexHost, DeleteRequest{
		Namespace: s.namespace,
		Filter: map[string]any{
			"user": userID,
			"chat": chatID,
		},
	})
}

func metaString(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
