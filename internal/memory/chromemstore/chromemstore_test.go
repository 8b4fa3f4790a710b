package chromemstore

import (
	"context"
	"testing"

	"github.com/yungbote/recall-backend/internal/memory"
	"github.com/yungbote/recall-backend/internal/platform/logger"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	s, err := New(log)
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	return s
}

func seed(t *testing.T, s *Store, id, user, chat, text string, vec []float32) {
	t.Helper()
	err := s.Upsert(context.Background(), memory.Record{
		ID:     id,
		Vector: vec,
		Metadata: memory.Metadata{
			Chat: chat,
			User: user,
			Text: text,
		},
	})
	if err != nil {
		t.Fatalf("upsert %s: %v", id, err)
	}
}

func TestQueryRanksBySimilarity(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	seed(t, s, "close", "u1", "c1", "close match", []float32{1, 0, 0})
	seed(t, s, "far", "u1", "c1", "far match", []float32{0, 1, 0})

	matches, err := s.Query(ctx, []float32{0.9, 0.1, 0}, 2, "u1")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2", len(matches))
	}
	if matches[0].ID != "close" {
		t.Fatalf("best match = %s, want close", matches[0].ID)
	}
	if matches[0].Score <= matches[1].Score {
		t.Fatalf("scores not descending: %f <= %f", matches[0].Score, matches[1].Score)
	}
	if matches[0].Metadata.Text != "close match" {
		t.Fatalf("metadata text = %q", matches[0].Metadata.Text)
	}
}

func TestQueryIsolatedPerUser(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	seed(t, s, "mine", "u1", "c1", "mine", []float32{1, 0, 0})
	seed(t, s, "theirs", "u2", "c2", "theirs", []float32{1, 0, 0})

	matches, err := s.Query(ctx, []float32{1, 0, 0}, 10, "u1")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(matches) != 1 || matches[0].ID != "mine" {
		t.Fatalf("cross-user leak: %+v", matches)
	}
}

func TestQueryClampsTopK(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	seed(t, s, "only", "u1", "c1", "only", []float32{1, 0, 0})

	matches, err := s.Query(ctx, []float32{1, 0, 0}, 10, "u1")
	if err != nil {
		t.Fatalf("query beyond collection size: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}

	empty, err := s.Query(ctx, []float32{1, 0, 0}, 3, "nobody")
	if err != nil {
		t.Fatalf("query empty collection: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("matches from empty collection: %+v", empty)
	}
}

func TestUpsertReplacesByID(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	seed(t, s, "msg", "u1", "c1", "first draft", []float32{1, 0, 0})
	seed(t, s, "msg", "u1", "c1", "second draft", []float32{0, 1, 0})

	matches, err := s.Query(ctx, []float32{0, 1, 0}, 10, "u1")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("duplicate records for one id: %d", len(matches))
	}
	if matches[0].Metadata.Text != "second draft" {
		t.Fatalf("stale text after upsert: %q", matches[0].Metadata.Text)
	}
}

func TestDeleteByChat(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	seed(t, s, "a", "u1", "doomed", "a", []float32{1, 0, 0})
	seed(t, s, "b", "u1", "doomed", "b", []float32{0, 1, 0})
	seed(t, s, "c", "u1", "kept", "c", []float32{0, 0, 1})

	if err := s.DeleteByChat(ctx, "u1", "doomed"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	matches, err := s.Query(ctx, []float32{1, 0, 0}, 10, "u1")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(matches) != 1 || matches[0].ID != "c" {
		t.Fatalf("delete by chat left %+v", matches)
	}

	// Deleting from a chat with no records is a no-op.
	if err := s.DeleteByChat(ctx, "u1", "never-existed"); err != nil {
		t.Fatalf("delete missing chat: %v", err)
	}
	if err := s.DeleteByChat(ctx, "ghost-user", "doomed"); err != nil {
		t.Fatalf("delete for unknown user: %v", err)
	}
}
