package repos

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/recall-backend/internal/repos/testutil"
)

func TestChatGetByUserOrdering(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.DB(t)
	tx := testutil.Tx(t, gdb)
	repo := NewChatRepo(gdb, testutil.Logger(t))

	user := testutil.SeedUser(t, ctx, tx, fmt.Sprintf("cr-%s@example.com", uuid.NewString()))
	stale := testutil.SeedChat(t, ctx, tx, user.ID, "stale")
	fresh := testutil.SeedChat(t, ctx, tx, user.ID, "fresh")

	if err := repo.TouchLastActivity(ctx, tx, stale.ID, time.Now().Add(-time.Hour).UTC()); err != nil {
		t.Fatalf("touch stale: %v", err)
	}
	if err := repo.TouchLastActivity(ctx, tx, fresh.ID, time.Now().UTC()); err != nil {
		t.Fatalf("touch fresh: %v", err)
	}

	chats, err := repo.GetByUser(ctx, tx, user.ID)
	if err != nil {
		t.Fatalf("GetByUser: %v", err)
	}
	if len(chats) != 2 {
		t.Fatalf("got %d chats, want 2", len(chats))
	}
	if chats[0].ID != fresh.ID {
		t.Fatalf("most recently active chat not first")
	}
}

func TestChatUpdateTitleScoped(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.DB(t)
	tx := testutil.Tx(t, gdb)
	repo := NewChatRepo(gdb, testutil.Logger(t))

	owner := testutil.SeedUser(t, ctx, tx, fmt.Sprintf("cr-%s@example.com", uuid.NewString()))
	chat := testutil.SeedChat(t, ctx, tx, owner.ID, "before")

	found, err := repo.UpdateTitle(ctx, tx, chat.ID, owner.ID, "after")
	if err != nil {
		t.Fatalf("UpdateTitle: %v", err)
	}
	if !found {
		t.Fatalf("owner update reported not found")
	}

	found, err = repo.UpdateTitle(ctx, tx, chat.ID, uuid.New(), "hijacked")
	if err != nil {
		t.Fatalf("UpdateTitle foreign: %v", err)
	}
	if found {
		t.Fatalf("foreign user renamed the chat")
	}
}

func TestChatDeleteScoped(t *testing.T) {
	ctx := context.Background()
	gdb := testutil.DB(t)
	tx := testutil.Tx(t, gdb)
	repo := NewChatRepo(gdb, testutil.Logger(t))

	owner := testutil.SeedUser(t, ctx, tx, fmt.Sprintf("cr-%s@example.com", uuid.NewString()))
	chat := testutil.SeedChat(t, ctx, tx, owner.ID, "t")

	found, err := repo.Delete(ctx, tx, chat.ID, uuid.New())
	if err != nil {
		t.Fatalf("Delete foreign: %v", err)
	}
	if found {
		t.Fatalf("foreign user deleted the chat")
	}

	found, err = repo.Delete(ctx, tx, chat.ID, owner.ID)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !found {
		t.Fatalf("owner delete reported not found")
	}

	remaining, err := repo.GetByIDs(ctx, tx, []uuid.UUID{chat.ID})
	if err != nil {
		t.Fatalf("GetByIDs: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("chat row survived delete")
	}
}
