package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/recall-backend/internal/types"
)

func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, email string) *types.User {
	tb.Helper()
	u := &types.User{
		ID:        uuid.New(),
		Email:     email,
		Password:  "pw",
		FirstName: "A",
		LastName:  "B",
	}
	if err := tx.WithContext(ctx).Create(u).Error; err != nil {
		tb.Fatalf("seed user: %v", err)
	}
	return u
}

func SeedChat(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, title string) *types.Chat {
	tb.Helper()
	c := &types.Chat{
		ID:           uuid.New(),
		UserID:       userID,
		Title:        title,
		LastActivity: time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed chat: %v", err)
	}
	return c
}

func SeedMessage(tb testing.TB, ctx context.Context, tx *gorm.DB, chatID, userID uuid.UUID, role, content string, at time.Time) *types.Message {
	tb.Helper()
	m := &types.Message{
		ID:        uuid.New(),
		ChatID:    chatID,
		UserID:    userID,
		Role:      role,
		Content:   content,
		CreatedAt: at,
		UpdatedAt: at,
	}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed message: %v", err)
	}
	return m
}
