package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/recall-backend/internal/memory"
	"github.com/yungbote/recall-backend/internal/platform/logger"
	"github.com/yungbote/recall-backend/internal/repos"
	"github.com/yungbote/recall-backend/internal/types"
)

var ErrChatNotFound = fmt.Errorf("chat not found")

type ChatService interface {
	CreateChat(ctx context.Context, userID uuid.UUID, title string) (*types.Chat, error)
	ListChats(ctx context.Context, userID uuid.UUID) ([]*types.Chat, error)
	RenameChat(ctx context.Context, chatID, userID uuid.UUID, title string) error
	// DeleteChat removes the chat, its messages, and its memory records.
	// The vector cleanup is best effort; a failed index delete is logged
	// and does not roll back the relational delete.
	DeleteChat(ctx context.Context, chatID, userID uuid.UUID) error
	ListMessages(ctx context.Context, chatID, userID uuid.UUID, limit int) ([]*types.Message, error)
}

type chatService struct {
	log         *logger.Logger
	chatRepo    repos.ChatRepo
	messageRepo repos.MessageRepo
	memoryStore memory.Store
}

func NewChatService(log *logger.Logger, chatRepo repos.ChatRepo, messageRepo repos.MessageRepo, memoryStore memory.Store) ChatService {
	return &chatService{
		log:         log.With("service", "ChatService"),
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
		memoryStore: memoryStore,
	}
}

func (cs *chatService) CreateChat(ctx context.Context, userID uuid.UUID, title string) (*types.Chat, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "New chat"
	}
	chat := &types.Chat{
		ID:           uuid.New(),
		UserID:       userID,
		Title:        title,
		LastActivity: time.Now().UTC(),
	}
	if _, err := cs.chatRepo.Create(ctx, nil, []*types.Chat{chat}); err != nil {
		return nil, fmt.Errorf("create chat: %w", err)
	}
	return chat, nil
}

func (cs *chatService) ListChats(ctx context.Context, userID uuid.UUID) ([]*types.Chat, error) {
	chats, err := cs.chatRepo.GetByUser(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	return chats, nil
}

func (cs *chatService) RenameChat(ctx context.Context, chatID, userID uuid.UUID, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("title is required")
	}
	found, err := cs.chatRepo.UpdateTitle(ctx, nil, chatID, userID, title)
	if err != nil {
		return fmt.Errorf("rename chat: %w", err)
	}
	if !found {
		return ErrChatNotFound
	}
	return nil
}

func (cs *chatService) DeleteChat(ctx context.Context, chatID, userID uuid.UUID) error {
	found, err := cs.chatRepo.Delete(ctx, nil, chatID, userID)
	if err != nil {
		return fmt.Errorf("delete chat: %w", err)
	}
	if !found {
		return ErrChatNotFound
	}
	// The FK cascade covers this on Postgres; the explicit delete keeps
	// the sqlite test backend consistent too.
	if err := cs.messageRepo.DeleteByChat(ctx, nil, chatID); err != nil {
		return fmt.Errorf("delete chat messages: %w", err)
	}

	if err := cs.memoryStore.DeleteByChat(ctx, userID.String(), chatID.String()); err != nil {
		cs.log.Warn("Memory cleanup failed for deleted chat; records will remain until reindex",
			"chat_id", chatID.String(),
			"user_id", userID.String(),
			"error", err.Error(),
		)
	}
	return nil
}

func (cs *chatService) ListMessages(ctx context.Context, chatID, userID uuid.UUID, limit int) ([]*types.Message, error) {
	chats, err := cs.chatRepo.GetByIDs(ctx, nil, []uuid.UUID{chatID})
	if err != nil {
		return nil, fmt.Errorf("fetch chat: %w", err)
	}
	if len(chats) == 0 || chats[0].UserID != userID {
		return nil, ErrChatNotFound
	}

	messages, err := cs.messageRepo.GetRecentByChat(ctx, nil, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	// Newest-first from the repo; flip to chronological for presentation.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
