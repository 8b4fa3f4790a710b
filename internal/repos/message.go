package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/recall-backend/internal/platform/logger"
	"github.com/yungbote/recall-backend/internal/types"
)

type MessageRepo interface {
	Create(ctx context.Context, tx *gorm.DB, messages []*types.Message) ([]*types.Message, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, messageIDs []uuid.UUID) ([]*types.Message, error)
	// GetRecentByChat returns up to limit messages ordered newest-first.
	// Callers that need chronological presentation reverse the slice.
	GetRecentByChat(ctx context.Context, tx *gorm.DB, chatID uuid.UUID, limit int) ([]*types.Message, error)
	// UpdateContent replaces the content of the message scoped to (id, author).
	// found=false means no matching row (deleted, foreign, or stale id).
	UpdateContent(ctx context.Context, tx *gorm.DB, messageID, userID uuid.UUID, content string) (*types.Message, bool, error)
	DeleteByChat(ctx context.Context, tx *gorm.DB, chatID uuid.UUID) error
}

type messageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMessageRepo(db *gorm.DB, baseLog *logger.Logger) MessageRepo {
	repoLog := baseLog.With("repo", "MessageRepo")
	return &messageRepo{db: db, log: repoLog}
}

func (mr *messageRepo) Create(ctx context.Context, tx *gorm.DB, messages []*types.Message) ([]*types.Message, error) {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}
	if len(messages) == 0 {
		return []*types.Message{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

func (mr *messageRepo) GetByIDs(ctx context.Context, tx *gorm.DB, messageIDs []uuid.UUID) ([]*types.Message, error) {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}
	var results []*types.Message
	if len(messageIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("id IN ?", messageIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (mr *messageRepo) GetRecentByChat(ctx context.Context, tx *gorm.DB, chatID uuid.UUID, limit int) ([]*types.Message, error) {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}
	if limit <= 0 {
		limit = 20
	}
	var results []*types.Message
	if err := transaction.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (mr *messageRepo) UpdateContent(ctx context.Context, tx *gorm.DB, messageID, userID uuid.UUID, content string) (*types.Message, bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}
	res := transaction.WithContext(ctx).
		Model(&types.Message{}).
		Where("id = ? AND user_id = ?", messageID, userID).
		Update("content", content)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, false, nil
	}
	updated, err := mr.GetByIDs(ctx, tx, []uuid.UUID{messageID})
	if err != nil {
		return nil, false, err
	}
	if len(updated) == 0 {
		return nil, false, nil
	}
	return updated[0], true, nil
}

func (mr *messageRepo) DeleteByChat(ctx context.Context, tx *gorm.DB, chatID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = mr.db
	}
	return transaction.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Delete(&types.Message{}).Error
}
