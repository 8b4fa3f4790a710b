package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/recall-backend/internal/platform/logger"
	"github.com/yungbote/recall-backend/internal/types"
)

type ChatRepo interface {
	Create(ctx context.Context, tx *gorm.DB, chats []*types.Chat) ([]*types.Chat, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, chatIDs []uuid.UUID) ([]*types.Chat, error)
	GetByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Chat, error)
	UpdateTitle(ctx context.Context, tx *gorm.DB, chatID, userID uuid.UUID, title string) (bool, error)
	TouchLastActivity(ctx context.Context, tx *gorm.DB, chatID uuid.UUID, at time.Time) error
	Delete(ctx context.Context, tx *gorm.DB, chatID, userID uuid.UUID) (bool, error)
}

type chatRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChatRepo(db *gorm.DB, baseLog *logger.Logger) ChatRepo {
	repoLog := baseLog.With("repo", "ChatRepo")
	return &chatRepo{db: db, log: repoLog}
}

func (cr *chatRepo) Create(ctx context.Context, tx *gorm.DB, chats []*types.Chat) ([]*types.Chat, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	if len(chats) == 0 {
		return []*types.Chat{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&chats).Error; err != nil {
		return nil, err
	}
	return chats, nil
}

func (cr *chatRepo) GetByIDs(ctx context.Context, tx *gorm.DB, chatIDs []uuid.UUID) ([]*types.Chat, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	var results []*types.Chat
	if len(chatIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("id IN ?", chatIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (cr *chatRepo) GetByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Chat, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	var results []*types.Chat
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("last_activity DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (cr *chatRepo) UpdateTitle(ctx context.Context, tx *gorm.DB, chatID, userID uuid.UUID, title string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	res := transaction.WithContext(ctx).
		Model(&types.Chat{}).
		Where("id = ? AND user_id = ?", chatID, userID).
		Update("title", title)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (cr *chatRepo) TouchLastActivity(ctx context.Context, tx *gorm.DB, chatID uuid.UUID, at time.Time) error {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Chat{}).
		Where("id = ?", chatID).
		Update("last_activity", at).Error
}

func (cr *chatRepo) Delete(ctx context.Context, tx *gorm.DB, chatID, userID uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = cr.db
	}
	res := transaction.WithContext(ctx).
		Where("id = ? AND user_id = ?", chatID, userID).
		Delete(&types.Chat{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
