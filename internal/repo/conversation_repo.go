// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// Conversation model.
//
// Ownership is enforced at the query level: every lookup is scoped by both
// the conversation id and the owning user id, so a row belonging to another
// user is indistinguishable from a missing one (ErrNotFound). The service
// layer translates that into a forbidden error when an explicit id was
// supplied by the caller.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/focusplus/focus-backend/internal/domain"
)

// CreateConversation inserts a conversation owned by userID with the given
// persona tag. The title starts as the schema placeholder and is generated
// from the first user message later.
func CreateConversation(ctx context.Context, db *gorm.DB, userID, convType, title string) (*domain.Conversation, error) {
	now := time.Now().UTC()
	c := &domain.Conversation{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      convType,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// GetConversation fetches a conversation by id scoped to its owner, or
// ErrNotFound when it does not exist or belongs to someone else.
func GetConversation(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Conversation, error) {
	var c domain.Conversation
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListConversations returns all conversations belonging to userID, most
// recent first.
func ListConversations(ctx context.Context, db *gorm.DB, userID string) ([]domain.Conversation, error) {
	var out []domain.Conversation
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// UpdateConversationTitle renames a conversation, enforcing ownership.
// Returns ErrNotFound when no row matched. GORM bumps UpdatedAt as part of
// the update, invalidating list ETags.
func UpdateConversationTitle(ctx context.Context, db *gorm.DB, id, userID, title string) error {
	res := db.WithContext(ctx).
		Model(&domain.Conversation{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("title", title)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteConversation removes a conversation owned by userID. Messages are
// cascade-deleted via the FK constraint; the explicit message delete keeps
// SQLite deployments without enforced FKs consistent too.
func DeleteConversation(ctx context.Context, db *gorm.DB, id, userID string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&domain.Conversation{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("conversation_id = ?", id).Delete(&domain.Message{}).Error
	})
}

// ConversationStats returns the number of conversations for a user and the
// most recent update time. Used for weak ETags on list responses; keying on
// updated_at means renames invalidate cached lists, not just creations and
// deletions.
func ConversationStats(ctx context.Context, db *gorm.DB, userID string) (int64, *time.Time, error) {
	var count int64
	if err := db.WithContext(ctx).
		Model(&domain.Conversation{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}
	// Latest updated_at via ORDER BY (MAX() comes back as TEXT on SQLite).
	var row struct {
		UpdatedAt time.Time
	}
	err := db.WithContext(ctx).
		Model(&domain.Conversation{}).
		Where("user_id = ?", userID).
		Select("updated_at").
		Order("updated_at DESC").
		Limit(1).
		Scan(&row).Error
	if err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}
