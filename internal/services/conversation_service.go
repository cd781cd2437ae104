// Package services – ConversationService
//
// This file implements ConversationService, which manages conversation
// metadata: listing a caller's threads, reading a thread's ordered turns,
// renaming, and deletion (which cascades to messages). Ownership is enforced
// on every operation; the repository scopes all queries by the owner id.
package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/focusplus/focus-backend/internal/domain"
)

// ConversationRepo defines the repository contract required by
// ConversationService. Implementations are responsible for persistence of
// conversation aggregates and their turns.
type ConversationRepo interface {
	// GetConversation fetches a conversation by ID ensuring it belongs to the user.
	GetConversation(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Conversation, error)

	// ListConversations returns all conversations belonging to the user.
	ListConversations(ctx context.Context, db *gorm.DB, userID string) ([]domain.Conversation, error)

	// ListMessages returns a conversation's turns in ascending creation order.
	ListMessages(db *gorm.DB, conversationID string, limit int) ([]domain.Message, error)

	// UpdateConversationTitle renames a conversation (only if it belongs to the user).
	UpdateConversationTitle(ctx context.Context, db *gorm.DB, id, userID, title string) error

	// DeleteConversation removes a conversation and its messages.
	DeleteConversation(ctx context.Context, db *gorm.DB, id, userID string) error
}

// ConversationService provides conversation-level operations. It enforces
// title rules and ownership constraints.
type ConversationService struct {
	DB   *gorm.DB
	Repo ConversationRepo

	// TitleMaxLen caps stored titles by rune length.
	TitleMaxLen int
}

// NewConversationService constructs a ConversationService with sane defaults.
func NewConversationService(db *gorm.DB, r ConversationRepo) *ConversationService {
	return &ConversationService{DB: db, Repo: r, TitleMaxLen: 60}
}

// List returns all conversations for a user, most recent first.
func (s *ConversationService) List(ctx context.Context, userID string) ([]domain.Conversation, error) {
	return s.Repo.ListConversations(ctx, s.DB, userID)
}

// Messages returns the ordered turn list for a conversation owned by userID.
func (s *ConversationService) Messages(ctx context.Context, userID, conversationID string) ([]domain.Message, error) {
	if _, err := s.Repo.GetConversation(ctx, s.DB, conversationID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	return s.Repo.ListMessages(s.DB.WithContext(ctx), conversationID, 0)
}

// Rename updates a conversation's title, ensuring it exists and belongs to
// the given user. Falls back to "Untitled" if the title is blank.
func (s *ConversationService) Rename(ctx context.Context, userID, conversationID, title string) error {
	title = normalizeTitle(title)
	if title == "" {
		title = defaultTitleUntitled
	}
	err := s.Repo.UpdateConversationTitle(ctx, s.DB, conversationID, userID, s.clip(title))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrConversationNotFound
	}
	return err
}

// Delete removes a conversation owned by userID together with its messages.
func (s *ConversationService) Delete(ctx context.Context, userID, conversationID string) error {
	err := s.Repo.DeleteConversation(ctx, s.DB, conversationID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrConversationNotFound
	}
	return err
}

// clip truncates a title to the configured maximum rune length.
func (s *ConversationService) clip(title string) string {
	if s.TitleMaxLen > 0 && utf8.RuneCountInString(title) > s.TitleMaxLen {
		return string([]rune(title)[:s.TitleMaxLen])
	}
	return title
}

// normalizeTitle trims whitespace and collapses multiple spaces to one.
func normalizeTitle(s string) string {
	s = whitespaceRE.ReplaceAllString(strings.TrimSpace(s), " ")
	return s
}

// whitespaceRE collapses consecutive whitespace to a single space.
var whitespaceRE = regexp.MustCompile(`\s+`)
