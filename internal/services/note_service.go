// Package services – NoteService
//
// This file implements NoteService: study notes owned by a user, sharing
// with other users, and the public toggle. Note content is treated as an
// opaque JSON document; validation stops at "non-empty".
package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/focusplus/focus-backend/internal/domain"
	"github.com/focusplus/focus-backend/internal/repo"
)

// ErrEmptyNote is returned when a note is created without a title.
var ErrEmptyNote = errors.New("note title is required")

// NoteService provides note CRUD and sharing.
type NoteService struct {
	DB *gorm.DB
}

// Create stores a new note owned by userID. Empty content defaults to an
// empty JSON document so clients can treat it as block-structured.
func (s *NoteService) Create(ctx context.Context, userID, title, content string) (*domain.Note, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrEmptyNote
	}
	if strings.TrimSpace(content) == "" {
		content = "{}"
	}
	return repo.CreateNote(ctx, s.DB, userID, title, content)
}

// List returns the caller's own notes, newest first.
func (s *NoteService) List(ctx context.Context, userID string) ([]domain.Note, error) {
	return repo.ListNotes(ctx, s.DB, userID)
}

// Shared returns notes other users have shared with the caller.
func (s *NoteService) Shared(ctx context.Context, userID string) ([]domain.Note, error) {
	return repo.ListSharedNotes(ctx, s.DB, userID)
}

// Share grants targetUserID access to one of the caller's notes.
// Re-sharing is a no-op.
func (s *NoteService) Share(ctx context.Context, userID, noteID, targetUserID string) error {
	err := repo.ShareNote(ctx, s.DB, userID, noteID, targetUserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNoteNotFound
	}
	return err
}

// TogglePublic flips the public flag on a note owned by the caller and
// returns the updated note.
func (s *NoteService) TogglePublic(ctx context.Context, userID, noteID string) (*domain.Note, error) {
	n, err := repo.ToggleNotePublic(ctx, s.DB, userID, noteID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoteNotFound
	}
	return n, err
}
