package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/focusplus/focus-backend/internal/domain"
	"github.com/focusplus/focus-backend/internal/services"
)

// NoteService defines study note operations consumed by HTTP handlers.
type NoteService interface {
	// Create stores a new note owned by userID.
	Create(ctx context.Context, userID, title, content string) (*domain.Note, error)
	// List returns the caller's own notes, most recent first.
	List(ctx context.Context, userID string) ([]domain.Note, error)
	// Shared returns notes other users have shared with the caller.
	Shared(ctx context.Context, userID string) ([]domain.Note, error)
	// Share grants another user read access to one of the caller's notes.
	Share(ctx context.Context, userID, noteID, targetUserID string) error
	// TogglePublic flips a note's public flag and returns the new state.
	TogglePublic(ctx context.Context, userID, noteID string) (*domain.Note, error)
}

//
// DTOs
//

// CreateNoteRequest is the JSON payload for creating a note.
type CreateNoteRequest struct {
	// Title names the note (required).
	Title string `json:"title" binding:"required,min=1,max=255" example:"Thermodynamics summary"`
	// Content is an opaque JSON document produced by the editor.
	Content string `json:"content" example:"{\"blocks\":[]}"`
}

// ShareNoteRequest is the JSON payload for sharing a note.
type ShareNoteRequest struct {
	// UserID identifies the recipient.
	UserID string `json:"userId" binding:"required,min=1" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
}

// ListNotesResponse wraps a list of notes.
type ListNotesResponse struct {
	Notes []domain.Note `json:"notes"`
}

// failNote maps note service errors onto the HTTP taxonomy.
func failNote(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrEmptyNote):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "title required")
	case errors.Is(err, services.ErrNoteNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "note not found")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "note operation failed")
	}
}

//
// Handlers
//

// CreateNote godoc
// @ID          createNote
// @Summary     Create a study note
// @Tags        Notes
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.CreateNoteRequest  true  "Note payload"
// @Success     201  {object}  domain.Note
// @Failure     400  {object}  handlers.ErrorResponse  "Missing title"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Router      /notes [post]
func (h *Handlers) CreateNote(c *gin.Context) {
	ctx := c.Request.Context()

	uid := userID(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "missing credentials")
		return
	}

	var req CreateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "title required")
		return
	}

	note, err := h.noteSvc.Create(ctx, uid, req.Title, req.Content)
	if err != nil {
		failNote(c, err)
		return
	}
	ok(c, http.StatusCreated, note)
}

// ListNotes godoc
// @ID          listNotes
// @Summary     List the caller's notes
// @Tags        Notes
// @Produce     json
// @Success     200  {object}  handlers.ListNotesResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Router      /notes [get]
func (h *Handlers) ListNotes(c *gin.Context) {
	ctx := c.Request.Context()

	uid := userID(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "missing credentials")
		return
	}

	notes, err := h.noteSvc.List(ctx, uid)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list notes")
		return
	}
	if notes == nil {
		notes = []domain.Note{}
	}
	ok(c, http.StatusOK, ListNotesResponse{Notes: notes})
}

// ListSharedNotes godoc
// @ID          listSharedNotes
// @Summary     List notes shared with the caller
// @Tags        Notes
// @Produce     json
// @Success     200  {object}  handlers.ListNotesResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Router      /notes/shared [get]
func (h *Handlers) ListSharedNotes(c *gin.Context) {
	ctx := c.Request.Context()

	uid := userID(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "missing credentials")
		return
	}

	notes, err := h.noteSvc.Shared(ctx, uid)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list shared notes")
		return
	}
	if notes == nil {
		notes = []domain.Note{}
	}
	ok(c, http.StatusOK, ListNotesResponse{Notes: notes})
}

// ShareNote godoc
// @ID          shareNote
// @Summary     Share a note with another user
// @Description Grants the named user read access. Sharing the same note with
// @Description the same user twice is a no-op.
// @Tags        Notes
// @Accept      json
// @Param       id    path  string  true  "Note ID"
// @Param       body  body  handlers.ShareNoteRequest  true  "Recipient"
// @Success     204  "Shared"
// @Failure     400  {object}  handlers.ErrorResponse  "Missing recipient"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown or foreign note"
// @Router      /notes/{id}/share [post]
func (h *Handlers) ShareNote(c *gin.Context) {
	ctx := c.Request.Context()

	uid := userID(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "missing credentials")
		return
	}

	var req ShareNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "userId required")
		return
	}

	if err := h.noteSvc.Share(ctx, uid, c.Param("id"), req.UserID); err != nil {
		failNote(c, err)
		return
	}
	noContent(c)
}

// ToggleNotePublic godoc
// @ID          toggleNotePublic
// @Summary     Toggle a note's public flag
// @Tags        Notes
// @Produce     json
// @Param       id  path  string  true  "Note ID"
// @Success     200  {object}  domain.Note
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown or foreign note"
// @Router      /notes/{id}/toggle-public [patch]
func (h *Handlers) ToggleNotePublic(c *gin.Context) {
	ctx := c.Request.Context()

	uid := userID(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "missing credentials")
		return
	}

	note, err := h.noteSvc.TogglePublic(ctx, uid, c.Param("id"))
	if err != nil {
		failNote(c, err)
		return
	}
	ok(c, http.StatusOK, note)
}
