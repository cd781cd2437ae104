package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/focusplus/focus-backend/internal/domain"
	"github.com/focusplus/focus-backend/internal/repo"
	"github.com/focusplus/focus-backend/internal/services"
)

// ConversationService defines conversation lifecycle operations consumed by
// HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type ConversationService interface {
	// List returns all conversations for a user, most recent first.
	List(ctx context.Context, userID string) ([]domain.Conversation, error)
	// Messages returns the ordered turn list for a conversation owned by userID.
	Messages(ctx context.Context, userID, conversationID string) ([]domain.Message, error)
	// Rename updates a conversation's title.
	Rename(ctx context.Context, userID, conversationID, title string) error
	// Delete removes a conversation with its messages.
	Delete(ctx context.Context, userID, conversationID string) error
}

//
// DTOs
//

// RenameConversationRequest is the JSON payload for renaming a conversation.
type RenameConversationRequest struct {
	// Title is the new conversation name (1–255 chars before clipping).
	Title string `json:"title" binding:"required,min=1,max=255" example:"Monday study plan"`
}

// ListConversationsResponse wraps the caller's conversations.
type ListConversationsResponse struct {
	Conversations []domain.Conversation `json:"conversations"`
}

// ListMessagesResponse wraps a conversation's ordered turns.
type ListMessagesResponse struct {
	ConversationID string           `json:"conversationId"`
	Messages       []domain.Message `json:"messages"`
}

// conversationsETag derives a weak ETag from the caller's conversation count
// and most recent update time, so unchanged lists can 304 while renames
// invalidate cached ones.
func conversationsETag(ctx context.Context, svc ConversationService, userID string) string {
	cs, okSvc := svc.(*services.ConversationService)
	if !okSvc || cs.DB == nil {
		return ""
	}
	count, newest, err := repo.ConversationStats(ctx, cs.DB, userID)
	if err != nil {
		return ""
	}
	var ts int64
	if newest != nil {
		ts = newest.UnixNano()
	}
	return fmt.Sprintf(`W/"conv-%d-%d"`, count, ts)
}

// messagesETag derives a weak ETag for one conversation's turn list. Turns
// are immutable and append-only, so the row count identifies the list. The
// ownership lookup keeps the tag (and a possible 304) from leaking foreign
// conversation metadata.
func messagesETag(ctx context.Context, svc ConversationService, userID, conversationID string) string {
	cs, okSvc := svc.(*services.ConversationService)
	if !okSvc || cs.DB == nil {
		return ""
	}
	if _, err := repo.GetConversation(ctx, cs.DB, conversationID, userID); err != nil {
		return ""
	}
	count, err := repo.CountMessages(cs.DB.WithContext(ctx), conversationID)
	if err != nil {
		return ""
	}
	return fmt.Sprintf(`W/"msgs-%s-%d"`, conversationID, count)
}

//
// Handlers
//

// ListConversations godoc
// @ID          listConversations
// @Summary     List the caller's conversations
// @Description Returns all conversations owned by the authenticated user,
// @Description most recent first. Sends a weak ETag; a matching
// @Description If-None-Match yields 304 with no body.
// @Tags        Conversations
// @Produce     json
// @Success     200  {object}  handlers.ListConversationsResponse
// @Success     304  "Not modified"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /conversations [get]
func (h *Handlers) ListConversations(c *gin.Context) {
	ctx := c.Request.Context()

	uid := userID(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "missing credentials")
		return
	}

	if tag := conversationsETag(ctx, h.convSvc, uid); tag != "" {
		c.Header("ETag", tag)
		if c.GetHeader("If-None-Match") == tag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	items, err := h.convSvc.List(ctx, uid)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list conversations")
		return
	}
	if items == nil {
		items = []domain.Conversation{}
	}
	ok(c, http.StatusOK, ListConversationsResponse{Conversations: items})
}

// ListConversationMessages godoc
// @ID          listConversationMessages
// @Summary     List a conversation's messages
// @Description Returns the full ordered turn history of one conversation
// @Description owned by the authenticated user. Sends a weak ETag; a
// @Description matching If-None-Match yields 304 with no body.
// @Tags        Conversations
// @Produce     json
// @Param       id  path  string  true  "Conversation ID"
// @Success     200  {object}  handlers.ListMessagesResponse
// @Success     304  "Not modified"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown or foreign conversation"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /conversations/{id}/messages [get]
func (h *Handlers) ListConversationMessages(c *gin.Context) {
	ctx := c.Request.Context()

	uid := userID(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "missing credentials")
		return
	}
	id := c.Param("id")

	if tag := messagesETag(ctx, h.convSvc, uid, id); tag != "" {
		c.Header("ETag", tag)
		if c.GetHeader("If-None-Match") == tag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	msgs, err := h.convSvc.Messages(ctx, uid, id)
	if err != nil {
		if errors.Is(err, services.ErrConversationNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "conversation not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list messages")
		return
	}
	if msgs == nil {
		msgs = []domain.Message{}
	}
	ok(c, http.StatusOK, ListMessagesResponse{ConversationID: id, Messages: msgs})
}

// RenameConversation godoc
// @ID          renameConversation
// @Summary     Rename a conversation
// @Tags        Conversations
// @Accept      json
// @Produce     json
// @Param       id    path  string  true  "Conversation ID"
// @Param       body  body  handlers.RenameConversationRequest  true  "New title"
// @Success     204  "Renamed"
// @Failure     400  {object}  handlers.ErrorResponse  "Missing title"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown or foreign conversation"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /conversations/{id} [patch]
func (h *Handlers) RenameConversation(c *gin.Context) {
	ctx := c.Request.Context()

	uid := userID(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "missing credentials")
		return
	}

	var req RenameConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "title required")
		return
	}

	if err := h.convSvc.Rename(ctx, uid, c.Param("id"), req.Title); err != nil {
		if errors.Is(err, services.ErrConversationNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "conversation not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not rename conversation")
		return
	}
	noContent(c)
}

// DeleteConversation godoc
// @ID          deleteConversation
// @Summary     Delete a conversation
// @Description Removes a conversation owned by the authenticated user along
// @Description with all of its messages.
// @Tags        Conversations
// @Param       id  path  string  true  "Conversation ID"
// @Success     204  "Deleted"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     404  {object}  handlers.ErrorResponse  "Unknown or foreign conversation"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /conversations/{id} [delete]
func (h *Handlers) DeleteConversation(c *gin.Context) {
	ctx := c.Request.Context()

	uid := userID(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "missing credentials")
		return
	}

	if err := h.convSvc.Delete(ctx, uid, c.Param("id")); err != nil {
		if errors.Is(err, services.ErrConversationNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "conversation not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not delete conversation")
		return
	}
	noContent(c)
}
