// Chat HTTP handlers.
//
// This file exposes the chat turn endpoints:
//   - POST /api/chat         (one request/reply turn)
//   - POST /api/chat-stream  (same turn, reply streamed as plain text)
//
// Handlers are transport-thin: they validate input, call the chat service,
// and translate results into HTTP responses.
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a previous successful
// turn exists for (user, conversation, key), POST /api/chat returns that
// recorded assistant reply and sets `Idempotency-Replayed: true`.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/focusplus/focus-backend/internal/http/middleware"
	"github.com/focusplus/focus-backend/internal/repo"
	"github.com/focusplus/focus-backend/internal/services"
)

// ChatService defines the chat turn operations consumed by HTTP handlers.
//
// Implementations must be safe for concurrent use and honor the provided
// context for cancellation.
type ChatService interface {
	// Answer runs one turn and returns the conversation id and reply.
	Answer(ctx context.Context, userID, conversationID, mode, message string) (*services.TurnResult, error)
	// AnswerStream runs one turn, forwarding reply fragments to emit.
	AnswerStream(ctx context.Context, userID, conversationID, mode, message string, emit func(delta string) error) (*services.TurnResult, error)
}

//
// DTOs
//

// ChatRequest is the JSON payload for both chat endpoints.
type ChatRequest struct {
	// Message is the user's turn. It must be non-empty.
	Message string `json:"message" binding:"required,min=1" example:"How do I plan tomorrow's study session?"`
	// ConversationID continues an existing thread when set; a new thread
	// owned by the caller is created when empty.
	ConversationID string `json:"conversationId" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
	// Type selects the assistant persona ("study", "workout"; default "ai").
	Type string `json:"type" example:"study"`
}

// ChatResponse is the JSON envelope for a completed turn.
type ChatResponse struct {
	ConversationID string `json:"conversationId"`
	Reply          string `json:"reply"`
}

//
// Helpers
//

// nlCollapseRE collapses runs of 3+ newlines to two, preserving paragraphs.
var nlCollapseRE = regexp.MustCompile(`\n{3,}`)

// sanitizeMessage normalizes user text for consistent downstream behavior:
// CRLF/CR to LF, runs of 3+ LFs to two, surrounding whitespace trimmed.
func sanitizeMessage(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = nlCollapseRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// discoverMaxMessageRunes inspects the concrete ChatService for a configured
// message-length limit. If unavailable, it returns a conservative fallback.
func discoverMaxMessageRunes(svc ChatService) int {
	const fallback = 4000
	if cs, ok := svc.(*services.ChatService); ok {
		if cs.MaxMessageRunes > 0 {
			return cs.MaxMessageRunes
		}
	}
	return fallback
}

// bindChatRequest parses and sanitizes the shared chat payload, writing the
// error response itself when validation fails.
func (h *Handlers) bindChatRequest(c *gin.Context) (ChatRequest, bool) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message required")
		return req, false
	}
	req.Message = sanitizeMessage(req.Message)
	if req.Message == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message required")
		return req, false
	}
	if max := discoverMaxMessageRunes(h.chatSvc); max > 0 && utf8.RuneCountInString(req.Message) > max {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, fmt.Sprintf("message too long: max %d runes", max))
		return req, false
	}
	return req, true
}

// failChat maps chat service errors onto the HTTP taxonomy.
func failChat(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrEmptyMessage):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message required")
	case errors.Is(err, services.ErrTooLong):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message too long")
	case errors.Is(err, services.ErrNotOwner):
		fail(c, http.StatusForbidden, ErrCodeForbidden, "conversation not owned by caller")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeChatFailed, "chat failed")
	}
}

//
// Handlers
//

// PostChat godoc
// @ID          postChat
// @Summary     Send a message and get the assistant reply
// @Description Appends a user turn (creating the conversation when no id is
// @Description supplied) and returns the assistant reply for the whole turn.
// @Description Supports idempotency via the Idempotency-Key header.
// @Tags        Chat
// @Accept      json
// @Produce     json
//
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries (UUID recommended)"
// @Param       body             body    handlers.ChatRequest  true  "Chat turn payload"
//
// @Success     200  {object}  handlers.ChatResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     403  {object}  handlers.ErrorResponse  "Conversation owned by another user"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /chat [post]
func (h *Handlers) PostChat(c *gin.Context) {
	ctx := c.Request.Context()

	uid := userID(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "missing credentials")
		return
	}

	req, okReq := h.bindChatRequest(c)
	if !okReq {
		return
	}

	// Idempotency (replay path) – read validated key if present.
	idemKey, _ := middleware.GetIdempotencyKey(c)
	if idemKey != "" && req.ConversationID != "" {
		if svc, okSvc := h.chatSvc.(*services.ChatService); okSvc && svc.DB != nil {
			if rec, err := repo.GetIdempotency(ctx, svc.DB, uid, req.ConversationID, idemKey, time.Now().UTC()); err == nil && rec != nil {
				if prev, err2 := repo.GetMessage(svc.DB, rec.MessageID); err2 == nil {
					c.Header("Idempotency-Replayed", "true")
					ok(c, http.StatusOK, ChatResponse{ConversationID: prev.ConversationID, Reply: prev.Content})
					return
				}
			}
		}
	}

	res, err := h.chatSvc.Answer(ctx, uid, req.ConversationID, req.Type, req.Message)
	if err != nil {
		failChat(c, err)
		return
	}

	// Idempotency (store path) – best effort.
	if idemKey != "" {
		if svc, okSvc := h.chatSvc.(*services.ChatService); okSvc && svc.DB != nil {
			ttl := svc.IdempotencyTTL
			if ttl <= 0 {
				ttl = 24 * time.Hour
			}
			_, _ = repo.CreateIdempotency(ctx, svc.DB, uid, res.ConversationID, idemKey, res.Reply.ID, http.StatusOK, ttl)
		}
	}

	ok(c, http.StatusOK, ChatResponse{ConversationID: res.ConversationID, Reply: res.Reply.Content})
}

// PostChatStream godoc
// @ID          postChatStream
// @Summary     Send a message and stream the assistant reply
// @Description Identical setup to /chat, but reply fragments are forwarded
// @Description as a chunked text/plain body while the upstream streams them.
// @Description The concatenation of all fragments equals the persisted turn.
// @Tags        Chat
// @Accept      json
// @Produce     plain
//
// @Param       body  body  handlers.ChatRequest  true  "Chat turn payload"
//
// @Success     200  {string}  string  "Reply fragments"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthenticated"
// @Failure     403  {object}  handlers.ErrorResponse  "Conversation owned by another user"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /chat-stream [post]
func (h *Handlers) PostChatStream(c *gin.Context) {
	ctx := c.Request.Context()

	uid := userID(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "missing credentials")
		return
	}

	req, okReq := h.bindChatRequest(c)
	if !okReq {
		return
	}

	wrote := false
	emit := func(delta string) error {
		if !wrote {
			c.Header("Content-Type", "text/plain; charset=utf-8")
			c.Header("Cache-Control", "no-cache")
			c.Status(http.StatusOK)
			wrote = true
		}
		if _, err := c.Writer.WriteString(delta); err != nil {
			return err
		}
		c.Writer.Flush()
		return nil
	}

	if _, err := h.chatSvc.AnswerStream(ctx, uid, req.ConversationID, req.Type, req.Message, emit); err != nil {
		if !wrote {
			failChat(c, err)
			return
		}
		// Fragments already reached the client; the status line is gone.
		// Record the failure and terminate the body.
		_ = c.Error(err)
		c.Abort()
		return
	}

	if !wrote {
		// Upstream produced an empty reply; still a successful turn.
		c.Header("Content-Type", "text/plain; charset=utf-8")
		c.Status(http.StatusOK)
	}
}
