package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP endpoints for auth, chat, conversations, users,
// and notes. It depends on abstract service interfaces to keep transport
// concerns separate from business logic.
type Handlers struct {
	authSvc AuthService
	chatSvc ChatService
	convSvc ConversationService
	userSvc UserService
	noteSvc NoteService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(authSvc AuthService, chatSvc ChatService, convSvc ConversationService, userSvc UserService, noteSvc NoteService) *Handlers {
	return &Handlers{
		authSvc: authSvc,
		chatSvc: chatSvc,
		convSvc: convSvc,
		userSvc: userSvc,
		noteSvc: noteSvc,
	}
}

// userID extracts the authenticated user id from Gin context (set by the
// auth middleware). If absent, it falls back to the "X-User-ID" header
// (tests use it). Empty means unauthenticated. It never touches c.Request
// if it's nil.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return ""
}
