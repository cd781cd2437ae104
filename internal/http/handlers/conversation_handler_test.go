package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/focusplus/focus-backend/internal/domain"
	"github.com/focusplus/focus-backend/internal/services"
)

// ----- Fake conversation service -----

type fakeConvSvc struct {
	conversations []domain.Conversation
	messages      []domain.Message
	err           error

	gotUserID string
	gotConvID string
	gotTitle  string
	deleted   bool
}

func (f *fakeConvSvc) List(_ context.Context, userID string) ([]domain.Conversation, error) {
	f.gotUserID = userID
	return f.conversations, f.err
}

func (f *fakeConvSvc) Messages(_ context.Context, userID, conversationID string) ([]domain.Message, error) {
	f.gotUserID = userID
	f.gotConvID = conversationID
	return f.messages, f.err
}

func (f *fakeConvSvc) Rename(_ context.Context, userID, conversationID, title string) error {
	f.gotUserID = userID
	f.gotConvID = conversationID
	f.gotTitle = title
	return f.err
}

func (f *fakeConvSvc) Delete(_ context.Context, userID, conversationID string) error {
	f.gotUserID = userID
	f.gotConvID = conversationID
	f.deleted = true
	return f.err
}

func newConvHandlerRouter(svc ConversationService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := New(nil, nil, svc, nil, nil)
	r := gin.New()
	r.GET("/api/conversations", h.ListConversations)
	r.GET("/api/conversations/:id/messages", h.ListConversationMessages)
	r.PATCH("/api/conversations/:id", h.RenameConversation)
	r.DELETE("/api/conversations/:id", h.DeleteConversation)
	return r
}

func doConvReq(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-User-ID", "u1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ----- Tests -----

func TestListConversations_Unauthenticated(t *testing.T) {
	r := newConvHandlerRouter(&fakeConvSvc{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/conversations", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestListConversations_EmptyIsArrayNotNull(t *testing.T) {
	r := newConvHandlerRouter(&fakeConvSvc{})

	w := doConvReq(r, http.MethodGet, "/api/conversations", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"conversations":[]`) {
		t.Fatalf("nil slice must serialize as []: %s", w.Body.String())
	}
}

func TestListConversations_ReturnsItems(t *testing.T) {
	now := time.Now()
	fake := &fakeConvSvc{conversations: []domain.Conversation{
		{ID: "c2", UserID: "u1", Title: "Later", CreatedAt: now},
		{ID: "c1", UserID: "u1", Title: "Earlier", CreatedAt: now.Add(-time.Hour)},
	}}
	r := newConvHandlerRouter(fake)

	w := doConvReq(r, http.MethodGet, "/api/conversations", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if fake.gotUserID != "u1" {
		t.Fatalf("user not forwarded: %q", fake.gotUserID)
	}

	var resp ListConversationsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Conversations) != 2 || resp.Conversations[0].ID != "c2" {
		t.Fatalf("unexpected list: %+v", resp.Conversations)
	}
}

func TestListConversations_ServiceError(t *testing.T) {
	r := newConvHandlerRouter(&fakeConvSvc{err: errors.New("db down")})

	w := doConvReq(r, http.MethodGet, "/api/conversations", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	var er ErrorResponse
	_ = json.Unmarshal(w.Body.Bytes(), &er)
	if er.Code != ErrCodeListFailed {
		t.Fatalf("expected %q, got %q", ErrCodeListFailed, er.Code)
	}
}

func TestListConversationMessages_ReturnsTurns(t *testing.T) {
	fake := &fakeConvSvc{messages: []domain.Message{
		{ID: "m1", ConversationID: "c1", Role: "user", Content: "hi"},
		{ID: "m2", ConversationID: "c1", Role: "assistant", Content: "hello"},
	}}
	r := newConvHandlerRouter(fake)

	w := doConvReq(r, http.MethodGet, "/api/conversations/c1/messages", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if fake.gotConvID != "c1" {
		t.Fatalf("conversation id not forwarded: %q", fake.gotConvID)
	}

	var resp ListMessagesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ConversationID != "c1" || len(resp.Messages) != 2 || resp.Messages[1].Role != "assistant" {
		t.Fatalf("unexpected payload: %+v", resp)
	}
}

func TestListConversationMessages_NotFound(t *testing.T) {
	r := newConvHandlerRouter(&fakeConvSvc{err: services.ErrConversationNotFound})

	w := doConvReq(r, http.MethodGet, "/api/conversations/nope/messages", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestRenameConversation(t *testing.T) {
	fake := &fakeConvSvc{}
	r := newConvHandlerRouter(fake)

	w := doConvReq(r, http.MethodPatch, "/api/conversations/c1", `{"title":"Weekly plan"}`)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d (%s)", w.Code, w.Body.String())
	}
	if fake.gotConvID != "c1" || fake.gotTitle != "Weekly plan" {
		t.Fatalf("rename args not forwarded: %q %q", fake.gotConvID, fake.gotTitle)
	}
}

func TestRenameConversation_MissingTitle(t *testing.T) {
	fake := &fakeConvSvc{}
	r := newConvHandlerRouter(fake)

	w := doConvReq(r, http.MethodPatch, "/api/conversations/c1", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if fake.gotTitle != "" {
		t.Fatalf("service must not run on an invalid payload")
	}
}

func TestRenameConversation_NotFound(t *testing.T) {
	r := newConvHandlerRouter(&fakeConvSvc{err: services.ErrConversationNotFound})

	w := doConvReq(r, http.MethodPatch, "/api/conversations/ghost", `{"title":"x"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestDeleteConversation(t *testing.T) {
	fake := &fakeConvSvc{}
	r := newConvHandlerRouter(fake)

	w := doConvReq(r, http.MethodDelete, "/api/conversations/c1", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if !fake.deleted || fake.gotConvID != "c1" {
		t.Fatalf("delete not forwarded: %+v", fake)
	}
}

func TestDeleteConversation_NotFound(t *testing.T) {
	r := newConvHandlerRouter(&fakeConvSvc{err: services.ErrConversationNotFound})

	w := doConvReq(r, http.MethodDelete, "/api/conversations/ghost", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
