package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/focusplus/focus-backend/internal/domain"
	"github.com/focusplus/focus-backend/internal/services"
)

// ----- Fake note service -----

type fakeNoteSvc struct {
	note  *domain.Note
	notes []domain.Note
	err   error

	gotTitle   string
	gotContent string
	gotNoteID  string
	gotTarget  string
	shared     bool
}

func (f *fakeNoteSvc) Create(_ context.Context, userID, title, content string) (*domain.Note, error) {
	f.gotTitle = title
	f.gotContent = content
	return f.note, f.err
}

func (f *fakeNoteSvc) List(_ context.Context, userID string) ([]domain.Note, error) {
	return f.notes, f.err
}

func (f *fakeNoteSvc) Shared(_ context.Context, userID string) ([]domain.Note, error) {
	return f.notes, f.err
}

func (f *fakeNoteSvc) Share(_ context.Context, userID, noteID, targetUserID string) error {
	f.shared = true
	f.gotNoteID = noteID
	f.gotTarget = targetUserID
	return f.err
}

func (f *fakeNoteSvc) TogglePublic(_ context.Context, userID, noteID string) (*domain.Note, error) {
	f.gotNoteID = noteID
	return f.note, f.err
}

func newNoteHandlerRouter(svc NoteService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := New(nil, nil, nil, nil, svc)
	r := gin.New()
	r.POST("/api/notes", h.CreateNote)
	r.GET("/api/notes", h.ListNotes)
	r.GET("/api/notes/shared", h.ListSharedNotes)
	r.POST("/api/notes/:id/share", h.ShareNote)
	r.PATCH("/api/notes/:id/toggle-public", h.ToggleNotePublic)
	return r
}

func doNoteReq(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
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

func TestCreateNote(t *testing.T) {
	fake := &fakeNoteSvc{note: &domain.Note{ID: "n1", UserID: "u1", Title: "Physics"}}
	r := newNoteHandlerRouter(fake)

	w := doNoteReq(r, http.MethodPost, "/api/notes", `{"title":"Physics","content":"{\"blocks\":[]}"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", w.Code, w.Body.String())
	}
	if fake.gotTitle != "Physics" || fake.gotContent != `{"blocks":[]}` {
		t.Fatalf("create args not forwarded: %q %q", fake.gotTitle, fake.gotContent)
	}

	var note domain.Note
	if err := json.Unmarshal(w.Body.Bytes(), &note); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if note.ID != "n1" {
		t.Fatalf("unexpected note: %+v", note)
	}
}

func TestCreateNote_MissingTitle(t *testing.T) {
	fake := &fakeNoteSvc{}
	r := newNoteHandlerRouter(fake)

	w := doNoteReq(r, http.MethodPost, "/api/notes", `{"content":"x"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if fake.gotTitle != "" {
		t.Fatalf("service must not run on an invalid payload")
	}
}

func TestCreateNote_Unauthenticated(t *testing.T) {
	r := newNoteHandlerRouter(&fakeNoteSvc{})

	req := httptest.NewRequest(http.MethodPost, "/api/notes", strings.NewReader(`{"title":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestListNotes_EmptyIsArrayNotNull(t *testing.T) {
	r := newNoteHandlerRouter(&fakeNoteSvc{})

	w := doNoteReq(r, http.MethodGet, "/api/notes", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"notes":[]`) {
		t.Fatalf("nil slice must serialize as []: %s", w.Body.String())
	}
}

func TestListSharedNotes(t *testing.T) {
	fake := &fakeNoteSvc{notes: []domain.Note{{ID: "n7", UserID: "other", Title: "Shared with me"}}}
	r := newNoteHandlerRouter(fake)

	w := doNoteReq(r, http.MethodGet, "/api/notes/shared", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp ListNotesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Notes) != 1 || resp.Notes[0].ID != "n7" {
		t.Fatalf("unexpected shared list: %+v", resp.Notes)
	}
}

func TestShareNote(t *testing.T) {
	fake := &fakeNoteSvc{}
	r := newNoteHandlerRouter(fake)

	w := doNoteReq(r, http.MethodPost, "/api/notes/n1/share", `{"userId":"u2"}`)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d (%s)", w.Code, w.Body.String())
	}
	if !fake.shared || fake.gotNoteID != "n1" || fake.gotTarget != "u2" {
		t.Fatalf("share args not forwarded: %+v", fake)
	}
}

func TestShareNote_MissingRecipient(t *testing.T) {
	fake := &fakeNoteSvc{}
	r := newNoteHandlerRouter(fake)

	w := doNoteReq(r, http.MethodPost, "/api/notes/n1/share", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if fake.shared {
		t.Fatalf("service must not run on an invalid payload")
	}
}

func TestShareNote_UnknownNote(t *testing.T) {
	r := newNoteHandlerRouter(&fakeNoteSvc{err: services.ErrNoteNotFound})

	w := doNoteReq(r, http.MethodPost, "/api/notes/ghost/share", `{"userId":"u2"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestToggleNotePublic(t *testing.T) {
	fake := &fakeNoteSvc{note: &domain.Note{ID: "n1", UserID: "u1", Title: "Physics", IsPublic: true}}
	r := newNoteHandlerRouter(fake)

	w := doNoteReq(r, http.MethodPatch, "/api/notes/n1/toggle-public", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if fake.gotNoteID != "n1" {
		t.Fatalf("note id not forwarded: %q", fake.gotNoteID)
	}

	var note domain.Note
	if err := json.Unmarshal(w.Body.Bytes(), &note); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !note.IsPublic {
		t.Fatalf("expected the toggled state in the response")
	}
}

func TestToggleNotePublic_UnknownNote(t *testing.T) {
	r := newNoteHandlerRouter(&fakeNoteSvc{err: services.ErrNoteNotFound})

	w := doNoteReq(r, http.MethodPatch, "/api/notes/ghost/toggle-public", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
