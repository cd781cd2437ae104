package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/focusplus/focus-backend/internal/domain"
	"github.com/focusplus/focus-backend/internal/llm"
	"github.com/focusplus/focus-backend/internal/repo"
)

// ----- Fake completion client -----

type fakeCompletion struct {
	// capture
	gotMessages []llm.Message

	reply    string
	err      error
	chunks   []string
	skipped  int
	streamed bool
}

func (f *fakeCompletion) Complete(ctx context.Context, messages []llm.Message) (string, error) {
	f.gotMessages = messages
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeCompletion) Stream(ctx context.Context, messages []llm.Message, emit func(delta string) error) (string, int, error) {
	f.gotMessages = messages
	f.streamed = true
	if f.err != nil {
		return "", 0, f.err
	}
	var b strings.Builder
	for _, c := range f.chunks {
		b.WriteString(c)
		if emit != nil {
			if err := emit(c); err != nil {
				return b.String(), f.skipped, err
			}
		}
	}
	return b.String(), f.skipped, nil
}

// ----- Helpers -----

func newChatServiceDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("chat_service_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seedChatUser(t *testing.T, db *gorm.DB, googleID string) *domain.User {
	t.Helper()
	u, err := repo.UpsertGoogleUser(context.Background(), db, repo.GoogleProfile{
		GoogleID: googleID,
		Name:     "Test User",
		Email:    googleID + "@example.com",
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func countRows(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	if err := db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

// ----- Tests -----

func TestAnswer_EmptyMessageWritesNothing(t *testing.T) {
	db := newChatServiceDB(t)
	u := seedChatUser(t, db, "g1")
	s := NewChatService(db, &fakeCompletion{reply: "x"})

	for _, msg := range []string{"", "   ", "\n\t"} {
		if _, err := s.Answer(context.Background(), u.ID, "", "", msg); !errors.Is(err, ErrEmptyMessage) {
			t.Fatalf("message %q: expected ErrEmptyMessage, got %v", msg, err)
		}
	}
	if n := countRows(t, db, &domain.Conversation{}); n != 0 {
		t.Fatalf("no conversation may be created, found %d", n)
	}
	if n := countRows(t, db, &domain.Message{}); n != 0 {
		t.Fatalf("no message may be persisted, found %d", n)
	}
}

func TestAnswer_TooLongMessage(t *testing.T) {
	db := newChatServiceDB(t)
	u := seedChatUser(t, db, "g1")
	s := NewChatService(db, &fakeCompletion{reply: "x"})
	s.MaxMessageRunes = 5

	if _, err := s.Answer(context.Background(), u.ID, "", "", "toolongmessage"); !errors.Is(err, ErrTooLong) {
		t.Fatalf("expected ErrTooLong, got %v", err)
	}
}

func TestAnswer_NewConversationAppendsOneUserAndOneAssistantRow(t *testing.T) {
	db := newChatServiceDB(t)
	u := seedChatUser(t, db, "g1")
	fake := &fakeCompletion{reply: "Sure, start with a 25 minute block."}
	s := NewChatService(db, fake)

	res, err := s.Answer(context.Background(), u.ID, "", "study", "Help me study calculus")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if res.ConversationID == "" || res.Reply == nil {
		t.Fatalf("incomplete result: %+v", res)
	}
	if res.Reply.Role != domain.RoleAssistant || res.Reply.Content != fake.reply {
		t.Fatalf("unexpected reply row: %+v", res.Reply)
	}

	msgs, err := repo.ListMessages(db, res.ConversationID, 0)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("turn must persist exactly 2 rows, got %d", len(msgs))
	}
	if msgs[0].Role != domain.RoleUser || msgs[1].Role != domain.RoleAssistant {
		t.Fatalf("wrong roles/order: %q then %q", msgs[0].Role, msgs[1].Role)
	}

	convo, err := repo.GetConversation(context.Background(), db, res.ConversationID, u.ID)
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if convo.Type != "study" {
		t.Fatalf("persona tag not stored: %q", convo.Type)
	}
}

func TestAnswer_SystemPromptReflectsConversationType(t *testing.T) {
	db := newChatServiceDB(t)
	u := seedChatUser(t, db, "g1")
	fake := &fakeCompletion{reply: "ok"}
	s := NewChatService(db, fake)

	cases := map[string]string{
		"study":   "You are Focus+, a friendly teacher.",
		"workout": "You are Focus+, a certified trainer.",
		"":        "You are Focus+, a productivity AI.",
		"unknown": "You are Focus+, a productivity AI.",
	}
	for mode, wantPrompt := range cases {
		if _, err := s.Answer(context.Background(), u.ID, "", mode, "hi"); err != nil {
			t.Fatalf("mode %q: %v", mode, err)
		}
		if len(fake.gotMessages) == 0 || fake.gotMessages[0].Role != "system" {
			t.Fatalf("mode %q: system prompt must come first, got %+v", mode, fake.gotMessages)
		}
		if got := fake.gotMessages[0].Content; got != wantPrompt {
			t.Fatalf("mode %q: prompt %q, want %q", mode, got, wantPrompt)
		}
	}
}

func TestAnswer_HistoryInOrderOnSecondTurn(t *testing.T) {
	db := newChatServiceDB(t)
	u := seedChatUser(t, db, "g1")
	fake := &fakeCompletion{reply: "first reply"}
	s := NewChatService(db, fake)

	res, err := s.Answer(context.Background(), u.ID, "", "", "first question")
	if err != nil {
		t.Fatalf("first turn: %v", err)
	}

	fake.reply = "second reply"
	if _, err := s.Answer(context.Background(), u.ID, res.ConversationID, "", "second question"); err != nil {
		t.Fatalf("second turn: %v", err)
	}

	// system + user + assistant + user
	want := []struct{ role, content string }{
		{"system", "You are Focus+, a productivity AI."},
		{"user", "first question"},
		{"assistant", "first reply"},
		{"user", "second question"},
	}
	if len(fake.gotMessages) != len(want) {
		t.Fatalf("expected %d history entries, got %d: %+v", len(want), len(fake.gotMessages), fake.gotMessages)
	}
	for i, w := range want {
		if fake.gotMessages[i].Role != w.role || fake.gotMessages[i].Content != w.content {
			t.Fatalf("history[%d] = %+v, want %+v", i, fake.gotMessages[i], w)
		}
	}
}

func TestAnswer_ForeignConversationWritesNothing(t *testing.T) {
	db := newChatServiceDB(t)
	owner := seedChatUser(t, db, "g1")
	intruder := seedChatUser(t, db, "g2")
	s := NewChatService(db, &fakeCompletion{reply: "x"})

	res, err := s.Answer(context.Background(), owner.ID, "", "", "mine")
	if err != nil {
		t.Fatalf("seed turn: %v", err)
	}
	before := countRows(t, db, &domain.Message{})

	if _, err := s.Answer(context.Background(), intruder.ID, res.ConversationID, "", "sneaky"); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if after := countRows(t, db, &domain.Message{}); after != before {
		t.Fatalf("ownership failure must write nothing: %d -> %d rows", before, after)
	}
}

func TestAnswer_CompletionFailureKeepsUserTurnOnly(t *testing.T) {
	db := newChatServiceDB(t)
	u := seedChatUser(t, db, "g1")
	s := NewChatService(db, &fakeCompletion{err: errors.New("upstream down")})

	if _, err := s.Answer(context.Background(), u.ID, "", "", "hello"); err == nil {
		t.Fatalf("completion failure must fail the turn")
	}

	var msgs []domain.Message
	if err := db.Find(&msgs).Error; err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Role != domain.RoleUser {
		t.Fatalf("expected exactly the user row, got %+v", msgs)
	}
}

func TestAnswer_AutoTitleAndXPAward(t *testing.T) {
	db := newChatServiceDB(t)
	u := seedChatUser(t, db, "g1")
	s := NewChatService(db, &fakeCompletion{reply: "ok"})
	s.XPAward = 5

	res, err := s.Answer(context.Background(), u.ID, "", "", "plan my week for the big exam please")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}

	convo, err := repo.GetConversation(context.Background(), db, res.ConversationID, u.ID)
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	// First six words, title-cased.
	if convo.Title != "Plan My Week For The Big" {
		t.Fatalf("unexpected auto title: %q", convo.Title)
	}

	got, err := repo.GetUser(context.Background(), db, u.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.TotalXP != 5 {
		t.Fatalf("expected 5 xp awarded, got %d", got.TotalXP)
	}

	logs, _ := repo.ListXPLogs(context.Background(), db, u.ID, 0)
	if len(logs) != 1 || logs[0].Reason != "chat" || logs[0].ReferenceID != convo.ID {
		t.Fatalf("unexpected ledger: %+v", logs)
	}
}

func TestAnswerStream_ConcatenationEqualsPersistedTurn(t *testing.T) {
	db := newChatServiceDB(t)
	u := seedChatUser(t, db, "g1")
	fake := &fakeCompletion{chunks: []string{"Take ", "a ", "break."}}
	s := NewChatService(db, fake)

	var emitted []string
	res, err := s.AnswerStream(context.Background(), u.ID, "", "", "should I rest?", func(delta string) error {
		emitted = append(emitted, delta)
		return nil
	})
	if err != nil {
		t.Fatalf("AnswerStream: %v", err)
	}
	joined := strings.Join(emitted, "")
	if joined != "Take a break." {
		t.Fatalf("emitted %q", joined)
	}
	if res.Reply.Content != joined {
		t.Fatalf("persisted %q != streamed %q", res.Reply.Content, joined)
	}

	msgs, _ := repo.ListMessages(db, res.ConversationID, 0)
	if len(msgs) != 2 || msgs[1].Content != joined {
		t.Fatalf("persisted turn mismatch: %+v", msgs)
	}
}

func TestAnswerStream_SkippedFragmentsSurfaced(t *testing.T) {
	db := newChatServiceDB(t)
	u := seedChatUser(t, db, "g1")
	fake := &fakeCompletion{chunks: []string{"ok"}, skipped: 2}
	s := NewChatService(db, fake)

	res, err := s.AnswerStream(context.Background(), u.ID, "", "", "hi", nil)
	if err != nil {
		t.Fatalf("AnswerStream: %v", err)
	}
	if res.SkippedFragments != 2 {
		t.Fatalf("expected 2 skipped fragments, got %d", res.SkippedFragments)
	}
}

func TestAnswerStream_UpstreamErrorNoAssistantRow(t *testing.T) {
	db := newChatServiceDB(t)
	u := seedChatUser(t, db, "g1")
	s := NewChatService(db, &fakeCompletion{err: errors.New("stream broke")})

	if _, err := s.AnswerStream(context.Background(), u.ID, "", "", "hi", nil); err == nil {
		t.Fatalf("upstream error must fail the turn")
	}

	var assistants int64
	db.Model(&domain.Message{}).Where("role = ?", domain.RoleAssistant).Count(&assistants)
	if assistants != 0 {
		t.Fatalf("no assistant row may exist after a failed stream, got %d", assistants)
	}
}

func TestGenerateTitle_ClipsRunes(t *testing.T) {
	s := &ChatService{TitleMaxLen: 10}
	got := s.generateTitle("ααααα βββββ γγγγγ")
	if l := len([]rune(got)); l > 10 {
		t.Fatalf("title must be clipped to 10 runes, got %d (%q)", l, got)
	}
}
