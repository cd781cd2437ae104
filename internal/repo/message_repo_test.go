package repo

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/focusplus/focus-backend/internal/domain"
)

func newMsgRepoDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("msg_repo_test_%d.db", time.Now().UnixNano()))
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
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func TestCreateMessage_PersistsRoleAndContent(t *testing.T) {
	db := newMsgRepoDB(t, &domain.Message{})

	m, err := CreateMessage(db, "conv-1", domain.RoleUser, "hello")
	if err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}
	if m.ID == "" || m.Role != "user" || m.Content != "hello" {
		t.Fatalf("unexpected message: %+v", m)
	}

	got, err := GetMessage(db, m.ID)
	if err != nil {
		t.Fatalf("GetMessage: %v", err)
	}
	if got.ConversationID != "conv-1" {
		t.Fatalf("conversation id not stored: %q", got.ConversationID)
	}
}

func TestCreateMessage_RejectsUnknownRole(t *testing.T) {
	db := newMsgRepoDB(t, &domain.Message{})

	if _, err := CreateMessage(db, "conv-1", "system", "x"); err == nil {
		t.Fatalf("role outside user/assistant must be rejected by the check constraint")
	}
}

func TestListMessages_AscendingStableOrder(t *testing.T) {
	db := newMsgRepoDB(t, &domain.Message{})

	// Same-timestamp rows must still come back in a stable order (id tiebreak).
	now := time.Now().UTC()
	rows := []domain.Message{
		{ID: "m-1", ConversationID: "c1", Role: domain.RoleUser, Content: "first", CreatedAt: now},
		{ID: "m-2", ConversationID: "c1", Role: domain.RoleAssistant, Content: "second", CreatedAt: now},
		{ID: "m-3", ConversationID: "c1", Role: domain.RoleUser, Content: "third", CreatedAt: now.Add(time.Second)},
		{ID: "m-x", ConversationID: "c2", Role: domain.RoleUser, Content: "other", CreatedAt: now},
	}
	for i := range rows {
		if err := db.Create(&rows[i]).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	got, err := ListMessages(db, "c1", 0)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(got))
	}
	for i, want := range []string{"m-1", "m-2", "m-3"} {
		if got[i].ID != want {
			t.Fatalf("row %d: expected %q, got %q", i, want, got[i].ID)
		}
	}

	limited, err := ListMessages(db, "c1", 2)
	if err != nil {
		t.Fatalf("ListMessages limited: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("limit not applied, got %d", len(limited))
	}
}

func TestCountMessages(t *testing.T) {
	db := newMsgRepoDB(t, &domain.Message{})

	for i := 0; i < 2; i++ {
		if _, err := CreateMessage(db, "c1", domain.RoleUser, fmt.Sprintf("m%d", i)); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	n, err := CountMessages(db, "c1")
	if err != nil {
		t.Fatalf("CountMessages: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2, got %d", n)
	}
}

func TestGetMessage_NotFound(t *testing.T) {
	db := newMsgRepoDB(t, &domain.Message{})

	if _, err := GetMessage(db, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
