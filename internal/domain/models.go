// Package domain defines the persistence models for users, conversations,
// messages, the XP ledger, and notes. These types are mapped with GORM and
// form the core data layer of the Focus+ backend.
package domain

import (
	"time"
)

// Message roles allowed by the schema check constraint.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// User represents an account created on first successful Google login and
// updated on each subsequent login (upsert keyed by GoogleID).
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - GoogleID: unique external identity from the OAuth provider.
//   - Name / Email / ProfilePicture: profile data refreshed at login.
//   - TotalXP: denormalized XP balance; the xp_logs table is the ledger.
//   - CreatedAt: timestamp managed by GORM.
type User struct {
	ID             string    `json:"id"              gorm:"type:char(36);primaryKey"`
	GoogleID       string    `json:"google_id"       gorm:"type:varchar(64);not null;uniqueIndex:ux_users_google_id"`
	Name           string    `json:"name"            gorm:"type:varchar(255);not null"`
	Email          string    `json:"email"           gorm:"type:varchar(255);not null"`
	ProfilePicture string    `json:"profile_picture" gorm:"type:text"`
	TotalXP        int64     `json:"total_xp"        gorm:"not null;default:0"`
	CreatedAt      time.Time `json:"created_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Conversation represents a chat thread owned by a user. It is created
// lazily on the first message of a new thread; the type tag selects the
// assistant persona ("study", "workout", default "ai") and the title is a
// placeholder until the first user message generates one. UpdatedAt is
// bumped by GORM on every write, so renames invalidate list ETags.
type Conversation struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID    string    `json:"user_id"    gorm:"type:char(36);not null;index:idx_user_conversations"`
	Type      string    `json:"type"       gorm:"type:varchar(32);not null;default:'ai'"`
	Title     string    `json:"title"      gorm:"type:varchar(255);not null;default:'New conversation'"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// User is the owner. Conversations are removed when the owner is deleted.
	User User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Conversation.
func (Conversation) TableName() string { return "conversations" }

// Message represents a single turn within a conversation, authored either by
// the "user" or the "assistant" (enforced by a DB check constraint). Turns
// are immutable once created and ordered by creation time.
type Message struct {
	ID             string    `json:"id"              gorm:"type:char(36);primaryKey"`
	ConversationID string    `json:"conversation_id" gorm:"type:char(36);not null;index:idx_conversation_msgs,priority:1"`
	Role           string    `json:"role"            gorm:"type:varchar(16);not null;check:role IN ('user','assistant')"`
	Content        string    `json:"content"         gorm:"type:text;not null"`
	CreatedAt      time.Time `json:"created_at"      gorm:"index:idx_conversation_msgs,priority:2"`

	// Conversation is the parent thread. Messages are cascade-deleted when
	// their conversation is removed.
	Conversation Conversation `json:"-" gorm:"foreignKey:ConversationID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }

// XPLog is one append-only entry in the XP ledger. The matching balance
// update on users.total_xp happens in the same transaction (repo.AddXP);
// rows are never mutated after insert.
type XPLog struct {
	ID          string    `json:"id"           gorm:"type:char(36);primaryKey"`
	UserID      string    `json:"user_id"      gorm:"type:char(36);not null;index"`
	Amount      int64     `json:"amount"       gorm:"not null"`
	Reason      string    `json:"reason"       gorm:"type:varchar(64);not null"`
	ReferenceID string    `json:"reference_id" gorm:"type:char(36)"`
	CreatedAt   time.Time `json:"created_at"`

	User User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for XPLog.
func (XPLog) TableName() string { return "xp_logs" }

// Note is a study note owned by a user. Content is stored as raw JSON text
// (the clients exchange block-structured documents).
type Note struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID    string    `json:"user_id"    gorm:"type:char(36);not null;index"`
	Title     string    `json:"title"      gorm:"type:varchar(255);not null"`
	Content   string    `json:"content"    gorm:"type:text;not null"`
	IsPublic  bool      `json:"is_public"  gorm:"not null;default:false"`
	CreatedAt time.Time `json:"created_at"`

	User User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Note.
func (Note) TableName() string { return "notes" }

// NoteShare grants another user read access to a note. The (note, user)
// pair is unique; re-sharing is a no-op.
type NoteShare struct {
	ID               string    `json:"id"                  gorm:"type:char(36);primaryKey"`
	NoteID           string    `json:"note_id"             gorm:"type:char(36);not null;index;uniqueIndex:ux_note_shares_note_user"`
	SharedWithUserID string    `json:"shared_with_user_id" gorm:"type:char(36);not null;index;uniqueIndex:ux_note_shares_note_user"`
	CreatedAt        time.Time `json:"created_at"`

	Note Note `json:"-" gorm:"foreignKey:NoteID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for NoteShare.
func (NoteShare) TableName() string { return "note_shares" }
