// Package services – ChatService
//
// This file implements ChatService, the application-level component that owns
// one chat turn end to end: resolve or create the conversation, append the
// user message, rebuild the ordered history, prepend the persona system
// instruction, call the completion client, and persist the assistant reply.
// A streaming variant forwards fragments as they arrive and persists the
// concatenation once the upstream stream completes.
//
// Side effects on success: the first user message of a conversation generates
// its title, and a configured XP amount is awarded (ledger + balance in one
// transaction). Both are best-effort and never fail the turn.
//
// Observability: public methods are OpenTelemetry-instrumented; spans include
// conversation/user identifiers.
package services

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/focusplus/focus-backend/internal/domain"
	"github.com/focusplus/focus-backend/internal/llm"
	"github.com/focusplus/focus-backend/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	// defaultConversationType matches the schema default persona tag.
	defaultConversationType = "ai"

	// placeholder titles eligible for auto-generation
	defaultTitleNew      = "New conversation"
	defaultTitleUntitled = "Untitled"

	xpReasonChat = "chat"
)

// System instructions selected by the conversation's persona tag.
func systemPrompt(convType string) string {
	switch convType {
	case "study":
		return "You are Focus+, a friendly teacher."
	case "workout":
		return "You are Focus+, a certified trainer."
	default:
		return "You are Focus+, a productivity AI."
	}
}

// CompletionClient is the upstream LLM contract consumed by ChatService.
// Implementations must honor the context and perform no retries.
type CompletionClient interface {
	// Complete returns the full reply for the ordered message list.
	Complete(ctx context.Context, messages []llm.Message) (string, error)
	// Stream invokes emit per decoded fragment and returns the full
	// concatenation plus the count of skipped (undecodable) fragments.
	Stream(ctx context.Context, messages []llm.Message, emit func(delta string) error) (string, int, error)
}

// TurnResult is the outcome of one chat turn.
type TurnResult struct {
	ConversationID string
	Reply          *domain.Message
	// SkippedFragments counts upstream fragments dropped during streaming;
	// always zero for the non-streaming path.
	SkippedFragments int
}

// ChatService coordinates persistence and the completion client for chat
// turns.
type ChatService struct {
	DB     *gorm.DB
	Client CompletionClient

	// MaxMessageRunes caps the user message length (0 = unlimited).
	MaxMessageRunes int

	// XPAward is the XP granted per successful turn (0 disables).
	XPAward int64

	// IdempotencyTTL is the replay window for recorded turns.
	IdempotencyTTL time.Duration

	// Title generation config
	TitleLocale language.Tag
	TitleMaxLen int
}

// NewChatService constructs a ChatService with sane defaults.
func NewChatService(db *gorm.DB, client CompletionClient) *ChatService {
	return &ChatService{
		DB:              db,
		Client:          client,
		MaxMessageRunes: 4000,
		IdempotencyTTL:  24 * time.Hour,
		TitleLocale:     language.English,
		TitleMaxLen:     60,
	}
}

// Answer runs one non-streaming chat turn for the authenticated caller.
//
// An empty message fails before anything is written. A conversation id the
// caller does not own fails with ErrNotOwner and writes no rows. Completion
// failures fail the turn without recording an assistant row; the user turn
// stays persisted.
func (s *ChatService) Answer(ctx context.Context, userID, conversationID, mode, message string) (*TurnResult, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "Answer",
		trace.WithAttributes(
			attribute.String("conversation.id", conversationID),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	convo, history, err := s.prepareTurn(ctx, userID, conversationID, mode, message)
	if err != nil {
		return nil, err
	}

	reply, err := s.Client.Complete(ctx, history)
	if err != nil {
		return nil, err
	}

	assistant, err := repo.CreateMessage(s.DB.WithContext(ctx), convo.ID, domain.RoleAssistant, reply)
	if err != nil {
		return nil, err
	}

	s.finishTurn(ctx, userID, convo, message)
	return &TurnResult{ConversationID: convo.ID, Reply: assistant}, nil
}

// AnswerStream runs one streaming chat turn. Each decoded fragment is handed
// to emit as it arrives; the assistant turn is persisted as the full
// concatenation only after the upstream stream signals completion. An
// upstream error mid-stream fails the turn without an assistant row.
func (s *ChatService) AnswerStream(ctx context.Context, userID, conversationID, mode, message string, emit func(delta string) error) (*TurnResult, error) {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "AnswerStream",
		trace.WithAttributes(
			attribute.String("conversation.id", conversationID),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	convo, history, err := s.prepareTurn(ctx, userID, conversationID, mode, message)
	if err != nil {
		return nil, err
	}

	full, skipped, err := s.Client.Stream(ctx, history, emit)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		log.Warn().
			Str("conversation_id", convo.ID).
			Int("skipped_fragments", skipped).
			Msg("upstream stream fragments dropped")
	}

	assistant, err := repo.CreateMessage(s.DB.WithContext(ctx), convo.ID, domain.RoleAssistant, full)
	if err != nil {
		return nil, err
	}

	s.finishTurn(ctx, userID, convo, message)
	return &TurnResult{ConversationID: convo.ID, Reply: assistant, SkippedFragments: skipped}, nil
}

// prepareTurn validates the message, resolves or creates the conversation,
// appends the user turn, and rebuilds the prompt: the conversation's turns
// in ascending creation order prefixed by the persona instruction.
func (s *ChatService) prepareTurn(ctx context.Context, userID, conversationID, mode, message string) (*domain.Conversation, []llm.Message, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, nil, ErrEmptyMessage
	}
	if s.MaxMessageRunes > 0 && utf8.RuneCountInString(message) > s.MaxMessageRunes {
		return nil, nil, ErrTooLong
	}
	if mode == "" {
		mode = defaultConversationType
	}

	var convo *domain.Conversation
	var err error
	if conversationID == "" {
		convo, err = repo.CreateConversation(ctx, s.DB, userID, mode, defaultTitleNew)
		if err != nil {
			return nil, nil, err
		}
	} else {
		convo, err = repo.GetConversation(ctx, s.DB, conversationID, userID)
		if err != nil {
			// A conversation under a different owner is indistinguishable
			// from a missing one at this layer; the caller supplied an id,
			// so surface it as an ownership failure.
			if err == gorm.ErrRecordNotFound {
				return nil, nil, ErrNotOwner
			}
			return nil, nil, err
		}
	}

	if _, err := repo.CreateMessage(s.DB.WithContext(ctx), convo.ID, domain.RoleUser, message); err != nil {
		return nil, nil, err
	}

	turns, err := repo.ListMessages(s.DB.WithContext(ctx), convo.ID, 0)
	if err != nil {
		return nil, nil, err
	}

	history := make([]llm.Message, 0, len(turns)+1)
	history = append(history, llm.Message{Role: "system", Content: systemPrompt(convo.Type)})
	for _, t := range turns {
		history = append(history, llm.Message{Role: t.Role, Content: t.Content})
	}
	return convo, history, nil
}

// finishTurn applies the best-effort side effects of a successful turn:
// auto-title generation and the XP award. Failures are logged, never
// surfaced.
func (s *ChatService) finishTurn(ctx context.Context, userID string, convo *domain.Conversation, message string) {
	if s.shouldAutoTitle(convo.Title) {
		if gen := s.generateTitle(message); gen != "" {
			if err := repo.UpdateConversationTitle(ctx, s.DB, convo.ID, userID, gen); err == nil {
				convo.Title = gen
			}
		}
	}
	if s.XPAward > 0 {
		if err := repo.AddXP(ctx, s.DB, userID, s.XPAward, xpReasonChat, convo.ID); err != nil {
			log.Warn().
				Err(err).
				Str("user_id", userID).
				Str("conversation_id", convo.ID).
				Msg("xp award failed")
		}
	}
}

// shouldAutoTitle reports whether the stored title is still a placeholder.
func (s *ChatService) shouldAutoTitle(title string) bool {
	t := strings.TrimSpace(title)
	return t == "" || t == defaultTitleNew || t == defaultTitleUntitled
}

// generateTitle derives a short conversation title from the first user
// message: leading words, clipped to TitleMaxLen runes, title-cased for the
// configured locale.
func (s *ChatService) generateTitle(message string) string {
	words := strings.Fields(message)
	if len(words) == 0 {
		return ""
	}
	if len(words) > 6 {
		words = words[:6]
	}
	title := strings.Join(words, " ")
	max := s.TitleMaxLen
	if max <= 0 {
		max = 60
	}
	if utf8.RuneCountInString(title) > max {
		title = string([]rune(title)[:max])
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return ""
	}
	return cases.Title(s.TitleLocale).String(title)
}
