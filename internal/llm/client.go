// Package llm wraps the upstream chat-completion API behind a small client.
//
// The upstream speaks the OpenAI wire format ({model, messages[], stream?});
// by default the client points at OpenRouter, but any compatible endpoint
// works by overriding the base URL. The client performs exactly one request
// per call: no retries, no circuit breaking. Transport and decode failures
// are returned to the caller, which treats them as a server error for the
// whole chat turn.
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/focusplus/focus-backend/internal/config"
)

// Message is one turn handed to the completion endpoint. Role is "system",
// "user", or "assistant".
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client issues completion requests against a configured model.
type Client struct {
	api       *openai.Client
	model     string
	maxTokens int
}

// New constructs a Client for the configured base URL, key, and model.
func New(cfg config.LLMConfig) *Client {
	cc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		cc.BaseURL = cfg.BaseURL
	}
	return &Client{
		api:       openai.NewClientWithConfig(cc),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}
}

// Complete sends the ordered message list and returns the first choice's
// text. An empty choice list counts as a failure.
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		Messages:  toOpenAI(messages),
		MaxTokens: c.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("completion request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("completion response has no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Stream requests an incremental completion and invokes emit for every
// decoded text fragment as it arrives. It returns the full concatenation
// once the upstream signals completion.
//
// Fragments the upstream sends without a usable choice are skipped rather
// than failing the stream; the count of skipped fragments is returned so
// callers can log the data loss. An error from emit aborts the stream.
func (c *Client) Stream(ctx context.Context, messages []Message, emit func(delta string) error) (full string, skipped int, err error) {
	stream, err := c.api.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:     c.model,
		Messages:  toOpenAI(messages),
		MaxTokens: c.maxTokens,
		Stream:    true,
	})
	if err != nil {
		return "", 0, fmt.Errorf("completion stream request: %w", err)
	}
	defer stream.Close()

	var b strings.Builder
	for {
		chunk, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			return b.String(), skipped, nil
		}
		if recvErr != nil {
			return b.String(), skipped, fmt.Errorf("completion stream recv: %w", recvErr)
		}
		if len(chunk.Choices) == 0 {
			skipped++
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		b.WriteString(delta)
		if emit != nil {
			if err := emit(delta); err != nil {
				return b.String(), skipped, err
			}
		}
	}
}

func toOpenAI(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		out[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}
	return out
}
