// ABOUTME: Chat commands: send a turn, abort a run, replay history.

package client

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type chatSendParams struct {
	SessionKey     string `json:"sessionKey"`
	Message        string `json:"message"`
	IdempotencyKey string `json:"idempotencyKey"`
}

// ChatSendResult identifies the run started by a chat turn.
type ChatSendResult struct {
	RunID string `json:"runId"`
}

// SendChat submits one chat turn. An idempotency key is generated per
// call so the gateway can drop duplicate deliveries after a reconnect.
func (c *Client) SendChat(ctx context.Context, sessionKey, message string) (*ChatSendResult, error) {
	params := chatSendParams{
		SessionKey:     sessionKey,
		Message:        message,
		IdempotencyKey: uuid.New().String(),
	}
	var result ChatSendResult
	if err := c.call(ctx, "chat.send", params, &result); err != nil {
		return nil, fmt.Errorf("chat.send: %w", err)
	}
	return &result, nil
}

type chatAbortParams struct {
	SessionKey string `json:"sessionKey"`
	RunID      string `json:"runId"`
}

// AbortChat asks the gateway to stop an in-flight run.
func (c *Client) AbortChat(ctx context.Context, sessionKey, runID string) error {
	if err := c.call(ctx, "chat.abort", chatAbortParams{SessionKey: sessionKey, RunID: runID}, nil); err != nil {
		return fmt.Errorf("chat.abort: %w", err)
	}
	return nil
}

type chatHistoryParams struct {
	SessionKey string `json:"sessionKey"`
}

// HistoryMessage is one stored conversation entry.
type HistoryMessage struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"ts"`
}

// History replays the stored transcript for a session, oldest first.
func (c *Client) History(ctx context.Context, sessionKey string) ([]HistoryMessage, error) {
	var result struct {
		Messages []HistoryMessage `json:"messages"`
	}
	if err := c.call(ctx, "chat.history", chatHistoryParams{SessionKey: sessionKey}, &result); err != nil {
		return nil, fmt.Errorf("chat.history: %w", err)
	}
	return result.Messages, nil
}
