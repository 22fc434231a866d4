// ABOUTME: Session management commands: list and create chat sessions.

package client

import (
	"context"
	"fmt"
)

// SessionInfo describes one chat session hosted by the gateway.
type SessionInfo struct {
	Key   string `json:"key"`
	Label string `json:"label,omitempty"`
}

// ListSessions returns every chat session visible to this connection.
func (c *Client) ListSessions(ctx context.Context) ([]SessionInfo, error) {
	var result struct {
		Sessions []SessionInfo `json:"sessions"`
	}
	if err := c.call(ctx, "sessions.list", struct{}{}, &result); err != nil {
		return nil, fmt.Errorf("sessions.list: %w", err)
	}
	return result.Sessions, nil
}

type sessionCreateParams struct {
	Label string `json:"label,omitempty"`
}

// CreateSession creates a chat session, optionally labeled.
func (c *Client) CreateSession(ctx context.Context, label string) (*SessionInfo, error) {
	var result SessionInfo
	if err := c.call(ctx, "sessions.create", sessionCreateParams{Label: label}, &result); err != nil {
		return nil, fmt.Errorf("sessions.create: %w", err)
	}
	return &result, nil
}
