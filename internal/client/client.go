// ABOUTME: Typed command surface over the raw session command channel.
// ABOUTME: Each helper owns one gateway method and its params/payload shapes.

package client

import (
	"context"
	"encoding/json"
)

// Commander issues a correlated command and returns the response payload.
// *session.Session satisfies this.
type Commander interface {
	SendCommand(ctx context.Context, method string, params any) (json.RawMessage, error)
}

// Client wraps a Commander with typed per-method helpers.
type Client struct {
	commander Commander
}

func New(commander Commander) *Client {
	return &Client{commander: commander}
}

func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	payload, err := c.commander.SendCommand(ctx, method, params)
	if err != nil {
		return err
	}
	if out == nil || len(payload) == 0 {
		return nil
	}
	return json.Unmarshal(payload, out)
}
