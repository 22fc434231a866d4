// ABOUTME: Tests for the typed command helpers against a scripted commander.

package client

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCommander struct {
	method  string
	params  any
	payload string
	err     error
}

func (f *fakeCommander) SendCommand(ctx context.Context, method string, params any) (json.RawMessage, error) {
	f.method = method
	f.params = params
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(f.payload), nil
}

func (f *fakeCommander) sentParams(t *testing.T) map[string]any {
	t.Helper()
	data, err := json.Marshal(f.params)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestSendChat(t *testing.T) {
	fake := &fakeCommander{payload: `{"runId":"run-7"}`}
	c := New(fake)

	result, err := c.SendChat(context.Background(), "sess-1", "hello")
	require.NoError(t, err)
	assert.Equal(t, "run-7", result.RunID)
	assert.Equal(t, "chat.send", fake.method)

	params := fake.sentParams(t)
	assert.Equal(t, "sess-1", params["sessionKey"])
	assert.Equal(t, "hello", params["message"])
	assert.NotEmpty(t, params["idempotencyKey"])
}

func TestSendChatFreshIdempotencyKeys(t *testing.T) {
	fake := &fakeCommander{payload: `{}`}
	c := New(fake)

	_, err := c.SendChat(context.Background(), "s", "a")
	require.NoError(t, err)
	first := fake.sentParams(t)["idempotencyKey"]

	_, err = c.SendChat(context.Background(), "s", "a")
	require.NoError(t, err)
	second := fake.sentParams(t)["idempotencyKey"]

	assert.NotEqual(t, first, second)
}

func TestAbortChat(t *testing.T) {
	fake := &fakeCommander{payload: `{}`}
	c := New(fake)

	require.NoError(t, c.AbortChat(context.Background(), "sess-1", "run-7"))
	assert.Equal(t, "chat.abort", fake.method)
	params := fake.sentParams(t)
	assert.Equal(t, "sess-1", params["sessionKey"])
	assert.Equal(t, "run-7", params["runId"])
}

func TestHistory(t *testing.T) {
	fake := &fakeCommander{payload: `{"messages":[
		{"id":"m1","role":"user","content":"hi","ts":100},
		{"id":"m2","role":"assistant","content":"hello","ts":101}
	]}`}
	c := New(fake)

	messages, err := c.History(context.Background(), "sess-1")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "m1", messages[0].ID)
	assert.Equal(t, "assistant", messages[1].Role)
	assert.Equal(t, int64(101), messages[1].Timestamp)
}

func TestListSessions(t *testing.T) {
	fake := &fakeCommander{payload: `{"sessions":[{"key":"a","label":"main"},{"key":"b"}]}`}
	c := New(fake)

	sessions, err := c.ListSessions(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "main", sessions[0].Label)
	assert.Equal(t, "b", sessions[1].Key)
}

func TestCreateSession(t *testing.T) {
	fake := &fakeCommander{payload: `{"key":"c","label":"scratch"}`}
	c := New(fake)

	info, err := c.CreateSession(context.Background(), "scratch")
	require.NoError(t, err)
	assert.Equal(t, "c", info.Key)
	assert.Equal(t, "scratch", fake.sentParams(t)["label"])
}

func TestCommandErrorPropagates(t *testing.T) {
	sentinel := errors.New("not connected")
	fake := &fakeCommander{err: sentinel}
	c := New(fake)

	_, err := c.SendChat(context.Background(), "s", "m")
	assert.ErrorIs(t, err, sentinel)

	err = c.AbortChat(context.Background(), "s", "r")
	assert.ErrorIs(t, err, sentinel)
}
