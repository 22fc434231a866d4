// ABOUTME: Pending command table correlating request ids with responses.
// ABOUTME: Every entry resolves exactly once: response, timeout, or teardown.

package session

import (
	"encoding/json"
	"sync"
	"time"
)

type commandResult struct {
	payload json.RawMessage
	err     error
}

type pendingCommand struct {
	id     string
	method string
	result chan commandResult
	timer  *time.Timer
}

// resolve delivers the result. Safe to call at most once per take.
func (p *pendingCommand) resolve(payload json.RawMessage, err error) {
	if p.timer != nil {
		p.timer.Stop()
	}
	p.result <- commandResult{payload: payload, err: err}
}

type pendingTable struct {
	mu      sync.Mutex
	entries map[string]*pendingCommand
}

func newPendingTable() *pendingTable {
	return &pendingTable{entries: make(map[string]*pendingCommand)}
}

// add registers an entry with its expiry timer armed. The timer is
// installed under the table mutex, before the entry is visible, so the
// expire callback and resolvers never observe a half-built entry.
func (t *pendingTable) add(id, method string, timeout time.Duration, expire func()) *pendingCommand {
	entry := &pendingCommand{
		id:     id,
		method: method,
		result: make(chan commandResult, 1),
	}
	t.mu.Lock()
	entry.timer = time.AfterFunc(timeout, expire)
	t.entries[id] = entry
	t.mu.Unlock()
	return entry
}

// take removes and returns the entry for id, or nil if it was already
// resolved. The caller owns delivery after a successful take.
func (t *pendingTable) take(id string) *pendingCommand {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.entries[id]
	if !ok {
		return nil
	}
	delete(t.entries, id)
	return entry
}

// drain removes and returns every outstanding entry.
func (t *pendingTable) drain() []*pendingCommand {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*pendingCommand, 0, len(t.entries))
	for id, entry := range t.entries {
		out = append(out, entry)
		delete(t.entries, id)
	}
	return out
}
