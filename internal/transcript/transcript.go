// ABOUTME: In-memory conversation transcript fed by the live event stream and history replay.
// ABOUTME: Deduplicates the overlap between replayed history and already-seen live events.

package transcript

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/2389/coven-link/internal/client"
	"github.com/2389/coven-link/internal/dedupe"
	"github.com/2389/coven-link/internal/events"
)

// Entry roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
	RoleSystem    = "system"
)

const (
	seenTTL     = 15 * time.Minute
	seenMaxSize = 4096
)

// Entry is one transcript line.
type Entry struct {
	ID   string
	Role string
	Text string
	Time time.Time
}

// Transcript accumulates a conversation. Token fragments build up a
// partial assistant message that a completion event flushes; history
// replay after a reconnect merges in without duplicating entries already
// seen live. Implements the router's conversation sink.
type Transcript struct {
	mu      sync.Mutex
	entries []Entry
	partial strings.Builder
	seen    *dedupe.Cache
	logger  *slog.Logger
}

func New(logger *slog.Logger) *Transcript {
	if logger == nil {
		logger = slog.Default()
	}
	return &Transcript{
		seen:   dedupe.New(seenTTL, seenMaxSize),
		logger: logger.With("component", "transcript"),
	}
}

// Close releases the dedupe cache.
func (t *Transcript) Close() {
	t.seen.Close()
}

// PostEvent consumes one canonical event from the router.
func (t *Transcript) PostEvent(evt *events.Canonical) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch evt.Kind {
	case events.KindText:
		t.partial.WriteString(evt.Text)

	case events.KindToolInvoke:
		t.flushPartialLocked()
		text := evt.ToolInvoke.Name
		if len(evt.ToolInvoke.InputJSON) > 0 {
			text = fmt.Sprintf("%s %s", evt.ToolInvoke.Name, evt.ToolInvoke.InputJSON)
		}
		t.appendLocked("tool:"+evt.ToolInvoke.ID, RoleTool, text)

	case events.KindToolResult:
		text := evt.ToolResult.Output
		if evt.ToolResult.IsError {
			text = "error: " + text
		}
		t.appendLocked("tool-result:"+evt.ToolResult.ID, RoleTool, text)

	case events.KindDiff:
		t.flushPartialLocked()
		title := evt.Diff.Title
		if title == "" {
			title = "(untitled change)"
		}
		t.appendLocked("", RoleAssistant, "edited "+title)

	case events.KindDone:
		t.flushPartialLocked()
		switch evt.Reason {
		case events.ReasonNormal:
		case events.ReasonAborted:
			t.appendLocked("", RoleSystem, "run aborted")
		default:
			t.appendLocked("", RoleSystem, "run failed: "+evt.Reason)
		}
	}
}

// AddUser records a locally-submitted user message.
func (t *Transcript) AddUser(text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.appendLocked("", RoleUser, text)
}

// MergeHistory folds a replayed history into the transcript, skipping
// messages whose key was already recorded. Returns how many were added.
func (t *Transcript) MergeHistory(messages []client.HistoryMessage) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	added := 0
	for _, msg := range messages {
		key := "msg:" + msg.ID
		if msg.ID == "" {
			key = contentKey(msg.Role, msg.Content)
		}
		if t.seen.Seen(key) {
			continue
		}
		at := time.Now()
		if msg.Timestamp > 0 {
			at = time.UnixMilli(msg.Timestamp)
		}
		t.entries = append(t.entries, Entry{ID: key, Role: msg.Role, Text: msg.Content, Time: at})
		added++
	}
	if added > 0 {
		t.logger.Info("merged history", "added", added, "skipped", len(messages)-added)
	}
	return added
}

// Entries returns a copy of the transcript so far.
func (t *Transcript) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Entry(nil), t.entries...)
}

// flushPartialLocked turns accumulated token fragments into one
// assistant entry. Must hold mu.
func (t *Transcript) flushPartialLocked() {
	if t.partial.Len() == 0 {
		return
	}
	text := t.partial.String()
	t.partial.Reset()
	t.appendLocked("", RoleAssistant, text)
}

// appendLocked records an entry. An empty id gets a content-derived key
// so a later history replay of the same message dedups against it.
// Must hold mu.
func (t *Transcript) appendLocked(id, role, text string) {
	if id == "" {
		id = contentKey(role, text)
	}
	if t.seen.Seen(id) {
		return
	}
	t.entries = append(t.entries, Entry{ID: id, Role: role, Text: text, Time: time.Now()})
}

func contentKey(role, text string) string {
	sum := sha256.Sum256([]byte(role + "\x00" + text))
	return "c:" + hex.EncodeToString(sum[:8])
}
