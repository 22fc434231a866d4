// ABOUTME: Tests for transcript accumulation, history merge dedup, and HTML export.

package transcript

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-link/internal/client"
	"github.com/2389/coven-link/internal/events"
)

func newTestTranscript(t *testing.T) *Transcript {
	t.Helper()
	tr := New(nil)
	t.Cleanup(tr.Close)
	return tr
}

func textEvent(text string) *events.Canonical {
	return &events.Canonical{Kind: events.KindText, Text: text}
}

func doneEvent(reason string) *events.Canonical {
	return &events.Canonical{Kind: events.KindDone, Reason: reason}
}

func TestTokensFlushOnCompletion(t *testing.T) {
	tr := newTestTranscript(t)

	tr.PostEvent(textEvent("Hel"))
	tr.PostEvent(textEvent("lo "))
	tr.PostEvent(textEvent("world"))
	assert.Empty(t, tr.Entries(), "partial text is not an entry yet")

	tr.PostEvent(doneEvent(events.ReasonNormal))

	entries := tr.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, RoleAssistant, entries[0].Role)
	assert.Equal(t, "Hello world", entries[0].Text)
}

func TestAbortedRunRecordsSystemEntry(t *testing.T) {
	tr := newTestTranscript(t)

	tr.PostEvent(textEvent("partial"))
	tr.PostEvent(doneEvent(events.ReasonAborted))

	entries := tr.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "partial", entries[0].Text)
	assert.Equal(t, RoleSystem, entries[1].Role)
	assert.Equal(t, "run aborted", entries[1].Text)
}

func TestErrorReasonCarriedThrough(t *testing.T) {
	tr := newTestTranscript(t)

	tr.PostEvent(doneEvent("model overloaded"))

	entries := tr.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, RoleSystem, entries[0].Role)
	assert.Equal(t, "run failed: model overloaded", entries[0].Text)
}

func TestToolEventsInterleaveWithText(t *testing.T) {
	tr := newTestTranscript(t)

	tr.PostEvent(textEvent("Let me check."))
	tr.PostEvent(&events.Canonical{
		Kind:       events.KindToolInvoke,
		ToolInvoke: &events.ToolInvokeEvent{ID: "t1", Name: "read_file", InputJSON: `{"path":"a.go"}`},
	})
	tr.PostEvent(&events.Canonical{
		Kind:       events.KindToolResult,
		ToolResult: &events.ToolResultEvent{ID: "t1", Output: "package main"},
	})
	tr.PostEvent(textEvent("Found it."))
	tr.PostEvent(doneEvent(events.ReasonNormal))

	entries := tr.Entries()
	require.Len(t, entries, 4)
	assert.Equal(t, "Let me check.", entries[0].Text)
	assert.Equal(t, RoleTool, entries[1].Role)
	assert.Contains(t, entries[1].Text, "read_file")
	assert.Equal(t, "package main", entries[2].Text)
	assert.Equal(t, "Found it.", entries[3].Text)
}

func TestToolErrorResultPrefixed(t *testing.T) {
	tr := newTestTranscript(t)

	tr.PostEvent(&events.Canonical{
		Kind:       events.KindToolResult,
		ToolResult: &events.ToolResultEvent{ID: "t1", Output: "no such file", IsError: true},
	})

	entries := tr.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "error: no such file", entries[0].Text)
}

func TestDiffRecordedAsEditLine(t *testing.T) {
	tr := newTestTranscript(t)

	tr.PostEvent(&events.Canonical{
		Kind: events.KindDiff,
		Diff: &events.DiffEvent{Modified: "new", Title: "main.go"},
	})

	entries := tr.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "edited main.go", entries[0].Text)
}

func TestMergeHistorySkipsSeenIDs(t *testing.T) {
	tr := newTestTranscript(t)

	added := tr.MergeHistory([]client.HistoryMessage{
		{ID: "m1", Role: RoleUser, Content: "hi", Timestamp: 100},
		{ID: "m2", Role: RoleAssistant, Content: "hello", Timestamp: 101},
	})
	assert.Equal(t, 2, added)

	// Replay after reconnect: same two plus one new.
	added = tr.MergeHistory([]client.HistoryMessage{
		{ID: "m1", Role: RoleUser, Content: "hi", Timestamp: 100},
		{ID: "m2", Role: RoleAssistant, Content: "hello", Timestamp: 101},
		{ID: "m3", Role: RoleUser, Content: "more", Timestamp: 102},
	})
	assert.Equal(t, 1, added)

	entries := tr.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "more", entries[2].Text)
}

func TestMergeHistoryDedupsAgainstLiveEntries(t *testing.T) {
	tr := newTestTranscript(t)

	tr.PostEvent(textEvent("hello"))
	tr.PostEvent(doneEvent(events.ReasonNormal))

	// History replays the same assistant message without a stable id.
	added := tr.MergeHistory([]client.HistoryMessage{
		{Role: RoleAssistant, Content: "hello"},
	})
	assert.Equal(t, 0, added)
	assert.Len(t, tr.Entries(), 1)
}

func TestAddUser(t *testing.T) {
	tr := newTestTranscript(t)
	tr.AddUser("what is this?")

	entries := tr.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, RoleUser, entries[0].Role)
}

func TestExportHTML(t *testing.T) {
	tr := newTestTranscript(t)
	tr.AddUser("show me <code>")
	tr.PostEvent(textEvent("Here is **bold** text"))
	tr.PostEvent(doneEvent(events.ReasonNormal))

	var out strings.Builder
	require.NoError(t, tr.ExportHTML(&out))
	doc := out.String()

	assert.Contains(t, doc, "<h2>user</h2>")
	assert.Contains(t, doc, "&lt;code&gt;", "user text is escaped, not rendered")
	assert.Contains(t, doc, "<strong>bold</strong>", "assistant text is rendered as markdown")
	assert.Contains(t, doc, "</html>")
}
