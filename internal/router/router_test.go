// ABOUTME: Tests for sequence gating and per-kind sink dispatch.
// ABOUTME: Covers watermark semantics, reset, diff fan-out with nil original, and canvas routing.

package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/coven-link/internal/canvas"
	"github.com/2389/coven-link/internal/events"
)

type recordingConversation struct {
	posted []*events.Canonical
}

func (r *recordingConversation) PostEvent(evt *events.Canonical) {
	r.posted = append(r.posted, evt)
}

type recordingRender struct {
	batches [][]canvas.Op
}

func (r *recordingRender) PostStructuredOperations(ops []canvas.Op) {
	r.batches = append(r.batches, ops)
}

type recordingEditor struct {
	originals []string
	modifieds []string
	titles    []string
}

func (r *recordingEditor) ShowDiff(original, modified, title string) {
	r.originals = append(r.originals, original)
	r.modifieds = append(r.modifieds, modified)
	r.titles = append(r.titles, title)
}

func seqPtr(n uint64) *uint64 { return &n }

func textEvent(text string, seq *uint64) *events.Canonical {
	return &events.Canonical{Kind: events.KindText, Seq: seq, Text: text}
}

func TestDispatch_SequenceGating(t *testing.T) {
	conv := &recordingConversation{}
	r := New(conv, nil, nil, nil)

	assert.True(t, r.Dispatch(textEvent("a", seqPtr(1))))
	assert.True(t, r.Dispatch(textEvent("b", seqPtr(2))))
	// Duplicate and out-of-order are dropped.
	assert.False(t, r.Dispatch(textEvent("b again", seqPtr(2))))
	assert.False(t, r.Dispatch(textEvent("late", seqPtr(1))))
	// Gaps are fine; only ordering matters.
	assert.True(t, r.Dispatch(textEvent("c", seqPtr(10))))

	require.Len(t, conv.posted, 3)
	assert.Equal(t, "c", conv.posted[2].Text)
}

func TestDispatch_NoSeqAlwaysPasses(t *testing.T) {
	conv := &recordingConversation{}
	r := New(conv, nil, nil, nil)

	assert.True(t, r.Dispatch(textEvent("x", seqPtr(5))))
	assert.True(t, r.Dispatch(textEvent("unnumbered", nil)))
	assert.True(t, r.Dispatch(textEvent("unnumbered again", nil)))

	assert.Len(t, conv.posted, 3)
}

func TestResetSequence_AllowsLowerSeqAgain(t *testing.T) {
	conv := &recordingConversation{}
	r := New(conv, nil, nil, nil)

	require.True(t, r.Dispatch(textEvent("run1", seqPtr(9))))
	require.False(t, r.Dispatch(textEvent("stale", seqPtr(3))))

	r.ResetSequence()

	assert.True(t, r.Dispatch(textEvent("run2", seqPtr(3))))
	assert.Len(t, conv.posted, 2)
}

func TestDispatch_ConversationKinds(t *testing.T) {
	conv := &recordingConversation{}
	render := &recordingRender{}
	editor := &recordingEditor{}
	r := New(conv, render, editor, nil)

	r.Dispatch(&events.Canonical{Kind: events.KindText, Text: "hi"})
	r.Dispatch(&events.Canonical{Kind: events.KindToolInvoke, ToolInvoke: &events.ToolInvokeEvent{ID: "t1", Name: "bash"}})
	r.Dispatch(&events.Canonical{Kind: events.KindToolResult, ToolResult: &events.ToolResultEvent{ID: "t1", Output: "ok"}})
	r.Dispatch(&events.Canonical{Kind: events.KindDone, Reason: events.ReasonNormal})

	assert.Len(t, conv.posted, 4)
	assert.Empty(t, render.batches)
	assert.Empty(t, editor.originals)
}

func TestDispatch_DiffReachesBothSinks_NilOriginalCoerced(t *testing.T) {
	conv := &recordingConversation{}
	editor := &recordingEditor{}
	r := New(conv, nil, editor, nil)

	evt := &events.Canonical{
		Kind: events.KindDiff,
		Diff: &events.DiffEvent{Original: nil, Modified: "new contents", Title: "create file"},
	}
	require.True(t, r.Dispatch(evt))

	// Conversation sink sees the event unmodified (original still nil).
	require.Len(t, conv.posted, 1)
	assert.Nil(t, conv.posted[0].Diff.Original)

	// Editor sink sees "" for the file-creation case.
	require.Len(t, editor.originals, 1)
	assert.Equal(t, "", editor.originals[0])
	assert.Equal(t, "new contents", editor.modifieds[0])
	assert.Equal(t, "create file", editor.titles[0])
}

func TestDispatch_CanvasGoesToRenderSinkOnly(t *testing.T) {
	conv := &recordingConversation{}
	render := &recordingRender{}
	r := New(conv, render, nil, nil)

	evt := &events.Canonical{
		Kind:   events.KindCanvas,
		Canvas: []map[string]any{{"type": "text", "text": "hello"}},
	}
	require.True(t, r.Dispatch(evt))

	assert.Empty(t, conv.posted)
	require.Len(t, render.batches, 1)

	ops := render.batches[0]
	require.Len(t, ops, 2)
	assert.Equal(t, canvas.OpSurfaceUpdate, ops[0].Op)
	assert.Equal(t, canvas.OpBeginRendering, ops[1].Op)
}

func TestDispatch_IndependentWatermarksPerRouter(t *testing.T) {
	convA := &recordingConversation{}
	convB := &recordingConversation{}
	a := New(convA, nil, nil, nil)
	b := New(convB, nil, nil, nil)

	a.Dispatch(textEvent("x", seqPtr(5)))

	// Router b never saw seq 5, so a lower seq still passes there.
	assert.True(t, b.Dispatch(textEvent("y", seqPtr(2))))
	assert.False(t, a.Dispatch(textEvent("y", seqPtr(2))))
}

func TestDispatch_NilSinksAreSafe(t *testing.T) {
	r := New(nil, nil, nil, nil)

	assert.NotPanics(t, func() {
		r.Dispatch(textEvent("hi", nil))
		r.Dispatch(&events.Canonical{Kind: events.KindDiff, Diff: &events.DiffEvent{Modified: "m"}})
		r.Dispatch(&events.Canonical{Kind: events.KindCanvas, Canvas: []map[string]any{{"type": "text"}}})
	})
}
