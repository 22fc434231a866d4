// ABOUTME: Sequence-gated dispatch of canonical events to the external sinks.
// ABOUTME: Keeps a per-router watermark; duplicates and reordered events are dropped, never delivered twice.

package router

import (
	"log/slog"
	"sync"

	"github.com/2389/coven-link/internal/canvas"
	"github.com/2389/coven-link/internal/events"
)

// ConversationSink receives conversation-facing canonical events.
type ConversationSink interface {
	PostEvent(evt *events.Canonical)
}

// RenderSink receives structured operations for surface rendering.
type RenderSink interface {
	PostStructuredOperations(ops []canvas.Op)
}

// EditorSink receives proposed content diffs for editor integration.
type EditorSink interface {
	ShowDiff(original, modified, title string)
}

// Router gates canonical events on their sequence numbers and fans them
// out by kind. The watermark is private per-router state: several routers
// observing one session each gate independently.
//
// All event kinds share one sequence space per session. If the gateway
// ever numbers kinds independently, this gate would drop legitimate
// events; ResetSequence exists for the legitimate restart case (a new
// logical run).
type Router struct {
	mu        sync.Mutex
	watermark *uint64

	conversation ConversationSink
	render       RenderSink
	editor       EditorSink
	converter    *canvas.Converter
	logger       *slog.Logger
}

// New creates a router dispatching to the given sinks. Any sink may be nil,
// in which case events for it are silently discarded. Pass nil logger for
// default.
func New(conversation ConversationSink, render RenderSink, editor EditorSink, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "router")
	return &Router{
		conversation: conversation,
		render:       render,
		editor:       editor,
		converter:    canvas.NewConverter(logger),
		logger:       logger,
	}
}

// Dispatch gates one canonical event and delivers it to its sinks.
// Returns false when the event was dropped as a duplicate or reordering.
func (r *Router) Dispatch(evt *events.Canonical) bool {
	if !r.admit(evt.Seq) {
		r.logger.Debug("dropping stale event", "kind", evt.Kind.String(), "seq", *evt.Seq)
		return false
	}

	switch evt.Kind {
	case events.KindText, events.KindToolInvoke, events.KindToolResult, events.KindDone:
		r.postConversation(evt)

	case events.KindDiff:
		r.postConversation(evt)
		if r.editor != nil && evt.Diff != nil {
			original := ""
			if evt.Diff.Original != nil {
				original = *evt.Diff.Original
			}
			r.editor.ShowDiff(original, evt.Diff.Modified, evt.Diff.Title)
		}

	case events.KindCanvas:
		if r.render != nil {
			ops := r.converter.Convert(evt.Canvas)
			if len(ops) > 0 {
				r.render.PostStructuredOperations(ops)
			}
		}
	}

	return true
}

// ResetSequence clears the watermark so a new logical run may restart its
// numbering from the beginning.
func (r *Router) ResetSequence() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.watermark = nil
}

// admit applies the sequence gate: events without a sequence number always
// pass; a sequence at or below the watermark is a duplicate or reordering.
func (r *Router) admit(seq *uint64) bool {
	if seq == nil {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.watermark != nil && *seq <= *r.watermark {
		return false
	}
	s := *seq
	r.watermark = &s
	return true
}

func (r *Router) postConversation(evt *events.Canonical) {
	if r.conversation != nil {
		r.conversation.PostEvent(evt)
	}
}
