// ABOUTME: Normalizes the two parallel push-event shapes into canonical events.
// ABOUTME: The per-token stream is authoritative for partial text; batched turn deltas are discarded.

package events

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/2389/coven-link/internal/wire"
)

// Wire event names the translator understands.
const (
	EventToken      = "chat.token"
	EventTurn       = "chat.turn"
	EventToolInvoke = "tool.invoke"
	EventToolResult = "tool.result"
	EventDiff       = "code.diff"
	EventDone       = "chat.done"
	EventCanvas     = "ui.render"
)

// Turn states carried by chat.turn frames.
const (
	turnStateDelta   = "delta"
	turnStateFinal   = "final"
	turnStateError   = "error"
	turnStateAborted = "aborted"
)

// Translator converts wire events into canonical events. It never fails:
// unrecognized or malformed frames are dropped and logged.
type Translator struct {
	logger *slog.Logger
}

// NewTranslator creates a translator. Pass nil logger for default.
func NewTranslator(logger *slog.Logger) *Translator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Translator{logger: logger.With("component", "translator")}
}

// Translate normalizes one wire event. The second return is false when the
// frame is filtered or unrecognized; sequence numbers are preserved on the
// produced canonical event.
func (t *Translator) Translate(evt *wire.Event) (*Canonical, bool) {
	switch evt.Event {
	case EventToken:
		payload, err := unmarshalInto[rawTokenPayload](evt.Payload)
		if err != nil {
			t.dropMalformed(evt, err)
			return nil, false
		}
		if payload.Text == "" {
			return nil, false
		}
		return &Canonical{Kind: KindText, Seq: evt.Seq, Text: payload.Text}, true

	case EventTurn:
		return t.translateTurn(evt)

	case EventToolInvoke:
		payload, err := unmarshalInto[ToolInvokeEvent](evt.Payload)
		if err != nil {
			t.dropMalformed(evt, err)
			return nil, false
		}
		return &Canonical{Kind: KindToolInvoke, Seq: evt.Seq, ToolInvoke: payload}, true

	case EventToolResult:
		payload, err := unmarshalInto[ToolResultEvent](evt.Payload)
		if err != nil {
			t.dropMalformed(evt, err)
			return nil, false
		}
		return &Canonical{Kind: KindToolResult, Seq: evt.Seq, ToolResult: payload}, true

	case EventDiff:
		payload, err := unmarshalInto[DiffEvent](evt.Payload)
		if err != nil {
			t.dropMalformed(evt, err)
			return nil, false
		}
		return &Canonical{Kind: KindDiff, Seq: evt.Seq, Diff: payload}, true

	case EventDone:
		reason := ReasonNormal
		if len(evt.Payload) > 0 {
			var p struct {
				Reason string `json:"reason,omitempty"`
			}
			if err := json.Unmarshal(evt.Payload, &p); err == nil && p.Reason != "" {
				reason = p.Reason
			}
		}
		return &Canonical{Kind: KindDone, Seq: evt.Seq, Reason: reason}, true

	case EventCanvas:
		components, ok := t.canvasComponents(evt)
		if !ok {
			return nil, false
		}
		return &Canonical{Kind: KindCanvas, Seq: evt.Seq, Canvas: components}, true
	}

	if isLifecycle(evt.Event) {
		return nil, false
	}

	t.logger.Debug("dropping unrecognized event", "event", evt.Event)
	return nil, false
}

// translateTurn maps a batched turn-state frame onto a completion event.
// Deltas are discarded unconditionally: the per-token stream is the single
// authority for partial text, so a deployment emitting only the batched
// stream would deliver no text fragments at all.
func (t *Translator) translateTurn(evt *wire.Event) (*Canonical, bool) {
	payload, err := unmarshalInto[rawTurnPayload](evt.Payload)
	if err != nil {
		t.dropMalformed(evt, err)
		return nil, false
	}

	switch payload.State {
	case turnStateFinal:
		return &Canonical{Kind: KindDone, Seq: evt.Seq, Reason: ReasonNormal}, true
	case turnStateError:
		reason := payload.Error
		if reason == "" {
			reason = payload.Message
		}
		return &Canonical{Kind: KindDone, Seq: evt.Seq, Reason: reason}, true
	case turnStateAborted:
		return &Canonical{Kind: KindDone, Seq: evt.Seq, Reason: ReasonAborted}, true
	case turnStateDelta:
		return nil, false
	default:
		t.logger.Debug("dropping turn frame with unknown state", "state", payload.State)
		return nil, false
	}
}

// canvasComponents accepts either {"components":[...]} or a bare array.
func (t *Translator) canvasComponents(evt *wire.Event) ([]map[string]any, bool) {
	var wrapped rawCanvasPayload
	if err := json.Unmarshal(evt.Payload, &wrapped); err == nil && wrapped.Components != nil {
		return wrapped.Components, true
	}

	var bare []map[string]any
	if err := json.Unmarshal(evt.Payload, &bare); err == nil {
		return bare, true
	}

	t.logger.Debug("dropping canvas event with unrecognized payload shape", "event", evt.Event)
	return nil, false
}

func (t *Translator) dropMalformed(evt *wire.Event, err error) {
	t.logger.Debug("dropping malformed event payload", "event", evt.Event, "error", err)
}

// isLifecycle reports whether the event is liveness/telemetry chatter that
// carries nothing for the sinks.
func isLifecycle(name string) bool {
	switch name {
	case "presence", "sys.health", "sys.tick":
		return true
	}
	return strings.HasPrefix(name, "connect.")
}
