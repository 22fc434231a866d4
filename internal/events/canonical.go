// ABOUTME: Canonical push-event model shared by the translator, router, and sinks.
// ABOUTME: One tagged struct per accepted push frame, with kind-specific payload fields.

package events

import "encoding/json"

// Kind classifies a canonical event.
type Kind int

const (
	// KindText is an incremental assistant text fragment.
	KindText Kind = iota
	// KindToolInvoke marks the start of a tool invocation.
	KindToolInvoke
	// KindToolResult carries the outcome of a tool invocation.
	KindToolResult
	// KindDiff is a content diff proposed by the agent (file edit or creation).
	KindDiff
	// KindDone marks the end of a conversational turn.
	KindDone
	// KindCanvas carries a freeform UI description batch for the renderer.
	KindCanvas
)

// String returns the kind name used in logs.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindToolInvoke:
		return "tool_invoke"
	case KindToolResult:
		return "tool_result"
	case KindDiff:
		return "diff"
	case KindDone:
		return "done"
	case KindCanvas:
		return "canvas"
	default:
		return "unknown"
	}
}

// Completion reasons for KindDone events.
const (
	ReasonNormal  = "normal"
	ReasonAborted = "aborted"
)

// Canonical is the normalized form of one accepted push frame. Seq is
// preserved from the wire frame when present and drives the router's
// duplicate gating.
type Canonical struct {
	Kind Kind
	Seq  *uint64

	Text       string           // KindText
	ToolInvoke *ToolInvokeEvent // KindToolInvoke
	ToolResult *ToolResultEvent // KindToolResult
	Diff       *DiffEvent       // KindDiff
	Reason     string           // KindDone: ReasonNormal, ReasonAborted, or a carried error message
	Canvas     []map[string]any // KindCanvas: freeform payload objects, one per component/op
}

// ToolInvokeEvent describes a tool invocation start.
type ToolInvokeEvent struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	InputJSON string `json:"inputJson,omitempty"`
}

// ToolResultEvent describes a tool invocation outcome.
type ToolResultEvent struct {
	ID      string `json:"id"`
	Output  string `json:"output"`
	IsError bool   `json:"isError,omitempty"`
}

// DiffEvent describes a proposed content change. Original is nil for file
// creation; the router coerces that to "" before it reaches the editor sink.
type DiffEvent struct {
	Original *string `json:"original"`
	Modified string  `json:"modified"`
	Title    string  `json:"title,omitempty"`
}

// rawCanvasPayload is the wire shape of a ui.render event.
type rawCanvasPayload struct {
	Components []map[string]any `json:"components"`
}

// rawTurnPayload is the wire shape of a chat.turn event.
type rawTurnPayload struct {
	State   string `json:"state"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// rawTokenPayload is the wire shape of a chat.token event.
type rawTokenPayload struct {
	Text string `json:"text"`
}

func unmarshalInto[T any](data json.RawMessage) (*T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return &v, nil
}
