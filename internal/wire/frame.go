// ABOUTME: JSON frame model for the gateway protocol: req, res, and event frames.
// ABOUTME: Provides decoding of inbound frames into a tagged union and encoding of outbound ones.

package wire

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Frame type tags as they appear on the wire.
const (
	TypeRequest  = "req"
	TypeResponse = "res"
	TypeEvent    = "event"
)

// ErrUnknownFrameType indicates a frame whose "type" field is not req, res, or event.
var ErrUnknownFrameType = errors.New("unknown frame type")

// Request is an outbound command frame awaiting a correlated Response.
type Request struct {
	Type   string          `json:"type"`
	ID     string          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response correlates to a Request by ID. Exactly one of Payload or Error
// is meaningful depending on OK.
type Response struct {
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	OK      bool            `json:"ok"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   *ErrorDetail    `json:"error,omitempty"`
}

// ErrorDetail carries the remote failure description on a rejected response.
type ErrorDetail struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Event is a server push frame. Seq is optional; when present it is a
// monotonic per-session sequence number.
type Event struct {
	Type    string          `json:"type"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Seq     *uint64         `json:"seq,omitempty"`
}

// Frame is the decoded form of one inbound wire frame. Exactly one of the
// pointer fields is non-nil.
type Frame struct {
	Response *Response
	Event    *Event
	Request  *Request
}

// Decode parses a raw frame and returns it as a tagged union.
// Returns ErrUnknownFrameType for unrecognized type tags and a wrapped
// error for malformed JSON; callers treat both as non-fatal parse errors.
func Decode(data []byte) (*Frame, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	switch probe.Type {
	case TypeResponse:
		var res Response
		if err := json.Unmarshal(data, &res); err != nil {
			return nil, fmt.Errorf("decode response frame: %w", err)
		}
		return &Frame{Response: &res}, nil

	case TypeEvent:
		var evt Event
		if err := json.Unmarshal(data, &evt); err != nil {
			return nil, fmt.Errorf("decode event frame: %w", err)
		}
		return &Frame{Event: &evt}, nil

	case TypeRequest:
		var req Request
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, fmt.Errorf("decode request frame: %w", err)
		}
		return &Frame{Request: &req}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFrameType, probe.Type)
	}
}

// EncodeRequest marshals a request frame, filling in the type tag.
func EncodeRequest(id, method string, params any) ([]byte, error) {
	var raw json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("marshal params for %s: %w", method, err)
		}
		raw = data
	}

	return json.Marshal(Request{
		Type:   TypeRequest,
		ID:     id,
		Method: method,
		Params: raw,
	})
}
