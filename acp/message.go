package acp

import (
	"bytes"
	"encoding/json"
)

// Direction identifies which pipe a tapped line was read from.
type Direction int

const (
	DirectionEditorToAgent Direction = iota
	DirectionAgentToEditor
)

func (d Direction) String() string {
	switch d {
	case DirectionEditorToAgent:
		return "editor_to_agent"
	case DirectionAgentToEditor:
		return "agent_to_editor"
	default:
		return "unknown"
	}
}

// MessageKind discriminates between the three JSON-RPC message shapes.
type MessageKind int

const (
	KindRequest MessageKind = iota
	KindResponse
	KindNotification
)

func (k MessageKind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindResponse:
		return "response"
	case KindNotification:
		return "notification"
	default:
		return "unknown"
	}
}

// Message is a single classified JSON-RPC message. ID, Params, Result
// and Error are kept as raw JSON; ids in particular are opaque
// correlation tokens that may be numbers or strings depending on the
// peer, so they are only ever compared through CanonicalID.
type Message struct {
	ID     json.RawMessage
	Params json.RawMessage
	Result json.RawMessage
	Error  json.RawMessage
	Method string
	Kind   MessageKind
}

// Parse classifies one wire line. A line with both method and id is a
// request; method without id is a notification; id without method is a
// response. Anything else, including unparseable JSON, reports not-ok —
// the line is still forwarded by the proxy, it just carries no
// telemetry.
func Parse(line []byte) (Message, bool) {
	var raw struct {
		ID     json.RawMessage `json:"id"`
		Method string          `json:"method"`
		Params json.RawMessage `json:"params"`
		Result json.RawMessage `json:"result"`
		Error  json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(line, &raw); err != nil {
		return Message{}, false
	}

	hasID := len(raw.ID) > 0 && !bytes.Equal(raw.ID, []byte("null"))

	switch {
	case raw.Method != "" && hasID:
		return Message{
			Kind:   KindRequest,
			ID:     raw.ID,
			Method: raw.Method,
			Params: raw.Params,
		}, true
	case raw.Method != "":
		return Message{
			Kind:   KindNotification,
			Method: raw.Method,
			Params: raw.Params,
		}, true
	case hasID:
		return Message{
			Kind:   KindResponse,
			ID:     raw.ID,
			Result: raw.Result,
			Error:  raw.Error,
		}, true
	default:
		return Message{}, false
	}
}

// CanonicalID renders the request id in a form stable across peers:
// the compacted raw JSON text, so the numeric id 1 and the string id
// "1" stay distinct while whitespace differences collapse.
func (m Message) CanonicalID() string {
	return CanonicalID(m.ID)
}

// CanonicalID is the canonical string form of a raw JSON-RPC id.
func CanonicalID(id json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, id); err != nil {
		return string(id)
	}
	return buf.String()
}
