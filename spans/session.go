package spans

import (
	"encoding/json"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// sessionState tracks one editor-agent conversation. Created lazily on
// the first session/prompt request (or on an out-of-order tool_call, so
// the tool span is still closed at shutdown) and destroyed only at
// shutdown; ACP has no explicit session-close message.
type sessionState struct {
	promptStart time.Time
	firstChunk  time.Time
	toolSpans   map[string]trace.Span
	promptSpan  trace.Span
	promptCtx   trace.SpanContext
	output      strings.Builder
}

func newSessionState() *sessionState {
	return &sessionState{toolSpans: make(map[string]trace.Span)}
}

// pendingRequest is one in-flight request awaiting its response.
// The span is nil for session/prompt, whose span lives on the session
// so interleaved notifications can reach it.
type pendingRequest struct {
	start     time.Time
	span      trace.Span
	method    string
	sessionID string
}

// chatMessage is the structured form recorded into the
// gen_ai.input.messages / gen_ai.output.messages attributes.
type chatMessage struct {
	Role         string        `json:"role"`
	Parts        []messagePart `json:"parts"`
	FinishReason string        `json:"finish_reason,omitempty"`
}

type messagePart struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

func inputMessages(text string) string {
	return marshalMessages(chatMessage{
		Role:  "user",
		Parts: []messagePart{{Type: "text", Content: text}},
	})
}

func outputMessages(text, finishReason string) string {
	return marshalMessages(chatMessage{
		Role:         "assistant",
		Parts:        []messagePart{{Type: "text", Content: text}},
		FinishReason: finishReason,
	})
}

func marshalMessages(msg chatMessage) string {
	data, err := json.Marshal([]chatMessage{msg})
	if err != nil {
		return ""
	}
	return string(data)
}
