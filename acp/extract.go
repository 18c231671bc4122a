package acp

import (
	"encoding/json"
	"strings"
)

// Implementation identifies a client or agent.
type Implementation struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

// UpdateParams is the typed payload of a session/update notification.
type UpdateParams struct {
	SessionID string        `json:"sessionId"`
	Update    SessionUpdate `json:"update"`
}

// SessionUpdate carries one update inside a session/update
// notification. Fields are populated per update type; absent fields
// stay zero.
type SessionUpdate struct {
	RawInput   json.RawMessage `json:"rawInput,omitempty"`
	RawOutput  json.RawMessage `json:"rawOutput,omitempty"`
	Content    *ContentBlock   `json:"content,omitempty"`
	Type       string          `json:"sessionUpdate"`
	ToolCallID string          `json:"toolCallId,omitempty"`
	Title      string          `json:"title,omitempty"`
	Kind       string          `json:"kind,omitempty"`
	Status     string          `json:"status,omitempty"`
}

// ContentBlock is one block of prompt or streamed content.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// SessionID extracts the sessionId field from request or notification
// params.
func SessionID(params json.RawMessage) (string, bool) {
	var p struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(params, &p); err != nil || p.SessionID == "" {
		return "", false
	}
	return p.SessionID, true
}

// PromptText extracts the user prompt from session/prompt params: all
// text-typed blocks of the prompt array, joined by newlines. Reports
// not-ok when the prompt has no text blocks.
func PromptText(params json.RawMessage) (string, bool) {
	var p struct {
		Prompt []ContentBlock `json:"prompt"`
	}
	if err := json.Unmarshal(params, &p); err != nil {
		return "", false
	}
	var texts []string
	for _, block := range p.Prompt {
		if block.Type == "text" {
			texts = append(texts, block.Text)
		}
	}
	if len(texts) == 0 {
		return "", false
	}
	return strings.Join(texts, "\n"), true
}

// ParseUpdate extracts the typed session/update payload. Reports
// not-ok when the session id or update type is missing — such
// notifications carry nothing the tracing layer can anchor to.
func ParseUpdate(params json.RawMessage) (UpdateParams, bool) {
	var u UpdateParams
	if err := json.Unmarshal(params, &u); err != nil {
		return UpdateParams{}, false
	}
	if u.SessionID == "" || u.Update.Type == "" {
		return UpdateParams{}, false
	}
	return u, true
}

// ClientInfo extracts the editor identity from initialize params.
func ClientInfo(params json.RawMessage) (Implementation, bool) {
	var p struct {
		ClientInfo *Implementation `json:"clientInfo"`
	}
	if err := json.Unmarshal(params, &p); err != nil || p.ClientInfo == nil || p.ClientInfo.Name == "" {
		return Implementation{}, false
	}
	return *p.ClientInfo, true
}

// AgentInfo extracts the agent identity from an initialize result.
func AgentInfo(result json.RawMessage) (Implementation, bool) {
	var r struct {
		AgentInfo *Implementation `json:"agentInfo"`
	}
	if err := json.Unmarshal(result, &r); err != nil || r.AgentInfo == nil || r.AgentInfo.Name == "" {
		return Implementation{}, false
	}
	return *r.AgentInfo, true
}

// ProtocolVersion extracts the negotiated protocol version from an
// initialize result.
func ProtocolVersion(result json.RawMessage) (int64, bool) {
	var r struct {
		ProtocolVersion *int64 `json:"protocolVersion"`
	}
	if err := json.Unmarshal(result, &r); err != nil || r.ProtocolVersion == nil {
		return 0, false
	}
	return *r.ProtocolVersion, true
}

// StopReason extracts the stop reason from a session/prompt result.
func StopReason(result json.RawMessage) (string, bool) {
	var r struct {
		StopReason string `json:"stopReason"`
	}
	if err := json.Unmarshal(result, &r); err != nil || r.StopReason == "" {
		return "", false
	}
	return r.StopReason, true
}

// ErrorCode extracts the numeric code from a JSON-RPC error payload.
func ErrorCode(errPayload json.RawMessage) (int64, bool) {
	var e struct {
		Code *int64 `json:"code"`
	}
	if err := json.Unmarshal(errPayload, &e); err != nil || e.Code == nil {
		return 0, false
	}
	return *e.Code, true
}
