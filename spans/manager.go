package spans

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/bazelment/yoloswe/acp-trace/acp"
)

// Manager is the span/session correlator. It owns all telemetry state
// for one proxied agent process and must be driven from a single
// goroutine.
type Manager struct {
	tracer        trace.Tracer
	durationHist  metric.Float64Histogram
	ttftHist      metric.Float64Histogram
	sessions      map[string]*sessionState
	pending       map[string]*pendingRequest
	rootSpan      trace.Span
	rootCtx       trace.SpanContext
	agentName       string
	agentVersion    string
	clientName      string
	clientVersion   string
	protocolVersion int64
	recordContent   bool
}

// NewManager builds a Manager on explicit tracer and meter handles.
// When recordContent is false, no prompt text, streamed output, tool
// arguments, or tool results ever reach an attribute.
func NewManager(tracer trace.Tracer, meter metric.Meter, recordContent bool) (*Manager, error) {
	durationHist, err := meter.Float64Histogram(MetricOperationDuration,
		metric.WithDescription("GenAI operation duration"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("create duration histogram: %w", err)
	}
	ttftHist, err := meter.Float64Histogram(MetricTimeToFirstToken,
		metric.WithDescription("Time to generate first token"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("create ttft histogram: %w", err)
	}
	return &Manager{
		tracer:        tracer,
		durationHist:  durationHist,
		ttftHist:      ttftHist,
		recordContent: recordContent,
		sessions:      make(map[string]*sessionState),
		pending:       make(map[string]*pendingRequest),
	}, nil
}

// Process classifies one tapped line and advances the span state
// machine. Unclassifiable lines are ignored.
func (m *Manager) Process(direction acp.Direction, line []byte) {
	msg, ok := acp.Parse(line)
	if !ok {
		return
	}
	switch msg.Kind {
	case acp.KindRequest:
		slog.Debug("request", "direction", direction, "method", msg.Method)
		m.handleRequest(msg)
	case acp.KindResponse:
		m.handleResponse(msg)
	case acp.KindNotification:
		m.handleNotification(msg)
	}
}

func (m *Manager) handleRequest(msg acp.Message) {
	switch {
	case msg.Method == acp.MethodInitialize:
		m.handleInitializeRequest(msg)
	case msg.Method == acp.MethodSessionPrompt:
		m.handlePromptRequest(msg)
	case acp.IsFsOrTerminalMethod(msg.Method):
		m.handleToolMethodRequest(msg)
	default:
		m.handleGenericRequest(msg)
	}
}

func (m *Manager) handleInitializeRequest(msg acp.Message) {
	if info, ok := acp.ClientInfo(msg.Params); ok {
		m.clientName = info.Name
		m.clientVersion = info.Version
	}

	// The root session span parents everything that follows.
	if m.rootSpan == nil {
		root := m.startSpan(rootSpanName, trace.SpanKindInternal, trace.SpanContext{},
			attribute.String(AttrACPMethodName, "session"),
			attribute.String(AttrNetworkTransport, transportPipe),
		)
		m.rootSpan = root
		m.rootCtx = root.SpanContext()
	}

	span := m.startSpan(acp.MethodInitialize, trace.SpanKindInternal, m.rootCtx,
		attribute.String(AttrRPCSystem, rpcSystemValue),
		attribute.String(AttrRPCMethod, acp.MethodInitialize),
		attribute.String(AttrACPMethodName, acp.MethodInitialize),
		attribute.String(AttrNetworkTransport, transportPipe),
	)
	m.trackPending(msg.CanonicalID(), &pendingRequest{
		span:   span,
		method: msg.Method,
		start:  time.Now(),
	})
}

func (m *Manager) handlePromptRequest(msg acp.Message) {
	sessionID, ok := acp.SessionID(msg.Params)
	if !ok {
		sessionID = "unknown"
	}

	spanName := OperationInvokeAgent
	if m.agentName != "" {
		spanName = OperationInvokeAgent + " " + m.agentName
	}

	attrs := []attribute.KeyValue{
		attribute.String(AttrOperationName, OperationInvokeAgent),
		attribute.String(AttrConversationID, sessionID),
		attribute.String(AttrACPMethodName, acp.MethodSessionPrompt),
		attribute.String(AttrNetworkTransport, transportPipe),
	}
	if m.agentName != "" {
		attrs = append(attrs,
			attribute.String(AttrProviderName, "acp."+m.agentName),
			attribute.String(AttrAgentName, m.agentName),
			attribute.String(AttrAgentID, m.agentName),
		)
	}
	if m.agentVersion != "" {
		attrs = append(attrs, attribute.String(AttrACPAgentVersion, m.agentVersion))
	}
	if m.clientName != "" {
		attrs = append(attrs, attribute.String(AttrACPClientName, m.clientName))
	}
	if m.clientVersion != "" {
		attrs = append(attrs, attribute.String(AttrACPClientVersion, m.clientVersion))
	}
	if m.recordContent {
		if text, ok := acp.PromptText(msg.Params); ok {
			attrs = append(attrs, attribute.String(AttrInputMessages, inputMessages(text)))
		}
	}

	span := m.startSpan(spanName, trace.SpanKindClient, m.rootCtx, attrs...)

	session, ok := m.sessions[sessionID]
	if !ok {
		session = newSessionState()
		m.sessions[sessionID] = session
	}
	// A second prompt arriving before the first one's response takes
	// over the session slot; the superseded span is closed rather than
	// leaked, losing its timing data.
	if session.promptSpan != nil {
		session.promptSpan.SetStatus(codes.Error, "superseded by concurrent prompt")
		session.promptSpan.End()
	}
	now := time.Now()
	session.promptSpan = span
	session.promptCtx = span.SpanContext()
	session.promptStart = now
	session.firstChunk = time.Time{}
	session.output.Reset()

	// The prompt's span lives on the session, not the pending entry:
	// interleaved notifications mutate it before the response closes it.
	m.trackPending(msg.CanonicalID(), &pendingRequest{
		method:    msg.Method,
		sessionID: sessionID,
		start:     now,
	})
}

func (m *Manager) handleToolMethodRequest(msg acp.Message) {
	sessionID, hasSession := acp.SessionID(msg.Params)

	attrs := []attribute.KeyValue{
		attribute.String(AttrOperationName, OperationExecuteTool),
		attribute.String(AttrToolName, msg.Method),
		attribute.String(AttrToolCallID, msg.CanonicalID()),
		attribute.String(AttrToolType, "function"),
		attribute.String(AttrACPMethodName, msg.Method),
		attribute.String(AttrNetworkTransport, transportPipe),
	}
	if hasSession {
		attrs = append(attrs, attribute.String(AttrConversationID, sessionID))
	}
	if m.recordContent && len(msg.Params) > 0 {
		attrs = append(attrs, attribute.String(AttrToolArguments, string(msg.Params)))
	}

	parent := m.rootCtx
	if hasSession {
		parent = m.parentForSession(sessionID)
	}
	span := m.startSpan(OperationExecuteTool+" "+msg.Method, trace.SpanKindInternal, parent, attrs...)

	m.trackPending(msg.CanonicalID(), &pendingRequest{
		span:      span,
		method:    msg.Method,
		sessionID: sessionID,
		start:     time.Now(),
	})
}

// handleGenericRequest covers session lifecycle, authentication, and
// any method this proxy has no special knowledge of.
func (m *Manager) handleGenericRequest(msg acp.Message) {
	span := m.startSpan(msg.Method, trace.SpanKindInternal, m.rootCtx,
		attribute.String(AttrRPCSystem, rpcSystemValue),
		attribute.String(AttrRPCMethod, msg.Method),
		attribute.String(AttrACPMethodName, msg.Method),
		attribute.String(AttrNetworkTransport, transportPipe),
		attribute.String(AttrRequestID, msg.CanonicalID()),
	)
	sessionID, _ := acp.SessionID(msg.Params)
	m.trackPending(msg.CanonicalID(), &pendingRequest{
		span:      span,
		method:    msg.Method,
		sessionID: sessionID,
		start:     time.Now(),
	})
}

// trackPending registers an in-flight request under its canonical id.
// Editor and agent number their requests independently, so the same id
// can be outstanding in both directions at once; the displaced entry's
// span is closed rather than leaked.
func (m *Manager) trackPending(id string, pending *pendingRequest) {
	if prev, ok := m.pending[id]; ok && prev.span != nil {
		prev.span.SetStatus(codes.Error, "request id reused before response")
		prev.span.End()
	}
	m.pending[id] = pending
}

func (m *Manager) handleResponse(msg acp.Message) {
	pending, ok := m.pending[msg.CanonicalID()]
	if !ok {
		// Response to an id we never saw (or already consumed).
		return
	}
	delete(m.pending, msg.CanonicalID())

	slog.Debug("response", "method", pending.method)

	switch {
	case pending.method == acp.MethodInitialize:
		m.finishInitialize(pending, msg)
	case pending.method == acp.MethodSessionPrompt:
		m.finishPrompt(pending, msg)
	case acp.IsFsOrTerminalMethod(pending.method):
		m.finishToolMethod(pending, msg)
	default:
		if pending.span != nil {
			if len(msg.Error) > 0 {
				pending.span.SetStatus(codes.Error, string(msg.Error))
			}
			pending.span.End()
		}
	}
}

func (m *Manager) finishInitialize(pending *pendingRequest, msg acp.Message) {
	span := pending.span
	if span == nil {
		return
	}
	if len(msg.Result) > 0 {
		if info, ok := acp.AgentInfo(msg.Result); ok {
			m.agentName = info.Name
			m.agentVersion = info.Version
			span.SetAttributes(
				attribute.String(AttrAgentName, info.Name),
				attribute.String(AttrAgentID, info.Name),
			)
		}
		if version, ok := acp.ProtocolVersion(msg.Result); ok {
			m.protocolVersion = version
			span.SetAttributes(attribute.Int64(AttrACPProtocolVersion, version))
		}
	}
	if len(msg.Error) > 0 {
		m.markError(span, msg.Error)
	}
	if m.agentName != "" && m.rootSpan != nil {
		m.rootSpan.SetAttributes(attribute.String(AttrAgentName, m.agentName))
	}
	span.End()
}

func (m *Manager) finishPrompt(pending *pendingRequest, msg acp.Message) {
	session, ok := m.sessions[pending.sessionID]
	if !ok {
		return
	}
	span := session.promptSpan
	if span == nil {
		return
	}
	session.promptSpan = nil

	duration := time.Since(pending.start)

	stopReason, hasStop := "", false
	if len(msg.Result) > 0 {
		stopReason, hasStop = acp.StopReason(msg.Result)
	}
	if hasStop {
		span.SetAttributes(attribute.StringSlice(AttrFinishReasons, []string{stopReason}))
	}
	if m.recordContent && session.output.Len() > 0 {
		finish := ""
		if hasStop {
			finish = acp.FinishReason(stopReason)
		}
		span.SetAttributes(attribute.String(AttrOutputMessages,
			outputMessages(session.output.String(), finish)))
	}

	if !session.firstChunk.IsZero() && !session.promptStart.IsZero() {
		ttft := session.firstChunk.Sub(session.promptStart)
		span.SetAttributes(attribute.Int64(AttrTimeToFirstTokenMS, ttft.Milliseconds()))
		m.ttftHist.Record(context.Background(), ttft.Seconds(),
			metric.WithAttributes(attribute.String(AttrOperationName, OperationInvokeAgent)))
	}

	if len(msg.Error) > 0 {
		m.markError(span, msg.Error)
	}
	span.End()
	m.durationHist.Record(context.Background(), duration.Seconds(),
		metric.WithAttributes(attribute.String(AttrOperationName, OperationInvokeAgent)))
}

func (m *Manager) finishToolMethod(pending *pendingRequest, msg acp.Message) {
	span := pending.span
	if span == nil {
		return
	}
	if m.recordContent && len(msg.Result) > 0 {
		span.SetAttributes(attribute.String(AttrToolResult, string(msg.Result)))
	}
	if len(msg.Error) > 0 {
		m.markError(span, msg.Error)
	}
	span.End()
}

func (m *Manager) handleNotification(msg acp.Message) {
	if msg.Method != acp.MethodSessionUpdate {
		return
	}
	update, ok := acp.ParseUpdate(msg.Params)
	if !ok {
		return
	}

	slog.Debug("notification", "session", update.SessionID, "update", update.Update.Type)

	switch update.Update.Type {
	case acp.UpdateTypeAgentMessageChunk:
		m.handleMessageChunk(update)
	case acp.UpdateTypeToolCall:
		m.handleToolCall(update)
	case acp.UpdateTypeToolCallUpdate:
		m.handleToolCallUpdate(update)
	}
}

func (m *Manager) handleMessageChunk(update acp.UpdateParams) {
	session, ok := m.sessions[update.SessionID]
	if !ok {
		return
	}
	if session.firstChunk.IsZero() {
		session.firstChunk = time.Now()
	}
	if update.Update.Content != nil {
		session.output.WriteString(update.Update.Content.Text)
	}
}

func (m *Manager) handleToolCall(update acp.UpdateParams) {
	toolCallID := update.Update.ToolCallID
	if toolCallID == "" {
		return
	}
	title := update.Update.Title
	if title == "" {
		title = "unknown tool"
	}
	kind := update.Update.Kind
	if kind == "" {
		kind = "other"
	}

	attrs := []attribute.KeyValue{
		attribute.String(AttrOperationName, OperationExecuteTool),
		attribute.String(AttrToolName, title),
		attribute.String(AttrToolCallID, toolCallID),
		attribute.String(AttrToolType, acp.ToolTypeForKind(kind)),
		attribute.String(AttrConversationID, update.SessionID),
		attribute.String(AttrACPMethodName, acp.MethodSessionUpdate),
		attribute.String(AttrACPToolKind, kind),
		attribute.String(AttrNetworkTransport, transportPipe),
	}
	if m.recordContent && len(update.Update.RawInput) > 0 {
		attrs = append(attrs, attribute.String(AttrToolArguments, string(update.Update.RawInput)))
	}

	span := m.startSpan(OperationExecuteTool+" "+title, trace.SpanKindInternal,
		m.parentForSession(update.SessionID), attrs...)

	// Sessions are normally created by session/prompt; a tool_call for
	// an unseen session still gets tracked so its span is closed at
	// shutdown rather than leaked.
	session, ok := m.sessions[update.SessionID]
	if !ok {
		session = newSessionState()
		m.sessions[update.SessionID] = session
	}
	if prev, ok := session.toolSpans[toolCallID]; ok {
		prev.SetStatus(codes.Error, "tool call id reused before completion")
		prev.End()
	}
	session.toolSpans[toolCallID] = span
}

func (m *Manager) handleToolCallUpdate(update acp.UpdateParams) {
	status := update.Update.Status
	if status != acp.ToolStatusCompleted && status != acp.ToolStatusFailed {
		// Progress update; the span stays open.
		return
	}
	session, ok := m.sessions[update.SessionID]
	if !ok {
		return
	}
	span, ok := session.toolSpans[update.Update.ToolCallID]
	if !ok {
		return
	}
	delete(session.toolSpans, update.Update.ToolCallID)

	if status == acp.ToolStatusFailed {
		span.SetStatus(codes.Error, "tool call failed")
		span.SetAttributes(attribute.String(AttrErrorType, "tool_error"))
	}
	if m.recordContent && len(update.Update.RawOutput) > 0 {
		span.SetAttributes(attribute.String(AttrToolResult, string(update.Update.RawOutput)))
	}
	span.End()
}

// Shutdown force-closes everything still open. Called exactly once,
// after the tap queue has drained. The root span ends last so it is
// the outermost-ending span in the export stream.
func (m *Manager) Shutdown() {
	for id, session := range m.sessions {
		if session.promptSpan != nil {
			session.promptSpan.SetStatus(codes.Error, "session ended unexpectedly")
			session.promptSpan.End()
			session.promptSpan = nil
		}
		for _, span := range session.toolSpans {
			span.SetStatus(codes.Error, "session ended unexpectedly")
			span.End()
		}
		clear(session.toolSpans)
		delete(m.sessions, id)
	}
	for id, pending := range m.pending {
		if pending.span != nil {
			pending.span.SetStatus(codes.Error, "process exited before response")
			pending.span.End()
		}
		delete(m.pending, id)
	}
	if m.rootSpan != nil {
		m.rootSpan.End()
		m.rootSpan = nil
	}
}

// startSpan opens a span under the given parent context, or as a trace
// root when the parent is invalid. Parenting goes through the captured
// SpanContext rather than a live span reference, so children can be
// created after the parent's owning structure has moved on.
func (m *Manager) startSpan(name string, kind trace.SpanKind, parent trace.SpanContext, attrs ...attribute.KeyValue) trace.Span {
	ctx := context.Background()
	if parent.IsValid() {
		ctx = trace.ContextWithSpanContext(ctx, parent)
	}
	_, span := m.tracer.Start(ctx, name,
		trace.WithSpanKind(kind),
		trace.WithAttributes(attrs...),
	)
	return span
}

// parentForSession resolves the parent context for a session-scoped
// child span: the active prompt span when there is one, otherwise the
// root session span.
func (m *Manager) parentForSession(sessionID string) trace.SpanContext {
	if session, ok := m.sessions[sessionID]; ok && session.promptCtx.IsValid() {
		return session.promptCtx
	}
	return m.rootCtx
}

// markError records a protocol-level error payload on a span: error
// status plus an error.type attribute derived from the error code.
func (m *Manager) markError(span trace.Span, errPayload json.RawMessage) {
	span.SetStatus(codes.Error, string(errPayload))
	errType := "_OTHER"
	if code, ok := acp.ErrorCode(errPayload); ok {
		errType = fmt.Sprintf("%d", code)
	}
	span.SetAttributes(attribute.String(AttrErrorType, errType))
}
