package acp

// ACP JSON-RPC method constants.
const (
	// Editor-sent requests (agent responds)
	MethodInitialize    = "initialize"
	MethodAuthenticate  = "authenticate"
	MethodSessionNew    = "session/new"
	MethodSessionLoad   = "session/load"
	MethodSessionPrompt = "session/prompt"

	// Agent-sent notifications
	MethodSessionUpdate = "session/update"

	// Agent-sent requests (editor responds)
	MethodFsReadTextFile  = "fs/read_text_file"
	MethodFsWriteTextFile = "fs/write_text_file"
	MethodTerminalCreate  = "terminal/create"
	MethodTerminalWrite   = "terminal/write"
	MethodTerminalResize  = "terminal/resize"
	MethodTerminalRelease = "terminal/release"
)

// Session update type constants.
const (
	UpdateTypeAgentMessageChunk = "agent_message_chunk"
	UpdateTypeToolCall          = "tool_call"
	UpdateTypeToolCallUpdate    = "tool_call_update"
)

// Tool call status constants. Only the terminal statuses close a
// tool-call lifecycle; anything else is a progress update.
const (
	ToolStatusCompleted = "completed"
	ToolStatusFailed    = "failed"
)

// Stop reason constants reported on session/prompt results.
const (
	StopReasonEndTurn         = "end_turn"
	StopReasonMaxTokens       = "max_tokens"
	StopReasonMaxTurnRequests = "max_turn_requests"
	StopReasonRefusal         = "refusal"
	StopReasonCancelled       = "cancelled"
)
