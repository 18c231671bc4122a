package acp

// ToolTypeForKind maps an ACP tool kind to the GenAI tool.type
// convention: kinds that read data map to "datastore", everything else
// (including unrecognized kinds) to "extension".
func ToolTypeForKind(kind string) string {
	switch kind {
	case "read", "search", "fetch":
		return "datastore"
	default:
		return "extension"
	}
}

// IsFsOrTerminalMethod reports whether method is one of the
// filesystem/terminal tool methods the agent invokes on the editor.
func IsFsOrTerminalMethod(method string) bool {
	switch method {
	case MethodFsReadTextFile,
		MethodFsWriteTextFile,
		MethodTerminalCreate,
		MethodTerminalWrite,
		MethodTerminalResize,
		MethodTerminalRelease:
		return true
	default:
		return false
	}
}

// FinishReason maps an ACP stop reason to the GenAI finish_reason
// convention. Unknown stop reasons map to "other".
func FinishReason(stopReason string) string {
	switch stopReason {
	case StopReasonEndTurn:
		return "stop"
	case StopReasonMaxTokens, StopReasonMaxTurnRequests:
		return "length"
	case StopReasonRefusal:
		return "content_filter"
	case StopReasonCancelled:
		return "cancelled"
	default:
		return "other"
	}
}
