package spans

// Histogram names, following the GenAI client metric conventions.
const (
	MetricOperationDuration = "gen_ai.client.operation.duration"
	MetricTimeToFirstToken  = "gen_ai.server.time_to_first_token"
)

// GenAI span attributes.
const (
	AttrOperationName  = "gen_ai.operation.name"
	AttrConversationID = "gen_ai.conversation.id"
	AttrProviderName   = "gen_ai.provider.name"
	AttrAgentName      = "gen_ai.agent.name"
	AttrAgentID        = "gen_ai.agent.id"
	AttrToolName       = "gen_ai.tool.name"
	AttrToolCallID     = "gen_ai.tool.call.id"
	AttrToolType       = "gen_ai.tool.type"
	AttrToolArguments  = "gen_ai.tool.call.arguments"
	AttrToolResult     = "gen_ai.tool.call.result"
	AttrInputMessages  = "gen_ai.input.messages"
	AttrOutputMessages = "gen_ai.output.messages"
	AttrFinishReasons  = "gen_ai.response.finish_reasons"
)

// ACP-specific span attributes.
const (
	AttrACPMethodName      = "acp.method.name"
	AttrACPProtocolVersion = "acp.protocol.version"
	AttrACPToolKind        = "acp.tool.kind"
	AttrACPAgentVersion    = "acp.agent.version"
	AttrACPClientName      = "acp.client.name"
	AttrACPClientVersion   = "acp.client.version"
	AttrTimeToFirstTokenMS = "acp.time_to_first_token_ms"
)

// RPC and network attributes.
const (
	AttrRPCSystem        = "rpc.system"
	AttrRPCMethod        = "rpc.method"
	AttrRequestID        = "jsonrpc.request.id"
	AttrNetworkTransport = "network.transport"
	AttrErrorType        = "error.type"
)

// GenAI operation names.
const (
	OperationInvokeAgent = "invoke_agent"
	OperationExecuteTool = "execute_tool"
)

const (
	rootSpanName   = "acp_session"
	transportPipe  = "pipe"
	rpcSystemValue = "jsonrpc"
)
