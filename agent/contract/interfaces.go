package contract

import "context"

// ChatModel produces the next assistant turn for a conversation.
type ChatModel interface {
	Generate(ctx context.Context, req ModelRequest) (Message, error)
}

// ToolExecutor runs one tool call. Failures are reported inside the result.
type ToolExecutor interface {
	Execute(ctx context.Context, call ToolCall) ToolResult
}
