package orchestratornode

import (
	"context"
	"errors"
	"time"

	"github.com/tanpawarit/table-reservation-agent/agent/agents/assistant"
	contractx "github.com/tanpawarit/table-reservation-agent/agent/contract"
	statex "github.com/tanpawarit/table-reservation-agent/agent/state"
)

var (
	ErrInvalidMessage    = errors.New("message is empty")
	ErrInvalidContact    = errors.New("contact number is empty")
	ErrInvalidRestaurant = errors.New("restaurant id is empty")
)

// AgentRunner is the tool-calling loop as seen by the request graph.
type AgentRunner interface {
	Run(ctx context.Context, systemPrompt string, history []contractx.Message) assistant.Result
}

// PromptRenderer produces the system prompt for a request received at now.
type PromptRenderer func(now time.Time) string

type GraphInput struct {
	MessageID     string
	ContactNumber string
	RestaurantID  string
	Text          string
}

type GraphOutput struct {
	MessageID  string
	Reply      string
	Reason     assistant.StopReason
	Iterations int
	ToolCalls  int
}

type GraphState struct {
	MessageID string
	Key       statex.ConversationKey
	Text      string
	Now       time.Time

	History      []contractx.Message
	SystemPrompt string

	Result assistant.Result
}
