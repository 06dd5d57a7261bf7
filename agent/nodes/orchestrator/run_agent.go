package orchestratornode

import (
	"context"
	"fmt"
	"strings"

	"github.com/tanpawarit/table-reservation-agent/agent/agents/assistant"
	contractx "github.com/tanpawarit/table-reservation-agent/agent/contract"
)

func BuildPrompt(in *GraphState, render PromptRenderer) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	prompt := strings.TrimSpace(render(in.Now))
	if prompt == "" {
		return nil, fmt.Errorf("%w: rendered system prompt is empty", contractx.ErrPromptMissing)
	}
	in.SystemPrompt = prompt
	return in, nil
}

func RunAgent(ctx context.Context, in *GraphState, agent AgentRunner) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	in.Result = agent.Run(ctx, in.SystemPrompt, in.History)
	return in, nil
}

func FinalizeReply(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	reply := strings.TrimSpace(in.Result.Reply)
	if reply == "" {
		reply = assistant.ApologyReply
	}
	return GraphOutput{
		MessageID:  in.MessageID,
		Reply:      reply,
		Reason:     in.Result.Reason,
		Iterations: in.Result.Iterations,
		ToolCalls:  in.Result.ToolCalls,
	}, nil
}
