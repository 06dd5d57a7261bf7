package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/table-reservation-agent/agent/contract"
	toolx "github.com/tanpawarit/table-reservation-agent/agent/tool"
)

// EinoChatModel adapts an eino tool-calling chat model.
type EinoChatModel struct {
	base model.ToolCallingChatModel
}

var _ contractx.ChatModel = (*EinoChatModel)(nil)

func NewEinoChatModel(base model.ToolCallingChatModel) *EinoChatModel {
	return &EinoChatModel{base: base}
}

func (m *EinoChatModel) Generate(ctx context.Context, req contractx.ModelRequest) (contractx.Message, error) {
	chat := m.base
	if len(req.Tools) > 0 {
		bound, err := m.base.WithTools(toolx.ToolInfos(req.Tools))
		if err != nil {
			return contractx.Message{}, fmt.Errorf("%w: bind tools: %v", contractx.ErrModelInvoke, err)
		}
		chat = bound
	}

	resp, err := chat.Generate(ctx, toEinoMessages(req.Messages))
	if err != nil {
		return contractx.Message{}, fmt.Errorf("%w: %w", contractx.ErrModelInvoke, err)
	}
	if resp == nil {
		return contractx.Message{}, fmt.Errorf("%w: empty response", contractx.ErrModelInvoke)
	}
	return fromEinoMessage(resp), nil
}

func toEinoMessages(msgs []contractx.Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(msgs))
	for _, msg := range msgs {
		switch msg.Role {
		case contractx.RoleSystem:
			out = append(out, schema.SystemMessage(msg.Content))
		case contractx.RoleAssistant:
			var calls []schema.ToolCall
			for _, c := range msg.ToolCalls {
				calls = append(calls, schema.ToolCall{
					ID:   c.ID,
					Type: "function",
					Function: schema.FunctionCall{
						Name:      c.Name,
						Arguments: c.Arguments,
					},
				})
			}
			out = append(out, schema.AssistantMessage(msg.Content, calls))
		case contractx.RoleTool:
			out = append(out, schema.ToolMessage(msg.Content, msg.ToolCallID))
		default:
			out = append(out, schema.UserMessage(msg.Content))
		}
	}
	return out
}

func fromEinoMessage(msg *schema.Message) contractx.Message {
	out := contractx.Message{
		Role:    contractx.RoleAssistant,
		Content: msg.Content,
	}
	for _, c := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, contractx.ToolCall{
			ID:        c.ID,
			Name:      c.Function.Name,
			Arguments: c.Function.Arguments,
		})
	}
	return out
}
