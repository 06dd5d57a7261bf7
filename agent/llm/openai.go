package llm

import (
	"context"
	"fmt"

	openaisdk "github.com/openai/openai-go"

	contractx "github.com/tanpawarit/table-reservation-agent/agent/contract"
	toolx "github.com/tanpawarit/table-reservation-agent/agent/tool"
)

// OpenAIChatModel talks to the chat completions API through openai-go and
// always requests tool_choice=auto when tools are offered.
type OpenAIChatModel struct {
	client      *openaisdk.Client
	model       string
	temperature float64
	maxTokens   int
}

var _ contractx.ChatModel = (*OpenAIChatModel)(nil)

func NewOpenAIChatModel(client *openaisdk.Client, cfg Config) *OpenAIChatModel {
	return &OpenAIChatModel{
		client:      client,
		model:       cfg.Model,
		temperature: float64(cfg.Temperature),
		maxTokens:   cfg.MaxCompletionToken,
	}
}

func (m *OpenAIChatModel) Generate(ctx context.Context, req contractx.ModelRequest) (contractx.Message, error) {
	params := openaisdk.ChatCompletionNewParams{
		Model:       openaisdk.ChatModel(m.model),
		Messages:    toOpenAIMessages(req.Messages),
		Temperature: openaisdk.Float(m.temperature),
	}
	if m.maxTokens > 0 {
		params.MaxCompletionTokens = openaisdk.Int(int64(m.maxTokens))
	}
	if len(req.Tools) > 0 {
		params.Tools = toOpenAITools(req.Tools)
		params.ToolChoice = openaisdk.ChatCompletionToolChoiceOptionUnionParam{OfAuto: openaisdk.String("auto")}
	}

	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return contractx.Message{}, fmt.Errorf("%w: %w", contractx.ErrModelInvoke, err)
	}
	if len(resp.Choices) == 0 {
		return contractx.Message{}, fmt.Errorf("%w: response has no choices", contractx.ErrModelInvoke)
	}

	choice := resp.Choices[0].Message
	out := contractx.Message{Role: contractx.RoleAssistant, Content: choice.Content}
	for _, c := range choice.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, contractx.ToolCall{
			ID:        c.ID,
			Name:      c.Function.Name,
			Arguments: c.Function.Arguments,
		})
	}
	return out, nil
}

func toOpenAIMessages(msgs []contractx.Message) []openaisdk.ChatCompletionMessageParamUnion {
	out := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, msg := range msgs {
		switch msg.Role {
		case contractx.RoleSystem:
			out = append(out, openaisdk.SystemMessage(msg.Content))
		case contractx.RoleAssistant:
			p := openaisdk.ChatCompletionAssistantMessageParam{}
			if msg.Content != "" {
				p.Content.OfString = openaisdk.String(msg.Content)
			}
			for _, c := range msg.ToolCalls {
				p.ToolCalls = append(p.ToolCalls, openaisdk.ChatCompletionMessageToolCallParam{
					ID: c.ID,
					Function: openaisdk.ChatCompletionMessageToolCallFunctionParam{
						Name:      c.Name,
						Arguments: c.Arguments,
					},
				})
			}
			out = append(out, openaisdk.ChatCompletionMessageParamUnion{OfAssistant: &p})
		case contractx.RoleTool:
			out = append(out, openaisdk.ToolMessage(msg.Content, msg.ToolCallID))
		default:
			out = append(out, openaisdk.UserMessage(msg.Content))
		}
	}
	return out
}

func toOpenAITools(defs []contractx.ToolDefinition) []openaisdk.ChatCompletionToolParam {
	out := make([]openaisdk.ChatCompletionToolParam, 0, len(defs))
	for _, def := range defs {
		out = append(out, openaisdk.ChatCompletionToolParam{
			Function: openaisdk.FunctionDefinitionParam{
				Name:        def.Name,
				Description: openaisdk.String(def.Description),
				Parameters:  openaisdk.FunctionParameters(toolx.JSONSchema(def)),
			},
		})
	}
	return out
}
