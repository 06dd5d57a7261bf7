// Package assistant runs the tool-calling conversation loop: the model either
// answers or asks for tools, tool results are fed back, and the loop repeats
// until an answer arrives or the iteration cap is hit.
package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/table-reservation-agent/agent/contract"
)

const (
	DefaultMaxIterations = 5
	DefaultModelTimeout  = 30 * time.Second

	FallbackReply = "I'm taking too long to process this. Please try again."
	ApologyReply  = "Sorry, something went wrong while processing your request. Please try again."
)

var (
	ErrMissingModel        = errors.New("assistant loop requires a chat model")
	ErrMissingToolExecutor = errors.New("assistant loop requires a tool executor")
)

type State string

const (
	StateAwaitingModel  State = "AWAITING_MODEL"
	StateExecutingTools State = "EXECUTING_TOOLS"
	StateDone           State = "DONE"
)

type StopReason string

const (
	StopFinalAnswer   StopReason = "final_answer"
	StopMaxIterations StopReason = "max_iterations"
	StopModelError    StopReason = "model_error"
	StopEmptyReply    StopReason = "empty_reply"
	StopCancelled     StopReason = "cancelled"
)

type Config struct {
	MaxIterations int
	ModelTimeout  time.Duration
}

type Result struct {
	Reply        string
	State        State
	Reason       StopReason
	Iterations   int
	ToolCalls    int
	Conversation []contractx.Message
}

type Loop struct {
	model         contractx.ChatModel
	tools         contractx.ToolExecutor
	defs          []contractx.ToolDefinition
	maxIterations int
	modelTimeout  time.Duration
}

func New(model contractx.ChatModel, tools contractx.ToolExecutor, defs []contractx.ToolDefinition, cfg Config) (*Loop, error) {
	if model == nil {
		return nil, fmt.Errorf("new assistant loop: %w", ErrMissingModel)
	}
	if tools == nil {
		return nil, fmt.Errorf("new assistant loop: %w", ErrMissingToolExecutor)
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.ModelTimeout <= 0 {
		cfg.ModelTimeout = DefaultModelTimeout
	}
	return &Loop{
		model:         model,
		tools:         tools,
		defs:          append([]contractx.ToolDefinition(nil), defs...),
		maxIterations: cfg.MaxIterations,
		modelTimeout:  cfg.ModelTimeout,
	}, nil
}

// Run drives one request to completion. History must already end with the
// user's latest message. Run always produces a reply; failures surface as the
// fallback or apology text and are recorded in Result.Reason.
func (l *Loop) Run(ctx context.Context, systemPrompt string, history []contractx.Message) Result {
	logger := log.Ctx(ctx)
	started := time.Now()

	conv := make([]contractx.Message, 0, len(history)+1+2*l.maxIterations)
	if systemPrompt != "" {
		conv = append(conv, contractx.Message{Role: contractx.RoleSystem, Content: systemPrompt})
	}
	conv = append(conv, cloneMessages(history)...)

	res := Result{State: StateAwaitingModel}
	finish := func(reply string, reason StopReason) Result {
		res.Reply = reply
		res.Reason = reason
		res.State = StateDone
		res.Conversation = conv
		logger.Info().
			Str("event", "agent_complete").
			Str("reason", string(reason)).
			Int("iterations", res.Iterations).
			Int("tool_calls", res.ToolCalls).
			Dur("elapsed", time.Since(started)).
			Msg("assistant loop finished")
		return res
	}

	for res.Iterations < l.maxIterations {
		if err := ctx.Err(); err != nil {
			logger.Warn().Err(err).Msg("request cancelled before model call")
			return finish(ApologyReply, StopCancelled)
		}
		res.Iterations++
		res.State = StateAwaitingModel

		logger.Info().
			Str("event", "llm_call_start").
			Int("iteration", res.Iterations).
			Int("messages", len(conv)).
			Msg("calling model")
		callStart := time.Now()
		reply, err := l.generate(ctx, conv)
		if err != nil {
			if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
				logger.Warn().Err(err).Int("iteration", res.Iterations).Msg("model call timed out, retrying")
				continue
			}
			logger.Error().Err(err).Int("iteration", res.Iterations).Msg("model call failed")
			if ctx.Err() != nil {
				return finish(ApologyReply, StopCancelled)
			}
			return finish(ApologyReply, StopModelError)
		}
		logger.Info().
			Str("event", "llm_call_complete").
			Int("iteration", res.Iterations).
			Int("tool_calls", len(reply.ToolCalls)).
			Dur("elapsed", time.Since(callStart)).
			Msg("model replied")

		if len(reply.ToolCalls) == 0 {
			content := strings.TrimSpace(reply.Content)
			conv = append(conv, contractx.Message{Role: contractx.RoleAssistant, Content: reply.Content})
			if content == "" {
				return finish(ApologyReply, StopEmptyReply)
			}
			return finish(content, StopFinalAnswer)
		}

		res.State = StateExecutingTools
		calls := make([]contractx.ToolCall, len(reply.ToolCalls))
		for i, call := range reply.ToolCalls {
			if call.ID == "" {
				call.ID = fmt.Sprintf("call_%d_%d", res.Iterations, i)
			}
			calls[i] = call
		}
		conv = append(conv, contractx.Message{Role: contractx.RoleAssistant, Content: reply.Content, ToolCalls: calls})

		names := make([]string, 0, len(calls))
		for _, call := range calls {
			names = append(names, call.Name)
		}
		logger.Info().
			Str("event", "tool_calls_detected").
			Int("iteration", res.Iterations).
			Strs("tools", names).
			Msg("executing tool calls")

		for _, call := range calls {
			toolStart := time.Now()
			out := l.tools.Execute(ctx, call)
			res.ToolCalls++
			conv = append(conv, contractx.Message{
				Role:       contractx.RoleTool,
				Content:    encodeToolResult(out),
				ToolCallID: call.ID,
			})
			logger.Info().
				Str("event", "tool_execution_complete").
				Str("tool", call.Name).
				Str("call_id", call.ID).
				Bool("failed", out.Error != "").
				Dur("elapsed", time.Since(toolStart)).
				Msg("tool executed")
		}
	}

	logger.Warn().
		Str("event", "max_iterations_reached").
		Int("iterations", res.Iterations).
		Msg("no final answer within iteration cap")
	return finish(FallbackReply, StopMaxIterations)
}

func (l *Loop) generate(ctx context.Context, conv []contractx.Message) (contractx.Message, error) {
	callCtx, cancel := context.WithTimeout(ctx, l.modelTimeout)
	defer cancel()
	return l.model.Generate(callCtx, contractx.ModelRequest{
		Messages: cloneMessages(conv),
		Tools:    l.defs,
	})
}

func encodeToolResult(out contractx.ToolResult) string {
	payload := out.Result
	if payload == nil {
		if out.Error != "" {
			payload = map[string]string{"error": out.Error}
		} else {
			payload = map[string]any{}
		}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		raw, _ = json.Marshal(map[string]string{"error": fmt.Sprintf("encode tool result: %v", err)})
	}
	return string(raw)
}

func cloneMessages(in []contractx.Message) []contractx.Message {
	out := make([]contractx.Message, len(in))
	for i, m := range in {
		out[i] = m
		if m.ToolCalls != nil {
			out[i].ToolCalls = append([]contractx.ToolCall(nil), m.ToolCalls...)
		}
	}
	return out
}
