package orchestratornode

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/table-reservation-agent/agent/contract"
	statex "github.com/tanpawarit/table-reservation-agent/agent/state"
)

// RecordUserTurn appends the inbound message to the conversation log. A
// storage failure is logged and the request carries on without it.
func RecordUserTurn(ctx context.Context, in *GraphState, history statex.HistoryStore) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	turn := statex.Turn{Role: contractx.RoleUser, Content: in.Text, Timestamp: in.Now}
	if err := history.Append(ctx, in.Key, turn); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("failed to store user message")
	}
	return in, nil
}

// LoadHistory reads the recent window. The current message is always the
// last entry, even when the store is unavailable or lost the write.
func LoadHistory(ctx context.Context, in *GraphState, history statex.HistoryStore, window int) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	turns, err := history.Recent(ctx, in.Key, window)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("failed to load conversation history")
		turns = nil
	}

	msgs := statex.ToMessages(turns)
	if n := len(msgs); n == 0 || msgs[n-1].Role != contractx.RoleUser || msgs[n-1].Content != in.Text {
		msgs = append(msgs, contractx.Message{Role: contractx.RoleUser, Content: in.Text})
	}
	in.History = msgs
	return in, nil
}

// RecordReply appends the assistant's final answer. Like RecordUserTurn it
// never fails the request.
func RecordReply(ctx context.Context, in *GraphState, history statex.HistoryStore, now func() time.Time) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if in.Result.Reply == "" {
		return in, nil
	}

	turn := statex.Turn{Role: contractx.RoleAssistant, Content: in.Result.Reply, Timestamp: now().UTC()}
	if err := history.Append(ctx, in.Key, turn); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("failed to store assistant reply")
	}
	return in, nil
}
