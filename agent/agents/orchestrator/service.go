package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"

	nodex "github.com/tanpawarit/table-reservation-agent/agent/nodes/orchestrator"
	statex "github.com/tanpawarit/table-reservation-agent/agent/state"
)

var (
	ErrInvalidMessage    = nodex.ErrInvalidMessage
	ErrInvalidContact    = nodex.ErrInvalidContact
	ErrInvalidRestaurant = nodex.ErrInvalidRestaurant
)

type Config struct {
	// HistoryWindow is how many stored turns are replayed to the model.
	HistoryWindow int
}

type Request struct {
	MessageID     string
	ContactNumber string
	RestaurantID  string
	Text          string
}

type Reply = nodex.GraphOutput

type Orchestrator struct {
	history statex.HistoryStore
	agent   nodex.AgentRunner
	prompt  nodex.PromptRenderer
	window  int

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	now func() time.Time
}

func New(
	history statex.HistoryStore,
	agent nodex.AgentRunner,
	prompt nodex.PromptRenderer,
	cfg Config,
) (*Orchestrator, error) {
	if history == nil {
		return nil, errors.New("history store is required")
	}
	if agent == nil {
		return nil, errors.New("agent runner is required")
	}
	if prompt == nil {
		return nil, errors.New("prompt renderer is required")
	}

	window := cfg.HistoryWindow
	if window <= 0 {
		window = statex.DefaultHistoryWindow
	}

	o := &Orchestrator{
		history: history,
		agent:   agent,
		prompt:  prompt,
		window:  window,
		now:     time.Now,
	}

	graphRunner, err := o.compileHandleMessageGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// HandleMessage runs one inbound message through the request graph. Only
// request validation and graph wiring faults are returned as errors; model
// and tool failures arrive as the reply text.
func (o *Orchestrator) HandleMessage(ctx context.Context, req Request) (Reply, error) {
	logger := log.Ctx(ctx).With().
		Str("message_id", req.MessageID).
		Str("restaurant_id", req.RestaurantID).
		Logger()
	ctx = logger.WithContext(ctx)

	started := o.now()
	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{
		MessageID:     req.MessageID,
		ContactNumber: req.ContactNumber,
		RestaurantID:  req.RestaurantID,
		Text:          req.Text,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("message rejected")
		return Reply{}, err
	}

	logger.Info().
		Str("reason", string(out.Reason)).
		Int("iterations", out.Iterations).
		Int("tool_calls", out.ToolCalls).
		Dur("elapsed", o.now().Sub(started)).
		Msg("message handled")
	return out, nil
}

// Reset forgets the stored conversation for one guest.
func (o *Orchestrator) Reset(ctx context.Context, contactNumber, restaurantID string) error {
	return o.history.Delete(ctx, statex.ConversationKey{ContactNumber: contactNumber, RestaurantID: restaurantID})
}
