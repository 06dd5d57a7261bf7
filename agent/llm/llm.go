package llm

import (
	"context"
	"fmt"

	contractx "github.com/tanpawarit/table-reservation-agent/agent/contract"
	openaicompatx "github.com/tanpawarit/table-reservation-agent/pkg/openaicompat"
)

// New builds the chat model selected by cfg.Provider.
func New(ctx context.Context, cfg Config) (contractx.ChatModel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	endpoint := cfg.Endpoint()
	switch cfg.Provider {
	case ProviderOpenAI:
		client := openaicompatx.NewClient(endpoint)
		if client == nil {
			return nil, fmt.Errorf("%w: openai client not configured", contractx.ErrValidation)
		}
		return NewOpenAIChatModel(client, cfg), nil
	default:
		base, err := endpoint.New(ctx)
		if err != nil {
			return nil, err
		}
		return NewEinoChatModel(base), nil
	}
}
