package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/table-reservation-agent/agent/contract"
	openaicompatx "github.com/tanpawarit/table-reservation-agent/pkg/openaicompat"
)

const (
	ProviderEino   = "eino"
	ProviderOpenAI = "openai"
)

type Config struct {
	Provider           string        `envconfig:"PROVIDER" default:"eino"`
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://api.cerebras.ai/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" default:"qwen-3-235b-a22b-instruct-2507"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"1024"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: llm api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: llm model is required", contractx.ErrValidation)
	}
	switch c.Provider {
	case ProviderEino, ProviderOpenAI, "":
	default:
		return fmt.Errorf("%w: unknown llm provider %q", contractx.ErrValidation, c.Provider)
	}
	return nil
}

// Endpoint converts the config into client settings for the chat endpoint.
func (c Config) Endpoint() openaicompatx.Config {
	var maxTokens *int
	if c.MaxCompletionToken > 0 {
		v := c.MaxCompletionToken
		maxTokens = &v
	}
	return openaicompatx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              strings.TrimSpace(c.Model),
		MaxCompletionToken: maxTokens,
		Temperature:        c.Temperature,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}
