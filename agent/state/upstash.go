package state

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultStoreKeyPrefix = "conv:"
	defaultStoreTTL       = 7 * 24 * time.Hour
	defaultMaxTurns       = 50
	maxResponseSizeBytes  = 2 << 20
)

// StoreOption customizes UpstashHistoryStore.
type StoreOption func(*UpstashHistoryStore)

func WithKeyPrefix(prefix string) StoreOption {
	return func(s *UpstashHistoryStore) {
		trimmed := strings.TrimSpace(prefix)
		if trimmed != "" {
			s.keyPrefix = trimmed
		}
	}
}

func WithTTL(ttl time.Duration) StoreOption {
	return func(s *UpstashHistoryStore) {
		s.ttl = ttl
	}
}

// WithMaxTurns caps how many turns are retained per conversation. Zero keeps
// everything.
func WithMaxTurns(n int) StoreOption {
	return func(s *UpstashHistoryStore) {
		s.maxTurns = n
	}
}

func WithHTTPClient(client *http.Client) StoreOption {
	return func(s *UpstashHistoryStore) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// UpstashHistoryStore keeps each conversation as a Redis list in Upstash,
// accessed over its REST API.
type UpstashHistoryStore struct {
	baseURL    string
	token      string
	httpClient *http.Client
	keyPrefix  string
	ttl        time.Duration
	maxTurns   int
}

var _ HistoryStore = (*UpstashHistoryStore)(nil)

type redisRESTResponse struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

type UpstashRedisConfig struct {
	URL     string        `envconfig:"URL" split_words:"true" required:"true"`
	Token   string        `envconfig:"TOKEN" split_words:"true" required:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

func NewUpstashHistoryStore(cfg UpstashRedisConfig, opts ...StoreOption) (*UpstashHistoryStore, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errors.New("upstash redis url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid redis rest url: %w", err)
	}

	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("upstash redis token is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	store := &UpstashHistoryStore{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		keyPrefix: defaultStoreKeyPrefix,
		ttl:       defaultStoreTTL,
		maxTurns:  defaultMaxTurns,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}

	if store.ttl < 0 {
		return nil, errors.New("ttl must be >= 0")
	}
	if store.maxTurns < 0 {
		return nil, errors.New("max turns must be >= 0")
	}

	return store, nil
}

func (s *UpstashHistoryStore) Append(ctx context.Context, key ConversationKey, turn Turn) error {
	redisKey, err := s.redisKey(key)
	if err != nil {
		return err
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now().UTC()
	}

	payload, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("marshal turn: %w", err)
	}

	if _, err := s.exec(ctx, []any{"RPUSH", redisKey, string(payload)}); err != nil {
		return err
	}
	if s.maxTurns > 0 {
		if _, err := s.exec(ctx, []any{"LTRIM", redisKey, -s.maxTurns, -1}); err != nil {
			return err
		}
	}
	if s.ttl > 0 {
		if _, err := s.exec(ctx, []any{"EXPIRE", redisKey, ttlSeconds(s.ttl)}); err != nil {
			return err
		}
	}
	return nil
}

func (s *UpstashHistoryStore) Recent(ctx context.Context, key ConversationKey, limit int) ([]Turn, error) {
	redisKey, err := s.redisKey(key)
	if err != nil {
		return nil, err
	}
	start := 0
	if limit > 0 {
		start = -limit
	}

	resp, err := s.exec(ctx, []any{"LRANGE", redisKey, start, -1})
	if err != nil {
		return nil, err
	}

	result := bytes.TrimSpace(resp.Result)
	if len(result) == 0 || bytes.Equal(result, []byte("null")) {
		return nil, nil
	}

	var encoded []string
	if err := json.Unmarshal(result, &encoded); err != nil {
		return nil, fmt.Errorf("decode history payload: %w", err)
	}

	turns := make([]Turn, 0, len(encoded))
	for _, item := range encoded {
		var t Turn
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			return nil, fmt.Errorf("unmarshal turn: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, nil
}

func (s *UpstashHistoryStore) Delete(ctx context.Context, key ConversationKey) error {
	redisKey, err := s.redisKey(key)
	if err != nil {
		return err
	}
	_, err = s.exec(ctx, []any{"DEL", redisKey})
	return err
}

func (s *UpstashHistoryStore) redisKey(key ConversationKey) (string, error) {
	if err := key.Validate(); err != nil {
		return "", err
	}
	prefix := strings.TrimSpace(s.keyPrefix)
	if prefix == "" {
		prefix = defaultStoreKeyPrefix
	}
	return prefix + strings.TrimSpace(key.RestaurantID) + ":" + strings.TrimSpace(key.ContactNumber) + ":messages", nil
}

func (s *UpstashHistoryStore) exec(ctx context.Context, command []any) (*redisRESTResponse, error) {
	if s == nil {
		return nil, errors.New("nil store")
	}
	if len(command) == 0 {
		return nil, errors.New("empty redis command")
	}

	body, err := json.Marshal(command)
	if err != nil {
		return nil, fmt.Errorf("marshal redis command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build redis request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute redis request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("read redis response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("redis http status=%d body=%s", resp.StatusCode, string(raw))
	}

	var parsed redisRESTResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode redis response: %w", err)
	}
	if parsed.Error != "" {
		return nil, errors.New(parsed.Error)
	}
	return &parsed, nil
}

func ttlSeconds(ttl time.Duration) int64 {
	seconds := ttl / time.Second
	if seconds <= 0 {
		return 1
	}
	if ttl%time.Second != 0 {
		seconds++
	}
	return int64(seconds)
}
