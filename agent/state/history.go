package state

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	contractx "github.com/tanpawarit/table-reservation-agent/agent/contract"
)

const DefaultHistoryWindow = 5

var ErrInvalidConversation = errors.New("conversation key requires contact number and restaurant id")

// ConversationKey identifies one guest's thread with one restaurant.
type ConversationKey struct {
	ContactNumber string
	RestaurantID  string
}

func (k ConversationKey) Validate() error {
	if strings.TrimSpace(k.ContactNumber) == "" || strings.TrimSpace(k.RestaurantID) == "" {
		return ErrInvalidConversation
	}
	return nil
}

type Turn struct {
	Role      contractx.Role `json:"role"`
	Content   string         `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
}

// HistoryStore is the append-only conversation log.
type HistoryStore interface {
	Append(ctx context.Context, key ConversationKey, turn Turn) error
	// Recent returns at most limit turns, oldest first.
	Recent(ctx context.Context, key ConversationKey, limit int) ([]Turn, error)
	Delete(ctx context.Context, key ConversationKey) error
}

// ToMessages converts stored turns into model messages.
func ToMessages(turns []Turn) []contractx.Message {
	out := make([]contractx.Message, 0, len(turns))
	for _, t := range turns {
		out = append(out, contractx.Message{Role: t.Role, Content: t.Content})
	}
	return out
}

func lastN(turns []Turn, limit int) []Turn {
	if limit <= 0 || len(turns) <= limit {
		return append([]Turn(nil), turns...)
	}
	return append([]Turn(nil), turns[len(turns)-limit:]...)
}

// MemoryHistory keeps conversations in process memory.
type MemoryHistory struct {
	mu    sync.RWMutex
	turns map[ConversationKey][]Turn
}

var _ HistoryStore = (*MemoryHistory)(nil)

func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{turns: make(map[ConversationKey][]Turn)}
}

func (m *MemoryHistory) Append(ctx context.Context, key ConversationKey, turn Turn) error {
	if err := key.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns[key] = append(m.turns[key], turn)
	return nil
}

func (m *MemoryHistory) Recent(ctx context.Context, key ConversationKey, limit int) ([]Turn, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return lastN(m.turns[key], limit), nil
}

func (m *MemoryHistory) Delete(ctx context.Context, key ConversationKey) error {
	if err := key.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.turns, key)
	return nil
}
