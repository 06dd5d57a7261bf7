package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tanpawarit/table-reservation-agent/agent/agents/assistant"
	contractx "github.com/tanpawarit/table-reservation-agent/agent/contract"
	nodex "github.com/tanpawarit/table-reservation-agent/agent/nodes/orchestrator"
	statex "github.com/tanpawarit/table-reservation-agent/agent/state"
	toolx "github.com/tanpawarit/table-reservation-agent/agent/tool"
	"github.com/tanpawarit/table-reservation-agent/reservation"
)

type fakeAgent struct {
	mu      sync.Mutex
	reply   string
	prompts []string
	seen    [][]contractx.Message
}

func (f *fakeAgent) Run(ctx context.Context, systemPrompt string, history []contractx.Message) assistant.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, systemPrompt)
	f.seen = append(f.seen, append([]contractx.Message(nil), history...))
	return assistant.Result{Reply: f.reply, State: assistant.StateDone, Reason: assistant.StopFinalAnswer, Iterations: 1}
}

type failingHistory struct{}

func (failingHistory) Append(context.Context, statex.ConversationKey, statex.Turn) error {
	return errors.New("redis unavailable")
}

func (failingHistory) Recent(context.Context, statex.ConversationKey, int) ([]statex.Turn, error) {
	return nil, errors.New("redis unavailable")
}

func (failingHistory) Delete(context.Context, statex.ConversationKey) error { return nil }

func staticPrompt(now time.Time) string {
	return "You are a host. Now: " + now.Format(time.RFC3339)
}

func newTestOrchestrator(t *testing.T, history statex.HistoryStore, agent nodex.AgentRunner, cfg Config) *Orchestrator {
	t.Helper()
	o, err := New(history, agent, staticPrompt, cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	o.now = func() time.Time { return time.Date(2026, 5, 31, 6, 30, 0, 0, time.UTC) }
	return o
}

func request(text string) Request {
	return Request{MessageID: "m-1", ContactNumber: "9876543210", RestaurantID: "r1", Text: text}
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	if _, err := New(nil, &fakeAgent{}, staticPrompt, Config{}); err == nil {
		t.Fatal("expected error for missing history")
	}
	if _, err := New(statex.NewMemoryHistory(), nil, staticPrompt, Config{}); err == nil {
		t.Fatal("expected error for missing agent")
	}
	if _, err := New(statex.NewMemoryHistory(), &fakeAgent{}, nil, Config{}); err == nil {
		t.Fatal("expected error for missing prompt")
	}
}

func TestHandleMessageInvalidInput(t *testing.T) {
	t.Parallel()

	o := newTestOrchestrator(t, statex.NewMemoryHistory(), &fakeAgent{reply: "hi"}, Config{})

	_, err := o.HandleMessage(context.Background(), request("   "))
	if !errors.Is(err, ErrInvalidMessage) {
		t.Fatalf("expected ErrInvalidMessage, got %v", err)
	}

	req := request("hello")
	req.ContactNumber = ""
	_, err = o.HandleMessage(context.Background(), req)
	if !errors.Is(err, ErrInvalidContact) {
		t.Fatalf("expected ErrInvalidContact, got %v", err)
	}
}

func TestHandleMessageRecordsConversation(t *testing.T) {
	t.Parallel()

	history := statex.NewMemoryHistory()
	agent := &fakeAgent{reply: "Sure, for how many guests?"}
	o := newTestOrchestrator(t, history, agent, Config{})

	out, err := o.HandleMessage(context.Background(), request("I want a table tomorrow"))
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if out.Reply != "Sure, for how many guests?" || out.MessageID != "m-1" || out.Reason != assistant.StopFinalAnswer {
		t.Fatalf("unexpected reply: %+v", out)
	}
	if !strings.Contains(agent.prompts[0], "2026-05-31T06:30:00Z") {
		t.Fatalf("prompt missing time: %q", agent.prompts[0])
	}

	key := statex.ConversationKey{ContactNumber: "9876543210", RestaurantID: "r1"}
	turns, _ := history.Recent(context.Background(), key, 10)
	if len(turns) != 2 || turns[0].Role != contractx.RoleUser || turns[1].Content != "Sure, for how many guests?" {
		t.Fatalf("unexpected stored turns: %+v", turns)
	}
}

func TestHandleMessageUsesHistoryWindow(t *testing.T) {
	t.Parallel()

	history := statex.NewMemoryHistory()
	agent := &fakeAgent{reply: "ok"}
	o := newTestOrchestrator(t, history, agent, Config{HistoryWindow: 3})

	for _, text := range []string{"one", "two", "three"} {
		if _, err := o.HandleMessage(context.Background(), request(text)); err != nil {
			t.Fatalf("HandleMessage(%q) error = %v", text, err)
		}
	}

	last := agent.seen[len(agent.seen)-1]
	if len(last) != 3 {
		t.Fatalf("expected a 3-turn window, got %+v", last)
	}
	if last[0].Content != "two" || last[1].Content != "ok" || last[2].Content != "three" {
		t.Fatalf("unexpected window: %+v", last)
	}
}

func TestHandleMessageToleratesHistoryFailure(t *testing.T) {
	t.Parallel()

	agent := &fakeAgent{reply: "We have tables at 7 PM."}
	o := newTestOrchestrator(t, failingHistory{}, agent, Config{})

	out, err := o.HandleMessage(context.Background(), request("Any tables tonight?"))
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if out.Reply != "We have tables at 7 PM." {
		t.Fatalf("unexpected reply: %+v", out)
	}
	if len(agent.seen[0]) != 1 || agent.seen[0][0].Content != "Any tables tonight?" {
		t.Fatalf("agent should still see the current message: %+v", agent.seen[0])
	}
}

func TestReset(t *testing.T) {
	t.Parallel()

	history := statex.NewMemoryHistory()
	o := newTestOrchestrator(t, history, &fakeAgent{reply: "ok"}, Config{})
	if _, err := o.HandleMessage(context.Background(), request("hi")); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if err := o.Reset(context.Background(), "9876543210", "r1"); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	turns, _ := history.Recent(context.Background(), statex.ConversationKey{ContactNumber: "9876543210", RestaurantID: "r1"}, 5)
	if len(turns) != 0 {
		t.Fatalf("expected empty history, got %+v", turns)
	}
}

// scriptModel answers each call with the next message in line.
type scriptModel struct {
	mu      sync.Mutex
	replies []contractx.Message
}

func (m *scriptModel) Generate(ctx context.Context, req contractx.ModelRequest) (contractx.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.replies) == 0 {
		return contractx.Message{}, errors.New("script exhausted")
	}
	next := m.replies[0]
	m.replies = m.replies[1:]
	return next, nil
}

func TestBookingConversationEndToEnd(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 31, 12, 0, 0, 0, reservation.DefaultLocation)
	clock := func() time.Time { return now }
	store := reservation.NewMemoryStore()
	key := reservation.SlotKey{StoreID: reservation.DefaultStoreID, Date: "2026-06-01", Time: "18:00", Covers: 4}
	store.PutSlot(reservation.AvailabilitySlot{
		StoreID: key.StoreID, Date: key.Date, Time: key.Time, Covers: key.Covers,
		IsAvailable: true, AvailableTables: 15, MaxCapacity: 15, DayType: reservation.DayTypeWeekday,
	})
	slots := reservation.NewSlotLedger(store, reservation.DefaultStoreID, reservation.WithClock(clock))
	bookings := reservation.NewBookingLedger(slots, store, reservation.WithIDGenerator(func(time.Time) string { return "BK-1-abcd" }))
	dispatcher := toolx.NewDispatcher(slots, bookings)

	model := &scriptModel{replies: []contractx.Message{
		{Role: contractx.RoleAssistant, ToolCalls: []contractx.ToolCall{{
			ID: "c1", Name: toolx.ToolCreateBooking,
			Arguments: `{"name":"Asha","phone":"9876543210","email":"asha@example.com","date":"2026-06-01","time":"18:00","covers":4}`,
		}}},
		{Role: contractx.RoleAssistant, Content: "Booked! Your id is BK-1-abcd."},
	}}
	loop, err := assistant.New(model, dispatcher, dispatcher.Definitions(), assistant.Config{})
	if err != nil {
		t.Fatalf("assistant.New() error = %v", err)
	}

	o := newTestOrchestrator(t, statex.NewMemoryHistory(), loop, Config{})
	out, err := o.HandleMessage(context.Background(), request("Book 4 at 6pm tomorrow, Asha, 9876543210, asha@example.com"))
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if out.Reply != "Booked! Your id is BK-1-abcd." || out.ToolCalls != 1 {
		t.Fatalf("unexpected reply: %+v", out)
	}
	if s, _ := store.Slot(key); s.AvailableTables != 14 {
		t.Fatalf("available tables = %d, want 14", s.AvailableTables)
	}
}
