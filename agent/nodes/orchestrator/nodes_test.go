package orchestratornode

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tanpawarit/table-reservation-agent/agent/agents/assistant"
	contractx "github.com/tanpawarit/table-reservation-agent/agent/contract"
	statex "github.com/tanpawarit/table-reservation-agent/agent/state"
)

type brokenHistory struct{}

func (brokenHistory) Append(context.Context, statex.ConversationKey, statex.Turn) error {
	return errors.New("history down")
}

func (brokenHistory) Recent(context.Context, statex.ConversationKey, int) ([]statex.Turn, error) {
	return nil, errors.New("history down")
}

func (brokenHistory) Delete(context.Context, statex.ConversationKey) error { return nil }

func TestValidateRequest(t *testing.T) {
	t.Parallel()

	now := func() time.Time { return time.Date(2026, 5, 31, 12, 0, 0, 0, time.UTC) }

	cases := []struct {
		name string
		in   GraphInput
		want error
	}{
		{name: "empty text", in: GraphInput{ContactNumber: "1", RestaurantID: "r", Text: "  "}, want: ErrInvalidMessage},
		{name: "no contact", in: GraphInput{RestaurantID: "r", Text: "hi"}, want: ErrInvalidContact},
		{name: "no restaurant", in: GraphInput{ContactNumber: "1", Text: "hi"}, want: ErrInvalidRestaurant},
	}
	for _, tc := range cases {
		if _, err := ValidateRequest(tc.in, now); !errors.Is(err, tc.want) {
			t.Fatalf("%s: error = %v, want %v", tc.name, err, tc.want)
		}
	}

	st, err := ValidateRequest(GraphInput{MessageID: "m1", ContactNumber: " 98 ", RestaurantID: "r1", Text: " hi "}, now)
	if err != nil {
		t.Fatalf("ValidateRequest() error = %v", err)
	}
	if st.Key.ContactNumber != "98" || st.Text != "hi" || !st.Now.Equal(now()) {
		t.Fatalf("unexpected state: %+v", st)
	}
}

func TestLoadHistoryFallsBackToCurrentMessage(t *testing.T) {
	t.Parallel()

	st := &GraphState{Key: statex.ConversationKey{ContactNumber: "1", RestaurantID: "r"}, Text: "table for 2"}
	if _, err := RecordUserTurn(context.Background(), st, brokenHistory{}); err != nil {
		t.Fatalf("RecordUserTurn() error = %v", err)
	}
	st, err := LoadHistory(context.Background(), st, brokenHistory{}, 5)
	if err != nil {
		t.Fatalf("LoadHistory() error = %v", err)
	}
	if len(st.History) != 1 || st.History[0].Content != "table for 2" {
		t.Fatalf("unexpected history: %+v", st.History)
	}
}

func TestLoadHistoryDoesNotDuplicateStoredMessage(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := statex.NewMemoryHistory()
	key := statex.ConversationKey{ContactNumber: "1", RestaurantID: "r"}
	_ = h.Append(ctx, key, statex.Turn{Role: contractx.RoleUser, Content: "hi"})
	_ = h.Append(ctx, key, statex.Turn{Role: contractx.RoleAssistant, Content: "hello"})

	st := &GraphState{Key: key, Text: "book a table"}
	st, _ = RecordUserTurn(ctx, st, h)
	st, _ = LoadHistory(ctx, st, h, 5)
	if len(st.History) != 3 || st.History[2].Content != "book a table" {
		t.Fatalf("unexpected history: %+v", st.History)
	}
}

func TestBuildPromptRejectsEmpty(t *testing.T) {
	t.Parallel()

	_, err := BuildPrompt(&GraphState{}, func(time.Time) string { return " " })
	if !errors.Is(err, contractx.ErrPromptMissing) {
		t.Fatalf("BuildPrompt() error = %v, want ErrPromptMissing", err)
	}
}

func TestFinalizeReply(t *testing.T) {
	t.Parallel()

	out, err := FinalizeReply(&GraphState{MessageID: "m1", Result: assistant.Result{Reply: " ok ", Iterations: 2}})
	if err != nil {
		t.Fatalf("FinalizeReply() error = %v", err)
	}
	if out.Reply != "ok" || out.MessageID != "m1" || out.Iterations != 2 {
		t.Fatalf("unexpected output: %+v", out)
	}

	out, _ = FinalizeReply(&GraphState{})
	if out.Reply != assistant.ApologyReply {
		t.Fatalf("empty reply should become apology, got %q", out.Reply)
	}
	if _, err := FinalizeReply(nil); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("FinalizeReply(nil) error = %v", err)
	}
}
