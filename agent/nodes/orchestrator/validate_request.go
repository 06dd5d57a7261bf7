package orchestratornode

import (
	"strings"
	"time"

	statex "github.com/tanpawarit/table-reservation-agent/agent/state"
)

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, ErrInvalidMessage
	}

	contact := strings.TrimSpace(in.ContactNumber)
	if contact == "" {
		return nil, ErrInvalidContact
	}

	restaurant := strings.TrimSpace(in.RestaurantID)
	if restaurant == "" {
		return nil, ErrInvalidRestaurant
	}

	return &GraphState{
		MessageID: strings.TrimSpace(in.MessageID),
		Key:       statex.ConversationKey{ContactNumber: contact, RestaurantID: restaurant},
		Text:      text,
		Now:       nowFn().UTC(),
	}, nil
}
