package prompt

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/table-reservation-agent/agent/contract"
	"github.com/tanpawarit/table-reservation-agent/reservation"
)

const (
	currentTimePlaceholder = "{current_time}"
	currentTimeLayout      = "2006-01-02 15:04:05"
)

var (
	//go:embed template/system.txt
	systemRaw string

	//go:embed template/restaurant.json
	restaurantRaw []byte
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	System     string
	Restaurant string
}

// Profile is the subset of restaurant data the server reads itself.
type Profile struct {
	Name           string                     `json:"name"`
	OperatingHours reservation.OperatingHours `json:"operating_hours"`
}

// LoadPromptSet returns the system template with the restaurant data
// indented as JSON.
func LoadPromptSet() (PromptSet, error) {
	system := strings.TrimSpace(systemRaw)
	if system == "" {
		return PromptSet{}, fmt.Errorf("%w: system", contractx.ErrPromptMissing)
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, bytes.TrimSpace(restaurantRaw), "", "  "); err != nil {
		return PromptSet{}, fmt.Errorf("%w: restaurant data: %v", contractx.ErrPromptMissing, err)
	}
	return PromptSet{System: system, Restaurant: buf.String()}, nil
}

// Render fills the current time in the operating timezone and appends the
// restaurant data.
func (p PromptSet) Render(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = reservation.DefaultLocation
	}
	system := strings.ReplaceAll(p.System, currentTimePlaceholder, now.In(loc).Format(currentTimeLayout))
	if p.Restaurant == "" {
		return system
	}
	return system + "\n---\n## RESTAURANT DATA:\n" + p.Restaurant
}

func LoadProfile() (Profile, error) {
	var p Profile
	if err := json.Unmarshal(restaurantRaw, &p); err != nil {
		return Profile{}, fmt.Errorf("decode restaurant data: %w", err)
	}
	return p, nil
}
