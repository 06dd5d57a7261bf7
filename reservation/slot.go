package reservation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// SlotQuery asks for open slots of one party size within a closed time window.
type SlotQuery struct {
	Date      string
	StartTime string
	EndTime   string
	Covers    int
}

type SlotAvailability struct {
	Time            string `json:"time"`
	TablesAvailable int    `json:"tables_available"`
	Explanation     string `json:"explanation"`
}

// InventoryResult is the check_inventory envelope handed back to the model.
type InventoryResult struct {
	SlotDetails  []SlotAvailability `json:"slot_details"`
	Date         string             `json:"date,omitempty"`
	Covers       int                `json:"covers,omitempty"`
	TotalSlots   int                `json:"total_slots"`
	Message      string             `json:"human_readable_message,omitempty"`
	Error        string             `json:"error,omitempty"`
	ResultStatus string             `json:"status,omitempty"`
}

type SlotLedger struct {
	store   SlotStore
	storeID string
	opts    options
}

func NewSlotLedger(store SlotStore, storeID string, opts ...Option) *SlotLedger {
	if strings.TrimSpace(storeID) == "" {
		storeID = DefaultStoreID
	}
	return &SlotLedger{store: store, storeID: storeID, opts: buildOptions(opts)}
}

func (l *SlotLedger) StoreID() string { return l.storeID }

func (l *SlotLedger) Location() *time.Location { return l.opts.loc }

// Key builds the slot key for this ledger's store.
func (l *SlotLedger) Key(date, hhmm string, covers int) SlotKey {
	return SlotKey{StoreID: l.storeID, Date: date, Time: hhmm, Covers: covers}
}

// LocalTime interprets date and hhmm in the operating timezone.
func (l *SlotLedger) LocalTime(date, hhmm string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout+" "+TimeLayout, strings.TrimSpace(date)+" "+strings.TrimSpace(hhmm), l.opts.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q time %q must be YYYY-MM-DD and HH:MM", ErrInvalidInput, date, hhmm)
	}
	return t, nil
}

// Query lists bookable slots inside [StartTime, EndTime] that are strictly in
// the future, sorted by time.
func (l *SlotLedger) Query(ctx context.Context, q SlotQuery) ([]SlotAvailability, error) {
	if q.Covers <= 0 {
		return nil, fmt.Errorf("%w: covers must be positive", ErrInvalidInput)
	}
	start, err := l.LocalTime(q.Date, q.StartTime)
	if err != nil {
		return nil, err
	}
	end, err := l.LocalTime(q.Date, q.EndTime)
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end_time %s is before start_time %s", ErrInvalidInput, q.EndTime, q.StartTime)
	}

	slots, err := l.store.ListAvailable(ctx, l.storeID, strings.TrimSpace(q.Date), q.Covers)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}

	now := l.opts.now().In(l.opts.loc)
	out := make([]SlotAvailability, 0, len(slots))
	for _, s := range slots {
		if !s.IsAvailable || s.AvailableTables <= 0 {
			continue
		}
		at, err := l.LocalTime(s.Date, s.Time)
		if err != nil {
			log.Ctx(ctx).Warn().Str("slot", s.Key().String()).Msg("skipping slot with malformed time")
			continue
		}
		if at.Before(start) || at.After(end) || !at.After(now) {
			continue
		}
		out = append(out, SlotAvailability{
			Time:            s.Time,
			TablesAvailable: s.AvailableTables,
			Explanation:     fmt.Sprintf("%d tables available for %d guests at %s", s.AvailableTables, s.Covers, s.Time),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out, nil
}

// CheckInventory wraps Query in the envelope returned to the model. It never
// fails; errors are reported inside the envelope.
func (l *SlotLedger) CheckInventory(ctx context.Context, q SlotQuery) InventoryResult {
	slots, err := l.Query(ctx, q)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("date", q.Date).Int("covers", q.Covers).Msg("inventory query failed")
		return InventoryResult{
			SlotDetails:  []SlotAvailability{},
			Error:        err.Error(),
			ResultStatus: ResultFailed,
		}
	}
	res := InventoryResult{
		SlotDetails: slots,
		Date:        q.Date,
		Covers:      q.Covers,
		TotalSlots:  len(slots),
	}
	if len(slots) == 0 {
		res.Message = fmt.Sprintf("No tables available for %d guests on %s between %s and %s", q.Covers, q.Date, q.StartTime, q.EndTime)
	} else {
		times := make([]string, 0, len(slots))
		for _, s := range slots {
			times = append(times, s.Time)
		}
		res.Message = fmt.Sprintf("Found %d available slots for %d guests on %s: %s", len(slots), q.Covers, q.Date, strings.Join(times, ", "))
	}
	return res
}

// Decrement takes one table from the slot. A missing, closed or exhausted slot yields
// ErrNoCapacity.
func (l *SlotLedger) Decrement(ctx context.Context, key SlotKey) error {
	ok, err := l.store.Decrement(ctx, key)
	if err != nil {
		return fmt.Errorf("decrement %s: %w", key, err)
	}
	if !ok {
		return fmt.Errorf("decrement %s: %w", key, ErrNoCapacity)
	}
	return nil
}

// Increment returns one table to the slot and reopens it.
func (l *SlotLedger) Increment(ctx context.Context, key SlotKey) error {
	ok, err := l.store.Increment(ctx, key)
	if err != nil {
		return fmt.Errorf("increment %s: %w", key, err)
	}
	if !ok {
		return fmt.Errorf("increment %s: %w", key, ErrSlotNotFound)
	}
	return nil
}

func isCapacityError(err error) bool {
	return errors.Is(err, ErrNoCapacity)
}
