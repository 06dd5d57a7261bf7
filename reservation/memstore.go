package reservation

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps slots and bookings in process memory. It implements both
// SlotStore and BookingStore; every mutation happens under one lock.
type MemoryStore struct {
	mu       sync.Mutex
	slots    map[SlotKey]AvailabilitySlot
	bookings map[string]Booking
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		slots:    make(map[SlotKey]AvailabilitySlot),
		bookings: make(map[string]Booking),
	}
}

func (m *MemoryStore) ListAvailable(ctx context.Context, storeID, date string, covers int) ([]AvailabilitySlot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []AvailabilitySlot
	for k, s := range m.slots {
		if k.StoreID != storeID || k.Date != date || k.Covers != covers {
			continue
		}
		if !s.IsAvailable || s.AvailableTables <= 0 {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out, nil
}

func (m *MemoryStore) Decrement(ctx context.Context, key SlotKey) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.slots[key]
	if !ok || !s.IsAvailable || s.AvailableTables <= 0 {
		return false, nil
	}
	s.AvailableTables--
	m.slots[key] = s
	return true, nil
}

func (m *MemoryStore) Increment(ctx context.Context, key SlotKey) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.slots[key]
	if !ok || s.AvailableTables >= s.MaxCapacity {
		return false, nil
	}
	s.AvailableTables++
	s.IsAvailable = true
	m.slots[key] = s
	return true, nil
}

func (m *MemoryStore) ReplaceSlots(ctx context.Context, storeID string, slots []AvailabilitySlot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for k := range m.slots {
		if k.StoreID == storeID {
			delete(m.slots, k)
		}
	}
	for _, s := range slots {
		if s.StoreID != storeID {
			return fmt.Errorf("slot %s does not belong to store %s", s.Key(), storeID)
		}
		m.slots[s.Key()] = s
	}
	return nil
}

// Slot returns a copy of one slot.
func (m *MemoryStore) Slot(key SlotKey) (AvailabilitySlot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[key]
	return s, ok
}

// PutSlot inserts or overwrites a single slot.
func (m *MemoryStore) PutSlot(s AvailabilitySlot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[s.Key()] = s
}

func (m *MemoryStore) InsertBooking(ctx context.Context, b Booking) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.bookings[b.BookingID]; exists {
		return fmt.Errorf("insert %s: %w", b.BookingID, ErrDuplicateBooking)
	}
	m.bookings[b.BookingID] = b
	return nil
}

func (m *MemoryStore) GetBooking(ctx context.Context, bookingID string) (Booking, error) {
	if err := ctx.Err(); err != nil {
		return Booking{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.bookings[bookingID]
	if !ok {
		return Booking{}, ErrBookingNotFound
	}
	return b, nil
}

func (m *MemoryStore) MarkCancelled(ctx context.Context, bookingID string, at time.Time, reason string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.bookings[bookingID]
	if !ok || b.Status != BookingConfirmed {
		return false, nil
	}
	b.Status = BookingCancelled
	b.CancelledAt = &at
	b.CancellationReason = reason
	m.bookings[bookingID] = b
	return true, nil
}
