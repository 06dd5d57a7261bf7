package reservation

import (
	"context"
	"time"
)

// SlotStore persists availability counters. Decrement and Increment must be
// single conditional updates so concurrent callers never overdraw a slot.
type SlotStore interface {
	// ListAvailable returns slots for the key prefix that are open and have at
	// least one table left.
	ListAvailable(ctx context.Context, storeID, date string, covers int) ([]AvailabilitySlot, error)
	// Decrement takes one table when is_available and available_tables > 0. It reports false
	// when no slot matched (missing, closed or exhausted).
	Decrement(ctx context.Context, key SlotKey) (bool, error)
	// Increment returns one table and reopens the slot when
	// available_tables < max_capacity. It reports false when no slot matched.
	Increment(ctx context.Context, key SlotKey) (bool, error)
	// ReplaceSlots drops every slot of storeID and inserts slots.
	ReplaceSlots(ctx context.Context, storeID string, slots []AvailabilitySlot) error
}

type BookingStore interface {
	InsertBooking(ctx context.Context, b Booking) error
	// GetBooking returns ErrBookingNotFound when the id is unknown.
	GetBooking(ctx context.Context, bookingID string) (Booking, error)
	// MarkCancelled moves a confirmed booking to cancelled. It reports false
	// when the booking was not in confirmed status.
	MarkCancelled(ctx context.Context, bookingID string, at time.Time, reason string) (bool, error)
}
