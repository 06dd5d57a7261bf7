// Package pgstore persists slots and bookings in Postgres through bun.
package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/tanpawarit/table-reservation-agent/pkg/database"
	"github.com/tanpawarit/table-reservation-agent/reservation"
)

const insertBatchSize = 1000

type Store struct {
	db bun.IDB
}

var (
	_ reservation.SlotStore    = (*Store)(nil)
	_ reservation.BookingStore = (*Store)(nil)
)

func New(db bun.IDB) *Store {
	return &Store{db: db}
}

func whereSlot(q *bun.UpdateQuery, key reservation.SlotKey) *bun.UpdateQuery {
	return q.
		Where("a.store_id = ?", key.StoreID).
		Where("a.date = ?", key.Date).
		Where("a.time = ?", key.Time).
		Where("a.covers = ?", key.Covers)
}

func (s *Store) ListAvailable(ctx context.Context, storeID, date string, covers int) ([]reservation.AvailabilitySlot, error) {
	var rows []slotRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("a.store_id = ?", storeID).
		Where("a.date = ?", date).
		Where("a.covers = ?", covers).
		Where("a.is_available").
		Where("a.available_tables > 0").
		Order("a.time ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select availability: %w", err)
	}

	out := make([]reservation.AvailabilitySlot, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *Store) Decrement(ctx context.Context, key reservation.SlotKey) (bool, error) {
	res, err := s.decrementQuery(key).Exec(ctx)
	return affected(res, err, "decrement availability")
}

// decrementQuery matches only an open slot with a table left, so concurrent
// callers cannot drive the counter below zero.
func (s *Store) decrementQuery(key reservation.SlotKey) *bun.UpdateQuery {
	q := s.db.NewUpdate().
		Model((*slotRow)(nil)).
		Set("available_tables = available_tables - 1")
	return whereSlot(q, key).
		Where("a.is_available").
		Where("a.available_tables > 0")
}

func (s *Store) Increment(ctx context.Context, key reservation.SlotKey) (bool, error) {
	q := s.db.NewUpdate().
		Model((*slotRow)(nil)).
		Set("available_tables = available_tables + 1").
		Set("is_available = TRUE")
	res, err := whereSlot(q, key).
		Where("a.available_tables < a.max_capacity").
		Exec(ctx)
	return affected(res, err, "increment availability")
}

func (s *Store) ReplaceSlots(ctx context.Context, storeID string, slots []reservation.AvailabilitySlot) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*slotRow)(nil)).
			Where("store_id = ?", storeID).
			Exec(ctx); err != nil {
			return fmt.Errorf("clear availability: %w", err)
		}

		for start := 0; start < len(slots); start += insertBatchSize {
			end := min(start+insertBatchSize, len(slots))
			rows := make([]slotRow, 0, end-start)
			for _, sl := range slots[start:end] {
				if sl.StoreID != storeID {
					return fmt.Errorf("slot %s does not belong to store %s", sl.Key(), storeID)
				}
				rows = append(rows, slotFromDomain(sl))
			}
			if _, err := tx.NewInsert().Model(&rows).Exec(ctx); err != nil {
				return fmt.Errorf("insert availability: %w", err)
			}
		}
		return nil
	})
}

func (s *Store) InsertBooking(ctx context.Context, b reservation.Booking) error {
	row := bookingFromDomain(b)
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("insert %s: %w", b.BookingID, reservation.ErrDuplicateBooking)
		}
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

func (s *Store) GetBooking(ctx context.Context, bookingID string) (reservation.Booking, error) {
	var row bookingRow
	err := s.db.NewSelect().
		Model(&row).
		Where("b.booking_id = ?", bookingID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return reservation.Booking{}, reservation.ErrBookingNotFound
	}
	if err != nil {
		return reservation.Booking{}, fmt.Errorf("select booking: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) MarkCancelled(ctx context.Context, bookingID string, at time.Time, reason string) (bool, error) {
	res, err := s.db.NewUpdate().
		Model((*bookingRow)(nil)).
		Set("status = ?", string(reservation.BookingCancelled)).
		Set("cancelled_at = ?", at).
		Set("cancellation_reason = ?", reason).
		Where("b.booking_id = ?", bookingID).
		Where("b.status = ?", string(reservation.BookingConfirmed)).
		Exec(ctx)
	return affected(res, err, "cancel booking")
}

func affected(res sql.Result, err error, op string) (bool, error) {
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: rows affected: %w", op, err)
	}
	return n > 0, nil
}
