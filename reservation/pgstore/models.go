package pgstore

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/tanpawarit/table-reservation-agent/reservation"
)

type slotRow struct {
	bun.BaseModel `bun:"table:availability,alias:a"`

	ID              int64     `bun:"id,pk,autoincrement"`
	StoreID         string    `bun:"store_id,notnull"`
	Date            string    `bun:"date,notnull"`
	Time            string    `bun:"time,notnull"`
	Covers          int       `bun:"covers,notnull"`
	IsAvailable     bool      `bun:"is_available,notnull"`
	AvailableTables int       `bun:"available_tables,notnull"`
	MaxCapacity     int       `bun:"max_capacity,notnull"`
	DayType         string    `bun:"day_type,notnull"`
	CreatedAt       time.Time `bun:"created_at,notnull"`
}

func (r slotRow) toDomain() reservation.AvailabilitySlot {
	return reservation.AvailabilitySlot{
		StoreID:         r.StoreID,
		Date:            r.Date,
		Time:            r.Time,
		Covers:          r.Covers,
		IsAvailable:     r.IsAvailable,
		AvailableTables: r.AvailableTables,
		MaxCapacity:     r.MaxCapacity,
		DayType:         reservation.DayType(r.DayType),
		CreatedAt:       r.CreatedAt,
	}
}

func slotFromDomain(s reservation.AvailabilitySlot) slotRow {
	return slotRow{
		StoreID:         s.StoreID,
		Date:            s.Date,
		Time:            s.Time,
		Covers:          s.Covers,
		IsAvailable:     s.IsAvailable,
		AvailableTables: s.AvailableTables,
		MaxCapacity:     s.MaxCapacity,
		DayType:         string(s.DayType),
		CreatedAt:       s.CreatedAt,
	}
}

type bookingRow struct {
	bun.BaseModel `bun:"table:bookings,alias:b"`

	ID                 int64                          `bun:"id,pk,autoincrement"`
	BookingID          string                         `bun:"booking_id,notnull,unique"`
	Status             string                         `bun:"status,notnull"`
	CustomerDetails    reservation.CustomerDetails    `bun:"customer_details,type:jsonb,notnull"`
	ReservationDetails reservation.ReservationDetails `bun:"reservation_details,type:jsonb,notnull"`
	StoreID            string                         `bun:"store_id,notnull"`
	CreatedAt          time.Time                      `bun:"created_at,notnull"`
	SlotStartTime      int64                          `bun:"slot_start_time,notnull"`
	CancelledAt        *time.Time                     `bun:"cancelled_at"`
	CancellationReason string                         `bun:"cancellation_reason,nullzero"`
}

func (r bookingRow) toDomain() reservation.Booking {
	return reservation.Booking{
		BookingID:          r.BookingID,
		Status:             reservation.BookingStatus(r.Status),
		Customer:           r.CustomerDetails,
		Reservation:        r.ReservationDetails,
		StoreID:            r.StoreID,
		CreatedAt:          r.CreatedAt,
		SlotStartTime:      r.SlotStartTime,
		CancelledAt:        r.CancelledAt,
		CancellationReason: r.CancellationReason,
	}
}

func bookingFromDomain(b reservation.Booking) bookingRow {
	return bookingRow{
		BookingID:          b.BookingID,
		Status:             string(b.Status),
		CustomerDetails:    b.Customer,
		ReservationDetails: b.Reservation,
		StoreID:            b.StoreID,
		CreatedAt:          b.CreatedAt,
		SlotStartTime:      b.SlotStartTime,
		CancelledAt:        b.CancelledAt,
		CancellationReason: b.CancellationReason,
	}
}
