package reservation

import (
	"fmt"
	"time"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"

	DefaultStoreID         = "2u8zw0on"
	DefaultDurationMinutes = 60
	DefaultCancelReason    = "User requested cancellation"
	defaultISDPrefix       = "+91"
)

// DefaultLocation is the operating timezone: a fixed +05:30 offset with no DST.
var DefaultLocation = time.FixedZone("IST", int((5*time.Hour + 30*time.Minute).Seconds()))

type BookingStatus string

const (
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

type DayType string

const (
	DayTypeWeekday DayType = "weekday"
	DayTypeWeekend DayType = "weekend"
)

// SlotKey addresses exactly one availability slot.
type SlotKey struct {
	StoreID string
	Date    string
	Time    string
	Covers  int
}

func (k SlotKey) String() string {
	return fmt.Sprintf("%s/%s/%s/%d", k.StoreID, k.Date, k.Time, k.Covers)
}

// AvailabilitySlot tracks how many tables of one party size are still free at a
// given date and time. 0 <= AvailableTables <= MaxCapacity.
type AvailabilitySlot struct {
	StoreID         string    `json:"store_id"`
	Date            string    `json:"date"`
	Time            string    `json:"time"`
	Covers          int       `json:"covers"`
	IsAvailable     bool      `json:"is_available"`
	AvailableTables int       `json:"available_tables"`
	MaxCapacity     int       `json:"max_capacity"`
	DayType         DayType   `json:"day_type"`
	CreatedAt       time.Time `json:"created_at"`
}

func (s AvailabilitySlot) Key() SlotKey {
	return SlotKey{StoreID: s.StoreID, Date: s.Date, Time: s.Time, Covers: s.Covers}
}

type CustomerDetails struct {
	Name                     string `json:"name"`
	ContactNumber            string `json:"contact_number"`
	EmailAddress             string `json:"email_address"`
	ContactNumberWithISDCode string `json:"contact_number_with_isd_code"`
}

type ReservationDetails struct {
	Date     string   `json:"date"`
	Time     string   `json:"time"`
	Covers   int      `json:"covers"`
	Duration int      `json:"duration"`
	Notes    []string `json:"notes"`
}

type Booking struct {
	BookingID          string             `json:"booking_id"`
	Status             BookingStatus      `json:"status"`
	Customer           CustomerDetails    `json:"customer_details"`
	Reservation        ReservationDetails `json:"reservation_details"`
	StoreID            string             `json:"store_id"`
	CreatedAt          time.Time          `json:"created_at"`
	SlotStartTime      int64              `json:"slot_start_time"`
	CancelledAt        *time.Time         `json:"cancelled_at,omitempty"`
	CancellationReason string             `json:"cancellation_reason,omitempty"`
}

// SlotKey returns the slot this booking consumed capacity from.
func (b Booking) SlotKey() SlotKey {
	return SlotKey{
		StoreID: b.StoreID,
		Date:    b.Reservation.Date,
		Time:    b.Reservation.Time,
		Covers:  b.Reservation.Covers,
	}
}

func withISDCode(phone string) string {
	if len(phone) > 0 && phone[0] == '+' {
		return phone
	}
	return defaultISDPrefix + phone
}
