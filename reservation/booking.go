package reservation

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Result statuses reported in tool envelopes.
const (
	ResultSuccess          = "success"
	ResultFailed           = "failed"
	ResultNotFound         = "not_found"
	ResultUnavailable      = "unavailable"
	ResultAlreadyCancelled = "already_cancelled"
)

type CreateBookingInput struct {
	Name   string
	Phone  string
	Email  string
	Date   string
	Time   string
	Covers int
	Notes  []string
}

func (in CreateBookingInput) normalized() CreateBookingInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = strings.TrimSpace(in.Email)
	in.Date = strings.TrimSpace(in.Date)
	in.Time = strings.TrimSpace(in.Time)
	return in
}

func (in CreateBookingInput) validate() error {
	var missing []string
	if in.Name == "" {
		missing = append(missing, "name")
	}
	if in.Phone == "" {
		missing = append(missing, "phone")
	}
	if in.Email == "" {
		missing = append(missing, "email")
	}
	if in.Date == "" {
		missing = append(missing, "date")
	}
	if in.Time == "" {
		missing = append(missing, "time")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidInput, strings.Join(missing, ", "))
	}
	if in.Covers <= 0 {
		return fmt.Errorf("%w: covers must be positive", ErrInvalidInput)
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return fmt.Errorf("%w: email %q is not valid", ErrInvalidInput, in.Email)
	}
	return nil
}

type BookingResult struct {
	Status              string `json:"status"`
	BookingID           string `json:"booking_id,omitempty"`
	ConfirmationMessage string `json:"confirmation_message,omitempty"`
	CustomerName        string `json:"customer_name,omitempty"`
	Date                string `json:"date,omitempty"`
	Time                string `json:"time,omitempty"`
	Covers              int    `json:"covers,omitempty"`
	Message             string `json:"message,omitempty"`
	Error               string `json:"error,omitempty"`
}

type CancelResult struct {
	Status    string `json:"status"`
	BookingID string `json:"booking_id,omitempty"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
}

type StatusResult struct {
	Status       string `json:"status"`
	BookingID    string `json:"booking_id,omitempty"`
	CustomerName string `json:"customer_name,omitempty"`
	Date         string `json:"date,omitempty"`
	Time         string `json:"time,omitempty"`
	Covers       int    `json:"covers,omitempty"`
	CreatedAt    string `json:"created_at,omitempty"`
	Message      string `json:"message,omitempty"`
	Error        string `json:"error,omitempty"`
}

// BookingLedger owns booking records and keeps slot counters in step with them.
type BookingLedger struct {
	slots *SlotLedger
	store BookingStore
	opts  options
}

func NewBookingLedger(slots *SlotLedger, store BookingStore, opts ...Option) *BookingLedger {
	merged := append([]Option{WithLocation(slots.opts.loc), WithClock(slots.opts.now)}, opts...)
	return &BookingLedger{slots: slots, store: store, opts: buildOptions(merged)}
}

// Create reserves one table and records a confirmed booking. Capacity is taken
// before the record is written and handed back if the write fails.
func (l *BookingLedger) Create(ctx context.Context, in CreateBookingInput) BookingResult {
	logger := log.Ctx(ctx)
	in = in.normalized()
	if err := in.validate(); err != nil {
		return BookingResult{Status: ResultFailed, Error: err.Error()}
	}
	slotStart, err := l.slots.LocalTime(in.Date, in.Time)
	if err != nil {
		return BookingResult{Status: ResultFailed, Error: err.Error()}
	}
	// Slot keys are stored zero-padded; "9:30" must address the 09:30 slot.
	in.Date = slotStart.Format(DateLayout)
	in.Time = slotStart.Format(TimeLayout)

	key := l.slots.Key(in.Date, in.Time, in.Covers)
	if err := l.slots.Decrement(ctx, key); err != nil {
		if isCapacityError(err) {
			logger.Info().Str("slot", key.String()).Msg("booking rejected: no capacity")
			return BookingResult{
				Status: ResultUnavailable,
				Error:  "No tables available for the requested slot",
				Message: fmt.Sprintf("Sorry, there are no tables left for %d guests on %s at %s. Please pick another time.",
					in.Covers, in.Date, in.Time),
			}
		}
		logger.Error().Err(err).Str("slot", key.String()).Msg("booking decrement failed")
		return BookingResult{Status: ResultFailed, Error: err.Error()}
	}

	now := l.opts.now()
	notes := in.Notes
	if notes == nil {
		notes = []string{}
	}
	b := Booking{
		BookingID: l.opts.newID(now),
		Status:    BookingConfirmed,
		Customer: CustomerDetails{
			Name:                     in.Name,
			ContactNumber:            in.Phone,
			EmailAddress:             in.Email,
			ContactNumberWithISDCode: withISDCode(in.Phone),
		},
		Reservation: ReservationDetails{
			Date:     in.Date,
			Time:     in.Time,
			Covers:   in.Covers,
			Duration: DefaultDurationMinutes,
			Notes:    notes,
		},
		StoreID:       l.slots.StoreID(),
		CreatedAt:     now,
		SlotStartTime: slotStart.Unix(),
	}
	if err := l.store.InsertBooking(ctx, b); err != nil {
		if rerr := l.slots.Increment(ctx, key); rerr != nil {
			logger.Error().Err(rerr).Str("slot", key.String()).Msg("failed to restore capacity after booking write failure")
		}
		logger.Error().Err(err).Str("booking_id", b.BookingID).Msg("booking insert failed")
		return BookingResult{Status: ResultFailed, Error: err.Error()}
	}

	logger.Info().Str("booking_id", b.BookingID).Str("slot", key.String()).Msg("booking confirmed")
	return BookingResult{
		Status:              ResultSuccess,
		BookingID:           b.BookingID,
		ConfirmationMessage: fmt.Sprintf("Your reservation has been confirmed for %d guests on %s at %s", in.Covers, in.Date, in.Time),
		CustomerName:        in.Name,
		Date:                in.Date,
		Time:                in.Time,
		Covers:              in.Covers,
	}
}

// Cancel moves a confirmed booking to cancelled and returns its table. A
// booking that is already cancelled is reported and left untouched.
func (l *BookingLedger) Cancel(ctx context.Context, bookingID, reason string) CancelResult {
	logger := log.Ctx(ctx)
	bookingID = strings.TrimSpace(bookingID)
	if bookingID == "" {
		return CancelResult{Status: ResultFailed, Error: fmt.Sprintf("%s: booking_id is required", ErrInvalidInput)}
	}
	if strings.TrimSpace(reason) == "" {
		reason = DefaultCancelReason
	}

	b, err := l.store.GetBooking(ctx, bookingID)
	if errors.Is(err, ErrBookingNotFound) {
		return CancelResult{Status: ResultNotFound, BookingID: bookingID, Error: "Booking not found"}
	}
	if err != nil {
		logger.Error().Err(err).Str("booking_id", bookingID).Msg("load booking failed")
		return CancelResult{Status: ResultFailed, BookingID: bookingID, Error: err.Error()}
	}
	if b.Status == BookingCancelled {
		return alreadyCancelled(bookingID)
	}

	ok, err := l.store.MarkCancelled(ctx, bookingID, l.opts.now(), reason)
	if err != nil {
		logger.Error().Err(err).Str("booking_id", bookingID).Msg("cancel booking failed")
		return CancelResult{Status: ResultFailed, BookingID: bookingID, Error: err.Error()}
	}
	if !ok {
		return alreadyCancelled(bookingID)
	}

	if err := l.slots.Increment(ctx, b.SlotKey()); err != nil {
		logger.Warn().Err(err).Str("booking_id", bookingID).Str("slot", b.SlotKey().String()).Msg("capacity not restored on cancel")
	}
	logger.Info().Str("booking_id", bookingID).Str("reason", reason).Msg("booking cancelled")
	return CancelResult{
		Status:    ResultSuccess,
		BookingID: bookingID,
		Message:   fmt.Sprintf("Your booking %s has been successfully cancelled", bookingID),
	}
}

func alreadyCancelled(bookingID string) CancelResult {
	return CancelResult{
		Status:    ResultAlreadyCancelled,
		BookingID: bookingID,
		Error:     ErrAlreadyCancelled.Error(),
		Message:   fmt.Sprintf("Your booking %s was already cancelled", bookingID),
	}
}

// Status summarises a booking.
func (l *BookingLedger) Status(ctx context.Context, bookingID string) StatusResult {
	bookingID = strings.TrimSpace(bookingID)
	if bookingID == "" {
		return StatusResult{Status: ResultFailed, Error: fmt.Sprintf("%s: booking_id is required", ErrInvalidInput)}
	}
	b, err := l.store.GetBooking(ctx, bookingID)
	if errors.Is(err, ErrBookingNotFound) {
		return StatusResult{Status: ResultNotFound, Message: fmt.Sprintf("Booking %s not found", bookingID)}
	}
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("booking_id", bookingID).Msg("load booking failed")
		return StatusResult{Status: ResultFailed, Error: err.Error()}
	}
	return StatusResult{
		Status:       string(b.Status),
		BookingID:    b.BookingID,
		CustomerName: b.Customer.Name,
		Date:         b.Reservation.Date,
		Time:         b.Reservation.Time,
		Covers:       b.Reservation.Covers,
		CreatedAt:    b.CreatedAt.In(l.opts.loc).Format(time.RFC3339),
		Message:      fmt.Sprintf("Your booking %s is %s", b.BookingID, strings.ToLower(string(b.Status))),
	}
}
