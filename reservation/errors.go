package reservation

import "errors"

var (
	ErrInvalidInput     = errors.New("invalid reservation input")
	ErrNoCapacity       = errors.New("no tables left for slot")
	ErrSlotNotFound     = errors.New("slot not found or already at max capacity")
	ErrBookingNotFound  = errors.New("booking not found")
	ErrAlreadyCancelled = errors.New("booking already cancelled")
	ErrDuplicateBooking = errors.New("booking id already exists")
)
