package reservation

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type options struct {
	loc   *time.Location
	now   func() time.Time
	newID func(time.Time) string
}

// Option customises a ledger.
type Option func(*options)

// WithLocation sets the operating timezone used to interpret slot dates and times.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		if loc != nil {
			o.loc = loc
		}
	}
}

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithIDGenerator replaces the booking id generator.
func WithIDGenerator(fn func(time.Time) string) Option {
	return func(o *options) {
		if fn != nil {
			o.newID = fn
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		loc:   DefaultLocation,
		now:   time.Now,
		newID: NewBookingID,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// NewBookingID returns BK-<epoch millis>-<8 random hex chars>.
func NewBookingID(now time.Time) string {
	u := uuid.New()
	return fmt.Sprintf("BK-%d-%s", now.UnixMilli(), hex.EncodeToString(u[:4]))
}
