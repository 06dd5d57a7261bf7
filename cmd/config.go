package cmd

import (
	"fmt"
	"time"

	"github.com/tanpawarit/table-reservation-agent/reservation"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
	HistoryUpstash  = "upstash"
)

// AppConfig is read from APP_* variables.
type AppConfig struct {
	StoreID       string        `split_words:"true" default:"2u8zw0on"`
	RestaurantID  string        `split_words:"true" default:"saffron-table"`
	UTCOffset     time.Duration `envconfig:"UTC_OFFSET" default:"5h30m"`
	HTTPAddr      string        `envconfig:"HTTP_ADDR" default:":8000"`
	Storage       string        `default:"memory"`
	History       string        `default:"memory"`
	HistoryWindow int           `split_words:"true" default:"5"`
	MaxIterations int           `split_words:"true" default:"5"`
	// SeedDays is the calendar generated at startup for the memory store.
	SeedDays int `split_words:"true" default:"30"`
}

func (c AppConfig) Validate() error {
	switch c.Storage {
	case StorageMemory, StoragePostgres:
	default:
		return fmt.Errorf("unknown APP_STORAGE %q", c.Storage)
	}
	switch c.History {
	case StorageMemory, StoragePostgres, HistoryUpstash:
	default:
		return fmt.Errorf("unknown APP_HISTORY %q", c.History)
	}
	return nil
}

// Location is the fixed operating timezone.
func (c AppConfig) Location() *time.Location {
	if c.UTCOffset == 5*time.Hour+30*time.Minute {
		return reservation.DefaultLocation
	}
	return time.FixedZone(fmt.Sprintf("UTC%+.1f", c.UTCOffset.Hours()), int(c.UTCOffset.Seconds()))
}

func (c AppConfig) needsDatabase() bool {
	return c.Storage == StoragePostgres || c.History == StoragePostgres
}
