package pgstore

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

// Migrate creates the availability and bookings tables and their indexes.
func Migrate(ctx context.Context, db bun.IDB) error {
	for _, model := range []any{(*slotRow)(nil), (*bookingRow)(nil)} {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}

	indexes := []struct {
		model   any
		name    string
		unique  bool
		columns []string
	}{
		{(*slotRow)(nil), "availability_slot_key_idx", true, []string{"store_id", "date", "time", "covers"}},
		{(*slotRow)(nil), "availability_date_open_idx", false, []string{"date", "is_available"}},
		{(*bookingRow)(nil), "bookings_store_idx", false, []string{"store_id", "created_at"}},
	}
	for _, idx := range indexes {
		q := db.NewCreateIndex().
			Model(idx.model).
			Index(idx.name).
			Column(idx.columns...).
			IfNotExists()
		if idx.unique {
			q = q.Unique()
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("create index %s: %w", idx.name, err)
		}
	}
	return nil
}
