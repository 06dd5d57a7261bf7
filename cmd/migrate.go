package cmd

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	statex "github.com/tanpawarit/table-reservation-agent/agent/state"
	"github.com/tanpawarit/table-reservation-agent/reservation/pgstore"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the availability, bookings and conversations tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := openDatabase(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := pgstore.Migrate(ctx, db); err != nil {
				return fmt.Errorf("migrate reservation tables: %w", err)
			}
			if err := statex.MigratePostgres(ctx, db); err != nil {
				return fmt.Errorf("migrate conversation table: %w", err)
			}
			log.Info().Msg("migrations applied")
			return nil
		},
	}
}
