package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tanpawarit/table-reservation-agent/reservation"
	"github.com/tanpawarit/table-reservation-agent/reservation/pgstore"
)

func newSeedCmd() *cobra.Command {
	var (
		from string
		days int
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Regenerate the availability calendar in Postgres from the restaurant's operating hours",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if days <= 0 {
				return fmt.Errorf("--days must be positive")
			}

			cfg, err := loadAppConfig()
			if err != nil {
				return err
			}

			start := time.Now()
			if from != "" {
				start, err = time.ParseInLocation(reservation.DateLayout, from, cfg.Location())
				if err != nil {
					return fmt.Errorf("--from: %w", err)
				}
			}

			db, err := openDatabase(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := pgstore.Migrate(ctx, db); err != nil {
				return err
			}
			report, err := seedStore(ctx, cfg, pgstore.New(db), start, days)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d slots for store %s (%d weekdays, %d weekend days)\n",
				report.SlotsCreated, cfg.StoreID, report.WeekdayDays, report.WeekendDays)
			fmt.Fprintf(cmd.OutOrStdout(), "weekday times: %s\nweekend times: %s\n",
				strings.Join(report.WeekdaySlots, " "), strings.Join(report.WeekendSlots, " "))
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "first date to seed, YYYY-MM-DD (default today)")
	cmd.Flags().IntVar(&days, "days", 30, "number of days to seed")
	return cmd
}
