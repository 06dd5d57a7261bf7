package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"

	"github.com/tanpawarit/table-reservation-agent/agent/agents/assistant"
	"github.com/tanpawarit/table-reservation-agent/agent/agents/orchestrator"
	"github.com/tanpawarit/table-reservation-agent/agent/llm"
	"github.com/tanpawarit/table-reservation-agent/agent/prompt"
	statex "github.com/tanpawarit/table-reservation-agent/agent/state"
	toolx "github.com/tanpawarit/table-reservation-agent/agent/tool"
	configx "github.com/tanpawarit/table-reservation-agent/pkg/config"
	"github.com/tanpawarit/table-reservation-agent/pkg/database"
	"github.com/tanpawarit/table-reservation-agent/reservation"
	"github.com/tanpawarit/table-reservation-agent/reservation/pgstore"
)

type slotAndBookingStore interface {
	reservation.SlotStore
	reservation.BookingStore
}

// app holds the wired stack shared by the serve and chat commands.
type app struct {
	cfg          *AppConfig
	db           *bun.DB
	orchestrator *orchestrator.Orchestrator
}

func loadAppConfig() (*AppConfig, error) {
	cfg, err := configx.New[AppConfig]("APP")
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openDatabase(ctx context.Context) (*bun.DB, error) {
	dbCfg, err := configx.New[database.Config]("DB")
	if err != nil {
		return nil, err
	}
	return database.Open(ctx, *dbCfg)
}

// openStores opens the slot/booking store and, when any component needs it,
// the database.
func openStores(ctx context.Context, cfg *AppConfig) (slotAndBookingStore, *bun.DB, error) {
	var db *bun.DB
	if cfg.needsDatabase() {
		var err error
		if db, err = openDatabase(ctx); err != nil {
			return nil, nil, err
		}
	}

	if cfg.Storage == StoragePostgres {
		return pgstore.New(db), db, nil
	}

	mem := reservation.NewMemoryStore()
	if cfg.SeedDays > 0 {
		if _, err := seedStore(ctx, cfg, mem, time.Now(), cfg.SeedDays); err != nil {
			if db != nil {
				_ = db.Close()
			}
			return nil, nil, err
		}
	}
	return mem, db, nil
}

func seedStore(ctx context.Context, cfg *AppConfig, store reservation.SlotStore, from time.Time, days int) (reservation.SeedReport, error) {
	profile, err := prompt.LoadProfile()
	if err != nil {
		return reservation.SeedReport{}, err
	}
	loc := cfg.Location()
	first := from.In(loc)
	report, err := reservation.Seeder{
		Store:    store,
		StoreID:  cfg.StoreID,
		Hours:    profile.OperatingHours,
		Location: loc,
	}.Seed(ctx, first, first.AddDate(0, 0, days-1))
	if err != nil {
		return reservation.SeedReport{}, fmt.Errorf("seed slots: %w", err)
	}
	return report, nil
}

func openHistory(cfg *AppConfig, db *bun.DB) (statex.HistoryStore, error) {
	switch cfg.History {
	case HistoryUpstash:
		upCfg, err := configx.New[statex.UpstashRedisConfig]("UPSTASH")
		if err != nil {
			return nil, err
		}
		return statex.NewUpstashHistoryStore(*upCfg)
	case StoragePostgres:
		return statex.NewPostgresHistoryStore(db), nil
	default:
		return statex.NewMemoryHistory(), nil
	}
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadAppConfig()
	if err != nil {
		return nil, err
	}
	llmCfg, err := configx.New[llm.Config]("LLM")
	if err != nil {
		return nil, err
	}

	store, db, err := openStores(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, db: db}

	history, err := openHistory(cfg, db)
	if err != nil {
		a.Close()
		return nil, err
	}

	model, err := llm.New(ctx, *llmCfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	loc := cfg.Location()
	slots := reservation.NewSlotLedger(store, cfg.StoreID, reservation.WithLocation(loc))
	bookings := reservation.NewBookingLedger(slots, store)
	dispatcher := toolx.NewDispatcher(slots, bookings)

	loop, err := assistant.New(model, dispatcher, dispatcher.Definitions(), assistant.Config{
		MaxIterations: cfg.MaxIterations,
		ModelTimeout:  llmCfg.Timeout,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	prompts, err := prompt.LoadPromptSet()
	if err != nil {
		a.Close()
		return nil, err
	}
	render := func(now time.Time) string { return prompts.Render(now, loc) }

	a.orchestrator, err = orchestrator.New(history, loop, render, orchestrator.Config{HistoryWindow: cfg.HistoryWindow})
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			log.Warn().Err(err).Msg("close database")
		}
	}
}
