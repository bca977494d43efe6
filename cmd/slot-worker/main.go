package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hackgods/availability-scheduling/internal/config"
	"github.com/hackgods/availability-scheduling/internal/db"
	"github.com/hackgods/availability-scheduling/internal/logs"
	"github.com/hackgods/availability-scheduling/internal/schedule"
)

// slot-worker keeps slots materialized for the next MATERIALIZE_HORIZON_DAYS
// days so booking screens never wait on slot generation.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load error", slog.Any("error", err))
		os.Exit(1)
	}

	logger := logs.New(cfg, "slot-worker")
	logger.Info("slot-worker starting up",
		slog.Duration("interval", cfg.WorkerInterval),
		slog.Int("horizon_days", cfg.HorizonDays))

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, db.PoolOptions{})
	cancelPg()
	if err != nil {
		logger.Error("postgres connection error", slog.Any("error", err))
		os.Exit(1)
	}
	defer pgPool.Close()
	logger.Info("connected to Postgres")

	// Slots are generated ahead of any booking, so there is no heatmap
	// entry to invalidate yet.
	svc := schedule.NewService(schedule.NewPgRepository(pgPool), nil, cfg, logger)

	// Run once at startup
	runOnce(rootCtx, svc, cfg, logger)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			logger.Info("shutdown signal received, stopping slot worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, cfg, logger)
		}
	}
}

func runOnce(ctx context.Context, svc *schedule.Service, cfg config.Config, logger *slog.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, cfg.WorkerInterval)
	defer cancel()

	start := time.Now()
	from := schedule.DateOf(start.In(svc.Location()))
	to := from.AddDate(0, 0, cfg.HorizonDays-1)

	resources, err := svc.ActiveResources(runCtx, from)
	if err != nil {
		logger.Error("materialize run failed", slog.Any("error", err))
		return
	}

	total := 0
	for _, id := range resources {
		n, err := svc.MaterializeRange(runCtx, id, from, to)
		if err != nil {
			logger.Error("materialize resource failed",
				slog.String("resource_id", id.String()),
				slog.Any("error", err))
			continue
		}
		total += n
	}

	logger.Info("materialize run complete",
		slog.Int("resources", len(resources)),
		slog.Int("slot_windows", total),
		slog.Duration("took", time.Since(start)))
}
