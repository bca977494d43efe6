package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hackgods/availability-scheduling/internal/api"
	"github.com/hackgods/availability-scheduling/internal/appointment"
	"github.com/hackgods/availability-scheduling/internal/availability"
	"github.com/hackgods/availability-scheduling/internal/config"
	"github.com/hackgods/availability-scheduling/internal/db"
	"github.com/hackgods/availability-scheduling/internal/logs"
	"github.com/hackgods/availability-scheduling/internal/mq"
	"github.com/hackgods/availability-scheduling/internal/obs"
	redisclient "github.com/hackgods/availability-scheduling/internal/redis"
	"github.com/hackgods/availability-scheduling/internal/schedule"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load error", slog.Any("error", err))
		os.Exit(1)
	}

	logger := logs.New(cfg, "api-server")
	slog.SetDefault(logger)
	logger.Info("api-server starting up",
		slog.String("http_port", cfg.HTTPPort),
		slog.String("timezone", cfg.Location().String()),
		slog.String("heatmap_mode", string(cfg.HeatmapMode)))

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(rootCtx, cfg, logger); err != nil {
		logger.Error("api-server stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("api-server stopped")
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	shutdownTracing, err := obs.Setup(ctx, "api-server", cfg.Env, cfg.OTelEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("tracing shutdown failed", slog.Any("error", err))
		}
	}()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(ctx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, db.PoolOptions{MaxConns: 20})
	cancelPg()
	if err != nil {
		return err
	}
	defer pgPool.Close()
	logger.Info("connected to Postgres")

	if cfg.AutoMigrate {
		if err := db.Migrate(ctx, pgPool); err != nil {
			return err
		}
		logger.Info("schema applied")
	}

	// Connect Redis
	rdb, err := redisclient.NewRedisClient(redisclient.Options{
		Addr:     cfg.RedisAddr,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Warn("error closing redis", slog.Any("error", err))
		}
	}()
	logger.Info("connected to Redis")

	heatmapStore := availability.NewStore(redisclient.NewCache(rdb), cfg.HeatmapCacheTTL)
	scheduleSvc := schedule.NewService(schedule.NewPgRepository(pgPool), heatmapStore, cfg, logger)
	aggregator := availability.NewAggregator(scheduleSvc, heatmapStore, cfg.HeatmapMode, logger)

	apptRepo := appointment.NewPgRepository(pgPool)
	observers := []appointment.Observer{
		appointment.NewEventLogObserver(apptRepo, logger),
		appointment.OnEnter(appointment.StatusInConsultation, func(ctx context.Context, appt appointment.Appointment) {
			logger.Info("consultation started",
				slog.String("appointment_id", appt.ID.String()),
				slog.String("patient_id", appt.PatientID.String()))
		}),
	}
	if cfg.RabbitURL != "" {
		publisher, err := mq.NewPublisher(cfg.RabbitURL, cfg.EventsExchange, logger)
		if err != nil {
			return err
		}
		defer publisher.Close()
		observers = append(observers, publisher)
		logger.Info("publishing appointment events", slog.String("exchange", cfg.EventsExchange))
	}

	locker := redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL, 0)
	apptSvc := appointment.NewService(apptRepo, scheduleSvc, locker, aggregator, cfg, logger, observers...)

	router := api.NewRouter(api.RouterConfig{
		Schedule:     scheduleSvc,
		Heatmap:      aggregator,
		Appointments: apptSvc,
		Logger:       logger,
		Env:          cfg.Env,
		Version:      version,
		Dependencies: []api.Dependency{
			{Name: "postgres", Critical: true, Check: pgPool.Ping},
			{Name: "redis", Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
		},
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down api-server", slog.Duration("timeout", cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
