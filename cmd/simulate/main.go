package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/availability-scheduling/internal/api"
	"github.com/hackgods/availability-scheduling/internal/appointment"
	"github.com/hackgods/availability-scheduling/internal/client"
	"github.com/hackgods/availability-scheduling/internal/config"
	"github.com/hackgods/availability-scheduling/internal/db"
	"github.com/hackgods/availability-scheduling/internal/logs"
	"github.com/hackgods/availability-scheduling/internal/schedule"
)

// SimConfig drives a booking race: Workers patients try to book the same slot
// at once and the server must hand out exactly its capacity.
type SimConfig struct {
	APIBaseURL string        `env:"SIM_API_BASE_URL" envDefault:"http://localhost:8080"`
	Workers    int           `env:"SIM_WORKERS" envDefault:"25"`
	Rounds     int           `env:"SIM_ROUNDS" envDefault:"5"`
	DaysAhead  int           `env:"SIM_DAYS_AHEAD" envDefault:"1"`
	Timeout    time.Duration `env:"SIM_TIMEOUT" envDefault:"2m"`
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	mu        sync.Mutex
	Latencies []time.Duration
}

func (om *OperationMetrics) Record(latency time.Duration, err error) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case err == nil:
		atomic.AddInt64(&om.Success, 1)
	case errors.Is(err, schedule.ErrCapacityExceeded), errors.Is(err, appointment.ErrSlotBeingBooked):
		atomic.AddInt64(&om.Conflict, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

// Percentile returns the p-th percentile latency, p in [0, 100].
func (om *OperationMetrics) Percentile(p int) time.Duration {
	om.mu.Lock()
	defer om.mu.Unlock()
	if len(om.Latencies) == 0 {
		return 0
	}
	sorted := slices.Clone(om.Latencies)
	slices.Sort(sorted)
	idx := min(len(sorted)*p/100, len(sorted)-1)
	return sorted[idx]
}

type roundResult struct {
	slot     api.SlotResponse
	booked   int
	recorded int
}

func main() {
	baseCfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load base config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := logs.New(baseCfg, "simulate")

	var cfg SimConfig
	if err := env.Parse(&cfg); err != nil {
		logger.Error("invalid simulation config", slog.Any("error", err))
		os.Exit(1)
	}
	if cfg.Workers <= 0 || cfg.Rounds <= 0 {
		logger.Error("SIM_WORKERS and SIM_ROUNDS must be > 0")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, baseCfg.PostgresDSN, db.PoolOptions{})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pgPool.Close()

	resourceID, patients, err := loadDataPool(ctx, pgPool, cfg.Workers*cfg.Rounds)
	if err != nil {
		logger.Error("load data pool", slog.Any("error", err))
		os.Exit(1)
	}

	c := client.New(cfg.APIBaseURL)
	date := schedule.DateOf(time.Now().In(baseCfg.Location())).AddDate(0, 0, cfg.DaysAhead)

	slots, err := c.Slots(ctx, resourceID, date)
	if err != nil {
		logger.Error("load slots", slog.Any("error", err))
		os.Exit(1)
	}
	if len(slots) == 0 {
		logger.Error("no slots on date, pick another SIM_DAYS_AHEAD", slog.String("date", schedule.FormatDate(date)))
		os.Exit(1)
	}

	var metrics OperationMetrics
	var results []roundResult
	for round := 0; round < cfg.Rounds && round < len(slots); round++ {
		slot := slots[round]
		batch := patients[round*cfg.Workers : (round+1)*cfg.Workers]
		res := race(ctx, c, slot, batch, &metrics)

		booked, err := c.ListAppointmentsBySlot(ctx, slot.ID)
		if err != nil {
			logger.Error("list appointments by slot", slog.Any("error", err))
		}
		res.recorded = len(booked)
		results = append(results, res)
	}

	if _, err := c.Heatmap(ctx, resourceID, date, date); err != nil {
		logger.Warn("heatmap read failed", slog.Any("error", err))
	}

	printReport(cfg, date, results, &metrics)
}

func loadDataPool(ctx context.Context, pool *pgxpool.Pool, patientCount int) (uuid.UUID, []uuid.UUID, error) {
	var resourceID uuid.UUID
	err := pool.QueryRow(ctx, `
		SELECT resource_id FROM schedule_templates
		WHERE valid_to >= CURRENT_DATE
		ORDER BY created_at
		LIMIT 1
	`).Scan(&resourceID)
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("load resource: %w", err)
	}

	rows, err := pool.Query(ctx, `SELECT id FROM patients LIMIT $1`, patientCount)
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("load patients: %w", err)
	}
	patients, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return uuid.Nil, nil, fmt.Errorf("load patients: %w", err)
	}
	if len(patients) < patientCount {
		return uuid.Nil, nil, fmt.Errorf("need %d patients, found %d", patientCount, len(patients))
	}
	return resourceID, patients, nil
}

// race books slot for every patient concurrently.
func race(ctx context.Context, c *client.Client, slot api.SlotResponse, patients []uuid.UUID, metrics *OperationMetrics) roundResult {
	var (
		wg     sync.WaitGroup
		booked int64
		start  = make(chan struct{})
	)
	for _, patientID := range patients {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start

			t := time.Now()
			_, err := c.Book(ctx, api.CreateAppointmentRequest{
				SlotID:    slot.ID.String(),
				PatientID: patientID.String(),
				BookedBy:  "simulator",
			})
			metrics.Record(time.Since(t), err)
			if err == nil {
				atomic.AddInt64(&booked, 1)
			}
		}()
	}
	close(start)
	wg.Wait()

	return roundResult{slot: slot, booked: int(booked)}
}

func printReport(cfg SimConfig, date time.Time, results []roundResult, om *OperationMetrics) {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("BOOKING RACE REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Date: %s  Workers per slot: %d\n\n", schedule.FormatDate(date), cfg.Workers)

	for _, r := range results {
		expected := min(r.slot.Remaining, cfg.Workers)
		verdict := "ok"
		if r.booked != expected {
			verdict = "MISMATCH"
		}
		fmt.Printf("  slot %s %s  capacity=%d free=%d booked=%d recorded=%d  %s\n",
			r.slot.Start.Format("15:04"), r.slot.AvailabilityName,
			r.slot.Capacity, r.slot.Remaining, r.booked, r.recorded, verdict)
	}

	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}
	fmt.Println()
	fmt.Printf("Bookings: %d  success=%d conflict=%d error=%d\n",
		total, atomic.LoadInt64(&om.Success), atomic.LoadInt64(&om.Conflict), atomic.LoadInt64(&om.Error))
	fmt.Printf("Latency: p50=%s p95=%s p99=%s\n",
		om.Percentile(50).Round(time.Millisecond),
		om.Percentile(95).Round(time.Millisecond),
		om.Percentile(99).Round(time.Millisecond))
}
