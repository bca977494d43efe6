package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/availability-scheduling/internal/config"
	"github.com/hackgods/availability-scheduling/internal/db"
	"github.com/hackgods/availability-scheduling/internal/logs"
	"github.com/hackgods/availability-scheduling/internal/schedule"
)

const (
	resourceCount = 20
	patientCount  = 2000
	templateDays  = 90
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load error", slog.Any("error", err))
		os.Exit(1)
	}
	logger := logs.New(cfg, "seed")
	logger.Info("seed starting")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, db.PoolOptions{})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		logger.Error("apply schema", slog.Any("error", err))
		os.Exit(1)
	}

	faker := gofakeit.New(uint64(time.Now().UnixNano()))
	svc := schedule.NewService(schedule.NewPgRepository(pool), nil, cfg, logger)

	resources, err := seedResources(ctx, pool, faker, resourceCount)
	if err != nil {
		logger.Error("seed resources", slog.Any("error", err))
		os.Exit(1)
	}
	if err := seedPatients(ctx, pool, faker, patientCount, logger); err != nil {
		logger.Error("seed patients", slog.Any("error", err))
		os.Exit(1)
	}

	today := schedule.DateOf(time.Now().In(cfg.Location()))
	for _, id := range resources {
		if err := seedSchedule(ctx, svc, faker, id, today); err != nil {
			logger.Error("seed schedule", slog.String("resource_id", id.String()), slog.Any("error", err))
			os.Exit(1)
		}
	}

	logger.Info("seed complete",
		slog.Int("resources", len(resources)),
		slog.Int("patients", patientCount))
}

func seedResources(ctx context.Context, pool *pgxpool.Pool, faker *gofakeit.Faker, count int) ([]uuid.UUID, error) {
	specialties := []string{
		"Dermatology",
		"Cardiology",
		"General Practice",
		"Orthopedics",
		"Endocrinology",
		"Neurology",
		"Pediatrics",
		"Psychiatry",
		"Ophthalmology",
		"ENT",
	}
	facility := uuid.New()

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		_, err := tx.Exec(ctx, `
			INSERT INTO resources (id, name, specialty, facility_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, now(), now())
		`, id, "Dr. "+faker.Name(), specialties[faker.Number(0, len(specialties)-1)], facility)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return ids, nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, faker *gofakeit.Faker, count int, logger *slog.Logger) error {
	const batchSize = 500

	for offset := 0; offset < count; offset += batchSize {
		end := min(offset+batchSize, count)

		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for i := offset; i < end; i++ {
			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, name, email, created_at, updated_at)
				VALUES ($1, $2, $3, now(), now())
			`, uuid.New(), faker.Name(), faker.Email())
			if err != nil {
				_ = tx.Rollback(ctx)
				return err
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}
		logger.Info("patients seeded", slog.Int("done", end), slog.Int("total", count))
	}
	return nil
}

// seedSchedule gives a resource a weekday template with a booked morning
// session and a walk-in afternoon, plus one day of leave.
func seedSchedule(ctx context.Context, svc *schedule.Service, faker *gofakeit.Faker, resourceID uuid.UUID, today time.Time) error {
	_, err := svc.CreateTemplate(ctx, schedule.Template{
		ResourceID: resourceID,
		FacilityID: uuid.New(),
		Name:       "Weekday clinic",
		ValidFrom:  today,
		ValidTo:    today.AddDate(0, 0, templateDays),
		Weekdays:   []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
		Availabilities: []schedule.Availability{
			{
				Name:            "Morning",
				SlotType:        schedule.SlotTypeAppointment,
				Start:           schedule.NewTimeOfDay(9, 0),
				End:             schedule.NewTimeOfDay(12, 0),
				SlotSizeMinutes: 15,
				TokensPerSlot:   faker.Number(1, 3),
			},
			{
				Name:            "Afternoon walk-in",
				SlotType:        schedule.SlotTypeWalkIn,
				Start:           schedule.NewTimeOfDay(14, 0),
				End:             schedule.NewTimeOfDay(17, 0),
				SlotSizeMinutes: 30,
				TokensPerSlot:   4,
			},
		},
	})
	if err != nil {
		return err
	}

	leave := today.AddDate(0, 0, faker.Number(7, 30))
	_, err = svc.CreateException(ctx, schedule.Exception{
		ResourceID: resourceID,
		Reason:     "Leave: " + faker.Hobby(),
		ValidFrom:  leave,
		ValidTo:    leave,
		Start:      schedule.StartOfDay,
		End:        schedule.EndOfDay,
	})
	return err
}
