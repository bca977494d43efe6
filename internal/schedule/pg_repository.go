package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

const availabilityColumns = `a.id, a.template_id, a.name, a.slot_type, a.start_minute, a.end_minute, a.slot_size_minutes, a.tokens_per_slot, a.reason`

func scanTemplate(row pgx.Row) (*Template, error) {
	var t Template
	var weekdays []int32

	err := row.Scan(
		&t.ID,
		&t.ResourceID,
		&t.FacilityID,
		&t.Name,
		&t.ValidFrom,
		&t.ValidTo,
		&weekdays,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}

	for _, w := range weekdays {
		t.Weekdays = append(t.Weekdays, time.Weekday(w))
	}
	return &t, nil
}

func scanAvailability(row pgx.Row) (*Availability, error) {
	var a Availability
	var start, end int

	err := row.Scan(
		&a.ID,
		&a.TemplateID,
		&a.Name,
		&a.SlotType,
		&start,
		&end,
		&a.SlotSizeMinutes,
		&a.TokensPerSlot,
		&a.Reason,
	)
	if err != nil {
		return nil, err
	}

	a.Start = TimeOfDay(start)
	a.End = TimeOfDay(end)
	return &a, nil
}

func scanException(row pgx.Row) (*Exception, error) {
	var e Exception
	var start, end int

	err := row.Scan(
		&e.ID,
		&e.ResourceID,
		&e.Reason,
		&e.ValidFrom,
		&e.ValidTo,
		&start,
		&end,
		&e.IsAvailable,
		&e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExceptionNotFound
		}
		return nil, err
	}

	e.Start = TimeOfDay(start)
	e.End = TimeOfDay(end)
	return &e, nil
}

func scanSlot(row pgx.Row) (*Slot, error) {
	var s Slot
	var start, end int

	err := row.Scan(
		&s.ID,
		&s.ResourceID,
		&s.AvailabilityID,
		&s.Start,
		&s.End,
		&s.Allocated,
		&s.TokensIssued,
		&s.CreatedAt,
		&s.UpdatedAt,
		&s.Availability.ID,
		&s.Availability.TemplateID,
		&s.Availability.Name,
		&s.Availability.SlotType,
		&start,
		&end,
		&s.Availability.SlotSizeMinutes,
		&s.Availability.TokensPerSlot,
		&s.Availability.Reason,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}

	s.Availability.Start = TimeOfDay(start)
	s.Availability.End = TimeOfDay(end)
	return &s, nil
}

// Interface methods

func (r *PgRepository) ResourceExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM resources WHERE id = $1)`, id).Scan(&ok)
	return ok, err
}

func (r *PgRepository) ListActiveResources(ctx context.Context, since time.Time) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT resource_id
		FROM schedule_templates
		WHERE valid_to >= $1
	`, since)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}

func (r *PgRepository) CreateTemplate(ctx context.Context, t *Template) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	t.ID = uuid.New()
	weekdays := make([]int32, 0, len(t.Weekdays))
	for _, w := range t.Weekdays {
		weekdays = append(weekdays, int32(w))
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO schedule_templates (id, resource_id, facility_id, name, valid_from, valid_to, weekdays, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		RETURNING created_at, updated_at
	`, t.ID, t.ResourceID, t.FacilityID, t.Name, t.ValidFrom, t.ValidTo, weekdays).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert template: %w", err)
	}

	for i := range t.Availabilities {
		a := &t.Availabilities[i]
		a.ID = uuid.New()
		a.TemplateID = t.ID
		_, err := tx.Exec(ctx, `
			INSERT INTO availabilities (id, template_id, name, slot_type, start_minute, end_minute, slot_size_minutes, tokens_per_slot, reason)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, a.ID, a.TemplateID, a.Name, a.SlotType, int(a.Start), int(a.End), a.SlotSizeMinutes, a.TokensPerSlot, a.Reason)
		if err != nil {
			return fmt.Errorf("insert availability %q: %w", a.Name, err)
		}
	}

	return tx.Commit(ctx)
}

func (r *PgRepository) GetTemplate(ctx context.Context, id uuid.UUID) (*Template, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, resource_id, facility_id, name, valid_from, valid_to, weekdays, created_at, updated_at
		FROM schedule_templates
		WHERE id = $1
	`, id)
	t, err := scanTemplate(row)
	if err != nil {
		return nil, err
	}

	templates := []Template{*t}
	if err := r.attachAvailabilities(ctx, templates); err != nil {
		return nil, err
	}
	return &templates[0], nil
}

func (r *PgRepository) ListTemplates(ctx context.Context, resourceID uuid.UUID, from, to time.Time) ([]Template, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, resource_id, facility_id, name, valid_from, valid_to, weekdays, created_at, updated_at
		FROM schedule_templates
		WHERE resource_id = $1
		  AND valid_from <= $3
		  AND valid_to >= $2
		ORDER BY valid_from, created_at
	`, resourceID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.attachAvailabilities(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) attachAvailabilities(ctx context.Context, templates []Template) error {
	if len(templates) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(templates))
	index := make(map[uuid.UUID]int, len(templates))
	for i, t := range templates {
		ids = append(ids, t.ID)
		index[t.ID] = i
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+availabilityColumns+`
		FROM availabilities a
		WHERE a.template_id = ANY($1)
		ORDER BY a.start_minute, a.name
	`, ids)
	if err != nil {
		return fmt.Errorf("load availabilities: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		a, err := scanAvailability(rows)
		if err != nil {
			return err
		}
		i := index[a.TemplateID]
		templates[i].Availabilities = append(templates[i].Availabilities, *a)
	}
	return rows.Err()
}

func (r *PgRepository) CreateException(ctx context.Context, e *Exception) error {
	e.ID = uuid.New()
	return r.pool.QueryRow(ctx, `
		INSERT INTO schedule_exceptions (id, resource_id, reason, valid_from, valid_to, start_minute, end_minute, is_available, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		RETURNING created_at
	`, e.ID, e.ResourceID, e.Reason, e.ValidFrom, e.ValidTo, int(e.Start), int(e.End), e.IsAvailable).Scan(&e.CreatedAt)
}

func (r *PgRepository) ListExceptions(ctx context.Context, resourceID uuid.UUID, from, to time.Time) ([]Exception, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, resource_id, reason, valid_from, valid_to, start_minute, end_minute, is_available, created_at
		FROM schedule_exceptions
		WHERE resource_id = $1
		  AND valid_from <= $3
		  AND valid_to >= $2
		ORDER BY valid_from, start_minute
	`, resourceID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Exception
	for rows.Next() {
		e, err := scanException(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *e)
	}
	return result, rows.Err()
}

func (r *PgRepository) MaterializeSlots(ctx context.Context, slots []Slot) (int, error) {
	batch := &pgx.Batch{}
	for _, s := range slots {
		batch.Queue(`
			INSERT INTO slots (id, resource_id, availability_id, start_at, end_at, allocated, tokens_issued, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, 0, 0, now(), now())
			ON CONFLICT (availability_id, start_at) DO NOTHING
		`, uuid.New(), s.ResourceID, s.AvailabilityID, s.Start, s.End)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	inserted := 0
	for range slots {
		tag, err := br.Exec()
		if err != nil {
			return inserted, fmt.Errorf("insert slot: %w", err)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}

const slotSelect = `
	SELECT s.id, s.resource_id, s.availability_id, s.start_at, s.end_at, s.allocated, s.tokens_issued, s.created_at, s.updated_at,
	       ` + availabilityColumns + `
	FROM slots s
	JOIN availabilities a ON a.id = s.availability_id
`

func (r *PgRepository) GetSlotByID(ctx context.Context, id uuid.UUID) (*Slot, error) {
	row := r.pool.QueryRow(ctx, slotSelect+` WHERE s.id = $1`, id)
	return scanSlot(row)
}

func (r *PgRepository) ListSlots(ctx context.Context, resourceID uuid.UUID, from, to time.Time) ([]Slot, error) {
	rows, err := r.pool.Query(ctx, slotSelect+`
		WHERE s.resource_id = $1
		  AND s.start_at >= $2
		  AND s.start_at < $3
		ORDER BY s.start_at, s.id
	`, resourceID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Slot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	return result, rows.Err()
}

func (r *PgRepository) BookedByDate(ctx context.Context, resourceID uuid.UUID, from, to time.Time, tz string) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT to_char(start_at AT TIME ZONE $4, 'YYYY-MM-DD') AS day, COALESCE(SUM(allocated), 0)
		FROM slots
		WHERE resource_id = $1
		  AND start_at >= $2
		  AND start_at < $3
		GROUP BY day
	`, resourceID, from, to, tz)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[string]int)
	for rows.Next() {
		var day string
		var booked int64
		if err := rows.Scan(&day, &booked); err != nil {
			return nil, err
		}
		result[day] = int(booked)
	}
	return result, rows.Err()
}
