package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/availability-scheduling/internal/schedule"
)

const uniqueViolation = "23505"

const appointmentColumns = `id, slot_id, resource_id, patient_id, status, reason_for_visit,
	booked_by, booked_on, token_number, status_reason, created_at, updated_at`

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.Name, &p.Email, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	return &p, nil
}

func scanResource(row pgx.Row) (*Resource, error) {
	var r Resource
	err := row.Scan(&r.ID, &r.Name, &r.Specialty, &r.FacilityID, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrResourceNotFound
		}
		return nil, err
	}
	return &r, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID,
		&a.SlotID,
		&a.ResourceID,
		&a.PatientID,
		&a.Status,
		&a.ReasonForVisit,
		&a.BookedBy,
		&a.BookedOn,
		&a.TokenNumber,
		&a.StatusReason,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}
	return &a, nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	result := []Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Interface methods

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) GetResourceByID(ctx context.Context, id uuid.UUID) (*Resource, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, specialty, facility_id, created_at, updated_at
		FROM resources
		WHERE id = $1
	`, id)
	return scanResource(row)
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id)
	return scanAppointment(row)
}

func (r *PgRepository) BookSlot(ctx context.Context, p BookParams) (*Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin booking: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// The claim only succeeds while allocated < tokens_per_slot, so two
	// concurrent transactions can never both take the last token.
	var token int
	err = tx.QueryRow(ctx, `
		UPDATE slots s
		SET allocated = s.allocated + 1,
		    tokens_issued = s.tokens_issued + 1,
		    updated_at = now()
		FROM availabilities a
		WHERE s.id = $1
		  AND a.id = s.availability_id
		  AND s.allocated < a.tokens_per_slot
		RETURNING s.tokens_issued
	`, p.SlotID).Scan(&token)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM slots WHERE id = $1)`, p.SlotID).Scan(&exists); err != nil {
			return nil, fmt.Errorf("check slot: %w", err)
		}
		if !exists {
			return nil, schedule.ErrSlotNotFound
		}
		return nil, schedule.ErrCapacityExceeded
	}
	if err != nil {
		return nil, fmt.Errorf("claim slot: %w", err)
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO appointments (id, slot_id, resource_id, patient_id, status, reason_for_visit,
		                          booked_by, booked_on, token_number, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
		RETURNING `+appointmentColumns,
		uuid.New(), p.SlotID, p.ResourceID, p.PatientID, StatusBooked, p.ReasonForVisit,
		p.BookedBy, p.BookedOn, token)
	appt, err := scanAppointment(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrDuplicateBooking
		}
		return nil, fmt.Errorf("insert appointment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit booking: %w", err)
	}
	return appt, nil
}

func (r *PgRepository) ApplyTransition(ctx context.Context, p TransitionParams) (*Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transition: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var reason *string
	if p.Reason != "" {
		reason = &p.Reason
	}

	row := tx.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    status_reason = COALESCE($4, status_reason),
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+appointmentColumns, p.ID, p.To, p.From, reason)
	appt, err := scanAppointment(row)
	if errors.Is(err, ErrAppointmentNotFound) {
		return nil, ErrStatusChanged
	}
	if err != nil {
		return nil, fmt.Errorf("update appointment status: %w", err)
	}

	if p.Release {
		_, err := tx.Exec(ctx, `
			UPDATE slots
			SET allocated = allocated - 1,
			    updated_at = now()
			WHERE id = $1
			  AND allocated > 0
		`, p.SlotID)
		if err != nil {
			return nil, fmt.Errorf("release slot: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transition: %w", err)
	}
	return appt, nil
}

func (r *PgRepository) ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE patient_id = $1
		ORDER BY booked_on DESC, id
		LIMIT $2 OFFSET $3
	`, patientID, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) ListAppointmentsBySlot(ctx context.Context, slotID uuid.UUID) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE slot_id = $1
		ORDER BY token_number
	`, slotID)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) ListAppointmentsByResource(ctx context.Context, resourceID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id, a.slot_id, a.resource_id, a.patient_id, a.status, a.reason_for_visit,
		       a.booked_by, a.booked_on, a.token_number, a.status_reason, a.created_at, a.updated_at
		FROM appointments a
		JOIN slots s ON s.id = a.slot_id
		WHERE a.resource_id = $1
		  AND s.start_at >= $2
		  AND s.start_at < $3
		ORDER BY s.start_at, a.token_number
	`, resourceID, from, to)
	if err != nil {
		return nil, err
	}
	return collectAppointments(rows)
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}
	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
