package appointment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/availability-scheduling/internal/config"
	redisclient "github.com/hackgods/availability-scheduling/internal/redis"
	"github.com/hackgods/availability-scheduling/internal/schedule"
)

var (
	ErrSlotBeingBooked      = errors.New("slot is currently being booked, please retry")
	ErrSlotResourceMismatch = errors.New("slot does not belong to the requested resource")
	ErrSlotInPast           = errors.New("slot is in the past")
)

// SlotDirectory resolves slots and guards them against exceptions.
// *schedule.Service satisfies it.
type SlotDirectory interface {
	GetSlot(ctx context.Context, id uuid.UUID) (*schedule.Slot, error)
	CheckBookable(ctx context.Context, slot schedule.Slot) error
}

type BookRequest struct {
	SlotID         uuid.UUID
	ResourceID     uuid.UUID
	PatientID      uuid.UUID
	ReasonForVisit string
	BookedBy       string
}

type Service struct {
	repo        Repository
	slots       SlotDirectory
	locker      redisclient.Locker
	invalidator schedule.CacheInvalidator
	observers   Observers
	loc         *time.Location
	now         func() time.Time
	logger      *slog.Logger
}

func NewService(
	repo Repository,
	slots SlotDirectory,
	locker redisclient.Locker,
	invalidator schedule.CacheInvalidator,
	cfg config.Config,
	logger *slog.Logger,
	observers ...Observer,
) *Service {
	return &Service{
		repo:        repo,
		slots:       slots,
		locker:      locker,
		invalidator: invalidator,
		observers:   observers,
		loc:         cfg.Location(),
		now:         time.Now,
		logger:      logger,
	}
}

// Book claims one token of a slot for a patient. A distributed lock keeps
// concurrent requests for the same slot from racing each other; the
// database claim is what finally enforces capacity.
func (s *Service) Book(ctx context.Context, req BookRequest) (*Appointment, error) {
	ve := &schedule.ValidationError{}
	if req.SlotID == uuid.Nil {
		ve.Fields = append(ve.Fields, schedule.FieldError{Field: "slot_id", Message: "is required"})
	}
	if req.PatientID == uuid.Nil {
		ve.Fields = append(ve.Fields, schedule.FieldError{Field: "patient_id", Message: "is required"})
	}
	if len(ve.Fields) > 0 {
		return nil, ve
	}

	// Validate patient exists
	if _, err := s.repo.GetPatientByID(ctx, req.PatientID); err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}

	slot, err := s.slots.GetSlot(ctx, req.SlotID)
	if err != nil {
		if errors.Is(err, schedule.ErrSlotNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load slot: %w", err)
	}
	if req.ResourceID != uuid.Nil && req.ResourceID != slot.ResourceID {
		return nil, ErrSlotResourceMismatch
	}

	now := s.now()
	if schedule.DateOf(slot.Start.In(s.loc)).Before(schedule.DateOf(now.In(s.loc))) {
		return nil, ErrSlotInPast
	}
	if slot.Remaining() == 0 {
		return nil, schedule.ErrCapacityExceeded
	}
	if err := s.slots.CheckBookable(ctx, *slot); err != nil {
		return nil, err
	}

	var created *Appointment
	err = s.locker.WithSlotLock(ctx, slot.ID, func(lockCtx context.Context) error {
		appt, err := s.repo.BookSlot(lockCtx, BookParams{
			SlotID:         slot.ID,
			ResourceID:     slot.ResourceID,
			PatientID:      req.PatientID,
			ReasonForVisit: strings.TrimSpace(req.ReasonForVisit),
			BookedBy:       req.BookedBy,
			BookedOn:       now,
		})
		if err != nil {
			return err
		}
		created = appt
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	s.logger.Info("appointment booked",
		slog.String("appointment_id", created.ID.String()),
		slog.String("slot_id", slot.ID.String()),
		slog.Int("token_number", created.TokenNumber))

	s.invalidate(ctx, *slot)
	s.observers.Notify(ctx, Event{Type: EventAppointmentBooked, Appointment: *created, At: now})
	return created, nil
}

// Transition moves an appointment to status to. An appointment already in
// to is returned unchanged when the request could have moved it there, so a
// replayed request has no further effect.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, to Status, reason string) (*Appointment, error) {
	if !to.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, to)
	}

	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	reason = strings.TrimSpace(reason)
	if appt.Status == to {
		if err := CheckReplay(to, reason); err != nil {
			return nil, err
		}
		return appt, nil
	}

	slot, err := s.slots.GetSlot(ctx, appt.SlotID)
	if err != nil {
		return nil, fmt.Errorf("load slot: %w", err)
	}

	now := s.now()
	if err := CheckTransition(appt.Status, to, reason, slot.Start.In(s.loc), now); err != nil {
		return nil, err
	}

	release := ReleasesAllocation(to)
	updated, err := s.repo.ApplyTransition(ctx, TransitionParams{
		ID:      appt.ID,
		SlotID:  appt.SlotID,
		From:    appt.Status,
		To:      to,
		Reason:  reason,
		Release: release,
	})
	if errors.Is(err, ErrStatusChanged) {
		current, loadErr := s.repo.GetAppointmentByID(ctx, id)
		if loadErr != nil {
			return nil, fmt.Errorf("reload appointment: %w", loadErr)
		}
		if current.Status == to {
			return current, nil
		}
		return nil, fmt.Errorf("%w: appointment is now %s", ErrInvalidTransition, current.Status)
	}
	if err != nil {
		return nil, fmt.Errorf("transition appointment: %w", err)
	}

	s.logger.Info("appointment status changed",
		slog.String("appointment_id", updated.ID.String()),
		slog.String("from", string(appt.Status)),
		slog.String("to", string(to)))

	if release {
		s.invalidate(ctx, *slot)
	}
	s.observers.Notify(ctx, Event{
		Type:        TransitionEventType(to),
		Appointment: *updated,
		From:        appt.Status,
		Reason:      reason,
		At:          now,
	})
	return updated, nil
}

func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason string) (*Appointment, error) {
	return s.Transition(ctx, id, StatusCancelled, reason)
}

func (s *Service) MarkEnteredInError(ctx context.Context, id uuid.UUID, reason string) (*Appointment, error) {
	return s.Transition(ctx, id, StatusEnteredInError, reason)
}

// GetAppointment retrieves a fully hydrated appointment by ID
func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*AppointmentDetail, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get appointment: %w", err)
	}

	detail := &AppointmentDetail{Appointment: *appt}
	if detail.Slot, err = s.slots.GetSlot(ctx, appt.SlotID); err != nil {
		return nil, fmt.Errorf("load slot: %w", err)
	}
	if detail.Patient, err = s.repo.GetPatientByID(ctx, appt.PatientID); err != nil {
		return nil, fmt.Errorf("load patient: %w", err)
	}
	if detail.Resource, err = s.repo.GetResourceByID(ctx, appt.ResourceID); err != nil {
		return nil, fmt.Errorf("load resource: %w", err)
	}
	return detail, nil
}

// ListAppointmentsByPatient retrieves appointments for a specific patient
func (s *Service) ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	if limit <= 0 {
		limit = 20 // default
	}
	if limit > 100 {
		limit = 100 // max
	}
	if offset < 0 {
		offset = 0
	}

	appointments, err := s.repo.ListAppointmentsByPatient(ctx, patientID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list appointments by patient: %w", err)
	}
	return appointments, nil
}

// ListAppointmentsBySlot retrieves all appointments for a specific slot
func (s *Service) ListAppointmentsBySlot(ctx context.Context, slotID uuid.UUID) ([]Appointment, error) {
	appointments, err := s.repo.ListAppointmentsBySlot(ctx, slotID)
	if err != nil {
		return nil, fmt.Errorf("list appointments by slot: %w", err)
	}
	return appointments, nil
}

// ListAppointmentsByResource returns the appointments whose slot starts on
// date in the facility timezone.
func (s *Service) ListAppointmentsByResource(ctx context.Context, resourceID uuid.UUID, date time.Time) ([]Appointment, error) {
	dayStart := schedule.StartOfDay.On(schedule.DateOf(date), s.loc)
	appointments, err := s.repo.ListAppointmentsByResource(ctx, resourceID, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("list appointments by resource: %w", err)
	}
	return appointments, nil
}

func (s *Service) invalidate(ctx context.Context, slot schedule.Slot) {
	if s.invalidator == nil {
		return
	}
	date := schedule.DateOf(slot.Start.In(s.loc))
	if err := s.invalidator.Invalidate(ctx, slot.ResourceID, date); err != nil {
		s.logger.Warn("failed to invalidate availability cache",
			slog.String("resource_id", slot.ResourceID.String()),
			slog.Any("error", err))
	}
}
