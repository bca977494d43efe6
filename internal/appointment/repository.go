package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrPatientNotFound     = errors.New("patient not found")
	ErrResourceNotFound    = errors.New("resource not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrDuplicateBooking    = errors.New("patient already holds an active appointment in this slot")

	// ErrStatusChanged is returned by ApplyTransition when the appointment
	// was no longer in the expected status.
	ErrStatusChanged = errors.New("appointment status changed concurrently")
)

type BookParams struct {
	SlotID         uuid.UUID
	ResourceID     uuid.UUID
	PatientID      uuid.UUID
	ReasonForVisit string
	BookedBy       string
	BookedOn       time.Time
}

type TransitionParams struct {
	ID      uuid.UUID
	SlotID  uuid.UUID
	From    Status
	To      Status
	Reason  string
	Release bool
}

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetResourceByID(ctx context.Context, id uuid.UUID) (*Resource, error)
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// BookSlot claims one token of the slot and inserts the appointment in a
	// single transaction. A full slot yields schedule.ErrCapacityExceeded.
	BookSlot(ctx context.Context, p BookParams) (*Appointment, error)

	// ApplyTransition moves the appointment from p.From to p.To, releasing
	// the slot token in the same transaction when p.Release is set.
	ApplyTransition(ctx context.Context, p TransitionParams) (*Appointment, error)

	ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error)
	ListAppointmentsBySlot(ctx context.Context, slotID uuid.UUID) ([]Appointment, error)
	ListAppointmentsByResource(ctx context.Context, resourceID uuid.UUID, from, to time.Time) ([]Appointment, error)

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}
