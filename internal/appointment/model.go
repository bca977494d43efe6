package appointment

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/availability-scheduling/internal/schedule"
)

type Status string

const (
	StatusBooked         Status = "booked"
	StatusCheckedIn      Status = "checked_in"
	StatusInConsultation Status = "in_consultation"
	StatusFulfilled      Status = "fulfilled"
	StatusCancelled      Status = "cancelled"
	StatusNoShow         Status = "noshow"
	StatusEnteredInError Status = "entered_in_error"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []Status{
	StatusBooked,
	StatusCheckedIn,
	StatusInConsultation,
	StatusFulfilled,
	StatusCancelled,
	StatusNoShow,
	StatusEnteredInError,
}

type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Resource is a schedulable practitioner.
type Resource struct {
	ID         uuid.UUID
	Name       string
	Specialty  *string
	FacilityID uuid.UUID
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Appointment struct {
	ID             uuid.UUID
	SlotID         uuid.UUID
	ResourceID     uuid.UUID
	PatientID      uuid.UUID
	Status         Status
	ReasonForVisit string
	BookedBy       string
	BookedOn       time.Time
	TokenNumber    int
	StatusReason   *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}

type AppointmentDetail struct {
	Appointment
	Slot     *schedule.Slot
	Patient  *Patient
	Resource *Resource
}
