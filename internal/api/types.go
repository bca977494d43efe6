package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/availability-scheduling/internal/appointment"
	"github.com/hackgods/availability-scheduling/internal/availability"
	"github.com/hackgods/availability-scheduling/internal/schedule"
)

type AvailabilityRequest struct {
	Name            string             `json:"name"`
	SlotType        schedule.SlotType  `json:"slot_type"`
	Start           schedule.TimeOfDay `json:"start"`
	End             schedule.TimeOfDay `json:"end"`
	SlotSizeMinutes int                `json:"slot_size_minutes"`
	TokensPerSlot   int                `json:"tokens_per_slot"`
	Reason          *string            `json:"reason,omitempty"`
}

type AvailabilityResponse struct {
	ID uuid.UUID `json:"id"`
	AvailabilityRequest
}

type TemplateRequest struct {
	FacilityID     uuid.UUID             `json:"facility_id"`
	Name           string                `json:"name"`
	ValidFrom      string                `json:"valid_from"`
	ValidTo        string                `json:"valid_to"`
	Weekdays       []int                 `json:"weekdays"`
	Availabilities []AvailabilityRequest `json:"availabilities"`
}

type TemplateResponse struct {
	ID             uuid.UUID              `json:"id"`
	ResourceID     uuid.UUID              `json:"resource_id"`
	FacilityID     uuid.UUID              `json:"facility_id"`
	Name           string                 `json:"name"`
	ValidFrom      string                 `json:"valid_from"`
	ValidTo        string                 `json:"valid_to"`
	Weekdays       []int                  `json:"weekdays"`
	Availabilities []AvailabilityResponse `json:"availabilities"`
	CreatedAt      time.Time              `json:"created_at"`
}

type ExceptionRequest struct {
	Reason      string             `json:"reason"`
	ValidFrom   string             `json:"valid_from"`
	ValidTo     string             `json:"valid_to"`
	Start       schedule.TimeOfDay `json:"start"`
	End         schedule.TimeOfDay `json:"end"`
	IsAvailable bool               `json:"is_available"`
}

type ExceptionResponse struct {
	ID         uuid.UUID `json:"id"`
	ResourceID uuid.UUID `json:"resource_id"`
	ExceptionRequest
	FullDay bool `json:"full_day"`
}

type EstimateResponse struct {
	SlotsPerSession      int `json:"slots_per_session"`
	TokenDurationMinutes int `json:"token_duration_minutes"`
	TokenDurationSeconds int `json:"token_duration_seconds"`
	TotalTokens          int `json:"total_tokens"`
	RemainderMinutes     int `json:"remainder_minutes"`
}

type DayEntryResponse struct {
	TemplateID     uuid.UUID          `json:"template_id"`
	AvailabilityID uuid.UUID          `json:"availability_id"`
	Name           string             `json:"name"`
	SlotType       schedule.SlotType  `json:"slot_type"`
	Start          schedule.TimeOfDay `json:"start"`
	End            schedule.TimeOfDay `json:"end"`
}

type DayResponse struct {
	Date    string             `json:"date"`
	Blocked bool               `json:"blocked"`
	Entries []DayEntryResponse `json:"entries"`
}

type SlotResponse struct {
	ID               uuid.UUID         `json:"id"`
	ResourceID       uuid.UUID         `json:"resource_id"`
	AvailabilityID   uuid.UUID         `json:"availability_id"`
	AvailabilityName string            `json:"availability_name"`
	SlotType         schedule.SlotType `json:"slot_type"`
	Start            time.Time         `json:"start"`
	End              time.Time         `json:"end"`
	Capacity         int               `json:"capacity"`
	Allocated        int               `json:"allocated"`
	Remaining        int               `json:"remaining"`
}

type SlotGroupResponse struct {
	Name     string            `json:"name"`
	SlotType schedule.SlotType `json:"slot_type"`
	Slots    []SlotResponse    `json:"slots"`
}

// HeatmapDayResponse carries a null total_slots with unbounded set when
// capacity is unconstrained.
type HeatmapDayResponse struct {
	TotalSlots  *int               `json:"total_slots"`
	BookedSlots int                `json:"booked_slots"`
	Unbounded   bool               `json:"unbounded,omitempty"`
	Blocked     bool               `json:"blocked,omitempty"`
	BookedRatio *float64           `json:"booked_ratio,omitempty"`
	Level       availability.Level `json:"level"`
	Bookable    bool               `json:"bookable"`
}

type HeatmapResponse struct {
	ResourceID uuid.UUID                     `json:"resource_id"`
	Mode       string                        `json:"mode"`
	Days       map[string]HeatmapDayResponse `json:"days"`
}

type CreateAppointmentRequest struct {
	SlotID         string `json:"slot_id"`
	ResourceID     string `json:"resource_id,omitempty"`
	PatientID      string `json:"patient_id"`
	ReasonForVisit string `json:"reason_for_visit,omitempty"`
	BookedBy       string `json:"booked_by,omitempty"`
}

type TransitionRequest struct {
	Status appointment.Status `json:"status"`
	Reason string             `json:"reason,omitempty"`
}

type ReasonRequest struct {
	Reason string `json:"reason"`
}

type AppointmentResponse struct {
	ID                 uuid.UUID            `json:"id"`
	SlotID             uuid.UUID            `json:"slot_id"`
	ResourceID         uuid.UUID            `json:"resource_id"`
	PatientID          uuid.UUID            `json:"patient_id"`
	Status             appointment.Status   `json:"status"`
	ReasonForVisit     string               `json:"reason_for_visit,omitempty"`
	BookedBy           string               `json:"booked_by,omitempty"`
	BookedOn           time.Time            `json:"booked_on"`
	TokenNumber        int                  `json:"token_number"`
	StatusReason       *string              `json:"status_reason,omitempty"`
	AllowedTransitions []appointment.Status `json:"allowed_transitions"`
}

type AppointmentDetailResponse struct {
	AppointmentResponse
	Slot         *SlotResponse `json:"slot,omitempty"`
	PatientName  string        `json:"patient_name,omitempty"`
	ResourceName string        `json:"resource_name,omitempty"`
}

type FieldErrorResponse struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error   string               `json:"error"`
	Details string               `json:"details,omitempty"`
	Fields  []FieldErrorResponse `json:"fields,omitempty"`
}
