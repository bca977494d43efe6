package client

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/hackgods/availability-scheduling/internal/api"
	"github.com/hackgods/availability-scheduling/internal/appointment"
	"github.com/hackgods/availability-scheduling/internal/schedule"
)

var sentinels = map[string]error{
	api.CodeCapacityExceeded:  schedule.ErrCapacityExceeded,
	api.CodeInvalidTransition: appointment.ErrInvalidTransition,
	api.CodeTemplateConflict:  schedule.ErrTemplateConflict,
	api.CodeDuplicateBooking:  appointment.ErrDuplicateBooking,
	api.CodeSlotBeingBooked:   appointment.ErrSlotBeingBooked,
	api.CodeSlotBlocked:       schedule.ErrSlotBlocked,
	api.CodeSlotMismatch:      appointment.ErrSlotResourceMismatch,
	api.CodeSlotInPast:        appointment.ErrSlotInPast,
	api.CodeTemplateNotFound:  schedule.ErrTemplateNotFound,
	api.CodeSlotNotFound:      schedule.ErrSlotNotFound,
	api.CodeResourceNotFound:  schedule.ErrResourceNotFound,
	api.CodePatientNotFound:   appointment.ErrPatientNotFound,
	api.CodeApptNotFound:      appointment.ErrAppointmentNotFound,
}

// APIError is a non-2xx response. It unwraps to the domain sentinel matching
// its code, so callers can use errors.Is as they would in-process.
type APIError struct {
	StatusCode int
	Code       string
	Details    string
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s (%d): %s", e.Code, e.StatusCode, e.Details)
	}
	return fmt.Sprintf("%s (%d)", e.Code, e.StatusCode)
}

func (e *APIError) Unwrap() error {
	return sentinels[e.Code]
}

func (e *APIError) Temporary() bool {
	return e.StatusCode >= http.StatusInternalServerError
}

// decodeError turns an error body into *schedule.ValidationError for
// validation failures and *APIError otherwise.
func decodeError(status int, body []byte) error {
	var resp api.ErrorResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.Error == "" {
		return &APIError{StatusCode: status, Code: http.StatusText(status)}
	}
	if resp.Error == api.CodeValidation {
		ve := &schedule.ValidationError{}
		for _, f := range resp.Fields {
			ve.Fields = append(ve.Fields, schedule.FieldError{Field: f.Field, Message: f.Message})
		}
		if len(ve.Fields) == 0 {
			ve.Fields = []schedule.FieldError{{Field: "request", Message: resp.Details}}
		}
		return ve
	}
	return &APIError{StatusCode: status, Code: resp.Error, Details: resp.Details}
}
