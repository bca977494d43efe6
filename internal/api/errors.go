package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hackgods/availability-scheduling/internal/appointment"
	"github.com/hackgods/availability-scheduling/internal/schedule"
)

// Error codes shared with the client package.
const (
	CodeValidation        = "validation_error"
	CodeCapacityExceeded  = "capacity_exceeded"
	CodeInvalidTransition = "invalid_transition"
	CodeTemplateConflict  = "template_conflict"
	CodeDuplicateBooking  = "duplicate_booking"
	CodeSlotBeingBooked   = "slot_being_booked"
	CodeSlotBlocked       = "slot_blocked"
	CodeSlotMismatch      = "slot_resource_mismatch"
	CodeSlotInPast        = "slot_in_past"
	CodeTemplateNotFound  = "template_not_found"
	CodeSlotNotFound      = "slot_not_found"
	CodeResourceNotFound  = "resource_not_found"
	CodePatientNotFound   = "patient_not_found"
	CodeApptNotFound      = "appointment_not_found"
	CodeInvalidBody       = "invalid_request_body"
	CodeInternal          = "internal_error"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

func writeValidation(w http.ResponseWriter, ve *schedule.ValidationError) {
	resp := ErrorResponse{Error: CodeValidation, Details: ve.Error()}
	for _, f := range ve.Fields {
		resp.Fields = append(resp.Fields, FieldErrorResponse{Field: f.Field, Message: f.Message})
	}
	writeJSON(w, http.StatusUnprocessableEntity, resp)
}

func fieldError(w http.ResponseWriter, field, msg string) {
	writeValidation(w, &schedule.ValidationError{Fields: []schedule.FieldError{{Field: field, Message: msg}}})
}

// handleServiceError maps domain errors onto HTTP responses. Unknown errors
// are attached to the response writer so the logging middleware records them.
func handleServiceError(w http.ResponseWriter, err error) {
	var ve *schedule.ValidationError
	switch {
	case errors.As(err, &ve):
		writeValidation(w, ve)

	case errors.Is(err, schedule.ErrCapacityExceeded):
		writeError(w, http.StatusConflict, CodeCapacityExceeded, err.Error())
	case errors.Is(err, appointment.ErrInvalidTransition):
		writeError(w, http.StatusConflict, CodeInvalidTransition, err.Error())
	case errors.Is(err, schedule.ErrTemplateConflict):
		writeError(w, http.StatusConflict, CodeTemplateConflict, err.Error())
	case errors.Is(err, appointment.ErrDuplicateBooking):
		writeError(w, http.StatusConflict, CodeDuplicateBooking, err.Error())
	case errors.Is(err, appointment.ErrSlotBeingBooked):
		writeError(w, http.StatusConflict, CodeSlotBeingBooked, "slot is currently being booked, please retry shortly")
	case errors.Is(err, schedule.ErrSlotBlocked):
		writeError(w, http.StatusConflict, CodeSlotBlocked, err.Error())
	case errors.Is(err, appointment.ErrSlotResourceMismatch):
		writeError(w, http.StatusConflict, CodeSlotMismatch, err.Error())
	case errors.Is(err, appointment.ErrSlotInPast):
		writeError(w, http.StatusUnprocessableEntity, CodeSlotInPast, err.Error())

	case errors.Is(err, schedule.ErrTemplateNotFound):
		writeError(w, http.StatusNotFound, CodeTemplateNotFound, err.Error())
	case errors.Is(err, schedule.ErrSlotNotFound):
		writeError(w, http.StatusNotFound, CodeSlotNotFound, err.Error())
	case errors.Is(err, schedule.ErrResourceNotFound), errors.Is(err, appointment.ErrResourceNotFound):
		writeError(w, http.StatusNotFound, CodeResourceNotFound, err.Error())
	case errors.Is(err, appointment.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, CodePatientNotFound, err.Error())
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, CodeApptNotFound, err.Error())

	default:
		if rw, ok := w.(*responseWriter); ok {
			rw.err = err
		}
		writeError(w, http.StatusInternalServerError, CodeInternal, "internal server error")
	}
}
