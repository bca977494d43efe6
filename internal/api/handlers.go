package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/hackgods/availability-scheduling/internal/appointment"
)

func createAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if !decodeBody(w, r, &req) {
			return
		}

		slotID, err := uuid.Parse(req.SlotID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_slot_id", "slot_id must be a valid UUID")
			return
		}

		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}

		var resourceID uuid.UUID
		if req.ResourceID != "" {
			if resourceID, err = uuid.Parse(req.ResourceID); err != nil {
				writeError(w, http.StatusBadRequest, "invalid_resource_id", "resource_id must be a valid UUID")
				return
			}
		}

		appt, err := svc.Book(r.Context(), appointment.BookRequest{
			SlotID:         slotID,
			ResourceID:     resourceID,
			PatientID:      patientID,
			ReasonForVisit: req.ReasonForVisit,
			BookedBy:       req.BookedBy,
		})
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, appointmentResponse(*appt))
	}
}

func getAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlUUID(w, r, "id")
		if !ok {
			return
		}
		detail, err := svc.GetAppointment(r.Context(), id)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, appointmentDetailResponse(*detail))
	}
}

// listAppointmentsHandler filters by exactly one of patient_id, slot_id or
// resource_id (with date).
func listAppointmentsHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		var (
			list []appointment.Appointment
			err  error
		)
		switch {
		case q.Get("patient_id") != "":
			patientID, perr := uuid.Parse(q.Get("patient_id"))
			if perr != nil {
				writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
				return
			}
			list, err = svc.ListAppointmentsByPatient(r.Context(), patientID, queryInt(r, "limit", 0), queryInt(r, "offset", 0))

		case q.Get("slot_id") != "":
			slotID, perr := uuid.Parse(q.Get("slot_id"))
			if perr != nil {
				writeError(w, http.StatusBadRequest, "invalid_slot_id", "slot_id must be a valid UUID")
				return
			}
			list, err = svc.ListAppointmentsBySlot(r.Context(), slotID)

		case q.Get("resource_id") != "":
			resourceID, perr := uuid.Parse(q.Get("resource_id"))
			if perr != nil {
				writeError(w, http.StatusBadRequest, "invalid_resource_id", "resource_id must be a valid UUID")
				return
			}
			date, ok := queryDate(w, r, "date")
			if !ok {
				return
			}
			list, err = svc.ListAppointmentsByResource(r.Context(), resourceID, date)

		default:
			fieldError(w, "patient_id", "one of patient_id, slot_id or resource_id is required")
			return
		}

		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, appointmentResponses(list))
	}
}

func transitionHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlUUID(w, r, "id")
		if !ok {
			return
		}
		var req TransitionRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if !req.Status.Valid() {
			fieldError(w, "status", "unknown status")
			return
		}
		appt, err := svc.Transition(r.Context(), id, req.Status, req.Reason)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, appointmentResponse(*appt))
	}
}

func cancelHandler(svc AppointmentService) http.HandlerFunc {
	return reasonHandler(svc.Cancel)
}

func enteredInErrorHandler(svc AppointmentService) http.HandlerFunc {
	return reasonHandler(svc.MarkEnteredInError)
}

func reasonHandler(fn func(ctx context.Context, id uuid.UUID, reason string) (*appointment.Appointment, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlUUID(w, r, "id")
		if !ok {
			return
		}
		var req ReasonRequest
		if !decodeBody(w, r, &req) {
			return
		}
		appt, err := fn(r.Context(), id, req.Reason)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, appointmentResponse(*appt))
	}
}
