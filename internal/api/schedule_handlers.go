package api

import (
	"net/http"
	"time"

	"github.com/hackgods/availability-scheduling/internal/schedule"
)

func estimateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AvailabilityRequest
		if !decodeBody(w, r, &req) {
			return
		}
		a := req.ToAvailability()
		if err := a.Validate(); err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, estimateResponse(schedule.Estimate(a)))
	}
}

func createTemplateHandler(svc ScheduleService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resourceID, ok := urlUUID(w, r, "resourceID")
		if !ok {
			return
		}
		var req TemplateRequest
		if !decodeBody(w, r, &req) {
			return
		}
		t, err := req.ToTemplate(resourceID)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		created, err := svc.CreateTemplate(r.Context(), t)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, templateResponse(*created))
	}
}

func getTemplateHandler(svc ScheduleService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := urlUUID(w, r, "id")
		if !ok {
			return
		}
		t, err := svc.GetTemplate(r.Context(), id)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, templateResponse(*t))
	}
}

func listTemplatesHandler(svc ScheduleService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resourceID, ok := urlUUID(w, r, "resourceID")
		if !ok {
			return
		}
		from, to, ok := queryRange(w, r)
		if !ok {
			return
		}
		templates, err := svc.ListTemplates(r.Context(), resourceID, from, to)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		resp := make([]TemplateResponse, 0, len(templates))
		for _, t := range templates {
			resp = append(resp, templateResponse(t))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func createExceptionHandler(svc ScheduleService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resourceID, ok := urlUUID(w, r, "resourceID")
		if !ok {
			return
		}
		var req ExceptionRequest
		if !decodeBody(w, r, &req) {
			return
		}
		e, err := req.ToException(resourceID)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		created, err := svc.CreateException(r.Context(), e)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, exceptionResponse(*created))
	}
}

func listExceptionsHandler(svc ScheduleService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resourceID, ok := urlUUID(w, r, "resourceID")
		if !ok {
			return
		}
		from, to, ok := queryRange(w, r)
		if !ok {
			return
		}
		exceptions, err := svc.ListExceptions(r.Context(), resourceID, from, to)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		resp := make([]ExceptionResponse, 0, len(exceptions))
		for _, e := range exceptions {
			resp = append(resp, exceptionResponse(e))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func availableDaysHandler(svc ScheduleService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resourceID, ok := urlUUID(w, r, "resourceID")
		if !ok {
			return
		}
		from, to, ok := queryRange(w, r)
		if !ok {
			return
		}
		days, err := svc.AvailableDays(r.Context(), resourceID, from, to)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		resp := make([]DayResponse, 0, len(days))
		for _, d := range days {
			resp = append(resp, dayResponse(d))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func slotsHandler(svc ScheduleService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resourceID, ok := urlUUID(w, r, "resourceID")
		if !ok {
			return
		}
		date, ok := queryDate(w, r, "date")
		if !ok {
			return
		}
		slots, err := svc.Slots(r.Context(), resourceID, date)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, slotResponses(slots))
	}
}

func groupedSlotsHandler(svc ScheduleService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resourceID, ok := urlUUID(w, r, "resourceID")
		if !ok {
			return
		}
		date, ok := queryDate(w, r, "date")
		if !ok {
			return
		}
		groups, err := svc.GroupedSlots(r.Context(), resourceID, date)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		resp := make([]SlotGroupResponse, 0, len(groups))
		for _, g := range groups {
			resp = append(resp, SlotGroupResponse{
				Name:     g.Availability.Name,
				SlotType: g.Availability.SlotType,
				Slots:    slotResponses(g.Slots),
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func heatmapHandler(svc HeatmapService, loc *time.Location, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resourceID, ok := urlUUID(w, r, "resourceID")
		if !ok {
			return
		}
		from, to, ok := queryRange(w, r)
		if !ok {
			return
		}
		h, err := svc.Heatmap(r.Context(), resourceID, from, to)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		today := schedule.DateOf(now().In(loc))
		resp := HeatmapResponse{
			ResourceID: resourceID,
			Mode:       string(svc.Mode()),
			Days:       make(map[string]HeatmapDayResponse, len(h)),
		}
		for date, e := range h {
			d, err := schedule.ParseDate(date)
			if err != nil {
				continue
			}
			resp.Days[date] = heatmapDayResponse(d, today, e)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
