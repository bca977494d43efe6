package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/availability-scheduling/internal/appointment"
	"github.com/hackgods/availability-scheduling/internal/availability"
	"github.com/hackgods/availability-scheduling/internal/schedule"
)

func (r AvailabilityRequest) ToAvailability() schedule.Availability {
	return schedule.Availability{
		Name:            r.Name,
		SlotType:        r.SlotType,
		Start:           r.Start,
		End:             r.End,
		SlotSizeMinutes: r.SlotSizeMinutes,
		TokensPerSlot:   r.TokensPerSlot,
		Reason:          r.Reason,
	}
}

// parseDate records a field error on ve when raw is not YYYY-MM-DD.
func parseDate(ve *schedule.ValidationError, field, raw string) time.Time {
	d, err := schedule.ParseDate(raw)
	if err != nil {
		ve.Fields = append(ve.Fields, schedule.FieldError{Field: field, Message: "must be a YYYY-MM-DD date"})
	}
	return d
}

func (r TemplateRequest) ToTemplate(resourceID uuid.UUID) (schedule.Template, error) {
	ve := &schedule.ValidationError{}
	from := parseDate(ve, "valid_from", r.ValidFrom)
	to := parseDate(ve, "valid_to", r.ValidTo)
	if len(ve.Fields) > 0 {
		return schedule.Template{}, ve
	}

	t := schedule.Template{
		ResourceID: resourceID,
		FacilityID: r.FacilityID,
		Name:       r.Name,
		ValidFrom:  from,
		ValidTo:    to,
	}
	for _, w := range r.Weekdays {
		t.Weekdays = append(t.Weekdays, time.Weekday(w))
	}
	for _, a := range r.Availabilities {
		t.Availabilities = append(t.Availabilities, a.ToAvailability())
	}
	return t, nil
}

func (r ExceptionRequest) ToException(resourceID uuid.UUID) (schedule.Exception, error) {
	ve := &schedule.ValidationError{}
	from := parseDate(ve, "valid_from", r.ValidFrom)
	to := parseDate(ve, "valid_to", r.ValidTo)
	if len(ve.Fields) > 0 {
		return schedule.Exception{}, ve
	}
	return schedule.Exception{
		ResourceID:  resourceID,
		Reason:      r.Reason,
		ValidFrom:   from,
		ValidTo:     to,
		Start:       r.Start,
		End:         r.End,
		IsAvailable: r.IsAvailable,
	}, nil
}

func availabilityResponse(a schedule.Availability) AvailabilityResponse {
	return AvailabilityResponse{
		ID: a.ID,
		AvailabilityRequest: AvailabilityRequest{
			Name:            a.Name,
			SlotType:        a.SlotType,
			Start:           a.Start,
			End:             a.End,
			SlotSizeMinutes: a.SlotSizeMinutes,
			TokensPerSlot:   a.TokensPerSlot,
			Reason:          a.Reason,
		},
	}
}

func templateResponse(t schedule.Template) TemplateResponse {
	resp := TemplateResponse{
		ID:             t.ID,
		ResourceID:     t.ResourceID,
		FacilityID:     t.FacilityID,
		Name:           t.Name,
		ValidFrom:      schedule.FormatDate(t.ValidFrom),
		ValidTo:        schedule.FormatDate(t.ValidTo),
		Weekdays:       make([]int, 0, len(t.Weekdays)),
		Availabilities: make([]AvailabilityResponse, 0, len(t.Availabilities)),
		CreatedAt:      t.CreatedAt,
	}
	for _, w := range t.Weekdays {
		resp.Weekdays = append(resp.Weekdays, int(w))
	}
	for _, a := range t.Availabilities {
		resp.Availabilities = append(resp.Availabilities, availabilityResponse(a))
	}
	return resp
}

func exceptionResponse(e schedule.Exception) ExceptionResponse {
	return ExceptionResponse{
		ID:         e.ID,
		ResourceID: e.ResourceID,
		ExceptionRequest: ExceptionRequest{
			Reason:      e.Reason,
			ValidFrom:   schedule.FormatDate(e.ValidFrom),
			ValidTo:     schedule.FormatDate(e.ValidTo),
			Start:       e.Start,
			End:         e.End,
			IsAvailable: e.IsAvailable,
		},
		FullDay: e.FullDay(),
	}
}

func estimateResponse(est schedule.SessionEstimate) EstimateResponse {
	return EstimateResponse{
		SlotsPerSession:      est.SlotsPerSession,
		TokenDurationMinutes: int(est.TokenDuration / time.Minute),
		TokenDurationSeconds: int(est.TokenDuration / time.Second),
		TotalTokens:          est.TotalTokens,
		RemainderMinutes:     est.RemainderMinutes,
	}
}

func dayResponse(d schedule.Day) DayResponse {
	resp := DayResponse{
		Date:    schedule.FormatDate(d.Date),
		Blocked: d.Blocked,
		Entries: make([]DayEntryResponse, 0, len(d.Entries)),
	}
	for _, o := range d.Entries {
		resp.Entries = append(resp.Entries, DayEntryResponse{
			TemplateID:     o.TemplateID,
			AvailabilityID: o.Availability.ID,
			Name:           o.Availability.Name,
			SlotType:       o.Availability.SlotType,
			Start:          o.Availability.Start,
			End:            o.Availability.End,
		})
	}
	return resp
}

func slotResponse(s schedule.Slot) SlotResponse {
	return SlotResponse{
		ID:               s.ID,
		ResourceID:       s.ResourceID,
		AvailabilityID:   s.AvailabilityID,
		AvailabilityName: s.Availability.Name,
		SlotType:         s.Availability.SlotType,
		Start:            s.Start,
		End:              s.End,
		Capacity:         s.Capacity(),
		Allocated:        s.Allocated,
		Remaining:        s.Remaining(),
	}
}

func slotResponses(slots []schedule.Slot) []SlotResponse {
	out := make([]SlotResponse, 0, len(slots))
	for _, s := range slots {
		out = append(out, slotResponse(s))
	}
	return out
}

func heatmapDayResponse(date, today time.Time, e availability.Entry) HeatmapDayResponse {
	resp := HeatmapDayResponse{
		BookedSlots: e.BookedSlots,
		Blocked:     e.Blocked,
		Level:       e.Level(),
		Bookable:    availability.Bookable(date, today, e),
	}
	if n, ok := e.TotalSlots.Value(); ok {
		resp.TotalSlots = &n
	} else {
		resp.Unbounded = true
	}
	if r, ok := e.BookedRatio(); ok {
		resp.BookedRatio = &r
	}
	return resp
}

func appointmentResponse(a appointment.Appointment) AppointmentResponse {
	allowed := appointment.AllowedTransitions(a.Status)
	if allowed == nil {
		allowed = []appointment.Status{}
	}
	return AppointmentResponse{
		ID:                 a.ID,
		SlotID:             a.SlotID,
		ResourceID:         a.ResourceID,
		PatientID:          a.PatientID,
		Status:             a.Status,
		ReasonForVisit:     a.ReasonForVisit,
		BookedBy:           a.BookedBy,
		BookedOn:           a.BookedOn,
		TokenNumber:        a.TokenNumber,
		StatusReason:       a.StatusReason,
		AllowedTransitions: allowed,
	}
}

func appointmentResponses(list []appointment.Appointment) []AppointmentResponse {
	out := make([]AppointmentResponse, 0, len(list))
	for _, a := range list {
		out = append(out, appointmentResponse(a))
	}
	return out
}

func appointmentDetailResponse(d appointment.AppointmentDetail) AppointmentDetailResponse {
	resp := AppointmentDetailResponse{AppointmentResponse: appointmentResponse(d.Appointment)}
	if d.Slot != nil {
		s := slotResponse(*d.Slot)
		resp.Slot = &s
	}
	if d.Patient != nil {
		resp.PatientName = d.Patient.Name
	}
	if d.Resource != nil {
		resp.ResourceName = d.Resource.Name
	}
	return resp
}
