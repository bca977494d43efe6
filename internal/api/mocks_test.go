package api

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/availability-scheduling/internal/appointment"
	"github.com/hackgods/availability-scheduling/internal/availability"
	"github.com/hackgods/availability-scheduling/internal/config"
	"github.com/hackgods/availability-scheduling/internal/schedule"
)

type mockScheduleService struct {
	CreateTemplateFunc  func(ctx context.Context, t schedule.Template) (*schedule.Template, error)
	GetTemplateFunc     func(ctx context.Context, id uuid.UUID) (*schedule.Template, error)
	ListTemplatesFunc   func(ctx context.Context, resourceID uuid.UUID, from, to time.Time) ([]schedule.Template, error)
	CreateExceptionFunc func(ctx context.Context, e schedule.Exception) (*schedule.Exception, error)
	ListExceptionsFunc  func(ctx context.Context, resourceID uuid.UUID, from, to time.Time) ([]schedule.Exception, error)
	AvailableDaysFunc   func(ctx context.Context, resourceID uuid.UUID, from, to time.Time) ([]schedule.Day, error)
	SlotsFunc           func(ctx context.Context, resourceID uuid.UUID, date time.Time) ([]schedule.Slot, error)
	GroupedSlotsFunc    func(ctx context.Context, resourceID uuid.UUID, date time.Time) ([]schedule.SlotGroup, error)
}

func (m *mockScheduleService) Location() *time.Location { return time.UTC }

func (m *mockScheduleService) CreateTemplate(ctx context.Context, t schedule.Template) (*schedule.Template, error) {
	return m.CreateTemplateFunc(ctx, t)
}

func (m *mockScheduleService) GetTemplate(ctx context.Context, id uuid.UUID) (*schedule.Template, error) {
	return m.GetTemplateFunc(ctx, id)
}

func (m *mockScheduleService) ListTemplates(ctx context.Context, resourceID uuid.UUID, from, to time.Time) ([]schedule.Template, error) {
	return m.ListTemplatesFunc(ctx, resourceID, from, to)
}

func (m *mockScheduleService) CreateException(ctx context.Context, e schedule.Exception) (*schedule.Exception, error) {
	return m.CreateExceptionFunc(ctx, e)
}

func (m *mockScheduleService) ListExceptions(ctx context.Context, resourceID uuid.UUID, from, to time.Time) ([]schedule.Exception, error) {
	return m.ListExceptionsFunc(ctx, resourceID, from, to)
}

func (m *mockScheduleService) AvailableDays(ctx context.Context, resourceID uuid.UUID, from, to time.Time) ([]schedule.Day, error) {
	return m.AvailableDaysFunc(ctx, resourceID, from, to)
}

func (m *mockScheduleService) Slots(ctx context.Context, resourceID uuid.UUID, date time.Time) ([]schedule.Slot, error) {
	return m.SlotsFunc(ctx, resourceID, date)
}

func (m *mockScheduleService) GroupedSlots(ctx context.Context, resourceID uuid.UUID, date time.Time) ([]schedule.SlotGroup, error) {
	return m.GroupedSlotsFunc(ctx, resourceID, date)
}

type mockHeatmapService struct {
	HeatmapFunc func(ctx context.Context, resourceID uuid.UUID, from, to time.Time) (availability.Heatmap, error)
	mode        config.HeatmapMode
}

func (m *mockHeatmapService) Heatmap(ctx context.Context, resourceID uuid.UUID, from, to time.Time) (availability.Heatmap, error) {
	return m.HeatmapFunc(ctx, resourceID, from, to)
}

func (m *mockHeatmapService) Mode() config.HeatmapMode { return m.mode }

type mockAppointmentService struct {
	BookFunc                       func(ctx context.Context, req appointment.BookRequest) (*appointment.Appointment, error)
	TransitionFunc                 func(ctx context.Context, id uuid.UUID, to appointment.Status, reason string) (*appointment.Appointment, error)
	GetAppointmentFunc             func(ctx context.Context, id uuid.UUID) (*appointment.AppointmentDetail, error)
	ListAppointmentsByPatientFunc  func(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]appointment.Appointment, error)
	ListAppointmentsBySlotFunc     func(ctx context.Context, slotID uuid.UUID) ([]appointment.Appointment, error)
	ListAppointmentsByResourceFunc func(ctx context.Context, resourceID uuid.UUID, date time.Time) ([]appointment.Appointment, error)
}

func (m *mockAppointmentService) Book(ctx context.Context, req appointment.BookRequest) (*appointment.Appointment, error) {
	return m.BookFunc(ctx, req)
}

func (m *mockAppointmentService) Transition(ctx context.Context, id uuid.UUID, to appointment.Status, reason string) (*appointment.Appointment, error) {
	return m.TransitionFunc(ctx, id, to, reason)
}

func (m *mockAppointmentService) Cancel(ctx context.Context, id uuid.UUID, reason string) (*appointment.Appointment, error) {
	return m.TransitionFunc(ctx, id, appointment.StatusCancelled, reason)
}

func (m *mockAppointmentService) MarkEnteredInError(ctx context.Context, id uuid.UUID, reason string) (*appointment.Appointment, error) {
	return m.TransitionFunc(ctx, id, appointment.StatusEnteredInError, reason)
}

func (m *mockAppointmentService) GetAppointment(ctx context.Context, id uuid.UUID) (*appointment.AppointmentDetail, error) {
	return m.GetAppointmentFunc(ctx, id)
}

func (m *mockAppointmentService) ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]appointment.Appointment, error) {
	return m.ListAppointmentsByPatientFunc(ctx, patientID, limit, offset)
}

func (m *mockAppointmentService) ListAppointmentsBySlot(ctx context.Context, slotID uuid.UUID) ([]appointment.Appointment, error) {
	return m.ListAppointmentsBySlotFunc(ctx, slotID)
}

func (m *mockAppointmentService) ListAppointmentsByResource(ctx context.Context, resourceID uuid.UUID, date time.Time) ([]appointment.Appointment, error) {
	return m.ListAppointmentsByResourceFunc(ctx, resourceID, date)
}
