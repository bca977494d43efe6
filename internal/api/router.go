package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/availability-scheduling/internal/appointment"
	"github.com/hackgods/availability-scheduling/internal/availability"
	"github.com/hackgods/availability-scheduling/internal/config"
	"github.com/hackgods/availability-scheduling/internal/schedule"
)

// ScheduleService is implemented by *schedule.Service.
type ScheduleService interface {
	Location() *time.Location
	CreateTemplate(ctx context.Context, t schedule.Template) (*schedule.Template, error)
	GetTemplate(ctx context.Context, id uuid.UUID) (*schedule.Template, error)
	ListTemplates(ctx context.Context, resourceID uuid.UUID, from, to time.Time) ([]schedule.Template, error)
	CreateException(ctx context.Context, e schedule.Exception) (*schedule.Exception, error)
	ListExceptions(ctx context.Context, resourceID uuid.UUID, from, to time.Time) ([]schedule.Exception, error)
	AvailableDays(ctx context.Context, resourceID uuid.UUID, from, to time.Time) ([]schedule.Day, error)
	Slots(ctx context.Context, resourceID uuid.UUID, date time.Time) ([]schedule.Slot, error)
	GroupedSlots(ctx context.Context, resourceID uuid.UUID, date time.Time) ([]schedule.SlotGroup, error)
}

// HeatmapService is implemented by *availability.Aggregator.
type HeatmapService interface {
	Heatmap(ctx context.Context, resourceID uuid.UUID, from, to time.Time) (availability.Heatmap, error)
	Mode() config.HeatmapMode
}

// AppointmentService is implemented by *appointment.Service.
type AppointmentService interface {
	Book(ctx context.Context, req appointment.BookRequest) (*appointment.Appointment, error)
	Transition(ctx context.Context, id uuid.UUID, to appointment.Status, reason string) (*appointment.Appointment, error)
	Cancel(ctx context.Context, id uuid.UUID, reason string) (*appointment.Appointment, error)
	MarkEnteredInError(ctx context.Context, id uuid.UUID, reason string) (*appointment.Appointment, error)
	GetAppointment(ctx context.Context, id uuid.UUID) (*appointment.AppointmentDetail, error)
	ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]appointment.Appointment, error)
	ListAppointmentsBySlot(ctx context.Context, slotID uuid.UUID) ([]appointment.Appointment, error)
	ListAppointmentsByResource(ctx context.Context, resourceID uuid.UUID, date time.Time) ([]appointment.Appointment, error)
}

type RouterConfig struct {
	Schedule     ScheduleService
	Heatmap      HeatmapService
	Appointments AppointmentService
	Dependencies []Dependency
	Logger       *slog.Logger
	Env          string
	Version      string
	// Now defaults to time.Now.
	Now func() time.Time
}

func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(TracingMiddleware)

	// Health endpoints
	health := NewHealthHandler(cfg.Dependencies, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Schedule endpoints
	r.Post("/estimate", estimateHandler())
	r.Get("/templates/{id}", getTemplateHandler(cfg.Schedule))
	r.Route("/resources/{resourceID}", func(r chi.Router) {
		r.Post("/templates", createTemplateHandler(cfg.Schedule))
		r.Get("/templates", listTemplatesHandler(cfg.Schedule))
		r.Post("/exceptions", createExceptionHandler(cfg.Schedule))
		r.Get("/exceptions", listExceptionsHandler(cfg.Schedule))
		r.Get("/days", availableDaysHandler(cfg.Schedule))
		r.Get("/slots", slotsHandler(cfg.Schedule))
		r.Get("/slots/grouped", groupedSlotsHandler(cfg.Schedule))
		r.Get("/heatmap", heatmapHandler(cfg.Heatmap, cfg.Schedule.Location(), cfg.Now))
	})

	// Appointment endpoints
	r.Post("/appointments", createAppointmentHandler(cfg.Appointments))
	r.Get("/appointments", listAppointmentsHandler(cfg.Appointments))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Appointments))
	r.Post("/appointments/{id}/status", transitionHandler(cfg.Appointments))
	r.Post("/appointments/{id}/cancel", cancelHandler(cfg.Appointments))
	r.Post("/appointments/{id}/entered-in-error", enteredInErrorHandler(cfg.Appointments))

	return r
}
