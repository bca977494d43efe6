package appointment

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"
)

const EventAppointmentBooked = "appointment.booked"

// Event describes a committed change to an appointment.
type Event struct {
	Type        string      `json:"type"`
	Appointment Appointment `json:"appointment"`
	From        Status      `json:"from,omitempty"`
	Reason      string      `json:"reason,omitempty"`
	At          time.Time   `json:"at"`
}

// TransitionEventType names the event emitted when an appointment enters to.
func TransitionEventType(to Status) string {
	return "appointment." + string(to)
}

// Observer receives events after the change is committed. Failures are the
// observer's to handle; they never undo the change.
type Observer interface {
	Notify(ctx context.Context, ev Event)
}

type ObserverFunc func(ctx context.Context, ev Event)

func (f ObserverFunc) Notify(ctx context.Context, ev Event) { f(ctx, ev) }

type Observers []Observer

func (o Observers) Notify(ctx context.Context, ev Event) {
	for _, obs := range o {
		obs.Notify(ctx, ev)
	}
}

// OnEnter calls fn only for transitions into status.
func OnEnter(status Status, fn func(ctx context.Context, appt Appointment)) Observer {
	typ := TransitionEventType(status)
	return ObserverFunc(func(ctx context.Context, ev Event) {
		if ev.Type == typ {
			fn(ctx, ev.Appointment)
		}
	})
}

// EventLogObserver writes every event into the event_logs table.
type EventLogObserver struct {
	repo   Repository
	logger *slog.Logger
}

func NewEventLogObserver(repo Repository, logger *slog.Logger) *EventLogObserver {
	return &EventLogObserver{repo: repo, logger: logger}
}

func (o *EventLogObserver) Notify(ctx context.Context, ev Event) {
	data, err := json.Marshal(map[string]any{
		"slot_id":      ev.Appointment.SlotID.String(),
		"patient_id":   ev.Appointment.PatientID.String(),
		"from":         ev.From,
		"to":           ev.Appointment.Status,
		"reason":       ev.Reason,
		"token_number": ev.Appointment.TokenNumber,
	})
	if err != nil {
		o.logger.Error("failed to marshal event payload", slog.String("event", ev.Type), slog.Any("error", err))
		data = nil
	}

	apptID := ev.Appointment.ID
	err = o.repo.InsertEvent(ctx, EventLog{
		EventType:     strings.ToUpper(strings.ReplaceAll(ev.Type, ".", "_")),
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     ev.At,
	})
	if err != nil {
		o.logger.Error("failed to insert event log",
			slog.String("event", ev.Type),
			slog.String("appointment_id", apptID.String()),
			slog.Any("error", err))
	}
}
