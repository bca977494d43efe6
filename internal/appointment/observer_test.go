package appointment

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOnEnter(t *testing.T) {
	var entered []uuid.UUID
	obs := OnEnter(StatusInConsultation, func(ctx context.Context, appt Appointment) {
		entered = append(entered, appt.ID)
	})

	id := uuid.New()
	Observers{obs}.Notify(context.Background(), Event{Type: EventAppointmentBooked, Appointment: Appointment{ID: uuid.New()}})
	Observers{obs}.Notify(context.Background(), Event{Type: TransitionEventType(StatusInConsultation), Appointment: Appointment{ID: id}})
	Observers{obs}.Notify(context.Background(), Event{Type: TransitionEventType(StatusFulfilled), Appointment: Appointment{ID: uuid.New()}})

	assert.Equal(t, []uuid.UUID{id}, entered)
}

func TestEventLogObserver(t *testing.T) {
	store := newMemStore()
	obs := NewEventLogObserver(store, slog.New(slog.NewTextHandler(io.Discard, nil)))

	at := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	appt := Appointment{
		ID:          uuid.New(),
		SlotID:      uuid.New(),
		PatientID:   uuid.New(),
		Status:      StatusCancelled,
		TokenNumber: 4,
	}
	obs.Notify(context.Background(), Event{
		Type:        TransitionEventType(StatusCancelled),
		Appointment: appt,
		From:        StatusBooked,
		Reason:      "patient request",
		At:          at,
	})

	require.Len(t, store.events, 1)
	ev := store.events[0]
	assert.Equal(t, "APPOINTMENT_CANCELLED", ev.EventType)
	require.NotNil(t, ev.AppointmentID)
	assert.Equal(t, appt.ID, *ev.AppointmentID)
	assert.Equal(t, at, ev.CreatedAt)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(ev.Payload, &payload))
	assert.Equal(t, "booked", payload["from"])
	assert.Equal(t, "cancelled", payload["to"])
	assert.Equal(t, "patient request", payload["reason"])
	assert.EqualValues(t, 4, payload["token_number"])
}
