package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/availability-scheduling/internal/api"
	"github.com/hackgods/availability-scheduling/internal/appointment"
	"github.com/hackgods/availability-scheduling/internal/schedule"
)

var (
	jan10 = time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	jan12 = time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC)
)

type fakeAPI struct {
	mux  *http.ServeMux
	hits map[string]*atomic.Int32
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{mux: http.NewServeMux(), hits: make(map[string]*atomic.Int32)}
}

func (f *fakeAPI) handle(pattern string, h http.HandlerFunc) {
	n := &atomic.Int32{}
	f.hits[pattern] = n
	f.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		n.Add(1)
		h(w, r)
	})
}

func (f *fakeAPI) count(pattern string) int32 {
	return f.hits[pattern].Load()
}

func (f *fakeAPI) start(t *testing.T, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(f.mux)
	t.Cleanup(srv.Close)
	opts = append([]Option{WithRetry(time.Millisecond, 50*time.Millisecond)}, opts...)
	return New(srv.URL, opts...)
}

func reply(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func heatmapBody(resource uuid.UUID) api.HeatmapResponse {
	total := 4
	return api.HeatmapResponse{
		ResourceID: resource,
		Mode:       "authoritative",
		Days: map[string]api.HeatmapDayResponse{
			"2024-01-10": {TotalSlots: &total, BookedSlots: 1, Level: "open", Bookable: true},
		},
	}
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func TestHeatmapIsCached(t *testing.T) {
	resource := uuid.New()
	pattern := "GET /resources/" + resource.String() + "/heatmap"
	f := newFakeAPI()
	f.handle(pattern, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2024-01-10", r.URL.Query().Get("from"))
		reply(w, http.StatusOK, heatmapBody(resource))
	})

	clk := &clock{now: jan10}
	c := f.start(t, WithCacheTTL(time.Minute), withClock(clk.Now))
	ctx := context.Background()

	h, err := c.Heatmap(ctx, resource, jan10, jan12)
	require.NoError(t, err)
	assert.Equal(t, 4, *h.Days["2024-01-10"].TotalSlots)

	_, err = c.Heatmap(ctx, resource, jan10, jan12)
	require.NoError(t, err)
	assert.Equal(t, int32(1), f.count(pattern))

	clk.now = clk.now.Add(2 * time.Minute)
	_, err = c.Heatmap(ctx, resource, jan10, jan12)
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.count(pattern))
}

func TestBookInvalidatesSlotDate(t *testing.T) {
	resource, other := uuid.New(), uuid.New()
	slotID := uuid.New()
	start := time.Date(2024, 1, 11, 9, 0, 0, 0, time.UTC)

	slotsPattern := "GET /resources/" + resource.String() + "/slots"
	heatPattern := "GET /resources/" + resource.String() + "/heatmap"
	otherPattern := "GET /resources/" + other.String() + "/heatmap"

	f := newFakeAPI()
	f.handle(slotsPattern, func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, []api.SlotResponse{{ID: slotID, ResourceID: resource, Start: start, End: start.Add(15 * time.Minute), Capacity: 2, Remaining: 2}})
	})
	f.handle(heatPattern, func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, heatmapBody(resource))
	})
	f.handle(otherPattern, func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, heatmapBody(other))
	})
	f.handle("POST /appointments", func(w http.ResponseWriter, r *http.Request) {
		var req api.CreateAppointmentRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		reply(w, http.StatusCreated, api.AppointmentResponse{
			ID: uuid.New(), SlotID: slotID, ResourceID: resource,
			Status: appointment.StatusBooked, TokenNumber: 1,
		})
	})

	c := f.start(t)
	ctx := context.Background()
	day := schedule.DateOf(start)

	_, err := c.Slots(ctx, resource, day)
	require.NoError(t, err)
	_, err = c.Heatmap(ctx, resource, jan10, jan12)
	require.NoError(t, err)
	_, err = c.Heatmap(ctx, other, jan10, jan12)
	require.NoError(t, err)

	appt, err := c.Book(ctx, api.CreateAppointmentRequest{SlotID: slotID.String(), PatientID: uuid.NewString()})
	require.NoError(t, err)
	assert.Equal(t, 1, appt.TokenNumber)

	_, err = c.Slots(ctx, resource, day)
	require.NoError(t, err)
	_, err = c.Heatmap(ctx, resource, jan10, jan12)
	require.NoError(t, err)
	_, err = c.Heatmap(ctx, other, jan10, jan12)
	require.NoError(t, err)

	assert.Equal(t, int32(2), f.count(slotsPattern))
	assert.Equal(t, int32(2), f.count(heatPattern))
	assert.Equal(t, int32(1), f.count(otherPattern), "other resources stay cached")
}

func TestBookCapacityExceeded(t *testing.T) {
	resource, slotID := uuid.New(), uuid.New()
	start := time.Date(2024, 1, 11, 9, 0, 0, 0, time.UTC)
	slotsPattern := "GET /resources/" + resource.String() + "/slots"

	f := newFakeAPI()
	f.handle(slotsPattern, func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, []api.SlotResponse{{ID: slotID, ResourceID: resource, Start: start, Capacity: 1, Remaining: 1}})
	})
	f.handle("POST /appointments", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusConflict, api.ErrorResponse{Error: api.CodeCapacityExceeded, Details: "slot is no longer available"})
	})

	c := f.start(t)
	ctx := context.Background()
	_, err := c.Slots(ctx, resource, schedule.DateOf(start))
	require.NoError(t, err)

	_, err = c.Book(ctx, api.CreateAppointmentRequest{SlotID: slotID.String(), PatientID: uuid.NewString()})
	require.Error(t, err)
	assert.ErrorIs(t, err, schedule.ErrCapacityExceeded)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.False(t, apiErr.Temporary())
	assert.Equal(t, int32(1), f.count("POST /appointments"), "writes are not retried")

	_, err = c.Slots(ctx, resource, schedule.DateOf(start))
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.count(slotsPattern), "the stale view is dropped")
}

func TestReadRetriesServerErrors(t *testing.T) {
	resource := uuid.New()
	pattern := "GET /resources/" + resource.String() + "/templates"
	f := newFakeAPI()
	var calls atomic.Int32
	f.handle(pattern, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			reply(w, http.StatusServiceUnavailable, api.ErrorResponse{Error: api.CodeInternal})
			return
		}
		reply(w, http.StatusOK, []api.TemplateResponse{{ID: uuid.New(), Name: "Weekday clinic"}})
	})

	c := f.start(t, WithRetry(time.Millisecond, 5*time.Second))
	list, err := c.Templates(context.Background(), resource, jan10, jan12)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Weekday clinic", list[0].Name)
	assert.Equal(t, int32(3), f.count(pattern))
}

func TestReadDoesNotRetryClientErrors(t *testing.T) {
	resource := uuid.New()
	pattern := "GET /resources/" + resource.String() + "/exceptions"
	f := newFakeAPI()
	f.handle(pattern, func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusNotFound, api.ErrorResponse{Error: api.CodeResourceNotFound})
	})

	c := f.start(t)
	_, err := c.Exceptions(context.Background(), resource, jan10, jan12)
	assert.ErrorIs(t, err, schedule.ErrResourceNotFound)
	assert.Equal(t, int32(1), f.count(pattern))
}

func TestReadServesStaleOnFailure(t *testing.T) {
	resource := uuid.New()
	pattern := "GET /resources/" + resource.String() + "/heatmap"
	var down atomic.Bool
	f := newFakeAPI()
	f.handle(pattern, func(w http.ResponseWriter, r *http.Request) {
		if down.Load() {
			reply(w, http.StatusInternalServerError, api.ErrorResponse{Error: api.CodeInternal})
			return
		}
		reply(w, http.StatusOK, heatmapBody(resource))
	})

	clk := &clock{now: jan10}
	c := f.start(t, WithCacheTTL(time.Second), withClock(clk.Now), WithRetry(time.Millisecond, 20*time.Millisecond))
	ctx := context.Background()

	_, err := c.Heatmap(ctx, resource, jan10, jan12)
	require.NoError(t, err)

	down.Store(true)
	clk.now = clk.now.Add(time.Hour)

	h, err := c.Heatmap(ctx, resource, jan10, jan12)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStale)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.Temporary())
	assert.Equal(t, resource, h.ResourceID)
	assert.Contains(t, h.Days, "2024-01-10")

	_, err = c.Heatmap(ctx, resource, jan10, jan10)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrStale, "nothing cached for this range")
}

func TestReadServesStaleAfterBooking(t *testing.T) {
	resource, slotID := uuid.New(), uuid.New()
	heatPattern := "GET /resources/" + resource.String() + "/heatmap"
	var down atomic.Bool
	f := newFakeAPI()
	f.handle(heatPattern, func(w http.ResponseWriter, r *http.Request) {
		if down.Load() {
			reply(w, http.StatusServiceUnavailable, api.ErrorResponse{Error: api.CodeInternal})
			return
		}
		reply(w, http.StatusOK, heatmapBody(resource))
	})
	f.handle("POST /appointments", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusCreated, api.AppointmentResponse{
			ID: uuid.New(), SlotID: slotID, ResourceID: resource,
			Status: appointment.StatusBooked, TokenNumber: 1,
		})
	})

	c := f.start(t, WithRetry(time.Millisecond, 20*time.Millisecond))
	ctx := context.Background()

	_, err := c.Heatmap(ctx, resource, jan10, jan12)
	require.NoError(t, err)

	_, err = c.Book(ctx, api.CreateAppointmentRequest{SlotID: slotID.String(), PatientID: uuid.NewString()})
	require.NoError(t, err)

	down.Store(true)
	h, err := c.Heatmap(ctx, resource, jan10, jan12)
	assert.ErrorIs(t, err, ErrStale)
	assert.Equal(t, resource, h.ResourceID)
	assert.Contains(t, h.Days, "2024-01-10")
	assert.Greater(t, f.count(heatPattern), int32(1), "booking forces a refetch")
}

func TestCreateTemplateValidatesLocally(t *testing.T) {
	resource := uuid.New()
	pattern := "POST /resources/" + resource.String() + "/templates"
	f := newFakeAPI()
	f.handle(pattern, func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusUnprocessableEntity, api.ErrorResponse{
			Error:  api.CodeValidation,
			Fields: []api.FieldErrorResponse{{Field: "availabilities[0].name", Message: "must be unique within the template"}},
		})
	})
	c := f.start(t)

	_, err := c.CreateTemplate(context.Background(), resource, api.TemplateRequest{Name: "Clinic", ValidFrom: "2024-01-01", ValidTo: "2024-01-31"})
	var ve *schedule.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, int32(0), f.count(pattern))

	valid := api.TemplateRequest{
		Name: "Clinic", ValidFrom: "2024-01-01", ValidTo: "2024-01-31", Weekdays: []int{1},
		Availabilities: []api.AvailabilityRequest{{
			Name: "Morning", SlotType: schedule.SlotTypeAppointment,
			Start: schedule.NewTimeOfDay(9, 0), End: schedule.NewTimeOfDay(9, 30),
			SlotSizeMinutes: 10, TokensPerSlot: 1,
		}},
	}
	_, err = c.CreateTemplate(context.Background(), resource, valid)
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "availabilities[0].name", ve.Fields[0].Field)
	assert.Equal(t, int32(1), f.count(pattern))
}

func TestCancelInvalidatesResource(t *testing.T) {
	resource, apptID := uuid.New(), uuid.New()
	heatPattern := "GET /resources/" + resource.String() + "/heatmap"
	f := newFakeAPI()
	f.handle(heatPattern, func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, heatmapBody(resource))
	})
	f.handle("POST /appointments/{id}/cancel", func(w http.ResponseWriter, r *http.Request) {
		var req api.ReasonRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "travel", req.Reason)
		reply(w, http.StatusOK, api.AppointmentResponse{ID: apptID, SlotID: uuid.New(), ResourceID: resource, Status: appointment.StatusCancelled})
	})
	f.handle("POST /appointments/{id}/status", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusConflict, api.ErrorResponse{Error: api.CodeInvalidTransition})
	})

	c := f.start(t)
	ctx := context.Background()

	_, err := c.Heatmap(ctx, resource, jan10, jan12)
	require.NoError(t, err)

	_, err = c.Transition(ctx, apptID, appointment.StatusCheckedIn, "")
	assert.ErrorIs(t, err, appointment.ErrInvalidTransition)

	got, err := c.Cancel(ctx, apptID, "travel")
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusCancelled, got.Status)

	_, err = c.Heatmap(ctx, resource, jan10, jan12)
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.count(heatPattern))
}

func TestEstimateIsLocal(t *testing.T) {
	c := New("http://127.0.0.1:1")
	est, err := c.Estimate(api.AvailabilityRequest{
		Name: "Walk-in", SlotType: schedule.SlotTypeWalkIn,
		Start: schedule.NewTimeOfDay(14, 0), End: schedule.NewTimeOfDay(17, 0),
		SlotSizeMinutes: 30, TokensPerSlot: 4,
	})
	require.NoError(t, err)
	assert.Equal(t, 6, est.SlotsPerSession)
	assert.Equal(t, 24, est.TotalTokens)

	_, err = c.Estimate(api.AvailabilityRequest{Name: "Walk-in"})
	assert.True(t, schedule.IsValidation(err))
}

func TestDecodeErrorWithoutBody(t *testing.T) {
	err := decodeError(http.StatusBadGateway, []byte("<html>bad gateway</html>"))
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.True(t, apiErr.Temporary())
	assert.Nil(t, apiErr.Unwrap())
}
