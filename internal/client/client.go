// Package client talks to the scheduling API. Reads of templates,
// exceptions, slots and heatmaps are cached per resource and date, retried
// on transient failures, and invalidated by the client's own mutations.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"github.com/hackgods/availability-scheduling/internal/api"
	"github.com/hackgods/availability-scheduling/internal/appointment"
	"github.com/hackgods/availability-scheduling/internal/schedule"
)

// ErrStale marks a read that failed but was answered from an expired cache
// entry. The returned value is usable; the error says it may be outdated.
var ErrStale = errors.New("serving stale data")

type Client struct {
	baseURL      string
	http         *http.Client
	cache        *dateCache
	retryInitial time.Duration
	retryMax     time.Duration
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithCacheTTL sets how long read responses are served without refetching.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) { c.cache.ttl = ttl }
}

// WithRetry bounds read retries: the first wait and the total time spent.
func WithRetry(initial, maxElapsed time.Duration) Option {
	return func(c *Client) {
		c.retryInitial = initial
		c.retryMax = maxElapsed
	}
}

func withClock(now func() time.Time) Option {
	return func(c *Client) { c.cache.now = now }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		http:         &http.Client{Timeout: 10 * time.Second},
		cache:        newDateCache(30*time.Second, time.Now),
		retryInitial: 100 * time.Millisecond,
		retryMax:     5 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Reads

func (c *Client) Heatmap(ctx context.Context, resourceID uuid.UUID, from, to time.Time) (api.HeatmapResponse, error) {
	key := rangeKey("heatmap", resourceID, from, to)
	return cachedGet[api.HeatmapResponse](ctx, c, key, resourcePath(resourceID, "heatmap"), rangeQuery(from, to))
}

func (c *Client) Templates(ctx context.Context, resourceID uuid.UUID, from, to time.Time) ([]api.TemplateResponse, error) {
	key := rangeKey("templates", resourceID, from, to)
	return cachedGet[[]api.TemplateResponse](ctx, c, key, resourcePath(resourceID, "templates"), rangeQuery(from, to))
}

func (c *Client) Exceptions(ctx context.Context, resourceID uuid.UUID, from, to time.Time) ([]api.ExceptionResponse, error) {
	key := rangeKey("exceptions", resourceID, from, to)
	return cachedGet[[]api.ExceptionResponse](ctx, c, key, resourcePath(resourceID, "exceptions"), rangeQuery(from, to))
}

func (c *Client) Days(ctx context.Context, resourceID uuid.UUID, from, to time.Time) ([]api.DayResponse, error) {
	key := rangeKey("days", resourceID, from, to)
	return cachedGet[[]api.DayResponse](ctx, c, key, resourcePath(resourceID, "days"), rangeQuery(from, to))
}

func (c *Client) Slots(ctx context.Context, resourceID uuid.UUID, date time.Time) ([]api.SlotResponse, error) {
	key := rangeKey("slots", resourceID, date, date)
	slots, err := cachedGet[[]api.SlotResponse](ctx, c, key, resourcePath(resourceID, "slots"), dateQuery(date))
	c.rememberSlots(slots)
	return slots, err
}

func (c *Client) GroupedSlots(ctx context.Context, resourceID uuid.UUID, date time.Time) ([]api.SlotGroupResponse, error) {
	key := rangeKey("grouped", resourceID, date, date)
	groups, err := cachedGet[[]api.SlotGroupResponse](ctx, c, key, resourcePath(resourceID, "slots/grouped"), dateQuery(date))
	for _, g := range groups {
		c.rememberSlots(g.Slots)
	}
	return groups, err
}

func (c *Client) GetAppointment(ctx context.Context, id uuid.UUID) (*api.AppointmentDetailResponse, error) {
	var out api.AppointmentDetailResponse
	if err := c.do(ctx, http.MethodGet, "/appointments/"+id.String(), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListAppointmentsBySlot(ctx context.Context, slotID uuid.UUID) ([]api.AppointmentResponse, error) {
	var out []api.AppointmentResponse
	q := url.Values{"slot_id": {slotID.String()}}
	if err := c.do(ctx, http.MethodGet, "/appointments", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Estimate previews a session locally; nothing is sent to the server.
func (c *Client) Estimate(req api.AvailabilityRequest) (schedule.SessionEstimate, error) {
	a := req.ToAvailability()
	if err := a.Validate(); err != nil {
		return schedule.SessionEstimate{}, err
	}
	return schedule.Estimate(a), nil
}

// Writes

// CreateTemplate validates the template locally before submitting it.
func (c *Client) CreateTemplate(ctx context.Context, resourceID uuid.UUID, req api.TemplateRequest) (*api.TemplateResponse, error) {
	t, err := req.ToTemplate(resourceID)
	if err != nil {
		return nil, err
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}

	var out api.TemplateResponse
	if err := c.do(ctx, http.MethodPost, resourcePath(resourceID, "templates"), nil, req, &out); err != nil {
		return nil, err
	}
	c.cache.invalidate(resourceID, t.ValidFrom, t.ValidTo)
	return &out, nil
}

func (c *Client) CreateException(ctx context.Context, resourceID uuid.UUID, req api.ExceptionRequest) (*api.ExceptionResponse, error) {
	e, err := req.ToException(resourceID)
	if err != nil {
		return nil, err
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}

	var out api.ExceptionResponse
	if err := c.do(ctx, http.MethodPost, resourcePath(resourceID, "exceptions"), nil, req, &out); err != nil {
		return nil, err
	}
	c.cache.invalidate(resourceID, e.ValidFrom, e.ValidTo)
	return &out, nil
}

// Book reserves a token. A capacity failure also invalidates the slot's
// date, since the cached view evidently overstated what was left.
func (c *Client) Book(ctx context.Context, req api.CreateAppointmentRequest) (*api.AppointmentResponse, error) {
	var out api.AppointmentResponse
	err := c.do(ctx, http.MethodPost, "/appointments", nil, req, &out)
	if err != nil {
		if errors.Is(err, schedule.ErrCapacityExceeded) || errors.Is(err, schedule.ErrSlotBlocked) {
			if slotID, perr := uuid.Parse(req.SlotID); perr == nil {
				c.invalidateSlot(slotID, uuid.Nil)
			}
		}
		return nil, err
	}
	c.invalidateSlot(out.SlotID, out.ResourceID)
	return &out, nil
}

func (c *Client) Transition(ctx context.Context, id uuid.UUID, to appointment.Status, reason string) (*api.AppointmentResponse, error) {
	return c.post(ctx, "/appointments/"+id.String()+"/status", api.TransitionRequest{Status: to, Reason: reason})
}

func (c *Client) Cancel(ctx context.Context, id uuid.UUID, reason string) (*api.AppointmentResponse, error) {
	return c.post(ctx, "/appointments/"+id.String()+"/cancel", api.ReasonRequest{Reason: reason})
}

func (c *Client) MarkEnteredInError(ctx context.Context, id uuid.UUID, reason string) (*api.AppointmentResponse, error) {
	return c.post(ctx, "/appointments/"+id.String()+"/entered-in-error", api.ReasonRequest{Reason: reason})
}

func (c *Client) post(ctx context.Context, path string, body any) (*api.AppointmentResponse, error) {
	var out api.AppointmentResponse
	if err := c.do(ctx, http.MethodPost, path, nil, body, &out); err != nil {
		return nil, err
	}
	if appointment.ReleasesAllocation(out.Status) {
		c.invalidateSlot(out.SlotID, out.ResourceID)
	}
	return &out, nil
}

// Helpers

func cachedGet[T any](ctx context.Context, c *Client, key cacheKey, path string, q url.Values) (T, error) {
	if v, fresh, ok := c.cache.get(key); ok && fresh {
		return v.(T), nil
	}

	out, err := backoff.Retry(ctx, func() (T, error) {
		var out T
		err := c.do(ctx, http.MethodGet, path, q, nil, &out)
		if err != nil && !retryable(err) {
			return out, backoff.Permanent(err)
		}
		return out, err
	}, backoff.WithBackOff(c.newBackOff()), backoff.WithMaxElapsedTime(c.retryMax))
	if err != nil {
		if v, _, ok := c.cache.get(key); ok {
			return v.(T), fmt.Errorf("%w: %w", ErrStale, err)
		}
		var zero T
		return zero, err
	}

	c.cache.put(key, out)
	return out, nil
}

func (c *Client) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryInitial
	b.MaxInterval = max(c.retryInitial*8, c.retryInitial)
	return b
}

// retryable reports whether a read failure may succeed on a later attempt:
// transport errors and 5xx responses.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	return !schedule.IsValidation(err)
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, body, out any) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return decodeError(resp.StatusCode, data)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) rememberSlots(slots []api.SlotResponse) {
	for _, s := range slots {
		c.cache.rememberSlot(s.ID, s.ResourceID, s.Start)
	}
}

// invalidateSlot drops the cached date of a known slot, or everything cached
// for resourceID when the slot was never seen.
func (c *Client) invalidateSlot(slotID, resourceID uuid.UUID) {
	if sd, ok := c.cache.slotDate(slotID); ok {
		c.cache.invalidate(sd.resource, sd.date, sd.date)
		return
	}
	if resourceID != uuid.Nil {
		c.cache.invalidateResource(resourceID)
	}
}

func resourcePath(resourceID uuid.UUID, suffix string) string {
	return "/resources/" + resourceID.String() + "/" + suffix
}

func rangeKey(kind string, resourceID uuid.UUID, from, to time.Time) cacheKey {
	return cacheKey{kind: kind, resource: resourceID, from: schedule.FormatDate(from), to: schedule.FormatDate(to)}
}

func rangeQuery(from, to time.Time) url.Values {
	return url.Values{"from": {schedule.FormatDate(from)}, "to": {schedule.FormatDate(to)}}
}

func dateQuery(date time.Time) url.Values {
	return url.Values{"date": {schedule.FormatDate(date)}}
}
