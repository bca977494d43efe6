package schedule

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := ParseDate(s)
	require.NoError(t, err)
	return d
}

func tod(t *testing.T, s string) TimeOfDay {
	t.Helper()
	v, err := ParseTimeOfDay(s)
	require.NoError(t, err)
	return v
}

func session(name string, start, end TimeOfDay, size, tokens int) Availability {
	return Availability{
		ID:              uuid.New(),
		Name:            name,
		SlotType:        SlotTypeAppointment,
		Start:           start,
		End:             end,
		SlotSizeMinutes: size,
		TokensPerSlot:   tokens,
	}
}

// fakeRepo is an in-memory Repository.
type fakeRepo struct {
	mu         sync.Mutex
	resources  map[uuid.UUID]bool
	templates  []Template
	exceptions []Exception
	slots      []Slot

	CreateTemplateCalls int
	MaterializeCalls    int
}

func newFakeRepo(resources ...uuid.UUID) *fakeRepo {
	r := &fakeRepo{resources: make(map[uuid.UUID]bool)}
	for _, id := range resources {
		r.resources[id] = true
	}
	return r
}

var _ Repository = (*fakeRepo)(nil)

func (r *fakeRepo) ResourceExists(ctx context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resources[id], nil
}

func (r *fakeRepo) ListActiveResources(ctx context.Context, since time.Time) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []uuid.UUID
	for _, t := range r.templates {
		if !DateOf(t.ValidTo).Before(DateOf(since)) && !slices.Contains(out, t.ResourceID) {
			out = append(out, t.ResourceID)
		}
	}
	return out, nil
}

func (r *fakeRepo) CreateTemplate(ctx context.Context, t *Template) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.CreateTemplateCalls++
	t.ID = uuid.New()
	for i := range t.Availabilities {
		t.Availabilities[i].ID = uuid.New()
		t.Availabilities[i].TemplateID = t.ID
	}
	r.templates = append(r.templates, *t)
	return nil
}

func (r *fakeRepo) GetTemplate(ctx context.Context, id uuid.UUID) (*Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.templates {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, ErrTemplateNotFound
}

func (r *fakeRepo) ListTemplates(ctx context.Context, resourceID uuid.UUID, from, to time.Time) ([]Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Template
	for _, t := range r.templates {
		if t.ResourceID == resourceID && !DateOf(t.ValidFrom).After(DateOf(to)) && !DateOf(t.ValidTo).Before(DateOf(from)) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *fakeRepo) CreateException(ctx context.Context, e *Exception) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.ID = uuid.New()
	r.exceptions = append(r.exceptions, *e)
	return nil
}

func (r *fakeRepo) ListExceptions(ctx context.Context, resourceID uuid.UUID, from, to time.Time) ([]Exception, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Exception
	for _, e := range r.exceptions {
		if e.ResourceID == resourceID && !DateOf(e.ValidFrom).After(DateOf(to)) && !DateOf(e.ValidTo).Before(DateOf(from)) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeRepo) MaterializeSlots(ctx context.Context, slots []Slot) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.MaterializeCalls++
	inserted := 0
	for _, s := range slots {
		exists := slices.ContainsFunc(r.slots, func(o Slot) bool {
			return o.AvailabilityID == s.AvailabilityID && o.Start.Equal(s.Start)
		})
		if exists {
			continue
		}
		s.ID = uuid.New()
		s.Start = s.Start.UTC()
		s.End = s.End.UTC()
		r.slots = append(r.slots, s)
		inserted++
	}
	return inserted, nil
}

func (r *fakeRepo) GetSlotByID(ctx context.Context, id uuid.UUID) (*Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.slots {
		if s.ID == id {
			return &s, nil
		}
	}
	return nil, ErrSlotNotFound
}

func (r *fakeRepo) ListSlots(ctx context.Context, resourceID uuid.UUID, from, to time.Time) ([]Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Slot
	for _, s := range r.slots {
		if s.ResourceID == resourceID && !s.Start.Before(from) && s.Start.Before(to) {
			out = append(out, s)
		}
	}
	slices.SortFunc(out, compareSlots)
	return out, nil
}

func (r *fakeRepo) BookedByDate(ctx context.Context, resourceID uuid.UUID, from, to time.Time, tz string) (map[string]int, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int)
	for _, s := range r.slots {
		if s.ResourceID == resourceID && !s.Start.Before(from) && s.Start.Before(to) {
			out[FormatDate(DateOf(s.Start.In(loc)))] += s.Allocated
		}
	}
	return out, nil
}

// allocate sets the allocation of the stored slot starting at start.
func (r *fakeRepo) allocate(start time.Time, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.slots {
		if r.slots[i].Start.Equal(start) {
			r.slots[i].Allocated = n
		}
	}
}

type recordingInvalidator struct {
	mu    sync.Mutex
	calls map[uuid.UUID][]time.Time
}

func (r *recordingInvalidator) Invalidate(ctx context.Context, resourceID uuid.UUID, dates ...time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls == nil {
		r.calls = make(map[uuid.UUID][]time.Time)
	}
	r.calls[resourceID] = append(r.calls[resourceID], dates...)
	return nil
}
