package appointment

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/availability-scheduling/internal/schedule"
)

// memStore keeps patients, slots and appointments in memory. It serves as
// both the Repository and the SlotDirectory so booking and cancelling move
// the same slot allocation.
type memStore struct {
	mu        sync.Mutex
	patients  map[uuid.UUID]*Patient
	resources map[uuid.UUID]*Resource
	slots     map[uuid.UUID]*schedule.Slot
	appts     map[uuid.UUID]*Appointment
	events    []EventLog

	CheckBookableErr    error
	ApplyTransitionFunc func(ctx context.Context, p TransitionParams) (*Appointment, error)

	BookSlotCalls        atomic.Int32
	ApplyTransitionCalls atomic.Int32
	lastLimit            int
	lastOffset           int
	lastFrom, lastTo     time.Time
}

func newMemStore() *memStore {
	return &memStore{
		patients:  make(map[uuid.UUID]*Patient),
		resources: make(map[uuid.UUID]*Resource),
		slots:     make(map[uuid.UUID]*schedule.Slot),
		appts:     make(map[uuid.UUID]*Appointment),
	}
}

func (m *memStore) addPatient() uuid.UUID {
	id := uuid.New()
	m.patients[id] = &Patient{ID: id, Name: "Patient " + id.String()[:8]}
	return id
}

func (m *memStore) addSlot(start time.Time, tokens int) *schedule.Slot {
	resource := uuid.New()
	m.resources[resource] = &Resource{ID: resource, Name: "Dr. Test"}
	a := schedule.Availability{
		ID:              uuid.New(),
		Name:            "Morning",
		SlotType:        schedule.SlotTypeAppointment,
		Start:           schedule.NewTimeOfDay(start.Hour(), start.Minute()),
		End:             schedule.NewTimeOfDay(start.Hour(), start.Minute()) + 15,
		SlotSizeMinutes: 15,
		TokensPerSlot:   tokens,
	}
	s := &schedule.Slot{
		ID:             uuid.New(),
		ResourceID:     resource,
		AvailabilityID: a.ID,
		Availability:   a,
		Start:          start,
		End:            start.Add(15 * time.Minute),
	}
	m.slots[s.ID] = s
	return s
}

func (m *memStore) slot(id uuid.UUID) schedule.Slot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.slots[id]
}

func (m *memStore) GetSlot(ctx context.Context, id uuid.UUID) (*schedule.Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[id]
	if !ok {
		return nil, schedule.ErrSlotNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) CheckBookable(ctx context.Context, slot schedule.Slot) error {
	return m.CheckBookableErr
}

func (m *memStore) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) GetResourceByID(ctx context.Context, id uuid.UUID) (*Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.resources[id]
	if !ok {
		return nil, ErrResourceNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memStore) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) BookSlot(ctx context.Context, p BookParams) (*Appointment, error) {
	m.BookSlotCalls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.slots[p.SlotID]
	if !ok {
		return nil, schedule.ErrSlotNotFound
	}
	for _, a := range m.appts {
		if a.SlotID == p.SlotID && a.PatientID == p.PatientID && !a.Status.Terminal() {
			return nil, ErrDuplicateBooking
		}
	}
	if err := s.Claim(); err != nil {
		return nil, err
	}

	a := &Appointment{
		ID:             uuid.New(),
		SlotID:         p.SlotID,
		ResourceID:     p.ResourceID,
		PatientID:      p.PatientID,
		Status:         StatusBooked,
		ReasonForVisit: p.ReasonForVisit,
		BookedBy:       p.BookedBy,
		BookedOn:       p.BookedOn,
		TokenNumber:    s.TokensIssued,
	}
	m.appts[a.ID] = a
	cp := *a
	return &cp, nil
}

func (m *memStore) ApplyTransition(ctx context.Context, p TransitionParams) (*Appointment, error) {
	m.ApplyTransitionCalls.Add(1)
	if m.ApplyTransitionFunc != nil {
		return m.ApplyTransitionFunc(ctx, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.appts[p.ID]
	if !ok || a.Status != p.From {
		return nil, ErrStatusChanged
	}
	a.Status = p.To
	if p.Reason != "" {
		reason := p.Reason
		a.StatusReason = &reason
	}
	if p.Release {
		m.slots[p.SlotID].Release()
	}
	cp := *a
	return &cp, nil
}

// setStatus changes a stored appointment behind the service's back.
func (m *memStore) setStatus(id uuid.UUID, s Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appts[id].Status = s
}

func (m *memStore) ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLimit, m.lastOffset = limit, offset
	return m.filter(func(a *Appointment) bool { return a.PatientID == patientID }), nil
}

func (m *memStore) ListAppointmentsBySlot(ctx context.Context, slotID uuid.UUID) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.filter(func(a *Appointment) bool { return a.SlotID == slotID }), nil
}

func (m *memStore) ListAppointmentsByResource(ctx context.Context, resourceID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastFrom, m.lastTo = from, to
	return m.filter(func(a *Appointment) bool { return a.ResourceID == resourceID }), nil
}

func (m *memStore) filter(keep func(*Appointment) bool) []Appointment {
	var out []Appointment
	for _, a := range m.appts {
		if keep(a) {
			out = append(out, *a)
		}
	}
	slices.SortFunc(out, func(a, b Appointment) int { return a.TokenNumber - b.TokenNumber })
	return out
}

func (m *memStore) InsertEvent(ctx context.Context, ev EventLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

type mockLocker struct {
	WithSlotLockFunc  func(ctx context.Context, slotID uuid.UUID, fn func(ctx context.Context) error) error
	WithSlotLockCalls atomic.Int32
}

func (l *mockLocker) WithSlotLock(ctx context.Context, slotID uuid.UUID, fn func(ctx context.Context) error) error {
	l.WithSlotLockCalls.Add(1)
	if l.WithSlotLockFunc != nil {
		return l.WithSlotLockFunc(ctx, slotID, fn)
	}
	return fn(ctx)
}

type recordingInvalidator struct {
	mu    sync.Mutex
	dates []time.Time
}

func (r *recordingInvalidator) Invalidate(ctx context.Context, resourceID uuid.UUID, dates ...time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dates = append(r.dates, dates...)
	return nil
}

func (r *recordingInvalidator) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.dates)
}

type recordingObserver struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingObserver) Notify(ctx context.Context, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingObserver) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}
