package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/availability-scheduling/internal/config"
)

// DayCapacity is the exact token capacity and booking count of one date.
type DayCapacity struct {
	Date    time.Time
	Total   int
	Booked  int
	Blocked bool
}

type Service struct {
	repo         Repository
	invalidator  CacheInvalidator
	loc          *time.Location
	allowOverlap bool
	logger       *slog.Logger
}

func NewService(repo Repository, invalidator CacheInvalidator, cfg config.Config, logger *slog.Logger) *Service {
	return &Service{
		repo:         repo,
		invalidator:  invalidator,
		loc:          cfg.Location(),
		allowOverlap: cfg.AllowOverlap,
		logger:       logger,
	}
}

func (s *Service) Location() *time.Location {
	return s.loc
}

// CreateTemplate validates and stores a template. Templates whose sessions
// would overlap another template of the same resource are rejected unless
// overlapping templates are allowed by configuration.
func (s *Service) CreateTemplate(ctx context.Context, t Template) (*Template, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if err := s.requireResource(ctx, t.ResourceID); err != nil {
		return nil, err
	}

	if !s.allowOverlap {
		existing, err := s.repo.ListTemplates(ctx, t.ResourceID, t.ValidFrom, t.ValidTo)
		if err != nil {
			return nil, fmt.Errorf("load existing templates: %w", err)
		}
		for _, other := range existing {
			if t.Overlaps(other) {
				return nil, fmt.Errorf("%w: %s", ErrTemplateConflict, other.Name)
			}
		}
	}

	if err := s.repo.CreateTemplate(ctx, &t); err != nil {
		return nil, fmt.Errorf("create template: %w", err)
	}

	s.invalidate(ctx, t.ResourceID, t.ValidFrom, t.ValidTo)
	return &t, nil
}

func (s *Service) GetTemplate(ctx context.Context, id uuid.UUID) (*Template, error) {
	t, err := s.repo.GetTemplate(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	return t, nil
}

func (s *Service) ListTemplates(ctx context.Context, resourceID uuid.UUID, from, to time.Time) ([]Template, error) {
	if DateOf(from).After(DateOf(to)) {
		return nil, &ValidationError{Fields: []FieldError{{Field: "to", Message: "must not be before from"}}}
	}
	templates, err := s.repo.ListTemplates(ctx, resourceID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return templates, nil
}

func (s *Service) CreateException(ctx context.Context, e Exception) (*Exception, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	if err := s.requireResource(ctx, e.ResourceID); err != nil {
		return nil, err
	}
	if err := s.repo.CreateException(ctx, &e); err != nil {
		return nil, fmt.Errorf("create exception: %w", err)
	}

	s.invalidate(ctx, e.ResourceID, e.ValidFrom, e.ValidTo)
	return &e, nil
}

func (s *Service) ListExceptions(ctx context.Context, resourceID uuid.UUID, from, to time.Time) ([]Exception, error) {
	exceptions, err := s.repo.ListExceptions(ctx, resourceID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list exceptions: %w", err)
	}
	return exceptions, nil
}

// AvailableDays expands the resource's templates over [from, to] and applies
// its exceptions.
func (s *Service) AvailableDays(ctx context.Context, resourceID uuid.UUID, from, to time.Time) ([]Day, error) {
	templates, exceptions, err := s.load(ctx, resourceID, from, to)
	if err != nil {
		return nil, err
	}
	return Overlay(Expand(templates, from, to), exceptions), nil
}

// Slots returns the bookable slots of one date, materializing them first.
// Slots overlapped by a partial exception are left out; a blocked day has
// no slots.
func (s *Service) Slots(ctx context.Context, resourceID uuid.UUID, date time.Time) ([]Slot, error) {
	date = DateOf(date)
	templates, exceptions, err := s.load(ctx, resourceID, date, date)
	if err != nil {
		return nil, err
	}

	days := Overlay(Expand(templates, date, date), exceptions)
	if len(days) == 0 || days[0].Blocked {
		return []Slot{}, nil
	}

	if _, err := s.materialize(ctx, resourceID, days[0]); err != nil {
		return nil, err
	}

	dayStart := StartOfDay.On(date, s.loc)
	stored, err := s.repo.ListSlots(ctx, resourceID, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	for i := range stored {
		stored[i].Start = stored[i].Start.In(s.loc)
		stored[i].End = stored[i].End.In(s.loc)
	}
	return FilterBlocked(stored, exceptions), nil
}

func (s *Service) GroupedSlots(ctx context.Context, resourceID uuid.UUID, date time.Time) ([]SlotGroup, error) {
	slots, err := s.Slots(ctx, resourceID, date)
	if err != nil {
		return nil, err
	}
	return GroupSlots(slots), nil
}

// MaterializeRange stores the slots of every applicable date in [from, to]
// and returns how many slot windows were generated.
func (s *Service) MaterializeRange(ctx context.Context, resourceID uuid.UUID, from, to time.Time) (int, error) {
	days, err := s.AvailableDays(ctx, resourceID, from, to)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, day := range days {
		if day.Blocked {
			continue
		}
		n, err := s.materialize(ctx, resourceID, day)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (s *Service) ActiveResources(ctx context.Context, since time.Time) ([]uuid.UUID, error) {
	ids, err := s.repo.ListActiveResources(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("list active resources: %w", err)
	}
	return ids, nil
}

// DailyCapacity computes exact per-date totals for the heatmap. Totals count
// tokens of slots that survive exceptions; bookings come from stored slots.
func (s *Service) DailyCapacity(ctx context.Context, resourceID uuid.UUID, from, to time.Time) ([]DayCapacity, error) {
	from, to = DateOf(from), DateOf(to)
	templates, exceptions, err := s.load(ctx, resourceID, from, to)
	if err != nil {
		return nil, err
	}

	rangeStart := StartOfDay.On(from, s.loc)
	rangeEnd := StartOfDay.On(to, s.loc).AddDate(0, 0, 1)
	booked, err := s.repo.BookedByDate(ctx, resourceID, rangeStart, rangeEnd, s.loc.String())
	if err != nil {
		return nil, fmt.Errorf("booked by date: %w", err)
	}

	days := make(map[time.Time]Day)
	for _, d := range Overlay(Expand(templates, from, to), exceptions) {
		days[d.Date] = d
	}

	out := make([]DayCapacity, 0, len(days))
	for _, date := range Dates(from, to) {
		dc := DayCapacity{Date: date, Booked: booked[FormatDate(date)]}
		day, ok := days[date]
		if ok {
			dc.Blocked = day.Blocked
			for _, o := range day.Entries {
				open := FilterBlocked(GenerateSlots(date, resourceID, o.Availability, s.loc), day.Partial)
				dc.Total += len(open) * o.Availability.TokensPerSlot
			}
		}
		out = append(out, dc)
	}
	return out, nil
}

func (s *Service) GetSlot(ctx context.Context, id uuid.UUID) (*Slot, error) {
	slot, err := s.repo.GetSlotByID(ctx, id)
	if err != nil {
		return nil, err
	}
	slot.Start = slot.Start.In(s.loc)
	slot.End = slot.End.In(s.loc)
	return slot, nil
}

// CheckBookable rejects slots that an unavailability exception now covers.
func (s *Service) CheckBookable(ctx context.Context, slot Slot) error {
	date := DateOf(slot.Start.In(s.loc))
	exceptions, err := s.repo.ListExceptions(ctx, slot.ResourceID, date, date)
	if err != nil {
		return fmt.Errorf("load exceptions: %w", err)
	}
	slot.Start = slot.Start.In(s.loc)
	slot.End = slot.End.In(s.loc)
	if e, blocked := BlockedBy(slot, exceptions); blocked {
		return fmt.Errorf("%w: %s", ErrSlotBlocked, e.Reason)
	}
	return nil
}

func (s *Service) load(ctx context.Context, resourceID uuid.UUID, from, to time.Time) ([]Template, []Exception, error) {
	templates, err := s.repo.ListTemplates(ctx, resourceID, from, to)
	if err != nil {
		return nil, nil, fmt.Errorf("list templates: %w", err)
	}
	exceptions, err := s.repo.ListExceptions(ctx, resourceID, from, to)
	if err != nil {
		return nil, nil, fmt.Errorf("list exceptions: %w", err)
	}
	return templates, exceptions, nil
}

func (s *Service) materialize(ctx context.Context, resourceID uuid.UUID, day Day) (int, error) {
	var slots []Slot
	for _, o := range day.Entries {
		slots = append(slots, GenerateSlots(day.Date, resourceID, o.Availability, s.loc)...)
	}
	if len(slots) == 0 {
		return 0, nil
	}
	if _, err := s.repo.MaterializeSlots(ctx, slots); err != nil {
		return 0, fmt.Errorf("materialize slots for %s: %w", FormatDate(day.Date), err)
	}
	return len(slots), nil
}

func (s *Service) requireResource(ctx context.Context, id uuid.UUID) error {
	ok, err := s.repo.ResourceExists(ctx, id)
	if err != nil {
		return fmt.Errorf("load resource: %w", err)
	}
	if !ok {
		return ErrResourceNotFound
	}
	return nil
}

func (s *Service) invalidate(ctx context.Context, resourceID uuid.UUID, from, to time.Time) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx, resourceID, Dates(from, to)...); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("failed to invalidate availability cache",
			slog.String("resource_id", resourceID.String()),
			slog.Any("error", err))
	}
}
