package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

// SlotType is the kind of session a slot belongs to. The same names are used
// on the wire and in storage.
type SlotType string

const (
	SlotTypeOpen        SlotType = "open"
	SlotTypeWalkIn      SlotType = "walk_in"
	SlotTypeAppointment SlotType = "appointment"
)

func (t SlotType) Valid() bool {
	switch t {
	case SlotTypeOpen, SlotTypeWalkIn, SlotTypeAppointment:
		return true
	}
	return false
}

// TimeOfDay is a wall clock time expressed in minutes since midnight.
type TimeOfDay int

const (
	StartOfDay TimeOfDay = 0
	EndOfDay   TimeOfDay = 23*60 + 59
)

func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// ParseTimeOfDay parses a 24-hour HH:MM value.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok || len(hh) != 2 || len(mm) != 2 {
		return 0, fmt.Errorf("invalid time of day %q: want HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return NewTimeOfDay(h, m), nil
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// On places the time of day on the calendar date d in loc.
func (t TimeOfDay) On(d time.Time, loc *time.Location) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), 0, 0, loc)
}

func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TimeOfDay) UnmarshalText(b []byte) error {
	v, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// ParseDate parses YYYY-MM-DD into midnight UTC.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return d, nil
}

func FormatDate(d time.Time) string {
	return d.Format(dateLayout)
}

// DateOf returns the calendar date of t as observed in t's own location,
// normalised to midnight UTC.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Availability is one session inside a template.
type Availability struct {
	ID              uuid.UUID
	TemplateID      uuid.UUID
	Name            string
	SlotType        SlotType
	Start           TimeOfDay
	End             TimeOfDay
	SlotSizeMinutes int
	TokensPerSlot   int
	Reason          *string
}

func (a Availability) SessionMinutes() int {
	return int(a.End - a.Start)
}

// Template is a resource's recurring weekly availability over an inclusive
// date window.
type Template struct {
	ID             uuid.UUID
	ResourceID     uuid.UUID
	FacilityID     uuid.UUID
	Name           string
	ValidFrom      time.Time
	ValidTo        time.Time
	Weekdays       []time.Weekday
	Availabilities []Availability
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (t Template) AppliesOn(weekday time.Weekday) bool {
	for _, w := range t.Weekdays {
		if w == weekday {
			return true
		}
	}
	return false
}

// Exception overrides template availability for a resource over a date and
// time-of-day range.
type Exception struct {
	ID          uuid.UUID
	ResourceID  uuid.UUID
	Reason      string
	ValidFrom   time.Time
	ValidTo     time.Time
	Start       TimeOfDay
	End         TimeOfDay
	IsAvailable bool
	CreatedAt   time.Time
}

// FullDay reports whether the exception covers 00:00 through 23:59.
func (e Exception) FullDay() bool {
	return e.Start <= StartOfDay && e.End >= EndOfDay
}

func (e Exception) CoversDate(d time.Time) bool {
	d = DateOf(d)
	return !d.Before(DateOf(e.ValidFrom)) && !d.After(DateOf(e.ValidTo))
}

// Slot is a concrete bookable window generated from one availability on one
// date.
type Slot struct {
	ID             uuid.UUID
	ResourceID     uuid.UUID
	AvailabilityID uuid.UUID
	Availability   Availability
	Start          time.Time
	End            time.Time
	Allocated      int
	TokensIssued   int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (s Slot) Capacity() int {
	return s.Availability.TokensPerSlot
}

func (s Slot) Remaining() int {
	return s.Capacity() - s.Allocated
}
