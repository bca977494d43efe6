package availability

import (
	"time"

	"github.com/hackgods/availability-scheduling/internal/schedule"
)

// Booked-ratio bands used for warning colours.
const (
	WarningRatio  = 0.5
	CriticalRatio = 0.8
)

type Level string

const (
	LevelUnbounded Level = "unbounded"
	LevelOpen      Level = "open"
	LevelWarning   Level = "warning"
	LevelCritical  Level = "critical"
	LevelFull      Level = "full"
	LevelBlocked   Level = "blocked"
)

// FullyBooked is never true for unbounded capacity.
func (e Entry) FullyBooked() bool {
	n, ok := e.TotalSlots.Value()
	return ok && e.BookedSlots >= n
}

// BookedRatio returns booked/total. ok is false when no percentage should
// be shown: unbounded capacity or no capacity at all.
func (e Entry) BookedRatio() (ratio float64, ok bool) {
	n, finite := e.TotalSlots.Value()
	if !finite || n == 0 {
		return 0, false
	}
	return float64(e.BookedSlots) / float64(n), true
}

func (e Entry) Level() Level {
	switch {
	case e.Blocked:
		return LevelBlocked
	case e.TotalSlots.IsUnbounded():
		return LevelUnbounded
	case e.FullyBooked():
		return LevelFull
	}
	r, _ := e.BookedRatio()
	switch {
	case r >= CriticalRatio:
		return LevelCritical
	case r >= WarningRatio:
		return LevelWarning
	default:
		return LevelOpen
	}
}

// Bookable reports whether a calendar should let the user pick date. Dates
// before today are never bookable.
func Bookable(date, today time.Time, e Entry) bool {
	if schedule.DateOf(date).Before(schedule.DateOf(today)) {
		return false
	}
	return !e.Blocked && !e.FullyBooked()
}
