package schedule

import (
	"slices"
	"time"
)

// Day is the candidate availability of one calendar date after exceptions
// have been applied.
type Day struct {
	Date    time.Time
	Entries []Occurrence
	// Blocked is set when a full-day unavailability exception removed the
	// date's entries.
	Blocked bool
	// Partial holds exceptions that block only part of the day. They do not
	// shrink Entries; slot-level filtering applies them.
	Partial []Exception
}

// Overlay applies unavailability exceptions to expanded occurrences and
// groups the result by date in ascending order.
func Overlay(occurrences []Occurrence, exceptions []Exception) []Day {
	byDate := make(map[time.Time]*Day)
	var order []time.Time

	for _, o := range occurrences {
		d := DateOf(o.Date)
		day, ok := byDate[d]
		if !ok {
			day = &Day{Date: d}
			byDate[d] = day
			order = append(order, d)
		}
		day.Entries = append(day.Entries, o)
	}

	for _, d := range order {
		day := byDate[d]
		for _, e := range exceptions {
			if e.IsAvailable || !e.CoversDate(d) {
				continue
			}
			if e.FullDay() {
				day.Blocked = true
				continue
			}
			if overlapsAny(e, day.Entries) {
				day.Partial = append(day.Partial, e)
			}
		}
		if day.Blocked {
			day.Entries = nil
		}
	}

	slices.SortFunc(order, func(a, b time.Time) int { return a.Compare(b) })
	out := make([]Day, 0, len(order))
	for _, d := range order {
		out = append(out, *byDate[d])
	}
	return out
}

func overlapsAny(e Exception, entries []Occurrence) bool {
	for _, o := range entries {
		if e.Start < o.Availability.End && o.Availability.Start < e.End {
			return true
		}
	}
	return false
}

// BlockedBy returns the first unavailability exception that overlaps the
// slot's window, if any.
func BlockedBy(s Slot, exceptions []Exception) (Exception, bool) {
	start := TimeOfDay(s.Start.Hour()*60 + s.Start.Minute())
	end := start + TimeOfDay(s.End.Sub(s.Start)/time.Minute)
	date := DateOf(s.Start)

	for _, e := range exceptions {
		if e.IsAvailable || !e.CoversDate(date) {
			continue
		}
		if e.FullDay() || (e.Start < end && start < e.End) {
			return e, true
		}
	}
	return Exception{}, false
}

// FilterBlocked drops slots overlapped by an unavailability exception.
func FilterBlocked(slots []Slot, exceptions []Exception) []Slot {
	out := make([]Slot, 0, len(slots))
	for _, s := range slots {
		if _, blocked := BlockedBy(s, exceptions); blocked {
			continue
		}
		out = append(out, s)
	}
	return out
}
