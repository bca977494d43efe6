package schedule

import (
	"iter"
	"time"

	"github.com/google/uuid"
)

// Occurrence is one session applying on one calendar date.
type Occurrence struct {
	Date         time.Time
	TemplateID   uuid.UUID
	Availability Availability
}

// Occurrences yields every (date, session) pair of the template inside
// [from, to]. The sequence is finite and can be ranged over repeatedly.
func (t Template) Occurrences(from, to time.Time) iter.Seq[Occurrence] {
	start := latest(DateOf(from), DateOf(t.ValidFrom))
	end := earliest(DateOf(to), DateOf(t.ValidTo))

	return func(yield func(Occurrence) bool) {
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			if !t.AppliesOn(d.Weekday()) {
				continue
			}
			for _, a := range t.Availabilities {
				if !yield(Occurrence{Date: d, TemplateID: t.ID, Availability: a}) {
					return
				}
			}
		}
	}
}

// Expand collects the occurrences of all templates. Overlapping templates are
// not deduplicated.
func Expand(templates []Template, from, to time.Time) []Occurrence {
	var out []Occurrence
	for _, t := range templates {
		for o := range t.Occurrences(from, to) {
			out = append(out, o)
		}
	}
	return out
}

// Dates returns each calendar date in [from, to].
func Dates(from, to time.Time) []time.Time {
	var out []time.Time
	for d := DateOf(from); !d.After(DateOf(to)); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

func latest(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func earliest(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
