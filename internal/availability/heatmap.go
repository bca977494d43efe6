// Package availability summarizes slot capacity per calendar date so booking
// calendars can be coloured without enumerating slots.
package availability

import (
	"encoding/json"
	"time"

	"github.com/hackgods/availability-scheduling/internal/schedule"
)

// Capacity is a token count that may be unbounded. Unbounded capacity means
// "always bookable" and must never be used in arithmetic.
type Capacity struct {
	n         int
	unbounded bool
}

func Finite(n int) Capacity { return Capacity{n: n} }

func Unbounded() Capacity { return Capacity{unbounded: true} }

func (c Capacity) IsUnbounded() bool { return c.unbounded }

// Value returns the finite count. ok is false for unbounded capacity.
func (c Capacity) Value() (n int, ok bool) {
	if c.unbounded {
		return 0, false
	}
	return c.n, true
}

// Entry is the heatmap value of one date.
type Entry struct {
	TotalSlots  Capacity
	BookedSlots int
	Blocked     bool
}

type entryJSON struct {
	TotalSlots  *int `json:"total_slots"`
	BookedSlots int  `json:"booked_slots"`
	Unbounded   bool `json:"unbounded,omitempty"`
	Blocked     bool `json:"blocked,omitempty"`
}

// MarshalJSON encodes unbounded capacity as a null total with unbounded set.
func (e Entry) MarshalJSON() ([]byte, error) {
	out := entryJSON{BookedSlots: e.BookedSlots, Blocked: e.Blocked}
	if n, ok := e.TotalSlots.Value(); ok {
		out.TotalSlots = &n
	} else {
		out.Unbounded = true
	}
	return json.Marshal(out)
}

func (e *Entry) UnmarshalJSON(b []byte) error {
	var in entryJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	e.BookedSlots = in.BookedSlots
	e.Blocked = in.Blocked
	if in.Unbounded || in.TotalSlots == nil {
		e.TotalSlots = Unbounded()
	} else {
		e.TotalSlots = Finite(*in.TotalSlots)
	}
	return nil
}

// Heatmap maps YYYY-MM-DD dates to entries.
type Heatmap map[string]Entry

func (h Heatmap) Get(date time.Time) (Entry, bool) {
	e, ok := h[schedule.FormatDate(date)]
	return e, ok
}
