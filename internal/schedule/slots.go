package schedule

import (
	"time"

	"github.com/google/uuid"
)

// SlotsPerSession is the number of whole slots that fit in the session. Any
// remainder shorter than a slot is dropped.
func (a Availability) SlotsPerSession() int {
	if a.SlotSizeMinutes <= 0 || a.End <= a.Start {
		return 0
	}
	return a.SessionMinutes() / a.SlotSizeMinutes
}

// TokenDuration is the advisory time each token gets inside one slot.
func (a Availability) TokenDuration() time.Duration {
	if a.TokensPerSlot <= 0 {
		return 0
	}
	return time.Duration(a.SlotSizeMinutes) * time.Minute / time.Duration(a.TokensPerSlot)
}

// SessionEstimate is what a template author sees before any slot exists.
type SessionEstimate struct {
	SlotsPerSession  int
	TokenDuration    time.Duration
	TotalTokens      int
	RemainderMinutes int
}

func Estimate(a Availability) SessionEstimate {
	n := a.SlotsPerSession()
	est := SessionEstimate{
		SlotsPerSession: n,
		TokenDuration:   a.TokenDuration(),
		TotalTokens:     n * max(a.TokensPerSlot, 0),
	}
	if a.End > a.Start {
		est.RemainderMinutes = a.SessionMinutes() - n*a.SlotSizeMinutes
	}
	return est
}

// GenerateSlots lays out the session's slots on date in loc. Allocation starts
// at zero; ids are assigned when the slots are stored.
func GenerateSlots(date time.Time, resourceID uuid.UUID, a Availability, loc *time.Location) []Slot {
	n := a.SlotsPerSession()
	if n == 0 {
		return nil
	}
	size := time.Duration(a.SlotSizeMinutes) * time.Minute
	first := a.Start.On(date, loc)

	slots := make([]Slot, 0, n)
	for k := 0; k < n; k++ {
		start := first.Add(time.Duration(k) * size)
		slots = append(slots, Slot{
			ResourceID:     resourceID,
			AvailabilityID: a.ID,
			Availability:   a,
			Start:          start,
			End:            start.Add(size),
		})
	}
	return slots
}

// Claim takes one token from the slot.
func (s *Slot) Claim() error {
	if s.Allocated >= s.Capacity() {
		return ErrCapacityExceeded
	}
	s.Allocated++
	s.TokensIssued++
	return nil
}

// Release gives one token back. Releasing an empty slot is a no-op.
func (s *Slot) Release() {
	if s.Allocated > 0 {
		s.Allocated--
	}
}
