package appointment

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hackgods/availability-scheduling/internal/schedule"
)

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrReasonRequired    = fmt.Errorf("%w: a reason is required", ErrInvalidTransition)
	ErrNotToday          = fmt.Errorf("%w: only allowed on the appointment date", ErrInvalidTransition)
)

type transitionRule struct {
	sameDay     bool
	needsReason bool
}

var transitions = map[Status]map[Status]transitionRule{
	StatusBooked: {
		StatusCheckedIn:      {sameDay: true},
		StatusInConsultation: {sameDay: true},
		StatusNoShow:         {},
		StatusCancelled:      {needsReason: true},
		StatusEnteredInError: {needsReason: true},
	},
	StatusCheckedIn: {
		StatusInConsultation: {sameDay: true},
		StatusCancelled:      {needsReason: true},
		StatusEnteredInError: {needsReason: true},
	},
	StatusInConsultation: {
		StatusFulfilled:      {sameDay: true},
		StatusEnteredInError: {needsReason: true},
	},
}

func (s Status) Valid() bool {
	for _, v := range AllStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Terminal statuses accept no further transitions.
func (s Status) Terminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

// CheckTransition validates moving from one status to another. slotStart
// must be expressed in the facility location; now is converted to it. The
// check has no side effects.
func CheckTransition(from, to Status, reason string, slotStart, now time.Time) error {
	rule, ok := transitions[from][to]
	if !ok {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	if rule.needsReason && strings.TrimSpace(reason) == "" {
		return fmt.Errorf("%w: %s -> %s", ErrReasonRequired, from, to)
	}
	if rule.sameDay {
		today := schedule.DateOf(now.In(slotStart.Location()))
		if !schedule.DateOf(slotStart).Equal(today) {
			return fmt.Errorf("%w: %s -> %s", ErrNotToday, from, to)
		}
	}
	return nil
}

// CheckReplay validates a request for the status an appointment already
// has. It passes only when some transition leads into to and the request
// carries what that transition needs.
func CheckReplay(to Status, reason string) error {
	reachable := false
	for _, rules := range transitions {
		rule, ok := rules[to]
		if !ok {
			continue
		}
		reachable = true
		if rule.needsReason && strings.TrimSpace(reason) == "" {
			return fmt.Errorf("%w: %s -> %s", ErrReasonRequired, to, to)
		}
	}
	if !reachable {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, to, to)
	}
	return nil
}

// ReleasesAllocation reports whether entering to gives the slot token back.
// No-shows and fulfilled visits consumed their token.
func ReleasesAllocation(to Status) bool {
	return to == StatusCancelled || to == StatusEnteredInError
}

// AllowedTransitions lists the statuses reachable from from, ignoring date
// and reason preconditions.
func AllowedTransitions(from Status) []Status {
	var out []Status
	for _, s := range AllStatuses {
		if _, ok := transitions[from][s]; ok {
			out = append(out, s)
		}
	}
	return out
}
