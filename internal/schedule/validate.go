package schedule

import (
	"fmt"
	"strings"
)

// Validate checks a template and all of its sessions. It runs before any
// round trip so authoring mistakes are reported locally.
func (t Template) Validate() error {
	ve := &ValidationError{}

	if strings.TrimSpace(t.Name) == "" {
		ve.add("name", "is required")
	}
	if t.ValidFrom.IsZero() || t.ValidTo.IsZero() {
		ve.add("valid_from", "validity window is required")
	} else if DateOf(t.ValidFrom).After(DateOf(t.ValidTo)) {
		ve.add("valid_to", "must not be before valid_from")
	}

	if len(t.Weekdays) == 0 {
		ve.add("weekdays", "at least one weekday is required")
	}
	seen := make(map[int]bool, len(t.Weekdays))
	for _, w := range t.Weekdays {
		if w < 0 || w > 6 {
			ve.add("weekdays", fmt.Sprintf("%d is not a weekday (0-6)", w))
			continue
		}
		if seen[int(w)] {
			ve.add("weekdays", fmt.Sprintf("%d is listed twice", w))
		}
		seen[int(w)] = true
	}

	if len(t.Availabilities) == 0 {
		ve.add("availabilities", "at least one session is required")
	}
	names := make(map[string]bool, len(t.Availabilities))
	for i, a := range t.Availabilities {
		prefix := fmt.Sprintf("availabilities[%d].", i)
		validateAvailability(ve, prefix, a)
		if names[a.Name] && a.Name != "" {
			ve.add(prefix+"name", "must be unique within the template")
		}
		names[a.Name] = true
	}

	return ve.orNil()
}

// Validate checks a single session.
func (a Availability) Validate() error {
	ve := &ValidationError{}
	validateAvailability(ve, "", a)
	return ve.orNil()
}

func validateAvailability(ve *ValidationError, prefix string, a Availability) {
	if strings.TrimSpace(a.Name) == "" {
		ve.add(prefix+"name", "is required")
	}
	if !a.SlotType.Valid() {
		ve.add(prefix+"slot_type", fmt.Sprintf("unknown slot type %q", a.SlotType))
	}
	if a.Start < StartOfDay || a.End > EndOfDay+1 {
		ve.add(prefix+"start_time", "time of day out of range")
	}
	if a.Start >= a.End {
		ve.add(prefix+"end_time", "must be after start_time")
	}
	if a.SlotSizeMinutes <= 0 {
		ve.add(prefix+"slot_size_minutes", "must be positive")
	}
	if a.TokensPerSlot <= 0 {
		ve.add(prefix+"tokens_per_slot", "must be positive")
	}
}

// Validate checks an exception's date and time ranges.
func (e Exception) Validate() error {
	ve := &ValidationError{}
	if e.ValidFrom.IsZero() || e.ValidTo.IsZero() {
		ve.add("valid_from", "date range is required")
	} else if DateOf(e.ValidFrom).After(DateOf(e.ValidTo)) {
		ve.add("valid_to", "must not be before valid_from")
	}
	if e.Start >= e.End {
		ve.add("end_time", "must be after start_time")
	}
	if e.Start < StartOfDay || e.End > EndOfDay {
		ve.add("start_time", "time of day out of range")
	}
	return ve.orNil()
}

// Overlaps reports whether two templates of the same resource could yield a
// session at the same date and time.
func (t Template) Overlaps(other Template) bool {
	if t.ResourceID != other.ResourceID {
		return false
	}
	if DateOf(t.ValidFrom).After(DateOf(other.ValidTo)) || DateOf(other.ValidFrom).After(DateOf(t.ValidTo)) {
		return false
	}
	shared := false
	for _, w := range t.Weekdays {
		if other.AppliesOn(w) {
			shared = true
			break
		}
	}
	if !shared {
		return false
	}
	for _, a := range t.Availabilities {
		for _, b := range other.Availabilities {
			if a.Start < b.End && b.Start < a.End {
				return true
			}
		}
	}
	return false
}
