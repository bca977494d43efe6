package schedule

import (
	"cmp"
	"slices"
	"strings"
)

// SlotGroup is the slots of one session, as shown in booking screens.
type SlotGroup struct {
	Availability Availability
	Slots        []Slot
}

// GroupSlots groups slots by session name. Sessions sharing a name are merged
// even when they come from different availabilities. Slots are ordered by
// start time and groups by their earliest slot; ties fall back to ids and
// names so the output does not depend on input order.
func GroupSlots(slots []Slot) []SlotGroup {
	byName := make(map[string][]Slot)
	for _, s := range slots {
		name := s.Availability.Name
		byName[name] = append(byName[name], s)
	}

	groups := make([]SlotGroup, 0, len(byName))
	for _, members := range byName {
		sorted := slices.Clone(members)
		slices.SortFunc(sorted, compareSlots)
		groups = append(groups, SlotGroup{
			Availability: sorted[0].Availability,
			Slots:        sorted,
		})
	}

	slices.SortFunc(groups, func(a, b SlotGroup) int {
		if c := a.Slots[0].Start.Compare(b.Slots[0].Start); c != 0 {
			return c
		}
		return strings.Compare(a.Availability.Name, b.Availability.Name)
	})
	return groups
}

// compareSlots is a total order on every stored field, so unmaterialized
// slots (nil ids) that share a start still sort the same way every time.
func compareSlots(a, b Slot) int {
	return cmp.Or(
		a.Start.Compare(b.Start),
		strings.Compare(a.ID.String(), b.ID.String()),
		strings.Compare(a.AvailabilityID.String(), b.AvailabilityID.String()),
		strings.Compare(a.ResourceID.String(), b.ResourceID.String()),
		a.End.Compare(b.End),
		cmp.Compare(a.Allocated, b.Allocated),
		cmp.Compare(a.TokensIssued, b.TokensIssued),
		a.CreatedAt.Compare(b.CreatedAt),
		a.UpdatedAt.Compare(b.UpdatedAt),
	)
}
