package availability

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestEntryLevel(t *testing.T) {
	tests := []struct {
		name  string
		entry Entry
		level Level
	}{
		{"open", Entry{TotalSlots: Finite(10), BookedSlots: 2}, LevelOpen},
		{"warning", Entry{TotalSlots: Finite(10), BookedSlots: 5}, LevelWarning},
		{"critical", Entry{TotalSlots: Finite(10), BookedSlots: 8}, LevelCritical},
		{"full", Entry{TotalSlots: Finite(10), BookedSlots: 10}, LevelFull},
		{"no capacity", Entry{TotalSlots: Finite(0)}, LevelFull},
		{"unbounded", Entry{TotalSlots: Unbounded(), BookedSlots: 1000}, LevelUnbounded},
		{"blocked", Entry{TotalSlots: Finite(10), Blocked: true}, LevelBlocked},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.level, tt.entry.Level())
		})
	}
}

func TestBookedRatio(t *testing.T) {
	r, ok := Entry{TotalSlots: Finite(4), BookedSlots: 1}.BookedRatio()
	assert.True(t, ok)
	assert.InDelta(t, 0.25, r, 1e-9)

	_, ok = Entry{TotalSlots: Finite(0)}.BookedRatio()
	assert.False(t, ok)

	_, ok = Entry{TotalSlots: Unbounded(), BookedSlots: 3}.BookedRatio()
	assert.False(t, ok)
}

func TestBookable(t *testing.T) {
	today := day(2024, 1, 10)
	open := Entry{TotalSlots: Finite(3), BookedSlots: 1}

	assert.True(t, Bookable(today, today, open))
	assert.True(t, Bookable(day(2024, 1, 11), today, open))
	assert.False(t, Bookable(day(2024, 1, 9), today, open), "past dates")
	assert.False(t, Bookable(today, today, Entry{TotalSlots: Finite(3), BookedSlots: 3}))
	assert.False(t, Bookable(today, today, Entry{TotalSlots: Finite(3), Blocked: true}))
	assert.True(t, Bookable(today, today, Entry{TotalSlots: Unbounded(), BookedSlots: 99}))
}

func TestEntryJSON(t *testing.T) {
	b, err := json.Marshal(Entry{TotalSlots: Unbounded()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"total_slots":null,"booked_slots":0,"unbounded":true}`, string(b))

	b, err = json.Marshal(Entry{TotalSlots: Finite(6), BookedSlots: 2})
	require.NoError(t, err)
	assert.JSONEq(t, `{"total_slots":6,"booked_slots":2}`, string(b))

	var e Entry
	require.NoError(t, json.Unmarshal([]byte(`{"total_slots":null,"booked_slots":0}`), &e))
	assert.True(t, e.TotalSlots.IsUnbounded())
}
