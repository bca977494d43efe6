package client

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/availability-scheduling/internal/schedule"
)

type cacheKey struct {
	kind     string
	resource uuid.UUID
	from, to string
}

type cacheEntry struct {
	value     any
	expiresAt time.Time
}

// dateCache holds read responses per resource and date range. Expired
// entries are kept so a failed refresh can still serve them as stale.
type dateCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[cacheKey]cacheEntry
	// slotDates remembers where slots seen in responses live, so a booking
	// can invalidate exactly that date.
	slotDates map[uuid.UUID]slotDate
}

type slotDate struct {
	resource uuid.UUID
	date     time.Time
}

func newDateCache(ttl time.Duration, now func() time.Time) *dateCache {
	return &dateCache{
		ttl:       ttl,
		now:       now,
		entries:   make(map[cacheKey]cacheEntry),
		slotDates: make(map[uuid.UUID]slotDate),
	}
}

// get returns the cached value and whether it is still fresh.
func (c *dateCache) get(k cacheKey) (v any, fresh, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[k]
	if !ok {
		return nil, false, false
	}
	return e.value, c.now().Before(e.expiresAt), true
}

func (c *dateCache) put(k cacheKey, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[k] = cacheEntry{value: v, expiresAt: c.now().Add(c.ttl)}
}

func (c *dateCache) rememberSlot(id, resource uuid.UUID, date time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slotDates[id] = slotDate{resource: resource, date: schedule.DateOf(date)}
}

func (c *dateCache) slotDate(id uuid.UUID) (slotDate, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	sd, ok := c.slotDates[id]
	return sd, ok
}

// invalidate expires every entry of resource whose range intersects
// [from, to]. The values stay behind so a failed refetch can serve them.
func (c *dateCache) invalidate(resource uuid.UUID, from, to time.Time) {
	lo, hi := schedule.FormatDate(from), schedule.FormatDate(to)
	c.expireWhere(func(k cacheKey) bool {
		return k.resource == resource && k.from <= hi && k.to >= lo
	})
}

func (c *dateCache) invalidateResource(resource uuid.UUID) {
	c.expireWhere(func(k cacheKey) bool { return k.resource == resource })
}

func (c *dateCache) expireWhere(match func(cacheKey) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		if match(k) {
			e.expiresAt = time.Time{}
			c.entries[k] = e
		}
	}
}
