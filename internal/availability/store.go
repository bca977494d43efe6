package availability

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/availability-scheduling/internal/schedule"
)

// ByteCache is a key/value cache with expiry, backed by Redis in production.
type ByteCache interface {
	GetMany(ctx context.Context, keys []string) (map[string][]byte, error)
	SetMany(ctx context.Context, values map[string][]byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Store caches heatmap entries per (resource, date) so that a booking only
// invalidates the date it touched.
type Store struct {
	cache ByteCache
	ttl   time.Duration
}

func NewStore(cache ByteCache, ttl time.Duration) *Store {
	return &Store{cache: cache, ttl: ttl}
}

func EntryKey(resourceID uuid.UUID, date time.Time) string {
	return fmt.Sprintf("heatmap:%s:%s", resourceID, schedule.FormatDate(date))
}

// GenerationKey holds a token that changes on every invalidation of the
// resource. A reader compares it before and after computing entries so it
// never writes back counts that a booking already made obsolete.
func GenerationKey(resourceID uuid.UUID) string {
	return fmt.Sprintf("heatmap:%s:gen", resourceID)
}

// Generation returns the resource's current token, "" when none is set.
func (s *Store) Generation(ctx context.Context, resourceID uuid.UUID) (string, error) {
	k := GenerationKey(resourceID)
	raw, err := s.cache.GetMany(ctx, []string{k})
	if err != nil {
		return "", err
	}
	return string(raw[k]), nil
}

// Load returns the cached entries among dates. Missing dates are absent.
func (s *Store) Load(ctx context.Context, resourceID uuid.UUID, dates []time.Time) (Heatmap, error) {
	keys := make([]string, 0, len(dates))
	byKey := make(map[string]string, len(dates))
	for _, d := range dates {
		k := EntryKey(resourceID, d)
		keys = append(keys, k)
		byKey[k] = schedule.FormatDate(d)
	}

	raw, err := s.cache.GetMany(ctx, keys)
	if err != nil {
		return nil, err
	}

	h := make(Heatmap, len(raw))
	for k, b := range raw {
		var e Entry
		if err := json.Unmarshal(b, &e); err != nil {
			continue
		}
		h[byKey[k]] = e
	}
	return h, nil
}

func (s *Store) Save(ctx context.Context, resourceID uuid.UUID, h Heatmap) error {
	values := make(map[string][]byte, len(h))
	for date, e := range h {
		d, err := schedule.ParseDate(date)
		if err != nil {
			return err
		}
		b, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal heatmap entry: %w", err)
		}
		values[EntryKey(resourceID, d)] = b
	}
	return s.cache.SetMany(ctx, values, s.ttl)
}

func (s *Store) Invalidate(ctx context.Context, resourceID uuid.UUID, dates ...time.Time) error {
	if len(dates) == 0 {
		return nil
	}
	keys := make([]string, 0, len(dates))
	for _, d := range dates {
		keys = append(keys, EntryKey(resourceID, d))
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		return err
	}
	gen := map[string][]byte{GenerationKey(resourceID): []byte(uuid.NewString())}
	return s.cache.SetMany(ctx, gen, s.ttl)
}
