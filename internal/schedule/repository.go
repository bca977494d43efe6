package schedule

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository contains all DB interactions needed by the schedule service.
type Repository interface {
	ResourceExists(ctx context.Context, id uuid.UUID) (bool, error)
	ListActiveResources(ctx context.Context, since time.Time) ([]uuid.UUID, error)

	// Templates whose validity window intersects [from, to]
	CreateTemplate(ctx context.Context, t *Template) error
	GetTemplate(ctx context.Context, id uuid.UUID) (*Template, error)
	ListTemplates(ctx context.Context, resourceID uuid.UUID, from, to time.Time) ([]Template, error)

	CreateException(ctx context.Context, e *Exception) error
	ListExceptions(ctx context.Context, resourceID uuid.UUID, from, to time.Time) ([]Exception, error)

	// Slots. Materializing an already stored slot is a no-op.
	MaterializeSlots(ctx context.Context, slots []Slot) (int, error)
	GetSlotByID(ctx context.Context, id uuid.UUID) (*Slot, error)
	ListSlots(ctx context.Context, resourceID uuid.UUID, from, to time.Time) ([]Slot, error)

	// Sum of allocated tokens per local date (YYYY-MM-DD) in tz
	BookedByDate(ctx context.Context, resourceID uuid.UUID, from, to time.Time, tz string) (map[string]int, error)
}

// CacheInvalidator drops cached per-date availability after a mutation.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, resourceID uuid.UUID, dates ...time.Time) error
}
