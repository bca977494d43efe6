package availability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/availability-scheduling/internal/config"
	"github.com/hackgods/availability-scheduling/internal/schedule"
)

// MaxRangeDays bounds a single heatmap request.
const MaxRangeDays = 62

var errNoStore = errors.New("no heatmap store")

// Source computes exact per-date capacity.
type Source interface {
	DailyCapacity(ctx context.Context, resourceID uuid.UUID, from, to time.Time) ([]schedule.DayCapacity, error)
}

type Aggregator struct {
	source Source
	store  *Store
	mode   config.HeatmapMode
	logger *slog.Logger
}

// NewAggregator builds an aggregator. store may be nil to disable caching.
func NewAggregator(source Source, store *Store, mode config.HeatmapMode, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		source: source,
		store:  store,
		mode:   mode,
		logger: logger,
	}
}

func (a *Aggregator) Mode() config.HeatmapMode {
	return a.mode
}

// Heatmap returns one entry per date in [from, to]. In estimated mode every
// date is unbounded with nothing booked.
func (a *Aggregator) Heatmap(ctx context.Context, resourceID uuid.UUID, from, to time.Time) (Heatmap, error) {
	dates, err := rangeDates(from, to)
	if err != nil {
		return nil, err
	}

	if a.mode == config.HeatmapEstimated {
		return Estimated(dates), nil
	}

	if a.store != nil {
		cached, err := a.store.Load(ctx, resourceID, dates)
		if err != nil {
			a.logger.Warn("heatmap cache read failed", slog.String("resource_id", resourceID.String()), slog.Any("error", err))
		} else if len(cached) == len(dates) {
			return cached, nil
		}
	}

	var gen string
	genErr := errNoStore
	if a.store != nil {
		gen, genErr = a.store.Generation(ctx, resourceID)
	}

	days, err := a.source.DailyCapacity(ctx, resourceID, from, to)
	if err != nil {
		return nil, fmt.Errorf("daily capacity: %w", err)
	}

	h := make(Heatmap, len(days))
	for _, d := range days {
		h[schedule.FormatDate(d.Date)] = Entry{
			TotalSlots:  Finite(d.Total),
			BookedSlots: d.Booked,
			Blocked:     d.Blocked,
		}
	}

	if a.store != nil {
		if genErr == nil {
			if cur, err := a.store.Generation(ctx, resourceID); err == nil && cur != gen {
				a.logger.Debug("heatmap invalidated during read, not caching", slog.String("resource_id", resourceID.String()))
				return h, nil
			}
		}
		if err := a.store.Save(ctx, resourceID, h); err != nil {
			a.logger.Warn("heatmap cache write failed", slog.String("resource_id", resourceID.String()), slog.Any("error", err))
		}
	}
	return h, nil
}

// Invalidate drops cached entries for the given dates.
func (a *Aggregator) Invalidate(ctx context.Context, resourceID uuid.UUID, dates ...time.Time) error {
	if a.store == nil {
		return nil
	}
	return a.store.Invalidate(ctx, resourceID, dates...)
}

// Estimated is the degraded heatmap: unconstrained capacity on every date.
func Estimated(dates []time.Time) Heatmap {
	h := make(Heatmap, len(dates))
	for _, d := range dates {
		h[schedule.FormatDate(d)] = Entry{TotalSlots: Unbounded()}
	}
	return h
}

func rangeDates(from, to time.Time) ([]time.Time, error) {
	from, to = schedule.DateOf(from), schedule.DateOf(to)
	if from.After(to) {
		return nil, &schedule.ValidationError{Fields: []schedule.FieldError{{Field: "to", Message: "must not be before from"}}}
	}
	if to.Sub(from) >= MaxRangeDays*24*time.Hour {
		return nil, &schedule.ValidationError{Fields: []schedule.FieldError{{Field: "to", Message: fmt.Sprintf("range is limited to %d days", MaxRangeDays)}}}
	}
	return schedule.Dates(from, to), nil
}
