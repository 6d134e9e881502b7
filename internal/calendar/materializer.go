package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hray3182/lifeline-calendar/internal/logger"
	"github.com/hray3182/lifeline-calendar/internal/models"
	"github.com/hray3182/lifeline-calendar/internal/rrule"
)

// MaterializeResult summarizes one Apply call.
type MaterializeResult struct {
	Created   int
	Existing  int
	Excepted  int
	Truncated bool
}

// Materializer backfills instance rows for a definition over a range. It
// holds no locks: concurrent callers converge through the store's unique
// (definition, occurrence date) constraint.
type Materializer struct {
	events         EventStore
	exceptions     ExceptionStore
	log            *logger.Logger
	maxOccurrences int
}

func NewMaterializer(events EventStore, exceptions ExceptionStore, log *logger.Logger, maxOccurrences int) *Materializer {
	if maxOccurrences <= 0 {
		maxOccurrences = rrule.DefaultMaxOccurrences
	}
	return &Materializer{
		events:         events,
		exceptions:     exceptions,
		log:            log,
		maxOccurrences: maxOccurrences,
	}
}

// lookbackStart is the earliest instant an occurrence overlapping a range
// beginning at start can have begun: overnight and multi-day occurrences
// from earlier days still intersect the range.
func lookbackStart(def *models.RecurringEventDefinition, start time.Time) time.Time {
	return start.Add(-def.Duration())
}

// Apply creates the instance rows of def for every non-excepted occurrence
// overlapping [start, end].
func (m *Materializer) Apply(ctx context.Context, def *models.RecurringEventDefinition, start, end time.Time) (MaterializeResult, error) {
	var result MaterializeResult

	exp, err := rrule.Expand(def, lookbackStart(def, start), end, m.maxOccurrences)
	if err != nil {
		return result, fmt.Errorf("failed to expand definition %d: %w", def.ID, err)
	}
	result.Truncated = exp.Truncated
	if exp.Truncated {
		m.log.Warn("MATERIALIZE", fmt.Sprintf("definition %d truncated at %d occurrences", def.ID, m.maxOccurrences))
	}

	var dates []time.Time
	for _, date := range exp.Dates {
		if def.OccurrenceStart(date).Add(def.Duration()).Before(start) {
			continue
		}
		dates = append(dates, date)
	}
	if len(dates) == 0 {
		return result, nil
	}

	excepted, err := m.exceptions.ListByDefinition(ctx, def.ID)
	if err != nil {
		return result, fmt.Errorf("failed to list exceptions: %w", err)
	}
	existing, err := m.events.OccurrenceDates(ctx, def.ID, dates[0], dates[len(dates)-1])
	if err != nil {
		return result, fmt.Errorf("failed to list materialized dates: %w", err)
	}

	skip := dateSet(excepted)
	have := dateSet(existing)

	for _, date := range dates {
		if skip[date] {
			result.Excepted++
			continue
		}
		if have[date] {
			result.Existing++
			continue
		}

		_, created, err := m.events.CreateInstanceOrGet(ctx, def, date)
		if errors.Is(err, models.ErrConflict) {
			// The row was deleted under us twice; only a single-occurrence
			// delete does that, and it records an exception for the date.
			m.log.Warn("MATERIALIZE", fmt.Sprintf("definition %d: %v", def.ID, err))
			result.Excepted++
			continue
		}
		if err != nil {
			return result, err
		}
		if created {
			result.Created++
		} else {
			result.Existing++
		}
	}

	if result.Created > 0 {
		m.log.LogMaterialize(def.ID, fmt.Sprintf("created %d instances (%d existing, %d excepted)",
			result.Created, result.Existing, result.Excepted))
	}
	return result, nil
}

func dateSet(dates []time.Time) map[time.Time]bool {
	set := make(map[time.Time]bool, len(dates))
	for _, d := range dates {
		set[models.StartOfDay(d)] = true
	}
	return set
}
