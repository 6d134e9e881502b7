package calendar

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/hray3182/lifeline-calendar/internal/logger"
	"github.com/hray3182/lifeline-calendar/internal/models"
	"github.com/hray3182/lifeline-calendar/internal/rrule"
)

// DefaultMaxRangeSpan bounds a single ListEvents call.
const DefaultMaxRangeSpan = 366 * 24 * time.Hour

type Service struct {
	defs         DefinitionStore
	events       EventStore
	exceptions   ExceptionStore
	materializer *Materializer
	log          *logger.Logger
	maxRange     time.Duration
}

func NewService(defs DefinitionStore, events EventStore, exceptions ExceptionStore, materializer *Materializer, log *logger.Logger, maxRange time.Duration) *Service {
	if maxRange <= 0 {
		maxRange = DefaultMaxRangeSpan
	}
	return &Service{
		defs:         defs,
		events:       events,
		exceptions:   exceptions,
		materializer: materializer,
		log:          log,
		maxRange:     maxRange,
	}
}

// ListEvents materializes every active series of the owner over [start, end]
// and returns the merged one-time events and instances, ordered by start
// then id.
func (s *Service) ListEvents(ctx context.Context, ownerID int64, start, end time.Time) ([]*models.CalendarEvent, error) {
	if end.Before(start) {
		return nil, models.NewValidationError("range", "end is before start")
	}
	if end.Sub(start) > s.maxRange {
		return nil, models.NewValidationError("range", "span exceeds %d days", int(s.maxRange/(24*time.Hour)))
	}

	defs, err := s.defs.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list definitions: %w", err)
	}

	byID := make(map[int64]*models.RecurringEventDefinition, len(defs))
	for _, def := range defs {
		byID[def.ID] = def
		if !def.ActiveIn(lookbackStart(def, start), end) {
			continue
		}
		if _, err := s.materializer.Apply(ctx, def, start, end); err != nil {
			return nil, err
		}
	}

	events, err := s.events.FindByRange(ctx, ownerID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to find events: %w", err)
	}

	out := make([]*models.CalendarEvent, 0, len(events))
	for _, ev := range events {
		var def *models.RecurringEventDefinition
		if inst, ok := ev.AsInstance(); ok {
			def = byID[inst.DefinitionID]
		}
		out = append(out, project(ev, def))
	}
	sortEvents(out)
	return out, nil
}

// ListInstances returns the materialized rows of one series.
func (s *Service) ListInstances(ctx context.Context, ownerID, definitionID int64) ([]*models.CalendarEvent, error) {
	def, err := s.defs.GetByID(ctx, definitionID, ownerID)
	if err != nil {
		return nil, err
	}
	events, err := s.events.FindByDefinitionID(ctx, def.ID)
	if err != nil {
		return nil, err
	}
	out := make([]*models.CalendarEvent, 0, len(events))
	for _, ev := range events {
		out = append(out, project(ev, def))
	}
	sortEvents(out)
	return out, nil
}

func (s *Service) CreateDefinition(ctx context.Context, def *models.RecurringEventDefinition) error {
	def.StartDate = def.StartDate.UTC()
	def.EndDate = def.EndDate.UTC()
	if err := def.Validate(); err != nil {
		return err
	}
	if err := s.defs.Create(ctx, def); err != nil {
		return fmt.Errorf("failed to create definition: %w", err)
	}
	s.log.Info("CALENDAR", fmt.Sprintf("Created definition %d for owner %d", def.ID, def.OwnerID))
	return nil
}

func (s *Service) GetDefinition(ctx context.Context, ownerID, definitionID int64) (*models.RecurringEventDefinition, error) {
	return s.defs.GetByID(ctx, definitionID, ownerID)
}

func (s *Service) ListDefinitions(ctx context.Context, ownerID int64) ([]*models.RecurringEventDefinition, error) {
	return s.defs.ListByOwner(ctx, ownerID)
}

// UpdateDefinition renames or reschedules a series. Unmodified instances
// follow the new time of day and duration; a changed pattern, first day or
// recurrence end drops them so they are rebuilt on the next read.
func (s *Service) UpdateDefinition(ctx context.Context, def *models.RecurringEventDefinition) error {
	current, err := s.defs.GetByID(ctx, def.ID, def.OwnerID)
	if err != nil {
		return err
	}

	def.StartDate = def.StartDate.UTC()
	def.EndDate = def.EndDate.UTC()
	if err := def.Validate(); err != nil {
		return err
	}
	if err := s.defs.Update(ctx, def); err != nil {
		return fmt.Errorf("failed to update definition: %w", err)
	}

	switch {
	case seriesChanged(current, def):
		n, err := s.events.DeleteUnmodified(ctx, def.ID)
		if err != nil {
			return fmt.Errorf("failed to reset instances: %w", err)
		}
		s.log.LogMaterialize(def.ID, fmt.Sprintf("pattern changed, dropped %d unmodified instances", n))
	case !sameClock(current, def):
		n, err := s.events.RebaseUnmodified(ctx, def)
		if err != nil {
			return fmt.Errorf("failed to rebase instances: %w", err)
		}
		s.log.LogMaterialize(def.ID, fmt.Sprintf("rescheduled %d unmodified instances", n))
	}
	return nil
}

func (s *Service) DeleteDefinition(ctx context.Context, ownerID, definitionID int64) error {
	removed, err := s.defs.Delete(ctx, definitionID, ownerID)
	if err != nil {
		return err
	}
	s.log.Info("CALENDAR", fmt.Sprintf("Deleted definition %d with %d instances", definitionID, removed))
	return nil
}

func (s *Service) CreateOneTime(ctx context.Context, ownerID int64, fields models.EventFields) (*models.CalendarEvent, error) {
	fields.StartDate = fields.StartDate.UTC()
	fields.EndDate = fields.EndDate.UTC()
	if err := fields.Validate(); err != nil {
		return nil, err
	}
	return s.events.CreateOneTime(ctx, ownerID, fields)
}

func (s *Service) GetEvent(ctx context.Context, ownerID, eventID int64) (*models.CalendarEvent, error) {
	ev, err := s.events.GetByID(ctx, eventID, ownerID)
	if err != nil {
		return nil, err
	}
	return s.projectOne(ctx, ev)
}

// ResolveEvent looks an event up by id regardless of owner. The reminder
// dispatcher uses it to reach events it only knows by reference.
func (s *Service) ResolveEvent(ctx context.Context, eventID int64) (*models.CalendarEvent, error) {
	ev, err := s.events.GetByIDAnyOwner(ctx, eventID)
	if err != nil {
		return nil, err
	}
	return s.projectOne(ctx, ev)
}

// DescribeSeries renders the recurrence of a definition for display.
func (s *Service) DescribeSeries(ctx context.Context, definitionID int64) (string, error) {
	def, err := s.defs.GetByIDAnyOwner(ctx, definitionID)
	if err != nil {
		return "", err
	}
	return rrule.Describe(def.Pattern), nil
}

// UpdateEvent edits a one-time event directly. Editing an instance stores
// overrides and detaches it from later definition edits.
func (s *Service) UpdateEvent(ctx context.Context, ownerID, eventID int64, fields models.EventFields) (*models.CalendarEvent, error) {
	fields.StartDate = fields.StartDate.UTC()
	fields.EndDate = fields.EndDate.UTC()
	if err := fields.Validate(); err != nil {
		return nil, err
	}

	ev, err := s.events.GetByID(ctx, eventID, ownerID)
	if err != nil {
		return nil, err
	}

	var updated *models.CalendarEvent
	switch ev.Kind.(type) {
	case models.Instance:
		updated, err = s.events.UpdateInstanceOverride(ctx, eventID, ownerID, fields)
	default:
		updated, err = s.events.Update(ctx, eventID, ownerID, fields)
	}
	if err != nil {
		return nil, err
	}
	return project(updated, nil), nil
}

// DeleteEvent removes a one-time event or a single instance. Deleting an
// instance records an exception so the occurrence is never rebuilt.
func (s *Service) DeleteEvent(ctx context.Context, ownerID, eventID int64) error {
	ev, err := s.events.GetByID(ctx, eventID, ownerID)
	if err != nil {
		return err
	}
	if err := s.events.Delete(ctx, eventID, ownerID); err != nil {
		return err
	}

	inst, ok := ev.AsInstance()
	if !ok {
		return nil
	}
	return s.recordException(ctx, inst.DefinitionID, inst.OccurrenceDate)
}

// DeleteOccurrence removes one occurrence of a series by date, whether or
// not it has been materialized. Repeating it is a no-op.
func (s *Service) DeleteOccurrence(ctx context.Context, ownerID, definitionID int64, occurrenceDate time.Time) error {
	def, err := s.defs.GetByID(ctx, definitionID, ownerID)
	if err != nil {
		return err
	}
	day := models.StartOfDay(occurrenceDate)
	if _, err := s.events.DeleteInstance(ctx, def.ID, day); err != nil {
		return fmt.Errorf("failed to delete instance: %w", err)
	}
	return s.recordException(ctx, def.ID, day)
}

func (s *Service) recordException(ctx context.Context, definitionID int64, date time.Time) error {
	created, err := s.exceptions.CreateIfAbsent(ctx, definitionID, models.StartOfDay(date))
	if err != nil {
		return fmt.Errorf("failed to record exception: %w", err)
	}
	if created {
		s.log.LogMaterialize(definitionID, fmt.Sprintf("exception recorded for %s", date.Format("2006-01-02")))
	}
	return nil
}

func (s *Service) projectOne(ctx context.Context, ev *models.CalendarEvent) (*models.CalendarEvent, error) {
	inst, ok := ev.AsInstance()
	if !ok || ev.IsModified {
		return project(ev, nil), nil
	}
	def, err := s.defs.GetByIDAnyOwner(ctx, inst.DefinitionID)
	if errors.Is(err, models.ErrNotFound) {
		return project(ev, nil), nil
	}
	if err != nil {
		return nil, err
	}
	return project(ev, def), nil
}

// project returns a copy of ev carrying the title and description a reader
// should see: the definition's current values for unmodified instances,
// the overrides for modified ones.
func project(ev *models.CalendarEvent, def *models.RecurringEventDefinition) *models.CalendarEvent {
	out := *ev
	if !ev.IsInstance() {
		return &out
	}
	if ev.IsModified {
		if ev.TitleOverride != nil {
			out.Title = *ev.TitleOverride
		}
		if ev.DescriptionOverride != nil {
			out.Description = *ev.DescriptionOverride
		}
		return &out
	}
	if def != nil {
		out.Title = def.Title
		out.Description = def.Description
	}
	return &out
}

func sortEvents(events []*models.CalendarEvent) {
	sort.Slice(events, func(i, j int) bool {
		if !events[i].StartDate.Equal(events[j].StartDate) {
			return events[i].StartDate.Before(events[j].StartDate)
		}
		return events[i].ID < events[j].ID
	})
}

func seriesChanged(a, b *models.RecurringEventDefinition) bool {
	if !models.StartOfDay(a.StartDate).Equal(models.StartOfDay(b.StartDate)) {
		return true
	}
	if !sameDate(a.RecurrenceEndDate, b.RecurrenceEndDate) {
		return true
	}
	pa, pb := a.Pattern, b.Pattern
	if pa.Type != pb.Type || pa.Interval != pb.Interval {
		return true
	}
	if len(pa.DaysOfWeek) != len(pb.DaysOfWeek) {
		return true
	}
	days := make(map[int]bool, len(pa.DaysOfWeek))
	for _, d := range pa.DaysOfWeek {
		days[d] = true
	}
	for _, d := range pb.DaysOfWeek {
		if !days[d] {
			return true
		}
	}
	return !sameInt(pa.DayOfMonth, pb.DayOfMonth) || !sameInt(pa.MonthOfYear, pb.MonthOfYear)
}

func sameClock(a, b *models.RecurringEventDefinition) bool {
	clockA := a.StartDate.Sub(models.StartOfDay(a.StartDate))
	clockB := b.StartDate.Sub(models.StartOfDay(b.StartDate))
	return clockA == clockB && a.Duration() == b.Duration()
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return models.StartOfDay(*a).Equal(models.StartOfDay(*b))
}

func sameInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
