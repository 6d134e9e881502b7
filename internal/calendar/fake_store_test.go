package calendar

import (
	"context"
	"sync"
	"time"

	"github.com/hray3182/lifeline-calendar/internal/models"
)

type occurrenceKey struct {
	definitionID int64
	date         time.Time
}

// memStore is an in-memory stand-in for the PostgreSQL repositories. The
// occurrence map plays the role of the partial unique index.
type memStore struct {
	mu          sync.Mutex
	nextID      int64
	defs        map[int64]*models.RecurringEventDefinition
	events      map[int64]*models.CalendarEvent
	occurrences map[occurrenceKey]int64
	exceptions  map[occurrenceKey]bool

	// hideExisting makes OccurrenceDates report nothing so every caller
	// races on the insert.
	hideExisting bool
	conflicts    int
	// vanishing makes every instance insert report a winner that was
	// deleted before it could be read back.
	vanishing bool
}

func newMemStore() *memStore {
	return &memStore{
		defs:        make(map[int64]*models.RecurringEventDefinition),
		events:      make(map[int64]*models.CalendarEvent),
		occurrences: make(map[occurrenceKey]int64),
		exceptions:  make(map[occurrenceKey]bool),
	}
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

func clone(ev *models.CalendarEvent) *models.CalendarEvent {
	c := *ev
	return &c
}

// DefinitionStore

func (s *memStore) Create(ctx context.Context, def *models.RecurringEventDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	def.ID = s.id()
	c := *def
	s.defs[def.ID] = &c
	return nil
}

func (s *memStore) GetByID(ctx context.Context, id, ownerID int64) (*models.RecurringEventDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	def, ok := s.defs[id]
	if !ok || def.OwnerID != ownerID {
		return nil, models.ErrNotFound
	}
	c := *def
	return &c, nil
}

func (s *memStore) GetByIDAnyOwner(ctx context.Context, id int64) (*models.RecurringEventDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	def, ok := s.defs[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	c := *def
	return &c, nil
}

func (s *memStore) ListByOwner(ctx context.Context, ownerID int64) ([]*models.RecurringEventDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.RecurringEventDefinition
	for _, def := range s.defs {
		if def.OwnerID == ownerID {
			c := *def
			out = append(out, &c)
		}
	}
	return out, nil
}

func (s *memStore) Update(ctx context.Context, def *models.RecurringEventDefinition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.defs[def.ID]
	if !ok || cur.OwnerID != def.OwnerID {
		return models.ErrNotFound
	}
	c := *def
	s.defs[def.ID] = &c
	return nil
}

func (s *memStore) Delete(ctx context.Context, id, ownerID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	def, ok := s.defs[id]
	if !ok || def.OwnerID != ownerID {
		return 0, models.ErrNotFound
	}
	var removed int64
	for evID, ev := range s.events {
		if inst, ok := ev.AsInstance(); ok && inst.DefinitionID == id {
			delete(s.events, evID)
			delete(s.occurrences, occurrenceKey{id, inst.OccurrenceDate})
			removed++
		}
	}
	delete(s.defs, id)
	return removed, nil
}

// ExceptionStore

type memExceptions struct{ *memStore }

func (s memExceptions) ListByDefinition(ctx context.Context, definitionID int64) ([]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []time.Time
	for k := range s.exceptions {
		if k.definitionID == definitionID {
			out = append(out, k.date)
		}
	}
	return out, nil
}

func (s memExceptions) CreateIfAbsent(ctx context.Context, definitionID int64, date time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.defs[definitionID]; !ok {
		return false, nil
	}
	k := occurrenceKey{definitionID, models.StartOfDay(date)}
	if s.exceptions[k] {
		return false, nil
	}
	s.exceptions[k] = true
	return true, nil
}

// EventStore

type memEvents struct{ *memStore }

func (s memEvents) CreateOneTime(ctx context.Context, ownerID int64, fields models.EventFields) (*models.CalendarEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev := &models.CalendarEvent{
		ID: s.id(), OwnerID: ownerID, Kind: models.OneTime{},
		Title: fields.Title, Description: fields.Description,
		StartDate: fields.StartDate, EndDate: fields.EndDate,
	}
	s.events[ev.ID] = ev
	return clone(ev), nil
}

func (s memEvents) CreateInstanceOrGet(ctx context.Context, def *models.RecurringEventDefinition, occurrenceDate time.Time) (*models.CalendarEvent, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.vanishing {
		return nil, false, models.ErrConflict
	}
	day := models.StartOfDay(occurrenceDate)
	k := occurrenceKey{def.ID, day}
	if id, ok := s.occurrences[k]; ok {
		s.conflicts++
		return clone(s.events[id]), false, nil
	}
	start := def.OccurrenceStart(day)
	ev := &models.CalendarEvent{
		ID: s.id(), OwnerID: def.OwnerID,
		Kind:  models.Instance{DefinitionID: def.ID, OccurrenceDate: day},
		Title: def.Title, Description: def.Description,
		StartDate: start, EndDate: start.Add(def.Duration()),
	}
	s.events[ev.ID] = ev
	s.occurrences[k] = ev.ID
	return clone(ev), true, nil
}

func (s memEvents) FindByRange(ctx context.Context, ownerID int64, start, end time.Time) ([]*models.CalendarEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.CalendarEvent
	for _, ev := range s.events {
		if ev.OwnerID == ownerID && ev.Overlaps(start, end) {
			out = append(out, clone(ev))
		}
	}
	return out, nil
}

func (s memEvents) FindByDefinitionID(ctx context.Context, definitionID int64) ([]*models.CalendarEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.CalendarEvent
	for _, ev := range s.events {
		if inst, ok := ev.AsInstance(); ok && inst.DefinitionID == definitionID {
			out = append(out, clone(ev))
		}
	}
	return out, nil
}

func (s memEvents) OccurrenceDates(ctx context.Context, definitionID int64, start, end time.Time) ([]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hideExisting {
		return nil, nil
	}
	var out []time.Time
	for k := range s.occurrences {
		if k.definitionID == definitionID && !k.date.Before(models.StartOfDay(start)) && !k.date.After(end) {
			out = append(out, k.date)
		}
	}
	return out, nil
}

func (s memEvents) GetByID(ctx context.Context, id, ownerID int64) (*models.CalendarEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[id]
	if !ok || ev.OwnerID != ownerID {
		return nil, models.ErrNotFound
	}
	return clone(ev), nil
}

func (s memEvents) GetByIDAnyOwner(ctx context.Context, id int64) (*models.CalendarEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	return clone(ev), nil
}

func (s memEvents) Update(ctx context.Context, id, ownerID int64, fields models.EventFields) (*models.CalendarEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[id]
	if !ok || ev.OwnerID != ownerID || ev.IsInstance() {
		return nil, models.ErrNotFound
	}
	ev.Title, ev.Description = fields.Title, fields.Description
	ev.StartDate, ev.EndDate = fields.StartDate, fields.EndDate
	return clone(ev), nil
}

func (s memEvents) UpdateInstanceOverride(ctx context.Context, id, ownerID int64, fields models.EventFields) (*models.CalendarEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[id]
	if !ok || ev.OwnerID != ownerID || !ev.IsInstance() {
		return nil, models.ErrNotFound
	}
	title, desc := fields.Title, fields.Description
	ev.TitleOverride, ev.DescriptionOverride = &title, &desc
	ev.StartDate, ev.EndDate = fields.StartDate, fields.EndDate
	ev.IsModified = true
	return clone(ev), nil
}

func (s memEvents) Delete(ctx context.Context, id, ownerID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[id]
	if !ok || ev.OwnerID != ownerID {
		return models.ErrNotFound
	}
	if inst, ok := ev.AsInstance(); ok {
		delete(s.occurrences, occurrenceKey{inst.DefinitionID, inst.OccurrenceDate})
	}
	delete(s.events, id)
	return nil
}

func (s memEvents) DeleteInstance(ctx context.Context, definitionID int64, occurrenceDate time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := occurrenceKey{definitionID, models.StartOfDay(occurrenceDate)}
	id, ok := s.occurrences[k]
	if !ok {
		return false, nil
	}
	delete(s.occurrences, k)
	delete(s.events, id)
	return true, nil
}

func (s memEvents) RebaseUnmodified(ctx context.Context, def *models.RecurringEventDefinition) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, ev := range s.events {
		inst, ok := ev.AsInstance()
		if !ok || inst.DefinitionID != def.ID || ev.IsModified {
			continue
		}
		ev.StartDate = def.OccurrenceStart(inst.OccurrenceDate)
		ev.EndDate = ev.StartDate.Add(def.Duration())
		n++
	}
	return n, nil
}

func (s memEvents) DeleteUnmodified(ctx context.Context, definitionID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, ev := range s.events {
		inst, ok := ev.AsInstance()
		if !ok || inst.DefinitionID != definitionID || ev.IsModified {
			continue
		}
		delete(s.events, id)
		delete(s.occurrences, occurrenceKey{definitionID, inst.OccurrenceDate})
		n++
	}
	return n, nil
}
