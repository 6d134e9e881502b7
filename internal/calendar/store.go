package calendar

import (
	"context"
	"time"

	"github.com/hray3182/lifeline-calendar/internal/models"
)

// EventStore persists one-time events and materialized instances.
type EventStore interface {
	CreateOneTime(ctx context.Context, ownerID int64, fields models.EventFields) (*models.CalendarEvent, error)
	// CreateInstanceOrGet must be safe to race: a duplicate occurrence
	// returns the existing row with created=false instead of an error.
	CreateInstanceOrGet(ctx context.Context, def *models.RecurringEventDefinition, occurrenceDate time.Time) (event *models.CalendarEvent, created bool, err error)
	FindByRange(ctx context.Context, ownerID int64, start, end time.Time) ([]*models.CalendarEvent, error)
	FindByDefinitionID(ctx context.Context, definitionID int64) ([]*models.CalendarEvent, error)
	OccurrenceDates(ctx context.Context, definitionID int64, start, end time.Time) ([]time.Time, error)
	GetByID(ctx context.Context, id, ownerID int64) (*models.CalendarEvent, error)
	GetByIDAnyOwner(ctx context.Context, id int64) (*models.CalendarEvent, error)
	Update(ctx context.Context, id, ownerID int64, fields models.EventFields) (*models.CalendarEvent, error)
	UpdateInstanceOverride(ctx context.Context, id, ownerID int64, fields models.EventFields) (*models.CalendarEvent, error)
	Delete(ctx context.Context, id, ownerID int64) error
	DeleteInstance(ctx context.Context, definitionID int64, occurrenceDate time.Time) (bool, error)
	RebaseUnmodified(ctx context.Context, def *models.RecurringEventDefinition) (int64, error)
	DeleteUnmodified(ctx context.Context, definitionID int64) (int64, error)
}

type ExceptionStore interface {
	ListByDefinition(ctx context.Context, definitionID int64) ([]time.Time, error)
	CreateIfAbsent(ctx context.Context, definitionID int64, date time.Time) (bool, error)
}

type DefinitionStore interface {
	Create(ctx context.Context, def *models.RecurringEventDefinition) error
	GetByID(ctx context.Context, id, ownerID int64) (*models.RecurringEventDefinition, error)
	GetByIDAnyOwner(ctx context.Context, id int64) (*models.RecurringEventDefinition, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]*models.RecurringEventDefinition, error)
	Update(ctx context.Context, def *models.RecurringEventDefinition) error
	// Delete removes the definition and all of its instances atomically and
	// reports how many instances went with it.
	Delete(ctx context.Context, id, ownerID int64) (int64, error)
}
