package reminder

import (
	"context"
	"time"

	"github.com/hray3182/lifeline-calendar/internal/models"
)

// Queue is the part of the reminder store the dispatcher needs.
type Queue interface {
	ListPending(ctx context.Context) ([]*models.Reminder, error)
	MarkSent(ctx context.Context, id int64, at time.Time) error
}

type Store interface {
	Queue
	Create(ctx context.Context, reminder *models.Reminder) error
	GetByID(ctx context.Context, id int64) (*models.Reminder, error)
	ListByEvent(ctx context.Context, eventID int64) ([]*models.Reminder, error)
	ExistsForOffset(ctx context.Context, eventID int64, offsetMinutes int, excludeID int64) (bool, error)
	UpdateOffset(ctx context.Context, id int64, offsetMinutes int) error
	Delete(ctx context.Context, id int64) error
}

// EventResolver finds the event a reminder points at without an owner
// check. A missing event is reported as models.ErrNotFound.
type EventResolver interface {
	ResolveEvent(ctx context.Context, eventID int64) (*models.CalendarEvent, error)
	DescribeSeries(ctx context.Context, definitionID int64) (string, error)
}

type OwnerDirectory interface {
	ResolveNotificationAddress(ctx context.Context, ownerID int64) (address string, ok bool, err error)
}

// Sender delivers a rendered reminder.
type Sender interface {
	Send(ctx context.Context, recipient, subject, body string) error
	ValidRecipient(recipient string) bool
}
