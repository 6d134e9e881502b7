package models

import "time"

// EventKind distinguishes one-time events from materialized instances of a
// recurring definition. It is sealed: the only implementations are OneTime
// and Instance.
type EventKind interface {
	isEventKind()
}

type OneTime struct{}

type Instance struct {
	DefinitionID   int64
	OccurrenceDate time.Time // start of day, UTC
}

func (OneTime) isEventKind()  {}
func (Instance) isEventKind() {}

type CalendarEvent struct {
	ID                  int64     `json:"id"`
	OwnerID             int64     `json:"owner_id"`
	Kind                EventKind `json:"-"`
	Title               string    `json:"title"`
	Description         string    `json:"description"`
	StartDate           time.Time `json:"start_date"`
	EndDate             time.Time `json:"end_date"`
	IsModified          bool      `json:"is_modified"`
	TitleOverride       *string   `json:"title_override,omitempty"`
	DescriptionOverride *string   `json:"description_override,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// AsInstance returns the instance tag when the event belongs to a series.
func (e *CalendarEvent) AsInstance() (Instance, bool) {
	inst, ok := e.Kind.(Instance)
	return inst, ok
}

func (e *CalendarEvent) IsInstance() bool {
	_, ok := e.AsInstance()
	return ok
}

// Overlaps is the inclusive range test used for listing.
func (e *CalendarEvent) Overlaps(start, end time.Time) bool {
	return !e.StartDate.After(end) && !e.EndDate.Before(start)
}

// EventFields carries the user-editable part of an event.
type EventFields struct {
	Title       string
	Description string
	StartDate   time.Time
	EndDate     time.Time
}

func (f EventFields) Validate() error {
	if f.Title == "" {
		return NewValidationError("title", "must not be empty")
	}
	if f.StartDate.IsZero() {
		return NewValidationError("start_date", "is required")
	}
	if f.EndDate.Before(f.StartDate) {
		return NewValidationError("end_date", "must not be before start_date")
	}
	return nil
}

// RecurrenceException suppresses regeneration of one occurrence date.
type RecurrenceException struct {
	ID            int64     `json:"id"`
	DefinitionID  int64     `json:"recurring_event_id"`
	ExceptionDate time.Time `json:"exception_date"`
}
