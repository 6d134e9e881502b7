package models

import "time"

type ReminderState string

const (
	ReminderPending ReminderState = "PENDING"
	ReminderSent    ReminderState = "SENT"
)

type Reminder struct {
	ReminderID    int64      `json:"reminder_id"`
	EventID       int64      `json:"calendar_event_id"`
	OffsetMinutes int        `json:"offset_minutes"`
	SentAt        *time.Time `json:"sent_at"`
	CreatedAt     time.Time  `json:"created_at"`
}

func (r *Reminder) State() ReminderState {
	if r.SentAt != nil {
		return ReminderSent
	}
	return ReminderPending
}

// FireAt is the instant the reminder becomes due for an event starting at start.
func (r *Reminder) FireAt(start time.Time) time.Time {
	return start.Add(-time.Duration(r.OffsetMinutes) * time.Minute)
}

func ValidateOffset(offsetMinutes int) error {
	if offsetMinutes < 0 {
		return NewValidationError("offset_minutes", "must not be negative, got %d", offsetMinutes)
	}
	return nil
}
