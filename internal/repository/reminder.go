package repository

import (
	"context"
	"time"

	"github.com/hray3182/lifeline-calendar/internal/database"
	"github.com/hray3182/lifeline-calendar/internal/models"
)

const reminderColumns = `id, calendar_event_id, offset_minutes, sent_at, created_at`

type ReminderRepository struct {
	db *database.DB
}

func NewReminderRepository(db *database.DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

func (r *ReminderRepository) Create(ctx context.Context, reminder *models.Reminder) error {
	err := r.db.Pool.QueryRow(ctx,
		`INSERT INTO reminders (calendar_event_id, offset_minutes)
		 VALUES ($1, $2)
		 RETURNING id, created_at`,
		reminder.EventID, reminder.OffsetMinutes,
	).Scan(&reminder.ReminderID, &reminder.CreatedAt)
	if isUniqueViolation(err) {
		return duplicateOffset(reminder.OffsetMinutes)
	}
	return err
}

func (r *ReminderRepository) GetByID(ctx context.Context, id int64) (*models.Reminder, error) {
	row := r.db.Pool.QueryRow(ctx,
		`SELECT `+reminderColumns+` FROM reminders WHERE id = $1`,
		id,
	)
	reminder, err := scanReminder(row)
	if err != nil {
		return nil, notFound(err)
	}
	return reminder, nil
}

func (r *ReminderRepository) ListByEvent(ctx context.Context, eventID int64) ([]*models.Reminder, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+reminderColumns+` FROM reminders
		 WHERE calendar_event_id = $1 ORDER BY offset_minutes ASC`,
		eventID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanReminders(rows)
}

// ExistsForOffset reports whether another reminder of eventID already uses
// offsetMinutes. excludeID skips the reminder being edited (0 for none).
func (r *ReminderRepository) ExistsForOffset(ctx context.Context, eventID int64, offsetMinutes int, excludeID int64) (bool, error) {
	var exists bool
	err := r.db.Pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM reminders
		 WHERE calendar_event_id = $1 AND offset_minutes = $2 AND id <> $3)`,
		eventID, offsetMinutes, excludeID,
	).Scan(&exists)
	return exists, err
}

func (r *ReminderRepository) UpdateOffset(ctx context.Context, id int64, offsetMinutes int) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE reminders SET offset_minutes = $1 WHERE id = $2`,
		offsetMinutes, id,
	)
	if isUniqueViolation(err) {
		return duplicateOffset(offsetMinutes)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *ReminderRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM reminders WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ListPending returns every reminder that has not been sent, ordered by
// event so related reminders appear together in logs.
func (r *ReminderRepository) ListPending(ctx context.Context) ([]*models.Reminder, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+reminderColumns+` FROM reminders
		 WHERE sent_at IS NULL
		 ORDER BY calendar_event_id ASC, id ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanReminders(rows)
}

// MarkSent moves a reminder from PENDING to SENT. A reminder that is already
// sent or absent yields ErrNotFound; sent_at is never overwritten.
func (r *ReminderRepository) MarkSent(ctx context.Context, id int64, at time.Time) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE reminders SET sent_at = $1 WHERE id = $2 AND sent_at IS NULL`,
		at, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func duplicateOffset(offsetMinutes int) error {
	return models.NewValidationError("offset_minutes", "a reminder %d minutes before this event already exists", offsetMinutes)
}

func scanReminder(row rowScanner) (*models.Reminder, error) {
	reminder := &models.Reminder{}
	if err := row.Scan(&reminder.ReminderID, &reminder.EventID, &reminder.OffsetMinutes,
		&reminder.SentAt, &reminder.CreatedAt); err != nil {
		return nil, err
	}
	return reminder, nil
}

func scanReminders(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]*models.Reminder, error) {
	var reminders []*models.Reminder
	for rows.Next() {
		reminder, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		reminders = append(reminders, reminder)
	}
	return reminders, rows.Err()
}
