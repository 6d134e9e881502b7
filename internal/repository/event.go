package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hray3182/lifeline-calendar/internal/database"
	"github.com/hray3182/lifeline-calendar/internal/models"
)

const calendarEventColumns = `id, owner_id, recurring_event_id, occurrence_date, title, description,
	start_date, end_date, is_modified, title_override, description_override, created_at, updated_at`

type EventRepository struct {
	db *database.DB
}

func NewEventRepository(db *database.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) CreateOneTime(ctx context.Context, ownerID int64, fields models.EventFields) (*models.CalendarEvent, error) {
	row := r.db.Pool.QueryRow(ctx,
		`INSERT INTO calendar_events (owner_id, title, description, start_date, end_date)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+calendarEventColumns,
		ownerID, fields.Title, fields.Description, fields.StartDate, fields.EndDate,
	)
	return scanEvent(row)
}

// CreateInstanceOrGet inserts the instance of def on occurrenceDate. When a
// concurrent caller inserted the same occurrence first, the unique index
// rejects the insert and the existing row is returned with created=false.
func (r *EventRepository) CreateInstanceOrGet(ctx context.Context, def *models.RecurringEventDefinition, occurrenceDate time.Time) (*models.CalendarEvent, bool, error) {
	day := models.StartOfDay(occurrenceDate)
	start := def.OccurrenceStart(day)
	end := start.Add(def.Duration())

	insert := func() (*models.CalendarEvent, error) {
		row := r.db.Pool.QueryRow(ctx,
			`INSERT INTO calendar_events (owner_id, recurring_event_id, occurrence_date, title, description,
			 start_date, end_date, is_modified)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE)
			 RETURNING `+calendarEventColumns,
			def.OwnerID, def.ID, day, def.Title, def.Description, start, end,
		)
		return scanEvent(row)
	}
	get := func() (*models.CalendarEvent, error) {
		return r.GetInstance(ctx, def.ID, day)
	}

	event, created, err := createOrGet(insert, get, 2)
	if errors.Is(err, models.ErrConflict) {
		return nil, false, fmt.Errorf("instance %d/%s: %w", def.ID, day.Format("2006-01-02"), err)
	}
	return event, created, err
}

// createOrGet runs insert and, when it loses a unique-key race, reads the
// winning row back. A winner deleted before the read sends the loop back to
// insert; ErrConflict is returned once attempts run out.
func createOrGet(insert, get func() (*models.CalendarEvent, error), attempts int) (*models.CalendarEvent, bool, error) {
	for i := 0; i < attempts; i++ {
		event, err := insert()
		if err == nil {
			return event, true, nil
		}
		if !isUniqueViolation(err) {
			return nil, false, fmt.Errorf("failed to insert instance: %w", err)
		}

		existing, err := get()
		if errors.Is(err, models.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, false, fmt.Errorf("failed to re-read instance after conflict: %w", err)
		}
		return existing, false, nil
	}
	return nil, false, models.ErrConflict
}

func (r *EventRepository) GetInstance(ctx context.Context, definitionID int64, occurrenceDate time.Time) (*models.CalendarEvent, error) {
	row := r.db.Pool.QueryRow(ctx,
		`SELECT `+calendarEventColumns+` FROM calendar_events
		 WHERE recurring_event_id = $1 AND occurrence_date = $2`,
		definitionID, models.StartOfDay(occurrenceDate),
	)
	event, err := scanEvent(row)
	if err != nil {
		return nil, notFound(err)
	}
	return event, nil
}

// FindByRange returns one-time events and instances overlapping [start, end].
func (r *EventRepository) FindByRange(ctx context.Context, ownerID int64, start, end time.Time) ([]*models.CalendarEvent, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+calendarEventColumns+` FROM calendar_events
		 WHERE owner_id = $1 AND start_date <= $3 AND end_date >= $2
		 ORDER BY start_date ASC, id ASC`,
		ownerID, start, end,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEvents(rows)
}

func (r *EventRepository) FindByDefinitionID(ctx context.Context, definitionID int64) ([]*models.CalendarEvent, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+calendarEventColumns+` FROM calendar_events
		 WHERE recurring_event_id = $1
		 ORDER BY occurrence_date ASC`,
		definitionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEvents(rows)
}

// OccurrenceDates returns the already-materialized occurrence dates of a
// definition within [start, end] in a single round trip.
func (r *EventRepository) OccurrenceDates(ctx context.Context, definitionID int64, start, end time.Time) ([]time.Time, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT occurrence_date FROM calendar_events
		 WHERE recurring_event_id = $1 AND occurrence_date BETWEEN $2 AND $3`,
		definitionID, models.StartOfDay(start), models.StartOfDay(end),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates = append(dates, models.StartOfDay(d))
	}
	return dates, rows.Err()
}

func (r *EventRepository) GetByID(ctx context.Context, id, ownerID int64) (*models.CalendarEvent, error) {
	row := r.db.Pool.QueryRow(ctx,
		`SELECT `+calendarEventColumns+` FROM calendar_events WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	)
	event, err := scanEvent(row)
	if err != nil {
		return nil, notFound(err)
	}
	return event, nil
}

func (r *EventRepository) GetByIDAnyOwner(ctx context.Context, id int64) (*models.CalendarEvent, error) {
	row := r.db.Pool.QueryRow(ctx,
		`SELECT `+calendarEventColumns+` FROM calendar_events WHERE id = $1`,
		id,
	)
	event, err := scanEvent(row)
	if err != nil {
		return nil, notFound(err)
	}
	return event, nil
}

// Update rewrites a one-time event.
func (r *EventRepository) Update(ctx context.Context, id, ownerID int64, fields models.EventFields) (*models.CalendarEvent, error) {
	row := r.db.Pool.QueryRow(ctx,
		`UPDATE calendar_events SET title = $1, description = $2, start_date = $3, end_date = $4,
		 updated_at = NOW()
		 WHERE id = $5 AND owner_id = $6 AND recurring_event_id IS NULL
		 RETURNING `+calendarEventColumns,
		fields.Title, fields.Description, fields.StartDate, fields.EndDate, id, ownerID,
	)
	event, err := scanEvent(row)
	if err != nil {
		return nil, notFound(err)
	}
	return event, nil
}

// UpdateInstanceOverride edits a single instance in place and marks it
// modified so definition edits no longer project onto it.
func (r *EventRepository) UpdateInstanceOverride(ctx context.Context, id, ownerID int64, fields models.EventFields) (*models.CalendarEvent, error) {
	row := r.db.Pool.QueryRow(ctx,
		`UPDATE calendar_events SET title_override = $1, description_override = $2,
		 start_date = $3, end_date = $4, is_modified = TRUE, updated_at = NOW()
		 WHERE id = $5 AND owner_id = $6 AND recurring_event_id IS NOT NULL
		 RETURNING `+calendarEventColumns,
		fields.Title, fields.Description, fields.StartDate, fields.EndDate, id, ownerID,
	)
	event, err := scanEvent(row)
	if err != nil {
		return nil, notFound(err)
	}
	return event, nil
}

func (r *EventRepository) Delete(ctx context.Context, id, ownerID int64) error {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM calendar_events WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// DeleteInstance removes the materialized row for one occurrence, if any.
func (r *EventRepository) DeleteInstance(ctx context.Context, definitionID int64, occurrenceDate time.Time) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM calendar_events WHERE recurring_event_id = $1 AND occurrence_date = $2`,
		definitionID, models.StartOfDay(occurrenceDate),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// RebaseUnmodified moves every unmodified instance of def to the
// definition's current time of day and duration.
func (r *EventRepository) RebaseUnmodified(ctx context.Context, def *models.RecurringEventDefinition) (int64, error) {
	start := def.StartDate.UTC()
	timeOfDay := start.Sub(models.StartOfDay(start))

	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE calendar_events
		 SET start_date = (occurrence_date + $2::bigint * INTERVAL '1 microsecond') AT TIME ZONE 'UTC',
		     end_date = (occurrence_date + ($2::bigint + $3::bigint) * INTERVAL '1 microsecond') AT TIME ZONE 'UTC',
		     updated_at = NOW()
		 WHERE recurring_event_id = $1 AND is_modified = FALSE`,
		def.ID, timeOfDay.Microseconds(), def.Duration().Microseconds(),
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// DeleteUnmodified drops unmodified instances so they are rebuilt from the
// current pattern on the next read. Individually edited instances survive.
func (r *EventRepository) DeleteUnmodified(ctx context.Context, definitionID int64) (int64, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM calendar_events WHERE recurring_event_id = $1 AND is_modified = FALSE`,
		definitionID,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanEvent(row rowScanner) (*models.CalendarEvent, error) {
	event := &models.CalendarEvent{}
	var definitionID *int64
	var occurrenceDate *time.Time
	if err := row.Scan(&event.ID, &event.OwnerID, &definitionID, &occurrenceDate, &event.Title,
		&event.Description, &event.StartDate, &event.EndDate, &event.IsModified,
		&event.TitleOverride, &event.DescriptionOverride, &event.CreatedAt, &event.UpdatedAt); err != nil {
		return nil, err
	}

	event.StartDate = event.StartDate.UTC()
	event.EndDate = event.EndDate.UTC()
	if definitionID != nil && occurrenceDate != nil {
		event.Kind = models.Instance{DefinitionID: *definitionID, OccurrenceDate: models.StartOfDay(*occurrenceDate)}
	} else {
		event.Kind = models.OneTime{}
	}
	return event, nil
}

func scanEvents(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]*models.CalendarEvent, error) {
	var events []*models.CalendarEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
