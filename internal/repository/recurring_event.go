package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/hray3182/lifeline-calendar/internal/database"
	"github.com/hray3182/lifeline-calendar/internal/models"
)

const recurringEventColumns = `id, owner_id, title, description, start_date, end_date,
	recurrence_type, recurrence_interval, days_of_week, day_of_month, month_of_year,
	recurrence_end_date, no_end_date, created_at, updated_at`

type RecurringEventRepository struct {
	db *database.DB
}

func NewRecurringEventRepository(db *database.DB) *RecurringEventRepository {
	return &RecurringEventRepository{db: db}
}

func (r *RecurringEventRepository) Create(ctx context.Context, def *models.RecurringEventDefinition) error {
	return r.db.Pool.QueryRow(ctx,
		`INSERT INTO recurring_events (owner_id, title, description, start_date, end_date,
		 recurrence_type, recurrence_interval, days_of_week, day_of_month, month_of_year,
		 recurrence_end_date, no_end_date)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id, created_at, updated_at`,
		def.OwnerID, def.Title, def.Description, def.StartDate, def.EndDate,
		string(def.Pattern.Type), def.Pattern.Interval, daysToDB(def.Pattern.DaysOfWeek),
		def.Pattern.DayOfMonth, def.Pattern.MonthOfYear, def.RecurrenceEndDate, def.NoEndDate,
	).Scan(&def.ID, &def.CreatedAt, &def.UpdatedAt)
}

func (r *RecurringEventRepository) GetByID(ctx context.Context, id, ownerID int64) (*models.RecurringEventDefinition, error) {
	row := r.db.Pool.QueryRow(ctx,
		`SELECT `+recurringEventColumns+` FROM recurring_events WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	)
	def, err := scanDefinition(row)
	if err != nil {
		return nil, notFound(err)
	}
	return def, nil
}

// GetByIDAnyOwner is used where ownership has already been established
// through another row, e.g. when projecting an instance for the dispatcher.
func (r *RecurringEventRepository) GetByIDAnyOwner(ctx context.Context, id int64) (*models.RecurringEventDefinition, error) {
	row := r.db.Pool.QueryRow(ctx,
		`SELECT `+recurringEventColumns+` FROM recurring_events WHERE id = $1`,
		id,
	)
	def, err := scanDefinition(row)
	if err != nil {
		return nil, notFound(err)
	}
	return def, nil
}

func (r *RecurringEventRepository) ListByOwner(ctx context.Context, ownerID int64) ([]*models.RecurringEventDefinition, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+recurringEventColumns+` FROM recurring_events WHERE owner_id = $1 ORDER BY id ASC`,
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var defs []*models.RecurringEventDefinition
	for rows.Next() {
		def, err := scanDefinition(rows)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, rows.Err()
}

func (r *RecurringEventRepository) Update(ctx context.Context, def *models.RecurringEventDefinition) error {
	err := r.db.Pool.QueryRow(ctx,
		`UPDATE recurring_events SET title = $1, description = $2, start_date = $3, end_date = $4,
		 recurrence_type = $5, recurrence_interval = $6, days_of_week = $7, day_of_month = $8,
		 month_of_year = $9, recurrence_end_date = $10, no_end_date = $11, updated_at = NOW()
		 WHERE id = $12 AND owner_id = $13
		 RETURNING updated_at`,
		def.Title, def.Description, def.StartDate, def.EndDate,
		string(def.Pattern.Type), def.Pattern.Interval, daysToDB(def.Pattern.DaysOfWeek),
		def.Pattern.DayOfMonth, def.Pattern.MonthOfYear, def.RecurrenceEndDate, def.NoEndDate,
		def.ID, def.OwnerID,
	).Scan(&def.UpdatedAt)
	return notFound(err)
}

// Delete removes the definition and every materialized instance of it in one
// transaction.
func (r *RecurringEventRepository) Delete(ctx context.Context, id, ownerID int64) (int64, error) {
	var removed int64
	err := pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`DELETE FROM calendar_events
			 WHERE recurring_event_id = (SELECT id FROM recurring_events WHERE id = $1 AND owner_id = $2)`,
			id, ownerID,
		)
		if err != nil {
			return fmt.Errorf("failed to delete instances: %w", err)
		}
		removed = tag.RowsAffected()

		tag, err = tx.Exec(ctx,
			`DELETE FROM recurring_events WHERE id = $1 AND owner_id = $2`,
			id, ownerID,
		)
		if err != nil {
			return fmt.Errorf("failed to delete definition: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return models.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func scanDefinition(row rowScanner) (*models.RecurringEventDefinition, error) {
	def := &models.RecurringEventDefinition{}
	var recurrenceType string
	var days []int32
	if err := row.Scan(&def.ID, &def.OwnerID, &def.Title, &def.Description, &def.StartDate, &def.EndDate,
		&recurrenceType, &def.Pattern.Interval, &days, &def.Pattern.DayOfMonth, &def.Pattern.MonthOfYear,
		&def.RecurrenceEndDate, &def.NoEndDate, &def.CreatedAt, &def.UpdatedAt); err != nil {
		return nil, err
	}
	def.Pattern.Type = models.RecurrenceType(recurrenceType)
	def.Pattern.DaysOfWeek = daysFromDB(days)
	def.StartDate = def.StartDate.UTC()
	def.EndDate = def.EndDate.UTC()
	return def, nil
}

func daysToDB(days []int) []int32 {
	if len(days) == 0 {
		return nil
	}
	out := make([]int32, len(days))
	for i, d := range days {
		out[i] = int32(d)
	}
	return out
}

func daysFromDB(days []int32) []int {
	if len(days) == 0 {
		return nil
	}
	out := make([]int, len(days))
	for i, d := range days {
		out[i] = int(d)
	}
	return out
}
