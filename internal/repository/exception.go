package repository

import (
	"context"
	"time"

	"github.com/hray3182/lifeline-calendar/internal/database"
	"github.com/hray3182/lifeline-calendar/internal/models"
)

type ExceptionRepository struct {
	db *database.DB
}

func NewExceptionRepository(db *database.DB) *ExceptionRepository {
	return &ExceptionRepository{db: db}
}

func (r *ExceptionRepository) ListByDefinition(ctx context.Context, definitionID int64) ([]time.Time, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT exception_date FROM recurrence_exceptions
		 WHERE recurring_event_id = $1 ORDER BY exception_date ASC`,
		definitionID,
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

// CreateIfAbsent records an exception for the occurrence on date. It is a
// no-op when the exception already exists or when the definition is gone;
// created reports whether a row was written.
func (r *ExceptionRepository) CreateIfAbsent(ctx context.Context, definitionID int64, date time.Time) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`INSERT INTO recurrence_exceptions (recurring_event_id, exception_date)
		 SELECT $1, $2 WHERE EXISTS (SELECT 1 FROM recurring_events WHERE id = $1)
		 ON CONFLICT (recurring_event_id, exception_date) DO NOTHING`,
		definitionID, models.StartOfDay(date),
	)
	if err != nil {
		// The definition was deleted between the EXISTS check and the insert.
		if isForeignKeyViolation(err) {
			return false, nil
		}
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
