package repository

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hray3182/lifeline-calendar/internal/models"
)

var errDuplicate = &pgconn.PgError{Code: sqlStateUniqueViolation}

func TestCreateOrGet(t *testing.T) {
	row := &models.CalendarEvent{ID: 11}

	t.Run("insert wins", func(t *testing.T) {
		event, created, err := createOrGet(
			func() (*models.CalendarEvent, error) { return row, nil },
			func() (*models.CalendarEvent, error) { t.Fatal("unexpected read"); return nil, nil },
			2,
		)
		require.NoError(t, err)
		assert.True(t, created)
		assert.Same(t, row, event)
	})

	t.Run("lost race reads the winner", func(t *testing.T) {
		event, created, err := createOrGet(
			func() (*models.CalendarEvent, error) { return nil, errDuplicate },
			func() (*models.CalendarEvent, error) { return row, nil },
			2,
		)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Same(t, row, event)
	})

	t.Run("vanished winner is retried", func(t *testing.T) {
		inserts := 0
		event, created, err := createOrGet(
			func() (*models.CalendarEvent, error) {
				inserts++
				if inserts == 1 {
					return nil, errDuplicate
				}
				return row, nil
			},
			func() (*models.CalendarEvent, error) { return nil, models.ErrNotFound },
			2,
		)
		require.NoError(t, err)
		assert.True(t, created)
		assert.Same(t, row, event)
		assert.Equal(t, 2, inserts)
	})

	t.Run("gives up with conflict", func(t *testing.T) {
		inserts := 0
		_, _, err := createOrGet(
			func() (*models.CalendarEvent, error) { inserts++; return nil, errDuplicate },
			func() (*models.CalendarEvent, error) { return nil, models.ErrNotFound },
			2,
		)
		assert.ErrorIs(t, err, models.ErrConflict)
		assert.Equal(t, 2, inserts)
	})

	t.Run("other insert errors surface", func(t *testing.T) {
		boom := errors.New("connection reset")
		_, _, err := createOrGet(
			func() (*models.CalendarEvent, error) { return nil, boom },
			func() (*models.CalendarEvent, error) { return row, nil },
			2,
		)
		assert.ErrorIs(t, err, boom)
	})
}
