package reminder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hray3182/lifeline-calendar/internal/models"
)

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("negative offset", func(t *testing.T) {
		store, events := new(MockStore), new(MockEvents)
		_, err := NewService(store, events).Create(ctx, 3, 11, -5)
		assert.True(t, models.IsValidation(err))
		store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("foreign event", func(t *testing.T) {
		store, events := new(MockStore), new(MockEvents)
		events.On("GetEvent", mock.Anything, int64(4), int64(11)).Return(nil, models.ErrNotFound)

		_, err := NewService(store, events).Create(ctx, 4, 11, 30)
		assert.ErrorIs(t, err, models.ErrNotFound)
		store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("duplicate offset", func(t *testing.T) {
		store, events := new(MockStore), new(MockEvents)
		events.On("GetEvent", mock.Anything, int64(3), int64(11)).Return(dentist(), nil)
		store.On("ExistsForOffset", mock.Anything, int64(11), 30, int64(0)).Return(true, nil)

		_, err := NewService(store, events).Create(ctx, 3, 11, 30)
		assert.True(t, models.IsValidation(err))
		store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("ok", func(t *testing.T) {
		store, events := new(MockStore), new(MockEvents)
		events.On("GetEvent", mock.Anything, int64(3), int64(11)).Return(dentist(), nil)
		store.On("ExistsForOffset", mock.Anything, int64(11), 0, int64(0)).Return(false, nil)
		store.On("Create", mock.Anything, mock.AnythingOfType("*models.Reminder")).Run(func(args mock.Arguments) {
			args.Get(1).(*models.Reminder).ReminderID = 77
		}).Return(nil)

		r, err := NewService(store, events).Create(ctx, 3, 11, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(77), r.ReminderID)
		assert.Equal(t, models.ReminderPending, r.State())
	})
}

func TestService_UpdateOffset(t *testing.T) {
	ctx := context.Background()
	store, events := new(MockStore), new(MockEvents)
	store.On("GetByID", mock.Anything, int64(5)).Return(hourBefore(), nil)
	events.On("GetEvent", mock.Anything, int64(3), int64(11)).Return(dentist(), nil)
	store.On("ExistsForOffset", mock.Anything, int64(11), 15, int64(5)).Return(false, nil)
	store.On("UpdateOffset", mock.Anything, int64(5), 15).Return(nil)

	r, err := NewService(store, events).UpdateOffset(ctx, 3, 5, 15)
	require.NoError(t, err)
	assert.Equal(t, 15, r.OffsetMinutes)
}

func TestService_DeleteChecksOwnership(t *testing.T) {
	ctx := context.Background()
	store, events := new(MockStore), new(MockEvents)
	store.On("GetByID", mock.Anything, int64(5)).Return(hourBefore(), nil)
	events.On("GetEvent", mock.Anything, int64(9), int64(11)).Return(nil, models.ErrNotFound)
	events.On("GetEvent", mock.Anything, int64(3), int64(11)).Return(dentist(), nil)
	store.On("Delete", mock.Anything, int64(5)).Return(nil)

	svc := NewService(store, events)
	assert.ErrorIs(t, svc.Delete(ctx, 9, 5), models.ErrNotFound)
	store.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)

	require.NoError(t, svc.Delete(ctx, 3, 5))
	store.AssertCalled(t, "Delete", mock.Anything, int64(5))
}

func TestService_ListForEvent(t *testing.T) {
	ctx := context.Background()
	store, events := new(MockStore), new(MockEvents)
	events.On("GetEvent", mock.Anything, int64(3), int64(11)).Return(dentist(), nil)
	store.On("ListByEvent", mock.Anything, int64(11)).Return([]*models.Reminder{hourBefore()}, nil)

	got, err := NewService(store, events).ListForEvent(ctx, 3, 11)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
