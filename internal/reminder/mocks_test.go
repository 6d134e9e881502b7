package reminder

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/hray3182/lifeline-calendar/internal/models"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) ListPending(ctx context.Context) ([]*models.Reminder, error) {
	args := m.Called(ctx)
	reminders, _ := args.Get(0).([]*models.Reminder)
	return reminders, args.Error(1)
}

func (m *MockStore) MarkSent(ctx context.Context, id int64, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

func (m *MockStore) Create(ctx context.Context, reminder *models.Reminder) error {
	return m.Called(ctx, reminder).Error(0)
}

func (m *MockStore) GetByID(ctx context.Context, id int64) (*models.Reminder, error) {
	args := m.Called(ctx, id)
	r, _ := args.Get(0).(*models.Reminder)
	return r, args.Error(1)
}

func (m *MockStore) ListByEvent(ctx context.Context, eventID int64) ([]*models.Reminder, error) {
	args := m.Called(ctx, eventID)
	reminders, _ := args.Get(0).([]*models.Reminder)
	return reminders, args.Error(1)
}

func (m *MockStore) ExistsForOffset(ctx context.Context, eventID int64, offsetMinutes int, excludeID int64) (bool, error) {
	args := m.Called(ctx, eventID, offsetMinutes, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) UpdateOffset(ctx context.Context, id int64, offsetMinutes int) error {
	return m.Called(ctx, id, offsetMinutes).Error(0)
}

func (m *MockStore) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

type MockEvents struct {
	mock.Mock
}

func (m *MockEvents) ResolveEvent(ctx context.Context, eventID int64) (*models.CalendarEvent, error) {
	args := m.Called(ctx, eventID)
	ev, _ := args.Get(0).(*models.CalendarEvent)
	return ev, args.Error(1)
}

func (m *MockEvents) DescribeSeries(ctx context.Context, definitionID int64) (string, error) {
	args := m.Called(ctx, definitionID)
	return args.String(0), args.Error(1)
}

func (m *MockEvents) GetEvent(ctx context.Context, ownerID, eventID int64) (*models.CalendarEvent, error) {
	args := m.Called(ctx, ownerID, eventID)
	ev, _ := args.Get(0).(*models.CalendarEvent)
	return ev, args.Error(1)
}

type MockOwners struct {
	mock.Mock
}

func (m *MockOwners) ResolveNotificationAddress(ctx context.Context, ownerID int64) (string, bool, error) {
	args := m.Called(ctx, ownerID)
	return args.String(0), args.Bool(1), args.Error(2)
}

type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, recipient, subject, body string) error {
	return m.Called(ctx, recipient, subject, body).Error(0)
}

func (m *MockSender) ValidRecipient(recipient string) bool {
	return m.Called(recipient).Bool(0)
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }
