package reminder

import (
	"context"
	"fmt"

	"github.com/hray3182/lifeline-calendar/internal/models"
)

// EventLookup resolves an event on behalf of its owner.
type EventLookup interface {
	GetEvent(ctx context.Context, ownerID, eventID int64) (*models.CalendarEvent, error)
}

// Service manages reminders for the owner of the target event.
type Service struct {
	store  Store
	events EventLookup
}

func NewService(store Store, events EventLookup) *Service {
	return &Service{store: store, events: events}
}

func (s *Service) Create(ctx context.Context, ownerID, eventID int64, offsetMinutes int) (*models.Reminder, error) {
	if err := models.ValidateOffset(offsetMinutes); err != nil {
		return nil, err
	}
	if _, err := s.events.GetEvent(ctx, ownerID, eventID); err != nil {
		return nil, err
	}
	if err := s.checkDuplicate(ctx, eventID, offsetMinutes, 0); err != nil {
		return nil, err
	}

	r := &models.Reminder{EventID: eventID, OffsetMinutes: offsetMinutes}
	if err := s.store.Create(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) UpdateOffset(ctx context.Context, ownerID, reminderID int64, offsetMinutes int) (*models.Reminder, error) {
	if err := models.ValidateOffset(offsetMinutes); err != nil {
		return nil, err
	}
	r, err := s.owned(ctx, ownerID, reminderID)
	if err != nil {
		return nil, err
	}
	if err := s.checkDuplicate(ctx, r.EventID, offsetMinutes, r.ReminderID); err != nil {
		return nil, err
	}
	if err := s.store.UpdateOffset(ctx, r.ReminderID, offsetMinutes); err != nil {
		return nil, err
	}
	r.OffsetMinutes = offsetMinutes
	return r, nil
}

func (s *Service) Delete(ctx context.Context, ownerID, reminderID int64) error {
	r, err := s.owned(ctx, ownerID, reminderID)
	if err != nil {
		return err
	}
	return s.store.Delete(ctx, r.ReminderID)
}

func (s *Service) ListForEvent(ctx context.Context, ownerID, eventID int64) ([]*models.Reminder, error) {
	if _, err := s.events.GetEvent(ctx, ownerID, eventID); err != nil {
		return nil, err
	}
	return s.store.ListByEvent(ctx, eventID)
}

// owned loads a reminder and checks that its event belongs to ownerID.
func (s *Service) owned(ctx context.Context, ownerID, reminderID int64) (*models.Reminder, error) {
	r, err := s.store.GetByID(ctx, reminderID)
	if err != nil {
		return nil, err
	}
	if _, err := s.events.GetEvent(ctx, ownerID, r.EventID); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) checkDuplicate(ctx context.Context, eventID int64, offsetMinutes int, excludeID int64) error {
	exists, err := s.store.ExistsForOffset(ctx, eventID, offsetMinutes, excludeID)
	if err != nil {
		return fmt.Errorf("failed to check reminder offsets: %w", err)
	}
	if exists {
		return models.NewValidationError("offset_minutes", "a reminder %d minutes before this event already exists", offsetMinutes)
	}
	return nil
}
