package repository

import (
	"context"
	"errors"

	"github.com/hray3182/lifeline-calendar/internal/database"
	"github.com/hray3182/lifeline-calendar/internal/models"
)

type UserRepository struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetOrCreate(ctx context.Context, userID int64, userName string) (*models.User, error) {
	user := &models.User{}
	err := r.db.Pool.QueryRow(ctx,
		`INSERT INTO users (user_id, user_name) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET user_name = EXCLUDED.user_name
		 RETURNING user_id, user_name, notification_address`,
		userID, userName,
	).Scan(&user.UserID, &user.UserName, &user.NotificationAddress)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, userID int64) (*models.User, error) {
	user := &models.User{}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT user_id, user_name, notification_address FROM users WHERE user_id = $1`,
		userID,
	).Scan(&user.UserID, &user.UserName, &user.NotificationAddress)
	if err != nil {
		return nil, notFound(err)
	}
	return user, nil
}

func (r *UserRepository) SetNotificationAddress(ctx context.Context, userID int64, address string) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE users SET notification_address = $1 WHERE user_id = $2`,
		address, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ResolveNotificationAddress returns the owner's address; ok is false when
// the owner is unknown or has not configured one.
func (r *UserRepository) ResolveNotificationAddress(ctx context.Context, ownerID int64) (string, bool, error) {
	user, err := r.GetByID(ctx, ownerID)
	if errors.Is(err, models.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return user.NotificationAddress, user.NotificationAddress != "", nil
}
