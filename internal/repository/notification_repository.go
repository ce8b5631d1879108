package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/segyhp/investment-engine/internal/domain"
	customError "github.com/segyhp/investment-engine/pkg/errors"
)

type notificationRepository struct {
	db *sqlx.DB
}

func NewNotificationRepository(db *sqlx.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	query := r.db.Rebind(`
		INSERT INTO notifications (id, user_id, investment_id, type, title, message, is_read, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)

	_, err := r.db.ExecContext(ctx, query,
		n.ID,
		n.UserID,
		n.InvestmentID,
		n.Type,
		n.Title,
		n.Message,
		n.Read,
		dbTime(n.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("notification_repo.Create: %w", err)
	}

	return nil
}

func (r *notificationRepository) ListByUserID(ctx context.Context, userID string, unreadOnly bool) ([]*domain.Notification, error) {
	query := `
		SELECT id, user_id, investment_id, type, title, message, is_read, created_at
		FROM notifications
		WHERE user_id = ?`
	args := []interface{}{userID}
	if unreadOnly {
		query += ` AND is_read = ?`
		args = append(args, false)
	}
	query += ` ORDER BY created_at DESC`

	var notifications []*domain.Notification
	if err := r.db.SelectContext(ctx, &notifications, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("notification_repo.ListByUserID: %w", err)
	}

	return notifications, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, id uuid.UUID) error {
	query := r.db.Rebind(`UPDATE notifications SET is_read = ? WHERE id = ?`)

	res, err := r.db.ExecContext(ctx, query, true, id)
	if err != nil {
		return fmt.Errorf("notification_repo.MarkRead: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("notification_repo.MarkRead: %w", customError.ErrNotificationNotFound)
	}

	return nil
}
