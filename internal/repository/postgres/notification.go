package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Kerhoff/ResidentHub/internal/models"
	"github.com/Kerhoff/ResidentHub/internal/repository"
)

type notificationRepository struct {
	db *sql.DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *sql.DB) repository.NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *models.Notification) (*models.Notification, error) {
	if err := insertNotification(ctx, r.db, n); err != nil {
		return nil, err
	}
	return n, nil
}

// CreateMany inserts a batch of notifications in one transaction
func (r *notificationRepository) CreateMany(ctx context.Context, ns []*models.Notification) error {
	if len(ns) == 0 {
		return nil
	}
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, n := range ns {
			if err := insertNotification(ctx, tx, n); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *notificationRepository) ListByResident(ctx context.Context, residentID int64, unreadOnly bool) ([]*models.Notification, error) {
	query := `SELECT id, resident_id, kind, message, announcement_id, visitor_id, issue_id, task_id, read, created_at
		FROM notifications WHERE resident_id = $1`
	if unreadOnly {
		query += ` AND NOT read`
	}
	query += ` ORDER BY created_at DESC LIMIT 200`

	rows, err := r.db.QueryContext(ctx, query, residentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	var list []*models.Notification
	for rows.Next() {
		n := &models.Notification{}
		if err := rows.Scan(&n.ID, &n.ResidentID, &n.Kind, &n.Message, &n.AnnouncementID, &n.VisitorID,
			&n.IssueID, &n.TaskID, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		list = append(list, n)
	}
	return list, rows.Err()
}

func (r *notificationRepository) SetRead(ctx context.Context, id, residentID int64, read bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET read = $3 WHERE id = $1 AND resident_id = $2`, id, residentID, read)
	if err != nil {
		return fmt.Errorf("failed to update notification: %w", err)
	}
	return expectOne(result)
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, residentID int64) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET read = TRUE WHERE resident_id = $1 AND NOT read`, residentID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}
