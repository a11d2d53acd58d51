package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Kerhoff/ResidentHub/internal/models"
	"github.com/Kerhoff/ResidentHub/internal/repository"
)

type announcementRepository struct {
	db *sql.DB
}

// NewAnnouncementRepository creates a new announcement repository
func NewAnnouncementRepository(db *sql.DB) repository.AnnouncementRepository {
	return &announcementRepository{db: db}
}

func (r *announcementRepository) Create(ctx context.Context, a *models.Announcement) (*models.Announcement, error) {
	query := `INSERT INTO announcements (title, body, published, created_by_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`
	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		a.Title, a.Body, a.Published, a.CreatedByID, now, now,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create announcement: %w", err)
	}
	return a, nil
}

func (r *announcementRepository) GetByID(ctx context.Context, id int64) (*models.Announcement, error) {
	query := `SELECT id, title, body, published, created_by_id, created_at, updated_at
		FROM announcements WHERE id = $1`
	a := &models.Announcement{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&a.ID, &a.Title, &a.Body, &a.Published, &a.CreatedByID, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get announcement: %w", err)
	}
	return a, nil
}

func (r *announcementRepository) List(ctx context.Context, publishedOnly bool) ([]*models.Announcement, error) {
	query := `SELECT id, title, body, published, created_by_id, created_at, updated_at FROM announcements`
	if publishedOnly {
		query += ` WHERE published`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query announcements: %w", err)
	}
	defer rows.Close()

	var list []*models.Announcement
	for rows.Next() {
		a := &models.Announcement{}
		if err := rows.Scan(&a.ID, &a.Title, &a.Body, &a.Published, &a.CreatedByID, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan announcement: %w", err)
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

func (r *announcementRepository) Update(ctx context.Context, a *models.Announcement) (*models.Announcement, error) {
	query := `UPDATE announcements SET title=$2, body=$3, published=$4, updated_at=$5
		WHERE id=$1 RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query, a.ID, a.Title, a.Body, a.Published, time.Now()).Scan(&a.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update announcement: %w", err)
	}
	return a, nil
}

func (r *announcementRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM announcements WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete announcement: %w", mapError(err))
	}
	return expectOne(result)
}
