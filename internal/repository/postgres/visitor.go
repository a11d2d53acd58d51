package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Kerhoff/ResidentHub/internal/models"
	"github.com/Kerhoff/ResidentHub/internal/repository"
)

type visitorRepository struct {
	db *sql.DB
}

// NewVisitorRepository creates a new visitor repository
func NewVisitorRepository(db *sql.DB) repository.VisitorRepository {
	return &visitorRepository{db: db}
}

const visitorSelect = `SELECT v.id, v.name, v.phone, v.purpose, v.flat_id, v.status, v.created_by_id, v.decided_by_id, v.decided_at, v.created_at,
		f.block, f.flat_number
	FROM visitors v JOIN flats f ON f.id = v.flat_id`

func scanVisitor(row interface{ Scan(...any) error }) (*models.Visitor, error) {
	v := &models.Visitor{Flat: &models.Flat{}}
	err := row.Scan(&v.ID, &v.Name, &v.Phone, &v.Purpose, &v.FlatID, &v.Status, &v.CreatedByID,
		&v.DecidedByID, &v.DecidedAt, &v.CreatedAt, &v.Flat.Block, &v.Flat.FlatNumber)
	v.Flat.ID = v.FlatID
	return v, err
}

func (r *visitorRepository) Create(ctx context.Context, v *models.Visitor) (*models.Visitor, error) {
	query := `INSERT INTO visitors (name, phone, purpose, flat_id, status, created_by_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`
	if v.Status == "" {
		v.Status = models.VisitorStatusPending
	}
	err := r.db.QueryRowContext(ctx, query,
		v.Name, v.Phone, v.Purpose, v.FlatID, v.Status, v.CreatedByID, time.Now(),
	).Scan(&v.ID, &v.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create visitor: %w", mapError(err))
	}
	return v, nil
}

func (r *visitorRepository) GetByID(ctx context.Context, id int64) (*models.Visitor, error) {
	v, err := scanVisitor(r.db.QueryRowContext(ctx, visitorSelect+` WHERE v.id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get visitor: %w", err)
	}
	return v, nil
}

func (r *visitorRepository) List(ctx context.Context, filters repository.VisitorFilters) ([]*models.Visitor, error) {
	query := visitorSelect + ` WHERE TRUE`
	var args []any
	argIdx := 1

	if filters.FlatID != nil {
		query += fmt.Sprintf(" AND v.flat_id = $%d", argIdx)
		args = append(args, *filters.FlatID)
		argIdx++
	}
	if filters.Status != nil {
		query += fmt.Sprintf(" AND v.status = $%d", argIdx)
		args = append(args, *filters.Status)
		argIdx++
	}
	query += " ORDER BY v.created_at DESC"
	if filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, filters.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query visitors: %w", err)
	}
	defer rows.Close()

	var list []*models.Visitor
	for rows.Next() {
		v, err := scanVisitor(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan visitor: %w", err)
		}
		list = append(list, v)
	}
	return list, rows.Err()
}

// Decide moves a PENDING visitor to its final status. It returns
// repository.ErrStale when the visitor was already decided.
func (r *visitorRepository) Decide(ctx context.Context, id int64, status models.VisitorStatus, deciderID int64, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE visitors SET status = $2, decided_by_id = $3, decided_at = $4 WHERE id = $1 AND status = $5`,
		id, status, deciderID, at, models.VisitorStatusPending)
	if err != nil {
		return fmt.Errorf("failed to decide visitor: %w", err)
	}
	if err := expectOne(result); err != nil {
		return repository.ErrStale
	}
	return nil
}
