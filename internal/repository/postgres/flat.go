package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Kerhoff/ResidentHub/internal/models"
	"github.com/Kerhoff/ResidentHub/internal/repository"
)

type flatRepository struct {
	db *sql.DB
}

// NewFlatRepository creates a new flat repository
func NewFlatRepository(db *sql.DB) repository.FlatRepository {
	return &flatRepository{db: db}
}

// Ensure returns the flat for (block, number), creating it on first use
func (r *flatRepository) Ensure(ctx context.Context, block int, flatNumber string) (*models.Flat, error) {
	query := `
		INSERT INTO flats (block, flat_number) VALUES ($1, $2)
		ON CONFLICT (block, flat_number) DO UPDATE SET flat_number = EXCLUDED.flat_number
		RETURNING id, block, flat_number`

	flat := &models.Flat{}
	if err := r.db.QueryRowContext(ctx, query, block, flatNumber).Scan(&flat.ID, &flat.Block, &flat.FlatNumber); err != nil {
		return nil, fmt.Errorf("failed to ensure flat: %w", err)
	}
	return flat, nil
}

func (r *flatRepository) GetByID(ctx context.Context, id int64) (*models.Flat, error) {
	flat := &models.Flat{}
	err := r.db.QueryRowContext(ctx, `SELECT id, block, flat_number FROM flats WHERE id = $1`, id).
		Scan(&flat.ID, &flat.Block, &flat.FlatNumber)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get flat: %w", err)
	}
	return flat, nil
}

func (r *flatRepository) Find(ctx context.Context, block int, flatNumber string) (*models.Flat, error) {
	flat := &models.Flat{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, block, flat_number FROM flats WHERE block = $1 AND flat_number = $2`, block, flatNumber).
		Scan(&flat.ID, &flat.Block, &flat.FlatNumber)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find flat: %w", err)
	}
	return flat, nil
}
