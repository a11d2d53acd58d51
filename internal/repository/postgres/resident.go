package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Kerhoff/ResidentHub/internal/models"
	"github.com/Kerhoff/ResidentHub/internal/repository"
)

type residentRepository struct {
	db *sql.DB
}

// NewResidentRepository creates a new resident repository
func NewResidentRepository(db *sql.DB) repository.ResidentRepository {
	return &residentRepository{db: db}
}

const residentColumns = `r.id, r.email, r.name, r.phone, r.role, r.registered, r.flat_id, r.created_at, r.updated_at,
	f.id, f.block, f.flat_number`

const residentFrom = ` FROM residents r LEFT JOIN flats f ON f.id = r.flat_id`

func scanResident(row interface{ Scan(...any) error }) (*models.Resident, error) {
	res := &models.Resident{}
	var flatID sql.NullInt64
	var block sql.NullInt64
	var number sql.NullString
	if err := row.Scan(
		&res.ID, &res.Email, &res.Name, &res.Phone, &res.Role, &res.Registered, &res.FlatID,
		&res.CreatedAt, &res.UpdatedAt, &flatID, &block, &number,
	); err != nil {
		return nil, err
	}
	if flatID.Valid {
		res.Flat = &models.Flat{ID: flatID.Int64, Block: int(block.Int64), FlatNumber: number.String}
	}
	return res, nil
}

func (r *residentRepository) Create(ctx context.Context, resident *models.Resident) (*models.Resident, error) {
	query := `
		INSERT INTO residents (email, name, phone, role, registered, flat_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	now := time.Now()
	resident.Email = models.NormalizeEmail(resident.Email)
	if resident.Role == "" {
		resident.Role = models.RoleResident
	}

	err := r.db.QueryRowContext(ctx, query,
		resident.Email,
		resident.Name,
		resident.Phone,
		resident.Role,
		resident.Registered,
		resident.FlatID,
		now,
		now,
	).Scan(&resident.ID, &resident.CreatedAt, &resident.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create resident: %w", mapError(err))
	}

	return resident, nil
}

func (r *residentRepository) GetByID(ctx context.Context, id int64) (*models.Resident, error) {
	res, err := scanResident(r.db.QueryRowContext(ctx, `SELECT `+residentColumns+residentFrom+` WHERE r.id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get resident by ID: %w", err)
	}
	return res, nil
}

func (r *residentRepository) GetByEmail(ctx context.Context, email string) (*models.Resident, error) {
	res, err := scanResident(r.db.QueryRowContext(ctx,
		`SELECT `+residentColumns+residentFrom+` WHERE r.email = $1`, models.NormalizeEmail(email)))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get resident by email: %w", err)
	}
	return res, nil
}

func (r *residentRepository) List(ctx context.Context, filters repository.ResidentFilters) ([]*models.Resident, error) {
	query := `SELECT ` + residentColumns + residentFrom + ` WHERE TRUE`
	var args []any
	argIdx := 1

	if filters.Role != nil {
		query += fmt.Sprintf(" AND r.role = $%d", argIdx)
		args = append(args, *filters.Role)
		argIdx++
	}
	if filters.Block != nil {
		query += fmt.Sprintf(" AND f.block = $%d", argIdx)
		args = append(args, *filters.Block)
	}
	query += " ORDER BY f.block NULLS LAST, f.flat_number, r.name"

	return r.query(ctx, query, args...)
}

func (r *residentRepository) ListByFlat(ctx context.Context, flatID int64) ([]*models.Resident, error) {
	return r.query(ctx, `SELECT `+residentColumns+residentFrom+` WHERE r.flat_id = $1 AND r.registered ORDER BY r.id`, flatID)
}

func (r *residentRepository) query(ctx context.Context, query string, args ...any) ([]*models.Resident, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query residents: %w", err)
	}
	defer rows.Close()

	var residents []*models.Resident
	for rows.Next() {
		res, err := scanResident(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan resident: %w", err)
		}
		residents = append(residents, res)
	}
	return residents, rows.Err()
}

func (r *residentRepository) ListRegisteredIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM residents WHERE registered ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query resident ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan resident id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *residentRepository) UpdateProfile(ctx context.Context, resident *models.Resident) (*models.Resident, error) {
	query := `
		UPDATE residents
		SET name = $2, phone = $3, flat_id = $4, registered = $5, updated_at = $6
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query,
		resident.ID,
		resident.Name,
		resident.Phone,
		resident.FlatID,
		resident.Registered,
		time.Now(),
	).Scan(&resident.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to update resident: %w", err)
	}

	return resident, nil
}

func (r *residentRepository) UpdateRole(ctx context.Context, id int64, role models.Role) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE residents SET role = $2, updated_at = NOW() WHERE id = $1`, id, role)
	if err != nil {
		return fmt.Errorf("failed to update resident role: %w", mapError(err))
	}
	return expectOne(result)
}
