package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/Kerhoff/ResidentHub/internal/models"
	"github.com/Kerhoff/ResidentHub/internal/repository"
)

type rsvpRepository struct {
	db *sql.DB
}

// NewRsvpRepository creates a new resident RSVP repository
func NewRsvpRepository(db *sql.DB) repository.RsvpRepository {
	return &rsvpRepository{db: db}
}

const rsvpColumns = `id, event_config_id, resident_id, responses, paid, attended, attended_at, created_at, updated_at`

func scanRsvp(row interface{ Scan(...any) error }) (*models.Rsvp, error) {
	r := &models.Rsvp{}
	err := row.Scan(&r.ID, &r.EventConfigID, &r.ResidentID, &r.Responses, &r.Paid,
		&r.Attended, &r.AttendedAt, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

func (r *rsvpRepository) GetByID(ctx context.Context, id int64) (*models.Rsvp, error) {
	rsvp, err := scanRsvp(r.db.QueryRowContext(ctx, `SELECT `+rsvpColumns+` FROM rsvps WHERE id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get rsvp: %w", err)
	}
	return r.withItems(ctx, rsvp)
}

func (r *rsvpRepository) GetByResident(ctx context.Context, eventConfigID, residentID int64) (*models.Rsvp, error) {
	rsvp, err := scanRsvp(r.db.QueryRowContext(ctx,
		`SELECT `+rsvpColumns+` FROM rsvps WHERE event_config_id = $1 AND resident_id = $2`, eventConfigID, residentID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get rsvp: %w", err)
	}
	return r.withItems(ctx, rsvp)
}

func (r *rsvpRepository) withItems(ctx context.Context, rsvp *models.Rsvp) (*models.Rsvp, error) {
	byID, err := loadOrderItems(ctx, r.db, "rsvp_items", "rsvp_id", []int64{rsvp.ID})
	if err != nil {
		return nil, err
	}
	rsvp.Items = byID[rsvp.ID]
	if rsvp.Items == nil {
		rsvp.Items = []models.RsvpItem{}
	}
	return rsvp, nil
}

// loadOrderItems returns the lines of several orders keyed by order id
func loadOrderItems(ctx context.Context, q querier, table, fk string, ids []int64) (map[int64][]models.RsvpItem, error) {
	query := fmt.Sprintf(`SELECT i.%[2]s, i.menu_item_id, i.plates, m.name, m.price_per_plate
		FROM %[1]s i JOIN menu_items m ON m.id = i.menu_item_id
		WHERE i.%[2]s = ANY($1) ORDER BY i.%[2]s, m.id`, table, fk)
	rows, err := q.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	out := make(map[int64][]models.RsvpItem, len(ids))
	for rows.Next() {
		var orderID int64
		var it models.RsvpItem
		if err := rows.Scan(&orderID, &it.MenuItemID, &it.Plates, &it.Name, &it.PricePerPlate); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", table, err)
		}
		out[orderID] = append(out[orderID], it)
	}
	return out, rows.Err()
}

// insertOrderItems replaces the lines of an order inside a transaction
func insertOrderItems(ctx context.Context, tx *sql.Tx, table, fk string, orderID int64, items []models.RsvpItem) error {
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, table, fk), orderID); err != nil {
		return fmt.Errorf("failed to clear %s: %w", table, err)
	}
	insert := fmt.Sprintf(`INSERT INTO %s (%s, menu_item_id, plates) VALUES ($1, $2, $3)`, table, fk)
	for _, it := range items {
		if _, err := tx.ExecContext(ctx, insert, orderID, it.MenuItemID, it.Plates); err != nil {
			return fmt.Errorf("failed to insert %s: %w", table, mapError(err))
		}
	}
	return nil
}

func (r *rsvpRepository) ListByEvent(ctx context.Context, eventConfigID int64) ([]*models.Rsvp, error) {
	query := `SELECT r.id, r.event_config_id, r.resident_id, r.responses, r.paid, r.attended, r.attended_at, r.created_at, r.updated_at,
			res.name, res.email, res.phone, f.id, f.block, f.flat_number
		FROM rsvps r
		JOIN residents res ON res.id = r.resident_id
		LEFT JOIN flats f ON f.id = res.flat_id
		WHERE r.event_config_id = $1
		ORDER BY f.block NULLS LAST, f.flat_number, r.id`

	rows, err := r.db.QueryContext(ctx, query, eventConfigID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rsvps: %w", err)
	}
	defer rows.Close()

	var list []*models.Rsvp
	var ids []int64
	for rows.Next() {
		rsvp := &models.Rsvp{Resident: &models.Resident{}}
		var flatID, block sql.NullInt64
		var number sql.NullString
		if err := rows.Scan(&rsvp.ID, &rsvp.EventConfigID, &rsvp.ResidentID, &rsvp.Responses, &rsvp.Paid,
			&rsvp.Attended, &rsvp.AttendedAt, &rsvp.CreatedAt, &rsvp.UpdatedAt,
			&rsvp.Resident.Name, &rsvp.Resident.Email, &rsvp.Resident.Phone, &flatID, &block, &number,
		); err != nil {
			return nil, fmt.Errorf("failed to scan rsvp: %w", err)
		}
		rsvp.Resident.ID = rsvp.ResidentID
		if flatID.Valid {
			rsvp.Resident.FlatID = &flatID.Int64
			rsvp.Resident.Flat = &models.Flat{ID: flatID.Int64, Block: int(block.Int64), FlatNumber: number.String}
		}
		list = append(list, rsvp)
		ids = append(ids, rsvp.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return list, nil
	}

	items, err := loadOrderItems(ctx, r.db, "rsvp_items", "rsvp_id", ids)
	if err != nil {
		return nil, err
	}
	for _, rsvp := range list {
		rsvp.Items = items[rsvp.ID]
	}
	return list, nil
}

// Upsert creates or replaces the resident's RSVP for an event. The unique
// (event_config_id, resident_id) constraint resolves concurrent submissions.
func (r *rsvpRepository) Upsert(ctx context.Context, rsvp *models.Rsvp) (*models.Rsvp, error) {
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		query := `INSERT INTO rsvps (event_config_id, resident_id, responses, created_at, updated_at)
			VALUES ($1, $2, $3, NOW(), NOW())
			ON CONFLICT (event_config_id, resident_id) DO UPDATE SET responses = EXCLUDED.responses, updated_at = NOW()
			RETURNING id, paid, attended, attended_at, created_at, updated_at`
		if err := tx.QueryRowContext(ctx, query, rsvp.EventConfigID, rsvp.ResidentID, rsvp.Responses).Scan(
			&rsvp.ID, &rsvp.Paid, &rsvp.Attended, &rsvp.AttendedAt, &rsvp.CreatedAt, &rsvp.UpdatedAt,
		); err != nil {
			return fmt.Errorf("failed to upsert rsvp: %w", err)
		}
		return insertOrderItems(ctx, tx, "rsvp_items", "rsvp_id", rsvp.ID, rsvp.Items)
	})
	if err != nil {
		return nil, err
	}
	return rsvp, nil
}

func (r *rsvpRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM rsvps WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete rsvp: %w", err)
	}
	return expectOne(result)
}

func (r *rsvpRepository) SetPaid(ctx context.Context, id int64, paid bool) error {
	return setPaid(ctx, r.db, "rsvps", id, paid)
}

func (r *rsvpRepository) MarkAttended(ctx context.Context, id int64, at time.Time) (time.Time, bool, error) {
	return markAttended(ctx, r.db, "rsvps", id, at)
}

func setPaid(ctx context.Context, q querier, table string, id int64, paid bool) error {
	result, err := q.ExecContext(ctx, fmt.Sprintf(`UPDATE %s SET paid = $2, updated_at = NOW() WHERE id = $1`, table), id, paid)
	if err != nil {
		return fmt.Errorf("failed to update %s payment: %w", table, err)
	}
	return expectOne(result)
}

// markAttended flips attended exactly once. A second call reports the
// original timestamp with already=true.
func markAttended(ctx context.Context, q querier, table string, id int64, at time.Time) (time.Time, bool, error) {
	var attendedAt time.Time
	err := q.QueryRowContext(ctx,
		fmt.Sprintf(`UPDATE %s SET attended = TRUE, attended_at = $2 WHERE id = $1 AND NOT attended RETURNING attended_at`, table),
		id, at).Scan(&attendedAt)
	if err == nil {
		return attendedAt, false, nil
	}
	if err != sql.ErrNoRows {
		return time.Time{}, false, fmt.Errorf("failed to mark %s attended: %w", table, err)
	}

	var existing sql.NullTime
	err = q.QueryRowContext(ctx, fmt.Sprintf(`SELECT attended_at FROM %s WHERE id = $1`, table), id).Scan(&existing)
	if err != nil {
		if err == sql.ErrNoRows {
			return time.Time{}, false, repository.ErrNotFound
		}
		return time.Time{}, false, fmt.Errorf("failed to read %s attendance: %w", table, err)
	}
	return existing.Time, true, nil
}
