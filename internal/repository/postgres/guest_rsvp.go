package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Kerhoff/ResidentHub/internal/models"
	"github.com/Kerhoff/ResidentHub/internal/repository"
)

type guestRsvpRepository struct {
	db *sql.DB
}

// NewGuestRsvpRepository creates a new guest RSVP repository
func NewGuestRsvpRepository(db *sql.DB) repository.GuestRsvpRepository {
	return &guestRsvpRepository{db: db}
}

const guestRsvpColumns = `id, event_config_id, name, email, phone, responses, paid, attended, attended_at, created_at, updated_at`

func scanGuestRsvp(row interface{ Scan(...any) error }) (*models.GuestRsvp, error) {
	g := &models.GuestRsvp{}
	err := row.Scan(&g.ID, &g.EventConfigID, &g.Name, &g.Email, &g.Phone, &g.Responses,
		&g.Paid, &g.Attended, &g.AttendedAt, &g.CreatedAt, &g.UpdatedAt)
	return g, err
}

// Create inserts a guest RSVP; a second one for the same (event, email) yields repository.ErrDuplicate
func (r *guestRsvpRepository) Create(ctx context.Context, g *models.GuestRsvp) (*models.GuestRsvp, error) {
	g.Email = models.NormalizeEmail(g.Email)
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		query := `INSERT INTO guest_rsvps (event_config_id, name, email, phone, responses, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
			RETURNING id, created_at, updated_at`
		if err := tx.QueryRowContext(ctx, query, g.EventConfigID, g.Name, g.Email, g.Phone, g.Responses).
			Scan(&g.ID, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return fmt.Errorf("failed to create guest rsvp: %w", mapError(err))
		}
		return insertOrderItems(ctx, tx, "guest_rsvp_items", "guest_rsvp_id", g.ID, g.Items)
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (r *guestRsvpRepository) GetByID(ctx context.Context, id int64) (*models.GuestRsvp, error) {
	g, err := scanGuestRsvp(r.db.QueryRowContext(ctx, `SELECT `+guestRsvpColumns+` FROM guest_rsvps WHERE id = $1`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get guest rsvp: %w", err)
	}
	items, err := loadOrderItems(ctx, r.db, "guest_rsvp_items", "guest_rsvp_id", []int64{g.ID})
	if err != nil {
		return nil, err
	}
	g.Items = items[g.ID]
	return g, nil
}

func (r *guestRsvpRepository) ListByEvent(ctx context.Context, eventConfigID int64) ([]*models.GuestRsvp, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+guestRsvpColumns+` FROM guest_rsvps WHERE event_config_id = $1 ORDER BY id`, eventConfigID)
	if err != nil {
		return nil, fmt.Errorf("failed to query guest rsvps: %w", err)
	}
	defer rows.Close()

	var list []*models.GuestRsvp
	var ids []int64
	for rows.Next() {
		g, err := scanGuestRsvp(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan guest rsvp: %w", err)
		}
		list = append(list, g)
		ids = append(ids, g.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return list, nil
	}

	items, err := loadOrderItems(ctx, r.db, "guest_rsvp_items", "guest_rsvp_id", ids)
	if err != nil {
		return nil, err
	}
	for _, g := range list {
		g.Items = items[g.ID]
	}
	return list, nil
}

func (r *guestRsvpRepository) SetPaid(ctx context.Context, id int64, paid bool) error {
	return setPaid(ctx, r.db, "guest_rsvps", id, paid)
}

func (r *guestRsvpRepository) MarkAttended(ctx context.Context, id int64, at time.Time) (time.Time, bool, error) {
	return markAttended(ctx, r.db, "guest_rsvps", id, at)
}
