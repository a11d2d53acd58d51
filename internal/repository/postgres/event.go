package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/Kerhoff/ResidentHub/internal/models"
	"github.com/Kerhoff/ResidentHub/internal/repository"
)

type eventRepository struct {
	db *sql.DB
}

// NewEventRepository creates a new event configuration repository
func NewEventRepository(db *sql.DB) repository.EventRepository {
	return &eventRepository{db: db}
}

const eventConfigSelect = `SELECT id, announcement_id, event_date, venue, deadline, allow_guests, custom_fields
	FROM event_configs`

func (r *eventRepository) GetConfig(ctx context.Context, announcementID int64) (*models.EventConfig, error) {
	return r.getConfig(ctx, eventConfigSelect+` WHERE announcement_id = $1`, announcementID)
}

// GetConfigByID loads an event configuration by its own id, as referenced from RSVPs
func (r *eventRepository) GetConfigByID(ctx context.Context, id int64) (*models.EventConfig, error) {
	return r.getConfig(ctx, eventConfigSelect+` WHERE id = $1`, id)
}

func (r *eventRepository) getConfig(ctx context.Context, query string, arg int64) (*models.EventConfig, error) {
	cfg := &models.EventConfig{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&cfg.ID, &cfg.AnnouncementID, &cfg.EventDate, &cfg.Venue, &cfg.Deadline, &cfg.AllowGuests, &cfg.CustomFields,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get event config: %w", err)
	}

	items, err := listMenuItems(ctx, r.db, cfg.ID)
	if err != nil {
		return nil, err
	}
	cfg.MenuItems = items
	return cfg, nil
}

func listMenuItems(ctx context.Context, q querier, eventConfigID int64) ([]models.MenuItem, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, event_config_id, name, price_per_plate FROM menu_items WHERE event_config_id = $1 ORDER BY id`,
		eventConfigID)
	if err != nil {
		return nil, fmt.Errorf("failed to query menu items: %w", err)
	}
	defer rows.Close()

	items := []models.MenuItem{}
	for rows.Next() {
		var m models.MenuItem
		if err := rows.Scan(&m.ID, &m.EventConfigID, &m.Name, &m.PricePerPlate); err != nil {
			return nil, fmt.Errorf("failed to scan menu item: %w", err)
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

// SaveConfig upserts the event configuration and reconciles its menu:
// items with an id are updated, items without one are inserted and items
// no longer listed are removed (refused while orders reference them).
func (r *eventRepository) SaveConfig(ctx context.Context, cfg *models.EventConfig) (*models.EventConfig, error) {
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		query := `INSERT INTO event_configs (announcement_id, event_date, venue, deadline, allow_guests, custom_fields)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (announcement_id) DO UPDATE SET
				event_date = EXCLUDED.event_date, venue = EXCLUDED.venue, deadline = EXCLUDED.deadline,
				allow_guests = EXCLUDED.allow_guests, custom_fields = EXCLUDED.custom_fields
			RETURNING id`
		if err := tx.QueryRowContext(ctx, query,
			cfg.AnnouncementID, cfg.EventDate, cfg.Venue, cfg.Deadline, cfg.AllowGuests, cfg.CustomFields,
		).Scan(&cfg.ID); err != nil {
			return fmt.Errorf("failed to save event config: %w", err)
		}

		keep := make([]int64, 0, len(cfg.MenuItems))
		for i := range cfg.MenuItems {
			item := &cfg.MenuItems[i]
			item.EventConfigID = cfg.ID
			if item.ID != 0 {
				result, err := tx.ExecContext(ctx,
					`UPDATE menu_items SET name = $3, price_per_plate = $4 WHERE id = $1 AND event_config_id = $2`,
					item.ID, cfg.ID, item.Name, item.PricePerPlate)
				if err != nil {
					return fmt.Errorf("failed to update menu item: %w", err)
				}
				if err := expectOne(result); err != nil {
					return fmt.Errorf("menu item %d: %w", item.ID, err)
				}
			} else if err := tx.QueryRowContext(ctx,
				`INSERT INTO menu_items (event_config_id, name, price_per_plate) VALUES ($1, $2, $3) RETURNING id`,
				cfg.ID, item.Name, item.PricePerPlate).Scan(&item.ID); err != nil {
				return fmt.Errorf("failed to insert menu item: %w", err)
			}
			keep = append(keep, item.ID)
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM menu_items WHERE event_config_id = $1 AND NOT (id = ANY($2))`,
			cfg.ID, pq.Array(keep)); err != nil {
			return fmt.Errorf("failed to prune menu items: %w", mapError(err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
