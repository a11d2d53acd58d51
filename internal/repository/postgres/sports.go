package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/Kerhoff/ResidentHub/internal/models"
	"github.com/Kerhoff/ResidentHub/internal/repository"
)

type sportsRepository struct {
	db *sql.DB
}

// NewSportsRepository creates a new sports repository
func NewSportsRepository(db *sql.DB) repository.SportsRepository {
	return &sportsRepository{db: db}
}

func (r *sportsRepository) GetConfig(ctx context.Context, announcementID int64) (*models.SportsConfig, error) {
	cfg := &models.SportsConfig{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, announcement_id, deadline, age_categories FROM sports_configs WHERE announcement_id = $1`,
		announcementID).Scan(&cfg.ID, &cfg.AnnouncementID, &cfg.Deadline, &cfg.AgeCategories)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get sports config: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, sports_config_id, name, fee FROM sport_items WHERE sports_config_id = $1 ORDER BY id`, cfg.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sport items: %w", err)
	}
	defer rows.Close()

	cfg.SportItems = []models.SportItem{}
	for rows.Next() {
		var it models.SportItem
		if err := rows.Scan(&it.ID, &it.SportsConfigID, &it.Name, &it.Fee); err != nil {
			return nil, fmt.Errorf("failed to scan sport item: %w", err)
		}
		cfg.SportItems = append(cfg.SportItems, it)
	}
	return cfg, rows.Err()
}

// SaveConfig upserts the sports configuration and reconciles its sport items
func (r *sportsRepository) SaveConfig(ctx context.Context, cfg *models.SportsConfig) (*models.SportsConfig, error) {
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx,
			`INSERT INTO sports_configs (announcement_id, deadline, age_categories) VALUES ($1, $2, $3)
			ON CONFLICT (announcement_id) DO UPDATE SET deadline = EXCLUDED.deadline, age_categories = EXCLUDED.age_categories
			RETURNING id`,
			cfg.AnnouncementID, cfg.Deadline, cfg.AgeCategories).Scan(&cfg.ID); err != nil {
			return fmt.Errorf("failed to save sports config: %w", err)
		}

		keep := make([]int64, 0, len(cfg.SportItems))
		for i := range cfg.SportItems {
			item := &cfg.SportItems[i]
			item.SportsConfigID = cfg.ID
			if item.ID != 0 {
				result, err := tx.ExecContext(ctx,
					`UPDATE sport_items SET name = $3, fee = $4 WHERE id = $1 AND sports_config_id = $2`,
					item.ID, cfg.ID, item.Name, item.Fee)
				if err != nil {
					return fmt.Errorf("failed to update sport item: %w", err)
				}
				if err := expectOne(result); err != nil {
					return fmt.Errorf("sport item %d: %w", item.ID, err)
				}
			} else if err := tx.QueryRowContext(ctx,
				`INSERT INTO sport_items (sports_config_id, name, fee) VALUES ($1, $2, $3) RETURNING id`,
				cfg.ID, item.Name, item.Fee).Scan(&item.ID); err != nil {
				return fmt.Errorf("failed to insert sport item: %w", err)
			}
			keep = append(keep, item.ID)
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM sport_items WHERE sports_config_id = $1 AND NOT (id = ANY($2))`,
			cfg.ID, pq.Array(keep)); err != nil {
			return fmt.Errorf("failed to prune sport items: %w", mapError(err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func (r *sportsRepository) GetRegistration(ctx context.Context, sportsConfigID, residentID int64) (*models.SportsRegistration, error) {
	reg := &models.SportsRegistration{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, sports_config_id, resident_id, paid, created_at, updated_at
		FROM sports_registrations WHERE sports_config_id = $1 AND resident_id = $2`,
		sportsConfigID, residentID).Scan(&reg.ID, &reg.SportsConfigID, &reg.ResidentID, &reg.Paid, &reg.CreatedAt, &reg.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get sports registration: %w", err)
	}

	participants, err := loadParticipants(ctx, r.db, []int64{reg.ID})
	if err != nil {
		return nil, err
	}
	reg.Participants = participants[reg.ID]
	return reg, nil
}

func loadParticipants(ctx context.Context, q querier, registrationIDs []int64) (map[int64][]models.Participant, error) {
	query := `SELECT p.id, p.registration_id, p.name, p.age_category,
			COALESCE(array_agg(ps.sport_item_id ORDER BY ps.sport_item_id) FILTER (WHERE ps.sport_item_id IS NOT NULL), '{}')
		FROM participants p
		LEFT JOIN participant_sports ps ON ps.participant_id = p.id
		WHERE p.registration_id = ANY($1)
		GROUP BY p.id
		ORDER BY p.registration_id, p.id`

	rows, err := q.QueryContext(ctx, query, pq.Array(registrationIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query participants: %w", err)
	}
	defer rows.Close()

	out := make(map[int64][]models.Participant, len(registrationIDs))
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.ID, &p.RegistrationID, &p.Name, &p.AgeCategory, pq.Array(&p.SportItemIDs)); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		out[p.RegistrationID] = append(out[p.RegistrationID], p)
	}
	return out, rows.Err()
}

func (r *sportsRepository) ListRegistrations(ctx context.Context, sportsConfigID int64) ([]*models.SportsRegistration, error) {
	query := `SELECT s.id, s.sports_config_id, s.resident_id, s.paid, s.created_at, s.updated_at,
			res.name, res.email, res.phone, f.id, f.block, f.flat_number
		FROM sports_registrations s
		JOIN residents res ON res.id = s.resident_id
		LEFT JOIN flats f ON f.id = res.flat_id
		WHERE s.sports_config_id = $1
		ORDER BY f.block NULLS LAST, f.flat_number, s.id`

	rows, err := r.db.QueryContext(ctx, query, sportsConfigID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sports registrations: %w", err)
	}
	defer rows.Close()

	var list []*models.SportsRegistration
	var ids []int64
	for rows.Next() {
		reg := &models.SportsRegistration{Resident: &models.Resident{}}
		var flatID, block sql.NullInt64
		var number sql.NullString
		if err := rows.Scan(&reg.ID, &reg.SportsConfigID, &reg.ResidentID, &reg.Paid, &reg.CreatedAt, &reg.UpdatedAt,
			&reg.Resident.Name, &reg.Resident.Email, &reg.Resident.Phone, &flatID, &block, &number,
		); err != nil {
			return nil, fmt.Errorf("failed to scan sports registration: %w", err)
		}
		reg.Resident.ID = reg.ResidentID
		if flatID.Valid {
			reg.Resident.FlatID = &flatID.Int64
			reg.Resident.Flat = &models.Flat{ID: flatID.Int64, Block: int(block.Int64), FlatNumber: number.String}
		}
		list = append(list, reg)
		ids = append(ids, reg.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return list, nil
	}

	participants, err := loadParticipants(ctx, r.db, ids)
	if err != nil {
		return nil, err
	}
	for _, reg := range list {
		reg.Participants = participants[reg.ID]
	}
	return list, nil
}

// UpsertRegistration creates or replaces the resident's registration and its participants
func (r *sportsRepository) UpsertRegistration(ctx context.Context, reg *models.SportsRegistration) (*models.SportsRegistration, error) {
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx,
			`INSERT INTO sports_registrations (sports_config_id, resident_id, created_at, updated_at)
			VALUES ($1, $2, NOW(), NOW())
			ON CONFLICT (sports_config_id, resident_id) DO UPDATE SET updated_at = NOW()
			RETURNING id, paid, created_at, updated_at`,
			reg.SportsConfigID, reg.ResidentID).Scan(&reg.ID, &reg.Paid, &reg.CreatedAt, &reg.UpdatedAt); err != nil {
			return fmt.Errorf("failed to upsert sports registration: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM participants WHERE registration_id = $1`, reg.ID); err != nil {
			return fmt.Errorf("failed to clear participants: %w", err)
		}
		for i := range reg.Participants {
			p := &reg.Participants[i]
			p.RegistrationID = reg.ID
			if err := tx.QueryRowContext(ctx,
				`INSERT INTO participants (registration_id, name, age_category) VALUES ($1, $2, $3) RETURNING id`,
				reg.ID, p.Name, p.AgeCategory).Scan(&p.ID); err != nil {
				return fmt.Errorf("failed to insert participant: %w", err)
			}
			for _, sportID := range p.SportItemIDs {
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO participant_sports (participant_id, sport_item_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
					p.ID, sportID); err != nil {
					return fmt.Errorf("failed to insert participant sport: %w", mapError(err))
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reg, nil
}

func (r *sportsRepository) DeleteRegistration(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sports_registrations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete sports registration: %w", err)
	}
	return expectOne(result)
}

func (r *sportsRepository) SetPaid(ctx context.Context, id int64, paid bool) error {
	return setPaid(ctx, r.db, "sports_registrations", id, paid)
}
