package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/Kerhoff/ResidentHub/internal/models"
	"github.com/Kerhoff/ResidentHub/internal/repository"
)

type sportsRepository struct{ s *Store }

func copySports(cfg *models.SportsConfig) *models.SportsConfig {
	c := *cfg
	c.AgeCategories = append(models.StringList{}, cfg.AgeCategories...)
	c.SportItems = append([]models.SportItem{}, cfg.SportItems...)
	return &c
}

func (s *Store) registrationCopy(reg *models.SportsRegistration) *models.SportsRegistration {
	c := *reg
	c.Participants = make([]models.Participant, 0, len(reg.Participants))
	for _, p := range reg.Participants {
		p.SportItemIDs = append([]int64{}, p.SportItemIDs...)
		c.Participants = append(c.Participants, p)
	}
	c.Resident = nil
	return &c
}

func (r *sportsRepository) GetConfig(_ context.Context, announcementID int64) (*models.SportsConfig, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if cfg := r.s.sportsFor(announcementID); cfg != nil {
		return copySports(cfg), nil
	}
	return nil, nil
}

func (s *Store) sportsFor(announcementID int64) *models.SportsConfig {
	for _, cfg := range s.sports {
		if cfg.AnnouncementID == announcementID {
			return cfg
		}
	}
	return nil
}

func (s *Store) sportEntered(id int64) bool {
	for _, reg := range s.registrations {
		for _, p := range reg.Participants {
			for _, sid := range p.SportItemIDs {
				if sid == id {
					return true
				}
			}
		}
	}
	return false
}

func (r *sportsRepository) SaveConfig(_ context.Context, cfg *models.SportsConfig) (*models.SportsConfig, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.announcements[cfg.AnnouncementID]; !ok {
		return nil, repository.ErrNotFound
	}
	existing := r.s.sportsFor(cfg.AnnouncementID)
	saved := copySports(cfg)
	if existing != nil {
		saved.ID = existing.ID
	} else {
		saved.ID = r.s.next("sports_configs")
	}

	keep := make(map[int64]bool, len(saved.SportItems))
	for i := range saved.SportItems {
		item := &saved.SportItems[i]
		item.SportsConfigID = saved.ID
		if item.ID != 0 {
			if existing == nil || existing.SportItem(item.ID) == nil {
				return nil, fmt.Errorf("sport item %d: %w", item.ID, repository.ErrNotFound)
			}
		} else {
			item.ID = r.s.next("sport_items")
		}
		keep[item.ID] = true
	}
	if existing != nil {
		for _, it := range existing.SportItems {
			if !keep[it.ID] && r.s.sportEntered(it.ID) {
				return nil, fmt.Errorf("sport item %d: %w", it.ID, repository.ErrInUse)
			}
		}
	}

	r.s.sports[saved.ID] = saved
	return copySports(saved), nil
}

func (r *sportsRepository) GetRegistration(_ context.Context, sportsConfigID, residentID int64) (*models.SportsRegistration, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, reg := range r.s.registrations {
		if reg.SportsConfigID == sportsConfigID && reg.ResidentID == residentID {
			return r.s.registrationCopy(reg), nil
		}
	}
	return nil, nil
}

func (r *sportsRepository) ListRegistrations(_ context.Context, sportsConfigID int64) ([]*models.SportsRegistration, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var list []*models.SportsRegistration
	for _, id := range sortedIDs(r.s.registrations) {
		reg := r.s.registrations[id]
		if reg.SportsConfigID != sportsConfigID {
			continue
		}
		c := r.s.registrationCopy(reg)
		c.Resident = r.s.residentCopy(reg.ResidentID)
		list = append(list, c)
	}
	sort.SliceStable(list, func(i, j int) bool {
		return byFlat(residentFlat(list[i].Resident), residentFlat(list[j].Resident), list[i].ID, list[j].ID)
	})
	return list, nil
}

// UpsertRegistration keeps the id and payment state and replaces the participants
func (r *sportsRepository) UpsertRegistration(_ context.Context, reg *models.SportsRegistration) (*models.SportsRegistration, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.sports[reg.SportsConfigID]; !ok {
		return nil, repository.ErrNotFound
	}
	now := r.s.now()
	var stored *models.SportsRegistration
	for _, existing := range r.s.registrations {
		if existing.SportsConfigID == reg.SportsConfigID && existing.ResidentID == reg.ResidentID {
			stored = existing
			break
		}
	}
	if stored == nil {
		stored = &models.SportsRegistration{
			ID:             r.s.next("sports_registrations"),
			SportsConfigID: reg.SportsConfigID,
			ResidentID:     reg.ResidentID,
			CreatedAt:      now,
		}
		r.s.registrations[stored.ID] = stored
	}
	stored.Participants = make([]models.Participant, 0, len(reg.Participants))
	for _, p := range reg.Participants {
		p.ID = r.s.next("participants")
		p.RegistrationID = stored.ID
		p.SportItemIDs = append([]int64{}, p.SportItemIDs...)
		sort.Slice(p.SportItemIDs, func(i, j int) bool { return p.SportItemIDs[i] < p.SportItemIDs[j] })
		stored.Participants = append(stored.Participants, p)
	}
	stored.UpdatedAt = now
	return r.s.registrationCopy(stored), nil
}

func (r *sportsRepository) DeleteRegistration(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.registrations[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.registrations, id)
	return nil
}

func (r *sportsRepository) SetPaid(_ context.Context, id int64, paid bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	reg, ok := r.s.registrations[id]
	if !ok {
		return repository.ErrNotFound
	}
	reg.Paid = paid
	reg.UpdatedAt = r.s.now()
	return nil
}
