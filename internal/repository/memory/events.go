package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Kerhoff/ResidentHub/internal/models"
	"github.com/Kerhoff/ResidentHub/internal/repository"
)

type eventRepository struct{ s *Store }

func (r *eventRepository) GetConfig(_ context.Context, announcementID int64) (*models.EventConfig, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if cfg := r.s.eventFor(announcementID); cfg != nil {
		return copyEvent(cfg), nil
	}
	return nil, nil
}

func (r *eventRepository) GetConfigByID(_ context.Context, id int64) (*models.EventConfig, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if cfg, ok := r.s.events[id]; ok {
		return copyEvent(cfg), nil
	}
	return nil, nil
}

// SaveConfig upserts the configuration and reconciles the menu the same way
// the Postgres repository does.
func (r *eventRepository) SaveConfig(_ context.Context, cfg *models.EventConfig) (*models.EventConfig, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.announcements[cfg.AnnouncementID]; !ok {
		return nil, repository.ErrNotFound
	}
	existing := r.s.eventFor(cfg.AnnouncementID)
	saved := copyEvent(cfg)
	if existing != nil {
		saved.ID = existing.ID
	} else {
		saved.ID = r.s.next("event_configs")
	}

	keep := make(map[int64]bool, len(saved.MenuItems))
	for i := range saved.MenuItems {
		item := &saved.MenuItems[i]
		item.EventConfigID = saved.ID
		if item.ID != 0 {
			if existing == nil || existing.MenuItem(item.ID) == nil {
				return nil, fmt.Errorf("menu item %d: %w", item.ID, repository.ErrNotFound)
			}
		} else {
			item.ID = r.s.next("menu_items")
		}
		keep[item.ID] = true
	}
	if existing != nil {
		for _, m := range existing.MenuItems {
			if !keep[m.ID] && r.s.menuItemOrdered(m.ID) {
				return nil, fmt.Errorf("menu item %d: %w", m.ID, repository.ErrInUse)
			}
		}
	}

	r.s.events[saved.ID] = saved
	return copyEvent(saved), nil
}

func (s *Store) eventFor(announcementID int64) *models.EventConfig {
	for _, cfg := range s.events {
		if cfg.AnnouncementID == announcementID {
			return cfg
		}
	}
	return nil
}

func (s *Store) menuItemOrdered(id int64) bool {
	for _, rsvp := range s.rsvps {
		for _, it := range rsvp.Items {
			if it.MenuItemID == id {
				return true
			}
		}
	}
	for _, g := range s.guests {
		for _, it := range g.Items {
			if it.MenuItemID == id {
				return true
			}
		}
	}
	return false
}

// pricedItems fills in the current menu name and price of every order line
func (s *Store) pricedItems(eventConfigID int64, items []models.RsvpItem) []models.RsvpItem {
	out := make([]models.RsvpItem, 0, len(items))
	cfg := s.events[eventConfigID]
	for _, it := range items {
		if cfg != nil {
			if m := cfg.MenuItem(it.MenuItemID); m != nil {
				it.Name = m.Name
				it.PricePerPlate = m.PricePerPlate
			}
		}
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MenuItemID < out[j].MenuItemID })
	return out
}

func copyEvent(cfg *models.EventConfig) *models.EventConfig {
	c := *cfg
	c.CustomFields = append(models.CustomFields{}, cfg.CustomFields...)
	c.MenuItems = append([]models.MenuItem{}, cfg.MenuItems...)
	return &c
}

type rsvpRepository struct{ s *Store }

func (s *Store) rsvpCopy(rsvp *models.Rsvp) *models.Rsvp {
	c := *rsvp
	c.Responses = copyResponses(rsvp.Responses)
	c.AttendedAt = copyTime(rsvp.AttendedAt)
	c.Items = s.pricedItems(rsvp.EventConfigID, rsvp.Items)
	c.Resident = nil
	return &c
}

func (r *rsvpRepository) GetByID(_ context.Context, id int64) (*models.Rsvp, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if rsvp, ok := r.s.rsvps[id]; ok {
		return r.s.rsvpCopy(rsvp), nil
	}
	return nil, nil
}

func (r *rsvpRepository) GetByResident(_ context.Context, eventConfigID, residentID int64) (*models.Rsvp, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, rsvp := range r.s.rsvps {
		if rsvp.EventConfigID == eventConfigID && rsvp.ResidentID == residentID {
			return r.s.rsvpCopy(rsvp), nil
		}
	}
	return nil, nil
}

func (r *rsvpRepository) ListByEvent(_ context.Context, eventConfigID int64) ([]*models.Rsvp, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var list []*models.Rsvp
	for _, id := range sortedIDs(r.s.rsvps) {
		rsvp := r.s.rsvps[id]
		if rsvp.EventConfigID != eventConfigID {
			continue
		}
		c := r.s.rsvpCopy(rsvp)
		c.Resident = r.s.residentCopy(rsvp.ResidentID)
		list = append(list, c)
	}
	sort.SliceStable(list, func(i, j int) bool {
		return byFlat(residentFlat(list[i].Resident), residentFlat(list[j].Resident), list[i].ID, list[j].ID)
	})
	return list, nil
}

func residentFlat(r *models.Resident) *models.Flat {
	if r == nil {
		return nil
	}
	return r.Flat
}

// Upsert keeps the id and payment state of an existing RSVP and replaces its lines
func (r *rsvpRepository) Upsert(_ context.Context, rsvp *models.Rsvp) (*models.Rsvp, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.events[rsvp.EventConfigID]; !ok {
		return nil, repository.ErrNotFound
	}
	if _, ok := r.s.residents[rsvp.ResidentID]; !ok {
		return nil, repository.ErrNotFound
	}
	now := r.s.now()
	var stored *models.Rsvp
	for _, existing := range r.s.rsvps {
		if existing.EventConfigID == rsvp.EventConfigID && existing.ResidentID == rsvp.ResidentID {
			stored = existing
			break
		}
	}
	if stored == nil {
		stored = &models.Rsvp{
			ID:            r.s.next("rsvps"),
			EventConfigID: rsvp.EventConfigID,
			ResidentID:    rsvp.ResidentID,
			CreatedAt:     now,
		}
		r.s.rsvps[stored.ID] = stored
	}
	stored.Responses = copyResponses(rsvp.Responses)
	stored.Items = append([]models.RsvpItem{}, rsvp.Items...)
	stored.UpdatedAt = now
	return r.s.rsvpCopy(stored), nil
}

func (r *rsvpRepository) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.rsvps[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.rsvps, id)
	return nil
}

func (r *rsvpRepository) SetPaid(_ context.Context, id int64, paid bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rsvp, ok := r.s.rsvps[id]
	if !ok {
		return repository.ErrNotFound
	}
	rsvp.Paid = paid
	rsvp.UpdatedAt = r.s.now()
	return nil
}

func (r *rsvpRepository) MarkAttended(_ context.Context, id int64, at time.Time) (time.Time, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rsvp, ok := r.s.rsvps[id]
	if !ok {
		return time.Time{}, false, repository.ErrNotFound
	}
	return markAttended(&rsvp.Attended, &rsvp.AttendedAt, at)
}

// markAttended sets the flag once; later scans report the first time
func markAttended(attended *bool, attendedAt **time.Time, at time.Time) (time.Time, bool, error) {
	if *attended && *attendedAt != nil {
		return **attendedAt, true, nil
	}
	t := at
	*attended = true
	*attendedAt = &t
	return at, false, nil
}

type guestRsvpRepository struct{ s *Store }

func (s *Store) guestCopy(g *models.GuestRsvp) *models.GuestRsvp {
	c := *g
	c.Responses = copyResponses(g.Responses)
	c.AttendedAt = copyTime(g.AttendedAt)
	c.Items = s.pricedItems(g.EventConfigID, g.Items)
	return &c
}

// Create inserts a guest RSVP; a second one for the same (event, email) yields repository.ErrDuplicate
func (r *guestRsvpRepository) Create(_ context.Context, g *models.GuestRsvp) (*models.GuestRsvp, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.events[g.EventConfigID]; !ok {
		return nil, repository.ErrNotFound
	}
	email := models.NormalizeEmail(g.Email)
	for _, existing := range r.s.guests {
		if existing.EventConfigID == g.EventConfigID && existing.Email == email {
			return nil, fmt.Errorf("%w: guest_rsvps_event_config_id_email_key", repository.ErrDuplicate)
		}
	}
	c := *g
	c.ID = r.s.next("guest_rsvps")
	c.Email = email
	c.Responses = copyResponses(g.Responses)
	c.Items = append([]models.RsvpItem{}, g.Items...)
	c.CreatedAt = r.s.now()
	c.UpdatedAt = c.CreatedAt
	r.s.guests[c.ID] = &c
	return r.s.guestCopy(&c), nil
}

func (r *guestRsvpRepository) GetByID(_ context.Context, id int64) (*models.GuestRsvp, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if g, ok := r.s.guests[id]; ok {
		return r.s.guestCopy(g), nil
	}
	return nil, nil
}

func (r *guestRsvpRepository) ListByEvent(_ context.Context, eventConfigID int64) ([]*models.GuestRsvp, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var list []*models.GuestRsvp
	for _, id := range sortedIDs(r.s.guests) {
		if g := r.s.guests[id]; g.EventConfigID == eventConfigID {
			list = append(list, r.s.guestCopy(g))
		}
	}
	return list, nil
}

func (r *guestRsvpRepository) SetPaid(_ context.Context, id int64, paid bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	g, ok := r.s.guests[id]
	if !ok {
		return repository.ErrNotFound
	}
	g.Paid = paid
	g.UpdatedAt = r.s.now()
	return nil
}

func (r *guestRsvpRepository) MarkAttended(_ context.Context, id int64, at time.Time) (time.Time, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	g, ok := r.s.guests[id]
	if !ok {
		return time.Time{}, false, repository.ErrNotFound
	}
	return markAttended(&g.Attended, &g.AttendedAt, at)
}
