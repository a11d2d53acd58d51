package memory

import (
	"context"
	"sort"

	"github.com/Kerhoff/ResidentHub/internal/models"
	"github.com/Kerhoff/ResidentHub/internal/repository"
)

type announcementRepository struct{ s *Store }

func (r *announcementRepository) Create(_ context.Context, a *models.Announcement) (*models.Announcement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.residents[a.CreatedByID]; !ok {
		return nil, repository.ErrNotFound
	}
	c := *a
	c.ID = r.s.next("announcements")
	c.CreatedAt = r.s.now()
	c.UpdatedAt = c.CreatedAt
	c.Event, c.Sports = nil, nil
	r.s.announcements[c.ID] = &c
	out := c
	return &out, nil
}

func (r *announcementRepository) GetByID(_ context.Context, id int64) (*models.Announcement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.announcements[id]
	if !ok {
		return nil, nil
	}
	c := *a
	return &c, nil
}

func (r *announcementRepository) List(_ context.Context, publishedOnly bool) ([]*models.Announcement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var list []*models.Announcement
	for _, a := range r.s.announcements {
		if publishedOnly && !a.Published {
			continue
		}
		c := *a
		list = append(list, &c)
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID > list[j].ID
	})
	return list, nil
}

func (r *announcementRepository) Update(_ context.Context, a *models.Announcement) (*models.Announcement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.announcements[a.ID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	stored.Title = a.Title
	stored.Body = a.Body
	stored.Published = a.Published
	stored.UpdatedAt = r.s.now()
	c := *stored
	return &c, nil
}

// Delete removes the announcement with everything that hangs off it
func (r *announcementRepository) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.announcements[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.announcements, id)

	for cfgID, cfg := range r.s.events {
		if cfg.AnnouncementID != id {
			continue
		}
		delete(r.s.events, cfgID)
		for rid, rsvp := range r.s.rsvps {
			if rsvp.EventConfigID == cfgID {
				delete(r.s.rsvps, rid)
			}
		}
		for gid, g := range r.s.guests {
			if g.EventConfigID == cfgID {
				delete(r.s.guests, gid)
			}
		}
	}
	for cfgID, cfg := range r.s.sports {
		if cfg.AnnouncementID != id {
			continue
		}
		delete(r.s.sports, cfgID)
		for regID, reg := range r.s.registrations {
			if reg.SportsConfigID == cfgID {
				delete(r.s.registrations, regID)
			}
		}
	}
	for nid, n := range r.s.notifications {
		if n.AnnouncementID != nil && *n.AnnouncementID == id {
			delete(r.s.notifications, nid)
		}
	}
	return nil
}
