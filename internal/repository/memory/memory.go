// Package memory keeps every repository in process memory. It backs the
// "memory" storage mode used for local runs and the service and API tests.
package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/Kerhoff/ResidentHub/internal/models"
	"github.com/Kerhoff/ResidentHub/internal/repository"
)

// Store holds all tables behind a single lock
type Store struct {
	mu  sync.Mutex
	now func() time.Time
	seq map[string]int64

	residents     map[int64]*models.Resident
	flats         map[int64]*models.Flat
	announcements map[int64]*models.Announcement
	events        map[int64]*models.EventConfig
	rsvps         map[int64]*models.Rsvp
	guests        map[int64]*models.GuestRsvp
	sports        map[int64]*models.SportsConfig
	registrations map[int64]*models.SportsRegistration
	visitors      map[int64]*models.Visitor
	issues        map[int64]*models.Issue
	tasks         map[int64]*models.Task
	comments      map[int64][]models.TaskComment
	notifications map[int64]*models.Notification
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		now:           time.Now,
		seq:           make(map[string]int64),
		residents:     make(map[int64]*models.Resident),
		flats:         make(map[int64]*models.Flat),
		announcements: make(map[int64]*models.Announcement),
		events:        make(map[int64]*models.EventConfig),
		rsvps:         make(map[int64]*models.Rsvp),
		guests:        make(map[int64]*models.GuestRsvp),
		sports:        make(map[int64]*models.SportsConfig),
		registrations: make(map[int64]*models.SportsRegistration),
		visitors:      make(map[int64]*models.Visitor),
		issues:        make(map[int64]*models.Issue),
		tasks:         make(map[int64]*models.Task),
		comments:      make(map[int64][]models.TaskComment),
		notifications: make(map[int64]*models.Notification),
	}
}

// SetClock replaces the clock used for created/updated timestamps
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Repositories exposes the store through every repository interface
func (s *Store) Repositories() repository.Repositories {
	return repository.Repositories{
		Residents:     &residentRepository{s},
		Flats:         &flatRepository{s},
		Announcements: &announcementRepository{s},
		Events:        &eventRepository{s},
		Rsvps:         &rsvpRepository{s},
		GuestRsvps:    &guestRsvpRepository{s},
		Sports:        &sportsRepository{s},
		Visitors:      &visitorRepository{s},
		Issues:        &issueRepository{s},
		Tasks:         &taskRepository{s},
		Notifications: &notificationRepository{s},
	}
}

// NewRepositories builds a fresh store and returns its repositories
func NewRepositories() repository.Repositories {
	return NewStore().Repositories()
}

func (s *Store) next(table string) int64 {
	s.seq[table]++
	return s.seq[table]
}

// sortedIDs returns the keys of m in ascending order
func sortedIDs[T any](m map[int64]T) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// byFlat orders rows by block and flat number with flat-less rows last, then by id
func byFlat(a, b *models.Flat, idA, idB int64) bool {
	switch {
	case a == nil && b == nil:
		return idA < idB
	case a == nil:
		return false
	case b == nil:
		return true
	case a.Block != b.Block:
		return a.Block < b.Block
	case a.FlatNumber != b.FlatNumber:
		return a.FlatNumber < b.FlatNumber
	}
	return idA < idB
}

func limit[T any](list []T, n int) []T {
	if n > 0 && len(list) > n {
		return list[:n]
	}
	return list
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func copyResponses(r models.Responses) models.Responses {
	out := make(models.Responses, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func (s *Store) flatCopy(id *int64) *models.Flat {
	if id == nil {
		return nil
	}
	f, ok := s.flats[*id]
	if !ok {
		return nil
	}
	c := *f
	return &c
}

func (s *Store) residentCopy(id int64) *models.Resident {
	r, ok := s.residents[id]
	if !ok {
		return nil
	}
	c := *r
	c.FlatID = copyID(r.FlatID)
	c.Flat = s.flatCopy(r.FlatID)
	return &c
}

// insertNotification stores n and assigns its id and timestamp
func (s *Store) insertNotification(n *models.Notification) {
	n.ID = s.next("notifications")
	n.CreatedAt = s.now()
	c := *n
	s.notifications[c.ID] = &c
}
