package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/Kerhoff/ResidentHub/internal/models"
	"github.com/Kerhoff/ResidentHub/internal/repository"
	"github.com/Kerhoff/ResidentHub/internal/repository/memory"
)

type recordingDeliverer struct {
	mu       sync.Mutex
	emails   []*models.Pass
	whatsapp []*models.Pass
}

func (d *recordingDeliverer) DeliverEmail(p *models.Pass) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.emails = append(d.emails, p)
}

func (d *recordingDeliverer) DeliverWhatsApp(p *models.Pass) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.whatsapp = append(d.whatsapp, p)
}

type fixture struct {
	svc      *Service
	repos    repository.Repositories
	delivery *recordingDeliverer
	now      time.Time
	ctx      context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger, _ := test.NewNullLogger()
	f := &fixture{
		repos:    memory.NewRepositories(),
		delivery: &recordingDeliverer{},
		now:      time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
		ctx:      context.Background(),
	}
	f.svc = New(logger, f.repos, f.delivery, "https://portal.example.com/")
	f.svc.now = func() time.Time { return f.now }
	return f
}

// member creates a resident with the given role, registered to a flat when block > 0
func (f *fixture) member(t *testing.T, email string, role models.Role, block int, flat string) Actor {
	t.Helper()
	res, err := f.repos.Residents.Create(f.ctx, &models.Resident{Email: email, Role: role})
	require.NoError(t, err)
	actor := Actor{ResidentID: res.ID, Email: res.Email, Role: role}
	if block > 0 {
		_, err := f.svc.Register(f.ctx, actor, RegisterInput{Name: email, Phone: "+919800000000", Block: block, FlatNumber: flat})
		require.NoError(t, err)
		actor.Registered = true
	}
	return actor
}

// event publishes an announcement with a two-dish menu closing a day from now
func (f *fixture) event(t *testing.T, admin Actor, allowGuests bool) (*models.Announcement, *models.EventConfig) {
	t.Helper()
	a, err := f.svc.CreateAnnouncement(f.ctx, admin, AnnouncementInput{Title: "Diwali dinner", Published: true})
	require.NoError(t, err)
	cfg, err := f.svc.SetEventConfig(f.ctx, admin, a.ID, EventConfigInput{
		EventDate:    f.now.Add(48 * time.Hour),
		Venue:        "Clubhouse",
		Deadline:     f.now.Add(24 * time.Hour),
		AllowGuests:  allowGuests,
		CustomFields: []models.CustomField{{Key: "diet", Label: "Dietary needs"}, {Key: "tower", Label: "Tower", Required: true}},
		MenuItems:    []MenuItemInput{{Name: "Veg Thali", PricePerPlate: 200}, {Name: "Sweets", PricePerPlate: 50}},
	})
	require.NoError(t, err)
	return a, cfg
}

func (f *fixture) notifications(t *testing.T, residentID int64) []*models.Notification {
	t.Helper()
	list, err := f.repos.Notifications.ListByResident(f.ctx, residentID, false)
	require.NoError(t, err)
	return list
}
