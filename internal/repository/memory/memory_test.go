package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kerhoff/ResidentHub/internal/models"
	"github.com/Kerhoff/ResidentHub/internal/repository"
)

func seedEvent(t *testing.T, repos repository.Repositories) (*models.Resident, *models.EventConfig) {
	t.Helper()
	ctx := context.Background()

	admin, err := repos.Residents.Create(ctx, &models.Resident{Email: "Admin@Example.com", Role: models.RoleAdmin})
	require.NoError(t, err)
	a, err := repos.Announcements.Create(ctx, &models.Announcement{Title: "Diwali", Published: true, CreatedByID: admin.ID})
	require.NoError(t, err)
	cfg, err := repos.Events.SaveConfig(ctx, &models.EventConfig{
		AnnouncementID: a.ID,
		Deadline:       time.Now().Add(time.Hour),
		MenuItems:      []models.MenuItem{{Name: "Veg Thali", PricePerPlate: 200}, {Name: "Sweets", PricePerPlate: 50}},
	})
	require.NoError(t, err)
	return admin, cfg
}

func TestResidentEmailIsUnique(t *testing.T) {
	repos := NewRepositories()
	ctx := context.Background()

	created, err := repos.Residents.Create(ctx, &models.Resident{Email: " Asha@Example.com "})
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", created.Email)
	assert.Equal(t, models.RoleResident, created.Role)

	_, err = repos.Residents.Create(ctx, &models.Resident{Email: "asha@example.com"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	missing, err := repos.Residents.GetByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSaveConfigReconcilesMenu(t *testing.T) {
	repos := NewRepositories()
	ctx := context.Background()
	admin, cfg := seedEvent(t, repos)

	_, err := repos.Rsvps.Upsert(ctx, &models.Rsvp{
		EventConfigID: cfg.ID,
		ResidentID:    admin.ID,
		Items:         []models.RsvpItem{{MenuItemID: cfg.MenuItems[0].ID, Plates: 2}},
	})
	require.NoError(t, err)

	// dropping an ordered item is refused
	_, err = repos.Events.SaveConfig(ctx, &models.EventConfig{
		AnnouncementID: cfg.AnnouncementID,
		Deadline:       cfg.Deadline,
		MenuItems:      []models.MenuItem{{ID: cfg.MenuItems[1].ID, Name: "Sweets", PricePerPlate: 60}},
	})
	assert.ErrorIs(t, err, repository.ErrInUse)

	// an id from another event is unknown
	_, err = repos.Events.SaveConfig(ctx, &models.EventConfig{
		AnnouncementID: cfg.AnnouncementID,
		Deadline:       cfg.Deadline,
		MenuItems:      []models.MenuItem{{ID: 999, Name: "Ghost"}},
	})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	saved, err := repos.Events.SaveConfig(ctx, &models.EventConfig{
		AnnouncementID: cfg.AnnouncementID,
		Deadline:       cfg.Deadline,
		MenuItems: []models.MenuItem{
			{ID: cfg.MenuItems[0].ID, Name: "Veg Thali", PricePerPlate: 250},
			{Name: "Lassi", PricePerPlate: 40},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, cfg.ID, saved.ID)
	require.Len(t, saved.MenuItems, 2)

	rsvp, err := repos.Rsvps.GetByResident(ctx, cfg.ID, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(500), rsvp.Amount(), "lines are priced from the current menu")
}

func TestMarkAttendedOnce(t *testing.T) {
	repos := NewRepositories()
	ctx := context.Background()
	_, cfg := seedEvent(t, repos)

	g, err := repos.GuestRsvps.Create(ctx, &models.GuestRsvp{
		EventConfigID: cfg.ID,
		Name:          "Ravi",
		Email:         "ravi@example.com",
		Items:         []models.RsvpItem{{MenuItemID: cfg.MenuItems[1].ID, Plates: 1}},
	})
	require.NoError(t, err)

	first := time.Date(2026, 11, 1, 19, 0, 0, 0, time.UTC)
	at, already, err := repos.GuestRsvps.MarkAttended(ctx, g.ID, first)
	require.NoError(t, err)
	assert.False(t, already)
	assert.Equal(t, first, at)

	at, already, err = repos.GuestRsvps.MarkAttended(ctx, g.ID, first.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, already)
	assert.Equal(t, first, at)

	_, _, err = repos.Rsvps.MarkAttended(ctx, 42, first)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repos.GuestRsvps.Create(ctx, &models.GuestRsvp{EventConfigID: cfg.ID, Name: "Ravi", Email: "RAVI@example.com"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)
}

func TestDeleteAnnouncementCascades(t *testing.T) {
	store := NewStore()
	repos := store.Repositories()
	ctx := context.Background()
	admin, cfg := seedEvent(t, repos)

	_, err := repos.Rsvps.Upsert(ctx, &models.Rsvp{
		EventConfigID: cfg.ID,
		ResidentID:    admin.ID,
		Items:         []models.RsvpItem{{MenuItemID: cfg.MenuItems[0].ID, Plates: 1}},
	})
	require.NoError(t, err)
	require.NoError(t, repos.Notifications.CreateMany(ctx, []*models.Notification{
		models.NewNotification(admin.ID, models.NotificationAnnouncement, cfg.AnnouncementID, "New announcement"),
	}))

	require.NoError(t, repos.Announcements.Delete(ctx, cfg.AnnouncementID))
	assert.ErrorIs(t, repos.Announcements.Delete(ctx, cfg.AnnouncementID), repository.ErrNotFound)

	got, err := repos.Events.GetConfigByID(ctx, cfg.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
	rsvps, err := repos.Rsvps.ListByEvent(ctx, cfg.ID)
	require.NoError(t, err)
	assert.Empty(t, rsvps)
	ns, err := repos.Notifications.ListByResident(ctx, admin.ID, false)
	require.NoError(t, err)
	assert.Empty(t, ns)
}

func TestTaskTransitionIsConditional(t *testing.T) {
	repos := NewRepositories()
	ctx := context.Background()

	fm, err := repos.Residents.Create(ctx, &models.Resident{Email: "fm@example.com", Role: models.RoleFacilityManager})
	require.NoError(t, err)
	n := &models.Notification{ResidentID: fm.ID, Kind: models.NotificationTask, Message: "New task"}
	task, err := repos.Tasks.Create(ctx, &models.Task{Title: "Fix pump", CreatorID: fm.ID, OwnerID: fm.ID}, n)
	require.NoError(t, err)
	require.NotNil(t, n.TaskID)
	assert.Equal(t, task.ID, *n.TaskID)
	assert.Equal(t, models.TaskStatusOpen, task.Status)

	from, to := models.TaskStatusOpen, models.TaskStatusInProgress
	audit := &models.TaskComment{TaskID: task.ID, AuthorID: fm.ID, Kind: models.TaskCommentStatusChange, Body: "start", FromStatus: &from, ToStatus: &to}
	require.NoError(t, repos.Tasks.Transition(ctx, task.ID, from, to, audit, nil))

	err = repos.Tasks.Transition(ctx, task.ID, from, to, &models.TaskComment{TaskID: task.ID}, nil)
	assert.ErrorIs(t, err, repository.ErrStale)

	comments, err := repos.Tasks.ListComments(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, models.TaskCommentStatusChange, comments[0].Kind)
	require.NotNil(t, comments[0].Author)
	assert.Equal(t, fm.ID, comments[0].Author.ID)
}

func TestNotificationsReadState(t *testing.T) {
	repos := NewRepositories()
	ctx := context.Background()

	require.NoError(t, repos.Notifications.CreateMany(ctx, []*models.Notification{
		models.NewNotification(1, models.NotificationIssue, 10, "closed"),
		models.NewNotification(1, models.NotificationIssue, 11, "closed"),
		models.NewNotification(2, models.NotificationIssue, 12, "closed"),
	}))

	list, err := repos.Notifications.ListByResident(ctx, 1, true)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(2), list[0].ID, "newest first")

	assert.ErrorIs(t, repos.Notifications.SetRead(ctx, 3, 1, true), repository.ErrNotFound)
	require.NoError(t, repos.Notifications.SetRead(ctx, 1, 1, true))

	changed, err := repos.Notifications.MarkAllRead(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), changed)
}
