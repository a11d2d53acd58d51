package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kerhoff/ResidentHub/internal/models"
	"github.com/Kerhoff/ResidentHub/internal/repository"
)

var rsvpRowColumns = []string{"id", "event_config_id", "resident_id", "responses", "paid", "attended", "attended_at", "created_at", "updated_at"}

func TestRsvpGetByResident_WithItems(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	repo := NewRsvpRepository(db)

	now := time.Now()
	mock.ExpectQuery(`FROM rsvps WHERE event_config_id = \$1 AND resident_id = \$2`).
		WithArgs(2, 3).
		WillReturnRows(sqlmock.NewRows(rsvpRowColumns).
			AddRow(11, 2, 3, []byte(`{"diet":"veg"}`), false, false, nil, now, now))
	mock.ExpectQuery(`FROM rsvp_items i JOIN menu_items m`).
		WithArgs("{11}").
		WillReturnRows(sqlmock.NewRows([]string{"rsvp_id", "menu_item_id", "plates", "name", "price_per_plate"}).
			AddRow(11, 1, 2, "Biryani", 150).
			AddRow(11, 2, 1, "Dessert", 40))

	rsvp, err := repo.GetByResident(context.Background(), 2, 3)

	require.NoError(t, err)
	require.NotNil(t, rsvp)
	assert.Equal(t, "r-11", rsvp.PassCode())
	assert.Equal(t, "veg", rsvp.Responses["diet"])
	assert.Len(t, rsvp.Items, 2)
	assert.Equal(t, 3, rsvp.Plates())
	assert.Equal(t, int64(340), rsvp.Amount())
	assert.Nil(t, rsvp.AttendedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRsvpUpsert_ReplacesItemsInTransaction(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	repo := NewRsvpRepository(db)

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO rsvps .* ON CONFLICT \(event_config_id, resident_id\)`).
		WithArgs(2, 3, `{"diet":"veg"}`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "paid", "attended", "attended_at", "created_at", "updated_at"}).
			AddRow(11, true, false, nil, now, now))
	mock.ExpectExec(`DELETE FROM rsvp_items WHERE rsvp_id = \$1`).
		WithArgs(11).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`INSERT INTO rsvp_items`).
		WithArgs(11, 1, 4).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	rsvp, err := repo.Upsert(context.Background(), &models.Rsvp{
		EventConfigID: 2,
		ResidentID:    3,
		Responses:     models.Responses{"diet": "veg"},
		Items:         []models.RsvpItem{{MenuItemID: 1, Plates: 4}},
	})

	require.NoError(t, err)
	assert.Equal(t, int64(11), rsvp.ID)
	assert.True(t, rsvp.Paid, "payment flag survives a resubmission")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRsvpUpsert_RollsBackOnItemFailure(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	repo := NewRsvpRepository(db)

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO rsvps`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "paid", "attended", "attended_at", "created_at", "updated_at"}).
			AddRow(11, false, false, nil, now, now))
	mock.ExpectExec(`DELETE FROM rsvp_items`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO rsvp_items`).WillReturnError(&pq.Error{Code: "23503"})
	mock.ExpectRollback()

	_, err := repo.Upsert(context.Background(), &models.Rsvp{
		EventConfigID: 2,
		ResidentID:    3,
		Items:         []models.RsvpItem{{MenuItemID: 99, Plates: 1}},
	})

	assert.ErrorIs(t, err, repository.ErrInUse)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRsvpMarkAttended_Idempotent(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	repo := NewRsvpRepository(db)

	first := time.Date(2026, 3, 14, 18, 30, 0, 0, time.UTC)
	second := first.Add(10 * time.Minute)

	mock.ExpectQuery(`UPDATE rsvps SET attended = TRUE`).
		WithArgs(11, first).
		WillReturnRows(sqlmock.NewRows([]string{"attended_at"}).AddRow(first))

	mock.ExpectQuery(`UPDATE rsvps SET attended = TRUE`).
		WithArgs(11, second).
		WillReturnRows(sqlmock.NewRows([]string{"attended_at"}))
	mock.ExpectQuery(`SELECT attended_at FROM rsvps`).
		WithArgs(11).
		WillReturnRows(sqlmock.NewRows([]string{"attended_at"}).AddRow(first))

	at, already, err := repo.MarkAttended(context.Background(), 11, first)
	require.NoError(t, err)
	assert.False(t, already)
	assert.Equal(t, first, at)

	at, already, err = repo.MarkAttended(context.Background(), 11, second)
	require.NoError(t, err)
	assert.True(t, already)
	assert.Equal(t, first, at, "second scan reports the original timestamp")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGuestRsvpMarkAttended_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	repo := NewGuestRsvpRepository(db)

	mock.ExpectQuery(`UPDATE guest_rsvps SET attended = TRUE`).
		WillReturnRows(sqlmock.NewRows([]string{"attended_at"}))
	mock.ExpectQuery(`SELECT attended_at FROM guest_rsvps`).
		WithArgs(404).
		WillReturnRows(sqlmock.NewRows([]string{"attended_at"}))

	_, _, err := repo.MarkAttended(context.Background(), 404, time.Now())

	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGuestRsvpCreate_Duplicate(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	repo := NewGuestRsvpRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO guest_rsvps`).
		WithArgs(2, "Guest", "guest@example.com", "", "{}").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "guest_rsvps_event_email_key"})
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), &models.GuestRsvp{
		EventConfigID: 2,
		Name:          "Guest",
		Email:         "Guest@Example.com",
		Items:         []models.RsvpItem{{MenuItemID: 1, Plates: 1}},
	})

	assert.ErrorIs(t, err, repository.ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRsvpSetPaid_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	repo := NewRsvpRepository(db)

	mock.ExpectExec(`UPDATE rsvps SET paid = \$2`).
		WithArgs(77, true).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetPaid(context.Background(), 77, true)

	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventSaveConfig_PrunesRemovedItems(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	repo := NewEventRepository(db)

	deadline := time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC)
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO event_configs .* ON CONFLICT \(announcement_id\)`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
	mock.ExpectExec(`UPDATE menu_items SET name`).
		WithArgs(1, 2, "Biryani", 160).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO menu_items`).
		WithArgs(2, "Kebab", 90).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	mock.ExpectExec(`DELETE FROM menu_items WHERE event_config_id = \$1 AND NOT \(id = ANY\(\$2\)\)`).
		WithArgs(2, "{1,3}").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	cfg, err := repo.SaveConfig(context.Background(), &models.EventConfig{
		AnnouncementID: 8,
		EventDate:      deadline.Add(72 * time.Hour),
		Deadline:       deadline,
		MenuItems: []models.MenuItem{
			{ID: 1, Name: "Biryani", PricePerPlate: 160},
			{Name: "Kebab", PricePerPlate: 90},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, int64(2), cfg.ID)
	assert.Equal(t, int64(3), cfg.MenuItems[1].ID)
	assert.Equal(t, int64(2), cfg.MenuItems[1].EventConfigID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSportsGetRegistration_WithParticipants(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()
	repo := NewSportsRepository(db)

	now := time.Now()
	mock.ExpectQuery(`FROM sports_registrations WHERE sports_config_id = \$1 AND resident_id = \$2`).
		WithArgs(5, 3).
		WillReturnRows(sqlmock.NewRows([]string{"id", "sports_config_id", "resident_id", "paid", "created_at", "updated_at"}).
			AddRow(21, 5, 3, false, now, now))
	mock.ExpectQuery(`FROM participants p`).
		WithArgs("{21}").
		WillReturnRows(sqlmock.NewRows([]string{"id", "registration_id", "name", "age_category", "sports"}).
			AddRow(1, 21, "Kid", "U10", "{1,2}").
			AddRow(2, 21, "Parent", "Adult", "{2}"))

	reg, err := repo.GetRegistration(context.Background(), 5, 3)

	require.NoError(t, err)
	require.NotNil(t, reg)
	require.Len(t, reg.Participants, 2)
	assert.Equal(t, []int64{1, 2}, reg.Participants[0].SportItemIDs)

	cfg := &models.SportsConfig{SportItems: []models.SportItem{{ID: 1, Fee: 100}, {ID: 2, Fee: 50}}}
	assert.Equal(t, int64(200), reg.Fee(cfg))
	assert.NoError(t, mock.ExpectationsWereMet())
}
