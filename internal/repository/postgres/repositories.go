package postgres

import (
	"database/sql"

	"github.com/Kerhoff/ResidentHub/internal/repository"
)

// NewRepositories builds every Postgres repository on a shared connection pool
func NewRepositories(db *sql.DB) repository.Repositories {
	return repository.Repositories{
		Residents:     NewResidentRepository(db),
		Flats:         NewFlatRepository(db),
		Announcements: NewAnnouncementRepository(db),
		Events:        NewEventRepository(db),
		Rsvps:         NewRsvpRepository(db),
		GuestRsvps:    NewGuestRsvpRepository(db),
		Sports:        NewSportsRepository(db),
		Visitors:      NewVisitorRepository(db),
		Issues:        NewIssueRepository(db),
		Tasks:         NewTaskRepository(db),
		Notifications: NewNotificationRepository(db),
	}
}
