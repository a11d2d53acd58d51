package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Kerhoff/ResidentHub/internal/models"
)

var (
	// ErrNotFound is returned by writes that matched no row
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint rejects a write
	ErrDuplicate = errors.New("duplicate record")
	// ErrInUse is returned when a row is still referenced by other rows
	ErrInUse = errors.New("record is referenced by other records")
	// ErrStale is returned when a conditional state change lost to a concurrent write
	ErrStale = errors.New("record was modified concurrently")
)

// ResidentRepository defines the interface for resident data operations
type ResidentRepository interface {
	Create(ctx context.Context, resident *models.Resident) (*models.Resident, error)
	GetByID(ctx context.Context, id int64) (*models.Resident, error)
	GetByEmail(ctx context.Context, email string) (*models.Resident, error)
	List(ctx context.Context, filters ResidentFilters) ([]*models.Resident, error)
	ListByFlat(ctx context.Context, flatID int64) ([]*models.Resident, error)
	ListRegisteredIDs(ctx context.Context) ([]int64, error)
	UpdateProfile(ctx context.Context, resident *models.Resident) (*models.Resident, error)
	UpdateRole(ctx context.Context, id int64, role models.Role) error
}

// FlatRepository defines the interface for flat data operations
type FlatRepository interface {
	Ensure(ctx context.Context, block int, flatNumber string) (*models.Flat, error)
	GetByID(ctx context.Context, id int64) (*models.Flat, error)
	Find(ctx context.Context, block int, flatNumber string) (*models.Flat, error)
}

// AnnouncementRepository defines the interface for announcement data operations
type AnnouncementRepository interface {
	Create(ctx context.Context, a *models.Announcement) (*models.Announcement, error)
	GetByID(ctx context.Context, id int64) (*models.Announcement, error)
	List(ctx context.Context, publishedOnly bool) ([]*models.Announcement, error)
	Update(ctx context.Context, a *models.Announcement) (*models.Announcement, error)
	Delete(ctx context.Context, id int64) error
}

// EventRepository defines the interface for event RSVP configuration
type EventRepository interface {
	GetConfig(ctx context.Context, announcementID int64) (*models.EventConfig, error)
	GetConfigByID(ctx context.Context, id int64) (*models.EventConfig, error)
	SaveConfig(ctx context.Context, cfg *models.EventConfig) (*models.EventConfig, error)
}

// RsvpRepository defines the interface for resident RSVP operations
type RsvpRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Rsvp, error)
	GetByResident(ctx context.Context, eventConfigID, residentID int64) (*models.Rsvp, error)
	ListByEvent(ctx context.Context, eventConfigID int64) ([]*models.Rsvp, error)
	Upsert(ctx context.Context, rsvp *models.Rsvp) (*models.Rsvp, error)
	Delete(ctx context.Context, id int64) error
	SetPaid(ctx context.Context, id int64, paid bool) error
	MarkAttended(ctx context.Context, id int64, at time.Time) (time.Time, bool, error)
}

// GuestRsvpRepository defines the interface for guest RSVP operations
type GuestRsvpRepository interface {
	Create(ctx context.Context, rsvp *models.GuestRsvp) (*models.GuestRsvp, error)
	GetByID(ctx context.Context, id int64) (*models.GuestRsvp, error)
	ListByEvent(ctx context.Context, eventConfigID int64) ([]*models.GuestRsvp, error)
	SetPaid(ctx context.Context, id int64, paid bool) error
	MarkAttended(ctx context.Context, id int64, at time.Time) (time.Time, bool, error)
}

// SportsRepository defines the interface for sports configuration and registrations
type SportsRepository interface {
	GetConfig(ctx context.Context, announcementID int64) (*models.SportsConfig, error)
	SaveConfig(ctx context.Context, cfg *models.SportsConfig) (*models.SportsConfig, error)
	GetRegistration(ctx context.Context, sportsConfigID, residentID int64) (*models.SportsRegistration, error)
	ListRegistrations(ctx context.Context, sportsConfigID int64) ([]*models.SportsRegistration, error)
	UpsertRegistration(ctx context.Context, reg *models.SportsRegistration) (*models.SportsRegistration, error)
	DeleteRegistration(ctx context.Context, id int64) error
	SetPaid(ctx context.Context, id int64, paid bool) error
}

// VisitorRepository defines the interface for visitor gate-pass operations
type VisitorRepository interface {
	Create(ctx context.Context, v *models.Visitor) (*models.Visitor, error)
	GetByID(ctx context.Context, id int64) (*models.Visitor, error)
	List(ctx context.Context, filters VisitorFilters) ([]*models.Visitor, error)
	Decide(ctx context.Context, id int64, status models.VisitorStatus, deciderID int64, at time.Time) error
}

// IssueRepository defines the interface for maintenance issue operations
type IssueRepository interface {
	Create(ctx context.Context, issue *models.Issue) (*models.Issue, error)
	GetByID(ctx context.Context, id int64) (*models.Issue, error)
	List(ctx context.Context, filters IssueFilters) ([]*models.Issue, error)
	Close(ctx context.Context, id, closerID int64, comment string, at time.Time, n *models.Notification) error
}

// TaskRepository defines the interface for task board operations
type TaskRepository interface {
	Create(ctx context.Context, task *models.Task, n *models.Notification) (*models.Task, error)
	GetByID(ctx context.Context, id int64) (*models.Task, error)
	List(ctx context.Context, filters TaskFilters) ([]*models.Task, error)
	Transition(ctx context.Context, taskID int64, from, to models.TaskStatus, audit *models.TaskComment, n *models.Notification) error
	AddComment(ctx context.Context, c *models.TaskComment, n *models.Notification) (*models.TaskComment, error)
	ListComments(ctx context.Context, taskID int64) ([]models.TaskComment, error)
}

// NotificationRepository defines the interface for in-app notifications
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) (*models.Notification, error)
	CreateMany(ctx context.Context, ns []*models.Notification) error
	ListByResident(ctx context.Context, residentID int64, unreadOnly bool) ([]*models.Notification, error)
	SetRead(ctx context.Context, id, residentID int64, read bool) error
	MarkAllRead(ctx context.Context, residentID int64) (int64, error)
}

// ResidentFilters represents filters for querying residents
type ResidentFilters struct {
	Role  *models.Role
	Block *int
}

// VisitorFilters represents filters for querying visitors
type VisitorFilters struct {
	FlatID *int64
	Status *models.VisitorStatus
	Limit  int
}

// IssueFilters represents filters for querying issues
type IssueFilters struct {
	ReporterID *int64
	Status     *models.IssueStatus
	Limit      int
}

// TaskFilters represents filters for querying tasks
type TaskFilters struct {
	OwnerID *int64
	Status  *models.TaskStatus
	Limit   int
}

// Repositories groups every repository the service layer depends on
type Repositories struct {
	Residents     ResidentRepository
	Flats         FlatRepository
	Announcements AnnouncementRepository
	Events        EventRepository
	Rsvps         RsvpRepository
	GuestRsvps    GuestRsvpRepository
	Sports        SportsRepository
	Visitors      VisitorRepository
	Issues        IssueRepository
	Tasks         TaskRepository
	Notifications NotificationRepository
}
