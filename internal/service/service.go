package service

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/ResidentHub/internal/models"
	"github.com/Kerhoff/ResidentHub/internal/repository"
)

// PassDeliverer sends a pass to its holder without blocking the caller.
// Failures are the deliverer's concern.
type PassDeliverer interface {
	DeliverEmail(pass *models.Pass)
	DeliverWhatsApp(pass *models.Pass)
}

// Actor is the authenticated caller of an operation
type Actor struct {
	ResidentID int64
	Email      string
	Name       string
	Role       models.Role
	Registered bool
}

// Service is the central business logic layer that holds all repositories
// and provides high-level methods for the application.
type Service struct {
	logger        *logrus.Logger
	now           func() time.Time
	publicBaseURL string

	Residents     repository.ResidentRepository
	Flats         repository.FlatRepository
	Announcements repository.AnnouncementRepository
	Events        repository.EventRepository
	Rsvps         repository.RsvpRepository
	GuestRsvps    repository.GuestRsvpRepository
	Sports        repository.SportsRepository
	Visitors      repository.VisitorRepository
	Issues        repository.IssueRepository
	Tasks         repository.TaskRepository
	Notifications repository.NotificationRepository

	Delivery PassDeliverer
}

// New creates a new Service with all required dependencies.
func New(logger *logrus.Logger, repos repository.Repositories, delivery PassDeliverer, publicBaseURL string) *Service {
	return &Service{
		logger:        logger,
		now:           time.Now,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		Residents:     repos.Residents,
		Flats:         repos.Flats,
		Announcements: repos.Announcements,
		Events:        repos.Events,
		Rsvps:         repos.Rsvps,
		GuestRsvps:    repos.GuestRsvps,
		Sports:        repos.Sports,
		Visitors:      repos.Visitors,
		Issues:        repos.Issues,
		Tasks:         repos.Tasks,
		Notifications: repos.Notifications,
		Delivery:      delivery,
	}
}

// PassURL is the public page a pass QR code points at
func (s *Service) PassURL(code string) string {
	return s.publicBaseURL + "/pass/" + code
}

// notify stores a notification; failures are logged and never fail the caller
func (s *Service) notify(ctx context.Context, ns ...*models.Notification) {
	if len(ns) == 0 {
		return
	}
	if err := s.Notifications.CreateMany(ctx, ns); err != nil {
		s.logger.WithError(err).WithField("count", len(ns)).Error("Failed to store notifications")
	}
}
