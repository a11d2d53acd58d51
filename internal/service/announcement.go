package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/ResidentHub/internal/models"
	"github.com/Kerhoff/ResidentHub/internal/repository"
)

// AnnouncementInput creates an announcement
type AnnouncementInput struct {
	Title     string `json:"title" validate:"required,max=255"`
	Body      string `json:"body"`
	Published bool   `json:"published"`
}

// AnnouncementPatch updates the fields that are present
type AnnouncementPatch struct {
	Title     *string `json:"title" validate:"omitempty,max=255"`
	Body      *string `json:"body"`
	Published *bool   `json:"published"`
}

// EventConfigInput replaces the food RSVP settings of an announcement.
// Menu items with an id are updated; items without one are added.
type EventConfigInput struct {
	EventDate    time.Time            `json:"eventDate" validate:"required"`
	Venue        string               `json:"venue" validate:"max=255"`
	Deadline     time.Time            `json:"deadline" validate:"required"`
	AllowGuests  bool                 `json:"allowGuests"`
	CustomFields []models.CustomField `json:"customFields" validate:"dive"`
	MenuItems    []MenuItemInput      `json:"menuItems" validate:"required,min=1,dive"`
}

// MenuItemInput is one dish of an event menu
type MenuItemInput struct {
	ID            int64  `json:"id"`
	Name          string `json:"name" validate:"required,max=255"`
	PricePerPlate int64  `json:"pricePerPlate" validate:"min=0"`
}

// SportsConfigInput replaces the sports registration settings of an announcement
type SportsConfigInput struct {
	Deadline      time.Time        `json:"deadline" validate:"required"`
	AgeCategories []string         `json:"ageCategories" validate:"required,min=1,dive,required"`
	SportItems    []SportItemInput `json:"sportItems" validate:"required,min=1,dive"`
}

// SportItemInput is one discipline of a sports event
type SportItemInput struct {
	ID   int64  `json:"id"`
	Name string `json:"name" validate:"required,max=255"`
	Fee  int64  `json:"fee" validate:"min=0"`
}

// ListAnnouncements returns published announcements, or all of them for administrators
func (s *Service) ListAnnouncements(ctx context.Context, actor Actor) ([]*models.Announcement, error) {
	list, err := s.Announcements.List(ctx, !actor.Role.IsAdmin())
	if err != nil {
		return nil, fmt.Errorf("failed to list announcements: %w", err)
	}
	if list == nil {
		list = []*models.Announcement{}
	}
	return list, nil
}

// GetAnnouncement returns an announcement with its event and sports settings.
// Unpublished announcements do not exist for non-administrators.
func (s *Service) GetAnnouncement(ctx context.Context, actor Actor, id int64) (*models.Announcement, error) {
	a, err := s.visibleAnnouncement(ctx, actor.Role, id)
	if err != nil {
		return nil, err
	}
	if a.Event, err = s.Events.GetConfig(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to get event config: %w", err)
	}
	if a.Sports, err = s.Sports.GetConfig(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to get sports config: %w", err)
	}
	return a, nil
}

func (s *Service) visibleAnnouncement(ctx context.Context, role models.Role, id int64) (*models.Announcement, error) {
	a, err := s.Announcements.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get announcement %d: %w", id, err)
	}
	if a == nil || !a.VisibleTo(role) {
		return nil, ErrNotFound
	}
	return a, nil
}

// CreateAnnouncement stores a new announcement; publishing it notifies every registered resident
func (s *Service) CreateAnnouncement(ctx context.Context, actor Actor, in AnnouncementInput) (*models.Announcement, error) {
	if !actor.Role.IsAdmin() {
		return nil, ErrForbidden
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, invalidf("title is required")
	}

	a, err := s.Announcements.Create(ctx, &models.Announcement{
		Title:       title,
		Body:        in.Body,
		Published:   in.Published,
		CreatedByID: actor.ResidentID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create announcement: %w", err)
	}
	if a.Published {
		s.announce(ctx, a)
	}
	return a, nil
}

// UpdateAnnouncement applies a patch; a false→true publish notifies every registered resident
func (s *Service) UpdateAnnouncement(ctx context.Context, actor Actor, id int64, patch AnnouncementPatch) (*models.Announcement, error) {
	if !actor.Role.IsAdmin() {
		return nil, ErrForbidden
	}
	a, err := s.visibleAnnouncement(ctx, actor.Role, id)
	if err != nil {
		return nil, err
	}

	wasPublished := a.Published
	if patch.Title != nil {
		if a.Title = strings.TrimSpace(*patch.Title); a.Title == "" {
			return nil, invalidf("title cannot be empty")
		}
	}
	if patch.Body != nil {
		a.Body = *patch.Body
	}
	if patch.Published != nil {
		a.Published = *patch.Published
	}

	if a, err = s.Announcements.Update(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to update announcement %d: %w", id, translate(err))
	}
	if a.Published && !wasPublished {
		s.announce(ctx, a)
	}
	return a, nil
}

// DeleteAnnouncement removes an announcement together with its event and sports data
func (s *Service) DeleteAnnouncement(ctx context.Context, actor Actor, id int64) error {
	if !actor.Role.IsAdmin() {
		return ErrForbidden
	}
	if err := s.Announcements.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete announcement %d: %w", id, translate(err))
	}
	s.logger.WithFields(logrus.Fields{"announcement_id": id, "actor_id": actor.ResidentID}).Info("Announcement deleted")
	return nil
}

func (s *Service) announce(ctx context.Context, a *models.Announcement) {
	ids, err := s.Residents.ListRegisteredIDs(ctx)
	if err != nil {
		s.logger.WithError(err).WithField("announcement_id", a.ID).Error("Failed to list residents to notify")
		return
	}
	msg := "New announcement: " + a.Title
	ns := make([]*models.Notification, 0, len(ids))
	for _, id := range ids {
		ns = append(ns, models.NewNotification(id, models.NotificationAnnouncement, a.ID, msg))
	}
	s.notify(ctx, ns...)
}

// SetEventConfig attaches or replaces the food RSVP settings of an announcement
func (s *Service) SetEventConfig(ctx context.Context, actor Actor, announcementID int64, in EventConfigInput) (*models.EventConfig, error) {
	if !actor.Role.IsAdmin() {
		return nil, ErrForbidden
	}
	if _, err := s.visibleAnnouncement(ctx, actor.Role, announcementID); err != nil {
		return nil, err
	}
	if in.Deadline.IsZero() || in.EventDate.IsZero() {
		return nil, invalidf("eventDate and deadline are required")
	}
	if len(in.MenuItems) == 0 {
		return nil, invalidf("at least one menu item is required")
	}

	fields := make(models.CustomFields, 0, len(in.CustomFields))
	seen := make(map[string]bool, len(in.CustomFields))
	for _, f := range in.CustomFields {
		f.Key = strings.TrimSpace(f.Key)
		if f.Key == "" {
			return nil, invalidf("custom field key is required")
		}
		if seen[f.Key] {
			return nil, invalidf("duplicate custom field %q", f.Key)
		}
		seen[f.Key] = true
		if f.Label == "" {
			f.Label = f.Key
		}
		fields = append(fields, f)
	}

	cfg := &models.EventConfig{
		AnnouncementID: announcementID,
		EventDate:      in.EventDate,
		Venue:          strings.TrimSpace(in.Venue),
		Deadline:       in.Deadline,
		AllowGuests:    in.AllowGuests,
		CustomFields:   fields,
	}
	for _, m := range in.MenuItems {
		name := strings.TrimSpace(m.Name)
		if name == "" {
			return nil, invalidf("menu item name is required")
		}
		if m.PricePerPlate < 0 {
			return nil, invalidf("price of %q cannot be negative", name)
		}
		cfg.MenuItems = append(cfg.MenuItems, models.MenuItem{ID: m.ID, Name: name, PricePerPlate: m.PricePerPlate})
	}

	saved, err := s.Events.SaveConfig(ctx, cfg)
	if err != nil {
		return nil, configError(err, "menu item")
	}
	return saved, nil
}

// SetSportsConfig attaches or replaces the sports registration settings of an announcement
func (s *Service) SetSportsConfig(ctx context.Context, actor Actor, announcementID int64, in SportsConfigInput) (*models.SportsConfig, error) {
	if !actor.Role.IsAdmin() {
		return nil, ErrForbidden
	}
	if _, err := s.visibleAnnouncement(ctx, actor.Role, announcementID); err != nil {
		return nil, err
	}
	if in.Deadline.IsZero() {
		return nil, invalidf("deadline is required")
	}

	cfg := &models.SportsConfig{AnnouncementID: announcementID, Deadline: in.Deadline, AgeCategories: models.StringList{}}
	for _, c := range in.AgeCategories {
		c = strings.TrimSpace(c)
		if c == "" || cfg.AgeCategories.Contains(c) {
			continue
		}
		cfg.AgeCategories = append(cfg.AgeCategories, c)
	}
	if len(cfg.AgeCategories) == 0 {
		return nil, invalidf("at least one age category is required")
	}
	if len(in.SportItems) == 0 {
		return nil, invalidf("at least one sport is required")
	}
	for _, it := range in.SportItems {
		name := strings.TrimSpace(it.Name)
		if name == "" {
			return nil, invalidf("sport name is required")
		}
		if it.Fee < 0 {
			return nil, invalidf("fee of %q cannot be negative", name)
		}
		cfg.SportItems = append(cfg.SportItems, models.SportItem{ID: it.ID, Name: name, Fee: it.Fee})
	}

	saved, err := s.Sports.SaveConfig(ctx, cfg)
	if err != nil {
		return nil, configError(err, "sport")
	}
	return saved, nil
}

// configError explains why a menu or sports list could not be reconciled
func configError(err error, what string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return invalidf("a %s id does not belong to this event", what)
	case errors.Is(err, repository.ErrInUse):
		return invalidf("a %s that already has orders cannot be removed", what)
	}
	return fmt.Errorf("failed to save %s list: %w", what, err)
}
