package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/ResidentHub/internal/models"
	"github.com/Kerhoff/ResidentHub/internal/repository"
)

// OrderItemInput is one requested menu line
type OrderItemInput struct {
	MenuItemID int64 `json:"menuItemId" validate:"required"`
	Plates     int   `json:"plates" validate:"min=0,max=50"`
}

// RsvpInput creates or replaces a resident's RSVP
type RsvpInput struct {
	Items     []OrderItemInput  `json:"items" validate:"required,min=1,dive"`
	Responses map[string]string `json:"responses"`
}

// GuestRsvpInput is an RSVP placed without an account
type GuestRsvpInput struct {
	Name      string            `json:"name" validate:"required,max=255"`
	Email     string            `json:"email" validate:"required,email,max=320"`
	Phone     string            `json:"phone" validate:"max=32"`
	Items     []OrderItemInput  `json:"items" validate:"required,min=1,dive"`
	Responses map[string]string `json:"responses"`
}

// RsvpView is what a resident sees on an event page
type RsvpView struct {
	Announcement   *models.Announcement `json:"announcement"`
	Event          *models.EventConfig  `json:"event"`
	Rsvp           *models.Rsvp         `json:"rsvp"`
	PassCode       string               `json:"passCode,omitempty"`
	TotalPlates    int                  `json:"totalPlates"`
	TotalAmount    int64                `json:"totalAmount"`
	DeadlinePassed bool                 `json:"deadlinePassed"`
}

// RsvpReport is the administrator view of an event's orders
type RsvpReport struct {
	Event   *models.EventConfig `json:"event"`
	Title   string              `json:"title"`
	Rsvps   []*models.Rsvp      `json:"rsvps"`
	Guests  []*models.GuestRsvp `json:"guests"`
	Summary RsvpSummary         `json:"summary"`
}

// loadEvent returns the announcement and event configuration behind an event page
func (s *Service) loadEvent(ctx context.Context, role models.Role, announcementID int64) (*models.Announcement, *models.EventConfig, error) {
	a, err := s.visibleAnnouncement(ctx, role, announcementID)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := s.Events.GetConfig(ctx, announcementID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get event config: %w", err)
	}
	if cfg == nil {
		return nil, nil, ErrNotFound
	}
	return a, cfg, nil
}

// GetRsvp returns the event, its menu and the caller's RSVP (nil when none)
func (s *Service) GetRsvp(ctx context.Context, actor Actor, announcementID int64) (*RsvpView, error) {
	a, cfg, err := s.loadEvent(ctx, actor.Role, announcementID)
	if err != nil {
		return nil, err
	}
	rsvp, err := s.Rsvps.GetByResident(ctx, cfg.ID, actor.ResidentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get rsvp: %w", err)
	}

	view := &RsvpView{Announcement: a, Event: cfg, Rsvp: rsvp, DeadlinePassed: cfg.DeadlinePassed(s.now())}
	if rsvp != nil {
		view.PassCode = rsvp.PassCode()
		view.TotalPlates = rsvp.Plates()
		view.TotalAmount = rsvp.Amount()
	}
	return view, nil
}

// SubmitRsvp creates or replaces the caller's RSVP while the deadline is open
func (s *Service) SubmitRsvp(ctx context.Context, actor Actor, announcementID int64, in RsvpInput) (*models.Rsvp, error) {
	_, cfg, err := s.loadEvent(ctx, actor.Role, announcementID)
	if err != nil {
		return nil, err
	}
	if cfg.DeadlinePassed(s.now()) {
		return nil, ErrDeadlinePassed
	}
	items, responses, err := priceOrder(cfg, in.Items, in.Responses)
	if err != nil {
		return nil, err
	}

	rsvp, err := s.Rsvps.Upsert(ctx, &models.Rsvp{
		EventConfigID: cfg.ID,
		ResidentID:    actor.ResidentID,
		Responses:     responses,
		Items:         items,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save rsvp: %w", translate(err))
	}
	rsvp.Items = items

	s.logger.WithFields(logrus.Fields{
		"resident_id": actor.ResidentID,
		"event_id":    cfg.ID,
		"pass_code":   rsvp.PassCode(),
		"plates":      rsvp.Plates(),
	}).Info("RSVP saved")
	return rsvp, nil
}

// CancelRsvp deletes the caller's RSVP while the deadline is open
func (s *Service) CancelRsvp(ctx context.Context, actor Actor, announcementID int64) error {
	_, cfg, err := s.loadEvent(ctx, actor.Role, announcementID)
	if err != nil {
		return err
	}
	if cfg.DeadlinePassed(s.now()) {
		return ErrDeadlinePassed
	}
	rsvp, err := s.Rsvps.GetByResident(ctx, cfg.ID, actor.ResidentID)
	if err != nil {
		return fmt.Errorf("failed to get rsvp: %w", err)
	}
	if rsvp == nil {
		return ErrNotFound
	}
	if err := s.Rsvps.Delete(ctx, rsvp.ID); err != nil {
		return fmt.Errorf("failed to delete rsvp %d: %w", rsvp.ID, translate(err))
	}
	return nil
}

// SubmitGuestRsvp records an RSVP for a non-resident and emails the pass.
// A second RSVP with the same email for the same event is a conflict.
func (s *Service) SubmitGuestRsvp(ctx context.Context, announcementID int64, in GuestRsvpInput) (*models.GuestRsvp, error) {
	a, cfg, err := s.loadEvent(ctx, "", announcementID)
	if err != nil {
		return nil, err
	}
	if !cfg.AllowGuests {
		return nil, ErrForbidden
	}
	if cfg.DeadlinePassed(s.now()) {
		return nil, ErrDeadlinePassed
	}

	name := strings.TrimSpace(in.Name)
	email := models.NormalizeEmail(in.Email)
	if name == "" || email == "" {
		return nil, invalidf("name and email are required")
	}
	items, responses, err := priceOrder(cfg, in.Items, in.Responses)
	if err != nil {
		return nil, err
	}

	g, err := s.GuestRsvps.Create(ctx, &models.GuestRsvp{
		EventConfigID: cfg.ID,
		Name:          name,
		Email:         email,
		Phone:         strings.TrimSpace(in.Phone),
		Responses:     responses,
		Items:         items,
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, withDetail(ErrConflict, "%s already has an RSVP for this event", email)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to save guest rsvp: %w", translate(err))
	}
	g.Items = items

	s.logger.WithFields(logrus.Fields{"event_id": cfg.ID, "pass_code": g.PassCode()}).Info("Guest RSVP saved")
	if s.Delivery != nil {
		s.Delivery.DeliverEmail(guestPass(a, cfg, g))
	}
	return g, nil
}

// priceOrder checks an order against the event menu and custom fields and
// returns the priced lines with zero-plate lines dropped.
func priceOrder(cfg *models.EventConfig, in []OrderItemInput, answers map[string]string) ([]models.RsvpItem, models.Responses, error) {
	items := make([]models.RsvpItem, 0, len(in))
	seen := make(map[int64]bool, len(in))
	total := 0
	for _, line := range in {
		menu := cfg.MenuItem(line.MenuItemID)
		if menu == nil {
			return nil, nil, invalidf("menu item %d does not belong to this event", line.MenuItemID)
		}
		if seen[line.MenuItemID] {
			return nil, nil, invalidf("menu item %q is listed twice", menu.Name)
		}
		seen[line.MenuItemID] = true
		if line.Plates < 0 || line.Plates > models.MaxPlatesPerItem {
			return nil, nil, invalidf("plates for %q must be between 0 and %d", menu.Name, models.MaxPlatesPerItem)
		}
		if line.Plates == 0 {
			continue
		}
		total += line.Plates
		items = append(items, models.RsvpItem{
			MenuItemID:    menu.ID,
			Plates:        line.Plates,
			Name:          menu.Name,
			PricePerPlate: menu.PricePerPlate,
		})
	}
	if total < 1 {
		return nil, nil, invalidf("order at least one plate")
	}

	responses := models.Responses{}
	for _, f := range cfg.CustomFields {
		v := strings.TrimSpace(answers[f.Key])
		if f.Required && v == "" {
			return nil, nil, invalidf("%s is required", f.Label)
		}
		if v != "" {
			responses[f.Key] = v
		}
	}
	return items, responses, nil
}

// EventRsvps lists every resident and guest RSVP of an event with freshly computed totals
func (s *Service) EventRsvps(ctx context.Context, actor Actor, announcementID int64) (*RsvpReport, error) {
	if !actor.Role.IsAdmin() {
		return nil, ErrForbidden
	}
	a, cfg, err := s.loadEvent(ctx, actor.Role, announcementID)
	if err != nil {
		return nil, err
	}
	rsvps, err := s.Rsvps.ListByEvent(ctx, cfg.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rsvps: %w", err)
	}
	guests, err := s.GuestRsvps.ListByEvent(ctx, cfg.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list guest rsvps: %w", err)
	}
	if rsvps == nil {
		rsvps = []*models.Rsvp{}
	}
	if guests == nil {
		guests = []*models.GuestRsvp{}
	}

	return &RsvpReport{
		Event:   cfg,
		Title:   a.Title,
		Rsvps:   rsvps,
		Guests:  guests,
		Summary: SummarizeRsvps(cfg, rsvps, guests),
	}, nil
}

// SetRsvpPaid toggles the payment flag of a resident RSVP. It is not deadline gated.
func (s *Service) SetRsvpPaid(ctx context.Context, actor Actor, id int64, paid bool) error {
	if !actor.Role.IsAdmin() {
		return ErrForbidden
	}
	if err := s.Rsvps.SetPaid(ctx, id, paid); err != nil {
		return fmt.Errorf("failed to set rsvp %d paid: %w", id, translate(err))
	}
	return nil
}

// SetGuestRsvpPaid toggles the payment flag of a guest RSVP
func (s *Service) SetGuestRsvpPaid(ctx context.Context, actor Actor, id int64, paid bool) error {
	if !actor.Role.IsAdmin() {
		return ErrForbidden
	}
	if err := s.GuestRsvps.SetPaid(ctx, id, paid); err != nil {
		return fmt.Errorf("failed to set guest rsvp %d paid: %w", id, translate(err))
	}
	return nil
}
