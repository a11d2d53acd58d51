package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/ResidentHub/internal/models"
)

// ParticipantInput is one person entered into a sports event
type ParticipantInput struct {
	Name         string  `json:"name" validate:"required,max=255"`
	AgeCategory  string  `json:"ageCategory" validate:"required"`
	SportItemIDs []int64 `json:"sportItemIds" validate:"required,min=1"`
}

// SportsRegistrationInput creates or replaces a resident's registration
type SportsRegistrationInput struct {
	Participants []ParticipantInput `json:"participants" validate:"required,min=1,dive"`
}

// SportsView is what a resident sees on a sports event page
type SportsView struct {
	Announcement   *models.Announcement       `json:"announcement"`
	Sports         *models.SportsConfig       `json:"sports"`
	Registration   *models.SportsRegistration `json:"registration"`
	TotalFee       int64                      `json:"totalFee"`
	DeadlinePassed bool                       `json:"deadlinePassed"`
}

// SportsReport is the administrator view of a sports event
type SportsReport struct {
	Sports        *models.SportsConfig         `json:"sports"`
	Title         string                       `json:"title"`
	Registrations []*models.SportsRegistration `json:"registrations"`
	Summary       SportsSummary                `json:"summary"`
}

func (s *Service) loadSports(ctx context.Context, role models.Role, announcementID int64) (*models.Announcement, *models.SportsConfig, error) {
	a, err := s.visibleAnnouncement(ctx, role, announcementID)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := s.Sports.GetConfig(ctx, announcementID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get sports config: %w", err)
	}
	if cfg == nil {
		return nil, nil, ErrNotFound
	}
	return a, cfg, nil
}

// GetSportsRegistration returns the sports settings and the caller's registration (nil when none)
func (s *Service) GetSportsRegistration(ctx context.Context, actor Actor, announcementID int64) (*SportsView, error) {
	a, cfg, err := s.loadSports(ctx, actor.Role, announcementID)
	if err != nil {
		return nil, err
	}
	reg, err := s.Sports.GetRegistration(ctx, cfg.ID, actor.ResidentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get sports registration: %w", err)
	}

	view := &SportsView{Announcement: a, Sports: cfg, Registration: reg, DeadlinePassed: cfg.DeadlinePassed(s.now())}
	if reg != nil {
		view.TotalFee = reg.Fee(cfg)
	}
	return view, nil
}

// SubmitSportsRegistration creates or replaces the caller's registration while the deadline is open
func (s *Service) SubmitSportsRegistration(ctx context.Context, actor Actor, announcementID int64, in SportsRegistrationInput) (*models.SportsRegistration, error) {
	_, cfg, err := s.loadSports(ctx, actor.Role, announcementID)
	if err != nil {
		return nil, err
	}
	if cfg.DeadlinePassed(s.now()) {
		return nil, ErrDeadlinePassed
	}
	if len(in.Participants) == 0 {
		return nil, invalidf("add at least one participant")
	}

	reg := &models.SportsRegistration{SportsConfigID: cfg.ID, ResidentID: actor.ResidentID}
	for _, p := range in.Participants {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return nil, invalidf("participant name is required")
		}
		if !cfg.AgeCategories.Contains(p.AgeCategory) {
			return nil, invalidf("unknown age category %q for %s", p.AgeCategory, name)
		}
		if len(p.SportItemIDs) == 0 {
			return nil, invalidf("%s must enter at least one sport", name)
		}
		seen := make(map[int64]bool, len(p.SportItemIDs))
		ids := make([]int64, 0, len(p.SportItemIDs))
		for _, id := range p.SportItemIDs {
			if cfg.SportItem(id) == nil {
				return nil, invalidf("sport %d does not belong to this event", id)
			}
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
		reg.Participants = append(reg.Participants, models.Participant{Name: name, AgeCategory: p.AgeCategory, SportItemIDs: ids})
	}

	saved, err := s.Sports.UpsertRegistration(ctx, reg)
	if err != nil {
		return nil, fmt.Errorf("failed to save sports registration: %w", translate(err))
	}
	s.logger.WithFields(logrus.Fields{
		"resident_id":  actor.ResidentID,
		"sports_id":    cfg.ID,
		"participants": len(saved.Participants),
	}).Info("Sports registration saved")
	return saved, nil
}

// CancelSportsRegistration deletes the caller's registration while the deadline is open
func (s *Service) CancelSportsRegistration(ctx context.Context, actor Actor, announcementID int64) error {
	_, cfg, err := s.loadSports(ctx, actor.Role, announcementID)
	if err != nil {
		return err
	}
	if cfg.DeadlinePassed(s.now()) {
		return ErrDeadlinePassed
	}
	reg, err := s.Sports.GetRegistration(ctx, cfg.ID, actor.ResidentID)
	if err != nil {
		return fmt.Errorf("failed to get sports registration: %w", err)
	}
	if reg == nil {
		return ErrNotFound
	}
	if err := s.Sports.DeleteRegistration(ctx, reg.ID); err != nil {
		return fmt.Errorf("failed to delete sports registration %d: %w", reg.ID, translate(err))
	}
	return nil
}

// SportsRegistrations lists every registration of a sports event with freshly computed totals
func (s *Service) SportsRegistrations(ctx context.Context, actor Actor, announcementID int64) (*SportsReport, error) {
	if !actor.Role.IsAdmin() {
		return nil, ErrForbidden
	}
	a, cfg, err := s.loadSports(ctx, actor.Role, announcementID)
	if err != nil {
		return nil, err
	}
	regs, err := s.Sports.ListRegistrations(ctx, cfg.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sports registrations: %w", err)
	}
	if regs == nil {
		regs = []*models.SportsRegistration{}
	}
	return &SportsReport{Sports: cfg, Title: a.Title, Registrations: regs, Summary: SummarizeSports(cfg, regs)}, nil
}

// SetSportsPaid toggles the payment flag of a registration. It is not deadline gated.
func (s *Service) SetSportsPaid(ctx context.Context, actor Actor, id int64, paid bool) error {
	if !actor.Role.IsAdmin() {
		return ErrForbidden
	}
	if err := s.Sports.SetPaid(ctx, id, paid); err != nil {
		return fmt.Errorf("failed to set sports registration %d paid: %w", id, translate(err))
	}
	return nil
}
