package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/ResidentHub/internal/models"
	"github.com/Kerhoff/ResidentHub/internal/repository"
)

// VisitorInput registers a visitor for a flat
type VisitorInput struct {
	Name       string `json:"name" validate:"required,max=255"`
	Phone      string `json:"phone" validate:"max=32"`
	Purpose    string `json:"purpose" validate:"max=500"`
	Block      int    `json:"block" validate:"required,min=1,max=4"`
	FlatNumber string `json:"flatNumber" validate:"required,max=16"`
}

// residentFlat returns the flat id of the actor, or nil before registration
func (s *Service) residentFlat(ctx context.Context, actor Actor) (*int64, error) {
	res, err := s.Residents.GetByID(ctx, actor.ResidentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get resident %d: %w", actor.ResidentID, err)
	}
	if res == nil {
		return nil, ErrNotFound
	}
	return res.FlatID, nil
}

// canActOnFlat allows staff everywhere and residents on their own flat
func (s *Service) canActOnFlat(ctx context.Context, actor Actor, flatID int64) (bool, error) {
	if actor.Role.IsStaff() {
		return true, nil
	}
	own, err := s.residentFlat(ctx, actor)
	if err != nil {
		return false, err
	}
	return own != nil && *own == flatID, nil
}

// CreateVisitor registers a PENDING visitor and notifies the flat's residents
func (s *Service) CreateVisitor(ctx context.Context, actor Actor, in VisitorInput) (*models.Visitor, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalidf("visitor name is required")
	}
	if in.Block < models.MinBlock || in.Block > models.MaxBlock {
		return nil, invalidf("block must be between %d and %d", models.MinBlock, models.MaxBlock)
	}
	flat, err := s.Flats.Find(ctx, in.Block, normalizeFlatNumber(in.FlatNumber))
	if err != nil {
		return nil, fmt.Errorf("failed to find flat: %w", err)
	}
	if flat == nil {
		return nil, invalidf("no flat B%d-%s is registered", in.Block, normalizeFlatNumber(in.FlatNumber))
	}
	ok, err := s.canActOnFlat(ctx, actor, flat.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden
	}

	v, err := s.Visitors.Create(ctx, &models.Visitor{
		Name:        name,
		Phone:       strings.TrimSpace(in.Phone),
		Purpose:     strings.TrimSpace(in.Purpose),
		FlatID:      flat.ID,
		Status:      models.VisitorStatusPending,
		CreatedByID: actor.ResidentID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create visitor: %w", translate(err))
	}
	v.Flat = flat

	residents, err := s.Residents.ListByFlat(ctx, flat.ID)
	if err != nil {
		s.logger.WithError(err).WithField("visitor_id", v.ID).Error("Failed to list flat residents to notify")
		return v, nil
	}
	msg := fmt.Sprintf("Visitor %s is waiting for approval at %s", v.Name, flat.Label())
	var ns []*models.Notification
	for _, r := range residents {
		if r.ID != actor.ResidentID {
			ns = append(ns, models.NewNotification(r.ID, models.NotificationVisitor, v.ID, msg))
		}
	}
	s.notify(ctx, ns...)

	s.logger.WithFields(logrus.Fields{"visitor_id": v.ID, "flat": flat.Label(), "actor_id": actor.ResidentID}).Info("Visitor registered")
	return v, nil
}

// ListVisitors returns every visitor for staff and the actor's flat visitors otherwise
func (s *Service) ListVisitors(ctx context.Context, actor Actor, status *models.VisitorStatus) ([]*models.Visitor, error) {
	if status != nil && !status.Valid() {
		return nil, invalidf("unknown visitor status %q", *status)
	}
	filters := repository.VisitorFilters{Status: status, Limit: 200}
	if !actor.Role.IsStaff() {
		flatID, err := s.residentFlat(ctx, actor)
		if err != nil {
			return nil, err
		}
		if flatID == nil {
			return []*models.Visitor{}, nil
		}
		filters.FlatID = flatID
	}

	list, err := s.Visitors.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list visitors: %w", err)
	}
	if list == nil {
		list = []*models.Visitor{}
	}
	return list, nil
}

// GetVisitor returns a visitor to staff or to a resident of the target flat
func (s *Service) GetVisitor(ctx context.Context, actor Actor, id int64) (*models.Visitor, error) {
	v, err := s.Visitors.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get visitor %d: %w", id, err)
	}
	if v == nil {
		return nil, ErrNotFound
	}
	ok, err := s.canActOnFlat(ctx, actor, v.FlatID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrForbidden
	}
	return v, nil
}

// DecideVisitor approves or rejects a PENDING visitor exactly once and
// notifies the creator when someone else decided.
func (s *Service) DecideVisitor(ctx context.Context, actor Actor, id int64, status models.VisitorStatus) (*models.Visitor, error) {
	if status != models.VisitorStatusApproved && status != models.VisitorStatusRejected {
		return nil, invalidf("status must be %s or %s", models.VisitorStatusApproved, models.VisitorStatusRejected)
	}
	v, err := s.GetVisitor(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !v.IsPending() {
		return nil, withDetail(ErrInvalidTransition, "visitor is already %s", v.Status)
	}

	at := s.now()
	if err := s.Visitors.Decide(ctx, id, status, actor.ResidentID, at); err != nil {
		return nil, fmt.Errorf("failed to decide visitor %d: %w", id, translate(err))
	}
	decider := actor.ResidentID
	v.Status = status
	v.DecidedByID = &decider
	v.DecidedAt = &at

	if v.CreatedByID != actor.ResidentID {
		msg := fmt.Sprintf("Visitor %s was %s", v.Name, strings.ToLower(string(status)))
		s.notify(ctx, models.NewNotification(v.CreatedByID, models.NotificationVisitor, v.ID, msg))
	}
	s.logger.WithFields(logrus.Fields{"visitor_id": id, "status": status, "actor_id": actor.ResidentID}).Info("Visitor decided")
	return v, nil
}
