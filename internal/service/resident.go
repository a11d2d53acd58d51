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

// RegisterInput is the profile a resident submits to join the community
type RegisterInput struct {
	Name       string `json:"name" validate:"required,max=255"`
	Phone      string `json:"phone" validate:"required,max=32"`
	Block      int    `json:"block" validate:"required,min=1,max=4"`
	FlatNumber string `json:"flatNumber" validate:"required,max=16"`
}

// SignIn retrieves the resident for a verified identity, creating an
// unregistered RESIDENT on first sign-in. Role and registration always come
// from the database, never from the identity provider.
func (s *Service) SignIn(ctx context.Context, email, name string) (*models.Resident, error) {
	email = models.NormalizeEmail(email)
	name = strings.TrimSpace(name)
	if email == "" {
		return nil, invalidf("email is required")
	}

	res, err := s.Residents.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to lookup resident (email=%s): %w", email, err)
	}
	if res == nil {
		res, err = s.Residents.Create(ctx, &models.Resident{Email: email, Name: name, Role: models.RoleResident})
		if errors.Is(err, repository.ErrDuplicate) {
			// a concurrent sign-in created the row first
			res, err = s.Residents.GetByEmail(ctx, email)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create resident (email=%s): %w", email, err)
		}
		if res == nil {
			return nil, fmt.Errorf("resident %s vanished after a concurrent sign-in", email)
		}
		s.logger.WithField("resident_id", res.ID).Infof("Created new resident: %s", email)
		return res, nil
	}

	if res.Name == "" && name != "" {
		res.Name = name
		if res, err = s.Residents.UpdateProfile(ctx, res); err != nil {
			return nil, fmt.Errorf("failed to update resident name: %w", err)
		}
	}
	return res, nil
}

// Me returns the resident behind the actor, with flat
func (s *Service) Me(ctx context.Context, actor Actor) (*models.Resident, error) {
	res, err := s.Residents.GetByID(ctx, actor.ResidentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get resident %d: %w", actor.ResidentID, err)
	}
	if res == nil {
		return nil, ErrNotFound
	}
	return res, nil
}

// Register completes a resident's profile and attaches them to a flat
func (s *Service) Register(ctx context.Context, actor Actor, in RegisterInput) (*models.Resident, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	flatNumber := normalizeFlatNumber(in.FlatNumber)
	if in.Name == "" {
		return nil, invalidf("name is required")
	}
	if in.Block < models.MinBlock || in.Block > models.MaxBlock {
		return nil, invalidf("block must be between %d and %d", models.MinBlock, models.MaxBlock)
	}
	if flatNumber == "" {
		return nil, invalidf("flatNumber is required")
	}

	res, err := s.Me(ctx, actor)
	if err != nil {
		return nil, err
	}
	flat, err := s.Flats.Ensure(ctx, in.Block, flatNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure flat: %w", err)
	}

	res.Name = in.Name
	res.Phone = in.Phone
	res.FlatID = &flat.ID
	res.Flat = flat
	res.Registered = true
	if res, err = s.Residents.UpdateProfile(ctx, res); err != nil {
		return nil, fmt.Errorf("failed to register resident %d: %w", actor.ResidentID, translate(err))
	}

	s.logger.WithFields(logrus.Fields{"resident_id": res.ID, "flat": flat.Label()}).Info("Resident registered")
	return res, nil
}

// ListResidents lists residents for administrators
func (s *Service) ListResidents(ctx context.Context, actor Actor, filters repository.ResidentFilters) ([]*models.Resident, error) {
	if !actor.Role.IsAdmin() {
		return nil, ErrForbidden
	}
	if filters.Role != nil && !filters.Role.Valid() {
		return nil, invalidf("unknown role %q", *filters.Role)
	}
	list, err := s.Residents.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list residents: %w", err)
	}
	if list == nil {
		list = []*models.Resident{}
	}
	return list, nil
}

// AssignRole changes a resident's role. ADMIN manages the non-admin roles;
// only SUPERADMIN grants or revokes ADMIN and SUPERADMIN.
func (s *Service) AssignRole(ctx context.Context, actor Actor, residentID int64, role models.Role) (*models.Resident, error) {
	if !actor.Role.IsAdmin() {
		return nil, ErrForbidden
	}
	if !role.Valid() {
		return nil, invalidf("unknown role %q", role)
	}
	if residentID == actor.ResidentID {
		return nil, invalidf("you cannot change your own role")
	}

	target, err := s.Residents.GetByID(ctx, residentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get resident %d: %w", residentID, err)
	}
	if target == nil {
		return nil, ErrNotFound
	}
	if (role.IsAdmin() || target.Role.IsAdmin()) && actor.Role != models.RoleSuperAdmin {
		return nil, ErrForbidden
	}
	if target.Role == role {
		return target, nil
	}

	if err := s.Residents.UpdateRole(ctx, residentID, role); err != nil {
		return nil, fmt.Errorf("failed to update role of resident %d: %w", residentID, translate(err))
	}
	s.logger.WithFields(logrus.Fields{
		"resident_id": residentID,
		"actor_id":    actor.ResidentID,
		"from":        target.Role,
		"to":          role,
	}).Info("Resident role changed")

	target.Role = role
	return target, nil
}

func normalizeFlatNumber(n string) string {
	return strings.ToUpper(strings.TrimSpace(n))
}
