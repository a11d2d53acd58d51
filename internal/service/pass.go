package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/ResidentHub/internal/delivery"
	"github.com/Kerhoff/ResidentHub/internal/models"
)

// PassChannel names a way of sending a pass to its holder
type PassChannel string

const (
	ChannelEmail    PassChannel = "email"
	ChannelWhatsApp PassChannel = "whatsapp"
)

// QRSize is the edge length in pixels of rendered pass QR codes
const QRSize = 256

// LookupPass resolves a pass code to its printable view without access checks.
// Malformed codes are reported as not found.
func (s *Service) LookupPass(ctx context.Context, code string) (*models.Pass, error) {
	pc, err := models.ParsePassCode(code)
	if err != nil {
		return nil, ErrNotFound
	}

	switch pc.Kind {
	case models.PassKindResident:
		rsvp, err := s.Rsvps.GetByID(ctx, pc.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get rsvp %d: %w", pc.ID, err)
		}
		if rsvp == nil {
			return nil, ErrNotFound
		}
		a, cfg, err := s.eventOf(ctx, rsvp.EventConfigID)
		if err != nil {
			return nil, err
		}
		holder, err := s.Residents.GetByID(ctx, rsvp.ResidentID)
		if err != nil {
			return nil, fmt.Errorf("failed to get resident %d: %w", rsvp.ResidentID, err)
		}
		return residentPass(a, cfg, rsvp, holder), nil
	default:
		g, err := s.GuestRsvps.GetByID(ctx, pc.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to get guest rsvp %d: %w", pc.ID, err)
		}
		if g == nil {
			return nil, ErrNotFound
		}
		a, cfg, err := s.eventOf(ctx, g.EventConfigID)
		if err != nil {
			return nil, err
		}
		return guestPass(a, cfg, g), nil
	}
}

func (s *Service) eventOf(ctx context.Context, eventConfigID int64) (*models.Announcement, *models.EventConfig, error) {
	cfg, err := s.Events.GetConfigByID(ctx, eventConfigID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get event config %d: %w", eventConfigID, err)
	}
	if cfg == nil {
		return nil, nil, ErrNotFound
	}
	a, err := s.Announcements.GetByID(ctx, cfg.AnnouncementID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get announcement %d: %w", cfg.AnnouncementID, err)
	}
	if a == nil {
		return nil, nil, ErrNotFound
	}
	return a, cfg, nil
}

func residentPass(a *models.Announcement, cfg *models.EventConfig, r *models.Rsvp, holder *models.Resident) *models.Pass {
	residentID := r.ResidentID
	p := &models.Pass{
		Code:        r.PassCode(),
		Kind:        models.PassKindResident,
		ResidentID:  &residentID,
		EventTitle:  a.Title,
		EventDate:   cfg.EventDate,
		Venue:       cfg.Venue,
		Items:       r.Items,
		TotalPlates: r.Plates(),
		TotalAmount: r.Amount(),
		Paid:        r.Paid,
		Attended:    r.Attended,
		AttendedAt:  r.AttendedAt,
	}
	if holder != nil {
		p.HolderName = holder.DisplayName()
		p.Email = holder.Email
		p.Phone = holder.Phone
		p.Flat = holder.Flat.Label()
	}
	return p
}

func guestPass(a *models.Announcement, cfg *models.EventConfig, g *models.GuestRsvp) *models.Pass {
	return &models.Pass{
		Code:        g.PassCode(),
		Kind:        models.PassKindGuest,
		HolderName:  g.Name,
		Email:       g.Email,
		Phone:       g.Phone,
		EventTitle:  a.Title,
		EventDate:   cfg.EventDate,
		Venue:       cfg.Venue,
		Items:       g.Items,
		TotalPlates: g.Plates(),
		TotalAmount: g.Amount(),
		Paid:        g.Paid,
		Attended:    g.Attended,
		AttendedAt:  g.AttendedAt,
	}
}

// authorizePass lets anyone see guest passes; resident passes need the owner or staff
func authorizePass(actor *Actor, pass *models.Pass) error {
	if pass.Kind == models.PassKindGuest {
		return nil
	}
	if actor == nil {
		return ErrUnauthenticated
	}
	if actor.Role.IsStaff() || (pass.ResidentID != nil && *pass.ResidentID == actor.ResidentID) {
		return nil
	}
	return ErrForbidden
}

// GetPass returns a pass the actor may see. actor is nil for anonymous callers.
func (s *Service) GetPass(ctx context.Context, actor *Actor, code string) (*models.Pass, error) {
	pass, err := s.LookupPass(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := authorizePass(actor, pass); err != nil {
		return nil, err
	}
	return pass, nil
}

// PassQR renders the PNG QR code of a pass the actor may see
func (s *Service) PassQR(ctx context.Context, actor *Actor, code string) ([]byte, error) {
	pass, err := s.GetPass(ctx, actor, code)
	if err != nil {
		return nil, err
	}
	png, err := delivery.RenderQR(s.PassURL(pass.Code), QRSize)
	if err != nil {
		return nil, fmt.Errorf("failed to render QR for %s: %w", pass.Code, err)
	}
	return png, nil
}

// MarkAttendance records entry for a pass. Scanning the same pass again
// reports AlreadyAttended with the original time.
func (s *Service) MarkAttendance(ctx context.Context, code string) (*models.AttendanceResult, error) {
	pc, err := models.ParsePassCode(code)
	if err != nil {
		return nil, ErrNotFound
	}

	var (
		at      = s.now()
		already bool
	)
	switch pc.Kind {
	case models.PassKindResident:
		at, already, err = s.Rsvps.MarkAttended(ctx, pc.ID, at)
	default:
		at, already, err = s.GuestRsvps.MarkAttended(ctx, pc.ID, at)
	}
	if err != nil {
		if errors.Is(translate(err), ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to mark %s attended: %w", pc, err)
	}

	s.logger.WithFields(logrus.Fields{"pass_code": pc.String(), "already": already}).Info("Pass scanned")
	return &models.AttendanceResult{Code: pc.String(), AlreadyAttended: already, AttendedAt: at}, nil
}

// SendPass queues a pass for delivery to the holder's stored contact and
// returns before delivery completes.
func (s *Service) SendPass(ctx context.Context, actor *Actor, code string, channel PassChannel) (*models.Pass, error) {
	pass, err := s.GetPass(ctx, actor, code)
	if err != nil {
		return nil, err
	}

	switch channel {
	case ChannelEmail:
		if pass.Email == "" {
			return nil, invalidf("no email address on file for this pass")
		}
	case ChannelWhatsApp:
		if pass.Phone == "" {
			return nil, invalidf("no phone number on file for this pass")
		}
	default:
		return nil, invalidf("unknown delivery channel %q", channel)
	}

	if s.Delivery == nil {
		s.logger.WithField("pass_code", pass.Code).Warnf("Pass delivery is not configured; dropping %s", channel)
		return pass, nil
	}
	if channel == ChannelEmail {
		s.Delivery.DeliverEmail(pass)
	} else {
		s.Delivery.DeliverWhatsApp(pass)
	}
	return pass, nil
}
