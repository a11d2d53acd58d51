package api

import (
	"context"
	"net/http"

	"github.com/Kerhoff/ResidentHub/internal/service"
)

type paidRequest struct {
	Paid *bool `json:"paid" validate:"required"`
}

type guestRsvpResponse struct {
	ID       int64  `json:"id"`
	PassCode string `json:"passCode"`
	Plates   int    `json:"totalPlates"`
	Amount   int64  `json:"totalAmount"`
}

// ---------------------------------------------------------------------------
// Event RSVP
// ---------------------------------------------------------------------------

func (s *Server) handleGetRsvp(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireID(w, r, "event")
	if !ok {
		return
	}
	view, err := s.svc.GetRsvp(r.Context(), caller(r), id)
	if err != nil {
		s.respondServiceError(w, r, err, "failed to get rsvp")
		return
	}
	s.respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleSubmitRsvp(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireID(w, r, "event")
	if !ok {
		return
	}
	var req service.RsvpInput
	if !s.bind(w, r, &req) {
		return
	}
	if _, err := s.svc.SubmitRsvp(r.Context(), caller(r), id, req); err != nil {
		s.respondServiceError(w, r, err, "failed to save rsvp")
		return
	}

	view, err := s.svc.GetRsvp(r.Context(), caller(r), id)
	if err != nil {
		s.respondServiceError(w, r, err, "failed to get rsvp")
		return
	}
	s.respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleCancelRsvp(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireID(w, r, "event")
	if !ok {
		return
	}
	if err := s.svc.CancelRsvp(r.Context(), caller(r), id); err != nil {
		s.respondServiceError(w, r, err, "failed to cancel rsvp")
		return
	}
	s.respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleSubmitGuestRsvp(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireID(w, r, "event")
	if !ok {
		return
	}
	var req service.GuestRsvpInput
	if !s.bind(w, r, &req) {
		return
	}
	g, err := s.svc.SubmitGuestRsvp(r.Context(), id, req)
	if err != nil {
		s.respondServiceError(w, r, err, "failed to save guest rsvp")
		return
	}
	s.respondJSON(w, http.StatusCreated, guestRsvpResponse{
		ID:       g.ID,
		PassCode: g.PassCode(),
		Plates:   g.Plates(),
		Amount:   g.Amount(),
	})
}

func (s *Server) handleEventRsvps(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireID(w, r, "event")
	if !ok {
		return
	}
	report, err := s.svc.EventRsvps(r.Context(), caller(r), id)
	if err != nil {
		s.respondServiceError(w, r, err, "failed to list rsvps")
		return
	}
	s.respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleSetRsvpPaid(w http.ResponseWriter, r *http.Request) {
	s.setPaid(w, r, "rsvp", s.svc.SetRsvpPaid)
}

func (s *Server) handleSetGuestRsvpPaid(w http.ResponseWriter, r *http.Request) {
	s.setPaid(w, r, "guest rsvp", s.svc.SetGuestRsvpPaid)
}

func (s *Server) handleSetSportsPaid(w http.ResponseWriter, r *http.Request) {
	s.setPaid(w, r, "registration", s.svc.SetSportsPaid)
}

// setPaid toggles a payment flag; these admin updates are not deadline gated
func (s *Server) setPaid(w http.ResponseWriter, r *http.Request, what string,
	set func(ctx context.Context, actor service.Actor, id int64, paid bool) error) {
	id, ok := s.requireID(w, r, what)
	if !ok {
		return
	}
	var req paidRequest
	if !s.bind(w, r, &req) {
		return
	}
	if err := set(r.Context(), caller(r), id, *req.Paid); err != nil {
		s.respondServiceError(w, r, err, "failed to update "+what+" payment")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"id": id, "paid": *req.Paid})
}
