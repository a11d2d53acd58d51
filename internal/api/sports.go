package api

import (
	"net/http"

	"github.com/Kerhoff/ResidentHub/internal/service"
)

func (s *Server) handleGetSports(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireID(w, r, "event")
	if !ok {
		return
	}
	view, err := s.svc.GetSportsRegistration(r.Context(), caller(r), id)
	if err != nil {
		s.respondServiceError(w, r, err, "failed to get sports registration")
		return
	}
	s.respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleSubmitSports(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireID(w, r, "event")
	if !ok {
		return
	}
	var req service.SportsRegistrationInput
	if !s.bind(w, r, &req) {
		return
	}
	if _, err := s.svc.SubmitSportsRegistration(r.Context(), caller(r), id, req); err != nil {
		s.respondServiceError(w, r, err, "failed to save sports registration")
		return
	}

	view, err := s.svc.GetSportsRegistration(r.Context(), caller(r), id)
	if err != nil {
		s.respondServiceError(w, r, err, "failed to get sports registration")
		return
	}
	s.respondJSON(w, http.StatusOK, view)
}

func (s *Server) handleCancelSports(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireID(w, r, "event")
	if !ok {
		return
	}
	if err := s.svc.CancelSportsRegistration(r.Context(), caller(r), id); err != nil {
		s.respondServiceError(w, r, err, "failed to cancel sports registration")
		return
	}
	s.respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleSportsRegistrations(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireID(w, r, "event")
	if !ok {
		return
	}
	report, err := s.svc.SportsRegistrations(r.Context(), caller(r), id)
	if err != nil {
		s.respondServiceError(w, r, err, "failed to list sports registrations")
		return
	}
	s.respondJSON(w, http.StatusOK, report)
}
