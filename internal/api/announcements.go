package api

import (
	"net/http"

	"github.com/Kerhoff/ResidentHub/internal/service"
)

func (s *Server) handleListAnnouncements(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.ListAnnouncements(r.Context(), caller(r))
	if err != nil {
		s.respondServiceError(w, r, err, "failed to list announcements")
		return
	}
	s.respondJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetAnnouncement(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireID(w, r, "announcement")
	if !ok {
		return
	}
	a, err := s.svc.GetAnnouncement(r.Context(), caller(r), id)
	if err != nil {
		s.respondServiceError(w, r, err, "failed to get announcement")
		return
	}
	s.respondJSON(w, http.StatusOK, a)
}

func (s *Server) handleCreateAnnouncement(w http.ResponseWriter, r *http.Request) {
	var req service.AnnouncementInput
	if !s.bind(w, r, &req) {
		return
	}
	a, err := s.svc.CreateAnnouncement(r.Context(), caller(r), req)
	if err != nil {
		s.respondServiceError(w, r, err, "failed to create announcement")
		return
	}
	s.respondJSON(w, http.StatusCreated, a)
}

func (s *Server) handleUpdateAnnouncement(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireID(w, r, "announcement")
	if !ok {
		return
	}
	var req service.AnnouncementPatch
	if !s.bind(w, r, &req) {
		return
	}
	a, err := s.svc.UpdateAnnouncement(r.Context(), caller(r), id, req)
	if err != nil {
		s.respondServiceError(w, r, err, "failed to update announcement")
		return
	}
	s.respondJSON(w, http.StatusOK, a)
}

func (s *Server) handleDeleteAnnouncement(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireID(w, r, "announcement")
	if !ok {
		return
	}
	if err := s.svc.DeleteAnnouncement(r.Context(), caller(r), id); err != nil {
		s.respondServiceError(w, r, err, "failed to delete announcement")
		return
	}
	s.respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleSetEventConfig(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireID(w, r, "announcement")
	if !ok {
		return
	}
	var req service.EventConfigInput
	if !s.bind(w, r, &req) {
		return
	}
	cfg, err := s.svc.SetEventConfig(r.Context(), caller(r), id, req)
	if err != nil {
		s.respondServiceError(w, r, err, "failed to save event configuration")
		return
	}
	s.respondJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleSetSportsConfig(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireID(w, r, "announcement")
	if !ok {
		return
	}
	var req service.SportsConfigInput
	if !s.bind(w, r, &req) {
		return
	}
	cfg, err := s.svc.SetSportsConfig(r.Context(), caller(r), id, req)
	if err != nil {
		s.respondServiceError(w, r, err, "failed to save sports configuration")
		return
	}
	s.respondJSON(w, http.StatusOK, cfg)
}
