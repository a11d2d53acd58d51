package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Kerhoff/ResidentHub/internal/auth"
	"github.com/Kerhoff/ResidentHub/internal/models"
	"github.com/Kerhoff/ResidentHub/internal/repository"
	"github.com/Kerhoff/ResidentHub/internal/service"
)

type createSessionRequest struct {
	IDToken string `json:"idToken" validate:"required"`
}

type sessionResponse struct {
	Resident  *models.Resident `json:"resident"`
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expiresAt"`
}

type assignRoleRequest struct {
	Role models.Role `json:"role" validate:"required"`
}

// issueSession signs a token for res and sets the session cookie
func (s *Server) issueSession(w http.ResponseWriter, r *http.Request, res *models.Resident, status int) {
	token, expires, err := s.tokens.Issue(res)
	if err != nil {
		s.requestLogger(r).WithError(err).Error("failed to issue session")
		s.respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	auth.SetCookie(w, token, expires, s.secureCookies)
	s.respondJSON(w, status, sessionResponse{Resident: res, Token: token, ExpiresAt: expires})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if !s.bind(w, r, &req) {
		return
	}

	identity, err := s.tokens.VerifyIdentity(req.IDToken)
	if err != nil {
		s.requestLogger(r).WithError(err).Info("rejected identity token")
		s.respondError(w, http.StatusUnauthorized, "invalid identity token")
		return
	}

	res, err := s.svc.SignIn(r.Context(), identity.Email, identity.Name)
	if err != nil {
		s.respondServiceError(w, r, err, "failed to sign in")
		return
	}
	s.issueSession(w, r, res, http.StatusOK)
}

func (s *Server) handleRefreshSession(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Me(r.Context(), caller(r))
	if err != nil {
		if statusFor(err) == http.StatusNotFound {
			auth.ClearCookie(w, s.secureCookies)
			s.respondError(w, http.StatusUnauthorized, service.ErrUnauthenticated.Error())
			return
		}
		s.respondServiceError(w, r, err, "failed to refresh session")
		return
	}
	s.issueSession(w, r, res, http.StatusOK)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	auth.ClearCookie(w, s.secureCookies)
	s.respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Me(r.Context(), caller(r))
	if err != nil {
		s.respondServiceError(w, r, err, "failed to get resident")
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterInput
	if !s.bind(w, r, &req) {
		return
	}

	res, err := s.svc.Register(r.Context(), caller(r), req)
	if err != nil {
		s.respondServiceError(w, r, err, "failed to register resident")
		return
	}
	s.issueSession(w, r, res, http.StatusOK)
}

func (s *Server) handleListResidents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filters repository.ResidentFilters

	if role := q.Get("role"); role != "" {
		rl := models.Role(role)
		filters.Role = &rl
	}
	if block := q.Get("block"); block != "" {
		v, err := strconv.Atoi(block)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "block must be an integer")
			return
		}
		filters.Block = &v
	}

	list, err := s.svc.ListResidents(r.Context(), caller(r), filters)
	if err != nil {
		s.respondServiceError(w, r, err, "failed to list residents")
		return
	}
	s.respondJSON(w, http.StatusOK, list)
}

func (s *Server) handleAssignRole(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireID(w, r, "resident")
	if !ok {
		return
	}
	var req assignRoleRequest
	if !s.bind(w, r, &req) {
		return
	}

	res, err := s.svc.AssignRole(r.Context(), caller(r), id, req.Role)
	if err != nil {
		s.respondServiceError(w, r, err, "failed to assign role")
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}
