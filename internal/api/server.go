package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/ResidentHub/internal/auth"
	"github.com/Kerhoff/ResidentHub/internal/metrics"
	"github.com/Kerhoff/ResidentHub/internal/ratelimit"
	"github.com/Kerhoff/ResidentHub/internal/service"
)

// maxBodyBytes caps JSON request bodies
const maxBodyBytes = 1 << 20

// HealthChecker reports whether a backing store is reachable
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// Option configures optional Server collaborators
type Option func(*Server)

// WithRateLimiter throttles the public pass, sign-in and guest RSVP routes
func WithRateLimiter(l ratelimit.Limiter) Option {
	return func(s *Server) { s.limiter = l }
}

// WithHealthCheck makes /healthz ping the given store
func WithHealthCheck(h HealthChecker) Option {
	return func(s *Server) { s.health = h }
}

// WithTrustedProxies lists the proxies whose X-Forwarded-For is believed
func WithTrustedProxies(prefixes []netip.Prefix) Option {
	return func(s *Server) { s.trustedProxies = prefixes }
}

// WithSecureCookies marks session cookies Secure
func WithSecureCookies(secure bool) Option {
	return func(s *Server) { s.secureCookies = secure }
}

// Server provides the JSON API and the printable pass page.
type Server struct {
	svc           *service.Service
	tokens        *auth.Manager
	logger        *logrus.Logger
	mux           *http.ServeMux
	limiter       ratelimit.Limiter
	health        HealthChecker
	secureCookies bool

	trustedProxies []netip.Prefix
}

// NewServer creates a Server, registers all routes, and returns it.
func NewServer(svc *service.Service, tokens *auth.Manager, logger *logrus.Logger, opts ...Option) *Server {
	s := &Server{svc: svc, tokens: tokens, logger: logger, mux: http.NewServeMux()}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

// Handler returns the http.Handler that can be passed to http.Server.
func (s *Server) Handler() http.Handler {
	return s.requestID(s.accessLog(metrics.Middleware(s.mux)))
}

// ---------------------------------------------------------------------------
// Routes
// ---------------------------------------------------------------------------

func (s *Server) routes() {
	// Auth & residents
	s.mux.HandleFunc("POST /api/auth/session", s.limited("auth", s.handleCreateSession))
	s.mux.HandleFunc("POST /api/auth/refresh", s.authenticated(s.handleRefreshSession))
	s.mux.HandleFunc("DELETE /api/auth/session", s.handleDeleteSession)
	s.mux.HandleFunc("GET /api/me", s.authenticated(s.handleGetMe))
	s.mux.HandleFunc("POST /api/residents/register", s.authenticated(s.handleRegister))
	s.mux.HandleFunc("GET /api/admin/residents", s.admin(s.handleListResidents))
	s.mux.HandleFunc("PATCH /api/admin/residents/{id}/role", s.admin(s.handleAssignRole))

	// Announcements
	s.mux.HandleFunc("GET /api/announcements", s.authenticated(s.handleListAnnouncements))
	s.mux.HandleFunc("GET /api/announcements/{id}", s.authenticated(s.handleGetAnnouncement))
	s.mux.HandleFunc("POST /api/admin/announcements", s.admin(s.handleCreateAnnouncement))
	s.mux.HandleFunc("PATCH /api/admin/announcements/{id}", s.admin(s.handleUpdateAnnouncement))
	s.mux.HandleFunc("DELETE /api/admin/announcements/{id}", s.admin(s.handleDeleteAnnouncement))
	s.mux.HandleFunc("PUT /api/admin/announcements/{id}/event", s.admin(s.handleSetEventConfig))
	s.mux.HandleFunc("PUT /api/admin/announcements/{id}/sports", s.admin(s.handleSetSportsConfig))

	// Event RSVP
	s.mux.HandleFunc("GET /api/events/{id}/rsvp", s.registered(s.handleGetRsvp))
	s.mux.HandleFunc("POST /api/events/{id}/rsvp", s.registered(s.handleSubmitRsvp))
	s.mux.HandleFunc("DELETE /api/events/{id}/rsvp", s.registered(s.handleCancelRsvp))
	s.mux.HandleFunc("POST /api/events/{id}/rsvp/guest", s.limited("guest-rsvp", s.handleSubmitGuestRsvp))
	s.mux.HandleFunc("GET /api/admin/events/{id}/rsvps", s.admin(s.handleEventRsvps))
	s.mux.HandleFunc("GET /api/admin/events/{id}/rsvps/export", s.admin(s.handleExportRsvps))
	s.mux.HandleFunc("PATCH /api/admin/rsvps/{id}/paid", s.admin(s.handleSetRsvpPaid))
	s.mux.HandleFunc("PATCH /api/admin/guest-rsvps/{id}/paid", s.admin(s.handleSetGuestRsvpPaid))

	// Sports
	s.mux.HandleFunc("GET /api/events/{id}/sports", s.registered(s.handleGetSports))
	s.mux.HandleFunc("POST /api/events/{id}/sports", s.registered(s.handleSubmitSports))
	s.mux.HandleFunc("DELETE /api/events/{id}/sports", s.registered(s.handleCancelSports))
	s.mux.HandleFunc("GET /api/admin/events/{id}/sports", s.admin(s.handleSportsRegistrations))
	s.mux.HandleFunc("GET /api/admin/events/{id}/sports/export", s.admin(s.handleExportSports))
	s.mux.HandleFunc("PATCH /api/admin/sports-registrations/{id}/paid", s.admin(s.handleSetSportsPaid))

	// Passes
	s.mux.HandleFunc("GET /api/pass/{code}", s.limited("pass", s.optionalAuth(s.handleGetPass)))
	s.mux.HandleFunc("GET /api/pass/{code}/qr", s.limited("pass", s.optionalAuth(s.handlePassQR)))
	s.mux.HandleFunc("POST /api/pass/{code}/attend", s.staff(s.handleAttend))
	s.mux.HandleFunc("POST /api/pass/{code}/email", s.limited("pass", s.optionalAuth(s.handleSendPass(service.ChannelEmail))))
	s.mux.HandleFunc("POST /api/pass/{code}/whatsapp", s.limited("pass", s.optionalAuth(s.handleSendPass(service.ChannelWhatsApp))))
	s.mux.HandleFunc("GET /pass/{code}", s.limited("pass", s.optionalAuth(s.handlePassPage)))

	// Visitors
	s.mux.HandleFunc("POST /api/visitors", s.registered(s.handleCreateVisitor))
	s.mux.HandleFunc("GET /api/visitors", s.registered(s.handleListVisitors))
	s.mux.HandleFunc("GET /api/visitors/{id}", s.registered(s.handleGetVisitor))
	s.mux.HandleFunc("PATCH /api/visitors/{id}", s.registered(s.handleDecideVisitor))

	// Issues
	s.mux.HandleFunc("POST /api/issues", s.registered(s.handleCreateIssue))
	s.mux.HandleFunc("GET /api/issues", s.registered(s.handleListIssues))
	s.mux.HandleFunc("GET /api/issues/{id}", s.registered(s.handleGetIssue))
	s.mux.HandleFunc("PATCH /api/issues/{id}", s.registered(s.handleCloseIssue))

	// Tasks
	s.mux.HandleFunc("POST /api/tasks", s.admin(s.handleCreateTask))
	s.mux.HandleFunc("GET /api/tasks", s.authenticated(s.handleListTasks))
	s.mux.HandleFunc("GET /api/tasks/{id}", s.authenticated(s.handleGetTask))
	s.mux.HandleFunc("PATCH /api/tasks/{id}", s.authenticated(s.handleUpdateTask))
	s.mux.HandleFunc("POST /api/tasks/{id}/comments", s.authenticated(s.handleAddTaskComment))

	// Notifications
	s.mux.HandleFunc("GET /api/notifications", s.authenticated(s.handleListNotifications))
	s.mux.HandleFunc("PATCH /api/notifications/{id}", s.authenticated(s.handleSetNotificationRead))
	s.mux.HandleFunc("POST /api/notifications/read-all", s.authenticated(s.handleMarkAllRead))

	s.mux.HandleFunc("GET /healthz", s.handleHealth)
}

// ---------------------------------------------------------------------------
// JSON helpers
// ---------------------------------------------------------------------------

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.logger.WithError(err).Error("failed to encode JSON response")
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps a service error onto its HTTP status. Only
// unexpected errors are logged; their details never reach the caller.
func (s *Server) respondServiceError(w http.ResponseWriter, r *http.Request, err error, op string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.requestLogger(r).WithError(err).Error(op)
	}
	s.respondError(w, status, service.Describe(err))
}

func statusFor(err error) int {
	var v *service.ValidationError
	switch {
	case errors.As(err, &v),
		errors.Is(err, service.ErrDeadlinePassed),
		errors.Is(err, service.ErrInvalidTransition):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// decodeJSON reads the request body into dst and returns an error message on
// failure.  The caller should return immediately when ok == false.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) (ok bool, errMsg string) {
	if r.Body == nil || r.Body == http.NoBody {
		return false, "request body is empty"
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return false, "request body is empty"
		}
		return false, fmt.Sprintf("invalid JSON: %v", err)
	}
	return true, ""
}

// bind decodes and validates a request body, writing a 400 on failure
func (s *Server) bind(w http.ResponseWriter, r *http.Request, dst any) bool {
	if ok, msg := s.decodeJSON(w, r, dst); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return false
	}
	if msg := validationMessage(dst); msg != "" {
		s.respondError(w, http.StatusBadRequest, msg)
		return false
	}
	return true
}

// pathID extracts the {id} path value and converts it to int64.
func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	if raw == "" {
		return 0, fmt.Errorf("missing id in path")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

// requireID writes a 400 when the {id} path value is not a positive integer
func (s *Server) requireID(w http.ResponseWriter, r *http.Request, what string) (int64, bool) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid "+what+" id")
		return 0, false
	}
	return id, true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health.PingContext(r.Context()); err != nil {
			s.requestLogger(r).WithError(err).Error("health check failed")
			s.respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
