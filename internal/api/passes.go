package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/ResidentHub/internal/auth"
	"github.com/Kerhoff/ResidentHub/internal/metrics"
	"github.com/Kerhoff/ResidentHub/internal/service"
)

type sendPassResponse struct {
	Code    string `json:"code"`
	Channel string `json:"channel"`
	Status  string `json:"status"`
}

func (s *Server) handleGetPass(w http.ResponseWriter, r *http.Request) {
	pass, err := s.svc.GetPass(r.Context(), auth.ActorFrom(r.Context()), r.PathValue("code"))
	if err != nil {
		s.respondServiceError(w, r, err, "failed to get pass")
		return
	}
	s.respondJSON(w, http.StatusOK, pass)
}

func (s *Server) handlePassQR(w http.ResponseWriter, r *http.Request) {
	png, err := s.svc.PassQR(r.Context(), auth.ActorFrom(r.Context()), r.PathValue("code"))
	if err != nil {
		s.respondServiceError(w, r, err, "failed to render pass QR code")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(png); err != nil {
		s.requestLogger(r).WithError(err).Error("failed to write QR code")
	}
}

func (s *Server) handleAttend(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	res, err := s.svc.MarkAttendance(r.Context(), code)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			metrics.PassScansTotal.WithLabelValues("web", "unknown").Inc()
		}
		s.respondServiceError(w, r, err, "failed to mark attendance")
		return
	}

	outcome := "admitted"
	if res.AlreadyAttended {
		outcome = "repeat"
	}
	metrics.PassScansTotal.WithLabelValues("web", outcome).Inc()
	s.requestLogger(r).WithFields(logrus.Fields{"pass_code": res.Code, "outcome": outcome}).Info("pass scanned")
	s.respondJSON(w, http.StatusOK, res)
}

// handleSendPass queues delivery and answers 202 before it completes
func (s *Server) handleSendPass(channel service.PassChannel) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pass, err := s.svc.SendPass(r.Context(), auth.ActorFrom(r.Context()), r.PathValue("code"), channel)
		if err != nil {
			s.respondServiceError(w, r, err, "failed to send pass")
			return
		}
		s.respondJSON(w, http.StatusAccepted, sendPassResponse{Code: pass.Code, Channel: string(channel), Status: "queued"})
	}
}
