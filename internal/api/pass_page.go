package api

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/Kerhoff/ResidentHub/internal/auth"
	"github.com/Kerhoff/ResidentHub/internal/models"
	"github.com/Kerhoff/ResidentHub/internal/service"
)

//go:embed templates/pass.html
var templateFS embed.FS

var passPage = template.Must(template.ParseFS(templateFS, "templates/pass.html"))

type passPageData struct {
	Pass  *models.Pass
	Error string
}

// handlePassPage renders the printable pass the QR code links to
func (s *Server) handlePassPage(w http.ResponseWriter, r *http.Request) {
	pass, err := s.svc.GetPass(r.Context(), auth.ActorFrom(r.Context()), r.PathValue("code"))

	data := passPageData{Pass: pass}
	status := http.StatusOK
	if err != nil {
		status = statusFor(err)
		if status == http.StatusInternalServerError {
			s.requestLogger(r).WithError(err).Error("failed to get pass")
		}
		data = passPageData{Error: passPageError(status, err)}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := passPage.Execute(w, data); err != nil {
		s.requestLogger(r).WithError(err).Error("failed to execute pass template")
	}
}

func passPageError(status int, err error) string {
	switch status {
	case http.StatusUnauthorized:
		return "Sign in to the portal to view this pass."
	case http.StatusNotFound:
		return "This pass does not exist."
	}
	return service.Describe(err)
}
