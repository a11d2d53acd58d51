package api

import (
	"net/http"
	"strconv"

	"github.com/Kerhoff/ResidentHub/internal/models"
	"github.com/Kerhoff/ResidentHub/internal/service"
)

type decideVisitorRequest struct {
	Status models.VisitorStatus `json:"status" validate:"required"`
}

type readRequest struct {
	Read *bool `json:"read" validate:"required"`
}

// ---------------------------------------------------------------------------
// Visitors
// ---------------------------------------------------------------------------

func (s *Server) handleCreateVisitor(w http.ResponseWriter, r *http.Request) {
	var req service.VisitorInput
	if !s.bind(w, r, &req) {
		return
	}
	v, err := s.svc.CreateVisitor(r.Context(), caller(r), req)
	if err != nil {
		s.respondServiceError(w, r, err, "failed to create visitor")
		return
	}
	s.respondJSON(w, http.StatusCreated, v)
}

func (s *Server) handleListVisitors(w http.ResponseWriter, r *http.Request) {
	var status *models.VisitorStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		st := models.VisitorStatus(raw)
		if !st.Valid() {
			s.respondError(w, http.StatusBadRequest, "unknown visitor status "+strconv.Quote(raw))
			return
		}
		status = &st
	}
	list, err := s.svc.ListVisitors(r.Context(), caller(r), status)
	if err != nil {
		s.respondServiceError(w, r, err, "failed to list visitors")
		return
	}
	s.respondJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetVisitor(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireID(w, r, "visitor")
	if !ok {
		return
	}
	v, err := s.svc.GetVisitor(r.Context(), caller(r), id)
	if err != nil {
		s.respondServiceError(w, r, err, "failed to get visitor")
		return
	}
	s.respondJSON(w, http.StatusOK, v)
}

func (s *Server) handleDecideVisitor(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireID(w, r, "visitor")
	if !ok {
		return
	}
	var req decideVisitorRequest
	if !s.bind(w, r, &req) {
		return
	}
	v, err := s.svc.DecideVisitor(r.Context(), caller(r), id, req.Status)
	if err != nil {
		s.respondServiceError(w, r, err, "failed to update visitor")
		return
	}
	s.respondJSON(w, http.StatusOK, v)
}

// ---------------------------------------------------------------------------
// Issues
// ---------------------------------------------------------------------------

func (s *Server) handleCreateIssue(w http.ResponseWriter, r *http.Request) {
	var req service.IssueInput
	if !s.bind(w, r, &req) {
		return
	}
	issue, err := s.svc.CreateIssue(r.Context(), caller(r), req)
	if err != nil {
		s.respondServiceError(w, r, err, "failed to create issue")
		return
	}
	s.respondJSON(w, http.StatusCreated, issue)
}

func (s *Server) handleListIssues(w http.ResponseWriter, r *http.Request) {
	var status *models.IssueStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		st := models.IssueStatus(raw)
		if st != models.IssueStatusOpen && st != models.IssueStatusClosed {
			s.respondError(w, http.StatusBadRequest, "unknown issue status "+strconv.Quote(raw))
			return
		}
		status = &st
	}
	list, err := s.svc.ListIssues(r.Context(), caller(r), status)
	if err != nil {
		s.respondServiceError(w, r, err, "failed to list issues")
		return
	}
	s.respondJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetIssue(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireID(w, r, "issue")
	if !ok {
		return
	}
	issue, err := s.svc.GetIssue(r.Context(), caller(r), id)
	if err != nil {
		s.respondServiceError(w, r, err, "failed to get issue")
		return
	}
	s.respondJSON(w, http.StatusOK, issue)
}

func (s *Server) handleCloseIssue(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireID(w, r, "issue")
	if !ok {
		return
	}
	var req service.IssueUpdate
	if !s.bind(w, r, &req) {
		return
	}
	issue, err := s.svc.CloseIssue(r.Context(), caller(r), id, req)
	if err != nil {
		s.respondServiceError(w, r, err, "failed to close issue")
		return
	}
	s.respondJSON(w, http.StatusOK, issue)
}

// ---------------------------------------------------------------------------
// Tasks
// ---------------------------------------------------------------------------

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req service.TaskInput
	if !s.bind(w, r, &req) {
		return
	}
	task, err := s.svc.CreateTask(r.Context(), caller(r), req)
	if err != nil {
		s.respondServiceError(w, r, err, "failed to create task")
		return
	}
	s.respondJSON(w, http.StatusCreated, task)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	var status *models.TaskStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		st := models.TaskStatus(raw)
		if !st.Valid() {
			s.respondError(w, http.StatusBadRequest, "unknown task status "+strconv.Quote(raw))
			return
		}
		status = &st
	}
	list, err := s.svc.ListTasks(r.Context(), caller(r), status)
	if err != nil {
		s.respondServiceError(w, r, err, "failed to list tasks")
		return
	}
	s.respondJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireID(w, r, "task")
	if !ok {
		return
	}
	task, err := s.svc.GetTask(r.Context(), caller(r), id)
	if err != nil {
		s.respondServiceError(w, r, err, "failed to get task")
		return
	}
	s.respondJSON(w, http.StatusOK, task)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireID(w, r, "task")
	if !ok {
		return
	}
	var req service.TaskUpdate
	if !s.bind(w, r, &req) {
		return
	}
	task, err := s.svc.UpdateTaskStatus(r.Context(), caller(r), id, req)
	if err != nil {
		s.respondServiceError(w, r, err, "failed to update task")
		return
	}
	s.respondJSON(w, http.StatusOK, task)
}

func (s *Server) handleAddTaskComment(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireID(w, r, "task")
	if !ok {
		return
	}
	var req service.CommentInput
	if !s.bind(w, r, &req) {
		return
	}
	c, err := s.svc.AddTaskComment(r.Context(), caller(r), id, req)
	if err != nil {
		s.respondServiceError(w, r, err, "failed to add task comment")
		return
	}
	s.respondJSON(w, http.StatusCreated, c)
}

// ---------------------------------------------------------------------------
// Notifications
// ---------------------------------------------------------------------------

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	unread := false
	if raw := r.URL.Query().Get("unread"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "unread must be true or false")
			return
		}
		unread = v
	}
	list, err := s.svc.ListNotifications(r.Context(), caller(r), unread)
	if err != nil {
		s.respondServiceError(w, r, err, "failed to list notifications")
		return
	}
	s.respondJSON(w, http.StatusOK, list)
}

func (s *Server) handleSetNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, ok := s.requireID(w, r, "notification")
	if !ok {
		return
	}
	var req readRequest
	if !s.bind(w, r, &req) {
		return
	}
	if err := s.svc.SetNotificationRead(r.Context(), caller(r), id, *req.Read); err != nil {
		s.respondServiceError(w, r, err, "failed to update notification")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"id": id, "read": *req.Read})
}

func (s *Server) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.MarkAllNotificationsRead(r.Context(), caller(r))
	if err != nil {
		s.respondServiceError(w, r, err, "failed to mark notifications read")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]int64{"updated": n})
}
