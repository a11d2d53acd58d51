package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/ResidentHub/internal/models"
	"github.com/Kerhoff/ResidentHub/internal/repository"
)

// IssueInput reports a maintenance issue
type IssueInput struct {
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description" validate:"required"`
	Category    string `json:"category" validate:"max=64"`
	Location    string `json:"location" validate:"max=255"`
}

// IssueUpdate closes an issue; status must be CLOSED
type IssueUpdate struct {
	Status  models.IssueStatus `json:"status" validate:"required"`
	Comment string             `json:"comment"`
}

// CreateIssue records an OPEN issue reported by the actor
func (s *Service) CreateIssue(ctx context.Context, actor Actor, in IssueInput) (*models.Issue, error) {
	title := strings.TrimSpace(in.Title)
	desc := strings.TrimSpace(in.Description)
	if title == "" || desc == "" {
		return nil, invalidf("title and description are required")
	}
	issue, err := s.Issues.Create(ctx, &models.Issue{
		Title:       title,
		Description: desc,
		Category:    strings.TrimSpace(in.Category),
		Location:    strings.TrimSpace(in.Location),
		ReporterID:  actor.ResidentID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create issue: %w", err)
	}
	s.logger.WithFields(logrus.Fields{"issue_id": issue.ID, "resident_id": actor.ResidentID}).Info("Issue reported")
	return issue, nil
}

// ListIssues returns the actor's own issues, or every issue for roles that close them
func (s *Service) ListIssues(ctx context.Context, actor Actor, status *models.IssueStatus) ([]*models.Issue, error) {
	filters := repository.IssueFilters{Status: status, Limit: 200}
	if !actor.Role.CanCloseIssues() {
		id := actor.ResidentID
		filters.ReporterID = &id
	}
	list, err := s.Issues.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list issues: %w", err)
	}
	if list == nil {
		list = []*models.Issue{}
	}
	return list, nil
}

// GetIssue returns an issue to its reporter or to roles that close issues
func (s *Service) GetIssue(ctx context.Context, actor Actor, id int64) (*models.Issue, error) {
	issue, err := s.Issues.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get issue %d: %w", id, err)
	}
	if issue == nil {
		return nil, ErrNotFound
	}
	if issue.ReporterID != actor.ResidentID && !actor.Role.CanCloseIssues() {
		return nil, ErrForbidden
	}
	return issue, nil
}

// CloseIssue moves an OPEN issue to CLOSED with a mandatory comment and notifies the reporter
func (s *Service) CloseIssue(ctx context.Context, actor Actor, id int64, in IssueUpdate) (*models.Issue, error) {
	if in.Status != models.IssueStatusClosed {
		return nil, invalidf("issues can only be moved to %s", models.IssueStatusClosed)
	}
	if !actor.Role.CanCloseIssues() {
		return nil, ErrForbidden
	}
	comment := strings.TrimSpace(in.Comment)
	if comment == "" {
		return nil, invalidf("a closure comment is required")
	}

	issue, err := s.GetIssue(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !issue.IsOpen() {
		return nil, withDetail(ErrInvalidTransition, "issue is already closed")
	}

	at := s.now()
	n := models.NewNotification(issue.ReporterID, models.NotificationIssue, issue.ID,
		fmt.Sprintf("Your issue %q was closed: %s", issue.Title, comment))
	if err := s.Issues.Close(ctx, id, actor.ResidentID, comment, at, n); err != nil {
		return nil, fmt.Errorf("failed to close issue %d: %w", id, translate(err))
	}

	closer := actor.ResidentID
	issue.Status = models.IssueStatusClosed
	issue.ClosedByID = &closer
	issue.ClosedAt = &at
	issue.ClosureComment = comment
	s.logger.WithFields(logrus.Fields{"issue_id": id, "actor_id": actor.ResidentID}).Info("Issue closed")
	return issue, nil
}
