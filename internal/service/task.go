package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/ResidentHub/internal/models"
	"github.com/Kerhoff/ResidentHub/internal/repository"
)

// TaskInput creates a task on the facility board
type TaskInput struct {
	Title       string              `json:"title" validate:"required,max=255"`
	Description string              `json:"description"`
	Priority    models.TaskPriority `json:"priority"`
	DueDate     *time.Time          `json:"dueDate"`
	OwnerID     int64               `json:"ownerId" validate:"required"`
}

// TaskUpdate moves a task along the status machine
type TaskUpdate struct {
	Status  models.TaskStatus `json:"status" validate:"required"`
	Comment string            `json:"comment"`
}

// CommentInput adds a free-form comment to a task
type CommentInput struct {
	Body string `json:"body" validate:"required"`
}

// CreateTask assigns a new OPEN task to a facility manager or administrator and notifies the owner
func (s *Service) CreateTask(ctx context.Context, actor Actor, in TaskInput) (*models.Task, error) {
	if !actor.Role.IsAdmin() {
		return nil, ErrForbidden
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, invalidf("title is required")
	}
	if in.Priority == "" {
		in.Priority = models.TaskPriorityMedium
	}
	if !in.Priority.Valid() {
		return nil, invalidf("unknown priority %q", in.Priority)
	}

	owner, err := s.Residents.GetByID(ctx, in.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get resident %d: %w", in.OwnerID, err)
	}
	if owner == nil {
		return nil, invalidf("owner %d does not exist", in.OwnerID)
	}
	if !owner.Role.CanOwnTasks() {
		return nil, invalidf("tasks can only be assigned to facility managers and administrators")
	}

	task := &models.Task{
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Status:      models.TaskStatusOpen,
		Priority:    in.Priority,
		DueDate:     in.DueDate,
		CreatorID:   actor.ResidentID,
		OwnerID:     owner.ID,
	}
	var n *models.Notification
	if owner.ID != actor.ResidentID {
		n = &models.Notification{
			ResidentID: owner.ID,
			Kind:       models.NotificationTask,
			Message:    "New task assigned to you: " + title,
		}
	}

	if task, err = s.Tasks.Create(ctx, task, n); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", translate(err))
	}
	s.logger.WithFields(logrus.Fields{"task_id": task.ID, "owner_id": owner.ID}).Info("Task created")
	return task, nil
}

// ListTasks returns every task for administrators and the owned tasks for facility managers
func (s *Service) ListTasks(ctx context.Context, actor Actor, status *models.TaskStatus) ([]*models.Task, error) {
	if status != nil && !status.Valid() {
		return nil, invalidf("unknown task status %q", *status)
	}
	filters := repository.TaskFilters{Status: status, Limit: 200}
	switch {
	case actor.Role.IsAdmin():
	case actor.Role == models.RoleFacilityManager:
		id := actor.ResidentID
		filters.OwnerID = &id
	default:
		return nil, ErrForbidden
	}

	tasks, err := s.Tasks.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	if tasks == nil {
		tasks = []*models.Task{}
	}
	return tasks, nil
}

func (s *Service) visibleTask(ctx context.Context, actor Actor, id int64) (*models.Task, error) {
	task, err := s.Tasks.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get task %d: %w", id, err)
	}
	if task == nil {
		return nil, ErrNotFound
	}
	if !actor.Role.IsAdmin() && !task.Involves(actor.ResidentID) {
		return nil, ErrForbidden
	}
	return task, nil
}

// GetTask returns a task with its comment history to its owner, its creator or an administrator
func (s *Service) GetTask(ctx context.Context, actor Actor, id int64) (*models.Task, error) {
	task, err := s.visibleTask(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if task.Comments, err = s.Tasks.ListComments(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to list comments of task %d: %w", id, err)
	}
	return task, nil
}

// UpdateTaskStatus applies one transition of the status machine, recording an
// audit comment and notifying the other party in the same transaction.
func (s *Service) UpdateTaskStatus(ctx context.Context, actor Actor, id int64, in TaskUpdate) (*models.Task, error) {
	if !in.Status.Valid() {
		return nil, invalidf("unknown task status %q", in.Status)
	}
	task, err := s.visibleTask(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	from, to := task.Status, in.Status
	if !models.CanTransition(from, to, actor.Role) {
		if models.CanTransition(from, to, models.RoleAdmin) {
			return nil, ErrForbidden
		}
		return nil, withDetail(ErrInvalidTransition, "a task cannot move from %s to %s", from, to)
	}

	body := strings.TrimSpace(in.Comment)
	if body == "" {
		body = models.DefaultTransitionComment(from, to)
	}
	audit := &models.TaskComment{
		TaskID:     id,
		AuthorID:   actor.ResidentID,
		Kind:       models.TaskCommentStatusChange,
		Body:       body,
		FromStatus: &from,
		ToStatus:   &to,
	}
	var n *models.Notification
	if other := task.OtherParty(actor.ResidentID); other != 0 {
		n = models.NewNotification(other, models.NotificationTask, id,
			fmt.Sprintf("Task %q moved from %s to %s", task.Title, from, to))
	}

	if err := s.Tasks.Transition(ctx, id, from, to, audit, n); err != nil {
		return nil, fmt.Errorf("failed to move task %d: %w", id, translate(err))
	}
	s.logger.WithFields(logrus.Fields{"task_id": id, "from": from, "to": to, "actor_id": actor.ResidentID}).Info("Task status changed")
	return s.GetTask(ctx, actor, id)
}

// AddTaskComment appends a comment and notifies the other party
func (s *Service) AddTaskComment(ctx context.Context, actor Actor, id int64, in CommentInput) (*models.TaskComment, error) {
	body := strings.TrimSpace(in.Body)
	if body == "" {
		return nil, invalidf("comment body is required")
	}
	task, err := s.visibleTask(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	var n *models.Notification
	if other := task.OtherParty(actor.ResidentID); other != 0 {
		n = models.NewNotification(other, models.NotificationTask, id, fmt.Sprintf("New comment on task %q", task.Title))
	}
	c, err := s.Tasks.AddComment(ctx, &models.TaskComment{
		TaskID:   id,
		AuthorID: actor.ResidentID,
		Kind:     models.TaskCommentNote,
		Body:     body,
	}, n)
	if err != nil {
		return nil, fmt.Errorf("failed to comment on task %d: %w", id, translate(err))
	}
	return c, nil
}
