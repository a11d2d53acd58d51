package memory

import (
	"context"
	"sort"
	"time"

	"github.com/Kerhoff/ResidentHub/internal/models"
	"github.com/Kerhoff/ResidentHub/internal/repository"
)

type visitorRepository struct{ s *Store }

func (s *Store) visitorCopy(v *models.Visitor) *models.Visitor {
	c := *v
	c.DecidedByID = copyID(v.DecidedByID)
	c.DecidedAt = copyTime(v.DecidedAt)
	flatID := v.FlatID
	c.Flat = s.flatCopy(&flatID)
	return &c
}

func (r *visitorRepository) Create(_ context.Context, v *models.Visitor) (*models.Visitor, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.flats[v.FlatID]; !ok {
		return nil, repository.ErrNotFound
	}
	c := *v
	c.ID = r.s.next("visitors")
	if c.Status == "" {
		c.Status = models.VisitorStatusPending
	}
	c.CreatedAt = r.s.now()
	c.Flat = nil
	r.s.visitors[c.ID] = &c
	return r.s.visitorCopy(&c), nil
}

func (r *visitorRepository) GetByID(_ context.Context, id int64) (*models.Visitor, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if v, ok := r.s.visitors[id]; ok {
		return r.s.visitorCopy(v), nil
	}
	return nil, nil
}

func (r *visitorRepository) List(_ context.Context, filters repository.VisitorFilters) ([]*models.Visitor, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var list []*models.Visitor
	for _, v := range r.s.visitors {
		if filters.FlatID != nil && v.FlatID != *filters.FlatID {
			continue
		}
		if filters.Status != nil && v.Status != *filters.Status {
			continue
		}
		list = append(list, r.s.visitorCopy(v))
	}
	sort.Slice(list, func(i, j int) bool { return newer(list[i].CreatedAt, list[j].CreatedAt, list[i].ID, list[j].ID) })
	return limit(list, filters.Limit), nil
}

// Decide records the decision only while the visitor is still PENDING
func (r *visitorRepository) Decide(_ context.Context, id int64, status models.VisitorStatus, deciderID int64, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	v, ok := r.s.visitors[id]
	if !ok {
		return repository.ErrNotFound
	}
	if !v.IsPending() {
		return repository.ErrStale
	}
	v.Status = status
	v.DecidedByID = &deciderID
	t := at
	v.DecidedAt = &t
	return nil
}

func newer(a, b time.Time, idA, idB int64) bool {
	if !a.Equal(b) {
		return a.After(b)
	}
	return idA > idB
}

type issueRepository struct{ s *Store }

func (s *Store) issueCopy(i *models.Issue) *models.Issue {
	c := *i
	c.ClosedByID = copyID(i.ClosedByID)
	c.ClosedAt = copyTime(i.ClosedAt)
	c.Reporter = s.residentCopy(i.ReporterID)
	return &c
}

func (r *issueRepository) Create(_ context.Context, issue *models.Issue) (*models.Issue, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.residents[issue.ReporterID]; !ok {
		return nil, repository.ErrNotFound
	}
	c := *issue
	c.ID = r.s.next("issues")
	c.Status = models.IssueStatusOpen
	c.CreatedAt = r.s.now()
	c.UpdatedAt = c.CreatedAt
	c.Reporter = nil
	r.s.issues[c.ID] = &c
	return r.s.issueCopy(&c), nil
}

func (r *issueRepository) GetByID(_ context.Context, id int64) (*models.Issue, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if i, ok := r.s.issues[id]; ok {
		return r.s.issueCopy(i), nil
	}
	return nil, nil
}

func (r *issueRepository) List(_ context.Context, filters repository.IssueFilters) ([]*models.Issue, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var list []*models.Issue
	for _, i := range r.s.issues {
		if filters.ReporterID != nil && i.ReporterID != *filters.ReporterID {
			continue
		}
		if filters.Status != nil && i.Status != *filters.Status {
			continue
		}
		list = append(list, r.s.issueCopy(i))
	}
	sort.Slice(list, func(a, b int) bool { return newer(list[a].CreatedAt, list[b].CreatedAt, list[a].ID, list[b].ID) })
	return limit(list, filters.Limit), nil
}

// Close moves an OPEN issue to CLOSED and stores the reporter notification with it
func (r *issueRepository) Close(_ context.Context, id, closerID int64, comment string, at time.Time, n *models.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	i, ok := r.s.issues[id]
	if !ok || !i.IsOpen() {
		return repository.ErrStale
	}
	i.Status = models.IssueStatusClosed
	i.ClosedByID = &closerID
	t := at
	i.ClosedAt = &t
	i.ClosureComment = comment
	i.UpdatedAt = at
	if n != nil {
		r.s.insertNotification(n)
	}
	return nil
}

type taskRepository struct{ s *Store }

func copyTask(t *models.Task) *models.Task {
	c := *t
	c.DueDate = copyTime(t.DueDate)
	c.Comments = nil
	return &c
}

func (r *taskRepository) Create(_ context.Context, task *models.Task, n *models.Notification) (*models.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.residents[task.OwnerID]; !ok {
		return nil, repository.ErrNotFound
	}
	c := copyTask(task)
	c.ID = r.s.next("tasks")
	if c.Status == "" {
		c.Status = models.TaskStatusOpen
	}
	if c.Priority == "" {
		c.Priority = models.TaskPriorityMedium
	}
	c.CreatedAt = r.s.now()
	c.UpdatedAt = c.CreatedAt
	r.s.tasks[c.ID] = c
	if n != nil {
		id := c.ID
		n.TaskID = &id
		r.s.insertNotification(n)
	}
	return copyTask(c), nil
}

func (r *taskRepository) GetByID(_ context.Context, id int64) (*models.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if t, ok := r.s.tasks[id]; ok {
		return copyTask(t), nil
	}
	return nil, nil
}

func (r *taskRepository) List(_ context.Context, filters repository.TaskFilters) ([]*models.Task, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var list []*models.Task
	for _, t := range r.s.tasks {
		if filters.OwnerID != nil && t.OwnerID != *filters.OwnerID {
			continue
		}
		if filters.Status != nil && t.Status != *filters.Status {
			continue
		}
		list = append(list, copyTask(t))
	}
	sort.Slice(list, func(i, j int) bool { return newer(list[i].UpdatedAt, list[j].UpdatedAt, list[i].ID, list[j].ID) })
	return limit(list, filters.Limit), nil
}

// Transition changes the status only if it still equals from
func (r *taskRepository) Transition(_ context.Context, taskID int64, from, to models.TaskStatus, audit *models.TaskComment, n *models.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tasks[taskID]
	if !ok || t.Status != from {
		return repository.ErrStale
	}
	t.Status = to
	t.UpdatedAt = r.s.now()
	r.s.insertComment(audit)
	if n != nil {
		r.s.insertNotification(n)
	}
	return nil
}

func (r *taskRepository) AddComment(_ context.Context, c *models.TaskComment, n *models.Notification) (*models.TaskComment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tasks[c.TaskID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	r.s.insertComment(c)
	t.UpdatedAt = r.s.now()
	if n != nil {
		r.s.insertNotification(n)
	}
	return c, nil
}

func (s *Store) insertComment(c *models.TaskComment) {
	if c.Kind == "" {
		c.Kind = models.TaskCommentNote
	}
	c.ID = s.next("task_comments")
	c.CreatedAt = s.now()
	stored := *c
	stored.Author = nil
	s.comments[c.TaskID] = append(s.comments[c.TaskID], stored)
}

func (r *taskRepository) ListComments(_ context.Context, taskID int64) ([]models.TaskComment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	list := make([]models.TaskComment, 0, len(r.s.comments[taskID]))
	for _, c := range r.s.comments[taskID] {
		c.Author = r.s.residentCopy(c.AuthorID)
		list = append(list, c)
	}
	return list, nil
}

type notificationRepository struct{ s *Store }

func (r *notificationRepository) Create(_ context.Context, n *models.Notification) (*models.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.insertNotification(n)
	return n, nil
}

func (r *notificationRepository) CreateMany(_ context.Context, ns []*models.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, n := range ns {
		r.s.insertNotification(n)
	}
	return nil
}

func (r *notificationRepository) ListByResident(_ context.Context, residentID int64, unreadOnly bool) ([]*models.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var list []*models.Notification
	for _, n := range r.s.notifications {
		if n.ResidentID != residentID || (unreadOnly && n.Read) {
			continue
		}
		c := *n
		list = append(list, &c)
	}
	sort.Slice(list, func(i, j int) bool { return newer(list[i].CreatedAt, list[j].CreatedAt, list[i].ID, list[j].ID) })
	return limit(list, 200), nil
}

// SetRead only touches notifications owned by residentID
func (r *notificationRepository) SetRead(_ context.Context, id, residentID int64, read bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n, ok := r.s.notifications[id]
	if !ok || n.ResidentID != residentID {
		return repository.ErrNotFound
	}
	n.Read = read
	return nil
}

func (r *notificationRepository) MarkAllRead(_ context.Context, residentID int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var changed int64
	for _, n := range r.s.notifications {
		if n.ResidentID == residentID && !n.Read {
			n.Read = true
			changed++
		}
	}
	return changed, nil
}
