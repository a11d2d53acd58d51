package models

import (
	"fmt"
	"time"
)

// TaskStatus represents the status of a facility task
type TaskStatus string

const (
	TaskStatusOpen       TaskStatus = "OPEN"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusOnHold     TaskStatus = "ON_HOLD"
	TaskStatusBlocked    TaskStatus = "BLOCKED"
	TaskStatusClosed     TaskStatus = "CLOSED"
)

// TaskPriority represents the priority level of a task
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "LOW"
	TaskPriorityMedium TaskPriority = "MEDIUM"
	TaskPriorityHigh   TaskPriority = "HIGH"
)

// Valid reports whether p is a known priority
func (p TaskPriority) Valid() bool {
	return p == TaskPriorityLow || p == TaskPriorityMedium || p == TaskPriorityHigh
}

// taskTransitions is the fixed transition table. CLOSED→OPEN is further
// restricted to admins by CanTransition.
var taskTransitions = map[TaskStatus][]TaskStatus{
	TaskStatusOpen:       {TaskStatusInProgress},
	TaskStatusInProgress: {TaskStatusOnHold, TaskStatusBlocked, TaskStatusClosed},
	TaskStatusOnHold:     {TaskStatusInProgress, TaskStatusClosed},
	TaskStatusBlocked:    {TaskStatusInProgress, TaskStatusClosed},
	TaskStatusClosed:     {TaskStatusOpen},
}

// Valid reports whether s is a known task status
func (s TaskStatus) Valid() bool {
	_, ok := taskTransitions[s]
	return ok
}

// NextStatuses lists the statuses reachable from s
func (s TaskStatus) NextStatuses() []TaskStatus {
	return taskTransitions[s]
}

// CanTransition reports whether an actor with the given role may move a task from one status to another
func CanTransition(from, to TaskStatus, role Role) bool {
	allowed := false
	for _, next := range taskTransitions[from] {
		if next == to {
			allowed = true
			break
		}
	}
	if !allowed {
		return false
	}
	if from == TaskStatusClosed && to == TaskStatusOpen {
		return role.IsAdmin()
	}
	return true
}

// Task is a unit of work on the facility manager board
type Task struct {
	ID          int64         `json:"id" db:"id"`
	Title       string        `json:"title" db:"title"`
	Description string        `json:"description" db:"description"`
	Status      TaskStatus    `json:"status" db:"status"`
	Priority    TaskPriority  `json:"priority" db:"priority"`
	DueDate     *time.Time    `json:"dueDate" db:"due_date"`
	CreatorID   int64         `json:"creatorId" db:"creator_id"`
	OwnerID     int64         `json:"ownerId" db:"owner_id"`
	CreatedAt   time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time     `json:"updatedAt" db:"updated_at"`
	Comments    []TaskComment `json:"comments,omitempty"`
}

// IsClosed returns true if the task is closed
func (t *Task) IsClosed() bool {
	return t.Status == TaskStatusClosed
}

// IsOverdue returns true if the task has a due date and it's passed
func (t *Task) IsOverdue(now time.Time) bool {
	if t.DueDate == nil || t.IsClosed() {
		return false
	}
	return now.After(*t.DueDate)
}

// Involves reports whether the resident created or owns the task
func (t *Task) Involves(residentID int64) bool {
	return t.CreatorID == residentID || t.OwnerID == residentID
}

// OtherParty returns the participant to notify about an action by actorID.
// It returns 0 when the actor is both creator and owner.
func (t *Task) OtherParty(actorID int64) int64 {
	switch actorID {
	case t.OwnerID:
		if t.CreatorID != actorID {
			return t.CreatorID
		}
		return 0
	case t.CreatorID:
		return t.OwnerID
	default:
		// a third party (an admin) acted: the owner hears about it
		return t.OwnerID
	}
}

// TaskCommentKind distinguishes free-form comments from audit records
type TaskCommentKind string

const (
	TaskCommentNote         TaskCommentKind = "COMMENT"
	TaskCommentStatusChange TaskCommentKind = "STATUS_CHANGE"
)

// TaskComment is a comment or status-change audit entry on a task
type TaskComment struct {
	ID         int64           `json:"id" db:"id"`
	TaskID     int64           `json:"taskId" db:"task_id"`
	AuthorID   int64           `json:"authorId" db:"author_id"`
	Kind       TaskCommentKind `json:"kind" db:"kind"`
	Body       string          `json:"body" db:"body"`
	FromStatus *TaskStatus     `json:"fromStatus,omitempty" db:"from_status"`
	ToStatus   *TaskStatus     `json:"toStatus,omitempty" db:"to_status"`
	CreatedAt  time.Time       `json:"createdAt" db:"created_at"`
	Author     *Resident       `json:"author,omitempty"`
}

// DefaultTransitionComment is the audit text used when the actor gives none
func DefaultTransitionComment(from, to TaskStatus) string {
	return fmt.Sprintf("Status changed from %s to %s", from, to)
}
