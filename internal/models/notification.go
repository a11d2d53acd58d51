package models

import "time"

// NotificationKind names the entity a notification points at
type NotificationKind string

const (
	NotificationAnnouncement NotificationKind = "ANNOUNCEMENT"
	NotificationVisitor      NotificationKind = "VISITOR"
	NotificationIssue        NotificationKind = "ISSUE"
	NotificationTask         NotificationKind = "TASK"
)

// Notification is an in-app message; exactly one target id is set
type Notification struct {
	ID             int64            `json:"id" db:"id"`
	ResidentID     int64            `json:"residentId" db:"resident_id"`
	Kind           NotificationKind `json:"kind" db:"kind"`
	Message        string           `json:"message" db:"message"`
	AnnouncementID *int64           `json:"announcementId,omitempty" db:"announcement_id"`
	VisitorID      *int64           `json:"visitorId,omitempty" db:"visitor_id"`
	IssueID        *int64           `json:"issueId,omitempty" db:"issue_id"`
	TaskID         *int64           `json:"taskId,omitempty" db:"task_id"`
	Read           bool             `json:"read" db:"read"`
	CreatedAt      time.Time        `json:"createdAt" db:"created_at"`
}

// NewNotification builds an unread notification pointing at one entity
func NewNotification(residentID int64, kind NotificationKind, targetID int64, message string) *Notification {
	n := &Notification{ResidentID: residentID, Kind: kind, Message: message}
	id := targetID
	switch kind {
	case NotificationAnnouncement:
		n.AnnouncementID = &id
	case NotificationVisitor:
		n.VisitorID = &id
	case NotificationIssue:
		n.IssueID = &id
	case NotificationTask:
		n.TaskID = &id
	}
	return n
}
