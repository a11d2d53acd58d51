package models

import "time"

// IssueStatus represents the state of a maintenance issue
type IssueStatus string

const (
	IssueStatusOpen   IssueStatus = "OPEN"
	IssueStatusClosed IssueStatus = "CLOSED"
)

// Issue is a maintenance problem reported by a resident
type Issue struct {
	ID             int64       `json:"id" db:"id"`
	Title          string      `json:"title" db:"title"`
	Description    string      `json:"description" db:"description"`
	Category       string      `json:"category" db:"category"`
	Location       string      `json:"location" db:"location"`
	Status         IssueStatus `json:"status" db:"status"`
	ReporterID     int64       `json:"reporterId" db:"reporter_id"`
	ClosedByID     *int64      `json:"closedById" db:"closed_by_id"`
	ClosedAt       *time.Time  `json:"closedAt" db:"closed_at"`
	ClosureComment string      `json:"closureComment" db:"closure_comment"`
	CreatedAt      time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time   `json:"updatedAt" db:"updated_at"`
	Reporter       *Resident   `json:"reporter,omitempty"`
}

// IsOpen returns true until the issue is closed
func (i *Issue) IsOpen() bool {
	return i.Status == IssueStatusOpen
}
