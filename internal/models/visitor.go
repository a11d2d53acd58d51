package models

import "time"

// VisitorStatus represents the gate-pass decision of a visitor
type VisitorStatus string

const (
	VisitorStatusPending  VisitorStatus = "PENDING"
	VisitorStatusApproved VisitorStatus = "APPROVED"
	VisitorStatusRejected VisitorStatus = "REJECTED"
)

// Valid reports whether s is a known visitor status
func (s VisitorStatus) Valid() bool {
	return s == VisitorStatusPending || s == VisitorStatusApproved || s == VisitorStatusRejected
}

// Visitor is a gate-pass request for a flat
type Visitor struct {
	ID          int64         `json:"id" db:"id"`
	Name        string        `json:"name" db:"name"`
	Phone       string        `json:"phone" db:"phone"`
	Purpose     string        `json:"purpose" db:"purpose"`
	FlatID      int64         `json:"flatId" db:"flat_id"`
	Status      VisitorStatus `json:"status" db:"status"`
	CreatedByID int64         `json:"createdById" db:"created_by_id"`
	DecidedByID *int64        `json:"decidedById" db:"decided_by_id"`
	DecidedAt   *time.Time    `json:"decidedAt" db:"decided_at"`
	CreatedAt   time.Time     `json:"createdAt" db:"created_at"`
	Flat        *Flat         `json:"flat,omitempty"`
}

// IsPending returns true while the visitor awaits a decision
func (v *Visitor) IsPending() bool {
	return v.Status == VisitorStatusPending
}
