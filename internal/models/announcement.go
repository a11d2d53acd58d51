package models

import "time"

// Announcement is a news item; it may carry a food RSVP and/or a sports registration
type Announcement struct {
	ID          int64         `json:"id" db:"id"`
	Title       string        `json:"title" db:"title"`
	Body        string        `json:"body" db:"body"`
	Published   bool          `json:"published" db:"published"`
	CreatedByID int64         `json:"createdById" db:"created_by_id"`
	CreatedAt   time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time     `json:"updatedAt" db:"updated_at"`
	Event       *EventConfig  `json:"event,omitempty"`
	Sports      *SportsConfig `json:"sports,omitempty"`
}

// VisibleTo reports whether a resident with the given role may read the announcement
func (a *Announcement) VisibleTo(role Role) bool {
	return a.Published || role.IsAdmin()
}
