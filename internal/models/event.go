package models

import "time"

// MaxPlatesPerItem caps a single menu line of an RSVP
const MaxPlatesPerItem = 50

// EventConfig attaches a food RSVP to an announcement
type EventConfig struct {
	ID             int64        `json:"id" db:"id"`
	AnnouncementID int64        `json:"announcementId" db:"announcement_id"`
	EventDate      time.Time    `json:"eventDate" db:"event_date"`
	Venue          string       `json:"venue" db:"venue"`
	Deadline       time.Time    `json:"deadline" db:"deadline"`
	AllowGuests    bool         `json:"allowGuests" db:"allow_guests"`
	CustomFields   CustomFields `json:"customFields" db:"custom_fields"`
	MenuItems      []MenuItem   `json:"menuItems"`
}

// DeadlinePassed reports whether writes are closed at the given instant
func (e *EventConfig) DeadlinePassed(now time.Time) bool {
	return now.After(e.Deadline)
}

// MenuItem returns the menu item with the given id, or nil
func (e *EventConfig) MenuItem(id int64) *MenuItem {
	for i := range e.MenuItems {
		if e.MenuItems[i].ID == id {
			return &e.MenuItems[i]
		}
	}
	return nil
}

// MenuItem is a dish offered at an event, priced per plate in whole currency units
type MenuItem struct {
	ID            int64  `json:"id" db:"id"`
	EventConfigID int64  `json:"eventConfigId" db:"event_config_id"`
	Name          string `json:"name" db:"name"`
	PricePerPlate int64  `json:"pricePerPlate" db:"price_per_plate"`
}

// RsvpItem is one line of a food order
type RsvpItem struct {
	MenuItemID    int64  `json:"menuItemId" db:"menu_item_id"`
	Plates        int    `json:"plates" db:"plates"`
	Name          string `json:"name,omitempty" db:"name"`
	PricePerPlate int64  `json:"pricePerPlate,omitempty" db:"price_per_plate"`
}

// Amount is plates × price of the line
func (i RsvpItem) Amount() int64 {
	return int64(i.Plates) * i.PricePerPlate
}

// Rsvp is a resident's food order for an event
type Rsvp struct {
	ID            int64      `json:"id" db:"id"`
	EventConfigID int64      `json:"eventConfigId" db:"event_config_id"`
	ResidentID    int64      `json:"residentId" db:"resident_id"`
	Responses     Responses  `json:"responses" db:"responses"`
	Paid          bool       `json:"paid" db:"paid"`
	Attended      bool       `json:"attended" db:"attended"`
	AttendedAt    *time.Time `json:"attendedAt" db:"attended_at"`
	CreatedAt     time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time  `json:"updatedAt" db:"updated_at"`
	Items         []RsvpItem `json:"items"`
	Resident      *Resident  `json:"resident,omitempty"`
}

// PassCode returns the attendance pass identifier of the RSVP
func (r *Rsvp) PassCode() string {
	return NewPassCode(PassKindResident, r.ID).String()
}

// Plates sums the plates of every line
func (r *Rsvp) Plates() int {
	return totalPlates(r.Items)
}

// Amount sums plates × price of every line
func (r *Rsvp) Amount() int64 {
	return totalAmount(r.Items)
}

// GuestRsvp is a food order placed by a non-resident, keyed by email
type GuestRsvp struct {
	ID            int64      `json:"id" db:"id"`
	EventConfigID int64      `json:"eventConfigId" db:"event_config_id"`
	Name          string     `json:"name" db:"name"`
	Email         string     `json:"email" db:"email"`
	Phone         string     `json:"phone" db:"phone"`
	Responses     Responses  `json:"responses" db:"responses"`
	Paid          bool       `json:"paid" db:"paid"`
	Attended      bool       `json:"attended" db:"attended"`
	AttendedAt    *time.Time `json:"attendedAt" db:"attended_at"`
	CreatedAt     time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time  `json:"updatedAt" db:"updated_at"`
	Items         []RsvpItem `json:"items"`
}

// PassCode returns the attendance pass identifier of the guest RSVP
func (g *GuestRsvp) PassCode() string {
	return NewPassCode(PassKindGuest, g.ID).String()
}

// Plates sums the plates of every line
func (g *GuestRsvp) Plates() int {
	return totalPlates(g.Items)
}

// Amount sums plates × price of every line
func (g *GuestRsvp) Amount() int64 {
	return totalAmount(g.Items)
}

func totalPlates(items []RsvpItem) int {
	n := 0
	for _, it := range items {
		n += it.Plates
	}
	return n
}

func totalAmount(items []RsvpItem) int64 {
	var sum int64
	for _, it := range items {
		sum += it.Amount()
	}
	return sum
}
