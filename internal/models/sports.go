package models

import "time"

// SportsConfig attaches a sports registration to an announcement
type SportsConfig struct {
	ID             int64       `json:"id" db:"id"`
	AnnouncementID int64       `json:"announcementId" db:"announcement_id"`
	Deadline       time.Time   `json:"deadline" db:"deadline"`
	AgeCategories  StringList  `json:"ageCategories" db:"age_categories"`
	SportItems     []SportItem `json:"sportItems"`
}

// DeadlinePassed reports whether writes are closed at the given instant
func (c *SportsConfig) DeadlinePassed(now time.Time) bool {
	return now.After(c.Deadline)
}

// SportItem returns the sport with the given id, or nil
func (c *SportsConfig) SportItem(id int64) *SportItem {
	for i := range c.SportItems {
		if c.SportItems[i].ID == id {
			return &c.SportItems[i]
		}
	}
	return nil
}

// SportItem is a discipline participants can enter
type SportItem struct {
	ID             int64  `json:"id" db:"id"`
	SportsConfigID int64  `json:"sportsConfigId" db:"sports_config_id"`
	Name           string `json:"name" db:"name"`
	Fee            int64  `json:"fee" db:"fee"`
}

// Participant is a person entered by a registration
type Participant struct {
	ID             int64   `json:"id" db:"id"`
	RegistrationID int64   `json:"registrationId" db:"registration_id"`
	Name           string  `json:"name" db:"name"`
	AgeCategory    string  `json:"ageCategory" db:"age_category"`
	SportItemIDs   []int64 `json:"sportItemIds"`
}

// SportsRegistration is a resident's entry into a sports event
type SportsRegistration struct {
	ID             int64         `json:"id" db:"id"`
	SportsConfigID int64         `json:"sportsConfigId" db:"sports_config_id"`
	ResidentID     int64         `json:"residentId" db:"resident_id"`
	Paid           bool          `json:"paid" db:"paid"`
	CreatedAt      time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time     `json:"updatedAt" db:"updated_at"`
	Participants   []Participant `json:"participants"`
	Resident       *Resident     `json:"resident,omitempty"`
}

// Fee sums the fees of every sport entered by every participant
func (r *SportsRegistration) Fee(cfg *SportsConfig) int64 {
	var sum int64
	for _, p := range r.Participants {
		for _, id := range p.SportItemIDs {
			if item := cfg.SportItem(id); item != nil {
				sum += item.Fee
			}
		}
	}
	return sum
}
