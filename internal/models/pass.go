package models

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// PassKind selects the table a pass code points into
type PassKind string

const (
	PassKindResident PassKind = "r"
	PassKindGuest    PassKind = "g"
)

// ErrInvalidPassCode is returned for codes that are not "r-<id>" or "g-<id>"
var ErrInvalidPassCode = errors.New("invalid pass code")

// PassCode identifies an RSVP or guest RSVP for entry scanning
type PassCode struct {
	Kind PassKind
	ID   int64
}

// NewPassCode builds a pass code of the given kind
func NewPassCode(kind PassKind, id int64) PassCode {
	return PassCode{Kind: kind, ID: id}
}

// String renders the code as "<kind>-<id>"
func (c PassCode) String() string {
	return string(c.Kind) + "-" + strconv.FormatInt(c.ID, 10)
}

// ParsePassCode parses "r-<id>" or "g-<id>"
func ParsePassCode(raw string) (PassCode, error) {
	prefix, rest, ok := strings.Cut(strings.TrimSpace(raw), "-")
	if !ok {
		return PassCode{}, ErrInvalidPassCode
	}
	kind := PassKind(strings.ToLower(prefix))
	if kind != PassKindResident && kind != PassKindGuest {
		return PassCode{}, ErrInvalidPassCode
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id <= 0 {
		return PassCode{}, ErrInvalidPassCode
	}
	return PassCode{Kind: kind, ID: id}, nil
}

// Pass is the printable view of an RSVP used at the gate
type Pass struct {
	Code        string     `json:"code"`
	Kind        PassKind   `json:"kind"`
	HolderName  string     `json:"holderName"`
	Email       string     `json:"email"`
	Phone       string     `json:"phone"`
	Flat        string     `json:"flat,omitempty"`
	ResidentID  *int64     `json:"residentId,omitempty"`
	EventTitle  string     `json:"eventTitle"`
	EventDate   time.Time  `json:"eventDate"`
	Venue       string     `json:"venue"`
	Items       []RsvpItem `json:"items"`
	TotalPlates int        `json:"totalPlates"`
	TotalAmount int64      `json:"totalAmount"`
	Paid        bool       `json:"paid"`
	Attended    bool       `json:"attended"`
	AttendedAt  *time.Time `json:"attendedAt"`
}

// AttendanceResult is returned when a pass is scanned
type AttendanceResult struct {
	Code            string    `json:"code"`
	AlreadyAttended bool      `json:"alreadyAttended"`
	AttendedAt      time.Time `json:"attendedAt"`
}
