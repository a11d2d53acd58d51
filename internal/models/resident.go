package models

import (
	"strconv"
	"strings"
	"time"
)

// Role is the access level of a resident account
type Role string

const (
	RoleResident        Role = "RESIDENT"
	RoleSecurity        Role = "SECURITY"
	RoleFacilityManager Role = "FACILITY_MANAGER"
	RoleAdmin           Role = "ADMIN"
	RoleSuperAdmin      Role = "SUPERADMIN"
)

// Roles lists every known role in ascending privilege order
var Roles = []Role{RoleResident, RoleSecurity, RoleFacilityManager, RoleAdmin, RoleSuperAdmin}

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// IsAdmin returns true for ADMIN and SUPERADMIN
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// IsStaff returns true for every role that works on behalf of the community
func (r Role) IsStaff() bool {
	return r == RoleSecurity || r == RoleFacilityManager || r.IsAdmin()
}

// CanCloseIssues returns true for roles that resolve maintenance issues
func (r Role) CanCloseIssues() bool {
	return r == RoleFacilityManager || r.IsAdmin()
}

// CanOwnTasks returns true for roles that may be assigned facility tasks
func (r Role) CanOwnTasks() bool {
	return r == RoleFacilityManager || r.IsAdmin()
}

// MinBlock and MaxBlock bound the block numbers of the community
const (
	MinBlock = 1
	MaxBlock = 4
)

// Flat is a unit identified by block and flat number
type Flat struct {
	ID         int64  `json:"id" db:"id"`
	Block      int    `json:"block" db:"block"`
	FlatNumber string `json:"flatNumber" db:"flat_number"`
}

// Label renders the flat as "B2-104"
func (f *Flat) Label() string {
	if f == nil {
		return ""
	}
	return "B" + strconv.Itoa(f.Block) + "-" + f.FlatNumber
}

// Resident is a portal account
type Resident struct {
	ID         int64     `json:"id" db:"id"`
	Email      string    `json:"email" db:"email"`
	Name       string    `json:"name" db:"name"`
	Phone      string    `json:"phone" db:"phone"`
	Role       Role      `json:"role" db:"role"`
	Registered bool      `json:"registered" db:"registered"`
	FlatID     *int64    `json:"flatId" db:"flat_id"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt" db:"updated_at"`
	Flat       *Flat     `json:"flat,omitempty"`
}

// NormalizeEmail lower-cases and trims an email address
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// DisplayName returns the best display name for the resident
func (r *Resident) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	return r.Email
}

// LivesIn reports whether the resident is registered to the given flat
func (r *Resident) LivesIn(flatID int64) bool {
	return r.FlatID != nil && *r.FlatID == flatID
}
