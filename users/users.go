package users

import (
	"strings"
)

// RoleType represents the portal role a signed-in user acts as
type RoleType string

const (
	RolePatient    RoleType = "Patient"    // Default role, also used when no role claim resolves
	RoleDoctor     RoleType = "Doctor"     // Manages own clinics and bookings
	RoleNurse      RoleType = "Nurse"      // Manages home-visit bookings
	RoleLaboratory RoleType = "Laboratory" // Manages analyses and lab bookings
	RoleAdmin      RoleType = "Admin"      // Registers staff accounts
	RoleSuperAdmin RoleType = "SuperAdmin" // Manages admins
)

// Roles lists every role in the order the portal presents them
var Roles = []RoleType{RolePatient, RoleDoctor, RoleNurse, RoleLaboratory, RoleAdmin, RoleSuperAdmin}

var roleNames = map[string]RoleType{
	"patient":     RolePatient,
	"doctor":      RoleDoctor,
	"nurse":       RoleNurse,
	"laboratory":  RoleLaboratory,
	"lab":         RoleLaboratory,
	"admin":       RoleAdmin,
	"superadmin":  RoleSuperAdmin,
	"super_admin": RoleSuperAdmin,
	"super-admin": RoleSuperAdmin,
}

// ParseRole maps a claim or user supplied role name to a RoleType.
// Unknown or empty names resolve to RolePatient.
func ParseRole(name string) RoleType {
	if role, ok := LookupRole(name); ok {
		return role
	}
	return RolePatient
}

// LookupRole is ParseRole without the fallback.
func LookupRole(name string) (RoleType, bool) {
	role, ok := roleNames[strings.ToLower(strings.TrimSpace(name))]
	return role, ok
}

func (r RoleType) String() string {
	return string(r)
}

// IsStaff reports whether the role belongs to portal staff rather than patients
func (r RoleType) IsStaff() bool {
	return r != RolePatient && r != ""
}
