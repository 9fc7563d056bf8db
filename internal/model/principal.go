package model

import "errors"

// Role is the coarse authority level carried in every access token.
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleAdmin      Role = "admin"
	RoleManager    Role = "manager"
	RoleTeamLead   Role = "team_lead"
	RoleEmployee   Role = "employee"
)

// ManagerType narrows a manager's authority to a single resource domain.
type ManagerType string

const (
	ManagerParking        ManagerType = "parking"
	ManagerDeskConference ManagerType = "desk_conference"
	ManagerCafeteria      ManagerType = "cafeteria"
	ManagerITSupport      ManagerType = "it_support"
	ManagerAttendance     ManagerType = "attendance"
)

var (
	ErrUnknownRole          = errors.New("unknown role")
	ErrUnknownManagerType   = errors.New("unknown manager type")
	ErrManagerTypeRequired  = errors.New("manager_type is required for managers")
	ErrManagerTypeForbidden = errors.New("manager_type is only allowed for managers")
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleManager, RoleTeamLead, RoleEmployee:
		return true
	}
	return false
}

// IsAdmin reports whether r overrides every manager_type check.
func (r Role) IsAdmin() bool { return r == RoleSuperAdmin || r == RoleAdmin }

// Valid reports whether t is one of the known manager types.
func (t ManagerType) Valid() bool {
	switch t {
	case ManagerParking, ManagerDeskConference, ManagerCafeteria, ManagerITSupport, ManagerAttendance:
		return true
	}
	return false
}

// Principal is the authenticated caller as supplied by the JWT middleware.
// ManagerType is empty unless Role is RoleManager.
type Principal struct {
	UserID      string
	Role        Role
	ManagerType ManagerType
}

// Validate enforces that manager_type is set iff role = manager.
func (p Principal) Validate() error {
	if !p.Role.Valid() {
		return ErrUnknownRole
	}
	if p.Role == RoleManager {
		if p.ManagerType == "" {
			return ErrManagerTypeRequired
		}
		if !p.ManagerType.Valid() {
			return ErrUnknownManagerType
		}
		return nil
	}
	if p.ManagerType != "" {
		return ErrManagerTypeForbidden
	}
	return nil
}
