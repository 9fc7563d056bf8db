// Package access holds the authorization predicate.  Decisions are a pure
// function of (role, manager_type, action, category); there is no role
// inheritance and no caching.
package access

import "github.com/iliyamo/office-resource-booking/internal/model"

// Action is the operation a principal attempts.
type Action string

const (
	ActionRead     Action = "read"
	ActionCreate   Action = "create"
	ActionUpdate   Action = "update"
	ActionDelete   Action = "delete"
	ActionBook     Action = "book"
	ActionAllocate Action = "allocate"
	ActionApprove  Action = "approve"
	ActionStats    Action = "stats"
)

// Category is the resource family an action targets.
type Category string

const (
	CategoryDesk              Category = "desk"
	CategoryConferenceRoom    Category = "conference_room"
	CategoryParkingSlot       Category = "parking_slot"
	CategoryCafeteriaTable    Category = "cafeteria_table"
	CategoryITAsset           Category = "it_asset"
	CategoryITRequestApproval Category = "it_request_approval"
	CategoryUser              Category = "user"
)

// owners maps each category to the manager_type that administers it.
// Categories absent from the map (users) have no manager domain.
var owners = map[Category]model.ManagerType{
	CategoryDesk:              model.ManagerDeskConference,
	CategoryConferenceRoom:    model.ManagerDeskConference,
	CategoryParkingSlot:       model.ManagerParking,
	CategoryCafeteriaTable:    model.ManagerCafeteria,
	CategoryITAsset:           model.ManagerITSupport,
	CategoryITRequestApproval: model.ManagerITSupport,
}

// openActions are granted to every authenticated principal on the four
// office resource categories.
var openActions = map[Action]bool{
	ActionRead:     true,
	ActionBook:     true,
	ActionAllocate: true,
}

var resourceCategories = map[Category]bool{
	CategoryDesk:           true,
	CategoryConferenceRoom: true,
	CategoryParkingSlot:    true,
	CategoryCafeteriaTable: true,
}

// managerActions are granted to a manager inside their own domain.
var managerActions = map[Action]bool{
	ActionRead:     true,
	ActionCreate:   true,
	ActionUpdate:   true,
	ActionDelete:   true,
	ActionBook:     true,
	ActionAllocate: true,
	ActionApprove:  true,
	ActionStats:    true,
}

// Owns reports whether manager type t administers category c.
func Owns(t model.ManagerType, c Category) bool {
	owner, ok := owners[c]
	return ok && t != "" && owner == t
}

// Allowed decides whether p may perform a on c.  Rules, highest precedence
// first:
//
//  1. super_admin and admin are always allowed.
//  2. a manager whose manager_type owns c may perform any managed action.
//  3. read, book and allocate on desks, rooms, slots and tables are open
//     to any authenticated principal.
//  4. everything else is denied.
//
// Statistics are only reachable through rules 1 and 2.
func Allowed(p model.Principal, a Action, c Category) bool {
	if p.UserID == "" || !p.Role.Valid() {
		return false
	}
	if p.Role.IsAdmin() {
		return true
	}
	if p.Role == model.RoleManager && Owns(p.ManagerType, c) && managerActions[a] {
		return true
	}
	return resourceCategories[c] && openActions[a]
}

// CategoryOf maps a resource kind onto its authorization category.
func CategoryOf(k model.Kind) Category {
	switch k {
	case model.KindDesk:
		return CategoryDesk
	case model.KindConferenceRoom:
		return CategoryConferenceRoom
	case model.KindParkingSlot:
		return CategoryParkingSlot
	case model.KindCafeteriaTable:
		return CategoryCafeteriaTable
	}
	return ""
}

// Manages reports whether p has administrative authority over resources of
// kind k, either through the admin override or a matching manager_type.
// Owners of bookings and allocations do not need this; it gates acting on
// someone else's records.
func Manages(p model.Principal, k model.Kind) bool {
	return Allowed(p, ActionApprove, CategoryOf(k))
}

// CanAssignRole reports whether actor may create or promote a user to the
// target role.  Super admins may assign any role, admins any role except
// super_admin, and nobody else may manage users.
func CanAssignRole(actor model.Principal, target model.Role) bool {
	if !target.Valid() {
		return false
	}
	switch actor.Role {
	case model.RoleSuperAdmin:
		return true
	case model.RoleAdmin:
		return target != model.RoleSuperAdmin
	}
	return false
}
