package model

import (
	"fmt"
	"time"
)

// Kind identifies one of the bookable or allocatable resource families.
type Kind string

const (
	KindDesk           Kind = "desk"
	KindConferenceRoom Kind = "conference_room"
	KindParkingSlot    Kind = "parking_slot"
	KindCafeteriaTable Kind = "cafeteria_table"
)

// Kinds lists every resource kind in a stable order.
var Kinds = []Kind{KindDesk, KindConferenceRoom, KindParkingSlot, KindCafeteriaTable}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindDesk, KindConferenceRoom, KindParkingSlot, KindCafeteriaTable:
		return true
	}
	return false
}

// CodePrefix returns the prefix used for generated resource codes.
func (k Kind) CodePrefix() string {
	switch k {
	case KindDesk:
		return "DSK"
	case KindConferenceRoom:
		return "CNF"
	case KindParkingSlot:
		return "PKG"
	case KindCafeteriaTable:
		return "TBL"
	}
	return "RES"
}

// HasCapacity reports whether resources of this kind carry a seat count.
func (k Kind) HasCapacity() bool { return k == KindConferenceRoom || k == KindCafeteriaTable }

// RequiresApproval reports whether new bookings start out pending.
func (k Kind) RequiresApproval() bool { return k == KindConferenceRoom }

// RequiresTimeRange reports whether a booking must name start and end times.
// Desk bookings may cover whole days.
func (k Kind) RequiresTimeRange() bool { return k == KindConferenceRoom || k == KindCafeteriaTable }

// Bookable reports whether the booking ledger accepts reservations for k.
// Parking slots are handed out through allocations instead.
func (k Kind) Bookable() bool { return k != KindParkingSlot && k.Valid() }

// FormatCode renders the human readable code for the n-th resource of k,
// e.g. PKG-0007.  Sequences past 9999 simply widen.
func FormatCode(k Kind, n uint64) string {
	return fmt.Sprintf("%s-%04d", k.CodePrefix(), n)
}

// ParkingType classifies parking slots.
type ParkingType string

const (
	ParkingEmployee    ParkingType = "employee"
	ParkingVisitor     ParkingType = "visitor"
	ParkingReserved    ParkingType = "reserved"
	ParkingHandicapped ParkingType = "handicapped"
)

func (t ParkingType) Valid() bool {
	switch t {
	case ParkingEmployee, ParkingVisitor, ParkingReserved, ParkingHandicapped:
		return true
	}
	return false
}

// VehicleType restricts which vehicles a slot accepts.
type VehicleType string

const (
	VehicleCar  VehicleType = "car"
	VehicleBike VehicleType = "bike"
	VehicleAny  VehicleType = "any"
)

func (t VehicleType) Valid() bool {
	switch t {
	case VehicleCar, VehicleBike, VehicleAny:
		return true
	}
	return false
}

// Accepts reports whether a slot restricted to t takes a vehicle of type v.
// A slot for "any" takes everything, and an unspecified vehicle fits
// every slot.
func (t VehicleType) Accepts(v *VehicleType) bool {
	return v == nil || t == VehicleAny || *v == VehicleAny || *v == t
}

// Resource is a desk, conference room, parking slot or cafeteria table.
// A single `resources` table stores every kind; kind-specific columns
// are nullable.
//
// Fields:
//
//	ID          – UUID primary key.
//	Kind        – resource family.
//	Code        – generated unique code (prefix + zero padded sequence).
//	Label       – human label, 1–50 characters.
//	Capacity    – seats (rooms and tables only).
//	Notes       – free text up to 500 characters.
//	ParkingType – parking slots only.
//	VehicleType – parking slots only.
//	TableType   – cafeteria tables only.
//	IsActive    – inactive resources cannot be booked or allocated.
//	CreatedBy   – user who registered the resource.
type Resource struct {
	ID          string       `json:"id"`                     // resources.id
	Kind        Kind         `json:"kind"`                   // resources.kind
	Code        string       `json:"code"`                   // resources.code
	Label       string       `json:"label"`                  // resources.label
	Capacity    *int         `json:"capacity,omitempty"`     // resources.capacity (nullable)
	Notes       *string      `json:"notes,omitempty"`        // resources.notes (nullable)
	ParkingType *ParkingType `json:"parking_type,omitempty"` // resources.parking_type (nullable)
	VehicleType *VehicleType `json:"vehicle_type,omitempty"` // resources.vehicle_type (nullable)
	TableType   *string      `json:"table_type,omitempty"`   // resources.table_type (nullable)
	IsActive    bool         `json:"is_active"`              // resources.is_active
	CreatedBy   string       `json:"created_by"`             // resources.created_by
	CreatedAt   time.Time    `json:"created_at"`             // resources.created_at
	UpdatedAt   time.Time    `json:"updated_at"`             // resources.updated_at
}
