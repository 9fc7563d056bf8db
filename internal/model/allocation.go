package model

import "time"

// Allocation records a vehicle occupying a parking slot.  Either UserID
// (employee parking) or the visitor fields are set.  An allocation is
// active until ExitTime is recorded.
//
// Fields:
//
//	ID             – UUID primary key.
//	SlotID         – occupied parking slot.
//	UserID         – employee holding the slot (nil for visitors).
//	VisitorName    – visitor identity for manager-assigned slots.
//	VehicleNumber  – licence plate.
//	EntryTime      – when the slot was taken.
//	ExitTime       – when it was released (nil while active).
//	CreatedBy      – user who created the allocation.
type Allocation struct {
	ID             string       `json:"id"`                        // parking_allocations.id
	SlotID         string       `json:"slot_id"`                   // parking_allocations.slot_id
	UserID         *string      `json:"user_id,omitempty"`         // parking_allocations.user_id (nullable)
	VisitorName    *string      `json:"visitor_name,omitempty"`    // parking_allocations.visitor_name (nullable)
	VisitorPhone   *string      `json:"visitor_phone,omitempty"`   // parking_allocations.visitor_phone (nullable)
	VisitorCompany *string      `json:"visitor_company,omitempty"` // parking_allocations.visitor_company (nullable)
	VehicleNumber  *string      `json:"vehicle_number,omitempty"`  // parking_allocations.vehicle_number (nullable)
	VehicleType    *VehicleType `json:"vehicle_type,omitempty"`    // parking_allocations.vehicle_type (nullable)
	Notes          *string      `json:"notes,omitempty"`           // parking_allocations.notes (nullable)
	EntryTime      time.Time    `json:"entry_time"`                // parking_allocations.entry_time
	ExitTime       *time.Time   `json:"exit_time"`                 // parking_allocations.exit_time (nullable)
	CreatedBy      string       `json:"created_by"`                // parking_allocations.created_by
	CreatedAt      time.Time    `json:"created_at"`                // parking_allocations.created_at
	UpdatedAt      time.Time    `json:"updated_at"`                // parking_allocations.updated_at
}

// IsActive reports whether the vehicle is still parked.
func (a Allocation) IsActive() bool { return a.ExitTime == nil }

// IsVisitor reports whether the allocation belongs to a visitor.
func (a Allocation) IsVisitor() bool { return a.UserID == nil }
