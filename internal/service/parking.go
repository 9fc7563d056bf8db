package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/iliyamo/office-resource-booking/internal/access"
	"github.com/iliyamo/office-resource-booking/internal/model"
	"github.com/iliyamo/office-resource-booking/internal/queue"
	"github.com/iliyamo/office-resource-booking/internal/repository"
)

// AllocationStore is the persistence used by the parking ledger.
type AllocationStore interface {
	Create(ctx context.Context, a *model.Allocation) error
	GetByID(ctx context.Context, id string) (*model.Allocation, error)
	Release(ctx context.Context, id string, at time.Time) (*model.Allocation, error)
	ActiveForUser(ctx context.Context, userID string) (*model.Allocation, error)
	List(ctx context.Context, f repository.AllocationFilter, p repository.Page) ([]*model.Allocation, int, error)
	FreeSlots(ctx context.Context, parkingType *model.ParkingType) ([]*model.Resource, error)
	Counts(ctx context.Context) (repository.ParkingCounts, error)
}

// AllocateInput is an employee's request for a parking slot.
type AllocateInput struct {
	SlotID        string
	VehicleNumber *string
	VehicleType   *model.VehicleType
	Notes         *string
}

// VisitorInput is a manager's request to park a visitor.  A nil SlotID
// picks the first free visitor slot.
type VisitorInput struct {
	SlotID         *string
	VisitorName    string
	VisitorPhone   *string
	VisitorCompany *string
	VehicleNumber  *string
	VehicleType    *model.VehicleType
	Notes          *string
}

const (
	maxVisitorName = 100
	maxPlate       = 20
)

// Parking is the parking allocation ledger.  A user holds at most one
// open allocation and a slot carries at most one open allocation.
type Parking struct {
	allocs    AllocationStore
	resources ResourceReader
	pub       Publisher
	Now       func() time.Time
}

// NewParking returns a parking ledger.  A nil publisher disables events.
func NewParking(allocs AllocationStore, resources ResourceReader, pub Publisher) *Parking {
	if allocs == nil || resources == nil {
		panic("nil store passed to NewParking")
	}
	return &Parking{allocs: allocs, resources: resources, pub: pub, Now: time.Now}
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// slot loads an active parking slot.
func (s *Parking) slot(ctx context.Context, id string) (*model.Resource, error) {
	r, err := s.resources.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Kind != model.KindParkingSlot || !r.IsActive {
		return nil, fmt.Errorf("parking slot %s: %w", id, repository.ErrNotFound)
	}
	return r, nil
}

func checkVehicle(ve *ValidationError, slot *model.Resource, plate *string, vt *model.VehicleType) {
	if plate != nil && utf8.RuneCountInString(*plate) > maxPlate {
		ve.add("vehicle_number", fmt.Sprintf("must be at most %d characters", maxPlate))
	}
	if vt != nil && !vt.Valid() {
		ve.add("vehicle_type", "must be one of car, bike, any")
		return
	}
	if slot != nil && slot.VehicleType != nil && !slot.VehicleType.Accepts(vt) {
		ve.add("vehicle_type", fmt.Sprintf("slot %s only takes %s", slot.Code, *slot.VehicleType))
	}
}

// Allocate parks the caller in slot in.SlotID.  Visitor slots are
// reserved for manager assignment.
func (s *Parking) Allocate(ctx context.Context, p model.Principal, in AllocateInput) (a *model.Allocation, err error) {
	ctx, span := tracer.Start(ctx, "Parking.Allocate")
	span.SetAttributes(attribute.String("slot.id", in.SlotID))
	defer func() { finish(span, err) }()

	if !access.Allowed(p, access.ActionAllocate, access.CategoryParkingSlot) {
		return nil, fmt.Errorf("allocate parking: %w", repository.ErrForbidden)
	}
	slot, err := s.slot(ctx, in.SlotID)
	if err != nil {
		return nil, err
	}
	var ve ValidationError
	if slot.ParkingType != nil && *slot.ParkingType == model.ParkingVisitor {
		ve.add("slot_id", "visitor slots are assigned by parking managers")
	}
	plate := trimmed(in.VehicleNumber)
	checkVehicle(&ve, slot, plate, in.VehicleType)
	if err := ve.err(); err != nil {
		return nil, err
	}

	user := p.UserID
	a = &model.Allocation{
		ID:            uuid.NewString(),
		SlotID:        slot.ID,
		UserID:        &user,
		VehicleNumber: plate,
		VehicleType:   in.VehicleType,
		Notes:         trimmed(in.Notes),
		EntryTime:     s.Now().UTC(),
		CreatedBy:     p.UserID,
	}
	if err := s.allocs.Create(ctx, a); err != nil {
		return nil, err
	}
	emit(ctx, s.pub, allocationEvent(queue.AllocationCreated, a, p, slot.Code))
	return a, nil
}

// AssignVisitor parks a visitor.  Parking managers and admins only.
func (s *Parking) AssignVisitor(ctx context.Context, p model.Principal, in VisitorInput) (a *model.Allocation, err error) {
	ctx, span := tracer.Start(ctx, "Parking.AssignVisitor")
	defer func() { finish(span, err) }()

	if !access.Manages(p, model.KindParkingSlot) {
		return nil, fmt.Errorf("assign visitor parking: %w", repository.ErrForbidden)
	}
	var ve ValidationError
	name := strings.TrimSpace(in.VisitorName)
	if n := utf8.RuneCountInString(name); n < 1 || n > maxVisitorName {
		ve.add("visitor_name", fmt.Sprintf("must be 1-%d characters", maxVisitorName))
	}
	plate := trimmed(in.VehicleNumber)
	checkVehicle(&ve, nil, plate, in.VehicleType)
	if err := ve.err(); err != nil {
		return nil, err
	}

	var slot *model.Resource
	if in.SlotID != nil {
		if slot, err = s.slot(ctx, *in.SlotID); err != nil {
			return nil, err
		}
		checkVehicle(&ve, slot, nil, in.VehicleType)
		if err := ve.err(); err != nil {
			return nil, err
		}
	} else {
		visitor := model.ParkingVisitor
		free, err := s.allocs.FreeSlots(ctx, &visitor)
		if err != nil {
			return nil, err
		}
		for _, f := range free {
			if f.VehicleType == nil || f.VehicleType.Accepts(in.VehicleType) {
				slot = f
				break
			}
		}
		if slot == nil {
			return nil, fmt.Errorf("no free visitor slot: %w", repository.ErrConflict)
		}
	}

	a = &model.Allocation{
		ID:             uuid.NewString(),
		SlotID:         slot.ID,
		VisitorName:    &name,
		VisitorPhone:   trimmed(in.VisitorPhone),
		VisitorCompany: trimmed(in.VisitorCompany),
		VehicleNumber:  plate,
		VehicleType:    in.VehicleType,
		Notes:          trimmed(in.Notes),
		EntryTime:      s.Now().UTC(),
		CreatedBy:      p.UserID,
	}
	if err := s.allocs.Create(ctx, a); err != nil {
		return nil, err
	}
	emit(ctx, s.pub, allocationEvent(queue.AllocationCreated, a, p, slot.Code))
	return a, nil
}

func allocationEvent(typ string, a *model.Allocation, actor model.Principal, code string) queue.Event {
	ev := queue.Event{
		Type:       typ,
		ID:         a.ID,
		Kind:       string(model.KindParkingSlot),
		ResourceID: a.SlotID,
		Code:       code,
		ActorID:    actor.UserID,
	}
	if a.UserID != nil {
		ev.UserID = *a.UserID
	}
	return ev
}

// Release records the exit of an open allocation.  The holder, parking
// managers and admins may release.
func (s *Parking) Release(ctx context.Context, p model.Principal, id string) (a *model.Allocation, err error) {
	ctx, span := tracer.Start(ctx, "Parking.Release")
	defer func() { finish(span, err) }()

	a, err = s.allocs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	owner := a.UserID != nil && *a.UserID == p.UserID
	if !owner && !access.Manages(p, model.KindParkingSlot) {
		return nil, fmt.Errorf("release allocation %s: %w", id, repository.ErrForbidden)
	}
	if !a.IsActive() {
		return nil, repository.ErrAlreadyReleased
	}
	a, err = s.allocs.Release(ctx, id, s.Now().UTC())
	if err != nil {
		return nil, err
	}
	emit(ctx, s.pub, allocationEvent(queue.AllocationReleased, a, p, ""))
	return a, nil
}

// Mine returns the caller's open allocation, or nil when there is none.
func (s *Parking) Mine(ctx context.Context, p model.Principal) (*model.Allocation, error) {
	a, err := s.allocs.ActiveForUser(ctx, p.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return a, err
}

// List is the manager view over allocations.  A nil f.Active lists open
// allocations only.
func (s *Parking) List(ctx context.Context, p model.Principal, f repository.AllocationFilter, page repository.Page) ([]*model.Allocation, int, error) {
	if !access.Manages(p, model.KindParkingSlot) {
		return nil, 0, fmt.Errorf("list allocations: %w", repository.ErrForbidden)
	}
	if f.Active == nil {
		open := true
		f.Active = &open
	}
	return s.allocs.List(ctx, f, page)
}

// Available lists active slots without an open allocation.
func (s *Parking) Available(ctx context.Context, p model.Principal, parkingType *model.ParkingType) ([]*model.Resource, error) {
	if !access.Allowed(p, access.ActionRead, access.CategoryParkingSlot) {
		return nil, fmt.Errorf("read parking: %w", repository.ErrForbidden)
	}
	if parkingType != nil && !parkingType.Valid() {
		return nil, invalid("parking_type", "must be one of employee, visitor, reserved, handicapped")
	}
	return s.allocs.FreeSlots(ctx, parkingType)
}

// ParkingStats summarises slots and occupancy.
type ParkingStats struct {
	Slots repository.KindCounts `json:"slots"`
	repository.ParkingCounts
}

// Stats is restricted to parking managers and admins.
func (s *Parking) Stats(ctx context.Context, p model.Principal) (*ParkingStats, error) {
	if !access.Allowed(p, access.ActionStats, access.CategoryParkingSlot) {
		return nil, fmt.Errorf("parking stats: %w", repository.ErrForbidden)
	}
	c, err := s.allocs.Counts(ctx)
	if err != nil {
		return nil, err
	}
	k, err := s.resources.CountByKind(ctx, model.KindParkingSlot)
	if err != nil {
		return nil, err
	}
	return &ParkingStats{Slots: k, ParkingCounts: c}, nil
}
