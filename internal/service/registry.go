package service

import (
	"context"
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

// ResourceStore is the persistence used by the registry.
type ResourceStore interface {
	Create(ctx context.Context, res *model.Resource) error
	GetByID(ctx context.Context, id string) (*model.Resource, error)
	List(ctx context.Context, f repository.ResourceFilter, p repository.Page) ([]*model.Resource, int, error)
	Update(ctx context.Context, res *model.Resource) error
	Delete(ctx context.Context, id string, today time.Time) error
	CountByKind(ctx context.Context, kind model.Kind) (repository.KindCounts, error)
}

// ResourceInput carries the writable fields of a resource.  On update nil
// fields are left unchanged.
type ResourceInput struct {
	Label       *string
	Capacity    *int
	Notes       *string
	ParkingType *model.ParkingType
	VehicleType *model.VehicleType
	TableType   *string
	IsActive    *bool
}

const (
	maxLabel     = 50
	maxNotes     = 500
	maxTableType = 30
	minCapacity  = 1
	maxCapacity  = 20
)

// Registry manages desks, conference rooms, parking slots and cafeteria
// tables.
type Registry struct {
	repo ResourceStore
	pub  Publisher
	Now  func() time.Time
}

// NewRegistry returns a Registry.  A nil publisher disables events.
func NewRegistry(repo ResourceStore, pub Publisher) *Registry {
	if repo == nil {
		panic("nil ResourceStore passed to NewRegistry")
	}
	return &Registry{repo: repo, pub: pub, Now: time.Now}
}

func (s *Registry) authorize(p model.Principal, a access.Action, kind model.Kind) error {
	if !kind.Valid() {
		return fmt.Errorf("unknown kind %q: %w", kind, repository.ErrNotFound)
	}
	if !access.Allowed(p, a, access.CategoryOf(kind)) {
		return fmt.Errorf("%s %s: %w", a, kind, repository.ErrForbidden)
	}
	return nil
}

// apply copies in onto r and validates the result for r.Kind.
func apply(r *model.Resource, in ResourceInput) error {
	var ve ValidationError
	if in.Label != nil {
		l := strings.TrimSpace(*in.Label)
		r.Label = l
	}
	if n := utf8.RuneCountInString(r.Label); n < 1 || n > maxLabel {
		ve.add("label", fmt.Sprintf("must be 1-%d characters", maxLabel))
	}
	if in.Notes != nil {
		n := strings.TrimSpace(*in.Notes)
		if n == "" {
			r.Notes = nil
		} else {
			r.Notes = &n
		}
	}
	if r.Notes != nil && utf8.RuneCountInString(*r.Notes) > maxNotes {
		ve.add("notes", fmt.Sprintf("must be at most %d characters", maxNotes))
	}
	if in.IsActive != nil {
		r.IsActive = *in.IsActive
	}

	if in.Capacity != nil {
		if !r.Kind.HasCapacity() {
			ve.add("capacity", "not applicable to "+string(r.Kind))
		}
		c := *in.Capacity
		r.Capacity = &c
	}
	if r.Kind.HasCapacity() {
		if r.Capacity == nil {
			ve.add("capacity", "is required")
		} else if *r.Capacity < minCapacity || *r.Capacity > maxCapacity {
			ve.add("capacity", fmt.Sprintf("must be between %d and %d", minCapacity, maxCapacity))
		}
	}

	if in.ParkingType != nil || in.VehicleType != nil {
		if r.Kind != model.KindParkingSlot {
			if in.ParkingType != nil {
				ve.add("parking_type", "not applicable to "+string(r.Kind))
			}
			if in.VehicleType != nil {
				ve.add("vehicle_type", "not applicable to "+string(r.Kind))
			}
		}
	}
	if r.Kind == model.KindParkingSlot {
		if in.ParkingType != nil {
			pt := *in.ParkingType
			r.ParkingType = &pt
		}
		if in.VehicleType != nil {
			vt := *in.VehicleType
			r.VehicleType = &vt
		}
		if r.ParkingType == nil {
			pt := model.ParkingEmployee
			r.ParkingType = &pt
		}
		if r.VehicleType == nil {
			vt := model.VehicleCar
			r.VehicleType = &vt
		}
		if !r.ParkingType.Valid() {
			ve.add("parking_type", "must be one of employee, visitor, reserved, handicapped")
		}
		if !r.VehicleType.Valid() {
			ve.add("vehicle_type", "must be one of car, bike, any")
		}
	}

	if in.TableType != nil {
		if r.Kind != model.KindCafeteriaTable {
			ve.add("table_type", "not applicable to "+string(r.Kind))
		}
		t := strings.TrimSpace(*in.TableType)
		if t == "" {
			r.TableType = nil
		} else {
			r.TableType = &t
		}
	}
	if r.TableType != nil && utf8.RuneCountInString(*r.TableType) > maxTableType {
		ve.add("table_type", fmt.Sprintf("must be at most %d characters", maxTableType))
	}
	return ve.err()
}

// Create registers a resource of kind.  The code is assigned by storage in
// the same transaction as the insert.
func (s *Registry) Create(ctx context.Context, p model.Principal, kind model.Kind, in ResourceInput) (res *model.Resource, err error) {
	ctx, span := tracer.Start(ctx, "Registry.Create")
	span.SetAttributes(attribute.String("resource.kind", string(kind)))
	defer func() { finish(span, err) }()

	if err := s.authorize(p, access.ActionCreate, kind); err != nil {
		return nil, err
	}
	if in.Label == nil {
		return nil, invalid("label", "is required")
	}
	res = &model.Resource{
		ID:        uuid.NewString(),
		Kind:      kind,
		IsActive:  true,
		CreatedBy: p.UserID,
	}
	if err := apply(res, in); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, res); err != nil {
		return nil, err
	}
	emit(ctx, s.pub, queue.Event{Type: queue.ResourceCreated, ID: res.ID, Kind: string(kind), Code: res.Code, ActorID: p.UserID})
	return res, nil
}

// Get returns a resource of kind.  A resource of another kind is reported
// as not found.
func (s *Registry) Get(ctx context.Context, p model.Principal, kind model.Kind, id string) (*model.Resource, error) {
	if err := s.authorize(p, access.ActionRead, kind); err != nil {
		return nil, err
	}
	return s.lookup(ctx, kind, id)
}

func (s *Registry) lookup(ctx context.Context, kind model.Kind, id string) (*model.Resource, error) {
	res, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.Kind != kind {
		return nil, fmt.Errorf("%s %s: %w", kind, id, repository.ErrNotFound)
	}
	return res, nil
}

// List returns one page of resources.  Only active resources are listed
// unless f.IsActive says otherwise.
func (s *Registry) List(ctx context.Context, p model.Principal, f repository.ResourceFilter, page repository.Page) ([]*model.Resource, int, error) {
	if err := s.authorize(p, access.ActionRead, f.Kind); err != nil {
		return nil, 0, err
	}
	if f.IsActive == nil {
		active := true
		f.IsActive = &active
	}
	return s.repo.List(ctx, f, page)
}

// Update applies a partial change.  Deactivation is Update with
// IsActive=false.
func (s *Registry) Update(ctx context.Context, p model.Principal, kind model.Kind, id string, in ResourceInput) (res *model.Resource, err error) {
	ctx, span := tracer.Start(ctx, "Registry.Update")
	defer func() { finish(span, err) }()

	if err := s.authorize(p, access.ActionUpdate, kind); err != nil {
		return nil, err
	}
	res, err = s.lookup(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if err := apply(res, in); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

// Delete removes a resource.  Storage refuses with ErrConflict while an
// active booking or allocation still references it.
func (s *Registry) Delete(ctx context.Context, p model.Principal, kind model.Kind, id string) (err error) {
	ctx, span := tracer.Start(ctx, "Registry.Delete")
	defer func() { finish(span, err) }()

	if err := s.authorize(p, access.ActionDelete, kind); err != nil {
		return err
	}
	res, err := s.lookup(ctx, kind, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id, utcDay(s.Now())); err != nil {
		return err
	}
	emit(ctx, s.pub, queue.Event{Type: queue.ResourceDeleted, ID: id, Kind: string(kind), Code: res.Code, ActorID: p.UserID})
	return nil
}

// Stats returns resource counts for kind.
func (s *Registry) Stats(ctx context.Context, p model.Principal, kind model.Kind) (repository.KindCounts, error) {
	if err := s.authorize(p, access.ActionStats, kind); err != nil {
		return repository.KindCounts{}, err
	}
	return s.repo.CountByKind(ctx, kind)
}
