package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/office-resource-booking/internal/model"
	"github.com/iliyamo/office-resource-booking/internal/repository"
)

// memStore is an in-memory stand-in for the MySQL repositories.  A single
// mutex plays the role of the row locks taken by the real queries.
type memStore struct {
	mu        sync.Mutex
	seq       map[model.Kind]uint64
	resources map[string]*model.Resource
	bookings  map[string]*model.Booking
	allocs    map[string]*model.Allocation
	users     map[string]*model.User
}

func newMemStore() *memStore {
	return &memStore{
		seq:       map[model.Kind]uint64{},
		resources: map[string]*model.Resource{},
		bookings:  map[string]*model.Booking{},
		allocs:    map[string]*model.Allocation{},
		users:     map[string]*model.User{},
	}
}

type memResources struct{ *memStore }
type memBookings struct{ *memStore }
type memAllocs struct{ *memStore }
type memUsers struct{ *memStore }

func (m memResources) Create(_ context.Context, r *model.Resource) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq[r.Kind]++
	r.Code = model.FormatCode(r.Kind, m.seq[r.Kind])
	cp := *r
	m.resources[r.ID] = &cp
	return nil
}

func (m memResources) GetByID(_ context.Context, id string) (*model.Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.resources[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m memResources) List(_ context.Context, f repository.ResourceFilter, p repository.Page) ([]*model.Resource, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Resource
	for _, r := range m.resources {
		if r.Kind != f.Kind {
			continue
		}
		if f.IsActive != nil && r.IsActive != *f.IsActive {
			continue
		}
		if f.ParkingType != nil && (r.ParkingType == nil || *r.ParkingType != *f.ParkingType) {
			continue
		}
		if f.MinCapacity != nil && (r.Capacity == nil || *r.Capacity < *f.MinCapacity) {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	total := len(out)
	lo := min(p.Offset(), total)
	hi := min(lo+p.Limit(), total)
	return out[lo:hi], total, nil
}

func (m memResources) Update(_ context.Context, r *model.Resource) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.resources[r.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *r
	m.resources[r.ID] = &cp
	return nil
}

func (m memResources) Delete(_ context.Context, id string, today time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.resources[id]; !ok {
		return repository.ErrNotFound
	}
	for _, b := range m.bookings {
		if b.ResourceID == id && b.Status.Active() && !b.EndDate.Before(today) {
			return fmt.Errorf("active bookings: %w", repository.ErrConflict)
		}
	}
	for _, a := range m.allocs {
		if a.SlotID == id && a.IsActive() {
			return fmt.Errorf("occupied: %w", repository.ErrConflict)
		}
	}
	delete(m.resources, id)
	return nil
}

func (m memResources) CountByKind(_ context.Context, kind model.Kind) (repository.KindCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var c repository.KindCounts
	for _, r := range m.resources {
		if r.Kind != kind {
			continue
		}
		c.Total++
		if r.IsActive {
			c.Active++
		}
	}
	c.Inactive = c.Total - c.Active
	return c, nil
}

func (m memBookings) CreateIfFree(_ context.Context, b *model.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.resources[b.ResourceID]
	if !ok || !r.IsActive {
		return repository.ErrNotFound
	}
	for _, o := range m.bookings {
		if o.Status.Active() && o.Overlaps(*b) {
			return fmt.Errorf("overlaps booking %s: %w", o.ID, repository.ErrConflict)
		}
	}
	cp := *b
	m.bookings[b.ID] = &cp
	return nil
}

func (m memBookings) GetByID(_ context.Context, id string) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m memBookings) Transition(_ context.Context, id string, from []model.BookingStatus, to model.BookingStatus, decidedBy *string) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	for _, s := range from {
		if b.Status == s {
			b.Status = to
			if decidedBy != nil {
				d := *decidedBy
				b.DecidedBy = &d
			}
			cp := *b
			return &cp, nil
		}
	}
	return nil, repository.ErrConflict
}

func (m memBookings) List(_ context.Context, f repository.BookingFilter, p repository.Page) ([]*model.Booking, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Booking
	for _, b := range m.bookings {
		if b.Kind != f.Kind || (f.UserID != "" && b.UserID != f.UserID) || (f.Status != nil && b.Status != *f.Status) {
			continue
		}
		cp := *b
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (m memBookings) CountByStatus(_ context.Context, kind model.Kind, on *time.Time) (map[model.BookingStatus]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[model.BookingStatus]int{}
	for _, b := range m.bookings {
		if b.Kind != kind {
			continue
		}
		if on != nil && (b.StartDate.After(*on) || b.EndDate.Before(*on)) {
			continue
		}
		out[b.Status]++
	}
	return out, nil
}

func (m memBookings) BusyResourceIDs(_ context.Context, kind model.Kind, period model.Booking) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	busy := map[string]bool{}
	for _, b := range m.bookings {
		period.ResourceID = b.ResourceID
		if b.Kind == kind && b.Status.Active() && b.Overlaps(period) {
			busy[b.ResourceID] = true
		}
	}
	return busy, nil
}

func (m memAllocs) Create(_ context.Context, a *model.Allocation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.resources[a.SlotID]
	if !ok || !r.IsActive || r.Kind != model.KindParkingSlot {
		return repository.ErrNotFound
	}
	for _, o := range m.allocs {
		if !o.IsActive() {
			continue
		}
		if a.UserID != nil && o.UserID != nil && *o.UserID == *a.UserID {
			return repository.ErrUserHasActiveAllocation
		}
		if o.SlotID == a.SlotID {
			return repository.ErrSlotOccupied
		}
	}
	cp := *a
	m.allocs[a.ID] = &cp
	return nil
}

func (m memAllocs) GetByID(_ context.Context, id string) (*model.Allocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.allocs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m memAllocs) Release(_ context.Context, id string, at time.Time) (*model.Allocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.allocs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if !a.IsActive() {
		return nil, repository.ErrAlreadyReleased
	}
	a.ExitTime = &at
	cp := *a
	return &cp, nil
}

func (m memAllocs) ActiveForUser(_ context.Context, userID string) (*model.Allocation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.allocs {
		if a.IsActive() && a.UserID != nil && *a.UserID == userID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m memAllocs) List(_ context.Context, f repository.AllocationFilter, _ repository.Page) ([]*model.Allocation, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Allocation
	for _, a := range m.allocs {
		if f.Active != nil && a.IsActive() != *f.Active {
			continue
		}
		if f.VisitorOnly && !a.IsVisitor() {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (m memAllocs) FreeSlots(_ context.Context, pt *model.ParkingType) ([]*model.Resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	taken := map[string]bool{}
	for _, a := range m.allocs {
		if a.IsActive() {
			taken[a.SlotID] = true
		}
	}
	var out []*model.Resource
	for _, r := range m.resources {
		if r.Kind != model.KindParkingSlot || !r.IsActive || taken[r.ID] {
			continue
		}
		if pt != nil && (r.ParkingType == nil || *r.ParkingType != *pt) {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m memAllocs) Counts(_ context.Context) (repository.ParkingCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := repository.ParkingCounts{ByType: map[string]int{}}
	for _, r := range m.resources {
		if r.Kind == model.KindParkingSlot && r.IsActive {
			c.TotalSlots++
		}
	}
	for _, a := range m.allocs {
		if r := m.resources[a.SlotID]; !a.IsActive() || r == nil || !r.IsActive {
			continue
		}
		c.OccupiedSlots++
		if a.IsVisitor() {
			c.ActiveVisitors++
		}
		if r := m.resources[a.SlotID]; r != nil && r.ParkingType != nil {
			c.ByType[string(*r.ParkingType)]++
		}
	}
	c.AvailableSlots = c.TotalSlots - c.OccupiedSlots
	return c, nil
}

func (m memUsers) Create(_ context.Context, u *model.User, password string, _ int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.users {
		if o.Email == u.Email {
			return repository.ErrEmailExists
		}
	}
	u.PasswordHash = "hashed:" + password
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m memUsers) GetByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m memUsers) List(_ context.Context, _ repository.UserFilter, _ repository.Page) ([]*model.User, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.User
	for _, u := range m.users {
		cp := *u
		out = append(out, &cp)
	}
	return out, len(out), nil
}

// recorder captures published events.
type recorder struct {
	mu   sync.Mutex
	keys []string
}

func (r *recorder) PublishJSON(_ context.Context, key string, _ any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, key)
	return nil
}

func (r *recorder) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.keys...)
}

var (
	superAdmin     = model.Principal{UserID: "u-super", Role: model.RoleSuperAdmin}
	admin          = model.Principal{UserID: "u-admin", Role: model.RoleAdmin}
	parkingManager = model.Principal{UserID: "u-pm", Role: model.RoleManager, ManagerType: model.ManagerParking}
	deskManager    = model.Principal{UserID: "u-dm", Role: model.RoleManager, ManagerType: model.ManagerDeskConference}
	cafeManager    = model.Principal{UserID: "u-cm", Role: model.RoleManager, ManagerType: model.ManagerCafeteria}
	employeeE      = model.Principal{UserID: "u-e", Role: model.RoleEmployee}
	employeeF      = model.Principal{UserID: "u-f", Role: model.RoleEmployee}
	teamLead       = model.Principal{UserID: "u-tl", Role: model.RoleTeamLead}
)

// fixedClock returns a clock pinned to 2026-10-17 10:00 UTC.
func fixedClock() func() time.Time {
	return func() time.Time { return time.Date(2026, 10, 17, 10, 0, 0, 0, time.UTC) }
}

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func clock(h, m int) *model.Clock {
	c := time.Duration(h)*time.Hour + time.Duration(m)*time.Minute
	return &c
}

func ptr[T any](v T) *T { return &v }
