package handler

import (
	"context"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/office-resource-booking/internal/middleware"
	"github.com/iliyamo/office-resource-booking/internal/model"
	"github.com/iliyamo/office-resource-booking/internal/repository"
	"github.com/iliyamo/office-resource-booking/internal/utils"
)

const testSecret = "handler-test-secret"

func ptr[T any](v T) *T { return &v }

// fakeResources is a map-backed service.ResourceStore.
type fakeResources struct {
	mu   sync.Mutex
	seq  map[model.Kind]uint64
	byID map[string]*model.Resource
}

func newFakeResources() *fakeResources {
	return &fakeResources{seq: map[model.Kind]uint64{}, byID: map[string]*model.Resource{}}
}

func (f *fakeResources) Create(_ context.Context, r *model.Resource) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq[r.Kind]++
	r.Code = model.FormatCode(r.Kind, f.seq[r.Kind])
	cp := *r
	f.byID[r.ID] = &cp
	return nil
}

func (f *fakeResources) GetByID(_ context.Context, id string) (*model.Resource, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeResources) List(_ context.Context, flt repository.ResourceFilter, _ repository.Page) ([]*model.Resource, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Resource
	for _, r := range f.byID {
		if r.Kind == flt.Kind && (flt.IsActive == nil || r.IsActive == *flt.IsActive) {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

func (f *fakeResources) Update(_ context.Context, r *model.Resource) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *r
	f.byID[r.ID] = &cp
	return nil
}

func (f *fakeResources) Delete(_ context.Context, id string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byID, id)
	return nil
}

func (f *fakeResources) CountByKind(_ context.Context, kind model.Kind) (repository.KindCounts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var c repository.KindCounts
	for _, r := range f.byID {
		if r.Kind == kind {
			c.Total++
			if r.IsActive {
				c.Active++
			} else {
				c.Inactive++
			}
		}
	}
	return c, nil
}

// fakeBookings is a map-backed service.BookingStore with the overlap rule.
type fakeBookings struct {
	mu   sync.Mutex
	byID map[string]*model.Booking
}

func newFakeBookings() *fakeBookings { return &fakeBookings{byID: map[string]*model.Booking{}} }

func (f *fakeBookings) CreateIfFree(_ context.Context, b *model.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.byID {
		if o.ResourceID == b.ResourceID && o.Status.Active() && o.Overlaps(*b) {
			return repository.ErrConflict
		}
	}
	cp := *b
	f.byID[b.ID] = &cp
	return nil
}

func (f *fakeBookings) GetByID(_ context.Context, id string) (*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (f *fakeBookings) Transition(_ context.Context, id string, from []model.BookingStatus, to model.BookingStatus, decidedBy *string) (*model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	for _, s := range from {
		if b.Status == s {
			b.Status = to
			b.DecidedBy = decidedBy
			cp := *b
			return &cp, nil
		}
	}
	return nil, repository.ErrConflict
}

func (f *fakeBookings) List(_ context.Context, flt repository.BookingFilter, _ repository.Page) ([]*model.Booking, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Booking
	for _, b := range f.byID {
		if b.Kind == flt.Kind && (flt.UserID == "" || b.UserID == flt.UserID) {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

func (f *fakeBookings) CountByStatus(context.Context, model.Kind, *time.Time) (map[model.BookingStatus]int, error) {
	return map[model.BookingStatus]int{}, nil
}

func (f *fakeBookings) BusyResourceIDs(_ context.Context, kind model.Kind, period model.Booking) (map[string]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	busy := map[string]bool{}
	for _, b := range f.byID {
		if b.Kind == kind && b.Status.Active() && b.Overlaps(period) {
			busy[b.ResourceID] = true
		}
	}
	return busy, nil
}

// fakeAllocs is a map-backed service.AllocationStore enforcing one open
// allocation per user and per slot.
type fakeAllocs struct {
	mu   sync.Mutex
	res  *fakeResources
	byID map[string]*model.Allocation
}

func newFakeAllocs(res *fakeResources) *fakeAllocs {
	return &fakeAllocs{res: res, byID: map[string]*model.Allocation{}}
}

func (f *fakeAllocs) Create(_ context.Context, a *model.Allocation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.byID {
		if !o.IsActive() {
			continue
		}
		if o.SlotID == a.SlotID || (a.UserID != nil && o.UserID != nil && *a.UserID == *o.UserID) {
			return repository.ErrConflict
		}
	}
	cp := *a
	f.byID[a.ID] = &cp
	return nil
}

func (f *fakeAllocs) GetByID(_ context.Context, id string) (*model.Allocation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAllocs) Release(_ context.Context, id string, at time.Time) (*model.Allocation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if !a.IsActive() {
		return nil, repository.ErrConflict
	}
	a.ExitTime = &at
	cp := *a
	return &cp, nil
}

func (f *fakeAllocs) ActiveForUser(_ context.Context, userID string) (*model.Allocation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.byID {
		if a.IsActive() && a.UserID != nil && *a.UserID == userID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeAllocs) List(_ context.Context, flt repository.AllocationFilter, _ repository.Page) ([]*model.Allocation, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Allocation
	for _, a := range f.byID {
		if flt.Active != nil && a.IsActive() != *flt.Active {
			continue
		}
		if flt.VisitorOnly && !a.IsVisitor() {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (f *fakeAllocs) FreeSlots(_ context.Context, pt *model.ParkingType) ([]*model.Resource, error) {
	f.mu.Lock()
	taken := map[string]bool{}
	for _, a := range f.byID {
		if a.IsActive() {
			taken[a.SlotID] = true
		}
	}
	f.mu.Unlock()

	f.res.mu.Lock()
	defer f.res.mu.Unlock()
	var out []*model.Resource
	for _, r := range f.res.byID {
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

func (f *fakeAllocs) Counts(context.Context) (repository.ParkingCounts, error) {
	return repository.ParkingCounts{}, nil
}

// newTestEcho mirrors the server set-up: validator, error handler and
// JWT-protected group.
func newTestEcho() (*echo.Echo, *echo.Group) {
	e := echo.New()
	e.Validator = NewValidator()
	e.HTTPErrorHandler = ErrorHandler
	return e, e.Group("/api/v1", middleware.JWTAuth(testSecret))
}

func tokenFor(t *testing.T, p model.Principal) string {
	t.Helper()
	tok, err := utils.NewAccessToken(testSecret, utils.AccessClaims{
		UserID:      p.UserID,
		Role:        string(p.Role),
		ManagerType: string(p.ManagerType),
	}, 5)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok.Token
}

// call performs a request as p; a zero principal sends no token.
func call(t *testing.T, e *echo.Echo, p model.Principal, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if p.UserID != "" {
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, p))
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

var (
	admin       = model.Principal{UserID: "5b0e7c0e-0000-4000-8000-000000000001", Role: model.RoleAdmin}
	deskManager = model.Principal{UserID: "5b0e7c0e-0000-4000-8000-000000000002", Role: model.RoleManager, ManagerType: model.ManagerDeskConference}
	employeeA   = model.Principal{UserID: "5b0e7c0e-0000-4000-8000-000000000003", Role: model.RoleEmployee}
	parkingMgr  = model.Principal{UserID: "5b0e7c0e-0000-4000-8000-000000000005", Role: model.RoleManager, ManagerType: model.ManagerParking}
	employeeB   = model.Principal{UserID: "5b0e7c0e-0000-4000-8000-000000000004", Role: model.RoleEmployee}
)
