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

// BookingStore is the persistence used by the booking ledger.
type BookingStore interface {
	CreateIfFree(ctx context.Context, b *model.Booking) error
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	Transition(ctx context.Context, id string, from []model.BookingStatus, to model.BookingStatus, decidedBy *string) (*model.Booking, error)
	List(ctx context.Context, f repository.BookingFilter, p repository.Page) ([]*model.Booking, int, error)
	CountByStatus(ctx context.Context, kind model.Kind, on *time.Time) (map[model.BookingStatus]int, error)
	BusyResourceIDs(ctx context.Context, kind model.Kind, period model.Booking) (map[string]bool, error)
}

// ResourceReader is the read side of ResourceStore.
type ResourceReader interface {
	GetByID(ctx context.Context, id string) (*model.Resource, error)
	List(ctx context.Context, f repository.ResourceFilter, p repository.Page) ([]*model.Resource, int, error)
	CountByKind(ctx context.Context, kind model.Kind) (repository.KindCounts, error)
}

// BookingInput is a booking request.  A zero EndDate means a single-day
// booking.
type BookingInput struct {
	ResourceID string
	StartDate  time.Time
	EndDate    time.Time
	StartTime  *model.Clock
	EndTime    *model.Clock
	GuestCount *int
	Purpose    *string
}

const maxPurpose = 500

// availabilityScan bounds how many resources Available inspects.
const availabilityScan = 1000

// Bookings is the booking ledger for desks, conference rooms and
// cafeteria tables.
type Bookings struct {
	bookings  BookingStore
	resources ResourceReader
	pub       Publisher
	Now       func() time.Time
}

// NewBookings returns a booking ledger.  A nil publisher disables events.
func NewBookings(bookings BookingStore, resources ResourceReader, pub Publisher) *Bookings {
	if bookings == nil || resources == nil {
		panic("nil store passed to NewBookings")
	}
	return &Bookings{bookings: bookings, resources: resources, pub: pub, Now: time.Now}
}

func (s *Bookings) today() time.Time { return utcDay(s.Now()) }

// checkWindow validates dates and times of in for kind and returns the
// normalised booking period.  With forBooking unset (availability queries)
// past dates are accepted and a missing time range means the whole day.
func (s *Bookings) checkWindow(kind model.Kind, in BookingInput, forBooking bool) (model.Booking, error) {
	var b model.Booking
	if in.StartDate.IsZero() {
		return b, invalid("start_date", "is required")
	}
	b.StartDate = utcDay(in.StartDate)
	b.EndDate = b.StartDate
	if !in.EndDate.IsZero() {
		b.EndDate = utcDay(in.EndDate)
	}
	if forBooking && b.StartDate.Before(s.today()) {
		return b, fmt.Errorf("start date %s is in the past: %w", b.StartDate.Format(time.DateOnly), ErrInvalidDate)
	}
	if b.EndDate.Before(b.StartDate) {
		return b, fmt.Errorf("end date before start date: %w", ErrInvalidDate)
	}

	switch {
	case in.StartTime == nil && in.EndTime == nil:
		if forBooking && kind.RequiresTimeRange() {
			ve := &ValidationError{}
			ve.add("start_time", "is required")
			ve.add("end_time", "is required")
			return b, ve
		}
	case in.StartTime == nil || in.EndTime == nil:
		return b, fmt.Errorf("start and end time must be given together: %w", ErrInvalidRange)
	default:
		st, et := *in.StartTime, *in.EndTime
		if st < 0 || et > 24*time.Hour {
			return b, fmt.Errorf("time outside of day: %w", ErrInvalidRange)
		}
		if st >= et {
			return b, fmt.Errorf("start time must be before end time: %w", ErrInvalidRange)
		}
		b.StartTime, b.EndTime = &st, &et
	}
	return b, nil
}

// Book reserves a resource of kind for p.  The checks run in a fixed
// order and stop at the first failure: resource existence, dates, time
// window and party size, then overlap inside the storage transaction.
// Conference room bookings start pending; everything else is confirmed
// immediately.
func (s *Bookings) Book(ctx context.Context, p model.Principal, kind model.Kind, in BookingInput) (b *model.Booking, err error) {
	ctx, span := tracer.Start(ctx, "Bookings.Book")
	span.SetAttributes(attribute.String("resource.kind", string(kind)), attribute.String("resource.id", in.ResourceID))
	defer func() { finish(span, err) }()

	if !kind.Bookable() {
		return nil, fmt.Errorf("%s is not bookable: %w", kind, repository.ErrNotFound)
	}
	if !access.Allowed(p, access.ActionBook, access.CategoryOf(kind)) {
		return nil, fmt.Errorf("book %s: %w", kind, repository.ErrForbidden)
	}

	res, err := s.resources.GetByID(ctx, in.ResourceID)
	if err != nil {
		return nil, err
	}
	if res.Kind != kind || !res.IsActive {
		return nil, fmt.Errorf("%s %s: %w", kind, in.ResourceID, repository.ErrNotFound)
	}

	window, err := s.checkWindow(kind, in, true)
	if err != nil {
		return nil, err
	}

	var ve ValidationError
	if kind == model.KindCafeteriaTable {
		guests := 1
		if in.GuestCount != nil {
			guests = *in.GuestCount
		}
		capacity := 1
		if res.Capacity != nil {
			capacity = *res.Capacity
		}
		if guests < 1 || guests > capacity {
			ve.add("guest_count", fmt.Sprintf("must be between 1 and %d", capacity))
		}
		window.GuestCount = &guests
	} else if in.GuestCount != nil {
		ve.add("guest_count", "not applicable to "+string(kind))
	}
	if in.Purpose != nil {
		pu := strings.TrimSpace(*in.Purpose)
		if utf8.RuneCountInString(pu) > maxPurpose {
			ve.add("purpose", fmt.Sprintf("must be at most %d characters", maxPurpose))
		}
		if pu != "" {
			window.Purpose = &pu
		}
	}
	if err := ve.err(); err != nil {
		return nil, err
	}

	b = &window
	b.ID = uuid.NewString()
	b.ResourceID = res.ID
	b.Kind = kind
	b.UserID = p.UserID
	b.Status = model.BookingConfirmed
	if kind.RequiresApproval() {
		b.Status = model.BookingPending
	}
	if err := s.bookings.CreateIfFree(ctx, b); err != nil {
		return nil, err
	}
	emit(ctx, s.pub, bookingEvent(queue.BookingCreated, b, p, res.Code))
	return b, nil
}

func bookingEvent(typ string, b *model.Booking, actor model.Principal, code string) queue.Event {
	return queue.Event{
		Type:       typ,
		ID:         b.ID,
		Kind:       string(b.Kind),
		ResourceID: b.ResourceID,
		Code:       code,
		UserID:     b.UserID,
		ActorID:    actor.UserID,
		Status:     string(b.Status),
		Period:     Period(b),
	}
}

// Period renders the booked days and window, e.g.
// "2026-10-20..2026-10-21 09:00-10:30".
func Period(b *model.Booking) string {
	out := b.StartDate.Format(time.DateOnly)
	if !b.EndDate.Equal(b.StartDate) {
		out += ".." + b.EndDate.Format(time.DateOnly)
	}
	if b.Timed() {
		out += " " + FormatClock(*b.StartTime) + "-" + FormatClock(*b.EndTime)
	}
	return out
}

// FormatClock renders a time of day as HH:MM.
func FormatClock(c model.Clock) string {
	return fmt.Sprintf("%02d:%02d", int(c.Hours()), int(c.Minutes())%60)
}

// load fetches a booking of kind; bookings of other kinds are not found.
func (s *Bookings) load(ctx context.Context, kind model.Kind, id string) (*model.Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Kind != kind {
		return nil, fmt.Errorf("%s booking %s: %w", kind, id, repository.ErrNotFound)
	}
	return b, nil
}

// Get returns a booking visible to its owner and to managers of its kind.
func (s *Bookings) Get(ctx context.Context, p model.Principal, kind model.Kind, id string) (*model.Booking, error) {
	b, err := s.load(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if b.UserID != p.UserID && !access.Manages(p, kind) {
		return nil, fmt.Errorf("booking %s: %w", id, repository.ErrForbidden)
	}
	return b, nil
}

// Cancel withdraws a pending or confirmed booking.  Owners and managers of
// the kind may cancel.  A confirmed booking whose last day has passed is
// final.
func (s *Bookings) Cancel(ctx context.Context, p model.Principal, kind model.Kind, id string) (b *model.Booking, err error) {
	ctx, span := tracer.Start(ctx, "Bookings.Cancel")
	defer func() { finish(span, err) }()

	b, err = s.Get(ctx, p, kind, id)
	if err != nil {
		return nil, err
	}
	if !b.Status.Active() {
		return nil, fmt.Errorf("booking is %s: %w", b.Status, ErrInvalidTransition)
	}
	if b.Status == model.BookingConfirmed && b.Ended(s.today()) {
		return nil, fmt.Errorf("booking ended on %s: %w", b.EndDate.Format(time.DateOnly), ErrInvalidTransition)
	}
	b, err = s.bookings.Transition(ctx, id, []model.BookingStatus{model.BookingPending, model.BookingConfirmed}, model.BookingCancelled, nil)
	if err != nil {
		return nil, err
	}
	emit(ctx, s.pub, bookingEvent(queue.BookingCancelled, b, p, ""))
	return b, nil
}

// Decide approves or rejects a pending booking.  Only managers of the kind
// (and admins) may decide.
func (s *Bookings) Decide(ctx context.Context, p model.Principal, kind model.Kind, id string, approve bool) (b *model.Booking, err error) {
	ctx, span := tracer.Start(ctx, "Bookings.Decide")
	span.SetAttributes(attribute.Bool("booking.approve", approve))
	defer func() { finish(span, err) }()

	if !access.Manages(p, kind) {
		return nil, fmt.Errorf("approve %s: %w", kind, repository.ErrForbidden)
	}
	b, err = s.load(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if b.Status != model.BookingPending {
		return nil, fmt.Errorf("booking is %s: %w", b.Status, ErrInvalidTransition)
	}
	to, typ := model.BookingRejected, queue.BookingRejected
	if approve {
		to, typ = model.BookingConfirmed, queue.BookingApproved
	}
	decider := p.UserID
	b, err = s.bookings.Transition(ctx, id, []model.BookingStatus{model.BookingPending}, to, &decider)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("booking decided concurrently: %w", ErrInvalidTransition)
		}
		return nil, err
	}
	emit(ctx, s.pub, bookingEvent(typ, b, p, ""))
	return b, nil
}

// ListMine returns the caller's bookings of kind, newest first.
func (s *Bookings) ListMine(ctx context.Context, p model.Principal, kind model.Kind, status *model.BookingStatus, page repository.Page) ([]*model.Booking, int, error) {
	if p.UserID == "" {
		return nil, 0, repository.ErrForbidden
	}
	return s.bookings.List(ctx, repository.BookingFilter{Kind: kind, UserID: p.UserID, Status: status}, page)
}

// List is the manager view over every booking of a kind.
func (s *Bookings) List(ctx context.Context, p model.Principal, f repository.BookingFilter, page repository.Page) ([]*model.Booking, int, error) {
	if !access.Manages(p, f.Kind) {
		return nil, 0, fmt.Errorf("list %s bookings: %w", f.Kind, repository.ErrForbidden)
	}
	return s.bookings.List(ctx, f, page)
}

// Available lists active resources of kind that have no active booking
// overlapping the requested window.  Without times the window is the whole
// day, so any booking on those dates makes a resource busy.  For cafeteria
// tables the guest count also filters by capacity.
func (s *Bookings) Available(ctx context.Context, p model.Principal, kind model.Kind, in BookingInput) ([]*model.Resource, error) {
	if !kind.Bookable() {
		return nil, fmt.Errorf("%s is not bookable: %w", kind, repository.ErrNotFound)
	}
	if !access.Allowed(p, access.ActionRead, access.CategoryOf(kind)) {
		return nil, fmt.Errorf("read %s: %w", kind, repository.ErrForbidden)
	}
	period, err := s.checkWindow(kind, in, false)
	if err != nil {
		return nil, err
	}
	active := true
	f := repository.ResourceFilter{Kind: kind, IsActive: &active}
	if in.GuestCount != nil {
		if *in.GuestCount < 1 {
			return nil, invalid("guest_count", "must be at least 1")
		}
		f.MinCapacity = in.GuestCount
	}
	all, _, err := s.resources.List(ctx, f, repository.Page{Number: 1, Size: availabilityScan})
	if err != nil {
		return nil, err
	}
	busy, err := s.bookings.BusyResourceIDs(ctx, kind, period)
	if err != nil {
		return nil, err
	}
	free := make([]*model.Resource, 0, len(all))
	for _, r := range all {
		if !busy[r.ID] {
			free = append(free, r)
		}
	}
	return free, nil
}

// BookingStats summarises the bookings of one kind.
type BookingStats struct {
	Resources   repository.KindCounts `json:"resources"`
	ByStatus    map[string]int        `json:"by_status"`
	ActiveToday int                   `json:"active_today"`
	PendingNow  int                   `json:"pending"`
}

// Stats is restricted to managers of the kind.
func (s *Bookings) Stats(ctx context.Context, p model.Principal, kind model.Kind) (*BookingStats, error) {
	if !access.Allowed(p, access.ActionStats, access.CategoryOf(kind)) {
		return nil, fmt.Errorf("stats %s: %w", kind, repository.ErrForbidden)
	}
	all, err := s.bookings.CountByStatus(ctx, kind, nil)
	if err != nil {
		return nil, err
	}
	today := s.today()
	onToday, err := s.bookings.CountByStatus(ctx, kind, &today)
	if err != nil {
		return nil, err
	}
	st := &BookingStats{ByStatus: map[string]int{}}
	for k, n := range all {
		st.ByStatus[string(k)] = n
	}
	st.PendingNow = all[model.BookingPending]
	st.ActiveToday = onToday[model.BookingPending] + onToday[model.BookingConfirmed]
	if st.Resources, err = s.resources.CountByKind(ctx, kind); err != nil {
		return nil, err
	}
	return st, nil
}
