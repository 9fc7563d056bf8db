package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/office-resource-booking/internal/model"
)

// BookingRepo stores desk, conference room and cafeteria table bookings.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingCols = `id, resource_id, kind, user_id, start_date, end_date, start_time, end_time,
	guest_count, purpose, status, decided_by, decided_at, created_at, updated_at`

func scanBooking(s rowScanner) (*model.Booking, error) {
	var (
		b                  model.Booking
		startT, endT       sql.NullString
		guests             sql.NullInt64
		purpose, decidedBy sql.NullString
		decidedAt          sql.NullTime
	)
	if err := s.Scan(&b.ID, &b.ResourceID, &b.Kind, &b.UserID, &b.StartDate, &b.EndDate, &startT, &endT,
		&guests, &purpose, &b.Status, &decidedBy, &decidedAt, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	if b.StartTime, err = parseClock(startT); err != nil {
		return nil, err
	}
	if b.EndTime, err = parseClock(endT); err != nil {
		return nil, err
	}
	b.GuestCount = nullInt(guests)
	b.Purpose = nullString(purpose)
	b.DecidedBy = nullString(decidedBy)
	b.DecidedAt = nullTime(decidedAt)
	return &b, nil
}

// CreateIfFree inserts b unless it overlaps an active booking on the same
// resource.  The resource row is locked FOR UPDATE for the duration of the
// transaction, which serialises every writer booking that resource; the
// overlap check and the insert therefore observe a stable set of
// bookings.  It returns ErrNotFound when the resource is missing or
// inactive and ErrConflict (wrapping the clashing booking id) on overlap.
func (r *BookingRepo) CreateIfFree(ctx context.Context, b *model.Booking) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var active bool
	err = tx.QueryRowContext(ctx, "SELECT is_active FROM resources WHERE id = ? FOR UPDATE", b.ResourceID).Scan(&active)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !active) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	q := "SELECT " + bookingCols + ` FROM bookings
	      WHERE resource_id = ? AND status IN ('pending','confirmed') AND start_date <= ? AND end_date >= ?`
	rows, err := tx.QueryContext(ctx, q, b.ResourceID, dateArg(b.EndDate), dateArg(b.StartDate))
	if err != nil {
		return err
	}
	var clash *model.Booking
	for rows.Next() {
		existing, err := scanBooking(rows)
		if err != nil {
			rows.Close()
			return err
		}
		if existing.Overlaps(*b) {
			clash = existing
			break
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	if clash != nil {
		return fmt.Errorf("overlaps booking %s: %w", clash.ID, ErrConflict)
	}

	now := time.Now().UTC()
	b.CreatedAt, b.UpdatedAt = now, now
	const ins = `INSERT INTO bookings (id, resource_id, kind, user_id, start_date, end_date, start_time, end_time,
	             guest_count, purpose, status, created_at, updated_at)
	             VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, ins, b.ID, b.ResourceID, string(b.Kind), b.UserID, dateArg(b.StartDate),
		dateArg(b.EndDate), clockArg(b.StartTime), clockArg(b.EndTime), b.GuestCount, b.Purpose,
		string(b.Status), b.CreatedAt, b.UpdatedAt); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// GetByID returns a booking or ErrNotFound.
func (r *BookingRepo) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, "SELECT "+bookingCols+" FROM bookings WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return b, err
}

// Transition moves a booking from one of the from statuses to to.  The
// status guard is part of the UPDATE so two concurrent transitions cannot
// both succeed; the loser receives ErrConflict.  decidedBy is recorded for
// approvals and rejections.
func (r *BookingRepo) Transition(ctx context.Context, id string, from []model.BookingStatus, to model.BookingStatus, decidedBy *string) (*model.Booking, error) {
	if len(from) == 0 {
		return nil, fmt.Errorf("no source status: %w", ErrConflict)
	}
	now := time.Now().UTC()
	args := []any{string(to), now}
	set := "status = ?, updated_at = ?"
	if decidedBy != nil {
		set += ", decided_by = ?, decided_at = ?"
		args = append(args, *decidedBy, now)
	}
	marks := make([]string, len(from))
	args = append(args, id)
	for i, s := range from {
		marks[i] = "?"
		args = append(args, string(s))
	}
	q := "UPDATE bookings SET " + set + " WHERE id = ? AND status IN (" + strings.Join(marks, ",") + ")"
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("booking is no longer %v: %w", from, ErrConflict)
	}
	return r.GetByID(ctx, id)
}

// BookingFilter narrows List results.
type BookingFilter struct {
	Kind       model.Kind
	UserID     string
	ResourceID string
	Status     *model.BookingStatus
	On         *time.Time
}

// List returns one page of bookings of a kind, newest first, with the
// total number of matches.
func (r *BookingRepo) List(ctx context.Context, f BookingFilter, p Page) ([]*model.Booking, int, error) {
	conds := []string{"kind = ?"}
	args := []any{string(f.Kind)}
	if f.UserID != "" {
		conds = append(conds, "user_id = ?")
		args = append(args, f.UserID)
	}
	if f.ResourceID != "" {
		conds = append(conds, "resource_id = ?")
		args = append(args, f.ResourceID)
	}
	if f.Status != nil {
		conds = append(conds, "status = ?")
		args = append(args, string(*f.Status))
	}
	if f.On != nil {
		conds = append(conds, "start_date <= ? AND end_date >= ?")
		args = append(args, dateArg(*f.On), dateArg(*f.On))
	}
	where := " WHERE " + strings.Join(conds, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM bookings"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	q := "SELECT " + bookingCols + " FROM bookings" + where + " ORDER BY start_date DESC, created_at DESC LIMIT ? OFFSET ?"
	rows, err := r.db.QueryContext(ctx, q, append(args, p.Limit(), p.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := make([]*model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// CountByStatus returns booking counts per status for kind.  Only
// bookings whose range includes on are counted when on is non-nil.
func (r *BookingRepo) CountByStatus(ctx context.Context, kind model.Kind, on *time.Time) (map[model.BookingStatus]int, error) {
	q := "SELECT status, COUNT(*) FROM bookings WHERE kind = ?"
	args := []any{string(kind)}
	if on != nil {
		q += " AND start_date <= ? AND end_date >= ?"
		args = append(args, dateArg(*on), dateArg(*on))
	}
	q += " GROUP BY status"
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[model.BookingStatus]int{}
	for rows.Next() {
		var s string
		var n int
		if err := rows.Scan(&s, &n); err != nil {
			return nil, err
		}
		out[model.BookingStatus(s)] = n
	}
	return out, rows.Err()
}

// BusyResourceIDs returns ids of resources of kind that have an active
// booking overlapping period.  period.ResourceID is ignored.
func (r *BookingRepo) BusyResourceIDs(ctx context.Context, kind model.Kind, period model.Booking) (map[string]bool, error) {
	q := "SELECT " + bookingCols + ` FROM bookings
	      WHERE kind = ? AND status IN ('pending','confirmed') AND start_date <= ? AND end_date >= ?`
	rows, err := r.db.QueryContext(ctx, q, string(kind), dateArg(period.EndDate), dateArg(period.StartDate))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	busy := map[string]bool{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		period.ResourceID = b.ResourceID
		if b.Overlaps(period) {
			busy[b.ResourceID] = true
		}
	}
	return busy, rows.Err()
}
