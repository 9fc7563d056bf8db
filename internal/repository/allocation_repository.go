package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/office-resource-booking/internal/database"
	"github.com/iliyamo/office-resource-booking/internal/model"
)

// AllocationRepo stores parking allocations.  At most one open allocation
// per user and per slot is enforced by unique indexes on generated
// columns (see database/schema.go); the checks below only produce precise
// error messages.
type AllocationRepo struct {
	db *sql.DB
}

// NewAllocationRepo returns a new AllocationRepo bound to the given database.
func NewAllocationRepo(db *sql.DB) *AllocationRepo { return &AllocationRepo{db: db} }

// Sentinel causes wrapped in ErrConflict so callers can tell them apart.
var (
	ErrUserHasActiveAllocation = fmt.Errorf("user already has an active parking allocation: %w", ErrConflict)
	ErrSlotOccupied            = fmt.Errorf("parking slot is occupied: %w", ErrConflict)
	ErrAlreadyReleased         = fmt.Errorf("allocation already released: %w", ErrConflict)
)

const allocationCols = `id, slot_id, user_id, visitor_name, visitor_phone, visitor_company, vehicle_number,
	vehicle_type, notes, entry_time, exit_time, created_by, created_at, updated_at`

func scanAllocation(s rowScanner) (*model.Allocation, error) {
	var (
		a                          model.Allocation
		userID, vName, vPhone, vCo sql.NullString
		plate, vType, notes        sql.NullString
		exit                       sql.NullTime
	)
	if err := s.Scan(&a.ID, &a.SlotID, &userID, &vName, &vPhone, &vCo, &plate, &vType, &notes,
		&a.EntryTime, &exit, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.UserID = nullString(userID)
	a.VisitorName = nullString(vName)
	a.VisitorPhone = nullString(vPhone)
	a.VisitorCompany = nullString(vCo)
	a.VehicleNumber = nullString(plate)
	a.Notes = nullString(notes)
	a.ExitTime = nullTime(exit)
	if vType.Valid {
		vt := model.VehicleType(vType.String)
		a.VehicleType = &vt
	}
	return &a, nil
}

// Create inserts an open allocation.  Inside one transaction it locks the
// slot row, verifies the slot is an active parking slot (ErrNotFound
// otherwise), rejects a user that already holds an open allocation and a
// slot that is occupied.  A duplicate-key error from the unique indexes
// is mapped to ErrConflict for requests that race past the checks.
func (r *AllocationRepo) Create(ctx context.Context, a *model.Allocation) error {
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

	var (
		kind   string
		active bool
	)
	err = tx.QueryRowContext(ctx, "SELECT kind, is_active FROM resources WHERE id = ? FOR UPDATE", a.SlotID).Scan(&kind, &active)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && (!active || model.Kind(kind) != model.KindParkingSlot)) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	var n int
	if a.UserID != nil {
		const qUser = "SELECT COUNT(*) FROM parking_allocations WHERE user_id = ? AND exit_time IS NULL"
		if err := tx.QueryRowContext(ctx, qUser, *a.UserID).Scan(&n); err != nil {
			return err
		}
		if n > 0 {
			return ErrUserHasActiveAllocation
		}
	}
	const qSlot = "SELECT COUNT(*) FROM parking_allocations WHERE slot_id = ? AND exit_time IS NULL"
	if err := tx.QueryRowContext(ctx, qSlot, a.SlotID).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return ErrSlotOccupied
	}

	now := time.Now().UTC()
	if a.EntryTime.IsZero() {
		a.EntryTime = now
	}
	a.CreatedAt, a.UpdatedAt = now, now
	const ins = `INSERT INTO parking_allocations (id, slot_id, user_id, visitor_name, visitor_phone, visitor_company,
	             vehicle_number, vehicle_type, notes, entry_time, created_by, created_at, updated_at)
	             VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, ins, a.ID, a.SlotID, a.UserID, a.VisitorName, a.VisitorPhone, a.VisitorCompany,
		a.VehicleNumber, a.VehicleType, a.Notes, a.EntryTime, a.CreatedBy, a.CreatedAt, a.UpdatedAt); err != nil {
		if database.IsDuplicateKey(err) {
			return fmt.Errorf("open allocation exists: %w", ErrConflict)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// GetByID returns an allocation or ErrNotFound.
func (r *AllocationRepo) GetByID(ctx context.Context, id string) (*model.Allocation, error) {
	a, err := scanAllocation(r.db.QueryRowContext(ctx, "SELECT "+allocationCols+" FROM parking_allocations WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

// Release records exit for an open allocation.  The exit_time IS NULL
// guard makes release idempotent under races: the second caller gets
// ErrAlreadyReleased.
func (r *AllocationRepo) Release(ctx context.Context, id string, at time.Time) (*model.Allocation, error) {
	const q = "UPDATE parking_allocations SET exit_time = ?, updated_at = ? WHERE id = ? AND exit_time IS NULL"
	res, err := r.db.ExecContext(ctx, q, at, at, id)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrAlreadyReleased
	}
	return r.GetByID(ctx, id)
}

// ActiveForUser returns the user's open allocation or ErrNotFound.
func (r *AllocationRepo) ActiveForUser(ctx context.Context, userID string) (*model.Allocation, error) {
	q := "SELECT " + allocationCols + " FROM parking_allocations WHERE user_id = ? AND exit_time IS NULL LIMIT 1"
	a, err := scanAllocation(r.db.QueryRowContext(ctx, q, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

// AllocationFilter narrows List results.
type AllocationFilter struct {
	Active      *bool
	VisitorOnly bool
	ParkingType *model.ParkingType
}

// List returns one page of allocations, most recent entry first.
func (r *AllocationRepo) List(ctx context.Context, f AllocationFilter, p Page) ([]*model.Allocation, int, error) {
	var conds []string
	var args []any
	if f.Active != nil {
		if *f.Active {
			conds = append(conds, "a.exit_time IS NULL")
		} else {
			conds = append(conds, "a.exit_time IS NOT NULL")
		}
	}
	if f.VisitorOnly {
		conds = append(conds, "a.user_id IS NULL")
	}
	if f.ParkingType != nil {
		conds = append(conds, "s.parking_type = ?")
		args = append(args, string(*f.ParkingType))
	}
	from := " FROM parking_allocations a JOIN resources s ON s.id = a.slot_id"
	if len(conds) > 0 {
		from += " WHERE " + strings.Join(conds, " AND ")
	}
	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*)"+from, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	q := "SELECT " + prefixCols("a", allocationCols) + from + " ORDER BY a.entry_time DESC LIMIT ? OFFSET ?"
	rows, err := r.db.QueryContext(ctx, q, append(args, p.Limit(), p.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := make([]*model.Allocation, 0)
	for rows.Next() {
		a, err := scanAllocation(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// prefixCols qualifies every column in a comma separated list with alias.
func prefixCols(alias, cols string) string {
	parts := strings.Split(cols, ",")
	for i, c := range parts {
		parts[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(parts, ", ")
}

// FreeSlots returns active parking slots without an open allocation,
// optionally restricted to a parking type, ordered by code.
func (r *AllocationRepo) FreeSlots(ctx context.Context, parkingType *model.ParkingType) ([]*model.Resource, error) {
	q := "SELECT " + prefixCols("s", resourceCols) + ` FROM resources s
	      LEFT JOIN parking_allocations a ON a.slot_id = s.id AND a.exit_time IS NULL
	      WHERE s.kind = 'parking_slot' AND s.is_active = 1 AND a.id IS NULL`
	var args []any
	if parkingType != nil {
		q += " AND s.parking_type = ?"
		args = append(args, string(*parkingType))
	}
	q += " ORDER BY s.code"
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*model.Resource, 0)
	for rows.Next() {
		s, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ParkingCounts summarises slot occupancy.
type ParkingCounts struct {
	TotalSlots     int            `json:"total_slots"`
	OccupiedSlots  int            `json:"occupied_slots"`
	AvailableSlots int            `json:"available_slots"`
	ActiveVisitors int            `json:"active_visitors"`
	ByType         map[string]int `json:"occupied_by_type"`
}

// Counts returns occupancy statistics over active parking slots.
func (r *AllocationRepo) Counts(ctx context.Context) (ParkingCounts, error) {
	c := ParkingCounts{ByType: map[string]int{}}
	const qTotal = "SELECT COUNT(*) FROM resources WHERE kind = 'parking_slot' AND is_active = 1"
	if err := r.db.QueryRowContext(ctx, qTotal).Scan(&c.TotalSlots); err != nil {
		return c, err
	}
	const qOcc = `SELECT COALESCE(s.parking_type, ''), COUNT(*), COALESCE(SUM(a.user_id IS NULL), 0)
	              FROM parking_allocations a JOIN resources s ON s.id = a.slot_id
	              WHERE a.exit_time IS NULL AND s.is_active = 1
	              GROUP BY s.parking_type`
	rows, err := r.db.QueryContext(ctx, qOcc)
	if err != nil {
		return c, err
	}
	defer rows.Close()
	for rows.Next() {
		var t string
		var n, visitors int
		if err := rows.Scan(&t, &n, &visitors); err != nil {
			return c, err
		}
		c.ByType[t] = n
		c.OccupiedSlots += n
		c.ActiveVisitors += visitors
	}
	if err := rows.Err(); err != nil {
		return c, err
	}
	c.AvailableSlots = c.TotalSlots - c.OccupiedSlots
	if c.AvailableSlots < 0 {
		c.AvailableSlots = 0
	}
	return c, nil
}
