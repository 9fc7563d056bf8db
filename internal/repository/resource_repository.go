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

// ResourceRepo encapsulates all database queries related to desks,
// conference rooms, parking slots and cafeteria tables.  Every kind lives
// in the `resources` table.
type ResourceRepo struct {
	db *sql.DB
}

// NewResourceRepo constructs a ResourceRepo with the provided DB handle.
func NewResourceRepo(db *sql.DB) *ResourceRepo { return &ResourceRepo{db: db} }

// ResourceFilter narrows List results.  Nil fields are not applied.
type ResourceFilter struct {
	Kind        model.Kind
	IsActive    *bool
	ParkingType *model.ParkingType
	VehicleType *model.VehicleType
	MinCapacity *int
}

const resourceCols = `id, kind, code, label, capacity, notes, parking_type, vehicle_type,
	table_type, is_active, created_by, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResource(s rowScanner) (*model.Resource, error) {
	var (
		r                        model.Resource
		capacity                 sql.NullInt64
		notes, pType, vType, tbl sql.NullString
	)
	if err := s.Scan(&r.ID, &r.Kind, &r.Code, &r.Label, &capacity, &notes, &pType, &vType,
		&tbl, &r.IsActive, &r.CreatedBy, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.Capacity = nullInt(capacity)
	r.Notes = nullString(notes)
	r.TableType = nullString(tbl)
	if pType.Valid {
		pt := model.ParkingType(pType.String)
		r.ParkingType = &pt
	}
	if vType.Valid {
		vt := model.VehicleType(vType.String)
		r.VehicleType = &vt
	}
	return &r, nil
}

// nextCodeTx advances the sequence for kind and returns the new value.
// The upsert takes a row lock on code_sequences that is held until the
// surrounding transaction ends, so concurrent creators are serialised and
// never observe the same value.
func nextCodeTx(ctx context.Context, tx *sql.Tx, kind model.Kind) (uint64, error) {
	const q = `INSERT INTO code_sequences (kind, last_value) VALUES (?, LAST_INSERT_ID(1))
	           ON DUPLICATE KEY UPDATE last_value = LAST_INSERT_ID(last_value + 1)`
	res, err := tx.ExecContext(ctx, q, string(kind))
	if err != nil {
		return 0, fmt.Errorf("advance code sequence: %w", err)
	}
	n, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(n), nil
}

// Create assigns the next code for r.Kind and inserts r in one
// transaction.  ID, Code and timestamps are populated on success.  A code
// collision (only possible if rows were inserted bypassing the sequence)
// surfaces as ErrConflict.
func (r *ResourceRepo) Create(ctx context.Context, res *model.Resource) error {
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

	n, err := nextCodeTx(ctx, tx, res.Kind)
	if err != nil {
		return err
	}
	res.Code = model.FormatCode(res.Kind, n)
	now := time.Now().UTC()
	res.CreatedAt, res.UpdatedAt = now, now

	const q = `INSERT INTO resources (id, kind, code, label, capacity, notes, parking_type, vehicle_type,
	           table_type, is_active, created_by, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, q, res.ID, string(res.Kind), res.Code, res.Label, res.Capacity,
		res.Notes, res.ParkingType, res.VehicleType, res.TableType, res.IsActive, res.CreatedBy,
		res.CreatedAt, res.UpdatedAt); err != nil {
		if database.IsDuplicateKey(err) {
			return fmt.Errorf("resource code %s: %w", res.Code, ErrConflict)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// GetByID fetches a resource by id.  It returns ErrNotFound if no row
// exists.
func (r *ResourceRepo) GetByID(ctx context.Context, id string) (*model.Resource, error) {
	q := "SELECT " + resourceCols + " FROM resources WHERE id = ?"
	res, err := scanResource(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return res, err
}

func (f ResourceFilter) where() (string, []any) {
	conds := []string{"kind = ?"}
	args := []any{string(f.Kind)}
	if f.IsActive != nil {
		conds = append(conds, "is_active = ?")
		args = append(args, *f.IsActive)
	}
	if f.ParkingType != nil {
		conds = append(conds, "parking_type = ?")
		args = append(args, string(*f.ParkingType))
	}
	if f.VehicleType != nil {
		conds = append(conds, "vehicle_type = ?")
		args = append(args, string(*f.VehicleType))
	}
	if f.MinCapacity != nil {
		conds = append(conds, "capacity >= ?")
		args = append(args, *f.MinCapacity)
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// List returns one page of resources matching f ordered by code, together
// with the total number of matches.
func (r *ResourceRepo) List(ctx context.Context, f ResourceFilter, p Page) ([]*model.Resource, int, error) {
	where, args := f.where()
	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM resources"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	q := "SELECT " + resourceCols + " FROM resources" + where + " ORDER BY code LIMIT ? OFFSET ?"
	rows, err := r.db.QueryContext(ctx, q, append(args, p.Limit(), p.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := make([]*model.Resource, 0)
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Update persists the mutable fields of res.  It returns ErrNotFound when
// no row has the given id.
func (r *ResourceRepo) Update(ctx context.Context, res *model.Resource) error {
	res.UpdatedAt = time.Now().UTC()
	const q = `UPDATE resources SET label = ?, capacity = ?, notes = ?, parking_type = ?, vehicle_type = ?,
	           table_type = ?, is_active = ?, updated_at = ? WHERE id = ?`
	out, err := r.db.ExecContext(ctx, q, res.Label, res.Capacity, res.Notes, res.ParkingType,
		res.VehicleType, res.TableType, res.IsActive, res.UpdatedAt, res.ID)
	if err != nil {
		return err
	}
	// MySQL reports 0 affected rows when values are unchanged, so confirm
	// existence separately.
	if n, _ := out.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, res.ID); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a resource row.  The row is locked first and the delete
// is refused with ErrConflict while pending/confirmed bookings ending on
// or after today, or an open parking allocation, still reference it.
// Historical bookings and allocations are removed by the foreign key
// cascade.
func (r *ResourceRepo) Delete(ctx context.Context, id string, today time.Time) error {
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

	var kind string
	if err := tx.QueryRowContext(ctx, "SELECT kind FROM resources WHERE id = ? FOR UPDATE", id).Scan(&kind); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	var active int
	const qBookings = `SELECT COUNT(*) FROM bookings
	                   WHERE resource_id = ? AND status IN ('pending','confirmed') AND end_date >= ?`
	if err := tx.QueryRowContext(ctx, qBookings, id, dateArg(today)).Scan(&active); err != nil {
		return err
	}
	if active > 0 {
		return fmt.Errorf("%d active bookings reference resource: %w", active, ErrConflict)
	}
	const qAlloc = `SELECT COUNT(*) FROM parking_allocations WHERE slot_id = ? AND exit_time IS NULL`
	if err := tx.QueryRowContext(ctx, qAlloc, id).Scan(&active); err != nil {
		return err
	}
	if active > 0 {
		return fmt.Errorf("slot is occupied: %w", ErrConflict)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM resources WHERE id = ?", id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// KindCounts summarises the resources of one kind.
type KindCounts struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Inactive int `json:"inactive"`
}

// CountByKind returns total/active/inactive counts for kind.
func (r *ResourceRepo) CountByKind(ctx context.Context, kind model.Kind) (KindCounts, error) {
	const q = `SELECT COUNT(*), COALESCE(SUM(is_active = 1), 0) FROM resources WHERE kind = ?`
	var c KindCounts
	if err := r.db.QueryRowContext(ctx, q, string(kind)).Scan(&c.Total, &c.Active); err != nil {
		return c, err
	}
	c.Inactive = c.Total - c.Active
	return c, nil
}
