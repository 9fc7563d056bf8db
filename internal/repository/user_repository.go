package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/office-resource-booking/internal/database"
	"github.com/iliyamo/office-resource-booking/internal/model"
	"github.com/iliyamo/office-resource-booking/internal/utils"
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userCols = "id,email,password_hash,full_name,department,role,manager_type,is_active,created_at,updated_at"

func scanUser(s rowScanner) (*model.User, error) {
	var (
		u        model.User
		dept, mt sql.NullString
	)
	if err := s.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &dept, &u.Role, &mt,
		&u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Department = nullString(dept)
	if mt.Valid {
		m := model.ManagerType(mt.String)
		u.ManagerType = &m
	}
	return &u, nil
}

// Create hashes password and inserts u.  The email is normalised to lower
// case; a duplicate email yields ErrEmailExists.
func (r *UserRepo) Create(ctx context.Context, u *model.User, password string, cost int) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO users ("+userCols+") VALUES (?,?,?,?,?,?,?,?,?,?)",
		u.ID, u.Email, u.PasswordHash, u.FullName, u.Department, string(u.Role), u.ManagerType,
		u.IsActive, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if database.IsDuplicateKey(err) {
			return ErrEmailExists
		}
		return err
	}
	return nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := scanUser(r.DB.QueryRowContext(ctx, "SELECT "+userCols+" FROM users WHERE email=? LIMIT 1", email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx, "SELECT "+userCols+" FROM users WHERE id=? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return u, err
}

// UserFilter narrows List.  Zero values are ignored.
type UserFilter struct {
	Role        model.Role
	ManagerType model.ManagerType
	Search      string
}

// List returns one page of users ordered by email.
func (r *UserRepo) List(ctx context.Context, f UserFilter, p Page) ([]*model.User, int, error) {
	var conds []string
	var args []any
	if f.Role != "" {
		conds = append(conds, "role=?")
		args = append(args, string(f.Role))
	}
	if f.ManagerType != "" {
		conds = append(conds, "manager_type=?")
		args = append(args, string(f.ManagerType))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		conds = append(conds, "(email LIKE ? OR full_name LIKE ?)")
		like := "%" + s + "%"
		args = append(args, like, like)
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}
	var total int
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM users"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.DB.QueryContext(ctx, "SELECT "+userCols+" FROM users"+where+" ORDER BY email LIMIT ? OFFSET ?",
		append(args, p.Limit(), p.Offset())...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := make([]*model.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
