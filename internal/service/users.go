package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/iliyamo/office-resource-booking/internal/access"
	"github.com/iliyamo/office-resource-booking/internal/model"
	"github.com/iliyamo/office-resource-booking/internal/repository"
	"github.com/iliyamo/office-resource-booking/internal/utils"
)

// UserStore is the persistence used by Users.
type UserStore interface {
	Create(ctx context.Context, u *model.User, password string, cost int) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	List(ctx context.Context, f repository.UserFilter, p repository.Page) ([]*model.User, int, error)
}

// NewUserInput describes an account to create.
type NewUserInput struct {
	Email       string
	Password    string
	FullName    string
	Department  *string
	Role        model.Role
	ManagerType *model.ManagerType
}

const minPassword = 8

// Users administers accounts.  Creation follows the role hierarchy
// enforced by access.CanAssignRole.
type Users struct {
	repo       UserStore
	bcryptCost int
}

func NewUsers(repo UserStore, bcryptCost int) *Users {
	if repo == nil {
		panic("nil UserStore passed to NewUsers")
	}
	return &Users{repo: repo, bcryptCost: bcryptCost}
}

// Create adds a user with the requested role.
func (s *Users) Create(ctx context.Context, actor model.Principal, in NewUserInput) (u *model.User, err error) {
	ctx, span := tracer.Start(ctx, "Users.Create")
	defer func() { finish(span, err) }()

	if !access.CanAssignRole(actor, in.Role) {
		if !in.Role.Valid() {
			return nil, invalid("role", "unknown role")
		}
		return nil, fmt.Errorf("assign role %s: %w", in.Role, repository.ErrForbidden)
	}
	var ve ValidationError
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		ve.add("email", "must be a valid email address")
	}
	if utf8.RuneCountInString(in.Password) < minPassword {
		ve.add("password", fmt.Sprintf("must be at least %d characters", minPassword))
	} else if len(in.Password) > utils.MaxPasswordBytes {
		ve.add("password", fmt.Sprintf("must be at most %d bytes", utils.MaxPasswordBytes))
	}
	name := strings.TrimSpace(in.FullName)
	if n := utf8.RuneCountInString(name); n < 1 || n > 100 {
		ve.add("full_name", "must be 1-100 characters")
	}
	p := model.Principal{Role: in.Role}
	if in.ManagerType != nil {
		p.ManagerType = *in.ManagerType
	}
	if err := p.Validate(); err != nil {
		ve.add("manager_type", err.Error())
	}
	if err := ve.err(); err != nil {
		return nil, err
	}

	u = &model.User{
		ID:         uuid.NewString(),
		Email:      email,
		FullName:   name,
		Department: trimmed(in.Department),
		Role:       in.Role,
		IsActive:   true,
	}
	if p.ManagerType != "" {
		mt := p.ManagerType
		u.ManagerType = &mt
	}
	if err := s.repo.Create(ctx, u, in.Password, s.bcryptCost); err != nil {
		return nil, err
	}
	return u, nil
}

// Get returns a user.  Users may read themselves; admins may read anyone.
func (s *Users) Get(ctx context.Context, actor model.Principal, id string) (*model.User, error) {
	if actor.UserID != id && !access.Allowed(actor, access.ActionRead, access.CategoryUser) {
		return nil, fmt.Errorf("read user: %w", repository.ErrForbidden)
	}
	return s.repo.GetByID(ctx, id)
}

// List returns one page of users for admins.
func (s *Users) List(ctx context.Context, actor model.Principal, f repository.UserFilter, page repository.Page) ([]*model.User, int, error) {
	if !access.Allowed(actor, access.ActionRead, access.CategoryUser) {
		return nil, 0, fmt.Errorf("list users: %w", repository.ErrForbidden)
	}
	return s.repo.List(ctx, f, page)
}
