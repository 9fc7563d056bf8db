package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/office-resource-booking/internal/model"
	"github.com/iliyamo/office-resource-booking/internal/repository"
	"github.com/iliyamo/office-resource-booking/internal/service"
)

// UserHandler serves user administration.
type UserHandler struct {
	Users *service.Users
}

func NewUserHandler(u *service.Users) *UserHandler {
	if u == nil {
		panic("nil users service passed to NewUserHandler")
	}
	return &UserHandler{Users: u}
}

type createUserReq struct {
	Email       string  `json:"email" validate:"required,email"`
	Password    string  `json:"password" validate:"required,min=8"`
	FullName    string  `json:"full_name" validate:"required,max=100"`
	Department  *string `json:"department" validate:"omitempty,max=100"`
	Role        string  `json:"role" validate:"required"`
	ManagerType *string `json:"manager_type"`
}

// Create adds a user.  The caller may only assign roles below its own.
func (h *UserHandler) Create(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req createUserReq
	if err := bind(c, &req); err != nil {
		return err
	}
	in := service.NewUserInput{
		Email:      req.Email,
		Password:   req.Password,
		FullName:   req.FullName,
		Department: req.Department,
		Role:       model.Role(strings.ToLower(req.Role)),
	}
	if req.ManagerType != nil && *req.ManagerType != "" {
		mt := model.ManagerType(strings.ToLower(*req.ManagerType))
		in.ManagerType = &mt
	}
	u, err := h.Users.Create(c.Request().Context(), p, in)
	if err != nil {
		return err
	}
	return ok(c, http.StatusCreated, viewUser(u), "user created")
}

// List filters by role, manager_type and a free-text search.
func (h *UserHandler) List(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	page, err := pageOf(c)
	if err != nil {
		return err
	}
	f := repository.UserFilter{}
	role, err := queryEnum(c, "role", model.Role.Valid, "super_admin, admin, manager, team_lead, employee")
	if err != nil {
		return err
	}
	if role != nil {
		f.Role = *role
	}
	mt, err := queryEnum(c, "manager_type", model.ManagerType.Valid, "parking, desk_conference, cafeteria, it_support, attendance")
	if err != nil {
		return err
	}
	if mt != nil {
		f.ManagerType = *mt
	}
	f.Search = strings.TrimSpace(c.QueryParam("search"))
	items, total, err := h.Users.List(c.Request().Context(), p, f, page)
	if err != nil {
		return err
	}
	return list(c, viewUsers(items), page, total)
}

func (h *UserHandler) Get(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	u, err := h.Users.Get(c.Request().Context(), p, id)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, viewUser(u), "")
}
