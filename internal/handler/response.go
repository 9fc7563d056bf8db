package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/office-resource-booking/internal/repository"
	"github.com/iliyamo/office-resource-booking/internal/service"
)

// errUnauthenticated is returned by handlers reached without an identity.
var errUnauthenticated = errors.New("authentication required")

// envelope wraps every successful response.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data"`
	Message string `json:"message"`
	Meta    *meta  `json:"meta,omitempty"`
}

type meta struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Total    int `json:"total"`
}

// problem is the body of every error response.
type problem struct {
	Success bool              `json:"success"`
	Detail  string            `json:"detail"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func ok(c echo.Context, status int, data any, msg string) error {
	return c.JSON(status, envelope{Success: true, Data: data, Message: msg})
}

// list writes one page of items.  A nil slice is rendered as [].
func list[T any](c echo.Context, items []T, p repository.Page, total int) error {
	if items == nil {
		items = []T{}
	}
	return c.JSON(http.StatusOK, envelope{
		Success: true,
		Data:    items,
		Meta:    &meta{Page: p.Number, PageSize: p.Limit(), Total: total},
	})
}

// statusOf classifies err.  The returned detail is safe to show to clients.
func statusOf(err error) (int, string, map[string]string) {
	var ve *service.ValidationError
	var he *echo.HTTPError
	switch {
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity, "validation failed", ve.Fields
	case errors.Is(err, service.ErrInvalidDate),
		errors.Is(err, service.ErrInvalidRange):
		return http.StatusUnprocessableEntity, err.Error(), nil
	case errors.Is(err, errUnauthenticated):
		return http.StatusUnauthorized, "authentication required", nil
	case errors.Is(err, repository.ErrForbidden):
		return http.StatusForbidden, "forbidden", nil
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not found", nil
	case errors.Is(err, repository.ErrEmailExists):
		return http.StatusConflict, "email already exists", nil
	case errors.Is(err, repository.ErrConflict),
		errors.Is(err, service.ErrInvalidTransition):
		return http.StatusConflict, err.Error(), nil
	case errors.As(err, &he):
		if msg, ok := he.Message.(string); ok {
			return he.Code, msg, nil
		}
		return he.Code, http.StatusText(he.Code), nil
	}
	return http.StatusInternalServerError, "internal server error", nil
}

// ErrorHandler replaces echo's default so routing errors and handler
// errors share the same body.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status, detail, fields := statusOf(err)
	if status >= http.StatusInternalServerError {
		c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
	}
	var werr error
	if c.Request().Method == http.MethodHead {
		werr = c.NoContent(status)
	} else {
		werr = c.JSON(status, problem{Success: false, Detail: detail, Errors: fields})
	}
	if werr != nil {
		c.Logger().Error(werr)
	}
}
