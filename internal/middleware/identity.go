package middleware

// identity.go holds the context keys written by JWTAuth and the helpers
// handlers and other middleware use to read them back.

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/office-resource-booking/internal/model"
)

const (
	ctxUserID      = "user_id"
	ctxRole        = "role"
	ctxManagerType = "manager_type"
	ctxPrincipal   = "principal"
)

// PrincipalFrom returns the authenticated caller stored by JWTAuth.
func PrincipalFrom(c echo.Context) (model.Principal, bool) {
	p, ok := c.Get(ctxPrincipal).(model.Principal)
	return p, ok && p.UserID != ""
}

// userID returns the authenticated user id, or "anon" when the request
// carries no identity.
func userID(c echo.Context) string {
	if s, ok := c.Get(ctxUserID).(string); ok && s != "" {
		return s
	}
	return "anon"
}
