package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"net/http" // HTTP status codes for responses
	"strings"  // string utilities for prefix checking and trimming

	"github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

	"github.com/iliyamo/office-resource-booking/internal/model"
	"github.com/iliyamo/office-resource-booking/internal/utils"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token and
// stores the caller in the request context.  The provided secret must match
// the one used when issuing tokens.  Handlers read the caller through
// PrincipalFrom; `c.Get("user_id")` and `c.Get("role")` remain available
// for logging and rate limiting.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// A valid header starts with "Bearer " followed by the JWT.
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return unauthorized(c, "missing bearer token")
			}
			raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

			claims, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				return unauthorized(c, "invalid token")
			}
			p := model.Principal{
				UserID:      claims.UserID,
				Role:        model.Role(claims.Role),
				ManagerType: model.ManagerType(claims.ManagerType),
			}
			// A token whose role and manager_type disagree is treated as
			// forged rather than as a principal with reduced rights.
			if err := p.Validate(); err != nil {
				return unauthorized(c, "invalid claims")
			}

			c.Set(ctxUserID, p.UserID)
			c.Set(ctxRole, string(p.Role))
			c.Set(ctxManagerType, string(p.ManagerType))
			c.Set(ctxPrincipal, p)
			return next(c)
		}
	}
}

func unauthorized(c echo.Context, detail string) error {
	c.Response().Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "detail": detail})
}
