package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/office-resource-booking/internal/model"
	"github.com/iliyamo/office-resource-booking/internal/utils"
)

const testSecret = "test-secret"

func bearer(t *testing.T, claims utils.AccessClaims) string {
	t.Helper()
	tok, err := utils.NewAccessToken(testSecret, claims, 5)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return "Bearer " + tok.Token
}

func whoami(c echo.Context) error {
	p, ok := PrincipalFrom(c)
	if !ok {
		return c.NoContent(http.StatusTeapot)
	}
	return c.String(http.StatusOK, string(p.Role)+"/"+string(p.ManagerType)+"/"+p.UserID)
}

func TestJWTAuth(t *testing.T) {
	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"missing header", "", http.StatusUnauthorized, ""},
		{"not bearer", "Basic abc", http.StatusUnauthorized, ""},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized, ""},
		{"employee", bearer(t, utils.AccessClaims{UserID: "u-1", Role: "employee"}), http.StatusOK, "employee//u-1"},
		{"parking manager", bearer(t, utils.AccessClaims{UserID: "u-2", Role: "manager", ManagerType: "parking"}), http.StatusOK, "manager/parking/u-2"},
		{"manager without type", bearer(t, utils.AccessClaims{UserID: "u-3", Role: "manager"}), http.StatusUnauthorized, ""},
		{"employee with manager type", bearer(t, utils.AccessClaims{UserID: "u-4", Role: "employee", ManagerType: "parking"}), http.StatusUnauthorized, ""},
		{"unknown role", bearer(t, utils.AccessClaims{UserID: "u-5", Role: "owner"}), http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			e.GET("/me", whoami, JWTAuth(testSecret))
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.status, rec.Body.String())
			}
			if tt.body != "" && rec.Body.String() != tt.body {
				t.Fatalf("body = %q, want %q", rec.Body.String(), tt.body)
			}
			if tt.status == http.StatusUnauthorized && rec.Header().Get("WWW-Authenticate") == "" {
				t.Fatal("missing WWW-Authenticate header")
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	e.GET("/admin", whoami, JWTAuth(testSecret), RequireRole(model.RoleAdmin, model.RoleSuperAdmin))

	for _, tc := range []struct {
		role   string
		status int
	}{
		{"admin", http.StatusOK},
		{"super_admin", http.StatusOK},
		{"employee", http.StatusForbidden},
		{"team_lead", http.StatusForbidden},
	} {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", bearer(t, utils.AccessClaims{UserID: "u", Role: tc.role}))
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		if rec.Code != tc.status {
			t.Errorf("%s: status = %d, want %d", tc.role, rec.Code, tc.status)
		}
	}
}
