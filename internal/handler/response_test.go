package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/office-resource-booking/internal/repository"
	"github.com/iliyamo/office-resource-booking/internal/service"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", &service.ValidationError{Fields: map[string]string{"label": "required"}}, http.StatusUnprocessableEntity},
		{"invalid date", fmt.Errorf("start: %w", service.ErrInvalidDate), http.StatusUnprocessableEntity},
		{"invalid range", service.ErrInvalidRange, http.StatusUnprocessableEntity},
		{"forbidden", fmt.Errorf("create desk: %w", repository.ErrForbidden), http.StatusForbidden},
		{"not found", repository.ErrNotFound, http.StatusNotFound},
		{"conflict", fmt.Errorf("overlap: %w", repository.ErrConflict), http.StatusConflict},
		{"transition", service.ErrInvalidTransition, http.StatusConflict},
		{"email exists", repository.ErrEmailExists, http.StatusConflict},
		{"unauthenticated", errUnauthenticated, http.StatusUnauthorized},
		{"echo error", echo.ErrMethodNotAllowed, http.StatusMethodNotAllowed},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got, _, _ := statusOf(tt.err); got != tt.want {
			t.Errorf("%s: status = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestErrorHandlerEnvelope(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler
	e.GET("/boom", func(echo.Context) error { return errors.New("db password leaked") })
	e.GET("/invalid", func(echo.Context) error {
		return &service.ValidationError{Fields: map[string]string{"capacity": "is required"}}
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown route: %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	var p problem
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Code != http.StatusInternalServerError || p.Success || p.Detail != "internal server error" {
		t.Fatalf("internal error leaked: %d %+v", rec.Code, p)
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/invalid", nil))
	p = problem{}
	_ = json.Unmarshal(rec.Body.Bytes(), &p)
	if rec.Code != http.StatusUnprocessableEntity || p.Errors["capacity"] != "is required" {
		t.Fatalf("validation: %d %+v", rec.Code, p)
	}
}

func TestEnvelopeAlwaysCarriesMessage(t *testing.T) {
	e := echo.New()
	e.GET("/x", func(c echo.Context) error { return ok(c, http.StatusOK, map[string]int{"n": 1}, "") })
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, key := range []string{"success", "data", "message"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("envelope %s lacks %q", rec.Body.String(), key)
		}
	}
	if _, ok := raw["meta"]; ok {
		t.Errorf("non-list envelope carries meta: %s", rec.Body.String())
	}
}
