package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/office-resource-booking/internal/middleware"
	"github.com/iliyamo/office-resource-booking/internal/model"
	"github.com/iliyamo/office-resource-booking/internal/repository"
	"github.com/iliyamo/office-resource-booking/internal/service"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Validator adapts go-playground/validator to echo.  Field names in
// reported errors are the JSON names.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v}
}

// Validate implements echo.Validator.
func (cv *Validator) Validate(i interface{}) error {
	err := cv.v.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	ve := &service.ValidationError{Fields: map[string]string{}}
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		ve.Fields[fe.Field()] = rule
	}
	return ve
}

func fieldError(field, msg string) error {
	return &service.ValidationError{Fields: map[string]string{field: msg}}
}

// bind decodes the JSON body into req and validates it.  Unknown fields
// are ignored.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return fieldError("body", "malformed request body")
	}
	return c.Validate(req)
}

// principal returns the caller stored by middleware.JWTAuth.
func principal(c echo.Context) (model.Principal, error) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return model.Principal{}, errUnauthenticated
	}
	return p, nil
}

// pathID reads a UUID path parameter.
func pathID(c echo.Context, name string) (string, error) {
	raw := c.Param(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", fieldError(name, "must be a UUID")
	}
	return id.String(), nil
}

// queryID reads an optional UUID query parameter.
func queryID(c echo.Context, name string) (string, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return "", nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", fieldError(name, "must be a UUID")
	}
	return id.String(), nil
}

// pageOf reads page and page_size from the query string.
func pageOf(c echo.Context) (repository.Page, error) {
	p := repository.Page{Number: 1, Size: defaultPageSize}
	if s := c.QueryParam("page"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return p, fieldError("page", "must be a positive integer")
		}
		p.Number = n
	}
	if s := c.QueryParam("page_size"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > maxPageSize {
			return p, fieldError("page_size", fmt.Sprintf("must be between 1 and %d", maxPageSize))
		}
		p.Size = n
	}
	return p, nil
}

// parseDate accepts YYYY-MM-DD and returns UTC midnight.
func parseDate(field, s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fieldError(field, "must be a date in YYYY-MM-DD format")
	}
	return t, nil
}

// parseClock accepts HH:MM or HH:MM:SS.  24:00 is allowed as an end of day.
func parseClock(field, s string) (model.Clock, error) {
	bad := fieldError(field, "must be a time in HH:MM or HH:MM:SS format")
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, bad
	}
	limits := []int{24, 59, 59}
	var v [3]int
	for i, part := range parts {
		if len(part) != 2 {
			return 0, bad
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || n > limits[i] {
			return 0, bad
		}
		v[i] = n
	}
	if v[0] == 24 && (v[1] != 0 || v[2] != 0) {
		return 0, bad
	}
	return time.Duration(v[0])*time.Hour + time.Duration(v[1])*time.Minute + time.Duration(v[2])*time.Second, nil
}

// optClock parses s when it is not empty.
func optClock(field, s string) (*model.Clock, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	c, err := parseClock(field, s)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// queryBool reads an optional true/false query parameter.
func queryBool(c echo.Context, name string) (*bool, error) {
	s := c.QueryParam(name)
	if s == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil, fieldError(name, "must be true or false")
	}
	return &b, nil
}

// queryInt reads an optional integer query parameter.
func queryInt(c echo.Context, name string) (*int, error) {
	s := c.QueryParam(name)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, fieldError(name, "must be an integer")
	}
	return &n, nil
}

// queryEnum reads an optional query parameter restricted by valid.
func queryEnum[T ~string](c echo.Context, name string, valid func(T) bool, options string) (*T, error) {
	s := c.QueryParam(name)
	if s == "" {
		return nil, nil
	}
	v := T(strings.ToLower(s))
	if !valid(v) {
		return nil, fieldError(name, "must be one of "+options)
	}
	return &v, nil
}
