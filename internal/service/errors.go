// Package service implements the office resource use cases on top of the
// repositories: the resource registry, the booking ledger and the parking
// allocation ledger.  Every operation takes the calling principal and
// checks it against the access rules before touching storage.
package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrInvalidDate reports a start date in the past or an end date
	// before the start date.
	ErrInvalidDate = errors.New("invalid date")
	// ErrInvalidRange reports a time window whose start is not before its
	// end, or a window with only one bound.
	ErrInvalidRange = errors.New("invalid time range")
	// ErrInvalidTransition reports a status change that the booking
	// lifecycle does not allow.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ValidationError collects per-field input problems.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %s", k, e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = msg
	}
}

// err returns nil when nothing was recorded.
func (e *ValidationError) err() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

func invalid(field, msg string) error {
	return &ValidationError{Fields: map[string]string{field: msg}}
}
