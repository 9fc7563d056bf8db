package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/office-resource-booking/internal/model"
)

// clockArg renders a time of day for a MySQL TIME column.
func clockArg(c *model.Clock) any {
	if c == nil {
		return nil
	}
	d := *c
	return fmt.Sprintf("%02d:%02d:%02d", int(d.Hours()), int(d.Minutes())%60, int(d.Seconds())%60)
}

// parseClock converts a TIME column (returned by the driver as text) into
// an offset from midnight.
func parseClock(s sql.NullString) (*model.Clock, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var h, m, sec int
	if _, err := fmt.Sscanf(s.String, "%d:%d:%d", &h, &m, &sec); err != nil {
		return nil, fmt.Errorf("parse time %q: %w", s.String, err)
	}
	c := time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(sec)*time.Second
	return &c, nil
}

// dateArg renders a calendar day for a MySQL DATE column.
func dateArg(d time.Time) string { return d.Format("2006-01-02") }

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func nullInt(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
