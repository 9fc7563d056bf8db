package model

import "time"

// BookingStatus tracks the approval lifecycle of a booking.
type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingRejected  BookingStatus = "rejected"
	BookingCancelled BookingStatus = "cancelled"
)

// Active reports whether a booking in status s still holds its slot.
func (s BookingStatus) Active() bool { return s == BookingPending || s == BookingConfirmed }

// Date is a calendar day at UTC midnight.
type Date = time.Time

// Clock is a time of day expressed as an offset from midnight.
type Clock = time.Duration

// Booking reserves a resource for a date range and, for time-sliced
// resources, a daily time window.  Single-day bookings have
// StartDate == EndDate.
//
// Fields:
//
//	ID         – UUID primary key.
//	ResourceID – booked resource.
//	Kind       – kind of the booked resource, denormalised for listing.
//	UserID     – requesting principal.
//	StartDate  – first booked day (UTC midnight).
//	EndDate    – last booked day, inclusive.
//	StartTime  – daily window start (nil for whole-day desk bookings).
//	EndTime    – daily window end, exclusive.
//	GuestCount – party size for cafeteria tables.
//	Purpose    – optional description.
//	Status     – pending, confirmed, rejected or cancelled.
//	DecidedBy  – manager that approved or rejected the booking.
type Booking struct {
	ID         string        `json:"id"`                    // bookings.id
	ResourceID string        `json:"resource_id"`           // bookings.resource_id
	Kind       Kind          `json:"kind"`                  // bookings.kind
	UserID     string        `json:"user_id"`               // bookings.user_id
	StartDate  Date          `json:"start_date"`            // bookings.start_date
	EndDate    Date          `json:"end_date"`              // bookings.end_date
	StartTime  *Clock        `json:"-"`                     // bookings.start_time (nullable)
	EndTime    *Clock        `json:"-"`                     // bookings.end_time (nullable)
	GuestCount *int          `json:"guest_count,omitempty"` // bookings.guest_count (nullable)
	Purpose    *string       `json:"purpose,omitempty"`     // bookings.purpose (nullable)
	Status     BookingStatus `json:"status"`                // bookings.status
	DecidedBy  *string       `json:"decided_by,omitempty"`  // bookings.decided_by (nullable)
	DecidedAt  *time.Time    `json:"decided_at,omitempty"`  // bookings.decided_at (nullable)
	CreatedAt  time.Time     `json:"created_at"`            // bookings.created_at
	UpdatedAt  time.Time     `json:"updated_at"`            // bookings.updated_at
}

// Timed reports whether the booking covers a daily window rather than
// whole days.
func (b Booking) Timed() bool { return b.StartTime != nil && b.EndTime != nil }

// Overlaps reports whether b and o compete for the same resource time.
// Date ranges are inclusive; time windows are half-open, so back to back
// bookings (09:00–10:00, 10:00–11:00) do not collide.  A whole-day booking
// collides with anything on an intersecting day.
func (b Booking) Overlaps(o Booking) bool {
	if b.ResourceID != o.ResourceID {
		return false
	}
	if b.StartDate.After(o.EndDate) || o.StartDate.After(b.EndDate) {
		return false
	}
	if !b.Timed() || !o.Timed() {
		return true
	}
	return *b.StartTime < *o.EndTime && *o.StartTime < *b.EndTime
}

// Ended reports whether the last booked day is before today.
func (b Booking) Ended(today Date) bool { return b.EndDate.Before(today) }
