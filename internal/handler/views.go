package handler

import (
	"time"

	"github.com/iliyamo/office-resource-booking/internal/model"
	"github.com/iliyamo/office-resource-booking/internal/service"
)

// bookingView renders dates as YYYY-MM-DD and times as HH:MM.
type bookingView struct {
	*model.Booking
	StartDate string  `json:"start_date"`
	EndDate   string  `json:"end_date"`
	StartTime *string `json:"start_time,omitempty"`
	EndTime   *string `json:"end_time,omitempty"`
}

func viewBooking(b *model.Booking) bookingView {
	v := bookingView{
		Booking:   b,
		StartDate: b.StartDate.Format(time.DateOnly),
		EndDate:   b.EndDate.Format(time.DateOnly),
	}
	if b.StartTime != nil {
		s := service.FormatClock(*b.StartTime)
		v.StartTime = &s
	}
	if b.EndTime != nil {
		s := service.FormatClock(*b.EndTime)
		v.EndTime = &s
	}
	return v
}

func viewBookings(bs []*model.Booking) []bookingView {
	out := make([]bookingView, len(bs))
	for i, b := range bs {
		out[i] = viewBooking(b)
	}
	return out
}

// userView is a user without the password hash.
type userView struct {
	ID          string             `json:"id"`
	Email       string             `json:"email"`
	FullName    string             `json:"full_name"`
	Department  *string            `json:"department,omitempty"`
	Role        model.Role         `json:"role"`
	ManagerType *model.ManagerType `json:"manager_type,omitempty"`
	IsActive    bool               `json:"is_active"`
	CreatedAt   time.Time          `json:"created_at"`
}

func viewUser(u *model.User) userView {
	return userView{
		ID:          u.ID,
		Email:       u.Email,
		FullName:    u.FullName,
		Department:  u.Department,
		Role:        u.Role,
		ManagerType: u.ManagerType,
		IsActive:    u.IsActive,
		CreatedAt:   u.CreatedAt,
	}
}

func viewUsers(us []*model.User) []userView {
	out := make([]userView, len(us))
	for i, u := range us {
		out[i] = viewUser(u)
	}
	return out
}
