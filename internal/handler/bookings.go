package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/office-resource-booking/internal/model"
	"github.com/iliyamo/office-resource-booking/internal/repository"
	"github.com/iliyamo/office-resource-booking/internal/service"
)

// BookingHandler serves the booking endpoints of one bookable kind.
type BookingHandler struct {
	Bookings *service.Bookings
	Kind     model.Kind
}

func NewBookingHandler(b *service.Bookings, kind model.Kind) *BookingHandler {
	if b == nil {
		panic("nil booking ledger passed to NewBookingHandler")
	}
	return &BookingHandler{Bookings: b, Kind: kind}
}

type bookingReq struct {
	ResourceID string  `json:"resource_id" validate:"required,uuid"`
	StartDate  string  `json:"start_date" validate:"required"`
	EndDate    string  `json:"end_date"`
	StartTime  string  `json:"start_time"`
	EndTime    string  `json:"end_time"`
	GuestCount *int    `json:"guest_count"`
	Purpose    *string `json:"purpose"`
}

// window parses the date and time fields shared by booking requests and
// availability queries.  Every malformed field is reported.
func window(startDate, endDate, startTime, endTime string) (service.BookingInput, error) {
	var in service.BookingInput
	ve := &service.ValidationError{Fields: map[string]string{}}
	collect := func(err error) {
		if fe, ok := err.(*service.ValidationError); ok {
			for k, v := range fe.Fields {
				ve.Fields[k] = v
			}
		}
	}
	var err error
	if in.StartDate, err = parseDate("start_date", startDate); err != nil {
		collect(err)
	}
	if strings.TrimSpace(endDate) != "" {
		if in.EndDate, err = parseDate("end_date", endDate); err != nil {
			collect(err)
		}
	}
	if in.StartTime, err = optClock("start_time", startTime); err != nil {
		collect(err)
	}
	if in.EndTime, err = optClock("end_time", endTime); err != nil {
		collect(err)
	}
	if len(ve.Fields) > 0 {
		return in, ve
	}
	return in, nil
}

// Create books a resource for the caller.
func (h *BookingHandler) Create(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req bookingReq
	if err := bind(c, &req); err != nil {
		return err
	}
	in, err := window(req.StartDate, req.EndDate, req.StartTime, req.EndTime)
	if err != nil {
		return err
	}
	in.ResourceID = req.ResourceID
	in.GuestCount = req.GuestCount
	in.Purpose = req.Purpose
	b, err := h.Bookings.Book(c.Request().Context(), p, h.Kind, in)
	if err != nil {
		return err
	}
	msg := "booking confirmed"
	if b.Status == model.BookingPending {
		msg = "booking pending approval"
	}
	return ok(c, http.StatusCreated, viewBooking(b), msg)
}

func statusQuery(c echo.Context) (*model.BookingStatus, error) {
	return queryEnum(c, "status", func(s model.BookingStatus) bool {
		switch s {
		case model.BookingPending, model.BookingConfirmed, model.BookingRejected, model.BookingCancelled:
			return true
		}
		return false
	}, "pending, confirmed, rejected, cancelled")
}

// Mine lists the caller's own bookings, optionally by status.
func (h *BookingHandler) Mine(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	page, err := pageOf(c)
	if err != nil {
		return err
	}
	status, err := statusQuery(c)
	if err != nil {
		return err
	}
	items, total, err := h.Bookings.ListMine(c.Request().Context(), p, h.Kind, status, page)
	if err != nil {
		return err
	}
	return list(c, viewBookings(items), page, total)
}

// List is the manager view.  Filters: status, date, resource_id, user_id.
func (h *BookingHandler) List(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	page, err := pageOf(c)
	if err != nil {
		return err
	}
	f := repository.BookingFilter{Kind: h.Kind}
	if f.Status, err = statusQuery(c); err != nil {
		return err
	}
	if s := c.QueryParam("date"); s != "" {
		d, err := parseDate("date", s)
		if err != nil {
			return err
		}
		f.On = &d
	}
	if f.ResourceID, err = queryID(c, "resource_id"); err != nil {
		return err
	}
	if f.UserID, err = queryID(c, "user_id"); err != nil {
		return err
	}
	items, total, err := h.Bookings.List(c.Request().Context(), p, f, page)
	if err != nil {
		return err
	}
	return list(c, viewBookings(items), page, total)
}

func (h *BookingHandler) Get(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	b, err := h.Bookings.Get(c.Request().Context(), p, h.Kind, id)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, viewBooking(b), "")
}

// Cancel handles DELETE on a booking.
func (h *BookingHandler) Cancel(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	b, err := h.Bookings.Cancel(c.Request().Context(), p, h.Kind, id)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, viewBooking(b), "booking cancelled")
}

func (h *BookingHandler) Approve(c echo.Context) error { return h.decide(c, true) }

func (h *BookingHandler) Reject(c echo.Context) error { return h.decide(c, false) }

func (h *BookingHandler) decide(c echo.Context, approve bool) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	b, err := h.Bookings.Decide(c.Request().Context(), p, h.Kind, id, approve)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, viewBooking(b), "booking "+string(b.Status))
}

// Available lists resources free for date (and end_date) within the
// optional start_time/end_time window.  guest_count filters tables by
// capacity.
func (h *BookingHandler) Available(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	date := c.QueryParam("date")
	if date == "" {
		date = c.QueryParam("start_date")
	}
	if date == "" {
		return fieldError("date", "is required")
	}
	in, err := window(date, c.QueryParam("end_date"), c.QueryParam("start_time"), c.QueryParam("end_time"))
	if err != nil {
		return err
	}
	if in.GuestCount, err = queryInt(c, "guest_count"); err != nil {
		return err
	}
	items, err := h.Bookings.Available(c.Request().Context(), p, h.Kind, in)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*model.Resource{}
	}
	return ok(c, http.StatusOK, items, "")
}

func (h *BookingHandler) Stats(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	st, err := h.Bookings.Stats(c.Request().Context(), p, h.Kind)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, st, "")
}
