package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/office-resource-booking/internal/model"
	"github.com/iliyamo/office-resource-booking/internal/repository"
	"github.com/iliyamo/office-resource-booking/internal/service"
)

// ParkingHandler serves allocations, visitors, availability and stats.
// Slot registry endpoints are served by a ResourceHandler.
type ParkingHandler struct {
	Parking *service.Parking
}

func NewParkingHandler(p *service.Parking) *ParkingHandler {
	if p == nil {
		panic("nil parking ledger passed to NewParkingHandler")
	}
	return &ParkingHandler{Parking: p}
}

type allocateReq struct {
	SlotID        string  `json:"slot_id" validate:"required,uuid"`
	VehicleNumber *string `json:"vehicle_number" validate:"omitempty,max=20"`
	VehicleType   *string `json:"vehicle_type" validate:"omitempty,oneof=car bike any"`
	Notes         *string `json:"notes" validate:"omitempty,max=500"`
}

type visitorReq struct {
	SlotID         *string `json:"slot_id" validate:"omitempty,uuid"`
	VisitorName    string  `json:"visitor_name" validate:"required,max=100"`
	VisitorPhone   *string `json:"visitor_phone" validate:"omitempty,max=20"`
	VisitorCompany *string `json:"visitor_company" validate:"omitempty,max=100"`
	VehicleNumber  *string `json:"vehicle_number" validate:"omitempty,max=20"`
	VehicleType    *string `json:"vehicle_type" validate:"omitempty,oneof=car bike any"`
	Notes          *string `json:"notes" validate:"omitempty,max=500"`
}

func vehicleType(s *string) *model.VehicleType {
	if s == nil {
		return nil
	}
	vt := model.VehicleType(*s)
	return &vt
}

// Allocate parks the caller's vehicle in a slot.
func (h *ParkingHandler) Allocate(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req allocateReq
	if err := bind(c, &req); err != nil {
		return err
	}
	a, err := h.Parking.Allocate(c.Request().Context(), p, service.AllocateInput{
		SlotID:        req.SlotID,
		VehicleNumber: req.VehicleNumber,
		VehicleType:   vehicleType(req.VehicleType),
		Notes:         req.Notes,
	})
	if err != nil {
		return err
	}
	return ok(c, http.StatusCreated, a, "slot allocated")
}

// AssignVisitor parks a visitor.  Without slot_id the first free visitor
// slot is used.
func (h *ParkingHandler) AssignVisitor(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req visitorReq
	if err := bind(c, &req); err != nil {
		return err
	}
	a, err := h.Parking.AssignVisitor(c.Request().Context(), p, service.VisitorInput{
		SlotID:         req.SlotID,
		VisitorName:    req.VisitorName,
		VisitorPhone:   req.VisitorPhone,
		VisitorCompany: req.VisitorCompany,
		VehicleNumber:  req.VehicleNumber,
		VehicleType:    vehicleType(req.VehicleType),
		Notes:          req.Notes,
	})
	if err != nil {
		return err
	}
	return ok(c, http.StatusCreated, a, "visitor slot assigned")
}

func (h *ParkingHandler) List(c echo.Context) error { return h.list(c, false) }

func (h *ParkingHandler) ListVisitors(c echo.Context) error { return h.list(c, true) }

// list supports the is_active (default true), parking_type and visitor
// filters.
func (h *ParkingHandler) list(c echo.Context, visitors bool) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	page, err := pageOf(c)
	if err != nil {
		return err
	}
	f := repository.AllocationFilter{VisitorOnly: visitors}
	if f.Active, err = queryBool(c, "is_active"); err != nil {
		return err
	}
	if f.Active == nil {
		open := true
		f.Active = &open
	}
	if f.ParkingType, err = queryEnum(c, "parking_type", model.ParkingType.Valid, "employee, visitor, reserved, handicapped"); err != nil {
		return err
	}
	if !visitors {
		v, err := queryBool(c, "visitor")
		if err != nil {
			return err
		}
		f.VisitorOnly = v != nil && *v
	}
	items, total, err := h.Parking.List(c.Request().Context(), p, f, page)
	if err != nil {
		return err
	}
	return list(c, items, page, total)
}

type mineView struct {
	HasParking bool              `json:"has_parking"`
	Allocation *model.Allocation `json:"allocation"`
}

// Mine reports the caller's open allocation, if any.
func (h *ParkingHandler) Mine(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	a, err := h.Parking.Mine(c.Request().Context(), p)
	if err != nil {
		return err
	}
	if a == nil {
		return ok(c, http.StatusOK, mineView{}, "no active allocation")
	}
	return ok(c, http.StatusOK, mineView{HasParking: true, Allocation: a}, "")
}

// Exit releases an allocation.
func (h *ParkingHandler) Exit(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	a, err := h.Parking.Release(c.Request().Context(), p, id)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, a, "slot released")
}

func (h *ParkingHandler) Available(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var pt *model.ParkingType
	if s := c.QueryParam("parking_type"); s != "" {
		v := model.ParkingType(s)
		pt = &v
	}
	items, err := h.Parking.Available(c.Request().Context(), p, pt)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*model.Resource{}
	}
	return ok(c, http.StatusOK, items, "")
}

func (h *ParkingHandler) Stats(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	st, err := h.Parking.Stats(c.Request().Context(), p)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, st, "")
}
