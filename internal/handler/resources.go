package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/office-resource-booking/internal/model"
	"github.com/iliyamo/office-resource-booking/internal/repository"
	"github.com/iliyamo/office-resource-booking/internal/service"
)

// ResourceHandler serves the registry endpoints of one resource kind.
// The same type backs /desks, /desks/rooms, /parking/slots and
// /cafeteria/tables.
type ResourceHandler struct {
	Registry *service.Registry
	Kind     model.Kind
}

func NewResourceHandler(reg *service.Registry, kind model.Kind) *ResourceHandler {
	if reg == nil {
		panic("nil registry passed to NewResourceHandler")
	}
	return &ResourceHandler{Registry: reg, Kind: kind}
}

type resourceReq struct {
	Label       *string `json:"label" validate:"omitempty,max=50"`
	Capacity    *int    `json:"capacity"`
	Notes       *string `json:"notes" validate:"omitempty,max=500"`
	ParkingType *string `json:"parking_type"`
	VehicleType *string `json:"vehicle_type"`
	TableType   *string `json:"table_type" validate:"omitempty,max=30"`
	IsActive    *bool   `json:"is_active"`
}

func (r resourceReq) input() service.ResourceInput {
	in := service.ResourceInput{
		Label:     r.Label,
		Capacity:  r.Capacity,
		Notes:     r.Notes,
		TableType: r.TableType,
		IsActive:  r.IsActive,
	}
	if r.ParkingType != nil {
		pt := model.ParkingType(*r.ParkingType)
		in.ParkingType = &pt
	}
	if r.VehicleType != nil {
		vt := model.VehicleType(*r.VehicleType)
		in.VehicleType = &vt
	}
	return in
}

// Create handles POST on the collection.
func (h *ResourceHandler) Create(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req resourceReq
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := h.Registry.Create(c.Request().Context(), p, h.Kind, req.input())
	if err != nil {
		return err
	}
	return ok(c, http.StatusCreated, res, res.Code+" created")
}

// List supports is_active, parking_type, vehicle_type and min_capacity
// filters.  Only active resources are listed by default.
func (h *ResourceHandler) List(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	page, err := pageOf(c)
	if err != nil {
		return err
	}
	f := repository.ResourceFilter{Kind: h.Kind}
	if f.IsActive, err = queryBool(c, "is_active"); err != nil {
		return err
	}
	if f.MinCapacity, err = queryInt(c, "min_capacity"); err != nil {
		return err
	}
	if h.Kind == model.KindParkingSlot {
		if f.ParkingType, err = queryEnum(c, "parking_type", model.ParkingType.Valid, "employee, visitor, reserved, handicapped"); err != nil {
			return err
		}
		if f.VehicleType, err = queryEnum(c, "vehicle_type", model.VehicleType.Valid, "car, bike, any"); err != nil {
			return err
		}
	}
	items, total, err := h.Registry.List(c.Request().Context(), p, f, page)
	if err != nil {
		return err
	}
	return list(c, items, page, total)
}

func (h *ResourceHandler) Get(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	res, err := h.Registry.Get(c.Request().Context(), p, h.Kind, id)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, res, "")
}

// Update applies a partial change; omitted fields keep their value.
func (h *ResourceHandler) Update(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req resourceReq
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := h.Registry.Update(c.Request().Context(), p, h.Kind, id, req.input())
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, res, res.Code+" updated")
}

func (h *ResourceHandler) Delete(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Registry.Delete(c.Request().Context(), p, h.Kind, id); err != nil {
		return err
	}
	return ok(c, http.StatusOK, nil, "deleted")
}
