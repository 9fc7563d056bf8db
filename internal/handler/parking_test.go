package handler

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/office-resource-booking/internal/model"
	"github.com/iliyamo/office-resource-booking/internal/service"
)

type parkingAPI struct {
	e   *echo.Echo
	reg *service.Registry
}

func newParkingAPI() parkingAPI {
	res := newFakeResources()
	reg := service.NewRegistry(res, nil)
	reg.Now = fixedNow
	pk := service.NewParking(newFakeAllocs(res), res, nil)
	pk.Now = fixedNow

	e, api := newTestEcho()
	h := NewParkingHandler(pk)
	p := api.Group("/parking")
	p.POST("/allocations", h.Allocate)
	p.GET("/allocations", h.List)
	p.GET("/allocations/my", h.Mine)
	p.POST("/allocations/:id/exit", h.Exit)
	p.POST("/visitors", h.AssignVisitor)
	p.GET("/visitors", h.ListVisitors)
	return parkingAPI{e: e, reg: reg}
}

func (a parkingAPI) slot(t *testing.T, label string, pt model.ParkingType) *model.Resource {
	t.Helper()
	r, err := a.reg.Create(context.Background(), parkingMgr, model.KindParkingSlot,
		service.ResourceInput{Label: ptr(label), ParkingType: ptr(pt), VehicleType: ptr(model.VehicleAny)})
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func (a parkingAPI) allocate(t *testing.T, p model.Principal, slotID string) model.Allocation {
	t.Helper()
	rec := call(t, a.e, p, http.MethodPost, "/api/v1/parking/allocations", fmt.Sprintf(`{"slot_id":%q}`, slotID))
	if rec.Code != http.StatusCreated {
		t.Fatalf("allocate: %d %s", rec.Code, rec.Body.String())
	}
	return decode[model.Allocation](t, rec.Body.Bytes()).Data
}

func TestAllocationListDefaultsToOpen(t *testing.T) {
	a := newParkingAPI()
	s1 := a.slot(t, "S1", model.ParkingEmployee)
	s2 := a.slot(t, "S2", model.ParkingEmployee)

	first := a.allocate(t, employeeA, s1.ID)
	if rec := call(t, a.e, employeeA, http.MethodPost, "/api/v1/parking/allocations/"+first.ID+"/exit", ""); rec.Code != http.StatusOK {
		t.Fatalf("exit: %d %s", rec.Code, rec.Body.String())
	}
	a.allocate(t, employeeB, s2.ID)

	tests := []struct {
		query string
		total int
	}{
		{"", 1},
		{"?is_active=true", 1},
		{"?is_active=false", 1},
	}
	for _, tt := range tests {
		t.Run("allocations"+tt.query, func(t *testing.T) {
			rec := call(t, a.e, parkingMgr, http.MethodGet, "/api/v1/parking/allocations"+tt.query, "")
			if rec.Code != http.StatusOK {
				t.Fatalf("list: %d %s", rec.Code, rec.Body.String())
			}
			r := decode[[]model.Allocation](t, rec.Body.Bytes())
			if r.Meta == nil || r.Meta.Total != tt.total || len(r.Data) != tt.total {
				t.Fatalf("total = %+v, items %d, want %d", r.Meta, len(r.Data), tt.total)
			}
			active := tt.query != "?is_active=false"
			for _, al := range r.Data {
				if al.IsActive() != active {
					t.Fatalf("allocation %s active=%v in %q listing", al.ID, al.IsActive(), tt.query)
				}
			}
		})
	}

	if rec := call(t, a.e, parkingMgr, http.MethodGet, "/api/v1/parking/allocations?is_active=maybe", ""); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad is_active: %d", rec.Code)
	}
	if rec := call(t, a.e, employeeA, http.MethodGet, "/api/v1/parking/allocations", ""); rec.Code != http.StatusForbidden {
		t.Fatalf("employee list: %d", rec.Code)
	}
}

func TestVisitorListDefaultsToOpen(t *testing.T) {
	a := newParkingAPI()
	a.slot(t, "V1", model.ParkingVisitor)
	a.slot(t, "V2", model.ParkingVisitor)

	assign := func(name string) model.Allocation {
		rec := call(t, a.e, parkingMgr, http.MethodPost, "/api/v1/parking/visitors", fmt.Sprintf(`{"visitor_name":%q}`, name))
		if rec.Code != http.StatusCreated {
			t.Fatalf("assign %s: %d %s", name, rec.Code, rec.Body.String())
		}
		return decode[model.Allocation](t, rec.Body.Bytes()).Data
	}
	gone := assign("Ada")
	assign("Grace")
	if rec := call(t, a.e, parkingMgr, http.MethodPost, "/api/v1/parking/allocations/"+gone.ID+"/exit", ""); rec.Code != http.StatusOK {
		t.Fatalf("exit: %d %s", rec.Code, rec.Body.String())
	}

	rec := call(t, a.e, parkingMgr, http.MethodGet, "/api/v1/parking/visitors", "")
	r := decode[[]model.Allocation](t, rec.Body.Bytes())
	if rec.Code != http.StatusOK || len(r.Data) != 1 || *r.Data[0].VisitorName != "Grace" {
		t.Fatalf("visitors: %d %s", rec.Code, rec.Body.String())
	}
}

func TestMyAllocation(t *testing.T) {
	a := newParkingAPI()
	s1 := a.slot(t, "S1", model.ParkingEmployee)

	type mine struct {
		HasParking bool              `json:"has_parking"`
		Allocation *model.Allocation `json:"allocation"`
	}
	get := func() mine {
		rec := call(t, a.e, employeeA, http.MethodGet, "/api/v1/parking/allocations/my", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("my: %d %s", rec.Code, rec.Body.String())
		}
		return decode[mine](t, rec.Body.Bytes()).Data
	}

	if m := get(); m.HasParking || m.Allocation != nil {
		t.Fatalf("before allocation: %+v", m)
	}
	al := a.allocate(t, employeeA, s1.ID)
	if m := get(); !m.HasParking || m.Allocation == nil || m.Allocation.ID != al.ID {
		t.Fatalf("after allocation: %+v", m)
	}
}
