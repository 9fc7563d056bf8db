package router

import "github.com/labstack/echo/v4"

// desks registers desks and conference rooms under /desks.  Rooms are
// also reachable as /desks/conference-rooms.
func (r routes) desks(g *echo.Group, h Handlers) {
	// Static segments win over /:id, so these must not be shadowed.
	g.GET("/stats", h.DeskBookings.Stats)
	g.GET("/available", h.DeskBookings.Available)
	bookings(g.Group("/bookings"), h.DeskBookings)

	for _, prefix := range []string{"/rooms", "/conference-rooms"} {
		rooms := g.Group(prefix)
		rooms.GET("/stats", h.RoomBookings.Stats)
		rooms.GET("/available", h.RoomBookings.Available)
		rb := rooms.Group("/bookings")
		bookings(rb, h.RoomBookings)
		rb.POST("/:id/approve", h.RoomBookings.Approve)
		rb.POST("/:id/reject", h.RoomBookings.Reject)
		r.resources(rooms, h.Rooms, groupRooms)
	}

	r.resources(g, h.Desks, groupDesks)
}

// cafeteria registers tables and table bookings under /cafeteria.
func (r routes) cafeteria(g *echo.Group, h Handlers) {
	g.GET("/stats", h.TableBookings.Stats)
	g.GET("/available", h.TableBookings.Available)
	bookings(g.Group("/bookings"), h.TableBookings)
	r.resources(g.Group("/tables"), h.Tables, groupTables)
}

// parking registers slots, allocations and visitors under /parking.
func (r routes) parking(g *echo.Group, h Handlers) {
	r.resources(g.Group("/slots"), h.Slots, groupSlots)

	p := h.Parking
	g.GET("/available", p.Available)
	g.GET("/stats", p.Stats)

	a := g.Group("/allocations")
	a.POST("", p.Allocate)
	a.GET("", p.List)
	a.GET("/my", p.Mine)
	a.POST("/:id/exit", p.Exit)

	g.POST("/visitors", p.AssignVisitor)
	g.GET("/visitors", p.ListVisitors)
}
