package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/office-resource-booking/internal/config"
	"github.com/iliyamo/office-resource-booking/internal/handler"
	"github.com/iliyamo/office-resource-booking/internal/middleware"
	"github.com/iliyamo/office-resource-booking/internal/model"
)

// Prefix is the mount point of the versioned API.
const Prefix = "/api/v1"

// Handlers groups every HTTP handler served under Prefix.
type Handlers struct {
	Auth          *handler.AuthHandler
	Users         *handler.UserHandler
	Desks         *handler.ResourceHandler
	Rooms         *handler.ResourceHandler
	Slots         *handler.ResourceHandler
	Tables        *handler.ResourceHandler
	DeskBookings  *handler.BookingHandler
	RoomBookings  *handler.BookingHandler
	TableBookings *handler.BookingHandler
	Parking       *handler.ParkingHandler
}

// Options carries the middleware settings shared by all routes.  A nil
// Redis client disables rate limiting and caching.
type Options struct {
	JWTSecret string
	Redis     *redis.Client
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
}

// cacheGroups are the response cache groups, one per resource registry.
const (
	groupDesks  = "desks"
	groupRooms  = "rooms"
	groupSlots  = "slots"
	groupTables = "tables"
)

// routes holds the middleware built once from Options.
type routes struct {
	opts    Options
	limiter echo.MiddlewareFunc
}

func (r routes) cached(group string) echo.MiddlewareFunc {
	return middleware.NewRedisCache(r.opts.Cache, r.opts.Redis, group)
}

func (r routes) invalidates(groups ...string) echo.MiddlewareFunc {
	return middleware.InvalidateOnWrite(r.opts.Cache, r.opts.Redis, groups...)
}

// RegisterRoutes registers routes that do not require authentication.
// Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
}

// Register mounts the whole API.  Login and refresh are public; every
// other route requires a valid access token.
func Register(e *echo.Echo, h Handlers, opts Options) {
	r := routes{opts: opts, limiter: middleware.NewTokenBucket(opts.RateLimit, opts.Redis)}

	pub := e.Group(Prefix+"/auth", r.limiter)
	pub.POST("/login", h.Auth.Login)
	pub.POST("/refresh", h.Auth.Refresh)

	api := e.Group(Prefix, middleware.JWTAuth(opts.JWTSecret), r.limiter)
	api.POST("/auth/logout", h.Auth.Logout)
	api.GET("/me", h.Auth.Me)

	users := api.Group("/users")
	users.POST("", h.Users.Create)
	users.GET("", h.Users.List, middleware.RequireRole(model.RoleSuperAdmin, model.RoleAdmin))
	users.GET("/:id", h.Users.Get)

	r.desks(api.Group("/desks"), h)
	r.parking(api.Group("/parking"), h)
	r.cafeteria(api.Group("/cafeteria"), h)
}

// resources registers the registry endpoints of one kind on g.
func (r routes) resources(g *echo.Group, h *handler.ResourceHandler, group string) {
	g.POST("", h.Create, r.invalidates(group))
	g.GET("", h.List, r.cached(group))
	g.GET("/:id", h.Get, r.cached(group))
	g.PUT("/:id", h.Update, r.invalidates(group))
	g.PATCH("/:id", h.Update, r.invalidates(group))
	g.DELETE("/:id", h.Delete, r.invalidates(group))
}

// bookings registers the booking endpoints of one kind on g.
func bookings(g *echo.Group, h *handler.BookingHandler) {
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/my", h.Mine)
	g.GET("/:id", h.Get)
	g.DELETE("/:id", h.Cancel)
}
