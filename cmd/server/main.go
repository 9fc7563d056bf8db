package main // Entry point package

import (
	"context"
	"errors"
	"log" // Logging library
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4" // Echo web framework
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/office-resource-booking/internal/config" // Internal config loader
	"github.com/iliyamo/office-resource-booking/internal/database"
	"github.com/iliyamo/office-resource-booking/internal/handler"
	"github.com/iliyamo/office-resource-booking/internal/model"
	"github.com/iliyamo/office-resource-booking/internal/obs"
	"github.com/iliyamo/office-resource-booking/internal/queue"
	"github.com/iliyamo/office-resource-booking/internal/repository"
	"github.com/iliyamo/office-resource-booking/internal/router" // Internal router setup
	"github.com/iliyamo/office-resource-booking/internal/service"
)

func main() {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()
	cfg := config.Load() // Load environment config

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := obs.InitTracer(ctx, cfg.Trace.ServiceName, cfg.Env, cfg.Trace.Endpoint)
	if err != nil {
		log.Printf("tracing disabled: %v", err)
		shutdownTracer = func(context.Context) error { return nil }
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	if cfg.DBAutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			log.Fatalf("migrate: %v", err)
		}
		log.Printf("schema applied")
	}

	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}

	var pub service.Publisher = service.NopPublisher{}
	if cfg.AMQP.Enabled {
		p, err := queue.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			log.Printf("amqp: publisher unavailable, events disabled: %v", err)
		} else {
			defer p.Close()
			pub = p
		}
		audit := queue.AuditLog{Dir: cfg.AMQP.AuditDir}
		go func() {
			if err := queue.StartAuditConsumer(ctx, cfg.AMQP.URL, cfg.AMQP.Exchange, audit); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("audit-consumer stopped: %v", err)
			}
		}()
	}

	resources := repository.NewResourceRepo(db)
	userRepo := repository.NewUserRepo(db)
	registry := service.NewRegistry(resources, pub)
	bookings := service.NewBookings(repository.NewBookingRepo(db), resources, pub)
	parking := service.NewParking(repository.NewAllocationRepo(db), resources, pub)
	users := service.NewUsers(userRepo, cfg.BcryptCost)

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = handler.ErrorHandler
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			if v.Error != nil {
				log.Printf("%s %s %d %s id=%s err=%v", v.Method, v.URI, v.Status, v.Latency, v.RequestID, v.Error)
				return nil
			}
			log.Printf("%s %s %d %s id=%s", v.Method, v.URI, v.Status, v.Latency, v.RequestID)
			return nil
		},
	}))

	router.RegisterRoutes(e, db) // Register application routes
	router.Register(e, router.Handlers{
		Auth:          handler.NewAuthHandler(cfg, userRepo, repository.NewTokenRepo(db)),
		Users:         handler.NewUserHandler(users),
		Desks:         handler.NewResourceHandler(registry, model.KindDesk),
		Rooms:         handler.NewResourceHandler(registry, model.KindConferenceRoom),
		Slots:         handler.NewResourceHandler(registry, model.KindParkingSlot),
		Tables:        handler.NewResourceHandler(registry, model.KindCafeteriaTable),
		DeskBookings:  handler.NewBookingHandler(bookings, model.KindDesk),
		RoomBookings:  handler.NewBookingHandler(bookings, model.KindConferenceRoom),
		TableBookings: handler.NewBookingHandler(bookings, model.KindCafeteriaTable),
		Parking:       handler.NewParkingHandler(parking),
	}, router.Options{
		JWTSecret: cfg.JWTSecret,
		Redis:     rdb,
		RateLimit: config.LoadRateLimitConfig(),
		Cache:     config.LoadCacheConfig(),
	})

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) { // Start HTTP server
			log.Fatal(err) // Log and exit if server fails
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(sctx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	if err := shutdownTracer(sctx); err != nil {
		log.Printf("tracer shutdown: %v", err)
	}
}
