// Package app assembles repositories, services and HTTP routes into one engine.
package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"examroom/internal/config"
	"examroom/internal/middleware"
	"examroom/internal/modules/auth"
	"examroom/internal/modules/availability"
	"examroom/internal/modules/booking"
	"examroom/internal/modules/classroom"
	"examroom/internal/modules/enrollment"
	jwtsvc "examroom/internal/pkg/jwt"
	"examroom/internal/realtime"
	"examroom/internal/repository"
)

type App struct {
	Router   *gin.Engine
	Bookings *booking.Service
	Tokens   *jwtsvc.Service
}

func New(cfg *config.Config, db *gorm.DB, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}

	feed := realtime.NewFeed(logger.Named("feed"))
	userRepo := repository.NewUserRepository(db, feed)
	classroomRepo := repository.NewClassroomRepository(db, feed)
	bookingRepo := repository.NewBookingRepository(db, feed)

	tokens := jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL)

	authHandler := auth.NewHandler(auth.NewService(userRepo, tokens, logger), logger)

	classroomService := classroom.NewService(classroomRepo, bookingRepo, logger)
	classroomHandler := classroom.NewHandler(classroomService, classroomRepo, tokens, logger)

	availabilityHandler := availability.NewHandler(
		availability.NewService(bookingRepo, classroomRepo, cfg.Hours),
		logger,
	)

	bookingService := booking.NewService(
		bookingRepo,
		classroomRepo,
		userRepo,
		cfg.Hours,
		logger.Named("booking"),
		booking.WithAtomicCreate(cfg.AtomicCreate),
	)
	bookingHandler := booking.NewHandler(bookingService, userRepo, tokens, logger)

	enrollmentHandler := enrollment.NewHandler(enrollment.NewService(userRepo, logger), logger)

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.RequestLogger(logger), middleware.CORS(cfg.CORSAllowedOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Websocket endpoints authenticate with ?token= themselves.
	bookingHandler.RegisterWS(r)
	classroomHandler.RegisterWS(r)

	v1 := r.Group("/api/v1")
	{
		// public
		authHandler.RegisterRoutes(v1)

		protected := v1.Group("")
		protected.Use(middleware.JWTAuth(tokens))
		{
			authHandler.RegisterProtectedRoutes(protected)
			classroomHandler.RegisterRoutes(protected)
			availabilityHandler.RegisterRoutes(protected)
			bookingHandler.RegisterRoutes(protected)
			enrollmentHandler.RegisterRoutes(protected)
		}
	}

	return &App{Router: r, Bookings: bookingService, Tokens: tokens}
}
