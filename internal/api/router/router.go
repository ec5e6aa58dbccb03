package router

import (
	"time"

	"training-enrollment/internal/api/handlers"
	"training-enrollment/internal/api/middleware"
	"training-enrollment/internal/config"
	domain "training-enrollment/internal/domain/enrollment"
	"training-enrollment/internal/infrastructure/queue"
	"training-enrollment/internal/infrastructure/repository"
	interfaces "training-enrollment/internal/interfaces/infrastructure"
	"training-enrollment/internal/service"
	"training-enrollment/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type RouterComponents struct {
	Router       *gin.Engine
	Queue        interfaces.NotificationQueue
	Bookings     *service.BookingService
	Catalog      *service.CatalogService
	Prerequisite *service.PrerequisiteService
}

// Options overrides wiring that tests need to control
type Options struct {
	Now   func() time.Time
	Queue interfaces.NotificationQueue
}

// NewEnrollmentRouter wires repositories, services and handlers onto a gin
// engine. Queue workers are started before it returns.
func NewEnrollmentRouter(db *gorm.DB, cfg *config.Config, opts Options) *RouterComponents {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(middleware.Logger())
	r.Use(cors.New(corsConfig(cfg.Server.AllowedOrigins)))
	r.Use(gin.Recovery())

	store := repository.NewGormStore(db)
	notificationRepo := repository.NewNotificationRepository(db)

	notificationQueue := opts.Queue
	if notificationQueue == nil {
		notificationQueue = newNotificationQueue(cfg)
	}
	notificationQueue.SetSink(repository.NewNotificationSink(notificationRepo))
	notificationQueue.StartWorkers()

	bookingService := service.NewBookingService(store, notificationQueue, service.BookingOptions{
		Now:             opts.Now,
		LockTimeout:     cfg.Booking.LockTimeout,
		DispatchTimeout: cfg.Booking.DispatchTimeout,
	})
	prerequisiteService := service.NewPrerequisiteService(store)
	catalogService := service.NewCatalogService(store, opts.Now)
	notificationService := service.NewNotificationService(notificationRepo)

	bookingHandler := handlers.NewBookingHandler(bookingService, catalogService)
	prerequisiteHandler := handlers.NewPrerequisiteHandler(prerequisiteService)
	catalogHandler := handlers.NewCatalogHandler(catalogService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	healthHandler := handlers.NewHealthHandler(db, cfg.App.Version)

	auth := middleware.NewAuth(cfg.Auth.JWTSecret, cfg.Auth.Disabled)
	staff := middleware.RequireRole(domain.RoleTrainer)
	adminOnly := middleware.RequireRole()

	r.GET("/health", healthHandler.HealthCheck)
	r.GET("/ready", healthHandler.ReadinessCheck)
	r.GET("/live", healthHandler.LivenessCheck)

	v1 := r.Group("/api/v1", auth.Authenticate())
	{
		topics := v1.Group("/topics")
		{
			topics.POST("", staff, catalogHandler.CreateTopic)
			topics.GET("", catalogHandler.ListTopics)
			topics.GET("/:topic_id", catalogHandler.GetTopic)
			topics.PATCH("/:topic_id", staff, catalogHandler.UpdateTopic)
			topics.DELETE("/:topic_id", adminOnly, catalogHandler.DeleteTopic)
			topics.GET("/:topic_id/prerequisites", prerequisiteHandler.ListPrerequisites)
		}

		prerequisites := v1.Group("/topic-prerequisites", staff)
		{
			prerequisites.POST("", prerequisiteHandler.AddPrerequisite)
			prerequisites.DELETE("", prerequisiteHandler.RemovePrerequisite)
		}

		sessions := v1.Group("/sessions")
		{
			sessions.POST("", staff, catalogHandler.CreateSession)
			sessions.GET("", catalogHandler.ListSessions)
			sessions.GET("/:session_id", catalogHandler.GetSession)
			sessions.PATCH("/:session_id", staff, catalogHandler.UpdateSession)
			sessions.DELETE("/:session_id", staff, catalogHandler.DeleteSession)
			sessions.POST("/:session_id/bookings", middleware.RequireRole(domain.RoleStudent), bookingHandler.CreateBooking)
			sessions.GET("/:session_id/bookings", staff, bookingHandler.ListSessionBookings)
		}

		bookings := v1.Group("/bookings")
		{
			bookings.DELETE("/:booking_id", bookingHandler.CancelBooking)
			bookings.PATCH("/:booking_id/attendance", staff, bookingHandler.MarkAttendance)
			bookings.POST("/:booking_id/feedback", middleware.RequireRole(domain.RoleStudent), bookingHandler.AddFeedback)
		}

		students := v1.Group("/students")
		{
			students.GET("/:student_id/bookings", bookingHandler.ListStudentBookings)
			students.GET("/:student_id/topics", catalogHandler.ListCompletedTopics)
			students.POST("/:student_id/topics", staff, catalogHandler.CompleteTopic)
			students.DELETE("/:student_id/topics/:topic_id", staff, catalogHandler.RemoveCompletedTopic)
			students.GET("/:student_id/prerequisites/:topic_id", prerequisiteHandler.CheckPrerequisites)
		}

		notifications := v1.Group("/notifications")
		{
			notifications.GET("", notificationHandler.ListNotifications)
			notifications.POST("/:notification_id/read", notificationHandler.MarkRead)
		}
	}

	return &RouterComponents{
		Router:       r,
		Queue:        notificationQueue,
		Bookings:     bookingService,
		Catalog:      catalogService,
		Prerequisite: prerequisiteService,
	}
}

func newNotificationQueue(cfg *config.Config) interfaces.NotificationQueue {
	if cfg.Booking.Queue.Type == "redis" {
		logger.Info("Using Redis notification queue")
		client := queue.NewRedisClient(&cfg.Redis)
		return queue.NewRedisQueue(client, cfg.Booking.Queue.Key, cfg.Booking.Queue.Workers)
	}
	logger.Info("Using in-memory notification queue")
	return queue.NewInMemoryQueue(cfg.Booking.Queue.BufferSize, cfg.Booking.Queue.Workers)
}

func corsConfig(origins []string) cors.Config {
	c := cors.DefaultConfig()
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
	}
	c.AddAllowHeaders("Authorization", middleware.HeaderUserID, middleware.HeaderUserRole)
	return c
}
