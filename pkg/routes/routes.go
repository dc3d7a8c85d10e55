package routes

import (
	"github.com/glasgow-exams/timetable-ingest/internal/auth"
	"github.com/glasgow-exams/timetable-ingest/internal/config"
	"github.com/glasgow-exams/timetable-ingest/internal/notification"
	"github.com/glasgow-exams/timetable-ingest/internal/timetable"
	"github.com/glasgow-exams/timetable-ingest/pkg/middleware"
	"context"
	"log"
	"os"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var EchoModules = fx.Module("echo",
	fx.Provide(NewEchoServer),
	fx.Provide(config.NewMongoDBConfig),
	fx.Provide(config.NewMongoDBClient),
	fx.Provide(config.NewResendConfig),
	fx.Provide(config.NewEmailService),
	fx.Provide(auth.NewUserRepository),
	fx.Provide(auth.NewAuthService),
	fx.Provide(auth.NewUserService),
	fx.Provide(auth.NewAuthHandler),
	fx.Provide(notification.NewNotificationRepository),
	fx.Provide(notification.NewNotificationService),
	fx.Provide(notification.NewNotificationHandler),
	fx.Provide(notification.NewNotificationScheduler),
	fx.Provide(fx.Annotate(timetable.NewMongoRepository, fx.As(new(timetable.Repository)))),
	fx.Provide(NewZapLogger),
	fx.Provide(timetable.NewOrchestrator),
	fx.Provide(timetable.NewHandler),
	fx.Invoke(RegisterRoutes),
	fx.Invoke(StartNotificationScheduler))

// NewZapLogger builds the structured logger the ingest orchestrator
// writes per-upload events to.
func NewZapLogger() (*zap.Logger, error) {
	return zap.NewProduction()
}

func NewEchoServer(lc fx.Lifecycle) *echo.Echo {
	e := echo.New()
	middleware.SetupMiddleware(e)
	port := os.Getenv("PORT")
	if port == "" {
		port = ":8080" // Default port if not specified in environment
	}
	if port[0] != ':' {
		port = ":" + port
	}
	log.Println("Server running on http://localhost" + port[1:])
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := e.Start(port); err != nil {
					log.Fatal("Failed to start the server:", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Println("shutting down the server ...")
			return e.Shutdown(ctx)
		},
	})
	return e
}

// StartNotificationScheduler starts the notification scheduler using dependency injection.
func StartNotificationScheduler(scheduler *notification.NotificationScheduler, lc fx.Lifecycle) {
	scheduler.StartScheduler(lc)
}

func RegisterRoutes(e *echo.Echo, authHandler *auth.AuthHandler, notificationHandler *notification.NotificationHandler, timetableHandler *timetable.Handler) {
	e.POST("/register", authHandler.Register)
	e.POST("/login", authHandler.Login)
	e.POST("/forgot-Password", authHandler.ForgotPassword)
	e.POST("/verify-email", authHandler.VerifyEmail)
	e.POST("/reset-password", authHandler.ResetPassword)
	e.GET("/healthz", timetableHandler.Health)

	protected := e.Group("/api")
	protected.Use(middleware.JWTMiddleware)
	protected.Use(middleware.CasbinMiddleware)
	protected.GET("/profile", authHandler.Profile)

	// Notification routes (schedule/delete admin only; listing also open to staff)
	protected.POST("/notifications/schedule", notificationHandler.ScheduleNotification)
	protected.GET("/notifications", notificationHandler.ListNotifications)
	protected.DELETE("/notifications/:id", notificationHandler.DeleteNotification)

	// Timetable ingest routes
	protected.POST("/uploads", timetableHandler.Upload)
	protected.GET("/exams", timetableHandler.ListExams)
	protected.GET("/exams/:code", timetableHandler.GetExam)
	protected.GET("/venues", timetableHandler.ListVenues)
	protected.GET("/venues/:name", timetableHandler.GetVenue)
}
