package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"training-enrollment/internal/api/router"
	"training-enrollment/internal/config"
	"training-enrollment/internal/infrastructure/database"
	"training-enrollment/pkg/logger"

	"github.com/spf13/cobra"
)

var (
	port          string
	skipMigration bool
)

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the enrollment HTTP server",
	Long: `Start the enrollment HTTP server.
This includes:
- Booking, cancellation, attendance and feedback endpoints
- Topic prerequisite management
- Topic, session and completed-topic catalog
- Notification workers`,
	Run: func(cmd *cobra.Command, args []string) {
		startServer()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().StringVarP(&port, "port", "p", "8080", "Port for the server to listen on")
	serverCmd.Flags().BoolVar(&skipMigration, "skip-migrations", false, "Do not apply migrations on startup")
}

func startServer() {
	cfg := config.Get()

	// Override port if flag is provided
	if port != "8080" {
		cfg.Server.Port = port
	}

	if cfg.Auth.JWTSecret == "" && !cfg.Auth.Disabled {
		logger.Fatal("auth.jwt_secret must be set (or auth.disabled for local development)")
	}
	if cfg.Auth.Disabled {
		logger.Warn("Token authentication is disabled; identities are read from X-User-ID and X-User-Role headers")
	}

	db := mustOpenDatabase(cfg)
	defer database.Close(db)

	if !skipMigration {
		if err := database.RunMigrations(db); err != nil {
			logger.Error("Failed to run database migrations: %v", err)
			os.Exit(1)
		}
	}

	if err := database.HealthCheck(db); err != nil {
		logger.Error("Database health check failed: %v", err)
		os.Exit(1)
	}

	components := router.NewEnrollmentRouter(db, cfg, router.Options{})

	srv := &http.Server{
		Addr:           ":" + cfg.Server.Port,
		Handler:        components.Router,
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		logger.Info("Starting enrollment server on port %s (%s database)", cfg.Server.Port, db.Dialector.Name())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown: %v", err)
	}

	// after Shutdown so in-flight bookings can still enqueue
	components.Queue.StopWorkers()

	logger.Info("Server exited")
}
