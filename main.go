package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"freesend/config"
	"freesend/middleware"
	"freesend/provider"
	"freesend/routes"
	"freesend/worker"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Load configuration
	if err := config.LoadConfig(); err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}
	if config.IsProduction() {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	// Error reporting, enabled only when a DSN is configured
	if config.AppConfig.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         config.AppConfig.SentryDSN,
			Environment: config.AppConfig.Environment,
		}); err != nil {
			logger.Fatalf("Failed to initialize Sentry: %v", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	// Initialize database connection
	db, err := config.ConnectDB()
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Delivery provider client
	mailer, err := provider.NewSESMailer(ctx,
		config.AppConfig.AWSRegion,
		config.AppConfig.AWSAccessKeyID,
		config.AppConfig.AWSSecretAccessKey,
		logger,
	)
	if err != nil {
		logger.Fatalf("Failed to initialize SES client: %v", err)
	}

	// DNS provider client, only when a token is configured
	var dns *provider.DNSManager
	if config.AppConfig.DOAPIToken != "" {
		dns = provider.NewDNSManager(config.AppConfig.DOAPIToken, logger)
	}

	// Create Fiber app
	app := fiber.New()
	app.Use(middleware.CORS())

	// Periodic pending-domain verification sweep
	verificationWorker := worker.NewVerificationWorker(db, mailer, config.AppConfig.VerifySweepInterval, logger)
	go verificationWorker.Start(ctx)

	// Setup routes
	routes.SetupRoutes(app, db, mailer, dns, logger)

	// Graceful shutdown
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		logger.Info("Shutting down...")
		cancel()
		if err := app.Shutdown(); err != nil {
			logger.Errorf("Server shutdown failed: %v", err)
		}
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	// Start server
	logger.Infof("Server starting on port %s", config.AppConfig.ServerPort)
	if err := app.Listen(":" + config.AppConfig.ServerPort); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}
