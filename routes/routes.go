package routes

import (
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	controller "freesend/controllers"
	"freesend/middleware"
	"freesend/provider"
)

// SetupRoutes wires every endpoint to its controller. All external clients
// are constructed in main and injected here.
func SetupRoutes(app *fiber.App, db *gorm.DB, mailer *provider.SESMailer, dns *provider.DNSManager, logger *logrus.Logger) {
	authController := controller.NewAuthController(db, logger)
	domainController := controller.NewDomainController(db, mailer, dns, mailer.Region(), logger)
	apiKeyController := controller.NewAPIKeyController(db, logger)
	emailController := controller.NewEmailController(db, mailer, logger)
	webhookController := controller.NewWebhookController(db, logger)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api", fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Auth
	auth := api.Group("/auth")
	auth.Post("/register", authController.Register)
	auth.Post("/login", authController.Login)
	auth.Get("/me", middleware.Protected(db), authController.Me)

	// Domains (user token)
	domains := api.Group("/domains", middleware.Protected(db))
	domains.Get("/", domainController.ListDomains)
	domains.Post("/", domainController.CreateDomain)
	domains.Get("/:id", domainController.GetDomain)
	domains.Delete("/:id", domainController.DeleteDomain)
	domains.Post("/:id/verify", domainController.VerifyDomain)

	// API keys (user token)
	apiKeys := api.Group("/api-keys", middleware.Protected(db))
	apiKeys.Get("/", apiKeyController.ListAPIKeys)
	apiKeys.Post("/", apiKeyController.CreateAPIKey)
	apiKeys.Put("/:id", apiKeyController.UpdateAPIKey)
	apiKeys.Delete("/:id", apiKeyController.DeleteAPIKey)

	// Emails. /logs must be registered before /:id.
	emails := api.Group("/emails")
	emails.Get("/logs", middleware.EmailLogAuth(db), emailController.ListEmailLogs)
	emails.Post("/", middleware.APIKeyAuth(db), middleware.SendRateLimiter(), emailController.SendEmail)
	emails.Get("/:id", middleware.Protected(db), emailController.GetEmailLog)

	// Webhooks (provider-facing, unauthenticated)
	webhooks := api.Group("/webhooks")
	webhooks.Post("/ses", webhookController.HandleSESWebhook)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested resource was not found",
		})
	})

	logger.Info("routes initialized")
}
