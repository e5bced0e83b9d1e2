package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/jjenkins/wcivf/internal/service"
	"github.com/jjenkins/wcivf/internal/store"
	"github.com/sirupsen/logrus"
)

// NewApp creates the read-only API with every route registered
func NewApp(repo store.Repository, log logrus.FieldLogger, requestLog bool) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "wcivf",
		ErrorHandler: errorHandler,
	})

	if requestLog {
		app.Use(logger.New())
	}

	app.Get("/healthz", HealthHandler())
	app.Get("/api/metrics", MetricsHandler(service.NewMetricsService(repo), log))

	app.Get("/api/elections", ElectionsHandler(repo, log))
	app.Get("/api/elections/:slug", ElectionDetailHandler(repo, log))
	app.Get("/api/ballots/:ballot_paper_id", BallotDetailHandler(repo, log))

	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

// HealthHandler reports that the server is up
func HealthHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	}
}

// MetricsHandler returns the most recent stored metrics
func MetricsHandler(metrics *service.MetricsService, log logrus.FieldLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		latest, err := metrics.GetLatestMetrics(c.UserContext())
		if err != nil {
			log.WithError(err).Error("Error loading metrics")
			return fiber.NewError(fiber.StatusInternalServerError, "Error loading metrics")
		}
		return c.JSON(latest)
	}
}
