package routers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"

	"hls-downloader/internal/delivery/http/handlers"
	consts "hls-downloader/pkg/constants"
)

// SetupSystemRoutes mounts health, metrics, swagger and maintenance endpoints.
// A nil metrics handler or cleanup handler leaves that route out.
func SetupSystemRoutes(app *fiber.App, metrics http.Handler, cleanupHandler *handlers.CleanupHandler) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": consts.StatusOK})
	})

	if metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(metrics))
	}

	// Swagger UI
	app.Get("/swagger/*", swagger.HandlerDefault)

	if cleanupHandler != nil {
		app.Post("/api/v1/maintenance/sweep", cleanupHandler.Sweep)
	}
}
