package routers

import (
	"github.com/gofiber/fiber/v2"

	"hls-downloader/internal/delivery/http/handlers"
)

func SetupDownloadRoutes(app *fiber.App, downloadHandler *handlers.DownloadHandler, settingsHandler *handlers.SettingsHandler) {
	api := app.Group("/api/v1")

	api.Post("/downloads", downloadHandler.Submit)
	api.Get("/downloads", downloadHandler.List)
	api.Get("/downloads/:id", downloadHandler.Get)
	api.Get("/downloads/:id/segments", downloadHandler.Segments)
	api.Get("/downloads/:id/events", downloadHandler.Events)
	api.Post("/downloads/:id/pause", downloadHandler.Pause)
	api.Post("/downloads/:id/resume", downloadHandler.Resume)
	api.Delete("/downloads/:id", downloadHandler.Cancel)
	api.Post("/probe", downloadHandler.Probe)

	api.Get("/settings", settingsHandler.Get)
	api.Put("/settings", settingsHandler.Update)
}
