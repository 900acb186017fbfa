package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"hls-downloader/internal/domain/dto"
	"hls-downloader/internal/usecases"
	consts "hls-downloader/pkg/constants"
	"hls-downloader/pkg/errors"
)

type CleanupHandler struct {
	cleanupUC usecases.CleanupService
	maxAge    time.Duration
}

func NewCleanupHandler(cleanupUC usecases.CleanupService, maxAge time.Duration) *CleanupHandler {
	return &CleanupHandler{
		cleanupUC: cleanupUC,
		maxAge:    maxAge,
	}
}

// Sweep
//
// @Summary      Sweep Partial Files
// @Description  Manual trigger for the stale *.part sweep that otherwise runs on the cron schedule
// @Tags         Maintenance
// @Produce      json
// @Success      200  {object}  dto.ActionResponse
// @Router       /maintenance/sweep [post]
func (h *CleanupHandler) Sweep(c *fiber.Ctx) error {
	removed, err := h.cleanupUC.SweepPartials(h.maxAge)
	if err != nil {
		return errors.HandleError(c, errors.ErrInternal(err))
	}
	return c.JSON(dto.ActionResponse{Status: consts.StatusOK, Message: strconv.Itoa(removed) + " partial files removed"})
}
