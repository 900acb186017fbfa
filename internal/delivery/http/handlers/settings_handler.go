package handlers

import (
	"github.com/gofiber/fiber/v2"

	"hls-downloader/internal/domain/dto"
	"hls-downloader/internal/domain/mapper"
	"hls-downloader/internal/usecases"
	"hls-downloader/pkg/errors"
)

type SettingsHandler struct {
	manager usecases.DownloadManager
}

func NewSettingsHandler(manager usecases.DownloadManager) *SettingsHandler {
	return &SettingsHandler{manager: manager}
}

// Get
//
// @Summary      Get Settings
// @Tags         Settings
// @Produce      json
// @Success      200  {object}  dto.SettingsDTO
// @Router       /settings [get]
func (h *SettingsHandler) Get(c *fiber.Ctx) error {
	s, err := h.manager.GetSettings()
	if err != nil {
		return errors.HandleError(c, errors.ToAPIError(err))
	}
	return c.JSON(mapper.ToSettingsDTO(s))
}

// Update
//
// @Summary      Update Settings
// @Description  Missing fields keep their stored value. Caps are clamped to 1..10 downloads and 1..16 segments.
// @Tags         Settings
// @Accept       json
// @Produce      json
// @Param        request  body      dto.SettingsDTO true "Settings"
// @Success      200      {object}  dto.SettingsDTO
// @Failure      400      {object}  dto.ErrorResponse
// @Router       /settings [put]
func (h *SettingsHandler) Update(c *fiber.Ctx) error {
	var req dto.SettingsDTO
	if err := c.BodyParser(&req); err != nil {
		return errors.HandleError(c, errors.ErrInvalidRequest(err))
	}

	current, err := h.manager.GetSettings()
	if err != nil {
		return errors.HandleError(c, errors.ToAPIError(err))
	}
	saved, err := h.manager.SaveSettings(mapper.ApplySettings(current, req))
	if err != nil {
		return errors.HandleError(c, errors.ToAPIError(err))
	}
	return c.JSON(mapper.ToSettingsDTO(saved))
}
