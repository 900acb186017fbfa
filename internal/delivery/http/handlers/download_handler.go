package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"hls-downloader/internal/domain/dto"
	"hls-downloader/internal/domain/entities"
	"hls-downloader/internal/domain/mapper"
	"hls-downloader/internal/usecases"
	consts "hls-downloader/pkg/constants"
	"hls-downloader/pkg/errors"
)

type DownloadHandler struct {
	manager usecases.DownloadManager
}

func NewDownloadHandler(manager usecases.DownloadManager) *DownloadHandler {
	return &DownloadHandler{manager: manager}
}

// Submit
//
// @Summary      Submit Download
// @Description  Probes a master or media playlist, picks the variant and queues a download task
// @Tags         Downloads
// @Accept       json
// @Produce      json
// @Param        request  body      dto.SubmitDownloadRequestDTO true "Download request"
// @Success      201      {object}  dto.TaskResponseDTO
// @Failure      400      {object}  dto.ErrorResponse
// @Failure      404      {object}  dto.ErrorResponse "Quality not offered"
// @Failure      409      {object}  dto.ErrorResponse "Destination already used"
// @Failure      502      {object}  dto.ErrorResponse "Manifest could not be fetched"
// @Router       /downloads [post]
func (h *DownloadHandler) Submit(c *fiber.Ctx) error {
	var req dto.SubmitDownloadRequestDTO
	if err := c.BodyParser(&req); err != nil {
		return errors.HandleError(c, errors.ErrInvalidRequest(err))
	}
	if strings.TrimSpace(req.URL) == "" {
		return errors.HandleError(c, errors.ErrInvalidRequest(nil))
	}

	task, err := h.manager.SubmitURL(c.UserContext(), &req)
	if err != nil {
		return errors.HandleError(c, errors.ToAPIError(err))
	}
	return c.Status(fiber.StatusCreated).JSON(mapper.ToTaskDTO(task))
}

// List
//
// @Summary      List Downloads
// @Description  Lists tasks, optionally filtered by a comma separated status list
// @Tags         Downloads
// @Produce      json
// @Param        status  query     string false "queued,downloading,completed,failed,paused"
// @Success      200     {array}   dto.TaskResponseDTO
// @Failure      400     {object}  dto.ErrorResponse
// @Router       /downloads [get]
func (h *DownloadHandler) List(c *fiber.Ctx) error {
	var statuses []entities.TaskStatus
	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			st, err := entities.ParseTaskStatus(strings.TrimSpace(s))
			if err != nil {
				return errors.HandleError(c, errors.ErrInvalidRequest(err))
			}
			statuses = append(statuses, st)
		}
	}

	tasks, err := h.manager.ListTasks(statuses...)
	if err != nil {
		return errors.HandleError(c, errors.ToAPIError(err))
	}
	return c.JSON(mapper.ToTaskDTOs(tasks))
}

// Get
//
// @Summary      Get Download
// @Tags         Downloads
// @Produce      json
// @Param        id   path      string true "Task ID"
// @Success      200  {object}  dto.TaskResponseDTO
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /downloads/{id} [get]
func (h *DownloadHandler) Get(c *fiber.Ctx) error {
	task, err := h.manager.GetTask(c.Params("id"))
	if err != nil {
		return errors.HandleError(c, errors.ToAPIError(err))
	}
	return c.JSON(mapper.ToTaskDTO(task))
}

// Segments
//
// @Summary      List Segments
// @Tags         Downloads
// @Produce      json
// @Param        id      path      string true  "Task ID"
// @Param        filter  query     string false "all, pending, completed, failed-retryable"
// @Success      200     {array}   dto.SegmentResponseDTO
// @Failure      400     {object}  dto.ErrorResponse
// @Failure      404     {object}  dto.ErrorResponse
// @Router       /downloads/{id}/segments [get]
func (h *DownloadHandler) Segments(c *fiber.Ctx) error {
	filter, err := entities.ParseSegmentFilter(c.Query("filter"))
	if err != nil {
		return errors.HandleError(c, errors.ErrInvalidRequest(err))
	}
	segs, err := h.manager.ListSegments(c.Params("id"), filter)
	if err != nil {
		return errors.HandleError(c, errors.ToAPIError(err))
	}
	return c.JSON(mapper.ToSegmentDTOs(segs))
}

// Pause
//
// @Summary      Pause Download
// @Tags         Downloads
// @Produce      json
// @Param        id   path      string true "Task ID"
// @Success      200  {object}  dto.ActionResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /downloads/{id}/pause [post]
func (h *DownloadHandler) Pause(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.manager.Pause(id); err != nil {
		return errors.HandleError(c, errors.ToAPIError(err))
	}
	return c.JSON(dto.ActionResponse{Status: consts.StatusOK, ID: id, Message: string(entities.TaskPaused)})
}

// Resume
//
// @Summary      Resume Download
// @Description  Requeues a paused or failed task. A failed task gets a fresh retry budget.
// @Tags         Downloads
// @Produce      json
// @Param        id   path      string true "Task ID"
// @Success      200  {object}  dto.ActionResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /downloads/{id}/resume [post]
func (h *DownloadHandler) Resume(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.manager.Resume(id); err != nil {
		return errors.HandleError(c, errors.ToAPIError(err))
	}
	return c.JSON(dto.ActionResponse{Status: consts.StatusOK, ID: id, Message: string(entities.TaskQueued)})
}

// Cancel
//
// @Summary      Cancel Download
// @Description  Stops the task, deletes its files and its records
// @Tags         Downloads
// @Produce      json
// @Param        id   path      string true "Task ID"
// @Success      200  {object}  dto.ActionResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /downloads/{id} [delete]
func (h *DownloadHandler) Cancel(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.manager.Cancel(id); err != nil {
		return errors.HandleError(c, errors.ToAPIError(err))
	}
	return c.JSON(dto.ActionResponse{Status: consts.StatusOK, ID: id, Message: string(entities.TaskCancelled)})
}

// Probe
//
// @Summary      Probe Manifest
// @Description  Fetches and parses a master playlist so a variant can be chosen
// @Tags         Downloads
// @Accept       json
// @Produce      json
// @Param        request  body      dto.ProbeRequestDTO true "Manifest URL"
// @Success      200      {object}  m3u8.VariantPlaylist
// @Failure      400      {object}  dto.ErrorResponse
// @Failure      502      {object}  dto.ErrorResponse
// @Router       /probe [post]
func (h *DownloadHandler) Probe(c *fiber.Ctx) error {
	var req dto.ProbeRequestDTO
	if err := c.BodyParser(&req); err != nil {
		return errors.HandleError(c, errors.ErrInvalidRequest(err))
	}
	playlist, err := h.manager.Probe(c.UserContext(), req.URL, req.Referer, req.Cookie)
	if err != nil {
		return errors.HandleError(c, errors.ToAPIError(err))
	}
	return c.JSON(playlist)
}
