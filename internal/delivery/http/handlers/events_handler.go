package handlers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"hls-downloader/internal/domain/entities"
	"hls-downloader/pkg/errors"
)

const keepAliveInterval = 15 * time.Second

// Events
//
// @Summary      Progress Stream
// @Description  Server-sent events with the task's progress. The current state is sent first; the stream ends after a terminal status.
// @Tags         Downloads
// @Produce      text/event-stream
// @Param        id   path      string true "Task ID"
// @Success      200  {object}  entities.ProgressEvent
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /downloads/{id}/events [get]
func (h *DownloadHandler) Events(c *fiber.Ctx) error {
	id := c.Params("id")
	task, err := h.manager.GetTask(id)
	if err != nil {
		return errors.HandleError(c, errors.ToAPIError(err))
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	// subscribe before streaming so nothing published after the snapshot is lost
	events, unsubscribe := h.manager.Subscribe(id)
	snapshot := snapshotEvent(task)

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer unsubscribe()

		if writeEvent(w, snapshot) != nil || snapshot.Terminal() {
			return
		}

		ticker := time.NewTicker(keepAliveInterval)
		defer ticker.Stop()
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				if writeEvent(w, ev) != nil || ev.Terminal() {
					return
				}
			case <-ticker.C:
				if _, err := w.WriteString(": ping\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	}))
	return nil
}

func snapshotEvent(t *entities.DownloadTask) entities.ProgressEvent {
	return entities.ProgressEvent{
		TaskID:             t.ID,
		Status:             t.Status,
		Progress:           t.Progress(),
		DownloadedSegments: t.DownloadedSegments,
		TotalSegments:      t.TotalSegments,
		DownloadedBytes:    t.DownloadedBytes,
		TotalBytes:         t.TotalBytes,
		Error:              t.Error(),
		Timestamp:          time.Now(),
	}
}

func writeEvent(w *bufio.Writer, ev entities.ProgressEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: progress\ndata: %s\n\n", payload); err != nil {
		return err
	}
	return w.Flush()
}
