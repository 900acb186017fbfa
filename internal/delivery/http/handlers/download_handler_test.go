package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hls-downloader/internal/domain/dto"
	"hls-downloader/internal/domain/entities"
	"hls-downloader/internal/usecases"
	apperrors "hls-downloader/pkg/errors"
	"hls-downloader/pkg/m3u8"
)

type fakeManager struct {
	usecases.DownloadManager

	tasks     map[string]*entities.DownloadTask
	settings  entities.DownloadSettings
	submitted *dto.SubmitDownloadRequestDTO
	listed    []entities.TaskStatus
	events    chan entities.ProgressEvent
}

func newFakeManager() *fakeManager {
	return &fakeManager{
		tasks:    make(map[string]*entities.DownloadTask),
		settings: entities.DefaultSettings(),
		events:   make(chan entities.ProgressEvent, 4),
	}
}

func (f *fakeManager) SubmitURL(_ context.Context, req *dto.SubmitDownloadRequestDTO) (*entities.DownloadTask, error) {
	if strings.Contains(req.URL, "missing") {
		return nil, &apperrors.FetchError{StatusCode: 404, URL: req.URL}
	}
	f.submitted = req
	t := &entities.DownloadTask{ID: "t-new", Title: req.Title, Quality: "1080p", Status: entities.TaskQueued}
	f.tasks[t.ID] = t
	return t, nil
}

func (f *fakeManager) GetTask(id string) (*entities.DownloadTask, error) {
	t, ok := f.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, apperrors.ErrRecordNotFound)
	}
	return t, nil
}

func (f *fakeManager) ListTasks(statuses ...entities.TaskStatus) ([]entities.DownloadTask, error) {
	f.listed = statuses
	var out []entities.DownloadTask
	for _, t := range f.tasks {
		out = append(out, *t)
	}
	return out, nil
}

func (f *fakeManager) ListSegments(id string, filter entities.SegmentFilter) ([]entities.DownloadSegment, error) {
	if _, err := f.GetTask(id); err != nil {
		return nil, err
	}
	return []entities.DownloadSegment{{Index: 0, Status: entities.SegmentCompleted, FileSize: 10}}, nil
}

func (f *fakeManager) Pause(id string) error {
	t, err := f.GetTask(id)
	if err != nil {
		return err
	}
	if !t.Status.CanPause() {
		return apperrors.ErrInvalidTransition
	}
	t.Status = entities.TaskPaused
	return nil
}

func (f *fakeManager) Resume(id string) error {
	t, err := f.GetTask(id)
	if err != nil {
		return err
	}
	t.Status = entities.TaskQueued
	return nil
}

func (f *fakeManager) Cancel(id string) error {
	if _, err := f.GetTask(id); err != nil {
		return err
	}
	delete(f.tasks, id)
	return nil
}

func (f *fakeManager) Probe(_ context.Context, url, _, _ string) (*m3u8.VariantPlaylist, error) {
	return &m3u8.VariantPlaylist{URL: url, Videos: []m3u8.VideoVariant{{URL: url, Quality: "720p", Bandwidth: 2800000}}}, nil
}

func (f *fakeManager) GetSettings() (entities.DownloadSettings, error) {
	return f.settings, nil
}

func (f *fakeManager) SaveSettings(s entities.DownloadSettings) (entities.DownloadSettings, error) {
	f.settings = s.Normalize()
	return f.settings, nil
}

func (f *fakeManager) Subscribe(string) (<-chan entities.ProgressEvent, func()) {
	return f.events, func() {}
}

func newTestApp(m *fakeManager) *fiber.App {
	app := fiber.New()
	dh := NewDownloadHandler(m)
	sh := NewSettingsHandler(m)
	api := app.Group("/api/v1")
	api.Post("/downloads", dh.Submit)
	api.Get("/downloads", dh.List)
	api.Get("/downloads/:id", dh.Get)
	api.Get("/downloads/:id/segments", dh.Segments)
	api.Get("/downloads/:id/events", dh.Events)
	api.Post("/downloads/:id/pause", dh.Pause)
	api.Post("/downloads/:id/resume", dh.Resume)
	api.Delete("/downloads/:id", dh.Cancel)
	api.Post("/probe", dh.Probe)
	api.Get("/settings", sh.Get)
	api.Put("/settings", sh.Update)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func TestSubmit(t *testing.T) {
	m := newFakeManager()
	app := newTestApp(m)

	status, body := doJSON(t, app, "POST", "/api/v1/downloads", `{"url":"https://cdn/x/master.m3u8","title":"Show","episode":2,"quality":"1080p"}`)
	assert.Equal(t, fiber.StatusCreated, status)
	assert.Equal(t, "t-new", body["id"])
	assert.Equal(t, "queued", body["status"])
	require.NotNil(t, m.submitted)
	assert.Equal(t, 2, m.submitted.Episode)

	status, body = doJSON(t, app, "POST", "/api/v1/downloads", `{"title":"no url"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, apperrors.CodeInvalidRequest, body["error"])

	status, body = doJSON(t, app, "POST", "/api/v1/downloads", `{"url":"https://cdn/missing.m3u8","title":"x"}`)
	assert.Equal(t, fiber.StatusBadGateway, status)
	assert.Equal(t, apperrors.CodeManifestFetch, body["error"])
}

func TestListFiltersByStatus(t *testing.T) {
	m := newFakeManager()
	m.tasks["a"] = &entities.DownloadTask{ID: "a", Status: entities.TaskQueued}
	app := newTestApp(m)

	status, _ := doJSON(t, app, "GET", "/api/v1/downloads?status=queued,paused", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, []entities.TaskStatus{entities.TaskQueued, entities.TaskPaused}, m.listed)

	status, body := doJSON(t, app, "GET", "/api/v1/downloads?status=sleeping", "")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, apperrors.CodeInvalidRequest, body["error"])
}

func TestGetAndCommands(t *testing.T) {
	m := newFakeManager()
	m.tasks["a"] = &entities.DownloadTask{ID: "a", Status: entities.TaskDownloading, TotalSegments: 4, DownloadedSegments: 1}
	app := newTestApp(m)

	status, body := doJSON(t, app, "GET", "/api/v1/downloads/a", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 0.25, body["progress"])

	status, body = doJSON(t, app, "GET", "/api/v1/downloads/nope", "")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, apperrors.CodeTaskNotFound, body["error"])

	status, _ = doJSON(t, app, "POST", "/api/v1/downloads/a/pause", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, entities.TaskPaused, m.tasks["a"].Status)

	status, body = doJSON(t, app, "POST", "/api/v1/downloads/a/pause", "")
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, apperrors.CodeInvalidState, body["error"])

	status, _ = doJSON(t, app, "POST", "/api/v1/downloads/a/resume", "")
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = doJSON(t, app, "DELETE", "/api/v1/downloads/a", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Empty(t, m.tasks)
}

func TestSegments(t *testing.T) {
	m := newFakeManager()
	m.tasks["a"] = &entities.DownloadTask{ID: "a", Status: entities.TaskDownloading}
	app := newTestApp(m)

	req := httptest.NewRequest("GET", "/api/v1/downloads/a/segments?filter=completed", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	var segs []dto.SegmentResponseDTO
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&segs))
	require.Len(t, segs, 1)
	assert.Equal(t, "completed", segs[0].Status)

	status, _ := doJSON(t, app, "GET", "/api/v1/downloads/a/segments?filter=weird", "")
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestProbe(t *testing.T) {
	app := newTestApp(newFakeManager())
	status, body := doJSON(t, app, "POST", "/api/v1/probe", `{"url":"https://cdn/x/master.m3u8"}`)
	assert.Equal(t, fiber.StatusOK, status)
	videos, ok := body["videos"].([]any)
	require.True(t, ok)
	assert.Len(t, videos, 1)
}

func TestSettings(t *testing.T) {
	m := newFakeManager()
	app := newTestApp(m)

	status, body := doJSON(t, app, "GET", "/api/v1/settings", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(2), body["max_parallel_downloads"])

	status, body = doJSON(t, app, "PUT", "/api/v1/settings", `{"max_parallel_segments":99,"wifi_only":true}`)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(16), body["max_parallel_segments"])
	assert.Equal(t, float64(2), body["max_parallel_downloads"])
	assert.Equal(t, true, body["wifi_only"])
}

func TestEventsStream(t *testing.T) {
	m := newFakeManager()
	m.tasks["a"] = &entities.DownloadTask{ID: "a", Status: entities.TaskDownloading, TotalSegments: 2}
	m.events <- entities.ProgressEvent{TaskID: "a", Status: entities.TaskDownloading, DownloadedSegments: 1, TotalSegments: 2}
	m.events <- entities.ProgressEvent{TaskID: "a", Status: entities.TaskCompleted, DownloadedSegments: 2, TotalSegments: 2, Progress: 1}
	app := newTestApp(m)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/downloads/a/events", nil), int((5 * time.Second).Milliseconds()))
	require.NoError(t, err)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	text := string(raw)
	assert.Equal(t, 3, strings.Count(text, "event: progress\n"))
	assert.Contains(t, text, `"status":"completed"`)

	status, _ := doJSON(t, app, "GET", "/api/v1/downloads/zzz/events", "")
	assert.Equal(t, fiber.StatusNotFound, status)
}
