package usecases

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"hls-downloader/internal/domain/dto"
	"hls-downloader/internal/domain/entities"
	"hls-downloader/internal/domain/repositories"
	"hls-downloader/pkg/constants"
	apperrors "hls-downloader/pkg/errors"
	"hls-downloader/pkg/helper"
	"hls-downloader/pkg/m3u8"
)

type DownloadManager interface {
	// Start recovers interrupted tasks and runs the coordinator until Stop
	// or ctx is done.
	Start(ctx context.Context) error
	Stop()

	Probe(ctx context.Context, url, referer, cookie string) (*m3u8.VariantPlaylist, error)
	Submit(ctx context.Context, req SubmitRequest) (*entities.DownloadTask, error)
	// SubmitURL probes the URL and picks the variant itself.
	SubmitURL(ctx context.Context, req *dto.SubmitDownloadRequestDTO) (*entities.DownloadTask, error)

	Pause(id string) error
	Resume(id string) error
	Cancel(id string) error

	GetTask(id string) (*entities.DownloadTask, error)
	ListTasks(statuses ...entities.TaskStatus) ([]entities.DownloadTask, error)
	ListSegments(id string, filter entities.SegmentFilter) ([]entities.DownloadSegment, error)
	GetSettings() (entities.DownloadSettings, error)
	SaveSettings(s entities.DownloadSettings) (entities.DownloadSettings, error)

	Subscribe(taskID string) (<-chan entities.ProgressEvent, func())
}

// SubmitRequest is what a manifest resolver hands over: the master URL plus
// the variants the user picked from it.
type SubmitRequest struct {
	ContentID    string
	Episode      int
	Title        string
	EpisodeTitle string
	MasterURL    string
	Video        m3u8.VideoVariant
	Audio        *m3u8.AudioVariant
	Referer      string
	Cookie       string
}

type taskHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

type downloadManager struct {
	repo    repositories.DownloadRepository
	fetcher repositories.Fetcher
	storage repositories.ArtifactStorage
	log     *zap.Logger
	opts    ManagerOptions
	metrics Metrics

	progress *ProgressBroadcaster

	mu      sync.Mutex
	workers map[string]*taskHandle
	runCtx  context.Context
	stop    context.CancelFunc
	wake    chan struct{}
	wg      sync.WaitGroup
}

func NewDownloadManager(
	repo repositories.DownloadRepository,
	fetcher repositories.Fetcher,
	storage repositories.ArtifactStorage,
	log *zap.Logger,
	opts ManagerOptions,
) DownloadManager {
	if opts.UserAgent == "" {
		opts.UserAgent = constants.DefaultUserAgent
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = constants.DefaultPollInterval
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &downloadManager{
		repo:     repo,
		fetcher:  fetcher,
		storage:  storage,
		log:      log,
		opts:     opts,
		metrics:  metrics,
		progress: NewProgressBroadcaster(subscriberBuffer),
		workers:  make(map[string]*taskHandle),
		wake:     make(chan struct{}, 1),
	}
}

func (m *downloadManager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.stop != nil {
		m.mu.Unlock()
		return nil
	}
	m.runCtx, m.stop = context.WithCancel(ctx)
	m.mu.Unlock()

	if err := m.recoverInterrupted(); err != nil {
		return err
	}

	m.wg.Add(1)
	go m.loop()
	m.log.Info("download manager started", zap.Duration("poll_interval", m.opts.PollInterval))
	return nil
}

func (m *downloadManager) Stop() {
	m.mu.Lock()
	stop := m.stop
	m.mu.Unlock()
	if stop == nil {
		return
	}
	stop()
	m.wg.Wait()

	m.mu.Lock()
	m.stop = nil
	m.mu.Unlock()
	m.log.Info("download manager stopped")
}

// recoverInterrupted handles tasks left downloading by a previous process.
func (m *downloadManager) recoverInterrupted() error {
	settings, err := m.repo.GetSettings()
	if err != nil {
		return err
	}
	tasks, err := m.repo.ListTasksByStatus(entities.TaskDownloading)
	if err != nil {
		return err
	}

	target := entities.TaskPaused
	if settings.AutoResume {
		target = entities.TaskQueued
	}
	for _, t := range tasks {
		if _, err := m.repo.TransitionTaskStatus(t.ID, []entities.TaskStatus{entities.TaskDownloading}, target, nil); err != nil {
			return err
		}
		m.log.Info("recovered interrupted task", zap.String("task_id", t.ID), zap.String("status", string(target)))
	}
	return nil
}

func (m *downloadManager) loop() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.opts.PollInterval)
	defer ticker.Stop()

	m.schedule()
	for {
		select {
		case <-m.runCtx.Done():
			return
		case <-ticker.C:
		case <-m.wake:
		}
		m.schedule()
	}
}

func (m *downloadManager) notify() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// schedule claims queued tasks, oldest first, until the parallel download cap
// is reached.
func (m *downloadManager) schedule() {
	ctx := m.runCtx
	if ctx.Err() != nil {
		return
	}

	settings, err := m.repo.GetSettings()
	if err != nil {
		m.log.Error("settings could not be read", zap.Error(err))
		return
	}
	if settings.WifiOnly && !m.unmetered(ctx) {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.workers) >= settings.MaxParallelDownloads {
		return
	}

	queued, err := m.repo.ListTasksByStatus(entities.TaskQueued)
	if err != nil {
		m.log.Error("queued tasks could not be listed", zap.Error(err))
		return
	}
	for i := range queued {
		if len(m.workers) >= settings.MaxParallelDownloads {
			return
		}
		task := queued[i]
		if _, busy := m.workers[task.ID]; busy {
			continue
		}
		ok, err := m.repo.TransitionTaskStatus(task.ID, []entities.TaskStatus{entities.TaskQueued}, entities.TaskDownloading, nil)
		if err != nil {
			m.log.Error("task could not be claimed", zap.String("task_id", task.ID), zap.Error(err))
			continue
		}
		if !ok {
			continue
		}
		task.Status = entities.TaskDownloading
		m.launch(ctx, &task, settings)
	}
}

// launch must be called with m.mu held.
func (m *downloadManager) launch(ctx context.Context, task *entities.DownloadTask, settings entities.DownloadSettings) {
	taskCtx, cancel := context.WithCancel(ctx)
	h := &taskHandle{cancel: cancel, done: make(chan struct{})}
	m.workers[task.ID] = h

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer func() {
			cancel()
			m.mu.Lock()
			delete(m.workers, task.ID)
			m.mu.Unlock()
			close(h.done)
			m.notify()
		}()
		m.runTask(taskCtx, task, settings)
	}()
}

func (m *downloadManager) unmetered(ctx context.Context) bool {
	if m.opts.Network == nil {
		return true
	}
	ok, err := m.opts.Network.IsUnmetered(ctx)
	if err != nil {
		m.log.Warn("network type could not be determined", zap.Error(err))
		return false
	}
	return ok
}

func (m *downloadManager) headers(referer, cookie string) http.Header {
	return helper.BuildHeaders(m.opts.UserAgent, referer, cookie)
}

func (m *downloadManager) fetchText(ctx context.Context, url, referer, cookie string) (string, error) {
	body, _, err := m.fetcher.FetchBytes(ctx, url, m.headers(referer, cookie))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// Probe parses a master playlist. A media playlist URL comes back as a single
// "Auto" variant pointing at itself.
func (m *downloadManager) Probe(ctx context.Context, url, referer, cookie string) (*m3u8.VariantPlaylist, error) {
	if err := helper.ValidateManifestURL(url); err != nil {
		return nil, apperrors.ErrInvalidRequest(err)
	}
	text, err := m.fetchText(ctx, url, referer, cookie)
	if err != nil {
		return nil, err
	}

	if !m3u8.IsMasterPlaylist(text) {
		if _, err := m3u8.ParseMediaPlaylist(text, url); err != nil {
			return nil, err
		}
		return &m3u8.VariantPlaylist{
			URL:    url,
			Videos: []m3u8.VideoVariant{{URL: url, Quality: m3u8.AutoQuality}},
		}, nil
	}

	playlist, err := m3u8.ParseVariantPlaylist(text, url)
	if err != nil {
		return nil, err
	}
	if len(playlist.Videos) == 0 {
		return nil, &m3u8.ParseError{URL: url, Err: apperrors.ErrNoVariants}
	}
	return playlist, nil
}

func (m *downloadManager) Submit(ctx context.Context, req SubmitRequest) (*entities.DownloadTask, error) {
	if err := helper.ValidateManifestURL(req.Video.URL); err != nil {
		return nil, apperrors.ErrInvalidRequest(err)
	}
	if req.Episode < 0 {
		return nil, apperrors.ErrInvalidRequest(fmt.Errorf("episode must not be negative"))
	}

	//* aynı dizine ikinci görev CreateTask içinde ErrTaskExists ile reddedilir
	destDir := m.storage.TaskDir(req.Title, req.Episode)

	quality := req.Video.Quality
	if quality == "" {
		quality = m3u8.AutoQuality
	}
	spec := entities.TaskSpec{
		ContentID:    req.ContentID,
		Episode:      req.Episode,
		Title:        req.Title,
		EpisodeTitle: req.EpisodeTitle,
		MasterURL:    req.MasterURL,
		ManifestURL:  req.Video.URL,
		Quality:      quality,
		AudioGroupID: req.Video.AudioGroupID,
		DestDir:      destDir,
		Referer:      req.Referer,
		Cookie:       req.Cookie,
	}
	if req.Audio != nil {
		spec.AudioLanguage = req.Audio.Language
		if spec.AudioLanguage == "" {
			spec.AudioLanguage = req.Audio.Name
		}
		spec.AudioURL = req.Audio.URL
	}

	task, err := m.repo.CreateTask(spec)
	if err != nil {
		return nil, err
	}
	m.log.Info("task submitted",
		zap.String("task_id", task.ID),
		zap.String("url", task.ManifestURL),
		zap.String("quality", task.Quality),
	)
	m.emit(eventFor(task, 0))
	m.notify()
	return task, nil
}

func (m *downloadManager) SubmitURL(ctx context.Context, req *dto.SubmitDownloadRequestDTO) (*entities.DownloadTask, error) {
	playlist, err := m.Probe(ctx, req.URL, req.Referer, req.Cookie)
	if err != nil {
		return nil, err
	}

	video, ok := playlist.Best()
	if req.Quality != "" && !strings.EqualFold(req.Quality, m3u8.AutoQuality) {
		video, ok = playlist.ByQuality(req.Quality)
		if !ok {
			return nil, apperrors.ErrVariantNotFound(fmt.Errorf("quality %q not offered by %s", req.Quality, req.URL))
		}
	}
	if !ok {
		return nil, &m3u8.ParseError{URL: req.URL, Err: apperrors.ErrNoVariants}
	}

	return m.Submit(ctx, SubmitRequest{
		ContentID:    req.ContentID,
		Episode:      req.Episode,
		Title:        req.Title,
		EpisodeTitle: req.EpisodeTitle,
		MasterURL:    req.URL,
		Video:        video,
		Audio:        pickAudio(playlist, video, req.AudioLanguage),
		Referer:      req.Referer,
		Cookie:       req.Cookie,
	})
}

// pickAudio prefers the requested language, then the group's default.
func pickAudio(p *m3u8.VariantPlaylist, video m3u8.VideoVariant, language string) *m3u8.AudioVariant {
	if video.AudioGroupID == "" {
		return nil
	}
	group := p.AudioForGroup(video.AudioGroupID)
	if len(group) == 0 {
		return nil
	}
	if language != "" {
		for i := range group {
			if strings.EqualFold(group[i].Language, language) || strings.EqualFold(group[i].Name, language) {
				return &group[i]
			}
		}
	}
	for i := range group {
		if group[i].Default {
			return &group[i]
		}
	}
	return &group[0]
}

func (m *downloadManager) Pause(id string) error {
	task, err := m.repo.GetTask(id)
	if err != nil {
		return err
	}
	if !task.Status.CanPause() {
		return fmt.Errorf("%w: cannot pause a %s task", apperrors.ErrInvalidTransition, task.Status)
	}

	m.mu.Lock()
	ok, err := m.repo.TransitionTaskStatus(id, []entities.TaskStatus{entities.TaskQueued, entities.TaskDownloading}, entities.TaskPaused, nil)
	h := m.workers[id]
	m.mu.Unlock()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: task %s changed state", apperrors.ErrInvalidTransition, id)
	}

	if h != nil {
		h.cancel()
		<-h.done
	}
	m.log.Info("task paused", zap.String("task_id", id))
	m.emitStored(id)
	return nil
}

func (m *downloadManager) Resume(id string) error {
	task, err := m.repo.GetTask(id)
	if err != nil {
		return err
	}
	if !task.Status.CanResume() {
		return fmt.Errorf("%w: cannot resume a %s task", apperrors.ErrInvalidTransition, task.Status)
	}
	if task.Status == entities.TaskFailed {
		if err := m.repo.ResetRetries(id); err != nil {
			return err
		}
	}

	ok, err := m.repo.TransitionTaskStatus(id, []entities.TaskStatus{entities.TaskPaused, entities.TaskFailed}, entities.TaskQueued, nil)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: task %s changed state", apperrors.ErrInvalidTransition, id)
	}
	m.log.Info("task resumed", zap.String("task_id", id))
	m.emitStored(id)
	m.notify()
	return nil
}

// Cancel stops the task, removes its files and deletes its records.
func (m *downloadManager) Cancel(id string) error {
	task, err := m.repo.GetTask(id)
	if err != nil {
		return err
	}

	m.mu.Lock()
	_, err = m.repo.TransitionTaskStatus(id, []entities.TaskStatus{
		entities.TaskQueued, entities.TaskDownloading, entities.TaskPaused, entities.TaskFailed, entities.TaskCompleted,
	}, entities.TaskCancelled, nil)
	h := m.workers[id]
	m.mu.Unlock()
	if err != nil {
		return err
	}
	if h != nil {
		h.cancel()
		<-h.done
	}

	ev := eventFor(task, 0)
	ev.Status = entities.TaskCancelled
	m.emit(ev)

	err = multierr.Combine(
		m.storage.DeleteTaskDir(task.DestDir),
		m.repo.DeleteTask(id),
	)
	if err != nil {
		m.log.Error("task cancel cleanup failed", zap.String("task_id", id), zap.Error(err))
		return err
	}
	m.log.Info("task cancelled", zap.String("task_id", id))
	return nil
}

func (m *downloadManager) GetTask(id string) (*entities.DownloadTask, error) {
	return m.repo.GetTask(id)
}

func (m *downloadManager) ListTasks(statuses ...entities.TaskStatus) ([]entities.DownloadTask, error) {
	return m.repo.ListTasksByStatus(statuses...)
}

func (m *downloadManager) ListSegments(id string, filter entities.SegmentFilter) ([]entities.DownloadSegment, error) {
	if _, err := m.repo.GetTask(id); err != nil {
		return nil, err
	}
	return m.repo.ListSegments(id, filter)
}

func (m *downloadManager) GetSettings() (entities.DownloadSettings, error) {
	return m.repo.GetSettings()
}

// SaveSettings applies to workers started after the call.
func (m *downloadManager) SaveSettings(s entities.DownloadSettings) (entities.DownloadSettings, error) {
	saved, err := m.repo.SaveSettings(s)
	if err != nil {
		return saved, err
	}
	m.notify()
	return saved, nil
}

func (m *downloadManager) Subscribe(taskID string) (<-chan entities.ProgressEvent, func()) {
	return m.progress.Subscribe(taskID)
}

func (m *downloadManager) emit(ev entities.ProgressEvent) {
	m.progress.Publish(ev)
	for _, sink := range m.opts.Sinks {
		if err := sink.Publish(context.Background(), ev); err != nil {
			m.log.Warn("progress sink failed", zap.String("task_id", ev.TaskID), zap.Error(err))
		}
	}
}

// emitStored re-reads the task and broadcasts its current state.
func (m *downloadManager) emitStored(id string) {
	task, err := m.repo.GetTask(id)
	if err != nil {
		return
	}
	m.emit(eventFor(task, 0))
}

func eventFor(t *entities.DownloadTask, speed float64) entities.ProgressEvent {
	return entities.ProgressEvent{
		TaskID:             t.ID,
		Status:             t.Status,
		Progress:           t.Progress(),
		DownloadedSegments: t.DownloadedSegments,
		TotalSegments:      t.TotalSegments,
		DownloadedBytes:    t.DownloadedBytes,
		TotalBytes:         t.TotalBytes,
		Speed:              speed,
		Error:              t.Error(),
		Timestamp:          time.Now(),
	}
}
