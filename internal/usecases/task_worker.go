package usecases

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"hls-downloader/internal/domain/entities"
	"hls-downloader/internal/infrastructure/queue"
	"hls-downloader/pkg/constants"
	apperrors "hls-downloader/pkg/errors"
	"hls-downloader/pkg/file"
	"hls-downloader/pkg/m3u8"
)

// taskRun is the state of one worker pass over a task.
type taskRun struct {
	task    *entities.DownloadTask
	headers http.Header
	total   int
	tracker *runTracker
	log     *zap.Logger

	progressMu sync.Mutex
}

// runTask drives one claimed task until it completes, fails, is requeued or
// gets interrupted by pause/cancel/shutdown.
func (m *downloadManager) runTask(ctx context.Context, task *entities.DownloadTask, settings entities.DownloadSettings) {
	run := &taskRun{
		task:    task,
		headers: m.headers(task.Referer, task.Cookie),
		tracker: newRunTracker(),
		log:     m.log.With(zap.String("task_id", task.ID)),
	}
	m.metrics.TaskStarted()
	run.log.Info("task worker started",
		zap.Int("max_parallel_segments", settings.MaxParallelSegments),
		zap.String("quality", task.Quality),
	)

	err := m.download(ctx, run, settings)
	status := m.settle(ctx, run, err)
	m.metrics.TaskFinished(status)
}

func (m *downloadManager) download(ctx context.Context, run *taskRun, settings entities.DownloadSettings) error {
	total, err := m.prepareSegments(ctx, run)
	if err != nil {
		return err
	}
	run.total = total

	work, err := m.repo.ListSegments(run.task.ID, entities.FilterWork)
	if err != nil {
		return err
	}
	run.log.Info("work list ready", zap.Int("segments", len(work)), zap.Int("total", total))
	m.reportProgress(run)

	before := func(ctx context.Context) error {
		if m.opts.Disk != nil {
			if err := m.opts.Disk.EnsureFree(ctx); err != nil {
				return err
			}
		}
		if settings.WifiOnly && !m.unmetered(ctx) {
			return apperrors.ErrNetworkRestricted
		}
		return nil
	}
	runner := queue.NewBatchRunner(settings.MaxParallelSegments)
	err = runner.Run(ctx, len(work), before, func(ctx context.Context, i int) error {
		return m.fetchSegment(ctx, run, &work[i])
	})
	if err != nil {
		return err
	}

	completed, bytes, err := m.repo.SegmentStats(run.task.ID)
	if err != nil {
		return err
	}
	if completed < total {
		return &apperrors.DownloadIncompleteError{Completed: completed, Total: total}
	}

	if err := m.assemble(ctx, run); err != nil {
		return err
	}
	if err := m.repo.UpdateTaskProgress(run.task.ID, completed, bytes, &total, &bytes); err != nil {
		return err
	}

	ok, err := m.repo.TransitionTaskStatus(run.task.ID, []entities.TaskStatus{entities.TaskDownloading}, entities.TaskCompleted, nil)
	if err != nil {
		return err
	}
	if !ok {
		// paused or cancelled while assembling; the caller's status wins
		return apperrors.ErrCancelled
	}
	run.log.Info("task completed", zap.Int("segments", completed), zap.Int64("bytes", bytes))
	m.emitRun(run, entities.TaskCompleted, "")
	return nil
}

// prepareSegments creates the segment rows on the first run and returns the
// task's segment total. The stored total always follows the row count.
func (m *downloadManager) prepareSegments(ctx context.Context, run *taskRun) (int, error) {
	task := run.task
	existing, err := m.repo.ListSegments(task.ID, entities.FilterAll)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		total := len(existing)
		if task.TotalSegments != total {
			//* segmentler yazılıp toplam yazılamadan kesilmiş bir koşu
			if err := m.repo.UpdateTaskProgress(task.ID, 0, 0, &total, nil); err != nil {
				return 0, err
			}
			task.TotalSegments = total
		}
		return total, nil
	}

	playlist, err := m.mediaPlaylist(ctx, run)
	if err != nil {
		return 0, err
	}

	specs := make([]entities.SegmentSpec, 0, len(playlist.Segments))
	for _, ref := range playlist.Segments {
		specs = append(specs, entities.SegmentSpec{
			Index:    ref.Index,
			URL:      ref.URL,
			FilePath: m.storage.SegmentPath(task.DestDir, ref.Index),
			Duration: ref.Duration,
			Key:      ref.Encryption,
		})
	}
	total, err := m.repo.CreateSegments(task.ID, specs)
	if err != nil {
		return 0, err
	}
	if playlist.Encrypted() {
		if err := m.repo.SetTaskEncrypted(task.ID, true); err != nil {
			return 0, err
		}
		run.log.Info("media playlist is encrypted, segments are stored as ciphertext")
	}
	task.TotalSegments = total
	return total, nil
}

// mediaPlaylist fetches the task's media playlist. When the stored URL turns
// out to be a master playlist, the variant matching the task's quality (or
// the best one) is followed.
func (m *downloadManager) mediaPlaylist(ctx context.Context, run *taskRun) (*m3u8.MediaPlaylist, error) {
	url := run.task.ManifestURL
	body, _, err := m.fetcher.FetchBytes(ctx, url, run.headers)
	if err != nil {
		return nil, err
	}
	text := string(body)

	if m3u8.IsMasterPlaylist(text) {
		master, err := m3u8.ParseVariantPlaylist(text, url)
		if err != nil {
			return nil, err
		}
		variant, ok := master.ByQuality(run.task.Quality)
		if !ok {
			variant, ok = master.Best()
		}
		if !ok {
			return nil, &m3u8.ParseError{URL: url, Err: apperrors.ErrNoVariants}
		}
		run.log.Info("manifest is a master playlist, following variant",
			zap.String("url", variant.URL), zap.String("quality", variant.Quality))

		url = variant.URL
		body, _, err = m.fetcher.FetchBytes(ctx, url, run.headers)
		if err != nil {
			return nil, err
		}
		text = string(body)
	}

	playlist, err := m3u8.ParseMediaPlaylist(text, url)
	if err != nil {
		return nil, err
	}
	if !playlist.EndList {
		return nil, &m3u8.ParseError{URL: url, Err: apperrors.ErrLivePlaylist}
	}
	if len(playlist.Segments) == 0 {
		return nil, &m3u8.ParseError{URL: url, Err: apperrors.ErrEmptyPlaylist}
	}
	return playlist, nil
}

// fetchSegment records a failed fetch on the segment row and returns nil;
// only a segment row that cannot be written ends the run.
func (m *downloadManager) fetchSegment(ctx context.Context, run *taskRun, seg *entities.DownloadSegment) error {
	log := run.log.With(zap.Int("segment_index", seg.Index))

	if err := m.repo.UpdateSegmentStatus(seg.ID, entities.SegmentDownloading, entities.SegmentUpdate{}); err != nil {
		log.Error("segment status could not be written", zap.Error(err))
		return err
	}

	n, err := m.fetcher.FetchToFile(ctx, seg.URL, run.headers, seg.FilePath)
	if err != nil {
		if apperrors.IsCancelled(err) {
			//* iptal edilen segment bir sonraki turda tekrar indirilir, hata sayılmaz
			if uerr := m.repo.UpdateSegmentStatus(seg.ID, entities.SegmentPending, entities.SegmentUpdate{}); uerr != nil {
				log.Error("segment could not be reset", zap.Error(uerr))
				return uerr
			}
			return nil
		}
		msg := err.Error()
		m.metrics.SegmentFailed()
		log.Warn("segment failed", zap.String("url", seg.URL), zap.Int("retry_count", seg.RetryCount+1), zap.Error(err))
		if uerr := m.repo.UpdateSegmentStatus(seg.ID, entities.SegmentFailed, entities.SegmentUpdate{ErrorMessage: &msg}); uerr != nil {
			log.Error("segment status could not be written", zap.Error(uerr))
			return uerr
		}
		return nil
	}

	if err := m.repo.UpdateSegmentStatus(seg.ID, entities.SegmentCompleted, entities.SegmentUpdate{
		DownloadedBytes: &n,
		FileSize:        &n,
	}); err != nil {
		log.Error("segment status could not be written", zap.Error(err))
		return err
	}
	m.metrics.SegmentFetched(n)
	run.tracker.add(n)
	m.reportProgress(run)
	return nil
}

// reportProgress recomputes the counters from the segment rows so retries
// never double count, stores them and broadcasts an event.
func (m *downloadManager) reportProgress(run *taskRun) {
	run.progressMu.Lock()
	defer run.progressMu.Unlock()

	completed, bytes, err := m.repo.SegmentStats(run.task.ID)
	if err != nil {
		run.log.Warn("segment stats could not be read", zap.Error(err))
		return
	}
	if err := m.repo.UpdateTaskProgress(run.task.ID, completed, bytes, nil, nil); err != nil {
		run.log.Warn("progress could not be stored", zap.Error(err))
	}
	run.task.DownloadedSegments = completed
	run.task.DownloadedBytes = bytes
	m.emitRun(run, entities.TaskDownloading, "")
}

func (m *downloadManager) emitRun(run *taskRun, status entities.TaskStatus, errMsg string) {
	t := run.task
	ev := eventFor(t, run.tracker.speed())
	ev.Status = status
	ev.Error = errMsg
	if run.total > 0 {
		ev.TotalSegments = run.total
		ev.Progress = float64(t.DownloadedSegments) / float64(run.total)
		if t.DownloadedSegments > 0 {
			// display-only estimate from the average completed segment size
			ev.TotalBytes = t.DownloadedBytes / int64(t.DownloadedSegments) * int64(run.total)
		}
	}
	if status == entities.TaskCompleted {
		ev.Progress = 1
		ev.TotalBytes = t.DownloadedBytes
	}
	m.emit(ev)
}

func (m *downloadManager) assemble(ctx context.Context, run *taskRun) error {
	segs, err := m.repo.ListSegments(run.task.ID, entities.FilterCompleted)
	if err != nil {
		return err
	}
	local := make([]m3u8.LocalSegment, 0, len(segs))
	for i := range segs {
		local = append(local, m3u8.LocalSegment{
			Path:       file.SegmentRelPath(segs[i].Index),
			Duration:   segs[i].Duration,
			Encryption: segs[i].Encryption(),
		})
	}

	path, err := m.storage.AssembleLocalManifest(run.task.DestDir, local)
	if err != nil {
		return &apperrors.StorageError{Path: run.task.DestDir, Err: err}
	}
	run.log.Info("local manifest written", zap.String("path", path))

	if m.opts.Publisher != nil {
		n, err := m.opts.Publisher.Publish(ctx, run.task.DestDir)
		if err != nil {
			// the local copy is complete either way
			run.log.Warn("artifact mirror failed", zap.Error(err))
		} else {
			run.log.Info("artifact mirrored", zap.Int("objects", n))
		}
	}
	return nil
}

// settle turns the worker outcome into the next task status and returns it
// for metrics. A run whose context was cancelled (pause, cancel, shutdown)
// is never charged a retry, whatever error it ended with.
func (m *downloadManager) settle(ctx context.Context, run *taskRun, err error) string {
	id := run.task.ID
	downloading := []entities.TaskStatus{entities.TaskDownloading}

	switch {
	case err == nil:
		return string(entities.TaskCompleted)

	case ctx.Err() != nil, apperrors.IsCancelled(err):
		run.log.Info("task worker interrupted")
		return "interrupted"

	case errors.Is(err, apperrors.ErrNetworkRestricted):
		msg := err.Error()
		if ok, terr := m.repo.TransitionTaskStatus(id, downloading, entities.TaskQueued, &msg); terr != nil {
			run.log.Error("task could not be requeued", zap.Error(terr))
		} else if ok {
			m.emitRun(run, entities.TaskQueued, msg)
		}
		run.log.Info("metered network, task requeued")
		return string(entities.TaskQueued)

	case apperrors.IsPermanent(err):
		return m.fail(run, err)
	}

	retries, ierr := m.repo.IncrementTaskRetry(id)
	if errors.Is(ierr, apperrors.ErrInvalidTransition) || errors.Is(ierr, apperrors.ErrRecordNotFound) {
		// görev bu arada duraklatıldı veya silindi; karar onların
		run.log.Info("task left downloading before its failure was settled", zap.Error(err))
		return "interrupted"
	}
	if ierr != nil {
		run.log.Error("task retry could not be counted", zap.Error(ierr))
		return m.fail(run, err)
	}
	if retries >= constants.MaxTaskRetries {
		return m.fail(run, err)
	}

	msg := err.Error()
	ok, terr := m.repo.TransitionTaskStatus(id, downloading, entities.TaskQueued, &msg)
	if terr != nil {
		run.log.Error("task could not be requeued", zap.Error(terr))
	} else if ok {
		m.emitRun(run, entities.TaskQueued, msg)
	}
	run.log.Warn("task attempt failed, requeued", zap.Int("retry_count", retries), zap.Error(err))
	return string(entities.TaskQueued)
}

func (m *downloadManager) fail(run *taskRun, err error) string {
	msg := err.Error()
	ok, terr := m.repo.TransitionTaskStatus(run.task.ID, []entities.TaskStatus{entities.TaskDownloading}, entities.TaskFailed, &msg)
	if terr != nil {
		run.log.Error("task could not be marked failed", zap.Error(terr))
	} else if ok {
		m.emitRun(run, entities.TaskFailed, msg)
	}
	run.log.Error("task failed", zap.Error(err))
	return string(entities.TaskFailed)
}
