package repositories

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hls-downloader/internal/domain/entities"
	"hls-downloader/internal/domain/repositories"
	"hls-downloader/internal/infrastructure/db"
	apperrors "hls-downloader/pkg/errors"
	"hls-downloader/pkg/m3u8"
)

func newTestRepo(t *testing.T) repositories.DownloadRepository {
	t.Helper()
	database, err := db.NewSQLiteDB(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(database))
	t.Cleanup(func() {
		if sqlDB, err := database.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewDownloadRepository(database)
}

func newTask(t *testing.T, repo repositories.DownloadRepository, title string) *entities.DownloadTask {
	t.Helper()
	task, err := repo.CreateTask(entities.TaskSpec{
		Title:       title,
		Episode:     1,
		ManifestURL: "https://cdn.example.com/" + title + "/index.m3u8",
		Quality:     "720p",
		DestDir:     "/tmp/" + title,
		Referer:     "https://site.example.com/",
		Cookie:      "sid=1",
	})
	require.NoError(t, err)
	return task
}

func segmentSpecs(n int) []entities.SegmentSpec {
	specs := make([]entities.SegmentSpec, n)
	for i := range specs {
		specs[i] = entities.SegmentSpec{
			Index:    i,
			URL:      "https://cdn.example.com/seg.ts",
			FilePath: filepath.Join("/tmp", "seg"),
			Duration: 6,
		}
	}
	return specs
}

func strPtr(s string) *string { return &s }

func TestCreateAndGetTask(t *testing.T) {
	repo := newTestRepo(t)
	task := newTask(t, repo, "show")

	assert.NotEmpty(t, task.ID)
	assert.Equal(t, entities.TaskQueued, task.Status)

	got, err := repo.GetTask(task.ID)
	require.NoError(t, err)
	assert.Equal(t, "sid=1", got.Cookie)
	assert.Equal(t, "https://site.example.com/", got.Referer)
	assert.Nil(t, got.StartedAt)

	_, err = repo.GetTask("missing")
	assert.True(t, errors.Is(err, apperrors.ErrRecordNotFound))
}

func TestCreateTaskBootstrapsSettingsOnce(t *testing.T) {
	repo := newTestRepo(t)
	newTask(t, repo, "a")
	newTask(t, repo, "b")

	s, err := repo.GetSettings()
	require.NoError(t, err)
	assert.Equal(t, entities.DefaultSettings().MaxParallelDownloads, s.MaxParallelDownloads)
	assert.True(t, s.AutoResume)
}

func TestUpdateTaskStatusTimestamps(t *testing.T) {
	repo := newTestRepo(t)
	task := newTask(t, repo, "show")

	require.NoError(t, repo.UpdateTaskStatus(task.ID, entities.TaskDownloading, nil))
	first, err := repo.GetTask(task.ID)
	require.NoError(t, err)
	require.NotNil(t, first.StartedAt)

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, repo.UpdateTaskStatus(task.ID, entities.TaskDownloading, nil))
	second, err := repo.GetTask(task.ID)
	require.NoError(t, err)
	assert.True(t, first.StartedAt.Equal(*second.StartedAt), "started_at must not be overwritten")

	require.NoError(t, repo.UpdateTaskStatus(task.ID, entities.TaskPaused, nil))
	paused, _ := repo.GetTask(task.ID)
	assert.NotNil(t, paused.PausedAt)

	require.NoError(t, repo.UpdateTaskStatus(task.ID, entities.TaskQueued, strPtr("segment 3 failed")))
	queued, _ := repo.GetTask(task.ID)
	assert.Equal(t, "segment 3 failed", queued.Error())

	require.NoError(t, repo.UpdateTaskStatus(task.ID, entities.TaskCompleted, nil))
	done, _ := repo.GetTask(task.ID)
	assert.NotNil(t, done.CompletedAt)
	assert.Nil(t, done.ErrorMessage)

	err = repo.UpdateTaskStatus("missing", entities.TaskPaused, nil)
	assert.True(t, errors.Is(err, apperrors.ErrRecordNotFound))
}

func TestTransitionTaskStatus(t *testing.T) {
	repo := newTestRepo(t)
	task := newTask(t, repo, "show")

	ok, err := repo.TransitionTaskStatus(task.ID, []entities.TaskStatus{entities.TaskPaused}, entities.TaskQueued, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.TransitionTaskStatus(task.ID, []entities.TaskStatus{entities.TaskQueued}, entities.TaskDownloading, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	got, _ := repo.GetTask(task.ID)
	assert.Equal(t, entities.TaskDownloading, got.Status)
	assert.NotNil(t, got.StartedAt)
}

func TestListTasksByStatusOrdering(t *testing.T) {
	repo := newTestRepo(t)
	a := newTask(t, repo, "a")
	time.Sleep(5 * time.Millisecond)
	b := newTask(t, repo, "b")
	time.Sleep(5 * time.Millisecond)
	c := newTask(t, repo, "c")

	queued, err := repo.ListTasksByStatus(entities.TaskQueued)
	require.NoError(t, err)
	require.Len(t, queued, 3)
	assert.Equal(t, []string{a.ID, b.ID, c.ID}, []string{queued[0].ID, queued[1].ID, queued[2].ID})

	require.NoError(t, repo.UpdateTaskStatus(a.ID, entities.TaskCompleted, nil))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, repo.UpdateTaskStatus(b.ID, entities.TaskCompleted, nil))

	completed, err := repo.ListTasksByStatus(entities.TaskCompleted)
	require.NoError(t, err)
	require.Len(t, completed, 2)
	assert.Equal(t, b.ID, completed[0].ID)
	assert.Equal(t, a.ID, completed[1].ID)

	all, err := repo.ListTasksByStatus()
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestUpdateTaskProgressIsMonotonic(t *testing.T) {
	repo := newTestRepo(t)
	task := newTask(t, repo, "show")

	total := 10
	require.NoError(t, repo.UpdateTaskProgress(task.ID, 3, 3000, &total, nil))
	require.NoError(t, repo.UpdateTaskProgress(task.ID, 2, 2000, nil, nil))

	got, _ := repo.GetTask(task.ID)
	assert.Equal(t, 3, got.DownloadedSegments)
	assert.Equal(t, int64(3000), got.DownloadedBytes)
	assert.Equal(t, 10, got.TotalSegments)

	require.NoError(t, repo.UpdateTaskProgress(task.ID, 5, 5000, nil, nil))
	got, _ = repo.GetTask(task.ID)
	assert.Equal(t, 5, got.DownloadedSegments)
}

func TestCreateSegmentsIsIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	task := newTask(t, repo, "show")

	n, err := repo.CreateSegments(task.ID, segmentSpecs(5))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = repo.CreateSegments(task.ID, segmentSpecs(5))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	segs, err := repo.ListSegments(task.ID, entities.FilterAll)
	require.NoError(t, err)
	require.Len(t, segs, 5)
	for i, s := range segs {
		assert.Equal(t, i, s.Index)
		assert.Equal(t, entities.SegmentPending, s.Status)
	}
}

func TestCreateSegmentsKeepsKeys(t *testing.T) {
	repo := newTestRepo(t)
	task := newTask(t, repo, "show")

	specs := segmentSpecs(2)
	specs[1].Key = &m3u8.Encryption{Method: "AES-128", KeyURL: "https://k/1", IV: "0x1"}
	_, err := repo.CreateSegments(task.ID, specs)
	require.NoError(t, err)

	segs, _ := repo.ListSegments(task.ID, entities.FilterAll)
	assert.Nil(t, segs[0].Encryption())
	require.NotNil(t, segs[1].Encryption())
	assert.Equal(t, "https://k/1", segs[1].Encryption().KeyURL)
}

func TestSegmentRetryCeiling(t *testing.T) {
	repo := newTestRepo(t)
	task := newTask(t, repo, "show")
	_, err := repo.CreateSegments(task.ID, segmentSpecs(1))
	require.NoError(t, err)

	segs, _ := repo.ListSegments(task.ID, entities.FilterAll)
	id := segs[0].ID

	for attempt := 1; attempt <= 3; attempt++ {
		require.NoError(t, repo.UpdateSegmentStatus(id, entities.SegmentDownloading, entities.SegmentUpdate{}))
		require.NoError(t, repo.UpdateSegmentStatus(id, entities.SegmentFailed, entities.SegmentUpdate{ErrorMessage: strPtr("503")}))

		retryable, err := repo.ListSegments(task.ID, entities.FilterFailedRetryable)
		require.NoError(t, err)
		if attempt < 3 {
			assert.Len(t, retryable, 1, "attempt %d", attempt)
		} else {
			assert.Empty(t, retryable, "attempt %d", attempt)
		}
	}

	segs, _ = repo.ListSegments(task.ID, entities.FilterAll)
	assert.Equal(t, 3, segs[0].RetryCount)
	assert.Equal(t, entities.SegmentFailed, segs[0].Status)

	work, _ := repo.ListSegments(task.ID, entities.FilterWork)
	assert.Empty(t, work)

	require.NoError(t, repo.ResetRetries(task.ID))
	work, _ = repo.ListSegments(task.ID, entities.FilterWork)
	require.Len(t, work, 1)
	assert.Zero(t, work[0].RetryCount)
	assert.Equal(t, entities.SegmentPending, work[0].Status)
}

func TestWorkFilterAndStats(t *testing.T) {
	repo := newTestRepo(t)
	task := newTask(t, repo, "show")
	_, err := repo.CreateSegments(task.ID, segmentSpecs(4))
	require.NoError(t, err)
	segs, _ := repo.ListSegments(task.ID, entities.FilterAll)

	size := int64(1000)
	require.NoError(t, repo.UpdateSegmentStatus(segs[0].ID, entities.SegmentCompleted, entities.SegmentUpdate{FileSize: &size, DownloadedBytes: &size}))
	require.NoError(t, repo.UpdateSegmentStatus(segs[1].ID, entities.SegmentDownloading, entities.SegmentUpdate{}))
	require.NoError(t, repo.UpdateSegmentStatus(segs[2].ID, entities.SegmentFailed, entities.SegmentUpdate{}))

	work, err := repo.ListSegments(task.ID, entities.FilterWork)
	require.NoError(t, err)
	require.Len(t, work, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{work[0].Index, work[1].Index, work[2].Index})

	pending, _ := repo.ListSegments(task.ID, entities.FilterPending)
	assert.Len(t, pending, 1)

	completed, bytes, err := repo.SegmentStats(task.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, completed)
	assert.Equal(t, int64(1000), bytes)

	n, err := repo.CountSegmentsByStatus(task.ID, entities.SegmentFailed)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = repo.ListSegments(task.ID, entities.SegmentFilter("bogus"))
	assert.Error(t, err)
}

func TestIncrementTaskRetry(t *testing.T) {
	repo := newTestRepo(t)
	task := newTask(t, repo, "show")
	require.NoError(t, repo.UpdateTaskStatus(task.ID, entities.TaskDownloading, nil))

	n, err := repo.IncrementTaskRetry(task.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = repo.IncrementTaskRetry(task.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = repo.IncrementTaskRetry("missing")
	assert.True(t, errors.Is(err, apperrors.ErrRecordNotFound))
}

func TestIncrementTaskRetrySkipsTaskThatLeftDownloading(t *testing.T) {
	repo := newTestRepo(t)
	task := newTask(t, repo, "show")
	require.NoError(t, repo.UpdateTaskStatus(task.ID, entities.TaskDownloading, nil))
	ok, err := repo.TransitionTaskStatus(task.ID, []entities.TaskStatus{entities.TaskDownloading}, entities.TaskPaused, nil)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = repo.IncrementTaskRetry(task.ID)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidTransition))

	got, err := repo.GetTask(task.ID)
	require.NoError(t, err)
	assert.Zero(t, got.RetryCount, "a paused task is not charged")
	assert.Equal(t, entities.TaskPaused, got.Status)
}

func TestCreateSegmentsStoresTotal(t *testing.T) {
	repo := newTestRepo(t)
	task := newTask(t, repo, "show")

	_, err := repo.CreateSegments(task.ID, segmentSpecs(4))
	require.NoError(t, err)
	got, err := repo.GetTask(task.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.TotalSegments)

	// rows written, total lost before the run ended
	zero := 0
	require.NoError(t, repo.UpdateTaskProgress(task.ID, 0, 0, &zero, nil))

	n, err := repo.CreateSegments(task.ID, segmentSpecs(4))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	got, err = repo.GetTask(task.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.TotalSegments)
}

func TestCreateTaskRejectsSharedDestination(t *testing.T) {
	repo := newTestRepo(t)
	first := newTask(t, repo, "show")

	_, err := repo.CreateTask(entities.TaskSpec{
		Title:       "show again",
		ManifestURL: "https://cdn.example.com/other/index.m3u8",
		DestDir:     first.DestDir,
	})
	assert.True(t, errors.Is(err, apperrors.ErrTaskExists))
	assert.Contains(t, err.Error(), first.ID)

	tasks, err := repo.ListTasksByStatus()
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

func TestDeleteTaskCascades(t *testing.T) {
	repo := newTestRepo(t)
	task := newTask(t, repo, "show")
	other := newTask(t, repo, "other")
	_, err := repo.CreateSegments(task.ID, segmentSpecs(3))
	require.NoError(t, err)
	_, err = repo.CreateSegments(other.ID, segmentSpecs(2))
	require.NoError(t, err)

	require.NoError(t, repo.DeleteTask(task.ID))

	_, err = repo.GetTask(task.ID)
	assert.True(t, errors.Is(err, apperrors.ErrRecordNotFound))
	segs, _ := repo.ListSegments(task.ID, entities.FilterAll)
	assert.Empty(t, segs)
	segs, _ = repo.ListSegments(other.ID, entities.FilterAll)
	assert.Len(t, segs, 2)

	assert.True(t, errors.Is(repo.DeleteTask(task.ID), apperrors.ErrRecordNotFound))
}

func TestSaveSettingsClamps(t *testing.T) {
	repo := newTestRepo(t)

	saved, err := repo.SaveSettings(entities.DownloadSettings{MaxParallelDownloads: 50, MaxParallelSegments: 0, WifiOnly: true})
	require.NoError(t, err)
	assert.Equal(t, 10, saved.MaxParallelDownloads)
	assert.Equal(t, 1, saved.MaxParallelSegments)

	got, err := repo.GetSettings()
	require.NoError(t, err)
	assert.Equal(t, 10, got.MaxParallelDownloads)
	assert.True(t, got.WifiOnly)
	assert.False(t, got.AutoResume)
}
