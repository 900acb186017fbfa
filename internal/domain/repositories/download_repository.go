package repositories

import "hls-downloader/internal/domain/entities"

// DownloadRepository is the single source of truth for tasks and segments.
// Every method is atomic for the row it touches.
type DownloadRepository interface {
	CreateTask(spec entities.TaskSpec) (*entities.DownloadTask, error)
	GetTask(id string) (*entities.DownloadTask, error)
	// ListTasksByStatus orders by created_at ascending, except a pure
	// completed listing which is newest completion first.
	ListTasksByStatus(statuses ...entities.TaskStatus) ([]entities.DownloadTask, error)
	UpdateTaskStatus(id string, status entities.TaskStatus, errMsg *string) error
	// TransitionTaskStatus applies status only if the row is currently in one
	// of from. It reports whether the row changed.
	TransitionTaskStatus(id string, from []entities.TaskStatus, to entities.TaskStatus, errMsg *string) (bool, error)
	UpdateTaskProgress(id string, downloadedSegments int, downloadedBytes int64, totalSegments *int, totalBytes *int64) error
	SetTaskEncrypted(id string, encrypted bool) error
	IncrementTaskRetry(id string) (int, error)
	// ResetRetries zeroes the task retry budget and moves failed segments
	// back to pending with a fresh budget.
	ResetRetries(id string) error
	DeleteTask(id string) error

	CreateSegments(taskID string, specs []entities.SegmentSpec) (int, error)
	ListSegments(taskID string, filter entities.SegmentFilter) ([]entities.DownloadSegment, error)
	UpdateSegmentStatus(id uint, status entities.SegmentStatus, upd entities.SegmentUpdate) error
	CountSegmentsByStatus(taskID string, status entities.SegmentStatus) (int, error)
	// SegmentStats returns completed segment count and their byte total.
	SegmentStats(taskID string) (completed int, bytes int64, err error)

	GetSettings() (entities.DownloadSettings, error)
	SaveSettings(s entities.DownloadSettings) (entities.DownloadSettings, error)
}
