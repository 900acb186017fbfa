package usecases

import (
	"context"
	"time"

	"hls-downloader/internal/domain/entities"
	"hls-downloader/internal/domain/repositories"
)

// NetworkChecker backs the wifi-only setting.
type NetworkChecker interface {
	IsUnmetered(ctx context.Context) (bool, error)
}

// DiskChecker is consulted before every segment batch.
type DiskChecker interface {
	EnsureFree(ctx context.Context) error
}

// ProgressSink receives a copy of every progress event, e.g. a redis channel.
type ProgressSink interface {
	Publish(ctx context.Context, ev entities.ProgressEvent) error
}

type Metrics interface {
	SegmentFetched(bytes int64)
	SegmentFailed()
	TaskStarted()
	TaskFinished(status string)
}

type nopMetrics struct{}

func (nopMetrics) SegmentFetched(int64) {}
func (nopMetrics) SegmentFailed()       {}
func (nopMetrics) TaskStarted()         {}
func (nopMetrics) TaskFinished(string)  {}

// ManagerOptions are the optional collaborators of the download manager.
// Nil hooks are skipped.
type ManagerOptions struct {
	UserAgent    string
	PollInterval time.Duration

	Network   NetworkChecker
	Disk      DiskChecker
	Publisher repositories.ArtifactPublisher
	Sinks     []ProgressSink
	Metrics   Metrics
}
