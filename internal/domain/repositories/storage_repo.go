package repositories

import (
	"context"
	"time"

	"hls-downloader/pkg/m3u8"
)

// ArtifactStorage owns the on-disk layout:
// {root}/{sanitizedTitle}/Episode_{n}/master.m3u8 and .../segments/segment_{i}.ts
type ArtifactStorage interface {
	TaskDir(title string, episode int) string
	SegmentPath(taskDir string, index int) string
	// AssembleLocalManifest writes master.m3u8 into destDir and returns its path.
	AssembleLocalManifest(destDir string, segments []m3u8.LocalSegment) (string, error)
	DeleteTaskDir(destDir string) error
	SweepPartials(olderThan time.Duration) (int, error)
}

// ArtifactPublisher copies a finished artifact somewhere else.
type ArtifactPublisher interface {
	Publish(ctx context.Context, destDir string) (int, error)
}
