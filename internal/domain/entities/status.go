package entities

import (
	"fmt"

	"hls-downloader/pkg/constants"
)

type TaskStatus string

const (
	TaskQueued      TaskStatus = constants.StatusQueued
	TaskDownloading TaskStatus = constants.StatusDownloading
	TaskCompleted   TaskStatus = constants.StatusCompleted
	TaskFailed      TaskStatus = constants.StatusFailed
	TaskPaused      TaskStatus = constants.StatusPaused
	TaskCancelled   TaskStatus = constants.StatusCancelled
)

var taskStatuses = []TaskStatus{TaskQueued, TaskDownloading, TaskCompleted, TaskFailed, TaskPaused, TaskCancelled}

func ParseTaskStatus(s string) (TaskStatus, error) {
	for _, st := range taskStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown task status %q", s)
}

// IsTerminal: no worker will touch the task again without a caller command.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskCompleted || s == TaskFailed || s == TaskCancelled
}

// CanPause / CanResume guard the caller-issued commands.
func (s TaskStatus) CanPause() bool {
	return s == TaskQueued || s == TaskDownloading
}

func (s TaskStatus) CanResume() bool {
	return s == TaskPaused || s == TaskFailed
}

type SegmentStatus string

const (
	SegmentPending     SegmentStatus = constants.StatusPending
	SegmentDownloading SegmentStatus = constants.StatusDownloading
	SegmentCompleted   SegmentStatus = constants.StatusCompleted
	SegmentFailed      SegmentStatus = constants.StatusFailed
)

func ParseSegmentStatus(s string) (SegmentStatus, error) {
	switch st := SegmentStatus(s); st {
	case SegmentPending, SegmentDownloading, SegmentCompleted, SegmentFailed:
		return st, nil
	}
	return "", fmt.Errorf("unknown segment status %q", s)
}

// SegmentFilter selects rows for ListSegments.
type SegmentFilter string

const (
	FilterAll             SegmentFilter = "all"
	FilterPending         SegmentFilter = "pending"
	FilterCompleted       SegmentFilter = "completed"
	FilterFailedRetryable SegmentFilter = "failed-retryable"
	// FilterWork is pending, downloading (left over from a crash) and
	// failed-retryable: everything a worker run still has to fetch.
	FilterWork SegmentFilter = "work"
)

func ParseSegmentFilter(s string) (SegmentFilter, error) {
	if s == "" {
		return FilterAll, nil
	}
	switch f := SegmentFilter(s); f {
	case FilterAll, FilterPending, FilterCompleted, FilterFailedRetryable, FilterWork:
		return f, nil
	}
	return "", fmt.Errorf("unknown segment filter %q", s)
}
