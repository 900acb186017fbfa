package entities

import "time"

// ProgressEvent is one broadcast on a task's progress stream.
type ProgressEvent struct {
	TaskID             string     `json:"task_id"`
	Status             TaskStatus `json:"status"`
	Progress           float64    `json:"progress"`
	DownloadedSegments int        `json:"downloaded_segments"`
	TotalSegments      int        `json:"total_segments"`
	DownloadedBytes    int64      `json:"downloaded_bytes"`
	TotalBytes         int64      `json:"total_bytes"`
	Speed              float64    `json:"speed"` // bytes/sec averaged since the worker started
	Error              string     `json:"error,omitempty"`
	Timestamp          time.Time  `json:"timestamp"`
}

// Terminal reports whether no more events will follow for this worker run.
func (e ProgressEvent) Terminal() bool {
	return e.Status != TaskDownloading && e.Status != TaskQueued
}
