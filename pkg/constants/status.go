package constants

// Persisted status strings. The typed enums in internal/domain/entities wrap
// these; the raw strings only cross the database and JSON boundaries.
const (
	StatusQueued      = "queued"
	StatusDownloading = "downloading"
	StatusCompleted   = "completed"
	StatusFailed      = "failed"
	StatusPaused      = "paused"
	StatusCancelled   = "cancelled"
	StatusPending     = "pending"
	StatusOK          = "ok"
)
