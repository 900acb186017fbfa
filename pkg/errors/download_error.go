package errors

import (
	"context"
	stderrors "errors"
	"fmt"

	"hls-downloader/pkg/m3u8"
)

var (
	// ErrCancelled marks a fetch aborted by pause or cancel. It is never
	// counted against a retry budget.
	ErrCancelled = stderrors.New("download cancelled")

	ErrRecordNotFound    = stderrors.New("record not found")
	ErrInvalidTransition = stderrors.New("invalid status transition")
	ErrLivePlaylist      = stderrors.New("media playlist has no #EXT-X-ENDLIST")
	ErrNetworkRestricted = stderrors.New("wifi-only is enabled and the active network is metered")
	ErrNoVariants        = stderrors.New("master playlist lists no variants")
	ErrEmptyPlaylist     = stderrors.New("media playlist lists no segments")
	ErrInsufficientSpace = stderrors.New("not enough free disk space")
	ErrTaskExists        = stderrors.New("a task already owns this destination")
)

// FetchError is a non-2xx HTTP answer.
type FetchError struct {
	StatusCode int
	URL        string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
}

// TransientError wraps timeouts, resets and short reads.
type TransientError struct {
	URL string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// StorageError is a local disk failure. Retried like a transient error.
type StorageError struct {
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// DownloadIncompleteError is raised when batches drained but some segments
// are still not completed.
type DownloadIncompleteError struct {
	Completed int
	Total     int
}

func (e *DownloadIncompleteError) Error() string {
	return fmt.Sprintf("download incomplete: %d of %d segments completed", e.Completed, e.Total)
}

// IsCancelled reports a pause/cancel outcome, including a bare context error.
func IsCancelled(err error) bool {
	return stderrors.Is(err, ErrCancelled) || stderrors.Is(err, context.Canceled)
}

// IsPermanent reports errors that fail a task without spending task retries.
func IsPermanent(err error) bool {
	var perr *m3u8.ParseError
	return stderrors.As(err, &perr) ||
		stderrors.Is(err, ErrLivePlaylist) ||
		stderrors.Is(err, ErrNoVariants) ||
		stderrors.Is(err, ErrEmptyPlaylist)
}

// IsRetryable reports errors the segment and task retry policies apply to.
func IsRetryable(err error) bool {
	if err == nil || IsCancelled(err) || IsPermanent(err) {
		return false
	}
	var (
		fe *FetchError
		te *TransientError
		se *StorageError
		de *DownloadIncompleteError
	)
	return stderrors.As(err, &fe) || stderrors.As(err, &te) ||
		stderrors.As(err, &se) || stderrors.As(err, &de)
}
