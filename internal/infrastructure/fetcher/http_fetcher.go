package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"hls-downloader/internal/domain/repositories"
	"hls-downloader/internal/pkg/fileutils"
	"hls-downloader/pkg/constants"
	apperrors "hls-downloader/pkg/errors"
)

const defaultMaxPlaylistBytes = 8 << 20 // 8MB

type Options struct {
	// ResponseHeaderTimeout bounds the wait for the first response byte.
	// Body transfer is bounded by the caller's context only.
	ResponseHeaderTimeout time.Duration
	RequestsPerSecond     float64 // 0 = unlimited
	MaxPlaylistBytes      int64
	Transport             http.RoundTripper
}

type HTTPFetcher struct {
	client           *http.Client
	limiter          *rate.Limiter
	maxPlaylistBytes int64
	log              *zap.Logger
}

var _ repositories.Fetcher = (*HTTPFetcher)(nil)

func NewHTTPFetcher(opts Options, log *zap.Logger) *HTTPFetcher {
	base := opts.Transport
	if base == nil {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.MaxIdleConnsPerHost = constants.MaxParallelDownloadsLimit * constants.MaxParallelSegmentsLimit
		if opts.ResponseHeaderTimeout > 0 {
			t.ResponseHeaderTimeout = opts.ResponseHeaderTimeout
		}
		base = t
	}

	f := &HTTPFetcher{
		client:           &http.Client{Transport: otelhttp.NewTransport(base)},
		maxPlaylistBytes: opts.MaxPlaylistBytes,
		log:              log,
	}
	if f.maxPlaylistBytes <= 0 {
		f.maxPlaylistBytes = defaultMaxPlaylistBytes
	}
	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		f.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}
	return f
}

func (f *HTTPFetcher) FetchBytes(ctx context.Context, url string, headers http.Header) ([]byte, int, error) {
	resp, err := f.get(ctx, url, headers)
	if err != nil {
		var fe *apperrors.FetchError
		if errors.As(err, &fe) {
			return nil, fe.StatusCode, err
		}
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxPlaylistBytes+1))
	if err != nil {
		return nil, resp.StatusCode, f.classify(ctx, url, err)
	}
	if int64(len(body)) > f.maxPlaylistBytes {
		return nil, resp.StatusCode, fmt.Errorf("fetch %s: body exceeds %d bytes", url, f.maxPlaylistBytes)
	}
	return body, resp.StatusCode, nil
}

// FetchToFile writes to dest+".part" and renames it only when the whole body
// arrived (matching Content-Length when the server sent one).
func (f *HTTPFetcher) FetchToFile(ctx context.Context, url string, headers http.Header, dest string) (int64, error) {
	resp, err := f.get(ctx, url, headers)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return 0, &apperrors.StorageError{Path: filepath.Dir(dest), Err: err}
	}

	part := dest + constants.PartSuffix
	out, err := os.Create(part)
	if err != nil {
		return 0, &apperrors.StorageError{Path: part, Err: err}
	}

	n, copyErr := io.Copy(out, resp.Body)
	closeErr := out.Close()

	if copyErr != nil {
		os.Remove(part)
		var pathErr *fs.PathError
		if errors.As(copyErr, &pathErr) {
			return 0, &apperrors.StorageError{Path: part, Err: copyErr}
		}
		return 0, f.classify(ctx, url, copyErr)
	}
	if closeErr != nil {
		os.Remove(part)
		return 0, &apperrors.StorageError{Path: part, Err: closeErr}
	}
	if resp.ContentLength >= 0 && n != resp.ContentLength {
		os.Remove(part)
		return 0, &apperrors.TransientError{
			URL: url,
			Err: fmt.Errorf("short body, got %d of %d bytes: %w", n, resp.ContentLength, io.ErrUnexpectedEOF),
		}
	}

	if err := fileutils.MoveFile(part, dest); err != nil {
		os.Remove(part)
		return 0, &apperrors.StorageError{Path: dest, Err: err}
	}
	return n, nil
}

func (f *HTTPFetcher) get(ctx context.Context, url string, headers http.Header) (*http.Response, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, f.classify(ctx, url, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request %s: %w", url, err)
	}
	if headers != nil {
		req.Header = headers.Clone()
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, f.classify(ctx, url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		resp.Body.Close()
		f.log.Debug("non-2xx response", zap.String("url", url), zap.Int("status", resp.StatusCode))
		return nil, &apperrors.FetchError{StatusCode: resp.StatusCode, URL: url}
	}
	return resp, nil
}

// classify maps a transport error: caller cancellation is ErrCancelled,
// everything else (timeouts included) is transient.
func (f *HTTPFetcher) classify(ctx context.Context, url string, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("fetch %s: %w", url, apperrors.ErrCancelled)
	}
	return &apperrors.TransientError{URL: url, Err: err}
}
