package repositories

import (
	"context"
	"net/http"
)

// Fetcher retrieves remote playlists and segments. Implementations send the
// given headers unchanged.
type Fetcher interface {
	// FetchBytes is for small payloads such as playlists.
	FetchBytes(ctx context.Context, url string, headers http.Header) ([]byte, int, error)
	// FetchToFile streams the body to dest and returns the bytes written.
	FetchToFile(ctx context.Context, url string, headers http.Header, dest string) (int64, error)
}
