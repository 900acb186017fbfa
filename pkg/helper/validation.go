package helper

import (
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
)

func GetMimeTypeFromExtension(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".m3u8":
		return "application/vnd.apple.mpegurl"
	case ".ts":
		return "video/mp2t"
	case ".aac":
		return "audio/aac"
	case ".m4s", ".mp4":
		return "video/mp4"
	default:
		return "application/octet-stream"
	}
}

// ValidateManifestURL accepts absolute http(s) URLs only.
func ValidateManifestURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid url %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid url %q: missing host", raw)
	}
	return nil
}

// BuildHeaders returns the header set sent with every request of a task.
// Empty referer or cookie values are left out.
func BuildHeaders(userAgent, referer, cookie string) http.Header {
	h := make(http.Header)
	if userAgent != "" {
		h.Set("User-Agent", userAgent)
	}
	if referer != "" {
		h.Set("Referer", referer)
		if u, err := url.Parse(referer); err == nil && u.Scheme != "" && u.Host != "" {
			h.Set("Origin", u.Scheme+"://"+u.Host)
		}
	}
	if cookie != "" {
		h.Set("Cookie", cookie)
	}
	return h
}
