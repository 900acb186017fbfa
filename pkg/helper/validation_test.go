package helper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateManifestURL(t *testing.T) {
	assert.NoError(t, ValidateManifestURL("https://cdn.example.com/master.m3u8"))
	assert.NoError(t, ValidateManifestURL("http://cdn.example.com/a/b.m3u8?token=1"))
	assert.Error(t, ValidateManifestURL("ftp://cdn.example.com/master.m3u8"))
	assert.Error(t, ValidateManifestURL("/relative/master.m3u8"))
	assert.Error(t, ValidateManifestURL("https:///nohost"))
	assert.Error(t, ValidateManifestURL("://bad"))
}

func TestBuildHeaders(t *testing.T) {
	h := BuildHeaders("agent/1.0", "https://site.example.com/watch/1", "sid=abc; theme=dark")

	assert.Equal(t, "agent/1.0", h.Get("User-Agent"))
	assert.Equal(t, "https://site.example.com/watch/1", h.Get("Referer"))
	assert.Equal(t, "https://site.example.com", h.Get("Origin"))
	assert.Equal(t, "sid=abc; theme=dark", h.Get("Cookie"))

	bare := BuildHeaders("agent/1.0", "", "")
	assert.Len(t, bare, 1)
}

func TestGetMimeTypeFromExtension(t *testing.T) {
	assert.Equal(t, "application/vnd.apple.mpegurl", GetMimeTypeFromExtension("master.m3u8"))
	assert.Equal(t, "video/mp2t", GetMimeTypeFromExtension("segments/segment_0.TS"))
	assert.Equal(t, "application/octet-stream", GetMimeTypeFromExtension("key.bin"))
}
