package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()

	m.SegmentFetched(1000)
	m.SegmentFetched(500)
	m.SegmentFailed()
	m.TaskStarted()
	m.TaskStarted()
	m.TaskFinished("completed")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.segmentsFetched))
	assert.Equal(t, float64(1500), testutil.ToFloat64(m.bytesDownloaded))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.segmentsFailed))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.activeTasks))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.taskOutcomes.WithLabelValues("completed")))
}

func TestHandler(t *testing.T) {
	m := New()
	m.SegmentFetched(10)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "hls_downloader_segments_fetched_total 1")
	assert.Contains(t, string(body), "hls_downloader_bytes_downloaded_total 10")
}
