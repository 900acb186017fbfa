package m3u8

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "6.0", FormatDuration(6))
	assert.Equal(t, "6.006", FormatDuration(6.006))
	assert.Equal(t, "10.0", FormatDuration(0))
	assert.Equal(t, "10.0", FormatDuration(-1))
}

func TestEncodeMediaPlaylist(t *testing.T) {
	out := EncodeMediaPlaylist([]LocalSegment{
		{Path: "segments/segment_0.ts", Duration: 6},
		{Path: "segments/segment_1.ts", Duration: 6},
		{Path: "segments/segment_2.ts", Duration: 6},
	})

	want := "#EXTM3U\n" +
		"#EXT-X-VERSION:3\n" +
		"#EXT-X-TARGETDURATION:6\n" +
		"#EXT-X-MEDIA-SEQUENCE:0\n" +
		"#EXT-X-PLAYLIST-TYPE:VOD\n" +
		"#EXTINF:6.0,\nsegments/segment_0.ts\n" +
		"#EXTINF:6.0,\nsegments/segment_1.ts\n" +
		"#EXTINF:6.0,\nsegments/segment_2.ts\n" +
		"#EXT-X-ENDLIST\n"
	assert.Equal(t, want, out)
	assert.Equal(t, 3, strings.Count(out, "#EXTINF:6.0,"))
}

func TestEncodeMediaPlaylistRoundTrip(t *testing.T) {
	key := &Encryption{Method: "AES-128", KeyURL: "https://keys.example.com/k.bin", IV: "0x01"}
	out := EncodeMediaPlaylist([]LocalSegment{
		{Path: "segments/segment_0.ts", Duration: 4.2},
		{Path: "segments/segment_1.ts", Duration: 6, Encryption: key},
		{Path: "segments/segment_2.ts", Duration: 6, Encryption: key},
		{Path: "segments/segment_3.ts"},
	})

	assert.Equal(t, 1, strings.Count(out, "METHOD=AES-128"))
	assert.Contains(t, out, "#EXT-X-KEY:METHOD=NONE\n")
	assert.Contains(t, out, "#EXT-X-TARGETDURATION:10\n")

	p, err := ParseMediaPlaylist(out, "https://cdn.example.com/local/")
	require.NoError(t, err)
	require.Len(t, p.Segments, 4)
	assert.True(t, p.EndList)
	assert.Nil(t, p.Segments[0].Encryption)
	require.NotNil(t, p.Segments[2].Encryption)
	assert.Equal(t, *key, *p.Segments[2].Encryption)
	assert.Nil(t, p.Segments[3].Encryption)
	assert.InDelta(t, 10.0, p.Segments[3].Duration, 1e-9)
}

func TestEncodeMediaPlaylistEmpty(t *testing.T) {
	out := EncodeMediaPlaylist(nil)
	assert.True(t, strings.HasPrefix(out, "#EXTM3U\n#EXT-X-VERSION:3\n"))
	assert.True(t, strings.HasSuffix(out, "#EXT-X-ENDLIST\n"))
}
