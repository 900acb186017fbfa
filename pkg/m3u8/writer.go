package m3u8

import (
	"math"
	"strconv"
	"strings"
)

// DefaultSegmentDuration is written for segments whose duration was not
// recorded.
const DefaultSegmentDuration = 10.0

// LocalSegment is one entry of a playlist written for offline playback.
type LocalSegment struct {
	Path       string // relative to the playlist file
	Duration   float64
	Encryption *Encryption
}

// EncodeMediaPlaylist renders a VOD media playlist: version 3 header, one
// #EXTINF + path pair per segment in the given order and a closing
// #EXT-X-ENDLIST. A #EXT-X-KEY line is emitted whenever the key changes.
func EncodeMediaPlaylist(segments []LocalSegment) string {
	var b strings.Builder

	target := 1
	for _, s := range segments {
		if d := int(math.Ceil(effectiveDuration(s.Duration))); d > target {
			target = d
		}
	}

	b.WriteString("#EXTM3U\n")
	b.WriteString("#EXT-X-VERSION:3\n")
	b.WriteString("#EXT-X-TARGETDURATION:" + strconv.Itoa(target) + "\n")
	b.WriteString("#EXT-X-MEDIA-SEQUENCE:0\n")
	b.WriteString("#EXT-X-PLAYLIST-TYPE:VOD\n")

	var current *Encryption
	for _, s := range segments {
		if !sameKey(current, s.Encryption) {
			b.WriteString(keyLine(s.Encryption))
			current = s.Encryption
		}
		b.WriteString("#EXTINF:" + FormatDuration(s.Duration) + ",\n")
		b.WriteString(s.Path + "\n")
	}

	b.WriteString("#EXT-X-ENDLIST\n")
	return b.String()
}

// FormatDuration always keeps one decimal place: 6 -> "6.0", 6.006 -> "6.006".
// Unknown durations fall back to DefaultSegmentDuration.
func FormatDuration(d float64) string {
	s := strconv.FormatFloat(effectiveDuration(d), 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func effectiveDuration(d float64) float64 {
	if d <= 0 || math.IsNaN(d) || math.IsInf(d, 0) {
		return DefaultSegmentDuration
	}
	return d
}

func sameKey(a, b *Encryption) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func keyLine(enc *Encryption) string {
	if enc == nil {
		return "#EXT-X-KEY:METHOD=NONE\n"
	}
	line := "#EXT-X-KEY:METHOD=" + enc.Method
	if enc.KeyURL != "" {
		line += `,URI="` + enc.KeyURL + `"`
	}
	if enc.IV != "" {
		line += ",IV=" + enc.IV
	}
	return line + "\n"
}
