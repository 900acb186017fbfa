// Package m3u8 decodes HLS master and media playlists and encodes the
// local media playlist written next to downloaded segments. It does no I/O.
package m3u8

import (
	"errors"
	"fmt"
)

// ErrInvalidManifest is returned (wrapped in a *ParseError) when the text
// does not start with the #EXTM3U tag.
var ErrInvalidManifest = errors.New("invalid manifest: missing #EXTM3U header")

// ParseError is the only fatal parser outcome.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("parse manifest: %v", e.Err)
	}
	return fmt.Sprintf("parse manifest %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// VideoVariant is one #EXT-X-STREAM-INF entry of a master playlist.
type VideoVariant struct {
	URL          string `json:"url"`
	Resolution   string `json:"resolution,omitempty"` // "1920x1080", empty when absent
	Quality      string `json:"quality"`              // "1080p" or "Auto"
	Bandwidth    int64  `json:"bandwidth,omitempty"`  // bits/sec, 0 when absent or malformed
	Codecs       string `json:"codecs,omitempty"`
	AudioGroupID string `json:"audio_group_id,omitempty"`
}

// AudioVariant is one #EXT-X-MEDIA:TYPE=AUDIO entry of a master playlist.
type AudioVariant struct {
	GroupID  string `json:"group_id"`
	Name     string `json:"name,omitempty"`
	Language string `json:"language,omitempty"`
	URL      string `json:"url,omitempty"` // empty when the rendition is muxed into the video
	Default  bool   `json:"default"`
}

// VariantPlaylist is a parsed master playlist.
type VariantPlaylist struct {
	URL    string         `json:"url"`
	Videos []VideoVariant `json:"videos"`
	Audios []AudioVariant `json:"audios"`
}

// AudioForGroup returns the audio renditions of a group. No match is valid:
// the stream is muxed or has no alternate audio.
func (p *VariantPlaylist) AudioForGroup(groupID string) []AudioVariant {
	if groupID == "" {
		return nil
	}
	var out []AudioVariant
	for _, a := range p.Audios {
		if a.GroupID == groupID {
			out = append(out, a)
		}
	}
	return out
}

// Best returns the variant with the highest bandwidth.
func (p *VariantPlaylist) Best() (VideoVariant, bool) {
	if len(p.Videos) == 0 {
		return VideoVariant{}, false
	}
	best := p.Videos[0]
	for _, v := range p.Videos[1:] {
		if v.Bandwidth > best.Bandwidth {
			best = v
		}
	}
	return best, true
}

// ByQuality returns the first variant with the given label, e.g. "720p".
// When several variants share a label the one with the highest bandwidth wins.
func (p *VariantPlaylist) ByQuality(label string) (VideoVariant, bool) {
	var (
		found VideoVariant
		ok    bool
	)
	for _, v := range p.Videos {
		if v.Quality != label {
			continue
		}
		if !ok || v.Bandwidth > found.Bandwidth {
			found, ok = v, true
		}
	}
	return found, ok
}

// Encryption carries #EXT-X-KEY parameters. Decryption happens elsewhere.
type Encryption struct {
	Method string `json:"method"`
	KeyURL string `json:"key_url,omitempty"`
	IV     string `json:"iv,omitempty"`
}

// SegmentRef is one #EXTINF + URL pair. Index order is playback order.
type SegmentRef struct {
	Index      int         `json:"index"`
	URL        string      `json:"url"`
	Duration   float64     `json:"duration,omitempty"` // seconds, 0 when absent
	Title      string      `json:"title,omitempty"`
	Encryption *Encryption `json:"encryption,omitempty"`
}

// MediaPlaylist is a parsed segment list.
type MediaPlaylist struct {
	URL            string       `json:"url"`
	TargetDuration int          `json:"target_duration,omitempty"`
	MediaSequence  int          `json:"media_sequence,omitempty"`
	EndList        bool         `json:"end_list"`
	Segments       []SegmentRef `json:"segments"`
}

// TotalDuration sums the known segment durations.
func (p *MediaPlaylist) TotalDuration() float64 {
	var total float64
	for _, s := range p.Segments {
		total += s.Duration
	}
	return total
}

// Encrypted reports whether any segment carries a key.
func (p *MediaPlaylist) Encrypted() bool {
	for _, s := range p.Segments {
		if s.Encryption != nil {
			return true
		}
	}
	return false
}
