package m3u8

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	tagHeader         = "#EXTM3U"
	tagStreamInf      = "#EXT-X-STREAM-INF:"
	tagMedia          = "#EXT-X-MEDIA:"
	tagKey            = "#EXT-X-KEY:"
	tagInf            = "#EXTINF:"
	tagTargetDuration = "#EXT-X-TARGETDURATION:"
	tagMediaSequence  = "#EXT-X-MEDIA-SEQUENCE:"
	tagEndList        = "#EXT-X-ENDLIST"
)

// AutoQuality is the label of a variant without a RESOLUTION attribute.
const AutoQuality = "Auto"

// ParseVariantPlaylist decodes a master playlist. Relative URLs are resolved
// against baseURL.
func ParseVariantPlaylist(text, baseURL string) (*VariantPlaylist, error) {
	lines, err := manifestLines(text, baseURL)
	if err != nil {
		return nil, err
	}

	playlist := &VariantPlaylist{URL: baseURL}
	var pending map[string]string

	for _, line := range lines[1:] {
		switch {
		case strings.HasPrefix(line, tagStreamInf):
			pending = ParseAttributes(strings.TrimPrefix(line, tagStreamInf))
		case strings.HasPrefix(line, tagMedia):
			attrs := ParseAttributes(strings.TrimPrefix(line, tagMedia))
			if !strings.EqualFold(attrs["TYPE"], "AUDIO") {
				continue
			}
			audio := AudioVariant{
				GroupID:  attrs["GROUP-ID"],
				Name:     attrs["NAME"],
				Language: attrs["LANGUAGE"],
				Default:  strings.EqualFold(attrs["DEFAULT"], "YES"),
			}
			if uri := attrs["URI"]; uri != "" {
				audio.URL = ResolveURL(baseURL, uri)
			}
			playlist.Audios = append(playlist.Audios, audio)
		case strings.HasPrefix(line, "#"):
			continue
		default:
			//* STREAM-INF attributes belong to the next URI line only
			if pending == nil {
				continue
			}
			playlist.Videos = append(playlist.Videos, newVideoVariant(pending, ResolveURL(baseURL, line)))
			pending = nil
		}
	}

	return playlist, nil
}

func newVideoVariant(attrs map[string]string, mediaURL string) VideoVariant {
	v := VideoVariant{
		URL:          mediaURL,
		Resolution:   attrs["RESOLUTION"],
		Codecs:       attrs["CODECS"],
		AudioGroupID: attrs["AUDIO"],
		Quality:      AutoQuality,
	}
	if bw, err := strconv.ParseInt(attrs["BANDWIDTH"], 10, 64); err == nil && bw > 0 {
		v.Bandwidth = bw
	}
	if _, height, ok := parseResolution(v.Resolution); ok {
		v.Quality = strconv.Itoa(height) + "p"
	}
	return v
}

func parseResolution(res string) (int, int, bool) {
	w, h, found := strings.Cut(strings.ToLower(res), "x")
	if !found {
		return 0, 0, false
	}
	width, err := strconv.Atoi(strings.TrimSpace(w))
	if err != nil {
		return 0, 0, false
	}
	height, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil || height <= 0 {
		return 0, 0, false
	}
	return width, height, true
}

// ParseMediaPlaylist decodes a segment list. Every #EXTINF + URL pair becomes
// one SegmentRef with an index counting up from 0.
func ParseMediaPlaylist(text, baseURL string) (*MediaPlaylist, error) {
	lines, err := manifestLines(text, baseURL)
	if err != nil {
		return nil, err
	}

	playlist := &MediaPlaylist{URL: baseURL}

	var (
		key      *Encryption
		inf      bool
		duration float64
		title    string
	)

	for _, line := range lines[1:] {
		switch {
		case strings.HasPrefix(line, tagInf):
			inf = true
			duration, title = parseInf(strings.TrimPrefix(line, tagInf))
		case strings.HasPrefix(line, tagTargetDuration):
			if n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, tagTargetDuration))); err == nil {
				playlist.TargetDuration = n
			}
		case strings.HasPrefix(line, tagMediaSequence):
			if n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, tagMediaSequence))); err == nil {
				playlist.MediaSequence = n
			}
		case strings.HasPrefix(line, tagEndList):
			playlist.EndList = true
		case strings.HasPrefix(line, tagKey):
			key = parseKey(strings.TrimPrefix(line, tagKey), baseURL)
		case strings.HasPrefix(line, "#"):
			continue
		default:
			if !inf {
				continue
			}
			seg := SegmentRef{
				Index:    len(playlist.Segments),
				URL:      ResolveURL(baseURL, line),
				Duration: duration,
				Title:    title,
			}
			if key != nil {
				k := *key
				seg.Encryption = &k
			}
			playlist.Segments = append(playlist.Segments, seg)
			inf, duration, title = false, 0, ""
		}
	}

	return playlist, nil
}

func parseInf(value string) (float64, string) {
	raw, title, _ := strings.Cut(value, ",")
	d, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || d < 0 {
		d = 0
	}
	return d, strings.TrimSpace(title)
}

// parseKey returns nil for METHOD=NONE, which clears encryption.
func parseKey(value, baseURL string) *Encryption {
	attrs := ParseAttributes(value)
	method := strings.ToUpper(attrs["METHOD"])
	if method == "" || method == "NONE" {
		return nil
	}
	enc := &Encryption{Method: method, IV: attrs["IV"]}
	if uri := attrs["URI"]; uri != "" {
		enc.KeyURL = ResolveURL(baseURL, uri)
	}
	return enc
}

// IsMasterPlaylist reports whether the text lists variant streams.
func IsMasterPlaylist(text string) bool {
	return strings.Contains(text, tagStreamInf)
}

// manifestLines returns the trimmed, non-blank lines; the first one is the
// #EXTM3U header.
func manifestLines(text, baseURL string) ([]string, error) {
	text = strings.TrimPrefix(text, "\ufeff")
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		l = strings.TrimSpace(l)
		if l != "" {
			lines = append(lines, l)
		}
	}

	if len(lines) == 0 || lines[0] != tagHeader {
		return nil, &ParseError{URL: baseURL, Err: ErrInvalidManifest}
	}
	return lines, nil
}

// ParseAttributes scans an attribute list such as
// BANDWIDTH=800000,RESOLUTION=640x360,CODECS="avc1.4d401e,mp4a.40.2".
// Keys match [A-Z0-9-]+; values are quoted (quotes stripped) or a bare token
// up to the next comma. Malformed pairs are skipped.
func ParseAttributes(s string) map[string]string {
	attrs := make(map[string]string)
	i := 0
	for i < len(s) {
		for i < len(s) && (s[i] == ',' || s[i] == ' ' || s[i] == '\t') {
			i++
		}
		start := i
		for i < len(s) && isKeyChar(s[i]) {
			i++
		}
		key := s[start:i]
		if key == "" || i >= len(s) || s[i] != '=' {
			for i < len(s) && s[i] != ',' {
				i++
			}
			continue
		}
		i++

		var value string
		if i < len(s) && s[i] == '"' {
			i++
			vs := i
			for i < len(s) && s[i] != '"' {
				i++
			}
			value = s[vs:i]
			for i < len(s) && s[i] != ',' {
				i++
			}
		} else {
			vs := i
			for i < len(s) && s[i] != ',' {
				i++
			}
			value = strings.TrimSpace(s[vs:i])
		}
		attrs[key] = value
	}
	return attrs
}

func isKeyChar(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-'
}

// ResolveURL applies the manifest URL rules in this order: absolute http(s)
// passes through, "/path" joins scheme://host, anything else joins the
// manifest's directory.
func ResolveURL(baseURL, ref string) string {
	ref = strings.TrimSpace(ref)
	lower := strings.ToLower(ref)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return ref
	}

	base, err := url.Parse(baseURL)
	if err != nil || base.Host == "" {
		return ref
	}

	if strings.HasPrefix(ref, "//") {
		return base.Scheme + ":" + ref
	}
	if strings.HasPrefix(ref, "/") {
		return base.Scheme + "://" + base.Host + ref
	}

	if rel, err := url.Parse(ref); err == nil {
		return base.ResolveReference(rel).String()
	}

	dir := base.Path
	if idx := strings.LastIndex(dir, "/"); idx >= 0 {
		dir = dir[:idx+1]
	} else {
		dir = "/"
	}
	return base.Scheme + "://" + base.Host + dir + ref
}
