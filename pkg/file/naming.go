package file

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"hls-downloader/pkg/constants"
)

var unsafeChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f\s]+`)

// SanitizeTitle turns a display title into a single safe directory name.
func SanitizeTitle(title string) string {
	s := unsafeChars.ReplaceAllString(strings.TrimSpace(title), "_")
	s = strings.Trim(s, "._")
	if s == "" {
		return "untitled"
	}
	if r := []rune(s); len(r) > 120 {
		s = string(r[:120])
	}
	return s
}

func EpisodeDirName(episode int) string {
	return fmt.Sprintf("%s%d", constants.EpisodeDirPrefix, episode)
}

func SegmentFileName(index int) string {
	return fmt.Sprintf("segment_%d.ts", index)
}

// SegmentRelPath is the segment path as written into the local playlist.
func SegmentRelPath(index int) string {
	return path.Join(constants.SegmentsDirName, SegmentFileName(index))
}

// MakeKey builds an object key under prefix, always with forward slashes.
func MakeKey(prefix string, parts ...string) string {
	elems := make([]string, 0, len(parts)+1)
	if p := strings.Trim(prefix, "/"); p != "" {
		elems = append(elems, p)
	}
	for _, part := range parts {
		elems = append(elems, strings.ReplaceAll(part, "\\", "/"))
	}
	return path.Join(elems...)
}

// TitleFromURL guesses a title from a playlist URL: the directory holding
// the playlist, or the playlist name when it sits at the root.
func TitleFromURL(rawURL string) string {
	p := rawURL
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if i := strings.Index(p, "://"); i >= 0 {
		p = p[i+3:]
		if j := strings.Index(p, "/"); j >= 0 {
			p = p[j:]
		} else {
			p = "/"
		}
	}
	dir, name := path.Split(p)
	if d := path.Base(dir); d != "/" && d != "." {
		return SanitizeTitle(d)
	}
	return SanitizeTitle(strings.TrimSuffix(name, path.Ext(name)))
}
