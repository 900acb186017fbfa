package storage

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"hls-downloader/internal/domain/repositories"
	"hls-downloader/internal/pkg/fileutils"
	"hls-downloader/pkg/constants"
	"hls-downloader/pkg/file"
	"hls-downloader/pkg/m3u8"
)

type LocalStorage struct {
	BasePath string
}

var _ repositories.ArtifactStorage = (*LocalStorage)(nil)

func NewLocalStorage(basePath string) *LocalStorage {
	return &LocalStorage{BasePath: basePath}
}

func (l *LocalStorage) TaskDir(title string, episode int) string {
	return filepath.Join(l.BasePath, file.SanitizeTitle(title), file.EpisodeDirName(episode))
}

func (l *LocalStorage) SegmentPath(taskDir string, index int) string {
	return filepath.Join(taskDir, constants.SegmentsDirName, file.SegmentFileName(index))
}

// AssembleLocalManifest writes the playlist through a temp file so a player
// never opens a half-written master.m3u8.
func (l *LocalStorage) AssembleLocalManifest(destDir string, segments []m3u8.LocalSegment) (string, error) {
	manifestPath := filepath.Join(destDir, constants.ManifestFileName)
	text := m3u8.EncodeMediaPlaylist(segments)
	if err := fileutils.WriteFileAtomic(manifestPath, []byte(text), 0644); err != nil {
		return "", fmt.Errorf("manifest yazılamadı %s: %w", manifestPath, err)
	}
	return manifestPath, nil
}

// DeleteTaskDir removes a task directory and its title directory when that
// becomes empty. Paths outside BasePath are refused.
func (l *LocalStorage) DeleteTaskDir(destDir string) error {
	if destDir == "" {
		return nil
	}
	if !l.contains(destDir) {
		return fmt.Errorf("refusing to delete %s: outside %s", destDir, l.BasePath)
	}
	if err := os.RemoveAll(destDir); err != nil {
		return fmt.Errorf("klasör silinemedi %s: %w", destDir, err)
	}

	parent := filepath.Dir(destDir)
	if parent != filepath.Clean(l.BasePath) && l.contains(parent) {
		if entries, err := os.ReadDir(parent); err == nil && len(entries) == 0 {
			_ = os.Remove(parent)
		}
	}
	return nil
}

// SweepPartials removes *.part files older than olderThan.
func (l *LocalStorage) SweepPartials(olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	removed := 0

	err := filepath.WalkDir(l.BasePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() || !file.IsPartFile(path) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err == nil {
				removed++
			}
		}
		return nil
	})
	return removed, err
}

func (l *LocalStorage) contains(path string) bool {
	base, err := filepath.Abs(l.BasePath)
	if err != nil {
		return false
	}
	target, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(base, target)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
