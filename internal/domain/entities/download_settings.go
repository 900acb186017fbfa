package entities

import (
	"time"

	"hls-downloader/pkg/constants"
)

// SettingsRowID is the only row of download_settings.
const SettingsRowID = 1

type DownloadSettings struct {
	ID                   uint      `gorm:"primaryKey" json:"-"`
	MaxParallelDownloads int       `gorm:"not null" json:"max_parallel_downloads"`
	MaxParallelSegments  int       `gorm:"not null" json:"max_parallel_segments"`
	WifiOnly             bool      `gorm:"not null" json:"wifi_only"`
	AutoResume           bool      `gorm:"not null" json:"auto_resume"`
	UpdatedAt            time.Time `json:"updated_at"`
}

func (DownloadSettings) TableName() string {
	return "download_settings"
}

func DefaultSettings() DownloadSettings {
	return DownloadSettings{
		ID:                   SettingsRowID,
		MaxParallelDownloads: constants.DefaultMaxParallelDownloads,
		MaxParallelSegments:  constants.DefaultMaxParallelSegments,
		WifiOnly:             false,
		AutoResume:           true,
	}
}

// Normalize clamps the caps into their allowed ranges.
func (s DownloadSettings) Normalize() DownloadSettings {
	s.ID = SettingsRowID
	s.MaxParallelDownloads = clamp(s.MaxParallelDownloads, 1, constants.MaxParallelDownloadsLimit)
	s.MaxParallelSegments = clamp(s.MaxParallelSegments, 1, constants.MaxParallelSegmentsLimit)
	return s
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
