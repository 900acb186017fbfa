package entities

import (
	"time"

	"hls-downloader/pkg/m3u8"
)

// DownloadSegment is one media segment of a task. (TaskID, Index) is unique.
type DownloadSegment struct {
	ID              uint          `gorm:"primaryKey" json:"id"`
	TaskID          string        `gorm:"type:varchar(36);not null;uniqueIndex:idx_segment_task_index,priority:1" json:"task_id"`
	Index           int           `gorm:"column:seg_index;not null;uniqueIndex:idx_segment_task_index,priority:2" json:"index"`
	URL             string        `gorm:"type:text;not null" json:"url"`
	FilePath        string        `gorm:"type:text;not null" json:"file_path"`
	Duration        float64       `json:"duration"`
	FileSize        int64         `json:"file_size"`
	DownloadedBytes int64         `json:"downloaded_bytes"`
	Status          SegmentStatus `gorm:"type:varchar(20);index;not null" json:"status"`
	ErrorMessage    *string       `gorm:"type:text" json:"error_message,omitempty"`
	RetryCount      int           `gorm:"not null;default:0" json:"retry_count"`

	KeyMethod string `gorm:"type:varchar(20)" json:"key_method,omitempty"`
	KeyURI    string `gorm:"type:text" json:"key_uri,omitempty"`
	KeyIV     string `gorm:"type:varchar(64)" json:"key_iv,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (DownloadSegment) TableName() string {
	return "download_segments"
}

// Encryption returns the key parameters, nil for clear segments.
func (s *DownloadSegment) Encryption() *m3u8.Encryption {
	if s.KeyMethod == "" {
		return nil
	}
	return &m3u8.Encryption{Method: s.KeyMethod, KeyURL: s.KeyURI, IV: s.KeyIV}
}

// SegmentSpec is one row for CreateSegments.
type SegmentSpec struct {
	Index    int
	URL      string
	FilePath string
	Duration float64
	Key      *m3u8.Encryption
}

// SegmentUpdate carries the optional fields of UpdateSegmentStatus.
type SegmentUpdate struct {
	ErrorMessage    *string
	DownloadedBytes *int64
	FileSize        *int64
}
