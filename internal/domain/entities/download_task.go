package entities

import (
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"hls-downloader/pkg/constants"
)

// DownloadTask is one episode download. Variant fields are snapshots of the
// master playlist at submission time, not references into it.
type DownloadTask struct {
	ID           string `gorm:"type:varchar(36);primaryKey" json:"id"`
	ContentID    string `gorm:"type:varchar(255);index" json:"content_id"`
	Episode      int    `json:"episode"`
	Title        string `gorm:"type:varchar(500)" json:"title"`
	EpisodeTitle string `gorm:"type:varchar(500)" json:"episode_title,omitempty"`

	MasterURL     string `gorm:"type:text" json:"master_url,omitempty"`
	ManifestURL   string `gorm:"type:text;not null" json:"manifest_url"`
	Quality       string `gorm:"type:varchar(20)" json:"quality"`
	AudioLanguage string `gorm:"type:varchar(50)" json:"audio_language,omitempty"`
	AudioGroupID  string `gorm:"type:varchar(100)" json:"audio_group_id,omitempty"`
	AudioURL      string `gorm:"type:text" json:"audio_url,omitempty"`
	DestDir       string `gorm:"type:text;not null;uniqueIndex:idx_download_tasks_dest_dir" json:"dest_dir"`

	TotalSegments      int   `json:"total_segments"`
	DownloadedSegments int   `json:"downloaded_segments"`
	TotalBytes         int64 `json:"total_bytes"`
	DownloadedBytes    int64 `json:"downloaded_bytes"`

	Status       TaskStatus `gorm:"type:varchar(20);index;not null" json:"status"`
	ErrorMessage *string    `gorm:"type:text" json:"error_message,omitempty"`
	RetryCount   int        `gorm:"not null;default:0" json:"retry_count"`
	Encrypted    bool       `gorm:"not null;default:false" json:"encrypted"`

	Referer string `gorm:"type:text" json:"referer,omitempty"`
	Cookie  string `gorm:"type:text" json:"-"`

	CreatedAt   time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	PausedAt    *time.Time `json:"paused_at,omitempty"`

	Segments []DownloadSegment `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE" json:"-"`
}

func (DownloadTask) TableName() string {
	return "download_tasks"
}

func (t *DownloadTask) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = TaskQueued
	}
	return
}

// Progress is completed segments over total segments. Byte totals are for
// display only.
func (t *DownloadTask) Progress() float64 {
	if t.TotalSegments <= 0 {
		return 0
	}
	p := float64(t.DownloadedSegments) / float64(t.TotalSegments)
	if p > 1 {
		return 1
	}
	return p
}

func (t *DownloadTask) ManifestPath() string {
	return filepath.Join(t.DestDir, constants.ManifestFileName)
}

func (t *DownloadTask) SegmentsDir() string {
	return filepath.Join(t.DestDir, constants.SegmentsDirName)
}

func (t *DownloadTask) Error() string {
	if t.ErrorMessage == nil {
		return ""
	}
	return *t.ErrorMessage
}

// TaskSpec is the caller's input for CreateTask.
type TaskSpec struct {
	ContentID     string
	Episode       int
	Title         string
	EpisodeTitle  string
	MasterURL     string
	ManifestURL   string
	Quality       string
	AudioLanguage string
	AudioGroupID  string
	AudioURL      string
	DestDir       string
	Referer       string
	Cookie        string
}
