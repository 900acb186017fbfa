package dto

import "time"

type SubmitDownloadRequestDTO struct {
	URL           string `json:"url"` // master or media playlist
	Quality       string `json:"quality,omitempty"`
	AudioLanguage string `json:"audio_language,omitempty"`
	ContentID     string `json:"content_id,omitempty"`
	Title         string `json:"title"`
	EpisodeTitle  string `json:"episode_title,omitempty"`
	Episode       int    `json:"episode"`
	Referer       string `json:"referer,omitempty"`
	Cookie        string `json:"cookie,omitempty"`
}

type ProbeRequestDTO struct {
	URL     string `json:"url"`
	Referer string `json:"referer,omitempty"`
	Cookie  string `json:"cookie,omitempty"`
}

type TaskResponseDTO struct {
	ID                 string     `json:"id"`
	ContentID          string     `json:"content_id,omitempty"`
	Title              string     `json:"title"`
	EpisodeTitle       string     `json:"episode_title,omitempty"`
	Episode            int        `json:"episode"`
	Quality            string     `json:"quality"`
	AudioLanguage      string     `json:"audio_language,omitempty"`
	Status             string     `json:"status"`
	Progress           float64    `json:"progress"`
	TotalSegments      int        `json:"total_segments"`
	DownloadedSegments int        `json:"downloaded_segments"`
	TotalBytes         int64      `json:"total_bytes"`
	DownloadedBytes    int64      `json:"downloaded_bytes"`
	ErrorMessage       string     `json:"error_message,omitempty"`
	RetryCount         int        `json:"retry_count"`
	Encrypted          bool       `json:"encrypted"`
	ManifestPath       string     `json:"manifest_path,omitempty"` // set once completed
	CreatedAt          time.Time  `json:"created_at"`
	StartedAt          *time.Time `json:"started_at,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	PausedAt           *time.Time `json:"paused_at,omitempty"`
}

type SegmentResponseDTO struct {
	Index        int     `json:"index"`
	Status       string  `json:"status"`
	Duration     float64 `json:"duration"`
	FileSize     int64   `json:"file_size"`
	RetryCount   int     `json:"retry_count"`
	ErrorMessage string  `json:"error_message,omitempty"`
}

// SettingsDTO fields are optional on PUT; nil keeps the stored value.
type SettingsDTO struct {
	MaxParallelDownloads *int  `json:"max_parallel_downloads,omitempty"`
	MaxParallelSegments  *int  `json:"max_parallel_segments,omitempty"`
	WifiOnly             *bool `json:"wifi_only,omitempty"`
	AutoResume           *bool `json:"auto_resume,omitempty"`
}

type ActionResponse struct {
	Status  string `json:"status"`            // "ok" veya "failed" şeklinde
	ID      string `json:"id,omitempty"`
	Message string `json:"message,omitempty"` // opsiyonel açıklama
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
