package queue

import (
	"encoding/json"
	"fmt"

	"hls-downloader/internal/domain/entities"
)

// SubmissionJob is what an external resolver pushes onto the submission list.
type SubmissionJob struct {
	URL           string `json:"url"`
	Quality       string `json:"quality,omitempty"`
	AudioLanguage string `json:"audio_language,omitempty"`
	ContentID     string `json:"content_id,omitempty"`
	Title         string `json:"title"`
	EpisodeTitle  string `json:"episode_title,omitempty"`
	Episode       int    `json:"episode"`
	Referer       string `json:"referer,omitempty"`
	Cookie        string `json:"cookie,omitempty"`
}

func DeserializeJob(data string) (*SubmissionJob, error) {
	var job SubmissionJob
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return nil, fmt.Errorf("failed to deserialize job: %w", err)
	}
	if job.URL == "" {
		return nil, fmt.Errorf("failed to deserialize job: url is empty")
	}
	return &job, nil
}

func SerializeJob(job SubmissionJob) (string, error) {
	bytes, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("failed to serialize job: %w", err)
	}
	return string(bytes), nil
}

func serializeEvent(ev entities.ProgressEvent) (string, error) {
	bytes, err := json.Marshal(ev)
	if err != nil {
		return "", fmt.Errorf("failed to serialize progress: %w", err)
	}
	return string(bytes), nil
}

// DeserializeEvent decodes a message received on a progress channel.
func DeserializeEvent(data string) (*entities.ProgressEvent, error) {
	var ev entities.ProgressEvent
	if err := json.Unmarshal([]byte(data), &ev); err != nil {
		return nil, fmt.Errorf("failed to deserialize progress: %w", err)
	}
	return &ev, nil
}
