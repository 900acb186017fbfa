package mapper

import (
	"hls-downloader/internal/domain/dto"
	"hls-downloader/internal/domain/entities"
)

func ToTaskDTO(t *entities.DownloadTask) dto.TaskResponseDTO {
	out := dto.TaskResponseDTO{
		ID:                 t.ID,
		ContentID:          t.ContentID,
		Title:              t.Title,
		EpisodeTitle:       t.EpisodeTitle,
		Episode:            t.Episode,
		Quality:            t.Quality,
		AudioLanguage:      t.AudioLanguage,
		Status:             string(t.Status),
		Progress:           t.Progress(),
		TotalSegments:      t.TotalSegments,
		DownloadedSegments: t.DownloadedSegments,
		TotalBytes:         t.TotalBytes,
		DownloadedBytes:    t.DownloadedBytes,
		ErrorMessage:       t.Error(),
		RetryCount:         t.RetryCount,
		Encrypted:          t.Encrypted,
		CreatedAt:          t.CreatedAt,
		StartedAt:          t.StartedAt,
		CompletedAt:        t.CompletedAt,
		PausedAt:           t.PausedAt,
	}
	if t.Status == entities.TaskCompleted {
		out.ManifestPath = t.ManifestPath()
	}
	return out
}

func ToTaskDTOs(tasks []entities.DownloadTask) []dto.TaskResponseDTO {
	out := make([]dto.TaskResponseDTO, 0, len(tasks))
	for i := range tasks {
		out = append(out, ToTaskDTO(&tasks[i]))
	}
	return out
}

func ToSegmentDTOs(segs []entities.DownloadSegment) []dto.SegmentResponseDTO {
	out := make([]dto.SegmentResponseDTO, 0, len(segs))
	for _, s := range segs {
		d := dto.SegmentResponseDTO{
			Index:      s.Index,
			Status:     string(s.Status),
			Duration:   s.Duration,
			FileSize:   s.FileSize,
			RetryCount: s.RetryCount,
		}
		if s.ErrorMessage != nil {
			d.ErrorMessage = *s.ErrorMessage
		}
		out = append(out, d)
	}
	return out
}

func ToSettingsDTO(s entities.DownloadSettings) dto.SettingsDTO {
	return dto.SettingsDTO{
		MaxParallelDownloads: &s.MaxParallelDownloads,
		MaxParallelSegments:  &s.MaxParallelSegments,
		WifiOnly:             &s.WifiOnly,
		AutoResume:           &s.AutoResume,
	}
}

// ApplySettings overlays the non-nil fields of in onto current.
func ApplySettings(current entities.DownloadSettings, in dto.SettingsDTO) entities.DownloadSettings {
	if in.MaxParallelDownloads != nil {
		current.MaxParallelDownloads = *in.MaxParallelDownloads
	}
	if in.MaxParallelSegments != nil {
		current.MaxParallelSegments = *in.MaxParallelSegments
	}
	if in.WifiOnly != nil {
		current.WifiOnly = *in.WifiOnly
	}
	if in.AutoResume != nil {
		current.AutoResume = *in.AutoResume
	}
	return current.Normalize()
}
