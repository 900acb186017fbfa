package repositories

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"hls-downloader/internal/domain/entities"
	"hls-downloader/internal/domain/repositories"
	"hls-downloader/pkg/constants"
	apperrors "hls-downloader/pkg/errors"
)

type downloadRepository struct {
	db *gorm.DB
}

func NewDownloadRepository(db *gorm.DB) repositories.DownloadRepository {
	return &downloadRepository{
		db: db,
	}
}

func (r *downloadRepository) CreateTask(spec entities.TaskSpec) (*entities.DownloadTask, error) {
	task := &entities.DownloadTask{
		ContentID:     spec.ContentID,
		Episode:       spec.Episode,
		Title:         spec.Title,
		EpisodeTitle:  spec.EpisodeTitle,
		MasterURL:     spec.MasterURL,
		ManifestURL:   spec.ManifestURL,
		Quality:       spec.Quality,
		AudioLanguage: spec.AudioLanguage,
		AudioGroupID:  spec.AudioGroupID,
		AudioURL:      spec.AudioURL,
		DestDir:       spec.DestDir,
		Referer:       spec.Referer,
		Cookie:        spec.Cookie,
		Status:        entities.TaskQueued,
	}

	//* ayar satırı ile görev aynı transaction içinde: iki default satır oluşmasın
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := ensureSettings(tx); err != nil {
			return err
		}
		if err := destinationFree(tx, spec.DestDir); err != nil {
			return err
		}
		return tx.Create(task).Error
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrTaskExists) {
			return nil, err
		}
		//* unique index yarışı kaybeden insert'i buraya düşürür
		if dupErr := destinationFree(r.db, spec.DestDir); errors.Is(dupErr, apperrors.ErrTaskExists) {
			return nil, dupErr
		}
		return nil, fmt.Errorf("görev oluşturulamadı: %w", err)
	}
	return task, nil
}

// destinationFree reports ErrTaskExists when another task already writes
// into dir.
func destinationFree(tx *gorm.DB, dir string) error {
	var owner []string
	if err := tx.Model(&entities.DownloadTask{}).
		Where("dest_dir = ?", dir).
		Limit(1).
		Pluck("id", &owner).Error; err != nil {
		return err
	}
	if len(owner) > 0 {
		return fmt.Errorf("%w: %s (task %s)", apperrors.ErrTaskExists, dir, owner[0])
	}
	return nil
}

func (r *downloadRepository) GetTask(id string) (*entities.DownloadTask, error) {
	var task entities.DownloadTask
	if err := r.db.First(&task, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "task", id)
	}
	return &task, nil
}

func (r *downloadRepository) ListTasksByStatus(statuses ...entities.TaskStatus) ([]entities.DownloadTask, error) {
	q := r.db.Model(&entities.DownloadTask{})
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statusStrings(statuses))
	}
	if len(statuses) == 1 && statuses[0] == entities.TaskCompleted {
		q = q.Order("completed_at DESC")
	} else {
		q = q.Order("created_at ASC")
	}

	var tasks []entities.DownloadTask
	if err := q.Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *downloadRepository) UpdateTaskStatus(id string, status entities.TaskStatus, errMsg *string) error {
	res := r.db.Model(&entities.DownloadTask{}).
		Where("id = ?", id).
		Updates(statusUpdates(status, errMsg))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("task %s: %w", id, apperrors.ErrRecordNotFound)
	}
	return nil
}

func (r *downloadRepository) TransitionTaskStatus(id string, from []entities.TaskStatus, to entities.TaskStatus, errMsg *string) (bool, error) {
	res := r.db.Model(&entities.DownloadTask{}).
		Where("id = ? AND status IN ?", id, statusStrings(from)).
		Updates(statusUpdates(to, errMsg))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// statusUpdates: started_at is only set once; completed clears the last error.
func statusUpdates(status entities.TaskStatus, errMsg *string) map[string]any {
	now := time.Now()
	updates := map[string]any{"status": string(status)}
	if errMsg != nil {
		updates["error_message"] = *errMsg
	}

	switch status {
	case entities.TaskDownloading:
		updates["started_at"] = gorm.Expr("COALESCE(started_at, ?)", now)
	case entities.TaskCompleted:
		updates["completed_at"] = now
		if errMsg == nil {
			updates["error_message"] = nil
		}
	case entities.TaskPaused:
		updates["paused_at"] = now
	}
	return updates
}

func (r *downloadRepository) UpdateTaskProgress(id string, downloadedSegments int, downloadedBytes int64, totalSegments *int, totalBytes *int64) error {
	updates := map[string]any{
		"downloaded_segments": gorm.Expr("CASE WHEN downloaded_segments < ? THEN ? ELSE downloaded_segments END", downloadedSegments, downloadedSegments),
		"downloaded_bytes":    gorm.Expr("CASE WHEN downloaded_bytes < ? THEN ? ELSE downloaded_bytes END", downloadedBytes, downloadedBytes),
	}
	if totalSegments != nil {
		updates["total_segments"] = *totalSegments
	}
	if totalBytes != nil {
		updates["total_bytes"] = *totalBytes
	}

	res := r.db.Model(&entities.DownloadTask{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("task %s: %w", id, apperrors.ErrRecordNotFound)
	}
	return nil
}

func (r *downloadRepository) SetTaskEncrypted(id string, encrypted bool) error {
	return r.db.Model(&entities.DownloadTask{}).Where("id = ?", id).Update("encrypted", encrypted).Error
}

// IncrementTaskRetry only charges a task that is still downloading; a task
// paused or deleted mid-run returns ErrInvalidTransition or ErrRecordNotFound.
func (r *downloadRepository) IncrementTaskRetry(id string) (int, error) {
	var counts []int
	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&entities.DownloadTask{}).
			Where("id = ? AND status = ?", id, string(entities.TaskDownloading)).
			Update("retry_count", gorm.Expr("retry_count + 1"))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var status []string
			if err := tx.Model(&entities.DownloadTask{}).Where("id = ?", id).Pluck("status", &status).Error; err != nil {
				return err
			}
			if len(status) == 0 {
				return fmt.Errorf("task %s: %w", id, apperrors.ErrRecordNotFound)
			}
			return fmt.Errorf("%w: task %s is %s", apperrors.ErrInvalidTransition, id, status[0])
		}
		return tx.Model(&entities.DownloadTask{}).
			Where("id = ?", id).
			Pluck("retry_count", &counts).Error
	})
	if err != nil || len(counts) == 0 {
		return 0, err
	}
	return counts[0], nil
}

func (r *downloadRepository) ResetRetries(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&entities.DownloadTask{}).
			Where("id = ?", id).
			Update("retry_count", 0).Error; err != nil {
			return err
		}
		return tx.Model(&entities.DownloadSegment{}).
			Where("task_id = ? AND status = ?", id, string(entities.SegmentFailed)).
			Updates(map[string]any{"status": string(entities.SegmentPending), "retry_count": 0}).Error
	})
}

func (r *downloadRepository) DeleteTask(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&entities.DownloadSegment{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&entities.DownloadTask{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("task %s: %w", id, apperrors.ErrRecordNotFound)
		}
		return nil
	})
}

// CreateSegments inserts the rows once; a second call for the same task is
// a no-op that reports the existing row count. Either way the task's
// total_segments matches the row count when it returns.
func (r *downloadRepository) CreateSegments(taskID string, specs []entities.SegmentSpec) (int, error) {
	var created int
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&entities.DownloadSegment{}).Where("task_id = ?", taskID).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			created = int(existing)
			return setTotalSegments(tx, taskID, created)
		}

		rows := make([]entities.DownloadSegment, 0, len(specs))
		for _, s := range specs {
			row := entities.DownloadSegment{
				TaskID:   taskID,
				Index:    s.Index,
				URL:      s.URL,
				FilePath: s.FilePath,
				Duration: s.Duration,
				Status:   entities.SegmentPending,
			}
			if s.Key != nil {
				row.KeyMethod, row.KeyURI, row.KeyIV = s.Key.Method, s.Key.KeyURL, s.Key.IV
			}
			rows = append(rows, row)
		}
		if len(rows) > 0 {
			if err := tx.CreateInBatches(&rows, 200).Error; err != nil {
				return err
			}
		}
		created = len(rows)
		return setTotalSegments(tx, taskID, created)
	})
	if err != nil {
		return 0, fmt.Errorf("segmentler oluşturulamadı: %w", err)
	}
	return created, nil
}

func setTotalSegments(tx *gorm.DB, taskID string, total int) error {
	return tx.Model(&entities.DownloadTask{}).
		Where("id = ? AND total_segments <> ?", taskID, total).
		Update("total_segments", total).Error
}

func (r *downloadRepository) ListSegments(taskID string, filter entities.SegmentFilter) ([]entities.DownloadSegment, error) {
	q := r.db.Where("task_id = ?", taskID)

	switch filter {
	case entities.FilterAll, "":
	case entities.FilterPending:
		q = q.Where("status = ?", string(entities.SegmentPending))
	case entities.FilterCompleted:
		q = q.Where("status = ?", string(entities.SegmentCompleted))
	case entities.FilterFailedRetryable:
		q = q.Where("status = ? AND retry_count < ?", string(entities.SegmentFailed), constants.MaxSegmentRetries)
	case entities.FilterWork:
		q = q.Where("(status IN ?) OR (status = ? AND retry_count < ?)",
			[]string{string(entities.SegmentPending), string(entities.SegmentDownloading)},
			string(entities.SegmentFailed), constants.MaxSegmentRetries)
	default:
		return nil, fmt.Errorf("unknown segment filter %q", filter)
	}

	var segs []entities.DownloadSegment
	if err := q.Order("seg_index ASC").Find(&segs).Error; err != nil {
		return nil, err
	}
	return segs, nil
}

// UpdateSegmentStatus is the only place retry_count changes: a transition to
// failed bumps it in the same statement.
func (r *downloadRepository) UpdateSegmentStatus(id uint, status entities.SegmentStatus, upd entities.SegmentUpdate) error {
	updates := map[string]any{"status": string(status)}
	switch status {
	case entities.SegmentFailed:
		updates["retry_count"] = gorm.Expr("retry_count + 1")
	case entities.SegmentCompleted:
		updates["error_message"] = nil
	}
	if upd.ErrorMessage != nil {
		updates["error_message"] = *upd.ErrorMessage
	}
	if upd.DownloadedBytes != nil {
		updates["downloaded_bytes"] = *upd.DownloadedBytes
	}
	if upd.FileSize != nil {
		updates["file_size"] = *upd.FileSize
	}

	res := r.db.Model(&entities.DownloadSegment{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("segment %d: %w", id, apperrors.ErrRecordNotFound)
	}
	return nil
}

func (r *downloadRepository) CountSegmentsByStatus(taskID string, status entities.SegmentStatus) (int, error) {
	var n int64
	err := r.db.Model(&entities.DownloadSegment{}).
		Where("task_id = ? AND status = ?", taskID, string(status)).
		Count(&n).Error
	return int(n), err
}

func (r *downloadRepository) SegmentStats(taskID string) (int, int64, error) {
	var row struct {
		Completed int64
		Bytes     int64
	}
	err := r.db.Model(&entities.DownloadSegment{}).
		Select("COUNT(*) AS completed, COALESCE(SUM(file_size), 0) AS bytes").
		Where("task_id = ? AND status = ?", taskID, string(entities.SegmentCompleted)).
		Scan(&row).Error
	return int(row.Completed), row.Bytes, err
}

func (r *downloadRepository) GetSettings() (entities.DownloadSettings, error) {
	var s entities.DownloadSettings
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := ensureSettings(tx); err != nil {
			return err
		}
		return tx.First(&s, entities.SettingsRowID).Error
	})
	if err != nil {
		return entities.DefaultSettings(), err
	}
	return s.Normalize(), nil
}

func (r *downloadRepository) SaveSettings(s entities.DownloadSettings) (entities.DownloadSettings, error) {
	s = s.Normalize()
	if err := r.db.Save(&s).Error; err != nil {
		return s, fmt.Errorf("ayarlar kaydedilemedi: %w", err)
	}
	return s, nil
}

func ensureSettings(tx *gorm.DB) error {
	def := entities.DefaultSettings()
	return tx.Where(entities.DownloadSettings{ID: entities.SettingsRowID}).
		Attrs(def).
		FirstOrCreate(&entities.DownloadSettings{}).Error
}

func notFound(err error, kind, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %s: %w", kind, id, apperrors.ErrRecordNotFound)
	}
	return err
}

func statusStrings(statuses []entities.TaskStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
