package usecases

import (
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"hls-downloader/internal/domain/repositories"
)

type CleanupService interface {
	// SweepPartials removes orphaned *.part files older than maxAge.
	SweepPartials(maxAge time.Duration) (int, error)
	// Schedule registers the sweep on spec (seconds field included) and starts
	// the scheduler. The returned func stops it.
	Schedule(spec string, maxAge time.Duration) (func(), error)
}

type cleanupService struct {
	storage repositories.ArtifactStorage
	log     *zap.Logger
}

func NewCleanupService(storage repositories.ArtifactStorage, log *zap.Logger) CleanupService {
	return &cleanupService{
		storage: storage,
		log:     log,
	}
}

func (s *cleanupService) SweepPartials(maxAge time.Duration) (int, error) {
	removed, err := s.storage.SweepPartials(maxAge)
	if err != nil {
		return removed, err
	}
	if removed > 0 {
		s.log.Info("stale partial files removed", zap.Int("count", removed))
	}
	return removed, nil
}

func (s *cleanupService) Schedule(spec string, maxAge time.Duration) (func(), error) {
	c := cron.New(cron.WithSeconds())
	_, err := c.AddFunc(spec, func() {
		if _, err := s.SweepPartials(maxAge); err != nil {
			s.log.Error("partial sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start() // cron job'u başlatır
	return func() { <-c.Stop().Done() }, nil
}
