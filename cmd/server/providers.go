package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"hls-downloader/internal/delivery/http/handlers"
	"hls-downloader/internal/delivery/http/routers"
	"hls-downloader/internal/domain/dto"
	"hls-downloader/internal/domain/repositories"
	"hls-downloader/internal/infrastructure/db"
	"hls-downloader/internal/infrastructure/fetcher"
	"hls-downloader/internal/infrastructure/metrics"
	"hls-downloader/internal/infrastructure/platform"
	"hls-downloader/internal/infrastructure/queue"
	infra_repo "hls-downloader/internal/infrastructure/repositories"
	"hls-downloader/internal/infrastructure/storage"
	"hls-downloader/internal/pkg/config"
	"hls-downloader/internal/pkg/logger"
	"hls-downloader/internal/usecases"
	"hls-downloader/pkg/errors/i18n"
)

const shutdownTimeout = 5 * time.Second

func newConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("download dizini oluşturulamadı: %w", err)
	}
	if err := i18n.Load(cfg.Server.Locale); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(lc fx.Lifecycle, cfg *config.Config) (*zap.Logger, error) {
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(log)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			_ = log.Sync()
			return nil
		},
	})
	return log, nil
}

func newDatabase(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	database, err := db.Open(context.Background(), cfg.Database, log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			sqlDB, err := database.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})
	return database, nil
}

func newRepository(database *gorm.DB) repositories.DownloadRepository {
	return infra_repo.NewDownloadRepository(database)
}

func newFetcher(cfg *config.Config, log *zap.Logger) repositories.Fetcher {
	return fetcher.NewHTTPFetcher(fetcher.Options{
		ResponseHeaderTimeout: cfg.Download.RequestTimeout,
		RequestsPerSecond:     cfg.Download.RequestsPerSecond,
	}, log)
}

func newStorage(cfg *config.Config) repositories.ArtifactStorage {
	return storage.NewLocalStorage(cfg.Download.RootDir)
}

func newMetrics() *metrics.Metrics {
	return metrics.New()
}

// newRedis returns nil when REDIS_ENABLED is off.
func newRedis(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*redis.Client, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := rdb.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis bağlantısı başarısız %s: %w", cfg.Redis.Addr, err)
			}
			log.Info("redis connected", zap.String("addr", cfg.Redis.Addr))
			return nil
		},
		OnStop: func(context.Context) error {
			return rdb.Close()
		},
	})
	return rdb, nil
}

func newManagerOptions(cfg *config.Config, log *zap.Logger, m *metrics.Metrics, rdb *redis.Client) (usecases.ManagerOptions, error) {
	opts := usecases.ManagerOptions{
		UserAgent:    cfg.Download.UserAgent,
		PollInterval: cfg.Download.PollInterval,
		Network:      platform.NewInterfaceNetwork(cfg.Download.UnmeteredInterfaces),
		Disk:         platform.NewDiskGuard(cfg.Download.RootDir, cfg.Download.MinFreeBytes),
		Metrics:      m,
	}

	if cfg.S3.Enabled {
		s3, err := storage.NewS3Storage(context.Background(), cfg.S3.Bucket, cfg.S3.Region, cfg.S3.Prefix, cfg.Download.RootDir, log)
		if err != nil {
			return opts, err
		}
		opts.Publisher = s3
	}

	if rdb != nil {
		opts.Sinks = append(opts.Sinks, queue.NewProgressPublisher(rdb, cfg.Redis.ProgressPrefix))
	}
	return opts, nil
}

func newManager(repo repositories.DownloadRepository, f repositories.Fetcher, st repositories.ArtifactStorage, log *zap.Logger, opts usecases.ManagerOptions) usecases.DownloadManager {
	return usecases.NewDownloadManager(repo, f, st, log, opts)
}

func newCleanupService(st repositories.ArtifactStorage, log *zap.Logger) usecases.CleanupService {
	return usecases.NewCleanupService(st, log)
}

func newApp(cfg *config.Config, manager usecases.DownloadManager, cleanup usecases.CleanupService, m *metrics.Metrics) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "hls-downloader",
		DisableStartupMessage: true,
	})

	// Middleware
	app.Use(fiberlogger.New())
	app.Use(cors.New())

	routers.SetupSystemRoutes(app, m.Handler(), handlers.NewCleanupHandler(cleanup, cfg.Cleanup.PartialMaxAge))
	routers.SetupDownloadRoutes(app, handlers.NewDownloadHandler(manager), handlers.NewSettingsHandler(manager))
	return app
}

// runManager ties the scheduler loop to the process, not to the start
// deadline fx hands to OnStart.
func runManager(lc fx.Lifecycle, manager usecases.DownloadManager) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return manager.Start(context.Background())
		},
		OnStop: func(context.Context) error {
			manager.Stop()
			return nil
		},
	})
}

func runSubmissionListener(lc fx.Lifecycle, cfg *config.Config, rdb *redis.Client, manager usecases.DownloadManager, log *zap.Logger) {
	if rdb == nil {
		return
	}

	submit := func(ctx context.Context, job *queue.SubmissionJob) error {
		_, err := manager.SubmitURL(ctx, &dto.SubmitDownloadRequestDTO{
			URL:           job.URL,
			Quality:       job.Quality,
			AudioLanguage: job.AudioLanguage,
			ContentID:     job.ContentID,
			Title:         job.Title,
			EpisodeTitle:  job.EpisodeTitle,
			Episode:       job.Episode,
			Referer:       job.Referer,
			Cookie:        job.Cookie,
		})
		return err
	}
	listener := queue.NewSubmissionListener(rdb, cfg.Redis.SubmissionQueue, submit, log)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				listener.Run(ctx)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			return nil
		},
	})
}

func runCleanup(lc fx.Lifecycle, cfg *config.Config, cleanup usecases.CleanupService, log *zap.Logger) {
	if cfg.Cleanup.Schedule == "" {
		return
	}
	var stop func()
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			var err error
			stop, err = cleanup.Schedule(cfg.Cleanup.Schedule, cfg.Cleanup.PartialMaxAge)
			if err != nil {
				return err
			}
			log.Info("partial sweep scheduled", zap.String("schedule", cfg.Cleanup.Schedule))
			return nil
		},
		OnStop: func(context.Context) error {
			if stop != nil {
				stop()
			}
			return nil
		},
	})
}

func runHTTP(lc fx.Lifecycle, cfg *config.Config, app *fiber.App, log *zap.Logger, shutdowner fx.Shutdowner) {
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			log.Info("Server starting", zap.String("addr", addr))
			go func() {
				if err := app.Listen(addr); err != nil {
					log.Error("Server başlatılamadı", zap.Error(err))
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutdown sinyali alındı, server kapatılıyor...")
			ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()
			if err := app.ShutdownWithContext(ctx); err != nil {
				return fmt.Errorf("server düzgün kapatılamadı: %w", err)
			}
			log.Info("Server düzgün bir şekilde kapatıldı")
			return nil
		},
	})
}
