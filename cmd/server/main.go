package main

import (
	"log"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	_ "hls-downloader/docs"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	fx.New(
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Provide(
			newConfig,
			newLogger,
			newDatabase,
			newRepository,
			newFetcher,
			newStorage,
			newMetrics,
			newRedis,
			newManagerOptions,
			newManager,
			newCleanupService,
			newApp,
		),
		fx.Invoke(
			runManager,
			runSubmissionListener,
			runCleanup,
			runHTTP,
		),
	).Run()
}
