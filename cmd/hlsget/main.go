package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"hls-downloader/internal/domain/dto"
	"hls-downloader/internal/domain/entities"
	"hls-downloader/internal/infrastructure/db"
	"hls-downloader/internal/infrastructure/fetcher"
	"hls-downloader/internal/infrastructure/platform"
	infra_repo "hls-downloader/internal/infrastructure/repositories"
	"hls-downloader/internal/infrastructure/storage"
	"hls-downloader/internal/pkg/config"
	"hls-downloader/internal/pkg/logger"
	"hls-downloader/internal/usecases"
	"hls-downloader/pkg/file"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Config yüklenemedi: %v", err)
	}

	url := flag.String("url", "", "Master veya media playlist URL'i")
	out := flag.String("out", cfg.Download.RootDir, "İndirme kök dizini")
	title := flag.String("title", "", "Başlık (dizin adı)")
	episode := flag.Int("episode", 0, "Bölüm numarası")
	quality := flag.String("quality", "", "İstenen kalite, örn. 1080p (boş: en yüksek)")
	audio := flag.String("audio", "", "Ses dili veya adı")
	referer := flag.String("referer", "", "Referer başlığı")
	cookie := flag.String("cookie", "", "Cookie başlığı")
	dbPath := flag.String("db", cfg.Database.Path, "SQLite dosyası")
	resumeID := flag.String("resume", "", "Duraklatılmış görevi kaldığı yerden sürdür")
	list := flag.Bool("list", false, "Kayıtlı görevleri listele")
	flag.Parse()

	cfg.Download.RootDir = *out
	cfg.Database.Driver = "sqlite"
	cfg.Database.Path = *dbPath
	if err := cfg.EnsureDirs(); err != nil {
		log.Fatalf("İndirme dizini oluşturulamadı: %v", err)
	}

	zlog, err := logger.New(config.LogConfig{Level: "warn", Env: "development"})
	if err != nil {
		log.Fatalf("Logger oluşturulamadı: %v", err)
	}
	defer zlog.Sync()

	ctx := context.Background()
	database, err := db.Open(ctx, cfg.Database, zlog)
	if err != nil {
		log.Fatalf("DB bağlantısı başarısız: %v", err)
	}

	manager := usecases.NewDownloadManager(
		infra_repo.NewDownloadRepository(database),
		fetcher.NewHTTPFetcher(fetcher.Options{
			ResponseHeaderTimeout: cfg.Download.RequestTimeout,
			RequestsPerSecond:     cfg.Download.RequestsPerSecond,
		}, zlog),
		storage.NewLocalStorage(cfg.Download.RootDir),
		zlog,
		usecases.ManagerOptions{
			UserAgent:    cfg.Download.UserAgent,
			PollInterval: cfg.Download.PollInterval,
			Network:      platform.NewInterfaceNetwork(cfg.Download.UnmeteredInterfaces),
			Disk:         platform.NewDiskGuard(cfg.Download.RootDir, cfg.Download.MinFreeBytes),
		},
	)

	if *list {
		printTasks(manager)
		return
	}

	task, err := start(ctx, manager, *resumeID, &dto.SubmitDownloadRequestDTO{
		URL:           *url,
		Quality:       *quality,
		AudioLanguage: *audio,
		Title:         *title,
		Episode:       *episode,
		Referer:       *referer,
		Cookie:        *cookie,
	})
	if err != nil {
		log.Fatalf("Görev başlatılamadı: %v", err)
	}

	events, unsubscribe := manager.Subscribe(task.ID)
	defer unsubscribe()

	if err := manager.Start(ctx); err != nil {
		log.Fatalf("İndirme yöneticisi başlatılamadı: %v", err)
	}
	defer manager.Stop()

	fmt.Printf("Görev: %s\n", task.ID)
	fmt.Printf("Hedef: %s\n", task.DestDir)
	fmt.Printf("Kalite: %s\n", task.Quality)
	fmt.Println("Ctrl+C ile duraklatabilirsiniz...")

	// İptal sinyalini yakala
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var last entities.ProgressEvent
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			last = ev
			if !ev.Terminal() {
				continue
			}
			printProgress(last)
			fmt.Println()
			finish(last)
			return

		case <-ticker.C:
			if last.TaskID != "" {
				printProgress(last)
			}

		case <-sigCh:
			fmt.Println("\nİndirme duraklatılıyor...")
			if err := manager.Pause(task.ID); err != nil {
				log.Printf("Duraklatılamadı: %v", err)
				return
			}
			fmt.Printf("Devam etmek için: hlsget -db %s -out %s -resume %s\n", *dbPath, *out, task.ID)
			return
		}
	}
}

func start(ctx context.Context, manager usecases.DownloadManager, resumeID string, req *dto.SubmitDownloadRequestDTO) (*entities.DownloadTask, error) {
	if resumeID != "" {
		if err := manager.Resume(resumeID); err != nil {
			return nil, err
		}
		return manager.GetTask(resumeID)
	}
	if strings.TrimSpace(req.URL) == "" {
		return nil, fmt.Errorf("-url zorunlu")
	}
	if req.Title == "" {
		req.Title = file.TitleFromURL(req.URL)
	}
	return manager.SubmitURL(ctx, req)
}

func printProgress(ev entities.ProgressEvent) {
	fmt.Printf("\rİlerleme: %d/%d segment, %.1f%%, %s, %s/s   ",
		ev.DownloadedSegments, ev.TotalSegments, ev.Progress*100,
		humanBytes(float64(ev.DownloadedBytes)), humanBytes(ev.Speed))
}

func finish(ev entities.ProgressEvent) {
	switch ev.Status {
	case entities.TaskCompleted:
		fmt.Println("İndirme tamamlandı")
	case entities.TaskFailed:
		log.Printf("İndirme başarısız: %s", ev.Error)
	default:
		fmt.Printf("İndirme durdu: %s\n", ev.Status)
	}
}

func printTasks(manager usecases.DownloadManager) {
	tasks, err := manager.ListTasks()
	if err != nil {
		log.Fatalf("Görevler listelenemedi: %v", err)
	}
	for _, t := range tasks {
		fmt.Printf("%s  %-11s  %4d/%-4d  %-6s  %s\n",
			t.ID, t.Status, t.DownloadedSegments, t.TotalSegments, t.Quality, t.DestDir)
	}
}

func humanBytes(n float64) string {
	units := []string{"B", "KB", "MB", "GB"}
	i := 0
	for n >= 1024 && i < len(units)-1 {
		n /= 1024
		i++
	}
	return fmt.Sprintf("%.1f %s", n, units[i])
}
