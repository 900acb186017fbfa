package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hls-downloader/internal/domain/entities"
	"hls-downloader/internal/pkg/config"
	"hls-downloader/migrations"
)

func TestOpenSQLiteAutoMigrate(t *testing.T) {
	cfg := config.DatabaseConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "nested", "a.db")}

	database, err := Open(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)

	assert.True(t, database.Migrator().HasTable(&entities.DownloadTask{}))
	assert.True(t, database.Migrator().HasTable(&entities.DownloadSegment{}))
	assert.True(t, database.Migrator().HasTable(&entities.DownloadSettings{}))
}

func TestOpenSQLiteGooseMigrations(t *testing.T) {
	cfg := config.DatabaseConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "b.db"), AutoMigration: true}

	database, err := Open(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)

	sqlDB, err := database.DB()
	require.NoError(t, err)
	version, err := migrations.Version(sqlDB)
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)

	task := entities.DownloadTask{ManifestURL: "https://x/a.m3u8", DestDir: "/tmp/a"}
	require.NoError(t, database.Create(&task).Error)
	assert.NotEmpty(t, task.ID)

	seg := entities.DownloadSegment{TaskID: task.ID, Index: 0, URL: "u", FilePath: "p", Status: entities.SegmentPending}
	require.NoError(t, database.Create(&seg).Error)
	dup := entities.DownloadSegment{TaskID: task.ID, Index: 0, URL: "u", FilePath: "p", Status: entities.SegmentPending}
	assert.Error(t, database.Create(&dup).Error, "(task_id, seg_index) must be unique")

	sameDir := entities.DownloadTask{ManifestURL: "https://x/b.m3u8", DestDir: "/tmp/a"}
	assert.Error(t, database.Create(&sameDir).Error, "dest_dir must be unique")
}
