package migrations

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateDownloadTables, downCreateDownloadTables)
}

func upCreateDownloadTables(ctx context.Context, tx *sql.Tx) error {
	// download_tasks tablosu:
	createTaskTable := `
	CREATE TABLE download_tasks (
		id VARCHAR(36) PRIMARY KEY,
		content_id VARCHAR(255),
		episode INTEGER NOT NULL DEFAULT 0,
		title VARCHAR(500),
		episode_title VARCHAR(500),
		master_url TEXT,
		manifest_url TEXT NOT NULL,
		quality VARCHAR(20),
		audio_language VARCHAR(50),
		audio_group_id VARCHAR(100),
		audio_url TEXT,
		dest_dir TEXT NOT NULL,
		total_segments INTEGER NOT NULL DEFAULT 0,
		downloaded_segments INTEGER NOT NULL DEFAULT 0,
		total_bytes BIGINT NOT NULL DEFAULT 0,
		downloaded_bytes BIGINT NOT NULL DEFAULT 0,
		status VARCHAR(20) NOT NULL,
		error_message TEXT,
		retry_count INTEGER NOT NULL DEFAULT 0,
		encrypted BOOLEAN NOT NULL DEFAULT FALSE,
		referer TEXT,
		cookie TEXT,
		created_at TIMESTAMP,
		updated_at TIMESTAMP,
		started_at TIMESTAMP,
		completed_at TIMESTAMP,
		paused_at TIMESTAMP
	);
	`
	if _, err := tx.ExecContext(ctx, createTaskTable); err != nil {
		return fmt.Errorf("could not create download_tasks table: %w", err)
	}

	// download_segments tablosu:
	createSegmentTable := fmt.Sprintf(`
	CREATE TABLE download_segments (
		id %s,
		task_id VARCHAR(36) NOT NULL REFERENCES download_tasks(id) ON DELETE CASCADE,
		seg_index INTEGER NOT NULL,
		url TEXT NOT NULL,
		file_path TEXT NOT NULL,
		duration DOUBLE PRECISION NOT NULL DEFAULT 0,
		file_size BIGINT NOT NULL DEFAULT 0,
		downloaded_bytes BIGINT NOT NULL DEFAULT 0,
		status VARCHAR(20) NOT NULL,
		error_message TEXT,
		retry_count INTEGER NOT NULL DEFAULT 0,
		key_method VARCHAR(20),
		key_uri TEXT,
		key_iv VARCHAR(64),
		created_at TIMESTAMP,
		updated_at TIMESTAMP
	);
	`, autoIncrementPK())
	if _, err := tx.ExecContext(ctx, createSegmentTable); err != nil {
		return fmt.Errorf("could not create download_segments table: %w", err)
	}

	// download_settings tablosu (tek satır):
	createSettingsTable := `
	CREATE TABLE download_settings (
		id INTEGER PRIMARY KEY,
		max_parallel_downloads INTEGER NOT NULL,
		max_parallel_segments INTEGER NOT NULL,
		wifi_only BOOLEAN NOT NULL,
		auto_resume BOOLEAN NOT NULL,
		updated_at TIMESTAMP
	);
	`
	if _, err := tx.ExecContext(ctx, createSettingsTable); err != nil {
		return fmt.Errorf("could not create download_settings table: %w", err)
	}

	indexes := []string{
		`CREATE INDEX idx_download_tasks_status ON download_tasks (status)`,
		`CREATE INDEX idx_download_tasks_created_at ON download_tasks (created_at)`,
		`CREATE INDEX idx_download_tasks_content_id ON download_tasks (content_id)`,
		`CREATE UNIQUE INDEX idx_segment_task_index ON download_segments (task_id, seg_index)`,
		`CREATE INDEX idx_download_segments_status ON download_segments (status)`,
	}
	for _, stmt := range indexes {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("could not create index: %w", err)
		}
	}

	return nil
}

func downCreateDownloadTables(ctx context.Context, tx *sql.Tx) error {
	// Tabloları silme işlemini ters sırada yap.
	dropTables := []string{"download_settings", "download_segments", "download_tasks"}
	for _, table := range dropTables {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s;", table)); err != nil {
			return fmt.Errorf("could not drop table %s: %w", table, err)
		}
	}
	return nil
}
