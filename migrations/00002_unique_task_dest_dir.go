package migrations

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upUniqueTaskDestDir, downUniqueTaskDestDir)
}

// İki görev aynı dizine yazmasın.
func upUniqueTaskDestDir(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, `CREATE UNIQUE INDEX idx_download_tasks_dest_dir ON download_tasks (dest_dir)`); err != nil {
		return fmt.Errorf("could not create dest_dir index: %w", err)
	}
	return nil
}

func downUniqueTaskDestDir(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, `DROP INDEX IF EXISTS idx_download_tasks_dest_dir`); err != nil {
		return fmt.Errorf("could not drop dest_dir index: %w", err)
	}
	return nil
}
