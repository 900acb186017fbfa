// Package migrations holds the versioned goose schema for postgres and
// sqlite deployments.
package migrations

import (
	"context"
	"database/sql"
	"sync"

	"github.com/pressly/goose/v3"
)

var (
	mu      sync.Mutex
	dialect = "postgres"
)

// Run applies every pending migration. driver is "postgres" or "sqlite".
func Run(ctx context.Context, db *sql.DB, driver string) error {
	mu.Lock()
	defer mu.Unlock()

	dialect = "postgres"
	if driver == "sqlite" {
		dialect = "sqlite3"
	}
	goose.SetBaseFS(nil)
	if err := goose.SetDialect(dialect); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

// Version reports the applied schema version.
func Version(db *sql.DB) (int64, error) {
	mu.Lock()
	defer mu.Unlock()
	return goose.GetDBVersion(db)
}

func autoIncrementPK() string {
	if dialect == "sqlite3" {
		return "INTEGER PRIMARY KEY AUTOINCREMENT"
	}
	return "BIGSERIAL PRIMARY KEY"
}
