package app

import (
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/tickerplot/nsepulse/db"
)

// RunMigrations applies any pending schema migrations from the embedded
// migration set. Safe to call on every startup; goose tracks applied versions.
func RunMigrations(conn *sql.DB) error {
	goose.SetBaseFS(db.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(conn, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
