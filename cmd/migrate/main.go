// migrate applies the database schema. The statements are idempotent, so the
// tool can run on every deploy.
package main

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"leafwise/internal/infra"
)

//go:embed schema.sql
var schema string

func main() {
	logger := infra.NewLogger("cli").With().Str("cmd", "migrate").Logger()

	dbURL := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dbURL == "" {
		exitWithError(errors.New("DATABASE_URL is required"))
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		exitWithError(fmt.Errorf("failed to open database: %w", err))
	}
	defer db.Close()
	db.SetConnMaxLifetime(time.Minute)

	if err := db.Ping(); err != nil {
		exitWithError(fmt.Errorf("failed to reach database: %w", err))
	}

	start := time.Now()
	if _, err := db.Exec(schema); err != nil {
		exitWithError(fmt.Errorf("failed to apply schema: %w", err))
	}
	logger.Info().Dur("elapsed", time.Since(start)).Msg("schema applied")
}

func exitWithError(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
