package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"claims-service/internal/config"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

var DBStatus bool

func ConnectAndCreateDB(cfg config.PostgresConfig) (*sqlx.DB, error) {
	defaultConnStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=postgres sslmode=disable",
		cfg.Host, cfg.Port, cfg.Username, cfg.Password)

	slog.Info("Connecting to PostgreSQL", "host", cfg.Host, "port", cfg.Port, "user", cfg.Username, "dbname", cfg.DBname)

	defaultDB, err := sql.Open("postgres", defaultConnStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to default postgres db: %w", err)
	}
	defer defaultDB.Close()

	var exists bool
	checkQuery := `SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)`
	err = defaultDB.QueryRow(checkQuery, cfg.DBname).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("failed to check if database exists: %w", err)
	}

	if !exists {
		createQuery := fmt.Sprintf(`CREATE DATABASE "%s"`, cfg.DBname)
		if _, err = defaultDB.Exec(createQuery); err != nil {
			return nil, fmt.Errorf("failed to create database %s: %w", cfg.DBname, err)
		}
		slog.Info("Database created", "dbname", cfg.DBname)
	}

	targetConnStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.DBname)

	db, err := sqlx.Connect("postgres", targetConnStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to target database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping target database: %w", err)
	}

	// Execute schema.sql if database was newly created
	if !exists {
		if err := ApplySchema(context.Background(), db, ""); err != nil {
			// allow manual schema setup
			slog.Warn("Failed to execute schema.sql", "error", err)
		}
	}

	DBStatus = true
	return db, nil
}

// ApplySchema executes schema.sql statement by statement. An empty path
// searches the usual locations.
func ApplySchema(ctx context.Context, db *sqlx.DB, path string) error {
	schemaPath := path
	if schemaPath == "" {
		schemaPath = findSchema()
	}
	if schemaPath == "" {
		return fmt.Errorf("schema.sql not found")
	}

	schemaContent, err := os.ReadFile(schemaPath)
	if err != nil {
		return fmt.Errorf("failed to read schema.sql from %s: %w", schemaPath, err)
	}

	slog.Info("Executing schema", "path", schemaPath)

	successCount, failed := 0, 0
	for i, statement := range splitStatements(string(schemaContent)) {
		if _, err := db.ExecContext(ctx, statement); err != nil {
			failed++
			slog.Warn("Failed to execute schema statement",
				"index", i+1,
				"statement", statement[:min(100, len(statement))],
				"error", err)
			continue
		}
		successCount++
	}

	slog.Info("Schema execution completed", "succeeded", successCount, "failed", failed)
	if failed > 0 {
		return fmt.Errorf("%d schema statements failed", failed)
	}
	return nil
}

func findSchema() string {
	schemaLocations := []string{
		"schema.sql",
		"/app/schema.sql",
		filepath.Join(os.Getenv("PWD"), "schema.sql"),
	}
	for _, location := range schemaLocations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}
	return ""
}

// splitStatements splits on semicolons and drops comment-only chunks.
func splitStatements(schema string) []string {
	var out []string
	for _, raw := range strings.Split(schema, ";") {
		var lines []string
		for _, line := range strings.Split(raw, "\n") {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" || strings.HasPrefix(trimmed, "--") {
				continue
			}
			lines = append(lines, line)
		}
		if stmt := strings.TrimSpace(strings.Join(lines, "\n")); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

// RetryConnectOnFailed blocks until the database answers a ping.
func RetryConnectOnFailed(waitAmount time.Duration, db **sqlx.DB, cfg config.PostgresConfig) {
	for {
		if *db != nil {
			err := (*db).Ping()
			if err == nil {
				DBStatus = true
				return
			}
			slog.Warn("Failed to ping database, retrying connection", "error", err)
		}

		newDB, err := ConnectAndCreateDB(cfg)
		if err == nil {
			*db = newDB
			slog.Info("Database connection re-established")
			return
		}
		DBStatus = false
		slog.Error("Failed to connect database", "error", err, "next_retry_in", waitAmount)
		time.Sleep(waitAmount)
	}
}
