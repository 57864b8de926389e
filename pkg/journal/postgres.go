package journal

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strconv"
	"time"

	_ "github.com/lib/pq"
)

//go:embed migrations/*.sql
var postgresFS embed.FS

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects to dsn and applies the schema
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgresStore{db: db}

	if err := store.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// migrate runs database migrations
func (s *PostgresStore) migrate(ctx context.Context) error {
	schema, err := postgresFS.ReadFile("migrations/001_generations.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, string(schema)); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	return nil
}

// Record inserts a record
func (s *PostgresStore) Record(ctx context.Context, record GenerationRecord) error {
	query := `
		INSERT INTO generations (
			run_id, generation, timestamp, load_level,
			cpu_usage, memory_usage, power_usage,
			cpu_threshold, memory_threshold, power_threshold,
			best_fitness, average_fitness, worst_fitness
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := s.db.ExecContext(ctx, query, recordArgs(record)...)
	return err
}

// List retrieves records matching filter, newest first
func (s *PostgresStore) List(ctx context.Context, filter Filter) ([]GenerationRecord, error) {
	query, args := buildListQuery(filter, func(n int) string { return "$" + strconv.Itoa(n) })

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRecords(rows)
}

// Close closes the connection pool
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
