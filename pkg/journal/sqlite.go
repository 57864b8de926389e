package journal

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements Store on a local SQLite database
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer; sqlite serializes anyway
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}

	if err := store.createTable(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return store, nil
}

// createTable creates the generations table
func (s *SQLiteStore) createTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS generations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		generation INTEGER NOT NULL,
		timestamp DATETIME NOT NULL,
		load_level INTEGER NOT NULL,
		cpu_usage REAL NOT NULL,
		memory_usage REAL NOT NULL,
		power_usage REAL NOT NULL,
		cpu_threshold REAL NOT NULL,
		memory_threshold REAL NOT NULL,
		power_threshold REAL NOT NULL,
		best_fitness REAL NOT NULL,
		average_fitness REAL NOT NULL,
		worst_fitness REAL NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_generations_run ON generations(run_id, generation);
	CREATE INDEX IF NOT EXISTS idx_generations_timestamp ON generations(timestamp);
	`

	_, err := s.db.Exec(query)
	return err
}

// Record inserts a record
func (s *SQLiteStore) Record(ctx context.Context, record GenerationRecord) error {
	query := `
	INSERT INTO generations (
		run_id, generation, timestamp, load_level,
		cpu_usage, memory_usage, power_usage,
		cpu_threshold, memory_threshold, power_threshold,
		best_fitness, average_fitness, worst_fitness
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query, recordArgs(record)...)
	return err
}

// List retrieves records matching filter, newest first
func (s *SQLiteStore) List(ctx context.Context, filter Filter) ([]GenerationRecord, error) {
	query, args := buildListQuery(filter, func(int) string { return "?" })

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanRecords(rows)
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const selectColumns = `
	id, run_id, generation, timestamp, load_level,
	cpu_usage, memory_usage, power_usage,
	cpu_threshold, memory_threshold, power_threshold,
	best_fitness, average_fitness, worst_fitness`

func recordArgs(r GenerationRecord) []interface{} {
	return []interface{}{
		r.RunID, r.Generation, r.Timestamp.UTC(), r.LoadLevel,
		r.CPUUsage, r.MemoryUsage, r.PowerUsage,
		r.CPUThreshold, r.MemoryThreshold, r.PowerThreshold,
		r.BestFitness, r.AverageFitness, r.WorstFitness,
	}
}

// buildListQuery renders the SELECT for filter; placeholder maps the 1-based
// argument position to the driver's bind syntax.
func buildListQuery(filter Filter, placeholder func(n int) string) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conditions = append(conditions, cond+" "+placeholder(len(args)))
	}

	if filter.RunID != "" {
		add("run_id =", filter.RunID)
	}
	if filter.From != nil {
		add("timestamp >=", filter.From.UTC())
	}
	if filter.To != nil {
		add("timestamp <=", filter.To.UTC())
	}

	query := "SELECT" + selectColumns + "\n\tFROM generations"
	if len(conditions) > 0 {
		query += "\n\tWHERE " + strings.Join(conditions, " AND ")
	}
	query += "\n\tORDER BY id DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	return query, args
}

func scanRecords(rows *sql.Rows) ([]GenerationRecord, error) {
	var records []GenerationRecord
	for rows.Next() {
		var r GenerationRecord
		err := rows.Scan(
			&r.ID, &r.RunID, &r.Generation, &r.Timestamp, &r.LoadLevel,
			&r.CPUUsage, &r.MemoryUsage, &r.PowerUsage,
			&r.CPUThreshold, &r.MemoryThreshold, &r.PowerThreshold,
			&r.BestFitness, &r.AverageFitness, &r.WorstFitness,
		)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
