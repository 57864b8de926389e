package journal

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecords(runID string, n int) []GenerationRecord {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	records := make([]GenerationRecord, n)
	for i := range records {
		records[i] = GenerationRecord{
			RunID:           runID,
			Generation:      i + 1,
			Timestamp:       base.Add(time.Duration(i) * 500 * time.Millisecond),
			LoadLevel:       i % 3,
			CPUUsage:        40 + float64(i),
			MemoryUsage:     55.5,
			PowerUsage:      4.25,
			CPUThreshold:    60 + float64(i)/2,
			MemoryThreshold: 70,
			PowerThreshold:  5.5,
			BestFitness:     0.75 + float64(i)/100,
			AverageFitness:  0.5,
			WorstFitness:    -0.125,
		}
	}
	return records
}

// exerciseStore runs the behavior every backend shares.
func exerciseStore(t *testing.T, store Store, fullFidelity bool) {
	t.Helper()
	ctx := context.Background()
	runID := uuid.NewString()

	records := sampleRecords(runID, 5)
	for _, r := range records {
		require.NoError(t, store.Record(ctx, r))
	}

	all, err := store.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, 5, all[0].Generation)
	assert.Equal(t, 1, all[4].Generation)
	assert.Equal(t, records[4].CPUThreshold, all[0].CPUThreshold)
	assert.Equal(t, records[4].BestFitness, all[0].BestFitness)

	limited, err := store.List(ctx, Filter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, 4, limited[1].Generation)

	if !fullFidelity {
		return
	}

	assert.Equal(t, runID, all[0].RunID)
	assert.True(t, records[4].Timestamp.Equal(all[0].Timestamp))
	assert.Equal(t, -0.125, all[0].WorstFitness)

	from := records[2].Timestamp
	ranged, err := store.List(ctx, Filter{From: &from})
	require.NoError(t, err)
	assert.Len(t, ranged, 3)

	other, err := store.List(ctx, Filter{RunID: uuid.NewString()})
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	exerciseStore(t, store, true)
}

func TestCSVStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "generations.csv")
	store, err := NewCSVStore(path)
	require.NoError(t, err)
	exerciseStore(t, store, false)
	require.NoError(t, store.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "Generation,LoadLevel,CPU_Usage,Memory_Usage,Power_Usage,CPU_Threshold,Memory_Threshold,Power_Threshold,Fitness", lines[0])
	assert.Equal(t, "1,0,40,55.5,4.25,60,70,5.5,0.75", lines[1])
}

func TestCSVStore_ReopenKeepsSingleHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "generations.csv")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		store, err := NewCSVStore(path)
		require.NoError(t, err)
		require.NoError(t, store.Record(ctx, sampleRecords("run", 1)[0]))
		require.NoError(t, store.Close())
	}

	records, err := ReadCSV(path)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestReadCSV_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	content := strings.Join(csvHeader, ",") + "\n1,0,abc,1,1,1,1,1,1\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := ReadCSV(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestSQLiteStore(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil && strings.Contains(err.Error(), "CGO_ENABLED=0") {
		t.Skip("sqlite3 driver needs cgo")
	}
	require.NoError(t, err)
	defer store.Close()

	exerciseStore(t, store, true)
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("ERA_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("ERA_TEST_POSTGRES_DSN not set")
	}

	store, err := NewPostgresStore(context.Background(), dsn)
	require.NoError(t, err)
	defer store.Close()

	_, err = store.db.Exec("TRUNCATE generations")
	require.NoError(t, err)

	exerciseStore(t, store, true)
}

func TestBuildListQuery(t *testing.T) {
	from := time.Unix(0, 0)
	query, args := buildListQuery(Filter{RunID: "r", From: &from, Limit: 10}, func(n int) string { return "$" + strconv.Itoa(n) })

	assert.Contains(t, query, "WHERE run_id = $1 AND timestamp >= $2")
	assert.Contains(t, query, "ORDER BY id DESC LIMIT 10")
	assert.Len(t, args, 2)
}

func TestExport(t *testing.T) {
	records := sampleRecords("run-1", 2)

	t.Run("csv", func(t *testing.T) {
		out, err := Export(records, ExportFormatCSV)
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(string(out)), "\n")
		require.Len(t, lines, 3)
		assert.True(t, strings.HasPrefix(lines[0], "Generation,LoadLevel"))
		assert.Equal(t, "2,1,41,55.5,4.25,60.5,70,5.5,0.76", lines[2])
	})

	t.Run("json", func(t *testing.T) {
		out, err := Export(records, ExportFormatJSON)
		require.NoError(t, err)
		var decoded []GenerationRecord
		require.NoError(t, json.Unmarshal(out, &decoded))
		require.Len(t, decoded, 2)
		assert.Equal(t, "run-1", decoded[0].RunID)
	})

	t.Run("json empty is an array", func(t *testing.T) {
		out, err := Export(nil, ExportFormatJSON)
		require.NoError(t, err)
		assert.Equal(t, "[]", string(out))
	})

	t.Run("unsupported", func(t *testing.T) {
		_, err := Export(records, "xml")
		assert.Error(t, err)
	})
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	store, err := Open(ctx, Config{Backend: BackendNone})
	require.NoError(t, err)
	assert.Nil(t, store)

	store, err = Open(ctx, Config{Backend: BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)

	store, err = Open(ctx, Config{Backend: BackendCSV, Path: filepath.Join(t.TempDir(), "g.csv")})
	require.NoError(t, err)
	assert.IsType(t, &CSVStore{}, store)
	require.NoError(t, store.Close())

	_, err = Open(ctx, Config{Backend: BackendCSV})
	assert.Error(t, err)

	_, err = Open(ctx, Config{Backend: "mongodb"})
	assert.ErrorIs(t, err, ErrUnknownBackend)
}
