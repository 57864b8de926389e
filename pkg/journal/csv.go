package journal

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// CSVStore appends one row per generation to a CSV file. The file carries
// no run ID or timestamp, so List ignores those filter fields.
type CSVStore struct {
	path   string
	file   *os.File
	writer *csv.Writer
	mu     sync.Mutex
}

// NewCSVStore opens path for appending and writes the header to a new file
func NewCSVStore(path string) (*CSVStore, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv journal: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat csv journal: %w", err)
	}

	s := &CSVStore{path: path, file: file, writer: csv.NewWriter(file)}
	if info.Size() == 0 {
		if err := s.writer.Write(csvHeader); err != nil {
			file.Close()
			return nil, err
		}
		s.writer.Flush()
	}
	return s, nil
}

// Record appends a record and flushes it
func (s *CSVStore) Record(ctx context.Context, record GenerationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writer.Write(csvRow(record)); err != nil {
		return err
	}
	s.writer.Flush()
	return s.writer.Error()
}

// List reads the file back, newest row first
func (s *CSVStore) List(ctx context.Context, filter Filter) ([]GenerationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := ReadCSV(s.path)
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	if filter.Limit > 0 && len(records) > filter.Limit {
		records = records[:filter.Limit]
	}
	return records, nil
}

// Close flushes and closes the file
func (s *CSVStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.writer.Flush()
	return errors.Join(s.writer.Error(), s.file.Close())
}

// ReadCSV parses a generation log in file order
func ReadCSV(path string) ([]GenerationRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv journal: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = len(csvHeader)

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	var records []GenerationRecord
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		record, err := parseCSVRow(row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		record.ID = int64(line - 1)
		records = append(records, record)
	}
	return records, nil
}
