package journal

import (
	"context"
	"errors"
	"time"
)

// ErrUnknownBackend is returned by Open for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown journal backend")

// GenerationRecord is one evolved generation as the optimizer saw it.
type GenerationRecord struct {
	ID              int64     `json:"id,omitempty"`
	RunID           string    `json:"run_id"`
	Generation      int       `json:"generation"`
	Timestamp       time.Time `json:"timestamp"`
	LoadLevel       int       `json:"load_level"`
	CPUUsage        float64   `json:"cpu_usage"`
	MemoryUsage     float64   `json:"memory_usage"`
	PowerUsage      float64   `json:"power_usage"`
	CPUThreshold    float64   `json:"cpu_threshold"`
	MemoryThreshold float64   `json:"memory_threshold"`
	PowerThreshold  float64   `json:"power_threshold"`
	BestFitness     float64   `json:"best_fitness"`
	AverageFitness  float64   `json:"average_fitness"`
	WorstFitness    float64   `json:"worst_fitness"`
}

// Filter narrows List results. Records come back newest generation first.
type Filter struct {
	RunID string     `json:"run_id,omitempty"`
	From  *time.Time `json:"from,omitempty"`
	To    *time.Time `json:"to,omitempty"`
	Limit int        `json:"limit,omitempty"`
}

func (f Filter) matches(r GenerationRecord) bool {
	if f.RunID != "" && r.RunID != f.RunID {
		return false
	}
	if f.From != nil && r.Timestamp.Before(*f.From) {
		return false
	}
	if f.To != nil && r.Timestamp.After(*f.To) {
		return false
	}
	return true
}

// ExportFormat represents supported export formats
type ExportFormat string

const (
	ExportFormatJSON ExportFormat = "json"
	ExportFormatCSV  ExportFormat = "csv"
)

// Store persists generation records.
type Store interface {
	// Record appends a record
	Record(ctx context.Context, record GenerationRecord) error

	// List retrieves records matching filter
	List(ctx context.Context, filter Filter) ([]GenerationRecord, error)

	// Close releases the underlying resources
	Close() error
}
