package journal

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
)

// csvHeader is the column layout of generation logs written by earlier
// releases; CSVStore and Export share it so their files are interchangeable.
var csvHeader = []string{
	"Generation", "LoadLevel",
	"CPU_Usage", "Memory_Usage", "Power_Usage",
	"CPU_Threshold", "Memory_Threshold", "Power_Threshold",
	"Fitness",
}

func csvRow(r GenerationRecord) []string {
	return []string{
		strconv.Itoa(r.Generation),
		strconv.Itoa(r.LoadLevel),
		formatFloat(r.CPUUsage),
		formatFloat(r.MemoryUsage),
		formatFloat(r.PowerUsage),
		formatFloat(r.CPUThreshold),
		formatFloat(r.MemoryThreshold),
		formatFloat(r.PowerThreshold),
		formatFloat(r.BestFitness),
	}
}

func parseCSVRow(row []string) (GenerationRecord, error) {
	if len(row) != len(csvHeader) {
		return GenerationRecord{}, fmt.Errorf("expected %d columns, got %d", len(csvHeader), len(row))
	}

	var (
		r   GenerationRecord
		err error
	)
	if r.Generation, err = strconv.Atoi(row[0]); err != nil {
		return r, fmt.Errorf("generation: %w", err)
	}
	if r.LoadLevel, err = strconv.Atoi(row[1]); err != nil {
		return r, fmt.Errorf("load level: %w", err)
	}

	floats := []*float64{
		&r.CPUUsage, &r.MemoryUsage, &r.PowerUsage,
		&r.CPUThreshold, &r.MemoryThreshold, &r.PowerThreshold,
		&r.BestFitness,
	}
	for i, dst := range floats {
		if *dst, err = strconv.ParseFloat(row[i+2], 64); err != nil {
			return r, fmt.Errorf("column %s: %w", csvHeader[i+2], err)
		}
	}
	return r, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Export renders records in the requested format
func Export(records []GenerationRecord, format ExportFormat) ([]byte, error) {
	switch format {
	case ExportFormatJSON:
		if records == nil {
			records = []GenerationRecord{}
		}
		return json.MarshalIndent(records, "", "  ")
	case ExportFormatCSV:
		return exportCSV(records)
	default:
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
}

// exportCSV exports records as CSV
func exportCSV(records []GenerationRecord) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, record := range records {
		if err := writer.Write(csvRow(record)); err != nil {
			return nil, err
		}
	}

	writer.Flush()
	return buf.Bytes(), writer.Error()
}
