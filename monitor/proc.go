package monitor

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/snow-ghost/era/pkg/limiter"
)

var (
	// ErrNoSample means a reading could not be turned into a usage value,
	// e.g. no CPU ticks elapsed between two samples. It is transient.
	ErrNoSample = errors.New("no usable sample")
)

// DefaultSampleWindow separates the two /proc/stat reads.
const DefaultSampleWindow = 100 * time.Millisecond

// cpuTimes is the aggregate "cpu" line of /proc/stat.
type cpuTimes struct {
	idle  uint64
	total uint64
}

// ProcCPU measures CPU utilization from two /proc/stat samples.
type ProcCPU struct {
	root   string
	window time.Duration
}

// NewProcCPU reads <root>/stat. An empty root means /proc.
func NewProcCPU(root string, window time.Duration) *ProcCPU {
	if root == "" {
		root = "/proc"
	}
	if window <= 0 {
		window = DefaultSampleWindow
	}
	return &ProcCPU{root: root, window: window}
}

// Read returns busy time as a percentage of all time over the window.
// Idle time counts idle plus iowait.
func (p *ProcCPU) Read(ctx context.Context) (float64, error) {
	first, err := p.sample()
	if err != nil {
		return 0, err
	}

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-time.After(p.window):
	}

	second, err := p.sample()
	if err != nil {
		return 0, err
	}

	return cpuUsage(first, second)
}

func (p *ProcCPU) sample() (cpuTimes, error) {
	data, err := os.ReadFile(filepath.Join(p.root, "stat"))
	if err != nil {
		return cpuTimes{}, fmt.Errorf("failed to read cpu stats: %w", err)
	}
	return parseProcStat(data)
}

func parseProcStat(data []byte) (cpuTimes, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || fields[0] != "cpu" {
			continue
		}
		// user nice system idle iowait irq softirq steal
		if len(fields) < 9 {
			return cpuTimes{}, fmt.Errorf("short cpu line: %d fields", len(fields))
		}

		var values [8]uint64
		for i := range values {
			v, err := strconv.ParseUint(fields[i+1], 10, 64)
			if err != nil {
				return cpuTimes{}, fmt.Errorf("invalid cpu field %q: %w", fields[i+1], err)
			}
			values[i] = v
		}

		t := cpuTimes{idle: values[3] + values[4]}
		for _, v := range values {
			t.total += v
		}
		return t, nil
	}
	return cpuTimes{}, errors.New("no aggregate cpu line in stat")
}

func cpuUsage(first, second cpuTimes) (float64, error) {
	if second.total <= first.total {
		return 0, limiter.Retryable(ErrNoSample)
	}
	totalDelta := float64(second.total - first.total)
	// iowait, and with it idle, can go backwards between samples
	idleDelta := 0.0
	if second.idle > first.idle {
		idleDelta = float64(second.idle - first.idle)
	}
	return clampPercent(100 * (1 - idleDelta/totalDelta)), nil
}

// ProcMemory reports used memory from /proc/meminfo.
type ProcMemory struct {
	root string
}

// NewProcMemory reads <root>/meminfo. An empty root means /proc.
func NewProcMemory(root string) *ProcMemory {
	if root == "" {
		root = "/proc"
	}
	return &ProcMemory{root: root}
}

// Read returns (MemTotal - MemFree - Buffers - Cached) / MemTotal in percent.
func (p *ProcMemory) Read(ctx context.Context) (float64, error) {
	data, err := os.ReadFile(filepath.Join(p.root, "meminfo"))
	if err != nil {
		return 0, fmt.Errorf("failed to read meminfo: %w", err)
	}
	return parseMeminfo(data)
}

func parseMeminfo(data []byte) (float64, error) {
	values := make(map[string]float64, 4)

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		key, rest, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			continue
		}
		switch key {
		case "MemTotal", "MemFree", "Buffers", "Cached":
		default:
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			continue
		}
		v, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s value %q: %w", key, fields[0], err)
		}
		values[key] = v
	}

	total := values["MemTotal"]
	if total <= 0 {
		return 0, fmt.Errorf("meminfo: %w", ErrNoSample)
	}
	used := total - values["MemFree"] - values["Buffers"] - values["Cached"]
	return clampPercent(100 * used / total), nil
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
