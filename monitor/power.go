package monitor

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrNoPowerSupply is returned when neither a battery nor a thermal zone
// can be read.
var ErrNoPowerSupply = errors.New("no power supply readings")

// SysfsPower sums battery draw under <sys>/class/power_supply/BAT*.
type SysfsPower struct {
	root string
}

// NewSysfsPower reads below root. An empty root means /sys.
func NewSysfsPower(root string) *SysfsPower {
	if root == "" {
		root = "/sys"
	}
	return &SysfsPower{root: root}
}

// Read returns the total draw in watts. Each battery contributes power_now
// (µW) or current_now·voltage_now (µA·µV). With no battery draw the
// estimate falls back to thermal_zone0.
func (p *SysfsPower) Read(ctx context.Context) (float64, error) {
	batteries, err := filepath.Glob(filepath.Join(p.root, "class", "power_supply", "BAT*"))
	if err != nil {
		return 0, fmt.Errorf("failed to list power supplies: %w", err)
	}

	total := 0.0
	for _, dir := range batteries {
		total += batteryWatts(dir)
	}
	if total > 0 {
		return total, nil
	}

	if watts, ok := p.thermalEstimate(); ok {
		return watts, nil
	}
	return 0, ErrNoPowerSupply
}

func batteryWatts(dir string) float64 {
	if microwatts, err := readSysfsFloat(filepath.Join(dir, "power_now")); err == nil {
		return microwatts / 1e6
	}

	current, err := readSysfsFloat(filepath.Join(dir, "current_now"))
	if err != nil || current <= 0 {
		return 0
	}
	voltage, err := readSysfsFloat(filepath.Join(dir, "voltage_now"))
	if err != nil || voltage <= 0 {
		return 0
	}
	return (current / 1e6) * (voltage / 1e6)
}

// thermalEstimate maps the first thermal zone temperature to 2..10 W.
func (p *SysfsPower) thermalEstimate() (float64, bool) {
	millicelsius, err := readSysfsFloat(filepath.Join(p.root, "class", "thermal", "thermal_zone0", "temp"))
	if err != nil {
		return 0, false
	}
	celsius := millicelsius / 1000
	return math.Max(2, math.Min(10, 2+(celsius-40)*0.1)), true
}

func readSysfsFloat(path string) (float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
}
