package actuator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/snow-ghost/era/core"
)

const (
	// DimMargin is how far over the threshold the backlight gets dimmed.
	DimMargin = 2.0
	// RelaxRatio restores the governor once usage drops below this share
	// of the threshold.
	RelaxRatio = 0.7

	powersave = "powersave"
)

// Power switches every CPU to the powersave governor while draw exceeds
// the threshold, dims backlights when it exceeds it by DimMargin, and
// restores the configured governor once draw falls well below it.
type Power struct {
	base
	sys      string
	governor string

	mu     sync.Mutex
	saving bool
}

// NewPower writes below sysRoot. governor is the one restored when power
// saving ends; empty means schedutil.
func NewPower(reader core.UsageReader, sysRoot, governor string, opts Options) (*Power, error) {
	b, err := newBase(core.ResourcePower, reader, opts)
	if err != nil {
		return nil, err
	}
	if sysRoot == "" {
		sysRoot = "/sys"
	}
	if governor == "" {
		governor = "schedutil"
	}
	return &Power{base: b, sys: sysRoot, governor: governor}, nil
}

func (p *Power) Apply(ctx context.Context, threshold float64) error {
	usage, err := p.usage(ctx)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var plan []write
	switch {
	case usage > threshold:
		if !p.saving {
			plan = append(plan, p.governorWrites("powersave-governor", powersave)...)
		}
		if usage > threshold+DimMargin {
			plan = append(plan, p.dimWrites()...)
		}
	case usage < threshold*RelaxRatio && p.saving:
		plan = append(plan, p.governorWrites("restore-governor", p.governor)...)
	default:
		return nil
	}

	if len(plan) == 0 {
		return nil
	}
	if err := p.execute(ctx, usage, threshold, plan); err != nil {
		return err
	}
	p.saving = usage > threshold
	return nil
}

func (p *Power) governorWrites(action, governor string) []write {
	paths, _ := filepath.Glob(filepath.Join(p.sys, "devices", "system", "cpu", "cpu[0-9]*", "cpufreq", "scaling_governor"))

	plan := make([]write, 0, len(paths))
	for _, path := range paths {
		plan = append(plan, write{action: action, path: path, value: governor})
	}
	return plan
}

// dimWrites lowers each backlight by a fifth, never below a tenth of its
// maximum.
func (p *Power) dimWrites() []write {
	dirs, _ := filepath.Glob(filepath.Join(p.sys, "class", "backlight", "*"))

	var plan []write
	for _, dir := range dirs {
		current, err := readInt(filepath.Join(dir, "brightness"))
		if err != nil {
			continue
		}
		maximum, err := readInt(filepath.Join(dir, "max_brightness"))
		if err != nil || maximum <= 0 {
			continue
		}

		target := current * 4 / 5
		if floor := maximum / 10; target < floor {
			target = floor
		}
		if target >= current {
			continue
		}
		plan = append(plan, write{
			action: "dim-backlight",
			path:   filepath.Join(dir, "brightness"),
			value:  strconv.Itoa(target),
		})
	}
	return plan
}

func readInt(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid value in %s: %w", path, err)
	}
	return v, nil
}
