package actuator

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/snow-ghost/era/core"
)

// CPUPeriod is the cgroup v2 cpu.max period in microseconds.
const CPUPeriod = 100000

// CPU caps the cgroup's CPU bandwidth while usage exceeds the threshold
// and lifts the cap once it no longer does.
type CPU struct {
	base
	cgroup string
	cpus   int

	mu   sync.Mutex
	last string
}

// NewCPU controls <cgroup>/cpu.max. cpus of zero means runtime.NumCPU.
func NewCPU(reader core.UsageReader, cgroup string, cpus int, opts Options) (*CPU, error) {
	b, err := newBase(core.ResourceCPU, reader, opts)
	if err != nil {
		return nil, err
	}
	if cpus <= 0 {
		cpus = runtime.NumCPU()
	}
	return &CPU{base: b, cgroup: cgroup, cpus: cpus}, nil
}

func (c *CPU) Apply(ctx context.Context, threshold float64) error {
	usage, err := c.usage(ctx)
	if err != nil {
		return err
	}

	value := c.quota(usage, threshold)

	c.mu.Lock()
	defer c.mu.Unlock()
	if value == c.last {
		return nil
	}

	action := "cap-cpu"
	if value == "max" {
		action = "uncap-cpu"
	}
	err = c.execute(ctx, usage, threshold, []write{{
		action: action,
		path:   filepath.Join(c.cgroup, "cpu.max"),
		value:  fmt.Sprintf("%s %d", value, CPUPeriod),
	}})
	if err == nil {
		c.last = value
	}
	return err
}

// quota returns the cpu.max quota field: threshold percent of all CPUs, or
// "max" when usage is within the threshold.
func (c *CPU) quota(usage, threshold float64) string {
	if usage <= threshold {
		return "max"
	}
	q := int64(threshold / 100 * CPUPeriod * float64(c.cpus))
	if q < 1000 {
		q = 1000
	}
	return fmt.Sprintf("%d", q)
}
