package actuator

import (
	"context"
	"path/filepath"

	"github.com/snow-ghost/era/core"
)

// Margins above the threshold that trigger each memory action.
const (
	CompactMargin    = 5.0
	DropCachesMargin = 10.0
)

// Memory reclaims page cache and compacts memory when usage runs past the
// threshold.
type Memory struct {
	base
	vm string
}

// NewMemory writes below <procRoot>/sys/vm.
func NewMemory(reader core.UsageReader, procRoot string, opts Options) (*Memory, error) {
	b, err := newBase(core.ResourceMemory, reader, opts)
	if err != nil {
		return nil, err
	}
	if procRoot == "" {
		procRoot = "/proc"
	}
	return &Memory{base: b, vm: filepath.Join(procRoot, "sys", "vm")}, nil
}

func (m *Memory) Apply(ctx context.Context, threshold float64) error {
	usage, err := m.usage(ctx)
	if err != nil {
		return err
	}

	var plan []write
	if usage > threshold+DropCachesMargin {
		if !m.dryRun {
			syncFilesystems()
		}
		plan = append(plan, write{action: "drop-caches", path: filepath.Join(m.vm, "drop_caches"), value: "3"})
	}
	if usage > threshold+CompactMargin {
		plan = append(plan, write{action: "compact-memory", path: filepath.Join(m.vm, "compact_memory"), value: "1"})
	}
	if len(plan) == 0 {
		return nil
	}
	return m.execute(ctx, usage, threshold, plan)
}
