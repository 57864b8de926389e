package monitor

import (
	"context"
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
	"github.com/snow-ghost/era/core"
	"github.com/snow-ghost/era/pkg/config"
	"github.com/snow-ghost/era/pkg/limiter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

const procStat = `cpu  100 0 100 700 100 0 0 0 0 0
cpu0 50 0 50 350 50 0 0 0 0 0
intr 12345
`

func TestParseProcStat(t *testing.T) {
	times, err := parseProcStat([]byte(procStat))
	require.NoError(t, err)
	assert.Equal(t, uint64(800), times.idle)
	assert.Equal(t, uint64(1000), times.total)

	_, err = parseProcStat([]byte("intr 1\n"))
	assert.Error(t, err)

	_, err = parseProcStat([]byte("cpu 1 2 3\n"))
	assert.Error(t, err)
}

func TestCPUUsage(t *testing.T) {
	usage, err := cpuUsage(cpuTimes{idle: 800, total: 1000}, cpuTimes{idle: 850, total: 1200})
	require.NoError(t, err)
	assert.InDelta(t, 75.0, usage, 1e-9)

	// idle counter going backwards counts as a fully busy window
	usage, err = cpuUsage(cpuTimes{idle: 1000, total: 2000}, cpuTimes{idle: 995, total: 2100})
	require.NoError(t, err)
	assert.InDelta(t, 100.0, usage, 1e-9)

	usage, err = cpuUsage(cpuTimes{idle: 1000, total: 2000}, cpuTimes{idle: 1045, total: 2100})
	require.NoError(t, err)
	assert.InDelta(t, 55.0, usage, 1e-9)

	_, err = cpuUsage(cpuTimes{idle: 1, total: 10}, cpuTimes{idle: 1, total: 10})
	assert.ErrorIs(t, err, ErrNoSample)
	assert.True(t, limiter.IsRetryable(err))
}

func TestProcCPU_Read(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "stat"), procStat)

	// identical samples never advance
	cpu := NewProcCPU(root, time.Millisecond)
	_, err := cpu.Read(context.Background())
	assert.ErrorIs(t, err, ErrNoSample)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewProcCPU(root, time.Hour).Read(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = NewProcCPU(t.TempDir(), time.Millisecond).Read(context.Background())
	assert.Error(t, err)
}

func TestProcMemory_Read(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "meminfo"), `MemTotal:       1000 kB
MemFree:         200 kB
MemAvailable:    600 kB
Buffers:          50 kB
Cached:          150 kB
SwapCached:       99 kB
`)

	usage, err := NewProcMemory(root).Read(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 60.0, usage, 1e-9)

	writeFile(t, filepath.Join(root, "meminfo"), "MemFree: 10 kB\n")
	_, err = NewProcMemory(root).Read(context.Background())
	assert.ErrorIs(t, err, ErrNoSample)
}

func TestSysfsPower_Read(t *testing.T) {
	t.Run("power_now", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "class/power_supply/BAT0/power_now"), "7500000\n")
		writeFile(t, filepath.Join(root, "class/power_supply/AC/online"), "1\n")

		watts, err := NewSysfsPower(root).Read(context.Background())
		require.NoError(t, err)
		assert.InDelta(t, 7.5, watts, 1e-9)
	})

	t.Run("current and voltage", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "class/power_supply/BAT0/current_now"), "500000\n")
		writeFile(t, filepath.Join(root, "class/power_supply/BAT0/voltage_now"), "12000000\n")
		writeFile(t, filepath.Join(root, "class/power_supply/BAT1/power_now"), "1000000\n")

		watts, err := NewSysfsPower(root).Read(context.Background())
		require.NoError(t, err)
		assert.InDelta(t, 7.0, watts, 1e-9)
	})

	t.Run("thermal estimate", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "class/thermal/thermal_zone0/temp"), "60000\n")

		watts, err := NewSysfsPower(root).Read(context.Background())
		require.NoError(t, err)
		assert.InDelta(t, 4.0, watts, 1e-9)

		writeFile(t, filepath.Join(root, "class/thermal/thermal_zone0/temp"), "150000\n")
		watts, err = NewSysfsPower(root).Read(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 10.0, watts)
	})

	t.Run("nothing readable", func(t *testing.T) {
		_, err := NewSysfsPower(t.TempDir()).Read(context.Background())
		assert.ErrorIs(t, err, ErrNoPowerSupply)
	})
}

func TestSimulated(t *testing.T) {
	level := core.LoadLight
	sim := NewSimulated(rand.New(rand.NewPCG(1, 2)), func() core.LoadLevel { return level })

	for i := 0; i < 200; i++ {
		r, err := sim.CurrentUsage(context.Background())
		require.NoError(t, err)
		assert.True(t, r.CPUUsage >= 5 && r.CPUUsage <= 95)
		assert.True(t, r.MemoryUsage >= 10 && r.MemoryUsage <= 90)
		assert.True(t, r.PowerUsage >= 2 && r.PowerUsage <= 12)
	}
	light, _ := sim.CurrentUsage(context.Background())

	level = core.LoadSpike
	var spike core.SystemResources
	for i := 0; i < 50; i++ {
		spike, _ = sim.CurrentUsage(context.Background())
	}
	assert.Greater(t, spike.CPUUsage, light.CPUUsage)
	assert.Greater(t, spike.PowerUsage, light.PowerUsage)
}

type fakeQuerier struct {
	values map[string]model.Value
	err    error
}

func (f *fakeQuerier) Query(_ context.Context, query string, _ time.Time, _ ...v1.Option) (model.Value, v1.Warnings, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	v, ok := f.values[query]
	if !ok {
		return model.Vector{}, v1.Warnings{"unknown query"}, nil
	}
	return v, nil, nil
}

func TestPrometheusSource(t *testing.T) {
	q := &fakeQuerier{values: map[string]model.Value{
		"cpu": model.Vector{
			&model.Sample{Value: 30},
			&model.Sample{Value: 12.5},
		},
		"mem":   &model.Scalar{Value: 64},
		"power": model.Matrix{},
	}}
	src := NewPrometheusSourceWithQuerier(q, PrometheusQueries{CPU: "cpu", Memory: "mem", Power: "power"}, time.Second, nil)
	ctx := context.Background()

	cpu, err := src.Reader(core.ResourceCPU).Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, 42.5, cpu)

	mem, err := src.Reader(core.ResourceMemory).Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, 64.0, mem)

	_, err = src.Reader(core.ResourcePower).Read(ctx)
	assert.Error(t, err)

	empty := NewPrometheusSourceWithQuerier(q, PrometheusQueries{CPU: "missing"}, 0, nil)
	_, err = empty.Reader(core.ResourceCPU).Read(ctx)
	assert.ErrorIs(t, err, ErrNoSample)

	q.err = errors.New("connection refused")
	_, err = src.Reader(core.ResourceCPU).Read(ctx)
	assert.True(t, limiter.IsRetryable(err))
	assert.False(t, src.IsAvailable(ctx))
}

func constant(v float64) core.UsageReader {
	return core.UsageReaderFunc(func(context.Context) (float64, error) { return v, nil })
}

func TestSource_CurrentUsage(t *testing.T) {
	src := NewSource(constant(10), constant(20), constant(3))

	r, err := src.CurrentUsage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, core.SystemResources{CPUUsage: 10, MemoryUsage: 20, PowerUsage: 3}, r)

	failing := NewSource(constant(10), core.UsageReaderFunc(func(context.Context) (float64, error) {
		return 0, errors.New("meminfo missing")
	}), constant(3))
	_, err = failing.CurrentUsage(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "memory")
}

func TestSource_DeduplicatesConcurrentReads(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	slow := core.UsageReaderFunc(func(context.Context) (float64, error) {
		calls.Add(1)
		<-release
		return 55, nil
	})
	src := NewSource(slow, constant(1), constant(1))
	reader := src.Reader(core.ResourceCPU)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := reader.Read(context.Background())
			assert.NoError(t, err)
			assert.Equal(t, 55.0, v)
		}()
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Less(t, calls.Load(), int32(5))
	assert.Equal(t, int64(5), src.DedupStats(core.ResourceCPU).Requests)
}

func TestFallback(t *testing.T) {
	f := &Fallback{
		Primary: core.UsageReaderFunc(func(context.Context) (float64, error) {
			return 0, ErrNoPowerSupply
		}),
		Secondary: constant(6),
		Name:      "power",
	}
	v, err := f.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6.0, v)

	f.Primary = constant(9)
	v, err = f.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 9.0, v)
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.Default().Telemetry

	cfg.Source = config.SourceSimulated
	src, err := NewFromConfig(cfg, nil, rand.New(rand.NewPCG(3, 4)), nil)
	require.NoError(t, err)
	r, err := src.CurrentUsage(context.Background())
	require.NoError(t, err)
	assert.Greater(t, r.CPUUsage, 0.0)

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "meminfo"), "MemTotal: 100 kB\nMemFree: 50 kB\n")
	cfg.Source = config.SourceProc
	cfg.ProcRoot = root
	cfg.SysRoot = t.TempDir()
	src, err = NewFromConfig(cfg, nil, rand.New(rand.NewPCG(3, 4)), nil)
	require.NoError(t, err)
	mem, err := src.Reader(core.ResourceMemory).Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 50.0, mem)
	power, err := src.Reader(core.ResourcePower).Read(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, power, 2.0)

	cfg.Source = config.SourcePrometheus
	_, err = NewFromConfig(cfg, nil, nil, nil)
	require.NoError(t, err)

	cfg.Source = "snmp"
	_, err = NewFromConfig(cfg, nil, nil, nil)
	assert.Error(t, err)
}
