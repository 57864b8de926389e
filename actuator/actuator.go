// Package actuator turns published thresholds into host remediation. Every
// actuator reads the live usage of its own resource, decides which kernel
// knobs to touch, and either writes them or, in dry-run mode, only logs
// the plan.
package actuator

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/snow-ghost/era/core"
	"github.com/snow-ghost/era/pkg/logging"
)

// ErrNoReader is returned by constructors given a nil usage reader.
var ErrNoReader = errors.New("actuator needs a usage reader")

// Options is shared by all actuators.
type Options struct {
	DryRun bool
	Logger *logging.Logger
}

// write is one planned change to a kernel file.
type write struct {
	action string
	path   string
	value  string
}

type base struct {
	resource core.Resource
	reader   core.UsageReader
	dryRun   bool
	logger   *logging.Logger
}

func newBase(resource core.Resource, reader core.UsageReader, opts Options) (base, error) {
	if reader == nil {
		return base{}, fmt.Errorf("%s: %w", resource, ErrNoReader)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return base{
		resource: resource,
		reader:   reader,
		dryRun:   opts.DryRun,
		logger:   logger.WithComponent("actuator." + string(resource)),
	}, nil
}

func (b *base) usage(ctx context.Context) (float64, error) {
	usage, err := b.reader.Read(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s usage: %w", b.resource, err)
	}
	return usage, nil
}

// execute logs every planned write and performs it unless in dry-run.
func (b *base) execute(ctx context.Context, usage, threshold float64, plan []write) error {
	var errs []error
	for _, w := range plan {
		b.logger.LogActuation(ctx, string(b.resource), w.action, usage, threshold, b.dryRun)
		if b.dryRun {
			continue
		}
		if err := writeKnob(w.path, w.value); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", w.action, err))
		}
	}
	return errors.Join(errs...)
}

// writeKnob writes an existing kernel file; it never creates one.
func writeKnob(path, value string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(value + "\n"); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
