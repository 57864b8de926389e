package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps both slog and zap loggers
type Logger struct {
	slog *slog.Logger
	zap  *zap.Logger
}

// Config holds logging configuration
type Config struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"` // "json" or "console"
	Output    string `yaml:"output"` // "stdout" or "stderr"
	AddCaller bool   `yaml:"add_caller"`
	AddStack  bool   `yaml:"add_stack"`
}

// DefaultConfig logs info and above as JSON to stderr, leaving stdout to
// the export command.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "json",
		Output: "stderr",
	}
}

// NewLogger creates a new structured logger
func NewLogger(config Config) (*Logger, error) {
	if config.Format == "" {
		config.Format = "json"
	}
	if config.Output == "" {
		config.Output = "stderr"
	}

	out, err := outputWriter(config.Output)
	if err != nil {
		return nil, err
	}

	slogHandler := slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: parseSlogLevel(config.Level),
	})
	slogLogger := slog.New(slogHandler)

	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = parseZapLevel(config.Level)
	zapConfig.Encoding = config.Format
	zapConfig.OutputPaths = []string{config.Output}
	zapConfig.ErrorOutputPaths = []string{config.Output}
	zapConfig.DisableCaller = !config.AddCaller
	zapConfig.DisableStacktrace = !config.AddStack

	zapLogger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}

	return &Logger{
		slog: slogLogger,
		zap:  zapLogger,
	}, nil
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{
		slog: slog.New(slog.DiscardHandler),
		zap:  zap.NewNop(),
	}
}

// outputWriter maps stdout/stderr to the process streams and anything else
// to a file opened for append.
func outputWriter(output string) (io.Writer, error) {
	switch output {
	case "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}
	f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log output %s: %w", output, err)
	}
	return f, nil
}

// parseSlogLevel parses slog level from string
func parseSlogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// parseZapLevel parses zap level from string
func parseZapLevel(level string) zap.AtomicLevel {
	switch level {
	case "debug":
		return zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case "info":
		return zap.NewAtomicLevelAt(zapcore.InfoLevel)
	case "warn":
		return zap.NewAtomicLevelAt(zapcore.WarnLevel)
	case "error":
		return zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	default:
		return zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
}

// WithComponent tags every entry with the emitting component.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{
		slog: l.slog.With("component", name),
		zap:  l.zap.With(zap.String("component", name)),
	}
}

// WithRunID adds the optimizer run ID to logger context
func (l *Logger) WithRunID(runID string) *Logger {
	return &Logger{
		slog: l.slog.With("run_id", runID),
		zap:  l.zap.With(zap.String("run_id", runID)),
	}
}

// WithFields adds fields to logger context
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	slogAttrs := make([]any, 0, len(fields)*2)
	zapFields := make([]zap.Field, 0, len(fields))

	for key, value := range fields {
		slogAttrs = append(slogAttrs, key, value)
		zapFields = append(zapFields, zap.Any(key, value))
	}

	return &Logger{
		slog: l.slog.With(slogAttrs...),
		zap:  l.zap.With(zapFields...),
	}
}

// Debug logs a debug message
func (l *Logger) Debug(msg string, args ...interface{}) {
	l.slog.Debug(msg, args...)
	l.zap.Debug(msg, convertToZapFields(args)...)
}

// Info logs an info message
func (l *Logger) Info(msg string, args ...interface{}) {
	l.slog.Info(msg, args...)
	l.zap.Info(msg, convertToZapFields(args)...)
}

// Warn logs a warning message
func (l *Logger) Warn(msg string, args ...interface{}) {
	l.slog.Warn(msg, args...)
	l.zap.Warn(msg, convertToZapFields(args)...)
}

// Error logs an error message
func (l *Logger) Error(msg string, args ...interface{}) {
	l.slog.Error(msg, args...)
	l.zap.Error(msg, convertToZapFields(args)...)
}

// convertToZapFields converts interface{} args to zap.Field
func convertToZapFields(args []interface{}) []zap.Field {
	if len(args) == 0 {
		return nil
	}

	fields := make([]zap.Field, 0, len(args)/2)
	for i := 0; i < len(args)-1; i += 2 {
		if key, ok := args[i].(string); ok {
			fields = append(fields, zap.Any(key, args[i+1]))
		}
	}
	return fields
}

// CycleFields carries what a single optimizer cycle produced.
type CycleFields struct {
	Generation      int
	LoadLevel       string
	CPUUsage        float64
	MemoryUsage     float64
	PowerUsage      float64
	CPUThreshold    float64
	MemoryThreshold float64
	PowerThreshold  float64
	BestFitness     float64
	Duration        time.Duration
}

// LogCycle logs a completed optimizer cycle
func (l *Logger) LogCycle(ctx context.Context, c CycleFields) {
	fields := map[string]interface{}{
		"generation":       c.Generation,
		"load_level":       c.LoadLevel,
		"cpu_usage":        c.CPUUsage,
		"memory_usage":     c.MemoryUsage,
		"power_usage":      c.PowerUsage,
		"cpu_threshold":    c.CPUThreshold,
		"memory_threshold": c.MemoryThreshold,
		"power_threshold":  c.PowerThreshold,
		"fitness":          c.BestFitness,
		"duration_ms":      float64(c.Duration.Nanoseconds()) / 1e6,
	}

	l.WithFields(fields).Debug("Optimizer cycle completed")
}

// LogCycleFailure logs a cycle that was skipped
func (l *Logger) LogCycleFailure(ctx context.Context, stage string, err error) {
	fields := map[string]interface{}{
		"stage": stage,
		"error": err.Error(),
	}

	l.WithFields(fields).Warn("Optimizer cycle skipped")
}

// LogActuation logs a threshold applied to a resource
func (l *Logger) LogActuation(ctx context.Context, resource, action string, usage, threshold float64, dryRun bool) {
	fields := map[string]interface{}{
		"resource":  resource,
		"action":    action,
		"usage":     usage,
		"threshold": threshold,
		"dry_run":   dryRun,
	}

	logger := l.WithFields(fields)
	if dryRun {
		logger.Debug("Actuation planned")
	} else {
		logger.Info("Actuation applied")
	}
}

// LogCircuitBreaker logs a circuit breaker operation
func (l *Logger) LogCircuitBreaker(ctx context.Context, name, from, to string) {
	fields := map[string]interface{}{
		"breaker": name,
		"from":    from,
		"to":      to,
	}

	l.WithFields(fields).Warn("Circuit breaker state changed")
}

// LogHTTPRequest logs an HTTP request
func (l *Logger) LogHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	fields := map[string]interface{}{
		"method":      method,
		"path":        path,
		"status_code": statusCode,
		"duration_ms": float64(duration.Nanoseconds()) / 1e6,
	}

	l.WithFields(fields).Info("HTTP request completed")
}

// Sync syncs the logger
func (l *Logger) Sync() error {
	return l.zap.Sync()
}

// GetSlog returns the slog logger
func (l *Logger) GetSlog() *slog.Logger {
	return l.slog
}

// GetZap returns the zap logger
func (l *Logger) GetZap() *zap.Logger {
	return l.zap
}
