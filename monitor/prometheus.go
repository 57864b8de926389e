package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
	"github.com/snow-ghost/era/core"
	"github.com/snow-ghost/era/pkg/limiter"
	"github.com/snow-ghost/era/pkg/logging"
)

// Querier is the part of the Prometheus v1 API the source needs.
type Querier interface {
	Query(ctx context.Context, query string, ts time.Time, opts ...v1.Option) (model.Value, v1.Warnings, error)
}

// PrometheusQueries holds one PromQL expression per resource. Each must
// evaluate to percent (CPU, memory) or watts (power).
type PrometheusQueries struct {
	CPU    string
	Memory string
	Power  string
}

// PrometheusSource reads usage from a Prometheus server.
type PrometheusSource struct {
	client  Querier
	queries PrometheusQueries
	timeout time.Duration
	logger  *logging.Logger
}

// NewPrometheusSource connects to the server at address.
func NewPrometheusSource(address string, queries PrometheusQueries, timeout time.Duration, logger *logging.Logger) (*PrometheusSource, error) {
	client, err := api.NewClient(api.Config{
		Address: address,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus client: %w", err)
	}

	return NewPrometheusSourceWithQuerier(v1.NewAPI(client), queries, timeout, logger), nil
}

// NewPrometheusSourceWithQuerier uses an existing querier.
func NewPrometheusSourceWithQuerier(q Querier, queries PrometheusQueries, timeout time.Duration, logger *logging.Logger) *PrometheusSource {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &PrometheusSource{
		client:  q,
		queries: queries,
		timeout: timeout,
		logger:  logger.WithComponent("prometheus-source"),
	}
}

// Reader returns the reader for one resource.
func (p *PrometheusSource) Reader(r core.Resource) core.UsageReader {
	query := p.queries.CPU
	switch r {
	case core.ResourceMemory:
		query = p.queries.Memory
	case core.ResourcePower:
		query = p.queries.Power
	}
	return core.UsageReaderFunc(func(ctx context.Context) (float64, error) {
		return p.querySingle(ctx, query)
	})
}

// querySingle sums every sample of an instant vector result.
func (p *PrometheusSource) querySingle(ctx context.Context, query string) (float64, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	result, warnings, err := p.client.Query(ctx, query, time.Now())
	if err != nil {
		return 0, limiter.Retryable(fmt.Errorf("query failed: %w", err))
	}

	if len(warnings) > 0 {
		p.logger.Warn("Prometheus query returned warnings", "query", query, "warnings", []string(warnings))
	}

	switch v := result.(type) {
	case model.Vector:
		if len(v) == 0 {
			return 0, fmt.Errorf("no data for query %s: %w", query, ErrNoSample)
		}
		sum := 0.0
		for _, sample := range v {
			sum += float64(sample.Value)
		}
		return sum, nil
	case *model.Scalar:
		return float64(v.Value), nil
	default:
		return 0, fmt.Errorf("unexpected result type %s for query %s", result.Type(), query)
	}
}

// IsAvailable reports whether the server answers a trivial query.
func (p *PrometheusSource) IsAvailable(ctx context.Context) bool {
	_, _, err := p.client.Query(ctx, "up", time.Now())
	return err == nil
}
