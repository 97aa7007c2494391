// Package metrics exposes Prometheus metrics for rule compilation and the
// gRPC surface.
//
// Metrics:
//   - loanrules_compiler_compilations_total: compilations by outcome
//     (ok or the parse error kind)
//   - loanrules_compiler_compile_duration_seconds: compile latency
//   - loanrules_compiler_generated_rules: rules produced per successful compile
//   - loanrules_grpc_requests_total: unary requests by method and status code
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/circdesk/loanrules/internal/rules"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

const namespace = "loanrules"

// OutcomeOK labels a successful compilation.
const OutcomeOK = "ok"

// Collector owns the registry and every metric the service records.
type Collector struct {
	registry *prometheus.Registry

	compilations    *prometheus.CounterVec
	compileDuration prometheus.Histogram
	generatedRules  prometheus.Histogram
	requests        *prometheus.CounterVec
}

// NewCollector creates and registers all metrics. A nil registry gets a
// fresh one.
func NewCollector(registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	c := &Collector{
		registry: registry,
		compilations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "compiler",
				Name:      "compilations_total",
				Help:      "Total number of loan rule compilations by outcome",
			},
			[]string{"outcome"},
		),
		compileDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "compiler",
				Name:      "compile_duration_seconds",
				Help:      "Duration of loan rule compilation in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10), // 10µs to 2.6s
			},
		),
		generatedRules: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "compiler",
				Name:      "generated_rules",
				Help:      "Number of rules generated per successful compilation",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 8), // 1 to 16384
			},
		),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "grpc",
				Name:      "requests_total",
				Help:      "Total number of unary gRPC requests by method and status code",
			},
			[]string{"method", "code"},
		),
	}

	registry.MustRegister(c.compilations, c.compileDuration, c.generatedRules, c.requests)
	return c
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RecordCompile records one compilation. err is nil on success.
func (c *Collector) RecordCompile(duration time.Duration, rs *rules.RuleSet, err error) {
	c.compileDuration.Observe(duration.Seconds())

	if err != nil {
		outcome := "error"
		if pe, ok := rules.AsParseError(err); ok {
			outcome = string(pe.Kind)
		}
		c.compilations.WithLabelValues(outcome).Inc()
		return
	}

	c.compilations.WithLabelValues(OutcomeOK).Inc()
	if rs != nil {
		c.generatedRules.Observe(float64(len(rs.Rules)))
	}
}

// UnaryInterceptor counts unary requests by method and resulting code.
func (c *Collector) UnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		c.requests.WithLabelValues(info.FullMethod, status.Code(err).String()).Inc()
		return resp, err
	}
}

// Handler returns an HTTP handler for the Prometheus metrics endpoint.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}
