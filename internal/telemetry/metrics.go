package telemetry

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

const namespace = "fitscore"

// Metrics holds the Prometheus collectors of the service.
type Metrics struct {
	ScoreComputations *prometheus.CounterVec
	ScoreDuration     *prometheus.HistogramVec
	Settlements       *prometheus.CounterVec
	GRPCRequests      *prometheus.CounterVec
}

// NewMetrics registers the collectors with reg. Pass prometheus.DefaultRegisterer to expose them on /metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		ScoreComputations: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "score",
				Name:      "computations_total",
				Help:      "Total number of score computations",
			},
			[]string{"source", "result"},
		),
		ScoreDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "score",
				Name:      "duration_seconds",
				Help:      "Duration of score computations including data loading",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"source"},
		),
		Settlements: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "challenge",
				Name:      "settlements_total",
				Help:      "Total number of challenge settlements",
			},
			[]string{"result"},
		),
		GRPCRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "grpc",
				Name:      "requests_total",
				Help:      "Total number of gRPC requests",
			},
			[]string{"method", "status"},
		),
	}
}

// ObserveScore records one score computation.
func (m *Metrics) ObserveScore(source string, start time.Time, err error) {
	if m == nil {
		return
	}

	m.ScoreComputations.WithLabelValues(source, result(err)).Inc()
	m.ScoreDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveSettlement(err error) {
	if m == nil {
		return
	}

	m.Settlements.WithLabelValues(result(err)).Inc()
}

// UnaryServerInterceptor counts gRPC requests by method and status code.
func (m *Metrics) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		resp, err := handler(ctx, req)
		m.GRPCRequests.WithLabelValues(info.FullMethod, status.Code(err).String()).Inc()
		return resp, err
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
