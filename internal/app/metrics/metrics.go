// Package metrics exposes Prometheus collectors for the coordination
// workflows.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apperrors "github.com/brickvest/coinvest_layer/internal/errors"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	workflowTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coinvest",
			Subsystem: "workflow",
			Name:      "runs_total",
			Help:      "Workflow executions by outcome.",
		},
		[]string{"workflow", "outcome"},
	)

	chainCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "coinvest",
			Subsystem: "chain",
			Name:      "call_duration_seconds",
			Help:      "Duration of contract gateway calls including confirmation wait.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~3.5m
		},
		[]string{"method"},
	)

	pendingCommits = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "coinvest",
			Subsystem: "workflow",
			Name:      "pending_commits",
			Help:      "Two-phase commits awaiting backend registration.",
		},
	)
)

func init() {
	Registry.MustRegister(workflowTotal, chainCallDuration, pendingCommits)
}

// Workflow outcomes recorded by ObserveWorkflow.
const (
	OutcomeSuccess    = "success"
	OutcomeValidation = "validation_rejected"
	OutcomeWallet     = "wallet_error"
	OutcomeChain      = "chain_error"
	OutcomePartial    = "partial_failure"
	OutcomeBackend    = "backend_error"
)

// ObserveWorkflow records one workflow execution.
func ObserveWorkflow(workflow, outcome string) {
	workflowTotal.WithLabelValues(workflow, outcome).Inc()
}

// OutcomeFor maps a workflow error to its outcome label.
func OutcomeFor(err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	switch apperrors.KindOf(err) {
	case apperrors.KindValidation:
		return OutcomeValidation
	case apperrors.KindWallet:
		return OutcomeWallet
	case apperrors.KindChain:
		return OutcomeChain
	case apperrors.KindPartial:
		return OutcomePartial
	default:
		return OutcomeBackend
	}
}

// ObserveChainCall records the duration of a contract gateway call.
func ObserveChainCall(method string, d time.Duration) {
	chainCallDuration.WithLabelValues(method).Observe(d.Seconds())
}

// SetPendingCommits updates the unresolved commit gauge.
func SetPendingCommits(n int) {
	pendingCommits.Set(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
