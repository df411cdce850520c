package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	metricsOnce sync.Once

	repoOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repository_operations_total",
			Help: "Total repository operations by collection and operation.",
		},
		[]string{"collection", "operation", "status"},
	)

	authAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_attempts_total",
			Help: "Total authentication attempts by strategy and outcome.",
		},
		[]string{"strategy", "outcome"},
	)

	auditEntriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_entries_total",
			Help: "Total audit log entries appended by operation.",
		},
		[]string{"operation"},
	)
)

// InitMetrics registers the module metrics in the default registry.
// Safe to call more than once.
func InitMetrics() {
	metricsOnce.Do(func() {
		prometheus.MustRegister(repoOpsTotal, authAttemptsTotal, auditEntriesTotal)
	})
}

// ObserveRepoOp counts one repository operation.
func ObserveRepoOp(collection, operation string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	repoOpsTotal.WithLabelValues(collection, operation, status).Inc()
}

// ObserveAuthAttempt counts one authentication attempt.
func ObserveAuthAttempt(strategy string, authenticated bool) {
	outcome := "rejected"
	if authenticated {
		outcome = "authenticated"
	}
	authAttemptsTotal.WithLabelValues(strategy, outcome).Inc()
}

// ObserveAuditEntry counts one appended audit entry.
func ObserveAuditEntry(operation string) {
	auditEntriesTotal.WithLabelValues(operation).Inc()
}
