// Package metrics holds the prometheus collectors of the service.
//
// Every constructor takes a prometheus.Registerer; a nil registerer yields a
// no-op value, and every method is safe to call on a nil receiver.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Auth operation results.
const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultError    = "error"
)

// AuthMetrics counts signup, login, verify and logout outcomes.
type AuthMetrics struct {
	ops *prometheus.CounterVec
}

// NewAuthMetrics registers the auth metrics on the provided registerer.
func NewAuthMetrics(reg prometheus.Registerer) *AuthMetrics {
	if reg == nil {
		return &AuthMetrics{}
	}
	ops := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "healthchat_auth_operations_total",
		Help: "Authentication operations by operation and result.",
	}, []string{"op", "result"})
	reg.MustRegister(ops)
	return &AuthMetrics{ops: ops}
}

// Observe increments the counter for op with the given result.
func (m *AuthMetrics) Observe(op, result string) {
	if m == nil || m.ops == nil {
		return
	}
	m.ops.WithLabelValues(normalizeLabel(op), normalizeLabel(result)).Inc()
}

// ChatMetrics counts chat turns and times the inference call.
type ChatMetrics struct {
	turns     *prometheus.CounterVec
	inference *prometheus.HistogramVec
}

// NewChatMetrics registers the chat metrics on the provided registerer.
func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	if reg == nil {
		return &ChatMetrics{}
	}
	turns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "healthchat_chat_turns_total",
		Help: "Chat turns by caller kind (authenticated, anonymous) and result.",
	}, []string{"caller", "result"})
	inference := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "healthchat_inference_duration_seconds",
		Help:    "Duration of calls to the inference server.",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"result"})
	reg.MustRegister(turns, inference)
	return &ChatMetrics{turns: turns, inference: inference}
}

// ObserveTurn records one chat turn and how long inference took.
func (m *ChatMetrics) ObserveTurn(caller, result string, inference time.Duration) {
	if m == nil || m.turns == nil {
		return
	}
	m.turns.WithLabelValues(normalizeLabel(caller), normalizeLabel(result)).Inc()
	if inference > 0 {
		m.inference.WithLabelValues(normalizeLabel(result)).Observe(inference.Seconds())
	}
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
