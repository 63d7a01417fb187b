package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestAuthMetrics_Observe(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewAuthMetrics(reg)

	m.Observe("login", ResultOK)
	m.Observe("login", ResultOK)
	m.Observe("login", ResultRejected)
	m.Observe("", "")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ops.WithLabelValues("login", ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ops.WithLabelValues("login", ResultRejected)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ops.WithLabelValues("unknown", "unknown")))
}

func TestChatMetrics_ObserveTurn(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewChatMetrics(reg)

	m.ObserveTurn("anonymous", ResultOK, 300*time.Millisecond)
	m.ObserveTurn("authenticated", ResultError, 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.turns.WithLabelValues("anonymous", ResultOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.turns.WithLabelValues("authenticated", ResultError)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.inference))
}

func TestNilSafe(t *testing.T) {
	var a *AuthMetrics
	var c *ChatMetrics
	assert.NotPanics(t, func() {
		a.Observe("login", ResultOK)
		c.ObserveTurn("anonymous", ResultOK, time.Second)
		NewAuthMetrics(nil).Observe("login", ResultOK)
		NewChatMetrics(nil).ObserveTurn("anonymous", ResultOK, time.Second)
	})
}
