package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestObserveProviderAttempt(t *testing.T) {
	before := testutil.ToFloat64(ProviderAttempts.WithLabelValues("fake", "failure"))
	ObserveProviderAttempt("fake", 120*time.Millisecond, errors.New("timeout"))
	ObserveProviderAttempt("fake", 80*time.Millisecond, nil)

	require.Equal(t, before+1, testutil.ToFloat64(ProviderAttempts.WithLabelValues("fake", "failure")))
	require.GreaterOrEqual(t, testutil.ToFloat64(ProviderAttempts.WithLabelValues("fake", "success")), 1.0)
}

func TestObserveTaskFinished(t *testing.T) {
	before := testutil.ToFloat64(TasksFinished.WithLabelValues("copywriter", "failed"))
	ObserveTaskFinished("copywriter", "failed", 0)
	ObserveTaskFinished("copywriter", "completed", 3*time.Second)

	require.Equal(t, before+1, testutil.ToFloat64(TasksFinished.WithLabelValues("copywriter", "failed")))
}

func TestMetricsRegistered(t *testing.T) {
	TasksActive.Set(1)
	CircuitState.Set(0)
	CacheLookups.WithLabelValues("hit").Inc()

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, name := range []string{"aiboss_tasks_active", "aiboss_llm_circuit_state", "aiboss_task_cache_lookups_total"} {
		require.True(t, names[name], "metric %q not found", name)
	}
}
