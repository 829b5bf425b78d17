// Package metrics 提供任务编排服务的 Prometheus 指标，通过 /metrics 暴露。
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Tasks ──────────────────────────────────────────────────────────────────

// TasksSubmitted 统计被接受并开始处理的任务数。
var TasksSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "aiboss",
	Name:      "tasks_submitted_total",
	Help:      "Tasks persisted in processing state.",
}, []string{"agent_id"})

// TasksFinished 按终态统计任务数。
var TasksFinished = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "aiboss",
	Name:      "tasks_finished_total",
	Help:      "Tasks that reached a terminal state.",
}, []string{"agent_id", "status"})

// TasksRejected 统计在创建任务前被拒绝的提交（档案不存在、输入校验失败）。
var TasksRejected = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "aiboss",
	Name:      "tasks_rejected_total",
	Help:      "Submissions rejected before a task was created.",
}, []string{"reason"})

// TasksActive 是当前正在等待大模型返回的任务数。
var TasksActive = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "aiboss",
	Name:      "tasks_active",
	Help:      "Tasks currently in processing state on this instance.",
})

// TaskDuration 记录已完成任务的执行耗时。
var TaskDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "aiboss",
	Name:      "task_duration_seconds",
	Help:      "Execution time of completed tasks in seconds.",
	Buckets:   []float64{1, 2.5, 5, 10, 20, 30, 45, 60, 90},
}, []string{"agent_id"})

// ─── Provider ───────────────────────────────────────────────────────────────

// ProviderAttempts 统计每一次大模型调用尝试的结果。
var ProviderAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "aiboss",
	Name:      "llm_attempts_total",
	Help:      "Provider call attempts by result.",
}, []string{"provider", "result"})

// ProviderLatency 记录每一次调用尝试的耗时。
var ProviderLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "aiboss",
	Name:      "llm_attempt_latency_seconds",
	Help:      "Provider call attempt duration in seconds.",
	Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30},
}, []string{"provider"})

// CircuitState 是大模型熔断器的当前状态（0=Closed, 1=Open, 2=Half-Open）。
var CircuitState = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "aiboss",
	Name:      "llm_circuit_state",
	Help:      "Provider circuit breaker state (0=Closed, 1=Open, 2=Half-Open).",
})

// ─── Storage ────────────────────────────────────────────────────────────────

// CacheLookups 统计终态任务缓存的命中情况。
var CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "aiboss",
	Name:      "task_cache_lookups_total",
	Help:      "Terminal task cache lookups by result.",
}, []string{"result"})

// ObserveProviderAttempt 记录一次大模型调用尝试。
func ObserveProviderAttempt(provider string, d time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	ProviderAttempts.WithLabelValues(provider, result).Inc()
	ProviderLatency.WithLabelValues(provider).Observe(d.Seconds())
}

// ObserveTaskFinished 记录一次任务终态，executionTime 只在完成时有意义。
func ObserveTaskFinished(agentID, status string, executionTime time.Duration) {
	TasksFinished.WithLabelValues(agentID, status).Inc()
	if status == "completed" {
		TaskDuration.WithLabelValues(agentID).Observe(executionTime.Seconds())
	}
}
