package sqlqueue

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	queuedVec = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "asyncsql_queries_queued_total",
		Help: "counter of queries queued on a connection",
	}, []string{"connection"})
	completedVec = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "asyncsql_queries_completed_total",
		Help: "counter of queries executed by a connection's workers, by outcome",
	}, []string{"connection", "outcome"})
	droppedVec = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "asyncsql_queries_dropped_total",
		Help: "counter of pending queries discarded at termination",
	}, []string{"connection"})
	pendingVec = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "asyncsql_queue_pending",
		Help: "number of queries waiting for a worker",
	}, []string{"connection"})
	workersVec = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "asyncsql_workers_live",
		Help: "number of live workers",
	}, []string{"connection"})
	execTimeVec = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "asyncsql_query_exec_seconds",
		Help:    "time spent executing a query on a worker",
		Buckets: prometheus.ExponentialBuckets(0.0005, 4, 9),
	}, []string{"connection"})
	waitTimeVec = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "asyncsql_query_wait_seconds",
		Help:    "time a query spent queued before a worker picked it up",
		Buckets: prometheus.ExponentialBuckets(0.0005, 4, 9),
	}, []string{"connection"})
)

type connMetrics struct {
	queued    prometheus.Counter
	succeeded prometheus.Counter
	failed    prometheus.Counter
	dropped   prometheus.Counter
	pending   prometheus.Gauge
	workers   prometheus.Gauge
	execTime  prometheus.Observer
	waitTime  prometheus.Observer
}

func newConnMetrics(name string) *connMetrics {
	return &connMetrics{
		queued:    queuedVec.WithLabelValues(name),
		succeeded: completedVec.WithLabelValues(name, "success"),
		failed:    completedVec.WithLabelValues(name, "failure"),
		dropped:   droppedVec.WithLabelValues(name),
		pending:   pendingVec.WithLabelValues(name),
		workers:   workersVec.WithLabelValues(name),
		execTime:  execTimeVec.WithLabelValues(name),
		waitTime:  waitTimeVec.WithLabelValues(name),
	}
}
