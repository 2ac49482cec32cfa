package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricPrefix = "communal_scheduler_"

// Metrics exports worker pool state to Prometheus. A nil *Metrics records nothing.
type Metrics struct {
	queueDepth   prometheus.Gauge
	jobsTotal    *prometheus.CounterVec
	jobDuration  *prometheus.HistogramVec
	rejected     *prometheus.CounterVec
	reapedTotal  prometheus.Counter
	triggerTotal *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "queue_depth",
			Help: "Jobs waiting for a worker",
		}),
		jobsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "jobs_total",
				Help: "Finished jobs by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		jobDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "job_duration_seconds",
				Help:    "Job run time in seconds",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 15, 60, 300, 900},
			},
			[]string{"kind"},
		),
		rejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "jobs_rejected_total",
				Help: "Submissions refused by reason",
			},
			[]string{"reason"},
		),
		reapedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "progress_reaped_total",
			Help: "Abandoned calculation progress records marked as failed",
		}),
		triggerTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "monthly_trigger_jobs_total",
				Help: "Jobs requested by the monthly trigger by result",
			},
			[]string{"result"},
		),
	}

	for _, c := range []prometheus.Collector{m.queueDepth, m.jobsTotal, m.jobDuration, m.rejected, m.reapedTotal, m.triggerTotal} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) setQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

func (m *Metrics) jobFinished(job *Job, outcome string) {
	if m == nil {
		return
	}
	m.jobsTotal.WithLabelValues(string(job.Kind), outcome).Inc()
	m.jobDuration.WithLabelValues(string(job.Kind)).Observe(job.Duration().Seconds())
}

func (m *Metrics) jobRejected(reason string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) progressReaped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.reapedTotal.Add(float64(n))
}

func (m *Metrics) triggered(result string) {
	if m == nil {
		return
	}
	m.triggerTotal.WithLabelValues(result).Inc()
}
