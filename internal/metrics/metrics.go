package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var histogramBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}

// Metrics groups the collectors the service exports. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	requestTotal   *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	rateLimitHits  *prometheus.CounterVec
	notifications  *prometheus.CounterVec
	provisioning   *prometheus.CounterVec
}

func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crewboard",
			Subsystem: "api",
			Name:      "http_requests_total",
			Help:      "Count of processed HTTP requests",
		}, []string{"method", "route", "status"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "crewboard",
			Subsystem: "api",
			Name:      "http_request_duration_seconds",
			Help:      "Latency distribution of HTTP handlers",
			Buckets:   histogramBuckets,
		}, []string{"method", "route", "status"}),
		rateLimitHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crewboard",
			Subsystem: "api",
			Name:      "rate_limit_hits_total",
			Help:      "Number of rate-limited responses",
		}, []string{"route"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crewboard",
			Subsystem: "notify",
			Name:      "notifications_total",
			Help:      "Notifications persisted or dropped, by type and result",
		}, []string{"type", "result"}),
		provisioning: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crewboard",
			Subsystem: "provisioner",
			Name:      "projects_total",
			Help:      "Project provisioning attempts by result",
		}, []string{"result"}),
	}

	collectors := []prometheus.Collector{m.requestTotal, m.requestLatency, m.rateLimitHits, m.notifications, m.provisioning}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *Metrics) ObserveRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"route":  route,
		"status": strconv.Itoa(status),
	}
	m.requestTotal.With(labels).Inc()
	m.requestLatency.With(labels).Observe(duration.Seconds())
}

func (m *Metrics) RateLimitHit(route string) {
	if m == nil {
		return
	}
	m.rateLimitHits.With(prometheus.Labels{"route": route}).Inc()
}

func (m *Metrics) Notification(notificationType, result string) {
	if m == nil {
		return
	}
	m.notifications.With(prometheus.Labels{"type": notificationType, "result": result}).Inc()
}

func (m *Metrics) Provisioned(result string) {
	if m == nil {
		return
	}
	m.provisioning.With(prometheus.Labels{"result": result}).Inc()
}
