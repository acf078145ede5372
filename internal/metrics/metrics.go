package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricPrefix = "clinic_payments_"

var (
	registerOnce sync.Once

	batchesCreated       prometheus.Counter
	batchTransitions     *prometheus.CounterVec
	notificationFailures prometheus.Counter
	dashboardBatches     *prometheus.GaugeVec
	dashboardPaidAmount  prometheus.Gauge
	httpRequests         *prometheus.CounterVec
)

// Init registers the ledger collectors on reg. Later calls are no-ops.
func Init(reg prometheus.Registerer) {
	registerOnce.Do(func() {
		batchesCreated = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "batches_created_total",
			Help: "Payment batches created",
		})
		batchTransitions = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "batch_transitions_total",
				Help: "Payment batch status transitions by target status",
			},
			[]string{"status"},
		)
		notificationFailures = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "notification_failures_total",
			Help: "Notifications that could not be delivered",
		})
		dashboardBatches = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "dashboard_batches",
				Help: "Batches per status at the last dashboard refresh",
			},
			[]string{"status"},
		)
		dashboardPaidAmount = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "dashboard_paid_amount",
			Help: "Total net amount of paid batches at the last dashboard refresh",
		})
		httpRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "http_requests_total",
				Help: "HTTP requests by method and status code",
			},
			[]string{"method", "code"},
		)

		reg.MustRegister(
			batchesCreated,
			batchTransitions,
			notificationFailures,
			dashboardBatches,
			dashboardPaidAmount,
			httpRequests,
		)
	})
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func ObserveBatchCreated() {
	if batchesCreated == nil {
		return
	}
	batchesCreated.Inc()
}

func ObserveTransition(status string) {
	if batchTransitions == nil {
		return
	}
	batchTransitions.WithLabelValues(status).Inc()
}

func ObserveNotificationFailure() {
	if notificationFailures == nil {
		return
	}
	notificationFailures.Inc()
}

func SetDashboard(pending, approved, contested int, paidAmount float64) {
	if dashboardBatches == nil {
		return
	}
	dashboardBatches.WithLabelValues("pending").Set(float64(pending))
	dashboardBatches.WithLabelValues("approved").Set(float64(approved))
	dashboardBatches.WithLabelValues("contested").Set(float64(contested))
	dashboardPaidAmount.Set(paidAmount)
}

func ObserveHTTPRequest(method, code string) {
	if httpRequests == nil {
		return
	}
	httpRequests.WithLabelValues(method, code).Inc()
}
