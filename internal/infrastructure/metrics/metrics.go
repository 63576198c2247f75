package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"commerce-sync-layer/internal/ports"
)

var (
	syncsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commerce_syncs_total",
		Help: "Sync attempts per platform and outcome.",
	}, []string{"platform", "result"})

	syncedOrders = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "commerce_synced_orders",
		Help: "Orders held in the sync cache after the last sync attempt.",
	}, []string{"platform"})

	syncedProducts = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "commerce_synced_products",
		Help: "Products held in the sync cache after the last sync attempt.",
	}, []string{"platform"})

	webhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commerce_webhook_events_total",
		Help: "Inbound webhook events per platform and kind.",
	}, []string{"platform", "kind"})

	upstreamRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "commerce_upstream_request_duration_seconds",
		Help:    "Duration of outbound marketplace API calls.",
		Buckets: prometheus.DefBuckets,
	}, []string{"platform"})

	upstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "commerce_upstream_requests_total",
		Help: "Outbound marketplace API calls per platform and HTTP status.",
	}, []string{"platform", "status"})
)

// RecordSync counts one sync attempt and publishes the resulting cache sizes.
func RecordSync(platform string, err error, orders, products int) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	syncsTotal.WithLabelValues(platform, result).Inc()
	syncedOrders.WithLabelValues(platform).Set(float64(orders))
	syncedProducts.WithLabelValues(platform).Set(float64(products))
}

// RecordWebhook counts one inbound webhook event.
func RecordWebhook(platform, kind string) {
	webhookEventsTotal.WithLabelValues(platform, kind).Inc()
}

// ObserveUpstream records one outbound marketplace call. Status 0 means the
// request never produced a response (transport error or timeout).
func ObserveUpstream(platform string, status int, elapsed time.Duration) {
	upstreamRequestDuration.WithLabelValues(platform).Observe(elapsed.Seconds())
	upstreamRequestsTotal.WithLabelValues(platform, strconv.Itoa(status)).Inc()
}

// Recorder adapts the Prometheus collectors to the ports.SyncMetrics
// interface consumed by the application layer.
type Recorder struct{}

// NewRecorder creates the Prometheus-backed sync metrics recorder.
func NewRecorder() Recorder { return Recorder{} }

var _ ports.SyncMetrics = Recorder{}

func (Recorder) RecordSync(platform string, err error, orders, products int) {
	RecordSync(platform, err, orders, products)
}

func (Recorder) RecordWebhook(platform, kind string) {
	RecordWebhook(platform, kind)
}
