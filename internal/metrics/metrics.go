package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests served",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "storefront",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Duration of HTTP requests",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	// outcome is ok, unauthorized, not_found, network or api_error
	BackendCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: "backend",
		Name:      "calls_total",
		Help:      "Calls made to the backend API",
	}, []string{"method", "outcome"})

	BackendDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "storefront",
		Subsystem: "backend",
		Name:      "call_duration_seconds",
		Help:      "Duration of backend API calls",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})

	CartEvents = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: "cart",
		Name:      "changed_events_total",
		Help:      "Cart changed notifications published",
	})

	CartCountCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: "cart",
		Name:      "count_cache_total",
		Help:      "Cart count cache lookups",
	}, []string{"result"}) // hit / miss

	EnrichFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: "orderview",
		Name:      "enrich_failures_total",
		Help:      "Product lookups that failed while enriching an order view",
	})

	OrdersSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: "checkout",
		Name:      "orders_submitted_total",
		Help:      "Order submissions by result",
	}, []string{"result"}) // created / invalid / failed
)

func ObserveRequest(method, route string, status int, d time.Duration) {
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func ObserveBackend(method, outcome string, d time.Duration) {
	BackendCalls.WithLabelValues(method, outcome).Inc()
	BackendDuration.WithLabelValues(method).Observe(d.Seconds())
}

func Handler() http.Handler {
	return promhttp.Handler()
}
