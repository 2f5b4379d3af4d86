// Package metrics defines the Prometheus collectors exposed on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rohhann12/keeping-track-of-it/internal/models"
	"gorm.io/gorm"
)

const namespace = "ktoi"

var (
	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
	cacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Response cache lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)
	cacheInvalidatedKeys = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_invalidated_keys_total",
			Help:      "Cache keys removed by pattern invalidation",
		},
	)
	eventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Domain events handed to the event channel by topic and outcome",
		},
		[]string{"topic", "outcome"},
	)
	eventsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_consumed_total",
			Help:      "Domain events processed by the worker by topic",
		},
		[]string{"topic"},
	)
	bestEffortFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "best_effort_failures_total",
			Help:      "Side effects that failed after a successful mutation",
		},
		[]string{"effect"},
	)
)

// Middleware records request latency by matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

// Handler serves the default registry.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}

func RecordCacheLookup(result string) {
	cacheLookups.WithLabelValues(result).Inc()
}

func RecordInvalidatedKeys(n int) {
	if n > 0 {
		cacheInvalidatedKeys.Add(float64(n))
	}
}

func RecordEventPublished(topic string, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "failed"
	}
	eventsPublished.WithLabelValues(topic, outcome).Inc()
}

func RecordEventConsumed(topic string) {
	eventsConsumed.WithLabelValues(topic).Inc()
}

func RecordBestEffortFailure(effect string) {
	bestEffortFailures.WithLabelValues(effect).Inc()
}

// RegisterStoreGauges exposes row counts and pool stats read on scrape.
// Call once per process.
func RegisterStoreGauges(reg prometheus.Registerer, db *gorm.DB) {
	count := func(model interface{}) func() float64 {
		return func() float64 {
			var n int64
			if err := db.Model(model).Count(&n).Error; err != nil {
				return -1
			}
			return float64(n)
		}
	}

	reg.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace, Name: "users_total", Help: "Number of registered users",
		}, count(&models.User{})),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace, Name: "projects_total", Help: "Number of projects",
		}, count(&models.Project{})),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace, Name: "tasks_total", Help: "Number of tasks",
		}, count(&models.Task{})),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace, Name: "db_open_connections", Help: "Number of open DB connections",
		}, func() float64 {
			sqlDB, err := db.DB()
			if err != nil {
				return -1
			}
			return float64(sqlDB.Stats().OpenConnections)
		}),
	)
}
