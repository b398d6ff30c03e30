package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "quiz_master"

// Registry 独立于默认注册表，测试中多次构建应用不会重复注册
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	RequestCounter = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route and status code",
	}, []string{"method", "route", "status"})

	RequestDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30},
	}, []string{"method", "route"})

	InFlight = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "http_requests_in_flight",
		Help:      "HTTP requests currently being served",
	})

	SubmissionCounter = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "quiz_submissions_total",
		Help:      "Scored quiz submissions",
	}, []string{"status"})

	StatsJobCounter = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "stats",
		Name:      "jobs_total",
		Help:      "Statistics jobs by kind and final state",
	}, []string{"kind", "state"})

	StatsJobDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "stats",
		Name:      "job_duration_seconds",
		Help:      "Time from a worker picking up a statistics job to its result being stored",
		Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"kind"})

	StatsQueueDepth = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "stats",
		Name:      "jobs_queued",
		Help:      "Statistics jobs waiting for a worker",
	})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// MetricsMiddleware 未匹配路由统一记为 unmatched，避免 404 扫描撑爆标签
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		InFlight.Inc()
		start := time.Now()
		c.Next()
		InFlight.Dec()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		RequestCounter.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		RequestDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}

func PrometheusHandler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry}))
}
