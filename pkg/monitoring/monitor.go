package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	ExtractionJobs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qbank_extraction_jobs_total",
			Help: "Extraction jobs by terminal status",
		},
		[]string{"status"},
	)

	ExtractionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "qbank_extraction_duration_seconds",
			Help:    "Wall time of one extraction job",
			Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300},
		},
	)

	QuestionsExtracted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qbank_questions_total",
			Help: "Question spans by outcome (extracted, saved, failed)",
		},
		[]string{"outcome"},
	)

	ExtractionQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "qbank_extraction_queue_depth",
			Help: "Extraction jobs waiting for a worker",
		},
	)

	PapersGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qbank_papers_generated_total",
			Help: "Question paper generation attempts by result",
		},
		[]string{"result"},
	)
)

var initOnce sync.Once

func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			ExtractionJobs,
			ExtractionDuration,
			QuestionsExtracted,
			ExtractionQueueDepth,
			PapersGenerated,
		)
	})
}

// ObserveExtraction records one finished extraction job.
func ObserveExtraction(status string, started time.Time) {
	ExtractionJobs.WithLabelValues(status).Inc()
	ExtractionDuration.Observe(time.Since(started).Seconds())
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
