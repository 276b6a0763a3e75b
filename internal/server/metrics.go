package server

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// requestDuration tracks handler latency by route template.
	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dailies",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Request latency by method, route and status",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// resultsApplied counts win/loss deliveries, split by whether the
	// idempotency key was new.
	resultsApplied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dailies",
			Subsystem: "results",
			Name:      "recorded_total",
			Help:      "Result deliveries by game, outcome and whether they were applied",
		},
		[]string{"kind", "outcome", "applied"},
	)

	puzzleFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dailies",
			Subsystem: "puzzles",
			Name:      "fetch_total",
			Help:      "Puzzle proxy requests by game and result",
		},
		[]string{"kind", "result"},
	)
)

// observe records latency for every request.
func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		requestDuration.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
		s.logger.Debug("request", "method", c.Request.Method, "route", route,
			"status", status, "elapsed", time.Since(start))
	}
}
