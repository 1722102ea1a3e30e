package metrics

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	EventsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "suite_starter_events_received_total",
		Help: "Total number of TERCC events passed to the callback.",
	})

	JobsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "suite_starter_jobs_submitted_total",
		Help: "Total number of suite runner jobs created.",
	})

	EventsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "suite_starter_events_failed_total",
		Help: "Total number of TERCC events not consumed, labelled by reason.",
	}, []string{"reason"})

	SubmitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "suite_starter_submit_duration_ms",
		Help:    "Latency of job creation in milliseconds.",
		Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	})
)

// Serve exposes metrics at /metrics, it blocks until listener fails
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	slog.Info("metrics listener starting", "addr", addr)
	return srv.ListenAndServe()
}
