package loadgen

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcomes of one Do call as seen by the exporter
const (
	outcomeCompleted = "completed"
	outcomeFailed    = "failed"
	outcomeSkipped   = "skipped"
)

var (
	doOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "loadgen",
		Name:      "requests_total",
		Help:      "Attack calls by runner, request label and outcome.",
	}, []string{"runner", "label", "outcome"})
	actionSkips = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "loadgen",
		Name:      "action_skips_total",
		Help:      "Actions skipped because the session had no data for them.",
	}, []string{"runner"})
	statusCodes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "loadgen",
		Name:      "status_codes_total",
		Help:      "HTTP status codes by runner and request label.",
	}, []string{"runner", "label", "code"})
)

func init() {
	prometheus.MustRegister(doOutcomes, actionSkips, statusCodes)
}

func observeResult(runner string, r DoResult) {
	if r.Skips > 0 {
		actionSkips.WithLabelValues(runner).Add(float64(r.Skips))
	}
	switch {
	case r.Skipped:
		doOutcomes.WithLabelValues(runner, SkippedLabel, outcomeSkipped).Inc()
		return
	case r.failed():
		doOutcomes.WithLabelValues(runner, r.RequestLabel, outcomeFailed).Inc()
	default:
		doOutcomes.WithLabelValues(runner, r.RequestLabel, outcomeCompleted).Inc()
	}
	if r.StatusCode != 0 {
		statusCodes.WithLabelValues(runner, r.RequestLabel, strconv.Itoa(r.StatusCode)).Inc()
	}
}

// exporterMaxInFlight concurrent scrapes served at once
const exporterMaxInFlight = 4

func metricsHandler() http.Handler {
	return promhttp.InstrumentMetricHandler(
		prometheus.DefaultRegisterer, promhttp.HandlerFor(
			prometheus.DefaultGatherer,
			promhttp.HandlerOpts{MaxRequestsInFlight: exporterMaxInFlight},
		),
	)
}

// StartPrometheusExporter serves generator metrics on addr/metrics
func StartPrometheusExporter(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metricsHandler())
	go func() {
		log.Infof("serving generator metrics on %s/metrics", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Errorf("prometheus exporter stopped: %s", err)
		}
	}()
}
