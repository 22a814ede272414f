package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Fetching
	PagesFetched = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "intelsync_pages_fetched_total",
		Help: "The total number of indicator pages fetched",
	}, []string{"stream"})

	FetchLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: "intelsync_fetch_latency_seconds",
		Help: "The latency of indicator page fetches",
	}, []string{"stream"})

	// Ingestion
	IndicatorsIngested = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "intelsync_indicators_ingested_total",
		Help: "The total number of indicators written to the sink",
	}, []string{"stream"})

	IndicatorsDuplicate = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "intelsync_indicators_duplicate_total",
		Help: "The total number of indicators skipped as already stored",
	}, []string{"stream"})

	// Markers
	MarkerAdvances = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "intelsync_marker_advances_total",
		Help: "The total number of marker advances",
	}, []string{"stream"})

	// Runs
	Runs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "intelsync_runs_total",
		Help: "The total number of sync runs by final state",
	}, []string{"stream", "state"})

	RunFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "intelsync_run_failures_total",
		Help: "The total number of failed sync runs by error kind",
	}, []string{"stream", "kind"})

	LastSuccess = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "intelsync_last_success_timestamp_seconds",
		Help: "Unix time of the last run that reached DONE",
	}, []string{"stream"})
)

func init() {
	prometheus.MustRegister(PagesFetched)
	prometheus.MustRegister(FetchLatency)
	prometheus.MustRegister(IndicatorsIngested)
	prometheus.MustRegister(IndicatorsDuplicate)
	prometheus.MustRegister(MarkerAdvances)
	prometheus.MustRegister(Runs)
	prometheus.MustRegister(RunFailures)
	prometheus.MustRegister(LastSuccess)
}
