// Package metrics exposes Prometheus counters for the query cache and the
// mutation coordinator, plus an optional localhost debug server for scraping
// them. The TUI owns stdout, so metrics are the main runtime observability
// surface besides the log file.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// CacheReads counts query-cache reads by outcome: hit, miss, refresh.
	CacheReads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snowdesk_cache_reads_total",
			Help: "Query cache reads by outcome.",
		},
		[]string{"outcome"},
	)

	// CacheFetches counts network fetches issued by the cache, by result.
	CacheFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snowdesk_cache_fetches_total",
			Help: "Network fetches issued by the query cache.",
		},
		[]string{"result"},
	)

	// Mutations counts mutation coordinator operations by op and result.
	Mutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snowdesk_mutations_total",
			Help: "Mutation coordinator operations by result.",
		},
		[]string{"op", "result"},
	)
)

func init() {
	prometheus.MustRegister(CacheReads, CacheFetches, Mutations)
}

// NewServer creates an HTTP server serving /metrics and /healthz on addr.
// Intended for a localhost debug port; the caller decides whether to run it.
func NewServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return &http.Server{Addr: addr, Handler: mux}
}
