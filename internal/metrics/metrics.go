// Package metrics exposes Prometheus counters for the harvest pipeline.
// Registration is lazy and race-safe; counters are no-ops until the
// first pipeline touches them.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// pipelineMetrics holds Prometheus metrics for the harvest pipeline.
type pipelineMetrics struct {
	once sync.Once

	// Listing / fetch
	idsListed      prometheus.Counter
	recordsFetched prometheus.Counter

	// Raw cache
	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter

	// Enrichment
	parseErrors  prometheus.Counter
	docsEnriched prometheus.Counter

	// Bulk writes
	batchesSent prometheus.Counter
	docsIndexed prometheus.Counter

	// Durations
	listDuration  prometheus.Histogram
	fetchDuration prometheus.Histogram
	writeDuration prometheus.Histogram
}

var pm pipelineMetrics

func (m *pipelineMetrics) init() {
	m.once.Do(func() {
		m.idsListed = prometheus.NewCounter(prometheus.CounterOpts{Name: "harvest_ids_listed_total", Help: "Listing entries received from the tracker"})
		m.recordsFetched = prometheus.NewCounter(prometheus.CounterOpts{Name: "harvest_records_fetched_total", Help: "Full records fetched from the tracker"})

		m.cacheHits = prometheus.NewCounter(prometheus.CounterOpts{Name: "harvest_raw_cache_hits_total", Help: "Change-history payloads served from the raw cache"})
		m.cacheMisses = prometheus.NewCounter(prometheus.CounterOpts{Name: "harvest_raw_cache_misses_total", Help: "Change-history payloads fetched over the network"})

		m.parseErrors = prometheus.NewCounter(prometheus.CounterOpts{Name: "harvest_parse_errors_total", Help: "Malformed change-log rows skipped"})
		m.docsEnriched = prometheus.NewCounter(prometheus.CounterOpts{Name: "harvest_docs_enriched_total", Help: "Enriched documents produced"})

		m.batchesSent = prometheus.NewCounter(prometheus.CounterOpts{Name: "harvest_bulk_batches_total", Help: "Bulk batches written to the search engine"})
		m.docsIndexed = prometheus.NewCounter(prometheus.CounterOpts{Name: "harvest_docs_indexed_total", Help: "Documents written across raw and enriched tiers"})

		buckets := []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}
		m.listDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "harvest_list_seconds", Help: "Duration of id-listing pages", Buckets: buckets})
		m.fetchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "harvest_fetch_seconds", Help: "Duration of detail-fetch batches", Buckets: buckets})
		m.writeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "harvest_write_seconds", Help: "Duration of bulk writes", Buckets: buckets})

		prometheus.MustRegister(
			m.idsListed, m.recordsFetched,
			m.cacheHits, m.cacheMisses,
			m.parseErrors, m.docsEnriched,
			m.batchesSent, m.docsIndexed,
			m.listDuration, m.fetchDuration, m.writeDuration,
		)
	})
}

// Record helpers, used by the pipeline and adapters.

// IDsListed adds n to the listing-entry counter.
func IDsListed(n int) { pm.init(); pm.idsListed.Add(float64(n)) }

// RecordsFetched adds n to the fetched-records counter.
func RecordsFetched(n int) { pm.init(); pm.recordsFetched.Add(float64(n)) }

// CacheHit counts a raw-cache hit.
func CacheHit() { pm.init(); pm.cacheHits.Inc() }

// CacheMiss counts a raw-cache miss.
func CacheMiss() { pm.init(); pm.cacheMisses.Inc() }

// ParseError counts a skipped malformed row.
func ParseError() { pm.init(); pm.parseErrors.Inc() }

// DocEnriched counts one enriched document.
func DocEnriched() { pm.init(); pm.docsEnriched.Inc() }

// BatchSent counts one bulk write.
func BatchSent() { pm.init(); pm.batchesSent.Inc() }

// DocsIndexed adds n to the indexed-documents counter.
func DocsIndexed(n int) { pm.init(); pm.docsIndexed.Add(float64(n)) }

// ObserveList records the duration of one listing page in seconds.
func ObserveList(seconds float64) { pm.init(); pm.listDuration.Observe(seconds) }

// ObserveFetch records the duration of one detail batch in seconds.
func ObserveFetch(seconds float64) { pm.init(); pm.fetchDuration.Observe(seconds) }

// ObserveWrite records the duration of one bulk write in seconds.
func ObserveWrite(seconds float64) { pm.init(); pm.writeDuration.Observe(seconds) }

// Handler returns an HTTP handler exposing the registered metrics.
func Handler() http.Handler {
	pm.init()
	return promhttp.Handler()
}
