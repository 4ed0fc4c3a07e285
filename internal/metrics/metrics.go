// Package metrics registers prometheus collectors for the query pipeline
// and ingestion. The serve command exposes them on /metrics; every other
// entry point records into the same registry and simply never scrapes it.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "docent"

// Registry holds all docent collectors. Handlers should expose this
// registry rather than the global default to keep scrapes free of
// client_golang process collectors from linked libraries.
var Registry = prometheus.NewRegistry()

var (
	queriesTotal = promauto.With(Registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "queries_total",
		Help:      "Number of queries accepted by the pipeline.",
	})

	queryErrors = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "query_errors_total",
		Help:      "Number of queries failed, by pipeline stage.",
	}, []string{"stage"})

	stageDuration = promauto.With(Registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "stage_duration_seconds",
		Help:      "Wall clock duration of each pipeline stage.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"stage"})

	rerankFallbacks = promauto.With(Registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rerank_fallbacks_total",
		Help:      "Number of queries that fell back to retrieval order because reranking failed.",
	})

	documentsIngested = promauto.With(Registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "documents_ingested_total",
		Help:      "Number of documents successfully ingested.",
	})

	chunksIngested = promauto.With(Registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "chunks_ingested_total",
		Help:      "Number of chunks written to the vector store.",
	})

	ingestErrors = promauto.With(Registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ingest_errors_total",
		Help:      "Number of documents that failed ingestion.",
	})

	embeddingCacheHits = promauto.With(Registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "embedding_cache_hits_total",
		Help:      "Number of query embeddings served from cache.",
	})

	embeddingCacheMisses = promauto.With(Registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "embedding_cache_misses_total",
		Help:      "Number of query embeddings computed after a cache miss.",
	})
)

// QueryStarted counts an accepted query.
func QueryStarted() { queriesTotal.Inc() }

// QueryFailed counts a failed query tagged with the stage that failed.
func QueryFailed(stage string) { queryErrors.WithLabelValues(stage).Inc() }

// ObserveStage records the wall clock duration of a pipeline stage.
func ObserveStage(stage string, d time.Duration) {
	stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// RerankFallback counts a query that used retrieval order because the
// reranker was unavailable.
func RerankFallback() { rerankFallbacks.Inc() }

// DocumentIngested counts a successful ingest with its chunk count.
func DocumentIngested(chunks int) {
	documentsIngested.Inc()
	chunksIngested.Add(float64(chunks))
}

// IngestFailed counts a document that failed ingestion.
func IngestFailed() { ingestErrors.Inc() }

// CacheHit counts a query embedding served from cache.
func CacheHit() { embeddingCacheHits.Inc() }

// CacheMiss counts a query embedding computed after a cache miss.
func CacheMiss() { embeddingCacheMisses.Inc() }
