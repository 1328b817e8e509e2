package prometheus

import (
	"strconv"
	"time"
)

// AppMetrics holds every metric the appeal engine emits.
type AppMetrics struct {
	// HTTP layer
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	// Analysis pipeline
	AnalysesTotal     CounterVec
	AnalysisDuration  HistogramVec
	OpportunityScores HistogramVec

	// Batch pipeline
	BatchesTotal      CounterVec
	BatchSize         HistogramVec
	BatchItemFailures CounterVec
	BatchDuration     HistogramVec

	// Errors
	ErrorsTotal CounterVec
}

// Default buckets.  Analyses are in-memory compute, so their duration buckets
// sit well below typical HTTP service ones.
var (
	DefaultHTTPDurationBuckets     = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultAnalysisDurationBuckets = []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1}
	DefaultBatchDurationBuckets    = []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}
	DefaultBatchSizeBuckets        = []float64{1, 5, 10, 25, 50, 100, 250, 500}
	DefaultScoreBuckets            = []float64{10, 20, 30, 40, 50, 60, 70, 80, 90}
)

// NewAppMetrics registers the engine's metrics on the collector.
func NewAppMetrics(c Collector) *AppMetrics {
	m := &AppMetrics{}

	// HTTP
	m.HTTPRequestsTotal = c.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = c.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")
	m.HTTPActiveRequests = c.RegisterGauge("http_active_requests", "In-flight HTTP requests", "method", "path")

	// Analysis
	m.AnalysesTotal = c.RegisterCounter("analyses_total", "Completed property analyses", "strategy")
	m.AnalysisDuration = c.RegisterHistogram("analysis_duration_seconds", "Single-property analysis duration", DefaultAnalysisDurationBuckets, "strategy")
	m.OpportunityScores = c.RegisterHistogram("opportunity_score", "Opportunity score distribution", DefaultScoreBuckets)

	// Batch
	m.BatchesTotal = c.RegisterCounter("batches_total", "Completed batch analyses")
	m.BatchSize = c.RegisterHistogram("batch_size", "Properties per batch", DefaultBatchSizeBuckets)
	m.BatchItemFailures = c.RegisterCounter("batch_item_failures_total", "Failed batch items")
	m.BatchDuration = c.RegisterHistogram("batch_duration_seconds", "Batch analysis duration", DefaultBatchDurationBuckets)

	// Errors
	m.ErrorsTotal = c.RegisterCounter("errors_total", "Errors by component", "component", "kind")

	return m
}

// RecordHTTPRequest updates the HTTP metrics for one completed request.
func RecordHTTPRequest(m *AppMetrics, method, path string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	status := strconv.Itoa(statusCode)
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	if statusCode >= 500 {
		m.ErrorsTotal.WithLabelValues("http", "server_error").Inc()
	} else if statusCode >= 400 {
		m.ErrorsTotal.WithLabelValues("http", "client_error").Inc()
	}
}

// ---------------------------------------------------------------------------
// Analysis recorder
// ---------------------------------------------------------------------------

// Recorder adapts AppMetrics to the analysis service's MetricsRecorder port.
type Recorder struct {
	metrics *AppMetrics
}

// NewRecorder wraps AppMetrics for the analysis service.
func NewRecorder(m *AppMetrics) *Recorder {
	return &Recorder{metrics: m}
}

// ObserveAnalysis records one completed property analysis.
func (r *Recorder) ObserveAnalysis(strategy string, score int, duration time.Duration) {
	if r == nil || r.metrics == nil {
		return
	}
	r.metrics.AnalysesTotal.WithLabelValues(strategy).Inc()
	r.metrics.AnalysisDuration.WithLabelValues(strategy).Observe(duration.Seconds())
	r.metrics.OpportunityScores.WithLabelValues().Observe(float64(score))
}

// ObserveBatch records one completed batch run.
func (r *Recorder) ObserveBatch(size, failed int, duration time.Duration) {
	if r == nil || r.metrics == nil {
		return
	}
	r.metrics.BatchesTotal.WithLabelValues().Inc()
	r.metrics.BatchSize.WithLabelValues().Observe(float64(size))
	if failed > 0 {
		r.metrics.BatchItemFailures.WithLabelValues().Add(float64(failed))
	}
	r.metrics.BatchDuration.WithLabelValues().Observe(duration.Seconds())
}
