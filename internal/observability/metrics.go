package observability

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce           sync.Once
	apiRequestsTotal       *prometheus.CounterVec
	apiLatencySeconds      *prometheus.HistogramVec
	apiErrorsTotal         *prometheus.CounterVec
	draftEditsTotal        *prometheus.CounterVec
	assessmentsSubmitted   *prometheus.CounterVec
	assessmentRejections   *prometheus.CounterVec
	legacyDispatchDuration *prometheus.HistogramVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rubric_api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rubric_api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rubric_api_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		draftEditsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rubric_draft_edits_total",
			Help: "Assessment draft edits applied, by operation.",
		}, []string{"op"})

		assessmentsSubmitted = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rubric_assessments_submitted_total",
			Help: "Assessments encoded and handed off, by assessment type and dispatch status.",
		}, []string{"assessment_type", "dispatch_status"})

		assessmentRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rubric_assessment_rejections_total",
			Help: "Assessment submissions rejected before encoding, by reason.",
		}, []string{"reason"})

		legacyDispatchDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rubric_legacy_dispatch_seconds",
			Help:    "Latency of payload hand-off to the legacy grading endpoint.",
			Buckets: prometheus.DefBuckets,
		}, []string{"outcome"})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			draftEditsTotal,
			assessmentsSubmitted,
			assessmentRejections,
			legacyDispatchDuration,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// DraftEdits exposes the draft edit counter.
func DraftEdits() *prometheus.CounterVec {
	RegisterMetrics()
	return draftEditsTotal
}

// AssessmentsSubmitted exposes the submission counter.
func AssessmentsSubmitted() *prometheus.CounterVec {
	RegisterMetrics()
	return assessmentsSubmitted
}

// AssessmentRejections exposes the rejection counter.
func AssessmentRejections() *prometheus.CounterVec {
	RegisterMetrics()
	return assessmentRejections
}

// LegacyDispatchDuration exposes the dispatch latency histogram.
func LegacyDispatchDuration() *prometheus.HistogramVec {
	RegisterMetrics()
	return legacyDispatchDuration
}

// MetricsHandler serves the default registry in the Prometheus text format.
func MetricsHandler() fiber.Handler {
	RegisterMetrics()
	return adaptor.HTTPHandler(promhttp.Handler())
}
