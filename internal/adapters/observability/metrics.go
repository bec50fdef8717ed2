package observability

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"venue_submit/internal/domain"
)

const namespace = "venue"

var (
	FoursquareRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "foursquare", Name: "requests_total",
		Help: "Venues API calls by endpoint and HTTP status (0 = no response).",
	}, []string{"endpoint", "status"})

	FoursquareLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "foursquare", Name: "request_duration_seconds",
		Help: "Venues API call latency.",
		// the API is slow on venues/add; default buckets stop at 10s
		Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10, 20},
	}, []string{"endpoint"})

	Submissions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "submissions_total",
		Help: "Batch row outcomes by ledger status.",
	}, []string{"status"})

	DuplicateDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "duplicate_decisions_total",
		Help: "Answers given when the API reported possible duplicates.",
	}, []string{"decision"})

	VenueCache = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "cache", Name: "events_total",
		Help: "Venue details cache events: hit, miss, set, del.",
	}, []string{"event"})

	LedgerAPIRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "ledger_api", Name: "requests_total",
		Help: "Submission ledger API requests.",
	}, []string{"route", "method", "status"})

	LedgerAPILatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "ledger_api", Name: "request_duration_seconds",
		Help:    "Submission ledger API latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
)

// Serve exposes the metrics registry on addr in the background. Empty addr disables it.
func Serve(addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", MetricsHandler(InitRegistry()))

	go func() {
		srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		FoursquareRequests, FoursquareLatency,
		Submissions, DuplicateDecisions, VenueCache,
		LedgerAPIRequests, LedgerAPILatency,
	)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// ObserveFoursquare records one venues API call. endpoint must already have
// venue ids collapsed.
func ObserveFoursquare(endpoint string, status int, dur time.Duration) {
	FoursquareRequests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	FoursquareLatency.WithLabelValues(endpoint).Observe(dur.Seconds())
}

func ObserveSubmission(status domain.SubmissionStatus) {
	Submissions.WithLabelValues(string(status)).Inc()
}

func ObserveDuplicateDecision(approved bool) {
	decision := "declined"
	if approved {
		decision = "approved"
	}
	DuplicateDecisions.WithLabelValues(decision).Inc()
}

func ObserveVenueCache(event string) {
	VenueCache.WithLabelValues(event).Inc()
}

func ObserveLedgerAPI(route, method string, status int, dur time.Duration) {
	LedgerAPIRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	LedgerAPILatency.WithLabelValues(route).Observe(dur.Seconds())
}

// LabelErr names the dynamic type of err for log fields.
func LabelErr(err error) string {
	if err == nil {
		return "none"
	}
	return fmt.Sprintf("%T", err)
}
