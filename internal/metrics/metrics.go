package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/unipublish/backend/internal/metadata"
	"github.com/unipublish/backend/internal/platforms"
	"github.com/unipublish/backend/internal/workflow"
)

// Recorder owns the service's Prometheus collectors.
type Recorder struct {
	registry *prometheus.Registry

	// StatusTransitions counts platform status changes by platform and target status.
	StatusTransitions *prometheus.CounterVec
	// Generations counts metadata generation calls by platform and outcome.
	Generations *prometheus.CounterVec
	// AnalysisSeconds tracks video analysis latency by outcome.
	AnalysisSeconds *prometheus.HistogramVec
	// Jobs counts background workflow jobs by name and outcome.
	Jobs *prometheus.CounterVec
	// JobSeconds tracks background workflow duration by job name.
	JobSeconds *prometheus.HistogramVec
}

// New registers every collector on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		StatusTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "unipublish_status_transitions_total",
				Help: "Platform status transitions by platform and target status",
			},
			[]string{"platform", "status"},
		),
		Generations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "unipublish_generations_total",
				Help: "Metadata generation requests by platform and outcome",
			},
			[]string{"platform", "outcome"},
		),
		AnalysisSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "unipublish_video_analysis_seconds",
				Help:    "Video analysis latency in seconds",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
			},
			[]string{"outcome"},
		),
		Jobs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "unipublish_jobs_total",
				Help: "Background workflow jobs by name and outcome",
			},
			[]string{"job", "outcome"},
		),
		JobSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "unipublish_job_seconds",
				Help:    "Background workflow duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"job"},
		),
	}
}

// Handler exposes the registry for scraping.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// TrackSessions exposes count as the number of live dashboard sessions. It
// must be called at most once per Recorder.
func (r *Recorder) TrackSessions(count func() int) {
	promauto.With(r.registry).NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "unipublish_sessions",
			Help: "Live dashboard sessions held in memory",
		},
		func() float64 { return float64(count()) },
	)
}

// Listener counts every status transition emitted by a workflow controller.
func (r *Recorder) Listener() workflow.Listener {
	return func(t workflow.Transition) {
		r.StatusTransitions.WithLabelValues(string(t.Platform), string(t.To)).Inc()
	}
}

// ObserveJob records the outcome of a background job.
func (r *Recorder) ObserveJob(name string, elapsed time.Duration, err error) {
	r.Jobs.WithLabelValues(name, outcome(err)).Inc()
	r.JobSeconds.WithLabelValues(name).Observe(elapsed.Seconds())
}

// Instrument wraps a metadata service so every call is measured.
func (r *Recorder) Instrument(service metadata.Service) metadata.Service {
	if service == nil {
		return nil
	}
	return &instrumentedService{base: service, recorder: r}
}

type instrumentedService struct {
	base     metadata.Service
	recorder *Recorder
}

func (s *instrumentedService) AnalyzeVideoContext(ctx context.Context, video []byte, mimeType string) (string, error) {
	start := time.Now()
	summary, err := s.base.AnalyzeVideoContext(ctx, video, mimeType)
	s.recorder.AnalysisSeconds.WithLabelValues(outcome(err)).Observe(time.Since(start).Seconds())
	return summary, err
}

func (s *instrumentedService) GenerateMetadata(ctx context.Context, platform platforms.ID, sourceContext string) (platforms.Metadata, error) {
	data, err := s.base.GenerateMetadata(ctx, platform, sourceContext)
	s.recorder.Generations.WithLabelValues(string(platform), generationOutcome(err)).Inc()
	return data, err
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "error"
	}
}

func generationOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, metadata.ErrEmptyGenerationResult):
		return "empty"
	case errors.Is(err, metadata.ErrMalformedResponse):
		return "malformed"
	default:
		return outcome(err)
	}
}
