package core

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/quka-ai/synthesis/pkg/metrics"
	"github.com/quka-ai/synthesis/pkg/podcast"
	"github.com/quka-ai/synthesis/pkg/types"
)

var _ podcast.Metrics = (*Metrics)(nil)

type Metrics struct {
	manager *metrics.Manager

	apiResponseTime       *prometheus.HistogramVec
	apiErrorCounter       *prometheus.CounterVec
	generationRequestTime *prometheus.HistogramVec
	generationError       *prometheus.CounterVec
	stageTime             *prometheus.HistogramVec
	jobCounter            *prometheus.CounterVec
	segmentTime           *prometheus.HistogramVec
	retryCounter          *prometheus.CounterVec
}

// 合成一段音频和一次完整的阶段耗时差别很大，分别使用不同的分桶
var (
	stageBuckets   = []float64{1, 5, 10, 30, 60, 120, 300, 600, 1200}
	segmentBuckets = []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32}
)

func NewMetrics(ns, system string, registry *prometheus.Registry) *Metrics {
	// setup metric
	m := metrics.SetupMetricsManager(ns, system, registry)

	return &Metrics{
		manager:               m,
		apiResponseTime:       m.NewHistogramVec("api_response_time", []string{"api"}),
		apiErrorCounter:       m.NewCounterVec("api_error", []string{"method", "api", "status"}),
		generationRequestTime: m.NewHistogramVec("generation_request_time", []string{"driver"}),
		generationError:       m.NewCounterVec("generation_error", []string{"driver"}),
		stageTime:             m.NewHistogramVec("pipeline_stage_time", []string{"stage"}, stageBuckets...),
		jobCounter:            m.NewCounterVec("pipeline_jobs", []string{"status"}),
		segmentTime:           m.NewHistogramVec("tts_segment_time", nil, segmentBuckets...),
		retryCounter:          m.NewCounterVec("tts_retry", nil),
	}
}

func (m *Metrics) Manager() *metrics.Manager {
	return m.manager
}

func (m *Metrics) ApiErrorInc(method, api string, status int) {
	m.apiErrorCounter.WithLabelValues(method, api, strconv.Itoa(status)).Inc()
}

func (m *Metrics) ApiResponseTimer(api string) *prometheus.Timer {
	return prometheus.NewTimer(m.apiResponseTime.WithLabelValues(api))
}

func (m *Metrics) GenerationRequestTimer(driver string) *prometheus.Timer {
	return prometheus.NewTimer(m.generationRequestTime.WithLabelValues(driver))
}

func (m *Metrics) GenerationErrorInc(driver string) {
	m.generationError.WithLabelValues(driver).Inc()
}

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	m.stageTime.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) ObserveSegment(d time.Duration) {
	m.segmentTime.WithLabelValues().Observe(d.Seconds())
}

func (m *Metrics) IncRetry() {
	m.retryCounter.WithLabelValues().Inc()
}

func (m *Metrics) IncJob(status types.JobStatus) {
	m.jobCounter.WithLabelValues(string(status)).Inc()
}
