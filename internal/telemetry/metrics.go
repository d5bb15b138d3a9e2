// Package telemetry exposes the Prometheus metrics the orchestrator and
// segmenter update as requests flow through the pipeline.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts every orchestrator.Handle call by its final
	// response status (ok, emergency_dispatched, need_confirm, denied,
	// canceled, error).
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "triage_requests_total",
		Help: "Total requests handled by final response status",
	}, []string{"status"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "triage_stage_duration_seconds",
		Help:    "Per-stage latency through the C5 state machine",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.2, 0.3, 0.5, 1.0, 2.0},
	}, []string{"stage"})

	WakewordDetections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "triage_wakeword_detections_total",
		Help: "Wakeword hits by category",
	}, []string{"type"})

	SOSDetections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "triage_sos_detections_total",
		Help: "SOS hits by category and whether they triggered bypass",
	}, []string{"category", "bypassed"})

	EmergencyDispatches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "triage_emergency_dispatches_total",
		Help: "Total SIP dispatches to an emergency callee",
	})

	GuardDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "triage_guard_decisions_total",
		Help: "PostGuard verdicts by verdict and reason",
	}, []string{"verdict", "reason"})

	SpeechSegments = promauto.NewCounter(prometheus.CounterOpts{
		Name: "triage_speech_segments_total",
		Help: "Speech segments emitted by the C1 segmenter",
	})

	MalformedPCMFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "triage_malformed_pcm_frames_total",
		Help: "Raw PCM chunks dropped for a byte count not a multiple of 4 bytes per channel-frame",
	})

	AdapterErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "triage_adapter_errors_total",
		Help: "Execute-stage adapter failures by adapter name",
	}, []string{"adapter"})
)
