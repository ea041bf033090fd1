// Package server exposes the planning service and agent chain over HTTP.
package server

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/novahq/sprintplan/agents"
	"github.com/novahq/sprintplan/planning"
	"github.com/novahq/sprintplan/transcribe"
)

// maxContextBodySize limits JSON request bodies.
const maxContextBodySize = 1 * 1024 * 1024 // 1MB

// maxAudioUploadSize limits multipart uploads on the analyze endpoint.
const maxAudioUploadSize = 25 * 1024 * 1024 // 25MB

// Server routes HTTP requests to the planning service and agent chain.
type Server struct {
	planning     *planning.Service
	orchestrator *agents.Orchestrator
	transcriber  *transcribe.Chain
	gatherer     prometheus.Gatherer
	logger       *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithTranscriber enables audio transcription on the analyze endpoint.
func WithTranscriber(t *transcribe.Chain) Option {
	return func(s *Server) {
		s.transcriber = t
	}
}

// WithOrchestrator enables the agent-chain endpoints.
func WithOrchestrator(o *agents.Orchestrator) Option {
	return func(s *Server) {
		s.orchestrator = o
	}
}

// WithMetricsGatherer exposes /metrics from the given gatherer.
func WithMetricsGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithServerLogger sets the logger.
func WithServerLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// New creates a server over the planning service.
func New(planningService *planning.Service, opts ...Option) *Server {
	s := &Server{
		planning: planningService,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/v1/meetings/{meetingId}/plan", s.handleSubmitPlan)
	mux.HandleFunc("GET /api/v1/meetings/{meetingId}/plan", s.handleGetPlan)
	mux.HandleFunc("POST /api/v1/meetings/analyze", s.handleAnalyzeMeeting)

	if s.orchestrator != nil {
		mux.HandleFunc("POST /api/v1/agents/analyze", s.handleAgentAnalyze)
		mux.HandleFunc("POST /api/v1/agents/report", s.handleAgentReport)
	}

	if s.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	return mux
}
