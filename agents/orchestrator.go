package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// Stage is one step of the analysis chain. Stages mutate the payload and
// pass it along; the chain has no branching or early exit.
type Stage interface {
	Name() string
	Transform(ctx context.Context, payload *Payload) *Payload
}

// TrackEvent is what gets reported to an external tracker after each stage.
type TrackEvent struct {
	Stage   string   `json:"stage"`
	Tasks   []Task   `json:"tasks"`
	Logs    []string `json:"logs"`
	Summary *Summary `json:"summary,omitempty"`
}

// Tracker is an optional telemetry sink. Any error it returns is logged and
// ignored; telemetry never affects the chain's outcome.
type Tracker interface {
	Report(ctx context.Context, event TrackEvent) error
}

// Orchestrator runs the fixed stage chain over a task batch.
type Orchestrator struct {
	completer Completer
	tracker   Tracker
	roster    []string
	capacity  int
	logger    *slog.Logger
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithCompleter enables the advisory completion call in the dependency stage.
func WithCompleter(c Completer) OrchestratorOption {
	return func(o *Orchestrator) {
		o.completer = c
	}
}

// WithTracker enables per-stage telemetry reporting.
func WithTracker(t Tracker) OrchestratorOption {
	return func(o *Orchestrator) {
		o.tracker = t
	}
}

// WithTeam overrides the owner roster and per-owner capacity.
func WithTeam(roster []string, capacityHours int) OrchestratorOption {
	return func(o *Orchestrator) {
		o.roster = roster
		o.capacity = capacityHours
	}
}

// WithOrchestratorLogger sets the logger.
func WithOrchestratorLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// NewOrchestrator creates an orchestrator with the default roster and capacity.
func NewOrchestrator(opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		roster:   DefaultRoster,
		capacity: DefaultCapacityHours,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Analyze runs the full chain: parse, dependency-link, estimate, assign,
// report. Stages execute strictly in order; each tolerates partial upstream
// data rather than failing.
func (o *Orchestrator) Analyze(ctx context.Context, inputs []TaskInput) *Analysis {
	stages := []Stage{
		NewTaskParserStage(inputs),
		NewDependencyStage(o.completer, o.logger),
		NewEstimatorStage(),
		NewOptimizerStage(WithRoster(o.roster), WithCapacityHours(o.capacity)),
		NewReporterStage(),
	}

	payload := &Payload{Logs: []string{}}
	for _, stage := range stages {
		payload = stage.Transform(ctx, payload)
		o.track(ctx, stage.Name(), payload)
	}

	return &Analysis{
		Tasks:     payload.Tasks,
		Employees: payload.Allocations,
		Summary:   payload.Summary,
		Logs:      payload.Logs,
	}
}

// BuildReport renders an analysis into its report form, with the full
// analysis embedded as a data URL for download.
func (o *Orchestrator) BuildReport(analysis *Analysis) (*Report, error) {
	encoded, err := json.Marshal(analysis)
	if err != nil {
		return nil, fmt.Errorf("encode analysis: %w", err)
	}

	return &Report{
		Summary:     analysis.Summary,
		Report:      buildReportText(analysis),
		DownloadURL: "data:application/json," + string(encoded),
		VoiceURL:    nil,
	}, nil
}

// track reports a stage completion to the tracker, swallowing any failure.
func (o *Orchestrator) track(ctx context.Context, stageName string, payload *Payload) {
	if o.tracker == nil {
		return
	}

	err := o.tracker.Report(ctx, TrackEvent{
		Stage:   stageName,
		Tasks:   payload.Tasks,
		Logs:    payload.Logs,
		Summary: payload.Summary,
	})
	if err != nil {
		o.logger.Debug("Stage telemetry failed", "stage", stageName, "error", err)
	}
}

func buildReportText(analysis *Analysis) string {
	var b strings.Builder
	b.WriteString("Agentic Project Overview\n")
	if analysis.Summary != nil {
		fmt.Fprintf(&b, "Total hours: %d\n", analysis.Summary.TotalHours)
		fmt.Fprintf(&b, "Staffing: %s\n", analysis.Summary.Staffing)
	}
	b.WriteString("Assignments:")
	for _, employee := range analysis.Employees {
		fmt.Fprintf(&b, "\n- %s: %s", employee.Name, strings.Join(employee.Tasks, ", "))
	}
	return b.String()
}
