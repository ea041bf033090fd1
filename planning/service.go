package planning

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/novahq/sprintplan/llm"
)

// PlanGenerator is the pipeline capability the service orchestrates.
// *Pipeline satisfies it; tests substitute fakes.
type PlanGenerator interface {
	GeneratePlan(ctx context.Context, mc MeetingContext) (*PlanningPlan, string, error)
}

// ResponseStore persists responses as audit artifacts. The repository stays
// the source of truth; store failures are logged and otherwise ignored.
type ResponseStore interface {
	Save(meetingID string, response *PlanningResponse) error
}

// Service orchestrates the repository and pipeline: it is the boundary that
// converts pipeline errors into failed records, so no error from a plan run
// ever escapes SubmitPlan.
type Service struct {
	repo      *Repository
	generator PlanGenerator
	store     ResponseStore
	metrics   *Metrics
	logger    *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithResponseStore enables best-effort persistence of responses.
func WithResponseStore(store ResponseStore) ServiceOption {
	return func(s *Service) {
		s.store = store
	}
}

// WithMetrics enables planning metrics.
func WithMetrics(m *Metrics) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithServiceLogger sets the logger.
func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates a planning service.
func NewService(repo *Repository, generator PlanGenerator, opts ...ServiceOption) *Service {
	s := &Service{
		repo:      repo,
		generator: generator,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitPlan runs the pipeline for a meeting context and returns the final
// response. The record passes through processing and always lands in ready
// or failed before this returns; errors become the failed state rather than
// propagating.
func (s *Service) SubmitPlan(ctx context.Context, mc MeetingContext) *PlanningResponse {
	jobID := uuid.New().String()
	started := time.Now()

	s.repo.UpsertContext(mc, jobID)

	// Correlate completion calls in the audit trail with this run.
	ctx = llm.WithMeetingID(ctx, mc.MeetingID)

	plan, prompt, err := s.generator.GeneratePlan(ctx, mc)

	var record *PlanningRecord
	if err != nil {
		s.logger.Warn("Plan generation failed",
			"meeting_id", mc.MeetingID,
			"job_id", jobID,
			"error", err)
		record = s.repo.SetPlanResult(mc.MeetingID, nil, err.Error(), prompt)
	} else {
		record = s.repo.SetPlanResult(mc.MeetingID, plan, "", prompt)
	}

	// A concurrent re-submission may have superseded this run; mirror
	// whatever this run produced in that case, last write wins in the store.
	response := &PlanningResponse{
		MeetingID:  mc.MeetingID,
		AgentJobID: jobID,
		Transcript: mc.Transcript,
		Prompt:     prompt,
	}
	if record != nil {
		response.Status = record.Status
		response.Plan = record.Plan
		response.AgentJobID = record.AgentJobID
		response.Error = record.Error
	} else if err != nil {
		response.Status = StatusFailed
		response.Error = err.Error()
	} else {
		response.Status = StatusReady
		response.Plan = plan
	}

	s.metrics.observeSubmission(response.Status, time.Since(started).Seconds())
	s.persistResponse(response)

	return response
}

// GetPlan returns the current response for a meeting id, or ErrNotFound.
func (s *Service) GetPlan(ctx context.Context, meetingID string) (*PlanningResponse, error) {
	record := s.repo.Get(meetingID)
	if record == nil {
		s.metrics.observeFetch("not_found")
		return nil, fmt.Errorf("no plan for meeting %q: %w", meetingID, ErrNotFound)
	}

	response := &PlanningResponse{
		MeetingID:  record.MeetingID,
		Status:     record.Status,
		Plan:       record.Plan,
		AgentJobID: record.AgentJobID,
		Error:      record.Error,
		Transcript: record.Context.Transcript,
		Prompt:     record.Prompt,
	}

	s.metrics.observeFetch("ok")
	s.persistResponse(response)

	return response, nil
}

// persistResponse writes the response to the external store, best-effort.
func (s *Service) persistResponse(response *PlanningResponse) {
	if s.store == nil {
		return
	}
	if err := s.store.Save(response.MeetingID, response); err != nil {
		s.logger.Warn("Failed to persist planning response",
			"meeting_id", response.MeetingID,
			"error", err)
	}
}
