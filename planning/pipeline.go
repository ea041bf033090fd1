package planning

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/novahq/sprintplan/llm"
	"github.com/novahq/sprintplan/model"
)

// Completer is the chat-completion capability the pipeline depends on.
// *llm.Client satisfies it; tests substitute fakes.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// ContextGatherer turns a repository reference plus free text into a short
// blob of relevant code hints. Implementations never return an error; any
// failure degrades to an explanatory placeholder string.
type ContextGatherer interface {
	GatherContext(ctx context.Context, repositoryURL, query string) string
}

// IssueEnricher renders readable excerpts of referenced issue pages for the
// prompt. Implementations are best-effort and return "" when nothing useful
// could be fetched.
type IssueEnricher interface {
	EnrichIssues(ctx context.Context, issues []IssueReference) string
}

// emptyResponseAttempts bounds the retry loop for blank completions.
// Some backends occasionally return an empty choice; retrying is cheap
// compared to failing the whole run.
const emptyResponseAttempts = 3

// Pipeline composes prompt building, completion, and parse/repair into a
// single generate operation. Steps run strictly sequentially.
type Pipeline struct {
	completer   Completer
	gatherer    ContextGatherer
	enricher    IssueEnricher
	parser      *Parser
	temperature float64
	maxTokens   int
	logger      *slog.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithGatherer sets the repository-context gatherer. Without one, prompts
// carry a "no lookup performed" placeholder.
func WithGatherer(g ContextGatherer) PipelineOption {
	return func(p *Pipeline) {
		p.gatherer = g
	}
}

// WithIssueEnricher adds issue-page excerpts to the repository signals.
func WithIssueEnricher(e IssueEnricher) PipelineOption {
	return func(p *Pipeline) {
		p.enricher = e
	}
}

// WithTemperature sets the sampling temperature for plan generation.
func WithTemperature(t float64) PipelineOption {
	return func(p *Pipeline) {
		p.temperature = t
	}
}

// WithMaxTokens sets the completion token budget for plan generation.
func WithMaxTokens(n int) PipelineOption {
	return func(p *Pipeline) {
		p.maxTokens = n
	}
}

// WithPipelineLogger sets the logger.
func WithPipelineLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// NewPipeline creates a planning pipeline over the given completion capability.
// Defaults favor determinism over creativity with a generous token budget,
// since plan payloads are verbose.
func NewPipeline(completer Completer, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		completer:   completer,
		parser:      NewParser(completer),
		temperature: 0.3,
		maxTokens:   2000,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GeneratePlan runs the full pipeline for a meeting context. It returns the
// plan and the prompt that produced it; the prompt is returned even on
// failure so the record keeps an audit trail of what was asked.
func (p *Pipeline) GeneratePlan(ctx context.Context, mc MeetingContext) (*PlanningPlan, string, error) {
	excerpt := TranscriptExcerpt(mc.Transcript)
	repoContext := p.gatherRepositoryContext(ctx, mc, excerpt)
	prompt := BuildPrompt(mc, repoContext)

	raw, err := p.callText(ctx, prompt)
	if err != nil {
		return nil, prompt, NewGenerationError(err)
	}

	plan, err := p.parser.ParsePlan(ctx, raw)
	if err != nil {
		return nil, prompt, err
	}

	p.logger.Info("Generated plan",
		"meeting_id", mc.MeetingID,
		"milestones", len(plan.Milestones),
		"risks", len(plan.Risks))

	return plan, prompt, nil
}

// gatherRepositoryContext is best-effort: a missing gatherer or repository
// reference degrades to a placeholder, never a failure. Issue-page excerpts
// are appended when an enricher is configured and finds anything.
func (p *Pipeline) gatherRepositoryContext(ctx context.Context, mc MeetingContext, query string) string {
	signals := "No repository lookup performed."
	if p.gatherer != nil {
		signals = p.gatherer.GatherContext(ctx, mc.Project.RepositoryURL, query)
	}

	if p.enricher != nil && len(mc.Issues) > 0 {
		if notes := p.enricher.EnrichIssues(ctx, mc.Issues); notes != "" {
			signals += "\n\nIssue notes:\n" + notes
		}
	}

	return signals
}

// callText invokes the completion capability, retrying blank responses.
func (p *Pipeline) callText(ctx context.Context, prompt string) (string, error) {
	temperature := p.temperature

	var result string
	for attempt := 1; attempt <= emptyResponseAttempts; attempt++ {
		resp, err := p.completer.Complete(ctx, llm.Request{
			Capability: model.CapabilityPlanning.String(),
			Messages: []llm.Message{
				{Role: "system", Content: plannerSystemPrompt},
				{Role: "user", Content: prompt},
			},
			Temperature: &temperature,
			MaxTokens:   p.maxTokens,
		})
		if err != nil {
			return "", err
		}

		result = strings.TrimSpace(resp.Content)
		if result != "" {
			return result, nil
		}

		p.logger.Warn("Empty completion response, retrying",
			"attempt", attempt,
			"max_attempts", emptyResponseAttempts)

		if attempt < emptyResponseAttempts {
			wait := time.Duration(attempt) * time.Second
			if wait > 2*time.Second {
				wait = 2 * time.Second
			}
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(wait):
			}
		}
	}

	return "", fmt.Errorf("completion returned an empty response after %d attempts", emptyResponseAttempts)
}
