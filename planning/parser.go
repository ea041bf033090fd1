package planning

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/novahq/sprintplan/llm"
	"github.com/novahq/sprintplan/model"
)

// repairTemperature makes the repair round-trip deterministic.
var repairTemperature = 0.0

// repairMaxTokens bounds the repair completion.
const repairMaxTokens = 1800

// Parser turns raw model output into a validated plan. On parse failure it
// issues at most one repair round-trip through the completion capability
// before giving up.
type Parser struct {
	completer Completer
}

// NewParser creates a parser backed by the given completion capability.
func NewParser(completer Completer) *Parser {
	return &Parser{completer: completer}
}

// ParsePlan parses model output into a plan. Markdown fencing and similar
// wrapping are tolerated; genuinely broken JSON triggers one repair call.
func (p *Parser) ParsePlan(ctx context.Context, raw string) (*PlanningPlan, error) {
	plan, err := decodePlan(raw)
	if err == nil {
		return plan, nil
	}

	// Models often wrap JSON in markdown fences or add stray commentary.
	// Try extracting the JSON object before paying for a repair call.
	if extracted := llm.ExtractJSON(raw); extracted != raw {
		if plan, extractErr := decodePlan(extracted); extractErr == nil {
			return plan, nil
		}
	}

	repaired, repairErr := p.repair(ctx, raw)
	if repairErr != nil {
		return nil, NewGenerationError(fmt.Errorf("parse failed (%v) and repair failed: %w", err, repairErr))
	}

	plan, err = decodePlan(repaired)
	if err != nil {
		return nil, NewGenerationError(fmt.Errorf("repaired output still invalid: %w", err))
	}
	return plan, nil
}

// repair asks the model to fix the payload at zero temperature.
// One attempt only; repair exists to bound cost, not to chase convergence.
func (p *Parser) repair(ctx context.Context, payload string) (string, error) {
	resp, err := p.completer.Complete(ctx, llm.Request{
		Capability: model.CapabilityRepair.String(),
		Messages: []llm.Message{
			{Role: "system", Content: repairSystemPrompt},
			{Role: "user", Content: buildRepairPrompt(payload)},
		},
		Temperature: &repairTemperature,
		MaxTokens:   repairMaxTokens,
	})
	if err != nil {
		return "", err
	}

	fixed := strings.TrimSpace(resp.Content)
	if !json.Valid([]byte(fixed)) {
		fixed = llm.ExtractJSON(fixed)
		if !json.Valid([]byte(fixed)) {
			return "", fmt.Errorf("repair response is not valid JSON")
		}
	}
	return fixed, nil
}

// decodePlan strictly decodes and validates a plan document.
func decodePlan(raw string) (*PlanningPlan, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed == "null" {
		return nil, fmt.Errorf("empty plan document")
	}
	if !strings.HasPrefix(trimmed, "{") {
		return nil, fmt.Errorf("plan document is not a JSON object")
	}

	var plan PlanningPlan
	if err := json.Unmarshal([]byte(trimmed), &plan); err != nil {
		return nil, fmt.Errorf("decode plan: %w", err)
	}

	if err := validatePlan(&plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

// validatePlan enforces the structural requirements: every milestone and task
// needs a title. Minimum counts for risks and milestones are prompt-level
// requests, deliberately not validated here.
func validatePlan(plan *PlanningPlan) error {
	for i, m := range plan.Milestones {
		if strings.TrimSpace(m.Title) == "" {
			return fmt.Errorf("milestone %d missing title", i)
		}
		for j, t := range m.Tasks {
			if strings.TrimSpace(t.Title) == "" {
				return fmt.Errorf("milestone %q task %d missing title", m.Title, j)
			}
		}
	}
	return nil
}
