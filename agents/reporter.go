package agents

import (
	"context"
	"fmt"
)

// ReporterStage aggregates the chain's output into a summary: total hours,
// a staffing estimate, the distinct non-Low risk levels present, and a
// blockers list when any task is High risk.
type ReporterStage struct{}

// NewReporterStage creates the reporter stage.
func NewReporterStage() *ReporterStage {
	return &ReporterStage{}
}

// Name returns the stage identifier.
func (s *ReporterStage) Name() string {
	return "Reporter"
}

// Transform writes the summary into the payload. Risk levels are listed in
// order of first appearance, keeping output stable for identical input.
func (s *ReporterStage) Transform(_ context.Context, payload *Payload) *Payload {
	totalHours := 0
	risks := []string{}
	seen := make(map[string]bool)
	anyHigh := false

	for _, task := range payload.Tasks {
		totalHours += task.Hours
		if task.Risk != "" && task.Risk != RiskLow && !seen[task.Risk] {
			seen[task.Risk] = true
			risks = append(risks, task.Risk)
		}
		if task.Risk == RiskHigh {
			anyHigh = true
		}
	}

	blockers := []string{}
	if anyHigh {
		blockers = []string{"Awaiting approvals"}
	}

	payload.Summary = &Summary{
		TotalHours: totalHours,
		Staffing: fmt.Sprintf("%d employees (~%.1f sprints)",
			len(payload.Allocations), float64(totalHours)/40),
		Risks:    risks,
		Blockers: blockers,
	}

	payload.Log("Reporter stage compiled summary")
	return payload
}
