package agents

import (
	"context"
	"strings"
)

// EstimatorStage derives an hours estimate and a risk level for every task.
// The estimate is a deterministic function of description length; risk comes
// from keyword triggers in the description.
type EstimatorStage struct{}

// NewEstimatorStage creates the estimator stage.
func NewEstimatorStage() *EstimatorStage {
	return &EstimatorStage{}
}

// Name returns the stage identifier.
func (s *EstimatorStage) Name() string {
	return "Estimator"
}

// Transform fills hours, risk, and status on every task.
func (s *EstimatorStage) Transform(_ context.Context, payload *Payload) *Payload {
	for i := range payload.Tasks {
		task := &payload.Tasks[i]
		task.Hours = estimateHours(task.Description)
		task.Risk = riskFromText(task.Description)
		task.Status = "pending"
	}

	payload.Log("Estimator stage added hours and risk")
	return payload
}

// estimateHours maps description word count to hours:
// ceil(max(1, words)/3)*2 + 8.
func estimateHours(description string) int {
	baseline := len(strings.Fields(description))
	if baseline < 1 {
		baseline = 1
	}
	return (baseline+2)/3*2 + 8
}

var (
	highRiskKeywords   = []string{"migrate", "compliance", "security"}
	mediumRiskKeywords = []string{"integration", "prototype"}
)

func riskFromText(text string) string {
	lower := strings.ToLower(text)
	for _, word := range highRiskKeywords {
		if strings.Contains(lower, word) {
			return RiskHigh
		}
	}
	for _, word := range mediumRiskKeywords {
		if strings.Contains(lower, word) {
			return RiskMedium
		}
	}
	return RiskLow
}
