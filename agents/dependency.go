package agents

import (
	"context"
	"log/slog"
	"strings"

	"github.com/novahq/sprintplan/llm"
	"github.com/novahq/sprintplan/model"
)

// Completer is the optional completion capability the dependency stage can
// consult. *llm.Client satisfies it.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// DependencyStage adds dependency edges between tasks. The applied edges
// come from a substring heuristic: task A depends on task B when B's name
// appears (case-insensitively) in A's description.
//
// When a completer is configured the stage also asks the model for a
// dependency map, but the response is deliberately not merged into the
// tasks; the heuristic output is what ships. Merging model edges needs a
// validation step for hallucinated ids before it can be turned on.
type DependencyStage struct {
	completer Completer
	logger    *slog.Logger
}

// NewDependencyStage creates the dependency stage. completer may be nil.
func NewDependencyStage(completer Completer, logger *slog.Logger) *DependencyStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &DependencyStage{completer: completer, logger: logger}
}

// Name returns the stage identifier.
func (s *DependencyStage) Name() string {
	return "Dependency"
}

// Transform links tasks by the substring heuristic.
func (s *DependencyStage) Transform(ctx context.Context, payload *Payload) *Payload {
	if len(payload.Tasks) == 0 {
		return payload
	}

	s.consultModel(ctx, payload.Tasks)

	// Ordered iteration keeps edge insertion deterministic across runs.
	for i := range payload.Tasks {
		task := &payload.Tasks[i]
		description := strings.ToLower(task.Description)

		for j := range payload.Tasks {
			candidate := &payload.Tasks[j]
			if candidate.Name == task.Name {
				continue
			}
			if candidate.Name == "" {
				continue
			}
			if !strings.Contains(description, strings.ToLower(candidate.Name)) {
				continue
			}
			if containsString(task.DependsOn, candidate.ID) {
				continue
			}
			task.DependsOn = append(task.DependsOn, candidate.ID)
		}
	}

	payload.Log("Dependency stage linked tasks")
	return payload
}

// consultModel issues the advisory dependency query. Failures are logged
// and ignored; the heuristic never waits on a working model.
func (s *DependencyStage) consultModel(ctx context.Context, tasks []Task) {
	if s.completer == nil {
		return
	}

	var b strings.Builder
	b.WriteString("You are a dependency analyst. Return JSON mapping task id to its depends_on array.\n")
	for _, task := range tasks {
		b.WriteString("Task " + task.ID + ": " + task.Name + " :: " + task.Description + "\n")
	}

	_, err := s.completer.Complete(ctx, llm.Request{
		Capability: model.CapabilityDependency.String(),
		Messages: []llm.Message{
			{Role: "user", Content: b.String()},
		},
	})
	if err != nil {
		s.logger.Debug("Advisory dependency call failed", "error", err)
	}
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
