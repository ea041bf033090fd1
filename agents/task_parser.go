package agents

import (
	"context"
	"fmt"
	"strings"
)

// TaskParserStage normalizes arbitrary input tasks into the canonical shape:
// sequential ids (T1, T2, ...) where missing, an explicit owner sentinel,
// and cleaned dependency lists.
type TaskParserStage struct {
	inputs []TaskInput
}

// NewTaskParserStage creates the parser stage for a batch of input tasks.
func NewTaskParserStage(inputs []TaskInput) *TaskParserStage {
	return &TaskParserStage{inputs: inputs}
}

// Name returns the stage identifier.
func (s *TaskParserStage) Name() string {
	return "TaskParser"
}

// Transform replaces the payload's tasks with their canonical form.
func (s *TaskParserStage) Transform(_ context.Context, payload *Payload) *Payload {
	tasks := make([]Task, 0, len(s.inputs))
	for idx, input := range s.inputs {
		id := input.ID
		if id == "" {
			id = fmt.Sprintf("T%d", idx+1)
		}

		owner := input.Owner
		if owner == "" {
			owner = UnassignedOwner
		}

		depends := input.DependsOn
		if len(depends) == 0 {
			depends = input.Dependencies
		}
		cleaned := make([]string, 0, len(depends))
		for _, d := range depends {
			if trimmed := strings.TrimSpace(d); trimmed != "" {
				cleaned = append(cleaned, trimmed)
			}
		}

		tasks = append(tasks, Task{
			ID:          id,
			Name:        input.Name,
			Description: input.Description,
			Owner:       owner,
			DependsOn:   cleaned,
		})
	}

	payload.Tasks = tasks
	payload.Log("Parsed tasks into canonical structure")
	return payload
}
