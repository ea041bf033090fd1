package agents

import (
	"context"
)

// DefaultRoster is the fallback team for owner assignment.
var DefaultRoster = []string{"Ada Lovelace", "Grace Hopper", "Edsger Dijkstra", "Radia Perlman"}

// DefaultCapacityHours is the per-owner sprint capacity used for utilization.
const DefaultCapacityHours = 120

// OptimizerStage round-robin-assigns owners from a fixed roster to tasks
// lacking one, and accumulates per-owner allocation records. A task carrying
// the "Unassigned" sentinel counts as lacking an owner.
type OptimizerStage struct {
	roster        []string
	capacityHours int
}

// OptimizerOption configures an OptimizerStage.
type OptimizerOption func(*OptimizerStage)

// WithRoster overrides the assignable team.
func WithRoster(roster []string) OptimizerOption {
	return func(s *OptimizerStage) {
		if len(roster) > 0 {
			s.roster = roster
		}
	}
}

// WithCapacityHours overrides the per-owner capacity.
func WithCapacityHours(hours int) OptimizerOption {
	return func(s *OptimizerStage) {
		if hours > 0 {
			s.capacityHours = hours
		}
	}
}

// NewOptimizerStage creates the optimizer stage.
func NewOptimizerStage(opts ...OptimizerOption) *OptimizerStage {
	s := &OptimizerStage{
		roster:        DefaultRoster,
		capacityHours: DefaultCapacityHours,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the stage identifier.
func (s *OptimizerStage) Name() string {
	return "Optimizer"
}

// Transform assigns owners and builds the allocation list. Allocation order
// follows first assignment, keeping output deterministic for identical input.
func (s *OptimizerStage) Transform(_ context.Context, payload *Payload) *Payload {
	byOwner := make(map[string]*Allocation)
	var order []string

	for idx := range payload.Tasks {
		task := &payload.Tasks[idx]

		if task.Owner == "" || task.Owner == UnassignedOwner {
			task.Owner = s.roster[idx%len(s.roster)]
		}

		alloc, ok := byOwner[task.Owner]
		if !ok {
			alloc = &Allocation{
				Name:          task.Owner,
				CapacityHours: s.capacityHours,
			}
			byOwner[task.Owner] = alloc
			order = append(order, task.Owner)
		}
		alloc.Tasks = append(alloc.Tasks, task.ID)
		alloc.Utilization += float64(task.Hours) / float64(alloc.CapacityHours)
	}

	payload.Allocations = make([]Allocation, 0, len(order))
	for _, name := range order {
		payload.Allocations = append(payload.Allocations, *byOwner[name])
	}

	payload.Log("Optimizer stage assigned owners")
	return payload
}
