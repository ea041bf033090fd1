package planning

import (
	"sync"
)

// Repository is a thread-safe in-memory store of planning records keyed by
// meeting id. A single coarse mutex guards the whole map; operations are
// short and O(1), so finer locking would buy nothing.
//
// Invariant for every stored record: status == ready implies plan set and
// error empty; status == failed implies error set and plan nil.
type Repository struct {
	mu      sync.Mutex
	records map[string]*PlanningRecord
}

// NewRepository creates an empty repository.
func NewRepository() *Repository {
	return &Repository{
		records: make(map[string]*PlanningRecord),
	}
}

// UpsertContext creates a record for the meeting or supersedes an existing
// one: the context is replaced, status resets to processing, and any prior
// plan or error is cleared. No history of superseded plans is kept.
// Returns a copy of the now-current record.
func (r *Repository) UpsertContext(mc MeetingContext, jobID string) *PlanningRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[mc.MeetingID]
	if ok {
		record.Context = mc.Clone()
		record.Status = StatusProcessing
		if jobID != "" {
			record.AgentJobID = jobID
		}
		record.Plan = nil
		record.Error = ""
		record.Prompt = ""
	} else {
		record = &PlanningRecord{
			MeetingID:  mc.MeetingID,
			Context:    mc.Clone(),
			Status:     StatusProcessing,
			AgentJobID: jobID,
		}
		r.records[mc.MeetingID] = record
	}

	return record.Clone()
}

// SetPlanResult transitions an existing record to ready (plan set, error
// cleared) or failed (error set, plan cleared). Returns nil when no record
// exists for the id; callers treat that as a no-op since the submission may
// have been superseded. The prompt is recorded either way for auditing.
func (r *Repository) SetPlanResult(meetingID string, plan *PlanningPlan, errMsg string, prompt string) *PlanningRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[meetingID]
	if !ok {
		return nil
	}

	if errMsg != "" {
		record.Status = StatusFailed
		record.Error = errMsg
		record.Plan = nil
	} else {
		record.Status = StatusReady
		record.Plan = plan.Clone()
		record.Error = ""
	}
	record.Prompt = prompt

	return record.Clone()
}

// Get returns a deep copy of the record for the meeting id, or nil if absent.
func (r *Repository) Get(meetingID string) *PlanningRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.records[meetingID]
	if !ok {
		return nil
	}
	return record.Clone()
}

// Len returns the number of stored records.
func (r *Repository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.records)
}
