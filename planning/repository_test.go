package planning

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func samplePlan() *PlanningPlan {
	return &PlanningPlan{
		Summary: strPtr("summary"),
		Risks:   []string{"risk one"},
		Milestones: []Milestone{
			{Title: "M1", Tasks: []TaskAssignment{{Title: "T1", Areas: []string{"pkg/"}}}},
		},
	}
}

func TestUpsertCreatesProcessingRecord(t *testing.T) {
	repo := NewRepository()

	record := repo.UpsertContext(testContext(), "job-1")
	require.NotNil(t, record)
	assert.Equal(t, "meeting-1", record.MeetingID)
	assert.Equal(t, StatusProcessing, record.Status)
	assert.Equal(t, "job-1", record.AgentJobID)
	assert.Nil(t, record.Plan)
	assert.Empty(t, record.Error)
}

func TestUpsertSupersedesExistingRecord(t *testing.T) {
	repo := NewRepository()
	mc := testContext()

	repo.UpsertContext(mc, "job-1")
	repo.SetPlanResult(mc.MeetingID, samplePlan(), "", "old prompt")

	updated := mc.Clone()
	updated.Transcript = "second meeting transcript"
	record := repo.UpsertContext(updated, "job-2")

	assert.Equal(t, StatusProcessing, record.Status)
	assert.Nil(t, record.Plan)
	assert.Empty(t, record.Error)
	assert.Empty(t, record.Prompt)
	assert.Equal(t, "job-2", record.AgentJobID)
	assert.Equal(t, "second meeting transcript", record.Context.Transcript)

	// Supersede keeps exactly one record per id
	assert.Equal(t, 1, repo.Len())
}

func TestUpsertKeepsJobIDWhenEmpty(t *testing.T) {
	repo := NewRepository()
	mc := testContext()

	repo.UpsertContext(mc, "job-1")
	record := repo.UpsertContext(mc, "")
	assert.Equal(t, "job-1", record.AgentJobID)
}

func TestSetPlanResultReady(t *testing.T) {
	repo := NewRepository()
	mc := testContext()
	repo.UpsertContext(mc, "job-1")

	record := repo.SetPlanResult(mc.MeetingID, samplePlan(), "", "the prompt")
	require.NotNil(t, record)
	assert.Equal(t, StatusReady, record.Status)
	require.NotNil(t, record.Plan)
	assert.Empty(t, record.Error)
	assert.Equal(t, "the prompt", record.Prompt)
}

func TestSetPlanResultFailedClearsPlan(t *testing.T) {
	repo := NewRepository()
	mc := testContext()
	repo.UpsertContext(mc, "job-1")
	repo.SetPlanResult(mc.MeetingID, samplePlan(), "", "")

	record := repo.SetPlanResult(mc.MeetingID, nil, "upstream exploded", "the prompt")
	require.NotNil(t, record)
	assert.Equal(t, StatusFailed, record.Status)
	assert.Nil(t, record.Plan)
	assert.Equal(t, "upstream exploded", record.Error)
}

func TestSetPlanResultUnknownIDIsNoop(t *testing.T) {
	repo := NewRepository()
	assert.Nil(t, repo.SetPlanResult("ghost", samplePlan(), "", ""))
}

func TestGetReturnsIndependentCopy(t *testing.T) {
	repo := NewRepository()
	mc := testContext()
	repo.UpsertContext(mc, "job-1")
	repo.SetPlanResult(mc.MeetingID, samplePlan(), "", "")

	first := repo.Get(mc.MeetingID)
	require.NotNil(t, first)

	// Mutating the returned copy must not affect stored state
	first.Plan.Risks[0] = "mutated"
	first.Plan.Milestones[0].Tasks[0].Title = "mutated"
	*first.Plan.Summary = "mutated"
	first.Context.Participants[0].Name = "mutated"

	second := repo.Get(mc.MeetingID)
	assert.Equal(t, "risk one", second.Plan.Risks[0])
	assert.Equal(t, "T1", second.Plan.Milestones[0].Tasks[0].Title)
	assert.Equal(t, "summary", *second.Plan.Summary)
	assert.Equal(t, "Ada Lovelace", second.Context.Participants[0].Name)
}

func TestGetUnknownIDReturnsNil(t *testing.T) {
	repo := NewRepository()
	assert.Nil(t, repo.Get("nope"))
}

func TestConcurrentDistinctMeetingsDoNotCorrupt(t *testing.T) {
	repo := NewRepository()
	const n = 50

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("meeting-%d", i)
			mc := MeetingContext{
				MeetingID:  id,
				Project:    ProjectInfo{Name: fmt.Sprintf("project-%d", i)},
				Transcript: fmt.Sprintf("transcript %d", i),
			}
			repo.UpsertContext(mc, fmt.Sprintf("job-%d", i))
			plan := samplePlan()
			plan.Risks = []string{fmt.Sprintf("risk-%d", i)}
			repo.SetPlanResult(id, plan, "", "")
		}(i)
	}
	wg.Wait()

	require.Equal(t, n, repo.Len())
	for i := 0; i < n; i++ {
		record := repo.Get(fmt.Sprintf("meeting-%d", i))
		require.NotNil(t, record)
		assert.Equal(t, StatusReady, record.Status)
		assert.Equal(t, fmt.Sprintf("project-%d", i), record.Context.Project.Name)
		assert.Equal(t, []string{fmt.Sprintf("risk-%d", i)}, record.Plan.Risks)
	}
}
