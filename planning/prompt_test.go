package planning

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testContext() MeetingContext {
	return MeetingContext{
		MeetingID: "meeting-1",
		Project: ProjectInfo{
			Name:          "Checkout Revamp",
			Goal:          "Ship the new checkout flow",
			RepositoryURL: "https://github.com/acme/checkout",
		},
		Participants: []Participant{
			{Name: "Ada Lovelace", Role: "Backend"},
			{Name: "Grace Hopper", Role: "Frontend"},
		},
		Transcript: "We agreed to split the checkout work into three milestones.",
		Issues: []IssueReference{
			{ID: "ACME-42", Title: "Payment retries flaky"},
			{Title: "Cart race condition", URL: "https://github.com/acme/checkout/issues/7"},
		},
	}
}

func TestBuildPromptIncludesAllSections(t *testing.T) {
	prompt := BuildPrompt(testContext(), "- `payments/` handles retries")

	assert.Contains(t, prompt, `"summary": string`)
	assert.Contains(t, prompt, "Produce valid JSON only. No markdown, no comments.")
	assert.Contains(t, prompt, "- Name: Checkout Revamp")
	assert.Contains(t, prompt, "- Goal: Ship the new checkout flow")
	assert.Contains(t, prompt, "- Ada Lovelace (Backend)")
	assert.Contains(t, prompt, "- Grace Hopper (Frontend)")
	assert.Contains(t, prompt, "- Payment retries flaky (ACME-42)")
	assert.Contains(t, prompt, "- Cart race condition (https://github.com/acme/checkout/issues/7)")
	assert.Contains(t, prompt, "Repository signals:\n- `payments/` handles retries")
	assert.Contains(t, prompt, `"""We agreed to split the checkout work`)
}

func TestBuildPromptUnknownPlaceholders(t *testing.T) {
	mc := testContext()
	mc.Project.Goal = ""
	mc.Project.RepositoryURL = ""
	mc.Participants = nil
	mc.Issues = nil

	prompt := BuildPrompt(mc, "No repository lookup performed.")

	assert.Contains(t, prompt, "- Goal: Unknown")
	assert.Contains(t, prompt, "- Repository URL: Unknown")
	assert.Contains(t, prompt, "No participants provided.")
	assert.Contains(t, prompt, "No explicit issues were referenced.")
}

func TestTranscriptExcerptTruncates(t *testing.T) {
	long := strings.Repeat("a", 5000)
	excerpt := TranscriptExcerpt(long)
	assert.Len(t, excerpt, 4000)

	short := "short transcript"
	assert.Equal(t, short, TranscriptExcerpt(short))
}

func TestTranscriptExcerptRuneSafe(t *testing.T) {
	long := strings.Repeat("é", 4100)
	excerpt := TranscriptExcerpt(long)
	assert.Equal(t, 4000, len([]rune(excerpt)))
}

func TestFormatIssuesFallsBackToNoLink(t *testing.T) {
	mc := MeetingContext{Issues: []IssueReference{{Title: "Orphan issue"}}}
	assert.Contains(t, formatIssues(mc), "- Orphan issue (no link)")
}
