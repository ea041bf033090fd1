package planning

import (
	"fmt"
	"strings"
)

// transcriptExcerptLimit caps the transcript portion of the prompt to bound
// prompt size and cost.
const transcriptExcerptLimit = 4000

// plannerSystemPrompt primes the model for the main generation call.
const plannerSystemPrompt = "You are a meticulous sprint-planning assistant."

// repairSystemPrompt primes the model for the JSON repair round-trip.
const repairSystemPrompt = "You fix JSON documents so that they are valid and schema-compliant."

// BuildPrompt assembles the combined planning prompt from the meeting context
// and a pre-gathered repository-context blob. Pure function of its inputs.
func BuildPrompt(mc MeetingContext, repositoryContext string) string {
	excerpt := TranscriptExcerpt(mc.Transcript)

	goal := mc.Project.Goal
	if goal == "" {
		goal = "Unknown"
	}
	repoURL := mc.Project.RepositoryURL
	if repoURL == "" {
		repoURL = "Unknown"
	}

	var b strings.Builder
	b.WriteString(`You are an expert sprint planner. Given the following meeting context, produce a JSON object that follows exactly this schema:

{
  "summary": string,   // concise paragraph summarising goals, constraints, decisions
  "risks": [string, ...], // at least two concrete risks or open questions with mitigation ideas
  "milestones": [
    {
      "title": string,
      "dueDate": string | null,  // ISO date if specified, otherwise null
      "tasks": [
        {
          "title": string,
          "owner": string | null,   // participant responsible or null
          "areas": [string, ...],   // relevant repository files/directories/issues
          "etaDays": integer | null,
          "notes": string | null
        }
      ]
    }
  ]
}

Requirements:
- Produce valid JSON only. No markdown, no comments.
- "summary" must be non-empty, reflecting project goals, key workstreams, and constraints.
- Provide at least three risks; infer risks from the transcript and issues if not explicit.
- Generate at least three milestones covering discovery, implementation, QA/deployment/documentation.
- Each milestone must contain at least two tasks. Tasks must map to code areas using the repository context.
- Prefer the participant most suited to own each task (use their role as a hint).
- Use null only when the information cannot be inferred.

`)

	fmt.Fprintf(&b, "Project:\n- Name: %s\n- Goal: %s\n- Repository URL: %s\n\n", mc.Project.Name, goal, repoURL)
	fmt.Fprintf(&b, "Participants:\n%s\n\n", formatParticipants(mc))
	fmt.Fprintf(&b, "Known issues:\n%s\n\n", formatIssues(mc))
	fmt.Fprintf(&b, "Repository signals:\n%s\n\n", repositoryContext)
	fmt.Fprintf(&b, "Meeting transcript excerpt:\n\"\"\"%s\"\"\"\n", excerpt)

	return b.String()
}

// buildRepairPrompt embeds the offending payload in a one-shot correction request.
func buildRepairPrompt(payload string) string {
	var b strings.Builder
	b.WriteString("The following text was supposed to be valid JSON but failed validation.\n")
	b.WriteString("Return a corrected JSON document that complies with the schema described earlier.\n")
	b.WriteString("Only output JSON.\n\n")
	b.WriteString("Problematic payload:\n")
	b.WriteString(payload)
	return b.String()
}

// TranscriptExcerpt returns the leading portion of a transcript, truncated
// on rune boundaries.
func TranscriptExcerpt(transcript string) string {
	runes := []rune(transcript)
	if len(runes) <= transcriptExcerptLimit {
		return transcript
	}
	return string(runes[:transcriptExcerptLimit])
}

func formatParticipants(mc MeetingContext) string {
	if len(mc.Participants) == 0 {
		return "No participants provided."
	}
	lines := make([]string, len(mc.Participants))
	for i, p := range mc.Participants {
		lines[i] = fmt.Sprintf("- %s (%s)", p.Name, p.Role)
	}
	return strings.Join(lines, "\n")
}

func formatIssues(mc MeetingContext) string {
	if len(mc.Issues) == 0 {
		return "No explicit issues were referenced."
	}
	lines := make([]string, len(mc.Issues))
	for i, issue := range mc.Issues {
		link := issue.URL
		if link == "" {
			link = issue.ID
		}
		if link == "" {
			link = "no link"
		}
		lines[i] = fmt.Sprintf("- %s (%s)", issue.Title, link)
	}
	return strings.Join(lines, "\n")
}
