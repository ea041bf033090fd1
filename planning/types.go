// Package planning implements meeting-to-sprint-plan generation: a prompt
// pipeline over a chat-completion capability, an in-memory record store with
// a processing/ready/failed state machine, and the service that ties them to
// the HTTP surface.
package planning

// PlanStatus is the lifecycle state of a planning record.
type PlanStatus string

const (
	// StatusProcessing means a plan run is in flight for the meeting.
	StatusProcessing PlanStatus = "processing"

	// StatusReady means a plan was generated successfully.
	StatusReady PlanStatus = "ready"

	// StatusFailed means the last run ended in an error.
	StatusFailed PlanStatus = "failed"
)

// Participant is an attendee of the planning meeting.
type Participant struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// IssueReference points at a known issue or ticket discussed in the meeting.
type IssueReference struct {
	ID    string `json:"id,omitempty"`
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
}

// ProjectInfo describes the project under discussion.
type ProjectInfo struct {
	Name          string `json:"name"`
	RepositoryURL string `json:"repositoryUrl,omitempty"`
	Goal          string `json:"goal,omitempty"`
}

// MeetingContext is the immutable input to a planning run.
// The meeting id is chosen by the caller and acts as the record key.
type MeetingContext struct {
	MeetingID    string           `json:"meetingId"`
	Project      ProjectInfo      `json:"project"`
	Participants []Participant    `json:"participants"`
	Transcript   string           `json:"transcript"`
	Issues       []IssueReference `json:"issues,omitempty"`
}

// Clone returns an independent copy of the context.
func (m MeetingContext) Clone() MeetingContext {
	c := m
	c.Participants = append([]Participant(nil), m.Participants...)
	c.Issues = append([]IssueReference(nil), m.Issues...)
	return c
}

// TaskAssignment is a single task inside a milestone.
type TaskAssignment struct {
	Title string `json:"title"`

	// Owner is the responsible engineer, nil when the model could not infer one.
	Owner *string `json:"owner"`

	// Areas lists relevant code areas, directories, or files to touch.
	Areas []string `json:"areas"`

	// ETADays is the estimated number of days to complete the task.
	ETADays *int `json:"etaDays"`

	Notes *string `json:"notes"`

	// DependsOn lists titles of tasks that must complete first. Entries are
	// expected to reference other tasks in the same plan, but this is not
	// validated at parse time.
	DependsOn []string `json:"dependsOn,omitempty"`
}

// Milestone groups tasks under a target date.
type Milestone struct {
	Title string `json:"title"`

	// DueDate is an ISO date string, nil when no date was specified.
	DueDate *string `json:"dueDate"`

	Tasks []TaskAssignment `json:"tasks"`
}

// PlanningPlan is the structured sprint plan produced by a run.
type PlanningPlan struct {
	Summary    *string     `json:"summary"`
	Risks      []string    `json:"risks"`
	Milestones []Milestone `json:"milestones"`
}

// Clone returns a deep copy of the plan.
func (p *PlanningPlan) Clone() *PlanningPlan {
	if p == nil {
		return nil
	}

	c := &PlanningPlan{
		Summary: cloneStringPtr(p.Summary),
		Risks:   append([]string(nil), p.Risks...),
	}

	c.Milestones = make([]Milestone, len(p.Milestones))
	for i, m := range p.Milestones {
		cm := Milestone{
			Title:   m.Title,
			DueDate: cloneStringPtr(m.DueDate),
			Tasks:   make([]TaskAssignment, len(m.Tasks)),
		}
		for j, t := range m.Tasks {
			cm.Tasks[j] = TaskAssignment{
				Title:     t.Title,
				Owner:     cloneStringPtr(t.Owner),
				Areas:     append([]string(nil), t.Areas...),
				ETADays:   cloneIntPtr(t.ETADays),
				Notes:     cloneStringPtr(t.Notes),
				DependsOn: append([]string(nil), t.DependsOn...),
			}
		}
		c.Milestones[i] = cm
	}
	return c
}

// PlanningRecord is the server-side state tracked per meeting id.
// The repository owns the authoritative copy; callers always receive clones.
type PlanningRecord struct {
	MeetingID  string         `json:"meetingId"`
	Context    MeetingContext `json:"context"`
	Status     PlanStatus     `json:"status"`
	Plan       *PlanningPlan  `json:"plan,omitempty"`
	AgentJobID string         `json:"agentJobId,omitempty"`
	Error      string         `json:"error,omitempty"`

	// Prompt is the full prompt of the last run, kept for auditing.
	Prompt string `json:"prompt,omitempty"`
}

// Clone returns a deep copy of the record.
func (r *PlanningRecord) Clone() *PlanningRecord {
	if r == nil {
		return nil
	}
	c := *r
	c.Context = r.Context.Clone()
	c.Plan = r.Plan.Clone()
	return &c
}

// PlanningResponse is what the API returns for submit and fetch operations.
// It mirrors the record and echoes the transcript and prompt.
type PlanningResponse struct {
	MeetingID  string        `json:"meetingId"`
	Status     PlanStatus    `json:"status"`
	Plan       *PlanningPlan `json:"plan,omitempty"`
	AgentJobID string        `json:"agentJobId,omitempty"`
	Error      string        `json:"error,omitempty"`
	Transcript string        `json:"transcript,omitempty"`
	Prompt     string        `json:"prompt,omitempty"`
}

func cloneStringPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneIntPtr(i *int) *int {
	if i == nil {
		return nil
	}
	v := *i
	return &v
}
