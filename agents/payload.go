// Package agents implements the multi-stage sprint-analysis chain: a fixed
// ordered sequence of transforms (parse, dependency-link, estimate, assign,
// report) threading a shared payload. Stages are heuristic with an optional
// advisory completion call; each is independently testable.
package agents

// TaskInput is the loosely-shaped task a caller submits for analysis.
type TaskInput struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Owner       string `json:"owner,omitempty"`

	// DependsOn lists task ids this task depends on. "dependencies" is
	// accepted as a legacy alias.
	DependsOn    []string `json:"depends_on,omitempty"`
	Dependencies []string `json:"dependencies,omitempty"`
}

// Risk levels assigned by the estimator stage.
const (
	RiskLow    = "Low"
	RiskMedium = "Medium"
	RiskHigh   = "High"
)

// UnassignedOwner is the sentinel the parser applies to tasks without an
// owner. The optimizer treats it as an unowned task.
const UnassignedOwner = "Unassigned"

// Task is the canonical task shape the stages operate on. Fields after
// DependsOn are filled in by later stages.
type Task struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Owner       string   `json:"owner"`
	DependsOn   []string `json:"depends_on"`

	Hours  int    `json:"hours,omitempty"`
	Risk   string `json:"risk,omitempty"`
	Status string `json:"status,omitempty"`
}

// Allocation summarizes one owner's assigned workload.
type Allocation struct {
	Name          string   `json:"name"`
	CapacityHours int      `json:"capacity_hours"`
	Utilization   float64  `json:"utilization"`
	Tasks         []string `json:"tasks"`
}

// Summary is the reporter stage's aggregate output.
type Summary struct {
	TotalHours int      `json:"total_hours"`
	Staffing   string   `json:"staffing"`
	Risks      []string `json:"risks"`
	Blockers   []string `json:"blockers"`
}

// Payload is the shared state threaded through the stage chain. Stages
// mutate it in place; ownership passes stage to stage, single writer at a
// time.
type Payload struct {
	Tasks       []Task
	Logs        []string
	Allocations []Allocation
	Summary     *Summary
}

// Log appends a human-readable line to the chain's audit trail.
func (p *Payload) Log(line string) {
	p.Logs = append(p.Logs, line)
}

// Analysis is the aggregate result of running the full chain.
type Analysis struct {
	Tasks     []Task       `json:"tasks"`
	Employees []Allocation `json:"employees"`
	Summary   *Summary     `json:"summary"`
	Logs      []string     `json:"logs,omitempty"`
}

// Report is the rendered form of an analysis.
type Report struct {
	Summary     *Summary `json:"summary"`
	Report      string   `json:"report"`
	DownloadURL string   `json:"download_url"`
	VoiceURL    *string  `json:"voice_url"`
}
