package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/novahq/sprintplan/agents"
	"github.com/novahq/sprintplan/planning"
	"github.com/novahq/sprintplan/transcribe"
)

type fakeGenerator struct {
	plan *planning.PlanningPlan
	err  error
}

func (f *fakeGenerator) GeneratePlan(_ context.Context, _ planning.MeetingContext) (*planning.PlanningPlan, string, error) {
	return f.plan, "prompt", f.err
}

func samplePlan() *planning.PlanningPlan {
	summary := "Ship the checkout revamp."
	return &planning.PlanningPlan{
		Summary: &summary,
		Risks:   []string{"Payment provider cutover"},
		Milestones: []planning.Milestone{
			{Title: "Sprint 1", Tasks: []planning.TaskAssignment{{Title: "Wire new cart API"}}},
		},
	}
}

func newTestServer(t *testing.T, opts ...Option) *httptest.Server {
	t.Helper()
	service := planning.NewService(planning.NewRepository(), &fakeGenerator{plan: samplePlan()})
	srv := httptest.NewServer(New(service, opts...).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func submitBody(meetingID string) string {
	return fmt.Sprintf(`{
		"meetingId": %q,
		"project": {"name": "Checkout Revamp"},
		"participants": [{"name": "Ada Lovelace", "role": "Tech Lead"}],
		"transcript": "We agreed to ship the cart API first."
	}`, meetingID)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestSubmitPlanAccepted(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/v1/meetings/meeting-1/plan",
		"application/json", strings.NewReader(submitBody("meeting-1")))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	var body planning.PlanningResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "meeting-1", body.MeetingID)
	assert.Equal(t, planning.StatusReady, body.Status)
	require.NotNil(t, body.Plan)
	assert.NotEmpty(t, body.AgentJobID)
	assert.Equal(t, "prompt", body.Prompt)
}

func TestSubmitPlanMeetingIDMismatch(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/v1/meetings/meeting-1/plan",
		"application/json", strings.NewReader(submitBody("other-meeting")))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "meetingId in path and body must match", body["detail"])
}

func TestSubmitPlanInvalidBody(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/v1/meetings/meeting-1/plan",
		"application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSubmitPlanMissingProjectName(t *testing.T) {
	srv := newTestServer(t)

	body := `{"meetingId": "meeting-1", "project": {"name": ""}, "transcript": "x"}`
	resp, err := http.Post(srv.URL+"/api/v1/meetings/meeting-1/plan",
		"application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSubmitThenGetPlan(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/v1/meetings/meeting-1/plan",
		"application/json", strings.NewReader(submitBody("meeting-1")))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/v1/meetings/meeting-1/plan")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body planning.PlanningResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, planning.StatusReady, body.Status)
	require.NotNil(t, body.Plan)
	assert.Equal(t, "We agreed to ship the cart API first.", body.Transcript)
}

func TestGetPlanNotFound(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/meetings/unknown/plan")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSubmitPlanFailedGeneration(t *testing.T) {
	service := planning.NewService(planning.NewRepository(),
		&fakeGenerator{err: fmt.Errorf("model unreachable")})
	srv := httptest.NewServer(New(service).Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/v1/meetings/meeting-1/plan",
		"application/json", strings.NewReader(submitBody("meeting-1")))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	var body planning.PlanningResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, planning.StatusFailed, body.Status)
	assert.Equal(t, "model unreachable", body.Error)
	assert.Nil(t, body.Plan)
}

type fixedTranscriber struct {
	text string
}

func (f *fixedTranscriber) Name() string { return "fixed" }

func (f *fixedTranscriber) IsAvailable() bool { return true }

func (f *fixedTranscriber) Transcribe(_ context.Context, _ []byte, _ string) (string, error) {
	return f.text, nil
}

func analyzeRequest(t *testing.T, url, contextJSON string, audio []byte) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("context", contextJSON))
	if audio != nil {
		part, err := mw.CreateFormFile("audio", "meeting.wav")
		require.NoError(t, err)
		_, err = part.Write(audio)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, url+"/api/v1/meetings/analyze", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestAnalyzeMergesTranscript(t *testing.T) {
	chain := transcribe.NewChain([]transcribe.Provider{
		&fixedTranscriber{text: "Ship the cart API next sprint."},
	})
	srv := newTestServer(t, WithTranscriber(chain))

	contextJSON := `{"meetingId": "meeting-2", "project": {"name": "Checkout"}, "transcript": "Notes so far."}`
	resp, err := http.DefaultClient.Do(analyzeRequest(t, srv.URL, contextJSON, []byte("RIFF....")))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	var body planning.PlanningResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "meeting-2", body.MeetingID)
	assert.Equal(t, "Notes so far.\n\nShip the cart API next sprint.", body.Transcript)
}

func TestAnalyzeWithoutAudio(t *testing.T) {
	srv := newTestServer(t)

	contextJSON := `{"meetingId": "meeting-3", "project": {"name": "Checkout"}, "transcript": "Only notes."}`
	resp, err := http.DefaultClient.Do(analyzeRequest(t, srv.URL, contextJSON, nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	var body planning.PlanningResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Only notes.", body.Transcript)
}

func TestAnalyzeMissingContext(t *testing.T) {
	srv := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/meetings/analyze", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAgentAnalyze(t *testing.T) {
	srv := newTestServer(t, WithOrchestrator(agents.NewOrchestrator()))

	body := `{"tasks": [
		{"name": "Build auth service", "description": "Implement login and sessions"},
		{"name": "Write docs", "description": "Document the auth service endpoints"}
	]}`
	resp, err := http.Post(srv.URL+"/api/v1/agents/analyze", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var analysis agents.Analysis
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&analysis))
	require.Len(t, analysis.Tasks, 2)
	assert.Equal(t, "T1", analysis.Tasks[0].ID)
	assert.NotEmpty(t, analysis.Summary.Staffing)
	assert.NotEmpty(t, analysis.Logs)
}

func TestAgentAnalyzeRequiresTasks(t *testing.T) {
	srv := newTestServer(t, WithOrchestrator(agents.NewOrchestrator()))

	resp, err := http.Post(srv.URL+"/api/v1/agents/analyze", "application/json",
		strings.NewReader(`{"tasks": []}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "provide at least one task", body["detail"])
}

func TestAgentReport(t *testing.T) {
	orchestrator := agents.NewOrchestrator()
	srv := newTestServer(t, WithOrchestrator(orchestrator))

	analysis := orchestrator.Analyze(context.Background(), []agents.TaskInput{
		{Name: "Build auth service", Description: "Implement login and sessions"},
	})
	payload, err := json.Marshal(map[string]any{"analysis": analysis})
	require.NoError(t, err)

	resp, err := http.Post(srv.URL+"/api/v1/agents/report", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var report agents.Report
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	assert.True(t, strings.HasPrefix(report.Report, "Agentic Project Overview"))
	assert.True(t, strings.HasPrefix(report.DownloadURL, "data:application/json,"))
}

func TestAgentReportRequiresAnalysis(t *testing.T) {
	srv := newTestServer(t, WithOrchestrator(agents.NewOrchestrator()))

	resp, err := http.Post(srv.URL+"/api/v1/agents/report", "application/json",
		strings.NewReader(`{}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "missing analysis payload", body["detail"])
}

func TestAgentRoutesAbsentWithoutOrchestrator(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/v1/agents/analyze", "application/json",
		strings.NewReader(`{"tasks": [{"name": "x"}]}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	srv := newTestServer(t, WithMetricsGatherer(reg))

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
