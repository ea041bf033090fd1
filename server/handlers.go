package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/novahq/sprintplan/agents"
	"github.com/novahq/sprintplan/planning"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSubmitPlan accepts a meeting context and runs the planning pipeline.
// Returns 202: the response carries a job id, and the record shape allows a
// future deployment to answer before generation completes.
func (s *Server) handleSubmitPlan(w http.ResponseWriter, r *http.Request) {
	meetingID := r.PathValue("meetingId")

	mc, err := decodeMeetingContext(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if mc.MeetingID != meetingID {
		s.writeError(w, http.StatusBadRequest, "meetingId in path and body must match")
		return
	}

	response := s.planning.SubmitPlan(r.Context(), mc)
	s.writeJSON(w, http.StatusAccepted, response)
}

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	meetingID := r.PathValue("meetingId")

	response, err := s.planning.GetPlan(r.Context(), meetingID)
	if err != nil {
		if errors.Is(err, planning.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, fmt.Sprintf("no plan found for meeting %q", meetingID))
			return
		}
		s.logger.Error("Get plan failed", "meeting_id", meetingID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.writeJSON(w, http.StatusOK, response)
}

// handleAnalyzeMeeting accepts multipart form data with a "context" JSON
// part and an "audio" file part. The audio is transcribed and appended to
// the context's transcript, then the request behaves like a plan submit.
func (s *Server) handleAnalyzeMeeting(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxAudioUploadSize)
	if err := r.ParseMultipartForm(maxAudioUploadSize); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	contextJSON := r.FormValue("context")
	if contextJSON == "" {
		s.writeError(w, http.StatusBadRequest, "missing context part")
		return
	}

	var mc planning.MeetingContext
	if err := json.Unmarshal([]byte(contextJSON), &mc); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid context JSON: "+err.Error())
		return
	}
	if err := validateMeetingContext(mc); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if transcript := s.transcribeUpload(r); transcript != "" {
		if strings.TrimSpace(mc.Transcript) == "" {
			mc.Transcript = transcript
		} else {
			mc.Transcript += "\n\n" + transcript
		}
	}

	response := s.planning.SubmitPlan(r.Context(), mc)
	s.writeJSON(w, http.StatusAccepted, response)
}

// transcribeUpload reads the audio part and transcribes it. Missing audio
// or a missing transcriber yields "", never an error: analysis proceeds on
// whatever transcript the context already carries.
func (s *Server) transcribeUpload(r *http.Request) string {
	if s.transcriber == nil {
		return ""
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		return ""
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		s.logger.Warn("Failed to read audio upload", "error", err)
		return ""
	}

	return s.transcriber.Transcribe(r.Context(), audio, header.Filename)
}

// handleAgentAnalyze runs the agent chain over a task batch.
func (s *Server) handleAgentAnalyze(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tasks []agents.TaskInput `json:"tasks"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Tasks) == 0 {
		s.writeError(w, http.StatusBadRequest, "provide at least one task")
		return
	}
	for i, task := range req.Tasks {
		if strings.TrimSpace(task.Name) == "" {
			s.writeError(w, http.StatusBadRequest, fmt.Sprintf("task %d missing name", i))
			return
		}
	}

	analysis := s.orchestrator.Analyze(r.Context(), req.Tasks)
	s.writeJSON(w, http.StatusOK, analysis)
}

// handleAgentReport renders an analysis into report form.
func (s *Server) handleAgentReport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Analysis *agents.Analysis `json:"analysis"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Analysis == nil {
		s.writeError(w, http.StatusBadRequest, "missing analysis payload")
		return
	}

	report, err := s.orchestrator.BuildReport(req.Analysis)
	if err != nil {
		s.logger.Error("Report build failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

// decodeMeetingContext reads and validates a meeting context body.
func decodeMeetingContext(r *http.Request) (planning.MeetingContext, error) {
	var mc planning.MeetingContext

	body := http.MaxBytesReader(nil, r.Body, maxContextBodySize)
	if err := json.NewDecoder(body).Decode(&mc); err != nil {
		return mc, fmt.Errorf("invalid request body: %w", err)
	}
	if err := validateMeetingContext(mc); err != nil {
		return mc, err
	}
	return mc, nil
}

func validateMeetingContext(mc planning.MeetingContext) error {
	if strings.TrimSpace(mc.MeetingID) == "" {
		return fmt.Errorf("meetingId is required")
	}
	if strings.TrimSpace(mc.Project.Name) == "" {
		return fmt.Errorf("project.name is required")
	}
	return nil
}

func decodeJSON(r *http.Request, out any) error {
	body := http.MaxBytesReader(nil, r.Body, maxContextBodySize)
	if err := json.NewDecoder(body).Decode(out); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("Failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, detail string) {
	s.writeJSON(w, status, map[string]string{"detail": detail})
}
