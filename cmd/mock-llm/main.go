// Package main implements a mock completion server for local development
// and e2e testing. It serves OpenAI-compatible /v1/chat/completions
// responses so sprintplan can run without a real model backend.
//
// Usage:
//
//	mock-llm -fixtures /path/to/fixtures -port 11434
//
// Fixture files are JSON named by model (e.g., "llama3.2.json" answers
// requests for model "llama3.2"); the file content becomes the assistant
// message. When no fixture matches, a built-in valid sprint plan is
// returned, so the zero-configuration case still exercises the full
// planning pipeline.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// defaultPlan is the built-in completion: a schema-compliant sprint plan.
const defaultPlan = `{
  "summary": "Two-sprint push to ship the checkout revamp behind a feature flag.",
  "risks": [
    "Payment provider sandbox instability",
    "Unclear ownership of the migration scripts"
  ],
  "milestones": [
    {
      "title": "Sprint 1: Cart and API groundwork",
      "dueDate": "2026-09-15",
      "tasks": [
        {
          "title": "Implement cart service endpoints",
          "owner": "Ada Lovelace",
          "areas": ["services/cart"],
          "etaDays": 4,
          "notes": "Contract agreed in the meeting.",
          "dependsOn": []
        },
        {
          "title": "Write checkout data migration",
          "owner": "Grace Hopper",
          "areas": ["db/migrations"],
          "etaDays": 3,
          "notes": null,
          "dependsOn": ["Implement cart service endpoints"]
        }
      ]
    },
    {
      "title": "Sprint 2: Rollout",
      "dueDate": null,
      "tasks": [
        {
          "title": "Enable feature flag for internal users",
          "owner": null,
          "areas": ["ops"],
          "etaDays": 1,
          "notes": "Needs sign-off.",
          "dependsOn": ["Write checkout data migration"]
        }
      ]
    }
  ]
}`

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type server struct {
	fixtures map[string]string // model name → canned response content
	calls    atomic.Int64

	mu           sync.Mutex
	callsByModel map[string]int64
}

func newServer(fixtures map[string]string) *server {
	return &server{
		fixtures:     fixtures,
		callsByModel: make(map[string]int64),
	}
}

func main() {
	fixtureDir := flag.String("fixtures", "", "directory containing fixture response files")
	port := flag.Int("port", 11434, "port to listen on")
	flag.Parse()

	if envDir := os.Getenv("MOCK_LLM_FIXTURES"); envDir != "" && *fixtureDir == "" {
		*fixtureDir = envDir
	}

	fixtures := map[string]string{}
	if *fixtureDir != "" {
		loaded, err := loadFixtures(*fixtureDir)
		if err != nil {
			log.Fatalf("Failed to load fixtures from %s: %v", *fixtureDir, err)
		}
		fixtures = loaded
		log.Printf("Loaded %d fixture model(s) from %s", len(fixtures), *fixtureDir)
	}

	s := newServer(fixtures)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/v1/chat/completions", s.handleChatCompletions)
	mux.HandleFunc("/stats", s.handleStats)

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("Mock completion server listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	callNum := s.calls.Add(1)
	s.mu.Lock()
	s.callsByModel[req.Model]++
	s.mu.Unlock()

	content, ok := s.fixtures[req.Model]
	if !ok {
		content = defaultPlan
	}

	log.Printf("[call %d] model=%s messages=%d fixture=%v", callNum, req.Model, len(req.Messages), ok)

	resp := chatResponse{
		ID:      fmt.Sprintf("mock-%d", time.Now().UnixNano()),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []chatChoice{
			{
				Index:        0,
				Message:      chatMessage{Role: "assistant", Content: content},
				FinishReason: "stop",
			},
		},
		Usage: chatUsage{
			PromptTokens:     len(content) / 4, // rough estimate
			CompletionTokens: len(content) / 4,
			TotalTokens:      len(content) / 2,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// handleStats returns call counts for test assertions.
func (s *server) handleStats(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	callsByModel := make(map[string]int64, len(s.callsByModel))
	for model, n := range s.callsByModel {
		callsByModel[model] = n
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"total_calls":    s.calls.Load(),
		"calls_by_model": callsByModel,
	})
}

// loadFixtures reads .json files from dir, keyed by filename without extension.
func loadFixtures(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	fixtures := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read fixture %s: %w", entry.Name(), err)
		}
		model := strings.TrimSuffix(entry.Name(), ".json")
		fixtures[model] = string(data)
	}
	return fixtures, nil
}
