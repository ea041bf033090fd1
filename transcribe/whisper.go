package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"
)

// maxTranscriptionResponse bounds the response body read.
const maxTranscriptionResponse = 1024 * 1024

// WhisperProvider talks to an OpenAI-compatible audio-transcriptions
// endpoint (hosted Whisper, faster-whisper servers, and similar).
type WhisperProvider struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// WhisperOption configures a WhisperProvider.
type WhisperOption func(*WhisperProvider)

// WithWhisperModel overrides the transcription model name.
func WithWhisperModel(model string) WhisperOption {
	return func(p *WhisperProvider) {
		p.model = model
	}
}

// WithWhisperHTTPClient sets a custom HTTP client.
func WithWhisperHTTPClient(c *http.Client) WhisperOption {
	return func(p *WhisperProvider) {
		p.httpClient = c
	}
}

// NewWhisperProvider creates a provider for the given endpoint. An empty
// baseURL leaves the provider unavailable.
func NewWhisperProvider(baseURL, apiKey string, opts ...WhisperOption) *WhisperProvider {
	p := &WhisperProvider{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		model:   "whisper-1",
		httpClient: &http.Client{
			Timeout: 120 * time.Second, // Long recordings take a while
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the provider identifier.
func (p *WhisperProvider) Name() string {
	return "whisper"
}

// IsAvailable reports whether an endpoint is configured.
func (p *WhisperProvider) IsAvailable() bool {
	return p.baseURL != ""
}

// Transcribe uploads the audio as multipart form data and returns the text.
func (p *WhisperProvider) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if filename == "" {
		filename = "audio.wav"
	} else if filepath.Ext(filename) == "" {
		filename += ".wav"
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("write audio: %w", err)
	}
	if err := writer.WriteField("model", p.model); err != nil {
		return "", fmt.Errorf("write model field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	url := p.baseURL + "/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxTranscriptionResponse))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("transcription API error (status %d): %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("parse transcription response: %w", err)
	}

	return parsed.Text, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
