package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// defaultAuditSubject is the JetStream subject completion calls are published to.
const defaultAuditSubject = "planner.llm.calls"

// CallRecord represents a single completion API call with full context for auditing.
type CallRecord struct {
	// RequestID uniquely identifies this call.
	RequestID string `json:"request_id"`

	// MeetingID correlates the call with a planning run, if any.
	MeetingID string `json:"meeting_id,omitempty"`

	// Capability is the semantic capability requested (planning, repair, ...).
	Capability string `json:"capability"`

	// Model is the actual model that was used.
	Model string `json:"model,omitempty"`

	// Provider is the completion provider (openrouter, ollama, ...).
	Provider string `json:"provider,omitempty"`

	// Messages is the input message history sent to the model.
	Messages []Message `json:"messages"`

	// Response is the generated content.
	Response string `json:"response,omitempty"`

	// Usage contains token consumption metrics.
	Usage TokenUsage `json:"usage"`

	// FinishReason indicates why generation stopped.
	FinishReason string `json:"finish_reason,omitempty"`

	// StartedAt is when the call began.
	StartedAt time.Time `json:"started_at"`

	// CompletedAt is when the call finished.
	CompletedAt time.Time `json:"completed_at"`

	// DurationMs is the call duration in milliseconds.
	DurationMs int64 `json:"duration_ms"`

	// Error contains any error message if the call failed.
	Error string `json:"error,omitempty"`

	// Retries is the number of retry attempts made.
	Retries int `json:"retries"`

	// FallbacksUsed lists models tried before success (if fallback was needed).
	FallbacksUsed []string `json:"fallbacks_used,omitempty"`
}

// CallStore publishes completion call records to NATS JetStream.
// The stream is an audit trail only; losing it never affects planning runs.
type CallStore struct {
	js      jetstream.JetStream
	subject string
	logger  *slog.Logger
}

// CallStoreOption configures a CallStore.
type CallStoreOption func(*CallStore)

// WithSubject overrides the publish subject.
func WithSubject(subject string) CallStoreOption {
	return func(s *CallStore) {
		s.subject = subject
	}
}

// WithStoreLogger sets the logger for the call store.
func WithStoreLogger(logger *slog.Logger) CallStoreOption {
	return func(s *CallStore) {
		s.logger = logger
	}
}

// NewCallStore creates a call store over an established NATS connection.
func NewCallStore(nc *nats.Conn, opts ...CallStoreOption) (*CallStore, error) {
	if nc == nil {
		return nil, fmt.Errorf("NATS connection required")
	}

	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	s := &CallStore{
		js:      js,
		subject: defaultAuditSubject,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Store publishes a completion call record.
func (s *CallStore) Store(ctx context.Context, record *CallRecord) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	if record.RequestID == "" {
		return fmt.Errorf("request_id is required")
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal call record: %w", err)
	}

	if _, err := s.js.Publish(ctx, s.subject, data); err != nil {
		return fmt.Errorf("publish call record: %w", err)
	}

	s.logger.Debug("Published completion call record",
		"request_id", record.RequestID,
		"meeting_id", record.MeetingID,
		"capability", record.Capability)

	return nil
}

// meetingIDKey is the context key for meeting correlation.
type meetingIDKey struct{}

// WithMeetingID attaches a meeting identifier to a context so completion
// calls made during a planning run can be correlated in the audit trail.
func WithMeetingID(ctx context.Context, meetingID string) context.Context {
	return context.WithValue(ctx, meetingIDKey{}, meetingID)
}

// MeetingIDFromContext extracts the meeting identifier, or "" when absent.
func MeetingIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(meetingIDKey{}).(string); ok {
		return id
	}
	return ""
}
