// Package storage persists planning responses as one JSON document per
// meeting id under a configurable output directory. The in-memory
// repository stays the source of truth; these files are audit artifacts.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store writes and reads per-meeting JSON documents.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir, creating the directory if needed.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("output directory required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the output directory.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes the document for a meeting id, replacing any previous one.
func (s *Store) Save(meetingID string, document any) error {
	path, err := s.pathFor(meetingID)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(document, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	// Write-then-rename keeps readers from seeing partial documents.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace document: %w", err)
	}
	return nil
}

// Load reads the document for a meeting id into out.
func (s *Store) Load(meetingID string, out any) error {
	path, err := s.pathFor(meetingID)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("meeting %q: %w", meetingID, ErrNotFound)
		}
		return fmt.Errorf("read document: %w", err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}

// pathFor maps a meeting id to a file path, rejecting ids that would
// escape the output directory.
func (s *Store) pathFor(meetingID string) (string, error) {
	if meetingID == "" {
		return "", fmt.Errorf("meeting id required")
	}
	name := sanitizeID(meetingID)
	if name == "" {
		return "", fmt.Errorf("meeting id %q has no usable characters", meetingID)
	}
	return filepath.Join(s.dir, name+".json"), nil
}

// sanitizeID keeps only filename-safe characters from a meeting id.
func sanitizeID(id string) string {
	var b strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_' || r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), ".")
}
