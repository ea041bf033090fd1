package repocontext

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/novahq/sprintplan/planning"
)

const (
	// maxEnrichedIssues bounds how many issue pages get fetched per run.
	maxEnrichedIssues = 3

	// maxExcerptRunes bounds each issue excerpt in the prompt.
	maxExcerptRunes = 600

	// maxPageBytes bounds how much of an issue page gets read.
	maxPageBytes = 2 * 1024 * 1024
)

// Enricher fetches referenced issue pages and renders readable excerpts for
// the planning prompt. Best-effort throughout: unreachable or unreadable
// pages are skipped, never reported as errors.
type Enricher struct {
	httpClient *http.Client
	converter  *Converter
	logger     *slog.Logger
}

// EnricherOption configures an Enricher.
type EnricherOption func(*Enricher)

// WithEnricherHTTPClient sets a custom HTTP client.
func WithEnricherHTTPClient(c *http.Client) EnricherOption {
	return func(e *Enricher) {
		e.httpClient = c
	}
}

// WithEnricherLogger sets the logger.
func WithEnricherLogger(logger *slog.Logger) EnricherOption {
	return func(e *Enricher) {
		e.logger = logger
	}
}

// NewEnricher creates an issue-page enricher.
func NewEnricher(opts ...EnricherOption) *Enricher {
	e := &Enricher{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		converter:  NewConverter(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EnrichIssues fetches up to three linked issue pages and returns a block of
// excerpts, or "" when nothing could be enriched.
func (e *Enricher) EnrichIssues(ctx context.Context, issues []planning.IssueReference) string {
	var sections []string

	for _, issue := range issues {
		if len(sections) >= maxEnrichedIssues {
			break
		}
		if issue.URL == "" {
			continue
		}

		excerpt, err := e.fetchExcerpt(ctx, issue.URL)
		if err != nil {
			e.logger.Debug("Skipping issue enrichment", "url", issue.URL, "error", err)
			continue
		}
		if excerpt == "" {
			continue
		}

		sections = append(sections, fmt.Sprintf("### %s\n%s", issue.Title, excerpt))
	}

	if len(sections) == 0 {
		return ""
	}
	return strings.Join(sections, "\n\n")
}

// fetchExcerpt downloads a page over HTTPS and converts it to a bounded
// markdown excerpt.
func (e *Enricher) fetchExcerpt(ctx context.Context, rawURL string) (string, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	// HTTPS only: issue links come from untrusted request bodies, and
	// fetching arbitrary schemes or internal hosts is not worth the risk.
	if pageURL.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", pageURL.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL.String(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/html")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", err
	}

	result, err := e.converter.Convert(body, pageURL)
	if err != nil {
		return "", err
	}

	return truncateRunes(result.Markdown, maxExcerptRunes), nil
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "…"
}
