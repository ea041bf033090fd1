// Package repocontext gathers repository signals for planning prompts:
// GitHub code-search hits for terms derived from the transcript, and
// readable excerpts of referenced issue pages. Everything here is
// best-effort; failures degrade to explanatory placeholder text.
package repocontext

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// stopwords are filler terms excluded from derived search queries.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "for": true, "from": true,
	"in": true, "of": true, "on": true, "the": true, "to": true,
	"with": true, "fix": true, "update": true, "add": true,
	"implement": true, "improve": true, "create": true, "review": true,
}

var queryTokenRe = regexp.MustCompile(`[a-zA-Z0-9_/.-]+`)

const (
	defaultMaxQueries = 3
	defaultPerQuery   = 2
	defaultAPIBaseURL = "https://api.github.com"
)

// Searcher queries the GitHub code search API for files relevant to the
// meeting's action items. It implements the planning context-gatherer
// contract: GatherContext never fails, it degrades.
type Searcher struct {
	httpClient *http.Client
	token      string
	apiBaseURL string
	maxQueries int
	perQuery   int
	logger     *slog.Logger
}

// SearcherOption configures a Searcher.
type SearcherOption func(*Searcher)

// WithToken sets the GitHub API token. Empty means unauthenticated requests.
func WithToken(token string) SearcherOption {
	return func(s *Searcher) {
		s.token = token
	}
}

// WithAPIBaseURL overrides the GitHub API base URL (tests, GHE).
func WithAPIBaseURL(base string) SearcherOption {
	return func(s *Searcher) {
		s.apiBaseURL = strings.TrimSuffix(base, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) SearcherOption {
	return func(s *Searcher) {
		s.httpClient = c
	}
}

// WithSearcherLogger sets the logger.
func WithSearcherLogger(logger *slog.Logger) SearcherOption {
	return func(s *Searcher) {
		s.logger = logger
	}
}

// NewSearcher creates a code searcher.
func NewSearcher(opts ...SearcherOption) *Searcher {
	s := &Searcher{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		apiBaseURL: defaultAPIBaseURL,
		maxQueries: defaultMaxQueries,
		perQuery:   defaultPerQuery,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GatherContext derives up to three search queries from the action-item
// text, runs each against the repository, and renders the hits as a short
// signal block for the prompt. Any failure yields placeholder text.
func (s *Searcher) GatherContext(ctx context.Context, repositoryURL, actionItems string) string {
	owner, repo, ok := extractOwnerRepo(repositoryURL)
	if !ok {
		return "No GitHub repository context available."
	}

	queries := extractQueries(actionItems, s.maxQueries)
	if len(queries) == 0 {
		return fmt.Sprintf("Repository: %s/%s (no specific queries derived from action items).", owner, repo)
	}

	lines := []string{fmt.Sprintf("Repository: %s/%s", owner, repo)}
	for _, query := range queries {
		matches := s.search(ctx, owner, repo, query)
		if len(matches) == 0 {
			lines = append(lines, fmt.Sprintf("- `%s` → (no matches)", query))
			continue
		}
		for _, match := range matches {
			preview := ""
			if snippet := strings.TrimSpace(strings.ReplaceAll(match.Fragment, "\n", " ")); snippet != "" {
				preview = " :: " + snippet
			}
			lines = append(lines, fmt.Sprintf("- `%s` → `%s`%s", query, match.Path, preview))
		}
	}

	return strings.Join(lines, "\n")
}

// codeReference is one code-search hit.
type codeReference struct {
	Path     string
	Fragment string
}

// search runs a single code-search query. Errors and non-2xx responses
// return no matches.
func (s *Searcher) search(ctx context.Context, owner, repo, query string) []codeReference {
	endpoint := fmt.Sprintf("%s/search/code?q=%s&per_page=%d",
		s.apiBaseURL,
		url.QueryEscape(fmt.Sprintf("%s repo:%s/%s", query, owner, repo)),
		s.perQuery)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("Accept", "application/vnd.github.text-match+json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Debug("Code search request failed", "query", query, "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		s.logger.Debug("Code search rejected", "query", query, "status", resp.StatusCode)
		return nil
	}

	var body struct {
		Items []struct {
			Path        string `json:"path"`
			TextMatches []struct {
				Fragment string `json:"fragment"`
			} `json:"text_matches"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil
	}

	matches := make([]codeReference, 0, len(body.Items))
	for _, item := range body.Items {
		if item.Path == "" {
			continue
		}
		ref := codeReference{Path: item.Path}
		if len(item.TextMatches) > 0 {
			ref.Fragment = item.TextMatches[0].Fragment
		}
		matches = append(matches, ref)
	}
	return matches
}

// extractOwnerRepo pulls owner and repo from a github.com URL.
func extractOwnerRepo(repositoryURL string) (owner, repo string, ok bool) {
	if repositoryURL == "" {
		return "", "", false
	}
	parsed, err := url.Parse(repositoryURL)
	if err != nil || !strings.Contains(parsed.Host, "github.com") {
		return "", "", false
	}
	parts := strings.FieldsFunc(strings.Trim(parsed.Path, "/"), func(r rune) bool { return r == '/' })
	if len(parts) < 2 {
		return "", "", false
	}
	return parts[0], strings.TrimSuffix(parts[1], ".git"), true
}

// extractQueries derives search queries from the action-item text: first
// two non-stopword tokens per line, capped at maxQueries lines.
func extractQueries(actionItems string, maxQueries int) []string {
	var queries []string
	for _, raw := range strings.Split(actionItems, "\n") {
		line := strings.Trim(strings.TrimSpace(raw), " -•")
		if line == "" {
			continue
		}

		words := queryTokenRe.FindAllString(strings.ToLower(line), -1)
		filtered := words[:0:0]
		for _, w := range words {
			if !stopwords[w] {
				filtered = append(filtered, w)
			}
		}
		if len(filtered) == 0 {
			continue
		}
		if len(filtered) > 2 {
			filtered = filtered[:2]
		}
		queries = append(queries, strings.Join(filtered, " "))
		if len(queries) >= maxQueries {
			break
		}
	}
	return queries
}
