package repocontext

import (
	"net/url"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

var excessiveLinesRe = regexp.MustCompile(`\n{4,}`)

// ConvertResult holds a page converted to markdown.
type ConvertResult struct {
	Title    string
	Markdown string
}

// Converter turns HTML pages into readable markdown. Readability extraction
// strips navigation and chrome first; the remainder is converted with
// GitHub-flavored markdown rules.
type Converter struct {
	converter *md.Converter
}

// NewConverter creates a page converter.
func NewConverter() *Converter {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())

	return &Converter{converter: converter}
}

// Convert transforms an HTML page into markdown. pageURL resolves relative
// links during readability extraction and may be nil.
func (c *Converter) Convert(htmlContent []byte, pageURL *url.URL) (*ConvertResult, error) {
	title := extractHTMLTitle(htmlContent)
	content := string(htmlContent)

	article, err := readability.FromReader(strings.NewReader(content), pageURL)
	if err == nil && strings.TrimSpace(article.Content) != "" {
		content = article.Content
		if title == "" {
			title = strings.TrimSpace(article.Title)
		}
	}

	markdown, err := c.converter.ConvertString(content)
	if err != nil {
		return nil, err
	}
	markdown = cleanMarkdown(markdown)

	if title == "" {
		title = extractMarkdownTitle(markdown)
	}

	return &ConvertResult{
		Title:    title,
		Markdown: markdown,
	}, nil
}

// extractHTMLTitle returns the contents of the first <title> element.
func extractHTMLTitle(content []byte) string {
	doc, err := html.Parse(strings.NewReader(string(content)))
	if err != nil {
		return ""
	}

	var title string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
			title = strings.TrimSpace(n.FirstChild.Data)
			return
		}
		for c := n.FirstChild; c != nil && title == ""; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return title
}

// cleanMarkdown collapses excessive blank lines and trims trailing spaces.
func cleanMarkdown(content string) string {
	content = excessiveLinesRe.ReplaceAllString(content, "\n\n\n")

	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// extractMarkdownTitle returns the first H1 heading, if any.
func extractMarkdownTitle(content string) string {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
