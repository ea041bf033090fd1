package providers

import (
	"net/http"
	"os"
	"strings"

	"github.com/novahq/sprintplan/llm"
)

// OpenRouterProvider implements the OpenRouter chat-completions API.
// OpenRouter speaks the OpenAI wire format, so the request/response codec
// is shared with OllamaProvider; only the URL and auth headers differ.
type OpenRouterProvider struct {
	OllamaProvider // Embed for shared request/response format
}

func init() {
	llm.RegisterProvider(&OpenRouterProvider{})
}

// Name returns the provider identifier.
func (o *OpenRouterProvider) Name() string {
	return "openrouter"
}

// BuildURL constructs the OpenRouter API endpoint.
func (o *OpenRouterProvider) BuildURL(baseURL string) string {
	if baseURL == "" {
		baseURL = "https://openrouter.ai/api/v1"
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	if strings.HasSuffix(baseURL, "/chat/completions") {
		return baseURL
	}

	return baseURL + "/chat/completions"
}

// SetHeaders adds OpenRouter authentication and attribution headers.
func (o *OpenRouterProvider) SetHeaders(req *http.Request) {
	if apiKey := os.Getenv("OPENROUTER_API_KEY"); apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	if siteURL := os.Getenv("OPENROUTER_SITE_URL"); siteURL != "" {
		req.Header.Set("HTTP-Referer", siteURL)
	}
	title := os.Getenv("OPENROUTER_SITE_NAME")
	if title == "" {
		title = "Sprintplan"
	}
	req.Header.Set("X-Title", title)
}
