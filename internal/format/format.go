// Package format reformats clause HTML through an OpenAI-compatible chat
// completions API, streaming the model's output chunk by chunk so clients can
// render progress live. The upstream service is swappable via configuration;
// only the wire shape (SSE "data:" lines with delta payloads) is assumed.
package format

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// systemPrompt pins the assistant role for every reformat call.
const systemPrompt = "You are an assistant that formats document clauses with proper styling."

// instruction is the reformatting brief sent ahead of the clause content.
const instruction = `Please reformat the following HTML content to use proper clause styling:
- First level: number (1, 2, 3, ...)
- Second level: small letters (a, b, c, ...)
- Third level: small roman numerals (i, ii, iii, ...)
- Fourth level: capital letters (A, B, C, ...)

Maintain all original content and meaning, but structure it properly with the specified formatting.
Return just the formatted HTML that I can directly use, with no explanations or markdown.`

// UpstreamError reports a non-200 response from the formatting service.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("formatting service returned %d: %s", e.StatusCode, e.Body)
}

// Client streams reformatted clause content from the configured service.
type Client struct {
	Endpoint string
	APIKey   string
	Model    string

	// HTTPClient defaults to a client with no overall timeout; streams can
	// legitimately run for minutes.
	HTTPClient *http.Client
}

// NewClient builds a Client for the given endpoint, key, and model.
func NewClient(endpoint, apiKey, model string) *Client {
	return &Client{
		Endpoint: endpoint,
		APIKey:   apiKey,
		Model:    model,
		HTTPClient: &http.Client{
			Transport: &http.Transport{ResponseHeaderTimeout: 30 * time.Second},
		},
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type streamPayload struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// StreamReformat sends htmlContent upstream and invokes onChunk for every
// content delta that survives fence filtering. It returns the cleaned final
// content. onChunk errors abort the stream (typically the client went away).
func (c *Client) StreamReformat(ctx context.Context, htmlContent string, onChunk func(chunk string) error) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: instruction + "\n\n" + htmlContent},
		},
		Stream: true,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return "", &UpstreamError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(detail))}
	}

	var formatted strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64<<10), 1<<20)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data: "))
		if data == "[DONE]" {
			break
		}

		var payload streamPayload
		if err := json.Unmarshal([]byte(data), &payload); err != nil {
			return "", fmt.Errorf("decode stream payload: %w", err)
		}
		if len(payload.Choices) == 0 {
			continue
		}
		chunk := payload.Choices[0].Delta.Content
		if chunk == "" || skipChunk(chunk, formatted.Len() == 0) {
			continue
		}

		formatted.WriteString(chunk)
		if err := onChunk(chunk); err != nil {
			return "", err
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}

	return CleanFormatted(formatted.String()), nil
}

// skipChunk filters markdown fence delimiters and the stray leading "html"
// token some models emit before the document.
func skipChunk(chunk string, atStart bool) bool {
	t := strings.TrimSpace(chunk)
	if strings.HasPrefix(t, "```") {
		return true
	}
	if atStart && strings.EqualFold(t, "html") {
		return true
	}
	return false
}

var leadingHTMLToken = regexp.MustCompile(`(?i)^\s*html\s*`)

// CleanFormatted strips any fence delimiters that slipped through streaming
// and trims surrounding whitespace.
func CleanFormatted(s string) string {
	s = strings.ReplaceAll(s, "```html", "")
	s = strings.ReplaceAll(s, "```", "")
	s = leadingHTMLToken.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
