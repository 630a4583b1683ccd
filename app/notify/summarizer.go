package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/shaybz/topic-radar/app/database"
)

const summaryPostLimit = 15

// Summarizer produces a digest intro through an OpenAI-compatible chat
// API. An unconfigured summarizer degrades to a plain headline roundup
// instead of failing.
type Summarizer struct {
	httpClient *http.Client
	endpoint   string
	model      string
	apiKey     string
}

func NewSummarizer(httpClient *http.Client, endpoint, model, apiKey string) *Summarizer {
	return &Summarizer{
		httpClient: httpClient,
		endpoint:   endpoint,
		model:      model,
		apiKey:     apiKey,
	}
}

func (s *Summarizer) Summarize(ctx context.Context, posts []database.Post) (string, error) {
	if s.endpoint == "" || s.apiKey == "" || s.model == "" {
		return headlineSummary(posts), nil
	}

	intro, err := s.complete(ctx, buildPrompt(posts))
	if err != nil {
		return "", err
	}

	intro = strings.TrimSpace(intro)
	if intro == "" {
		return headlineSummary(posts), nil
	}
	return intro, nil
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (s *Summarizer) complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "system", Content: "You write a short, neutral 2-3 sentence introduction for an email digest of collected posts. Plain text only."},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode summarizer payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to reach summarizer: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("summarizer error: %d %s: %s", resp.StatusCode, resp.Status, strings.TrimSpace(string(detail)))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode summarizer response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("summarizer returned no choices")
	}

	return parsed.Choices[0].Message.Content, nil
}

func buildPrompt(posts []database.Post) string {
	var sb strings.Builder
	sb.WriteString("Summarize the themes of these posts:\n")
	for i, post := range posts {
		if i >= summaryPostLimit {
			break
		}
		sb.WriteString("- ")
		sb.WriteString(post.Title)
		if post.Body != "" {
			sb.WriteString(": ")
			sb.WriteString(truncate(post.Body, 200))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// headlineSummary is the no-model fallback: the first few headlines in
// one sentence.
func headlineSummary(posts []database.Post) string {
	if len(posts) == 0 {
		return ""
	}

	titles := make([]string, 0, 3)
	for i, post := range posts {
		if i >= 3 {
			break
		}
		titles = append(titles, truncate(post.Title, 80))
	}

	return fmt.Sprintf("%d new posts, including: %s.", len(posts), strings.Join(titles, "; "))
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return strings.TrimSpace(string(runes[:limit])) + "…"
}
