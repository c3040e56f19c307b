// Package ai talks to an OpenAI-compatible chat completion gateway for
// swap suggestions and objective drafts. The gateway is optional; every
// caller must cope with the errors here and fall back to canned output.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrRateLimited means the gateway returned 429 and the caller
	// should back off or use a fallback.
	ErrRateLimited = errors.New("ai: rate limited")
	// ErrCreditsExhausted means the gateway returned 402 and the
	// account has no remaining credits.
	ErrCreditsExhausted = errors.New("ai: credits exhausted")
	// ErrUnavailable covers every other failure mode of the gateway.
	ErrUnavailable = errors.New("ai: unavailable")
)

type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey, model string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// TaskContext is what the model gets to know about the task being
// swapped.
type TaskContext struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Area        string `json:"area"`
	Phase       string `json:"phase"`
}

// Candidate is one replacement suggestion for a task.
type Candidate struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ObjectiveDraft is the model's proposal for a quarterly objective.
type ObjectiveDraft struct {
	Title      string `json:"title"`
	KeyResults []struct {
		Title       string  `json:"title"`
		TargetValue float64 `json:"target_value"`
	} `json:"key_results"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat *respFormat   `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	payload := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		ResponseFormat: &respFormat{Type: "json_object"},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", ErrRateLimited
	case resp.StatusCode == http.StatusPaymentRequired:
		return "", ErrCreditsExhausted
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrUnavailable)
	}
	return parsed.Choices[0].Message.Content, nil
}

// SuggestAlternatives asks the model for n replacement candidates for
// the task. The response is expected to be a JSON object with a
// "candidates" array.
func (c *Client) SuggestAlternatives(ctx context.Context, tc TaskContext, n int) ([]Candidate, error) {
	system := "You coach small business teams. Propose replacement tasks of similar scope. " +
		`Respond with JSON: {"candidates": [{"title": "...", "description": "..."}]}`
	user := fmt.Sprintf(
		"Suggest %d alternative tasks for this one.\nTitle: %s\nDescription: %s\nArea: %s\nPhase: %s",
		n, tc.Title, tc.Description, tc.Area, tc.Phase,
	)

	content, err := c.complete(ctx, system, user)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Candidates []Candidate `json:"candidates"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, fmt.Errorf("%w: parse candidates: %v", ErrUnavailable, err)
	}
	if len(parsed.Candidates) == 0 {
		return nil, fmt.Errorf("%w: no candidates returned", ErrUnavailable)
	}
	if len(parsed.Candidates) > n {
		parsed.Candidates = parsed.Candidates[:n]
	}
	return parsed.Candidates, nil
}

// GenerateObjective asks the model to draft a quarterly objective with
// key results from a free-form prompt.
func (c *Client) GenerateObjective(ctx context.Context, prompt string, quarter, year int) (ObjectiveDraft, error) {
	system := "You help small business teams write quarterly OKRs. " +
		`Respond with JSON: {"title": "...", "key_results": [{"title": "...", "target_value": 0}]}`
	user := fmt.Sprintf("Draft an objective with 2 to 4 key results for Q%d %d based on: %s", quarter, year, prompt)

	content, err := c.complete(ctx, system, user)
	if err != nil {
		return ObjectiveDraft{}, err
	}

	var draft ObjectiveDraft
	if err := json.Unmarshal([]byte(content), &draft); err != nil {
		return ObjectiveDraft{}, fmt.Errorf("%w: parse objective draft: %v", ErrUnavailable, err)
	}
	if draft.Title == "" {
		return ObjectiveDraft{}, fmt.Errorf("%w: empty objective draft", ErrUnavailable)
	}
	return draft, nil
}

// FallbackCandidates produces deterministic suggestions when the
// gateway cannot be reached. They are intentionally generic but keep
// the task's area so the list is not useless.
func FallbackCandidates(tc TaskContext, n int) []Candidate {
	templates := []Candidate{
		{Title: "Review and refine: " + tc.Title, Description: "Revisit the current approach and simplify the scope."},
		{Title: "Document learnings from " + tc.Title, Description: "Write a short summary of what worked and what did not."},
		{Title: "Break down " + tc.Title, Description: "Split the work into two smaller deliverables."},
		{Title: "Get feedback on " + tc.Title, Description: "Collect input from one customer or teammate before continuing."},
		{Title: "Automate part of " + tc.Title, Description: "Identify one repetitive step and remove the manual work."},
	}
	if n > len(templates) {
		n = len(templates)
	}
	return templates[:n]
}
