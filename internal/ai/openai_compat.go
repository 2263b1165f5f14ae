package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// chatCompletionClient speaks the OpenAI chat-completions wire format,
// shared by OpenAI itself and by Groq's compatible endpoint.
type chatCompletionClient struct {
	name       string
	url        string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewGroq returns a provider backed by Groq's OpenAI-compatible API.
func NewGroq(apiKey string) Provider {
	return &chatCompletionClient{
		name:       "groq",
		url:        "https://api.groq.com/openai/v1/chat/completions",
		apiKey:     apiKey,
		model:      "llama-3.3-70b-versatile",
		httpClient: newHTTPClient(),
	}
}

// NewOpenAI returns a provider backed by the OpenAI chat API.
func NewOpenAI(apiKey string) Provider {
	return &chatCompletionClient{
		name:       "openai",
		url:        "https://api.openai.com/v1/chat/completions",
		apiKey:     apiKey,
		model:      "gpt-4o-mini",
		httpClient: newHTTPClient(),
	}
}

func (c *chatCompletionClient) Name() string { return c.name }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *chatCompletionClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	payload := chatCompletionRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: 0.7,
		MaxTokens:   500,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call %s: %w", c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%s returned status %d: %s", c.name, resp.StatusCode, snippet)
	}

	var parsed chatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode %s response: %w", c.name, err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%s returned no choices", c.name)
	}
	return parsed.Choices[0].Message.Content, nil
}
