package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"aimas-backend/services/recommendation-service/internal/event"
)

const (
	defaultBaseURL     = "https://api.openai.com/v1"
	defaultModel       = "gpt-4o-mini"
	defaultMaxTokens   = 400
	defaultTemperature = 0.2

	// Oversized events are truncated before prompting.
	maxPayloadChars = 12000
)

const systemPrompt = "You are an SRE/Observability assistant. " +
	"Given a JSON event with metrics, produce concise, actionable recommendations, " +
	"one per line. Focus on severity, key signals, likely causes, and next steps. " +
	"If required metrics are missing, say what is missing and what to collect next. " +
	"Be specific but brief; avoid guessing beyond the provided data."

// Client calls an OpenAI-compatible chat-completions endpoint and adapts
// the response to the engine's advisory contract. All failures surface as
// errors; the engine owns the fallback to the rule path.
type Client struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	HTTPClient  *http.Client
}

func New(apiKey string, timeout time.Duration) *Client {
	return &Client{
		APIKey:      apiKey,
		Model:       defaultModel,
		BaseURL:     defaultBaseURL,
		Temperature: defaultTemperature,
		MaxTokens:   defaultMaxTokens,
		HTTPClient:  &http.Client{Timeout: timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) Advise(ctx context.Context, evt event.MetricEvent) ([]string, error) {
	if c.APIKey == "" {
		return nil, errors.New("api key not configured")
	}
	pretty, err := json.MarshalIndent(evt, "", "  ")
	if err != nil {
		return nil, err
	}
	body := string(pretty)
	if len(body) > maxPayloadChars {
		body = body[:maxPayloadChars] + "\n... [truncated]"
	}

	payload := chatRequest{
		Model: c.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: "Event JSON follows. Respond with one recommendation per line.\n\nJSON:\n" + body},
		},
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, err
	}
	if chatResp.Error != nil {
		return nil, errors.New(chatResp.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if len(chatResp.Choices) == 0 {
		return nil, errors.New("empty completion")
	}
	return splitAdvisories(chatResp.Choices[0].Message.Content), nil
}

func splitAdvisories(text string) []string {
	lines := strings.Split(text, "\n")
	advisories := []string{}
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		advisories = append(advisories, trimmed)
	}
	return advisories
}
