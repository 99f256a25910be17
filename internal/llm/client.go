// Package llm is a minimal client for OpenAI-compatible chat-completion
// endpoints (OpenRouter, Ollama's /v1 surface, and anything else that
// speaks the same wire format). It supports plain and streamed
// generation plus refusal detection on the returned text.
package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Message is one chat turn in a completion request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Config holds the connection settings for one endpoint.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
}

// Client talks to a single chat-completions endpoint with a fixed model.
type Client struct {
	cfg    Config
	client *http.Client
}

// NewClient builds a client for cfg. BaseURL defaults to OpenRouter.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://openrouter.ai/api/v1"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: 300 * time.Second},
	}
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.cfg.Model
}

func (c *Client) newRequest(ctx context.Context, body map[string]interface{}) (*http.Request, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST",
		fmt.Sprintf("%s/chat/completions", c.cfg.BaseURL), bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.cfg.APIKey))
	}
	return req, nil
}

// Generate sends messages and returns the assistant's full reply.
func (c *Client) Generate(ctx context.Context, messages []Message) (string, error) {
	req, err := c.newRequest(ctx, map[string]interface{}{
		"model":    c.cfg.Model,
		"messages": messages,
	})
	if err != nil {
		return "", err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		return "", fmt.Errorf("API returned status %d: %v", resp.StatusCode, errResp)
	}

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("empty response from API")
	}

	return completion.Choices[0].Message.Content, nil
}

// GenerateStream sends messages with streaming enabled and returns the
// concatenated reply. Each content delta is passed to onDelta as it
// arrives; onDelta may be nil.
func (c *Client) GenerateStream(ctx context.Context, messages []Message, onDelta func(string)) (string, error) {
	req, err := c.newRequest(ctx, map[string]interface{}{
		"model":    c.cfg.Model,
		"messages": messages,
		"stream":   true,
	})
	if err != nil {
		return "", err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		return "", fmt.Errorf("API returned status %d: %v", resp.StatusCode, errResp)
	}

	var sb strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		data, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}
		if data == "[DONE]" {
			break
		}

		var event struct {
			Choices []struct {
				Delta struct {
					Content string `json:"content"`
				} `json:"delta"`
			} `json:"choices"`
		}
		if err := json.Unmarshal([]byte(data), &event); err != nil {
			// Keep-alive comments and vendor extras are not fatal.
			continue
		}
		if len(event.Choices) == 0 {
			continue
		}
		if delta := event.Choices[0].Delta.Content; delta != "" {
			sb.WriteString(delta)
			if onDelta != nil {
				onDelta(delta)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("stream interrupted: %w", err)
	}

	return sb.String(), nil
}

// refusalPhrases are openers models use when declining a task. Matched
// case-insensitively against the start of the reply.
var refusalPhrases = []string{
	"i'm sorry",
	"i cannot",
	"i am unable",
	"as an ai",
	"my apologies",
	"i am not programmed",
	"i do not have the ability",
}

// IsRefusal reports whether text reads as the model declining to
// produce a translation rather than producing one.
func IsRefusal(text string) bool {
	head := strings.ToLower(strings.TrimSpace(text))
	for _, phrase := range refusalPhrases {
		if strings.HasPrefix(head, phrase) {
			return true
		}
	}
	return false
}
