package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const defaultChatBaseURL = "https://api.openai.com/v1"

// ChatClient talks to an OpenAI-compatible chat-completions endpoint.
type ChatClient struct {
	BaseURL string
	APIKey  string

	httpClient *http.Client
}

// NewChatClientFromEnv builds a client from OPENAI_API_KEY and the optional
// OPENAI_BASE_URL override. The key is read per construction so a container
// restart picks up a rotated secret.
func NewChatClientFromEnv() (*ChatClient, error) {
	apiKey := strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY not found on server.")
	}

	baseURL := strings.TrimSpace(os.Getenv("OPENAI_BASE_URL"))
	if baseURL == "" {
		baseURL = defaultChatBaseURL
	}

	return &ChatClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		APIKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 90 * time.Second,
		},
	}, nil
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *ChatClient) newRequest(ctx context.Context, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.BaseURL+"/chat/completions",
		body,
	)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	return req, nil
}

// Complete sends one chat completion and returns the first choice's content.
// Temperature is omitted for model families that reject it (gpt-5*).
func (c *ChatClient) Complete(ctx context.Context, model string, temperature float64, messages []ChatMessage) (string, error) {
	payload := chatRequest{
		Model:    model,
		Messages: messages,
	}
	if !strings.HasPrefix(strings.ToLower(model), "gpt-5") {
		payload.Temperature = &temperature
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := c.newRequest(ctx, bytes.NewReader(body))
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("chat completion failed (%d): %s", resp.StatusCode, string(b))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}

	return out.Choices[0].Message.Content, nil
}
