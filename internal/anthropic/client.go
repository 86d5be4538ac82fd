package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/MikeSquared-Agency/sentinel/internal/llm"
)

const defaultBaseURL = "https://api.anthropic.com/v1/messages"

type Client struct {
	apiKey    string
	model     string
	maxTokens int
	baseURL   string
	client    *http.Client
}

func NewClient(apiKey, model string, maxTokens int) *Client {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &Client{
		apiKey:    apiKey,
		model:     model,
		maxTokens: maxTokens,
		baseURL:   defaultBaseURL,
		client:    &http.Client{Timeout: 120 * time.Second},
	}
}

// SetBaseURL points the client at a different Messages endpoint.
func (c *Client) SetBaseURL(url string) {
	c.baseURL = url
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []Message `json:"messages"`
}

type response struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type errorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Generate implements llm.Generator. The context block becomes the system
// prompt; history and prompt become the message list.
func (c *Client) Generate(ctx context.Context, prompt, contextBlock string, history []llm.Message) (llm.Generation, error) {
	messages := make([]Message, 0, len(history)+1)
	for _, m := range history {
		role := "user"
		if m.Role == llm.RoleAssistant {
			role = "assistant"
		}
		messages = append(messages, Message{Role: role, Content: m.Content})
	}
	messages = append(messages, Message{Role: "user", Content: prompt})

	start := time.Now()
	resp, err := c.send(ctx, contextBlock, messages, c.maxTokens)
	latency := time.Since(start)
	if err != nil {
		return llm.Generation{}, err
	}

	text := llm.FormatReply(resp.Content[0].Text)
	if text == "" {
		return llm.Generation{}, llm.ErrEmptyResponse
	}

	model := resp.Model
	if model == "" {
		model = c.model
	}
	return llm.Generation{
		Text:       text,
		LatencyMS:  float64(latency.Microseconds()) / 1000,
		TokenCount: resp.Usage.InputTokens + resp.Usage.OutputTokens,
		Model:      model,
	}, nil
}

func (c *Client) send(ctx context.Context, system string, messages []Message, maxTokens int) (*response, error) {
	reqBody := request{
		Model:     c.model,
		MaxTokens: maxTokens,
		System:    system,
		Messages:  messages,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error.Type != "" {
			return nil, fmt.Errorf("api error %d: %s: %s", resp.StatusCode, errResp.Error.Type, errResp.Error.Message)
		}
		return nil, fmt.Errorf("api error %d: %s", resp.StatusCode, string(respBody))
	}

	var apiResp response
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if len(apiResp.Content) == 0 {
		return nil, fmt.Errorf("empty response content: %w", llm.ErrEmptyResponse)
	}

	return &apiResp, nil
}
