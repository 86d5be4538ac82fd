package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/MikeSquared-Agency/sentinel/internal/llm"
)

const DefaultModel = "gemini-2.5-flash-lite"

// contentGenerator is the subset of *genai.Models the client calls.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Options struct {
	Model           string
	Temperature     float32
	MaxOutputTokens int32
}

// Client generates replies with the Gemini API.
type Client struct {
	models contentGenerator
	opts   Options
	logger *zap.Logger
}

func NewClient(ctx context.Context, apiKey string, opts Options, logger *zap.Logger) (*Client, error) {
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return newClient(gc.Models, opts, logger), nil
}

func newClient(models contentGenerator, opts Options, logger *zap.Logger) *Client {
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.MaxOutputTokens == 0 {
		opts.MaxOutputTokens = 1024
	}
	return &Client{models: models, opts: opts, logger: logger}
}

// Generate sends history followed by the context block and prompt as a
// single user message.
func (c *Client) Generate(ctx context.Context, prompt, contextBlock string, history []llm.Message) (llm.Generation, error) {
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, m := range history {
		var role genai.Role = genai.RoleUser
		if m.Role == llm.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	full := prompt
	if contextBlock != "" {
		full = contextBlock + "\n\n" + prompt
	}
	contents = append(contents, genai.NewContentFromText(full, genai.RoleUser))

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(c.opts.Temperature),
		MaxOutputTokens: c.opts.MaxOutputTokens,
	}

	start := time.Now()
	resp, err := c.models.GenerateContent(ctx, c.opts.Model, contents, config)
	latency := time.Since(start)
	if err != nil {
		return llm.Generation{}, fmt.Errorf("gemini generate: %w", err)
	}

	text := responseText(resp)
	if text == "" {
		return llm.Generation{}, llm.ErrEmptyResponse
	}

	gen := llm.Generation{
		Text:      llm.FormatReply(text),
		LatencyMS: float64(latency.Microseconds()) / 1000,
		Model:     c.opts.Model,
	}
	if resp.ModelVersion != "" {
		gen.Model = resp.ModelVersion
	}
	if resp.UsageMetadata != nil {
		gen.TokenCount = int(resp.UsageMetadata.TotalTokenCount)
	}

	c.logger.Debug("gemini reply",
		zap.String("model", gen.Model),
		zap.Float64("latency_ms", gen.LatencyMS),
		zap.Int("tokens", gen.TokenCount),
	)
	return gen, nil
}

// responseText joins the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	cand := resp.Candidates[0]
	if cand == nil || cand.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range cand.Content.Parts {
		if p != nil {
			b.WriteString(p.Text)
		}
	}
	return strings.TrimSpace(b.String())
}
