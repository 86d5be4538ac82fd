package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/MikeSquared-Agency/sentinel/internal/anthropic"
	"github.com/MikeSquared-Agency/sentinel/internal/catalog"
	"github.com/MikeSquared-Agency/sentinel/internal/config"
	"github.com/MikeSquared-Agency/sentinel/internal/gemini"
	"github.com/MikeSquared-Agency/sentinel/internal/llm"
)

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default(), nil
	}
	return catalog.Load(path)
}

// newGenerator builds the configured provider behind the request limits.
func newGenerator(ctx context.Context, c config.Config, logger *zap.Logger) (*llm.Limited, error) {
	var gen llm.Generator
	switch c.LLMProvider {
	case "anthropic":
		gen = anthropic.NewClient(c.AnthropicAPIKey, c.AnthropicModel, c.MaxOutputTokens)
		logger.Info("anthropic client ready", zap.String("model", c.AnthropicModel))
	case "gemini":
		gc, err := gemini.NewClient(ctx, c.GeminiAPIKey, gemini.Options{
			Model:           c.GeminiModel,
			Temperature:     float32(c.Temperature),
			MaxOutputTokens: int32(c.MaxOutputTokens),
		}, logger)
		if err != nil {
			return nil, err
		}
		gen = gc
		logger.Info("gemini client ready", zap.String("model", c.GeminiModel))
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", c.LLMProvider)
	}
	return llm.NewLimited(gen, c.RequestsPerMinute, c.RequestsPerDay), nil
}
