// Package assistant answers staff questions about the pipeline with an LLM.
// The lead context fed to the model is always scope-filtered first, so the
// model never sees records the asking user could not read directly.
package assistant

import (
	"context"
	"fmt"

	"venue_crm_backend/platform/config"

	"google.golang.org/genai"
)

// Generator produces a completion for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiGenerator implements Generator on the Gemini API.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGenerator builds the Gemini generator. Returns nil (assistant disabled)
// when no API key is configured.
func NewGenerator(ctx context.Context, cfg config.AssistantConfig) (*GeminiGenerator, error) {
	if cfg.GetGeminiAPIKey() == "" {
		return nil, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GetGeminiAPIKey(),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GeminiGenerator{client: client, model: cfg.GetGeminiModel()}, nil
}

// Generate runs one completion.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return resp.Text(), nil
}
