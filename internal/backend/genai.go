package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/ppiankov/neurorouter"
	"google.golang.org/genai"
)

// ContentGenerator is the slice of the GenAI models service used here.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GenAIConfig configures the Gemini backend.
type GenAIConfig struct {
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
}

// GenAI completes prompts with Google Gemini.
type GenAI struct {
	models      ContentGenerator
	model       string
	temperature float64
	maxTokens   int
}

// NewGenAI creates a Gemini API client.
func NewGenAI(ctx context.Context, cfg GenAIConfig) (*GenAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("genai backend: API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("genai backend: create client: %w", err)
	}
	return NewGenAIWithModels(client.Models, cfg), nil
}

// NewGenAIWithModels builds the backend over an existing models service.
func NewGenAIWithModels(models ContentGenerator, cfg GenAIConfig) *GenAI {
	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &GenAI{
		models:      models,
		model:       model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

func (g *GenAI) Name() string { return KindGenAI }

func (g *GenAI) Complete(ctx context.Context, prompt string) (string, error) {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(g.temperature)),
	}
	if g.maxTokens > 0 {
		config.MaxOutputTokens = int32(g.maxTokens)
	}

	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), config)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
			return "", fmt.Errorf("genai backend: %w: %v", neurorouter.ErrRateLimited, err)
		}
		return "", fmt.Errorf("genai backend: generate: %w", err)
	}
	return resp.Text(), nil
}
