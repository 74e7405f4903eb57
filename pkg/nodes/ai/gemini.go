package ai

import (
	"context"
	"fmt"
	"net/http"

	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.5-flash"

// Gemini talks to the Gemini API through the Google Gen AI SDK.
type Gemini struct {
	APIKey  string
	BaseURL string
	Client  *http.Client
}

func (g *Gemini) Name() string {
	return "Gemini"
}

func (g *Gemini) Generate(ctx context.Context, req GenerateRequest) (*Completion, error) {
	if g.APIKey == "" {
		return nil, fmt.Errorf("Gemini %w", ErrNotConfigured)
	}

	if req.Model == "" {
		req.Model = DefaultGeminiModel
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      g.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  g.Client,
		HTTPOptions: genai.HTTPOptions{BaseURL: g.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	config := &genai.GenerateContentConfig{}
	if req.Temperature > 0 {
		config.Temperature = genai.Ptr(float32(req.Temperature))
	}

	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}

	resp, err := client.Models.GenerateContent(ctx, req.Model, genai.Text(req.Prompt), config)
	if err != nil {
		return nil, fmt.Errorf("Gemini API Error: %w", err)
	}

	completion := &Completion{Text: resp.Text(), Model: req.Model}
	if resp.UsageMetadata != nil {
		completion.TokensUsed = int(resp.UsageMetadata.TotalTokenCount)
	}

	return completion, nil
}
