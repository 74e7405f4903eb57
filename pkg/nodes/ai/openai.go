package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const DefaultOpenAIModel = "gpt-4o"

// OpenAI talks to the chat completions API through the official SDK.
// BaseURL and Client are optional; tests point them at a local server.
type OpenAI struct {
	APIKey  string
	BaseURL string
	Client  *http.Client
}

func (o *OpenAI) Name() string {
	return "OpenAI"
}

func (o *OpenAI) client() openai.Client {
	opts := []option.RequestOption{
		option.WithAPIKey(o.APIKey),
		option.WithMaxRetries(0),
	}

	if o.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(o.BaseURL, "/")+"/"))
	}

	if o.Client != nil {
		opts = append(opts, option.WithHTTPClient(o.Client))
	}

	return openai.NewClient(opts...)
}

func (o *OpenAI) Generate(ctx context.Context, req GenerateRequest) (*Completion, error) {
	if o.APIKey == "" {
		return nil, fmt.Errorf("OpenAI %w", ErrNotConfigured)
	}

	if req.Model == "" {
		req.Model = DefaultOpenAIModel
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(req.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(req.Prompt),
		},
		Temperature: openai.Float(req.Temperature),
	}

	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}

	ctx, cancel := context.WithTimeout(ctx, DefaultTimeout)
	defer cancel()

	client := o.client()

	resp, err := client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			body := apiErr.Message
			if body == "" {
				body = http.StatusText(apiErr.StatusCode)
			}

			return nil, &APIError{Provider: o.Name(), StatusCode: apiErr.StatusCode, Body: body}
		}

		return nil, fmt.Errorf("request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, errors.New("OpenAI returned no choices")
	}

	return &Completion{
		Text:       resp.Choices[0].Message.Content,
		Model:      req.Model,
		TokensUsed: int(resp.Usage.TotalTokens),
	}, nil
}
