package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/nodes"
	"github.com/dukex/flowrun/pkg/protocol"
)

const (
	TypeOpenAI        = "ai-openai"
	TypeGemini        = "ai-gemini"
	TypeClassify      = "ai-classify"
	TypeContentWriter = "ai-content-writer"
)

// AINode serves every ai-* node type. Classification and content writing
// run on Gemini.
type AINode struct {
	openai Provider
	gemini Provider
}

func NewAINode(openai, gemini Provider) *AINode {
	return &AINode{openai: openai, gemini: gemini}
}

func Infos() []protocol.NodeInfo {
	return []protocol.NodeInfo{
		{Type: TypeOpenAI, Name: "OpenAI", Description: "Generates text with an OpenAI chat model", Category: protocol.CategoryAI},
		{Type: TypeGemini, Name: "Gemini", Description: "Generates text with a Gemini model", Category: protocol.CategoryAI},
		{Type: TypeClassify, Name: "Classify", Description: "Classifies text into one of the configured categories", Category: protocol.CategoryAI},
		{Type: TypeContentWriter, Name: "Content Writer", Description: "Writes captions, ad copy and posts about a topic", Category: protocol.CategoryAI},
	}
}

func (n *AINode) Execute(ctx context.Context, req protocol.Request) (models.NodeOutput, error) {
	switch req.NodeType {
	case TypeOpenAI:
		return n.openAI(ctx, req.Config), nil
	case TypeGemini:
		return n.geminiText(ctx, req.Config), nil
	case TypeClassify:
		return n.classify(ctx, req.Config), nil
	case TypeContentWriter:
		return n.writeContent(ctx, req.Config), nil
	default:
		return nil, fmt.Errorf("unsupported AI node type %q", req.NodeType)
	}
}

func (n *AINode) openAI(ctx context.Context, config map[string]any) models.NodeOutput {
	completion, err := n.openai.Generate(ctx, GenerateRequest{
		Model:       nodes.String(config, "model", DefaultOpenAIModel),
		Prompt:      nodes.String(config, "prompt", ""),
		Temperature: nodes.Float(config, "temperature", 0.7),
		MaxTokens:   nodes.Int(config, "max_tokens", 150),
	})
	if err != nil {
		return models.ErrorOutput(err)
	}

	return models.NodeOutput{
		"response":    completion.Text,
		"model":       completion.Model,
		"tokens_used": completion.TokensUsed,
	}
}

func (n *AINode) geminiText(ctx context.Context, config map[string]any) models.NodeOutput {
	model := nodes.String(config, "model", DefaultGeminiModel)

	completion, err := n.gemini.Generate(ctx, GenerateRequest{
		Model:       model,
		Prompt:      nodes.String(config, "prompt", ""),
		Temperature: nodes.Float(config, "temperature", 0),
		MaxTokens:   nodes.Int(config, "max_tokens", 0),
	})
	if err != nil {
		return models.ErrorOutput(err)
	}

	if completion.Text == "" {
		return models.NodeOutput{"error": "Gemini returned empty response"}
	}

	return models.NodeOutput{
		"response": completion.Text,
		"model":    model,
	}
}

func (n *AINode) classify(ctx context.Context, config map[string]any) models.NodeOutput {
	categories := nodes.List(config, "categories")
	if len(categories) == 0 {
		return models.NodeOutput{"error": "No categories provided"}
	}

	prompt := fmt.Sprintf(
		"Classify the following text into one of these categories: %s.\nText: %q\nReturn ONLY the category name.",
		strings.Join(categories, ", "),
		nodes.String(config, "text", ""),
	)

	completion, err := n.gemini.Generate(ctx, GenerateRequest{
		Model:  nodes.String(config, "model", DefaultGeminiModel),
		Prompt: prompt,
	})
	if err != nil {
		return models.ErrorOutput(err)
	}

	category := strings.TrimSpace(completion.Text)
	if category == "" {
		category = "unknown"
	}

	return models.NodeOutput{
		"category":   category,
		"confidence": 0.9,
	}
}

var contentLengths = map[string]string{
	"short":  "50-100 words",
	"medium": "100-300 words",
	"long":   "more than 300 words",
}

func (n *AINode) writeContent(ctx context.Context, config map[string]any) models.NodeOutput {
	topic := strings.TrimSpace(nodes.String(config, "topic", ""))
	if topic == "" {
		return models.NodeOutput{"error": "No topic provided"}
	}

	contentType := nodes.String(config, "content_type", "caption")
	tone := nodes.String(config, "tone", "professional")
	length := nodes.String(config, "length", "medium")

	words, ok := contentLengths[length]
	if !ok {
		words = contentLengths["medium"]
	}

	prompt := fmt.Sprintf(
		"Write a %s about %q.\nTone: %s.\nLength: %s.\nReturn only the content.",
		strings.ReplaceAll(contentType, "_", " "), topic, tone, words,
	)

	model := nodes.String(config, "model", DefaultGeminiModel)

	completion, err := n.gemini.Generate(ctx, GenerateRequest{Model: model, Prompt: prompt})
	if err != nil {
		return models.ErrorOutput(err)
	}

	if completion.Text == "" {
		return models.NodeOutput{"error": "Gemini returned empty response"}
	}

	return models.NodeOutput{
		"content":      completion.Text,
		"content_type": contentType,
		"topic":        topic,
		"tone":         tone,
		"length":       length,
		"model":        model,
	}
}
