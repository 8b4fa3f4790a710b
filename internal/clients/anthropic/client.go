// Package anthropic adapts the official Anthropic SDK as a reply
// generator. Selected with AI_PROVIDER=anthropic; embeddings stay on the
// OpenAI client since Anthropic exposes no embeddings API.
package anthropic

import (
	"context"
	"fmt"
	"os"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/yungbote/recall-backend/internal/ai"
	"github.com/yungbote/recall-backend/internal/platform/logger"
	"github.com/yungbote/recall-backend/internal/types"
)

type Generator struct {
	log       *logger.Logger
	client    *sdk.Client
	model     string
	maxTokens int64
}

func NewGenerator(log *logger.Logger) (*Generator, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	apiKey := strings.TrimSpace(os.Getenv("ANTHROPIC_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("missing ANTHROPIC_API_KEY")
	}

	model := strings.TrimSpace(os.Getenv("ANTHROPIC_MODEL"))
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}

	client := sdk.NewClient(option.WithAPIKey(apiKey))
	return &Generator{
		log:       log.With("client", "AnthropicGenerator"),
		client:    &client,
		model:     model,
		maxTokens: 4096,
	}, nil
}

func (g *Generator) GenerateReply(ctx context.Context, turns []ai.Turn) (string, error) {
	if len(turns) == 0 {
		return "", fmt.Errorf("anthropic generate: empty conversation")
	}

	messages := make([]sdk.MessageParam, 0, len(turns))
	for _, t := range turns {
		if t.Role == types.RoleModel {
			messages = append(messages, sdk.NewAssistantMessage(sdk.NewTextBlock(t.Text)))
		} else {
			messages = append(messages, sdk.NewUserMessage(sdk.NewTextBlock(t.Text)))
		}
	}

	resp, err := g.client.Messages.New(ctx, sdk.MessageNewParams{
		Model:     sdk.Model(g.model),
		MaxTokens: g.maxTokens,
		Messages:  messages,
	})
	if err != nil {
		return "", fmt.Errorf("anthropic messages: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return "", fmt.Errorf("anthropic messages: empty text response")
	}
	return text, nil
}
