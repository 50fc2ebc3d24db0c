package provider

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicChatModel = anthropic.ModelClaudeSonnet4_5

// anthropicVendor wraps the Anthropic messages API. Anthropic is chat-only
// in this router: Embed always reports SupportsEmbed() == false so the
// router substitutes the internal embedder (spec.md §4.6, SPEC_FULL.md §5
// expansion).
type anthropicVendor struct {
	client *anthropic.Client
}

func NewAnthropicVendor(apiKey string) Vendor {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &anthropicVendor{client: &client}
}

func (v *anthropicVendor) Name() Name { return NameAnthropic }

func (v *anthropicVendor) Chat(ctx context.Context, messages []ChatMessage, opts ChatOptions) (*ChatResult, error) {
	model := opts.Model
	if model == "" {
		model = defaultAnthropicChatModel
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: 1024,
		Messages:  toAnthropicMessages(messages),
	}
	if opts.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: opts.SystemPrompt}}
	}

	resp, err := v.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic message create: %w", err)
	}
	if len(resp.Content) == 0 {
		return nil, fmt.Errorf("anthropic message create: empty content")
	}

	var message string
	for _, block := range resp.Content {
		if block.Type == "text" {
			message += block.Text
		}
	}

	return &ChatResult{
		Model:   model,
		Message: message,
		Usage: &ChatUsage{
			PromptTokens:     int(resp.Usage.InputTokens),
			CompletionTokens: int(resp.Usage.OutputTokens),
			TotalTokens:      int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
	}, nil
}

func (v *anthropicVendor) SupportsEmbed() bool { return false }

func (v *anthropicVendor) Embed(ctx context.Context, texts []string, opts EmbedOptions) (*EmbedResult, error) {
	return nil, fmt.Errorf("anthropic vendor does not support embeddings")
}

func toAnthropicMessages(messages []ChatMessage) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "assistant":
			out = append(out, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			out = append(out, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	return out
}
