package provider

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const defaultOpenAIChatModel = openai.ChatModelGPT4o
const defaultOpenAIEmbedModel = "text-embedding-3-small"

// openAIVendor wraps the OpenAI chat and embeddings APIs behind the vendor
// interface. Grounded on the retry-count/hard-timeout client construction
// pattern used for the Responses API client in the accounting-agent example.
type openAIVendor struct {
	client *openai.Client
}

func NewOpenAIVendor(apiKey string) Vendor {
	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0), // retry/backoff is owned by the router, not the SDK
	)
	return &openAIVendor{client: &client}
}

func (v *openAIVendor) Name() Name { return NameOpenAI }

func (v *openAIVendor) Chat(ctx context.Context, messages []ChatMessage, opts ChatOptions) (*ChatResult, error) {
	model := opts.Model
	if model == "" {
		model = defaultOpenAIChatModel
	}

	params := openai.ChatCompletionNewParams{
		Model:    model,
		Messages: toOpenAIMessages(messages, opts.SystemPrompt),
	}
	if opts.Temperature > 0 {
		params.Temperature = openai.Float(opts.Temperature)
	}

	resp, err := v.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai chat completion: empty choices")
	}

	var usage *ChatUsage
	if resp.Usage.TotalTokens > 0 {
		usage = &ChatUsage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		}
	}

	return &ChatResult{
		Model:   model,
		Message: resp.Choices[0].Message.Content,
		Usage:   usage,
	}, nil
}

func (v *openAIVendor) SupportsEmbed() bool { return true }

func (v *openAIVendor) Embed(ctx context.Context, texts []string, opts EmbedOptions) (*EmbedResult, error) {
	model := opts.Model
	if model == "" {
		model = defaultOpenAIEmbedModel
	}

	resp, err := v.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: model,
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}

	vectors := make([][]float64, len(resp.Data))
	for i, d := range resp.Data {
		vectors[i] = d.Embedding
	}

	return &EmbedResult{Model: model, Embeddings: vectors}, nil
}

func toOpenAIMessages(messages []ChatMessage, systemPrompt string) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)+1)
	if systemPrompt != "" {
		out = append(out, openai.SystemMessage(systemPrompt))
	}
	for _, m := range messages {
		switch m.Role {
		case "assistant":
			out = append(out, openai.AssistantMessage(m.Content))
		case "system":
			out = append(out, openai.SystemMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
