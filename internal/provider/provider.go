// Package provider implements the uniform chat/embed façade described in
// spec.md §4.6: one API in front of the OpenAI and Anthropic vendors, with
// retry/backoff, cancellation, embedding pre-processing and JSON coercion.
package provider

import (
	"context"
	"time"
)

// Name identifies a configured vendor.
type Name string

const (
	NameOpenAI    Name = "openai"
	NameAnthropic Name = "anthropic"
)

// ChatMessage is one turn passed to Chat.
type ChatMessage struct {
	Role    string
	Content string
}

// ChatOptions configures a single Chat call.
type ChatOptions struct {
	Provider    Name
	Model       string
	Temperature float64
	// SystemPrompt, when non-empty, is prepended as a system message.
	SystemPrompt string
}

// ChatUsage reports token accounting when the vendor returns it.
type ChatUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// ChatResult is the uniform output of Chat.
type ChatResult struct {
	Provider Name
	Model    string
	Message  string
	Usage    *ChatUsage
}

// EmbedOptions configures a single Embed call.
type EmbedOptions struct {
	Provider Name
	Model    string
}

// EmbedResult is the uniform output of Embed.
type EmbedResult struct {
	Provider   Name
	Model      string
	Embeddings [][]float64
}

// Vendor is the capability a concrete provider client exposes. Not every
// vendor supports every capability (Anthropic is chat-only in this router;
// embeddings fall back to the internal embedder per spec.md §4.6/§4.7).
type Vendor interface {
	Name() Name
	Chat(ctx context.Context, messages []ChatMessage, opts ChatOptions) (*ChatResult, error)
	SupportsEmbed() bool
	Embed(ctx context.Context, texts []string, opts EmbedOptions) (*EmbedResult, error)
}

// retryConfig bounds the exponential backoff applied to vendor calls.
type retryConfig struct {
	attempts     int
	initialDelay time.Duration
	factor       float64
}

// Defaults from spec.md §4.6: R=3, D0=250ms chat / 200ms embed, B=2.
var (
	chatRetry  = retryConfig{attempts: 3, initialDelay: 250 * time.Millisecond, factor: 2}
	embedRetry = retryConfig{attempts: 3, initialDelay: 200 * time.Millisecond, factor: 2}
)

const (
	maxEmbedTextLength = 400
	maxEmbedBatchSize  = 32
)
