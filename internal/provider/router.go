package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fadhilmayati/dompet-platform/internal/domain"
	"github.com/patrickmn/go-cache"
)

// Router is the uniform chat/embed façade (spec.md §4.6). It owns one vendor
// client per configured provider. embeddingCache is created but Embed does
// not read or write it; repeated texts are deduplicated only within a call.
type Router struct {
	vendors         map[Name]Vendor
	defaultChat     Name
	defaultEmbed    Name
	embeddingCache  *cache.Cache
}

// Config selects the default provider for each operation; RegisterVendor
// wires in concrete vendor clients afterward.
type Config struct {
	DefaultChatProvider  Name
	DefaultEmbedProvider Name
}

func NewRouter(cfg Config) *Router {
	return &Router{
		vendors:        make(map[Name]Vendor),
		defaultChat:    cfg.DefaultChatProvider,
		defaultEmbed:   cfg.DefaultEmbedProvider,
		embeddingCache: cache.New(30*time.Minute, 10*time.Minute),
	}
}

// RegisterVendor wires a concrete vendor client into the router.
func (r *Router) RegisterVendor(v Vendor) {
	r.vendors[v.Name()] = v
}

func (r *Router) resolveChatVendor(opts ChatOptions) (Vendor, Name, error) {
	name := opts.Provider
	if name == "" {
		name = r.defaultChat
	}
	v, ok := r.vendors[name]
	if !ok {
		return nil, name, domain.NewCodedError(domain.ErrCodeProviderUnavailable, fmt.Sprintf("no chat vendor configured for provider %q", name), domain.ErrProviderUnavailable)
	}
	return v, name, nil
}

func (r *Router) resolveEmbedVendor(opts EmbedOptions) (Vendor, Name, bool) {
	name := opts.Provider
	if name == "" {
		name = r.defaultEmbed
	}
	v, ok := r.vendors[name]
	if !ok || !v.SupportsEmbed() {
		return v, name, false
	}
	return v, name, true
}

// Chat dispatches to the selected (or default) provider with retry/backoff
// and cancellation awareness (spec.md §4.6).
func (r *Router) Chat(ctx context.Context, messages []ChatMessage, opts ChatOptions) (*ChatResult, error) {
	v, name, err := r.resolveChatVendor(opts)
	if err != nil {
		return nil, err
	}

	var lastErr error
	delay := chatRetry.initialDelay
	for attempt := 0; attempt < chatRetry.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, domain.NewCodedError(domain.ErrCodeCancelled, "chat call cancelled", domain.ErrCancelled)
		}

		result, err := v.Chat(ctx, messages, opts)
		if err == nil {
			result.Provider = name
			return result, nil
		}
		lastErr = err

		if attempt < chatRetry.attempts-1 {
			if !sleepOrCancel(ctx, delay) {
				return nil, domain.NewCodedError(domain.ErrCodeCancelled, "chat call cancelled during backoff", domain.ErrCancelled)
			}
			delay = time.Duration(float64(delay) * chatRetry.factor)
		}
	}

	msg := truncate(lastErr.Error(), 200)
	return nil, domain.NewCodedError(domain.ErrCodeProviderUnavailable, msg, domain.ErrProviderUnavailable)
}

// Embed pre-processes the input batch (truncate, dedup, preserve order),
// batches calls to the vendor, and falls back to the internal embedder when
// the resolved vendor is chat-only (spec.md §4.6, SPEC_FULL.md §5 expansion).
func (r *Router) Embed(ctx context.Context, texts []string, opts EmbedOptions) (*EmbedResult, error) {
	truncated := make([]string, len(texts))
	for i, t := range texts {
		truncated[i] = truncate(t, maxEmbedTextLength)
	}

	unique, indexMap := dedupPreservingOrder(truncated)

	v, name, ok := r.resolveEmbedVendor(opts)
	if !ok {
		vectors := make([][]float64, len(unique))
		for i, t := range unique {
			vectors[i] = internalTextEmbed(t)
		}
		return &EmbedResult{
			Provider:   "internal",
			Model:      "internal-7d",
			Embeddings: reorder(vectors, indexMap, len(texts)),
		}, nil
	}

	var allVectors [][]float64
	for start := 0; start < len(unique); start += maxEmbedBatchSize {
		end := start + maxEmbedBatchSize
		if end > len(unique) {
			end = len(unique)
		}
		batch := unique[start:end]

		vectors, err := r.embedBatchWithRetry(ctx, v, batch, opts)
		if err != nil {
			return nil, err
		}
		allVectors = append(allVectors, vectors...)
	}

	return &EmbedResult{
		Provider:   name,
		Model:      opts.Model,
		Embeddings: reorder(allVectors, indexMap, len(texts)),
	}, nil
}

func (r *Router) embedBatchWithRetry(ctx context.Context, v Vendor, batch []string, opts EmbedOptions) ([][]float64, error) {
	var lastErr error
	delay := embedRetry.initialDelay
	for attempt := 0; attempt < embedRetry.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, domain.NewCodedError(domain.ErrCodeCancelled, "embed call cancelled", domain.ErrCancelled)
		}

		result, err := v.Embed(ctx, batch, opts)
		if err == nil {
			return result.Embeddings, nil
		}
		lastErr = err

		if attempt < embedRetry.attempts-1 {
			if !sleepOrCancel(ctx, delay) {
				return nil, domain.NewCodedError(domain.ErrCodeCancelled, "embed call cancelled during backoff", domain.ErrCancelled)
			}
			delay = time.Duration(float64(delay) * embedRetry.factor)
		}
	}
	return nil, domain.NewCodedError(domain.ErrCodeProviderUnavailable, truncate(lastErr.Error(), 200), domain.ErrProviderUnavailable)
}

func sleepOrCancel(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// dedupPreservingOrder returns the unique input strings in first-seen order
// plus a reverse index mapping each original position back to its slot in
// the unique slice (spec.md §4.6).
func dedupPreservingOrder(texts []string) (unique []string, indexMap []int) {
	seen := make(map[string]int, len(texts))
	indexMap = make([]int, len(texts))
	for i, t := range texts {
		if idx, ok := seen[t]; ok {
			indexMap[i] = idx
			continue
		}
		idx := len(unique)
		seen[t] = idx
		unique = append(unique, t)
		indexMap[i] = idx
	}
	return unique, indexMap
}

func reorder(vectors [][]float64, indexMap []int, originalLen int) [][]float64 {
	out := make([][]float64, originalLen)
	for i, idx := range indexMap {
		out[i] = vectors[idx]
	}
	return out
}

// coerceJSON locates the first '{' and the last '}' in raw and returns the
// slice between them, surfacing MODEL_OUTPUT_INVALID when no braces are
// found (spec.md §4.6).
func coerceJSON(raw string) (string, error) {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start == -1 || end == -1 || end < start {
		return "", domain.NewCodedError(domain.ErrCodeModelOutputInvalid, "model output did not contain a JSON object", domain.ErrModelOutputInvalid)
	}
	return raw[start : end+1], nil
}
