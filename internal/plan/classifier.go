package plan

import (
	"context"

	"github.com/fadhilmayati/dompet-platform/internal/domain"
	"github.com/fadhilmayati/dompet-platform/internal/provider"
)

// Classify forwards to the provider router's intent classification. It
// exists as a named seam so the executor's caller depends on this package,
// not directly on provider, for the classify-then-plan sequence.
func Classify(ctx context.Context, router *provider.Router, conversation []domain.ConversationMessage) (*domain.IntentClassification, error) {
	return router.ClassifyIntent(ctx, conversation)
}
