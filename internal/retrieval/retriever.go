// Package retrieval fetches grounding context for participant turns.
package retrieval

import (
	"context"
	"fmt"
	"sort"

	"github.com/xiaot623/roundtable/internal/domain"
	"github.com/xiaot623/roundtable/internal/metrics"
	"go.uber.org/zap"
)

// Retriever is the external context collaborator.
type Retriever interface {
	Retrieve(ctx context.Context, query string, limit int) ([]domain.ContextDocument, error)
}

// Provider wraps a Retriever with a result cap, stable ordering and failure fallback.
type Provider struct {
	retriever  Retriever
	maxResults int
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

// NewProvider creates a provider that never returns more than maxResults documents.
func NewProvider(r Retriever, maxResults int, logger *zap.Logger, m *metrics.Metrics) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		retriever:  r,
		maxResults: maxResults,
		logger:     logger,
		metrics:    m,
	}
}

// FetchContext returns at most limit documents ordered by descending score.
// A non-positive limit, or one above the configured cap, means the cap.
// Collaborator failures yield an empty result instead of an error.
func (p *Provider) FetchContext(ctx context.Context, query string, limit int) []domain.ContextDocument {
	if limit <= 0 || limit > p.maxResults {
		limit = p.maxResults
	}
	if limit <= 0 || p.retriever == nil {
		return []domain.ContextDocument{}
	}

	docs, err := p.retrieve(ctx, query, limit)
	if err != nil {
		p.logger.Warn("context_fetch_failed", zap.String("query", query), zap.Error(err))
		p.metrics.ContextFallback()
		return []domain.ContextDocument{}
	}

	out := make([]domain.ContextDocument, len(docs))
	copy(out, docs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (p *Provider) retrieve(ctx context.Context, query string, limit int) (docs []domain.ContextDocument, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: retriever panic: %v", domain.ErrCollaboratorFailure, r)
		}
	}()
	return p.retriever.Retrieve(ctx, query, limit)
}
