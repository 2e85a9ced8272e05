package retrieval

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xiaot623/roundtable/internal/domain"
)

type stubRetriever struct {
	docs      []domain.ContextDocument
	err       error
	panicMsg  string
	lastLimit int
}

func (s *stubRetriever) Retrieve(ctx context.Context, query string, limit int) ([]domain.ContextDocument, error) {
	s.lastLimit = limit
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	return s.docs, s.err
}

func docs(scores ...float64) []domain.ContextDocument {
	out := make([]domain.ContextDocument, len(scores))
	for i, s := range scores {
		out[i] = domain.ContextDocument{DocumentID: string(rune('a' + i)), Score: s}
	}
	return out
}

func TestFetchContextCapsLimit(t *testing.T) {
	stub := &stubRetriever{docs: docs(0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7)}
	p := NewProvider(stub, 5, nil, nil)

	got := p.FetchContext(context.Background(), "q", 50)
	assert.Equal(t, 5, stub.lastLimit)
	assert.Len(t, got, 5)

	got = p.FetchContext(context.Background(), "q", 0)
	assert.Equal(t, 5, stub.lastLimit)
	assert.Len(t, got, 5)

	got = p.FetchContext(context.Background(), "q", 2)
	assert.Equal(t, 2, stub.lastLimit)
	assert.Len(t, got, 2)
	assert.Equal(t, 0.7, got[0].Score)
}

func TestFetchContextOrdersStably(t *testing.T) {
	stub := &stubRetriever{docs: docs(0.5, 0.9, 0.5, 0.1)}
	p := NewProvider(stub, 5, nil, nil)

	got := p.FetchContext(context.Background(), "q", 5)
	require.Len(t, got, 4)
	assert.Equal(t, "b", got[0].DocumentID)
	assert.Equal(t, "a", got[1].DocumentID)
	assert.Equal(t, "c", got[2].DocumentID)
	assert.Equal(t, "d", got[3].DocumentID)
}

func TestFetchContextSwallowsFailures(t *testing.T) {
	p := NewProvider(&stubRetriever{err: errors.New("index offline")}, 5, nil, nil)
	got := p.FetchContext(context.Background(), "q", 5)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	p = NewProvider(&stubRetriever{panicMsg: "boom"}, 5, nil, nil)
	got = p.FetchContext(context.Background(), "q", 5)
	assert.Empty(t, got)

	p = NewProvider(nil, 5, nil, nil)
	assert.Empty(t, p.FetchContext(context.Background(), "q", 5))
}

func TestKeywordIndexScoresByOverlap(t *testing.T) {
	idx := NewKeywordIndex(DefaultCorpus())

	got, err := idx.Retrieve(context.Background(), "How do multi-agent systems share external knowledge?", 5)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "doc4", got[0].DocumentID)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Score, got[i].Score)
	}

	got, err = idx.Retrieve(context.Background(), "the and of", 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestKeywordIndexHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewKeywordIndex(DefaultCorpus()).Retrieve(ctx, "agents", 5)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadCorpus(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.yaml")
	body := "documents:\n  - content: Remote work reshapes cities.\n    source: Notes\n  - id: custom\n    content: Automation changes jobs.\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	corpus, err := LoadCorpus(path)
	require.NoError(t, err)
	require.Len(t, corpus, 2)
	assert.Equal(t, "doc1", corpus[0].ID)
	assert.Equal(t, "custom", corpus[1].ID)

	got, err := NewKeywordIndex(corpus).Retrieve(context.Background(), "remote work", 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 1.0, got[0].Score)
}
