// Package fixtures wires a complete in-memory discussion service for transport tests.
package fixtures

import (
	"context"
	"testing"

	"github.com/xiaot623/roundtable/internal/adapter/llm"
	"github.com/xiaot623/roundtable/internal/config"
	"github.com/xiaot623/roundtable/internal/hub"
	"github.com/xiaot623/roundtable/internal/policy"
	"github.com/xiaot623/roundtable/internal/prompt"
	store "github.com/xiaot623/roundtable/internal/repository"
	"github.com/xiaot623/roundtable/internal/retrieval"
	"github.com/xiaot623/roundtable/internal/roster"
	"github.com/xiaot623/roundtable/internal/service"
	"github.com/xiaot623/roundtable/tests/helpers"
)

// NewService builds a service with template responders over the store named
// by cfg.StoreDriver. Pending runs are drained when the test ends.
func NewService(t *testing.T, cfg *config.Config) *service.Service {
	t.Helper()

	var s store.Store = store.NewMemoryStore()
	if cfg.StoreDriver == "sqlite" {
		s = helpers.NewTestSQLiteStore(t)
	}
	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy, cfg.MaxContentLength)
	if err != nil {
		t.Fatalf("failed to build policy engine: %v", err)
	}

	svc := service.New(service.Deps{
		Store:     s,
		Roster:    roster.New(cfg.ParticipantCount, s),
		Hub:       hub.NewRegistry(s, cfg.SendBuffer, nil, nil),
		Responder: llm.NewTemplateResponder(cfg.TurnDelay),
		Context:   retrieval.NewProvider(retrieval.NewKeywordIndex(retrieval.DefaultCorpus()), cfg.MaxContextResults, nil, nil),
		Prompts:   prompt.Default(),
		Admission: engine,
		Config:    cfg,
	})

	t.Cleanup(func() {
		_ = svc.Wait(context.Background())
		_ = s.Close()
	})
	return svc
}
