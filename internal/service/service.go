// Package service implements discussion orchestration.
package service

import (
	"context"
	"sync"

	"github.com/xiaot623/roundtable/internal/adapter/llm"
	"github.com/xiaot623/roundtable/internal/config"
	"github.com/xiaot623/roundtable/internal/domain"
	"github.com/xiaot623/roundtable/internal/hub"
	"github.com/xiaot623/roundtable/internal/metrics"
	store "github.com/xiaot623/roundtable/internal/repository"
	"github.com/xiaot623/roundtable/internal/retrieval"
	"github.com/xiaot623/roundtable/internal/roster"
	"go.uber.org/zap"
)

// PromptSource renders per-role prompt templates for a topic.
type PromptSource interface {
	Templates(topic string) (map[domain.RoleTag]string, error)
}

// Admission decides whether a human submission is accepted.
type Admission interface {
	Evaluate(ctx context.Context, discussionID, senderID, content string) (decision, reason string, err error)
}

// Deps are the collaborators a Service is built from.
type Deps struct {
	Store     store.Store
	Roster    *roster.Roster
	Hub       *hub.Registry
	Responder llm.Responder
	Context   *retrieval.Provider
	Prompts   PromptSource
	Admission Admission
	Config    *config.Config
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
}

type Service struct {
	store     store.Store
	roster    *roster.Roster
	hub       *hub.Registry
	responder llm.Responder
	contexts  *retrieval.Provider
	prompts   PromptSource
	admission Admission
	config    *config.Config
	logger    *zap.Logger
	metrics   *metrics.Metrics

	emitLocks sync.Map // discussion id -> *sync.Mutex

	mu     sync.Mutex
	queues map[string]*discussionQueue
	idle   chan struct{}

	runsMu   sync.RWMutex
	runs     map[string]*domain.Run
	runOrder []string
}

func New(deps Deps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:     deps.Store,
		roster:    deps.Roster,
		hub:       deps.Hub,
		responder: deps.Responder,
		contexts:  deps.Context,
		prompts:   deps.Prompts,
		admission: deps.Admission,
		config:    deps.Config,
		logger:    logger,
		metrics:   deps.Metrics,
		queues:    make(map[string]*discussionQueue),
		runs:      make(map[string]*domain.Run),
	}
}
