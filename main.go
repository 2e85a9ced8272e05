package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xiaot623/roundtable/internal/adapter/llm"
	"github.com/xiaot623/roundtable/internal/config"
	"github.com/xiaot623/roundtable/internal/hub"
	"github.com/xiaot623/roundtable/internal/logging"
	"github.com/xiaot623/roundtable/internal/metrics"
	"github.com/xiaot623/roundtable/internal/policy"
	"github.com/xiaot623/roundtable/internal/prompt"
	store "github.com/xiaot623/roundtable/internal/repository"
	"github.com/xiaot623/roundtable/internal/retrieval"
	"github.com/xiaot623/roundtable/internal/roster"
	"github.com/xiaot623/roundtable/internal/service"
	transport "github.com/xiaot623/roundtable/internal/transport/http"
	"github.com/xiaot623/roundtable/internal/transport/ws"
)

func main() {
	os.Exit(realMain())
}

// realMain runs the server and returns the process exit code.
func realMain() int {
	// Load configuration
	cfg := config.Load()

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Error("server_failed", zap.Error(err))
		return 1
	}
	return 0
}

func run(cfg *config.Config, logger *zap.Logger) error {
	logger.Info("server_starting",
		zap.Int("http_port", cfg.HTTPPort),
		zap.String("store_driver", cfg.StoreDriver),
		zap.Int("participants", cfg.ParticipantCount),
		zap.Int("rounds", cfg.DiscussionRounds))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize store
	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	// Initialize collaborators
	prompts, err := prompt.Load(cfg.PromptFile)
	if err != nil {
		return err
	}
	corpus := retrieval.DefaultCorpus()
	if cfg.KnowledgeFile != "" {
		if corpus, err = retrieval.LoadCorpus(cfg.KnowledgeFile); err != nil {
			return err
		}
	}
	policyEngine, err := policy.LoadEngine(ctx, cfg.PolicyFile, cfg.MaxContentLength)
	if err != nil {
		return err
	}
	responder := llm.NewResponder(llm.Options{
		BaseURL: cfg.LLMURL,
		APIKey:  cfg.LLMAPIKey,
		Model:   cfg.LLMModel,
		Timeout: cfg.LLMTimeout,
		Delay:   cfg.TurnDelay,
	}, logger)

	m := metrics.New()
	registry := hub.NewRegistry(db, cfg.SendBuffer, logger.Named("hub"), m)

	// Initialize service
	svc := service.New(service.Deps{
		Store:     db,
		Roster:    roster.New(cfg.ParticipantCount, db),
		Hub:       registry,
		Responder: responder,
		Context:   retrieval.NewProvider(retrieval.NewKeywordIndex(corpus), cfg.MaxContextResults, logger.Named("retrieval"), m),
		Prompts:   prompts,
		Admission: policyEngine,
		Config:    cfg,
		Logger:    logger.Named("service"),
		Metrics:   m,
	})

	wsServer := ws.NewServer(cfg, svc, logger.Named("ws"))
	server := transport.NewServer(svc, wsServer, m, logger.Named("http"))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		logger.Info("http_listening", zap.String("addr", addr))
		if err := server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("server_stopping")

		// Graceful shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http_shutdown_failed", zap.Error(err))
		}
		if err := svc.Wait(shutdownCtx); err != nil {
			logger.Warn("runs_still_pending", zap.Error(err))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server_stopped")
	return nil
}

func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case "memory", "":
		return store.NewMemoryStore(), nil
	case "sqlite":
		return store.NewSQLiteStore(cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
