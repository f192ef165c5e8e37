package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"rapport/internal/analysis"
	"rapport/internal/config"
	"rapport/internal/db"
	"rapport/internal/emotion"
	"rapport/internal/explain"
	"rapport/internal/lexicon"
	"rapport/internal/llm"
	"rapport/internal/mqtt"
	"rapport/internal/orchestrator"
	"rapport/internal/score"
)

func main() {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		slog.Error("load config failed", "error", err)
		os.Exit(1)
	}

	zl, logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		slog.Error("init logger failed", "error", err)
		os.Exit(1)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Error("rapport server stopped", "error", err)
		_ = zl.Sync()
		os.Exit(1)
	}
}

func run(cfg config.ServerConfig, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lex, err := loadLexicon(cfg.LexiconPath)
	if err != nil {
		return err
	}
	classifier := emotion.NewClassifier(lex)
	explainer := explain.New(classifier)

	backend, err := newBackend(cfg)
	if err != nil {
		return err
	}
	pipeline := analysis.NewPipeline(backend, classifier, explainer, analysis.Config{Timeout: cfg.EnhancedTimeout}, logger)

	engine := score.NewEngine(score.Config{
		BaseScore:    cfg.BaseScore,
		HistoryLimit: cfg.HistoryLimit,
		Now:          time.Now,
	})

	var store orchestrator.ScoreStore
	if cfg.PersistenceEnabled() {
		pg, err := db.New(ctx, cfg.DBDSN)
		if err != nil {
			return err
		}
		defer pg.Close()
		if err := pg.Migrate(ctx); err != nil {
			return err
		}
		store = pg
	} else {
		logger.Info("persistence disabled, scores live in memory only")
	}

	svc := orchestrator.New(orchestrator.Config{}, pipeline, engine, store, logger)
	if _, err := svc.Restore(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.MQTTEnabled() {
		hub := mqtt.NewHub(mqtt.HubConfig{
			BrokerURL:   cfg.MQTTBrokerURL,
			ClientID:    cfg.MQTTClientID,
			Username:    cfg.MQTTUsername,
			Password:    cfg.MQTTPassword,
			TopicPrefix: cfg.MQTTTopicPrefix,
		}, logger)
		hub.SetHandler(svc)
		svc.SetPublisher(hub)
		if err := hub.Start(gctx); err != nil {
			return err
		}
	}

	if store != nil {
		g.Go(func() error {
			svc.RunSnapshotFlusher(gctx, cfg.SnapshotFlushInterval)
			return nil
		})
	}

	srv := &server{
		classifier: classifier,
		explainer:  explainer,
		pipeline:   pipeline,
		svc:        svc,
		maxBody:    cfg.MaxBodyBytes,
		logger:     logger,
	}
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g.Go(func() error {
		logger.Info("rapport server started",
			"addr", cfg.HTTPAddr,
			"engine", classifier.Version(),
			"backend", pipeline.BackendName(),
			"persistence", cfg.PersistenceEnabled(),
			"mqtt", cfg.MQTTEnabled(),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func loadLexicon(path string) (*lexicon.Lexicon, error) {
	if path == "" {
		return lexicon.Default()
	}
	return lexicon.LoadFile(path)
}

// newBackend returns nil when only the lexical path is configured.
func newBackend(cfg config.ServerConfig) (analysis.Backend, error) {
	switch cfg.EnhancedBackend {
	case config.BackendRemote:
		return analysis.NewRemoteBackend(cfg.EmotionServiceURL, cfg.EnhancedTimeout), nil
	case config.BackendOpenAI, config.BackendClaude:
		provider, err := llm.NewProvider(llm.Config{
			Provider:         cfg.EnhancedBackend,
			OpenAIBaseURL:    cfg.OpenAIBaseURL,
			OpenAIAPIKey:     cfg.OpenAIAPIKey,
			AnthropicBaseURL: cfg.AnthropicBaseURL,
			AnthropicAPIKey:  cfg.AnthropicAPIKey,
			Timeout:          cfg.EnhancedTimeout,
		})
		if err != nil {
			return nil, err
		}
		return analysis.NewLLMBackend(provider, cfg.LLMModel), nil
	default:
		return nil, nil
	}
}
