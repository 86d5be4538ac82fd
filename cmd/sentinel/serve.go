package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/MikeSquared-Agency/sentinel/internal/api"
	"github.com/MikeSquared-Agency/sentinel/internal/escalation"
	"github.com/MikeSquared-Agency/sentinel/internal/extractor"
	"github.com/MikeSquared-Agency/sentinel/internal/hermes"
	"github.com/MikeSquared-Agency/sentinel/internal/processor"
	"github.com/MikeSquared-Agency/sentinel/internal/session"
	"github.com/MikeSquared-Agency/sentinel/internal/slack"
	"github.com/MikeSquared-Agency/sentinel/internal/store"
)

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("sentinel starting", zap.Int("port", cfg.Port), zap.String("provider", cfg.LLMProvider))

	cat, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		return err
	}

	gen, err := newGenerator(ctx, cfg, logger)
	if err != nil {
		return err
	}

	// Interface values stay untyped nil when a backend is not configured.
	var (
		archive     processor.Archive
		apiArchive  api.Archive
		events      processor.Publisher
		recorder    escalation.Recorder
		deskChannel escalation.Publisher
	)

	if cfg.DatabaseURL != "" {
		db, err := store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			return err
		}
		archive, apiArchive, recorder = db, db, db
		logger.Info("database connected")
	} else {
		logger.Warn("DATABASE_URL not set, turns and escalations are not archived")
	}

	var hermesClient *hermes.Client
	if cfg.NatsURL != "" {
		hermesClient, err = hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, logger)
		if err != nil {
			return err
		}
		defer hermesClient.Close()
		events, deskChannel = hermesClient, hermesClient
		logger.Info("NATS connected", zap.String("url", cfg.NatsURL))
	} else {
		logger.Warn("NATS_URL not set, events are not published")
	}

	var sessions session.Store
	switch cfg.SessionBackend {
	case "redis":
		rs, err := session.NewRedisStore(ctx, cfg.RedisURL, cfg.SessionTTL)
		if err != nil {
			return err
		}
		defer rs.Close()
		sessions = rs
		logger.Info("redis session store ready", zap.Duration("ttl", cfg.SessionTTL))
	default:
		sessions = session.NewMemoryStore()
	}

	esc := escalation.New(recorder, deskChannel, logger.Named("escalation"))
	if cfg.SlackBotToken != "" && cfg.SlackChannel != "" {
		esc.WithNotifier(slack.NewPoster(cfg.SlackBotToken, cfg.SlackChannel, logger.Named("slack")))
		logger.Info("slack escalation notices enabled", zap.String("channel", cfg.SlackChannel))
	}
	proc := processor.New(cat, extractor.New(cat, logger.Named("extractor")), processor.Config{
		Generator:    gen,
		Escalator:    esc,
		Events:       events,
		Archive:      archive,
		HistoryLimit: cfg.HistoryLimit,
	}, logger.Named("processor"))

	srv := api.NewServer(api.Options{
		Port:        cfg.Port,
		APIToken:    cfg.APIToken,
		TurnTimeout: cfg.TurnTimeout,
		Sessions:    sessions,
		Processor:   proc,
		Archive:     apiArchive,
		Quota:       gen,
		Logger:      logger.Named("api"),
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	if hermesClient != nil {
		if err := hermesClient.Publish(hermes.SubjectRegistered, map[string]any{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"port":      cfg.Port,
			"provider":  cfg.LLMProvider,
		}); err != nil {
			logger.Warn("failed to publish registration", zap.Error(err))
		}
	}

	logger.Info("sentinel ready", zap.Int("port", cfg.Port))

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("HTTP shutdown incomplete", zap.Error(err))
	}
	logger.Info("sentinel stopped")
	return nil
}
