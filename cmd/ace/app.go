package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/agent"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/archive"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/config"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/eventlog"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/events"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/llm"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/llm/anthropic"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/llm/openai"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/metrics"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/projection"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/resilience"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/storage"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/store"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/store/memory"
	"github.com/Conley-Potter-Personal-Engineering/ace-backend-sub000/internal/store/postgres"
)

// app holds every component a command may need, wired from the config.
type app struct {
	store     store.Store
	publisher events.Publisher
	log       *eventlog.Log
	backend   storage.Backend
	suite     *agent.Suite
	projector *projection.Projector
	engine    *metrics.Engine
	archiver  *archive.Archiver
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{}

	if cfg.Memory {
		a.store = memory.New()
		logger.Debug("using in-memory store")
	} else {
		st, err := postgres.New(cfg.DatabaseURL, postgres.DefaultOptions())
		if err != nil {
			return nil, err
		}
		a.store = st
	}

	if cfg.NATSURL != "" {
		pub, err := events.NewNATSPublisher(cfg.NATSURL)
		if err != nil {
			a.store.Close()
			return nil, err
		}
		a.publisher = pub
		logger.Debug("event fan-out enabled", "nats_url", cfg.NATSURL)
	} else {
		a.publisher = &events.NoopPublisher{}
	}

	backend, err := newBackend(ctx, cfg.Storage)
	if err != nil {
		a.Close(logger)
		return nil, err
	}
	a.backend = backend

	a.log = eventlog.New(a.store, eventlog.WithPublisher(a.publisher), eventlog.WithLogger(logger))
	a.suite = agent.NewSuite(agent.Deps{
		Store:    a.store,
		Log:      a.log,
		Provider: newProvider(cfg.LLM),
		Storage:  a.backend,
		Logger:   logger,
		Models: agent.Models{
			Primary:           firstNonEmpty(cfg.LLM.PrimaryModel, "offline"),
			Fallback:          cfg.LLM.FallbackModel,
			MaxTokens:         int64(cfg.LLM.MaxTokens),
			FallbackMaxTokens: int64(cfg.LLM.FallbackMaxTokens),
			Temperature:       cfg.LLM.Temperature,
		},
		DisableEventLogging: cfg.DisableEventLogging,
		UploadRetry: resilience.RetryOptions{
			MaxAttempts: cfg.Upload.MaxAttempts,
			BaseDelay:   cfg.Upload.BaseDelay,
		},
	})
	agents := append(a.suite.Registry.Names(), agent.PipelineName)
	a.projector = projection.New(a.log, projection.Options{
		Window:     cfg.Status.Window,
		StaleAfter: cfg.Status.StaleAfter,
		Agents:     agents,
	})
	a.engine = metrics.NewEngine(a.log, a.store, a.projector)
	a.archiver = archive.New(a.log, a.backend, archive.Options{
		Prefix:    cfg.Archive.Prefix,
		Retention: cfg.Archive.Retention,
		Logger:    logger,
	})
	return a, nil
}

func newBackend(ctx context.Context, c config.StorageConfig) (storage.Backend, error) {
	switch c.Backend {
	case "s3":
		return storage.NewS3(ctx, storage.S3Config{
			Bucket:        c.S3Bucket,
			Region:        c.S3Region,
			Endpoint:      c.S3Endpoint,
			PublicBaseURL: c.PublicBaseURL,
		})
	case "local":
		return storage.NewLocal(c.LocalPath, c.PublicBaseURL)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", c.Backend)
	}
}

func newProvider(c config.LLMConfig) llm.Provider {
	switch c.Provider {
	case "openai":
		return openai.New(func(o *openai.Options) {
			o.APIKey = c.APIKey
			o.BaseURL = c.BaseURL
		})
	case "anthropic":
		return anthropic.New(func(o *anthropic.Options) {
			o.APIKey = c.APIKey
			o.BaseURL = c.BaseURL
		})
	default:
		return llm.Offline{}
	}
}

// Close releases the publisher and the store.
func (a *app) Close(logger *slog.Logger) {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			logger.Error("error closing publisher", "err", err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logger.Error("error closing store", "err", err)
		}
	}
}

// withApp opens the app for the duration of fn.
func withApp(ctx context.Context, fn func(*app) error) error {
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close(logger)
	return fn(a)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
