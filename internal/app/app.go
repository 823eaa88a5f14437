// Package app builds the services both binaries run on from a Config.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/abelbrown/newslens/internal/brain"
	"github.com/abelbrown/newslens/internal/config"
	"github.com/abelbrown/newslens/internal/fetch"
	"github.com/abelbrown/newslens/internal/logging"
	"github.com/abelbrown/newslens/internal/pipeline"
	"github.com/abelbrown/newslens/internal/store"
)

const ollamaDetectTimeout = 3 * time.Second

// Services is the wired object graph.
type Services struct {
	Config   *config.Config
	Brain    *brain.Client
	Fetcher  *fetch.Fetcher
	Store    *store.Store // nil when history is disabled
	Pipeline *pipeline.Pipeline
}

// New wires cfg into running services. Credentials come from the
// environment only.
func New(ctx context.Context, cfg *config.Config) (*Services, error) {
	creds := brain.CredentialsFromEnv()
	backend, err := brain.NewBackend(ctx, cfg.Generation.Provider, creds)
	if err != nil {
		return nil, fmt.Errorf("generation backend: %w", err)
	}
	if !backend.Available() {
		logging.Warn("generation backend has no credentials; analyses will be unavailable", "provider", backend.Name())
	}

	models := cfg.Models()
	if cfg.Generation.Provider == brain.ProviderOllama && len(cfg.Generation.Candidates) == 0 {
		models = ollamaCandidates(ctx, creds.OllamaHost, models)
	}

	client := brain.NewClient(backend, brain.Options{
		Models:            models,
		Timeout:           cfg.Generation.Timeout,
		RequestsPerMinute: cfg.Generation.RPM,
		Burst:             cfg.Generation.Burst,
	})

	s := &Services{
		Config:  cfg,
		Brain:   client,
		Fetcher: fetch.NewFetcher(cfg.Feeds.Timeout, cfg.Feeds.TTL),
	}

	opts := pipeline.Options{
		Categories:    cfg.Feeds.Categories,
		Budget:        cfg.Prompt.Budget,
		Temperature:   cfg.Generation.Temperature,
		MaxTokens:     cfg.Generation.MaxTokens,
		ModelHint:     cfg.Generation.Model,
		CacheCapacity: cfg.Cache.Capacity,
		CacheTTL:      cfg.Cache.TTL,
	}

	if cfg.Feeds.FullText {
		r := fetch.NewReadability(cfg.Feeds.Timeout)
		if cfg.Feeds.FullTextMinRunes > 0 {
			r.MinRunes = cfg.Feeds.FullTextMinRunes
		}
		opts.Expander = r
	}

	if cfg.Store.Enabled {
		st, err := openStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
		s.Store = st
		opts.Store = st
	}

	s.Pipeline = pipeline.New(s.Fetcher, client, opts)

	logging.Info("services ready",
		"provider", backend.Name(),
		"hint", cfg.Generation.Model,
		"models", len(models),
		"categories", len(cfg.Feeds.Categories),
		"history", cfg.Store.Enabled)
	return s, nil
}

// ollamaCandidates prefers the models installed on the Ollama server over
// the built-in defaults.
func ollamaCandidates(ctx context.Context, host string, defaults []string) []string {
	dctx, cancel := context.WithTimeout(ctx, ollamaDetectTimeout)
	defer cancel()
	installed := brain.DetectOllamaModels(dctx, host)
	if len(installed) == 0 {
		logging.Debug("no installed Ollama models found, using defaults", "host", host)
		return defaults
	}
	logging.Info("using installed Ollama models", "host", host, "models", len(installed))
	return installed
}

func openStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	path := cfg.StorePath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}

	if cfg.Store.Retention > 0 {
		n, err := st.PruneBefore(ctx, time.Now().Add(-cfg.Store.Retention))
		if err != nil {
			logging.Warn("history prune failed", "error", err)
		} else if n > 0 {
			logging.Info("pruned history", "rows", n)
		}
	}
	return st, nil
}

// CategoryNames returns the configured category names in order.
func (s *Services) CategoryNames() []string {
	names := make([]string, 0, len(s.Config.Feeds.Categories))
	for _, c := range s.Config.Feeds.Categories {
		names = append(names, c.Name)
	}
	return names
}

// Close releases the history database.
func (s *Services) Close() error {
	if s.Store == nil {
		return nil
	}
	return s.Store.Close()
}
