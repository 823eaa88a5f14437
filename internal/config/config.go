// Package config loads newslens settings from YAML, a .env file and the
// environment. API keys are never read from the YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/abelbrown/newslens/internal/brain"
	"github.com/abelbrown/newslens/internal/feeds"
	"github.com/abelbrown/newslens/internal/prompt"
)

const (
	configPathEnv = "NEWSLENS_CONFIG"
	providerEnv   = "NEWSLENS_PROVIDER"
	modelEnv      = "NEWSLENS_MODEL"
	languageEnv   = "NEWSLENS_LANGUAGE"
	addrEnv       = "NEWSLENS_ADDR"
	logLevelEnv   = "NEWSLENS_LOG_LEVEL"
)

// Config is the application configuration.
type Config struct {
	Language   string           `yaml:"language"`
	DataDir    string           `yaml:"data_dir"`
	Log        LogConfig        `yaml:"log"`
	Feeds      FeedsConfig      `yaml:"feeds"`
	Prompt     PromptConfig     `yaml:"prompt"`
	Generation GenerationConfig `yaml:"generation"`
	Cache      CacheConfig      `yaml:"cache"`
	Store      StoreConfig      `yaml:"store"`
	Server     ServerConfig     `yaml:"server"`
}

// LogConfig selects log level and destination.
type LogConfig struct {
	Level  string `yaml:"level"`
	ToFile bool   `yaml:"to_file"` // write under <data_dir>/logs instead of stderr
}

// FeedsConfig controls feed retrieval.
type FeedsConfig struct {
	TTL              time.Duration    `yaml:"ttl"`
	Timeout          time.Duration    `yaml:"timeout"`
	FullText         bool             `yaml:"fulltext"`
	FullTextMinRunes int              `yaml:"fulltext_min_runes"`
	Categories       []feeds.Category `yaml:"categories"`
}

// PromptConfig bounds prompt size.
type PromptConfig struct {
	Budget int `yaml:"budget"` // article runes
}

// GenerationConfig selects the backend and its fallback chain.
type GenerationConfig struct {
	Provider    string        `yaml:"provider"`
	Model       string        `yaml:"model"`
	Candidates  []string      `yaml:"candidates"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
	RPM         float64       `yaml:"rpm"`
	Burst       int           `yaml:"burst"`
	MaxTokens   int           `yaml:"max_tokens"`
}

// CacheConfig bounds the in-memory result cache.
type CacheConfig struct {
	Capacity int           `yaml:"capacity"`
	TTL      time.Duration `yaml:"ttl"` // 0 = no expiry
}

// StoreConfig controls the SQLite analysis history.
type StoreConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Path      string        `yaml:"path"`
	Retention time.Duration `yaml:"retention"` // 0 = keep forever
}

// ServerConfig is used by the HTTP API only.
type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	SessionIdle    time.Duration `yaml:"session_idle"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Language: string(prompt.Korean),
		DataDir:  defaultDataDir(),
		Log:      LogConfig{Level: "info"},
		Feeds: FeedsConfig{
			TTL:              10 * time.Minute,
			Timeout:          10 * time.Second,
			FullText:         false,
			FullTextMinRunes: 400,
			Categories:       DefaultCategories(),
		},
		Prompt: PromptConfig{Budget: prompt.DefaultBudget},
		Generation: GenerationConfig{
			Provider:    brain.ProviderGemini,
			Temperature: 0.2,
			Timeout:     15 * time.Second,
			RPM:         30,
			Burst:       2,
			MaxTokens:   2048,
		},
		Cache: CacheConfig{Capacity: 512},
		Store: StoreConfig{Enabled: true, Retention: 30 * 24 * time.Hour},
		Server: ServerConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			SessionIdle:    2 * time.Hour,
		},
	}
}

// DefaultCategories are Korean news feeds from outlets across the spectrum,
// so compare has differing takes on the same story.
func DefaultCategories() []feeds.Category {
	return []feeds.Category{
		{Name: "정치", Feeds: []feeds.Feed{
			{Name: "연합뉴스", URL: "https://www.yna.co.kr/rss/politics.xml"},
			{Name: "한겨레", URL: "https://www.hani.co.kr/rss/politics/"},
			{Name: "조선일보", URL: "https://www.chosun.com/arc/outboundfeeds/rss/category/politics/?outputType=xml"},
		}},
		{Name: "경제", Feeds: []feeds.Feed{
			{Name: "연합뉴스", URL: "https://www.yna.co.kr/rss/economy.xml"},
			{Name: "한겨레", URL: "https://www.hani.co.kr/rss/economy/"},
			{Name: "조선일보", URL: "https://www.chosun.com/arc/outboundfeeds/rss/category/economy/?outputType=xml"},
		}},
		{Name: "사회", Feeds: []feeds.Feed{
			{Name: "연합뉴스", URL: "https://www.yna.co.kr/rss/society.xml"},
			{Name: "한겨레", URL: "https://www.hani.co.kr/rss/society/"},
		}},
		{Name: "국제", Feeds: []feeds.Feed{
			{Name: "연합뉴스", URL: "https://www.yna.co.kr/rss/international.xml"},
			{Name: "한겨레", URL: "https://www.hani.co.kr/rss/international/"},
		}},
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".newslens"
	}
	return filepath.Join(home, ".newslens")
}

// Path returns the config file location: $NEWSLENS_CONFIG or
// ~/.newslens/config.yaml.
func Path() string {
	if p := os.Getenv(configPathEnv); p != "" {
		return p
	}
	return filepath.Join(defaultDataDir(), "config.yaml")
}

// Load reads .env, then the config file if it exists, then applies
// environment overrides and validates.
func Load() (*Config, error) {
	// A missing .env is normal.
	_ = godotenv.Load()
	return LoadFile(Path())
}

// LoadFile is Load without the .env step, reading the given path. A missing
// file yields defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	if len(cfg.Feeds.Categories) == 0 {
		cfg.Feeds.Categories = DefaultCategories()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(providerEnv); v != "" {
		c.Generation.Provider = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv(modelEnv); v != "" {
		c.Generation.Model = strings.TrimSpace(v)
	}
	if v := os.Getenv(languageEnv); v != "" {
		c.Language = strings.TrimSpace(v)
	}
	if v := os.Getenv(addrEnv); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Log.Level = v
	}
}

// Validate rejects settings the rest of the program cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if _, err := prompt.ParseLanguage(c.Language); err != nil {
		errs = append(errs, err)
	}
	if !slices.Contains(brain.Providers, c.Generation.Provider) {
		errs = append(errs, fmt.Errorf("unknown provider %q (want one of %s)", c.Generation.Provider, strings.Join(brain.Providers, ", ")))
	}
	if c.Prompt.Budget <= 0 {
		errs = append(errs, fmt.Errorf("prompt.budget must be positive, got %d", c.Prompt.Budget))
	}
	if c.Cache.Capacity <= 0 {
		errs = append(errs, fmt.Errorf("cache.capacity must be positive, got %d", c.Cache.Capacity))
	}
	if c.Generation.Temperature < 0 || c.Generation.Temperature > 2 {
		errs = append(errs, fmt.Errorf("generation.temperature out of range: %v", c.Generation.Temperature))
	}
	for _, cat := range c.Feeds.Categories {
		if cat.Name == "" {
			errs = append(errs, errors.New("feed category with empty name"))
		}
		for _, f := range cat.Feeds {
			if f.URL == "" {
				errs = append(errs, fmt.Errorf("category %q has a feed without url", cat.Name))
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// LanguageCode returns the validated language.
func (c *Config) LanguageCode() prompt.Language {
	l, err := prompt.ParseLanguage(c.Language)
	if err != nil {
		return prompt.Korean
	}
	return l
}

// Models returns the fallback candidates: the configured candidates, or the
// provider's defaults. The configured model is not included; it is passed
// per call as the model hint and tried first.
func (c *Config) Models() []string {
	if len(c.Generation.Candidates) > 0 {
		return append([]string(nil), c.Generation.Candidates...)
	}
	return append([]string(nil), brain.DefaultModels[c.Generation.Provider]...)
}

// StorePath is the SQLite file, defaulting to <data_dir>/history.db.
func (c *Config) StorePath() string {
	if c.Store.Path != "" {
		return c.Store.Path
	}
	return filepath.Join(c.DataDir, "history.db")
}

// LogDir is where file logs go when Log.ToFile is set.
func (c *Config) LogDir() string {
	return filepath.Join(c.DataDir, "logs")
}
