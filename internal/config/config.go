package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Chat client settings
	ChatEndpoint   string        `env:"CHAT_ENDPOINT"`
	RequestTimeout time.Duration `env:"CHAT_TIMEOUT" envDefault:"30s"`
	SessionFile    string        `env:"CHAT_SESSION_FILE" envDefault:"~/.chat-widget/session.json"`

	// Server settings
	ListenAddr    string `env:"LISTEN_ADDR" envDefault:":8080"`
	AllowedOrigin string `env:"ALLOWED_ORIGIN" envDefault:"*"`

	// Ollama settings
	OllamaURL     string        `env:"OLLAMA_URL" envDefault:"http://localhost:11434"`
	ModelName     string        `env:"OLLAMA_MODEL" envDefault:"llama3.1:8b"`
	OllamaTimeout time.Duration `env:"OLLAMA_TIMEOUT" envDefault:"120s"`

	// SearXNG settings, an empty URL disables references
	SearXNGURL    string        `env:"SEARXNG_URL"`
	SearchTimeout time.Duration `env:"SEARCH_TIMEOUT" envDefault:"10s"`
	MaxResults    int           `env:"MAX_RESULTS" envDefault:"3"`

	// Crawler settings, pages are only fetched when CrawlPages is set
	CrawlPages     bool          `env:"CRAWL_PAGES" envDefault:"false"`
	CrawlTimeout   time.Duration `env:"CRAWL_TIMEOUT" envDefault:"10s"`
	MaxCrawlers    int           `env:"MAX_CRAWLERS" envDefault:"3"`
	MaxContentSize int64         `env:"MAX_CONTENT_SIZE" envDefault:"1048576"`

	// History settings
	HistoryPath        string `env:"HISTORY_PATH" envDefault:"~/.chat-widget/history.json"`
	MaxHistorySessions int    `env:"MAX_HISTORY_SESSIONS" envDefault:"100"`
	HistoryTurns       int    `env:"HISTORY_TURNS" envDefault:"10"`

	// Rate limiting, per session
	RateLimitPerMinute int `env:"RATE_LIMIT_PER_MINUTE" envDefault:"10"`
	RateLimitBurst     int `env:"RATE_LIMIT_BURST" envDefault:"3"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load builds a Config from an optional .env file and the process environment.
// Values already present in the environment win over the .env file.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	cfg.SessionFile = expandHome(cfg.SessionFile)
	cfg.HistoryPath = expandHome(cfg.HistoryPath)
	return cfg, nil
}

// ValidateClient checks the settings used by the chat client
func (c *Config) ValidateClient() error {
	if c.ChatEndpoint == "" {
		return fmt.Errorf("chat endpoint is required (set CHAT_ENDPOINT or --endpoint)")
	}
	chatURL, err := ChatURL(c.ChatEndpoint)
	if err != nil {
		return err
	}
	// Same-origin paths only make sense inside a page; the terminal client has no origin.
	if u, _ := url.Parse(chatURL); u.Host == "" {
		return fmt.Errorf("chat endpoint %q must be an absolute URL", c.ChatEndpoint)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive")
	}
	return nil
}

// ValidateServer checks the settings used by the reference backend
func (c *Config) ValidateServer() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen address cannot be empty")
	}
	if c.OllamaURL == "" {
		return fmt.Errorf("ollama URL cannot be empty")
	}
	if c.ModelName == "" {
		return fmt.Errorf("model name cannot be empty")
	}
	if c.SearXNGURL != "" && (c.MaxResults < 1 || c.MaxResults > 10) {
		return fmt.Errorf("max results must be between 1 and 10")
	}
	if c.CrawlPages && c.MaxCrawlers < 1 {
		return fmt.Errorf("max crawlers must be at least 1")
	}
	if c.MaxHistorySessions < 1 {
		return fmt.Errorf("max history sessions must be at least 1")
	}
	if c.RateLimitPerMinute < 1 || c.RateLimitBurst < 1 {
		return fmt.Errorf("rate limit and burst must be at least 1")
	}
	return nil
}

// ChatURL resolves the configured endpoint base to the /chat URL. The base may
// be an absolute URL or a same-origin path such as "/" or "/api".
func ChatURL(base string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return "", fmt.Errorf("invalid chat endpoint %q: %w", base, err)
	}
	if u.Scheme != "" && u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid chat endpoint %q: unsupported scheme %q", base, u.Scheme)
	}
	if strings.HasSuffix(u.Path, "/chat") {
		return u.String(), nil
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/chat"
	return u.String(), nil
}

// expandHome expands the ~ in file paths to the user's home directory
func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
