package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultBaseURL is the Agroforestree species profile endpoint.
	DefaultBaseURL = "https://apps.worldagroforestry.org/treedb2/speciesprofile.php"

	FetcherHTTP    = "http"
	FetcherBrowser = "browser"
)

// AppConfig holds infrastructure config from standard env vars
type AppConfig struct {
	DBPath         string
	ConfigPath     string // Path to the YAML config file
	GeminiAPIKey   string
	EmbeddingModel string
}

// SiteConfig holds all target-site specific settings (from YAML)
type SiteConfig struct {
	BaseURL        string    `yaml:"base_url"`
	RequestDelayMS int       `yaml:"request_delay_ms"`
	TimeoutSeconds int       `yaml:"timeout_seconds"`
	Fetcher        string    `yaml:"fetcher"`
	UserAgent      string    `yaml:"user_agent"`
	Selectors      Selectors `yaml:"selectors"`
}

// Selectors locate the profile fields inside a species page.
type Selectors struct {
	Name             string `yaml:"name"`
	NativeRangeBlock string `yaml:"native_range_block"`
	NativeRangeLabel string `yaml:"native_range_label"`
}

// DefaultSelectors match the layout of the Agroforestree profile pages.
func DefaultSelectors() Selectors {
	return Selectors{
		Name:             "h2",
		NativeRangeBlock: "pre",
		NativeRangeLabel: "Native range",
	}
}

// DefaultSiteConfig is used when no YAML file is present.
func DefaultSiteConfig() *SiteConfig {
	return &SiteConfig{
		BaseURL:   DefaultBaseURL,
		Fetcher:   FetcherHTTP,
		Selectors: DefaultSelectors(),
	}
}

// GetAppConfig reads basic infrastructure settings from environment variables.
func GetAppConfig() (AppConfig, error) {
	dbPath := os.Getenv("DB_PATH")
	configPath := os.Getenv("CONFIG_PATH")
	model := os.Getenv("EMBEDDING_MODEL")

	// Set defaults if not provided
	if dbPath == "" {
		dbPath = "./local-data/treedb.db"
	}
	if configPath == "" {
		configPath = "config.yaml"
	}
	if model == "" {
		model = "text-embedding-004"
	}

	return AppConfig{
		DBPath:         dbPath,
		ConfigPath:     configPath,
		GeminiAPIKey:   os.Getenv("GEMINI_API_KEY"),
		EmbeddingModel: model,
	}, nil
}

// LoadSiteConfig reads the YAML file to configure the scraper.
// A missing file is not an error: the defaults are returned instead.
// The result is not validated; callers apply their overrides and then call Validate.
func LoadSiteConfig(path string) (*SiteConfig, error) {
	cfg := DefaultSiteConfig()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file at '%s': %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *SiteConfig) applyDefaults() {
	def := DefaultSelectors()
	if c.Fetcher == "" {
		c.Fetcher = FetcherHTTP
	}
	if c.Selectors.Name == "" {
		c.Selectors.Name = def.Name
	}
	if c.Selectors.NativeRangeBlock == "" {
		c.Selectors.NativeRangeBlock = def.NativeRangeBlock
	}
	if c.Selectors.NativeRangeLabel == "" {
		c.Selectors.NativeRangeLabel = def.NativeRangeLabel
	}
}

// Validate reports settings the scraper cannot run with.
func (c *SiteConfig) Validate() error {
	if c.BaseURL == "" {
		return errors.New("base_url is required")
	}
	if c.RequestDelayMS < 0 {
		return fmt.Errorf("request_delay_ms must not be negative, got %d", c.RequestDelayMS)
	}
	if c.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout_seconds must not be negative, got %d", c.TimeoutSeconds)
	}
	switch c.Fetcher {
	case FetcherHTTP, FetcherBrowser:
	default:
		return fmt.Errorf("unknown fetcher %q (want %q or %q)", c.Fetcher, FetcherHTTP, FetcherBrowser)
	}
	return nil
}

// RequestDelay is the minimum spacing between two requests.
func (c *SiteConfig) RequestDelay() time.Duration {
	return time.Duration(c.RequestDelayMS) * time.Millisecond
}

// Timeout is the per-request timeout. Zero means wait forever.
func (c *SiteConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
