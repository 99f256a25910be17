// Package config loads and validates the application configuration
// from a TOML file in the platform config directory. A missing file is
// created with commented defaults on first run; HONYAKU_* environment
// variables override individual keys.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	appName        = "honyaku"
	configFilename = "config.toml"

	// APIKeyPlaceholder is written into fresh config files so Validate
	// can tell an untouched config from a configured one.
	APIKeyPlaceholder = "YOUR_API_KEY_HERE"
)

// API is the connection configuration for one LLM endpoint.
type API struct {
	Key     string `mapstructure:"key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// Configured reports whether a real key has been set.
func (a API) Configured() bool {
	return a.Key != "" && a.Key != APIKeyPlaceholder
}

// Translation holds chunking and retry settings for the main pass.
type Translation struct {
	ChunkSizeChars          int     `mapstructure:"chunk_size_chars"`
	Retries                 int     `mapstructure:"retries"`
	DelayBetweenRequestsSec float64 `mapstructure:"delay_between_requests_sec"`
	HistoryLength           int     `mapstructure:"history_length"`
}

// NameScout holds chunking and retry settings for the scouting pass.
type NameScout struct {
	ChunkSizeChars          int     `mapstructure:"chunk_size_chars"`
	Retries                 int     `mapstructure:"retries"`
	DelayBetweenRequestsSec float64 `mapstructure:"delay_between_requests_sec"`
	JSONRetries             int     `mapstructure:"json_retries"`
}

// Scraping holds site-download settings.
type Scraping struct {
	DelayBetweenRequestsSec float64 `mapstructure:"delay_between_requests_sec"`
	Debug                   bool    `mapstructure:"debug"`
}

// Prompts are the system prompts for each model pass.
type Prompts struct {
	TitleTranslation   string `mapstructure:"title_translation"`
	ContentTranslation string `mapstructure:"content_translation"`
	NameScout          string `mapstructure:"name_scout"`
}

// Paths configures where outputs and working files live.
type Paths struct {
	OutputDirectory string `mapstructure:"output_directory"`
	NamesDirectory  string `mapstructure:"names_directory"`
	CacheDatabase   string `mapstructure:"cache_database"`
	EditorCommand   string `mapstructure:"editor_command"`
}

// Config is the full application configuration.
type Config struct {
	API         API         `mapstructure:"api"`
	ScoutAPI    API         `mapstructure:"scout_api"`
	Translation Translation `mapstructure:"translation"`
	NameScout   NameScout   `mapstructure:"name_scout"`
	Scraping    Scraping    `mapstructure:"scraping"`
	Prompts     Prompts     `mapstructure:"prompts"`
	Paths       Paths       `mapstructure:"paths"`
}

// Dir returns the platform config directory for the application.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("no config directory available: %w", err)
	}
	return filepath.Join(base, appName), nil
}

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFilename), nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.key", APIKeyPlaceholder)
	v.SetDefault("api.base_url", "https://api.openai.com/v1")
	v.SetDefault("api.model", "gpt-4o-mini")

	v.SetDefault("scout_api.key", APIKeyPlaceholder)
	v.SetDefault("scout_api.base_url", "https://api.openai.com/v1")
	v.SetDefault("scout_api.model", "gpt-4o-mini")

	v.SetDefault("translation.chunk_size_chars", 4000)
	v.SetDefault("translation.retries", 3)
	v.SetDefault("translation.delay_between_requests_sec", 1.0)
	v.SetDefault("translation.history_length", 5)

	v.SetDefault("name_scout.chunk_size_chars", 2500)
	v.SetDefault("name_scout.retries", 3)
	v.SetDefault("name_scout.delay_between_requests_sec", 1.0)
	v.SetDefault("name_scout.json_retries", 3)

	v.SetDefault("scraping.delay_between_requests_sec", 1.0)
	v.SetDefault("scraping.debug", false)

	v.SetDefault("prompts.title_translation",
		"You are a Japanese to English translator. Translate the following Japanese novel title to English. Provide only the translated title, nothing else.")
	v.SetDefault("prompts.content_translation",
		"You are a Japanese to English translator specializing in web novels. Translate the following Japanese text to natural English, preserving the author's style and tone. Character names have already been converted to English - do not change them.")
	v.SetDefault("prompts.name_scout",
		`You read Japanese fiction text and extract character name parts.
Return ONLY JSON with this shape:
{"names":[{"original":"<exact name characters>","part":"family|given|unknown","english":"<best English rendering>"}]}
Treat given and family names separately. Use romaji or common English equivalents. No explanations.`)

	v.SetDefault("paths.output_directory", ".")
	v.SetDefault("paths.names_directory", "")
	v.SetDefault("paths.cache_database", "")
	v.SetDefault("paths.editor_command", "")
}

// Load reads the config from the default location, creating a default
// file on first run so users have something to edit.
func Load() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads the config from path, creating it with defaults when
// it does not exist.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	setDefaults(v)

	v.SetEnvPrefix("HONYAKU")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create config directory: %w", err)
		}
		if err := v.WriteConfigAs(path); err != nil {
			return nil, fmt.Errorf("write default config: %w", err)
		}
	} else if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks that the config can drive a run. The scout API is
// only required when the run includes a scouting phase.
func (c *Config) Validate(requireScoutAPI bool) error {
	if !c.API.Configured() {
		return fmt.Errorf("api.key not set: edit the config file and add your API key")
	}
	if requireScoutAPI && !c.ScoutAPI.Configured() {
		return fmt.Errorf("scout_api.key not set: edit the config file and add your name scout API key")
	}
	if c.Translation.ChunkSizeChars <= 0 {
		return fmt.Errorf("translation.chunk_size_chars must be greater than 0")
	}
	if c.NameScout.ChunkSizeChars <= 0 {
		return fmt.Errorf("name_scout.chunk_size_chars must be greater than 0")
	}
	return nil
}

// NamesDir returns the directory for name mapping files, defaulting to
// a names/ subdirectory of the config directory.
func (c *Config) NamesDir() (string, error) {
	if c.Paths.NamesDirectory != "" {
		return c.Paths.NamesDirectory, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "names"), nil
}

// CacheDBPath returns the translation memory database location,
// defaulting to memory.db in the config directory.
func (c *Config) CacheDBPath() (string, error) {
	if c.Paths.CacheDatabase != "" {
		return c.Paths.CacheDatabase, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "memory.db"), nil
}
