package shared

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Spotify     SpotifyAPIConfig  `toml:"spotify"`
	Generation  GenerationConfig  `toml:"generation"`
	Account     AccountConfig     `toml:"account"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
	OpenAI  OpenAIConfig  `toml:"openai"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
}

// Map returns the credentials in the form accepted by services.NewSpotifyAuth.
func (s SpotifyConfig) Map() map[string]string {
	return map[string]string{
		"client_id":     s.ClientID,
		"client_secret": s.ClientSecret,
		"redirect_uri":  s.RedirectURI,
	}
}

// AccountConfig records the Spotify account signed in with `auth login`.
type AccountConfig struct {
	SpotifyID string `toml:"spotify_id"`
}

// OpenAIConfig contains the language and image model settings.
type OpenAIConfig struct {
	APIKey     string `toml:"api_key"`
	BaseURL    string `toml:"base_url"`
	Model      string `toml:"model"`
	ImageModel string `toml:"image_model"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// SpotifyAPIConfig tunes the Spotify Web API client.
type SpotifyAPIConfig struct {
	RequestsPerSecond   float64 `toml:"requests_per_second"`
	RecommendationLimit int     `toml:"recommendation_limit"`
	Market              string  `toml:"market"`
}

// GenerationConfig controls the playlist generation pipeline.
type GenerationConfig struct {
	FreeMonthlyLimit int  `toml:"free_monthly_limit"`
	TranslateRetries int  `toml:"translate_retries"`
	RetryMax         int  `toml:"retry_max"`
	RetryInitialMS   int  `toml:"retry_initial_ms"`
	RetryMaxMS       int  `toml:"retry_max_ms"`
	Artwork          bool `toml:"artwork"`
	PublicByDefault  bool `toml:"public_by_default"`
}

// RetryInitial returns the first backoff interval.
func (g GenerationConfig) RetryInitial() time.Duration {
	return time.Duration(g.RetryInitialMS) * time.Millisecond
}

// RetryCeiling returns the largest backoff interval.
func (g GenerationConfig) RetryCeiling() time.Duration {
	return time.Duration(g.RetryMaxMS) * time.Millisecond
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the values of [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig writes config to path as TOML, replacing any existing file.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ApplyEnv overrides credentials with OPENAI_API_KEY, SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET when they are set.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.Credentials.OpenAI.APIKey = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		c.Credentials.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		c.Credentials.Spotify.ClientSecret = v
	}
}

// Validate checks the settings the generation pipeline depends on.
func (c *Config) Validate() error {
	switch {
	case c.Database.Path == "":
		return fmt.Errorf("%w: database.path is required", ErrInvalidConfig)
	case c.Generation.FreeMonthlyLimit < 0:
		return fmt.Errorf("%w: generation.free_monthly_limit must not be negative", ErrInvalidConfig)
	case c.Generation.RetryMax < 0:
		return fmt.Errorf("%w: generation.retry_max must not be negative", ErrInvalidConfig)
	case c.Generation.TranslateRetries < 0:
		return fmt.Errorf("%w: generation.translate_retries must not be negative", ErrInvalidConfig)
	case c.Spotify.RequestsPerSecond < 0:
		return fmt.Errorf("%w: spotify.requests_per_second must not be negative", ErrInvalidConfig)
	case c.Spotify.RecommendationLimit < 1 || c.Spotify.RecommendationLimit > 100:
		return fmt.Errorf("%w: spotify.recommendation_limit must be between 1 and 100", ErrInvalidConfig)
	}
	return nil
}
