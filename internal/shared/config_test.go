package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./vibelist.db" {
			t.Errorf("expected database path ./vibelist.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}

		if config.Generation.FreeMonthlyLimit != 5 {
			t.Errorf("expected free monthly limit 5, got %d", config.Generation.FreeMonthlyLimit)
		}

		if config.Generation.RetryMax != 3 {
			t.Errorf("expected retry max 3, got %d", config.Generation.RetryMax)
		}

		if config.Spotify.RecommendationLimit != 20 {
			t.Errorf("expected recommendation limit 20, got %d", config.Spotify.RecommendationLimit)
		}

		if config.Generation.RetryInitial() != 500*time.Millisecond {
			t.Errorf("expected initial retry 500ms, got %v", config.Generation.RetryInitial())
		}

		if err := config.Validate(); err != nil {
			t.Errorf("default config should be valid: %v", err)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.Database.Path != DefaultConfig().Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		testConfig := `[database]
path = "/custom/path.db"

[server]
port = 8080

[credentials.spotify]
client_id = "test_client_id"
client_secret = "test_secret"

[credentials.openai]
api_key = "sk-test"

[generation]
free_monthly_limit = 10
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}
		if config.Server.Port != 8080 {
			t.Errorf("expected server port 8080, got %d", config.Server.Port)
		}
		if config.Credentials.OpenAI.APIKey != "sk-test" {
			t.Errorf("expected openai api key sk-test, got %s", config.Credentials.OpenAI.APIKey)
		}
		if config.Generation.FreeMonthlyLimit != 10 {
			t.Errorf("expected free monthly limit 10, got %d", config.Generation.FreeMonthlyLimit)
		}

		t.Run("keeps defaults for missing keys", func(t *testing.T) {
			if config.Generation.RetryMax != 3 {
				t.Errorf("expected default retry max 3, got %d", config.Generation.RetryMax)
			}
			if config.Credentials.OpenAI.Model != "gpt-4.1-mini" {
				t.Errorf("expected default model, got %s", config.Credentials.OpenAI.Model)
			}
		})
	})

	t.Run("SaveConfig", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		config := DefaultConfig()
		config.Credentials.Spotify.ClientID = "saved_id"

		if err := SaveConfig(configPath, config); err != nil {
			t.Fatalf("failed to save config: %v", err)
		}

		loaded, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load saved config: %v", err)
		}
		if loaded.Credentials.Spotify.ClientID != "saved_id" {
			t.Errorf("expected saved client id, got %s", loaded.Credentials.Spotify.ClientID)
		}
	})

	t.Run("ApplyEnv", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "sk-env")
		t.Setenv("SPOTIFY_CLIENT_ID", "env_id")

		config := DefaultConfig()
		config.ApplyEnv()

		if config.Credentials.OpenAI.APIKey != "sk-env" {
			t.Errorf("expected env api key, got %s", config.Credentials.OpenAI.APIKey)
		}
		if config.Credentials.Spotify.ClientID != "env_id" {
			t.Errorf("expected env client id, got %s", config.Credentials.Spotify.ClientID)
		}
		if config.Credentials.Spotify.ClientSecret != "your_spotify_client_secret" {
			t.Errorf("unset env var should not override, got %s", config.Credentials.Spotify.ClientSecret)
		}
	})

	t.Run("Validate", func(t *testing.T) {
		tc := []struct {
			name   string
			mutate func(*Config)
		}{
			{"empty database path", func(c *Config) { c.Database.Path = "" }},
			{"negative free limit", func(c *Config) { c.Generation.FreeMonthlyLimit = -1 }},
			{"negative retries", func(c *Config) { c.Generation.RetryMax = -2 }},
			{"recommendation limit too large", func(c *Config) { c.Spotify.RecommendationLimit = 101 }},
			{"recommendation limit zero", func(c *Config) { c.Spotify.RecommendationLimit = 0 }},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				config := DefaultConfig()
				tt.mutate(config)
				if err := config.Validate(); !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("expected ErrInvalidConfig, got %v", err)
				}
			})
		}
	})
}
