package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/based-on-what/Zortify/internal/model"
	"github.com/based-on-what/Zortify/internal/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapSource(env map[string]string) *source {
	return &source{lookup: func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}}
}

func validConfig() *Config {
	return &Config{
		SpotifyClientID:     "id",
		SpotifyClientSecret: "secret",
		SpotifyRedirectURI:  "http://127.0.0.1:8888/callback",
		Workers:             2,
		RequestsPerSecond:   5,
		PageSize:            50,
		StallThreshold:      30 * time.Second,
		ListTimeout:         30 * time.Second,
		SortOrder:           model.SortDescending,
		ResultsPath:         "results.json",
		HealthPort:          "8080",
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr bool
	}{
		{name: "valid config", modify: func(*Config) {}},
		{name: "missing client id", modify: func(c *Config) { c.SpotifyClientID = "" }, wantErr: true},
		{name: "missing client secret", modify: func(c *Config) { c.SpotifyClientSecret = "" }, wantErr: true},
		{name: "missing redirect uri", modify: func(c *Config) { c.SpotifyRedirectURI = "" }, wantErr: true},
		{name: "relative redirect uri", modify: func(c *Config) { c.SpotifyRedirectURI = "/callback" }, wantErr: true},
		{name: "no workers", modify: func(c *Config) { c.Workers = 0 }, wantErr: true},
		{name: "negative rate", modify: func(c *Config) { c.RequestsPerSecond = -1 }, wantErr: true},
		{name: "unlimited rate", modify: func(c *Config) { c.RequestsPerSecond = 0 }},
		{name: "page size at limit", modify: func(c *Config) { c.PageSize = 50 }},
		{name: "page size above request limit", modify: func(c *Config) { c.PageSize = 51 }, wantErr: true},
		{name: "unknown sort order", modify: func(c *Config) { c.SortOrder = "random" }, wantErr: true},
		{
			name: "invalid health check port",
			modify: func(c *Config) {
				c.HealthCheckEnabled = true
				c.HealthPort = "70000"
			},
			wantErr: true,
		},
		{name: "telegram token without chat", modify: func(c *Config) { c.TelegramBotToken = "token" }, wantErr: true},
		{
			name: "telegram configured",
			modify: func(c *Config) {
				c.TelegramBotToken = "token"
				c.TelegramChatID = -100123
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSource_Defaults(t *testing.T) {
	cfg, err := mapSource(map[string]string{
		"SPOTIFY_CLIENT_ID": "id",
		"APP_DATA_DIR":      "/var/lib/zortify",
	}).build()
	require.NoError(t, err)

	assert.Equal(t, "id", cfg.SpotifyClientID)
	assert.Equal(t, "from_token", cfg.SpotifyMarket)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, 5.0, cfg.RequestsPerSecond)
	assert.Equal(t, 50, cfg.PageSize)
	assert.Equal(t, 200*time.Millisecond, cfg.PageDelay)
	assert.Equal(t, 30*time.Second, cfg.StallThreshold)
	assert.Equal(t, 3000*time.Second, cfg.SessionRefreshInterval)
	assert.Equal(t, retry.DefaultBackoff, cfg.RetryBackoff)
	assert.Equal(t, 30*time.Second, cfg.ListTimeout)
	assert.Equal(t, "results.json", cfg.ResultsPath)
	assert.Equal(t, filepath.Join("/var/lib/zortify", "token.json"), cfg.TokenPath)
	assert.Equal(t, model.SortDescending, cfg.SortOrder)
	assert.False(t, cfg.ShowProgress)
	assert.False(t, cfg.TelegramEnabled())
}

func TestSource_SpotipyFallback(t *testing.T) {
	cfg, err := mapSource(map[string]string{
		"SPOTIPY_CLIENT_ID":     "legacy-id",
		"SPOTIPY_CLIENT_SECRET": "legacy-secret",
		"SPOTIPY_REDIRECT_URI":  "http://localhost:8888/callback",
		"SPOTIFY_CLIENT_SECRET": "new-secret",
	}).build()
	require.NoError(t, err)

	assert.Equal(t, "legacy-id", cfg.SpotifyClientID)
	assert.Equal(t, "new-secret", cfg.SpotifyClientSecret)
	assert.Equal(t, "http://localhost:8888/callback", cfg.SpotifyRedirectURI)
}

func TestSource_Parsing(t *testing.T) {
	cfg, err := mapSource(map[string]string{
		"WORKERS":          "8",
		"RETRY_BACKOFF":    "500ms, 1s,3s",
		"SORT_ORDER":       "ASC",
		"TELEGRAM_CHAT_ID": "-100500",
		"PAGE_DELAY":       "not-a-duration",
	}).build()
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, []time.Duration{500 * time.Millisecond, time.Second, 3 * time.Second}, cfg.RetryBackoff)
	assert.Equal(t, model.SortAscending, cfg.SortOrder)
	assert.Equal(t, int64(-100500), cfg.TelegramChatID)
	assert.Equal(t, 200*time.Millisecond, cfg.PageDelay)
}

func TestSource_ParseErrors(t *testing.T) {
	_, err := mapSource(map[string]string{"RETRY_BACKOFF": "1s,soon"}).build()
	assert.Error(t, err)

	_, err = mapSource(map[string]string{"RETRY_BACKOFF": "-1s"}).build()
	assert.Error(t, err)

	_, err = mapSource(map[string]string{"TELEGRAM_CHAT_ID": "@channel"}).build()
	assert.Error(t, err)
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zortify.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
spotify_client_id: file-id
workers: 4
show_progress: true
retry_backoff:
  - 1s
  - 2s
db_dsn: ~
`), 0o600))

	values, err := readFile(path)
	require.NoError(t, err)

	assert.Equal(t, "file-id", values["SPOTIFY_CLIENT_ID"])
	assert.Equal(t, "4", values["WORKERS"])
	assert.Equal(t, "true", values["SHOW_PROGRESS"])
	assert.Equal(t, "1s,2s", values["RETRY_BACKOFF"])
	assert.NotContains(t, values, "DB_DSN")
}

func TestReadFile_Errors(t *testing.T) {
	_, err := readFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "nested.yaml")
	require.NoError(t, os.WriteFile(path, []byte("spotify:\n  client_id: x\n"), 0o600))
	_, err = readFile(path)
	assert.Error(t, err)
}

func TestLoad_EnvironmentWinsOverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zortify.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
spotify_client_id: file-id
spotify_client_secret: file-secret
spotify_redirect_uri: http://127.0.0.1:8888/callback
workers: 4
page_size: 20
`), 0o600))

	t.Setenv("SPOTIFY_CLIENT_ID", "env-id")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "")
	t.Setenv("SPOTIPY_CLIENT_SECRET", "")
	t.Setenv("SPOTIFY_REDIRECT_URI", "")
	t.Setenv("SPOTIPY_REDIRECT_URI", "")
	t.Setenv("WORKERS", "3")
	t.Setenv("PAGE_SIZE", "")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-id", cfg.SpotifyClientID)
	assert.Equal(t, "file-secret", cfg.SpotifyClientSecret)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, 20, cfg.PageSize)
}

func TestLoad_MissingSecrets(t *testing.T) {
	for _, key := range []string{
		"SPOTIFY_CLIENT_ID", "SPOTIPY_CLIENT_ID",
		"SPOTIFY_CLIENT_SECRET", "SPOTIPY_CLIENT_SECRET",
		"SPOTIFY_REDIRECT_URI", "SPOTIPY_REDIRECT_URI",
		"CONFIG_FILE",
	} {
		t.Setenv(key, "")
	}

	_, err := Load("")
	assert.Error(t, err)
}

func TestLoadLocal_WithoutSecrets(t *testing.T) {
	for _, key := range []string{
		"SPOTIFY_CLIENT_ID", "SPOTIPY_CLIENT_ID",
		"SPOTIFY_CLIENT_SECRET", "SPOTIPY_CLIENT_SECRET",
		"SPOTIFY_REDIRECT_URI", "SPOTIPY_REDIRECT_URI",
		"CONFIG_FILE",
	} {
		t.Setenv(key, "")
	}
	t.Setenv("RESULTS_PATH", "/tmp/results.json")
	t.Setenv("SORT_ORDER", "asc")

	cfg, err := LoadLocal("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/results.json", cfg.ResultsPath)
	assert.Equal(t, model.SortAscending, cfg.SortOrder)

	t.Setenv("SORT_ORDER", "sideways")
	_, err = LoadLocal("")
	assert.Error(t, err)
}
