// Package config содержит загрузку и валидацию конфигурации.
package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/based-on-what/Zortify/internal/model"
	"github.com/based-on-what/Zortify/internal/retry"
	"github.com/joho/godotenv"
)

// MaxPageSize наибольший limit, который принимают запросы плейлистов и их элементов
const MaxPageSize = 50

// Config представляет конфигурацию приложения
type Config struct {
	// Spotify
	SpotifyClientID     string
	SpotifyClientSecret string
	SpotifyRedirectURI  string
	SpotifyMarket       string

	// Processing
	Workers                int
	RequestsPerSecond      float64
	PageSize               int
	PageDelay              time.Duration
	StallThreshold         time.Duration
	SessionRefreshInterval time.Duration
	RetryBackoff           []time.Duration
	ListTimeout            time.Duration

	// Results
	ResultsPath  string
	TokenPath    string
	SortOrder    model.SortOrder
	ShowProgress bool

	// Database
	DatabaseURL string

	// Health
	HealthCheckEnabled bool
	HealthPort         string

	// Telegram
	TelegramBotToken string
	TelegramChatID   int64

	// Logging
	LogLevel string
	LogPath  string

	// App Data Directory
	AppDataDir string
}

// Load загружает конфигурацию из переменных окружения. Если задан configFile,
// его значения используются там, где переменная окружения не задана.
func Load(configFile string) (*Config, error) {
	cfg, err := loadUnvalidated(configFile)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadLocal загружает конфигурацию для команд, работающих только с файлом
// результатов. Учётные данные Spotify не требуются.
func LoadLocal(configFile string) (*Config, error) {
	cfg, err := loadUnvalidated(configFile)
	if err != nil {
		return nil, err
	}

	if err := cfg.ValidateLocal(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func loadUnvalidated(configFile string) (*Config, error) {
	// .env не обязателен
	_ = godotenv.Load()

	env := newSource()
	if configFile == "" {
		configFile = env.getEnv("CONFIG_FILE", "")
	}
	if configFile != "" {
		values, err := readFile(configFile)
		if err != nil {
			return nil, err
		}
		env.file = values
	}

	return env.build()
}

// build собирает конфигурацию из источника значений
func (s *source) build() (*Config, error) {
	appDataDir := s.getEnv("APP_DATA_DIR", "./data")

	backoff, err := parseBackoff(s.getEnv("RETRY_BACKOFF", ""))
	if err != nil {
		return nil, err
	}

	chatID, err := parseChatID(s.getEnv("TELEGRAM_CHAT_ID", ""))
	if err != nil {
		return nil, err
	}

	return &Config{
		SpotifyClientID:     s.getEnvFallback("SPOTIFY_CLIENT_ID", "SPOTIPY_CLIENT_ID"),
		SpotifyClientSecret: s.getEnvFallback("SPOTIFY_CLIENT_SECRET", "SPOTIPY_CLIENT_SECRET"),
		SpotifyRedirectURI:  s.getEnvFallback("SPOTIFY_REDIRECT_URI", "SPOTIPY_REDIRECT_URI"),
		SpotifyMarket:       s.getEnv("SPOTIFY_MARKET", "from_token"),

		Workers:                s.getEnvInt("WORKERS", 2),
		RequestsPerSecond:      s.getEnvFloat("REQUESTS_PER_SECOND", 5),
		PageSize:               s.getEnvInt("PAGE_SIZE", 50),
		PageDelay:              s.getEnvDuration("PAGE_DELAY", 200*time.Millisecond),
		StallThreshold:         s.getEnvDuration("STALL_THRESHOLD", 30*time.Second),
		SessionRefreshInterval: s.getEnvDuration("SESSION_REFRESH_INTERVAL", 3000*time.Second),
		RetryBackoff:           backoff,
		ListTimeout:            s.getEnvDuration("LIST_TIMEOUT", 30*time.Second),

		ResultsPath:  s.getEnv("RESULTS_PATH", "results.json"),
		TokenPath:    s.getEnv("TOKEN_PATH", filepath.Join(appDataDir, "token.json")),
		SortOrder:    model.SortOrder(strings.ToLower(s.getEnv("SORT_ORDER", string(model.SortDescending)))),
		ShowProgress: s.getEnvBool("SHOW_PROGRESS", false),

		DatabaseURL: s.getEnv("DB_DSN", ""),

		HealthCheckEnabled: s.getEnvBool("HEALTH_CHECK_ENABLED", false),
		HealthPort:         s.getEnv("HEALTH_PORT", "8080"),

		TelegramBotToken: s.getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   chatID,

		LogLevel: s.getEnv("LOG_LEVEL", "info"),
		LogPath:  s.getEnv("LOG_PATH", ""),

		AppDataDir: appDataDir,
	}, nil
}

// GetAppDataDir возвращает директорию данных приложения
func (c *Config) GetAppDataDir() string {
	return c.AppDataDir
}

// TelegramEnabled сообщает, настроены ли уведомления
func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != 0
}

// Validate проверяет конфигурацию
func (c *Config) Validate() error {
	if c.SpotifyClientID == "" {
		return fmt.Errorf("SPOTIFY_CLIENT_ID is required")
	}

	if c.SpotifyClientSecret == "" {
		return fmt.Errorf("SPOTIFY_CLIENT_SECRET is required")
	}

	if c.SpotifyRedirectURI == "" {
		return fmt.Errorf("SPOTIFY_REDIRECT_URI is required")
	}

	if u, err := url.Parse(c.SpotifyRedirectURI); err != nil || u.Host == "" {
		return fmt.Errorf("SPOTIFY_REDIRECT_URI must be an absolute URL, got %q", c.SpotifyRedirectURI)
	}

	return c.validateRun()
}

// ValidateLocal проверяет параметры хранилища результатов
func (c *Config) ValidateLocal() error {
	if c.SortOrder != model.SortDescending && c.SortOrder != model.SortAscending {
		return fmt.Errorf("SORT_ORDER must be %q or %q, got %q", model.SortDescending, model.SortAscending, c.SortOrder)
	}

	if c.ResultsPath == "" {
		return fmt.Errorf("RESULTS_PATH is required")
	}

	return nil
}

// validateRun проверяет параметры прогона
func (c *Config) validateRun() error {
	if err := c.ValidateLocal(); err != nil {
		return err
	}

	if c.Workers < 1 {
		return fmt.Errorf("WORKERS must be at least 1, got %d", c.Workers)
	}

	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("REQUESTS_PER_SECOND must not be negative, got %v", c.RequestsPerSecond)
	}

	if c.PageSize < 1 || c.PageSize > MaxPageSize {
		return fmt.Errorf("PAGE_SIZE must be between 1 and %d, got %d", MaxPageSize, c.PageSize)
	}

	if c.StallThreshold <= 0 {
		return fmt.Errorf("STALL_THRESHOLD must be positive, got %s", c.StallThreshold)
	}

	if c.ListTimeout <= 0 {
		return fmt.Errorf("LIST_TIMEOUT must be positive, got %s", c.ListTimeout)
	}

	if c.HealthCheckEnabled {
		port, err := strconv.Atoi(c.HealthPort)
		if err != nil || port < 1 || port > 65535 {
			return fmt.Errorf("HEALTH_PORT must be a valid port, got %q", c.HealthPort)
		}
	}

	if (c.TelegramBotToken == "") != (c.TelegramChatID == 0) {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID must be set together")
	}

	return nil
}

// parseBackoff разбирает список задержек через запятую
func parseBackoff(value string) ([]time.Duration, error) {
	if strings.TrimSpace(value) == "" {
		return append([]time.Duration(nil), retry.DefaultBackoff...), nil
	}

	parts := strings.Split(value, ",")
	backoff := make([]time.Duration, 0, len(parts))
	for _, part := range parts {
		d, err := time.ParseDuration(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid RETRY_BACKOFF entry %q: %w", part, err)
		}
		if d < 0 {
			return nil, fmt.Errorf("invalid RETRY_BACKOFF entry %q: negative delay", part)
		}
		backoff = append(backoff, d)
	}
	return backoff, nil
}

func parseChatID(value string) (int64, error) {
	if value == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid TELEGRAM_CHAT_ID %q: %w", value, err)
	}
	return id, nil
}
