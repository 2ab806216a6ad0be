package app

import (
	"context"
	"fmt"

	"github.com/based-on-what/Zortify/internal/config"
	"github.com/based-on-what/Zortify/internal/gateway/spotify"
	"github.com/based-on-what/Zortify/internal/health"
	"github.com/based-on-what/Zortify/internal/notify"
	"github.com/based-on-what/Zortify/internal/processor"
	"github.com/based-on-what/Zortify/internal/ratelimit"
	"github.com/based-on-what/Zortify/internal/retry"
	"github.com/based-on-what/Zortify/internal/service"
	"github.com/based-on-what/Zortify/internal/storage"
	"github.com/based-on-what/Zortify/internal/store"

	"go.uber.org/zap"
)

// ComponentFactory создает компоненты приложения
type ComponentFactory struct {
	config *config.Config
	logger *zap.Logger
}

// NewComponentFactory создает новую фабрику компонентов
func NewComponentFactory(config *config.Config, logger *zap.Logger) *ComponentFactory {
	if logger == nil {
		panic("Logger cannot be nil")
	}
	if config == nil {
		logger.Fatal("Config cannot be nil")
	}

	return &ComponentFactory{
		config: config,
		logger: logger,
	}
}

// CreateDatabase создает подключение к базе данных
func (f *ComponentFactory) CreateDatabase(ctx context.Context) (*storage.Postgres, error) {
	if f.config.DatabaseURL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	db, err := storage.NewPostgres(ctx, f.config.DatabaseURL, storage.DefaultConnectOptions, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}

	f.logger.Info("Database connection created successfully")
	return db, nil
}

// CreateSession создает сессию Spotify с авторизацией через браузер
func (f *ComponentFactory) CreateSession() (*spotify.Session, error) {
	auth, err := spotify.NewAuthenticator(
		f.config.SpotifyClientID,
		f.config.SpotifyClientSecret,
		f.config.SpotifyRedirectURI,
		f.config.TokenPath,
		f.logger,
	)
	if err != nil {
		return nil, err
	}

	return spotify.NewSession(auth, f.config.SessionRefreshInterval, f.logger), nil
}

// CreateSpotifyClient создает клиент Spotify с общим лимитером и политикой повторов
func (f *ComponentFactory) CreateSpotifyClient(session spotify.APIProvider) *spotify.Client {
	limiter := ratelimit.New(f.config.RequestsPerSecond)
	policy := retry.NewPolicy(f.config.RetryBackoff, f.logger)

	f.logger.Info("Spotify client created",
		zap.Duration("min_request_interval", limiter.Interval()),
		zap.Durations("retry_backoff", f.config.RetryBackoff),
		zap.Int("page_size", f.config.PageSize))

	return spotify.NewClient(session, limiter, policy, spotify.Options{
		PageSize: f.config.PageSize,
		Market:   f.config.SpotifyMarket,
	}, f.logger)
}

// pageSizer источник, сам определяющий размер запрашиваемой страницы
type pageSizer interface {
	PageSize() int
}

// CreateProcessor создает обработчик плейлистов. Если источник сам задаёт размер
// страницы, offset сдвигается на него, а не на значение из конфигурации.
func (f *ComponentFactory) CreateProcessor(fetcher processor.ItemFetcher) *processor.Processor {
	pageSize := f.config.PageSize
	if ps, ok := fetcher.(pageSizer); ok && ps.PageSize() != pageSize {
		f.logger.Warn("Page size adjusted to the client request limit",
			zap.Int("configured", pageSize),
			zap.Int("effective", ps.PageSize()))
		pageSize = ps.PageSize()
	}

	return processor.New(fetcher, processor.Config{
		PageSize:       pageSize,
		PageDelay:      f.config.PageDelay,
		StallThreshold: f.config.StallThreshold,
	}, f.logger)
}

// CreateStore создает файловое хранилище результатов
func (f *ComponentFactory) CreateStore() *store.Store {
	return store.New(f.config.ResultsPath, f.config.SortOrder, f.logger)
}

// CreateNotifier создает уведомитель Telegram
func (f *ComponentFactory) CreateNotifier() (*notify.TelegramNotifier, error) {
	if !f.config.TelegramEnabled() {
		return nil, fmt.Errorf("telegram notifications are not configured")
	}

	notifier, err := notify.NewTelegramNotifier(f.config.TelegramBotToken, f.config.TelegramChatID, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram notifier: %w", err)
	}

	return notifier, nil
}

// CreateHealthServer создает сервер статуса
func (f *ComponentFactory) CreateHealthServer(db *storage.Postgres, progress health.ProgressSource) *health.Server {
	var dbCheck health.DatabaseInterface
	if db != nil {
		dbCheck = db
	}
	return health.NewServer(f.config.HealthPort, f.logger, dbCheck, progress)
}

// CreateOrchestrator создает оркестратор прогона
func (f *ComponentFactory) CreateOrchestrator(lister service.PlaylistLister, proc service.PlaylistProcessor, results service.ResultStore, opts ...service.Option) *service.Orchestrator {
	return service.NewOrchestrator(lister, proc, results, service.Config{
		Workers:      f.config.Workers,
		ListTimeout:  f.config.ListTimeout,
		ShowProgress: f.config.ShowProgress,
	}, f.logger, opts...)
}
