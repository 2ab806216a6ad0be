// Package app содержит сборку приложения из компонентов.
package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/based-on-what/Zortify/internal/config"
	"github.com/based-on-what/Zortify/internal/health"
	"github.com/based-on-what/Zortify/internal/model"
	"github.com/based-on-what/Zortify/internal/service"
	"github.com/based-on-what/Zortify/internal/storage"

	"go.uber.org/zap"
)

// App собранное приложение для одного прогона
type App struct {
	config       *config.Config
	logger       *zap.Logger
	db           *storage.Postgres
	health       *health.Server
	orchestrator *service.Orchestrator
	wg           sync.WaitGroup
}

// New собирает приложение. Авторизация в Spotify выполняется сразу, её ошибка фатальна.
// База данных и Telegram необязательны: ошибки их подключения только логируются.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	factory := NewComponentFactory(cfg, logger)

	session, err := factory.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create spotify session: %w", err)
	}
	if _, err := session.API(ctx); err != nil {
		return nil, fmt.Errorf("spotify authentication failed: %w", err)
	}

	client := factory.CreateSpotifyClient(session)
	proc := factory.CreateProcessor(client)
	results := factory.CreateStore()

	a := &App{
		config: cfg,
		logger: logger,
	}

	var opts []service.Option

	if cfg.DatabaseURL != "" {
		db, err := factory.CreateDatabase(ctx)
		if err != nil {
			logger.Error("Database unavailable, results will not be mirrored", zap.Error(err))
		} else {
			a.db = db
			opts = append(opts, service.WithMirror(storage.NewMirror(db.GetPlaylistDurationRepository(), logger)))
		}
	}

	if cfg.TelegramEnabled() {
		notifier, err := factory.CreateNotifier()
		if err != nil {
			logger.Error("Telegram notifier unavailable", zap.Error(err))
		} else {
			opts = append(opts, service.WithNotifier(notifier))
		}
	}

	a.orchestrator = factory.CreateOrchestrator(client, proc, results, opts...)

	if cfg.HealthCheckEnabled {
		a.health = factory.CreateHealthServer(a.db, a.orchestrator)
	}

	logger.Info("Application assembled",
		zap.Bool("mirror", a.db != nil),
		zap.Bool("notifications", cfg.TelegramEnabled()),
		zap.Bool("health", a.health != nil))

	return a, nil
}

// Run выполняет один прогон
func (a *App) Run(ctx context.Context) (model.RunSummary, error) {
	if a.health != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := a.health.Start(); err != nil {
				a.logger.Error("Health check server failed", zap.Error(err))
			}
		}()
	}

	return a.orchestrator.Run(ctx)
}

// Close останавливает сервер статуса и закрывает базу данных
func (a *App) Close() {
	if a.health != nil {
		if err := a.health.Stop(); err != nil {
			a.logger.Warn("Failed to stop health check server", zap.Error(err))
		}
		a.wg.Wait()
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("Failed to close database connection", zap.Error(err))
		}
	}
}
