package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/based-on-what/Zortify/internal/model"
	"go.uber.org/zap"
)

// Mirror копирует сохранённые результаты в базу данных
type Mirror struct {
	repo       model.PlaylistDurationRepository
	logger     *zap.Logger
	schemaOnce sync.Once
	schemaErr  error
}

// NewMirror создает зеркало результатов поверх репозитория
func NewMirror(repo model.PlaylistDurationRepository, logger *zap.Logger) *Mirror {
	return &Mirror{
		repo:   repo,
		logger: logger,
	}
}

// Sync записывает записи в базу. Записи без ID плейлиста пропускаются.
func (m *Mirror) Sync(ctx context.Context, entries []model.Entry, runID string) (int, error) {
	m.schemaOnce.Do(func() {
		m.schemaErr = m.repo.EnsureSchema(ctx)
	})
	if m.schemaErr != nil {
		return 0, m.schemaErr
	}

	rows := make([]model.PlaylistDuration, 0, len(entries))
	for _, e := range entries {
		if e.Result.ID == "" {
			m.logger.Debug("Skipping entry without playlist id", zap.String("playlist", e.Name))
			continue
		}
		rows = append(rows, model.NewPlaylistDuration(e, runID))
	}

	n, err := m.repo.Upsert(ctx, rows)
	if err != nil {
		return 0, fmt.Errorf("mirror sync: %w", err)
	}

	m.logger.Info("Results mirrored to database",
		zap.String("run_id", runID),
		zap.Int("rows", n))

	return n, nil
}
