// Package repository содержит репозитории для работы с базой данных.
package repository

import (
	"context"
	"fmt"

	"github.com/based-on-what/Zortify/internal/model"

	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// PlaylistDurationRepository хранит результаты подсчёта в таблице playlist_durations
type PlaylistDurationRepository struct {
	db     bun.IDB
	logger *zap.Logger
}

var _ model.PlaylistDurationRepository = (*PlaylistDurationRepository)(nil)

// NewPlaylistDurationRepository создает новый репозиторий длительностей плейлистов
func NewPlaylistDurationRepository(db bun.IDB, logger *zap.Logger) *PlaylistDurationRepository {
	return &PlaylistDurationRepository{
		db:     db,
		logger: logger,
	}
}

// EnsureSchema создает таблицу, если её нет
func (r *PlaylistDurationRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.NewCreateTable().
		Model((*model.PlaylistDuration)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create playlist_durations table: %w", err)
	}
	return nil
}

// Upsert вставляет или обновляет строки по playlist_id
func (r *PlaylistDurationRepository) Upsert(ctx context.Context, rows []model.PlaylistDuration) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	res, err := r.db.NewInsert().
		Model(&rows).
		On("CONFLICT (playlist_id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("duration_seconds = EXCLUDED.duration_seconds").
		Set("duration = EXCLUDED.duration").
		Set("url = EXCLUDED.url").
		Set("image_url = EXCLUDED.image_url").
		Set("tracks_processed = EXCLUDED.tracks_processed").
		Set("podcasts_filtered = EXCLUDED.podcasts_filtered").
		Set("invalid_tracks = EXCLUDED.invalid_tracks").
		Set("listened = EXCLUDED.listened").
		Set("run_id = EXCLUDED.run_id").
		Set("updated_at = CURRENT_TIMESTAMP").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert playlist durations: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		r.logger.Warn("Failed to read affected rows", zap.Error(err))
		return len(rows), nil
	}

	return int(affected), nil
}

// List возвращает самые длинные плейлисты, limit <= 0 означает без ограничения
func (r *PlaylistDurationRepository) List(ctx context.Context, limit int) ([]model.PlaylistDuration, error) {
	var rows []model.PlaylistDuration

	query := r.db.NewSelect().
		Model(&rows).
		Order("duration_seconds DESC", "name ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list playlist durations: %w", err)
	}

	return rows, nil
}
