package service

import (
	"context"

	"github.com/based-on-what/Zortify/internal/model"
	"github.com/based-on-what/Zortify/internal/processor"
)

// PlaylistLister возвращает плейлисты пользователя
type PlaylistLister interface {
	ListPlaylists(ctx context.Context) ([]model.Playlist, error)
}

// PlaylistProcessor считает длительность одного плейлиста
type PlaylistProcessor interface {
	Process(ctx context.Context, playlist model.Playlist) processor.Outcome
}

// ResultStore хранилище результатов
type ResultStore interface {
	Load() model.Results
	Save(delta model.Results) ([]model.Entry, error)
}

// Mirror копия результатов во внешнем хранилище
type Mirror interface {
	Sync(ctx context.Context, entries []model.Entry, runID string) (int, error)
}

// Notifier отправляет итог прогона
type Notifier interface {
	Notify(ctx context.Context, summary model.RunSummary) error
}
