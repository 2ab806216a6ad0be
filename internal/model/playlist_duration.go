package model

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// PlaylistDuration строка зеркала результатов в PostgreSQL
type PlaylistDuration struct {
	bun.BaseModel `bun:"table:playlist_durations"`

	PlaylistID       string    `bun:"playlist_id,pk" json:"playlist_id"`
	Name             string    `bun:"name,notnull" json:"name"`
	DurationSeconds  int64     `bun:"duration_seconds,notnull" json:"duration_seconds"`
	Duration         string    `bun:"duration,notnull" json:"duration"`
	URL              string    `bun:"url" json:"url"`
	ImageURL         *string   `bun:"image_url" json:"image_url"`
	TracksProcessed  int       `bun:"tracks_processed,notnull" json:"tracks_processed"`
	PodcastsFiltered int       `bun:"podcasts_filtered,notnull" json:"podcasts_filtered"`
	InvalidTracks    int       `bun:"invalid_tracks,notnull" json:"invalid_tracks"`
	Listened         bool      `bun:"listened,notnull" json:"listened"`
	RunID            string    `bun:"run_id" json:"run_id"`
	UpdatedAt        time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

// NewPlaylistDuration строит строку зеркала из записи результатов
func NewPlaylistDuration(entry Entry, runID string) PlaylistDuration {
	return PlaylistDuration{
		PlaylistID:       entry.Result.ID,
		Name:             entry.Name,
		DurationSeconds:  entry.Result.Duration.TotalSeconds(),
		Duration:         entry.Result.Duration.String(),
		URL:              entry.Result.URL,
		ImageURL:         entry.Result.Image,
		TracksProcessed:  entry.Result.TracksProcessed,
		PodcastsFiltered: entry.Result.PodcastsFiltered,
		InvalidTracks:    entry.Result.InvalidTracks,
		Listened:         entry.Result.Listened,
		RunID:            runID,
		UpdatedAt:        time.Now().UTC(),
	}
}

// PlaylistDurationRepository определяет интерфейс зеркала результатов
type PlaylistDurationRepository interface {
	EnsureSchema(ctx context.Context) error
	Upsert(ctx context.Context, rows []PlaylistDuration) (int, error)
	List(ctx context.Context, limit int) ([]PlaylistDuration, error)
}

// Entry восстанавливает запись результатов из строки зеркала
func (p PlaylistDuration) Entry() Entry {
	return Entry{
		Name: p.Name,
		Result: ProcessingResult{
			ID:               p.PlaylistID,
			Duration:         DurationFromMillis(p.DurationSeconds * 1000),
			URL:              p.URL,
			Image:            p.ImageURL,
			TracksProcessed:  p.TracksProcessed,
			PodcastsFiltered: p.PodcastsFiltered,
			InvalidTracks:    p.InvalidTracks,
			Listened:         p.Listened,
		},
	}
}
