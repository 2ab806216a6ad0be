// Package processor считает суммарную длительность одного плейлиста, постранично выбирая его элементы.
package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/based-on-what/Zortify/internal/model"
	"github.com/based-on-what/Zortify/internal/retry"
	"go.uber.org/zap"
)

// State состояние обработки плейлиста
type State string

const (
	StateFetching  State = "fetching"
	StateFiltering State = "filtering"
	StateStalled   State = "stalled"
	StateComplete  State = "complete"
	StateFailed    State = "failed"
)

const (
	DefaultPageSize       = 50
	DefaultPageDelay      = 200 * time.Millisecond
	DefaultStallThreshold = 30 * time.Second
)

// ItemFetcher выдаёт страницу элементов плейлиста
type ItemFetcher interface {
	FetchItems(ctx context.Context, playlistID string, offset int) (*model.ItemPage, error)
}

// Config параметры обработки
type Config struct {
	PageSize       int
	PageDelay      time.Duration
	StallThreshold time.Duration
}

// Outcome итог обработки плейлиста. Result заполнен для состояний complete и stalled.
type Outcome struct {
	Playlist model.Playlist
	Result   model.ProcessingResult
	State    State
	Pages    int
	Err      error
}

// Published сообщает, нужно ли сохранять результат
func (o Outcome) Published() bool {
	return o.State == StateComplete || o.State == StateStalled
}

// Processor обрабатывает плейлисты. Не хранит состояние между вызовами Process
// и может использоваться из нескольких воркеров.
type Processor struct {
	fetcher ItemFetcher
	cfg     Config
	now     func() time.Time
	sleep   retry.SleepFunc
	logger  *zap.Logger
}

// New создает обработчик плейлистов
func New(fetcher ItemFetcher, cfg Config, logger *zap.Logger) *Processor {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.StallThreshold <= 0 {
		cfg.StallThreshold = DefaultStallThreshold
	}
	if cfg.PageDelay < 0 {
		cfg.PageDelay = 0
	}

	return &Processor{
		fetcher: fetcher,
		cfg:     cfg,
		now:     time.Now,
		sleep:   retry.SleepContext,
		logger:  logger,
	}
}

// tally накопленные счётчики одного плейлиста
type tally struct {
	durationMs int64
	processed  int
	podcasts   int
	invalid    int
	missing    int
}

func (t *tally) counted() int {
	return t.processed + t.podcasts
}

// Process выбирает элементы плейлиста, пока не будут учтены все заявленные треки,
// поток не закончится или не истечёт порог простоя
func (p *Processor) Process(ctx context.Context, playlist model.Playlist) Outcome {
	logger := p.logger.With(
		zap.String("playlist_id", playlist.ID),
		zap.String("playlist", playlist.Name))

	out := Outcome{Playlist: playlist, State: StateFetching}

	var t tally
	lastProgress := p.now()
	offset := 0

	logger.Info("Processing playlist", zap.Int("declared_total", playlist.TotalTracks))

	for t.counted() < playlist.TotalTracks {
		out.State = StateFetching
		page, err := p.fetcher.FetchItems(ctx, playlist.ID, offset)
		if err != nil {
			out.State = StateFailed
			out.Err = fmt.Errorf("playlist %s: %w", playlist.ID, err)
			logger.Error("Failed to process playlist",
				zap.Int("offset", offset),
				zap.Error(err))
			return out
		}
		out.Pages++

		out.State = StateFiltering
		for _, item := range page.Items {
			if p.filter(&t, item, logger, offset) {
				lastProgress = p.now()
			}
		}

		if len(page.Items) == 0 && !page.HasNext() {
			logger.Info("Playlist item stream ended before declared total",
				zap.Int("counted", t.counted()),
				zap.Int("declared_total", playlist.TotalTracks))
			break
		}

		if idle := p.now().Sub(lastProgress); idle > p.cfg.StallThreshold {
			out.State = StateStalled
			logger.Warn("Playlist processing stalled, keeping partial totals",
				zap.Duration("idle", idle),
				zap.Duration("stall_threshold", p.cfg.StallThreshold),
				zap.Int("tracks_processed", t.processed),
				zap.Int("podcasts_filtered", t.podcasts))
			break
		}

		offset += p.advance(page, logger, offset)

		if t.counted() < playlist.TotalTracks && p.cfg.PageDelay > 0 {
			if err := p.sleep(ctx, p.cfg.PageDelay); err != nil {
				out.State = StateFailed
				out.Err = fmt.Errorf("playlist %s: %w", playlist.ID, err)
				logger.Error("Playlist processing interrupted", zap.Error(err))
				return out
			}
		}
	}

	if out.State != StateStalled {
		out.State = StateComplete
	}
	out.Result = model.ProcessingResult{
		ID:               playlist.ID,
		Duration:         model.DurationFromMillis(t.durationMs),
		URL:              playlist.URL,
		Image:            playlist.ImageURL,
		TracksProcessed:  t.processed,
		PodcastsFiltered: t.podcasts,
		InvalidTracks:    t.invalid,
	}

	logger.Info("Playlist completed",
		zap.String("state", string(out.State)),
		zap.String("duration", out.Result.Duration.String()),
		zap.Int("tracks_processed", t.processed),
		zap.Int("podcasts_filtered", t.podcasts),
		zap.Int("invalid_tracks", t.invalid),
		zap.Int("missing_tracks", t.missing),
		zap.Int("pages", out.Pages))

	return out
}

// advance возвращает сдвиг offset после страницы. Если сервер вернул меньше
// элементов, чем размер страницы, но курсор next задан, сдвиг равен числу
// полученных элементов, чтобы не пропустить оставшиеся.
func (p *Processor) advance(page *model.ItemPage, logger *zap.Logger, offset int) int {
	n := len(page.Items)
	if n > 0 && n < p.cfg.PageSize && page.HasNext() {
		logger.Warn("Short page with next cursor, advancing by received items",
			zap.Int("offset", offset),
			zap.Int("items_in_page", n),
			zap.Int("page_size", p.cfg.PageSize))
		return n
	}
	return p.cfg.PageSize
}

// filter учитывает один элемент и сообщает, был ли он засчитан как трек
func (p *Processor) filter(t *tally, item model.TrackItem, logger *zap.Logger, offset int) bool {
	switch {
	case item.Missing:
		t.missing++
		return false
	case item.Type == model.ItemTypeEpisode:
		t.podcasts++
		return false
	case !item.Playable:
		t.invalid++
		logger.Debug("Skipping non-playable track", zap.Int("offset", offset))
		return false
	default:
		t.durationMs += item.DurationMs
		t.processed++
		return true
	}
}
