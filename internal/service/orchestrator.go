// Package service содержит бизнес-логику прогона: выбор плейлистов, параллельную обработку и сохранение.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/based-on-what/Zortify/internal/model"
	"github.com/based-on-what/Zortify/internal/processor"
	"github.com/based-on-what/Zortify/internal/worker"

	"github.com/google/uuid"
	"github.com/k0kubun/go-ansi"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
)

const (
	DefaultWorkers     = worker.DefaultWorkers
	DefaultListTimeout = 30 * time.Second
)

// ErrListTimeout список плейлистов не получен за отведённое время
var ErrListTimeout = errors.New("playlist listing timed out")

// Config параметры прогона
type Config struct {
	Workers      int
	ListTimeout  time.Duration
	ShowProgress bool
}

// Option дополнительная настройка оркестратора
type Option func(*Orchestrator)

// WithMirror включает зеркалирование результатов
func WithMirror(m Mirror) Option {
	return func(o *Orchestrator) { o.mirror = m }
}

// WithNotifier включает уведомление об итогах
func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) { o.notifier = n }
}

// WithProgressWriter задаёт вывод прогресс-бара
func WithProgressWriter(w io.Writer) Option {
	return func(o *Orchestrator) { o.progressOut = w }
}

// Orchestrator выполняет полный прогон подсчёта длительностей
type Orchestrator struct {
	lister      PlaylistLister
	processor   PlaylistProcessor
	store       ResultStore
	mirror      Mirror
	notifier    Notifier
	cfg         Config
	progressOut io.Writer
	newRunID    func() string
	logger      *zap.Logger

	mu       sync.RWMutex
	progress model.RunProgress
}

// NewOrchestrator создает оркестратор прогона
func NewOrchestrator(lister PlaylistLister, proc PlaylistProcessor, store ResultStore, cfg Config, logger *zap.Logger, opts ...Option) *Orchestrator {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.ListTimeout <= 0 {
		cfg.ListTimeout = DefaultListTimeout
	}

	o := &Orchestrator{
		lister:    lister,
		processor: proc,
		store:     store,
		cfg:       cfg,
		newRunID:  uuid.NewString,
		logger:    logger,
		progress:  model.RunProgress{Phase: model.PhaseIdle},
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.progressOut == nil {
		o.progressOut = ansi.NewAnsiStdout()
	}
	return o
}

// Progress возвращает снимок текущего прогона
func (o *Orchestrator) Progress() model.RunProgress {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.progress
}

func (o *Orchestrator) updateProgress(fn func(p *model.RunProgress)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fn(&o.progress)
}

// Run выполняет прогон: загружает сохранённые результаты, обрабатывает новые плейлисты
// в пуле воркеров и сохраняет объединённый результат
func (o *Orchestrator) Run(ctx context.Context) (model.RunSummary, error) {
	runID := o.newRunID()
	logger := o.logger.With(zap.String("run_id", runID))
	start := time.Now()

	summary := model.RunSummary{RunID: runID}
	o.updateProgress(func(p *model.RunProgress) {
		*p = model.RunProgress{RunID: runID, Phase: model.PhaseListing, StartedAt: start}
	})

	existing := o.store.Load()
	processedIDs := existing.ProcessedIDs()
	logger.Info("Run started",
		zap.Int("stored_results", len(existing)),
		zap.Int("workers", o.cfg.Workers))

	playlists, err := o.listPlaylists(ctx, logger)
	switch {
	case errors.Is(err, ErrListTimeout):
		playlists = nil
	case err != nil:
		return summary, err
	}
	summary.Listed = len(playlists)

	pending := make([]model.Playlist, 0, len(playlists))
	for _, p := range playlists {
		if _, ok := processedIDs[p.ID]; ok {
			summary.Skipped++
			continue
		}
		pending = append(pending, p)
	}

	logger.Info("Playlists selected",
		zap.Int("listed", summary.Listed),
		zap.Int("already_processed", summary.Skipped),
		zap.Int("pending", len(pending)))

	delta, err := o.processAll(ctx, pending, &summary, logger)
	if err != nil {
		return summary, err
	}

	o.updateProgress(func(p *model.RunProgress) { p.Phase = model.PhaseSaving })

	saved, err := o.store.Save(delta)
	if err != nil {
		return summary, fmt.Errorf("failed to save results: %w", err)
	}
	summary.Saved = saved

	if o.mirror != nil {
		if _, err := o.mirror.Sync(ctx, saved, runID); err != nil {
			logger.Error("Failed to mirror results", zap.Error(err))
		}
	}

	summary.Elapsed = time.Since(start)
	o.updateProgress(func(p *model.RunProgress) { p.Phase = model.PhaseDone })

	if o.notifier != nil {
		if err := o.notifier.Notify(ctx, summary); err != nil {
			logger.Error("Failed to send run summary", zap.Error(err))
		}
	}

	logger.Info("Run finished",
		zap.Int("processed", summary.Processed),
		zap.Int("stalled", summary.Stalled),
		zap.Int("failed", summary.Failed),
		zap.Int("stored_total", len(saved)),
		zap.Duration("elapsed", summary.Elapsed))

	return summary, nil
}

type listResult struct {
	playlists []model.Playlist
	err       error
}

// listPlaylists получает список плейлистов в отдельной задаче с дедлайном
func (o *Orchestrator) listPlaylists(ctx context.Context, logger *zap.Logger) ([]model.Playlist, error) {
	listCtx, cancel := context.WithTimeout(ctx, o.cfg.ListTimeout)
	defer cancel()

	done := make(chan listResult, 1)
	go func() {
		playlists, err := o.lister.ListPlaylists(listCtx)
		done <- listResult{playlists: playlists, err: err}
	}()

	select {
	case res := <-done:
		if res.err == nil {
			return res.playlists, nil
		}
		if ctx.Err() == nil && errors.Is(res.err, context.DeadlineExceeded) {
			logger.Warn("Timed out fetching playlists, nothing new will be processed",
				zap.Duration("timeout", o.cfg.ListTimeout))
			return nil, ErrListTimeout
		}
		return nil, fmt.Errorf("failed to list playlists: %w", res.err)
	case <-listCtx.Done():
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("failed to list playlists: %w", err)
		}
		logger.Warn("Timed out fetching playlists, nothing new will be processed",
			zap.Duration("timeout", o.cfg.ListTimeout))
		return nil, ErrListTimeout
	}
}

// processAll обрабатывает плейлисты в пуле воркеров. Результаты собирает
// одна горутина, она же единственная пишет в delta.
func (o *Orchestrator) processAll(ctx context.Context, pending []model.Playlist, summary *model.RunSummary, logger *zap.Logger) (model.Results, error) {
	delta := model.Results{}

	o.updateProgress(func(p *model.RunProgress) {
		p.Phase = model.PhaseProcessing
		p.Total = len(pending)
	})
	if len(pending) == 0 {
		return delta, ctx.Err()
	}

	bar := o.newProgressBar(len(pending))

	outcomes := make(chan processor.Outcome, len(pending))
	collected := make(chan struct{})

	go func() {
		defer close(collected)
		for out := range outcomes {
			o.collect(delta, out, summary, logger)
			if bar != nil {
				_ = bar.Add(1)
			}
		}
	}()

	pool := worker.New(o.cfg.Workers, len(pending), logger)
	pool.Start(ctx)

	for _, p := range pending {
		playlist := p
		err := pool.Submit(worker.Job{
			ID:   playlist.ID,
			Name: playlist.Name,
			Handler: func(jobCtx context.Context) (err error) {
				// паника обработчика тоже должна дойти до сборщика как неудача
				defer func() {
					if r := recover(); r != nil {
						err = fmt.Errorf("processing playlist %s panicked: %v", playlist.ID, r)
						outcomes <- processor.Outcome{Playlist: playlist, State: processor.StateFailed, Err: err}
					}
				}()

				out := o.processor.Process(jobCtx, playlist)
				outcomes <- out
				if out.State == processor.StateFailed {
					return out.Err
				}
				return nil
			},
		})
		if err != nil {
			logger.Error("Failed to submit playlist",
				zap.String("playlist_id", playlist.ID),
				zap.Error(err))
			outcomes <- processor.Outcome{Playlist: playlist, State: processor.StateFailed, Err: err}
		}
	}

	pool.Wait()
	close(outcomes)
	<-collected

	if bar != nil {
		_ = bar.Finish()
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("run interrupted: %w", err)
	}
	return delta, nil
}

// collect учитывает результат одного плейлиста
func (o *Orchestrator) collect(delta model.Results, out processor.Outcome, summary *model.RunSummary, logger *zap.Logger) {
	switch out.State {
	case processor.StateComplete:
		summary.Processed++
	case processor.StateStalled:
		summary.Stalled++
	default:
		summary.Failed++
	}

	if out.Published() {
		if prev, ok := delta[out.Playlist.Name]; ok && prev.ID != out.Result.ID {
			logger.Warn("Duplicate playlist name, keeping the latest result",
				zap.String("playlist", out.Playlist.Name),
				zap.String("previous_id", prev.ID),
				zap.String("playlist_id", out.Result.ID))
		}
		delta[out.Playlist.Name] = out.Result
	}

	o.updateProgress(func(p *model.RunProgress) {
		p.Done = summary.Processed
		p.Stalled = summary.Stalled
		p.Failed = summary.Failed
	})
}

func (o *Orchestrator) newProgressBar(total int) *progressbar.ProgressBar {
	if !o.cfg.ShowProgress {
		return nil
	}
	return progressbar.NewOptions(
		total,
		progressbar.OptionSetWriter(o.progressOut),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetTheme(progressbar.ThemeASCII),
		progressbar.OptionFullWidth(),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("[cyan]Processing playlists...[reset]"),
	)
}
