package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"text/tabwriter"
	"time"

	"github.com/based-on-what/Zortify/internal/app"
	"github.com/based-on-what/Zortify/internal/config"
	"github.com/based-on-what/Zortify/internal/model"
	"github.com/based-on-what/Zortify/internal/storage"
	"github.com/based-on-what/Zortify/internal/store"
	"github.com/based-on-what/Zortify/pkg/logger"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// Runner хранит зависимости команд CLI
type Runner struct {
	logger    atomic.Pointer[zap.Logger]
	output    io.Writer
	newLogger func(cfg *config.Config) *zap.Logger
	runApp    func(ctx context.Context, cfg *config.Config, log *zap.Logger) (model.RunSummary, error)
	openDB    func(ctx context.Context, cfg *config.Config, log *zap.Logger) (model.PlaylistDurationRepository, func(), error)
}

// RunnerOpts параметры создания Runner
type RunnerOpts struct {
	Logger *zap.Logger
	Output io.Writer
}

// NewRunner создает Runner
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	r := &Runner{
		output: opts.Output,
		newLogger: func(cfg *config.Config) *zap.Logger {
			return logger.NewWithOptions(logger.Options{Level: cfg.LogLevel, Path: cfg.LogPath})
		},
		runApp: runApplication,
		openDB: openMirror,
	}
	r.logger.Store(opts.Logger)
	return r
}

// Logger возвращает текущий логгер. После загрузки конфигурации он заменяется.
func (r *Runner) Logger() *zap.Logger {
	return r.logger.Load()
}

func (r *Runner) useConfig(cfg *config.Config) *zap.Logger {
	log := r.newLogger(cfg)
	r.logger.Store(log)
	return log
}

// Run выполняет полный прогон
func (r *Runner) Run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return err
	}
	log := r.useConfig(cfg)

	summary, err := r.runApp(ctx, cfg, log)
	if err != nil {
		return err
	}

	fmt.Fprintf(r.output, "Run %s: %d listed, %d already stored, %d processed, %d stalled, %d failed in %s\n",
		summary.RunID, summary.Listed, summary.Skipped, summary.Processed, summary.Stalled, summary.Failed,
		summary.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(r.output, "Results written to %s (%d playlists)\n", cfg.ResultsPath, len(summary.Saved))
	return nil
}

func runApplication(ctx context.Context, cfg *config.Config, log *zap.Logger) (model.RunSummary, error) {
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return model.RunSummary{}, err
	}
	defer a.Close()

	return a.Run(ctx)
}

// Reverse переворачивает порядок записей в файле результатов
func (r *Runner) Reverse(ctx context.Context, cmd *cli.Command) error {
	st, err := r.localStore(cmd)
	if err != nil {
		return err
	}
	if err := st.Reverse(); err != nil {
		return err
	}

	fmt.Fprintf(r.output, "Entry order reversed in %s\n", st.Path())
	return nil
}

// MarkListened выставляет или снимает флаг listened у всех записей
func (r *Runner) MarkListened(ctx context.Context, cmd *cli.Command) error {
	st, err := r.localStore(cmd)
	if err != nil {
		return err
	}

	listened := !cmd.Bool("unset")
	if err := st.MarkListened(listened); err != nil {
		return err
	}

	fmt.Fprintf(r.output, "Listened flag set to %t in %s\n", listened, st.Path())
	return nil
}

// Show печатает сохранённые результаты в порядке файла.
// С флагом --db читает зеркало в PostgreSQL.
func (r *Runner) Show(ctx context.Context, cmd *cli.Command) error {
	limit := int(cmd.Int("limit"))
	if cmd.Bool("db") {
		return r.showMirror(ctx, cmd, limit)
	}

	st, err := r.localStore(cmd)
	if err != nil {
		return err
	}

	entries, err := st.Entries()
	if err != nil {
		return err
	}

	if limit > 0 && limit < len(entries) {
		entries = entries[:limit]
	}

	return printEntries(r.output, entries)
}

func (r *Runner) showMirror(ctx context.Context, cmd *cli.Command, limit int) error {
	cfg, err := config.LoadLocal(cmd.String("config"))
	if err != nil {
		return err
	}
	log := r.useConfig(cfg)

	repo, closeDB, err := r.openDB(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeDB()

	rows, err := repo.List(ctx, limit)
	if err != nil {
		return err
	}

	entries := make([]model.Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.Entry())
	}
	return printEntries(r.output, entries)
}

func openMirror(ctx context.Context, cfg *config.Config, log *zap.Logger) (model.PlaylistDurationRepository, func(), error) {
	if cfg.DatabaseURL == "" {
		return nil, nil, fmt.Errorf("DB_DSN is required to read the database mirror")
	}

	db, err := storage.NewPostgres(ctx, cfg.DatabaseURL, storage.DefaultConnectOptions, log)
	if err != nil {
		return nil, nil, err
	}

	return db.GetPlaylistDurationRepository(), func() {
		if err := db.Close(); err != nil {
			log.Warn("Failed to close database", zap.Error(err))
		}
	}, nil
}

func (r *Runner) localStore(cmd *cli.Command) (*store.Store, error) {
	cfg, err := config.LoadLocal(cmd.String("config"))
	if err != nil {
		return nil, err
	}
	log := r.useConfig(cfg)
	return store.New(cfg.ResultsPath, cfg.SortOrder, log), nil
}

func printEntries(w io.Writer, entries []model.Entry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No stored results")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tPLAYLIST\tDURATION\tTRACKS\tPODCASTS\tLISTENED")
	for i, e := range entries {
		listened := ""
		if e.Result.Listened {
			listened = "yes"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%s\n",
			i+1, e.Name, e.Result.Duration, e.Result.TracksProcessed, e.Result.PodcastsFiltered, listened)
	}
	return tw.Flush()
}
