// Package main запускает подсчёт длительности плейлистов Spotify.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/based-on-what/Zortify/pkg/logger"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

func main() {
	start := time.Now()

	runner := NewRunner(RunnerOpts{Logger: logger.New()})

	// По сигналу завершаемся сразу, незаписанные результаты теряются
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log := runner.Logger()
		log.Warn("Interrupted, exiting without saving in-flight results",
			zap.String("signal", sig.String()),
			zap.Duration("elapsed", time.Since(start)))
		_ = log.Sync()
		os.Exit(130)
	}()

	app := &cli.Command{
		Name:  "zortify",
		Usage: "Rank your Spotify playlists by total listening time",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML configuration file",
				Sources: cli.EnvVars("CONFIG_FILE"),
			},
		},
		Action:   runner.Run,
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		runner.Logger().Fatal("Application error", zap.Error(err))
	}
}
