package main

import "github.com/urfave/cli/v3"

func (r *Runner) register() []*cli.Command {
	return []*cli.Command{
		runCommand(r),
		reverseCommand(r),
		markListenedCommand(r),
		showCommand(r),
	}
}

func runCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "run",
		Usage:  "Measure every playlist not yet in the results file and save the ranking",
		Action: r.Run,
	}
}

func reverseCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "reverse",
		Usage:  "Invert the order of entries in the results file",
		Action: r.Reverse,
	}
}

func markListenedCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "mark-listened",
		Usage: "Set the listened flag on every stored playlist",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "unset",
				Usage: "Clear the flag instead of setting it",
			},
		},
		Action: r.MarkListened,
	}
}

func showCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "show",
		Usage: "Print stored results in file order, or the database mirror with --db",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum number of playlists to print, 0 prints all",
			},
			&cli.BoolFlag{
				Name:  "db",
				Usage: "Read the PostgreSQL mirror instead of the results file",
			},
		},
		Action: r.Show,
	}
}
