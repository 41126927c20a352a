package main

import (
	"context"
	"fmt"
	"os"

	"github.com/birun/console/pkg/runs"
	"github.com/birun/console/pkg/stream"
	cli "github.com/urfave/cli/v3"
)

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:                  "birun-console",
		Usage:                 "Edit workflows, follow runs and stream script output",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "YAML file with connection profiles",
				Sources: cli.EnvVars("BIRUN_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "profile",
				Usage:   "Profile to use from --config (default: the file's default profile)",
				Sources: cli.EnvVars("BIRUN_PROFILE"),
			},
			&cli.StringFlag{
				Name:    "api-url",
				Usage:   "Base URL of the console API",
				Sources: cli.EnvVars("BIRUN_API_URL"),
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "Bearer token sent with every API and stream request",
				Sources: cli.EnvVars("BIRUN_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Workflow store: file://dir for offline editing, empty or http(s):// for the API",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.DurationFlag{
				Name:  "poll-interval",
				Usage: "Interval between run status polls",
				Value: runs.DefaultPollInterval,
			},
			&cli.DurationFlag{
				Name:  "connect-timeout",
				Usage: "Timeout for opening a stream",
				Value: stream.DefaultConnectTimeout,
			},
			&cli.BoolFlag{
				Name:    "otel",
				Usage:   "Export traces over OTLP/HTTP",
				Sources: cli.EnvVars("BIRUN_OTEL"),
			},
		},
		Commands: []*cli.Command{
			newWorkflowCommand(),
			newRunCommand(),
			newCronCommand(),
			newExecCommand(),
			newTerminalCommand(),
		},
	}
}
