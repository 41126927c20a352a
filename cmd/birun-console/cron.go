package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/birun/console/pkg/api"
	"github.com/birun/console/pkg/schedule"
	cli "github.com/urfave/cli/v3"
)

func newCronCommand() *cli.Command {
	return &cli.Command{
		Name:  "cron",
		Usage: "Build, describe and preview schedule expressions",
		Commands: []*cli.Command{
			{
				Name:  "derive",
				Usage: "Build a cron expression from schedule settings",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "mode",
						Usage: "every_n_minutes, hourly_at_minute, daily_at_time, weekly_on_day_at_time, monthly_on_day_at_time or raw_expression",
						Value: string(schedule.DailyAtTime),
					},
					&cli.IntFlag{Name: "interval", Usage: "Minutes between runs (1-59)", Value: 5},
					&cli.IntFlag{Name: "minute", Usage: "Minute past the hour (0-59)"},
					&cli.StringFlag{Name: "time", Usage: "Time of day, HH:MM", Value: "09:00"},
					&cli.IntFlag{Name: "weekday", Usage: "Day of week, 0 or 7 is Sunday"},
					&cli.IntFlag{Name: "day", Usage: "Day of month (1-31)", Value: 1},
					&cli.StringFlag{Name: "expr", Usage: "Expression for raw_expression mode"},
				},
				Action: deriveCron,
			},
			{
				Name:      "label",
				Usage:     "Describe a cron expression in words",
				ArgsUsage: "<expression>",
				Action:    labelCron,
			},
			{
				Name:      "preview",
				Usage:     "Ask the backend for the next fire times",
				ArgsUsage: "<expression>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "tz", Usage: "IANA timezone", Value: "UTC"},
					&cli.IntFlag{Name: "count", Usage: "Number of fire times (1-10)", Value: api.DefaultPreviewCount},
				},
				Action: withApp(previewCron),
			},
		},
	}
}

func deriveCron(_ context.Context, command *cli.Command) error {
	spec := schedule.Spec{
		Mode:       schedule.Mode(command.String("mode")),
		Interval:   command.Int("interval"),
		Minute:     command.Int("minute"),
		Time:       command.String("time"),
		Weekday:    command.Int("weekday"),
		DayOfMonth: command.Int("day"),
		Expression: command.String("expr"),
	}

	expr, err := schedule.Derive(spec)
	if err != nil {
		return err
	}

	if err := schedule.Check(expr); err != nil {
		return err
	}

	fmt.Fprintf(command.Root().Writer, "%s\t%s\n", expr, schedule.Label(expr))

	return nil
}

func expressionArg(command *cli.Command) (string, error) {
	expr := strings.TrimSpace(strings.Join(command.Args().Slice(), " "))
	if expr == "" {
		return "", fmt.Errorf("%w: expression", ErrMissingArg)
	}

	return expr, nil
}

func labelCron(_ context.Context, command *cli.Command) error {
	expr, err := expressionArg(command)
	if err != nil {
		return err
	}

	fmt.Fprintln(command.Root().Writer, schedule.Label(expr))

	return nil
}

func previewCron(ctx context.Context, command *cli.Command, a *app) error {
	expr, err := expressionArg(command)
	if err != nil {
		return err
	}

	client, err := a.api()
	if err != nil {
		return err
	}

	preview, err := client.PreviewCron(ctx, expr, command.String("tz"), command.Int("count"))
	if err != nil {
		return errors.New(api.Message(err, api.MsgPreviewFailed))
	}

	out := command.Root().Writer
	fmt.Fprintf(out, "%s (%s)\n", schedule.Label(preview.Expr), preview.TZ)

	for _, next := range preview.Next {
		fmt.Fprintln(out, next.Format("Mon 2006-01-02 15:04 MST"))
	}

	return nil
}
