package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/birun/console/pkg/api"
	"github.com/birun/console/pkg/models"
	"github.com/birun/console/pkg/runs"
	cli "github.com/urfave/cli/v3"
)

func newRunCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Start and follow workflow runs",
		Commands: []*cli.Command{
			{
				Name:      "start",
				Usage:     "Start a workflow run",
				ArgsUsage: "<workflow-id>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "watch", Aliases: []string{"w"}, Usage: "Follow the run until it finishes"},
				},
				Action: withApp(startRun),
			},
			{
				Name:      "watch",
				Usage:     "Poll a run until it reaches a terminal status",
				ArgsUsage: "<run-id>",
				Action:    withApp(watchRun),
			},
			{
				Name:      "list",
				Aliases:   []string{"ls"},
				Usage:     "List recent runs of a workflow",
				ArgsUsage: "<workflow-id>",
				Action:    withApp(listRuns),
			},
		},
	}
}

func orchestrator(a *app) (*runs.Orchestrator, error) {
	client, err := a.api()
	if err != nil {
		return nil, err
	}

	return runs.NewOrchestrator(client, runs.Config{
		PollInterval: a.settings.pollInterval,
		Publisher:    a.bus,
		Logger:       a.logger,
	}), nil
}

func startRun(ctx context.Context, command *cli.Command, a *app) error {
	workflowID, err := idArg(command, 0, "workflow id")
	if err != nil {
		return err
	}

	o, err := orchestrator(a)
	if err != nil {
		return err
	}

	runID, err := o.StartRun(ctx, workflowID)
	if err != nil {
		return errors.New(api.Message(err, api.MsgRunFailed))
	}

	fmt.Fprintf(command.Root().Writer, "Started run %d\n", runID)

	if !command.Bool("watch") {
		return nil
	}

	return follow(ctx, command.Root().Writer, a, o, runID)
}

func watchRun(ctx context.Context, command *cli.Command, a *app) error {
	runID, err := idArg(command, 0, "run id")
	if err != nil {
		return err
	}

	o, err := orchestrator(a)
	if err != nil {
		return err
	}

	return follow(ctx, command.Root().Writer, a, o, runID)
}

// follow monitors a run and prints its transitions as they arrive on the event bus.
func follow(ctx context.Context, out io.Writer, a *app, o *runs.Orchestrator, runID int64) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	reporter := newRunReporter(out, runID)
	if err := reporter.subscribe(ctx, a.bus); err != nil {
		return fmt.Errorf("failed to subscribe to run events: %w", err)
	}

	run, err := o.Monitor(ctx, runID, nil).Wait()
	if err != nil {
		return err
	}

	reporter.wait(ctx)

	printNodeRuns(out, run)

	if run.Status != models.RunCompleted {
		return fmt.Errorf("run %d ended with status %s", run.ID, run.Status)
	}

	return nil
}

func printNodeRuns(out io.Writer, run *models.WorkflowRun) {
	if len(run.Nodes) == 0 {
		return
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NODE\tSTATUS\tERROR")

	for _, n := range run.Nodes {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", n.NodeID, n.Status, n.Error)
	}

	_ = tw.Flush()
}

func listRuns(ctx context.Context, command *cli.Command, a *app) error {
	workflowID, err := idArg(command, 0, "workflow id")
	if err != nil {
		return err
	}

	o, err := orchestrator(a)
	if err != nil {
		return err
	}

	list, err := o.ListRuns(ctx, workflowID)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(command.Root().Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tSTARTED\tCOMPLETED")

	for _, r := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", r.ID, r.Status, formatTime(r.StartedAt), formatTime(r.CompletedAt))
	}

	return tw.Flush()
}

func formatTime(ts *models.Timestamp) string {
	if ts == nil || ts.IsZero() {
		return "-"
	}

	return ts.Local().Format("2006-01-02 15:04:05")
}
