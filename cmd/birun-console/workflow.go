package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/birun/console/pkg/builder"
	"github.com/birun/console/pkg/graph"
	"github.com/birun/console/pkg/schedule"
	cli "github.com/urfave/cli/v3"
)

func newWorkflowCommand() *cli.Command {
	return &cli.Command{
		Name:    "workflow",
		Aliases: []string{"wf"},
		Usage:   "Manage workflow documents",
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List workflows",
				Action:  withApp(listWorkflows),
			},
			{
				Name:      "show",
				Usage:     "Print a workflow document as JSON",
				ArgsUsage: "<workflow-id>",
				Action:    withApp(showWorkflow),
			},
			{
				Name:  "create",
				Usage: "Create an empty workflow",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "Workflow name"},
					&cli.StringFlag{Name: "description", Usage: "Workflow description"},
				},
				Action: withApp(createWorkflow),
			},
			{
				Name:      "validate",
				Usage:     "Check a workflow document file without saving it",
				ArgsUsage: "<file>",
				Action:    withApp(validateWorkflow),
			},
			{
				Name:      "save",
				Usage:     "Replace a stored workflow with a document file",
				ArgsUsage: "<file>",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "id", Usage: "Workflow id, overrides the id in the file"},
				},
				Action: withApp(saveWorkflow),
			},
			{
				Name:      "delete",
				Aliases:   []string{"rm"},
				Usage:     "Delete a workflow",
				ArgsUsage: "<workflow-id>",
				Action:    withApp(deleteWorkflow),
			},
			{
				Name:      "render",
				Usage:     "Render a workflow graph as SVG",
				ArgsUsage: "<workflow-id>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Write to file instead of stdout"},
				},
				Action: withApp(renderWorkflow),
			},
		},
	}
}

func listWorkflows(ctx context.Context, command *cli.Command, a *app) error {
	list, err := a.workflows.List(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(command.Root().Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTRIGGER\tSCHEDULE\tRUNS 24H\tLAST RESULT")

	for _, w := range list {
		label := ""
		if w.ScheduleCron != "" {
			label = schedule.Label(w.ScheduleCron)
		}

		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%s\n", w.ID, w.Name, w.TriggerType, label, w.Runs24h, w.LastResult)
	}

	return tw.Flush()
}

func showWorkflow(ctx context.Context, command *cli.Command, a *app) error {
	id, err := idArg(command, 0, "workflow id")
	if err != nil {
		return err
	}

	w, err := a.workflows.FetchByID(ctx, id)
	if err != nil {
		return err
	}

	return writeJSON(command.Root().Writer, w)
}

func createWorkflow(ctx context.Context, command *cli.Command, a *app) error {
	w, err := a.workflows.Create(ctx, command.String("name"), command.String("description"))
	if err != nil {
		return err
	}

	fmt.Fprintf(command.Root().Writer, "Created workflow %d (%s)\n", w.ID, w.Name)

	return nil
}

func validateWorkflow(_ context.Context, command *cli.Command, a *app) error {
	data, err := readArgFile(command)
	if err != nil {
		return err
	}

	w, err := a.workflows.Decode(data)
	if err != nil {
		return err
	}

	if err := a.workflows.Validate(w); err != nil {
		printViolations(command.Root().ErrWriter, err)
		return err
	}

	fmt.Fprintf(command.Root().Writer, "%s is valid (%d nodes, %d edges)\n", command.Args().First(), len(w.Nodes), len(w.Edges))

	return nil
}

func saveWorkflow(ctx context.Context, command *cli.Command, a *app) error {
	data, err := readArgFile(command)
	if err != nil {
		return err
	}

	w, err := a.workflows.Decode(data)
	if err != nil {
		return err
	}

	if id := command.Int64("id"); id > 0 {
		w.ID = id
	}

	if err := a.workflows.Save(ctx, w); err != nil {
		printViolations(command.Root().ErrWriter, err)
		return err
	}

	fmt.Fprintf(command.Root().Writer, "Saved workflow %d\n", w.ID)

	return nil
}

func deleteWorkflow(ctx context.Context, command *cli.Command, a *app) error {
	id, err := idArg(command, 0, "workflow id")
	if err != nil {
		return err
	}

	if err := a.workflows.Delete(ctx, id); err != nil {
		return err
	}

	fmt.Fprintf(command.Root().Writer, "Deleted workflow %d\n", id)

	return nil
}

func renderWorkflow(ctx context.Context, command *cli.Command, a *app) error {
	id, err := idArg(command, 0, "workflow id")
	if err != nil {
		return err
	}

	w, err := a.workflows.FetchByID(ctx, id)
	if err != nil {
		return err
	}

	svg := builder.New(w, a.workflows, a.logger).Canvas().Scene().SVG()

	if out := command.String("out"); out != "" {
		return os.WriteFile(out, []byte(svg), 0600)
	}

	_, err = io.WriteString(command.Root().Writer, svg)

	return err
}

func readArgFile(command *cli.Command) ([]byte, error) {
	name := command.Args().First()
	if name == "" {
		return nil, fmt.Errorf("%w: file", ErrMissingArg)
	}

	return os.ReadFile(name)
}

func printViolations(w io.Writer, err error) {
	var verr *graph.ValidationError
	if !errors.As(err, &verr) {
		return
	}

	for _, v := range verr.Violations {
		fmt.Fprintf(w, "  - %s\n", v)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}
