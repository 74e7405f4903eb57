// Package main provides flowrun, a command line runner for flow files.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	cli "github.com/urfave/cli/v3"

	"github.com/dukex/flowrun/pkg/cmd"
	"github.com/dukex/flowrun/pkg/graph"
	"github.com/dukex/flowrun/pkg/log"
	"github.com/dukex/flowrun/pkg/models"
	"github.com/dukex/flowrun/pkg/services"
	"github.com/dukex/flowrun/pkg/workflow"
)

func main() {
	command := &cli.Command{
		Name:                  "flowrun",
		Usage:                 "Run and validate flow files",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			runCommand(),
			validateCommand(),
			nodeTypesCommand(),
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString(err.Error()))
		os.Exit(1)
	}
}

func runCommand() *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:    "input",
			Aliases: []string{"i"},
			Usage:   `Run input as a JSON object keyed by node id, e.g. '{"start":{"name":"Ada"}}'`,
		},
		&cli.StringFlag{
			Name:  "actor",
			Usage: "User id recorded as the initiator of the run",
		},
		&cli.BoolFlag{
			Name:  "bfs",
			Usage: "Run nodes in breadth-first order from the triggers",
		},
		&cli.BoolFlag{
			Name:  "stop-on-failure",
			Usage: "Fail the run at the first failing node",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "Print node outputs",
		},
	}
	flags = append(flags, cmd.CommonFlags()...)

	return &cli.Command{
		Name:      "run",
		Aliases:   []string{"r"},
		Usage:     "Run a JSON or YAML flow file and print its events",
		ArgsUsage: "<flow-file>",
		Flags:     flags,
		Action: func(ctx context.Context, command *cli.Command) error {
			if command.Args().Len() != 1 {
				return cli.Exit("expected exactly one flow file", 2)
			}

			log.Setup(command.String("log-level"), command.String("log-format"))

			logger := log.WithModule("flowrun")

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			flow, err := loadFlowFile(command.Args().First())
			if err != nil {
				return err
			}

			input, err := parseInput(command.String("input"))
			if err != nil {
				return err
			}

			tracer, shutdownTracing, err := cmd.NewTracing(ctx, command, "flowrun")
			if err != nil {
				return err
			}

			defer func() {
				if err := shutdownTracing(context.WithoutCancel(ctx)); err != nil {
					logger.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
				}
			}()

			store, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := store.Close(context.WithoutCancel(ctx)); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			registry := cmd.NewRegistry(logger, command.String("plugins-path"), cmd.NodeDepsFrom(command, store))

			options := []workflow.Option{
				workflow.WithLogger(logger),
				workflow.WithTracer(tracer),
				workflow.WithStopOnFailure(command.Bool("stop-on-failure")),
			}
			if command.Bool("bfs") {
				options = append(options, workflow.WithOrdering(graph.OrderBreadthFirst))
			}

			executor := workflow.NewExecutor(store, store, registry, options...)
			p := newPrinter(os.Stdout, !color.NoColor, command.Bool("verbose"))

			status, err := runFlow(ctx, executor, store, flow, input, command.String("actor"), p)
			if err != nil {
				return err
			}

			if status != models.ExecutionStatusCompleted {
				return cli.Exit("", 1)
			}

			return nil
		},
	}
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Check the shape and graph of a flow file",
		ArgsUsage: "<flow-file>",
		Action: func(_ context.Context, command *cli.Command) error {
			if command.Args().Len() == 0 {
				return cli.Exit("expected at least one flow file", 2)
			}

			validator := services.NewFlowValidator()
			failed := 0

			for _, path := range command.Args().Slice() {
				flow, err := loadFlowFile(path)
				if err == nil {
					err = validator.Validate(flow)
				}

				if err != nil {
					failed++

					fmt.Fprintf(os.Stdout, "%s %s: %v\n", color.RedString("✗"), path, err)

					continue
				}

				fmt.Fprintf(os.Stdout, "%s %s (%d nodes)\n", color.GreenString("✓"), path, len(flow.Data.Nodes))
			}

			if failed > 0 {
				return cli.Exit(fmt.Sprintf("%d invalid flow file(s)", failed), 1)
			}

			return nil
		},
	}
}

func nodeTypesCommand() *cli.Command {
	return &cli.Command{
		Name:  "node-types",
		Usage: "List the registered node types",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "plugins-path",
				Usage:   "Path to the directory containing node plugins",
				Sources: cli.EnvVars("PLUGINS_PATH"),
			},
		},
		Action: func(_ context.Context, command *cli.Command) error {
			logger := log.WithModule("flowrun")
			registry := cmd.NewRegistry(logger, command.String("plugins-path"), cmd.NodeDeps{})

			for _, info := range registry.Types() {
				name := info.Type
				if info.Prefix {
					name += "*"
				}

				fmt.Fprintf(os.Stdout, "%-24s %-10s %s\n", color.CyanString(name), info.Category, info.Description)
			}

			return nil
		},
	}
}
