package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v2"

	"github.com/vsinha/batchplan/pkg/config"
	"github.com/vsinha/batchplan/pkg/interfaces/cli/commands"
	"github.com/vsinha/batchplan/pkg/logger"
)

func asOfFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "as-of",
		Usage:   "Stock snapshot date (YYYY-MM-DD); planning starts here",
		EnvVars: []string{"PLAN_AS_OF"},
	}
}

func setup(c *cli.Context) error {
	cfg := config.Load()
	logger.SetLevel(cfg.Log.Level)
	logger.SetFormat(cfg.Log.Format)
	if c.Bool("verbose") {
		logger.SetLevel("debug")
	}

	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	return nil
}

func runPlan(c *cli.Context) error {
	cmd := commands.NewPlanCommand(commands.PlanConfig{
		ScenarioDir:      c.String("scenario"),
		MaterialsFile:    c.String("materials"),
		FormulationsFile: c.String("formulations"),
		StockFile:        c.String("stock"),
		BatchesFile:      c.String("batches"),
		PreviousDir:      c.String("previous"),
		PlanName:         c.String("name"),
		AsOf:             c.String("as-of"),
		OutputDir:        c.String("output"),
		Format:           c.String("format"),
		Upload:           c.Bool("upload"),
		Save:             c.Bool("save"),
		Verbose:          c.Bool("verbose"),
	}, config.Load(), os.Stdout)
	return cmd.Execute(c.Context)
}

func runDiff(c *cli.Context) error {
	cmd := commands.NewDiffCommand(commands.DiffConfig{
		CurrentDir:  c.String("current"),
		PreviousDir: c.String("previous"),
		AsOf:        c.String("as-of"),
		Output:      c.String("output"),
	}, config.Load(), os.Stdout)
	return cmd.Execute(c.Context)
}

func runImport(c *cli.Context) error {
	cmd := commands.NewImportCommand(commands.ImportConfig{
		Workbook:      c.String("workbook"),
		MaterialsFile: c.String("materials"),
		Name:          c.String("name"),
		AsOf:          c.String("as-of"),
		Output:        c.String("output"),
	}, config.Load(), os.Stdout)
	return cmd.Execute(c.Context)
}

func runServe(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := commands.NewServeCommand(commands.ServeConfig{
		ScenarioDir: c.String("scenario"),
		AsOf:        c.String("as-of"),
	}, config.Load())
	return cmd.Execute(ctx)
}

func main() {
	app := &cli.App{
		Name:  "batchplan",
		Usage: "Simulate material requirements and reorders for a production batch schedule",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging and detailed output",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			{
				Name:  "plan",
				Usage: "Plan a scenario and write the result tables",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "scenario", Usage: "Scenario directory containing the four CSV files"},
					&cli.StringFlag{Name: "materials", Usage: "Path to materials CSV file"},
					&cli.StringFlag{Name: "formulations", Usage: "Path to formulations CSV file"},
					&cli.StringFlag{Name: "stock", Usage: "Path to stock CSV file"},
					&cli.StringFlag{Name: "batches", Usage: "Path to batches CSV file"},
					&cli.StringFlag{Name: "previous", Usage: "Previous scenario directory to diff against"},
					&cli.StringFlag{Name: "name", Usage: "Plan name (defaults to the scenario name)"},
					asOfFlag(),
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output directory for results"},
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "text", Usage: "Output format: text, json, csv, svg"},
					&cli.BoolFlag{Name: "upload", Usage: "Upload the result and exports to object storage"},
					&cli.BoolFlag{Name: "save", Usage: "Save the batch schedule as a production plan"},
				},
				Action: runPlan,
			},
			{
				Name:  "diff",
				Usage: "Compare material usage of two scenarios as CSV",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "current", Required: true, Usage: "Current scenario directory"},
					&cli.StringFlag{Name: "previous", Usage: "Previous scenario directory"},
					asOfFlag(),
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Diff CSV file (stdout when empty)"},
				},
				Action: runDiff,
			},
			{
				Name:  "import-stock",
				Usage: "Convert the accounting stock workbook into stock.csv",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "workbook", Required: true, Usage: "Path to the xlsx workbook"},
					&cli.StringFlag{Name: "materials", Usage: "Materials CSV used to resolve tally codes"},
					&cli.StringFlag{Name: "name", Usage: "Stock snapshot name (defaults to the workbook name)"},
					asOfFlag(),
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "stock.csv destination (stdout when empty)"},
				},
				Action: runImport,
			},
			{
				Name:  "serve",
				Usage: "Serve the planning API over HTTP",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "scenario", Usage: "Scenario directory to seed before serving"},
					asOfFlag(),
				},
				Action: runServe,
			},
		},
	}

	if err := app.RunContext(context.Background(), os.Args); err != nil {
		logger.Log.Error().Err(err).Msg("batchplan failed")
		os.Exit(1)
	}
}
