package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"assaykit/adapters/curve"
	"assaykit/adapters/excel"
	"assaykit/app"
	"assaykit/domain/assay"
	"assaykit/domain/core"
	"assaykit/internal"
	"assaykit/internal/config"
	"assaykit/internal/report"
	"assaykit/internal/testkit"
	"assaykit/ports"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "assaykit",
		Short:        "4PL standard curves and per-day significance testing for plate assays",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newFitCmd(),
		newAnalyzeCmd(),
		newSimulateCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads .env (if present) and the environment
func loadConfig() (*config.Config, *internal.Logger, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	return cfg, cfg.Logger(), nil
}

func newFitCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "fit [plate-file...]",
		Short: "Fit the standard curve of one or more plates",
		Long: `Fit a four-parameter logistic curve to the standards of each plate.
Plates are fitted concurrently (FIT_WORKERS).

Example: assaykit fit plate1.xlsx plate2.csv`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFit(cmd.Context(), args, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results as JSON")

	return cmd
}

func runFit(ctx context.Context, files []string, asJSON bool) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	sets := make([]curve.StandardSet, 0, len(files))
	for _, file := range files {
		plate, err := excel.NewWorkbookReader(file, logger).ReadPlate()
		if err != nil {
			return fmt.Errorf("read %s: %w", file, err)
		}
		sets = append(sets, curve.StandardSet{ID: core.CurveID(file), Points: plate.Standards})
	}

	results, err := curve.FitBatch(ctx, sets, cfg.FitOptions(logger), cfg.Fit.Workers)
	if err != nil {
		return err
	}

	if asJSON {
		type fitOutput struct {
			Plate  string           `json:"plate"`
			Result *assay.FitResult `json:"result,omitempty"`
			Error  string           `json:"error,omitempty"`
		}
		out := make([]fitOutput, len(results))
		for i, r := range results {
			out[i] = fitOutput{Plate: r.ID.String()}
			if r.Err != nil {
				out[i].Error = r.Err.Error()
			} else {
				res := r.Result
				out[i].Result = &res
			}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Plate", "A", "B", "C", "D", "R²", "Iterations", "Termination"})
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			tbl.AppendRow(table.Row{r.ID, "", "", "", "", "", "", "error: " + r.Err.Error()})
			continue
		}
		p := r.Result.Params
		tbl.AppendRow(table.Row{
			r.ID,
			fmt.Sprintf("%.4g", p.A), fmt.Sprintf("%.4g", p.B),
			fmt.Sprintf("%.4g", p.C), fmt.Sprintf("%.4g", p.D),
			fmt.Sprintf("%.5f", r.Result.RSquared), r.Result.Iterations, r.Result.Termination,
		})
	}
	fmt.Println(tbl.Render())

	if failed > 0 {
		return fmt.Errorf("%d of %d plates could not be fitted", failed, len(results))
	}
	return nil
}

func newAnalyzeCmd() *cobra.Command {
	var outPath string
	var reportPath string
	var dilution float64
	var conditions string
	var runID string
	var html bool

	cmd := &cobra.Command{
		Use:   "analyze [plate-file]",
		Short: "Fit, quantify and test one plate",
		Long: `Fit the standard curve, back-calculate sample concentrations and test
conditions against each other day by day (t-test for two groups, one-way
ANOVA with Tukey HSD for three or more).

Example: assaykit analyze plate.xlsx --dilution 10 --out results.xlsx --report report.md`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var order []string
			if conditions != "" {
				for _, c := range strings.Split(conditions, ",") {
					if c = strings.TrimSpace(c); c != "" {
						order = append(order, c)
					}
				}
			}
			var id core.RunID
			if cmd.Flags().Changed("run-id") {
				parsed, err := core.ParseRunID(runID)
				if err != nil {
					return err
				}
				id = parsed
			}
			return runAnalyze(cmd.Context(), args[0], analyzeFlags{
				runID:      id,
				outPath:    outPath,
				reportPath: reportPath,
				dilution:   dilution,
				conditions: order,
				html:       html,
			})
		},
	}

	cmd.Flags().StringVar(&outPath, "out", "", "Write results workbook (xlsx)")
	cmd.Flags().StringVar(&reportPath, "report", "", "Write report (Markdown, or HTML with --html or REPORT_FORMAT=html)")
	cmd.Flags().Float64Var(&dilution, "dilution", 1, "Sample dilution factor")
	cmd.Flags().StringVar(&conditions, "conditions", "", "Comma-separated condition order")
	cmd.Flags().StringVar(&runID, "run-id", "", "Run identifier (generated when omitted)")
	cmd.Flags().BoolVar(&html, "html", false, "Render the report as HTML")

	return cmd
}

type analyzeFlags struct {
	runID      core.RunID
	outPath    string
	reportPath string
	dilution   float64
	conditions []string
	html       bool
}

func runAnalyze(ctx context.Context, file string, flags analyzeFlags) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	var src ports.PlateReader = excel.NewWorkbookReader(file, logger)
	svc := app.NewAnalysisService(cfg.FitOptions(logger), cfg.Fit.CurvePoints, logger)
	run, err := svc.RunPlate(ctx, src, app.AnalysisRequest{
		RunID:      flags.runID,
		Conditions: flags.conditions,
		Dilution:   flags.dilution,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Run %s (%s)\n", run.ID, filepath.Base(file))
	fmt.Println(report.FitTable(run.Fit).Render())
	if len(run.Cells) > 0 {
		fmt.Println(report.CellTable(run.Cells).Render())
	}
	if len(run.Days) > 0 {
		fmt.Println(report.DayTable(run).Render())
	} else {
		fmt.Println("No day had two or more groups to compare.")
	}

	if flags.outPath != "" {
		var sink ports.ResultWriter = excel.NewWorkbookWriter(logger)
		if err := sink.WriteResults(flags.outPath, run); err != nil {
			return err
		}
		fmt.Printf("Results written to %s\n", flags.outPath)
	}

	if flags.reportPath != "" {
		format := cfg.Report.Format
		if flags.html {
			format = report.FormatHTML
		}
		content, err := report.Render(run, format)
		if err != nil {
			return err
		}
		if err := os.WriteFile(flags.reportPath, []byte(content), 0o644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		fmt.Printf("Report written to %s\n", flags.reportPath)
	}

	return nil
}

func newSimulateCmd() *cobra.Command {
	var outPath string
	var seed int64
	var perCell int

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Write a synthetic plate workbook",
		Long: `Generate a plate with noisy standards and three conditions over three
days, useful for trying the analyze command.

Example: assaykit simulate --out plate.xlsx --seed 7`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, err := loadConfig()
			if err != nil {
				return err
			}

			genCfg := testkit.DefaultAssayConfig()
			genCfg.Seed = seed
			if perCell > 0 {
				genCfg.SamplesPerCell = perCell
			}
			gen := testkit.NewAssayDataGenerator(genCfg)

			if err := excel.NewWorkbookWriter(logger).WritePlate(outPath, gen.Plate()); err != nil {
				return err
			}
			fmt.Printf("Simulated plate written to %s: %s\n", outPath, gen.Describe())
			return nil
		},
	}

	cmd.Flags().StringVar(&outPath, "out", "plate.xlsx", "Output workbook")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed for deterministic generation")
	cmd.Flags().IntVar(&perCell, "samples-per-cell", 0, "Samples per condition and day (default from generator)")

	return cmd
}
