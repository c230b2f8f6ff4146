package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/pe-finder/internal/annotation"
	"github.com/pe-finder/internal/lexicon"
	"github.com/pe-finder/internal/markup"
	"github.com/pe-finder/internal/service"
	"github.com/pe-finder/internal/store"
)

func newRunCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "run [input-db output-db]",
		Short: "Classify every report and write the results table",
		Long: `Classify every report in the input table and write one row per report to
the results table of the output database. The output is recreated on every
run and must differ from the input. Databases are SQLite file paths or
postgres:// URLs.`,
		Example: `  pefinder run --db reports.db --odb results.db
  pefinder run reports.db results.db --json`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				a.v.Set("input.dsn", args[0])
			}
			if len(args) > 1 {
				a.v.Set("output.dsn", args[1])
			}
			// Positional stores override flags, so reload before validating.
			if err := a.init(); err != nil {
				return err
			}
			if err := a.manager.Validate(); err != nil {
				return err
			}

			summary, err := a.run(cmd)
			if err != nil {
				return err
			}
			if asJSON {
				return writeSummaryJSON(cmd.OutOrStdout(), summary)
			}
			writeSummaryTable(cmd.OutOrStdout(), summary)
			return nil
		},
	}

	cmd.Flags().StringP("db", "d", "", "input database (SQLite path or postgres:// URL)")
	cmd.Flags().StringP("odb", "o", "", "output database, recreated on every run")
	cmd.Flags().String("table", "pesubject", "input table holding id and impression columns")
	cmd.Flags().String("lexicon", "", "lexicon YAML file (default: built-in PE lexicon)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the run summary as JSON")

	_ = a.v.BindPFlag("input.dsn", cmd.Flags().Lookup("db"))
	_ = a.v.BindPFlag("output.dsn", cmd.Flags().Lookup("odb"))
	_ = a.v.BindPFlag("input.table", cmd.Flags().Lookup("table"))
	_ = a.v.BindPFlag("lexicon.path", cmd.Flags().Lookup("lexicon"))

	return cmd
}

func (a *app) run(cmd *cobra.Command) (*service.RunSummary, error) {
	ctx := cmd.Context()
	cfg := a.manager.GetConfig()

	lex, err := lexicon.Load(cfg.Lexicon.Path)
	if err != nil {
		return nil, err
	}
	patterns, err := lexicon.NewPatternCache(cfg.Lexicon.PatternCacheSize)
	if err != nil {
		return nil, err
	}
	engine := markup.NewEngine(patterns)
	runner, err := annotation.NewPassRunner(lex, func() annotation.Document { return engine.NewDocument() }, a.logger)
	if err != nil {
		return nil, err
	}

	reports, err := store.OpenReports(ctx, cfg.Input.DSN, cfg.Input.Table, a.logger)
	if err != nil {
		return nil, err
	}
	defer reports.Close()

	results, err := store.CreateResults(ctx, cfg.Output.DSN, a.logger)
	if err != nil {
		return nil, err
	}
	defer results.Close()

	return service.NewPipeline(reports, results, runner, a.logger).Run(ctx)
}

func writeSummaryJSON(w io.Writer, summary *service.RunSummary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("error encoding summary: %w", err)
	}
	return nil
}

func writeSummaryTable(w io.Writer, summary *service.RunSummary) {
	fmt.Fprintf(w, "Processed %d of %d cases (run %s)\n\n", summary.Processed, summary.Total, summary.RunID)

	tw := tablewriter.NewWriter(w)
	tw.SetHeader([]string{"Label", "Value", "Reports"})
	appendTallies(tw, "disease", summary.Disease)
	appendTallies(tw, "uncertainty", summary.Uncertainty)
	appendTallies(tw, "historical", summary.Historical)
	appendTallies(tw, "quality", summary.Quality)
	tw.Render()
}

func appendTallies[K ~string](tw *tablewriter.Table, label string, tallies map[K]int) {
	keys := make([]string, 0, len(tallies))
	for k := range tallies {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	for _, k := range keys {
		tw.Append([]string{label, k, strconv.Itoa(tallies[K(k)])})
	}
}
