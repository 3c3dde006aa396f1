/*-------------------------------------------------------------------------
 *
 * pgEdge Postgres Insights - one-shot report commands
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"pgedge-postgres-insights/internal/config"
	"pgedge-postgres-insights/internal/database"
	"pgedge-postgres-insights/internal/intent"
	"pgedge-postgres-insights/internal/report"
	"pgedge-postgres-insights/internal/tsv"
)

func newAskCmd(opts *globalOptions) *cobra.Command {
	var showSQL, asJSON bool

	cmd := &cobra.Command{
		Use:   `ask "<question>"`,
		Short: "Answer one question against the database",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true

			cfg, _, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}

			question := strings.Join(args, " ")
			orch := report.New(report.WithRoleKeywords(cfg.Catalog.Keywords.ToCatalog()))
			if _, err := orch.Classify(question); err != nil {
				return err
			}

			res, err := withDatabase(cmd.Context(), cfg, func(db *database.Client) (*report.Result, error) {
				schema, err := db.Introspect(cmd.Context())
				if err != nil {
					return nil, err
				}
				return orch.Produce(cmd.Context(), question, schema, report.ExecutorFunc(db.Query))
			})
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			printResult(cmd.OutOrStdout(), res, showSQL)
			return nil
		},
	}

	cmd.Flags().BoolVar(&showSQL, "show-sql", false, "Print the generated SQL")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full result as JSON, as returned by the API")
	return cmd
}

func newClassifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   `classify "<question>"`,
		Short: "Print the report type a question maps to",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			i, err := report.New().Classify(strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), i.String())
			return nil
		},
	}
}

func newPlanCmd(opts *globalOptions) *cobra.Command {
	var names []string
	for _, i := range intent.All() {
		names = append(names, i.String())
	}

	return &cobra.Command{
		Use:   `plan "<intent>"`,
		Short: "Print the SQL planned for a report type",
		Long:  "Introspects the database and prints the SQL for one report type.\n\nReport types: " + strings.Join(names, ", "),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			i, err := intent.Parse(args[0])
			if err != nil {
				return err
			}
			cmd.SilenceUsage = true

			cfg, _, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			orch := report.New(report.WithRoleKeywords(cfg.Catalog.Keywords.ToCatalog()))

			_, err = withDatabase(cmd.Context(), cfg, func(db *database.Client) (*report.Result, error) {
				schema, err := db.Introspect(cmd.Context())
				if err != nil {
					return nil, err
				}
				plan, err := orch.Plan(i, schema)
				if err != nil {
					return nil, err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "-- %s (%s)\n%s\n", i, plan.Visualization, plan.SQL)
				return nil, nil
			})
			return err
		},
	}
}

// withDatabase connects, runs fn and closes the pool
func withDatabase(ctx context.Context, cfg *config.Config, fn func(db *database.Client) (*report.Result, error)) (*report.Result, error) {
	db := database.NewClient(cfg.Database)
	if err := db.Connect(ctx); err != nil {
		return nil, err
	}
	defer db.Close()
	return fn(db)
}

// printResult writes the narrative, the optional SQL and the table
// payload (or the raw rows for charts) as TSV
func printResult(w io.Writer, res *report.Result, showSQL bool) {
	fmt.Fprintln(w, res.Report.Narrative)

	if showSQL {
		fmt.Fprintf(w, "\n-- %s\n%s\n", res.Intent, strings.TrimSpace(res.SQL))
	}

	var table string
	if v := res.Report.Visualization; v.IsTable() {
		table = tsv.FormatVisualization(v)
	} else if !res.Data.Empty() {
		table = tsv.FormatResultSet(res.Data)
	}
	if table != "" {
		fmt.Fprintf(w, "\n%s\n", table)
	}
}
