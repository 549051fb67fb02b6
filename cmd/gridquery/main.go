// Command gridquery applies grid filter and sort descriptors to JSON records and explains
// how descriptors are compiled.
//
//	gridquery query --data orders.json --filter '[["Customer.Name","contains","bob"]]' --sort '[{"selector":"Total","desc":true}]'
//	gridquery explain --filter '[["Total",">","100"],"and",["Status","=","open"]]'
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dir01/gridquery"
)

type app struct {
	configPath string
	cfg        *Config
	logger     *slog.Logger
	compiler   *gridquery.Compiler[map[string]any]
}

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "gridquery",
		Short:         "Compile and apply grid filter and sort descriptors",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(stderr)
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default ./gridquery.yaml)")

	rootCmd.AddCommand(a.queryCmd(), a.explainCmd())
	return rootCmd
}

func (a *app) init(stderr io.Writer) error {
	cfg, err := loadConfig(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = newLogger(cfg.Log, stderr)

	schema, err := gridquery.MapSchema(cfg.Schema.Name, cfg.Schema.Fields)
	if err != nil {
		return fmt.Errorf("building schema: %w", err)
	}
	a.compiler, err = gridquery.NewCompiler[map[string]any](schema,
		gridquery.WithCacheSize(cfg.CacheSize),
		gridquery.WithLogger(a.logger),
	)
	if err != nil {
		return err
	}
	a.logger.Debug("schema loaded", "schema", schema.Name(), "fields", len(cfg.Schema.Fields))
	return nil
}

func (a *app) queryCmd() *cobra.Command {
	var dataPath, filter, sort string
	var limit int

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Filter and sort a JSON array of records",
		RunE: func(cmd *cobra.Command, args []string) error {
			filters, sorts, err := parseDescriptors(filter, sort)
			if err != nil {
				return err
			}

			records, err := readRecords(dataPath, cmd.InOrStdin())
			if err != nil {
				return err
			}

			result, err := a.compiler.Query(records, filters, sorts)
			if err != nil {
				return err
			}
			if limit > 0 && len(result) > limit {
				result = result[:limit]
			}
			a.logger.Info("query done", "records", len(records), "matched", len(result))

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
	cmd.Flags().StringVar(&dataPath, "data", "-", "JSON array of records, - for stdin")
	cmd.Flags().StringVar(&filter, "filter", "", "grid filter, JSON or URL-encoded")
	cmd.Flags().StringVar(&sort, "sort", "", "grid sort, JSON or URL-encoded")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of records to print, 0 for all")
	return cmd
}

func (a *app) explainCmd() *cobra.Command {
	var filter, sort string

	cmd := &cobra.Command{
		Use:   "explain",
		Short: "Show how descriptors are parsed and compiled",
		RunE: func(cmd *cobra.Command, args []string) error {
			filters, sorts, err := parseDescriptors(filter, sort)
			if err != nil {
				return err
			}

			f, err := a.compiler.Where(filters)
			if err != nil {
				return err
			}
			o := a.compiler.OrderBy(sorts)
			q := &gridquery.Query{Where: f.Expr(), OrderBy: o.Keys()}
			where, orderBy, sqlArgs, err := q.SQL()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "filters:")
			for _, d := range filters {
				fmt.Fprintf(out, "  %s %s %q\n", d.Field, d.Comparator, d.Value)
				if strings.Contains(d.Field, ".") {
					fmt.Fprintf(out, "    null-safe: %s\n", gridquery.NullSafe(d.Field))
				}
			}
			fmt.Fprintf(out, "compiled filters: %d of %d\n", f.Len(), len(filters))

			sortString := gridquery.SortString(sorts)
			fmt.Fprintf(out, "sort: %s\n", sortString)
			fmt.Fprintf(out, "sort string valid: %t\n", gridquery.ValidSortString(sortString))
			fmt.Fprintf(out, "compiled sort keys: %d of %d\n", o.Len(), len(sorts))

			fmt.Fprintf(out, "sql where: %s\n", where)
			fmt.Fprintf(out, "sql order by: %s\n", orderBy)
			fmt.Fprintf(out, "sql args: %v\n", sqlArgs)
			return nil
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "", "grid filter, JSON or URL-encoded")
	cmd.Flags().StringVar(&sort, "sort", "", "grid sort, JSON or URL-encoded")
	return cmd
}

func parseDescriptors(filter, sort string) ([]gridquery.FilterDescriptor, []gridquery.SortDescriptor, error) {
	filters, err := gridquery.ParseFilters(filter)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing filter: %w", err)
	}
	sorts, err := gridquery.ParseSorts(sort)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing sort: %w", err)
	}
	return filters, sorts, nil
}

func readRecords(path string, stdin io.Reader) ([]map[string]any, error) {
	var r io.Reader = stdin
	if path != "-" && path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening data: %w", err)
		}
		defer f.Close()
		r = f
	}

	var records []map[string]any
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decoding records: %w", err)
	}
	return records, nil
}
