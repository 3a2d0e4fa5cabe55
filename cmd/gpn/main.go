// Package main is the CLI front-end for the node storage engine. It is
// a collaborator only: the engine itself never formats messages for
// end users or decides exit codes.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"gpn/internal/ingest"
	"gpn/internal/nodedef"
	"gpn/internal/nodefile"
	"gpn/internal/report"
	"gpn/internal/repository"
)

var log = logrus.WithField("logger", "gpn")

type newFlags struct {
	definition string
}

type insertFlags struct {
	csvFile string
	format  string
}

type exportFlags struct {
	csvFile string
}

type selectFlags struct {
	criteria []string
	format   string
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "gpn",
		Short: "Granular partition network node storage engine",
	}

	rootCmd.AddCommand(newCmd())
	rootCmd.AddCommand(insertCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(selectCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newCmd() *cobra.Command {
	flags := &newFlags{}
	cmd := &cobra.Command{
		Use:   "new <path>",
		Short: "Create an empty node at path",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return runNew(c.Context(), args[0], flags)
		},
	}
	cmd.Flags().StringVarP(&flags.definition, "definition", "d", "", "Node-definition TOML file naming the initial hierarchy levels")
	return cmd
}

// runNew implements "new <path>": refuses if the parent
// directory does not exist, the basename is whitespace, or the file
// already exists.
func runNew(ctx context.Context, path string, flags *newFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}

	dir := filepath.Dir(path)
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("parent directory %q does not exist", dir)
	}

	base := filepath.Base(path)
	if strings.TrimSpace(base) == "" {
		return fmt.Errorf("node filename must not be blank")
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("file already exists: %s", path)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("check existing file %q: %w", path, err)
	}

	select {
	case <-ctx.Done():
		log.Info("new node creation cancelled")
		return ctx.Err()
	default:
	}

	var def *nodedef.Definition
	if flags.definition != "" {
		var err error
		def, err = nodedef.ParseFile(flags.definition)
		if err != nil {
			return fmt.Errorf("read node definition %q: %w", flags.definition, err)
		}
	}

	node, err := nodefile.Create(ctx, path)
	if err != nil {
		return fmt.Errorf("create node %q: %w", path, err)
	}
	defer node.Close()

	if def != nil {
		if err := ingest.SeedHierarchy(ctx, node, def.Hierarchy); err != nil {
			return fmt.Errorf("seed hierarchy from %q: %w", flags.definition, err)
		}
	}

	fmt.Printf("created node %s\n", path)
	return nil
}

func insertCmd() *cobra.Command {
	flags := &insertFlags{}
	cmd := &cobra.Command{
		Use:   "insert-cells <node-path>",
		Short: "Bulk-insert cells from a CSV source into a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return runInsert(c.Context(), args[0], flags)
		},
	}
	cmd.Flags().StringVarP(&flags.csvFile, "csv", "c", "", "CSV file to read rows from (required)")
	cmd.Flags().StringVarP(&flags.format, "format", "f", "", "Summary output format: human or json")
	return cmd
}

func runInsert(ctx context.Context, path string, flags *insertFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if flags.csvFile == "" {
		return fmt.Errorf("--csv is required")
	}

	node, err := nodefile.Open(ctx, path, nodefile.ReadWrite)
	if err != nil {
		return fmt.Errorf("open node %q: %w", path, err)
	}
	defer node.Close()

	f, err := os.Open(flags.csvFile)
	if err != nil {
		return fmt.Errorf("open CSV file %q: %w", flags.csvFile, err)
	}
	defer f.Close()

	before, err := summarize(ctx, node)
	if err != nil {
		return err
	}

	if err := ingest.InsertCellsCSV(ctx, node, f); err != nil {
		log.WithError(err).Error("cell ingestion failed")
		return fmt.Errorf("insert cells: %w", err)
	}

	summary, err := summarize(ctx, node)
	if err != nil {
		return err
	}
	summary.CellsInserted -= before.CellsInserted
	formatter, err := report.NewFormatter(flags.format)
	if err != nil {
		return err
	}
	out, err := formatter.FormatIngestSummary(summary)
	if err != nil {
		return fmt.Errorf("format ingest summary: %w", err)
	}
	fmt.Print(out)
	return nil
}

func summarize(ctx context.Context, node *nodefile.Node) (report.IngestSummary, error) {
	tx, err := node.DB().BeginTx(ctx, nil)
	if err != nil {
		return report.IngestSummary{}, fmt.Errorf("begin summary read: %w", err)
	}
	defer tx.Rollback()

	cellRepo := repository.NewCellRepository(tx)
	count, err := cellRepo.CountExcludingReserved(ctx)
	if err != nil {
		return report.IngestSummary{}, err
	}

	propRepo := repository.NewPropertyRepository(tx)
	prop, err := propRepo.Get(ctx, "content_hash")
	if err != nil {
		return report.IngestSummary{}, err
	}

	summary := report.IngestSummary{CellsInserted: count}
	if prop != nil {
		hash := strings.Trim(prop.Value, `"`)
		if hash != "" && hash != "null" {
			summary.HasContentHash = true
			summary.ContentHash = hash
		}
	}
	return summary, nil
}

func exportCmd() *cobra.Command {
	flags := &exportFlags{}
	cmd := &cobra.Command{
		Use:   "export-cells <node-path>",
		Short: "Export every cell from a node as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return runExport(c.Context(), args[0], flags)
		},
	}
	cmd.Flags().StringVarP(&flags.csvFile, "csv", "c", "", "Destination CSV file (defaults to stdout)")
	return cmd
}

func runExport(ctx context.Context, path string, flags *exportFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	node, err := nodefile.Open(ctx, path, nodefile.ReadOnly)
	if err != nil {
		return fmt.Errorf("open node %q: %w", path, err)
	}
	defer node.Close()

	out := os.Stdout
	if flags.csvFile != "" {
		f, err := os.Create(flags.csvFile)
		if err != nil {
			return fmt.Errorf("create output file %q: %w", flags.csvFile, err)
		}
		defer f.Close()
		out = f
	}

	if err := ingest.ExportCellsCSV(ctx, node, out); err != nil {
		return fmt.Errorf("export cells: %w", err)
	}
	return nil
}

func selectCmd() *cobra.Command {
	flags := &selectFlags{}
	cmd := &cobra.Command{
		Use:   "select-cell <node-path>",
		Short: "Resolve a cell id from hierarchy=value criteria and print its labels",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return runSelect(c.Context(), args[0], flags)
		},
	}
	cmd.Flags().StringSliceVarP(&flags.criteria, "where", "w", nil, "hierarchy=value criterion (repeatable)")
	cmd.Flags().StringVarP(&flags.format, "format", "f", "", "Output format: human or json")
	return cmd
}

func runSelect(ctx context.Context, path string, flags *selectFlags) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(flags.criteria) == 0 {
		return fmt.Errorf("at least one --where hierarchy=value criterion is required")
	}

	node, err := nodefile.Open(ctx, path, nodefile.ReadOnly)
	if err != nil {
		return fmt.Errorf("open node %q: %w", path, err)
	}
	defer node.Close()

	tx, err := node.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin select transaction: %w", err)
	}
	defer tx.Rollback()

	hierarchyRepo := repository.NewHierarchyRepository(tx)
	hierarchies, err := hierarchyRepo.List(ctx)
	if err != nil {
		return err
	}
	nameToID := make(map[string]int64, len(hierarchies))
	order := make([]string, len(hierarchies))
	for i, h := range hierarchies {
		nameToID[h.Name] = h.ID
		order[i] = h.Name
	}

	criteria := make(map[int64]string, len(flags.criteria))
	for _, c := range flags.criteria {
		name, value, ok := strings.Cut(c, "=")
		if !ok {
			return fmt.Errorf("invalid --where %q, expected hierarchy=value", c)
		}
		id, known := nameToID[name]
		if !known {
			return fmt.Errorf("unknown hierarchy %q", name)
		}
		criteria[id] = value
	}

	cellRepo := repository.NewCellRepository(tx)
	ids, err := cellRepo.SelectIDs(ctx, criteria)
	if err != nil {
		return fmt.Errorf("select cell ids: %w", err)
	}
	if len(ids) == 0 {
		return fmt.Errorf("no cell matches the given criteria")
	}

	formatter, err := report.NewFormatter(flags.format)
	if err != nil {
		return err
	}
	for _, id := range ids {
		labels, err := cellRepo.Select(ctx, id)
		if err != nil {
			return err
		}
		fmt.Printf("cell %s:\n", strconv.FormatInt(id, 10))
		out, err := formatter.FormatCellSelection(order, labels)
		if err != nil {
			return fmt.Errorf("format cell selection: %w", err)
		}
		fmt.Print(out)
	}
	return nil
}
