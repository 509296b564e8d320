// Package main provides the CLI entry point for sheetsplit.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"sheetsplit/internal/core"
)

var (
	keyColumn   string
	outputPath  string
	listColumns bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "sheetsplit [input.xlsx]",
		Short: "Split a workbook into one file per key value",
		Long: `sheetsplit reads an .xlsx workbook, partitions its rows by the distinct
values of one key column, writes one workbook per value, and bundles the
results into a single zip archive.`,
		Args: cobra.ExactArgs(1),
		RunE: run,
		// Errors are rendered with user guidance below
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.Flags().StringVarP(&keyColumn, "column", "c", "", "Key column whose distinct values define the output files")
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output zip path (default: <input base>_split.zip)")
	rootCmd.Flags().BoolVar(&listColumns, "list-columns", false, "Print the workbook's column names and exit")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if msg := core.MapError(err); msg.Code != "ERR000" {
			fmt.Fprintln(os.Stderr, msg.String())
		}
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	inputPath := args[0]

	f, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("file not found: %s", inputPath)
	}
	defer f.Close()

	if listColumns {
		header, err := core.ProbeHeader(f)
		if err != nil {
			return err
		}
		for _, col := range header {
			fmt.Println(col)
		}
		return nil
	}

	if keyColumn == "" {
		return fmt.Errorf("--column is required (use --list-columns to see the options)")
	}

	result, err := core.Split(context.Background(), core.SplitRequest{
		Source:     f,
		SourceName: inputPath,
		KeyColumn:  keyColumn,
		OnEvent:    printEvent,
	})
	if err != nil {
		return err
	}

	out := outputPath
	if out == "" {
		out = result.ArchiveName
	}
	if err := os.WriteFile(out, result.Archive, 0644); err != nil {
		return fmt.Errorf("failed to write archive: %w", err)
	}

	fmt.Fprintf(os.Stderr, "wrote %s: %d files, %d of %d rows in %s\n",
		out, len(result.Groups), result.Report.RowsWritten,
		result.Report.TotalRows, result.Duration.Round(time.Millisecond))
	return nil
}

// printEvent renders one pipeline event on stderr, keeping stdout clean for
// --list-columns style output.
func printEvent(ev core.Event) {
	prefix := ""
	switch ev.Level {
	case core.LevelWarn:
		prefix = "warning: "
	case core.LevelError:
		prefix = "error: "
	}
	fmt.Fprintf(os.Stderr, "%s%s\n", prefix, ev.Message)
}
