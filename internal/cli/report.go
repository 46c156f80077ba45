package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/nikolai-in/dlcache/pkg/catalog"
	"github.com/nikolai-in/dlcache/pkg/model"
)

// NewReportCmd creates the report command.
func NewReportCmd() *cobra.Command {
	var (
		cacheRoot string
		outFile   string
	)

	cmd := &cobra.Command{
		Use:     "report <source-descriptor>",
		Aliases: []string{"status"},
		Short:   "Report cache coverage against the expected set",
		Long: `Discover and resolve the expected URL set, compare it against the cache
contents and print a coverage report. Read-only: nothing is downloaded.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, args[0], cacheRoot, outFile)
		},
	}

	cmd.Flags().StringVar(&cacheRoot, "cache-root", "", "cache root directory (default: from config)")
	cmd.Flags().StringVar(&outFile, "out", "", "also write the JSON report to this file")

	return cmd
}

func runReport(cmd *cobra.Command, descPath, cacheRoot, outFile string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	desc, err := catalog.LoadSourceDescriptor(descPath)
	if err != nil {
		return err
	}

	mgr, _, err := buildManager(cfg, cacheRoot)
	if err != nil {
		return err
	}

	entries := mgr.Assemble(cmd.Context(), desc)
	report := mgr.Report(entries)

	if outFile != "" {
		if err := writeJSONReport(report, outFile); err != nil {
			return err
		}
	}

	switch cfg.Output.Format {
	case "json":
		return renderJSON(os.Stdout, report)
	case "markdown":
		renderMarkdown(report)
	default:
		renderTable(report)
	}
	return nil
}

func writeJSONReport(report model.CoverageReport, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func renderJSON(w *os.File, report model.CoverageReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func renderTable(report model.CoverageReport) {
	fmt.Printf("Coverage: %.2f%% (%d of %d expected artifacts cached)\n",
		report.CoveragePercent, report.TotalCached, report.TotalExpected)
	if len(report.Unresolved) > 0 {
		fmt.Printf("Unresolved (excluded from coverage): %d\n", len(report.Unresolved))
	}
	fmt.Println()

	if len(report.ByCategory) > 0 {
		fmt.Printf("%-15s %s\n", "CATEGORY", "EXPECTED")
		fmt.Println(strings.Repeat("-", 25))
		for _, c := range model.Categories() {
			if n, ok := report.ByCategory[c]; ok {
				fmt.Printf("%-15s %d\n", c, n)
			}
		}
		fmt.Println()
	}

	if len(report.Missing) > 0 {
		fmt.Printf("Missing (%d):\n", len(report.Missing))
		for _, m := range report.Missing {
			fmt.Printf("  %-60s %s\n", m.URL, m.Source)
		}
	}
	if len(report.Cached) > 0 {
		fmt.Printf("Cached (%d):\n", len(report.Cached))
		for _, c := range report.Cached {
			fmt.Printf("  %-60s %s\n", c.URL, humanize.Bytes(uint64(c.FileSizeBytes)))
		}
	}
}

func renderMarkdown(report model.CoverageReport) {
	fmt.Printf("## Cache coverage\n\n")
	fmt.Printf("**%.2f%%** (%d of %d expected artifacts cached)\n\n",
		report.CoveragePercent, report.TotalCached, report.TotalExpected)

	if len(report.ByCategory) > 0 {
		fmt.Println("| Category | Expected |")
		fmt.Println("| --- | --- |")
		for _, c := range model.Categories() {
			if n, ok := report.ByCategory[c]; ok {
				fmt.Printf("| %s | %d |\n", c, n)
			}
		}
		fmt.Println()
	}

	if len(report.Missing) > 0 {
		fmt.Printf("### Missing (%d)\n\n", len(report.Missing))
		for _, m := range report.Missing {
			fmt.Printf("- `%s` (%s)\n", m.URL, m.Source)
		}
		fmt.Println()
	}
	if len(report.Unresolved) > 0 {
		fmt.Printf("### Unresolved variables (%d)\n\n", len(report.Unresolved))
		for _, u := range report.Unresolved {
			fmt.Printf("- `%s` (%s)\n", u.URL, u.Source)
		}
	}
}
