package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nikolai-in/dlcache/pkg/catalog"
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <source-descriptor>",
		Short: "Show the resolved catalog without touching the cache",
		Long: `Run discovery and resolution over the source descriptor and print the
resulting catalog entries. Useful for debugging scan patterns and variable
maps before a build.`,
		Args: cobra.ExactArgs(1),
		RunE: runScan,
	}

	return cmd
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	desc, err := catalog.LoadSourceDescriptor(args[0])
	if err != nil {
		return err
	}

	mgr, _, err := buildManager(cfg, "")
	if err != nil {
		return err
	}
	entries := mgr.Assemble(cmd.Context(), desc)

	if cfg.Output.Format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	fmt.Printf("%-70s %-12s %-10s %s\n", "URL", "CATEGORY", "CACHEABLE", "SOURCE")
	fmt.Println(strings.Repeat("-", 110))
	for _, e := range entries {
		fmt.Printf("%-70s %-12s %-10t %s\n", e.URL, e.Category, e.Cacheable, e.Source)
	}
	fmt.Printf("\n%d entries\n", len(entries))
	return nil
}
