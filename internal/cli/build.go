package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nikolai-in/dlcache/internal/logger"
	"github.com/nikolai-in/dlcache/pkg/catalog"
	"github.com/nikolai-in/dlcache/pkg/model"
	"github.com/nikolai-in/dlcache/pkg/orchestrator"
)

// NewBuildCmd creates the build command.
func NewBuildCmd() *cobra.Command {
	var (
		cacheRoot   string
		force       bool
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "build <source-descriptor>",
		Short: "Populate the cache from a discovery source",
		Long: `Discover expected URLs from the source descriptor, resolve variables and
redirects, and download every cache miss into the content-addressed store.

Individual download failures are reported in the closing summary and do not
fail the run unless they exceed the configured failure tolerance.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, args[0], cacheRoot, force, concurrency)
		},
	}

	cmd.Flags().StringVar(&cacheRoot, "cache-root", "", "cache root directory (default: from config)")
	cmd.Flags().BoolVar(&force, "force", false, "re-download entries that are already cached")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "parallel downloads (default: from config)")

	return cmd
}

func runBuild(cmd *cobra.Command, descPath, cacheRoot string, force bool, concurrency int) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	desc, err := catalog.LoadSourceDescriptor(descPath)
	if err != nil {
		return err
	}

	mgr, st, err := buildManager(cfg, cacheRoot)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	entries := mgr.Assemble(ctx, desc)
	if len(entries) == 0 {
		return fmt.Errorf("catalog discovery produced no entries from %s", descPath)
	}
	logger.Info("catalog assembled", logger.Fields{
		"entries": len(entries),
		"cache":   st.Root(),
	})

	if concurrency <= 0 {
		concurrency = cfg.Network.Concurrency
	}
	summary, err := mgr.Build(ctx, entries, orchestrator.BuildOptions{
		Concurrency:      concurrency,
		Force:            force,
		FailureTolerance: cfg.Policies.FailureTolerance,
	})
	if summary != nil {
		printSummary(summary)
	}
	return err
}

// printSummary writes the closing downloaded/skipped/failed summary, naming
// the offending URL and last error for every failure.
func printSummary(summary *model.BuildSummary) {
	fmt.Printf("Build summary: %d downloaded, %d skipped, %d failed\n",
		summary.Downloaded, summary.Skipped, summary.Failed)
	for _, r := range summary.Results {
		if r.Outcome != model.OutcomeFailed {
			continue
		}
		msg := "unknown error"
		if r.Err != nil {
			msg = r.Err.Error()
		}
		fmt.Printf("  failed: %s (%s)\n", r.Entry.URL, msg)
	}
}
