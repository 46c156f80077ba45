package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/nikolai-in/dlcache/internal/logger"
	"github.com/nikolai-in/dlcache/pkg/store"
)

// NewCacheCmd creates the cache command with subcommands.
func NewCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the artifact cache",
		Long:  "Inspect, clear and locate the on-disk artifact cache",
	}

	cmd.AddCommand(
		newCacheInfoCmd(),
		newCacheCleanCmd(),
		newCacheDirCmd(),
	)

	return cmd
}

func newCacheInfoCmd() *cobra.Command {
	var cacheRoot string

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show cache statistics",
		Long:  "Display artifact counts, total size and manifest drift",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runCacheInfo(cacheRoot)
		},
	}
	cmd.Flags().StringVar(&cacheRoot, "cache-root", "", "cache root directory (default: from config)")

	return cmd
}

func newCacheCleanCmd() *cobra.Command {
	var cacheRoot string

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove all cached artifacts",
		Long:  "Delete every cached artifact and reset the manifest",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runCacheClean(cacheRoot)
		},
	}
	cmd.Flags().StringVar(&cacheRoot, "cache-root", "", "cache root directory (default: from config)")

	return cmd
}

func newCacheDirCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dir",
		Short: "Show cache root path",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			fmt.Println(cfg.Cache.Root)
			return nil
		},
	}

	return cmd
}

func openStore(cacheRoot string) (*store.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cacheRoot == "" {
		cacheRoot = cfg.Cache.Root
	}
	return store.Open(cacheRoot)
}

func runCacheInfo(cacheRoot string) error {
	st, err := openStore(cacheRoot)
	if err != nil {
		return err
	}

	stats, err := st.Statistics()
	if err != nil {
		return err
	}
	manifest := st.Manifest()
	drift := st.Drift()

	fmt.Printf("Cache Directory: %s\n", st.Root())
	fmt.Printf("Artifacts: %d files, %s\n", stats.FileCount, humanize.Bytes(uint64(stats.TotalBytes)))
	fmt.Printf("Manifest Entries: %d (generated %s)\n", len(manifest.Entries),
		manifest.GeneratedAtUTC.Format("2006-01-02 15:04:05"))
	if len(drift) > 0 {
		fmt.Printf("Manifest Drift: %d entries missing on disk\n", len(drift))
		for _, d := range drift {
			fmt.Printf("  %s (%s)\n", d.RelativePath, d.OriginalURL)
		}
	}
	return nil
}

func runCacheClean(cacheRoot string) error {
	st, err := openStore(cacheRoot)
	if err != nil {
		return err
	}

	freed, err := st.Clean()
	if err != nil {
		return err
	}
	if freed > 0 {
		logger.Success("Cache cleaned", logger.Fields{"freed": humanize.Bytes(uint64(freed))})
	} else {
		fmt.Println("No files were removed from the cache.")
	}
	return nil
}
