package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/veschin/d2-web-extension-sub000/internal/cache"
	"github.com/veschin/d2-web-extension-sub000/internal/config"
	"github.com/veschin/d2-web-extension-sub000/internal/index"
)

var indexCmd = &cobra.Command{
	Use:   "index [dir]",
	Short: "Index the diagram fragments under a directory",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIndex,
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search indexed fragments by name or label",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func init() {
	for _, cmd := range []*cobra.Command{indexCmd, searchCmd} {
		cmd.Flags().String("db", "", "fragment database (default: per-workspace state file)")
	}
	searchCmd.Flags().Int("limit", 50, "maximum number of results")
}

// openIndexer opens the fragment store of the workspace at root.
func openIndexer(cmd *cobra.Command, root string) (*index.Indexer, func(), error) {
	cfg, err := loadConfig(cmd, root)
	if err != nil {
		return nil, nil, err
	}
	db, err := cmd.Flags().GetString("db")
	if err != nil {
		return nil, nil, err
	}
	if db != "" {
		cfg.CachePath = db
	}
	if cfg.CachePath == config.MemoryCache {
		return nil, nil, fmt.Errorf("an in-memory cache cannot be shared between commands")
	}
	path, err := cfg.CacheFile(root)
	if err != nil {
		return nil, nil, err
	}
	store, err := cache.Open(path, cfg.CacheSize)
	if err != nil {
		return nil, nil, err
	}
	log.Debugf("fragment database %s", path)
	return index.New(store, backendFor(cfg), cfg.Extensions), func() { store.Close() }, nil
}

func runIndex(cmd *cobra.Command, args []string) error {
	root, err := os.Getwd()
	if err != nil {
		return err
	}
	if len(args) == 1 {
		root = args[0]
	}
	ix, done, err := openIndexer(cmd, root)
	if err != nil {
		return err
	}
	defer done()

	stats, err := ix.IndexRoot(cmd.Context(), root)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d indexed, %d unchanged, %d removed\n", stats.Indexed, stats.Skipped, stats.Removed)
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	root, err := os.Getwd()
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}
	ix, done, err := openIndexer(cmd, root)
	if err != nil {
		return err
	}
	defer done()

	hits, err := ix.Search(args[0], limit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, h := range hits {
		fmt.Fprintf(out, "%s:%d: %s", h.Path, h.StartLine+1, nameColor.Sprint(h.Name))
		if h.Label != "" {
			fmt.Fprintf(out, " %s", labelColor.Sprintf("%q", h.Label))
		}
		fmt.Fprintf(out, " %s\n", metaColor.Sprintf("[%s]", h.Metadata.Category))
	}
	return nil
}
