package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/sitetree/internal/logger"
	"github.com/jmylchreest/sitetree/internal/store"
	"github.com/jmylchreest/sitetree/pkg/linktree"
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge a crawl snapshot into an existing link tree",
	Long: `Merge the links of a crawl snapshot into a tree written by an earlier
build or merge. Known URLs are left in place; missing metadata, extracted
links and errors are filled in from the snapshot. A missing tree file is
treated as an empty tree.

Examples:
  # Update a tree in place
  sitetree merge -t tree.json -i snapshot-2.yaml -o tree.json

  # Merge a plain link list; the root comes from the tree
  sitetree merge -t tree.yaml -i new-links.txt`,
	RunE: runMerge,
}

func init() {
	rootCmd.AddCommand(mergeCmd)

	mergeCmd.Flags().StringP("tree", "t", "", "existing tree file, json or yaml (required)")
	_ = mergeCmd.MarkFlagRequired("tree")

	addSnapshotFlags(mergeCmd)
	addTreeFlags(mergeCmd)
	addOutputFlags(mergeCmd, "json, jsonl, yaml")
}

func runMerge(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	treePath, _ := cmd.Flags().GetString("tree")
	existing, err := readTreeFile(treePath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		logger.Info("tree file not found, building a new tree", "path", treePath)
		existing = nil
	case err != nil:
		return err
	}

	rootFallback := ""
	before := 0
	if existing != nil {
		rootFallback = existing.RootURL
		if rootFallback == "" {
			rootFallback = existing.URL
		}
		before = linktree.CountNodes(existing)
	}

	snap, err := loadSnapshot(cmd, rootFallback)
	if err != nil {
		return err
	}

	st := store.NewMemoryStore()
	defer func() { _ = st.Close() }()

	if existing != nil {
		root, err := linktree.NewNormalizer().NormalizeURL(snap.RootURL, snap.RootURL, true)
		if err != nil {
			return fmt.Errorf("invalid root url: %w", err)
		}
		if existing.URL != root {
			return fmt.Errorf("tree %s does not belong to root %s", existing.URL, root)
		}
		if err := st.Save(ctx, root, existing); err != nil {
			return err
		}
	}

	tree, err := newLocalService(cfg, st).Merge(ctx, treeRequest(cmd, snap))
	if err != nil {
		logger.Error("failed to merge tree", "root_url", snap.RootURL, "error", err)
		return err
	}

	if err := writeTree(cmd, tree); err != nil {
		return err
	}

	logInfo("Merged %s links into %s: %s new URLs, %s total",
		humanize.Comma(int64(len(snap.Links))),
		tree.URL,
		humanize.Comma(int64(tree.TotalURLs-before)),
		humanize.Comma(int64(tree.TotalURLs)))
	return nil
}
