package commands

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/sitetree/internal/logger"
	"github.com/jmylchreest/sitetree/internal/store"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build a link tree from a crawl snapshot",
	Long: `Build a fresh link tree from the links in a crawl snapshot.

The snapshot may be YAML or JSON carrying the links together with the
per-URL caches (visit times, metadata, extracted links, errors, skipped
URLs), or a plain text file with one link per line.

Examples:
  # Build from a YAML snapshot
  sitetree build -i snapshot.yaml -o tree.json

  # Build from a link list, sorted alphabetically
  sitetree build -i links.txt --root https://example.com --order alphabetical

  # Keep external links found on each page
  sitetree build -i snapshot.json --include-external --format yaml`,
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)

	addSnapshotFlags(buildCmd)
	addTreeFlags(buildCmd)
	addOutputFlags(buildCmd, "json, jsonl, yaml")
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	snap, err := loadSnapshot(cmd, "")
	if err != nil {
		return err
	}

	st := store.NewMemoryStore()
	defer func() { _ = st.Close() }()

	tree, err := newLocalService(cfg, st).Build(ctx, treeRequest(cmd, snap))
	if err != nil {
		logger.Error("failed to build tree", "root_url", snap.RootURL, "error", err)
		return err
	}

	if err := writeTree(cmd, tree); err != nil {
		return err
	}

	logInfo("Built tree for %s: %s URLs from %s links in %s",
		tree.URL,
		humanize.Comma(int64(tree.TotalURLs)),
		humanize.Comma(int64(len(snap.Links))),
		tree.ExecutionTime)
	return nil
}
