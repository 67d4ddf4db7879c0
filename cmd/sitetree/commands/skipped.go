package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/sitetree/internal/output"
	"github.com/jmylchreest/sitetree/pkg/linktree"
)

var skippedCmd = &cobra.Command{
	Use:   "skipped",
	Short: "Categorize the URLs a crawl skipped",
	Long: `Sort the snapshot's skipped URLs into internal, external, media and other
buckets relative to the root URL. URLs that failed with an error are
reported on their tree node instead and left out here.

Examples:
  sitetree skipped -i snapshot.yaml
  sitetree skipped -i snapshot.yaml -t tree.json --format jsonl`,
	RunE: runSkipped,
}

func init() {
	rootCmd.AddCommand(skippedCmd)

	skippedCmd.Flags().StringP("tree", "t", "", "tree whose error nodes are excluded (default: built from the snapshot)")
	addSnapshotFlags(skippedCmd)
	addOutputFlags(skippedCmd, "json, jsonl, yaml")
}

func runSkipped(cmd *cobra.Command, args []string) error {
	if _, err := loadConfig(); err != nil {
		return err
	}

	var tree *linktree.Tree
	rootFallback := ""
	if treePath, _ := cmd.Flags().GetString("tree"); treePath != "" {
		t, err := readTreeFile(treePath)
		if err != nil {
			return err
		}
		tree = t
		rootFallback = t.URL
	}

	snap, err := loadSnapshot(cmd, rootFallback)
	if err != nil {
		return err
	}

	n := linktree.NewNormalizer()
	root, err := n.NormalizeURL(snap.RootURL, snap.RootURL, true)
	if err != nil {
		return fmt.Errorf("invalid root url: %w", err)
	}
	if tree == nil {
		tree = linktree.Build(snap.Links, root, n, snap.TreeOptions()...)
	}

	skipped := linktree.CategorizeSkippedURLs(snap.Skipped, root, tree.Children)

	w, format, closeOut, err := openOutput(cmd)
	if err != nil {
		return err
	}
	if err := output.WriteSkipped(w, format, skipped); err != nil {
		_ = closeOut()
		return err
	}
	if err := closeOut(); err != nil {
		return err
	}

	media := 0
	if skipped.Media != nil {
		media = len(skipped.Media.Images) + len(skipped.Media.Videos) + len(skipped.Media.Documents)
	}
	logInfo("Categorized %d skipped URLs: %d internal, %d external, %d media, %d other",
		len(snap.Skipped), len(skipped.Internal), len(skipped.External), media, len(skipped.Other))
	return nil
}
