package commands

import (
	"github.com/spf13/cobra"

	"github.com/jmylchreest/sitetree/internal/output"
	"github.com/jmylchreest/sitetree/pkg/linktree"
)

var visitedCmd = &cobra.Command{
	Use:   "visited",
	Short: "List the visited URLs recorded in a tree",
	Long: `Print every URL in a tree that carries a visit time, in breadth-first
order. Feed the result back to the crawler to skip recently fetched pages.

Examples:
  sitetree visited -t tree.json
  sitetree visited -t tree.json --format jsonl -o visited.jsonl`,
	RunE: runVisited,
}

func init() {
	rootCmd.AddCommand(visitedCmd)

	visitedCmd.Flags().StringP("tree", "t", "", "tree file, json or yaml (required)")
	_ = visitedCmd.MarkFlagRequired("tree")
	addOutputFlags(visitedCmd, "jsonl, json, yaml")
}

func runVisited(cmd *cobra.Command, args []string) error {
	if _, err := loadConfig(); err != nil {
		return err
	}

	treePath, _ := cmd.Flags().GetString("tree")
	tree, err := readTreeFile(treePath)
	if err != nil {
		return err
	}

	visited := linktree.ExtractVisitedURLs(tree)

	w, format, closeOut, err := openOutput(cmd)
	if err != nil {
		return err
	}
	if err := output.WriteVisited(w, format, visited); err != nil {
		_ = closeOut()
		return err
	}
	if err := closeOut(); err != nil {
		return err
	}

	logInfo("%d of %d URLs visited", len(visited), linktree.CountNodes(tree))
	return nil
}
