package commands

import (
	"github.com/spf13/cobra"

	"github.com/jmylchreest/sitetree/internal/config"
	"github.com/jmylchreest/sitetree/internal/output"
	"github.com/jmylchreest/sitetree/internal/service"
	"github.com/jmylchreest/sitetree/internal/snapshot"
	"github.com/jmylchreest/sitetree/internal/store"
	"github.com/jmylchreest/sitetree/pkg/linktree"
)

// addTreeFlags registers the tree-shaping flags shared by build and merge.
func addTreeFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.Bool("folder-first", true, "place nodes with children before leaves (default from config)")
	flags.String("order", "", "sibling order: page, alphabetical (default from config)")
	flags.Bool("no-extracted-links", false, "do not attach extracted links to nodes")
	flags.Bool("include-external", false, "keep external extracted links in the output")
	flags.Bool("include-media", false, "keep media extracted links in the output")
}

// treeRequest turns a snapshot and the tree flags into a service request.
// Flags left unset fall back to the configured defaults.
func treeRequest(cmd *cobra.Command, snap *snapshot.Snapshot) service.Request {
	req := service.RequestFromSnapshot(snap)

	if cmd.Flags().Changed("folder-first") {
		folderFirst, _ := cmd.Flags().GetBool("folder-first")
		req.FolderFirst = &folderFirst
	}
	if order, _ := cmd.Flags().GetString("order"); order != "" {
		req.LinksOrder = linktree.LinksOrder(order)
	}
	if noLinks, _ := cmd.Flags().GetBool("no-extracted-links"); noLinks {
		include := false
		req.IncludeExtractedLinks = &include
	}
	return req
}

// newLocalService returns a service over st configured from cfg. The CLI
// works on files, so st is an in-memory store seeded by the caller.
func newLocalService(cfg *config.Config, st store.Store) *service.Service {
	return service.New(st, service.WithTreeConfig(cfg.Tree))
}

// writeTree narrows the extracted links per the flags and writes the tree.
func writeTree(cmd *cobra.Command, tree *linktree.Tree) error {
	noLinks, _ := cmd.Flags().GetBool("no-extracted-links")
	includeExternal, _ := cmd.Flags().GetBool("include-external")
	includeMedia, _ := cmd.Flags().GetBool("include-media")

	view := linktree.ProcessExtractedLinks(tree, !noLinks, &linktree.LinkOptions{
		IncludeExternal: includeExternal,
		IncludeMedia:    includeMedia,
	})

	w, format, closeOut, err := openOutput(cmd)
	if err != nil {
		return err
	}
	if err := output.WriteTree(w, format, view); err != nil {
		_ = closeOut()
		return err
	}
	return closeOut()
}
