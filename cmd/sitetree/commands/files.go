package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jmylchreest/sitetree/internal/logger"
	"github.com/jmylchreest/sitetree/internal/output"
	"github.com/jmylchreest/sitetree/internal/snapshot"
	"github.com/jmylchreest/sitetree/pkg/linktree"
)

// addSnapshotFlags registers the flags shared by commands that read a
// crawl snapshot.
func addSnapshotFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringP("input", "i", "", "crawl snapshot: .yaml, .json or .txt link list (required)")
	flags.String("root", "", "root URL (overrides the snapshot's rootUrl)")
	flags.String("max-input-size", "50MB", "max snapshot size (e.g., 500KB, 50MB)")
	_ = cmd.MarkFlagRequired("input")
}

// addOutputFlags registers -o and --format.
func addOutputFlags(cmd *cobra.Command, formats string) {
	flags := cmd.Flags()
	flags.StringP("output", "o", "", "output file (default: stdout)")
	flags.String("format", "", "output format: "+formats+" (default: from output extension, else json)")
}

// loadSnapshot reads the snapshot named by --input. rootFallback is used
// when neither --root nor the snapshot provide a root URL.
func loadSnapshot(cmd *cobra.Command, rootFallback string) (*snapshot.Snapshot, error) {
	path, _ := cmd.Flags().GetString("input")
	root, _ := cmd.Flags().GetString("root")
	sizeStr, _ := cmd.Flags().GetString("max-input-size")

	maxSize, err := humanize.ParseBytes(sizeStr)
	if err != nil {
		return nil, fmt.Errorf("invalid max-input-size %q: %w", sizeStr, err)
	}

	if root == "" && snapshot.FormatFromPath(path) == snapshot.FormatText {
		root = rootFallback
	}

	if info, err := os.Stat(path); err == nil {
		logger.Debug("loading snapshot", "path", path, "size", humanize.Bytes(uint64(info.Size())))
	}

	snap, err := snapshot.Load(path, snapshot.LoadOptions{MaxSize: maxSize, RootURL: root})
	if err != nil {
		return nil, err
	}
	logger.Debug("snapshot loaded",
		"root_url", snap.RootURL,
		"links", len(snap.Links),
		"skipped", len(snap.Skipped))
	return snap, nil
}

// readTreeFile loads a tree written by an earlier build or merge.
func readTreeFile(path string) (*linktree.Tree, error) {
	f, err := os.Open(path) //#nosec G304 -- CLI tool reads user-specified tree file
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	tree, err := output.ReadTree(f, output.FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return tree, nil
}

// openOutput resolves --output and --format. The returned close function
// must be called once writing is done.
func openOutput(cmd *cobra.Command) (io.Writer, output.Format, func() error, error) {
	outPath, _ := cmd.Flags().GetString("output")
	formatStr, _ := cmd.Flags().GetString("format")

	format := output.FormatJSON
	if strings.TrimSpace(formatStr) != "" {
		f, err := output.ParseFormat(formatStr)
		if err != nil {
			return nil, "", nil, err
		}
		format = f
	} else if outPath != "" {
		format = output.FormatFromPath(outPath)
	}

	if outPath == "" {
		return cmd.OutOrStdout(), format, func() error { return nil }, nil
	}

	f, err := os.Create(outPath) //#nosec G304 -- CLI tool writes to user-specified output file
	if err != nil {
		return nil, "", nil, fmt.Errorf("creating output file: %w", err)
	}
	return f, format, f.Close, nil
}
