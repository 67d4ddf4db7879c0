// Package snapshot reads crawl snapshot files: the links discovered for a
// root URL together with the per-URL caches a crawl worker collected.
package snapshot

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/sitetree/internal/validation"
	"github.com/jmylchreest/sitetree/pkg/linktree"
)

// DefaultMaxSize bounds snapshot files when no limit is configured.
const DefaultMaxSize = 50 * humanize.MByte

// ErrTooLarge is returned when a snapshot exceeds the configured size.
var ErrTooLarge = errors.New("snapshot too large")

// Format identifies a snapshot encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Snapshot is the crawl output for one root URL. All maps are keyed by
// normalized URL.
type Snapshot struct {
	RootURL        string                              `json:"rootUrl" yaml:"rootUrl" validate:"required,http_url"`
	Links          []string                            `json:"links,omitempty" yaml:"links,omitempty"`
	Visited        []linktree.VisitedURL               `json:"visited,omitempty" yaml:"visited,omitempty"`
	Metadata       map[string]*linktree.PageMetadata   `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	CleanedHTML    map[string]string                   `json:"cleanedHtml,omitempty" yaml:"cleanedHtml,omitempty"`
	ExtractedLinks map[string]*linktree.ExtractedLinks `json:"extractedLinks,omitempty" yaml:"extractedLinks,omitempty"`
	Errors         map[string]string                   `json:"errors,omitempty" yaml:"errors,omitempty"`
	Skipped        map[string]string                   `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

// LoadOptions configures Load.
type LoadOptions struct {
	// MaxSize is the largest accepted file in bytes; zero selects DefaultMaxSize.
	MaxSize uint64

	// RootURL overrides the snapshot's rootUrl when set.
	RootURL string
}

// FormatFromPath picks the decoder for path by extension. Unknown
// extensions are treated as YAML, which also accepts JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".txt", ".lst":
		return FormatText
	default:
		return FormatYAML
	}
}

// Load reads, decodes and validates the snapshot at path.
func Load(path string, opts LoadOptions) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	snap, err := Decode(f, FormatFromPath(path), opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return snap, nil
}

// Decode reads a snapshot in the given format from r.
func Decode(r io.Reader, format Format, opts LoadOptions) (*Snapshot, error) {
	limit := opts.MaxSize
	if limit == 0 {
		limit = DefaultMaxSize
	}

	data, err := io.ReadAll(io.LimitReader(r, int64(limit)+1))
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	if uint64(len(data)) > limit {
		return nil, fmt.Errorf("%w: exceeds %s", ErrTooLarge, humanize.Bytes(limit))
	}

	snap := &Snapshot{}
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, snap); err != nil {
			return nil, fmt.Errorf("decoding json snapshot: %w", err)
		}
	case FormatText:
		snap.Links = parseLinkList(data)
	case FormatYAML:
		if err := yaml.Unmarshal(data, snap); err != nil {
			return nil, fmt.Errorf("decoding yaml snapshot: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported snapshot format: %s", format)
	}

	if opts.RootURL != "" {
		snap.RootURL = opts.RootURL
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return snap, nil
}

// parseLinkList reads one link per line, ignoring blank lines and lines
// starting with '#'.
func parseLinkList(data []byte) []string {
	var links []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		links = append(links, line)
	}
	return links
}

var validate = validation.New()

// Validate checks that the snapshot names a usable root URL.
func (s *Snapshot) Validate() error {
	if err := validation.Struct(validate, s); err != nil {
		return fmt.Errorf("invalid snapshot: %w", err)
	}
	return nil
}

// TreeOptions converts the snapshot caches into linktree options.
func (s *Snapshot) TreeOptions() []linktree.Option {
	return []linktree.Option{
		linktree.WithVisited(s.Visited),
		linktree.WithMetadata(s.Metadata),
		linktree.WithCleanedHTML(s.CleanedHTML),
		linktree.WithExtractedLinks(s.ExtractedLinks),
		linktree.WithErrors(s.Errors),
	}
}
