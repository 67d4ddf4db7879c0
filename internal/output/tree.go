package output

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/sitetree/pkg/linktree"
)

// NodeRecord is the flattened form of a tree node used for JSONL output.
type NodeRecord struct {
	URL         string `json:"url"`
	Parent      string `json:"parent,omitempty"`
	Name        string `json:"name,omitempty"`
	Depth       int    `json:"depth"`
	Children    int    `json:"children"`
	Title       string `json:"title,omitempty"`
	LastVisited string `json:"lastVisited,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Flatten lists every node of tree in breadth-first order.
func Flatten(tree *linktree.Tree) []NodeRecord {
	if tree == nil {
		return nil
	}

	type entry struct {
		node   *linktree.Tree
		parent string
		depth  int
	}

	var records []NodeRecord
	queue := []entry{{node: tree}}
	for i := 0; i < len(queue); i++ {
		e := queue[i]
		rec := NodeRecord{
			URL:      e.node.URL,
			Parent:   e.parent,
			Name:     e.node.Name,
			Depth:    e.depth,
			Children: len(e.node.Children),
			Error:    e.node.Error,
		}
		if e.node.Metadata != nil {
			rec.Title = e.node.Metadata.Title
		}
		if e.node.LastVisited != nil {
			rec.LastVisited = *e.node.LastVisited
		}
		records = append(records, rec)

		for _, child := range e.node.Children {
			queue = append(queue, entry{node: child, parent: e.node.URL, depth: e.depth + 1})
		}
	}
	return records
}

// WriteTree writes tree in the given format. JSON and YAML keep the nested
// shape; JSONL writes one NodeRecord per line.
func WriteTree(w io.Writer, format Format, tree *linktree.Tree, opts ...WriterOption) error {
	out, err := NewWriter(w, format, opts...)
	if err != nil {
		return err
	}

	if format == FormatJSONL {
		for _, rec := range Flatten(tree) {
			if err := out.Write(rec); err != nil {
				return err
			}
		}
		return out.Close()
	}

	if err := out.Write(tree); err != nil {
		return err
	}
	return out.Close()
}

// ReadTree decodes a tree previously written by WriteTree in JSON or YAML.
// JSONL output is flattened and cannot be read back.
func ReadTree(r io.Reader, format Format) (*linktree.Tree, error) {
	tree := &linktree.Tree{}
	switch format {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(tree); err != nil {
			return nil, fmt.Errorf("decoding json tree: %w", err)
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(tree); err != nil {
			return nil, fmt.Errorf("decoding yaml tree: %w", err)
		}
	default:
		return nil, fmt.Errorf("cannot read tree from %s", format)
	}
	if tree.URL == "" {
		return nil, fmt.Errorf("tree has no url")
	}
	return tree, nil
}

// WriteVisited writes a visited-URL list. JSON and YAML always produce a
// list, JSONL one entry per line.
func WriteVisited(w io.Writer, format Format, visited []linktree.VisitedURL, opts ...WriterOption) error {
	out, err := NewWriter(w, format, append(opts, WithArray(true))...)
	if err != nil {
		return err
	}

	records := make([]any, len(visited))
	for i, v := range visited {
		records[i] = v
	}
	if err := out.WriteAll(records); err != nil {
		return err
	}
	return out.Close()
}

// SkippedRecord is one categorized skipped URL in JSONL output.
type SkippedRecord struct {
	Category string `json:"category"`
	URL      string `json:"url"`
	Reason   string `json:"reason"`
}

// WriteSkipped writes a categorized skipped-URL report. JSONL writes one
// SkippedRecord per URL, with media categories prefixed "media/".
func WriteSkipped(w io.Writer, format Format, skipped *linktree.SkippedLinks, opts ...WriterOption) error {
	out, err := NewWriter(w, format, opts...)
	if err != nil {
		return err
	}

	if skipped == nil {
		skipped = &linktree.SkippedLinks{}
	}

	if format != FormatJSONL {
		if err := out.Write(skipped); err != nil {
			return err
		}
		return out.Close()
	}

	for _, g := range skippedGroups(skipped) {
		for _, u := range g.urls {
			if err := out.Write(SkippedRecord{Category: g.category, URL: u.URL, Reason: u.Reason}); err != nil {
				return err
			}
		}
	}
	return out.Close()
}

type skippedGroup struct {
	category string
	urls     []linktree.SkippedURL
}

func skippedGroups(s *linktree.SkippedLinks) []skippedGroup {
	groups := []skippedGroup{
		{"internal", s.Internal},
		{"external", s.External},
	}
	if s.Media != nil {
		groups = append(groups,
			skippedGroup{"media/images", s.Media.Images},
			skippedGroup{"media/videos", s.Media.Videos},
			skippedGroup{"media/documents", s.Media.Documents},
		)
	}
	return append(groups, skippedGroup{"other", s.Other})
}
