// Package output serializes link trees, visited lists and skipped-URL
// reports for the CLI.
package output

import (
	"fmt"
	"io"
	"strings"
)

// Format represents output format types.
type Format string

const (
	FormatJSON  Format = "json"
	FormatJSONL Format = "jsonl"
	FormatYAML  Format = "yaml"
)

// ParseFormat resolves a user-supplied format name. "yml" is accepted as an
// alias for yaml and the empty string selects JSON.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "json":
		return FormatJSON, nil
	case "jsonl", "ndjson":
		return FormatJSONL, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", name)
	}
}

// FormatFromPath guesses the format from a file extension, falling back to
// JSON.
func FormatFromPath(path string) Format {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".yaml"), strings.HasSuffix(lower, ".yml"):
		return FormatYAML
	case strings.HasSuffix(lower, ".jsonl"), strings.HasSuffix(lower, ".ndjson"):
		return FormatJSONL
	default:
		return FormatJSON
	}
}

// Writer handles output serialization.
type Writer interface {
	// Write outputs a single record.
	Write(data any) error

	// WriteAll outputs multiple records.
	WriteAll(data []any) error

	// Flush ensures all data is written.
	Flush() error

	// Close releases resources.
	Close() error
}

// WriterOption configures a writer.
type WriterOption func(*writerConfig)

type writerConfig struct {
	pretty  bool
	indent  string
	asArray bool
}

// WithPretty enables pretty-printing.
func WithPretty(enabled bool) WriterOption {
	return func(c *writerConfig) {
		c.pretty = enabled
	}
}

// WithIndent sets the indentation string.
func WithIndent(indent string) WriterOption {
	return func(c *writerConfig) {
		c.indent = indent
	}
}

// WithArray makes buffered writers emit a list even when a single record
// was written. Lists such as visited URLs need this so that one entry does
// not change the document shape.
func WithArray(enabled bool) WriterOption {
	return func(c *writerConfig) {
		c.asArray = enabled
	}
}

// NewWriter creates a writer for the specified format.
func NewWriter(w io.Writer, format Format, opts ...WriterOption) (Writer, error) {
	cfg := &writerConfig{
		pretty: true,
		indent: "  ",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	switch format {
	case FormatJSON:
		jw := NewJSONWriter(w, cfg.pretty, cfg.indent)
		jw.asArray = cfg.asArray
		return jw, nil
	case FormatJSONL:
		return NewJSONLWriter(w), nil
	case FormatYAML:
		yw := NewYAMLWriter(w)
		yw.asArray = cfg.asArray
		return yw, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}
