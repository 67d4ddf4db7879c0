package output

import (
	"bufio"
	"encoding/json"
	"io"
)

// JSONWriter buffers records and writes them as one JSON document on Flush.
type JSONWriter struct {
	w       *bufio.Writer
	pretty  bool
	indent  string
	asArray bool
	items   []any
}

// NewJSONWriter creates a JSON writer.
func NewJSONWriter(w io.Writer, pretty bool, indent string) *JSONWriter {
	return &JSONWriter{
		w:      bufio.NewWriter(w),
		pretty: pretty,
		indent: indent,
		items:  make([]any, 0),
	}
}

// Write buffers a single record.
func (w *JSONWriter) Write(data any) error {
	w.items = append(w.items, data)
	return nil
}

// WriteAll buffers multiple records.
func (w *JSONWriter) WriteAll(data []any) error {
	w.items = append(w.items, data...)
	return nil
}

// Flush writes the buffered records and clears the buffer. A single record
// is written as-is unless the writer was created with WithArray.
func (w *JSONWriter) Flush() error {
	var doc any = w.items
	if len(w.items) == 1 && !w.asArray {
		doc = w.items[0]
	}

	var (
		out []byte
		err error
	)
	if w.pretty {
		out, err = json.MarshalIndent(doc, "", w.indent)
	} else {
		out, err = json.Marshal(doc)
	}
	if err != nil {
		return err
	}

	if _, err := w.w.Write(out); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}

	w.items = w.items[:0]
	return w.w.Flush()
}

// Close flushes any records written since the last Flush.
func (w *JSONWriter) Close() error {
	if len(w.items) == 0 {
		return w.w.Flush()
	}
	return w.Flush()
}

// JSONLWriter writes newline-delimited JSON (JSONL), one record per line.
type JSONLWriter struct {
	w   *bufio.Writer
	enc *json.Encoder
}

// NewJSONLWriter creates a JSONL writer.
func NewJSONLWriter(w io.Writer) *JSONLWriter {
	bw := bufio.NewWriter(w)
	return &JSONLWriter{
		w:   bw,
		enc: json.NewEncoder(bw),
	}
}

// Write encodes a single record as a JSON line.
func (w *JSONLWriter) Write(data any) error {
	return w.enc.Encode(data)
}

// WriteAll encodes multiple records as JSON lines.
func (w *JSONLWriter) WriteAll(data []any) error {
	for _, item := range data {
		if err := w.Write(item); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes the buffer.
func (w *JSONLWriter) Flush() error {
	return w.w.Flush()
}

// Close flushes the writer.
func (w *JSONLWriter) Close() error {
	return w.Flush()
}
