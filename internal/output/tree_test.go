package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/sitetree/pkg/linktree"
)

func sampleTree() *linktree.Tree {
	visited := "2026-01-01T00:00:00.000Z"
	return &linktree.Tree{
		URL:       "https://example.com",
		RootURL:   "https://example.com",
		Name:      "example.com",
		TotalURLs: 4,
		Children: []*linktree.Tree{
			{
				URL:         "https://example.com/a",
				Name:        "a",
				LastVisited: &visited,
				Metadata:    &linktree.PageMetadata{Title: "A"},
				Children: []*linktree.Tree{
					{URL: "https://example.com/a/b", Name: "b"},
				},
			},
			{URL: "https://example.com/c", Name: "c", Error: "404 Not Found"},
		},
	}
}

// --- Flatten Tests ---

func TestFlatten(t *testing.T) {
	records := Flatten(sampleTree())

	if len(records) != 4 {
		t.Fatalf("Flatten() returned %d records, want 4", len(records))
	}

	want := []struct {
		url    string
		parent string
		depth  int
	}{
		{"https://example.com", "", 0},
		{"https://example.com/a", "https://example.com", 1},
		{"https://example.com/c", "https://example.com", 1},
		{"https://example.com/a/b", "https://example.com/a", 2},
	}
	for i, w := range want {
		if records[i].URL != w.url || records[i].Parent != w.parent || records[i].Depth != w.depth {
			t.Errorf("record %d = %+v, want url=%s parent=%s depth=%d", i, records[i], w.url, w.parent, w.depth)
		}
	}

	if records[1].Title != "A" || records[1].LastVisited == "" || records[1].Children != 1 {
		t.Errorf("record a = %+v, want title, visit time and one child", records[1])
	}
	if records[2].Error != "404 Not Found" {
		t.Errorf("record c error = %q", records[2].Error)
	}
}

func TestFlatten_Nil(t *testing.T) {
	if got := Flatten(nil); got != nil {
		t.Errorf("Flatten(nil) = %+v, want nil", got)
	}
}

// --- WriteTree Tests ---

func TestWriteTree_JSON(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := WriteTree(buf, FormatJSON, sampleTree()); err != nil {
		t.Fatalf("WriteTree() error = %v", err)
	}

	var got linktree.Tree
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not a tree: %v", err)
	}
	if got.TotalURLs != 4 || len(got.Children) != 2 {
		t.Errorf("decoded tree = %+v", got)
	}
	if !strings.Contains(buf.String(), `"rootUrl": "https://example.com"`) {
		t.Errorf("expected camelCase keys in output: %s", buf.String())
	}
}

func TestWriteTree_YAML(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := WriteTree(buf, FormatYAML, sampleTree()); err != nil {
		t.Fatalf("WriteTree() error = %v", err)
	}

	var got linktree.Tree
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("output is not a tree: %v", err)
	}
	if got.Children[0].Children[0].URL != "https://example.com/a/b" {
		t.Errorf("nested node lost: %+v", got.Children[0])
	}
}

func TestWriteTree_JSONL(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := WriteTree(buf, FormatJSONL, sampleTree()); err != nil {
		t.Fatalf("WriteTree() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 lines, got %d", len(lines))
	}

	var last NodeRecord
	if err := json.Unmarshal([]byte(lines[3]), &last); err != nil {
		t.Fatalf("line is not a record: %v", err)
	}
	if last.URL != "https://example.com/a/b" || last.Depth != 2 {
		t.Errorf("last record = %+v", last)
	}
}

// --- ReadTree Tests ---

func TestReadTree_RoundTrip(t *testing.T) {
	for _, format := range []Format{FormatJSON, FormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			buf := &bytes.Buffer{}
			if err := WriteTree(buf, format, sampleTree()); err != nil {
				t.Fatalf("WriteTree() error = %v", err)
			}

			got, err := ReadTree(buf, format)
			if err != nil {
				t.Fatalf("ReadTree() error = %v", err)
			}
			if got.TotalURLs != 4 || got.Children[1].Error != "404 Not Found" {
				t.Errorf("ReadTree() = %+v", got)
			}
		})
	}
}

func TestReadTree_Errors(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		format Format
	}{
		{"jsonl unsupported", `{"url":"https://example.com"}`, FormatJSONL},
		{"malformed json", `{"url":`, FormatJSON},
		{"missing url", `{"name":"x"}`, FormatJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadTree(strings.NewReader(tt.input), tt.format); err == nil {
				t.Error("ReadTree() expected error")
			}
		})
	}
}

// --- WriteVisited Tests ---

func TestWriteVisited_SingleEntryStaysList(t *testing.T) {
	visited := []linktree.VisitedURL{{URL: "https://example.com/a", LastVisited: "t"}}

	for _, format := range []Format{FormatJSON, FormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			buf := &bytes.Buffer{}
			if err := WriteVisited(buf, format, visited); err != nil {
				t.Fatalf("WriteVisited() error = %v", err)
			}

			var got []linktree.VisitedURL
			if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
				t.Fatalf("output is not a list: %v (%s)", err, buf.String())
			}
			if len(got) != 1 || got[0].URL != "https://example.com/a" {
				t.Errorf("decoded = %+v", got)
			}
		})
	}
}

func TestWriteVisited_JSONL(t *testing.T) {
	visited := []linktree.VisitedURL{
		{URL: "https://example.com", LastVisited: "t1"},
		{URL: "https://example.com/a", LastVisited: "t2"},
	}

	buf := &bytes.Buffer{}
	if err := WriteVisited(buf, FormatJSONL, visited); err != nil {
		t.Fatalf("WriteVisited() error = %v", err)
	}

	want := `{"url":"https://example.com","lastVisited":"t1"}` + "\n" +
		`{"url":"https://example.com/a","lastVisited":"t2"}` + "\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

// --- WriteSkipped Tests ---

func TestWriteSkipped_JSONL(t *testing.T) {
	skipped := &linktree.SkippedLinks{
		Internal: []linktree.SkippedURL{{URL: "https://example.com/private", Reason: "robots"}},
		Media: &linktree.SkippedMedia{
			Images: []linktree.SkippedURL{{URL: "https://example.com/logo.png", Reason: "Media URL (image)"}},
		},
		Other: []linktree.SkippedURL{{URL: "mailto:a@example.com", Reason: "scheme"}},
	}

	buf := &bytes.Buffer{}
	if err := WriteSkipped(buf, FormatJSONL, skipped); err != nil {
		t.Fatalf("WriteSkipped() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), buf.String())
	}

	var categories []string
	for _, line := range lines {
		var rec SkippedRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("line is not a record: %v", err)
		}
		categories = append(categories, rec.Category)
	}
	if strings.Join(categories, ",") != "internal,media/images,other" {
		t.Errorf("categories = %v", categories)
	}
}

func TestWriteSkipped_NilIsEmptyObject(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := WriteSkipped(buf, FormatJSON, nil, WithPretty(false)); err != nil {
		t.Fatalf("WriteSkipped() error = %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != "{}" {
		t.Errorf("output = %q, want {}", got)
	}
}
