package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"

	"github.com/jacentio/syllabus/schema"
)

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
}

func newFormatter(opts *RootOptions, w, errw io.Writer) *OutputFormatter {
	return &OutputFormatter{Format: opts.Format, Writer: w, ErrWriter: errw}
}

// JSON writes v as indented JSON.
func (f *OutputFormatter) JSON(v any) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Textf writes a line of text output.
func (f *OutputFormatter) Textf(format string, args ...any) {
	fmt.Fprintf(f.Writer, format+"\n", args...)
}

// Notef writes a diagnostic line to the error writer.
func (f *OutputFormatter) Notef(format string, args ...any) {
	fmt.Fprintf(f.ErrWriter, format+"\n", args...)
}

// itemPage is the JSON form of a list result.
type itemPage struct {
	Items     []map[string]any `json:"items"`
	NextToken string           `json:"nextToken,omitempty"`
	Degraded  bool             `json:"degraded,omitempty"`
	Errors    []string         `json:"errors,omitempty"`
}

// Items writes a page of items.
func (f *OutputFormatter) Items(items []schema.Item, next string, degraded bool, swallowed []error) error {
	if f.Format == "json" {
		page := itemPage{Items: make([]map[string]any, 0, len(items)), NextToken: next, Degraded: degraded}
		for _, item := range items {
			m, err := plain(item)
			if err != nil {
				return err
			}
			page.Items = append(page.Items, m)
		}
		for _, err := range swallowed {
			page.Errors = append(page.Errors, err.Error())
		}
		return f.JSON(page)
	}

	for _, item := range items {
		f.Textf("%s", formatItem(item))
	}
	if next != "" {
		f.Textf("next: %s", next)
	}
	f.degraded(degraded, swallowed)
	return nil
}

// Item writes a single item, or a not-found note.
func (f *OutputFormatter) Item(item schema.Item, degraded bool, swallowed []error) error {
	if f.Format == "json" {
		var m map[string]any
		if item != nil {
			var err error
			if m, err = plain(item); err != nil {
				return err
			}
		}
		return f.JSON(struct {
			Item     map[string]any `json:"item"`
			Degraded bool           `json:"degraded,omitempty"`
		}{m, degraded})
	}

	if item == nil {
		f.Textf("not found")
	} else {
		f.Textf("%s", formatItem(item))
	}
	f.degraded(degraded, swallowed)
	return nil
}

func (f *OutputFormatter) degraded(degraded bool, swallowed []error) {
	if !degraded {
		return
	}
	f.Notef("degraded: served from fallback dataset")
	for _, err := range swallowed {
		f.Notef("  live error: %v", err)
	}
}

// plain converts an item to Go values for JSON encoding.
func plain(item schema.Item) (map[string]any, error) {
	var m map[string]any
	if err := attributevalue.UnmarshalMap(item, &m); err != nil {
		return nil, fmt.Errorf("decode item: %w", err)
	}
	return m, nil
}

// formatItem renders attr=value pairs in name order.
func formatItem(item schema.Item) string {
	names := make([]string, 0, len(item))
	for k := range item {
		names = append(names, k)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, k := range names {
		parts[i] = k + "=" + schema.FormatValue(item[k])
	}
	return strings.Join(parts, " ")
}
