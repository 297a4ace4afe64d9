// Package renderer provides the built-in output sinks plugins render
// into: a human-oriented text table and a machine-oriented JSON stream.
// Plugins only ever see the plugin.Renderer interface.
package renderer

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/recollectlabs/recollect/internal/plugin"
)

var headerStyle = lipgloss.NewStyle().Bold(true)

// Text renders declared tables as aligned text columns.
type Text struct {
	tab    *tabwriter.Writer
	header *plugin.Header
	width  int
	color  bool
}

var _ plugin.Renderer = (*Text)(nil)

// NewText creates a text renderer writing to w. When w is a terminal the
// renderer picks up its width and styles the header row.
func NewText(w io.Writer) *Text {
	r := &Text{tab: tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil {
			r.width = width
		}
		r.color = true
	}
	return r
}

// TableHeader writes the schema's column labels.
func (r *Text) TableHeader(h *plugin.Header) error {
	r.header = h
	labels := make([]string, 0, h.Len())
	for _, col := range h.Columns() {
		label := col.Name
		if label == "" {
			label = col.CName
		}
		if r.color {
			label = headerStyle.Render(label)
		}
		labels = append(labels, label)
	}
	_, err := fmt.Fprintln(r.tab, strings.Join(labels, "\t"))
	return err
}

// TableRow writes one row, values in schema-column order.
func (r *Text) TableRow(values ...any) error {
	cells := make([]string, 0, len(values))
	for i, value := range values {
		cells = append(cells, r.format(i, value))
	}
	_, err := fmt.Fprintln(r.tab, strings.Join(cells, "\t"))
	return err
}

// Flush completes the table. Call once after rendering.
func (r *Text) Flush() error {
	return r.tab.Flush()
}

func (r *Text) format(column int, value any) string {
	if r.header != nil && column < r.header.Len() {
		col := r.header.Columns()[column]
		if col.Type.Name() == "address" {
			if addr, ok := asUint64(value); ok {
				return fmt.Sprintf("%#x", addr)
			}
		}
	}
	return fmt.Sprintf("%v", value)
}

func asUint64(value any) (uint64, bool) {
	switch v := value.(type) {
	case uint64:
		return v, true
	case uint32:
		return uint64(v), true
	case int64:
		if v >= 0 {
			return uint64(v), true
		}
	case int:
		if v >= 0 {
			return uint64(v), true
		}
	}
	return 0, false
}
