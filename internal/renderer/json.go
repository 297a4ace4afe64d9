package renderer

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/recollectlabs/recollect/internal/plugin"
)

// JSON renders declared tables as one JSON document: the schema's cnames
// followed by each row keyed by cname.
type JSON struct {
	w      io.Writer
	header *plugin.Header
	doc    jsonDocument
}

type jsonDocument struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

var _ plugin.Renderer = (*JSON)(nil)

// NewJSON creates a JSON renderer writing to w.
func NewJSON(w io.Writer) *JSON {
	return &JSON{w: w, doc: jsonDocument{Rows: []map[string]any{}}}
}

// TableHeader records the schema.
func (r *JSON) TableHeader(h *plugin.Header) error {
	r.header = h
	for _, col := range h.Columns() {
		r.doc.Columns = append(r.doc.Columns, col.CName)
	}
	return nil
}

// TableRow buffers one row keyed by cname. Values without a native JSON
// representation render through their String method.
func (r *JSON) TableRow(values ...any) error {
	if r.header == nil {
		return fmt.Errorf("json renderer: TableRow before TableHeader")
	}
	row := r.header.Dictify(plugin.Row(values))
	for key, value := range row {
		if s, ok := value.(fmt.Stringer); ok {
			row[key] = s.String()
		}
	}
	r.doc.Rows = append(r.doc.Rows, row)
	return nil
}

// Flush writes the buffered document. Call once after rendering.
func (r *JSON) Flush() error {
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	return enc.Encode(r.doc)
}
