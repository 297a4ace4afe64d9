package plugin

import (
	"fmt"
	"reflect"

	"github.com/recollectlabs/recollect/internal/profile"
)

// TypeRef is a two-stage type reference for a column: either a concrete
// Go type, or the symbolic name of a profile-resolved type looked up
// lazily at reflect time. The zero value means no type was declared.
type TypeRef struct {
	name     string
	concrete reflect.Type
}

// TypeName references a profile type (or a semantic tag such as
// "address") by name.
func TypeName(name string) TypeRef {
	return TypeRef{name: name}
}

// TypeOf references the concrete type of v.
func TypeOf(v any) TypeRef {
	return TypeRef{concrete: reflect.TypeOf(v)}
}

// IsZero reports whether no type was declared.
func (t TypeRef) IsZero() bool {
	return t.name == "" && t.concrete == nil
}

// Name returns the type's display name.
func (t TypeRef) Name() string {
	if t.concrete != nil {
		return t.concrete.String()
	}
	return t.name
}

// Concrete returns the declared concrete Go type, if any.
func (t TypeRef) Concrete() (reflect.Type, bool) {
	return t.concrete, t.concrete != nil
}

// Resolve returns the structural type backing the reference. Concrete
// references resolve to their reflect.Type; symbolic references resolve
// through p. ok is false when the profile does not define the name (or no
// profile is available), which is not the same as no type being declared.
func (t TypeRef) Resolve(p profile.Profile) (any, bool) {
	if t.concrete != nil {
		return t.concrete, true
	}
	if t.name == "" || p == nil {
		return nil, false
	}
	st, ok := p.ResolveType(t.name)
	if !ok {
		return nil, false
	}
	return st, true
}

// Column specifies one output column: a stable machine key, an optional
// human label, and an optional type.
type Column struct {
	CName string
	Name  string
	Type  TypeRef
}

// Header is the ahead-of-time declaration of a plugin's output columns,
// independent of any particular run's data.
type Header struct {
	columns []Column
	byCName map[string]int
	byName  map[string]int
}

// NewHeader validates and builds a header. Missing or duplicate cnames
// are construction errors.
func NewHeader(columns ...Column) (*Header, error) {
	h := &Header{
		columns: append([]Column(nil), columns...),
		byCName: make(map[string]int, len(columns)),
		byName:  make(map[string]int, len(columns)),
	}
	for i, col := range columns {
		if col.CName == "" {
			return nil, fmt.Errorf("table header %v: column %d has no cname", columns, i)
		}
		if _, dup := h.byCName[col.CName]; dup {
			return nil, fmt.Errorf("table header %v: duplicate cname %q", columns, col.CName)
		}
		h.byCName[col.CName] = i
		if col.Name != "" {
			h.byName[col.Name] = i
		}
	}
	return h, nil
}

// MustHeader is NewHeader for class definitions, where schema errors are
// fatal at definition time.
func MustHeader(columns ...Column) *Header {
	h, err := NewHeader(columns...)
	if err != nil {
		panic(err)
	}
	return h
}

// Columns returns the ordered column specifications.
func (h *Header) Columns() []Column {
	return append([]Column(nil), h.columns...)
}

// Len returns the schema arity.
func (h *Header) Len() int { return len(h.columns) }

// ByCName returns the column with the given machine key.
func (h *Header) ByCName(cname string) (Column, bool) {
	idx, ok := h.byCName[cname]
	if !ok {
		return Column{}, false
	}
	return h.columns[idx], true
}

// FindColumn resolves a column by cname first, falling back to the human
// name.
func (h *Header) FindColumn(name string) (Column, bool) {
	if col, ok := h.ByCName(name); ok {
		return col, true
	}
	idx, ok := h.byName[name]
	if !ok {
		return Column{}, false
	}
	return h.columns[idx], true
}

// AllNames returns the union of cnames and human names, sorted order not
// guaranteed.
func (h *Header) AllNames() []string {
	seen := make(map[string]struct{}, len(h.byCName)+len(h.byName))
	var names []string
	for _, col := range h.columns {
		if _, ok := seen[col.CName]; !ok {
			seen[col.CName] = struct{}{}
			names = append(names, col.CName)
		}
		if col.Name != "" {
			if _, ok := seen[col.Name]; !ok {
				seen[col.Name] = struct{}{}
				names = append(names, col.Name)
			}
		}
	}
	return names
}

// TypesInOutput returns the display names of every declared column type.
// Discovery tooling uses this to answer "which plugins produce type T".
func (h *Header) TypesInOutput() []string {
	var types []string
	for _, col := range h.columns {
		if !col.Type.IsZero() {
			types = append(types, col.Type.Name())
		}
	}
	return types
}

// Dictify maps a row's positional values onto the schema's cnames.
func (h *Header) Dictify(row Row) map[string]any {
	result := make(map[string]any, len(h.columns))
	for i, value := range row {
		if i >= len(h.columns) {
			break
		}
		result[h.columns[i].CName] = value
	}
	return result
}
