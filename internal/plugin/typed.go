package plugin

import (
	"context"
	"errors"
	"fmt"
	"iter"
)

// ErrUnresolvedType reports that a column declared a symbolic type the
// session profile does not define. Distinct from a column with no
// declared type, which reflects as (nil, nil).
var ErrUnresolvedType = errors.New("declared type not resolved by profile")

// Typed is the embeddable base for plugins with standardized table
// output. It exposes the class header and profile-aware type reflection;
// the concrete plugin supplies Collect and a one-line Render through
// RenderTable.
type Typed struct {
	Base
}

// Header returns the class's declared table schema.
func (t *Typed) Header() *Header { return t.Base.class.Header }

// Reflect returns the concrete structural type backing a column: the
// literal declared type, or the type resolved by name from the session
// profile at call time. An unknown column is an error; a column with no
// declared type returns (nil, nil); a declared type the profile cannot
// resolve returns ErrUnresolvedType.
func (t *Typed) Reflect(column string) (any, error) {
	col, ok := t.Header().ByCName(column)
	if !ok {
		return nil, fmt.Errorf("plugin %q has no column %q", t.class.Name, column)
	}
	if col.Type.IsZero() {
		return nil, nil
	}
	resolved, ok := col.Type.Resolve(t.Profile)
	if !ok {
		return nil, fmt.Errorf("column %q: %w", column, ErrUnresolvedType)
	}
	return resolved, nil
}

// RenderTable is the default render contract: the schema as a header,
// then each collected row in order. cmd must declare a schema and
// collect rows.
func RenderTable(ctx context.Context, cmd Command, r Renderer) error {
	schema, ok := cmd.(HasSchema)
	if !ok {
		return fmt.Errorf("plugin %q declares no table schema", cmd.Class().Name)
	}
	collector, ok := cmd.(Collector)
	if !ok {
		return fmt.Errorf("plugin %q does not collect rows", cmd.Class().Name)
	}

	if err := r.TableHeader(schema.Header()); err != nil {
		return err
	}
	for row := range collector.Collect(ctx) {
		if err := r.TableRow(row...); err != nil {
			return err
		}
	}
	return nil
}

// CollectDicts maps each collected row's positional values onto the
// schema's cnames, preserving collection order.
func CollectDicts(ctx context.Context, cmd Command) (iter.Seq[map[string]any], error) {
	schema, ok := cmd.(HasSchema)
	if !ok {
		return nil, fmt.Errorf("plugin %q declares no table schema", cmd.Class().Name)
	}
	collector, ok := cmd.(Collector)
	if !ok {
		return nil, fmt.Errorf("plugin %q does not collect rows", cmd.Class().Name)
	}

	header := schema.Header()
	return func(yield func(map[string]any) bool) {
		for row := range collector.Collect(ctx) {
			if !yield(header.Dictify(row)) {
				return
			}
		}
	}, nil
}
