// Package metadata aggregates, per declared plugin name, every known
// implementation's declared requirements and arguments, and resolves
// which single implementation is active for a session. Help, completion,
// and introspection surfaces consume its serialized catalog.
package metadata

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/recollectlabs/recollect/internal/plugin"
	"github.com/recollectlabs/recollect/internal/session"
)

// CommandMetadata is a read-only snapshot of one class's declared
// requirements and arguments, built by running the class's declaration
// chain against a collecting stand-in.
type CommandMetadata struct {
	class *plugin.Class
	decl  *plugin.Declaration
}

// NewCommandMetadata snapshots the declarations of c.
func NewCommandMetadata(c *plugin.Class) *CommandMetadata {
	decl := plugin.NewDeclaration()
	c.DeclareInto(decl)
	return &CommandMetadata{class: c, decl: decl}
}

// Class returns the class this metadata describes.
func (m *CommandMetadata) Class() *plugin.Class { return m.class }

// Requirements returns the declared resource names, in declaration order.
func (m *CommandMetadata) Requirements() []string { return m.decl.Requirements() }

// Arguments returns the declared arguments, in declaration order.
func (m *CommandMetadata) Arguments() []plugin.ArgumentSpec { return m.decl.Arguments() }

// Record is the renderer-agnostic metadata shape exchanged with external
// tools. Field names are the external contract.
type Record struct {
	Name         string                `json:"name"`
	Category     string                `json:"category,omitempty"`
	Producer     bool                  `json:"producer,omitempty"`
	Interactive  bool                  `json:"interactive,omitempty"`
	Requirements []string              `json:"requirements"`
	Arguments    []plugin.ArgumentSpec `json:"arguments"`
}

// Record serializes the snapshot.
func (m *CommandMetadata) Record() Record {
	return Record{
		Name:         m.class.Name,
		Category:     m.class.Category,
		Producer:     m.class.Producer,
		Interactive:  m.class.Interactive,
		Requirements: m.Requirements(),
		Arguments:    m.Arguments(),
	}
}

// AmbiguousActivationError reports more than one implementation of a name
// active at once: a configuration error the framework cannot resolve, so
// it aborts rather than silently picking one.
type AmbiguousActivationError struct {
	Name       string
	Categories []string
}

func (e *AmbiguousActivationError) Error() string {
	return fmt.Sprintf(
		"multiple plugin implementations of %q are active simultaneously (%s)\nHint: at most one implementation per name may activate for a session",
		e.Name, strings.Join(e.Categories, ", "),
	)
}

// Database maps declared names to the metadata of every implementation
// sharing that name, for one session.
type Database struct {
	session *session.Session
	db      map[string][]*CommandMetadata
}

// NewDatabase builds a database against s from the current registry.
func NewDatabase(s *session.Session) (*Database, error) {
	if s == nil {
		return nil, fmt.Errorf("metadata: session must be set")
	}
	d := &Database{session: s}
	d.Rebuild()
	return d, nil
}

// Rebuild recomputes the name grouping from the full class registry.
// Call after new plugins register.
func (d *Database) Rebuild() {
	d.db = make(map[string][]*CommandMetadata)
	for _, c := range plugin.Classes() {
		if c.Name == "" {
			continue
		}
		d.db[c.Name] = append(d.db[c.Name], NewCommandMetadata(c))
	}
}

// Names returns every declared name, sorted.
func (d *Database) Names() []string {
	names := make([]string, 0, len(d.db))
	for name := range d.db {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MetadataByName returns the metadata of every implementation of name.
func (d *Database) MetadataByName(name string) []*CommandMetadata {
	return append([]*CommandMetadata(nil), d.db[name]...)
}

// GetActivePlugin resolves the single implementation of name active for
// the session. No active implementation returns (nil, nil), an explicit
// absent result rather than an error. More than one is fatal.
func (d *Database) GetActivePlugin(ctx context.Context, name string) (*CommandMetadata, error) {
	var active []*CommandMetadata
	for _, m := range d.db[name] {
		if m.class.IsActive(ctx, d.session) {
			active = append(active, m)
		}
	}
	if len(active) > 1 {
		ambiguous := &AmbiguousActivationError{Name: name}
		for _, m := range active {
			ambiguous.Categories = append(ambiguous.Categories, m.class.Category)
		}
		return nil, ambiguous
	}
	if len(active) == 0 {
		return nil, nil
	}
	return active[0], nil
}

// Serialize produces the catalog of every name with a currently active
// implementation.
func (d *Database) Serialize(ctx context.Context) (map[string]Record, error) {
	result := make(map[string]Record)
	for name := range d.db {
		m, err := d.GetActivePlugin(ctx, name)
		if err != nil {
			return nil, err
		}
		if m == nil {
			continue
		}
		result[name] = m.Record()
	}
	return result, nil
}

// Requirements returns the union of declared requirements across all
// implementations of name, active or not, sorted.
func (d *Database) Requirements(name string) []string {
	seen := make(map[string]struct{})
	for _, m := range d.db[name] {
		for _, req := range m.Requirements() {
			seen[req] = struct{}{}
		}
	}
	union := make([]string, 0, len(seen))
	for req := range seen {
		union = append(union, req)
	}
	sort.Strings(union)
	return union
}
