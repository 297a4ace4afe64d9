// Package plugin is the extensible command core of the engine: a registry
// of analysis routines that resolve session resources through composable
// capabilities, declare typed tabular output ahead of execution, and chain
// through the producer contract without knowing each other's identity.
package plugin

import (
	"context"
	"iter"

	"github.com/recollectlabs/recollect/internal/addrspace"
	"github.com/recollectlabs/recollect/internal/profile"
	"github.com/recollectlabs/recollect/internal/session"
	recollecterrors "github.com/recollectlabs/recollect/pkg/errors"
)

// Row is one positional output row, arity matching the declared header.
type Row []any

// Renderer is the opaque output sink a plugin renders into. The framework
// assumes nothing beyond these two operations.
type Renderer interface {
	TableHeader(h *Header) error
	TableRow(values ...any) error
}

// Command is one constructed plugin instance, bound to exactly one
// session. Instances are created per invocation and never reused across
// sessions.
type Command interface {
	Class() *Class
	Session() *session.Session
	Render(ctx context.Context, r Renderer) error
}

// Collector is implemented by plugins that yield structured rows. Any
// Collector is range-able directly; rendering and dict conversion derive
// from it.
type Collector interface {
	Collect(ctx context.Context) iter.Seq[Row]
}

// HasSchema is implemented by plugins that declare their output columns
// ahead of execution.
type HasSchema interface {
	Header() *Header
}

// ProducerCommand is implemented by single-column plugins that expose
// their column as a stream of typed entities for other plugins.
type ProducerCommand interface {
	Produce(ctx context.Context) iter.Seq[any]
}

// Factory builds the concrete command after capabilities have acquired
// their resources. It must consume every option key it recognizes.
type Factory func(base *Base, opts Options) (Command, error)

// Class describes one registered plugin implementation. Classes are
// created once at registration and immutable thereafter; identity is the
// Class value itself.
type Class struct {
	// Name is the declared short name. Unnamed classes are invocable
	// only programmatically and never listed.
	Name string

	// Category groups related plugins for help output.
	Category string

	// Capabilities run in order at construction time; a capability
	// depending on another's resource must be composed after it.
	Capabilities []Capability

	// Header is the declared table schema, if any.
	Header *Header

	// Producer marks the class as a typed-entity source.
	Producer bool

	// Interactive restricts the class to interactive sessions.
	Interactive bool

	// Declare contributes class-specific argument declarations after the
	// capability declarations have run.
	Declare func(d *Declaration)

	// Active is the class-specific activation override, evaluated after
	// every capability predicate passed.
	Active func(ctx context.Context, s *session.Session) bool

	// New builds the concrete command.
	New Factory
}

// IsActive reports whether this implementation is usable against the
// session. Capability predicates evaluate in composition order and
// short-circuit; reading a lazily-resolved session resource here can
// trigger one-time autodetection. Unmet requirements yield false, never
// an error.
func (c *Class) IsActive(ctx context.Context, s *session.Session) bool {
	for _, capability := range c.Capabilities {
		if !capability.Active(ctx, s) {
			return false
		}
	}
	if c.Active != nil {
		return c.Active(ctx, s)
	}
	return true
}

// DeclareInto runs the class's declaration chain: capabilities in
// composition order, then the class's own declarations.
func (c *Class) DeclareInto(d *Declaration) {
	for _, capability := range c.Capabilities {
		capability.Declare(d)
	}
	if c.Declare != nil {
		c.Declare(d)
	}
}

// Instantiate constructs the plugin against s. Capabilities acquire their
// resources in composition order; the concrete factory consumes its own
// options; any unrecognized option left over is an InvalidArgsError.
func (c *Class) Instantiate(ctx context.Context, s *session.Session, opts Options) (Command, error) {
	if s == nil {
		return nil, recollecterrors.NewInvalidArgs(c.Name, "a session must be provided")
	}

	remaining := opts.Clone()
	base := &Base{class: c, session: s, Verbosity: 1}

	for _, capability := range c.Capabilities {
		if err := capability.Acquire(ctx, base, remaining); err != nil {
			return nil, err
		}
	}

	if c.New == nil {
		if len(remaining) > 0 {
			return nil, recollecterrors.NewUnknownOptions(c.Name, remaining.Keys())
		}
		return base, nil
	}

	cmd, err := c.New(base, remaining)
	if err != nil {
		return nil, err
	}
	if len(remaining) > 0 {
		return nil, recollecterrors.NewUnknownOptions(c.Name, remaining.Keys())
	}
	return cmd, nil
}

// Base carries the per-instance state every plugin shares: the bound
// session and the resources capabilities acquired. Concrete plugins embed
// it.
type Base struct {
	class   *Class
	session *session.Session

	// Resources populated by capabilities during construction.
	Profile    profile.Profile
	PhysicalAS addrspace.AddressSpace
	KernelAS   addrspace.AddressSpace
	Verbosity  int
}

// Class returns the class this instance was constructed from.
func (b *Base) Class() *Class { return b.class }

// Session returns the bound session.
func (b *Base) Session() *session.Session { return b.session }

// Render is a no-op for bare instances; table plugins render through
// RenderTable.
func (b *Base) Render(ctx context.Context, r Renderer) error { return nil }
