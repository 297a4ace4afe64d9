package plugin

import (
	"context"
	"fmt"
	"iter"
	"sync"

	"github.com/recollectlabs/recollect/internal/session"
)

var (
	registryMu sync.RWMutex
	classes    []*Class
	byName     = make(map[string][]*Class)
)

// Register adds a class to the process-wide registry. Plugin packages
// call it from init, collected into the binary through blank imports.
// Definition mistakes are fatal immediately rather than at run time.
func Register(c *Class) {
	if c == nil {
		panic("plugin: Register called with nil class")
	}
	if c.New == nil && c.Name != "" {
		panic(fmt.Sprintf("plugin: class %q has no factory", c.Name))
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	classes = append(classes, c)
	if c.Name != "" {
		byName[c.Name] = append(byName[c.Name], c)
	}
}

// Classes returns every registered class.
func Classes() []*Class {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return append([]*Class(nil), classes...)
}

// ByName returns every class sharing a declared name. Names need not be
// unique at registration time; per-session uniqueness of the active
// implementation is enforced at resolution time.
func ByName(name string) []*Class {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return append([]*Class(nil), byName[name]...)
}

// ActiveClasses lazily filters the registry through each class's
// activation predicate. Consumers may stop early; iterating can trigger
// one-time session autodetection as a side effect.
func ActiveClasses(ctx context.Context, s *session.Session) iter.Seq[*Class] {
	all := Classes()
	return func(yield func(*Class) bool) {
		for _, c := range all {
			if !c.IsActive(ctx, s) {
				continue
			}
			if !yield(c) {
				return
			}
		}
	}
}

// GetPlugin constructs the first active implementation of name against s.
// Uniqueness of the active implementation is the metadata database's
// concern; programmatic chaining only needs an active one.
func GetPlugin(ctx context.Context, s *session.Session, name string, opts Options) (Command, error) {
	for _, c := range ByName(name) {
		if c.IsActive(ctx, s) {
			return c.Instantiate(ctx, s, opts)
		}
	}
	return nil, fmt.Errorf("no active implementation of plugin %q", name)
}

// Reset clears the registry. Tests only.
func Reset() {
	registryMu.Lock()
	defer registryMu.Unlock()
	classes = nil
	byName = make(map[string][]*Class)
}
