package plugin

import (
	"context"
	"fmt"
	"iter"
	"slices"

	"github.com/recollectlabs/recollect/internal/session"
)

// ProducerHeader builds the single-column schema of a producer: one
// column named after the entity type it yields.
func ProducerHeader(typeName string) *Header {
	return MustHeader(Column{
		CName: typeName,
		Name:  typeName,
		Type:  TypeName(typeName),
	})
}

// ProduceFirst derives a produce stream from a collector: the first
// column of each row, in order, the rest of the row discarded.
func ProduceFirst(ctx context.Context, c Collector) iter.Seq[any] {
	return func(yield func(any) bool) {
		for row := range c.Collect(ctx) {
			if len(row) == 0 {
				continue
			}
			if !yield(row[0]) {
				return
			}
		}
	}
}

// CachedProducer is the embeddable base for producers whose collect
// source is a session parameter hook: a cached, session-wide sequence of
// raw locations, each materialized into a typed entity on demand. The
// expensive enumeration runs once per session; re-materialization is per
// consumer.
type CachedProducer struct {
	Typed

	// TypeName is the entity type this producer yields.
	TypeName string

	// HookName overrides the session hook to read locations from. By
	// convention it defaults to the plugin's declared name.
	HookName string
}

func (p *CachedProducer) hook() string {
	if p.HookName != "" {
		return p.HookName
	}
	return p.class.Name
}

// Collect materializes one typed entity per cached location. Locations
// that fail to materialize are logged and skipped.
func (p *CachedProducer) Collect(ctx context.Context) iter.Seq[Row] {
	return func(yield func(Row) bool) {
		value, err := p.session.GetParameter(ctx, p.hook())
		if err != nil {
			p.session.Logger().Error("producer hook failed", err)
			return
		}
		offsets, ok := value.([]uint64)
		if !ok {
			p.session.Logger().Error(
				"producer hook returned unexpected value",
				fmt.Errorf("hook %q: expected []uint64, got %T", p.hook(), value))
			return
		}

		as := p.KernelAS
		if as == nil {
			as = p.PhysicalAS
		}
		for _, offset := range offsets {
			obj, err := p.Profile.Object(as, p.TypeName, offset)
			if err != nil {
				p.session.Logger().Error("materialize entity", err)
				continue
			}
			if !yield(Row{obj}) {
				return
			}
		}
	}
}

// Produce yields the producer's single column as a stream of typed
// entities.
func (p *CachedProducer) Produce(ctx context.Context) iter.Seq[any] {
	return ProduceFirst(ctx, p)
}

// Render writes the producer's table through the default contract.
func (p *CachedProducer) Render(ctx context.Context, r Renderer) error {
	return RenderTable(ctx, p, r)
}

// Producers lazily yields the active producer classes whose declared
// output includes typeName.
func Producers(ctx context.Context, s *session.Session, typeName string) iter.Seq[*Class] {
	return func(yield func(*Class) bool) {
		for c := range ActiveClasses(ctx, s) {
			if !c.Producer || c.Header == nil {
				continue
			}
			if slices.Contains(c.Header.TypesInOutput(), typeName) {
				if !yield(c) {
					return
				}
			}
		}
	}
}

// Produce streams all known entities of typeName from the first active
// producer that declares it. This is the chaining primitive: the consumer
// never learns which implementation supplied the stream.
func Produce(ctx context.Context, s *session.Session, typeName string) (iter.Seq[any], error) {
	for c := range Producers(ctx, s, typeName) {
		cmd, err := c.Instantiate(ctx, s, nil)
		if err != nil {
			return nil, err
		}
		producer, ok := cmd.(ProducerCommand)
		if !ok {
			return nil, fmt.Errorf("plugin %q is marked producer but does not produce", c.Name)
		}
		return producer.Produce(ctx), nil
	}
	return nil, fmt.Errorf("no active producer for type %q", typeName)
}
