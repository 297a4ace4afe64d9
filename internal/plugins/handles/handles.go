// Package handles lists the open handles of every process in the image.
// It is the canonical consumer of the producer contract: processes arrive
// as a typed entity stream without the plugin knowing which producer
// supplied them.
package handles

import (
	"context"
	"iter"

	"github.com/recollectlabs/recollect/internal/addrspace"
	"github.com/recollectlabs/recollect/internal/plugin"
	"github.com/recollectlabs/recollect/internal/plugins/pslist"
	"github.com/recollectlabs/recollect/internal/profile"
	recollecterrors "github.com/recollectlabs/recollect/pkg/errors"
)

func init() {
	plugin.Register(&plugin.Class{
		Name:     "handles",
		Category: "process",
		Capabilities: []plugin.Capability{
			plugin.ProfileRequired{Required: true},
			plugin.PhysicalAddressSpace{Required: true},
			plugin.KernelAddressSpace{},
			plugin.Verbosity{},
		},
		Header: plugin.MustHeader(
			plugin.Column{CName: "offset", Name: "Offset", Type: plugin.TypeName("address")},
			plugin.Column{CName: pslist.ProcessType, Name: pslist.ProcessType, Type: plugin.TypeName(pslist.ProcessType)},
			plugin.Column{CName: "handle", Name: "Handle", Type: plugin.TypeName("address")},
			plugin.Column{CName: "access", Name: "Access", Type: plugin.TypeName("address")},
			plugin.Column{CName: "obj_type", Name: "Type"},
			plugin.Column{CName: "details", Name: "Details"},
		),
		Declare: func(d *plugin.Declaration) {
			d.Argument(plugin.ArgumentSpec{
				Name: "object_types",
				Help: "Types of objects to show.",
				Type: "[]string",
			})
			d.Argument(plugin.ArgumentSpec{
				Name: "named_only",
				Help: "Output only handles with a name.",
				Type: "bool",
			})
		},
		New: newHandles,
	})
}

// Handles prints the open handles of each process.
type Handles struct {
	plugin.Typed

	objectTypes map[string]struct{}
	namedOnly   bool
}

func newHandles(base *plugin.Base, opts plugin.Options) (plugin.Command, error) {
	h := &Handles{Typed: plugin.Typed{Base: *base}}

	types, err := opts.TakeStrings("object_types")
	if err != nil {
		return nil, recollecterrors.NewInvalidArgs("handles", err.Error())
	}
	if len(types) > 0 {
		h.objectTypes = make(map[string]struct{}, len(types))
		for _, t := range types {
			h.objectTypes[t] = struct{}{}
		}
	}

	h.namedOnly, err = opts.TakeBool("named_only", false)
	if err != nil {
		return nil, recollecterrors.NewInvalidArgs("handles", err.Error())
	}
	return h, nil
}

// Render writes the handle table through the default table contract.
func (h *Handles) Render(ctx context.Context, r plugin.Renderer) error {
	return plugin.RenderTable(ctx, h, r)
}

// Collect streams one row per surviving handle entry, process by process
// in producer order.
func (h *Handles) Collect(ctx context.Context) iter.Seq[plugin.Row] {
	return func(yield func(plugin.Row) bool) {
		processes, err := plugin.Produce(ctx, h.Session(), pslist.ProcessType)
		if err != nil {
			h.Session().Logger().Error("handles: no process stream", err)
			return
		}

		for entity := range processes {
			proc, ok := entity.(*profile.Object)
			if !ok {
				continue
			}

			count := 0
			for row := range h.enumerateHandles(proc) {
				count++
				if !yield(row) {
					return
				}
			}
			imageName, _ := proc.Str("ImageFileName")
			h.Session().ReportProgress("%s: %d handles", imageName, count)
		}
	}
}

// enumerateHandles walks a process's handle table through the profile
// layouts, applying the object type and named-only filters.
func (h *Handles) enumerateHandles(proc *profile.Object) iter.Seq[plugin.Row] {
	return func(yield func(plugin.Row) bool) {
		log := h.Session().Logger()

		tableOffset, err := proc.Uint("ObjectTable")
		if err != nil {
			log.Error("handles: read object table pointer", err)
			return
		}
		if tableOffset == 0 {
			return
		}

		table, err := h.Profile.Object(h.space(), "_HANDLE_TABLE", tableOffset)
		if err != nil {
			log.Error("handles: materialize handle table", err)
			return
		}
		count, err := table.Uint("HandleCount")
		if err != nil {
			log.Error("handles: read handle count", err)
			return
		}
		first, err := table.Uint("Layer1")
		if err != nil {
			log.Error("handles: read entry array pointer", err)
			return
		}

		entryLayout, ok := h.Profile.ResolveType("_HANDLE_TABLE_ENTRY")
		if !ok {
			log.Warn("handles: profile lacks _HANDLE_TABLE_ENTRY")
			return
		}
		typeNames, _ := h.Profile.Enumeration("ObjectTypeIndexTable")

		for i := uint64(0); i < count; i++ {
			offset := first + i*entryLayout.Size
			entry, err := h.Profile.Object(h.space(), "_HANDLE_TABLE_ENTRY", offset)
			if err != nil {
				log.Error("handles: materialize entry", err)
				continue
			}

			objectType, details, ok := h.decodeEntry(entry, typeNames)
			if !ok {
				continue
			}

			value, err := entry.Uint("HandleValue")
			if err != nil {
				continue
			}
			access, err := entry.Uint("GrantedAccess")
			if err != nil {
				continue
			}

			if !yield(plugin.Row{offset, proc, value, access, objectType, details}) {
				return
			}
		}
	}
}

// decodeEntry resolves an entry's type label and display details, and
// applies the configured filters.
func (h *Handles) decodeEntry(entry *profile.Object, typeNames []string) (string, string, bool) {
	index, err := entry.Uint("TypeIndex")
	if err != nil {
		return "", "", false
	}
	if index == 0 || index >= uint64(len(typeNames)) {
		// Unknown object type: nothing useful to report.
		return "", "", false
	}
	objectType := typeNames[index]

	if h.objectTypes != nil {
		if _, ok := h.objectTypes[objectType]; !ok {
			return "", "", false
		}
	}

	details := ""
	if nameOffset, err := entry.Uint("NameInfo"); err == nil && nameOffset != 0 {
		if nameObj, err := h.Profile.Object(h.space(), "_OBJECT_NAME", nameOffset); err == nil {
			if s, err := nameObj.Str("Name"); err == nil {
				details = s
			}
		}
	}
	if details == "" && h.namedOnly {
		return "", "", false
	}
	return objectType, details, true
}

func (h *Handles) space() addrspace.AddressSpace {
	if h.KernelAS != nil {
		return h.KernelAS
	}
	return h.PhysicalAS
}
