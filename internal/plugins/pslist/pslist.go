// Package pslist produces process objects from a captured image. It is a
// cached producer: the expensive pool-tag scan runs once per session
// through the "pslist" parameter hook, and each consumer re-materializes
// typed entities from the cached offsets.
package pslist

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/recollectlabs/recollect/internal/plugin"
	"github.com/recollectlabs/recollect/internal/session"
)

// ProcessType is the entity type this producer yields.
const ProcessType = "_EPROCESS"

// HookName is the session parameter hook holding scanned offsets.
const HookName = "pslist"

const scanChunk = 64 * 1024

func init() {
	plugin.Register(&plugin.Class{
		Name:     "pslist",
		Category: "process",
		Capabilities: []plugin.Capability{
			plugin.ProfileRequired{Required: true},
			plugin.PhysicalAddressSpace{Required: true},
			plugin.KernelAddressSpace{},
		},
		Header:   plugin.ProducerHeader(ProcessType),
		Producer: true,
		New:      newPsList,
	})
}

// PsList streams every process object found in the image.
type PsList struct {
	plugin.CachedProducer
}

func newPsList(base *plugin.Base, opts plugin.Options) (plugin.Command, error) {
	p := &PsList{}
	p.Typed = plugin.Typed{Base: *base}
	p.TypeName = ProcessType
	return p, nil
}

// InstallHook registers the session-wide process scan. Sessions built by
// the CLI call this once during setup.
func InstallHook(s *session.Session) {
	s.SetHook(HookName, scanProcesses)
}

// scanProcesses walks the physical space looking for the profile's
// process pool tag and yields the object offset behind each hit.
func scanProcesses(ctx context.Context, s *session.Session) (any, error) {
	p, err := s.Profile(ctx)
	if err != nil || p == nil {
		return nil, fmt.Errorf("process scan needs a resolved profile: %w", err)
	}
	phys, err := s.PhysicalAddressSpace(ctx)
	if err != nil || phys == nil {
		return nil, fmt.Errorf("process scan needs a physical address space: %w", err)
	}

	tagValue, ok := p.Constant("ProcessPoolTag")
	if !ok {
		return nil, fmt.Errorf("profile %s declares no ProcessPoolTag", p.Name())
	}
	headerSize, ok := p.Constant("PoolHeaderSize")
	if !ok {
		headerSize = 8
	}

	tag := make([]byte, 4)
	binary.LittleEndian.PutUint32(tag, uint32(tagValue))

	var offsets []uint64
	buf := make([]byte, scanChunk+len(tag)-1)
	for base := int64(0); ; base += scanChunk {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := phys.ReadAt(buf, base)
		if n > 0 {
			for i := 0; i+len(tag) <= n; i++ {
				if i >= scanChunk {
					break
				}
				if bytes.Equal(buf[i:i+len(tag)], tag) {
					offsets = append(offsets, uint64(base)+uint64(i)+headerSize)
				}
			}
			s.ReportProgress("pslist: scanned %#x, %d processes", base+int64(n), len(offsets))
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("scan at %#x: %w", base, err)
		}
	}
	return offsets, nil
}
