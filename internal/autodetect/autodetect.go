// Package autodetect resolves session resources that were not supplied
// explicitly: it opens the captured image, matches a profile by scanning
// for known signatures, and derives the kernel view from the profile's
// directory table base. Sessions call each detection at most once and
// cache the outcome.
package autodetect

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/recollectlabs/recollect/internal/addrspace"
	"github.com/recollectlabs/recollect/internal/logger"
	"github.com/recollectlabs/recollect/internal/profile"
	"github.com/recollectlabs/recollect/internal/session"
)

const scanChunk = 1 << 20

// Loader implements session.Detector against one image path and a
// profile store.
type Loader struct {
	mu        sync.Mutex
	imagePath string
	store     *profile.Store
	log       *logger.Logger

	physical addrspace.AddressSpace
	prof     profile.Profile
}

var _ session.Detector = (*Loader)(nil)

// New builds a loader for imagePath using the profiles in store.
func New(imagePath string, store *profile.Store, log *logger.Logger) *Loader {
	if log == nil {
		log = logger.Discard()
	}
	return &Loader{imagePath: imagePath, store: store, log: log.WithComponent("autodetect")}
}

// PhysicalAddressSpace opens the image as the physical view.
func (l *Loader) PhysicalAddressSpace(ctx context.Context) (addrspace.AddressSpace, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.physicalLocked()
}

func (l *Loader) physicalLocked() (addrspace.AddressSpace, error) {
	if l.physical != nil {
		return l.physical, nil
	}
	if l.imagePath == "" {
		return nil, fmt.Errorf("no image path configured")
	}
	space, err := addrspace.OpenFile(l.imagePath)
	if err != nil {
		return nil, err
	}
	l.log.Debugf("opened image %s (%d bytes)", l.imagePath, space.Size())
	l.physical = space
	return space, nil
}

// Profile scans the physical space for each known profile's signature and
// returns the first match.
func (l *Loader) Profile(ctx context.Context) (profile.Profile, error) {
	l.mu.Lock()
	if l.prof != nil {
		p := l.prof
		l.mu.Unlock()
		return p, nil
	}
	phys, err := l.physicalLocked()
	l.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if l.store == nil {
		return nil, fmt.Errorf("no profile store configured")
	}

	for _, candidate := range l.store.All() {
		magic := candidate.Magic()
		if len(magic) == 0 {
			continue
		}
		found, err := scanFor(ctx, phys, magic)
		if err != nil {
			return nil, fmt.Errorf("scan for %s signature: %w", candidate.Name(), err)
		}
		if found {
			l.log.Debugf("matched profile %s", candidate.Name())
			l.mu.Lock()
			l.prof = candidate
			l.mu.Unlock()
			return candidate, nil
		}
	}
	return nil, fmt.Errorf("no profile signature matched image %s", l.imagePath)
}

// KernelAddressSpace derives the kernel view from the detected profile's
// KernelDTB constant over the physical space.
func (l *Loader) KernelAddressSpace(ctx context.Context) (addrspace.AddressSpace, error) {
	phys, err := l.PhysicalAddressSpace(ctx)
	if err != nil {
		return nil, err
	}
	p, err := l.Profile(ctx)
	if err != nil {
		return nil, err
	}
	dtb, _ := p.Constant("KernelDTB")
	return addrspace.NewVirtual(phys, dtb), nil
}

func scanFor(ctx context.Context, space addrspace.AddressSpace, needle []byte) (bool, error) {
	buf := make([]byte, scanChunk+len(needle)-1)
	for base := int64(0); ; base += scanChunk {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		n, err := space.ReadAt(buf, base)
		if n > 0 && bytes.Contains(buf[:n], needle) {
			return true, nil
		}
		if err == io.EOF {
			return false, nil
		}
		if err != nil {
			return false, err
		}
	}
}
