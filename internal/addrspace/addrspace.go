// Package addrspace models views over a captured memory image. The engine
// treats address spaces as external collaborators: plugins acquire them
// through capabilities and read bytes, nothing more. Translation here is
// deliberately simple; real page-table walking lives outside this core.
package addrspace

import (
	"fmt"
	"io"
	"os"
)

// AddressSpace maps offsets within a captured image to raw bytes. Kernel
// and physical spaces are distinct views over the same image.
type AddressSpace interface {
	io.ReaderAt

	// Name identifies the space for logs and error messages.
	Name() string

	// Size returns the number of addressable bytes, or 0 when unknown.
	Size() int64
}

// FileSpace is a physical address space backed by an image file on disk.
type FileSpace struct {
	file *os.File
	name string
	size int64
}

// OpenFile opens path as a physical address space.
func OpenFile(path string) (*FileSpace, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat image: %w", err)
	}
	return &FileSpace{file: f, name: path, size: info.Size()}, nil
}

func (s *FileSpace) ReadAt(p []byte, off int64) (int, error) { return s.file.ReadAt(p, off) }
func (s *FileSpace) Name() string                            { return s.name }
func (s *FileSpace) Size() int64                             { return s.size }

// Close releases the underlying file.
func (s *FileSpace) Close() error { return s.file.Close() }

// BufferSpace is an in-memory address space. Tests and live captures use it.
type BufferSpace struct {
	data []byte
	name string
}

// NewBuffer wraps data as an address space.
func NewBuffer(name string, data []byte) *BufferSpace {
	return &BufferSpace{data: data, name: name}
}

func (s *BufferSpace) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(s.data)) {
		return 0, io.EOF
	}
	n := copy(p, s.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (s *BufferSpace) Name() string { return s.name }
func (s *BufferSpace) Size() int64  { return int64(len(s.data)) }

// VirtualSpace is a kernel view derived from a physical space and a
// directory table base. The translation is a fixed linear shift, which is
// all the illustrative plugins need; anything smarter plugs in behind the
// same interface.
type VirtualSpace struct {
	base AddressSpace
	dtb  uint64
}

// NewVirtual builds a kernel address space over base using dtb.
func NewVirtual(base AddressSpace, dtb uint64) *VirtualSpace {
	return &VirtualSpace{base: base, dtb: dtb}
}

// DTB returns the directory table base this space was built from.
func (s *VirtualSpace) DTB() uint64 { return s.dtb }

// Base returns the physical space this view translates into.
func (s *VirtualSpace) Base() AddressSpace { return s.base }

func (s *VirtualSpace) ReadAt(p []byte, off int64) (int, error) {
	phys := off - int64(s.dtb)
	if phys < 0 {
		return 0, fmt.Errorf("virtual offset %#x below dtb %#x", off, s.dtb)
	}
	return s.base.ReadAt(p, phys)
}

func (s *VirtualSpace) Name() string {
	return fmt.Sprintf("%s@dtb=%#x", s.base.Name(), s.dtb)
}

func (s *VirtualSpace) Size() int64 { return s.base.Size() }
