// Package profile resolves symbolic type names to concrete memory layouts
// for a given target and materializes typed objects from raw locations.
// The engine core only depends on the Profile interface; the YAML-backed
// implementation exists so sessions have something real to autodetect.
package profile

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/recollectlabs/recollect/internal/addrspace"
)

// StructField describes one member of a structural type.
type StructField struct {
	Offset uint64 `yaml:"offset"`
	Type   string `yaml:"type" validate:"required,field_type"`
}

// StructType is a concrete memory layout resolved from a profile.
type StructType struct {
	Name   string
	Size   uint64
	Fields map[string]StructField
}

// Profile describes the layout of structures in memory for one target.
// Lookup failures are reported through the ok result, never as errors;
// a missing type name is an answer, not a fault.
type Profile interface {
	// Name returns the profile identifier, e.g. "testos-1.0-amd64".
	Name() string

	// ResolveType resolves a symbolic type name to a concrete layout.
	ResolveType(name string) (*StructType, bool)

	// Enumeration returns a named ordinal-to-label table.
	Enumeration(name string) ([]string, bool)

	// Constant returns a named scalar constant.
	Constant(name string) (uint64, bool)

	// Object materializes a typed object of typeName at offset within as.
	Object(as addrspace.AddressSpace, typeName string, offset uint64) (*Object, error)
}

// Object is a typed view over a raw location in an address space. Field
// reads happen on demand; nothing is decoded ahead of time.
type Object struct {
	layout *StructType
	offset uint64
	space  addrspace.AddressSpace
}

// NewObject builds an object from an already-resolved layout.
func NewObject(layout *StructType, space addrspace.AddressSpace, offset uint64) *Object {
	return &Object{layout: layout, offset: offset, space: space}
}

// TypeName returns the name of the object's layout.
func (o *Object) TypeName() string { return o.layout.Name }

// Offset returns the object's base offset within its address space.
func (o *Object) Offset() uint64 { return o.offset }

func (o *Object) field(name string) (StructField, error) {
	f, ok := o.layout.Fields[name]
	if !ok {
		return StructField{}, fmt.Errorf("type %s has no field %s", o.layout.Name, name)
	}
	return f, nil
}

// Uint reads an unsigned scalar field. Pointers read as 64-bit values.
func (o *Object) Uint(name string) (uint64, error) {
	f, err := o.field(name)
	if err != nil {
		return 0, err
	}
	size, err := scalarSize(f.Type)
	if err != nil {
		return 0, fmt.Errorf("field %s.%s: %w", o.layout.Name, name, err)
	}
	buf := make([]byte, 8)
	if _, err := o.space.ReadAt(buf[:size], int64(o.offset+f.Offset)); err != nil {
		return 0, fmt.Errorf("read %s.%s at %#x: %w", o.layout.Name, name, o.offset+f.Offset, err)
	}
	return binary.LittleEndian.Uint64(buf), nil
}

// Str reads a fixed-size char array field, trimming trailing NULs.
func (o *Object) Str(name string) (string, error) {
	f, err := o.field(name)
	if err != nil {
		return "", err
	}
	n, ok := charArrayLen(f.Type)
	if !ok {
		return "", fmt.Errorf("field %s.%s is not a char array (%s)", o.layout.Name, name, f.Type)
	}
	buf := make([]byte, n)
	if _, err := o.space.ReadAt(buf, int64(o.offset+f.Offset)); err != nil {
		return "", fmt.Errorf("read %s.%s at %#x: %w", o.layout.Name, name, o.offset+f.Offset, err)
	}
	return strings.TrimRight(string(buf), "\x00"), nil
}

func (o *Object) String() string {
	return fmt.Sprintf("%s<%#x>", o.layout.Name, o.offset)
}

func scalarSize(fieldType string) (int, error) {
	switch fieldType {
	case "uint8":
		return 1, nil
	case "uint16":
		return 2, nil
	case "uint32":
		return 4, nil
	case "uint64", "pointer":
		return 8, nil
	}
	return 0, fmt.Errorf("not a scalar type: %s", fieldType)
}

func charArrayLen(fieldType string) (int, bool) {
	rest, ok := strings.CutPrefix(fieldType, "char[")
	if !ok {
		return 0, false
	}
	digits, ok := strings.CutSuffix(rest, "]")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
