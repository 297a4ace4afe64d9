package profile

import (
	"encoding/hex"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/recollectlabs/recollect/internal/addrspace"
	recollecterrors "github.com/recollectlabs/recollect/pkg/errors"
)

// Definition is the on-disk YAML shape of a profile.
type Definition struct {
	Name     string              `yaml:"name" validate:"required,profile_name"`
	Metadata Metadata            `yaml:"metadata"`
	Types    map[string]typeDef  `yaml:"types" validate:"required,dive"`
	Enums    map[string][]string `yaml:"enums"`
	Consts   map[string]uint64   `yaml:"constants"`
}

// Metadata identifies the target a profile describes and carries the
// signature used for autodetection.
type Metadata struct {
	OS      string `yaml:"os"`
	Arch    string `yaml:"arch"`
	Version string `yaml:"version"`
	// Magic is a hex-encoded byte signature that appears in images this
	// profile applies to. Empty disables autodetection for the profile.
	Magic string `yaml:"magic" validate:"hex_bytes"`
}

type typeDef struct {
	Size   uint64                 `yaml:"size"`
	Fields map[string]StructField `yaml:"fields" validate:"dive"`
}

// YAMLProfile is a Profile loaded from a definition file.
type YAMLProfile struct {
	def   Definition
	types map[string]*StructType
	magic []byte
}

var _ Profile = (*YAMLProfile)(nil)

// LoadFile reads, validates, and compiles a profile definition from path.
func LoadFile(path string) (*YAMLProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, recollecterrors.NewParseError(path, 0, err)
	}
	p, err := Parse(data)
	if err != nil {
		if pe, ok := err.(*recollecterrors.ParseError); ok {
			pe.Path = path
			return nil, pe
		}
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Parse decodes and validates a profile definition.
func Parse(data []byte) (*YAMLProfile, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, recollecterrors.NewParseError("", 0, err)
	}

	if err := validatorInstance().Struct(def); err != nil {
		return nil, recollecterrors.NewValidationError("profile", err.Error(), err)
	}

	magic, err := hex.DecodeString(def.Metadata.Magic)
	if err != nil {
		return nil, recollecterrors.NewValidationError("metadata.magic", "not valid hex", err)
	}

	types := make(map[string]*StructType, len(def.Types))
	for name, td := range def.Types {
		fields := make(map[string]StructField, len(td.Fields))
		for fname, f := range td.Fields {
			fields[fname] = f
		}
		types[name] = &StructType{Name: name, Size: td.Size, Fields: fields}
	}

	return &YAMLProfile{def: def, types: types, magic: magic}, nil
}

func (p *YAMLProfile) Name() string { return p.def.Name }

// Metadata returns the target description from the definition.
func (p *YAMLProfile) Metadata() Metadata { return p.def.Metadata }

// Magic returns the decoded autodetection signature, possibly empty.
func (p *YAMLProfile) Magic() []byte { return p.magic }

func (p *YAMLProfile) ResolveType(name string) (*StructType, bool) {
	t, ok := p.types[name]
	return t, ok
}

func (p *YAMLProfile) Enumeration(name string) ([]string, bool) {
	e, ok := p.def.Enums[name]
	return e, ok
}

func (p *YAMLProfile) Constant(name string) (uint64, bool) {
	c, ok := p.def.Consts[name]
	return c, ok
}

func (p *YAMLProfile) Object(as addrspace.AddressSpace, typeName string, offset uint64) (*Object, error) {
	layout, ok := p.ResolveType(typeName)
	if !ok {
		return nil, fmt.Errorf("profile %s does not define type %s", p.Name(), typeName)
	}
	return NewObject(layout, as, offset), nil
}
