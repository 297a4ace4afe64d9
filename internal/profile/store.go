package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Store holds the profiles available to a session, keyed by name.
type Store struct {
	profiles map[string]*YAMLProfile
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{profiles: make(map[string]*YAMLProfile)}
}

// LoadDir loads every .yaml profile definition under dir into a store.
// Subdirectories are searched so git-fetched repositories load as-is.
func LoadDir(dir string) (*Store, error) {
	store := NewStore()
	err := filepath.WalkDir(dir, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			if entry.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(entry.Name(), ".yaml") && !strings.HasSuffix(entry.Name(), ".yml") {
			return nil
		}
		p, err := LoadFile(path)
		if err != nil {
			return err
		}
		store.Add(p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load profiles from %s: %w", dir, err)
	}
	return store, nil
}

// Add registers a profile, replacing any previous profile with the name.
func (s *Store) Add(p *YAMLProfile) {
	s.profiles[p.Name()] = p
}

// Get returns the named profile.
func (s *Store) Get(name string) (*YAMLProfile, bool) {
	p, ok := s.profiles[name]
	return p, ok
}

// Names returns the sorted names of all loaded profiles.
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.profiles))
	for name := range s.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns all loaded profiles in name order.
func (s *Store) All() []*YAMLProfile {
	names := s.Names()
	out := make([]*YAMLProfile, 0, len(names))
	for _, name := range names {
		out = append(out, s.profiles[name])
	}
	return out
}
