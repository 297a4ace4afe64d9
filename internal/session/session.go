// Package session holds the long-lived context shared by every plugin
// invocation in one investigation: the resolved profile and address
// spaces, a cached parameter store with compute-on-demand hooks, a
// progress sink, and the privilege flag.
//
// Resource accessors follow a get-or-detect contract: the first read of an
// unresolved resource runs one-shot autodetection and caches the outcome,
// success or failure. Anything that reads these accessors, including
// activation checks, must accept that a first read can be expensive.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/recollectlabs/recollect/internal/addrspace"
	"github.com/recollectlabs/recollect/internal/logger"
	"github.com/recollectlabs/recollect/internal/profile"
)

// ParameterHook computes a session parameter on first access. The result
// is cached for the session's lifetime.
type ParameterHook func(ctx context.Context, s *Session) (any, error)

// ProgressFunc receives advisory progress notifications from long-running
// collections. It has no effect on control flow.
type ProgressFunc func(format string, args ...any)

// Detector performs one-shot resource autodetection. The session calls
// each method at most once; implementations may cache internally anyway.
type Detector interface {
	PhysicalAddressSpace(ctx context.Context) (addrspace.AddressSpace, error)
	KernelAddressSpace(ctx context.Context) (addrspace.AddressSpace, error)
	Profile(ctx context.Context) (profile.Profile, error)
}

// Config describes a session at creation time.
type Config struct {
	Privileged bool
	Progress   ProgressFunc
	Logger     *logger.Logger
	Detector   Detector
}

type detection struct {
	attempted bool
	err       error
}

// Session is shared by reference across all plugin instances created
// during its lifetime. Resolved resources are monotonic: set once, read
// many times; explicit Set calls are writes, not re-detection.
type Session struct {
	mu sync.Mutex

	profile       profile.Profile
	profileState  detection
	physical      addrspace.AddressSpace
	physicalState detection
	kernel        addrspace.AddressSpace
	kernelState   detection

	params map[string]any
	hooks  map[string]ParameterHook

	privileged bool
	progress   ProgressFunc
	log        *logger.Logger
	detector   Detector
}

// New creates a session from cfg.
func New(cfg Config) *Session {
	log := cfg.Logger
	if log == nil {
		log = logger.Discard()
	}
	return &Session{
		params:     make(map[string]any),
		hooks:      make(map[string]ParameterHook),
		privileged: cfg.Privileged,
		progress:   cfg.Progress,
		log:        log.WithComponent("session"),
		detector:   cfg.Detector,
	}
}

// Logger returns the session logger.
func (s *Session) Logger() *logger.Logger { return s.log }

// Privileged reports whether live/interactive analysis is allowed.
func (s *Session) Privileged() bool { return s.privileged }

// ReportProgress forwards an advisory progress message to the sink.
func (s *Session) ReportProgress(format string, args ...any) {
	if s.progress != nil {
		s.progress(format, args...)
	}
}

// SetProfile installs an explicit profile. The profile forms part of the
// session's state: it controls which dependent plugins activate.
func (s *Session) SetProfile(p profile.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = p
	s.profileState = detection{attempted: true}
}

// HasProfile reports whether a profile is already resolved, without
// triggering autodetection.
func (s *Session) HasProfile() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile != nil
}

// Profile returns the session profile, running autodetection on first
// read. A nil profile with nil error means no profile could be resolved
// and no detector is configured to try.
func (s *Session) Profile(ctx context.Context) (profile.Profile, error) {
	s.mu.Lock()
	if s.profile != nil || s.profileState.attempted || s.detector == nil {
		p, err := s.profile, s.profileState.err
		s.mu.Unlock()
		return p, err
	}
	s.profileState.attempted = true
	detector := s.detector
	s.mu.Unlock()

	s.log.Debug("profile not set, running autodetection")
	p, err := detector.Profile(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.profileState.err = fmt.Errorf("profile autodetection: %w", err)
		return nil, s.profileState.err
	}
	if s.profile == nil {
		s.profile = p
	}
	return s.profile, nil
}

// SetPhysicalAddressSpace installs an explicit physical address space.
func (s *Session) SetPhysicalAddressSpace(as addrspace.AddressSpace) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.physical = as
	s.physicalState = detection{attempted: true}
}

// PhysicalAddressSpace returns the physical address space, running
// autodetection on first read.
func (s *Session) PhysicalAddressSpace(ctx context.Context) (addrspace.AddressSpace, error) {
	return s.space(ctx, &s.physical, &s.physicalState, "physical", func(d Detector) (addrspace.AddressSpace, error) {
		return d.PhysicalAddressSpace(ctx)
	})
}

// SetKernelAddressSpace installs an explicit kernel address space.
func (s *Session) SetKernelAddressSpace(as addrspace.AddressSpace) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kernel = as
	s.kernelState = detection{attempted: true}
}

// KernelAddressSpace returns the kernel address space, running
// autodetection on first read.
func (s *Session) KernelAddressSpace(ctx context.Context) (addrspace.AddressSpace, error) {
	return s.space(ctx, &s.kernel, &s.kernelState, "kernel", func(d Detector) (addrspace.AddressSpace, error) {
		return d.KernelAddressSpace(ctx)
	})
}

func (s *Session) space(
	ctx context.Context,
	slot *addrspace.AddressSpace,
	state *detection,
	kind string,
	detect func(Detector) (addrspace.AddressSpace, error),
) (addrspace.AddressSpace, error) {
	_ = ctx

	s.mu.Lock()
	if *slot != nil || state.attempted || s.detector == nil {
		as, err := *slot, state.err
		s.mu.Unlock()
		return as, err
	}
	state.attempted = true
	detector := s.detector
	s.mu.Unlock()

	s.log.Debugf("%s address space not set, running autodetection", kind)
	as, err := detect(detector)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		state.err = fmt.Errorf("%s address space autodetection: %w", kind, err)
		return nil, state.err
	}
	if *slot == nil {
		*slot = as
	}
	return *slot, nil
}

// SetHook registers a named compute-and-cache parameter hook.
func (s *Session) SetHook(name string, hook ParameterHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks[name] = hook
}

// SetParameter stores a parameter value directly.
func (s *Session) SetParameter(name string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params[name] = value
}

// HasParameter reports whether a parameter value is already cached.
func (s *Session) HasParameter(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.params[name]
	return ok
}

// GetParameter returns a cached parameter, computing it through its hook
// on first access. Unknown parameters are an error; hooks that fail are
// retried on the next access.
func (s *Session) GetParameter(ctx context.Context, name string) (any, error) {
	s.mu.Lock()
	if value, ok := s.params[name]; ok {
		s.mu.Unlock()
		return value, nil
	}
	hook, ok := s.hooks[name]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("no parameter or hook named %q", name)
	}

	value, err := hook(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("parameter hook %q: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cached, ok := s.params[name]; ok {
		return cached, nil
	}
	s.params[name] = value
	return value, nil
}
