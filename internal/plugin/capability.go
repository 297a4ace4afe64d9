package plugin

import (
	"context"

	"github.com/recollectlabs/recollect/internal/addrspace"
	"github.com/recollectlabs/recollect/internal/profile"
	"github.com/recollectlabs/recollect/internal/session"
	recollecterrors "github.com/recollectlabs/recollect/pkg/errors"
)

// Capability is one composable unit of a plugin class: an argument and
// requirement declaration, an activation contribution, and a
// resource-acquisition step run at construction. A class composes an
// ordered list of these; each may depend on resources acquired by
// capabilities before it.
type Capability interface {
	// Declare contributes argument/requirement declarations.
	Declare(d *Declaration)

	// Active contributes to the class activation predicate. Unmet
	// requirements yield false, never an error. The check may trigger
	// session autodetection as a side effect.
	Active(ctx context.Context, s *session.Session) bool

	// Acquire resolves the capability's resource into base, consuming
	// any override options it recognizes. A required resource that
	// remains unavailable after autodetection is a PluginError.
	Acquire(ctx context.Context, base *Base, opts Options) error
}

// ProfileRequired acquires the session profile. An explicit "profile"
// option installs its profile into the session before use, making it part
// of the session state seen by dependent plugins.
type ProfileRequired struct {
	// Required gates both activation and construction. When false the
	// capability still declares and acquires, but never fails.
	Required bool
}

func (c ProfileRequired) Declare(d *Declaration) {
	d.Argument(ArgumentSpec{
		Name:     "profile",
		Short:    "p",
		Help:     "Name of the profile to load for this target.",
		Type:     "string",
		Critical: true,
	})
	d.Requirement("profile")
}

func (c ProfileRequired) Active(ctx context.Context, s *session.Session) bool {
	if !c.Required {
		return true
	}
	p, err := s.Profile(ctx)
	return err == nil && p != nil
}

func (c ProfileRequired) Acquire(ctx context.Context, base *Base, opts Options) error {
	if v, ok := opts.Take("profile"); ok {
		p, ok := v.(profile.Profile)
		if !ok {
			return recollecterrors.NewInvalidArgs(
				base.class.Name, "option \"profile\" must carry a profile")
		}
		base.session.SetProfile(p)
	}

	p, err := base.session.Profile(ctx)
	if c.Required && (err != nil || p == nil) {
		return &recollecterrors.PluginError{
			Plugin:   base.class.Name,
			Resource: "profile",
			Message:  "profile could not be detected",
			Err:      err,
			Hint:     "try specifying one explicitly with --profile",
		}
	}
	base.Profile = p
	return nil
}

// PhysicalAddressSpace acquires the session's physical address space,
// running load-space autodetection when unset.
type PhysicalAddressSpace struct {
	// Required controls whether a missing space fails construction.
	Required bool
}

func (c PhysicalAddressSpace) Declare(d *Declaration) {
	d.Requirement("physical_address_space")
}

func (c PhysicalAddressSpace) Active(ctx context.Context, s *session.Session) bool {
	return true
}

func (c PhysicalAddressSpace) Acquire(ctx context.Context, base *Base, opts Options) error {
	as, err := base.session.PhysicalAddressSpace(ctx)
	if c.Required && (err != nil || as == nil) {
		return &recollecterrors.PluginError{
			Plugin:   base.class.Name,
			Resource: "physical_address_space",
			Message:  "physical address space is not set",
			Err:      err,
			Hint:     "pass --image to point at a memory capture",
		}
	}
	base.PhysicalAS = as
	return nil
}

// KernelAddressSpace acquires a valid kernel address space. An explicit
// "dtb" option constructs a fresh virtual space over the physical one, so
// this capability must be composed after PhysicalAddressSpace.
type KernelAddressSpace struct{}

func (c KernelAddressSpace) Declare(d *Declaration) {
	d.Argument(ArgumentSpec{
		Name: "dtb",
		Help: "The DTB physical address.",
		Type: "uint64",
	})
}

func (c KernelAddressSpace) Active(ctx context.Context, s *session.Session) bool {
	return true
}

func (c KernelAddressSpace) Acquire(ctx context.Context, base *Base, opts Options) error {
	dtb, err := opts.TakeUint64("dtb", 0)
	if err != nil {
		return recollecterrors.NewInvalidArgs(base.class.Name, err.Error())
	}
	if dtb != 0 {
		if base.PhysicalAS == nil {
			return &recollecterrors.PluginError{
				Plugin:   base.class.Name,
				Resource: "kernel_address_space",
				Message:  "dtb override requires a physical address space",
			}
		}
		base.KernelAS = addrspace.NewVirtual(base.PhysicalAS, dtb)
		return nil
	}

	as, err := base.session.KernelAddressSpace(ctx)
	if err != nil || as == nil {
		return &recollecterrors.PluginError{
			Plugin:   base.class.Name,
			Resource: "kernel_address_space",
			Message:  "kernel address space not specified",
			Err:      err,
			Hint:     "supply --dtb or let address space detection run against an image",
		}
	}
	base.KernelAS = as
	return nil
}

// PrivilegedOnly fails construction unless the session is privileged or
// interactive. Live analysis capabilities compose this first.
type PrivilegedOnly struct{}

func (c PrivilegedOnly) Declare(d *Declaration) {}

func (c PrivilegedOnly) Active(ctx context.Context, s *session.Session) bool {
	return true
}

func (c PrivilegedOnly) Acquire(ctx context.Context, base *Base, opts Options) error {
	if !base.session.Privileged() {
		return &recollecterrors.PluginError{
			Plugin:   base.class.Name,
			Resource: "privilege",
			Message:  "live analysis is only available for interactive or privileged sessions",
		}
	}
	return nil
}

// Verbosity accepts a verbosity level option, default 1.
type Verbosity struct{}

func (c Verbosity) Declare(d *Declaration) {
	d.Argument(ArgumentSpec{
		Name:    "verbosity",
		Short:   "V",
		Help:    "Desired amount of output: 0 = quiet, 10 = noisy.",
		Type:    "int",
		Default: 1,
	})
}

func (c Verbosity) Active(ctx context.Context, s *session.Session) bool {
	return true
}

func (c Verbosity) Acquire(ctx context.Context, base *Base, opts Options) error {
	v, err := opts.TakeInt("verbosity", 1)
	if err != nil {
		return recollecterrors.NewInvalidArgs(base.class.Name, err.Error())
	}
	base.Verbosity = v
	return nil
}
