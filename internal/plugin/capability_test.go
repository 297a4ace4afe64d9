package plugin

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/recollectlabs/recollect/internal/addrspace"
	"github.com/recollectlabs/recollect/internal/profile"
	"github.com/recollectlabs/recollect/internal/session"
	recollecterrors "github.com/recollectlabs/recollect/pkg/errors"
)

type stubDetector struct {
	profileCalls int

	profile  profile.Profile
	physical addrspace.AddressSpace
	kernel   addrspace.AddressSpace
	err      error
}

func (d *stubDetector) Profile(ctx context.Context) (profile.Profile, error) {
	d.profileCalls++
	return d.profile, d.err
}

func (d *stubDetector) PhysicalAddressSpace(ctx context.Context) (addrspace.AddressSpace, error) {
	return d.physical, d.err
}

func (d *stubDetector) KernelAddressSpace(ctx context.Context) (addrspace.AddressSpace, error) {
	return d.kernel, d.err
}

func testProfile(t *testing.T) *profile.YAMLProfile {
	t.Helper()
	p, err := profile.Parse([]byte("name: testos\ntypes: {_EPROCESS: {size: 16}}"))
	require.NoError(t, err)
	return p
}

func profiledClass(required bool) *Class {
	return &Class{
		Name:         "prof",
		Capabilities: []Capability{ProfileRequired{Required: required}},
		New: func(base *Base, opts Options) (Command, error) {
			return base, nil
		},
	}
}

func TestProfileRequiredActivationTriggersOneDetection(t *testing.T) {
	detector := &stubDetector{profile: testProfile(t)}
	s := session.New(session.Config{Detector: detector})
	c := profiledClass(true)
	ctx := context.Background()

	require.True(t, c.IsActive(ctx, s))
	require.True(t, c.IsActive(ctx, s))
	require.Equal(t, 1, detector.profileCalls)
}

func TestProfileRequiredInactiveWhenDetectionFails(t *testing.T) {
	detector := &stubDetector{err: errors.New("no signature")}
	s := session.New(session.Config{Detector: detector})
	ctx := context.Background()

	// is_active returns false rather than raising.
	require.False(t, profiledClass(true).IsActive(ctx, s))

	// A non-required profile capability never gates activation.
	require.True(t, profiledClass(false).IsActive(ctx, s))
}

func TestProfileRequiredConstructionFailsWithoutProfile(t *testing.T) {
	s := session.New(session.Config{})
	_, err := profiledClass(true).Instantiate(context.Background(), s, nil)
	require.ErrorIs(t, err, &recollecterrors.PluginError{})

	var pluginErr *recollecterrors.PluginError
	require.ErrorAs(t, err, &pluginErr)
	require.Equal(t, "profile", pluginErr.Resource)
}

func TestProfileOverrideInstallsIntoSession(t *testing.T) {
	s := session.New(session.Config{})
	override := testProfile(t)

	cmd, err := profiledClass(true).Instantiate(context.Background(), s, Options{"profile": override})
	require.NoError(t, err)

	// The override became session state, visible to later plugins.
	require.True(t, s.HasProfile())
	base := cmd.(*Base)
	require.Same(t, override, base.Profile)

	_, err = profiledClass(true).Instantiate(context.Background(), s, Options{"profile": "not a profile"})
	require.ErrorIs(t, err, &recollecterrors.InvalidArgsError{})
}

func TestPhysicalAddressSpaceRequiredSemantics(t *testing.T) {
	phys := addrspace.NewBuffer("phys", []byte{1})
	ctx := context.Background()

	class := func(required bool) *Class {
		return &Class{
			Name:         "phys",
			Capabilities: []Capability{PhysicalAddressSpace{Required: required}},
			New:          func(base *Base, opts Options) (Command, error) { return base, nil },
		}
	}

	// Required and absent: construction aborts.
	_, err := class(true).Instantiate(ctx, session.New(session.Config{}), nil)
	require.ErrorIs(t, err, &recollecterrors.PluginError{})

	// Optional and absent: construction succeeds with a nil space.
	cmd, err := class(false).Instantiate(ctx, session.New(session.Config{}), nil)
	require.NoError(t, err)
	require.Nil(t, cmd.(*Base).PhysicalAS)

	// Present via detector.
	s := session.New(session.Config{Detector: &stubDetector{physical: phys}})
	cmd, err = class(true).Instantiate(ctx, s, nil)
	require.NoError(t, err)
	require.Same(t, phys, cmd.(*Base).PhysicalAS)
}

func TestKernelAddressSpaceDTBOverride(t *testing.T) {
	phys := addrspace.NewBuffer("phys", make([]byte, 32))
	s := session.New(session.Config{Detector: &stubDetector{physical: phys}})
	ctx := context.Background()

	c := &Class{
		Name: "kas",
		Capabilities: []Capability{
			PhysicalAddressSpace{Required: true},
			KernelAddressSpace{},
		},
		New: func(base *Base, opts Options) (Command, error) { return base, nil },
	}

	// DTB override builds a fresh virtual space over the physical one.
	cmd, err := c.Instantiate(ctx, s, Options{"dtb": "0x2000"})
	require.NoError(t, err)
	virt, ok := cmd.(*Base).KernelAS.(*addrspace.VirtualSpace)
	require.True(t, ok)
	require.Equal(t, uint64(0x2000), virt.DTB())

	// Without an override or detector result, construction fails.
	_, err = c.Instantiate(ctx, session.New(session.Config{Detector: &stubDetector{physical: phys}}), nil)
	require.ErrorIs(t, err, &recollecterrors.PluginError{})

	// A session-resolved kernel space is used as-is.
	resolved := addrspace.NewVirtual(phys, 0x1000)
	withKernel := session.New(session.Config{Detector: &stubDetector{physical: phys, kernel: resolved}})
	cmd, err = c.Instantiate(ctx, withKernel, nil)
	require.NoError(t, err)
	require.Same(t, resolved, cmd.(*Base).KernelAS)
}

func TestPrivilegedOnlyGatesConstruction(t *testing.T) {
	c := &Class{
		Name:         "live",
		Capabilities: []Capability{PrivilegedOnly{}},
		New:          func(base *Base, opts Options) (Command, error) { return base, nil },
	}
	ctx := context.Background()

	_, err := c.Instantiate(ctx, session.New(session.Config{}), nil)
	require.ErrorIs(t, err, &recollecterrors.PluginError{})

	_, err = c.Instantiate(ctx, session.New(session.Config{Privileged: true}), nil)
	require.NoError(t, err)
}

func TestVerbosityDefaultsToOne(t *testing.T) {
	c := &Class{
		Name:         "verbose",
		Capabilities: []Capability{Verbosity{}},
		New:          func(base *Base, opts Options) (Command, error) { return base, nil },
	}
	ctx := context.Background()
	s := session.New(session.Config{})

	cmd, err := c.Instantiate(ctx, s, nil)
	require.NoError(t, err)
	require.Equal(t, 1, cmd.(*Base).Verbosity)

	cmd, err = c.Instantiate(ctx, s, Options{"verbosity": "5"})
	require.NoError(t, err)
	require.Equal(t, 5, cmd.(*Base).Verbosity)

	_, err = c.Instantiate(ctx, s, Options{"verbosity": "loud"})
	require.ErrorIs(t, err, &recollecterrors.InvalidArgsError{})
}

func TestDeclarationLastWriterWins(t *testing.T) {
	d := NewDeclaration()
	d.Argument(ArgumentSpec{Name: "profile", Help: "first"})
	d.Argument(ArgumentSpec{Name: "dtb"})
	d.Argument(ArgumentSpec{Name: "profile", Help: "second"})
	d.Requirement("profile")
	d.Requirement("profile")

	args := d.Arguments()
	require.Len(t, args, 2)
	// Replacement keeps the original position.
	require.Equal(t, "profile", args[0].Name)
	require.Equal(t, "second", args[0].Help)
	require.Equal(t, []string{"profile"}, d.Requirements())
}
