package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/recollectlabs/recollect/internal/addrspace"
	"github.com/recollectlabs/recollect/internal/profile"
)

type countingDetector struct {
	profileCalls  int
	physicalCalls int
	kernelCalls   int

	profile    profile.Profile
	profileErr error
	physical   addrspace.AddressSpace
	kernel     addrspace.AddressSpace
}

func (d *countingDetector) Profile(ctx context.Context) (profile.Profile, error) {
	d.profileCalls++
	return d.profile, d.profileErr
}

func (d *countingDetector) PhysicalAddressSpace(ctx context.Context) (addrspace.AddressSpace, error) {
	d.physicalCalls++
	return d.physical, nil
}

func (d *countingDetector) KernelAddressSpace(ctx context.Context) (addrspace.AddressSpace, error) {
	d.kernelCalls++
	return d.kernel, nil
}

func parseTestProfile(t *testing.T) *profile.YAMLProfile {
	t.Helper()
	p, err := profile.Parse([]byte("name: testos\ntypes: {_X: {size: 8}}"))
	require.NoError(t, err)
	return p
}

func TestProfileAutodetectionRunsOnce(t *testing.T) {
	detector := &countingDetector{profile: parseTestProfile(t)}
	s := New(Config{Detector: detector})
	ctx := context.Background()

	require.False(t, s.HasProfile())

	p1, err := s.Profile(ctx)
	require.NoError(t, err)
	require.NotNil(t, p1)

	p2, err := s.Profile(ctx)
	require.NoError(t, err)
	require.Same(t, p1, p2)
	require.Equal(t, 1, detector.profileCalls)
	require.True(t, s.HasProfile())
}

func TestProfileDetectionFailureIsCached(t *testing.T) {
	detector := &countingDetector{profileErr: errors.New("no matching signature")}
	s := New(Config{Detector: detector})
	ctx := context.Background()

	_, err1 := s.Profile(ctx)
	require.Error(t, err1)
	_, err2 := s.Profile(ctx)
	require.Error(t, err2)
	require.Equal(t, 1, detector.profileCalls)

	// An explicit override still wins after a failed detection.
	s.SetProfile(parseTestProfile(t))
	p, err := s.Profile(ctx)
	require.NoError(t, err)
	require.NotNil(t, p)
}

func TestProfileWithoutDetectorIsAbsentNotError(t *testing.T) {
	s := New(Config{})
	p, err := s.Profile(context.Background())
	require.NoError(t, err)
	require.Nil(t, p)
}

func TestAddressSpaceDetectionIsOneShot(t *testing.T) {
	phys := addrspace.NewBuffer("phys", []byte{1})
	detector := &countingDetector{
		physical: phys,
		kernel:   addrspace.NewVirtual(phys, 0x1000),
	}
	s := New(Config{Detector: detector})
	ctx := context.Background()

	got, err := s.PhysicalAddressSpace(ctx)
	require.NoError(t, err)
	require.Same(t, phys, got)
	_, err = s.PhysicalAddressSpace(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, detector.physicalCalls)

	kas, err := s.KernelAddressSpace(ctx)
	require.NoError(t, err)
	require.NotNil(t, kas)
	require.Equal(t, 1, detector.kernelCalls)

	// Explicit sets bypass detection entirely.
	other := New(Config{Detector: detector})
	other.SetPhysicalAddressSpace(phys)
	_, err = other.PhysicalAddressSpace(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, detector.physicalCalls)
}

func TestParameterHookComputesOnceAndCaches(t *testing.T) {
	s := New(Config{})
	ctx := context.Background()

	calls := 0
	s.SetHook("pslist", func(ctx context.Context, s *Session) (any, error) {
		calls++
		return []uint64{0x1000, 0x2000}, nil
	})

	require.False(t, s.HasParameter("pslist"))

	v1, err := s.GetParameter(ctx, "pslist")
	require.NoError(t, err)
	require.Equal(t, []uint64{0x1000, 0x2000}, v1)

	v2, err := s.GetParameter(ctx, "pslist")
	require.NoError(t, err)
	require.Equal(t, v1, v2)
	require.Equal(t, 1, calls)
	require.True(t, s.HasParameter("pslist"))

	_, err = s.GetParameter(ctx, "unknown")
	require.Error(t, err)
}

func TestSetParameterShadowsHook(t *testing.T) {
	s := New(Config{})
	s.SetHook("dtb", func(ctx context.Context, s *Session) (any, error) {
		return uint64(0xdead), nil
	})
	s.SetParameter("dtb", uint64(0x1000))

	v, err := s.GetParameter(context.Background(), "dtb")
	require.NoError(t, err)
	require.Equal(t, uint64(0x1000), v)
}

func TestProgressSinkIsAdvisory(t *testing.T) {
	var messages []string
	s := New(Config{
		Privileged: true,
		Progress: func(format string, args ...any) {
			messages = append(messages, format)
		},
	})

	s.ReportProgress("scanned %d pages", 10)
	require.Len(t, messages, 1)
	require.True(t, s.Privileged())

	// A session without a sink must not panic.
	New(Config{}).ReportProgress("ignored")
}
