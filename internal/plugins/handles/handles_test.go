package handles

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/recollectlabs/recollect/internal/addrspace"
	"github.com/recollectlabs/recollect/internal/plugin"
	"github.com/recollectlabs/recollect/internal/plugins/pslist"
	"github.com/recollectlabs/recollect/internal/profile"
	"github.com/recollectlabs/recollect/internal/session"
)

const testDefinition = `
name: testos-1.0-amd64
constants:
  ProcessPoolTag: 0x636f7250
  PoolHeaderSize: 8
enums:
  ObjectTypeIndexTable: [None, Process, Thread, File, Key]
types:
  _EPROCESS:
    size: 32
    fields:
      ImageFileName: {offset: 0, type: "char[16]"}
      UniqueProcessId: {offset: 16, type: uint64}
      ObjectTable: {offset: 24, type: pointer}
  _HANDLE_TABLE:
    size: 16
    fields:
      HandleCount: {offset: 0, type: uint64}
      Layer1: {offset: 8, type: pointer}
  _HANDLE_TABLE_ENTRY:
    size: 32
    fields:
      HandleValue: {offset: 0, type: uint64}
      GrantedAccess: {offset: 8, type: uint64}
      TypeIndex: {offset: 16, type: uint64}
      NameInfo: {offset: 24, type: pointer}
  _OBJECT_NAME:
    size: 32
    fields:
      Name: {offset: 0, type: "char[32]"}
`

// testImage is one process whose handle table holds three entries: a
// named File handle, an anonymous Process handle, and an entry with an
// out-of-range type index.
func testImage(t *testing.T) []byte {
	t.Helper()
	img := make([]byte, 0x1000)
	put64 := func(at uint64, v uint64) { binary.LittleEndian.PutUint64(img[at:], v) }

	// Pool tag at 0x100, process object at 0x108.
	copy(img[0x100:], "Proc")
	copy(img[0x108:], "init")
	put64(0x118, 1)     // UniqueProcessId
	put64(0x120, 0x200) // ObjectTable

	// Handle table at 0x200, entry array at 0x300.
	put64(0x200, 3)     // HandleCount
	put64(0x208, 0x300) // Layer1

	// Entry 0: named File handle.
	put64(0x300, 0x4)   // HandleValue
	put64(0x308, 0x1f)  // GrantedAccess
	put64(0x310, 3)     // TypeIndex -> File
	put64(0x318, 0x400) // NameInfo

	// Entry 1: anonymous Process handle.
	put64(0x320, 0x8)
	put64(0x328, 0x3)
	put64(0x330, 1) // TypeIndex -> Process
	put64(0x338, 0)

	// Entry 2: type index outside the enumeration, always skipped.
	put64(0x350, 9)

	copy(img[0x400:], "\\Device\\Volume1")
	return img
}

func testSession(t *testing.T) *session.Session {
	t.Helper()
	p, err := profile.Parse([]byte(testDefinition))
	require.NoError(t, err)

	phys := addrspace.NewBuffer("image", testImage(t))
	s := session.New(session.Config{})
	s.SetProfile(p)
	s.SetPhysicalAddressSpace(phys)
	s.SetKernelAddressSpace(addrspace.NewVirtual(phys, 0))
	pslist.InstallHook(s)
	return s
}

func collect(t *testing.T, s *session.Session, opts plugin.Options) []plugin.Row {
	t.Helper()
	ctx := context.Background()
	cmd, err := plugin.GetPlugin(ctx, s, "handles", opts)
	require.NoError(t, err)

	var rows []plugin.Row
	for row := range cmd.(plugin.Collector).Collect(ctx) {
		rows = append(rows, row)
	}
	return rows
}

func TestCollectWalksHandleTable(t *testing.T) {
	rows := collect(t, testSession(t), nil)
	require.Len(t, rows, 2)

	// Entry offset, process, handle value, access, type, details.
	require.Equal(t, uint64(0x300), rows[0][0])
	proc := rows[0][1].(*profile.Object)
	require.Equal(t, uint64(0x108), proc.Offset())
	require.Equal(t, uint64(0x4), rows[0][2])
	require.Equal(t, uint64(0x1f), rows[0][3])
	require.Equal(t, "File", rows[0][4])
	require.Equal(t, "\\Device\\Volume1", rows[0][5])

	require.Equal(t, uint64(0x320), rows[1][0])
	require.Equal(t, "Process", rows[1][4])
	require.Equal(t, "", rows[1][5])
}

func TestNamedOnlyDropsAnonymousHandles(t *testing.T) {
	rows := collect(t, testSession(t), plugin.Options{"named_only": true})
	require.Len(t, rows, 1)
	require.Equal(t, "File", rows[0][4])
}

func TestObjectTypesFilter(t *testing.T) {
	rows := collect(t, testSession(t), plugin.Options{"object_types": "Process,Thread"})
	require.Len(t, rows, 1)
	require.Equal(t, "Process", rows[0][4])

	require.Empty(t, collect(t, testSession(t), plugin.Options{"object_types": "Key"}))
}

func TestRejectsBadOptionValues(t *testing.T) {
	ctx := context.Background()
	_, err := plugin.GetPlugin(ctx, testSession(t), "handles", plugin.Options{"named_only": "maybe"})
	require.Error(t, err)
}

func TestRenderMatchesDeclaredSchema(t *testing.T) {
	s := testSession(t)
	ctx := context.Background()
	cmd, err := plugin.GetPlugin(ctx, s, "handles", nil)
	require.NoError(t, err)

	sink := &captureRenderer{}
	require.NoError(t, cmd.Render(ctx, sink))
	require.Equal(t, 6, sink.header.Len())
	require.Len(t, sink.rows, 2)
	for _, row := range sink.rows {
		require.Len(t, row, sink.header.Len())
	}
}

type captureRenderer struct {
	header *plugin.Header
	rows   []plugin.Row
}

func (r *captureRenderer) TableHeader(h *plugin.Header) error {
	r.header = h
	return nil
}

func (r *captureRenderer) TableRow(values ...any) error {
	r.rows = append(r.rows, plugin.Row(values))
	return nil
}
