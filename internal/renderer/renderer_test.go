package renderer

import (
	"context"
	"encoding/json"
	"iter"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/recollectlabs/recollect/internal/plugin"
	"github.com/recollectlabs/recollect/internal/session"
)

type fixedTable struct {
	plugin.Typed
}

func (p *fixedTable) Collect(ctx context.Context) iter.Seq[plugin.Row] {
	return func(yield func(plugin.Row) bool) {
		if !yield(plugin.Row{uint64(0x1000), "A"}) {
			return
		}
		yield(plugin.Row{uint64(0x2000), "B"})
	}
}

func (p *fixedTable) Render(ctx context.Context, r plugin.Renderer) error {
	return plugin.RenderTable(ctx, p, r)
}

func fixedCommand(t *testing.T) plugin.Command {
	t.Helper()
	c := &plugin.Class{
		Name: "fixed",
		Header: plugin.MustHeader(
			plugin.Column{CName: "offset", Name: "Offset", Type: plugin.TypeName("address")},
			plugin.Column{CName: "name", Name: "Name", Type: plugin.TypeOf("")},
		),
		New: func(base *plugin.Base, opts plugin.Options) (plugin.Command, error) {
			return &fixedTable{Typed: plugin.Typed{Base: *base}}, nil
		},
	}
	cmd, err := c.Instantiate(context.Background(), session.New(session.Config{}), nil)
	require.NoError(t, err)
	return cmd
}

func TestTextRendersHeaderAndHexAddresses(t *testing.T) {
	var buf strings.Builder
	r := NewText(&buf)

	require.NoError(t, fixedCommand(t).Render(context.Background(), r))
	require.NoError(t, r.Flush())

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)

	// Human labels in the header, address columns in hex.
	require.Equal(t, []string{"Offset", "Name"}, strings.Fields(lines[0]))
	require.Equal(t, []string{"0x1000", "A"}, strings.Fields(lines[1]))
	require.Equal(t, []string{"0x2000", "B"}, strings.Fields(lines[2]))
}

func TestTextFallsBackToCName(t *testing.T) {
	var buf strings.Builder
	r := NewText(&buf)

	h := plugin.MustHeader(plugin.Column{CName: "pid"})
	require.NoError(t, r.TableHeader(h))
	require.NoError(t, r.TableRow(42))
	require.NoError(t, r.Flush())

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Equal(t, "pid", strings.TrimSpace(lines[0]))
	require.Equal(t, "42", strings.TrimSpace(lines[1]))
}

func TestJSONBuildsKeyedDocument(t *testing.T) {
	var buf strings.Builder
	r := NewJSON(&buf)

	require.NoError(t, fixedCommand(t).Render(context.Background(), r))
	require.NoError(t, r.Flush())

	var doc struct {
		Columns []string         `json:"columns"`
		Rows    []map[string]any `json:"rows"`
	}
	require.NoError(t, json.Unmarshal([]byte(buf.String()), &doc))

	require.Equal(t, []string{"offset", "name"}, doc.Columns)
	require.Len(t, doc.Rows, 2)
	// JSON numbers decode as float64.
	require.Equal(t, float64(0x1000), doc.Rows[0]["offset"])
	require.Equal(t, "A", doc.Rows[0]["name"])
	require.Equal(t, "B", doc.Rows[1]["name"])
}

func TestJSONRejectsRowsBeforeHeader(t *testing.T) {
	r := NewJSON(&strings.Builder{})
	require.Error(t, r.TableRow(1))
}

func TestJSONEmptyTableHasRowsArray(t *testing.T) {
	var buf strings.Builder
	r := NewJSON(&buf)
	require.NoError(t, r.TableHeader(plugin.MustHeader(plugin.Column{CName: "pid"})))
	require.NoError(t, r.Flush())
	require.Contains(t, buf.String(), `"rows": []`)
}

func TestStringRendersInMemory(t *testing.T) {
	out, err := String(context.Background(), fixedCommand(t))
	require.NoError(t, err)
	require.Contains(t, out, "Offset")
	require.Contains(t, out, "0x1000")
}
