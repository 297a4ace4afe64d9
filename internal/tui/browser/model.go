// Package browser is the interactive plugin catalog: a scrollable list of
// every plugin active for the session, with a detail pane showing declared
// arguments and requirements.
package browser

import (
	"context"
	"sort"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/recollectlabs/recollect/internal/metadata"
)

// ViewMode selects which pane the browser renders.
type ViewMode int

const (
	ViewList ViewMode = iota
	ViewDetail
)

// catalogMsg carries the serialized catalog once activation resolution
// finishes.
type catalogMsg struct {
	records []metadata.Record
}

// catalogErrMsg reports a failed catalog load, ambiguity included.
type catalogErrMsg struct {
	err error
}

// Model is the Bubbletea state for the plugin browser.
type Model struct {
	db      *metadata.Database
	records []metadata.Record

	viewMode ViewMode
	cursor   int
	loading  bool
	errMsg   string
	quitting bool

	spinner spinner.Model

	width  int
	height int
}

// NewModel constructs a browser over db. The catalog loads asynchronously
// because resolving active plugins can trigger image autodetection.
func NewModel(db *metadata.Database) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	return Model{
		db:      db,
		loading: true,
		spinner: s,
		width:   80,
		height:  24,
	}
}

// Init kicks off the spinner and the catalog load.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, loadCatalogCmd(m.db))
}

// Records returns the loaded catalog entries in display order.
func (m Model) Records() []metadata.Record {
	return m.records
}

// Selected returns the record under the cursor.
func (m Model) Selected() (metadata.Record, bool) {
	if m.cursor < 0 || m.cursor >= len(m.records) {
		return metadata.Record{}, false
	}
	return m.records[m.cursor], true
}

func loadCatalogCmd(db *metadata.Database) tea.Cmd {
	return func() tea.Msg {
		catalog, err := db.Serialize(context.Background())
		if err != nil {
			return catalogErrMsg{err: err}
		}
		records := make([]metadata.Record, 0, len(catalog))
		for _, record := range catalog {
			records = append(records, record)
		}
		sort.Slice(records, func(i, j int) bool {
			return records[i].Name < records[j].Name
		})
		return catalogMsg{records: records}
	}
}
