package main

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/recollectlabs/recollect/internal/tui/browser"
)

func newBrowseCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Browse active plugins interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBrowse(root)
		},
	}
}

func runBrowse(root *rootFlags) error {
	app, err := newAppContext(root)
	if err != nil {
		return err
	}

	program := tea.NewProgram(browser.NewModel(app.db), tea.WithAltScreen())
	_, err = program.Run()
	return err
}
