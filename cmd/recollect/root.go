package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

type rootFlags struct {
	verbose     bool
	image       string
	profilesDir string
	privileged  bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "recollect",
		Short:         "Recollect analyzes captured memory images through chainable plugins",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand: open the interactive plugin browser.
			if len(args) == 0 {
				return runBrowse(flags)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringVarP(&flags.image, "image", "i", "", "Path to the memory image to analyze")
	cmd.PersistentFlags().StringVar(&flags.profilesDir, "profiles", defaultProfilesDir(), "Directory holding profile definitions")
	cmd.PersistentFlags().BoolVar(&flags.privileged, "privileged", false, "Allow plugins that require a privileged session")

	cmd.AddCommand(newRunCmd(flags))
	cmd.AddCommand(newPluginsCmd(flags))
	cmd.AddCommand(newDescribeCmd(flags))
	cmd.AddCommand(newBrowseCmd(flags))
	cmd.AddCommand(newProfilesCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func defaultProfilesDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "profiles"
	}
	return filepath.Join(home, ".recollect", "profiles")
}
