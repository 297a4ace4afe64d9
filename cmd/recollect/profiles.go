package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/recollectlabs/recollect/internal/profile"
)

func newProfilesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "Manage the local profile definitions",
	}

	cmd.AddCommand(newProfilesFetchCmd())
	cmd.AddCommand(newProfilesListCmd())

	return cmd
}

func newProfilesFetchCmd() *cobra.Command {
	var url string
	var dir string

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Clone or update a profile repository",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo := profile.NewRepository(url, dir)
			updated, err := repo.Sync(cmd.Context())
			if err != nil {
				return newCommandError("fetch", fmt.Sprintf("syncing %s", url), err,
					"Check the repository URL and your network connection.")
			}
			if updated {
				fmt.Fprintf(cmd.OutOrStdout(), "Fetched new profiles into %s\n", dir)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Already up to date.")
			}

			store, err := repo.Load()
			if err != nil {
				return newCommandError("fetch", "validating fetched profiles", err,
					"The repository contains a malformed definition; report it upstream.")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d profiles available.\n", len(store.Names()))
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "Git URL of the profile repository")
	cmd.Flags().StringVar(&dir, "dir", defaultProfilesDir(), "Local cache directory")
	cmd.MarkFlagRequired("url") //nolint:errcheck

	return cmd
}

func newProfilesListCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List locally available profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := profile.LoadDir(dir)
			if err != nil {
				return newCommandError("list", fmt.Sprintf("loading profiles from %s", dir), err,
					"Fetch a profile repository first with 'recollect profiles fetch'.")
			}

			names := store.Names()
			if len(names) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No profiles found.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tOS\tARCH\tVERSION")
			for _, name := range names {
				p, _ := store.Get(name)
				meta := p.Metadata()
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", name, meta.OS, meta.Arch, meta.Version)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&dir, "dir", defaultProfilesDir(), "Directory holding profile definitions")

	return cmd
}
