package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

type pluginsOptions struct {
	jsonOutput bool
	all        bool
}

func newPluginsCmd(root *rootFlags) *cobra.Command {
	opts := &pluginsOptions{}

	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "List the plugins active for this session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlugins(cmd, root, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output in JSON format")
	cmd.Flags().BoolVar(&opts.all, "all", false, "List every registered name, active or not")

	return cmd
}

func runPlugins(cmd *cobra.Command, root *rootFlags, opts *pluginsOptions) error {
	app, err := newAppContext(root)
	if err != nil {
		return err
	}

	if opts.all {
		return renderAllNames(cmd, app)
	}

	catalog, err := app.db.Serialize(context.Background())
	if err != nil {
		return err
	}

	if opts.jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(catalog)
	}

	if len(catalog) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No plugins are active for this session.")
		fmt.Fprintln(cmd.OutOrStdout(), "Point --image at a memory capture or load profiles with --profiles.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tCATEGORY\tPRODUCER\tREQUIREMENTS")
	for _, name := range app.db.Names() {
		record, ok := catalog[name]
		if !ok {
			continue
		}
		producer := ""
		if record.Producer {
			producer = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			record.Name, record.Category, producer, strings.Join(record.Requirements, ","))
	}
	return w.Flush()
}

func renderAllNames(cmd *cobra.Command, app *appContext) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tIMPLEMENTATIONS\tREQUIREMENTS")
	for _, name := range app.db.Names() {
		impls := app.db.MetadataByName(name)
		fmt.Fprintf(w, "%s\t%d\t%s\n", name, len(impls), strings.Join(app.db.Requirements(name), ","))
	}
	return w.Flush()
}
