package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

type describeOptions struct {
	jsonOutput bool
}

func newDescribeCmd(root *rootFlags) *cobra.Command {
	opts := &describeOptions{}

	cmd := &cobra.Command{
		Use:   "describe <plugin>",
		Short: "Show the declared arguments and requirements of a plugin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDescribe(cmd, root, opts, args[0])
		},
	}

	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output in JSON format")

	return cmd
}

func runDescribe(cmd *cobra.Command, root *rootFlags, opts *describeOptions, name string) error {
	app, err := newAppContext(root)
	if err != nil {
		return err
	}

	impls := app.db.MetadataByName(name)
	if len(impls) == 0 {
		return newCommandError("describe", fmt.Sprintf("looking up plugin %q", name),
			fmt.Errorf("no such plugin"), "Run 'recollect plugins --all' to list every registered name.")
	}

	if opts.jsonOutput {
		records := make([]any, 0, len(impls))
		for _, m := range impls {
			records = append(records, m.Record())
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	out := cmd.OutOrStdout()
	for i, m := range impls {
		if i > 0 {
			fmt.Fprintln(out)
		}
		record := m.Record()
		fmt.Fprintf(out, "%s", record.Name)
		if record.Category != "" {
			fmt.Fprintf(out, " (%s)", record.Category)
		}
		if record.Producer {
			fmt.Fprint(out, " [producer]")
		}
		fmt.Fprintln(out)

		if len(record.Requirements) > 0 {
			fmt.Fprintf(out, "Requires: %s\n", strings.Join(record.Requirements, ", "))
		}

		if len(record.Arguments) == 0 {
			continue
		}
		w := tabwriter.NewWriter(out, 2, 4, 2, ' ', 0)
		fmt.Fprintln(w, "  OPTION\tTYPE\tDEFAULT\tHELP")
		for _, arg := range record.Arguments {
			def := ""
			if arg.Default != nil {
				def = fmt.Sprintf("%v", arg.Default)
			}
			help := arg.Help
			if arg.Critical {
				help = strings.TrimSpace(help + " (critical)")
			}
			fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", arg.Name, arg.Type, def, help)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}
	return nil
}
