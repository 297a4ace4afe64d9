package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/recollectlabs/recollect/internal/plugin"
	"github.com/recollectlabs/recollect/internal/renderer"
	recollecterrors "github.com/recollectlabs/recollect/pkg/errors"
)

type runOptions struct {
	jsonOutput  bool
	profileName string
	dtb         string
	verbosity   int
	pluginOpts  []string
}

func newRunCmd(root *rootFlags) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run <plugin>",
		Short: "Run a plugin against the session and render its table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, root, opts, args[0])
		},
	}

	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output in JSON format")
	cmd.Flags().StringVarP(&opts.profileName, "profile", "p", "", "Profile to use instead of autodetection")
	cmd.Flags().StringVar(&opts.dtb, "dtb", "", "DTB physical address override (hex accepted)")
	cmd.Flags().IntVarP(&opts.verbosity, "verbosity", "V", 1, "Desired amount of output: 0 = quiet, 10 = noisy")
	cmd.Flags().StringArrayVarP(&opts.pluginOpts, "opt", "o", nil, "Plugin option as key=value (repeatable)")

	return cmd
}

func runRun(cmd *cobra.Command, root *rootFlags, opts *runOptions, name string) error {
	app, err := newAppContext(root)
	if err != nil {
		return err
	}

	options, err := buildPluginOptions(app, opts)
	if err != nil {
		return err
	}
	// Only forward verbosity when set; not every plugin declares it.
	if cmd.Flags().Changed("verbosity") {
		options["verbosity"] = opts.verbosity
	}

	ctx := context.Background()
	meta, err := app.db.GetActivePlugin(ctx, name)
	if err != nil {
		return err
	}
	if meta == nil {
		return newCommandError("run", fmt.Sprintf("resolving plugin %q", name), fmt.Errorf("no active implementation"),
			"Run 'recollect plugins' to list what is active, and check --image and --profiles.")
	}

	instance, err := meta.Class().Instantiate(ctx, app.session, options)
	if err != nil {
		return err
	}

	if opts.jsonOutput {
		out := renderer.NewJSON(cmd.OutOrStdout())
		if err := renderResult(ctx, instance, out); err != nil {
			return err
		}
		return out.Flush()
	}
	out := renderer.NewText(os.Stdout)
	if err := renderResult(ctx, instance, out); err != nil {
		return err
	}
	return out.Flush()
}

func renderResult(ctx context.Context, instance plugin.Command, out plugin.Renderer) error {
	err := instance.Render(ctx, out)
	if recollecterrors.IsAbort(err) {
		return nil
	}
	return err
}

// buildPluginOptions assembles the construction options from the command
// line. Values stay strings; the plugin's own coercions interpret them.
func buildPluginOptions(app *appContext, opts *runOptions) (plugin.Options, error) {
	options := plugin.Options{}
	for _, pair := range opts.pluginOpts {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, newCommandError("run", fmt.Sprintf("parsing option %q", pair), fmt.Errorf("expected key=value"),
				"Pass plugin options as --opt name=value.")
		}
		options[key] = value
	}
	if opts.dtb != "" {
		options["dtb"] = opts.dtb
	}
	if opts.profileName != "" {
		p, ok := app.store.Get(opts.profileName)
		if !ok {
			return nil, newCommandError("run", fmt.Sprintf("loading profile %q", opts.profileName),
				fmt.Errorf("not found in %d loaded profiles", len(app.store.Names())),
				"Run 'recollect profiles list' to see what is available, or fetch a profile repository first.")
		}
		options["profile"] = p
	}
	return options, nil
}
