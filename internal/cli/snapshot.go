package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/livegraph/pkg/aggregate"
	"github.com/matzehuels/livegraph/pkg/config"
	"github.com/matzehuels/livegraph/pkg/errors"
	"github.com/matzehuels/livegraph/pkg/graph"
	"github.com/matzehuels/livegraph/pkg/render/nodelink"
	"github.com/matzehuels/livegraph/pkg/tail"
)

// snapshotFlags holds command-line overrides for the snapshot command.
type snapshotFlags struct {
	outputs  []string
	engine   string
	title    string
	detailed bool
	tagKinds bool
}

// snapshotCommand creates the snapshot command: aggregate a whole file once
// and write the resulting graph.
func (c *CLI) snapshotCommand() *cobra.Command {
	var f snapshotFlags

	cmd := &cobra.Command{
		Use:   "snapshot [file]",
		Short: "Build the interaction graph from a whole file and write it once",
		Long: `Read every complete record in a JSON-lines file, build the interaction graph
and write it to one or more outputs. The format of each output follows its
extension: svg, dot, json, png or pdf.`,
		Example: `  livegraph snapshot posts.json -o graph.svg,graph.json`,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return report(c.Logger, err)
			}
			f.apply(cmd, cfg)
			if len(args) == 1 {
				cfg.DataFile = args[0]
			}
			if len(f.outputs) == 0 {
				f.outputs = []string{cfg.Output.Path}
			}
			for _, out := range f.outputs {
				cfg.Output.Path = out
				if err := cfg.Validate(); err != nil {
					return report(c.Logger, err)
				}
			}
			return c.runSnapshot(cmd.Context(), cfg, f.outputs)
		},
	}

	fl := cmd.Flags()
	fl.StringSliceVarP(&f.outputs, "output", "o", nil, "output files, comma separated (default \"graph.svg\")")
	fl.StringVar(&f.engine, "engine", "", "graphviz layout engine: neato, dot, fdp, sfdp, circo, twopi")
	fl.StringVar(&f.title, "title", "", "diagram title")
	fl.BoolVar(&f.detailed, "detailed", false, "show node kind and degree in labels")
	fl.BoolVar(&f.tagKinds, "tag-kinds", false, "keep authors and categories in separate namespaces")

	return cmd
}

func (f snapshotFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	fl := cmd.Flags()
	if fl.Changed("engine") {
		cfg.Output.Engine = f.engine
	}
	if fl.Changed("title") {
		cfg.Output.Title = f.title
	}
	if fl.Changed("detailed") {
		cfg.Output.Detailed = f.detailed
	}
	if fl.Changed("tag-kinds") {
		cfg.TagKinds = f.tagKinds
	}
}

func (c *CLI) runSnapshot(ctx context.Context, cfg *config.Config, outputs []string) error {
	logger := loggerFromContext(ctx)
	prog := newProgress(logger)

	agg := aggregate.New(graph.New(), nil, aggregate.Options{Logger: logger, TagKinds: cfg.TagKinds})
	for line, err := range tail.ReadAll(ctx, cfg.DataFile) {
		if err != nil {
			return report(logger, err, "file", cfg.DataFile)
		}
		agg.Process(ctx, line)
	}
	st := agg.Stats()
	snap := agg.Graph().Snapshot()
	prog.done("Read " + pluralize(st.Total(), "line") + " from " + cfg.DataFile)

	opts := nodelink.SinkOptions{Options: nodelink.Options{
		Title:    cfg.Output.Title,
		Engine:   cfg.Output.Engine,
		Detailed: cfg.Output.Detailed,
	}}

	spin := newSpinner(ctx, "Rendering "+strings.Join(outputs, ", "))
	spin.Start()
	written := make([]string, 0, len(outputs))
	for _, out := range outputs {
		format, err := nodelink.FormatFromPath(out)
		if err != nil {
			spin.Stop()
			return report(logger, errors.Wrap(errors.ErrCodeInvalidPath, err, "unsupported output %s", out))
		}
		data, err := nodelink.Encode(ctx, snap, format, opts)
		if err == nil {
			err = graph.WriteFileAtomic(out, data)
		}
		if err != nil {
			spin.Stop()
			return report(logger, errors.Wrap(errors.ErrCodeInternal, err, "write %s", out))
		}
		written = append(written, out)
	}
	spin.Stop()

	printSuccess("Wrote interaction graph")
	for _, out := range written {
		printFile(out)
	}
	printStats(snap.Records, snap.NodeCount(), snap.EdgeCount(), st.Malformed, st.Failed)
	return nil
}

func pluralize(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return fmt.Sprintf("%d %ss", n, word)
}
