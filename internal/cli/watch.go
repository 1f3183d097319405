package cli

import (
	"context"
	stderrors "errors"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/livegraph/internal/metrics"
	"github.com/matzehuels/livegraph/internal/server"
	"github.com/matzehuels/livegraph/pkg/aggregate"
	"github.com/matzehuels/livegraph/pkg/buildinfo"
	"github.com/matzehuels/livegraph/pkg/config"
	"github.com/matzehuels/livegraph/pkg/errors"
	"github.com/matzehuels/livegraph/pkg/graph"
	"github.com/matzehuels/livegraph/pkg/observability"
	"github.com/matzehuels/livegraph/pkg/render"
	"github.com/matzehuels/livegraph/pkg/render/nodelink"
	"github.com/matzehuels/livegraph/pkg/render/redis"
	"github.com/matzehuels/livegraph/pkg/tail"
)

// watchFlags holds command-line overrides for the watch command.
type watchFlags struct {
	output      string
	engine      string
	title       string
	detailed    bool
	fromStart   bool
	poll        time.Duration
	noWatch     bool
	tagKinds    bool
	renderEvery int
	coalesce    bool
	httpAddr    string
	redisAddr   string
	tui         bool
	noFile      bool
}

// watchCommand creates the watch command, the long-running consumer.
func (c *CLI) watchCommand() *cobra.Command {
	var f watchFlags

	cmd := &cobra.Command{
		Use:   "watch [file]",
		Short: "Tail a JSON-lines file and redraw the interaction graph live",
		Long: `Tail a JSON-lines file of posts and redraw the author/category interaction
graph after every new record.

Only records appended after start-up are read unless --from-start is given.
Stop with Ctrl+C; the final graph is written before exit.`,
		Example: `  # Redraw graph.svg as data/project_live.json grows
  livegraph watch

  # Live terminal table plus an HTTP view on :8080
  livegraph watch posts.json --tui --http :8080`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return report(c.Logger, err)
			}
			f.apply(cmd, cfg)
			if len(args) == 1 {
				cfg.DataFile = args[0]
			}
			if err := cfg.Validate(); err != nil {
				return report(c.Logger, err)
			}
			return c.runWatch(cmd.Context(), cfg, f)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.output, "output", "o", "", "output file; format from extension: svg, dot, json, png, pdf (default \"graph.svg\")")
	fl.BoolVar(&f.noFile, "no-file", false, "do not write an output file")
	fl.StringVar(&f.engine, "engine", "", "graphviz layout engine: neato, dot, fdp, sfdp, circo, twopi")
	fl.StringVar(&f.title, "title", "", "diagram title")
	fl.BoolVar(&f.detailed, "detailed", false, "show node kind and degree in labels")
	fl.BoolVar(&f.fromStart, "from-start", false, "replay records already in the file")
	fl.DurationVar(&f.poll, "poll", 0, "poll interval when no new line is available (default 100ms)")
	fl.BoolVar(&f.noWatch, "no-watch", false, "disable file notifications and rely on polling only")
	fl.BoolVar(&f.tagKinds, "tag-kinds", false, "keep authors and categories in separate namespaces")
	fl.IntVar(&f.renderEvery, "render-every", 0, "render after every Nth record (default 1)")
	fl.BoolVar(&f.coalesce, "coalesce", false, "render on a separate goroutine, skipping stale snapshots")
	fl.StringVar(&f.httpAddr, "http", "", "serve the live graph over HTTP on this address (e.g. :8080)")
	fl.StringVar(&f.redisAddr, "redis", "", "publish snapshots to Redis at this address")
	fl.BoolVar(&f.tui, "tui", false, "show a live edge table in the terminal")

	return cmd
}

// apply overrides cfg with the flags set on the command line.
func (f watchFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	fl := cmd.Flags()
	if fl.Changed("output") {
		cfg.Output.Path = f.output
	}
	if fl.Changed("engine") {
		cfg.Output.Engine = f.engine
	}
	if fl.Changed("title") {
		cfg.Output.Title = f.title
	}
	if fl.Changed("detailed") {
		cfg.Output.Detailed = f.detailed
	}
	if fl.Changed("from-start") {
		cfg.FromStart = f.fromStart
	}
	if fl.Changed("poll") {
		cfg.PollInterval = f.poll
	}
	if fl.Changed("no-watch") {
		cfg.NoWatch = f.noWatch
	}
	if fl.Changed("tag-kinds") {
		cfg.TagKinds = f.tagKinds
	}
	if fl.Changed("render-every") {
		cfg.RenderEvery = f.renderEvery
	}
	if fl.Changed("coalesce") {
		cfg.Coalesce = f.coalesce
	}
	if fl.Changed("http") {
		cfg.HTTP.Addr = f.httpAddr
	}
	if fl.Changed("redis") {
		cfg.Redis.Addr = f.redisAddr
	}
}

// runWatch tails cfg.DataFile until ctx is cancelled.
//
// An interrupt is not an error: the renderers are flushed, "Consumer closed."
// is logged and nil is returned. Any other failure, such as a missing data
// file, is logged once and returned marked as reported.
func (c *CLI) runWatch(ctx context.Context, cfg *config.Config, f watchFlags) error {
	logger, runID := withRunID(c.Logger)
	ctx = withLogger(ctx, logger)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger.Info("Starting consumer", "file", cfg.DataFile, "version", buildinfo.Short(), "run_id", runID)

	tailer, err := tail.Open(cfg.DataFile, tail.Options{
		PollInterval: cfg.PollInterval,
		FromStart:    cfg.FromStart,
		NoWatch:      cfg.NoWatch,
		Logger:       logger,
	})
	if err != nil {
		return report(logger, err, "file", cfg.DataFile)
	}
	defer tailer.Close()

	m := metrics.New()
	m.Register()
	defer observability.Reset()

	renderOpts := nodelink.Options{
		Title:    cfg.Output.Title,
		Engine:   cfg.Output.Engine,
		Detailed: cfg.Output.Detailed,
	}

	var renderers []render.Renderer

	if !f.noFile {
		sink, err := nodelink.NewFileSink(cfg.Output.Path, nodelink.SinkOptions{Options: renderOpts}, logger)
		if err != nil {
			return report(logger, errors.Wrap(errors.ErrCodeInvalidConfig, err, "invalid output"), "path", cfg.Output.Path)
		}
		renderers = append(renderers, sink)
	}

	var srv *server.Server
	if cfg.HTTP.Enabled() {
		latest := server.NewLatest()
		srv = server.New(latest, server.Options{
			Addr:    cfg.HTTP.Addr,
			Logger:  logger,
			Metrics: m.Handler(),
			Render:  renderOpts,
		})
		renderers = append(renderers, render.Instrument("http", latest))
	}

	if cfg.Redis.Enabled() {
		pub, err := redis.NewPublisher(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Key:      cfg.Redis.Key,
			Channel:  cfg.Redis.Channel,
		}, logger)
		if err != nil {
			return report(logger, err, "addr", cfg.Redis.Addr)
		}
		defer pub.Close()
		renderers = append(renderers, pub)
	}

	var prog *tea.Program
	if f.tui {
		prog = tea.NewProgram(NewLiveModel(cfg.DataFile, cancel), tea.WithoutSignalHandler())
		logger.SetOutput(tuiLogWriter{p: prog})
		defer logger.SetOutput(os.Stderr)
		renderers = append(renderers, render.Instrument("tui", tuiRenderer{p: prog, logger: logger}))
	}

	r := render.Multi(renderers...)
	if cfg.Coalesce {
		r = render.Coalesce(r, logger)
	}

	agg := aggregate.New(graph.New(), r, aggregate.Options{
		Logger:      logger,
		TagKinds:    cfg.TagKinds,
		RenderEvery: cfg.RenderEvery,
	})

	g, gctx := errgroup.WithContext(ctx)

	if srv != nil {
		g.Go(func() error { return srv.Run(gctx) })
	}
	if prog != nil {
		g.Go(func() error {
			if _, err := prog.Run(); err != nil && !stderrors.Is(err, tea.ErrProgramKilled) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		defer cancel()
		defer c.teardown(ctx, logger, agg, r, cfg.DataFile)

		logger.Info("Watching for new records", "file", cfg.DataFile, "offset", tailer.Offset())
		agg.Run(gctx, tailer.Lines(gctx))

		if err := tailer.Err(); err != nil && !stderrors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	return report(logger, g.Wait())
}

// teardown renders any pending records, flushes every renderer and logs the
// run totals. It runs on interrupt and on error alike.
func (c *CLI) teardown(ctx context.Context, logger *log.Logger, agg *aggregate.Aggregator, r render.Renderer, path string) {
	ctx = context.WithoutCancel(ctx)
	agg.Sync(ctx)
	render.Flush(ctx, r)

	st := agg.Stats()
	g := agg.Graph()
	logger.Info("Consumer closed.",
		"file", path,
		"applied", st.Applied,
		"ignored", st.Ignored,
		"malformed", st.Malformed,
		"failed", st.Failed,
		"nodes", g.NodeCount(),
		"edges", g.EdgeCount())
}
