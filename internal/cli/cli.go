package cli

import (
	"context"
	stderrors "errors"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/livegraph/pkg/buildinfo"
	"github.com/matzehuels/livegraph/pkg/config"
	"github.com/matzehuels/livegraph/pkg/errors"
)

// =============================================================================
// Constants
// =============================================================================

const appName = "livegraph"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	envFile    string
	logFormat  string
	verbose    bool
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "livegraph draws a live author/category interaction graph",
		Long: `livegraph tails an append-only JSON-lines file of posts and keeps a weighted
author <-> category interaction graph up to date, redrawing it as new records
arrive.`,
		Version:           buildinfo.Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
	}

	root.SetVersionTemplate(buildinfo.Template())

	pf := root.PersistentFlags()
	pf.StringVarP(&c.configPath, "config", "c", "", "config file (.toml, .yaml or .yml)")
	pf.StringVar(&c.envFile, "env-file", "", "load environment variables from this file (default: ./.env if present)")
	pf.StringVar(&c.logFormat, "log-format", "", "log format: text, json or logfmt")

	root.AddCommand(c.watchCommand())
	root.AddCommand(c.snapshotCommand())
	root.AddCommand(c.versionCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// setup loads .env files and attaches the logger to the command context.
func (c *CLI) setup(cmd *cobra.Command, _ []string) error {
	var files []string
	if c.envFile != "" {
		files = append(files, c.envFile)
	}
	if err := config.LoadDotEnv(files...); err != nil {
		return err
	}
	if err := setLogFormat(c.Logger, c.logFormat); err != nil {
		return err
	}
	cmd.SetContext(withLogger(cmd.Context(), c.Logger))
	return nil
}

// SetVerbose records that --verbose was given, so a log level from the
// config file does not lower it.
func (c *CLI) SetVerbose(v bool) { c.verbose = v }

// loadConfig loads the config file and environment, then applies the log
// settings it carries unless they were set on the command line.
func (c *CLI) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	if c.logFormat == "" {
		if err := setLogFormat(c.Logger, cfg.Log.Format); err != nil {
			return nil, err
		}
	}
	if !c.verbose {
		level, err := parseLevel(cfg.Log.Level)
		if err != nil {
			return nil, err
		}
		c.Logger.SetLevel(level)
	}
	return cfg, nil
}

// =============================================================================
// Error reporting
// =============================================================================

// reportedError marks an error a command has already logged.
type reportedError struct{ err error }

func (e reportedError) Error() string { return e.err.Error() }
func (e reportedError) Unwrap() error { return e.err }

// IsReported reports whether err was already logged by a command, so main
// only has to set the exit status.
func IsReported(err error) bool {
	var r reportedError
	return stderrors.As(err, &r)
}

// report logs err once and marks it reported. Fatal coded errors are shown by
// their user message and code; anything else is logged as a failure.
// Cancellation passes through unlogged.
func report(logger *log.Logger, err error, keyvals ...any) error {
	if err == nil || IsReported(err) || stderrors.Is(err, context.Canceled) {
		return err
	}
	if errors.IsFatal(err) {
		kv := append([]any{"code", errors.GetCode(err)}, keyvals...)
		if cause := stderrors.Unwrap(err); cause != nil {
			kv = append(kv, "err", cause)
		}
		logger.Error(errors.UserMessage(err), kv...)
	} else {
		logger.Error("command failed", append(keyvals, "err", err)...)
	}
	return reportedError{err}
}
