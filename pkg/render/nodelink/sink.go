package nodelink

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/livegraph/pkg/graph"
	"github.com/matzehuels/livegraph/pkg/observability"
	"github.com/matzehuels/livegraph/pkg/render"
)

// Output formats, chosen by file extension.
const (
	FormatSVG  = "svg"
	FormatDOT  = "dot"
	FormatJSON = "json"
	FormatPNG  = "png"
	FormatPDF  = "pdf"
)

var validFormats = map[string]bool{
	FormatSVG: true, FormatDOT: true, FormatJSON: true, FormatPNG: true, FormatPDF: true,
}

// FormatFromPath returns the output format implied by the extension of path.
func FormatFromPath(path string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if ext == "gv" {
		ext = FormatDOT
	}
	if !validFormats[ext] {
		return "", fmt.Errorf("invalid output format %q for %s (must be svg, dot, json, png or pdf)", ext, path)
	}
	return ext, nil
}

// SinkOptions configures a FileSink.
type SinkOptions struct {
	Options

	// Every writes the file only for every Nth snapshot. The last snapshot
	// is always written on Flush. Defaults to 1.
	Every int

	// Scale is the PNG resolution multiplier. Defaults to 2.
	Scale float64
}

// FileSink is a renderer that rewrites a file with the latest snapshot.
// Writes are atomic, so a viewer reloading the file never sees a partial
// document. Errors are logged and never returned.
type FileSink struct {
	path   string
	format string
	opts   SinkOptions
	logger *log.Logger

	mu      sync.Mutex
	seen    int
	last    graph.Snapshot
	written bool // last has been written
}

// NewFileSink creates a sink writing to path in the format implied by its
// extension.
func NewFileSink(path string, opts SinkOptions, logger *log.Logger) (*FileSink, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	if opts.Engine != "" {
		if err := ValidateEngine(opts.Engine); err != nil {
			return nil, err
		}
	}
	if opts.Every < 1 {
		opts.Every = 1
	}
	if opts.Scale <= 0 {
		opts.Scale = 2
	}
	if logger == nil {
		logger = log.Default()
	}
	return &FileSink{path: path, format: format, opts: opts, logger: logger, written: true}, nil
}

// Path returns the output path.
func (f *FileSink) Path() string { return f.path }

// Render writes s to the output file, honouring Every.
func (f *FileSink) Render(ctx context.Context, s graph.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.seen++
	f.last = s
	f.written = false
	if f.seen%f.opts.Every != 0 {
		return
	}
	f.write(ctx)
}

// Flush writes the last snapshot if it was skipped by Every.
func (f *FileSink) Flush(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.written {
		return
	}
	f.write(ctx)
	if f.written {
		f.logger.Info("wrote final graph", "path", f.path, "nodes", f.last.NodeCount(), "edges", f.last.EdgeCount())
	}
}

func (f *FileSink) write(ctx context.Context) {
	start := time.Now()
	data, err := Encode(ctx, f.last, f.format, f.opts)
	if err == nil {
		err = graph.WriteFileAtomic(f.path, data)
	}
	observability.Render().OnRender(ctx, "file:"+f.format, f.last.NodeCount(), f.last.EdgeCount(), time.Since(start), err)
	if err != nil {
		f.logger.Error("render failed", "path", f.path, "err", err)
		return
	}
	f.written = true
	f.logger.Debug("rendered graph", "path", f.path, "nodes", f.last.NodeCount(), "edges", f.last.EdgeCount(),
		"duration", time.Since(start).Round(time.Millisecond))
}

// Encode renders s into the given format.
func Encode(ctx context.Context, s graph.Snapshot, format string, opts SinkOptions) ([]byte, error) {
	switch format {
	case FormatJSON:
		return graph.MarshalSnapshot(s)
	case FormatDOT:
		return []byte(ToDOT(s, opts.Options)), nil
	}

	o := opts.Options.withDefaults()
	svg, err := RenderSVG(ctx, ToDOT(s, o), o.Engine)
	if err != nil {
		return nil, err
	}
	switch format {
	case FormatSVG:
		return svg, nil
	case FormatPNG:
		scale := opts.Scale
		if scale <= 0 {
			scale = 2
		}
		return render.ToPNG(ctx, svg, scale)
	case FormatPDF:
		return render.ToPDF(ctx, svg)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

var _ render.Renderer = (*FileSink)(nil)
var _ render.Flusher = (*FileSink)(nil)
