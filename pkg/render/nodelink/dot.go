package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/livegraph/pkg/errors"
	"github.com/matzehuels/livegraph/pkg/graph"
)

// Layout engines accepted by RenderSVG.
const (
	EngineNeato = "neato"
	EngineDot   = "dot"
	EngineFdp   = "fdp"
	EngineSfdp  = "sfdp"
	EngineCirco = "circo"
	EngineTwopi = "twopi"
)

var engines = map[string]graphviz.Layout{
	EngineNeato: graphviz.NEATO,
	EngineDot:   graphviz.DOT,
	EngineFdp:   graphviz.FDP,
	EngineSfdp:  graphviz.SFDP,
	EngineCirco: graphviz.CIRCO,
	EngineTwopi: graphviz.TWOPI,
}

// ValidateEngine checks that name is a supported layout engine.
func ValidateEngine(name string) error {
	if _, ok := engines[name]; !ok {
		return fmt.Errorf("invalid engine: %s (must be one of neato, dot, fdp, sfdp, circo, twopi)", name)
	}
	return nil
}

// DefaultTitle is the diagram caption used when Options.Title is empty.
const DefaultTitle = "Author Interaction Network"

// Options configures node-link diagram rendering.
type Options struct {
	// Title is drawn above the diagram. Defaults to DefaultTitle.
	Title string

	// Engine selects the Graphviz layout engine. Defaults to EngineNeato.
	Engine string

	// Detailed appends the node kind and degree to each label.
	Detailed bool
}

func (o Options) withDefaults() Options {
	if o.Title == "" {
		o.Title = DefaultTitle
	}
	if o.Engine == "" {
		o.Engine = EngineNeato
	}
	return o
}

// Node fill colours by kind.
const (
	fillAuthor   = "lightblue"
	fillCategory = "lightgoldenrod1"
	fillBoth     = "plum"
)

// ToDOT converts a snapshot to undirected Graphviz DOT.
// Nodes get positional IDs (n0, n1, ...) in snapshot order; the key is only
// shown through the label, so keys that differ only in control characters
// stay separate nodes. Edge labels carry the weight; edge pen width grows with the weight
// relative to the heaviest edge.
func ToDOT(s graph.Snapshot, opts Options) string {
	opts = opts.withDefaults()

	var buf bytes.Buffer
	buf.WriteString("graph G {\n")
	fmt.Fprintf(&buf, "  label=%s;\n", quote(opts.Title))
	buf.WriteString("  labelloc=t;\n")
	buf.WriteString("  fontsize=18;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  overlap=false;\n")
	buf.WriteString("  splines=true;\n")
	buf.WriteString("  node [shape=ellipse, style=filled, fillcolor=lightblue, fontsize=10, fontname=\"Helvetica-Bold\"];\n")
	buf.WriteString("  edge [fontsize=9, color=gray40];\n")
	buf.WriteString("\n")

	ids := make(map[string]string, len(s.Nodes))
	for i, n := range s.Nodes {
		ids[n.ID] = "n" + strconv.Itoa(i)
		fmt.Fprintf(&buf, "  %s [%s];\n", ids[n.ID], strings.Join(fmtNodeAttrs(n, opts.Detailed), ", "))
	}

	// Endpoints missing from Nodes (a hand-edited snapshot file) still get
	// their own node.
	idOf := func(key string) string {
		if id, ok := ids[key]; ok {
			return id
		}
		id := "n" + strconv.Itoa(len(ids))
		ids[key] = id
		fmt.Fprintf(&buf, "  %s [label=%s];\n", id, quote(errors.SanitizeLabel(key)))
		return id
	}

	buf.WriteString("\n")
	max := s.MaxWeight()
	for _, e := range s.Edges {
		a, b := idOf(e.A), idOf(e.B)
		fmt.Fprintf(&buf, "  %s -- %s [label=%s, penwidth=%s];\n",
			a, b, quote(strconv.Itoa(e.Weight)), penWidth(e.Weight, max))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(n graph.Node, detailed bool) string {
	label := errors.SanitizeLabel(n.ID)
	if !detailed {
		return label
	}
	return fmt.Sprintf("%s\n%s · degree %d", label, n.Kind, n.Degree)
}

func fmtNodeAttrs(n graph.Node, detailed bool) []string {
	attrs := []string{"label=" + quote(fmtLabel(n, detailed))}
	switch n.Kind {
	case graph.KindCategory:
		attrs = append(attrs, "shape=box", "style=\"rounded,filled\"", "fillcolor="+fillCategory)
	case graph.KindBoth:
		attrs = append(attrs, "shape=octagon", "fillcolor="+fillBoth)
	default:
		attrs = append(attrs, "fillcolor="+fillAuthor)
	}
	return attrs
}

// penWidth scales 1..max onto 1..4.
func penWidth(w, max int) string {
	if max <= 1 {
		return "1.00"
	}
	return fmt.Sprintf("%.2f", 1+3*float64(w-1)/float64(max-1))
}

// quote returns s as a DOT double-quoted string. Control characters are
// dropped; newlines become DOT's centred line break.
func quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		default:
			if r < 0x20 || r == 0x7f {
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// RenderSVG lays out and draws a DOT graph with the given engine.
// Returns the SVG bytes ready for display or further conversion.
func RenderSVG(ctx context.Context, dot, engine string) ([]byte, error) {
	if engine == "" {
		engine = EngineNeato
	}
	layout, ok := engines[engine]
	if !ok {
		return nil, ValidateEngine(engine)
	}

	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(layout)

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
