package cli

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/livegraph/pkg/errors"
	"github.com/matzehuels/livegraph/pkg/graph"
)

const testRecords = `{"author": "Eve", "category": "Bob"}
{"author": "Eve", "category": "Bob"}
not json
{"author": "Ann"}
`

func writeRecords(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "posts.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSnapshotCommand(t *testing.T) {
	in := writeRecords(t, testRecords)
	dir := t.TempDir()
	jsonOut := filepath.Join(dir, "graph.json")
	dotOut := filepath.Join(dir, "graph.dot")

	root := New(io.Discard, LogInfo).RootCommand()
	root.SetArgs([]string{"snapshot", in, "-o", jsonOut + "," + dotOut})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	snap, err := graph.ReadSnapshotFile(jsonOut)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if snap.Records != 3 {
		t.Errorf("Records = %d, want 3", snap.Records)
	}
	if w, _ := snap.Weight("Eve", "Bob"); w != 2 {
		t.Errorf("Eve-Bob weight = %d, want 2", w)
	}
	if w, _ := snap.Weight("Ann", "unknown"); w != 1 {
		t.Errorf("Ann-unknown weight = %d, want 1", w)
	}

	dot, err := os.ReadFile(dotOut)
	if err != nil {
		t.Fatalf("read dot: %v", err)
	}
	if len(dot) == 0 {
		t.Error("dot output is empty")
	}
}

func TestSnapshotCommandMissingFile(t *testing.T) {
	root := New(io.Discard, LogInfo).RootCommand()
	root.SetArgs([]string{"snapshot", filepath.Join(t.TempDir(), "nope.json"), "-o", filepath.Join(t.TempDir(), "g.json")})
	root.SilenceErrors = true

	err := root.ExecuteContext(context.Background())
	if !errors.Is(err, errors.ErrCodeFileMissing) {
		t.Errorf("error = %v, want FILE_MISSING", err)
	}
}

func TestSnapshotCommandBadFormat(t *testing.T) {
	in := writeRecords(t, testRecords)
	root := New(io.Discard, LogInfo).RootCommand()
	root.SetArgs([]string{"snapshot", in, "-o", filepath.Join(t.TempDir(), "graph.bmp")})
	root.SilenceErrors = true

	if err := root.ExecuteContext(context.Background()); err == nil {
		t.Error("unsupported output extension should fail")
	}
}

func TestWatchCommandFromStart(t *testing.T) {
	in := writeRecords(t, testRecords)
	out := filepath.Join(t.TempDir(), "graph.json")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	go func() {
		for ctx.Err() == nil {
			if snap, err := graph.ReadSnapshotFile(out); err == nil && snap.Records == 3 {
				cancel()
				return
			}
			time.Sleep(20 * time.Millisecond)
		}
	}()

	root := New(io.Discard, LogInfo).RootCommand()
	root.SetArgs([]string{"watch", in, "-o", out, "--from-start", "--poll", "10ms"})
	if err := root.ExecuteContext(ctx); err != nil {
		t.Fatalf("watch: %v", err)
	}

	snap, err := graph.ReadSnapshotFile(out)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if w, _ := snap.Weight("Eve", "Bob"); w != 2 {
		t.Errorf("Eve-Bob weight = %d, want 2", w)
	}
}

func TestWatchCommandMissingFile(t *testing.T) {
	var logs bytes.Buffer
	root := New(&logs, LogInfo).RootCommand()
	root.SetArgs([]string{"watch", filepath.Join(t.TempDir(), "nope.json"), "--no-file"})

	err := root.ExecuteContext(context.Background())
	if !errors.Is(err, errors.ErrCodeFileMissing) {
		t.Errorf("error = %v, want FILE_MISSING", err)
	}
	if !IsReported(err) {
		t.Error("missing file should be marked as already logged")
	}
	if n := strings.Count(logs.String(), "FILE_MISSING"); n != 1 {
		t.Errorf("FILE_MISSING logged %d times, want 1:\n%s", n, logs.String())
	}
}

func TestReport(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		reported bool
		want     string
	}{
		{name: "nil", err: nil},
		{name: "cancelled", err: context.Canceled},
		{
			name:     "fatal",
			err:      errors.Wrap(errors.ErrCodeInvalidConfig, stderrors.New("poll too short"), "invalid configuration"),
			reported: true,
			want:     "invalid configuration",
		},
		{name: "other", err: stderrors.New("boom"), reported: true, want: "command failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			got := report(newLogger(&logs, LogInfo), tt.err)

			if !stderrors.Is(got, tt.err) {
				t.Errorf("report() = %v, should wrap %v", got, tt.err)
			}
			if IsReported(got) != tt.reported {
				t.Errorf("IsReported() = %v, want %v", IsReported(got), tt.reported)
			}
			if tt.want == "" {
				if logs.Len() != 0 {
					t.Errorf("unexpected log output: %s", logs.String())
				}
				return
			}
			if !strings.Contains(logs.String(), tt.want) {
				t.Errorf("log %q missing %q", logs.String(), tt.want)
			}

			logs.Reset()
			_ = report(newLogger(&logs, LogInfo), got)
			if logs.Len() != 0 {
				t.Errorf("reported error logged twice: %s", logs.String())
			}
		})
	}
}

func TestWatchFlagsApply(t *testing.T) {
	c := New(io.Discard, LogInfo)
	cmd := c.watchCommand()
	if err := cmd.ParseFlags([]string{"--render-every", "5", "--http", ":9090", "--tag-kinds"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := c.loadConfig()
	if err != nil {
		t.Fatal(err)
	}
	cfg.Output.Path = "keep.svg"

	var f watchFlags
	f.renderEvery, f.httpAddr, f.tagKinds = 5, ":9090", true
	f.apply(cmd, cfg)

	if cfg.RenderEvery != 5 || cfg.HTTP.Addr != ":9090" || !cfg.TagKinds {
		t.Errorf("flags not applied: %+v", cfg)
	}
	if cfg.Output.Path != "keep.svg" {
		t.Errorf("unset --output overwrote path: %q", cfg.Output.Path)
	}
}
