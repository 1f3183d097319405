// Package tail streams newly appended lines from a growing text file.
//
// A [Tailer] keeps a byte cursor into the file. Each pull reads one line; a
// line is only delivered once its terminating newline is on disk. When no
// complete line is available the cursor is restored to where the attempt
// started, the tailer waits for the poll interval (or an fsnotify write
// event, whichever comes first) and tries again. The sequence of lines is
// therefore infinite and never skips or repeats a byte.
//
// # File Replacement
//
// The tailer handles two cases the writer may cause:
//   - Truncation: when the file shrinks below the cursor, the cursor is reset
//     to the start of the file and the new content is delivered. A file
//     truncated and rewritten past the cursor between two reads is caught
//     by checking that the byte before the cursor is still the newline of
//     the last delivered line. A rewrite that happens to put a newline at
//     that same offset goes unnoticed and reading resumes there.
//   - Rotation: when the path names a different file, the remaining complete
//     lines of the old file are delivered first, then the new file is read
//     from the beginning.
//
// If the path disappears while tailing, the tailer keeps the old handle and
// keeps polling; only a missing file at [Open] time is fatal.
package tail

import (
	"bufio"
	"context"
	"errors"
	"io"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	errs "github.com/matzehuels/livegraph/pkg/errors"
	"github.com/matzehuels/livegraph/pkg/observability"
)

// DefaultPollInterval is the wait between attempts when no complete line is available.
const DefaultPollInterval = 100 * time.Millisecond

// Options configures a Tailer.
type Options struct {
	// PollInterval is the maximum wait between read attempts.
	// Defaults to DefaultPollInterval.
	PollInterval time.Duration

	// FromStart replays the content already on disk instead of seeking
	// to the end of the file at open.
	FromStart bool

	// NoWatch disables fsnotify wake-ups; the tailer then relies on
	// polling alone.
	NoWatch bool

	// Logger receives warnings about truncation and rotation.
	// Defaults to log.Default().
	Logger *log.Logger
}

// Tailer reads complete lines appended to a file.
//
// A Tailer is not safe for concurrent use. Cancel the context passed to Next
// to stop a blocked read, then call Close.
type Tailer struct {
	path   string
	opts   Options
	logger *log.Logger

	file   *os.File
	info   os.FileInfo
	reader *bufio.Reader
	offset int64 // bytes delivered so far; the cursor

	// boundary is set when the byte before offset is a delivered newline.
	boundary bool

	watcher *fsnotify.Watcher
	wake    chan struct{}

	closeOnce sync.Once
	done      chan struct{}
	err       error
}

// Open opens path for tailing.
//
// Returns an error with code FILE_MISSING if the path does not exist, and
// INVALID_PATH if it names a directory. Unless opts.FromStart is set the
// cursor is placed at the end of the file, so only lines written after
// Open are delivered.
func Open(path string, opts Options) (*Tailer, error) {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	f, info, err := openFile(path)
	if err != nil {
		return nil, err
	}

	var offset int64
	if !opts.FromStart {
		offset, err = f.Seek(0, io.SeekEnd)
		if err != nil {
			f.Close()
			return nil, errs.Wrap(errs.ErrCodeInternal, err, "seek to end of %s", path)
		}
	}
	boundary := offset == 0 || newlineAt(f, offset-1)

	t := &Tailer{
		path:     path,
		opts:     opts,
		logger:   logger,
		file:     f,
		info:     info,
		reader:   bufio.NewReader(f),
		offset:   offset,
		boundary: boundary,
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}

	if !opts.NoWatch {
		if err := t.startWatcher(); err != nil {
			logger.Debug("file notifications unavailable, polling only", "path", path, "err", err)
		}
	}

	return t, nil
}

func openFile(path string) (*os.File, os.FileInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, errs.Wrap(errs.ErrCodeFileMissing, err, "data file %s does not exist", path)
		}
		return nil, nil, errs.Wrap(errs.ErrCodeInternal, err, "open %s", path)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, errs.Wrap(errs.ErrCodeInternal, err, "stat %s", path)
	}
	if info.IsDir() {
		f.Close()
		return nil, nil, errs.New(errs.ErrCodeInvalidPath, "%s is a directory", path)
	}
	return f, info, nil
}

// Path returns the tailed path.
func (t *Tailer) Path() string { return t.path }

// Offset returns the byte offset just past the last delivered line.
func (t *Tailer) Offset() int64 { return t.offset }

// Next blocks until the next complete line is available and returns it
// without its line terminator ("\n" or "\r\n").
//
// Next only returns an error when ctx is done (ctx.Err()) or the tailer is
// closed (code CLOSED). Read errors while tailing are logged and retried.
func (t *Tailer) Next(ctx context.Context) (string, error) {
	for {
		select {
		case <-t.done:
			return "", errs.New(errs.ErrCodeClosed, "tailer closed")
		default:
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if t.reader.Buffered() == 0 && t.rewritten(ctx) {
			continue
		}

		line, ok, err := t.readLine()
		if err != nil {
			t.logger.Warn("read failed, retrying", "path", t.path, "err", err)
		}
		if ok {
			observability.Tail().OnLine(ctx, t.path, len(line))
			return line, nil
		}

		if t.checkReplaced(ctx) {
			continue
		}
		if err := t.wait(ctx); err != nil {
			return "", err
		}
	}
}

// Lines returns the lazy, infinite sequence of lines produced by Next.
// The sequence ends when ctx is done or the tailer is closed; Err reports why.
func (t *Tailer) Lines(ctx context.Context) iter.Seq[string] {
	return func(yield func(string) bool) {
		for {
			line, err := t.Next(ctx)
			if err != nil {
				t.err = err
				return
			}
			if !yield(line) {
				return
			}
		}
	}
}

// Err returns the error that ended the last Lines sequence, if any.
func (t *Tailer) Err() error { return t.err }

// Close stops the tailer and releases the file and the watcher.
// It is safe to call Close more than once.
func (t *Tailer) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.done)
		if t.watcher != nil {
			_ = t.watcher.Close()
		}
		err = t.file.Close()
	})
	return err
}

// readLine attempts to read one complete line at the cursor. If only a
// partial line (or nothing) is available the file position is restored to
// the cursor so the partial bytes are read again on the next attempt.
func (t *Tailer) readLine() (string, bool, error) {
	b, err := t.reader.ReadBytes('\n')
	if err == nil {
		t.offset += int64(len(b))
		t.boundary = true
		return trimEOL(b), true, nil
	}

	if _, serr := t.file.Seek(t.offset, io.SeekStart); serr != nil {
		return "", false, serr
	}
	t.reader.Reset(t.file)

	if errors.Is(err, io.EOF) {
		return "", false, nil
	}
	return "", false, err
}

func trimEOL(b []byte) string {
	b = b[:len(b)-1]
	if n := len(b); n > 0 && b[n-1] == '\r' {
		b = b[:n-1]
	}
	return string(b)
}

// checkReplaced detects truncation and rotation. It returns true when the
// cursor or the file changed and reading should be retried immediately.
func (t *Tailer) checkReplaced(ctx context.Context) bool {
	cur, err := t.file.Stat()
	if err == nil && cur.Size() < t.offset {
		t.logger.Warn("data file truncated, reading from start", "path", t.path, "offset", t.offset, "size", cur.Size())
		observability.Tail().OnTruncate(ctx, t.path)
		t.reset(t.file, cur)
		return true
	}

	onDisk, err := os.Stat(t.path)
	if err != nil || os.SameFile(onDisk, t.info) {
		return false
	}

	f, info, err := openFile(t.path)
	if err != nil {
		// Replaced by something unreadable; keep the old handle.
		t.logger.Debug("replacement not readable yet", "path", t.path, "err", err)
		return false
	}
	t.logger.Warn("data file replaced, reading new file from start", "path", t.path)
	observability.Tail().OnRotate(ctx, t.path)
	old := t.file
	t.reset(f, info)
	_ = old.Close()
	return true
}

func (t *Tailer) reset(f *os.File, info os.FileInfo) {
	_, _ = f.Seek(0, io.SeekStart)
	t.file = f
	t.info = info
	t.offset = 0
	t.boundary = true
	t.reader.Reset(f)
}

// rewritten detects a truncate-and-rewrite that left the file at least as
// long as the cursor: the byte before the cursor is no longer the newline
// of the last delivered line. The cursor is then reset to the start.
func (t *Tailer) rewritten(ctx context.Context) bool {
	if !t.boundary || t.offset == 0 {
		return false
	}
	var b [1]byte
	if n, _ := t.file.ReadAt(b[:], t.offset-1); n != 1 || b[0] == '\n' {
		// n == 0 is plain truncation, which checkReplaced handles.
		return false
	}
	t.logger.Warn("data file rewritten, reading from start", "path", t.path, "offset", t.offset)
	observability.Tail().OnTruncate(ctx, t.path)
	info, err := t.file.Stat()
	if err != nil {
		info = t.info
	}
	t.reset(t.file, info)
	return true
}

// newlineAt reports whether f holds '\n' at off.
func newlineAt(f *os.File, off int64) bool {
	var b [1]byte
	n, _ := f.ReadAt(b[:], off)
	return n == 1 && b[0] == '\n'
}

// wait sleeps until the poll interval elapses, a change notification
// arrives, ctx is done, or the tailer is closed.
func (t *Tailer) wait(ctx context.Context) error {
	timer := time.NewTimer(t.opts.PollInterval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.done:
		return errs.New(errs.ErrCodeClosed, "tailer closed")
	case <-timer.C:
	case <-t.wake:
	}
	return nil
}

// startWatcher watches the parent directory so that writes, truncation and
// rotation of the data file all wake the tailer early.
func (t *Tailer) startWatcher() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	dir := filepath.Dir(t.path)
	if err := w.Add(dir); err != nil {
		w.Close()
		return err
	}
	t.watcher = w

	target := filepath.Clean(t.path)
	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				select {
				case t.wake <- struct{}{}:
				default:
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				t.logger.Debug("watcher error", "path", t.path, "err", err)
			}
		}
	}()
	return nil
}
