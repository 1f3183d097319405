package tail

import (
	"bufio"
	"context"
	"errors"
	"io"
	"iter"

	errs "github.com/matzehuels/livegraph/pkg/errors"
)

// ReadAll yields the complete lines currently in path, in order, and stops
// at end of file. A trailing line without a newline is not delivered, the
// same rule a Tailer follows.
//
// Errors are yielded once as the final element: FILE_MISSING or
// INVALID_PATH if the file cannot be opened, ctx.Err() on cancellation, or
// an INTERNAL_ERROR for read failures.
func ReadAll(ctx context.Context, path string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		f, _, err := openFile(path)
		if err != nil {
			yield("", err)
			return
		}
		defer f.Close()

		r := bufio.NewReader(f)
		for {
			if err := ctx.Err(); err != nil {
				yield("", err)
				return
			}
			b, err := r.ReadBytes('\n')
			if err != nil {
				if !errors.Is(err, io.EOF) {
					yield("", errs.Wrap(errs.ErrCodeInternal, err, "read %s", path))
				}
				return
			}
			if !yield(trimEOL(b), nil) {
				return
			}
		}
	}
}
