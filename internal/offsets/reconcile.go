// Package offsets converts backend byte offsets into code point offsets by
// re-reading the matched files.
package offsets

import (
	"context"
	"os"
	"strconv"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	xerrors "github.com/standardbeagle/xsearch/internal/errors"
	"github.com/standardbeagle/xsearch/internal/searchtypes"
)

// DefaultConcurrency bounds simultaneous file reads
const DefaultConcurrency = 8

// ReadFunc returns the raw bytes of path
type ReadFunc func(path string) ([]byte, error)

// Reconciler fills CharOffset/CharLength and ContentHash on matched files
type Reconciler struct {
	ReadFile    ReadFunc
	Concurrency int
	Logger      zerolog.Logger
}

// New creates a reconciler that reads through os.ReadFile
func New(logger zerolog.Logger) *Reconciler {
	return &Reconciler{ReadFile: os.ReadFile, Concurrency: DefaultConcurrency, Logger: logger}
}

// Reconcile returns a copy of files with code point offsets computed from each
// file's bytes. Each file is read once. A file that cannot be read keeps its
// byte-based values, as does any match whose range no longer fits the file.
// The input is not modified.
func (r *Reconciler) Reconcile(ctx context.Context, files []searchtypes.FileMatches) []searchtypes.FileMatches {
	out := make([]searchtypes.FileMatches, len(files))
	copy(out, files)

	read := r.ReadFile
	if read == nil {
		read = os.ReadFile
	}
	limit := r.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i := range out {
		if len(out[i].Matches) == 0 {
			continue
		}
		out[i].Matches = append([]searchtypes.Match(nil), out[i].Matches...)

		fm := &out[i]
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			data, err := read(fm.Path)
			if err != nil {
				r.Logger.Debug().Err(xerrors.NewFileError("read", fm.Path, err)).Msg("offset reconciliation skipped")
				return nil
			}
			fm.ContentHash = Fingerprint(data)
			reconcileFile(data, fm.Matches)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Fingerprint is the content hash recorded on reconciled files
func Fingerprint(data []byte) string {
	return strconv.FormatUint(xxhash.Sum64(data), 16)
}

// reconcileFile rewrites char offsets in place. Matches normally arrive in
// ascending offset order, so the prefix count is carried forward.
func reconcileFile(data []byte, matches []searchtypes.Match) {
	cursor, runes := 0, 0
	for i := range matches {
		loc := &matches[i].Location
		start, end := loc.ByteOffset, loc.ByteOffset+loc.ByteLength
		if start < 0 || loc.ByteLength < 0 || end > len(data) {
			continue
		}
		if start < cursor {
			cursor, runes = 0, 0
		}
		runes += utf8.RuneCount(data[cursor:start])
		cursor = start

		loc.CharOffset = runes
		loc.CharLength = utf8.RuneCount(data[start:end])
	}
}
