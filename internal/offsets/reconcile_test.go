package offsets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/standardbeagle/xsearch/internal/searchtypes"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func byteMatch(offset, length int) searchtypes.Match {
	return searchtypes.Match{Location: searchtypes.MatchLocation{
		ByteOffset: offset, ByteLength: length,
		CharOffset: offset, CharLength: length,
	}}
}

func TestReconcile_Multibyte(t *testing.T) {
	content := "naïve café\n日本語 text\n"
	dir := t.TempDir()
	path := filepath.Join(dir, "u.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cafe := strings.Index(content, "café")
	text := strings.Index(content, "text")
	files := []searchtypes.FileMatches{{
		Path:       path,
		MatchCount: 2,
		Matches:    []searchtypes.Match{byteMatch(cafe, len("café")), byteMatch(text, len("text"))},
	}}

	out := New(zerolog.Nop()).Reconcile(context.Background(), files)

	require.Len(t, out[0].Matches, 2)
	assert.Equal(t, 6, out[0].Matches[0].Location.CharOffset)
	assert.Equal(t, 4, out[0].Matches[0].Location.CharLength)
	assert.Equal(t, 5, out[0].Matches[0].Location.ByteLength, "byte values stay untouched")
	assert.Equal(t, 15, out[0].Matches[1].Location.CharOffset)
	assert.Equal(t, 4, out[0].Matches[1].Location.CharLength)
	assert.Equal(t, Fingerprint([]byte(content)), out[0].ContentHash)

	assert.Equal(t, cafe, files[0].Matches[0].Location.CharOffset, "input is not modified")
	assert.Empty(t, files[0].ContentHash)
}

func TestReconcile_UnreadableFileKeepsByteValues(t *testing.T) {
	r := &Reconciler{ReadFile: func(string) ([]byte, error) { return nil, os.ErrPermission }}
	files := []searchtypes.FileMatches{{Path: "gone.txt", Matches: []searchtypes.Match{byteMatch(10, 3)}}}

	out := r.Reconcile(context.Background(), files)
	assert.Equal(t, 10, out[0].Matches[0].Location.CharOffset)
	assert.Equal(t, 3, out[0].Matches[0].Location.CharLength)
	assert.Empty(t, out[0].ContentHash)
}

func TestReconcile_FileShrank(t *testing.T) {
	r := &Reconciler{ReadFile: func(string) ([]byte, error) { return []byte("é short"), nil }}
	files := []searchtypes.FileMatches{{Path: "a", Matches: []searchtypes.Match{byteMatch(0, 2), byteMatch(100, 4)}}}

	out := r.Reconcile(context.Background(), files)
	assert.Equal(t, 1, out[0].Matches[0].Location.CharLength)
	assert.Equal(t, 100, out[0].Matches[1].Location.CharOffset, "out of range keeps byte values")
}

func TestReconcile_OutOfOrderMatches(t *testing.T) {
	data := []byte("ααα βββ")
	r := &Reconciler{ReadFile: func(string) ([]byte, error) { return data, nil }}
	files := []searchtypes.FileMatches{{Path: "a", Matches: []searchtypes.Match{byteMatch(7, 6), byteMatch(0, 6)}}}

	out := r.Reconcile(context.Background(), files)
	assert.Equal(t, 4, out[0].Matches[0].Location.CharOffset)
	assert.Equal(t, 0, out[0].Matches[1].Location.CharOffset)
	assert.Equal(t, 3, out[0].Matches[1].Location.CharLength)
}

func TestReconcile_SkipsFilesWithoutMatches(t *testing.T) {
	r := &Reconciler{ReadFile: func(string) ([]byte, error) {
		return nil, errors.New("must not be read")
	}}
	files := []searchtypes.FileMatches{{Path: "a", MatchCount: 4}}
	out := r.Reconcile(context.Background(), files)
	assert.Equal(t, files, out)
}

func TestReconcile_ManyFilesReadOnceEach(t *testing.T) {
	dir := t.TempDir()
	var files []searchtypes.FileMatches
	for i := 0; i < 40; i++ {
		path := filepath.Join(dir, fmt.Sprintf("f%02d.txt", i))
		require.NoError(t, os.WriteFile(path, []byte("ä hit ä hit"), 0o644))
		files = append(files, searchtypes.FileMatches{Path: path, Matches: []searchtypes.Match{byteMatch(3, 3), byteMatch(10, 3)}})
	}

	reads := make(chan string, 100)
	r := &Reconciler{
		Concurrency: 4,
		ReadFile: func(p string) ([]byte, error) {
			reads <- p
			return os.ReadFile(p)
		},
	}
	out := r.Reconcile(context.Background(), files)
	close(reads)

	assert.Len(t, reads, 40)
	for _, fm := range out {
		assert.Equal(t, 2, fm.Matches[0].Location.CharOffset)
		assert.Equal(t, 8, fm.Matches[1].Location.CharOffset)
	}
}

func TestReconcile_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := &Reconciler{ReadFile: func(string) ([]byte, error) { return []byte("ééé"), nil }}
	files := []searchtypes.FileMatches{{Path: "a", Matches: []searchtypes.Match{byteMatch(2, 2)}}}
	out := r.Reconcile(ctx, files)
	assert.Equal(t, 2, out[0].Matches[0].Location.CharOffset)
}
