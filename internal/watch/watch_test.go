package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/codesift/codesift/internal/buildindex"
	"github.com/codesift/codesift/internal/config"
	"github.com/codesift/codesift/internal/parser"
	"github.com/codesift/codesift/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newWatchedProject(t *testing.T) (*Watcher, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.cs"),
		[]byte("class Alpha { void Run() { } }\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.cs"),
		[]byte("class Beta { void Stop() { } }\n"), 0o644))

	cfg := &config.Config{
		Project: config.Project{Root: dir},
		Index:   config.Index{WatchMode: true, WatchDebounceMs: 20, BulkThreshold: 100},
	}
	p := parser.NewTreeSitterParser()
	cidx, didx, _, err := buildindex.Build(dir, cfg, p, 1)
	require.NoError(t, err)
	return New(dir, cfg, p, cidx, didx), dir
}

func TestApplyIncremental_DirtyReplacesTokensAndDefs(t *testing.T) {
	w, dir := newWatchedProject(t)
	path := filepath.Join(dir, "a.cs")

	require.NoError(t, os.WriteFile(path,
		[]byte("class Gamma { void Spin() { } }\n"), 0o644))
	w.applyIncremental(nil, []string{path})

	cidx := w.Content()
	cidx.RLock()
	_, hadOld := cidx.Inverted["alpha"]
	_, hasNew := cidx.Inverted["gamma"]
	cidx.RUnlock()
	require.False(t, hadOld)
	require.True(t, hasNew)

	didx := w.Definitions()
	didx.RLock()
	gamma := didx.NameIndex["gamma"]
	alpha := didx.NameIndex["alpha"]
	didx.RUnlock()
	require.NotEmpty(t, gamma)
	require.Empty(t, alpha)
}

func TestApplyIncremental_RemoveTombstones(t *testing.T) {
	w, dir := newWatchedProject(t)
	path := filepath.Join(dir, "b.cs")

	cidx := w.Content()
	cidx.RLock()
	fid, ok := cidx.PathToID[path]
	fileCount := len(cidx.Files)
	cidx.RUnlock()
	require.True(t, ok)

	require.NoError(t, os.Remove(path))
	w.applyIncremental([]string{path}, nil)

	cidx.RLock()
	require.Len(t, cidx.Files, fileCount) // tombstoned, not shrunk
	require.Zero(t, cidx.Files[fid].TokenCount)
	_, stillMapped := cidx.PathToID[path]
	sum := 0
	for _, f := range cidx.Files {
		sum += f.TokenCount
	}
	require.Equal(t, cidx.TotalTokens, sum)
	cidx.RUnlock()
	require.False(t, stillMapped)

	didx := w.Definitions()
	didx.RLock()
	beta := didx.NameIndex["beta"]
	_, inFileIndex := didx.FileIndex[fid]
	didx.RUnlock()
	require.Empty(t, beta)
	require.False(t, inFileIndex)
}

func TestApplyIncremental_RenameIsRemoveThenAdd(t *testing.T) {
	w, dir := newWatchedProject(t)
	oldPath := filepath.Join(dir, "a.cs")
	newPath := filepath.Join(dir, "renamed.cs")

	require.NoError(t, os.Rename(oldPath, newPath))
	w.applyIncremental([]string{oldPath}, []string{newPath})

	cidx := w.Content()
	cidx.RLock()
	_, oldMapped := cidx.PathToID[oldPath]
	newFid, newMapped := cidx.PathToID[newPath]
	cidx.RUnlock()
	require.False(t, oldMapped)
	require.True(t, newMapped)
	require.Equal(t, types.FileID(2), newFid) // appended after the two originals

	didx := w.Definitions()
	didx.RLock()
	alpha := didx.NameIndex["alpha"]
	didx.RUnlock()
	require.NotEmpty(t, alpha)
}

func TestWatcher_DebouncedEventReachesIndex(t *testing.T) {
	w, dir := newWatchedProject(t)
	require.NoError(t, w.Start())
	defer w.Stop()

	path := filepath.Join(dir, "c.cs")
	require.NoError(t, os.WriteFile(path,
		[]byte("class Delta { void Tick() { } }\n"), 0o644))

	require.Eventually(t, func() bool {
		cidx := w.Content()
		cidx.RLock()
		defer cidx.RUnlock()
		_, ok := cidx.Inverted["delta"]
		return ok
	}, 5*time.Second, 25*time.Millisecond)

	require.GreaterOrEqual(t, w.Stats().BatchesApplied, int64(1))
}

func TestLossyDecode_ReplacesInvalidBytes(t *testing.T) {
	out := lossyDecode([]byte("sch\x92ma"))
	require.Contains(t, out, "�")
	require.Contains(t, out, "sch")
}
