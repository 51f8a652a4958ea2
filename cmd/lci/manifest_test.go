package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestManifest_SaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	root := "/projects/widgets"

	_, ok := loadManifest(dir, root)
	require.False(t, ok)

	require.NoError(t, saveManifest(dir, root, []string{".ts", ".cs"}))

	exts, ok := loadManifest(dir, root)
	require.True(t, ok)
	require.Equal(t, []string{".ts", ".cs"}, exts)
}

func TestKnownBlobs_OnePairPerRoot(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, saveManifest(dir, "/a", []string{".cs"}))
	require.NoError(t, saveManifest(dir, "/b", []string{".ts", ".tsx"}))

	blobs, err := knownBlobs(dir)
	require.NoError(t, err)
	require.Len(t, blobs, 4)
}

func TestRemoveManifestEntries_DropsOnlyNamedRoots(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, saveManifest(dir, "/a", []string{".cs"}))
	require.NoError(t, saveManifest(dir, "/b", []string{".ts"}))

	require.NoError(t, removeManifestEntries(dir, []string{"/a"}))

	_, ok := loadManifest(dir, "/a")
	require.False(t, ok)
	_, ok = loadManifest(dir, "/b")
	require.True(t, ok)
}
