package persist

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codesift/codesift/internal/errors"
)

type sample struct {
	Name  string
	Count int
	Lines []int
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "blob.cidx")

	in := sample{Name: "orders", Count: 3, Lines: []int{1, 5, 9}}
	require.NoError(t, Save(path, in))

	var out sample
	require.NoError(t, Load(path, &out))
	require.Equal(t, in, out)

	// Atomic write leaves no tmp file behind.
	_, err := os.Stat(path + ".tmp")
	require.True(t, os.IsNotExist(err))
}

func TestLoad_VersionMismatchIsCorrupt(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blob.cidx")
	require.NoError(t, Save(path, sample{Name: "x"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	binary.BigEndian.PutUint32(data[:4], FormatVersion+1)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	var out sample
	err = Load(path, &out)
	require.Error(t, err)
	typ, ok := errors.AsType(err)
	require.True(t, ok)
	require.Equal(t, errors.CorruptIndex, typ)
}

func TestLoad_MissingFileIsNotFound(t *testing.T) {
	var out sample
	err := Load(filepath.Join(t.TempDir(), "absent.cidx"), &out)
	require.Error(t, err)
	typ, ok := errors.AsType(err)
	require.True(t, ok)
	require.Equal(t, errors.NotFound, typ)
}

func TestLoad_TruncatedBlobIsCorrupt(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "short.cidx")
	require.NoError(t, os.WriteFile(path, []byte{0, 0}, 0o644))

	var out sample
	err := Load(path, &out)
	require.Error(t, err)
	typ, ok := errors.AsType(err)
	require.True(t, ok)
	require.Equal(t, errors.CorruptIndex, typ)
}

func TestKeyPath_DeterministicAndDistinct(t *testing.T) {
	a := KeyPath("/base", "/proj", ".cs,.ts", PurposeContent)
	b := KeyPath("/base", "/proj", ".cs,.ts", PurposeContent)
	require.Equal(t, a, b)
	require.True(t, strings.HasSuffix(a, ".cidx"))

	// Different extension sets and purposes must not collide.
	c := KeyPath("/base", "/proj", ".cs", PurposeContent)
	require.NotEqual(t, a, c)
	d := KeyPath("/base", "/proj", ".cs,.ts", PurposeDefinition)
	require.NotEqual(t, a, d)
	require.True(t, strings.HasSuffix(d, ".didx"))

	name := filepath.Base(a)
	require.Len(t, strings.TrimSuffix(name, ".cidx"), 16)
}

func TestCleanup_RemovesOnlyDeadRoots(t *testing.T) {
	dir := t.TempDir()
	live := filepath.Join(dir, "live.cidx")
	dead := filepath.Join(dir, "dead.cidx")
	require.NoError(t, os.WriteFile(live, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(dead, []byte("x"), 0o644))

	known := []KnownBlob{
		{Path: live, Root: "/roots/alive"},
		{Path: dead, Root: "/roots/gone"},
	}
	removed, err := Cleanup(known, func(root string) bool { return root == "/roots/alive" })
	require.NoError(t, err)
	require.Equal(t, []string{dead}, removed)

	_, err = os.Stat(live)
	require.NoError(t, err)
	_, err = os.Stat(dead)
	require.True(t, os.IsNotExist(err))
}
