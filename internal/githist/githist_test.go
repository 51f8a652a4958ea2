package githist

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseLog_SingleCommitWithFiles(t *testing.T) {
	out := recordStart + "abc123" + fieldSep + "Ada Lovelace" + fieldSep + "2024-01-02T03:04:05-00:00\n" +
		"src/a.cs\nsrc/b.cs\n"

	commits := parseLog(out)
	require.Len(t, commits, 1)
	require.Equal(t, "abc123", commits[0].Hash)
	require.Equal(t, "Ada Lovelace", commits[0].Author)
	require.Equal(t, []string{"src/a.cs", "src/b.cs"}, commits[0].FilesTouched)
	require.True(t, commits[0].Timestamp.Equal(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)))
}

func TestParseLog_MultipleCommitsAndMalformedSkipped(t *testing.T) {
	out := recordStart + "h1" + fieldSep + "a1" + fieldSep + "2024-01-01T00:00:00-00:00\nfile1.ts\n" +
		recordStart + "only-one-field\n" +
		recordStart + "h2" + fieldSep + "a2" + fieldSep + "2024-02-02T00:00:00-00:00\nfile2.ts\nfile3.ts\n"

	commits := parseLog(out)
	require.Len(t, commits, 2)
	require.Equal(t, "h1", commits[0].Hash)
	require.Equal(t, "h2", commits[1].Hash)
	require.Equal(t, []string{"file2.ts", "file3.ts"}, commits[1].FilesTouched)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	commits := []Commit{{Hash: "abc", Author: "dev", Timestamp: time.Unix(0, 0).UTC(), FilesTouched: []string{"x.cs"}}}

	require.NoError(t, Save(dir, "/repo", commits, time.Unix(100, 0).UTC()))

	snap, err := Load(dir, "/repo")
	require.NoError(t, err)
	require.Equal(t, "/repo", snap.Root)
	require.Equal(t, commits, snap.Commits)
}
