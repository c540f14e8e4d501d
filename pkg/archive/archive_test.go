package archive

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for path, content := range files {
		full := filepath.Join(root, path)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
}

func TestManagerExtractAll(t *testing.T) {
	tempDir := t.TempDir()
	testFiles := map[string]string{
		"README.md":             "# dataset",
		"data/file1.txt":        "Hello World",
		"data/subdir/file2.txt": "Hello World 2",
	}

	sourceDir := filepath.Join(tempDir, "source")
	writeTree(t, sourceDir, testFiles)

	am := NewManager()
	ctx := context.Background()
	archivePath := filepath.Join(tempDir, "test.tar.gz")
	require.NoError(t, am.Create(ctx, sourceDir, archivePath))
	assert.FileExists(t, archivePath)
	assert.True(t, IsArchive(ctx, archivePath))

	extractDir := filepath.Join(tempDir, "extracted")
	files, err := am.ExtractAll(ctx, archivePath, extractDir)
	require.NoError(t, err)

	var want []string
	for path, content := range testFiles {
		full := filepath.Join(extractDir, path)
		want = append(want, full)
		got, err := os.ReadFile(full)
		require.NoError(t, err)
		assert.Equal(t, content, string(got))
	}
	sort.Strings(want)
	sort.Strings(files)
	assert.Equal(t, want, files)
}

func TestManagerExtractAllNotArchive(t *testing.T) {
	tempDir := t.TempDir()
	plain := filepath.Join(tempDir, "notes.txt")
	require.NoError(t, os.WriteFile(plain, []byte("just some text, not an archive"), 0o644))

	assert.False(t, IsArchive(context.Background(), plain))

	_, err := NewManager().ExtractAll(context.Background(), plain, filepath.Join(tempDir, "out"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotArchive)
	assert.NoDirExists(t, filepath.Join(tempDir, "out"))
}

func TestManagerExtractAllMissing(t *testing.T) {
	_, err := NewManager().ExtractAll(context.Background(), filepath.Join(t.TempDir(), "nope.zip"), t.TempDir())
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWithin(t *testing.T) {
	root := filepath.Join(string(os.PathSeparator), "dest")
	tests := []struct {
		target string
		want   bool
	}{
		{filepath.Join(root, "a", "b"), true},
		{filepath.Join(root, "..dotfile"), true},
		{filepath.Join(root, "..", "escape"), false},
		{filepath.Dir(root), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, within(root, tt.target), tt.target)
	}
}
