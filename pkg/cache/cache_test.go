package cache_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/glorpus-work/gdown/pkg/cache"
	"github.com/glorpus-work/gdown/pkg/errors"
	"github.com/glorpus-work/gdown/pkg/lock"
	lockmocks "github.com/glorpus-work/gdown/pkg/lock/mocks"
)

func TestEncodeURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{
			name: "drive download url",
			url:  "https://host/uc?id=ABC123&export=download",
			want: "https-COLON--SLASH--SLASH-host-SLASH-uc-QUESTION-id-EQUAL-ABC123&export-EQUAL-download",
		},
		{
			name: "plain name",
			url:  "data.bin",
			want: "data.bin",
		},
		{
			name: "empty",
			url:  "",
			want: "",
		},
		{
			name: "repeated reserved characters",
			url:  "a//b::c==d??",
			want: "a-SLASH--SLASH-b-COLON--COLON-c-EQUAL--EQUAL-d-QUESTION--QUESTION-",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cache.EncodeURL(tt.url))
		})
	}
}

func TestEncodeURLProperties(t *testing.T) {
	urls := []string{
		"https://drive.google.com/uc?id=0B9P1L--7Wd2vU3VUVlFnbTgtS2c",
		"http://example.com:8080/a/b/c?x=1&y=2",
		"gs://bucket/key/with/slashes",
		"file:///tmp/some/file.tar.gz",
	}
	for _, u := range urls {
		name := cache.EncodeURL(u)
		assert.Equal(t, name, cache.EncodeURL(u), "deterministic")
		assert.False(t, strings.ContainsAny(name, "/:=?"), "no reserved characters in %q", name)
	}
}

func TestRootPaths(t *testing.T) {
	dir := t.TempDir()
	root := cache.NewRoot(dir)

	assert.Equal(t, dir, root.Dir())
	assert.Equal(t, filepath.Join(dir, "_dl_lock"), root.LockPath())
	assert.Equal(t,
		filepath.Join(dir, "https-COLON--SLASH--SLASH-host-SLASH-f"),
		root.EntryPath("https://host/f"))
	assert.Equal(t, filepath.Dir(root.EntryPath("https://host/f")), dir)
}

func TestRootEnsureIsLazy(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "cache")
	root := cache.NewRoot(dir)

	_, err := os.Stat(dir)
	require.True(t, os.IsNotExist(err), "root must not exist before first use")

	assert.Equal(t, dir, root.Ensure())
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	// Second call is a no-op even if the directory was removed meanwhile.
	require.NoError(t, os.RemoveAll(dir))
	root.Ensure()
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestRootEnsureToleratesFailure(t *testing.T) {
	parent := t.TempDir()
	blocker := filepath.Join(parent, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	root := cache.NewRoot(filepath.Join(blocker, "cache"))
	assert.NotPanics(t, func() { root.Ensure() })
}

func TestNewStagingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	root := cache.NewRoot(dir)

	first, err := root.NewStagingDir()
	require.NoError(t, err)
	second, err := root.NewStagingDir()
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	for _, staging := range []string{first, second} {
		assert.Equal(t, dir, filepath.Dir(staging))
		assert.True(t, cache.IsStagingDir(filepath.Base(staging)))
		assert.DirExists(t, staging)
		assert.Equal(t, filepath.Join(staging, "dl"), cache.StagedFile(staging))
	}
}

func TestNewStagingDirFailure(t *testing.T) {
	parent := t.TempDir()
	blocker := filepath.Join(parent, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	root := cache.NewRoot(filepath.Join(blocker, "cache"))
	_, err := root.NewStagingDir()
	require.Error(t, err)
	assert.ErrorIs(t, err, cache.ErrStaging)
}

func populate(t *testing.T, dir string) (staging string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "_dl_lock"), nil, 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, cache.EncodeURL("https://a/1")), []byte("12345"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, cache.EncodeURL("https://a/2")), []byte("123"), 0o600))

	root := cache.NewRoot(dir)
	staging, err := root.NewStagingDir()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(cache.StagedFile(staging), []byte("1234567"), 0o600))
	return staging
}

func TestManagerGetInfo(t *testing.T) {
	dir := t.TempDir()
	populate(t, dir)

	info, err := cache.NewManager(cache.NewRoot(dir)).GetInfo()
	require.NoError(t, err)

	assert.Equal(t, dir, info.Directory)
	assert.Equal(t, 2, info.EntryFiles)
	assert.Equal(t, int64(8), info.EntrySize)
	assert.Equal(t, 1, info.StagingDirs)
	assert.Equal(t, int64(7), info.StagingSize)
	assert.Equal(t, int64(15), info.TotalSize)
}

func TestManagerGetInfoMissingRoot(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing")
	info, err := cache.NewManager(cache.NewRoot(dir)).GetInfo()
	require.NoError(t, err)
	assert.Zero(t, info.TotalSize)
	assert.Zero(t, info.EntryFiles)
}

func TestManagerClean(t *testing.T) {
	tests := []struct {
		name          string
		options       cache.CleanOptions
		wantEntries   int
		wantStaging   int
		entriesRemain bool
		stagingRemain bool
	}{
		{"default cleans everything", cache.CleanOptions{}, 2, 1, false, false},
		{"entries only", cache.CleanOptions{Entries: true}, 2, 0, false, true},
		{"staging only", cache.CleanOptions{Staging: true}, 0, 1, true, false},
		{"young staging is kept", cache.CleanOptions{Staging: true, StagingOlderThan: time.Hour}, 0, 0, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			staging := populate(t, dir)

			result, err := cache.NewManager(cache.NewRoot(dir)).Clean(context.Background(), tt.options)
			require.NoError(t, err)

			assert.Equal(t, tt.wantEntries, result.EntryFiles)
			assert.Equal(t, tt.wantStaging, result.StagingDirs)
			assert.Equal(t, result.EntryFreed+result.StagingFreed, result.TotalFreed)
			assert.FileExists(t, filepath.Join(dir, "_dl_lock"))

			entry := filepath.Join(dir, cache.EncodeURL("https://a/1"))
			if tt.entriesRemain {
				assert.FileExists(t, entry)
			} else {
				assert.NoFileExists(t, entry)
			}
			if tt.stagingRemain {
				assert.DirExists(t, staging)
			} else {
				assert.NoDirExists(t, staging)
			}
		})
	}
}

func TestManagerCleanOldStaging(t *testing.T) {
	dir := t.TempDir()
	staging := populate(t, dir)
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(staging, old, old))

	result, err := cache.NewManager(cache.NewRoot(dir)).Clean(context.Background(), cache.CleanOptions{
		Staging:          true,
		StagingOlderThan: time.Hour,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.StagingDirs)
	assert.Equal(t, int64(7), result.StagingFreed)
	assert.NoDirExists(t, staging)
}

func TestOperation(t *testing.T) {
	dir := t.TempDir()
	populate(t, dir)
	op := cache.NewOperation(cache.NewManager(cache.NewRoot(dir)))

	assert.Equal(t, dir, op.GetDirectory())

	info, err := op.GetInfo()
	require.NoError(t, err)
	assert.Contains(t, info, "Cache Information:")
	assert.Contains(t, info, "Entries:      8 B (2 files)")
	assert.Contains(t, info, "Staging:      7 B (1 directories)")

	msg, err := op.Clean(context.Background(), cache.CleanOptions{})
	require.NoError(t, err)
	assert.Contains(t, msg, "Freed 15 B of disk space.")
	assert.Contains(t, msg, "- Entries: 8 B (2 files)")

	msg, err = op.Clean(context.Background(), cache.CleanOptions{})
	require.NoError(t, err)
	assert.Equal(t, "No files were removed from the cache.", msg)
}

func TestManagerCleanHoldsGuard(t *testing.T) {
	ctrl := gomock.NewController(t)
	guard := lockmocks.NewMockGuard(ctrl)

	dir := t.TempDir()
	populate(t, dir)
	entry := filepath.Join(dir, cache.EncodeURL("https://a/1"))

	guard.EXPECT().
		Do(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, fn func() error) error {
			assert.FileExists(t, entry, "nothing is removed before the guard is held")
			return fn()
		})

	result, err := cache.NewManagerWithGuard(cache.NewRoot(dir), guard).Clean(context.Background(), cache.CleanOptions{Entries: true})
	require.NoError(t, err)
	assert.Equal(t, 2, result.EntryFiles)
	assert.NoFileExists(t, entry)
}

func TestManagerCleanGuardFailureRemovesNothing(t *testing.T) {
	ctrl := gomock.NewController(t)
	guard := lockmocks.NewMockGuard(ctrl)

	dir := t.TempDir()
	staging := populate(t, dir)

	guard.EXPECT().Do(gomock.Any(), gomock.Any()).Return(errors.ErrLockFailed)

	_, err := cache.NewManagerWithGuard(cache.NewRoot(dir), guard).Clean(context.Background(), cache.CleanOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrLockFailed)
	assert.FileExists(t, filepath.Join(dir, cache.EncodeURL("https://a/1")))
	assert.DirExists(t, staging)
}

func TestManagerCleanWaitsForDownloadLock(t *testing.T) {
	dir := t.TempDir()
	populate(t, dir)
	root := cache.NewRoot(dir)

	held := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- lock.NewFileGuard(root.LockPath()).Do(context.Background(), func() error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_, err := cache.NewManager(root).Clean(ctx, cache.CleanOptions{Entries: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrLockFailed)
	assert.FileExists(t, filepath.Join(dir, cache.EncodeURL("https://a/1")))

	close(release)
	require.NoError(t, <-done)

	result, err := cache.NewManager(root).Clean(context.Background(), cache.CleanOptions{Entries: true})
	require.NoError(t, err)
	assert.Equal(t, 2, result.EntryFiles)
}

func TestManagerCleanMissingRoot(t *testing.T) {
	ctrl := gomock.NewController(t)
	guard := lockmocks.NewMockGuard(ctrl)

	// No EXPECT: an empty cache needs no lock.
	result, err := cache.NewManagerWithGuard(cache.NewRoot(filepath.Join(t.TempDir(), "absent")), guard).
		Clean(context.Background(), cache.CleanOptions{})
	require.NoError(t, err)
	assert.Zero(t, result.TotalFreed)
}
