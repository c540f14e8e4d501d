package cached_test

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/glorpus-work/gdown/pkg/cache"
	"github.com/glorpus-work/gdown/pkg/cached"
	"github.com/glorpus-work/gdown/pkg/checksum"
	"github.com/glorpus-work/gdown/pkg/download"
	dlmocks "github.com/glorpus-work/gdown/pkg/download/mocks"
	"github.com/glorpus-work/gdown/pkg/errors"
	"github.com/glorpus-work/gdown/pkg/lock"
	lockmocks "github.com/glorpus-work/gdown/pkg/lock/mocks"
)

const testURL = "https://host/uc?id=ABC123&export=download"

func digest(content string) string {
	sum := md5.Sum([]byte(content))
	return hex.EncodeToString(sum[:])
}

// serve makes the mock transport write content to the requested destination.
func serve(content string) func(context.Context, string, string, download.Options) error {
	return func(_ context.Context, _ string, dest string, _ download.Options) error {
		return os.WriteFile(dest, []byte(content), 0o644)
	}
}

type fixture struct {
	root      *cache.Root
	transport *dlmocks.MockTransport
	stdout    *bytes.Buffer
	stderr    *bytes.Buffer
	d         *cached.Downloader
}

func newFixture(t *testing.T, opts ...cached.Option) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &fixture{
		root:      cache.NewRoot(filepath.Join(t.TempDir(), "cache")),
		transport: dlmocks.NewMockTransport(ctrl),
		stdout:    &bytes.Buffer{},
		stderr:    &bytes.Buffer{},
	}
	opts = append([]cached.Option{cached.WithOutput(f.stdout, f.stderr)}, opts...)
	f.d = cached.New(f.root, f.transport, opts...)
	return f
}

func stagingDirs(t *testing.T, root string) []string {
	t.Helper()
	entries, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	var dirs []string
	for _, e := range entries {
		if e.IsDir() && cache.IsStagingDir(e.Name()) {
			dirs = append(dirs, e.Name())
		}
	}
	return dirs
}

func TestDownloadIntoCache(t *testing.T) {
	f := newFixture(t)
	content := "hello"
	want := filepath.Join(f.root.Dir(), "https-COLON--SLASH--SLASH-host-SLASH-uc-QUESTION-id-EQUAL-ABC123&export-EQUAL-download")

	f.transport.EXPECT().
		Download(gomock.Any(), testURL, gomock.Any(), gomock.Any()).
		DoAndReturn(serve(content))

	path, err := f.d.Download(context.Background(), cached.Request{URL: testURL, MD5: digest(content)})
	require.NoError(t, err)
	assert.Equal(t, want, path)

	sum, err := checksum.Sum(path, 0)
	require.NoError(t, err)
	assert.Equal(t, digest(content), sum)

	assert.Contains(t, f.stderr.String(), "Cached Downloading: "+path)
	assert.Contains(t, f.stdout.String(), "Computing MD5: "+path)
	assert.Contains(t, f.stdout.String(), "MD5 matches: "+path)
	assert.Empty(t, stagingDirs(t, f.root.Dir()), "staging directory must be removed after success")
	assert.FileExists(t, f.root.LockPath())
}

func TestDownloadExplicitPath(t *testing.T) {
	f := newFixture(t)
	dest := filepath.Join(t.TempDir(), "nested", "dir", "file.bin")

	f.transport.EXPECT().
		Download(gomock.Any(), testURL, gomock.Any(), gomock.Any()).
		DoAndReturn(serve("payload"))

	path, err := f.d.Download(context.Background(), cached.Request{URL: testURL, Path: dest})
	require.NoError(t, err)
	assert.Equal(t, dest, path)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(got))
}

func TestDownloadStagesUnderRoot(t *testing.T) {
	f := newFixture(t)

	f.transport.EXPECT().
		Download(gomock.Any(), testURL, gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, src, dest string, opts download.Options) error {
			assert.Equal(t, f.root.Dir(), filepath.Dir(filepath.Dir(dest)))
			assert.True(t, cache.IsStagingDir(filepath.Base(filepath.Dir(dest))))
			assert.Equal(t, "dl", filepath.Base(dest))
			return serve("x")(ctx, src, dest, opts)
		})

	_, err := f.d.Download(context.Background(), cached.Request{URL: testURL})
	require.NoError(t, err)
}

func TestDownloadTrustedHitSkipsTransport(t *testing.T) {
	tests := []struct {
		name       string
		quiet      bool
		wantStdout string
	}{
		{"verbose", false, "File exists: "},
		{"quiet", true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			path := f.root.EntryPath(testURL)
			require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
			require.NoError(t, os.WriteFile(path, []byte("anything"), 0o644))

			got, err := f.d.Download(context.Background(), cached.Request{URL: testURL, Quiet: tt.quiet})
			require.NoError(t, err)
			assert.Equal(t, path, got)
			if tt.wantStdout == "" {
				assert.Empty(t, f.stdout.String())
			} else {
				assert.Equal(t, tt.wantStdout+path+"\n", f.stdout.String())
			}
			assert.Empty(t, f.stderr.String())
		})
	}
}

func TestDownloadValidHitSkipsTransport(t *testing.T) {
	f := newFixture(t)
	path := f.root.EntryPath(testURL)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("good"), 0o644))

	// No EXPECT: any transport call fails the test.
	got, err := f.d.Download(context.Background(), cached.Request{URL: testURL, MD5: digest("good")})
	require.NoError(t, err)
	assert.Equal(t, path, got)
	assert.Contains(t, f.stdout.String(), "MD5 matches: "+path)
	assert.NotContains(t, f.stderr.String(), "Cached Downloading")
}

func TestDownloadMismatchRedownloads(t *testing.T) {
	f := newFixture(t)
	path := f.root.EntryPath(testURL)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("corrupt"), 0o644))

	f.transport.EXPECT().
		Download(gomock.Any(), testURL, gomock.Any(), gomock.Any()).
		DoAndReturn(serve("good"))

	got, err := f.d.Download(context.Background(), cached.Request{URL: testURL, MD5: digest("good")})
	require.NoError(t, err)

	sum, err := checksum.Sum(got, 0)
	require.NoError(t, err)
	assert.Equal(t, digest("good"), sum)

	stderr := f.stderr.String()
	assert.Contains(t, stderr, "MD5 doesn't match:\nactual: "+digest("corrupt")+"\nexpected: "+digest("good"))
	assert.Contains(t, stderr, "Cached Downloading: "+path)
}

func TestDownloadFinalMismatchIsFatal(t *testing.T) {
	f := newFixture(t)

	f.transport.EXPECT().
		Download(gomock.Any(), testURL, gomock.Any(), gomock.Any()).
		DoAndReturn(serve("unexpected"))

	_, err := f.d.Download(context.Background(), cached.Request{URL: testURL, MD5: digest("expected"), Quiet: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrFileHashMismatch)

	var ie *checksum.IntegrityError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, digest("unexpected"), ie.Actual)
	assert.Empty(t, stagingDirs(t, f.root.Dir()))
}

func TestDownloadTransportFailureLeavesNothing(t *testing.T) {
	f := newFixture(t)
	transportErr := &download.TransportError{URL: testURL, StatusCode: 500}

	f.transport.EXPECT().
		Download(gomock.Any(), testURL, gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, dest string, _ download.Options) error {
			// A partially written file in staging must not leak out.
			require.NoError(t, os.WriteFile(dest, []byte("partial"), 0o644))
			return transportErr
		})

	_, err := f.d.Download(context.Background(), cached.Request{URL: testURL})
	require.Error(t, err)
	assert.Same(t, transportErr, err, "transport error must be returned unchanged")
	assert.NoFileExists(t, f.root.EntryPath(testURL))
	assert.Empty(t, stagingDirs(t, f.root.Dir()))
}

func TestDownloadForceReplacesExisting(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(t.TempDir(), "keep.bin")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

	f.transport.EXPECT().
		Download(gomock.Any(), testURL, gomock.Any(), gomock.Any()).
		DoAndReturn(serve("new"))

	got, err := f.d.Download(context.Background(), cached.Request{URL: testURL, Path: path, Force: true})
	require.NoError(t, err)
	assert.Equal(t, path, got)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(content))
	assert.NotContains(t, f.stdout.String(), "File exists")
}

func TestDownloadForceKeepsExistingOnFailure(t *testing.T) {
	tests := []struct {
		name string
		md5  string
	}{
		{"without digest", ""},
		{"with valid digest", digest("old")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			path := filepath.Join(t.TempDir(), "keep.bin")
			require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

			transportErr := &download.TransportError{URL: testURL, StatusCode: 404}
			f.transport.EXPECT().
				Download(gomock.Any(), testURL, gomock.Any(), gomock.Any()).
				Return(transportErr)

			_, err := f.d.Download(context.Background(), cached.Request{URL: testURL, Path: path, MD5: tt.md5, Force: true, Quiet: true})
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrDownloadFailed)

			content, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, "old", string(content))
			assert.Empty(t, stagingDirs(t, f.root.Dir()))
		})
	}
}

func TestDownloadForceStillValidatesDigest(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(t.TempDir(), "keep.bin")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

	_, err := f.d.Download(context.Background(), cached.Request{URL: testURL, Path: path, MD5: "abc", Force: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidArgument)
	assert.FileExists(t, path)
}

func TestDownloadInvalidDigestFailsFast(t *testing.T) {
	f := newFixture(t)

	for _, md5 := range []string{"abc", strings.Repeat("a", 33)} {
		_, err := f.d.Download(context.Background(), cached.Request{URL: testURL, MD5: md5})
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrInvalidArgument)

		var iae *checksum.InvalidArgumentError
		assert.ErrorAs(t, err, &iae)
	}
	_, statErr := os.Stat(f.root.Dir())
	assert.True(t, os.IsNotExist(statErr), "no I/O before validation")
}

func TestDownloadEmptyURL(t *testing.T) {
	f := newFixture(t)
	_, err := f.d.Download(context.Background(), cached.Request{})
	assert.ErrorIs(t, err, errors.ErrEmptySource)
}

func TestDownloadPostprocess(t *testing.T) {
	f := newFixture(t)
	f.transport.EXPECT().
		Download(gomock.Any(), testURL, gomock.Any(), gomock.Any()).
		DoAndReturn(serve("data")).
		Times(2)

	var seen string
	path, err := f.d.Download(context.Background(), cached.Request{
		URL: testURL,
		Postprocess: func(_ context.Context, p string) error {
			seen = p
			return nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, path, seen)

	require.NoError(t, os.Remove(path))
	_, err = f.d.Download(context.Background(), cached.Request{
		URL:         testURL,
		Postprocess: func(context.Context, string) error { return errors.ErrScriptResult },
	})
	assert.ErrorIs(t, err, errors.ErrScriptResult)
	assert.FileExists(t, path, "postprocess failure leaves the file in place")
}

func TestDownloadPostprocessSkippedOnHit(t *testing.T) {
	f := newFixture(t)
	path := f.root.EntryPath(testURL)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	called := false
	_, err := f.d.Download(context.Background(), cached.Request{
		URL:         testURL,
		Quiet:       true,
		Postprocess: func(context.Context, string) error { called = true; return nil },
	})
	require.NoError(t, err)
	assert.False(t, called)
}

func TestDownloadQuietPropagatesToTransport(t *testing.T) {
	f := newFixture(t)
	f.transport.EXPECT().
		Download(gomock.Any(), testURL, gomock.Any(), download.Options{Quiet: true, SpeedLimit: 10}).
		DoAndReturn(serve("x"))

	_, err := f.d.Download(context.Background(), cached.Request{
		URL:       testURL,
		Quiet:     true,
		Transport: download.Options{SpeedLimit: 10},
	})
	require.NoError(t, err)
	assert.Empty(t, f.stdout.String())
	assert.Empty(t, f.stderr.String())
}

func TestDownloadGuardFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	guard := lockmocks.NewMockGuard(ctrl)
	f := newFixture(t, cached.WithGuard(guard))

	f.transport.EXPECT().
		Download(gomock.Any(), testURL, gomock.Any(), gomock.Any()).
		DoAndReturn(serve("x"))
	guard.EXPECT().Do(gomock.Any(), gomock.Any()).Return(errors.ErrLockFailed)

	_, err := f.d.Download(context.Background(), cached.Request{URL: testURL})
	assert.ErrorIs(t, err, errors.ErrLockFailed)
	assert.NoFileExists(t, f.root.EntryPath(testURL))
	assert.Empty(t, stagingDirs(t, f.root.Dir()))
}

func TestDownloadCancelled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.d.Download(ctx, cached.Request{URL: testURL})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDownloadConcurrentCallers(t *testing.T) {
	ctrl := gomock.NewController(t)
	transport := dlmocks.NewMockTransport(ctrl)
	root := cache.NewRoot(filepath.Join(t.TempDir(), "cache"))
	d := cached.New(root, transport, cached.WithOutput(nil, nil))

	content := "shared content"
	transport.EXPECT().
		Download(gomock.Any(), testURL, gomock.Any(), gomock.Any()).
		DoAndReturn(serve(content)).
		AnyTimes()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			path, err := d.Download(context.Background(), cached.Request{URL: testURL, MD5: digest(content)})
			assert.NoError(t, err)
			assert.Equal(t, root.EntryPath(testURL), path)
		}()
	}
	wg.Wait()

	assert.Empty(t, stagingDirs(t, root.Dir()))
}

func TestWithGuardReplacesFileGuard(t *testing.T) {
	f := newFixture(t, cached.WithGuard(lock.Nop{}))
	f.transport.EXPECT().
		Download(gomock.Any(), testURL, gomock.Any(), gomock.Any()).
		DoAndReturn(serve("x"))

	_, err := f.d.Download(context.Background(), cached.Request{URL: testURL, Quiet: true})
	require.NoError(t, err)
	assert.NoFileExists(t, f.root.LockPath(), "a custom guard replaces the lock file")
	assert.Equal(t, f.root, f.d.Root())
}

func TestEntryStateString(t *testing.T) {
	assert.Equal(t, "missing", cached.EntryMissing.String())
	assert.Equal(t, "trusted", cached.EntryTrusted.String())
	assert.Equal(t, "valid", cached.EntryValid.String())
	assert.Equal(t, "mismatched", cached.EntryMismatched.String())
}
