//go:build integration

package main

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/glorpus-work/gdown/internal/logger"
)

// testEnv is an isolated config file and cache directory.
type testEnv struct {
	dir      string
	cfgPath  string
	cacheDir string
}

// newTestEnv writes a minimal config pointing the cache at a temporary directory.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger.SetOutput(io.Discard)
	t.Cleanup(func() { logger.SetOutput(nil) })

	dir := t.TempDir()
	env := &testEnv{
		dir:      dir,
		cfgPath:  filepath.Join(dir, "config.yaml"),
		cacheDir: filepath.Join(dir, "cache"),
	}

	yamlContent := "version: \"1.0\"\n" +
		"settings:\n" +
		"  cache_dir: " + strings.ReplaceAll(env.cacheDir, "\\", "\\\\") + "\n" +
		"  http_timeout: 5s\n"
	require.NoError(t, os.WriteFile(env.cfgPath, []byte(yamlContent), 0o600))
	return env
}

// run executes the root command with the env's config and returns stdout and stderr.
func (e *testEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer

	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", e.cfgPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// writeSource creates a file with content and returns its path.
func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func md5Hex(content string) string {
	sum := md5.Sum([]byte(content))
	return hex.EncodeToString(sum[:])
}

// lastLine returns the last non-empty line of out.
func lastLine(out string) string {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
