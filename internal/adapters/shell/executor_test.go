package shell_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/sift/internal/adapters/shell"
	"go.trai.ch/sift/internal/core/domain"
	"go.trai.ch/zerr"
)

func TestExecutor_Execute_Output(t *testing.T) {
	var stdout, stderr bytes.Buffer
	err := shell.NewExecutor().Execute(context.Background(), domain.Command{
		Args: []string{"sh", "-c", "echo out; echo err >&2"},
		Dir:  t.TempDir(),
	}, &stdout, &stderr)

	require.NoError(t, err)
	assert.Equal(t, "out\n", stdout.String())
	assert.Equal(t, "err\n", stderr.String())
}

func TestExecutor_Execute_ExitCode(t *testing.T) {
	var stderr bytes.Buffer
	err := shell.NewExecutor().Execute(context.Background(), domain.Command{
		Args: []string{"sh", "-c", "echo findings >&2; exit 3"},
	}, &bytes.Buffer{}, &stderr)

	require.Error(t, err)
	var exitErr *exec.ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 3, exitErr.ExitCode())

	var zErr *zerr.Error
	require.True(t, errors.As(err, &zErr))
	assert.Equal(t, 3, zErr.Metadata()["exit_code"])
	assert.Equal(t, "findings\n", stderr.String())
}

func TestExecutor_Execute_Timeout(t *testing.T) {
	start := time.Now()
	err := shell.NewExecutor().Execute(context.Background(), domain.Command{
		Args:    []string{"sleep", "5"},
		Timeout: 100 * time.Millisecond,
	}, &bytes.Buffer{}, &bytes.Buffer{})

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestExecutor_Execute_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := shell.NewExecutor().Execute(ctx, domain.Command{Args: []string{"sleep", "5"}}, &bytes.Buffer{}, &bytes.Buffer{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestExecutor_Execute_EmptyCommand(t *testing.T) {
	err := shell.NewExecutor().Execute(context.Background(), domain.Command{}, &bytes.Buffer{}, &bytes.Buffer{})
	assert.ErrorIs(t, err, domain.ErrEmptyCommand)
}

func TestExecutor_Execute_Environment(t *testing.T) {
	t.Setenv("SIFT_TEST_SECRET", "leaked")

	var stdout bytes.Buffer
	err := shell.NewExecutor().Execute(context.Background(), domain.Command{
		Args: []string{"sh", "-c", `echo "secret=$SIFT_TEST_SECRET domain=$SIFT_DOMAIN"`},
		Env:  []string{"SIFT_DOMAIN=core"},
	}, &stdout, &bytes.Buffer{})

	require.NoError(t, err)
	assert.Equal(t, "secret= domain=core\n", stdout.String())
}

func TestExecutor_Execute_RelativeScript(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "scripts"), 0o750))
	//nolint:gosec // Test requires executable file
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scripts", "tool.sh"), []byte("#!/bin/sh\necho \"$@\"\n"), 0o700))

	var stdout bytes.Buffer
	err := shell.NewExecutor().Execute(context.Background(), domain.Command{
		Args: []string{"scripts/tool.sh", "internal/core"},
		Dir:  dir,
	}, &stdout, &bytes.Buffer{})

	require.NoError(t, err)
	assert.Equal(t, "internal/core\n", stdout.String())
}

func TestExecutor_Execute_PTY(t *testing.T) {
	var out bytes.Buffer
	err := shell.NewExecutor().Execute(context.Background(), domain.Command{
		Args: []string{"sh", "-c", "echo from-pty; echo to-stderr >&2"},
		PTY:  true,
	}, &out, &bytes.Buffer{})

	require.NoError(t, err)
	text := strings.ReplaceAll(out.String(), "\r", "")
	assert.Contains(t, text, "from-pty\n")
	assert.Contains(t, text, "to-stderr\n")
}

func TestResolveEnvironment(t *testing.T) {
	got := shell.ResolveEnvironment(
		[]string{"PATH=/usr/bin", "HOME=/home/me", "AWS_SECRET=x", "GOCACHE=/cache", "MALFORMED"},
		[]string{"SIFT_TIER=2", "PATH=/opt/bin"},
	)
	assert.Equal(t, []string{"GOCACHE=/cache", "HOME=/home/me", "PATH=/opt/bin", "SIFT_TIER=2"}, got)
}

func TestLookPath(t *testing.T) {
	dir := t.TempDir()
	//nolint:gosec // Test requires executable file
	require.NoError(t, os.WriteFile(filepath.Join(dir, "my-tool"), []byte("#!/bin/sh\n"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "not-exec"), []byte("x"), 0o600))

	got, err := shell.LookPath("my-tool", []string{"PATH=" + dir})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "my-tool"), got)

	_, err = shell.LookPath("not-exec", []string{"PATH=" + dir})
	require.Error(t, err)

	_, err = shell.LookPath("my-tool", nil)
	require.Error(t, err)
}
