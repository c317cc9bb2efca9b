package fs_test

import (
	iofs "io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/sift/internal/adapters/fs"
	"go.trai.ch/sift/internal/core/domain"
)

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func touch(t *testing.T, path string, at time.Time) {
	t.Helper()
	require.NoError(t, os.Chtimes(path, at, at))
}

func TestWalker_WalkFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".git/config", "x")
	writeFile(t, root, ".sift/cache/x.json", "{}")
	writeFile(t, root, "vendor/lib.go", "package lib")
	writeFile(t, root, "src/main.go", "package main")
	writeFile(t, root, "src/main.go.orig", "old")
	writeFile(t, root, "README.md", "# readme")

	var got []string
	for f, err := range fs.NewWalker().WalkFiles(root, []string{"vendor", "*.orig"}) {
		require.NoError(t, err)
		rel, err := filepath.Rel(root, f.Path)
		require.NoError(t, err)
		got = append(got, filepath.ToSlash(rel))
	}

	assert.ElementsMatch(t, []string{"README.md", "src/main.go"}, got)
}

// brokenWalk walks the real tree but reports a read error for the named directory.
func brokenWalk(dir string) func(string, iofs.WalkDirFunc) error {
	return func(root string, fn iofs.WalkDirFunc) error {
		return filepath.WalkDir(root, func(path string, d iofs.DirEntry, err error) error {
			if err == nil && d.IsDir() && d.Name() == dir {
				return fn(path, d, iofs.ErrPermission)
			}
			return fn(path, d, err)
		})
	}
}

func TestWalker_WalkErrorIsReported(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a/one.go", "package a")
	writeFile(t, root, "b/two.go", "package b")
	writeFile(t, root, "c/three.go", "package c")

	var got []string
	var walkErr error
	for f, err := range fs.NewWalkerWithWalkDir(brokenWalk("b")).WalkFiles(root, nil) {
		if err != nil {
			walkErr = err
			continue
		}
		got = append(got, filepath.Base(f.Path))
	}

	require.ErrorIs(t, walkErr, domain.ErrFingerprintFailed)
	assert.ErrorContains(t, walkErr, iofs.ErrPermission.Error())
	assert.Equal(t, []string{"one.go"}, got)
}

func TestDetector_WalkErrorFailsFingerprint(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "core/a.go", "package core")
	writeFile(t, root, "core/broken/b.go", "package broken")
	writeFile(t, root, "ui/c.go", "package ui")

	d := fs.NewDetector(fs.NewWalkerWithWalkDir(brokenWalk("broken")))

	_, err := d.Fingerprint(t.Context(), root, []string{"core"}, nil)
	require.ErrorIs(t, err, domain.ErrFingerprintFailed)

	_, err = d.ChangedDomains(t.Context(), newProject(t, root), nil)
	require.ErrorIs(t, err, domain.ErrFingerprintFailed)

	_, err = d.ToolVersion(root, []string{"core"})
	require.ErrorIs(t, err, domain.ErrToolVersionFailed)
}

func TestDetector_Fingerprint(t *testing.T) {
	root := t.TempDir()
	a := writeFile(t, root, "pkg/a.go", "package pkg")
	writeFile(t, root, "pkg/sub/b.go", "package sub")
	writeFile(t, root, "single.go", "package main")

	d := fs.NewDetector(fs.NewWalker())
	fp, err := d.Fingerprint(t.Context(), root, []string{"pkg", "single.go", "missing"}, nil)
	require.NoError(t, err)
	require.Len(t, fp, 3)
	assert.Equal(t, "pkg/a.go", fp[0].Path)
	assert.Equal(t, "pkg/sub/b.go", fp[1].Path)
	assert.Equal(t, "single.go", fp[2].Path)
	assert.Equal(t, int64(len("package pkg")), fp[0].SizeBytes)

	again, err := d.Fingerprint(t.Context(), root, []string{"pkg", "single.go"}, nil)
	require.NoError(t, err)
	assert.True(t, fp.Equal(again))

	touch(t, a, time.Now().Add(time.Hour))
	touched, err := d.Fingerprint(t.Context(), root, []string{"pkg", "single.go"}, nil)
	require.NoError(t, err)
	assert.False(t, fp.Equal(touched))
}

func newProject(t *testing.T, root string) *domain.Project {
	t.Helper()
	dm, err := domain.NewDomainMap(map[string]domain.DomainSpec{
		"core": {Sources: []string{"core"}, Tests: []string{"./core/..."}},
		"ui":   {Sources: []string{"ui"}, Tests: []string{"./ui/..."}},
	}, nil)
	require.NoError(t, err)
	return &domain.Project{
		Root:    root,
		Domains: dm,
		Scan:    domain.ScanConfig{Roots: []string{"."}, Extensions: []string{".go"}},
	}
}

func TestDetector_ChangedDomains(t *testing.T) {
	root := t.TempDir()
	coreFile := writeFile(t, root, "core/a.go", "package core")
	writeFile(t, root, "ui/b.go", "package ui")
	writeFile(t, root, "docs/notes.md", "not scanned")

	d := fs.NewDetector(fs.NewWalker())
	project := newProject(t, root)

	cold, err := d.ChangedDomains(t.Context(), project, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"core", "ui"}, cold.Changed)

	warm, err := d.ChangedDomains(t.Context(), project, cold.Current)
	require.NoError(t, err)
	assert.Empty(t, warm.Changed)

	touch(t, coreFile, time.Now().Add(time.Hour))
	changed, err := d.ChangedDomains(t.Context(), project, cold.Current)
	require.NoError(t, err)
	assert.Equal(t, []string{"core"}, changed.Changed)

	writeFile(t, root, "ui/new.go", "package ui")
	added, err := d.ChangedDomains(t.Context(), project, changed.Current)
	require.NoError(t, err)
	assert.Equal(t, []string{"ui"}, added.Changed)
}

func TestDetector_UnmappedSourcesAlwaysChange(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "core/a.go", "package core")
	writeFile(t, root, "cmd/main.go", "package main")

	d := fs.NewDetector(fs.NewWalker())
	project := newProject(t, root)

	first, err := d.ChangedDomains(t.Context(), project, nil)
	require.NoError(t, err)

	second, err := d.ChangedDomains(t.Context(), project, first.Current)
	require.NoError(t, err)
	assert.Equal(t, []string{domain.UnmappedDomain}, second.Changed)
	assert.True(t, second.IsChanged(domain.UnmappedDomain))
}

func TestDetector_ToolVersion(t *testing.T) {
	root := t.TempDir()
	script := writeFile(t, root, "scripts/analyze.sh", "echo '{}'")
	writeFile(t, root, "scripts/lib/common.sh", "true")

	d := fs.NewDetector(fs.NewWalker())
	v1, err := d.ToolVersion(root, []string{"scripts"})
	require.NoError(t, err)
	assert.NotEmpty(t, v1)

	// Touching without changing content keeps the version.
	touch(t, script, time.Now().Add(time.Hour))
	v2, err := d.ToolVersion(root, []string{"scripts"})
	require.NoError(t, err)
	assert.Equal(t, v1, v2)

	require.NoError(t, os.WriteFile(script, []byte("echo '{\"v\":2}'"), 0o600))
	changed, err := d.ToolCodeChanged(root, []string{"scripts"}, v1)
	require.NoError(t, err)
	assert.True(t, changed)

	empty, err := d.ToolVersion(root, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, empty)

	missing, err := d.ToolVersion(root, []string{"gone.sh"})
	require.NoError(t, err)
	assert.NotEqual(t, empty, missing)
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "doc.json")

	require.NoError(t, fs.WriteFileAtomic(path, []byte(`{"a":1}`), domain.FilePerm))
	require.NoError(t, fs.WriteFileAtomic(path, []byte(`{"a":2}`), domain.FilePerm))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":2}`, string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}
