// Package fs provides file system adapters: walking, fingerprinting,
// tool-version hashing and atomic writes.
package fs

import (
	"errors"
	"io/fs"
	"iter"
	"path/filepath"

	"go.trai.ch/sift/internal/core/domain"
	"go.trai.ch/zerr"
)

// alwaysSkipped are directories never descended into.
var alwaysSkipped = []string{".git", ".jj", domain.SiftDirName}

// File is a regular file found by the Walker.
type File struct {
	Path string
	Info fs.FileInfo
}

// Walker walks directory trees honoring an exclusion list.
type Walker struct {
	walkDir func(root string, fn fs.WalkDirFunc) error
}

// NewWalker creates a new Walker.
func NewWalker() *Walker {
	return &Walker{walkDir: filepath.WalkDir}
}

// WalkFiles yields every regular file below root. Entries whose base name
// matches one of the exclude globs are skipped; for directories the whole
// subtree is skipped. Entries that vanish while walking are skipped. Any
// other walk error is yielded once with ErrFingerprintFailed and ends the
// sequence.
func (w *Walker) WalkFiles(root string, exclude []string) iter.Seq2[File, error] {
	return func(yield func(File, error) bool) {
		stopped := false
		err := w.walkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if path != root && errors.Is(err, fs.ErrNotExist) {
					return nil
				}
				return err
			}
			if path != root && excluded(d.Name(), exclude) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() || !d.Type().IsRegular() {
				return nil
			}

			info, err := d.Info()
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			if err != nil {
				return err
			}
			if !yield(File{Path: path, Info: info}, nil) {
				stopped = true
				return filepath.SkipAll
			}
			return nil
		})
		if err != nil && !stopped {
			yield(File{}, zerr.With(zerr.Wrap(domain.ErrFingerprintFailed, err.Error()), "root", root))
		}
	}
}

func excluded(name string, exclude []string) bool {
	for _, s := range alwaysSkipped {
		if name == s {
			return true
		}
	}
	for _, pattern := range exclude {
		if matched, _ := filepath.Match(pattern, name); matched {
			return true
		}
	}
	return false
}
