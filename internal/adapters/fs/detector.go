package fs

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	iofs "io/fs"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/sift/internal/core/domain"
	"go.trai.ch/sift/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

var _ ports.ChangeDetector = (*Detector)(nil)

// Detector implements ports.ChangeDetector with (path, mtime, size) fingerprints.
type Detector struct {
	walker  *Walker
	workers int
}

// NewDetector creates a Detector fingerprinting up to NumCPU domains at once.
func NewDetector(walker *Walker) *Detector {
	return &Detector{walker: walker, workers: runtime.NumCPU()}
}

// Fingerprint lists the files below paths. paths are relative to root and
// may name files or directories; missing paths contribute nothing.
func (d *Detector) Fingerprint(ctx context.Context, root string, paths, exclude []string) (domain.Fingerprint, error) {
	var files []domain.FileFingerprint
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		abs := filepath.Join(root, p)
		info, err := os.Stat(abs)
		if errors.Is(err, iofs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, zerr.With(zerr.Wrap(domain.ErrFingerprintFailed, err.Error()), "path", p)
		}

		if !info.IsDir() {
			files = append(files, fileFingerprint(root, abs, info))
			continue
		}
		for f, err := range d.walker.WalkFiles(abs, exclude) {
			if err != nil {
				return nil, err
			}
			files = append(files, fileFingerprint(root, f.Path, f.Info))
		}
	}
	return domain.NewFingerprint(files), nil
}

// ChangedDomains fingerprints every declared domain concurrently and compares
// each set with previous.
func (d *Detector) ChangedDomains(
	ctx context.Context,
	project *domain.Project,
	previous map[string]domain.Fingerprint,
) (domain.ChangeSet, error) {
	names := project.Domains.Names()
	current := make(map[string]domain.Fingerprint, len(names))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)
	for _, name := range names {
		spec, _ := project.Domains.Spec(name)
		g.Go(func() error {
			fp, err := d.Fingerprint(gctx, project.Root, spec.Paths(), project.Exclude)
			if err != nil {
				return zerr.With(err, "domain", name)
			}
			mu.Lock()
			current[name] = fp
			mu.Unlock()
			return nil
		})
	}

	var unmapped bool
	g.Go(func() error {
		found, err := d.hasUnmappedSources(gctx, project)
		unmapped = found
		return err
	})

	if err := g.Wait(); err != nil {
		return domain.ChangeSet{}, err
	}

	changes := domain.ChangeSet{Current: current}
	for _, name := range names {
		prev, ok := previous[name]
		if !ok || !prev.Equal(current[name]) {
			changes.Changed = append(changes.Changed, name)
		}
	}
	if unmapped {
		changes.Changed = append(changes.Changed, domain.UnmappedDomain)
	}
	slices.Sort(changes.Changed)
	return changes, nil
}

// hasUnmappedSources reports whether a scanned source file belongs to no domain.
func (d *Detector) hasUnmappedSources(ctx context.Context, project *domain.Project) (bool, error) {
	for _, scanRoot := range project.Scan.Roots {
		abs := filepath.Join(project.Root, scanRoot)
		for f, err := range d.walker.WalkFiles(abs, project.Exclude) {
			if err != nil {
				return false, err
			}
			if err := ctx.Err(); err != nil {
				return false, err
			}
			if !slices.Contains(project.Scan.Extensions, filepath.Ext(f.Path)) {
				continue
			}
			rel, err := filepath.Rel(project.Root, f.Path)
			if err != nil {
				continue
			}
			if !project.Domains.IsMapped(rel) {
				return true, nil
			}
		}
	}
	return false, nil
}

// ToolVersion hashes the relative path and content of every file below
// sources. A missing source is hashed as absent so deleting it changes the version.
func (d *Detector) ToolVersion(root string, sources []string) (string, error) {
	h := xxhash.New()
	sorted := slices.Clone(sources)
	slices.Sort(sorted)

	for _, src := range sorted {
		abs := filepath.Join(root, src)
		info, err := os.Stat(abs)
		if errors.Is(err, iofs.ErrNotExist) {
			_, _ = h.WriteString("missing:" + src)
			_, _ = h.Write([]byte{0})
			continue
		}
		if err != nil {
			return "", zerr.With(zerr.Wrap(err, domain.ErrToolVersionFailed.Error()), "path", src)
		}

		if !info.IsDir() {
			if err := hashFile(h, root, abs); err != nil {
				return "", err
			}
			continue
		}
		var files []string
		for f, err := range d.walker.WalkFiles(abs, nil) {
			if err != nil {
				return "", zerr.With(zerr.Wrap(domain.ErrToolVersionFailed, err.Error()), "path", src)
			}
			files = append(files, f.Path)
		}
		slices.Sort(files)
		for _, f := range files {
			if err := hashFile(h, root, f); err != nil {
				return "", err
			}
		}
	}
	return strconv.FormatUint(h.Sum64(), 16), nil
}

// ToolCodeChanged reports whether the current tool version differs from previous.
// An empty previous version counts as changed.
func (d *Detector) ToolCodeChanged(root string, sources []string, previous string) (bool, error) {
	current, err := d.ToolVersion(root, sources)
	if err != nil {
		return false, err
	}
	return current != previous, nil
}

func hashFile(h *xxhash.Digest, root, path string) error {
	f, err := os.Open(path) //nolint:gosec // path is below the project root
	if err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrToolVersionFailed.Error()), "path", path)
	}
	defer f.Close() //nolint:errcheck // read only

	content := xxhash.New()
	if _, err := io.Copy(content, f); err != nil {
		return zerr.With(zerr.Wrap(err, domain.ErrToolVersionFailed.Error()), "path", path)
	}

	_, _ = h.WriteString(relSlash(root, path))
	_, _ = h.Write([]byte{0})
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], content.Sum64())
	_, _ = h.Write(buf[:])
	return nil
}

func fileFingerprint(root, path string, info iofs.FileInfo) domain.FileFingerprint {
	return domain.FileFingerprint{
		Path:       relSlash(root, path),
		MtimeNanos: info.ModTime().UnixNano(),
		SizeBytes:  info.Size(),
	}
}

func relSlash(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	return filepath.ToSlash(rel)
}
