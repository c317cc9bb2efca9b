package domain

import (
	"encoding/binary"
	"slices"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// FileFingerprint is the cheap identity of one file used for change detection.
type FileFingerprint struct {
	Path       string `json:"path"`
	MtimeNanos int64  `json:"mtime_ns"`
	SizeBytes  int64  `json:"size"`
}

// Fingerprint is a path-sorted set of file fingerprints.
type Fingerprint []FileFingerprint

// NewFingerprint returns the files as a sorted set. When a path occurs
// twice the last entry wins.
func NewFingerprint(files []FileFingerprint) Fingerprint {
	byPath := make(map[string]FileFingerprint, len(files))
	for _, f := range files {
		byPath[f.Path] = f
	}
	out := make(Fingerprint, 0, len(byPath))
	for _, f := range byPath {
		out = append(out, f)
	}
	slices.SortFunc(out, func(a, b FileFingerprint) int {
		return strings.Compare(a.Path, b.Path)
	})
	return out
}

// Equal reports whether both sets contain exactly the same (path, mtime, size) triples.
func (f Fingerprint) Equal(other Fingerprint) bool {
	return slices.Equal(f, other)
}

// Digest returns a stable hash of the set.
func (f Fingerprint) Digest() string {
	h := xxhash.New()
	var buf [8]byte
	for _, ff := range f {
		_, _ = h.WriteString(ff.Path)
		_, _ = h.Write([]byte{0})
		binary.LittleEndian.PutUint64(buf[:], uint64(ff.MtimeNanos)) //nolint:gosec // bit pattern only
		_, _ = h.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], uint64(ff.SizeBytes)) //nolint:gosec // bit pattern only
		_, _ = h.Write(buf[:])
	}
	return strconv.FormatUint(h.Sum64(), 16)
}

// Diff lists the paths that were added, removed or modified going from f to next.
func (f Fingerprint) Diff(next Fingerprint) (added, removed, modified []string) {
	prev := make(map[string]FileFingerprint, len(f))
	for _, ff := range f {
		prev[ff.Path] = ff
	}
	for _, nf := range next {
		old, ok := prev[nf.Path]
		switch {
		case !ok:
			added = append(added, nf.Path)
		case old != nf:
			modified = append(modified, nf.Path)
		}
		delete(prev, nf.Path)
	}
	for p := range prev {
		removed = append(removed, p)
	}
	slices.Sort(removed)
	return added, removed, modified
}
