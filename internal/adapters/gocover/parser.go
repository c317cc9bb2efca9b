// Package gocover reads Go cover profiles into per-file line sets.
package gocover

import (
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/sift/internal/core/domain"
	"go.trai.ch/sift/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/mod/modfile"
	"golang.org/x/tools/cover"
)

var _ ports.CoverageParser = (*Parser)(nil)

// Parser implements ports.CoverageParser for profiles written by go test -coverprofile.
type Parser struct{}

// NewParser creates a new Parser.
func NewParser() *Parser {
	return &Parser{}
}

// ParseProfile reads the profile at path. Every line spanned by a block is
// executable; lines of blocks with a non-zero count are covered.
func (p *Parser) ParseProfile(root, path string) (map[string]domain.FileCoverage, error) {
	profiles, err := cover.ParseProfiles(path)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrProfileParseFailed.Error()), "path", path)
	}

	modulePath := readModulePath(root)
	files := make(map[string]domain.FileCoverage, len(profiles))
	for _, prof := range profiles {
		name := relativeName(root, modulePath, prof.FileName)
		fc := files[name]
		for _, b := range prof.Blocks {
			for line := b.StartLine; line <= b.EndLine; line++ {
				fc.Lines = append(fc.Lines, line)
				if b.Count > 0 {
					fc.Hits = append(fc.Hits, line)
				}
			}
		}
		files[name] = fc
	}
	return files, nil
}

// readModulePath returns the module path declared in root/go.mod, or "".
func readModulePath(root string) string {
	data, err := os.ReadFile(filepath.Join(root, "go.mod")) //nolint:gosec // root is the project root
	if err != nil {
		return ""
	}
	return modfile.ModulePath(data)
}

// relativeName maps a profile file name to a slash path relative to root.
// Profiles name files by import path, or by absolute path outside modules.
func relativeName(root, modulePath, name string) string {
	if modulePath != "" {
		if rest, ok := strings.CutPrefix(name, modulePath+"/"); ok {
			return rest
		}
	}
	if filepath.IsAbs(name) {
		if rel, err := filepath.Rel(root, name); err == nil && !strings.HasPrefix(rel, "..") {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.ToSlash(name)
}
