package ports

import "go.trai.ch/sift/internal/core/domain"

// CoverageParser turns a coverage profile written by a test runner into per-file line sets.
//
//go:generate mockgen -source=coverage.go -destination=mocks/mock_coverage.go -package=mocks
type CoverageParser interface {
	// ParseProfile reads the profile at path. File names are made relative to root.
	ParseProfile(root, path string) (map[string]domain.FileCoverage, error)
}
