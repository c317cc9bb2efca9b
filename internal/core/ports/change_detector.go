package ports

import (
	"context"

	"go.trai.ch/sift/internal/core/domain"
)

// ChangeDetector fingerprints file sets and decides which domains changed.
//
//go:generate mockgen -source=change_detector.go -destination=mocks/mock_change_detector.go -package=mocks
type ChangeDetector interface {
	// Fingerprint lists the files below paths, honoring the exclusion list.
	// Missing paths contribute nothing.
	Fingerprint(ctx context.Context, root string, paths, exclude []string) (domain.Fingerprint, error)

	// ChangedDomains fingerprints every domain of the project and compares the
	// result with previous. Domains without a previous set are changed. The
	// unmapped domain is reported whenever unmapped source files exist.
	ChangedDomains(ctx context.Context, project *domain.Project, previous map[string]domain.Fingerprint) (domain.ChangeSet, error)

	// ToolVersion hashes the content of a tool's implementation files.
	ToolVersion(root string, sources []string) (string, error)

	// ToolCodeChanged compares the current tool version with previous.
	ToolCodeChanged(root string, sources []string, previous string) (bool, error)
}
