package ports

import "go.trai.ch/sift/internal/core/domain"

// ConfigLoader defines the interface for loading the project configuration.
//
//go:generate mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load finds sift.yaml walking up from cwd, validates it and returns the project.
	// Every validation problem is reported joined with domain.ErrConfigInvalid.
	Load(cwd string) (*domain.Project, error)

	// DiscoverRoot walks up from cwd and returns the project root named by sift.yaml
	// without validating the rest of the file.
	DiscoverRoot(cwd string) (string, error)
}
