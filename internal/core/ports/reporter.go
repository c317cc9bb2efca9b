package ports

import "go.trai.ch/sift/internal/core/domain"

// Reporter writes and reads the aggregate documents under .sift.
//
//go:generate mockgen -source=reporter.go -destination=mocks/mock_reporter.go -package=mocks
type Reporter interface {
	// WriteResults atomically replaces results.json.
	WriteResults(root string, report domain.AuditReport) error

	// WriteRun atomically replaces run.json.
	WriteRun(root string, info domain.RunInfo) error

	// ReadResults returns nil, nil when no results document exists.
	ReadResults(root string) (*domain.AuditReport, error)

	// ReadRun returns nil, nil when no run document exists.
	ReadRun(root string) (*domain.RunInfo, error)
}
