package ports

import "go.trai.ch/sift/internal/core/domain"

// MetricsWriter exports run metrics as a Prometheus textfile.
//
//go:generate mockgen -source=metrics.go -destination=mocks/mock_metrics.go -package=mocks
type MetricsWriter interface {
	WriteMetrics(root string, report domain.AuditReport, info domain.RunInfo) error
}
