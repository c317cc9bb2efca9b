package ports

import (
	"context"

	"go.trai.ch/sift/internal/core/domain"
)

// Tool is one analysis tool run by the orchestrator.
//
//go:generate mockgen -source=tool.go -destination=mocks/mock_tool.go -package=mocks
type Tool interface {
	// Descriptor returns the static description of the tool.
	Descriptor() domain.ToolDescriptor

	// Run executes the tool once for in.Domain. Failures are reported through
	// the outcome status, never by panicking.
	Run(ctx context.Context, in domain.ToolInput) domain.ToolOutcome
}
