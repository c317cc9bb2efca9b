package ports

import (
	"context"
	"time"

	"go.trai.ch/sift/internal/core/domain"
)

// Renderer is the abstraction for progress output.
// It decouples span collection from presentation.
//
//go:generate mockgen -source=renderer.go -destination=mocks/mock_renderer.go -package=mocks
type Renderer interface {
	// Start initializes the renderer.
	Start(ctx context.Context) error

	// Stop flushes buffered output and stops accepting events.
	Stop() error

	// Wait blocks until the renderer has fully terminated.
	Wait() error

	// OnPlanEmit is called when a tier is about to run.
	// tools lists the tier's tools in dependency order, deps maps a tool to its prerequisites.
	OnPlanEmit(tier domain.Tier, tools []string, deps map[string][]string)

	// OnToolStart is called when a span begins.
	// parentID is empty for root spans.
	OnToolStart(spanID, parentID, name string, startTime time.Time)

	// OnToolLog is called when a tool emits output. data may contain partial lines.
	OnToolLog(spanID string, data []byte)

	// OnToolComplete is called when a span ends. err is nil on success.
	OnToolComplete(spanID string, endTime time.Time, err error)
}
