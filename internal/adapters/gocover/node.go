package gocover

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/sift/internal/core/ports"
)

// NodeID is the unique identifier for the coverage profile parser Graft node.
const NodeID graft.ID = "adapter.coverage_parser"

func init() {
	graft.Register(graft.Node[ports.CoverageParser]{
		ID:        NodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.CoverageParser, error) {
			return NewParser(), nil
		},
	})
}
