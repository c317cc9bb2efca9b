package orchestrator

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/sift/internal/adapters/cachestore" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/sift/internal/adapters/fs"         //nolint:depguard // Wired in engine wiring
	"go.trai.ch/sift/internal/adapters/lock"       //nolint:depguard // Wired in engine wiring
	"go.trai.ch/sift/internal/adapters/logger"     //nolint:depguard // Wired in engine wiring
	"go.trai.ch/sift/internal/adapters/metrics"    //nolint:depguard // Wired in engine wiring
	"go.trai.ch/sift/internal/adapters/report"     //nolint:depguard // Wired in engine wiring
	"go.trai.ch/sift/internal/adapters/telemetry"  //nolint:depguard // Wired in engine wiring
	"go.trai.ch/sift/internal/core/ports"
)

// NodeID is the unique identifier for the orchestrator Graft node.
const NodeID graft.ID = "engine.orchestrator"

func init() {
	graft.Register(graft.Node[*Orchestrator]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			fs.DetectorNodeID,
			cachestore.NodeID,
			lock.NodeID,
			report.NodeID,
			metrics.NodeID,
			telemetry.TracerNodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*Orchestrator, error) {
			detector, err := graft.Dep[ports.ChangeDetector](ctx)
			if err != nil {
				return nil, err
			}

			store, err := graft.Dep[ports.CacheStore](ctx)
			if err != nil {
				return nil, err
			}

			locks, err := graft.Dep[ports.LockManager](ctx)
			if err != nil {
				return nil, err
			}

			reporter, err := graft.Dep[ports.Reporter](ctx)
			if err != nil {
				return nil, err
			}

			metricsWriter, err := graft.Dep[ports.MetricsWriter](ctx)
			if err != nil {
				return nil, err
			}

			tracer, err := graft.Dep[ports.Tracer](ctx)
			if err != nil {
				return nil, err
			}

			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			return New(detector, store, locks, reporter, metricsWriter, tracer, log), nil
		},
	})
}
