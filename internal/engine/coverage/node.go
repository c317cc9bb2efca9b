package coverage

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/sift/internal/adapters/cachestore" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/sift/internal/adapters/fs"         //nolint:depguard // Wired in engine wiring
	"go.trai.ch/sift/internal/adapters/gocover"    //nolint:depguard // Wired in engine wiring
	"go.trai.ch/sift/internal/adapters/lock"       //nolint:depguard // Wired in engine wiring
	"go.trai.ch/sift/internal/adapters/logger"     //nolint:depguard // Wired in engine wiring
	"go.trai.ch/sift/internal/adapters/shell"      //nolint:depguard // Wired in engine wiring
	"go.trai.ch/sift/internal/core/ports"
)

// NodeID is the unique identifier for the coverage engine factory Graft node.
const NodeID graft.ID = "engine.coverage"

func init() {
	graft.Register(graft.Node[*Factory]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			fs.DetectorNodeID,
			cachestore.NodeID,
			lock.NodeID,
			shell.NodeID,
			gocover.NodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*Factory, error) {
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

			executor, err := graft.Dep[ports.Executor](ctx)
			if err != nil {
				return nil, err
			}

			parser, err := graft.Dep[ports.CoverageParser](ctx)
			if err != nil {
				return nil, err
			}

			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			return NewFactory(detector, store, locks, executor, parser, log), nil
		},
	})
}
