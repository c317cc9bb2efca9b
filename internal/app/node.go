package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/sift/internal/adapters/cachestore" //nolint:depguard // Wired in app layer
	"go.trai.ch/sift/internal/adapters/config"     //nolint:depguard // Wired in app layer
	"go.trai.ch/sift/internal/adapters/detector"   //nolint:depguard // Wired in app layer
	"go.trai.ch/sift/internal/adapters/lock"       //nolint:depguard // Wired in app layer
	"go.trai.ch/sift/internal/adapters/logger"     //nolint:depguard // Wired in app layer
	"go.trai.ch/sift/internal/adapters/report"     //nolint:depguard // Wired in app layer
	"go.trai.ch/sift/internal/adapters/script"     //nolint:depguard // Wired in app layer
	"go.trai.ch/sift/internal/adapters/watcher"    //nolint:depguard // Wired in app layer
	"go.trai.ch/sift/internal/core/ports"
	"go.trai.ch/sift/internal/engine/coverage"
	"go.trai.ch/sift/internal/engine/orchestrator"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

func init() {
	// App Node
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.NodeID,
			orchestrator.NodeID,
			script.NodeID,
			coverage.NodeID,
			cachestore.NodeID,
			lock.NodeID,
			report.NodeID,
			watcher.NodeID,
			logger.NodeID,
			detector.NodeID,
		},
		Run: runAppNode,
	})

	// Components Node
	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
		},
		Run: func(ctx context.Context) (*Components, error) {
			app, err := graft.Dep[*App](ctx)
			if err != nil {
				return nil, err
			}

			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}

			return NewComponents(app, log), nil
		},
	})
}

func runAppNode(ctx context.Context) (*App, error) {
	loader, err := graft.Dep[ports.ConfigLoader](ctx)
	if err != nil {
		return nil, err
	}

	orch, err := graft.Dep[*orchestrator.Orchestrator](ctx)
	if err != nil {
		return nil, err
	}

	scripts, err := graft.Dep[*script.Factory](ctx)
	if err != nil {
		return nil, err
	}

	cov, err := graft.Dep[*coverage.Factory](ctx)
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

	w, err := graft.Dep[ports.Watcher](ctx)
	if err != nil {
		return nil, err
	}

	log, err := graft.Dep[ports.Logger](ctx)
	if err != nil {
		return nil, err
	}

	env, err := graft.Dep[detector.Environment](ctx)
	if err != nil {
		return nil, err
	}

	return New(loader, orch, scripts, cov, store, locks, reporter, w, log, env), nil
}
