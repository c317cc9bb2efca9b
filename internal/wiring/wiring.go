// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/sift/internal/adapters/cachestore"
	_ "go.trai.ch/sift/internal/adapters/config"
	_ "go.trai.ch/sift/internal/adapters/detector"
	_ "go.trai.ch/sift/internal/adapters/fs"
	_ "go.trai.ch/sift/internal/adapters/gocover"
	_ "go.trai.ch/sift/internal/adapters/lock"
	_ "go.trai.ch/sift/internal/adapters/logger"
	_ "go.trai.ch/sift/internal/adapters/metrics"
	_ "go.trai.ch/sift/internal/adapters/report"
	_ "go.trai.ch/sift/internal/adapters/script"
	_ "go.trai.ch/sift/internal/adapters/shell"
	_ "go.trai.ch/sift/internal/adapters/telemetry"
	_ "go.trai.ch/sift/internal/adapters/watcher"
	// Register app and engine nodes.
	_ "go.trai.ch/sift/internal/app"
	_ "go.trai.ch/sift/internal/engine/coverage"
	_ "go.trai.ch/sift/internal/engine/orchestrator"
)
