package ports

import (
	"context"
	"iter"
)

// WatchOp represents the type of file system operation.
type WatchOp uint8

const (
	// OpCreate indicates a file or directory was created.
	OpCreate WatchOp = iota
	// OpWrite indicates a file was modified.
	OpWrite
	// OpRemove indicates a file or directory was removed.
	OpRemove
	// OpRename indicates a file or directory was renamed.
	OpRename
)

// WatchEvent is a file system change below the watched root.
type WatchEvent struct {
	// Path is the absolute path that changed.
	Path      string
	Operation WatchOp
}

// Watcher watches a project tree for source changes.
//
//go:generate mockgen -source=watcher.go -destination=mocks/mock_watcher.go -package=mocks
type Watcher interface {
	// Start begins watching root recursively. Directories whose base name
	// matches one of exclude are skipped.
	Start(ctx context.Context, root string, exclude []string) error
	// Stop releases all resources and ends the event sequence.
	Stop() error
	// Events yields events until Stop is called.
	Events() iter.Seq[WatchEvent]
}
