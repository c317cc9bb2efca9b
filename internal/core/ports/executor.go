// Package ports defines the core interfaces for the application.
package ports

import (
	"context"
	"io"

	"go.trai.ch/sift/internal/core/domain"
)

// Executor defines the interface for running subprocesses.
//
//go:generate mockgen -source=executor.go -destination=mocks/mock_executor.go -package=mocks
type Executor interface {
	// Execute runs the command and streams its output to stdout and stderr.
	//
	// A non-zero exit is returned as an error carrying the exit_code metadata
	// and wrapping the underlying *exec.ExitError. A command killed by its
	// timeout returns an error wrapping context.DeadlineExceeded.
	Execute(ctx context.Context, cmd domain.Command, stdout, stderr io.Writer) error
}
