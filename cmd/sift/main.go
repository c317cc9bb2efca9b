// Package main is the entry point for the sift audit tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/grindlemire/graft"
	"go.trai.ch/sift/cmd/sift/commands"
	"go.trai.ch/sift/internal/app"
	"go.trai.ch/sift/internal/core/domain"
	_ "go.trai.ch/sift/internal/wiring"
)

// exitInterrupted follows the shell convention for SIGINT.
const exitInterrupted = 130

// ComponentProvider is a function that returns the application components.
type ComponentProvider func(context.Context) (*app.Components, func(), error)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr, func(ctx context.Context) (*app.Components, func(), error) {
		c, _, err := graft.ExecuteFor[*app.Components](ctx)
		return c, func() {}, err
	}))
}

func run(
	ctx context.Context,
	args []string,
	stdout, stderr io.Writer,
	provider ComponentProvider,
	opts ...func(*app.App),
) int {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	components, cleanup, err := provider(ctx)
	if err != nil {
		// No logger yet.
		_, _ = fmt.Fprintln(stderr, "Error: "+err.Error())
		return 1
	}
	defer cleanup()

	for _, opt := range opts {
		opt(components.App)
	}

	var cliOpts []commands.Option
	if f, ok := components.Logger.(commands.LogFormatter); ok {
		cliOpts = append(cliOpts, commands.WithLogFormatter(f))
	}

	cli := commands.New(components.App, cliOpts...)
	cli.SetArgs(args)
	cli.SetOutput(stdout, stderr)

	if err := cli.Execute(ctx); err != nil {
		return exitCode(err, components)
	}
	return 0
}

func exitCode(err error, components *app.Components) int {
	switch {
	case errors.Is(err, domain.ErrStrictFailures),
		errors.Is(err, domain.ErrToolFailure),
		errors.Is(err, domain.ErrToolCrash):
		// The summary already lists the failures.
		return 1
	case errors.Is(err, domain.ErrAuditAborted) && errors.Is(err, context.Canceled):
		components.Logger.Warn("audit interrupted")
		return exitInterrupted
	default:
		components.Logger.Error(err)
		return 1
	}
}
