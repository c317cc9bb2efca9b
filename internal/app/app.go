// Package app implements the application layer for sift.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"

	"go.trai.ch/sift/internal/adapters/detector"
	"go.trai.ch/sift/internal/adapters/linear"
	"go.trai.ch/sift/internal/adapters/script"
	"go.trai.ch/sift/internal/adapters/telemetry"
	"go.trai.ch/sift/internal/adapters/watcher"
	"go.trai.ch/sift/internal/core/domain"
	"go.trai.ch/sift/internal/core/ports"
	"go.trai.ch/sift/internal/engine/coverage"
	"go.trai.ch/sift/internal/engine/orchestrator"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	orchestrator *orchestrator.Orchestrator
	scripts      *script.Factory
	coverage     *coverage.Factory
	store        ports.CacheStore
	locks        ports.LockManager
	reporter     ports.Reporter
	watcher      ports.Watcher
	logger       ports.Logger
	env          detector.Environment

	workDir string
	stdout  io.Writer
	stderr  io.Writer
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	orch *orchestrator.Orchestrator,
	scripts *script.Factory,
	cov *coverage.Factory,
	store ports.CacheStore,
	locks ports.LockManager,
	reporter ports.Reporter,
	w ports.Watcher,
	log ports.Logger,
	env detector.Environment,
) *App {
	return &App{
		configLoader: loader,
		orchestrator: orch,
		scripts:      scripts,
		coverage:     cov,
		store:        store,
		locks:        locks,
		reporter:     reporter,
		watcher:      w,
		logger:       log,
		env:          env,
		workDir:      ".",
		stdout:       os.Stdout,
		stderr:       os.Stderr,
	}
}

// WithOutput redirects progress output. This is primarily used for testing.
func (a *App) WithOutput(stdout, stderr io.Writer) *App {
	a.stdout = stdout
	a.stderr = stderr
	return a
}

// WithWorkDir sets the directory sift.yaml is searched from.
func (a *App) WithWorkDir(dir string) *App {
	a.workDir = dir
	return a
}

// AuditOptions configuration for the Audit method.
type AuditOptions struct {
	Tier       domain.Tier
	Workers    int
	Strict     bool
	ClearCache bool
	OutputMode string
}

// Audit runs tiers 1 through opts.Tier. The returned result is non-nil
// whenever the run started, including strict-mode and aborted runs.
func (a *App) Audit(ctx context.Context, opts AuditOptions) (*orchestrator.Result, error) {
	project, err := a.configLoader.Load(a.workDir)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load configuration")
	}
	return a.audit(ctx, project, opts)
}

func (a *App) audit(ctx context.Context, project *domain.Project, opts AuditOptions) (*orchestrator.Result, error) {
	var result *orchestrator.Result
	err := a.render(ctx, opts.OutputMode, func(ctx context.Context, tracer ports.Tracer, pty bool) error {
		tools := a.scripts.Tools(project)
		if project.Coverage.Enabled {
			tools = append(tools, a.coverage.New(project, coverage.WithPTY(pty)))
		}

		var err error
		result, err = a.orchestrator.WithTracer(tracer).Run(ctx, project, tools, orchestrator.Options{
			Tier:       opts.Tier,
			Workers:    opts.Workers,
			Strict:     opts.Strict || project.Strict,
			ClearCache: opts.ClearCache,
		})
		return err
	})
	return result, err
}

// CoverageOptions configuration for the Coverage method.
type CoverageOptions struct {
	Serial     bool
	ClearCache bool
	OutputMode string
}

// Coverage runs the coverage engine on its own. It takes no audit lock and
// writes no aggregate documents. A summary is returned even when some
// domains failed.
func (a *App) Coverage(ctx context.Context, opts CoverageOptions) (*domain.CoverageSummary, error) {
	project, err := a.configLoader.Load(a.workDir)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load configuration")
	}
	if !project.Coverage.Enabled {
		return nil, domain.ErrCoverageDisabled
	}

	var outcome domain.ToolOutcome
	err = a.render(ctx, opts.OutputMode, func(ctx context.Context, tracer ports.Tracer, pty bool) error {
		engineOpts := []coverage.Option{coverage.WithPTY(pty)}
		if opts.Serial {
			engineOpts = append(engineOpts, coverage.WithSerial())
		}
		if opts.ClearCache {
			engineOpts = append(engineOpts, coverage.WithClearCache())
		}

		ctx, span := tracer.Start(ctx, domain.CoverageTool)
		defer span.End()
		outcome = a.coverage.New(project, engineOpts...).Collect(ctx, span)
		span.RecordError(outcome.Err)
		return nil
	})
	if err != nil {
		return nil, err
	}

	switch outcome.Status {
	case domain.ToolSuccess:
		return outcome.Coverage, nil
	case domain.ToolCrashed:
		return outcome.Coverage, errors.Join(domain.ErrToolCrash, outcome.Err)
	default:
		return outcome.Coverage, errors.Join(domain.ErrToolFailure, outcome.Err)
	}
}

// render runs fn while a renderer displays its spans.
func (a *App) render(ctx context.Context, outputMode string, fn func(context.Context, ports.Tracer, bool) error) error {
	mode := detector.ResolveMode(a.env, outputMode)
	var opts []linear.Option
	if mode == detector.ModeQuiet {
		opts = append(opts, linear.WithQuiet())
	}
	renderer := linear.NewRenderer(a.stdout, a.stderr, opts...)
	pty := mode == detector.ModeLinear && a.env.TTY

	tp := telemetry.Setup(telemetry.NewBridge(renderer))
	defer func() {
		_ = tp.Shutdown(context.WithoutCancel(ctx))
	}()
	tracer := telemetry.NewOTelTracerWithProvider(tp, telemetry.InstrumentationName).WithRenderer(renderer)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := renderer.Start(ctx); err != nil {
			return err
		}
		return renderer.Wait()
	})

	g.Go(func() error {
		defer func() {
			_ = renderer.Stop()
		}()
		return fn(ctx, tracer, pty)
	})

	return g.Wait()
}

// LockStatus describes one lock file.
type LockStatus struct {
	Kind  domain.LockKind
	Held  bool
	Stale bool
	Info  *domain.LockInfo
}

// CacheStatus lists the cache entries of one tool.
type CacheStatus struct {
	Tool    string
	Entries []domain.CacheEntry
}

// StatusReport is what the status command prints.
type StatusReport struct {
	Root    string
	Locks   []LockStatus
	Cache   []CacheStatus
	LastRun *domain.RunInfo
	Results *domain.AuditReport
}

// Status inspects the runtime directory without modifying it.
func (a *App) Status(_ context.Context) (*StatusReport, error) {
	root, err := a.configLoader.DiscoverRoot(a.workDir)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load configuration")
	}

	report := &StatusReport{Root: root}
	for _, kind := range []domain.LockKind{domain.LockAudit, domain.LockCoverage} {
		held, info, err := a.locks.IsHeld(root, kind)
		if err != nil {
			return nil, err
		}
		report.Locks = append(report.Locks, LockStatus{Kind: kind, Held: held, Stale: !held && info != nil, Info: info})
	}

	tools, err := a.store.Tools(root)
	if err != nil {
		return nil, err
	}
	for _, tool := range tools {
		entries, err := a.store.Entries(root, tool)
		if err != nil {
			return nil, err
		}
		report.Cache = append(report.Cache, CacheStatus{Tool: tool, Entries: entries})
	}

	if report.LastRun, err = a.reporter.ReadRun(root); err != nil {
		return nil, err
	}
	if report.Results, err = a.reporter.ReadResults(root); err != nil {
		return nil, err
	}
	return report, nil
}

// CleanOptions configuration for the Clean method.
type CleanOptions struct {
	// All also removes the aggregate documents and stale locks. Live locks are kept.
	All bool
}

// Clean removes cached results and, with All, the rest of the runtime directory.
func (a *App) Clean(_ context.Context, options CleanOptions) error {
	root, err := a.configLoader.DiscoverRoot(a.workDir)
	if err != nil {
		return zerr.Wrap(err, "failed to load configuration")
	}

	a.logger.Info("removing cache...")
	if err := a.store.Clear(root); err != nil {
		return err
	}
	a.logger.Info("removed cache")

	if !options.All {
		return nil
	}

	var errs error
	remove := func(path, name string) {
		if err := os.Remove(path); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				errs = errors.Join(errs, zerr.Wrap(err, fmt.Sprintf("failed to remove %s", name)))
			}
			return
		}
		a.logger.Info(fmt.Sprintf("removed %s", name))
	}

	remove(domain.ResultsPath(root), domain.ResultsFileName)
	remove(domain.RunPath(root), domain.RunFileName)
	remove(domain.MetricsPath(root), domain.MetricsFileName)

	for _, kind := range []domain.LockKind{domain.LockAudit, domain.LockCoverage} {
		held, _, err := a.locks.IsHeld(root, kind)
		if err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		if held {
			a.logger.Warn(fmt.Sprintf("keeping %s lock, it is held by a running process", kind))
			continue
		}
		remove(filepath.Join(domain.LocksPath(root), string(kind)+".lock"), string(kind)+" lock")
	}

	return errs
}

// WatchOptions configuration for the Watch method.
type WatchOptions struct {
	Tier       domain.Tier
	Workers    int
	OutputMode string
}

// Watch runs an audit, then re-runs it whenever source files change until
// ctx is done. Failing audits are logged and do not end the loop.
func (a *App) Watch(ctx context.Context, opts WatchOptions) error {
	project, err := a.configLoader.Load(a.workDir)
	if err != nil {
		return zerr.Wrap(err, "failed to load configuration")
	}

	exclude := project.Exclude
	if !slices.Contains(exclude, domain.SiftDirName) {
		exclude = append(slices.Clone(exclude), domain.SiftDirName)
	}
	if err := a.watcher.Start(ctx, project.Root, exclude); err != nil {
		return zerr.Wrap(err, "failed to start watcher")
	}
	defer func() {
		_ = a.watcher.Stop()
	}()

	auditOpts := AuditOptions{Tier: opts.Tier, Workers: opts.Workers, OutputMode: opts.OutputMode}
	run := func(ctx context.Context) {
		start := time.Now()
		result, err := a.Audit(ctx, auditOpts)
		switch {
		case ctx.Err() != nil:
			return
		case err != nil:
			a.logger.Error(err)
		case result != nil:
			a.logger.Info(fmt.Sprintf("audit %s in %s, watching for changes", result.Report.Status, time.Since(start).Round(time.Millisecond)))
		}
	}

	run(ctx)

	loop := watcher.NewLoop(project.Watch.Debounce, project.Watch.MinInterval)
	err = loop.Run(ctx, a.watcher.Events(), func(ctx context.Context, paths []string) {
		a.logger.Info(fmt.Sprintf("%d file(s) changed, re-running audit", len(paths)))
		run(ctx)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
