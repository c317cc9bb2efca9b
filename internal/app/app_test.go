package app_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/sift/internal/adapters/cachestore"
	"go.trai.ch/sift/internal/adapters/detector"
	"go.trai.ch/sift/internal/adapters/fs"
	"go.trai.ch/sift/internal/adapters/gocover"
	"go.trai.ch/sift/internal/adapters/lock"
	"go.trai.ch/sift/internal/adapters/metrics"
	"go.trai.ch/sift/internal/adapters/report"
	"go.trai.ch/sift/internal/adapters/script"
	"go.trai.ch/sift/internal/adapters/telemetry"
	"go.trai.ch/sift/internal/app"
	"go.trai.ch/sift/internal/core/domain"
	"go.trai.ch/sift/internal/core/ports"
	"go.trai.ch/sift/internal/core/ports/mocks"
	"go.trai.ch/sift/internal/engine/coverage"
	"go.trai.ch/sift/internal/engine/orchestrator"
	"go.trai.ch/zerr"
	"go.uber.org/mock/gomock"
)

type fixture struct {
	app      *app.App
	project  *domain.Project
	loader   *mocks.MockConfigLoader
	executor *mocks.MockExecutor
	watcher  *mocks.MockWatcher
	locks    *lock.Manager
	stdout   *bytes.Buffer
	stderr   *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	t.Setenv("NO_COLOR", "1")

	root := t.TempDir()
	writeFile(t, root, "internal/core/graph.go", "package core\n")
	writeFile(t, root, "internal/ui/view.go", "package ui\n")

	dm, err := domain.NewDomainMap(map[string]domain.DomainSpec{
		"core": {Sources: []string{"internal/core"}, Tests: []string{"./internal/core/..."}},
		"ui":   {Sources: []string{"internal/ui"}, Tests: []string{"./internal/ui/..."}},
	}, nil)
	require.NoError(t, err)

	project := &domain.Project{
		Root:    root,
		Workers: 2,
		Exclude: []string{".git"},
		Scan:    domain.ScanConfig{Roots: []string{"."}, Extensions: []string{".go"}},
		Lock:    domain.LockConfig{StaleAfter: time.Hour},
		Watch:   domain.WatchConfig{Debounce: 10 * time.Millisecond},
		Domains: dm,
		Tools: []domain.ScriptTool{{
			Descriptor: domain.ToolDescriptor{
				Name:      "docs",
				Tier:      domain.TierQuick,
				Scope:     []string{domain.GlobalScope},
				Cacheable: true,
			},
			Command: []string{"scripts/docs.sh"},
		}},
	}

	ctrl := gomock.NewController(t)
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Info(gomock.Any()).AnyTimes()
	log.EXPECT().Warn(gomock.Any()).AnyTimes()
	log.EXPECT().Error(gomock.Any()).AnyTimes()

	f := &fixture{
		project:  project,
		loader:   mocks.NewMockConfigLoader(ctrl),
		executor: mocks.NewMockExecutor(ctrl),
		watcher:  mocks.NewMockWatcher(ctrl),
		locks:    lock.NewManager(log),
		stdout:   &bytes.Buffer{},
		stderr:   &bytes.Buffer{},
	}
	f.loader.EXPECT().Load(gomock.Any()).Return(project, nil).AnyTimes()
	f.loader.EXPECT().DiscoverRoot(gomock.Any()).Return(root, nil).AnyTimes()

	store := cachestore.NewStore(log)
	detect := fs.NewDetector(fs.NewWalker())
	reporter := report.NewWriter()
	orch := orchestrator.New(detect, store, f.locks, reporter, metrics.NewTextfile(), telemetry.NewNoOpTracer(), log)
	cov := coverage.NewFactory(detect, store, f.locks, f.executor, gocover.NewParser(), log)

	f.app = app.New(
		f.loader, orch, script.NewFactory(f.executor), cov,
		store, f.locks, reporter, f.watcher, log, detector.Environment{},
	).WithOutput(f.stdout, f.stderr)
	return f
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

// succeed makes every script print a JSON payload and a log line.
func succeed(_ context.Context, _ domain.Command, stdout, stderr io.Writer) error {
	_, _ = io.WriteString(stdout, `{"ok":true}`)
	_, _ = io.WriteString(stderr, "checked 2 files\n")
	return nil
}

func TestApp_Audit(t *testing.T) {
	f := newFixture(t)
	f.executor.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(succeed).Times(1)

	result, err := f.app.Audit(context.Background(), app.AuditOptions{Tier: domain.TierStandard, OutputMode: "linear"})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.True(t, result.Finalized)
	assert.Equal(t, domain.AuditClean, result.Report.Status)
	assert.JSONEq(t, `{"ok":true}`, string(result.Report.Tools["docs"].Payload))
	assert.FileExists(t, domain.ResultsPath(f.project.Root))

	assert.Contains(t, f.stderr.String(), "Tier 1 (quick): 1 tool(s): docs")
	assert.Contains(t, f.stderr.String(), "[docs] ✓ Completed")
	assert.Contains(t, f.stdout.String(), "[docs] checked 2 files")

	// The second run is served from cache.
	result, err = f.app.Audit(context.Background(), app.AuditOptions{Tier: domain.TierQuick})
	require.NoError(t, err)
	assert.True(t, result.Info.Tools[0].Cached)
}

func TestApp_Audit_QuietOutputShowsOnlyFailures(t *testing.T) {
	f := newFixture(t)
	f.project.Strict = true
	f.executor.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ domain.Command, _, stderr io.Writer) error {
			_, _ = io.WriteString(stderr, "segfault\n")
			return zerr.With(zerr.New("command failed"), "exit_code", 139)
		})

	result, err := f.app.Audit(context.Background(), app.AuditOptions{Tier: domain.TierQuick, OutputMode: "quiet"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStrictFailures)
	require.NotNil(t, result)
	assert.True(t, result.Finalized)

	assert.NotContains(t, f.stderr.String(), "Tier 1")
	assert.Contains(t, f.stdout.String(), "[docs] segfault")
	assert.Contains(t, f.stderr.String(), "[docs] ✗ Failed")
}

func TestApp_Audit_ConfigError(t *testing.T) {
	ctrl := gomock.NewController(t)
	loader := mocks.NewMockConfigLoader(ctrl)
	loader.EXPECT().Load(".").Return(nil, errors.Join(domain.ErrConfigInvalid, domain.ErrCycleDetected))

	a := app.New(loader, nil, nil, nil, nil, nil, nil, nil, nil, detector.Environment{})
	_, err := a.Audit(context.Background(), app.AuditOptions{Tier: domain.TierQuick})
	assert.ErrorIs(t, err, domain.ErrConfigInvalid)
	assert.ErrorIs(t, err, domain.ErrCycleDetected)
}

func coverageProfile(_ context.Context, cmd domain.Command, _, _ io.Writer) error {
	var profile, name string
	for _, kv := range cmd.Env {
		if v, ok := strings.CutPrefix(kv, coverage.EnvProfile+"="); ok {
			profile = v
		}
		if v, ok := strings.CutPrefix(kv, coverage.EnvDomain+"="); ok {
			name = v
		}
	}
	file := map[string]string{"core": "internal/core/graph.go", "ui": "internal/ui/view.go"}[name]
	return os.WriteFile(profile, []byte("mode: set\n"+file+":1.1,1.12 1 1\n"), 0o600)
}

func TestApp_Coverage(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.app.Coverage(context.Background(), app.CoverageOptions{})
		assert.ErrorIs(t, err, domain.ErrCoverageDisabled)
	})

	t.Run("standalone run", func(t *testing.T) {
		f := newFixture(t)
		f.project.Coverage = domain.CoverageConfig{
			Enabled: true,
			Tier:    domain.TierFull,
			Workers: 2,
			Command: []string{"go", "test", "-coverprofile={profile}", "{tests}"},
		}
		f.executor.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(coverageProfile).Times(2)

		summary, err := f.app.Coverage(context.Background(), app.CoverageOptions{Serial: true})
		require.NoError(t, err)
		require.NotNil(t, summary)
		assert.Equal(t, 100.0, summary.Percent)
		assert.Len(t, summary.Domains, 2)

		// No audit lock, no aggregate documents.
		assert.NoFileExists(t, domain.ResultsPath(f.project.Root))

		// Cached now; clearing forces both suites again.
		_, err = f.app.Coverage(context.Background(), app.CoverageOptions{})
		require.NoError(t, err)
		f.executor.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(coverageProfile).Times(2)
		_, err = f.app.Coverage(context.Background(), app.CoverageOptions{ClearCache: true})
		require.NoError(t, err)
	})
}

func TestApp_StatusAndClean(t *testing.T) {
	f := newFixture(t)
	f.executor.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(succeed).AnyTimes()

	_, err := f.app.Audit(context.Background(), app.AuditOptions{Tier: domain.TierQuick})
	require.NoError(t, err)

	status, err := f.app.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, f.project.Root, status.Root)
	require.Len(t, status.Locks, 2)
	assert.False(t, status.Locks[0].Held)
	require.Len(t, status.Cache, 1)
	assert.Equal(t, "docs", status.Cache[0].Tool)
	require.Len(t, status.Cache[0].Entries, 1)
	require.NotNil(t, status.LastRun)
	require.NotNil(t, status.Results)
	assert.Equal(t, domain.AuditClean, status.Results.Status)

	require.NoError(t, f.app.Clean(context.Background(), app.CleanOptions{}))
	status, err = f.app.Status(context.Background())
	require.NoError(t, err)
	assert.Empty(t, status.Cache)
	assert.NotNil(t, status.Results, "plain clean keeps the results document")

	// A live lock survives a full clean.
	held, err := f.locks.Acquire(f.project.Root, ports.LockRequest{Kind: domain.LockCoverage, RunID: "other"})
	require.NoError(t, err)
	require.NoError(t, f.app.Clean(context.Background(), app.CleanOptions{All: true}))
	assert.NoFileExists(t, domain.ResultsPath(f.project.Root))
	assert.NoFileExists(t, domain.RunPath(f.project.Root))
	assert.NoFileExists(t, domain.MetricsPath(f.project.Root))
	assert.True(t, f.locks.Owns(held))
}

func TestApp_Watch(t *testing.T) {
	f := newFixture(t)
	f.project.Tools[0].Descriptor.Cacheable = false

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs atomic.Int32
	f.executor.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, cmd domain.Command, stdout, stderr io.Writer) error {
			if runs.Add(1) == 2 {
				cancel()
			}
			return succeed(ctx, cmd, stdout, stderr)
		}).Times(2)

	var events iter.Seq[ports.WatchEvent] = func(yield func(ports.WatchEvent) bool) {
		if !yield(ports.WatchEvent{Path: filepath.Join(f.project.Root, "internal/core/graph.go"), Operation: ports.OpWrite}) {
			return
		}
		<-ctx.Done()
	}
	f.watcher.EXPECT().Start(gomock.Any(), f.project.Root, []string{".git", domain.SiftDirName}).Return(nil)
	f.watcher.EXPECT().Events().Return(events)
	f.watcher.EXPECT().Stop().Return(nil)

	done := make(chan error, 1)
	go func() {
		done <- f.app.Watch(ctx, app.WatchOptions{Tier: domain.TierQuick})
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("watch did not stop")
	}
	assert.Equal(t, int32(2), runs.Load())
}
