// Package shell runs tool and test-runner subprocesses.
package shell

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/creack/pty"
	"go.trai.ch/sift/internal/core/domain"
	"go.trai.ch/sift/internal/core/ports"
	"go.trai.ch/zerr"
)

// waitDelay bounds how long Wait blocks on output pipes after the process was killed.
const waitDelay = 2 * time.Second

var _ ports.Executor = (*Executor)(nil)

// Executor implements ports.Executor using os/exec and pty.
type Executor struct{}

// NewExecutor creates a new Executor.
func NewExecutor() *Executor {
	return &Executor{}
}

// Execute runs cmd to completion. A non-zero exit is returned as an error
// carrying exit_code metadata; a timeout wraps context.DeadlineExceeded.
func (e *Executor) Execute(ctx context.Context, cmd domain.Command, stdout, stderr io.Writer) error {
	if len(cmd.Args) == 0 {
		return domain.ErrEmptyCommand
	}

	runCtx := ctx
	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}

	proc := buildCmd(runCtx, cmd)

	var err error
	if cmd.PTY {
		err = runPTY(proc, stdout)
	} else {
		proc.Stdout = stdout
		proc.Stderr = stderr
		err = proc.Run()
	}
	if err == nil {
		return nil
	}

	switch {
	case ctx.Err() != nil:
		return zerr.Wrap(ctx.Err(), "command canceled")
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		return zerr.With(zerr.Wrap(context.DeadlineExceeded, "command timed out"), "timeout", cmd.Timeout.String())
	}

	exitCode := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
	}
	return zerr.With(zerr.With(zerr.Wrap(err, "command failed"), "exit_code", exitCode), "command", cmd.Args[0])
}

func buildCmd(ctx context.Context, cmd domain.Command) *exec.Cmd {
	name := cmd.Args[0]
	env := resolveEnvironment(os.Environ(), cmd.Env)

	// Resolve the executable path
	executable := name
	switch {
	case filepath.IsAbs(name):
	case strings.ContainsRune(name, filepath.Separator):
		if cmd.Dir != "" {
			executable = filepath.Join(cmd.Dir, name)
		}
	default:
		if lp, err := lookPath(name, env); err == nil {
			executable = lp
		}
	}

	proc := exec.CommandContext(ctx, executable, cmd.Args[1:]...) //nolint:gosec // commands come from sift.yaml
	proc.Args[0] = name
	proc.Dir = cmd.Dir
	proc.Env = env
	proc.WaitDelay = waitDelay
	return proc
}

func runPTY(proc *exec.Cmd, stdout io.Writer) error {
	ptmx, err := pty.Start(proc)
	if err != nil {
		return zerr.Wrap(err, "failed to start pty")
	}

	ioDone := make(chan struct{})
	go func() {
		defer close(ioDone)
		// The pty merges stdout and stderr. Reads fail with EIO once the child exits.
		_, _ = io.Copy(stdout, ptmx)
	}()

	err = proc.Wait()
	_ = ptmx.Close()
	<-ioDone
	return err
}

// allowListedEnvVars are the system environment variables a subprocess
// inherits. Everything else must be passed explicitly through Command.Env.
var allowListedEnvVars = []string{
	"HOME",
	"TERM",
	"USER",
	"PATH",
	"TMPDIR",
	"LANG",
	"GOPATH",
	"GOROOT",
	"GOCACHE",
	"GOMODCACHE",
	"GOFLAGS",
	"GOTOOLCHAIN",
}

// resolveEnvironment filters the system environment and applies extra on top.
// The result is sorted so subprocesses see a stable environment.
func resolveEnvironment(sysEnv, extra []string) []string {
	envMap := make(map[string]string)
	for _, entry := range sysEnv {
		k, v, ok := strings.Cut(entry, "=")
		if ok && slices.Contains(allowListedEnvVars, k) {
			envMap[k] = v
		}
	}
	for _, entry := range extra {
		if k, v, ok := strings.Cut(entry, "="); ok {
			envMap[k] = v
		}
	}

	result := make([]string, 0, len(envMap))
	for k, v := range envMap {
		result = append(result, k+"="+v)
	}
	slices.Sort(result)
	return result
}

// lookPath searches for an executable in the directories named by the PATH
// entry of env rather than the PATH of the current process.
func lookPath(file string, env []string) (string, error) {
	var path string
	for _, e := range env {
		if after, ok := strings.CutPrefix(e, "PATH="); ok {
			path = after
			break
		}
	}

	if path == "" {
		return "", exec.ErrNotFound
	}

	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			// Unix shell semantics: path element "" means "."
			dir = "."
		}
		candidate := filepath.Join(dir, file)
		if err := findExecutable(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", exec.ErrNotFound
}

func findExecutable(file string) error {
	d, err := os.Stat(file)
	if err != nil {
		return err
	}
	if m := d.Mode(); !m.IsDir() && m&0o111 != 0 {
		return nil
	}
	return os.ErrPermission
}
