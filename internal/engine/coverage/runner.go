package coverage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"go.trai.ch/sift/internal/core/domain"
	"go.trai.ch/zerr"
)

// Placeholders substituted in the configured test command.
const (
	placeholderProfile = "{profile}"
	placeholderTests   = "{tests}"
	placeholderMarkers = "{markers}"
	placeholderDomain  = "{domain}"
)

// exitTestsFailed is the exit status test runners use for failing tests.
const exitTestsFailed = 1

// Environment passed to test runners.
const (
	EnvDomain  = "SIFT_DOMAIN"
	EnvProfile = "SIFT_COVERPROFILE"
)

// runDomain executes the test suite of one domain and parses its profile.
// A domain without tests has nothing to run and reports an empty fragment.
func (e *Engine) runDomain(ctx context.Context, name string, out io.Writer) *domainRun {
	spec, _ := e.project.Domains.Spec(name)
	if len(spec.Tests) == 0 {
		return &domainRun{fragment: domain.NewCoverageFragment(name, nil), state: domain.CoverageFresh}
	}

	profile, err := os.CreateTemp("", "sift-cover-*.out")
	if err != nil {
		return &domainRun{state: domain.CoverageFailed, err: zerr.Wrap(err, "failed to create profile file")}
	}
	profilePath := profile.Name()
	_ = profile.Close()
	defer func() { _ = os.Remove(profilePath) }()

	sel := domain.TestSelection{
		Domains:    []string{name},
		TestPaths:  spec.Tests,
		MarkerExpr: strings.Join(spec.Markers, " or "),
	}

	cmd := domain.Command{
		Args: expandArgs(e.project.Coverage.Command, name, profilePath, sel),
		Dir:  e.project.Root,
		Env: []string{
			EnvDomain + "=" + name,
			EnvProfile + "=" + profilePath,
		},
		Timeout: e.project.Coverage.Timeout,
		PTY:     e.pty,
	}

	w := &prefixWriter{prefix: "[" + name + "] ", w: out}
	runErr := e.executor.Execute(ctx, cmd, w, w)
	w.flush()

	files, parseErr := e.parser.ParseProfile(e.project.Root, profilePath)

	switch {
	case runErr == nil && parseErr == nil:
		return &domainRun{fragment: domain.NewCoverageFragment(name, files), state: domain.CoverageFresh}
	case runErr == nil:
		return &domainRun{state: domain.CoverageFailed, err: parseErr}
	case domain.ExitCode(runErr) == exitTestsFailed && !errors.Is(runErr, context.DeadlineExceeded):
		// Keep the partial profile so the failed fragment still shows what ran.
		run := &domainRun{state: domain.CoverageFailed, err: zerr.Wrap(domain.ErrToolFailure, "tests failed")}
		if parseErr == nil {
			run.fragment = domain.NewCoverageFragment(name, files)
		} else {
			run.fragment = domain.NewCoverageFragment(name, nil)
		}
		return run
	default:
		return &domainRun{
			state:    domain.CoverageFailed,
			fragment: domain.NewCoverageFragment(name, nil),
			err:      zerr.Wrap(runErr, domain.ErrToolCrash.Error()),
			crashed:  true,
		}
	}
}

// expandArgs substitutes the placeholders of the test command. A {tests}
// argument on its own expands to one argument per test path.
func expandArgs(template []string, name, profile string, sel domain.TestSelection) []string {
	r := strings.NewReplacer(
		placeholderProfile, profile,
		placeholderTests, strings.Join(sel.TestPaths, " "),
		placeholderMarkers, sel.MarkerExpr,
		placeholderDomain, name,
	)

	args := make([]string, 0, len(template)+len(sel.TestPaths))
	for _, arg := range template {
		if arg == placeholderTests {
			args = append(args, sel.TestPaths...)
			continue
		}
		args = append(args, r.Replace(arg))
	}
	return args
}

// prefixWriter tags every line of test output with the domain name.
// Concurrent suites each get their own writer and share the
// destination, so lines are written whole.
type prefixWriter struct {
	prefix string
	w      io.Writer
	buf    []byte
}

func (p *prefixWriter) Write(b []byte) (int, error) {
	p.buf = append(p.buf, b...)
	for {
		i := bytes.IndexByte(p.buf, '\n')
		if i < 0 {
			break
		}
		line := append([]byte(p.prefix), p.buf[:i+1]...)
		p.buf = p.buf[i+1:]
		if _, err := p.w.Write(line); err != nil {
			return len(b), err
		}
	}
	return len(b), nil
}

func (p *prefixWriter) flush() {
	if len(p.buf) == 0 {
		return
	}
	_, _ = p.w.Write(append(append([]byte(p.prefix), p.buf...), '\n'))
	p.buf = nil
}
