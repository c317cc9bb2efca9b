// Package script runs configured external analysis tools.
package script

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.trai.ch/sift/internal/core/domain"
	"go.trai.ch/sift/internal/core/ports"
	"go.trai.ch/zerr"
)

// Environment variables passed to every tool invocation.
const (
	EnvRoot   = "SIFT_ROOT"
	EnvDomain = "SIFT_DOMAIN"
	EnvTier   = "SIFT_TIER"
	EnvDeps   = "SIFT_DEPS"
)

// exitFindings is the exit status a tool uses to report findings.
const exitFindings = 1

// stderrTail bounds how much stderr is kept to describe a failure.
const stderrTail = 4096

var _ ports.Tool = (*Tool)(nil)

// Tool adapts a configured command to ports.Tool.
type Tool struct {
	descriptor domain.ToolDescriptor
	command    []string
	executor   ports.Executor
}

// New creates a Tool for a configured script.
func New(cfg domain.ScriptTool, executor ports.Executor) *Tool {
	return &Tool{
		descriptor: cfg.Descriptor.Clone(),
		command:    append([]string(nil), cfg.Command...),
		executor:   executor,
	}
}

// Descriptor returns a copy of the tool's descriptor.
func (t *Tool) Descriptor() domain.ToolDescriptor {
	return t.descriptor.Clone()
}

// Command returns the configured argv prefix.
func (t *Tool) Command() []string {
	return append([]string(nil), t.command...)
}

// Run executes the command once. Exit 0 is success, exit 1 reports
// findings, anything else is a crash.
func (t *Tool) Run(ctx context.Context, in domain.ToolInput) domain.ToolOutcome {
	depsFile, err := writeDependencies(in.Dependencies)
	if err != nil {
		return crashed(zerr.With(err, "tool", t.descriptor.Name))
	}
	defer func() { _ = os.Remove(depsFile) }()

	args := append(append([]string(nil), t.command...), in.SourcePaths...)
	cmd := domain.Command{
		Args: args,
		Dir:  in.Root,
		Env: []string{
			EnvRoot + "=" + in.Root,
			EnvDomain + "=" + in.Domain,
			EnvTier + "=" + strconv.Itoa(int(in.Tier)),
			EnvDeps + "=" + depsFile,
		},
		Timeout: t.descriptor.Timeout,
	}

	var stdout bytes.Buffer
	tail := &tailWriter{limit: stderrTail}
	var stderr io.Writer = tail
	if in.Output != nil {
		stderr = io.MultiWriter(tail, in.Output)
	}

	runErr := t.executor.Execute(ctx, cmd, &stdout, stderr)
	payload := toPayload(stdout.Bytes())

	switch {
	case runErr == nil:
		return domain.ToolOutcome{Status: domain.ToolSuccess, Payload: payload}
	case errors.Is(runErr, context.DeadlineExceeded):
		err := zerr.With(zerr.Wrap(runErr, domain.ErrToolCrash.Error()), "tool", t.descriptor.Name)
		return domain.ToolOutcome{Status: domain.ToolCrashed, Payload: payload, Err: err}
	case domain.ExitCode(runErr) == exitFindings:
		detail := tail.lastLine()
		if detail == "" {
			detail = fmt.Sprintf("exit status %d", exitFindings)
		}
		err := zerr.With(zerr.Wrap(domain.ErrToolFailure, detail), "tool", t.descriptor.Name)
		return domain.ToolOutcome{Status: domain.ToolFailed, Payload: payload, Err: err}
	default:
		err := zerr.With(zerr.Wrap(runErr, domain.ErrToolCrash.Error()), "tool", t.descriptor.Name)
		if detail := tail.lastLine(); detail != "" {
			err = zerr.With(err, "stderr", detail)
		}
		return domain.ToolOutcome{Status: domain.ToolCrashed, Payload: payload, Err: err}
	}
}

func crashed(err error) domain.ToolOutcome {
	return domain.ToolOutcome{Status: domain.ToolCrashed, Payload: json.RawMessage("null"), Err: err}
}

// writeDependencies stores the dependency results in a temp file whose path
// is handed to the tool.
func writeDependencies(deps map[string]domain.DependencyResult) (string, error) {
	if deps == nil {
		deps = map[string]domain.DependencyResult{}
	}
	data, err := json.Marshal(deps)
	if err != nil {
		return "", zerr.Wrap(err, "failed to encode dependency results")
	}

	f, err := os.CreateTemp("", "sift-deps-*.json")
	if err != nil {
		return "", zerr.Wrap(err, "failed to create dependency file")
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", zerr.Wrap(err, "failed to write dependency file")
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", zerr.Wrap(err, "failed to write dependency file")
	}
	return f.Name(), nil
}

// toPayload keeps JSON output as is and preserves anything else as a JSON string.
func toPayload(stdout []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(stdout)
	if len(trimmed) == 0 {
		return json.RawMessage("null")
	}
	if json.Valid(trimmed) {
		var buf bytes.Buffer
		if err := json.Compact(&buf, trimmed); err == nil {
			return buf.Bytes()
		}
	}
	data, _ := json.Marshal(string(stdout))
	return data
}

// tailWriter keeps the last limit bytes written to it.
type tailWriter struct {
	limit int
	buf   []byte
}

func (w *tailWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	if over := len(w.buf) - w.limit; over > 0 {
		w.buf = w.buf[over:]
	}
	return len(p), nil
}

func (w *tailWriter) lastLine() string {
	lines := strings.Split(strings.TrimSpace(strings.ReplaceAll(string(w.buf), "\r", "")), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}
