// Package linear provides a synchronous, line-buffered renderer for terminals and CI logs.
package linear

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/muesli/termenv"
	"go.trai.ch/sift/internal/core/domain"
	"go.trai.ch/sift/internal/core/ports"
	"go.trai.ch/sift/internal/ui/output"
	"go.trai.ch/sift/internal/ui/style"
)

var _ ports.Renderer = (*Renderer)(nil)

// Renderer implements ports.Renderer with linear, chronological output
// prefixed by tool name. Tool output goes to stdout, status lines to stderr.
type Renderer struct {
	stdout io.Writer
	stderr io.Writer
	output *termenv.Output
	quiet  bool

	mu      sync.Mutex
	tools   map[string]*toolState // spanID -> tool state
	buffers map[string]*bytes.Buffer
}

type toolState struct {
	name      string
	startTime time.Time
	// held keeps complete lines of quiet mode until the tool's status is known.
	held [][]byte
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithQuiet only prints tools that fail, together with their output.
func WithQuiet() Option {
	return func(r *Renderer) {
		r.quiet = true
	}
}

// NewRenderer creates a new Renderer. Nil writers mean the process streams.
func NewRenderer(stdout, stderr io.Writer, opts ...Option) *Renderer {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}

	r := &Renderer{
		stdout:  stdout,
		stderr:  stderr,
		output:  output.NewWithProfile(stderr, output.ColorProfileANSI),
		tools:   make(map[string]*toolState),
		buffers: make(map[string]*bytes.Buffer),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start is a no-op for the linear renderer.
func (r *Renderer) Start(_ context.Context) error {
	return nil
}

// Stop flushes all remaining buffers.
func (r *Renderer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for spanID := range r.buffers {
		r.flushBufferLocked(spanID)
	}
	return nil
}

// Wait is a no-op for the linear renderer.
func (r *Renderer) Wait() error {
	return nil
}

// OnPlanEmit prints the tools of the tier about to run.
func (r *Renderer) OnPlanEmit(tier domain.Tier, tools []string, _ map[string][]string) {
	if r.quiet {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	arrow := r.output.String(style.Arrow).Foreground(r.output.Color(string(style.Accent))).String()
	_, _ = fmt.Fprintf(r.stderr, "%s Tier %d (%s): %d tool(s): %s\n",
		arrow, tier, tier, len(tools), strings.Join(tools, ", "))
}

// OnToolStart prints a tool start message.
func (r *Renderer) OnToolStart(spanID, _ /* parentID */, name string, startTime time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tools[spanID] = &toolState{
		name:      name,
		startTime: startTime,
	}
	r.buffers[spanID] = new(bytes.Buffer)

	if r.quiet {
		return
	}
	_, _ = fmt.Fprintf(r.stderr, "%s Starting...\n", r.prefix(name))
}

// OnToolLog buffers output and prints complete lines with the tool prefix.
func (r *Renderer) OnToolLog(spanID string, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tools[spanID]; !ok {
		return
	}

	buf := r.buffers[spanID]
	buf.Write(data)

	for {
		line, err := buf.ReadBytes('\n')
		if err != nil {
			// Incomplete line, keep it for the next write.
			if len(line) > 0 {
				rest := new(bytes.Buffer)
				rest.Write(line)
				r.buffers[spanID] = rest
			}
			break
		}
		r.emitLineLocked(spanID, line)
	}
}

// OnToolComplete flushes the remaining buffer and prints the completion status.
func (r *Renderer) OnToolComplete(spanID string, endTime time.Time, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tool, ok := r.tools[spanID]
	if !ok {
		return
	}

	r.flushBufferLocked(spanID)
	duration := endTime.Sub(tool.startTime).Round(time.Millisecond)

	if err != nil {
		for _, line := range tool.held {
			r.printLineLocked(tool.name, line)
		}
		symbol := r.output.String(style.Cross).Foreground(r.output.Color(string(style.Red))).String()
		_, _ = fmt.Fprintf(r.stderr, "%s %s Failed after %v: %v\n",
			r.prefix(tool.name), symbol, duration, err)
	} else if !r.quiet {
		symbol := r.output.String(style.Check).Foreground(r.output.Color(string(style.Green))).String()
		_, _ = fmt.Fprintf(r.stderr, "%s %s Completed in %v\n",
			r.prefix(tool.name), symbol, duration)
	}

	delete(r.tools, spanID)
	delete(r.buffers, spanID)
}

func (r *Renderer) prefix(name string) string {
	return r.output.String(fmt.Sprintf("[%s]", name)).Faint().String()
}

// flushBufferLocked emits any partial line left for a tool.
// Must be called with r.mu held.
func (r *Renderer) flushBufferLocked(spanID string) {
	buf := r.buffers[spanID]
	if buf == nil || buf.Len() == 0 {
		return
	}
	r.emitLineLocked(spanID, bytes.Clone(buf.Bytes()))
	buf.Reset()
}

// emitLineLocked prints a line, or holds it in quiet mode.
// Must be called with r.mu held.
func (r *Renderer) emitLineLocked(spanID string, line []byte) {
	tool := r.tools[spanID]
	if r.quiet {
		tool.held = append(tool.held, line)
		return
	}
	r.printLineLocked(tool.name, line)
}

// printLineLocked prints a line with the tool name prefix.
// Must be called with r.mu held.
func (r *Renderer) printLineLocked(name string, line []byte) {
	line = bytes.TrimSuffix(line, []byte("\n"))
	line = bytes.TrimSuffix(line, []byte("\r"))

	if len(line) == 0 {
		return
	}
	_, _ = fmt.Fprintf(r.stdout, "[%s] %s\n", name, string(line))
}
