package script

import (
	"go.trai.ch/sift/internal/core/domain"
	"go.trai.ch/sift/internal/core/ports"
)

// Factory builds tools for the scripts declared in a project.
type Factory struct {
	executor ports.Executor
}

// NewFactory creates a Factory running commands through executor.
func NewFactory(executor ports.Executor) *Factory {
	return &Factory{executor: executor}
}

// Tools returns one tool per configured script, in configuration order.
func (f *Factory) Tools(project *domain.Project) []ports.Tool {
	out := make([]ports.Tool, 0, len(project.Tools))
	for _, cfg := range project.Tools {
		out = append(out, New(cfg, f.executor))
	}
	return out
}
