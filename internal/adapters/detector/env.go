// Package detector provides environment detection for output mode selection.
package detector

import (
	"os"

	"golang.org/x/term"
)

// OutputMode represents the rendering mode for the application.
type OutputMode int

const (
	// ModeAuto automatically detects the appropriate mode.
	ModeAuto OutputMode = iota
	// ModeLinear streams every tool line and status change.
	ModeLinear
	// ModeQuiet prints only failing tools and their output.
	ModeQuiet
)

func (m OutputMode) String() string {
	switch m {
	case ModeLinear:
		return "linear"
	case ModeQuiet:
		return "quiet"
	default:
		return "auto"
	}
}

// Environment describes where the process writes its output.
type Environment struct {
	TTY bool
	CI  bool
}

// DetectEnvironment inspects stdout and the CI variable.
func DetectEnvironment() Environment {
	ci := os.Getenv("CI")
	return Environment{
		TTY: term.IsTerminal(int(os.Stdout.Fd())), //nolint:gosec // file descriptors fit in int
		CI:  ci == "true" || ci == "1",
	}
}

// Mode returns the recommended output mode. Terminals and CI logs get the
// full stream, other consumers such as pipes and git hooks only failures.
func (e Environment) Mode() OutputMode {
	if e.TTY || e.CI {
		return ModeLinear
	}
	return ModeQuiet
}

// ResolveMode applies the user override flag to auto-detection.
// userFlag should be one of: "auto", "linear", "ci", "quiet", or empty.
func ResolveMode(env Environment, userFlag string) OutputMode {
	switch userFlag {
	case "linear", "ci":
		return ModeLinear
	case "quiet":
		return ModeQuiet
	default:
		return env.Mode()
	}
}
