package domain

import (
	"errors"
	"time"

	"go.trai.ch/zerr"
)

// Command is a subprocess invocation prepared by a tool or the coverage engine.
type Command struct {
	Args []string
	// Dir is the working directory. Empty means the current directory.
	Dir string
	// Env holds extra KEY=VALUE pairs added on top of the filtered host environment.
	Env     []string
	Timeout time.Duration
	// PTY runs the command attached to a pseudo-terminal so it keeps colored output.
	PTY bool
}

// ChangeSet is the result of change detection over all domains.
type ChangeSet struct {
	// Current holds the fingerprint of every declared domain.
	Current map[string]Fingerprint
	// Changed lists the changed domains, sorted. It may contain UnmappedDomain.
	Changed []string
}

// IsChanged reports whether the domain is in the changed set.
func (c ChangeSet) IsChanged(name string) bool {
	for _, d := range c.Changed {
		if d == name {
			return true
		}
	}
	return false
}

// ExitCode reads the exit_code metadata an executor attaches to a failed
// command. It returns -1 when err carries none.
func ExitCode(err error) int {
	var z *zerr.Error
	for errors.As(err, &z) {
		if code, ok := z.Metadata()["exit_code"].(int); ok {
			return code
		}
		err = z.Unwrap()
	}
	return -1
}
