// Package executor runs a harness on one input and classifies the result,
// and defines the Executor collaborator interface the kernel consumes.
package executor

import (
	"context"
	"fmt"

	"github.com/coverfuzz/kernel/internal/observer"
)

// Tag is ExitKind's discriminant.
type Tag int

const (
	// Ok means the run completed without incident.
	Ok Tag = iota
	// Crash means the harness aborted (panic, signal, fatal error).
	Crash
	// Timeout means the run exceeded its watchdog budget.
	Timeout
	// Diff means a differential executor observed disagreement between
	// two sub-executions; First/Second hold each side's description.
	Diff
)

func (t Tag) String() string {
	switch t {
	case Ok:
		return "ok"
	case Crash:
		return "crash"
	case Timeout:
		return "timeout"
	case Diff:
		return "diff"
	default:
		return "unknown"
	}
}

// ExitKind is the tagged variant an Executor returns for one run.
type ExitKind struct {
	Tag    Tag
	First  string // only meaningful when Tag == Diff
	Second string // only meaningful when Tag == Diff
}

// OkKind constructs an Ok ExitKind.
func OkKind() ExitKind { return ExitKind{Tag: Ok} }

// CrashKind constructs a Crash ExitKind.
func CrashKind() ExitKind { return ExitKind{Tag: Crash} }

// TimeoutKind constructs a Timeout ExitKind.
func TimeoutKind() ExitKind { return ExitKind{Tag: Timeout} }

// DiffKind constructs a Diff ExitKind carrying both sides' descriptions.
func DiffKind(first, second string) ExitKind {
	return ExitKind{Tag: Diff, First: first, Second: second}
}

// IsCrash reports whether the run crashed.
func (e ExitKind) IsCrash() bool { return e.Tag == Crash }

// IsTimeout reports whether the run timed out.
func (e ExitKind) IsTimeout() bool { return e.Tag == Timeout }

// IsDiff reports whether the run produced a differential mismatch.
func (e ExitKind) IsDiff() bool { return e.Tag == Diff }

func (e ExitKind) String() string {
	if e.Tag == Diff {
		return fmt.Sprintf("diff(%q, %q)", e.First, e.Second)
	}
	return e.Tag.String()
}

// Executor runs a harness on one input, coordinating with the registered
// observer Tuple, and returns the run's ExitKind.
type Executor[Input any] interface {
	Run(ctx context.Context, observers *observer.Tuple, input Input) (ExitKind, error)
}
