package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/simon/managectl/internal/status"
)

var (
	ErrExecNotFound      = errors.New("executable not found")
	ErrSpawn             = errors.New("failed to start process")
	ErrTimeout           = errors.New("timed out")
	ErrCancelled         = errors.New("cancelled")
	ErrStreamRead        = errors.New("reading command output failed")
	ErrInvalidDescriptor = errors.New("command has no argv")
	ErrNonZeroExit       = errors.New("non-zero exit code")
)

// ExitError is the error of a session whose process exited non-zero.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

func (e *ExitError) Is(target error) bool {
	return target == ErrNonZeroExit
}

// Outcome is the terminal result kind of a session.
type Outcome int

const (
	Success Outcome = iota
	NonZeroExit
	ExecNotFound
	SpawnError
	Timeout
	Cancelled
	StreamReadError
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case NonZeroExit:
		return "non-zero exit"
	case ExecNotFound:
		return "not found"
	case SpawnError:
		return "spawn error"
	case Timeout:
		return "timeout"
	case Cancelled:
		return "cancelled"
	case StreamReadError:
		return "stream read error"
	default:
		return "unknown"
	}
}

// Exit codes reported for outcomes that have no child exit code.
const (
	CodeStreamRead = 74 // EX_IOERR
	CodeTimeout    = 124
	CodeSpawn      = 126
	CodeNotFound   = 127
	CodeCancelled  = 130
)

// Result is the terminal outcome of one session.
type Result struct {
	Session    string
	Outcome    Outcome
	ExitCode   int // child exit code; meaningful for Success and NonZeroExit
	Err        error
	Lines      int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Code maps the outcome to a process exit code.
func (r Result) Code() int {
	switch r.Outcome {
	case Success:
		return 0
	case NonZeroExit:
		return r.ExitCode
	case ExecNotFound:
		return CodeNotFound
	case Timeout:
		return CodeTimeout
	case Cancelled:
		return CodeCancelled
	case StreamReadError:
		return CodeStreamRead
	default:
		return CodeSpawn
	}
}

// Status is the visual state the outcome collapses to.
func (r Result) Status() status.Status {
	if r.Outcome == Success {
		return status.Success
	}
	return status.Failed
}

func (r Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Summary is a one-line human description of the outcome.
func (r Result) Summary() string {
	switch r.Outcome {
	case Success:
		return "Command completed successfully"
	case NonZeroExit:
		return fmt.Sprintf("Command exited with code %d", r.ExitCode)
	case Timeout:
		return "Command timed out"
	case Cancelled:
		return "Command cancelled"
	default:
		if r.Err != nil {
			return r.Err.Error()
		}
		return r.Outcome.String()
	}
}

func launchOutcome(err error) Outcome {
	if errors.Is(err, ErrExecNotFound) {
		return ExecNotFound
	}
	return SpawnError
}
