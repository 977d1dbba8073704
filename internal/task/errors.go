package task

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/anops/internal/invoke"
)

// UnknownTaskError reports a task name that the manifest does not define.
type UnknownTaskError struct {
	Name      string
	Available []string
}

func (e *UnknownTaskError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("unknown task %q: no tasks defined", e.Name)
	}
	return fmt.Sprintf("unknown task %q (available: %s)", e.Name, strings.Join(e.Available, ", "))
}

// StepError reports the step that stopped a task. Index is 1-based. Result is
// set when the step ran and exited non-zero; Err is set when it could not run.
type StepError struct {
	Task    string
	Index   int
	Command string
	Result  *invoke.Result
	Err     error
}

func (e *StepError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("task %q step %d (%s): %v", e.Task, e.Index, e.Command, e.Err)
	}
	return fmt.Sprintf("task %q step %d (%s) exited with status %d", e.Task, e.Index, e.Command, e.Result.ExitCode)
}

func (e *StepError) Unwrap() error { return e.Err }
