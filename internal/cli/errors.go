package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/leapstack-labs/anops/internal/build"
	"github.com/leapstack-labs/anops/internal/invoke"
	"github.com/leapstack-labs/anops/internal/task"
)

// outputTailLines is how much captured tool output an error report shows.
const outputTailLines = 20

// renderError writes err to w followed by the captured output of the tool
// invocation that caused it, if any.
func renderError(w io.Writer, err error) {
	_, _ = fmt.Fprintf(w, "Error: %v\n", err)

	res := failedResult(err)
	if res == nil {
		return
	}
	tail := res.Tail(outputTailLines)
	if tail == "" {
		return
	}
	_, _ = fmt.Fprintf(w, "\nOutput of %q (exit status %d):\n", res.Command, res.ExitCode)
	for _, line := range strings.Split(tail, "\n") {
		_, _ = fmt.Fprintln(w, "  "+line)
	}
}

// failedResult finds the invocation result carried by err.
func failedResult(err error) *invoke.Result {
	var stepErr *task.StepError
	if errors.As(err, &stepErr) && stepErr.Result != nil {
		return stepErr.Result
	}
	var cgErr *build.CodegenError
	if errors.As(err, &cgErr) && cgErr.Result != nil {
		return cgErr.Result
	}
	var buildErr *build.Error
	if errors.As(err, &buildErr) && buildErr.Result != nil {
		return buildErr.Result
	}
	var invErr *invoke.Error
	if errors.As(err, &invErr) && invErr.Result != nil {
		return invErr.Result
	}
	return nil
}
