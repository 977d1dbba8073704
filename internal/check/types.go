// Package check validates a project's structure and runs its configured
// linters and testers, collecting every problem instead of stopping at the
// first one.
package check

import (
	"fmt"
	"strings"
	"time"

	"github.com/leapstack-labs/anops/internal/invoke"
)

// Stage identifies the part of the check that produced a violation.
type Stage string

// Stages in reporting order.
const (
	StageStructure Stage = "structure"
	StageLint      Stage = "lint"
	StageTest      Stage = "test"
)

func (s Stage) rank() int {
	switch s {
	case StageStructure:
		return 0
	case StageLint:
		return 1
	case StageTest:
		return 2
	default:
		return 3
	}
}

// Violation is one problem found by the check.
type Violation struct {
	Stage  Stage  `json:"stage"`
	Name   string `json:"name"`
	Detail string `json:"detail"`
}

func (v Violation) String() string {
	return fmt.Sprintf("[%s] %s: %s", v.Stage, v.Name, v.Detail)
}

// ToolRun records one linter or tester invocation.
type ToolRun struct {
	Stage  Stage          `json:"stage"`
	Line   string         `json:"command"`
	Result *invoke.Result `json:"result,omitempty"`
}

// Outcome is the result of a check run.
type Outcome struct {
	RunID      string        `json:"run_id"`
	Success    bool          `json:"success"`
	Violations []Violation   `json:"violations"`
	Tools      []ToolRun     `json:"tools"`
	Duration   time.Duration `json:"duration"`
}

// Count returns the number of violations in stage.
func (o *Outcome) Count(stage Stage) int {
	n := 0
	for _, v := range o.Violations {
		if v.Stage == stage {
			n++
		}
	}
	return n
}

// FailedError is returned when a check finds at least one violation.
type FailedError struct {
	Violations []Violation
}

func (e *FailedError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "check failed with %d violation(s)", len(e.Violations))
	for _, v := range e.Violations {
		b.WriteString("\n  ")
		b.WriteString(strings.ReplaceAll(v.String(), "\n", "\n    "))
	}
	return b.String()
}
