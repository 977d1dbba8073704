// Package build turns a checked project into container images: it generates
// the interface bindings, gates on the check pipeline, builds one image per
// service, and optionally pushes them to a registry. Stages run in order and
// the first failure stops the build.
package build

import (
	"fmt"
	"time"

	"github.com/leapstack-labs/anops/internal/check"
	"github.com/leapstack-labs/anops/internal/invoke"
)

// Stage names a build stage.
type Stage string

// Build stages in execution order.
const (
	StageCodegen Stage = "codegen"
	StageCheck   Stage = "check"
	StageImage   Stage = "image"
	StagePush    Stage = "push"
)

// StageResult records one unit of work within a stage. Service is the codegen
// target for codegen and the image's service for image and push.
type StageResult struct {
	Stage    Stage          `json:"stage"`
	Service  string         `json:"service,omitempty"`
	Image    string         `json:"image,omitempty"`
	Success  bool           `json:"success"`
	Duration time.Duration  `json:"duration"`
	Result   *invoke.Result `json:"result,omitempty"`
}

// Outcome is the result of a build run.
type Outcome struct {
	RunID    string         `json:"run_id"`
	Success  bool           `json:"success"`
	Stages   []StageResult  `json:"stages"`
	Images   []string       `json:"images"`
	Check    *check.Outcome `json:"check,omitempty"`
	Duration time.Duration  `json:"duration"`
}

// CodegenError reports a failed interface code generation for Target.
type CodegenError struct {
	Target  string
	Message string
	Result  *invoke.Result
	Err     error
}

func (e *CodegenError) Error() string {
	msg := fmt.Sprintf("code generation for %s failed: %s", e.Target, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CodegenError) Unwrap() error { return e.Err }

// Error reports a failed check, image, or push stage.
type Error struct {
	Stage   Stage
	Service string
	Result  *invoke.Result
	Err     error
}

func (e *Error) Error() string {
	var msg string
	if e.Service != "" {
		msg = fmt.Sprintf("%s stage failed for %s", e.Stage, e.Service)
	} else {
		msg = fmt.Sprintf("%s stage failed", e.Stage)
	}
	switch {
	case e.Err != nil:
		return msg + ": " + e.Err.Error()
	case e.Result != nil:
		return fmt.Sprintf("%s: %q exited with status %d", msg, e.Result.Command, e.Result.ExitCode)
	default:
		return msg
	}
}

func (e *Error) Unwrap() error { return e.Err }
