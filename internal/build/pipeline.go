package build

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/leapstack-labs/anops/internal/check"
	"github.com/leapstack-labs/anops/internal/config"
	"github.com/leapstack-labs/anops/internal/invoke"
	"github.com/leapstack-labs/anops/internal/project"
)

// Checker gates image builds.
type Checker interface {
	Run(ctx context.Context, proj *config.Project) (*check.Outcome, error)
}

// Options override the manifest's [build] section for one run.
type Options struct {
	// Registry, when non-empty, replaces build.registry.
	Registry string
	// Tag, when non-empty, replaces build.tag.
	Tag string
	// NoPush skips the push stage even when a registry is configured.
	NoPush bool
}

// Config configures a Pipeline.
type Config struct {
	Invoker invoke.Invoker
	Logger  *slog.Logger
	// Checker defaults to a check.Pipeline sharing Invoker and Logger.
	Checker Checker
	Options Options
	// Timeout bounds each invocation when the manifest sets none.
	Timeout time.Duration
	// Stdout and Stderr receive live tool output when set.
	Stdout io.Writer
	Stderr io.Writer
}

// Pipeline runs codegen, check, image and push in order.
type Pipeline struct {
	cfg Config
}

// NewPipeline creates a Pipeline.
func NewPipeline(cfg Config) *Pipeline {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Invoker == nil {
		cfg.Invoker = invoke.NewRunner(cfg.Logger)
	}
	if cfg.Checker == nil {
		cfg.Checker = check.NewPipeline(check.Config{
			Invoker: cfg.Invoker,
			Logger:  cfg.Logger,
			Timeout: cfg.Timeout,
			Stdout:  cfg.Stdout,
			Stderr:  cfg.Stderr,
		})
	}
	return &Pipeline{cfg: cfg}
}

// run carries the state of one build.
type run struct {
	p    *Pipeline
	proj *config.Project
	log  *slog.Logger
	out  *Outcome
}

// Run builds proj. The Outcome is always returned and lists every stage
// step that was attempted; the error names the stage that stopped the build.
func (p *Pipeline) Run(ctx context.Context, proj *config.Project) (*Outcome, error) {
	out := &Outcome{RunID: uuid.NewString(), Images: []string{}}
	r := &run{
		p:    p,
		proj: proj,
		log:  p.cfg.Logger.With("run_id", out.RunID, "project", proj.Name()),
		out:  out,
	}
	start := time.Now()
	defer func() { out.Duration = time.Since(start) }()

	r.log.Debug("build started")
	steps := []func(context.Context) error{r.codegen, r.check, r.images, r.push}
	for _, step := range steps {
		if err := step(ctx); err != nil {
			return out, err
		}
	}

	out.Success = true
	r.log.Debug("build finished", "images", len(out.Images))
	return out, nil
}

func (r *run) opts(dir string, timeout time.Duration) invoke.Options {
	if timeout == 0 {
		timeout = r.p.cfg.Timeout
	}
	return invoke.Options{Dir: dir, Timeout: timeout, Stdout: r.p.cfg.Stdout, Stderr: r.p.cfg.Stderr}
}

func (r *run) record(sr StageResult, start time.Time) {
	sr.Duration = time.Since(start)
	r.out.Stages = append(r.out.Stages, sr)
}

func (r *run) codegen(ctx context.Context) error {
	cg := r.proj.Codegen()
	log := r.log.With("stage", StageCodegen)

	contract := filepath.Join(r.proj.Root(), filepath.FromSlash(cg.Contract))
	if info, err := os.Stat(contract); err != nil || !info.Mode().IsRegular() {
		r.out.Stages = append(r.out.Stages, StageResult{Stage: StageCodegen})
		return &CodegenError{Target: cg.Contract, Message: "contract file not found", Err: err}
	}

	compiler, err := invoke.Tokenize(cg.Compiler)
	if err != nil {
		return &CodegenError{Target: cg.Contract, Message: "invalid compiler", Err: err}
	}
	includeDir := path.Dir(cg.Contract)

	for _, target := range cg.Targets {
		argv := append(append([]string(nil), compiler...),
			"-I"+filepath.FromSlash(includeDir),
			"--python_out="+filepath.FromSlash(target),
			"--pyi_out="+filepath.FromSlash(target),
			"--grpc_python_out="+filepath.FromSlash(target),
			path.Base(cg.Contract),
		)
		log.Debug("generating bindings", "service", target, "tool", argv[0])

		start := time.Now()
		res, err := r.p.cfg.Invoker.Exec(ctx, argv, r.opts(r.proj.Root(), cg.Timeout))
		sr := StageResult{Stage: StageCodegen, Service: target, Result: res}
		if err != nil {
			r.record(sr, start)
			return &CodegenError{Target: target, Message: "compiler could not run", Result: resultOf(res, err), Err: err}
		}
		if !res.Succeeded() {
			r.record(sr, start)
			log.Warn("code generation failed", "service", target, "exit_code", res.ExitCode)
			return &CodegenError{Target: target, Message: "compiler exited with status " + strconv.Itoa(res.ExitCode), Result: res}
		}
		sr.Success = true
		r.record(sr, start)
	}
	return nil
}

func (r *run) check(ctx context.Context) error {
	r.log.Debug("running check gate", "stage", StageCheck)
	start := time.Now()
	outcome, err := r.p.cfg.Checker.Run(ctx, r.proj)
	r.out.Check = outcome
	r.record(StageResult{Stage: StageCheck, Success: err == nil}, start)
	if err != nil {
		r.log.Warn("check gate failed, no images built", "stage", StageCheck)
		return &Error{Stage: StageCheck, Err: err}
	}
	return nil
}

func (r *run) images(ctx context.Context) error {
	bc := r.proj.Build()
	services, err := project.Services(r.proj.Root())
	if err != nil {
		return &Error{Stage: StageImage, Err: err}
	}
	if len(services) == 0 {
		r.log.Warn("no services to build", "stage", StageImage)
	}

	for _, svc := range services {
		ref := r.imageRef(svc)
		argv := []string{bc.Tool, "build", "-f", project.BuildDescriptor, "-t", ref, "."}
		r.log.Debug("building image", "stage", StageImage, "service", svc, "image", ref)

		start := time.Now()
		res, err := r.p.cfg.Invoker.Exec(ctx, argv, r.opts(filepath.Join(r.proj.Root(), svc), bc.Timeout))
		sr := StageResult{Stage: StageImage, Service: svc, Image: ref, Result: res}
		if err != nil {
			r.record(sr, start)
			return &Error{Stage: StageImage, Service: svc, Result: resultOf(res, err), Err: err}
		}
		if !res.Succeeded() {
			r.record(sr, start)
			r.log.Warn("image build failed", "stage", StageImage, "service", svc, "exit_code", res.ExitCode)
			return &Error{Stage: StageImage, Service: svc, Result: res}
		}
		sr.Success = true
		r.record(sr, start)
		r.out.Images = append(r.out.Images, ref)
	}
	return nil
}

func (r *run) push(ctx context.Context) error {
	if r.registry() == "" || r.p.cfg.Options.NoPush {
		r.log.Debug("skipping push", "stage", StagePush, "no_push", r.p.cfg.Options.NoPush)
		return nil
	}
	bc := r.proj.Build()

	var built []StageResult
	for _, sr := range r.out.Stages {
		if sr.Stage == StageImage && sr.Success {
			built = append(built, sr)
		}
	}
	for _, img := range built {
		svc, ref := img.Service, img.Image
		r.log.Debug("pushing image", "stage", StagePush, "service", svc, "image", ref)

		start := time.Now()
		res, err := r.p.cfg.Invoker.Exec(ctx, []string{bc.Tool, "push", ref}, r.opts(r.proj.Root(), bc.Timeout))
		sr := StageResult{Stage: StagePush, Service: svc, Image: ref, Result: res}
		if err != nil {
			r.record(sr, start)
			return &Error{Stage: StagePush, Service: svc, Result: resultOf(res, err), Err: err}
		}
		if !res.Succeeded() {
			r.record(sr, start)
			return &Error{Stage: StagePush, Service: svc, Result: res}
		}
		sr.Success = true
		r.record(sr, start)
	}
	return nil
}

func (r *run) registry() string {
	if r.p.cfg.Options.Registry != "" {
		return r.p.cfg.Options.Registry
	}
	return r.proj.Build().Registry
}

// imageRef returns [registry/]project-service:tag. Image names must be lower case.
func (r *run) imageRef(service string) string {
	tag := r.p.cfg.Options.Tag
	if tag == "" {
		tag = r.proj.Build().Tag
	}
	name := strings.ToLower(r.proj.Name() + "-" + service)
	if reg := strings.TrimSuffix(r.registry(), "/"); reg != "" {
		name = reg + "/" + name
	}
	return name + ":" + tag
}

// resultOf returns whatever output was captured before an invocation error.
func resultOf(res *invoke.Result, err error) *invoke.Result {
	if res != nil {
		return res
	}
	var invErr *invoke.Error
	if errors.As(err, &invErr) {
		return invErr.Result
	}
	return nil
}
