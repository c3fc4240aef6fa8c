package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/testmatrix/internal/directive"
	"github.com/roach88/testmatrix/internal/policy"
	"github.com/roach88/testmatrix/internal/runner"
	"github.com/roach88/testmatrix/internal/source"
)

// Config locates test artifacts and controls execution.
type Config struct {
	// Root is the repository root. Source, build and reference paths are
	// relative to it.
	Root string

	// BuildDir holds the test executables, named after the test identifier.
	BuildDir string

	// ReferenceDir holds golden <test>.out files.
	ReferenceDir string

	// Env is applied to every spawned process.
	Env runner.Env

	// Jobs bounds the number of backends of one variant run concurrently.
	// Values below 2 run everything sequentially.
	Jobs int
}

// DefaultConfig returns the conventional repository layout.
func DefaultConfig() Config {
	return Config{
		Root:         ".",
		BuildDir:     "build",
		ReferenceDir: filepath.Join("tests", "output"),
		Env:          runner.DefaultEnv(),
		Jobs:         1,
	}
}

// Observer receives results as they complete, in plan order.
type Observer interface {
	// Begin is called once with the total number of runs.
	Begin(total int)

	// Result is called for each classified run.
	Result(r *Result)
}

// Harness plans and executes test runs.
type Harness struct {
	cfg        Config
	classifier *Classifier
	logger     *slog.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithClock sets the clock used to timestamp skipped runs.
func WithClock(c Clock) Option {
	return func(h *Harness) { h.classifier.Clock = c }
}

// WithLogger sets the harness logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = l
		h.classifier.Logger = l
	}
}

// New creates a harness classifying runs with rules and spawning through r.
func New(cfg Config, rules *policy.Rules, r runner.Runner, opts ...Option) *Harness {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := &Harness{
		cfg:    cfg,
		logger: logger,
		classifier: &Classifier{
			Rules:        rules,
			Runner:       r,
			Clock:        SystemClock{},
			ReferenceDir: filepath.Join(cfg.Root, cfg.ReferenceDir),
			Logger:       logger,
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Plan is the expanded run matrix of one test.
type Plan struct {
	Test     string
	Source   string
	Variants []directive.Variant
	Backends []string

	// Requests are ordered variant-major, backend-minor.
	Requests []Request
}

// Plan resolves the test's source, parses its variants and expands them
// across backends.
func (h *Harness) Plan(test string, backends []string) (*Plan, error) {
	if len(backends) == 0 {
		return nil, &ConfigError{Code: ErrCodeNoBackends, Message: "no backends configured", Test: test}
	}

	src := source.Resolve(test)
	variants, err := directive.Variants(filepath.Join(h.cfg.Root, src))
	if err != nil {
		return nil, fmt.Errorf("variants of %s: %w", test, err)
	}

	for _, v := range variants {
		switch n := v.PlaceholderCount(); {
		case n == 0:
			return nil, &ConfigError{
				Code:    ErrCodeMissingPlaceholder,
				Message: fmt.Sprintf("variant declares no %s argument", directive.Placeholder),
				Test:    test,
				Variant: v.Name,
			}
		case n > 1:
			return nil, &ConfigError{
				Code:    ErrCodeDuplicatePlaceholder,
				Message: fmt.Sprintf("variant declares %d %s arguments", n, directive.Placeholder),
				Test:    test,
				Variant: v.Name,
			}
		}
	}

	plan := &Plan{
		Test:     test,
		Source:   src,
		Variants: variants,
		Backends: backends,
		Requests: make([]Request, 0, len(variants)*len(backends)),
	}
	exe := filepath.Join(h.cfg.Root, h.cfg.BuildDir, test)
	for i, v := range variants {
		for _, b := range backends {
			plan.Requests = append(plan.Requests, Request{
				Test:         test,
				Source:       src,
				Variant:      v,
				VariantIndex: i,
				Backend:      b,
				Process: runner.Request{
					Path: exe,
					Args: v.Substitute(b),
					Env:  h.cfg.Env,
				},
			})
		}
	}

	h.logger.Info("plan built",
		"test", test,
		"source", src,
		"variants", len(variants),
		"backends", len(backends),
		"runs", len(plan.Requests),
	)
	return plan, nil
}

// Run plans test and executes every run.
func (h *Harness) Run(ctx context.Context, test string, backends []string, obs Observer) (*Suite, error) {
	plan, err := h.Plan(test, backends)
	if err != nil {
		return nil, err
	}
	return h.Execute(ctx, plan, obs)
}

// Execute runs a plan. The returned suite holds one result per request
// completed before ctx was cancelled.
func (h *Harness) Execute(ctx context.Context, plan *Plan, obs Observer) (*Suite, error) {
	suite := NewSuite(plan.Test)
	if obs == nil {
		obs = nopObserver{}
	}
	obs.Begin(len(plan.Requests))

	emit := func(r *Result) {
		suite.Add(r)
		obs.Result(r)
	}

	if h.cfg.Jobs < 2 || len(plan.Backends) < 2 {
		for _, req := range plan.Requests {
			if err := ctx.Err(); err != nil {
				return suite, err
			}
			emit(h.classifier.Classify(ctx, req))
		}
		return suite, nil
	}

	// Fan out the backends of one variant at a time, then emit in plan order.
	width := len(plan.Backends)
	for start := 0; start < len(plan.Requests); start += width {
		if err := ctx.Err(); err != nil {
			return suite, err
		}
		group := plan.Requests[start : start+width]
		results := make([]*Result, len(group))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(h.cfg.Jobs)
		for i, req := range group {
			i, req := i, req
			g.Go(func() error {
				results[i] = h.classifier.Classify(gctx, req)
				return nil
			})
		}
		_ = g.Wait()

		for _, r := range results {
			emit(r)
		}
	}
	return suite, nil
}

type nopObserver struct{}

func (nopObserver) Begin(int)      {}
func (nopObserver) Result(*Result) {}
