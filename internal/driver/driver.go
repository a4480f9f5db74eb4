// Package driver runs generation passes over Go packages on behalf of the
// stagegen command: it expands package patterns, runs one pass per package
// with bounded concurrency, and writes or checks the generated files.
package driver

import (
	"context"
	"runtime"
	"sort"
	"time"

	"github.com/teranos/stagegen/config"
	"github.com/teranos/stagegen/errors"
	"github.com/teranos/stagegen/gomodel"
	"github.com/teranos/stagegen/logger"
	"github.com/teranos/stagegen/pass"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/tools/go/packages"
)

// Target is one package a pass runs over.
type Target struct {
	// Path is the import path of the package
	Path string
	// Dir is the package directory
	Dir string
}

// Outcome is the result of the pass over one target.
type Outcome struct {
	Target Target
	Result *pass.Result
	Err    error
}

// OK reports whether the pass over the target completed.
func (o Outcome) OK() bool {
	return o.Err == nil && o.Result.OK()
}

// Driver owns one engine configured from a Config.
type Driver struct {
	cfg    *config.Config
	engine *pass.Engine
	loader *gomodel.Loader
	log    *zap.SugaredLogger
}

// New creates a driver running gen with the settings of cfg.
func New(cfg *config.Config, gen pass.Generator, opts ...pass.Option) (*Driver, error) {
	if cfg == nil {
		return nil, errors.Wrap(errors.ErrInvalidArgument, "nil config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	policy, err := pass.ParseErrorPolicy(cfg.Generate.ErrorPolicy)
	if err != nil {
		return nil, err
	}

	d := &Driver{
		cfg:    cfg,
		loader: gomodel.NewLoader(cfg.Generate.BuildFlags...),
		log:    logger.ComponentLogger("driver"),
	}

	suffix := cfg.Generate.OutputSuffix
	base := []pass.Option{
		pass.WithOrigin("stagegen"),
		pass.WithProvider(d.loader),
		pass.WithErrorPolicy(policy),
		pass.WithPropagateErrors(cfg.Generate.PropagateErrors),
		pass.WithDiagnostics(cfg.Generate.Diagnostics),
		pass.WithNamerFactory(func() pass.Namer { return pass.NewHintNamer(suffix) }),
	}
	if cfg.Runtime.Module != "" {
		base = append(base, pass.WithPreconditions(gomodel.RequireModule(cfg.Runtime.Module, cfg.Runtime.Constraint)))
	}
	d.engine = pass.NewEngine(gen, append(base, opts...)...)
	return d, nil
}

// Engine returns the engine driving the passes.
func (d *Driver) Engine() *pass.Engine { return d.engine }

// Config returns the configuration the driver was built from.
func (d *Driver) Config() *config.Config { return d.cfg }

// Expand resolves package patterns relative to dir into pass targets.
// Packages without Go files are skipped.
func (d *Driver) Expand(ctx context.Context, dir string, patterns ...string) ([]Target, error) {
	if len(patterns) == 0 {
		patterns = []string{"."}
	}
	cfg := &packages.Config{
		Mode:       packages.NeedName | packages.NeedFiles,
		Context:    ctx,
		Dir:        dir,
		Env:        d.loader.Env,
		BuildFlags: d.loader.BuildFlags,
	}
	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list packages")
	}

	var targets []Target
	for _, pkg := range pkgs {
		for _, e := range pkg.Errors {
			if e.Kind == packages.ListError {
				return nil, errors.Newf("package %s: %s", pkg.PkgPath, e.Msg)
			}
		}
		if len(pkg.GoFiles) == 0 {
			continue
		}
		targets = append(targets, Target{Path: pkg.PkgPath, Dir: dirOf(pkg.GoFiles[0])})
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].Path < targets[j].Path })
	return targets, nil
}

// Generate runs one pass per target. Passes run concurrently, each on its
// own lane named after the package. Outcomes are returned in target order.
//
// The returned error is the first propagated pass error, if the
// configuration asks for propagation; every outcome is filled either way.
func (d *Driver) Generate(ctx context.Context, targets []Target) ([]Outcome, error) {
	limit := d.cfg.Generate.Concurrency
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	start := time.Now()
	outcomes := make([]Outcome, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, t := range targets {
		g.Go(func() error {
			res, err := d.engine.Execute(logger.WithPackage(gctx, t.Path), pass.Invocation{
				Lane:     t.Path,
				Dir:      t.Dir,
				Patterns: []string{"."},
			})
			outcomes[i] = Outcome{Target: t, Result: res, Err: err}
			return err
		})
	}
	err := g.Wait()

	d.log.Infow("Generation finished",
		logger.FieldCount, len(targets),
		logger.FieldDurationMS, time.Since(start).Milliseconds())
	return outcomes, err
}

// Close drops the pass contexts the driver's engine left in the registry.
func (d *Driver) Close() {
	d.engine.ResetAll()
}
