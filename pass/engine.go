// Package pass implements the staged generation engine.
//
// A Generator supplies, for every pass, a FilterContainer: an ordered list
// of FilterGroups, each an ordered list of Filters. The Engine walks the
// groups in order. Within a group it first runs the filters that do not
// need to see generated code (immediate), folds their output into a new
// snapshot version, then runs the filters that do (deferred) against that
// version, and folds again before the next group starts.
//
// Passes are addressed by Handle. Each engine may serve many concurrent
// passes as long as every pass runs on its own lane; the Registry makes the
// live Context of a lane available to cooperating code that is not part of
// the engine's call chain.
package pass

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/teranos/stagegen/errors"
	"github.com/teranos/stagegen/logger"
	"github.com/teranos/stagegen/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Generator is implemented by code generators plugged into the engine.
type Generator interface {
	// Name identifies the generator in logs, metrics and diagnostics
	Name() string

	// Filters returns the container for this pass. A nil or empty container
	// ends the pass successfully with no output.
	Filters(pc *Context) *FilterContainer

	// Generate produces source for one candidate. Nil or empty output means
	// there is nothing to generate for it. Extra artifacts can be emitted
	// with pc.AddSource.
	Generate(pc *Context, c Candidate) ([]byte, error)
}

// ReceiverFactory is implemented by generators that collect declarations
// before a pass. A pass whose receiver stays empty generates nothing.
type ReceiverFactory interface {
	NewReceiver() Receiver
}

// GroupHook is implemented by generators that observe group processing.
// stage.Phase tells which step is about to run (or just finished, for
// PhaseAfterGroup). The group accepts mutation only in phases where
// Phase.AllowsMutation is true.
type GroupHook interface {
	OnGroup(pc *Context, stage Stage) error
}

// PassHook is implemented by generators that need a final callback once all
// groups have been processed.
type PassHook interface {
	AfterPass(pc *Context) error
}

// ContextInitializer is implemented by generators that attach extension
// data to a fresh pass context.
type ContextInitializer interface {
	InitContext(pc *Context) error
}

// Invocation is one host-driven generation request.
type Invocation struct {
	// Lane is the execution lane; a fresh one is allocated when empty
	Lane string
	// Dir is the directory the host was invoked in
	Dir string
	// Patterns selects the program to load (e.g. package patterns)
	Patterns []string
	// Data becomes the initial extension data of the pass context
	Data any
}

// Provider builds the initial snapshot for an invocation.
type Provider interface {
	Load(ctx context.Context, inv Invocation) (model.Snapshot, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, inv Invocation) (model.Snapshot, error)

func (f ProviderFunc) Load(ctx context.Context, inv Invocation) (model.Snapshot, error) {
	return f(ctx, inv)
}

// Precondition validates an invocation before any pass state exists.
type Precondition func(inv Invocation) error

// ErrorPolicy decides what a failing candidate does to the rest of the pass.
type ErrorPolicy int

const (
	// AbortPass ends the pass at the first failing candidate
	AbortPass ErrorPolicy = iota
	// ContinueOnError reports the failing candidate and moves on
	ContinueOnError
)

func (p ErrorPolicy) String() string {
	switch p {
	case AbortPass:
		return "abort"
	case ContinueOnError:
		return "continue"
	default:
		return "unknown"
	}
}

// ParseErrorPolicy parses "abort" or "continue".
func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "abort":
		return AbortPass, nil
	case "continue":
		return ContinueOnError, nil
	default:
		return AbortPass, errors.Wrapf(errors.ErrInvalidArgument, "unknown error policy %q (want abort or continue)", s)
	}
}

// Engine runs generation passes for one Generator.
//
// Configuration fields are shared by all passes of the engine; changing
// them while passes are running is not supported.
type Engine struct {
	id            uuid.UUID
	origin        string
	gen           Generator
	provider      Provider
	registry      *Registry
	log           *zap.SugaredLogger
	tracer        trace.Tracer
	policy        ErrorPolicy
	propagate     bool
	diagnostics   bool
	metrics       bool
	preconditions []Precondition
	newNamer      func() Namer
	newSink       func() Sink
}

// Option configures an Engine.
type Option func(*Engine)

// WithProvider sets the program model provider used by Execute.
func WithProvider(p Provider) Option {
	return func(e *Engine) { e.provider = p }
}

// WithRegistry sets the registry; DefaultRegistry() otherwise.
func WithRegistry(r *Registry) Option {
	return func(e *Engine) { e.registry = r }
}

// WithOrigin labels the engine, e.g. with the component that created it.
func WithOrigin(origin string) Option {
	return func(e *Engine) { e.origin = origin }
}

// WithLogger sets the engine logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(e *Engine) { e.log = log }
}

// WithErrorPolicy sets the candidate failure policy (AbortPass by default).
func WithErrorPolicy(p ErrorPolicy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithPropagateErrors makes Execute and Run return the error of a faulted
// pass instead of only recording it.
func WithPropagateErrors(propagate bool) Option {
	return func(e *Engine) { e.propagate = propagate }
}

// WithDiagnostics enables or disables diagnostic reporting (enabled by default).
func WithDiagnostics(enabled bool) Option {
	return func(e *Engine) { e.diagnostics = enabled }
}

// WithMetrics enables or disables Prometheus metrics (enabled by default).
func WithMetrics(enabled bool) Option {
	return func(e *Engine) { e.metrics = enabled }
}

// WithPreconditions appends host-level checks run by Execute.
func WithPreconditions(checks ...Precondition) Option {
	return func(e *Engine) { e.preconditions = append(e.preconditions, checks...) }
}

// WithNamerFactory sets how Execute creates the naming service of a pass.
func WithNamerFactory(fn func() Namer) Option {
	return func(e *Engine) { e.newNamer = fn }
}

// WithSinkFactory sets how Execute creates the diagnostics sink of a pass.
func WithSinkFactory(fn func() Sink) Option {
	return func(e *Engine) { e.newSink = fn }
}

// NewEngine creates an engine for gen.
func NewEngine(gen Generator, opts ...Option) *Engine {
	e := &Engine{
		id:          uuid.New(),
		gen:         gen,
		diagnostics: true,
		metrics:     true,
		newNamer:    func() Namer { return NewHintNamer("") },
		newSink:     func() Sink { return discardSink{} },
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.registry == nil {
		e.registry = DefaultRegistry()
	}
	if e.log == nil {
		e.log = logger.ComponentLogger("pass")
	}
	if e.tracer == nil {
		e.tracer = otel.Tracer("github.com/teranos/stagegen/pass")
	}
	e.log = e.log.With(logger.FieldGenerator, gen.Name())
	return e
}

// ID returns the engine identity.
func (e *Engine) ID() uuid.UUID { return e.id }

// Generator returns the generator driven by the engine.
func (e *Engine) Generator() Generator { return e.gen }

// Registry returns the registry the engine records passes in.
func (e *Engine) Registry() *Registry { return e.registry }

// Handle returns the handle of lane for this engine.
func (e *Engine) Handle(lane string) Handle {
	return Handle{Generator: e.id, Origin: e.origin, Lane: lane}
}

// NewContext creates a pass context on lane for programmatic drivers of Run.
func (e *Engine) NewContext(ctx context.Context, lane string, snap model.Snapshot, opts ...ContextOption) *Context {
	base := []ContextOption{
		WithNamer(e.newNamer()),
		WithSink(e.newSink()),
		WithContextLogger(e.passLogger(e.Handle(lane))),
	}
	return NewContext(ctx, e.Handle(lane), snap, append(base, opts...)...)
}

func (e *Engine) passLogger(h Handle) *zap.SugaredLogger {
	return e.log.With(
		logger.FieldLane, h.Lane,
		logger.FieldPass, h.String(),
		logger.FieldOrigin, h.Origin)
}

// CurrentContext returns the live pass context of lane.
func (e *Engine) CurrentContext(lane string) (*Context, error) {
	return e.registry.Get(e.Handle(lane))
}

// Lookup returns the pass context registered under h.
func (e *Engine) Lookup(h Handle) (*Context, error) {
	return e.registry.Get(h)
}

// FromContext returns the pass context whose handle ctx carries.
func (e *Engine) FromContext(ctx context.Context) (*Context, error) {
	h, ok := HandleFromContext(ctx)
	if !ok {
		return nil, errors.Wrap(errors.ErrNoContext, "context carries no pass handle")
	}
	return e.registry.Get(h)
}

// FromContext looks up the pass context carried by ctx in the default registry.
func FromContext(ctx context.Context) (*Context, error) {
	h, ok := HandleFromContext(ctx)
	if !ok {
		return nil, errors.Wrap(errors.ErrNoContext, "context carries no pass handle")
	}
	return DefaultRegistry().Get(h)
}

// Reset deregisters the pass context of lane.
func (e *Engine) Reset(lane string) {
	e.registry.Remove(e.Handle(lane))
}

// ResetAll deregisters every pass context of the engine. Call it when the
// engine is disposed of.
func (e *Engine) ResetAll() int {
	return e.registry.RemoveGenerator(e.id)
}

// Execute runs one host-driven pass: validate, build the snapshot, register
// the pass context, then filter and generate.
//
// The returned error is nil unless the engine propagates errors; the outcome
// is always in Result.State.
func (e *Engine) Execute(ctx context.Context, inv Invocation) (*Result, error) {
	if inv.Lane == "" {
		inv.Lane = uuid.NewString()
	}
	h := e.Handle(inv.Lane)
	log := e.passLogger(h)
	start := time.Now()

	// Stale state from an earlier pass on this lane must not leak into this one
	e.registry.Remove(h)

	res := &Result{Handle: h, State: StateValidating}
	sink := e.newSink()
	diags := NewCollector()
	report := func(d Diagnostic) {
		if !e.diagnostics {
			return
		}
		diags.Report(d)
		sink.Report(d)
	}

	for _, check := range e.preconditions {
		if err := check(inv); err != nil {
			err = errors.Mark(err, errors.ErrPrecondition)
			report(Diagnostic{
				Severity: SeverityError,
				Code:     CodePrecondition,
				Message:  err.Error(),
				Err:      err,
			})
			log.Warnw("Pass precondition failed", logger.FieldError, err)
			res.State = StateFaulted
			res.Diagnostics = diags.Diagnostics()
			return e.conclude(res, start, err)
		}
	}

	if e.provider == nil {
		err := errors.WithHint(
			errors.NewPreconditionError("engine for %s has no program model provider", e.gen.Name()),
			"construct the engine with pass.WithProvider or drive it with Run")
		report(Diagnostic{Severity: SeverityError, Code: CodePrecondition, Message: err.Error(), Err: err})
		res.State = StateFaulted
		res.Diagnostics = diags.Diagnostics()
		return e.conclude(res, start, err)
	}

	snap, err := e.provider.Load(ctx, inv)
	if err != nil {
		err = errors.Wrapf(err, "load %s", strings.Join(inv.Patterns, " "))
		report(Diagnostic{Severity: SeverityError, Code: CodeLoad, Message: err.Error(), Err: err})
		log.Errorw("Failed to build program model", logger.FieldError, err)
		res.State = StateFaulted
		res.Diagnostics = diags.Diagnostics()
		return e.conclude(res, start, err)
	}
	if snap == nil || snap.HasErrors() {
		log.Debugw("Program model unusable, nothing to generate")
		res.State = StateCompleted
		res.Snapshot = snap
		return e.conclude(res, start, nil)
	}

	var receiver Receiver
	if rf, ok := e.gen.(ReceiverFactory); ok {
		receiver = rf.NewReceiver()
		if err := receiver.Collect(ctx, snap); err != nil {
			err = errors.Wrap(err, "collect candidates")
			report(Diagnostic{Severity: SeverityError, Code: CodeLoad, Message: err.Error(), Err: err})
			res.State = StateFaulted
			res.Diagnostics = diags.Diagnostics()
			return e.conclude(res, start, err)
		}
		if receiver.Len() == 0 {
			log.Debugw("Receiver collected no candidates, nothing to generate")
			res.State = StateCompleted
			res.Snapshot = snap
			return e.conclude(res, start, nil)
		}
	}

	pc := NewContext(ctx, h, snap,
		WithNamer(e.newNamer()),
		WithSink(sink),
		WithReceiver(receiver),
		WithData(inv.Data),
		WithContextLogger(log),
	)
	pc.diags = diags
	pc.quiet = !e.diagnostics
	return e.Run(pc)
}

// Run drives a pass over an existing context: register it, filter and
// generate. This is the entry point for programmatic and test drivers.
func (e *Engine) Run(pc *Context) (*Result, error) {
	start := time.Now()
	if pc == nil || pc.handle.IsZero() {
		return nil, errors.Wrap(errors.ErrInvalidArgument, "pass context without handle")
	}
	if pc.handle.Generator != e.id {
		return nil, errors.Wrapf(errors.ErrInvalidArgument, "pass context %s belongs to another engine", pc.handle)
	}
	if pc.diags == nil {
		pc.diags = NewCollector()
	}
	if !e.diagnostics {
		pc.quiet = true
	}
	log := pc.log

	if e.registry.Add(pc.handle, pc) {
		log.Debugw("Replaced stale pass context", logger.FieldLane, pc.handle.Lane)
	}

	ctx, span := e.tracer.Start(pc.ctx, "stagegen.pass",
		trace.WithAttributes(passAttributes(e.gen.Name(), pc.handle)...))
	defer span.End()
	pc.ctx = ctx

	pc.namer.Reset()
	pc.state = StateGenerating
	log.Debugw("Pass started", logger.FieldVersion, pc.snapshot.Version())

	stats := &passStats{}
	err := e.generate(pc, stats)

	res := &Result{
		Handle:     pc.handle,
		Snapshot:   pc.snapshot,
		Artifacts:  pc.Artifacts(),
		Candidates: stats.candidates,
		Failed:     stats.failed,
		Folds:      stats.folds,
	}

	if err != nil {
		pc.state = StateFaulted
		recordSpanError(span, err)
		if !isCancellation(err) && !errors.Is(err, errReported) {
			pc.report(Diagnostic{
				Severity: SeverityError,
				Code:     CodeGenerate,
				Message:  err.Error(),
				Err:      err,
			})
		}
		log.Errorw("Pass faulted",
			logger.FieldState, pc.state.String(),
			logger.FieldError, err,
			logger.FieldArtifacts, len(res.Artifacts))
	} else {
		pc.state = StateCompleted
		pc.namer.Success()
		log.Infow("Pass completed",
			logger.FieldState, pc.state.String(),
			logger.FieldArtifacts, len(res.Artifacts),
			logger.FieldCount, stats.candidates,
			logger.FieldVersion, pc.snapshot.Version())
	}

	res.State = pc.state
	res.Diagnostics = pc.diags.Diagnostics()
	return e.conclude(res, start, err)
}

// conclude records metrics and applies the propagation policy.
func (e *Engine) conclude(res *Result, start time.Time, err error) (*Result, error) {
	res.Duration = time.Since(start)
	if e.metrics {
		name := e.gen.Name()
		passesTotal.WithLabelValues(name, res.State.String()).Inc()
		passDuration.WithLabelValues(name).Observe(res.Duration.Seconds())
	}
	if err != nil && e.propagate {
		return res, err
	}
	return res, nil
}
