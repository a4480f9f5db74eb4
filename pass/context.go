package pass

import (
	"context"

	"github.com/teranos/stagegen/errors"
	"github.com/teranos/stagegen/model"
	"go.uber.org/zap"
)

// Context is the state of one pass.
//
// It is owned by the goroutine driving the pass: filters and generators may
// read and emit through it, but must not retain it past the pass.
type Context struct {
	ctx      context.Context
	handle   Handle
	snapshot model.Snapshot
	namer    Namer
	sink     Sink
	receiver Receiver
	log      *zap.SugaredLogger
	data     any

	diags     *Collector
	quiet     bool
	state     State
	stage     Stage
	pending   []model.Artifact
	artifacts []model.Artifact
}

// ContextOption configures a Context.
type ContextOption func(*Context)

// WithNamer sets the output naming service.
func WithNamer(n Namer) ContextOption {
	return func(pc *Context) { pc.namer = n }
}

// WithSink sets the diagnostics sink.
func WithSink(s Sink) ContextOption {
	return func(pc *Context) { pc.sink = s }
}

// WithReceiver sets the candidate receiver.
func WithReceiver(r Receiver) ContextOption {
	return func(pc *Context) { pc.receiver = r }
}

// WithData sets the generator-defined extension data.
func WithData(data any) ContextOption {
	return func(pc *Context) { pc.data = data }
}

// WithContextLogger sets the logger used for this pass.
func WithContextLogger(log *zap.SugaredLogger) ContextOption {
	return func(pc *Context) { pc.log = log }
}

// NewContext creates a pass context for handle h over snap.
// The context.Context is the pass's cancellation signal.
func NewContext(ctx context.Context, h Handle, snap model.Snapshot, opts ...ContextOption) *Context {
	pc := &Context{
		ctx:      WithHandle(ctx, h),
		handle:   h,
		snapshot: snap,
		namer:    NewHintNamer(""),
		sink:     discardSink{},
		diags:    NewCollector(),
		log:      zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(pc)
	}
	return pc
}

// Handle returns the registry handle of the pass.
func (pc *Context) Handle() Handle { return pc.handle }

// Context returns the context.Context of the pass; it carries the handle.
func (pc *Context) Context() context.Context { return pc.ctx }

// Err returns the cancellation error, if the pass has been cancelled.
func (pc *Context) Err() error { return pc.ctx.Err() }

// Snapshot returns the latest snapshot version.
func (pc *Context) Snapshot() model.Snapshot { return pc.snapshot }

// Namer returns the output naming service.
func (pc *Context) Namer() Namer { return pc.namer }

// Diagnostics returns the diagnostics sink.
func (pc *Context) Diagnostics() Sink { return pc.sink }

// Receiver returns the candidate receiver, or nil.
func (pc *Context) Receiver() Receiver { return pc.receiver }

// Logger returns the pass logger.
func (pc *Context) Logger() *zap.SugaredLogger { return pc.log }

// Data returns the generator-defined extension data.
func (pc *Context) Data() any { return pc.data }

// SetData replaces the generator-defined extension data.
func (pc *Context) SetData(data any) { pc.data = data }

// State returns the pass state.
func (pc *Context) State() State { return pc.state }

// Stage returns the group currently being processed.
func (pc *Context) Stage() Stage { return pc.stage }

// Artifacts returns every artifact emitted so far, in generation order.
func (pc *Context) Artifacts() []model.Artifact {
	out := make([]model.Artifact, len(pc.artifacts))
	copy(out, pc.artifacts)
	return out
}

// Pending returns the artifacts not yet folded into the snapshot.
func (pc *Context) Pending() []model.Artifact {
	out := make([]model.Artifact, len(pc.pending))
	copy(out, pc.pending)
	return out
}

// AddSource emits src as an artifact for origin. The name comes from the
// namer; hint tells apart several artifacts of one candidate.
func (pc *Context) AddSource(hint string, src []byte, origin Candidate) (model.Artifact, error) {
	if origin == nil {
		return model.Artifact{}, errors.Wrap(errors.ErrInvalidArgument, "artifact without origin candidate")
	}
	if len(src) == 0 {
		return model.Artifact{}, errors.Wrapf(errors.ErrInvalidArgument, "empty source for %s", origin.Name())
	}
	a := model.Artifact{
		Name:    pc.namer.Name(origin, hint),
		Source:  src,
		Origin:  origin.Name(),
		Group:   pc.stage.Label(),
		Version: pc.snapshot.Version(),
	}
	pc.pending = append(pc.pending, a)
	pc.artifacts = append(pc.artifacts, a)
	return a, nil
}

// report records d for the pass result and forwards it to the sink.
func (pc *Context) report(d Diagnostic) {
	if pc.quiet {
		return
	}
	pc.diags.Report(d)
	pc.sink.Report(d)
}

// fold merges pending artifacts into a new snapshot version.
func (pc *Context) fold() (bool, error) {
	if len(pc.pending) == 0 {
		return false, nil
	}
	next, err := pc.snapshot.Fold(pc.ctx, pc.pending)
	if err != nil {
		return false, errors.Wrapf(err, "fold %d artifacts into version %d", len(pc.pending), pc.snapshot.Version())
	}
	if next == nil {
		return false, errors.AssertionFailedf("snapshot fold returned nil")
	}
	pc.snapshot = next
	pc.pending = nil
	return true, nil
}
