package pass

import (
	"context"
	"fmt"

	"github.com/teranos/stagegen/errors"
	"github.com/teranos/stagegen/logger"
	"github.com/teranos/stagegen/model"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// errReported marks errors already sent to the diagnostics sink, so the
// pass boundary does not report them twice.
var errReported = errors.New("reported")

type passStats struct {
	candidates int
	failed     int
	folds      int
}

// generate walks the filter container of the pass.
func (e *Engine) generate(pc *Context, stats *passStats) error {
	if err := e.initContext(pc); err != nil {
		return err
	}
	container, err := e.filters(pc)
	if err != nil {
		return err
	}
	if container == nil || container.Len() == 0 {
		pc.log.Debugw("No filter groups, nothing to generate")
		return e.afterPass(pc)
	}

	entries := container.begin()
	defer container.end()

	for _, entry := range entries {
		if err := pc.Err(); err != nil {
			return err
		}
		if err := e.runGroup(pc, container, entry, stats); err != nil {
			return err
		}
	}
	return e.afterPass(pc)
}

func (e *Engine) initContext(pc *Context) (err error) {
	ci, ok := e.gen.(ContextInitializer)
	if !ok {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = e.reportHook(pc, "init", panicError(r))
		}
	}()
	if err := ci.InitContext(pc); err != nil {
		return e.reportHook(pc, "init", err)
	}
	return nil
}

func (e *Engine) filters(pc *Context) (c *FilterContainer, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = e.reportHook(pc, "filters", panicError(r))
		}
	}()
	return e.gen.Filters(pc), nil
}

// runGroup processes one group: hooks, immediate filters, fold, deferred
// filters, fold.
func (e *Engine) runGroup(pc *Context, container *FilterContainer, entry GroupEntry, stats *passStats) error {
	g := entry.Group
	defer func() {
		g.enter(PhaseIdle)
		pc.stage = Stage{}
	}()

	log := pc.log.With(logger.FieldGroup, groupLabel(entry.Index, entry.Name))

	enter := func(p Phase) Stage {
		g.enter(p)
		log.Debugw("Group phase", logger.FieldPhase, p.String())
		pc.stage = Stage{
			Index:   entry.Index,
			Name:    container.nameOf(g),
			Group:   g,
			Phase:   p,
			Version: pc.snapshot.Version(),
		}
		return pc.stage
	}

	_, span := e.tracer.Start(pc.ctx, "stagegen.group",
		trace.WithAttributes(attribute.Int("stagegen.group.index", entry.Index)))
	defer span.End()

	if err := e.hook(pc, enter(PhaseBeforeFiltration)); err != nil {
		recordSpanError(span, err)
		return err
	}

	// Partition after the hook: it may have changed the filter list
	immediate, deferred := g.partition()
	log.Debugw("Group filtration",
		"immediate", len(immediate),
		"deferred", len(deferred),
		logger.FieldVersion, pc.snapshot.Version())

	if err := e.hook(pc, enter(PhaseBeforeExecution)); err != nil {
		recordSpanError(span, err)
		return err
	}

	stage := enter(PhaseImmediate)
	snap := pc.snapshot
	for _, f := range immediate {
		if err := e.runFilter(pc, stage, f, snap, stats); err != nil {
			recordSpanError(span, err)
			return err
		}
	}

	enter(PhaseFold)
	if err := e.fold(pc, stats); err != nil {
		recordSpanError(span, err)
		return err
	}

	if err := e.hook(pc, enter(PhaseBeforeDeferred)); err != nil {
		recordSpanError(span, err)
		return err
	}

	stage = enter(PhaseDeferred)
	snap = pc.snapshot
	for _, f := range deferred {
		if err := e.runFilter(pc, stage, f, snap, stats); err != nil {
			recordSpanError(span, err)
			return err
		}
	}

	// Later groups must observe deferred output too
	enter(PhaseFold)
	if err := e.fold(pc, stats); err != nil {
		recordSpanError(span, err)
		return err
	}

	if err := e.hook(pc, enter(PhaseAfterGroup)); err != nil {
		recordSpanError(span, err)
		return err
	}
	return nil
}

// runFilter drives one filter's candidate sequence over snap.
func (e *Engine) runFilter(pc *Context, stage Stage, f Filter, snap model.Snapshot, stats *passStats) (err error) {
	if err := pc.Err(); err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			err = e.filterFailure(pc, stage, f, panicError(r))
		}
	}()

	for c, cerr := range f.Candidates(pc, snap) {
		if cerr != nil {
			return e.filterFailure(pc, stage, f, cerr)
		}
		if err := pc.Err(); err != nil {
			return err
		}
		if c == nil {
			continue
		}
		if err := e.generateOne(pc, stage, f, c, stats); err != nil {
			if e.policy == AbortPass {
				return err
			}
		}
	}
	return nil
}

// filterFailure reports a failing candidate sequence. Under ContinueOnError
// the filter is abandoned and the pass goes on with the next filter.
func (e *Engine) filterFailure(pc *Context, stage Stage, f Filter, cause error) error {
	err := errors.Wrapf(cause, "filter %s in group %s", f.Name(), stage.Label())
	pc.report(Diagnostic{
		Severity: SeverityError,
		Code:     CodeFilter,
		Message:  err.Error(),
		Group:    stage.Label(),
		Filter:   f.Name(),
		Err:      err,
	})
	pc.log.Warnw("Filter failed",
		logger.FieldGroup, stage.Label(),
		logger.FieldFilter, f.Name(),
		logger.FieldError, err)
	if e.policy == ContinueOnError {
		return nil
	}
	return errors.Mark(err, errReported)
}

// generateOne generates and emits the artifact of one candidate.
func (e *Engine) generateOne(pc *Context, stage Stage, f Filter, c Candidate, stats *passStats) error {
	stats.candidates++
	if e.metrics {
		candidatesTotal.WithLabelValues(e.gen.Name(), stage.Phase.String()).Inc()
	}

	src, err := e.callGenerate(pc, c)
	if err == nil && len(src) > 0 {
		var a model.Artifact
		a, err = pc.AddSource("", src, c)
		if err == nil {
			if e.metrics {
				artifactsTotal.WithLabelValues(e.gen.Name()).Inc()
			}
			pc.log.Debugw("Generated artifact",
				logger.FieldGroup, stage.Label(),
				logger.FieldFilter, f.Name(),
				logger.FieldCandidate, c.Name(),
				logger.FieldArtifact, a.Name)
		}
	}
	if err == nil {
		return nil
	}

	stats.failed++
	err = errors.Wrapf(err, "generate %s", c.Name())
	pc.report(Diagnostic{
		Severity:  SeverityError,
		Code:      CodeGenerate,
		Message:   err.Error(),
		Group:     stage.Label(),
		Filter:    f.Name(),
		Candidate: c.Name(),
		Err:       err,
	})
	pc.log.Warnw("Candidate generation failed",
		logger.FieldGroup, stage.Label(),
		logger.FieldFilter, f.Name(),
		logger.FieldCandidate, c.Name(),
		logger.FieldError, err)
	return errors.Mark(err, errReported)
}

func (e *Engine) callGenerate(pc *Context, c Candidate) (src []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			src, err = nil, panicError(r)
		}
	}()
	return e.gen.Generate(pc, c)
}

// fold merges the pending artifacts into a new snapshot version.
func (e *Engine) fold(pc *Context, stats *passStats) error {
	before := pc.snapshot.Version()
	folded, err := pc.fold()
	if err != nil {
		pc.report(Diagnostic{
			Severity: SeverityError,
			Code:     CodeFold,
			Message:  err.Error(),
			Group:    pc.stage.Label(),
			Err:      err,
		})
		return errors.Mark(err, errReported)
	}
	if folded {
		stats.folds++
		if e.metrics {
			foldsTotal.WithLabelValues(e.gen.Name()).Inc()
		}
		pc.log.Debugw("Folded generated output",
			logger.FieldGroup, pc.stage.Label(),
			"from", before,
			logger.FieldVersion, pc.snapshot.Version())
	}
	return nil
}

func (e *Engine) hook(pc *Context, stage Stage) (err error) {
	h, ok := e.gen.(GroupHook)
	if !ok {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = e.reportHook(pc, stage.Phase.String(), panicError(r))
		}
	}()
	if err := h.OnGroup(pc, stage); err != nil {
		return e.reportHook(pc, stage.Phase.String(), errors.Wrapf(err, "group %s", stage.Label()))
	}
	return nil
}

func (e *Engine) afterPass(pc *Context) (err error) {
	h, ok := e.gen.(PassHook)
	if !ok {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = e.reportHook(pc, "after-pass", panicError(r))
		}
	}()
	if err := h.AfterPass(pc); err != nil {
		return e.reportHook(pc, "after-pass", err)
	}
	return nil
}

func (e *Engine) reportHook(pc *Context, name string, cause error) error {
	err := errors.Wrapf(cause, "%s hook", name)
	pc.report(Diagnostic{
		Severity: SeverityError,
		Code:     CodeHook,
		Message:  err.Error(),
		Group:    pc.stage.Label(),
		Err:      err,
	})
	return errors.Mark(err, errReported)
}

// panicError converts a recovered panic into an error with a stack trace.
func panicError(r any) error {
	if err, ok := r.(error); ok {
		return errors.WithStack(errors.Wrap(err, "panic"))
	}
	return errors.WithStack(errors.Newf("panic: %v", r))
}

func isCancellation(err error) bool {
	return errors.IsAny(err, context.Canceled, context.DeadlineExceeded)
}

func passAttributes(generator string, h Handle) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("stagegen.generator", generator),
		attribute.String("stagegen.lane", h.Lane),
		attribute.String("stagegen.handle", fmt.Sprint(h)),
	}
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
