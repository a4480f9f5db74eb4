package pass

import (
	"context"
	"iter"
	"sync"

	"github.com/teranos/stagegen/errors"
	"github.com/teranos/stagegen/model"
)

// testGenerator is a Generator whose behaviour is assembled per test.
type testGenerator struct {
	name     string
	build    func(pc *Context) *FilterContainer
	generate func(pc *Context, c Candidate) ([]byte, error)

	mu        sync.Mutex
	generated []string
	filtersN  int
}

func newTestGenerator(name string) *testGenerator {
	return &testGenerator{name: name}
}

func (g *testGenerator) Name() string { return g.name }

func (g *testGenerator) Filters(pc *Context) *FilterContainer {
	g.mu.Lock()
	g.filtersN++
	g.mu.Unlock()
	if g.build == nil {
		return nil
	}
	return g.build(pc)
}

func (g *testGenerator) Generate(pc *Context, c Candidate) ([]byte, error) {
	g.mu.Lock()
	g.generated = append(g.generated, c.Name())
	g.mu.Unlock()
	if g.generate != nil {
		return g.generate(pc, c)
	}
	return []byte("// generated for " + c.Name()), nil
}

func (g *testGenerator) Generated() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, len(g.generated))
	copy(out, g.generated)
	return out
}

func (g *testGenerator) FiltersCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.filtersN
}

// hookedGenerator adds GroupHook and PassHook to a testGenerator.
type hookedGenerator struct {
	*testGenerator
	onGroup   func(pc *Context, stage Stage) error
	afterPass func(pc *Context) error
}

func (g *hookedGenerator) OnGroup(pc *Context, stage Stage) error {
	if g.onGroup == nil {
		return nil
	}
	return g.onGroup(pc, stage)
}

func (g *hookedGenerator) AfterPass(pc *Context) error {
	if g.afterPass == nil {
		return nil
	}
	return g.afterPass(pc)
}

// receiverGenerator adds a ReceiverFactory to a testGenerator.
type receiverGenerator struct {
	*testGenerator
	receiver *countingReceiver
}

func (g *receiverGenerator) NewReceiver() Receiver { return g.receiver }

type countingReceiver struct {
	n   int
	err error
}

func (r *countingReceiver) Collect(ctx context.Context, snap model.Snapshot) error { return r.err }
func (r *countingReceiver) Len() int                                               { return r.n }

// staticFilter yields fixed candidates.
func staticFilter(name string, deferred bool, names ...string) Filter {
	return NewFilter(name, deferred, func(pc *Context, snap model.Snapshot) iter.Seq2[Candidate, error] {
		candidates := make([]Candidate, len(names))
		for i, n := range names {
			candidates[i] = Named(n)
		}
		return Slice(candidates...)
	})
}

// observingFilter records whether each artifact name was visible in the
// snapshot it was handed, then yields its candidates.
func observingFilter(name string, deferred bool, seen map[string]bool, watch []string, names ...string) Filter {
	return NewFilter(name, deferred, func(pc *Context, snap model.Snapshot) iter.Seq2[Candidate, error] {
		mem := snap.(*model.Memory)
		for _, w := range watch {
			seen[name+":"+w] = mem.Has(w)
		}
		candidates := make([]Candidate, len(names))
		for i, n := range names {
			candidates[i] = Named(n)
		}
		return Slice(candidates...)
	})
}

// failingSnapshot is a snapshot whose Fold always fails.
type failingSnapshot struct {
	model.Memory
}

func (s *failingSnapshot) Fold(ctx context.Context, artifacts []model.Artifact) (model.Snapshot, error) {
	return nil, errors.New("fold exploded")
}

func newIsolatedEngine(gen Generator, opts ...Option) *Engine {
	base := []Option{WithRegistry(NewRegistry()), WithMetrics(false)}
	return NewEngine(gen, append(base, opts...)...)
}

func memoryProvider() Provider {
	return ProviderFunc(func(ctx context.Context, inv Invocation) (model.Snapshot, error) {
		return model.NewMemory(), nil
	})
}
