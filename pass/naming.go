package pass

import (
	"fmt"
	"sync"

	"github.com/teranos/stagegen/internal/util"
)

// Namer is the output naming service: it maps a candidate to a unique
// artifact name within a pass.
type Namer interface {
	// Name returns a unique artifact name for c. hint distinguishes several
	// artifacts generated for the same candidate ("" for the primary one).
	Name(c Candidate, hint string) string
	// Reset prepares the namer for a new pass
	Reset()
	// Success commits the names handed out during the pass
	Success()
}

// HintNamer names artifacts "<snake candidate>[_<hint>]<suffix>", appending
// "_2", "_3"... on collision.
type HintNamer struct {
	suffix string

	mu        sync.Mutex
	used      map[string]int  // last counter tried per base
	issued    map[string]bool // full names handed out
	committed []string
	pending   []string
}

// NewHintNamer creates a namer producing names ending in suffix
// (".gen.go" when empty).
func NewHintNamer(suffix string) *HintNamer {
	if suffix == "" {
		suffix = ".gen.go"
	}
	return &HintNamer{suffix: suffix, used: make(map[string]int), issued: make(map[string]bool)}
}

func (n *HintNamer) Name(c Candidate, hint string) string {
	n.mu.Lock()
	defer n.mu.Unlock()

	base := util.ToSnakeCase(c.Name())
	if base == "" {
		base = "candidate"
	}
	if hint != "" {
		base += "_" + util.ToSnakeCase(hint)
	}

	// A numbered name may equal another candidate's plain name
	var name string
	count := n.used[base]
	for {
		count++
		name = base + n.suffix
		if count > 1 {
			name = fmt.Sprintf("%s_%d%s", base, count, n.suffix)
		}
		if !n.issued[name] {
			break
		}
	}
	n.used[base] = count
	n.issued[name] = true
	n.pending = append(n.pending, name)
	return name
}

// Reset forgets every name handed out since the last Reset.
func (n *HintNamer) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.used = make(map[string]int)
	n.issued = make(map[string]bool)
	n.pending = nil
}

// Success records the pending names as committed.
func (n *HintNamer) Success() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.committed = append(n.committed[:0], n.pending...)
	n.pending = nil
}

// Committed returns the names committed by the last successful pass.
func (n *HintNamer) Committed() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.committed))
	copy(out, n.committed)
	return out
}
