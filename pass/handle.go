package pass

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Handle addresses one slot of a Registry.
//
// Generator is the identity of the engine running the pass, Origin the label
// the engine was created with and Lane the caller-chosen execution lane.
// A lane plays the part a calling thread plays in hosts that key passes by
// thread: one live pass per (engine, lane). Lanes are explicit values, so
// goroutine reuse by the host never aliases two passes.
type Handle struct {
	Generator uuid.UUID
	Origin    string
	Lane      string
}

// IsZero reports whether h is the zero Handle.
func (h Handle) IsZero() bool {
	return h == Handle{}
}

func (h Handle) String() string {
	short := h.Generator.String()
	if len(short) > 8 {
		short = short[:8]
	}
	if h.Origin == "" {
		return fmt.Sprintf("%s/%s", short, h.Lane)
	}
	return fmt.Sprintf("%s(%s)/%s", short, h.Origin, h.Lane)
}

type handleKey struct{}

// WithHandle returns a context carrying h, so code called indirectly by the
// host can find the active pass.
func WithHandle(ctx context.Context, h Handle) context.Context {
	return context.WithValue(ctx, handleKey{}, h)
}

// HandleFromContext returns the handle stored by WithHandle.
func HandleFromContext(ctx context.Context) (Handle, bool) {
	h, ok := ctx.Value(handleKey{}).(Handle)
	return h, ok
}
