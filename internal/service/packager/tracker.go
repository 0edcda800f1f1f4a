package packager

import (
	"context"

	"github.com/oshokin/passkit/internal/domain/build"
	"github.com/oshokin/passkit/internal/logger"
)

// tracker follows one build through the state machine.
type tracker struct {
	state build.State
}

func newTracker() *tracker {
	return &tracker{state: build.StateCreated}
}

// advance moves to next. Stages are called in a fixed order, so an illegal
// transition is a programming error.
func (t *tracker) advance(ctx context.Context, next build.State) {
	if !t.state.CanTransition(next) {
		panic("packager: illegal transition from " + t.state.String() + " to " + next.String())
	}

	logger.DebugKV(ctx, "Build stage completed", "state", next.String())

	t.state = next
}

func (t *tracker) fail(ctx context.Context) {
	t.advance(ctx, build.StateFailed)
}
