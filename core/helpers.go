package orchestration

import (
	"context"
	"errors"
	"fmt"

	"github.com/koscakluka/huddle-core/core/session"
)

type stepRun func(context.Context) (phase, error)

func panicSafeNamedStep(name string, run stepRun) stepRun {
	return func(ctx context.Context) (next phase, err error) {
		defer func() {
			if recovered := recover(); recovered != nil {
				next = phaseError
				err = fmt.Errorf("%s step panicked: %v", name, recovered)
			}
		}()

		if next, err = run(ctx); err != nil {
			return next, fmt.Errorf("%s step failed: %w", name, err)
		}

		return next, nil
	}
}

// isTeardown reports whether err means the session can not continue at all,
// as opposed to a failure that is still reported to the observer.
func isTeardown(ctx context.Context, err error) bool {
	return ctx.Err() != nil ||
		errors.Is(err, ErrStreamClosed) ||
		errors.Is(err, session.ErrSessionClosed)
}
