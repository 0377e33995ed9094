package orchestration

import (
	"context"
	"time"
)

const (
	DefaultReadingPause      = 4 * time.Second
	DefaultPreSynthesisPause = 5 * time.Second
	DefaultQuestionTimeout   = 10 * time.Second
)

// Timing holds the fixed delays of a consultation.
type Timing struct {
	// ReadingPause follows every specialist statement except the last one.
	ReadingPause time.Duration
	// PreSynthesisPause leaves room for a final interjection before the
	// synthesis is requested.
	PreSynthesisPause time.Duration
	// QuestionTimeout bounds how long a follow-up question waits for an
	// answer.
	QuestionTimeout time.Duration
}

func DefaultTiming() Timing {
	return Timing{
		ReadingPause:      DefaultReadingPause,
		PreSynthesisPause: DefaultPreSynthesisPause,
		QuestionTimeout:   DefaultQuestionTimeout,
	}
}

// Pacer implements the pacing delays. Pause must return early with an error
// when ctx ends.
type Pacer interface {
	Pause(ctx context.Context, d time.Duration) error
}

type PacerFunc func(ctx context.Context, d time.Duration) error

func (f PacerFunc) Pause(ctx context.Context, d time.Duration) error { return f(ctx, d) }

type timerPacer struct{}

// TimerPacer waits on a real timer.
func TimerPacer() Pacer { return timerPacer{} }

func (timerPacer) Pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
