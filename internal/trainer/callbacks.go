package trainer

import "math"

// EarlyStopping stops training once the monitored validation loss has not
// improved for Patience consecutive epochs. Improvement means dropping
// below the best value by more than MinDelta.
type EarlyStopping struct {
	Patience int
	MinDelta float64

	best      float64
	bestEpoch int
	wait      int
	stopped   int
}

// NewEarlyStopping returns a policy that has seen no epochs.
func NewEarlyStopping(patience int, minDelta float64) *EarlyStopping {
	return &EarlyStopping{
		Patience:  patience,
		MinDelta:  minDelta,
		best:      math.Inf(1),
		bestEpoch: -1,
		stopped:   -1,
	}
}

// Observe records the validation loss of a zero-based epoch. improved
// reports a new best; stop reports that training should end now. Training
// never stops after the first epoch.
func (e *EarlyStopping) Observe(epoch int, valLoss float64) (improved, stop bool) {
	e.wait++
	if valLoss < e.best-e.MinDelta {
		e.best = valLoss
		e.bestEpoch = epoch
		e.wait = 0
		return true, false
	}
	if e.wait >= e.Patience && epoch > 0 {
		e.stopped = epoch
		return false, true
	}
	return false, false
}

// Best returns the best epoch and its loss; the epoch is -1 before any
// improvement.
func (e *EarlyStopping) Best() (int, float64) {
	return e.bestEpoch, e.best
}

// StoppedEpoch returns the epoch that triggered the stop, or -1.
func (e *EarlyStopping) StoppedEpoch() int {
	return e.stopped
}

// Checkpoint decides when the best-so-far model is written: whenever the
// validation loss is strictly below every previous value.
type Checkpoint struct {
	Path string
	best float64
}

// NewCheckpoint returns a policy for path that has seen no epochs.
func NewCheckpoint(path string) *Checkpoint {
	return &Checkpoint{Path: path, best: math.Inf(1)}
}

// ShouldSave records valLoss and reports whether it is a new best. NaN
// never is.
func (c *Checkpoint) ShouldSave(valLoss float64) bool {
	if valLoss < c.best {
		c.best = valLoss
		return true
	}
	return false
}
