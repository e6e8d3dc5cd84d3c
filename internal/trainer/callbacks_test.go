package trainer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEarlyStopping_ScriptedLosses(t *testing.T) {
	es := NewEarlyStopping(2, 0)
	losses := []float64{1.0, 0.8, 0.9, 0.85, 0.81, 0.7}

	var improved []bool
	stoppedAt := -1
	for epoch, l := range losses {
		imp, stop := es.Observe(epoch, l)
		improved = append(improved, imp)
		if stop {
			stoppedAt = epoch
			break
		}
	}

	assert.Equal(t, []bool{true, true, false, false}, improved)
	assert.Equal(t, 3, stoppedAt)
	assert.Equal(t, 3, es.StoppedEpoch())
	best, loss := es.Best()
	assert.Equal(t, 1, best)
	assert.Equal(t, 0.8, loss)
}

func TestEarlyStopping_RecoveryResetsWait(t *testing.T) {
	es := NewEarlyStopping(2, 0)
	for epoch, l := range []float64{1.0, 1.1, 0.9, 1.2, 0.5, 0.6} {
		_, stop := es.Observe(epoch, l)
		assert.False(t, stop, "epoch %d", epoch)
	}
	assert.Equal(t, -1, es.StoppedEpoch())
}

func TestEarlyStopping_EqualIsNotImprovement(t *testing.T) {
	es := NewEarlyStopping(1, 0)
	imp, stop := es.Observe(0, 0.5)
	assert.True(t, imp)
	assert.False(t, stop)

	imp, stop = es.Observe(1, 0.5)
	assert.False(t, imp)
	assert.True(t, stop)
}

func TestEarlyStopping_MinDelta(t *testing.T) {
	es := NewEarlyStopping(3, 0.1)
	es.Observe(0, 1.0)
	imp, _ := es.Observe(1, 0.95)
	assert.False(t, imp)
	imp, _ = es.Observe(2, 0.85)
	assert.True(t, imp)
}

func TestEarlyStopping_NeverStopsAfterFirstEpoch(t *testing.T) {
	es := NewEarlyStopping(0, 0)
	_, stop := es.Observe(0, math.NaN())
	assert.False(t, stop)
	_, stop = es.Observe(1, math.NaN())
	assert.True(t, stop)
}

func TestCheckpoint_ShouldSave(t *testing.T) {
	c := NewCheckpoint("best.safetensors")
	var saved []bool
	for _, l := range []float64{0.9, 0.7, 0.7, 0.8, math.NaN(), 0.6} {
		saved = append(saved, c.ShouldSave(l))
	}
	assert.Equal(t, []bool{true, true, false, false, false, true}, saved)
}
