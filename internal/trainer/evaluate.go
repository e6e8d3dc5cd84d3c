package trainer

import (
	"context"
	"fmt"
	"math"

	"github.com/sourcegraph/conc/pool"

	"github.com/crimson-sun/reviewclf/internal/engine/network"
	"github.com/crimson-sun/reviewclf/internal/engine/scorer"
	"github.com/crimson-sun/reviewclf/internal/model"
	"github.com/crimson-sun/reviewclf/internal/sentiment"
)

const evalChunk = 32

// Metrics summarizes a scored labeled set.
type Metrics struct {
	Samples           int     `yaml:"samples"`
	Loss              float64 `yaml:"loss"`
	Accuracy          float64 `yaml:"accuracy"`
	SentimentAccuracy float64 `yaml:"sentiment_accuracy"`
}

// Evaluate scores x in chunks on up to workers goroutines and compares the
// predictions with the zero-based classes y. Results are gathered by index,
// so the metrics do not depend on scheduling.
func Evaluate(ctx context.Context, sc scorer.Scorer, x [][]int64, y []int, workers int) (Metrics, error) {
	if len(x) != len(y) {
		return Metrics{}, fmt.Errorf("trainer: %d sequences, %d labels", len(x), len(y))
	}
	if len(x) == 0 {
		return Metrics{}, nil
	}
	if workers < 1 {
		workers = 1
	}

	probs := make([][]float64, len(x))
	p := pool.New().WithMaxGoroutines(workers).WithContext(ctx).WithCancelOnError()
	for start := 0; start < len(x); start += evalChunk {
		end := min(start+evalChunk, len(x))
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out, err := sc.ScoreBatch(x[start:end])
			if err != nil {
				return fmt.Errorf("trainer: score [%d:%d]: %w", start, end, err)
			}
			copy(probs[start:end], out)
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return Metrics{}, err
	}

	var m Metrics
	var correct, sentimentCorrect int
	for i, row := range probs {
		label := y[i]
		if label < 0 || label >= len(row) {
			return Metrics{}, fmt.Errorf("trainer: label %d outside [0,%d)", label, len(row))
		}
		m.Loss -= math.Log(math.Max(row[label], network.ProbFloor))
		pred := network.Argmax(row)
		if pred == label {
			correct++
		}
		if sentimentOf(pred) == sentimentOf(label) {
			sentimentCorrect++
		}
	}
	n := float64(len(x))
	m.Samples = len(x)
	m.Loss /= n
	m.Accuracy = float64(correct) / n
	m.SentimentAccuracy = float64(sentimentCorrect) / n
	return m, nil
}

func sentimentOf(class int) sentiment.Label {
	return sentiment.FromRating(model.RatingFromClass(class))
}
