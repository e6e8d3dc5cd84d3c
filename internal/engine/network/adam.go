package network

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

// Adam is the Adam optimizer with Keras defaults.
type Adam struct {
	LearningRate float64
	Beta1        float64
	Beta2        float64
	Epsilon      float64

	iterations int
	m, v       []*mat.Dense // aligned with the Params slice of the first Step
}

// NewAdam returns Adam(lr, beta1=0.9, beta2=0.999, epsilon=1e-7).
func NewAdam(lr float64) *Adam {
	return &Adam{LearningRate: lr, Beta1: 0.9, Beta2: 0.999, Epsilon: 1e-7}
}

// Iterations returns the number of updates applied so far.
func (a *Adam) Iterations() int {
	return a.iterations
}

// Step applies one update to params using their current gradients.
func (a *Adam) Step(params []*Param) {
	if a.m == nil {
		a.m = make([]*mat.Dense, len(params))
		a.v = make([]*mat.Dense, len(params))
		for i, p := range params {
			r, c := p.Shape()
			a.m[i] = mat.NewDense(r, c, nil)
			a.v[i] = mat.NewDense(r, c, nil)
		}
	}
	a.iterations++
	t := float64(a.iterations)
	lr := a.LearningRate * math.Sqrt(1-math.Pow(a.Beta2, t)) / (1 - math.Pow(a.Beta1, t))
	b1, b2 := a.Beta1, a.Beta2

	for i, p := range params {
		w := p.W.RawMatrix().Data
		g := p.G.RawMatrix().Data
		m := a.m[i].RawMatrix().Data
		v := a.v[i].RawMatrix().Data
		for k, gk := range g {
			m[k] = b1*m[k] + (1-b1)*gk
			v[k] = b2*v[k] + (1-b2)*gk*gk
			w[k] -= lr * m[k] / (math.Sqrt(v[k]) + a.Epsilon)
		}
	}
}

// TrainBatch runs forward with dropout, backpropagates the mean
// cross-entropy and applies one optimizer step. It returns the summed loss
// and the number of correct predictions of the forward pass.
func (n *Network) TrainBatch(batch [][]int64, labels []int, opt *Adam, rng *rand.Rand) (lossSum float64, correct int, err error) {
	if len(batch) == 0 || len(batch) != len(labels) {
		return 0, 0, fmt.Errorf("%w: %d sequences, %d labels", ErrInput, len(batch), len(labels))
	}
	if err := n.checkBatch(batch, labels); err != nil {
		return 0, 0, err
	}
	p := n.run(batch, rng)
	lossSum, correct = crossEntropy(p.probs, labels)
	n.backprop(p, labels)
	opt.Step(n.Params())
	return lossSum, correct, nil
}
