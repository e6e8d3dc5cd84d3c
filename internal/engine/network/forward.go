package network

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// pass holds the activations of one forward pass over a batch.
type pass struct {
	ids   [][]int64
	xs    []*mat.Dense // per position, [batch, embed]
	fwd   []lstmStep
	bwd   []lstmStep
	h     *mat.Dense // [batch, 2*units], forward state then backward state
	mask1 []float64  // dropout scale for h, nil when inactive
	a1    *mat.Dense // h after dropout
	z1    *mat.Dense // hidden pre-activation
	mask2 []float64
	a2    *mat.Dense // relu(z1) after dropout
	probs *mat.Dense // [batch, classes]
}

// run executes the forward pass. Dropout is applied only when rng is
// non-nil.
func (n *Network) run(ids [][]int64, rng *rand.Rand) *pass {
	batch := len(ids)
	a := n.arch
	p := &pass{ids: ids, xs: make([]*mat.Dense, a.SeqLen)}

	for t := 0; t < a.SeqLen; t++ {
		x := mat.NewDense(batch, a.EmbedDim, nil)
		for b := 0; b < batch; b++ {
			copy(x.RawRowView(b), n.embedding.W.RawRowView(int(ids[b][t])))
		}
		p.xs[t] = x
	}

	hf, fwd := n.forward.run(p.xs, batch)
	hb, bwd := n.backward.run(p.xs, batch)
	p.fwd, p.bwd = fwd, bwd

	units := a.LSTMUnits
	p.h = mat.NewDense(batch, 2*units, nil)
	for b := 0; b < batch; b++ {
		row := p.h.RawRowView(b)
		copy(row[:units], hf.RawRowView(b))
		copy(row[units:], hb.RawRowView(b))
	}

	p.a1, p.mask1 = dropout(p.h, a.Dropout, rng)

	p.z1 = affine(p.a1, n.hidden)
	r := mat.DenseCopyOf(p.z1)
	r.Apply(func(_, _ int, v float64) float64 { return math.Max(v, 0) }, r)
	p.a2, p.mask2 = dropout(r, a.Dropout, rng)

	p.probs = affine(p.a2, n.output)
	for b := 0; b < batch; b++ {
		softmax(p.probs.RawRowView(b))
	}
	return p
}

// backprop fills every Param.G with the gradient of the mean
// cross-entropy of p against labels.
func (n *Network) backprop(p *pass, labels []int) {
	for _, prm := range n.Params() {
		prm.G.Zero()
	}
	batch, classes := p.probs.Dims()

	dLogits := mat.DenseCopyOf(p.probs)
	for b := 0; b < batch; b++ {
		row := dLogits.RawRowView(b)
		row[labels[b]]--
		floats.Scale(1/float64(batch), row[:classes])
	}

	dA2 := denseBackprop(p.a2, dLogits, n.output)
	applyMask(dA2, p.mask2)
	dZ1 := dA2
	dZ1.Apply(func(i, j int, v float64) float64 {
		if p.z1.At(i, j) > 0 {
			return v
		}
		return 0
	}, dZ1)

	dA1 := denseBackprop(p.a1, dZ1, n.hidden)
	applyMask(dA1, p.mask1)

	units := n.arch.LSTMUnits
	dhf := mat.DenseCopyOf(dA1.Slice(0, batch, 0, units))
	dhb := mat.DenseCopyOf(dA1.Slice(0, batch, units, 2*units))

	dxs := make([]*mat.Dense, len(p.xs))
	for t := range dxs {
		dxs[t] = mat.NewDense(batch, n.arch.EmbedDim, nil)
	}
	n.forward.backprop(p.xs, p.fwd, dhf, dxs)
	n.backward.backprop(p.xs, p.bwd, dhb, dxs)

	for t, dx := range dxs {
		for b := 0; b < batch; b++ {
			floats.Add(n.embedding.G.RawRowView(int(p.ids[b][t])), dx.RawRowView(b))
		}
	}
}

// denseBackprop accumulates the kernel and bias gradients of layer d for
// output gradient dOut and returns the gradient with respect to in.
func denseBackprop(in, dOut *mat.Dense, d dense) *mat.Dense {
	var gw mat.Dense
	gw.Mul(in.T(), dOut)
	d.kernel.G.Add(d.kernel.G, &gw)
	addColSums(d.bias.G.RawRowView(0), dOut)

	var dIn mat.Dense
	dIn.Mul(dOut, d.kernel.W.T())
	return &dIn
}

// affine returns in·kernel + bias.
func affine(in *mat.Dense, d dense) *mat.Dense {
	var out mat.Dense
	out.Mul(in, d.kernel.W)
	bias := d.bias.W.RawRowView(0)
	r, _ := out.Dims()
	for i := 0; i < r; i++ {
		floats.Add(out.RawRowView(i), bias)
	}
	return &out
}

// dropout zeroes each element with probability rate and scales survivors by
// 1/(1-rate). It returns in unchanged and a nil mask when inactive.
func dropout(in *mat.Dense, rate float64, rng *rand.Rand) (*mat.Dense, []float64) {
	if rng == nil || rate == 0 {
		return in, nil
	}
	r, c := in.Dims()
	keep := 1 - rate
	mask := make([]float64, r*c)
	for i := range mask {
		if rng.Float64() < keep {
			mask[i] = 1 / keep
		}
	}
	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		floats.MulTo(out.RawRowView(i), in.RawRowView(i), mask[i*c:(i+1)*c])
	}
	return out, mask
}

func applyMask(m *mat.Dense, mask []float64) {
	if mask == nil {
		return
	}
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		floats.Mul(m.RawRowView(i), mask[i*c:(i+1)*c])
	}
}

// softmax normalizes row in place.
func softmax(row []float64) {
	maxV := floats.Max(row)
	for j, v := range row {
		row[j] = math.Exp(v - maxV)
	}
	floats.Scale(1/floats.Sum(row), row)
}

// ProbFloor is the smallest probability fed to the log in every loss, the
// same epsilon Keras clips with.
const ProbFloor = 1e-7

// crossEntropy returns the summed negative log-likelihood of labels and the
// number of rows whose first-max argmax equals the label.
func crossEntropy(probs *mat.Dense, labels []int) (loss float64, correct int) {
	r, _ := probs.Dims()
	for b := 0; b < r; b++ {
		row := probs.RawRowView(b)
		loss -= math.Log(math.Max(row[labels[b]], ProbFloor))
		if Argmax(row) == labels[b] {
			correct++
		}
	}
	return loss, correct
}

// Argmax returns the index of the first maximum of v, or -1 for an empty
// slice.
func Argmax(v []float64) int {
	best := -1
	for i, x := range v {
		if best < 0 || x > v[best] {
			best = i
		}
	}
	return best
}

// Predict returns the class probabilities for one encoded sequence.
func (n *Network) Predict(ids []int64) ([]float64, error) {
	out, err := n.PredictBatch([][]int64{ids})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// PredictBatch returns class probabilities for every sequence. Dropout is
// never applied.
func (n *Network) PredictBatch(batch [][]int64) ([][]float64, error) {
	if len(batch) == 0 {
		return nil, nil
	}
	for i, ids := range batch {
		if err := n.checkSequence(ids); err != nil {
			return nil, fmt.Errorf("sequence %d: %w", i, err)
		}
	}
	p := n.run(batch, nil)
	out := make([][]float64, len(batch))
	for b := range batch {
		out[b] = append([]float64(nil), p.probs.RawRowView(b)...)
	}
	return out, nil
}

// Evaluate returns the mean cross-entropy and accuracy of batch against
// labels without dropout.
func (n *Network) Evaluate(batch [][]int64, labels []int) (loss, accuracy float64, err error) {
	if len(batch) != len(labels) {
		return 0, 0, fmt.Errorf("%w: %d sequences, %d labels", ErrInput, len(batch), len(labels))
	}
	if len(batch) == 0 {
		return 0, 0, nil
	}
	if err := n.checkBatch(batch, labels); err != nil {
		return 0, 0, err
	}
	sum, correct := crossEntropy(n.run(batch, nil).probs, labels)
	total := float64(len(batch))
	return sum / total, float64(correct) / total, nil
}

func (n *Network) checkBatch(batch [][]int64, labels []int) error {
	for i, ids := range batch {
		if err := n.checkSequence(ids); err != nil {
			return fmt.Errorf("sequence %d: %w", i, err)
		}
		if labels[i] < 0 || labels[i] >= n.arch.Classes {
			return fmt.Errorf("%w: label %d outside [0,%d)", ErrInput, labels[i], n.arch.Classes)
		}
	}
	return nil
}
