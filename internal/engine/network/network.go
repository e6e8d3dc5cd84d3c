// Package network implements the review classifier: an embedding layer, a
// bidirectional LSTM, two dense layers with dropout and a softmax over the
// rating classes. Forward and backward passes are written against gonum
// matrices; training state lives in Param.
package network

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"

	"github.com/crimson-sun/reviewclf/internal/config"
)

// ErrInput is returned for sequences that do not fit the architecture.
var ErrInput = errors.New("network: invalid input")

// Architecture fixes every layer size. It is stored in the model artifact.
type Architecture struct {
	VocabSize  int     `json:"vocab_size" yaml:"vocab_size"`
	SeqLen     int     `json:"seq_len" yaml:"seq_len"`
	EmbedDim   int     `json:"embed_dim" yaml:"embed_dim"`
	LSTMUnits  int     `json:"lstm_units" yaml:"lstm_units"`
	DenseUnits int     `json:"dense_units" yaml:"dense_units"`
	Classes    int     `json:"classes" yaml:"classes"`
	Dropout    float64 `json:"dropout" yaml:"dropout"`
}

// ArchitectureFor derives the layer sizes from the shared contract and the
// training recipe.
func ArchitectureFor(c config.Contract, t config.TrainingConfig) Architecture {
	return Architecture{
		VocabSize:  c.VocabSize,
		SeqLen:     c.MaxLen,
		EmbedDim:   t.EmbeddingDim,
		LSTMUnits:  t.LSTMUnits,
		DenseUnits: t.DenseUnits,
		Classes:    c.NumClasses,
		Dropout:    t.Dropout,
	}
}

// Validate checks that every size is usable.
func (a Architecture) Validate() error {
	switch {
	case a.VocabSize < 2, a.SeqLen < 1, a.EmbedDim < 1, a.LSTMUnits < 1,
		a.DenseUnits < 1, a.Classes < 2:
		return fmt.Errorf("network: invalid architecture %+v", a)
	case a.Dropout < 0 || a.Dropout >= 1:
		return fmt.Errorf("network: dropout %v must be in [0,1)", a.Dropout)
	}
	return nil
}

// Matches reports whether the architecture was built for contract c.
func (a Architecture) Matches(c config.Contract) error {
	if a.VocabSize != c.VocabSize || a.SeqLen != c.MaxLen || a.Classes != c.NumClasses {
		return fmt.Errorf("network: architecture (vocab=%d len=%d classes=%d) does not match contract (vocab=%d len=%d classes=%d)",
			a.VocabSize, a.SeqLen, a.Classes, c.VocabSize, c.MaxLen, c.NumClasses)
	}
	return nil
}

// Param is one trainable tensor, row-major. Biases have a single row.
type Param struct {
	Name string
	W    *mat.Dense
	G    *mat.Dense // gradient of the last backward pass
}

func newParam(name string, rows, cols int) *Param {
	return &Param{
		Name: name,
		W:    mat.NewDense(rows, cols, nil),
		G:    mat.NewDense(rows, cols, nil),
	}
}

// Shape returns (rows, cols).
func (p *Param) Shape() (int, int) {
	return p.W.Dims()
}

type lstm struct {
	kernel    *Param // [embed, 4*units], gates i f c o
	recurrent *Param // [units, 4*units]
	bias      *Param // [1, 4*units]
	units     int
	reverse   bool
}

type dense struct {
	kernel *Param // [in, out]
	bias   *Param // [1, out]
}

// Network is the classifier. Forward passes only read weights, so a Network
// that is no longer being trained is safe for concurrent Predict calls.
type Network struct {
	arch      Architecture
	embedding *Param
	forward   lstm
	backward  lstm
	hidden    dense
	output    dense
}

// New builds a network with freshly initialized weights drawn from rng.
func New(arch Architecture, rng *rand.Rand) (*Network, error) {
	n, err := allocate(arch)
	if err != nil {
		return nil, err
	}
	n.initialize(rng)
	return n, nil
}

// allocate creates zeroed parameters for arch.
func allocate(arch Architecture) (*Network, error) {
	if err := arch.Validate(); err != nil {
		return nil, err
	}
	h := arch.LSTMUnits
	newLSTM := func(prefix string, reverse bool) lstm {
		return lstm{
			kernel:    newParam(prefix+"/kernel", arch.EmbedDim, 4*h),
			recurrent: newParam(prefix+"/recurrent_kernel", h, 4*h),
			bias:      newParam(prefix+"/bias", 1, 4*h),
			units:     h,
			reverse:   reverse,
		}
	}
	return &Network{
		arch:      arch,
		embedding: newParam("embedding/embeddings", arch.VocabSize, arch.EmbedDim),
		forward:   newLSTM("bidirectional/forward_lstm", false),
		backward:  newLSTM("bidirectional/backward_lstm", true),
		hidden: dense{
			kernel: newParam("dense/kernel", 2*h, arch.DenseUnits),
			bias:   newParam("dense/bias", 1, arch.DenseUnits),
		},
		output: dense{
			kernel: newParam("dense_1/kernel", arch.DenseUnits, arch.Classes),
			bias:   newParam("dense_1/bias", 1, arch.Classes),
		},
	}, nil
}

// initialize applies the usual Keras initializers: uniform(-0.05, 0.05)
// embeddings, Glorot-uniform kernels, orthogonal recurrent kernels, zero
// biases and a forget-gate bias of one.
func (n *Network) initialize(rng *rand.Rand) {
	fillUniform(n.embedding.W, 0.05, rng)
	for _, l := range []*lstm{&n.forward, &n.backward} {
		glorotUniform(l.kernel.W, rng)
		orthogonal(l.recurrent.W, rng)
		b := l.bias.W.RawRowView(0)
		for j := l.units; j < 2*l.units; j++ {
			b[j] = 1
		}
	}
	glorotUniform(n.hidden.kernel.W, rng)
	glorotUniform(n.output.kernel.W, rng)
}

// Architecture returns the layer sizes.
func (n *Network) Architecture() Architecture {
	return n.arch
}

// Params lists every trainable tensor in a fixed order.
func (n *Network) Params() []*Param {
	return []*Param{
		n.embedding,
		n.forward.kernel, n.forward.recurrent, n.forward.bias,
		n.backward.kernel, n.backward.recurrent, n.backward.bias,
		n.hidden.kernel, n.hidden.bias,
		n.output.kernel, n.output.bias,
	}
}

// Clone returns a deep copy of the weights. Gradients are not copied.
func (n *Network) Clone() *Network {
	c, _ := allocate(n.arch)
	c.CopyWeights(n)
	return c
}

// CopyWeights overwrites n's weights with src's. Both must share an
// architecture.
func (n *Network) CopyWeights(src *Network) {
	dst := n.Params()
	for i, p := range src.Params() {
		dst[i].W.Copy(p.W)
	}
}

// CountParams returns the number of scalar weights.
func (n *Network) CountParams() int {
	total := 0
	for _, p := range n.Params() {
		r, c := p.Shape()
		total += r * c
	}
	return total
}

func (n *Network) checkSequence(ids []int64) error {
	if len(ids) != n.arch.SeqLen {
		return fmt.Errorf("%w: sequence length %d, want %d", ErrInput, len(ids), n.arch.SeqLen)
	}
	for _, id := range ids {
		if id < 0 || id >= int64(n.arch.VocabSize) {
			return fmt.Errorf("%w: token id %d outside [0,%d)", ErrInput, id, n.arch.VocabSize)
		}
	}
	return nil
}

func fillUniform(m *mat.Dense, limit float64, rng *rand.Rand) {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		row := m.RawRowView(i)
		for j := 0; j < c; j++ {
			row[j] = (rng.Float64()*2 - 1) * limit
		}
	}
}

func glorotUniform(m *mat.Dense, rng *rand.Rand) {
	fanIn, fanOut := m.Dims()
	fillUniform(m, math.Sqrt(6/float64(fanIn+fanOut)), rng)
}

// orthogonal fills m (rows <= cols) with orthonormal rows taken from the QR
// decomposition of a Gaussian matrix, sign-corrected by diag(R).
func orthogonal(m *mat.Dense, rng *rand.Rand) {
	rows, cols := m.Dims()
	tall, wide := cols, rows
	transpose := true
	if rows > cols {
		tall, wide = rows, cols
		transpose = false
	}
	a := mat.NewDense(tall, wide, nil)
	for i := 0; i < tall; i++ {
		row := a.RawRowView(i)
		for j := range row {
			row[j] = rng.NormFloat64()
		}
	}
	var qr mat.QR
	qr.Factorize(a)
	var q, r mat.Dense
	qr.QTo(&q)
	qr.RTo(&r)
	for i := 0; i < tall; i++ {
		for j := 0; j < wide; j++ {
			v := q.At(i, j)
			if r.At(j, j) < 0 {
				v = -v
			}
			if transpose {
				m.Set(j, i, v)
			} else {
				m.Set(i, j, v)
			}
		}
	}
}
