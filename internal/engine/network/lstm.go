package network

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// lstmStep keeps what the backward pass needs from one time step. All
// matrices are [batch, units].
type lstmStep struct {
	t            int // input position consumed at this step
	hPrev, cPrev *mat.Dense
	i, f, g, o   *mat.Dense
	tanhC        *mat.Dense
}

// run consumes xs ([batch, embed] per position) in order, or in reverse for
// the backward direction, and returns the final hidden state.
func (l *lstm) run(xs []*mat.Dense, batch int) (*mat.Dense, []lstmStep) {
	h := l.units
	hPrev := mat.NewDense(batch, h, nil)
	cPrev := mat.NewDense(batch, h, nil)
	steps := make([]lstmStep, 0, len(xs))

	z := mat.NewDense(batch, 4*h, nil)
	var rec mat.Dense
	bias := l.bias.W.RawRowView(0)

	for k := range xs {
		t := k
		if l.reverse {
			t = len(xs) - 1 - k
		}
		z.Mul(xs[t], l.kernel.W)
		rec.Mul(hPrev, l.recurrent.W)
		z.Add(z, &rec)

		s := lstmStep{
			t:     t,
			hPrev: hPrev,
			cPrev: cPrev,
			i:     mat.NewDense(batch, h, nil),
			f:     mat.NewDense(batch, h, nil),
			g:     mat.NewDense(batch, h, nil),
			o:     mat.NewDense(batch, h, nil),
			tanhC: mat.NewDense(batch, h, nil),
		}
		hNext := mat.NewDense(batch, h, nil)
		cNext := mat.NewDense(batch, h, nil)

		for b := 0; b < batch; b++ {
			zr := z.RawRowView(b)
			ir, fr, gr, or := s.i.RawRowView(b), s.f.RawRowView(b), s.g.RawRowView(b), s.o.RawRowView(b)
			tr := s.tanhC.RawRowView(b)
			cp := cPrev.RawRowView(b)
			hn, cn := hNext.RawRowView(b), cNext.RawRowView(b)
			for j := 0; j < h; j++ {
				ir[j] = sigmoid(zr[j] + bias[j])
				fr[j] = sigmoid(zr[h+j] + bias[h+j])
				gr[j] = math.Tanh(zr[2*h+j] + bias[2*h+j])
				or[j] = sigmoid(zr[3*h+j] + bias[3*h+j])
				cn[j] = fr[j]*cp[j] + ir[j]*gr[j]
				tr[j] = math.Tanh(cn[j])
				hn[j] = or[j] * tr[j]
			}
		}
		steps = append(steps, s)
		hPrev, cPrev = hNext, cNext
	}
	return hPrev, steps
}

// backprop runs backpropagation through time from dhLast, the gradient of
// the loss with respect to the final hidden state. Weight gradients are
// accumulated into the params; input gradients are accumulated into dxs.
func (l *lstm) backprop(xs []*mat.Dense, steps []lstmStep, dhLast *mat.Dense, dxs []*mat.Dense) {
	batch, h := dhLast.Dims()
	dh := mat.DenseCopyOf(dhLast)
	dc := mat.NewDense(batch, h, nil)
	dz := mat.NewDense(batch, 4*h, nil)
	var gw, gu, dx mat.Dense
	biasGrad := l.bias.G.RawRowView(0)

	for k := len(steps) - 1; k >= 0; k-- {
		s := steps[k]
		for b := 0; b < batch; b++ {
			dhr, dcr, dzr := dh.RawRowView(b), dc.RawRowView(b), dz.RawRowView(b)
			ir, fr, gr, or := s.i.RawRowView(b), s.f.RawRowView(b), s.g.RawRowView(b), s.o.RawRowView(b)
			tr, cp := s.tanhC.RawRowView(b), s.cPrev.RawRowView(b)
			for j := 0; j < h; j++ {
				do := dhr[j] * tr[j]
				dcv := dcr[j] + dhr[j]*or[j]*(1-tr[j]*tr[j])
				di := dcv * gr[j]
				dg := dcv * ir[j]
				df := dcv * cp[j]
				dcr[j] = dcv * fr[j]

				dzr[j] = di * ir[j] * (1 - ir[j])
				dzr[h+j] = df * fr[j] * (1 - fr[j])
				dzr[2*h+j] = dg * (1 - gr[j]*gr[j])
				dzr[3*h+j] = do * or[j] * (1 - or[j])
			}
		}

		gw.Mul(xs[s.t].T(), dz)
		l.kernel.G.Add(l.kernel.G, &gw)
		gu.Mul(s.hPrev.T(), dz)
		l.recurrent.G.Add(l.recurrent.G, &gu)
		addColSums(biasGrad, dz)

		dx.Mul(dz, l.kernel.W.T())
		dxs[s.t].Add(dxs[s.t], &dx)
		dh.Mul(dz, l.recurrent.W.T())
	}
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// addColSums adds the column sums of m into dst.
func addColSums(dst []float64, m *mat.Dense) {
	r, _ := m.Dims()
	for i := 0; i < r; i++ {
		floats.Add(dst, m.RawRowView(i))
	}
}
