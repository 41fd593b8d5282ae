package sequence

import (
	"math"
	"math/rand/v2"

	"authorship/internal/model"
)

// Params holds every learned tensor as a flat row-major slice.
type Params struct {
	Vocab     int       `json:"vocab"`
	Dim       int       `json:"dim"`
	Hidden    int       `json:"hidden"`
	Width     int       `json:"width,omitempty"`
	Classes   int       `json:"classes"`
	Embedding []float64 `json:"embedding"`
	EncW      []float64 `json:"enc_w,omitempty"`
	EncU      []float64 `json:"enc_u,omitempty"`
	EncB      []float64 `json:"enc_b,omitempty"`
	OutW      []float64 `json:"out_w"`
	OutB      []float64 `json:"out_b"`
}

func (p *Params) clone() *Params {
	out := *p
	out.Embedding = append([]float64(nil), p.Embedding...)
	out.EncW = append([]float64(nil), p.EncW...)
	out.EncU = append([]float64(nil), p.EncU...)
	out.EncB = append([]float64(nil), p.EncB...)
	out.OutW = append([]float64(nil), p.OutW...)
	out.OutB = append([]float64(nil), p.OutB...)
	return &out
}

func (p *Params) row(id int) []float64 {
	return p.Embedding[id*p.Dim : (id+1)*p.Dim]
}

// network binds parameters to an encoder architecture.
type network struct {
	arch model.Architecture
	p    *Params
}

func newParams(arch model.Architecture, h Hyper, vocab, classes int, rng *rand.Rand) *Params {
	p := &Params{Vocab: vocab, Dim: h.EmbeddingDim, Classes: classes}
	switch arch {
	case model.CNN:
		p.Hidden = h.Filters
		p.Width = h.KernelWidth
		p.EncW = gaussian(rng, h.Filters*h.KernelWidth*h.EmbeddingDim, math.Sqrt(1/float64(h.KernelWidth*h.EmbeddingDim)))
		p.EncB = make([]float64, h.Filters)
	case model.RNN:
		p.Hidden = h.HiddenDim
		p.EncW = gaussian(rng, h.HiddenDim*h.EmbeddingDim, math.Sqrt(1/float64(h.EmbeddingDim)))
		p.EncU = gaussian(rng, h.HiddenDim*h.HiddenDim, 0.5*math.Sqrt(1/float64(h.HiddenDim)))
		p.EncB = make([]float64, h.HiddenDim)
	default:
		p.Hidden = h.EmbeddingDim
	}
	p.Embedding = gaussian(rng, vocab*h.EmbeddingDim, 0.1)
	p.OutW = gaussian(rng, classes*p.Hidden, math.Sqrt(1/float64(p.Hidden)))
	p.OutB = make([]float64, classes)
	return p
}

func gaussian(rng *rand.Rand, n int, scale float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = rng.NormFloat64() * scale
	}
	return out
}

// trace keeps the forward activations backward needs.
type trace struct {
	seq    []int
	h      []float64
	best   []int       // cnn: winning position per filter
	active []bool      // cnn: filter passed the ReLU
	hs     [][]float64 // rnn: h_0..h_T
	probs  []float64
}

// grads accumulates one example's gradients. Embedding rows are sparse.
type grads struct {
	emb  map[int][]float64
	encW []float64
	encU []float64
	encB []float64
	outW []float64
	outB []float64
}

func newGrads(p *Params) *grads {
	return &grads{
		emb:  make(map[int][]float64),
		encW: make([]float64, len(p.EncW)),
		encU: make([]float64, len(p.EncU)),
		encB: make([]float64, len(p.EncB)),
		outW: make([]float64, len(p.OutW)),
		outB: make([]float64, len(p.OutB)),
	}
}

func (g *grads) embRow(id, dim int) []float64 {
	row, ok := g.emb[id]
	if !ok {
		row = make([]float64, dim)
		g.emb[id] = row
	}
	return row
}

func (g *grads) reset() {
	clear(g.emb)
	for _, s := range [][]float64{g.encW, g.encU, g.encB, g.outW, g.outB} {
		clear(s)
	}
}

func (g *grads) norm() float64 {
	var sum float64
	for _, s := range [][]float64{g.encW, g.encU, g.encB, g.outW, g.outB} {
		for _, v := range s {
			sum += v * v
		}
	}
	for _, row := range g.emb {
		for _, v := range row {
			sum += v * v
		}
	}
	return math.Sqrt(sum)
}

func (g *grads) scale(f float64) {
	for _, s := range [][]float64{g.encW, g.encU, g.encB, g.outW, g.outB} {
		for i := range s {
			s[i] *= f
		}
	}
	for _, row := range g.emb {
		for i := range row {
			row[i] *= f
		}
	}
}

// forward runs seq through the network and returns class probabilities.
func (n *network) forward(seq []int) *trace {
	t := &trace{seq: seq}
	switch n.arch {
	case model.CNN:
		n.forwardCNN(t)
	case model.RNN:
		n.forwardRNN(t)
	default:
		n.forwardBag(t)
	}
	p := n.p
	logits := make([]float64, p.Classes)
	for c := range p.Classes {
		sum := p.OutB[c]
		w := p.OutW[c*p.Hidden : (c+1)*p.Hidden]
		for k, v := range t.h {
			sum += w[k] * v
		}
		logits[c] = sum
	}
	t.probs = make([]float64, p.Classes)
	model.Softmax(logits, t.probs)
	return t
}

// backward accumulates the cross-entropy gradient for label y into g.
func (n *network) backward(t *trace, y int, g *grads) {
	p := n.p
	dh := make([]float64, p.Hidden)
	for c := range p.Classes {
		d := t.probs[c]
		if c == y {
			d--
		}
		g.outB[c] += d
		w := p.OutW[c*p.Hidden : (c+1)*p.Hidden]
		gw := g.outW[c*p.Hidden : (c+1)*p.Hidden]
		for k := range dh {
			gw[k] += d * t.h[k]
			dh[k] += d * w[k]
		}
	}
	switch n.arch {
	case model.CNN:
		n.backwardCNN(t, dh, g)
	case model.RNN:
		n.backwardRNN(t, dh, g)
	default:
		n.backwardBag(t, dh, g)
	}
}

func (n *network) forwardBag(t *trace) {
	p := n.p
	t.h = make([]float64, p.Dim)
	for _, id := range t.seq {
		for d, v := range p.row(id) {
			t.h[d] += v
		}
	}
	inv := 1 / float64(len(t.seq))
	for d := range t.h {
		t.h[d] *= inv
	}
}

func (n *network) backwardBag(t *trace, dh []float64, g *grads) {
	inv := 1 / float64(len(t.seq))
	for _, id := range t.seq {
		row := g.embRow(id, n.p.Dim)
		for d := range row {
			row[d] += dh[d] * inv
		}
	}
}

func (n *network) forwardCNN(t *trace) {
	p := n.p
	positions := len(t.seq) - p.Width + 1
	t.h = make([]float64, p.Hidden)
	t.best = make([]int, p.Hidden)
	t.active = make([]bool, p.Hidden)
	for f := range p.Hidden {
		bestZ := math.Inf(-1)
		for pos := range positions {
			z := p.EncB[f]
			for j := range p.Width {
				w := p.EncW[(f*p.Width+j)*p.Dim : (f*p.Width+j+1)*p.Dim]
				for d, v := range p.row(t.seq[pos+j]) {
					z += w[d] * v
				}
			}
			if z > bestZ {
				bestZ, t.best[f] = z, pos
			}
		}
		if bestZ > 0 {
			t.h[f] = bestZ
			t.active[f] = true
		}
	}
}

func (n *network) backwardCNN(t *trace, dh []float64, g *grads) {
	p := n.p
	for f := range p.Hidden {
		if !t.active[f] {
			continue
		}
		d := dh[f]
		g.encB[f] += d
		for j := range p.Width {
			id := t.seq[t.best[f]+j]
			off := (f*p.Width + j) * p.Dim
			w := p.EncW[off : off+p.Dim]
			gw := g.encW[off : off+p.Dim]
			e := p.row(id)
			ge := g.embRow(id, p.Dim)
			for k := range p.Dim {
				gw[k] += d * e[k]
				ge[k] += d * w[k]
			}
		}
	}
}

func (n *network) forwardRNN(t *trace) {
	p := n.p
	h := p.Hidden
	t.hs = make([][]float64, len(t.seq)+1)
	t.hs[0] = make([]float64, h)
	for step, id := range t.seq {
		prev := t.hs[step]
		next := make([]float64, h)
		e := p.row(id)
		for i := range h {
			a := p.EncB[i]
			w := p.EncW[i*p.Dim : (i+1)*p.Dim]
			for d, v := range e {
				a += w[d] * v
			}
			u := p.EncU[i*h : (i+1)*h]
			for k, v := range prev {
				a += u[k] * v
			}
			next[i] = math.Tanh(a)
		}
		t.hs[step+1] = next
	}
	t.h = t.hs[len(t.seq)]
}

func (n *network) backwardRNN(t *trace, dh []float64, g *grads) {
	p := n.p
	h := p.Hidden
	carry := append([]float64(nil), dh...)
	da := make([]float64, h)
	for step := len(t.seq) - 1; step >= 0; step-- {
		cur := t.hs[step+1]
		prev := t.hs[step]
		for i := range h {
			da[i] = carry[i] * (1 - cur[i]*cur[i])
		}
		id := t.seq[step]
		e := p.row(id)
		ge := g.embRow(id, p.Dim)
		next := make([]float64, h)
		for i := range h {
			if da[i] == 0 {
				continue
			}
			g.encB[i] += da[i]
			w := p.EncW[i*p.Dim : (i+1)*p.Dim]
			gw := g.encW[i*p.Dim : (i+1)*p.Dim]
			for d := range p.Dim {
				gw[d] += da[i] * e[d]
				ge[d] += da[i] * w[d]
			}
			u := p.EncU[i*h : (i+1)*h]
			gu := g.encU[i*h : (i+1)*h]
			for k := range h {
				gu[k] += da[i] * prev[k]
				next[k] += da[i] * u[k]
			}
		}
		carry = next
	}
}

// apply takes one SGD step with L2 decay on dense tensors and on the
// embedding rows the example touched.
func (n *network) apply(g *grads, lr, l2 float64) {
	p := n.p
	step := func(w, gw []float64) {
		for i := range w {
			w[i] -= lr * (gw[i] + l2*w[i])
		}
	}
	step(p.EncW, g.encW)
	step(p.EncU, g.encU)
	step(p.EncB, g.encB)
	step(p.OutW, g.outW)
	step(p.OutB, g.outB)
	for id, row := range g.emb {
		step(p.row(id), row)
	}
}
