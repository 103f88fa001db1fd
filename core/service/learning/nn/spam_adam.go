package nn

import "math"

const (
	beta1 = 0.9
	beta2 = 0.999
)

type gradients struct {
	w, b [][]float64
}

func newGradients(layers []*dense) *gradients {
	g := &gradients{w: make([][]float64, len(layers)), b: make([][]float64, len(layers))}
	for i, layer := range layers {
		g.w[i] = make([]float64, len(layer.w))
		g.b[i] = make([]float64, len(layer.b))
	}
	return g
}

func (g *gradients) reset() {
	for i := range g.w {
		clear(g.w[i])
		clear(g.b[i])
	}
}

func (g *gradients) scale(f float64) {
	for i := range g.w {
		for j := range g.w[i] {
			g.w[i][j] *= f
		}
		for j := range g.b[i] {
			g.b[i][j] *= f
		}
	}
}

// adam keeps first and second moment estimates per parameter.
type adam struct {
	lr     float64
	t      int
	mw, vw [][]float64
	mb, vb [][]float64
}

func newAdam(layers []*dense, lr float64) *adam {
	m := newGradients(layers)
	v := newGradients(layers)
	return &adam{lr: lr, mw: m.w, mb: m.b, vw: v.w, vb: v.b}
}

func (a *adam) step(layers []*dense, g *gradients) {
	a.t++
	lrT := a.lr * math.Sqrt(1-math.Pow(beta2, float64(a.t))) / (1 - math.Pow(beta1, float64(a.t)))
	for i, layer := range layers {
		update(layer.w, g.w[i], a.mw[i], a.vw[i], lrT)
		update(layer.b, g.b[i], a.mb[i], a.vb[i], lrT)
	}
}

func update(params, grads, m, v []float64, lr float64) {
	for j, gj := range grads {
		m[j] = beta1*m[j] + (1-beta1)*gj
		v[j] = beta2*v[j] + (1-beta2)*gj*gj
		params[j] -= lr * m[j] / (math.Sqrt(v[j]) + epsilon)
	}
}
