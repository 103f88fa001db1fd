// Package nn is a small dense feed-forward network trained with Adam on
// binary cross-entropy.
package nn

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/goccy/go-json"
)

const snapshotVersion = 1

var (
	ErrEmptyDataset  = errors.New("nn: empty dataset")
	ErrShapeMismatch = errors.New("nn: shape mismatch")
)

// Activation names a layer nonlinearity.
type Activation string

const (
	ReLU    Activation = "relu"
	Sigmoid Activation = "sigmoid"
)

// Config describes the architecture and optimizer.
type Config struct {
	Inputs       int
	Hidden       []int
	Dropout      float64
	LearningRate float64
	// Seed fixes weight init, dropout and shuffling. 0 draws a new seed for
	// every network.
	Seed int64
}

// DefaultConfig is 7 -> 128 relu -> 64 relu -> 1 sigmoid with 0.5 dropout
// after each hidden layer.
func DefaultConfig() Config {
	return Config{
		Inputs:       7,
		Hidden:       []int{128, 64},
		Dropout:      0.5,
		LearningRate: 0.001,
	}
}

func newRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

type dense struct {
	in, out    int
	activation Activation
	w          []float64 // out x in, row-major
	b          []float64
}

func (d *dense) forward(x []float64, z, a []float64) {
	for o := 0; o < d.out; o++ {
		sum := d.b[o]
		row := d.w[o*d.in : (o+1)*d.in]
		for i, v := range x {
			sum += row[i] * v
		}
		z[o] = sum
		a[o] = activate(d.activation, sum)
	}
}

func activate(act Activation, x float64) float64 {
	switch act {
	case ReLU:
		if x > 0 {
			return x
		}
		return 0
	default:
		return sigmoid(x)
	}
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// Network is not safe for concurrent training; Predict may be called
// concurrently once training is done.
type Network struct {
	layers       []*dense
	dropout      float64
	learningRate float64
	rng          *rand.Rand
	opt          *adam
}

// New builds a network with Glorot-uniform weights and zero biases.
func New(cfg Config) *Network {
	rng := newRand(cfg.Seed)
	sizes := append([]int{cfg.Inputs}, cfg.Hidden...)
	sizes = append(sizes, 1)

	layers := make([]*dense, 0, len(sizes)-1)
	for i := 0; i+1 < len(sizes); i++ {
		in, out := sizes[i], sizes[i+1]
		act := ReLU
		if i+2 == len(sizes) {
			act = Sigmoid
		}
		limit := math.Sqrt(6 / float64(in+out))
		w := make([]float64, in*out)
		for j := range w {
			w[j] = (rng.Float64()*2 - 1) * limit
		}
		layers = append(layers, &dense{in: in, out: out, activation: act, w: w, b: make([]float64, out)})
	}
	return &Network{
		layers:       layers,
		dropout:      cfg.Dropout,
		learningRate: cfg.LearningRate,
		rng:          rng,
	}
}

// Inputs returns the expected input width.
func (n *Network) Inputs() int {
	if len(n.layers) == 0 {
		return 0
	}
	return n.layers[0].in
}

// Predict returns the sigmoid output for x with dropout disabled.
func (n *Network) Predict(x []float64) float64 {
	a := x
	for _, layer := range n.layers {
		z := make([]float64, layer.out)
		next := make([]float64, layer.out)
		layer.forward(a, z, next)
		a = next
	}
	return a[0]
}

// FitOptions control a training run.
type FitOptions struct {
	Epochs          int
	BatchSize       int
	ValidationSplit float64
	Shuffle         bool
}

// History holds the metrics of the last epoch.
type History struct {
	Epochs             int
	Loss               float64
	Accuracy           float64
	ValidationLoss     float64
	ValidationAccuracy float64
	ValidationSamples  int
}

// Fit trains on x and y. The trailing ValidationSplit fraction of the rows
// is held out for validation and never trained on.
func (n *Network) Fit(x [][]float64, y []float64, opts FitOptions) (History, error) {
	if len(x) == 0 {
		return History{}, ErrEmptyDataset
	}
	if len(x) != len(y) {
		return History{}, fmt.Errorf("%w: %d rows, %d labels", ErrShapeMismatch, len(x), len(y))
	}
	for i, row := range x {
		if len(row) != n.Inputs() {
			return History{}, fmt.Errorf("%w: row %d has %d features, want %d", ErrShapeMismatch, i, len(row), n.Inputs())
		}
	}
	if n.opt == nil {
		n.opt = newAdam(n.layers, n.learningRate)
	}

	trainCount := int(math.Floor(float64(len(x)) * (1 - opts.ValidationSplit)))
	if trainCount <= 0 || trainCount > len(x) {
		trainCount = len(x)
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 || batchSize > trainCount {
		batchSize = trainCount
	}
	epochs := opts.Epochs
	if epochs <= 0 {
		epochs = 1
	}

	order := make([]int, trainCount)
	for i := range order {
		order[i] = i
	}

	grads := newGradients(n.layers)
	var hist History
	for epoch := 0; epoch < epochs; epoch++ {
		if opts.Shuffle {
			n.rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		}
		var loss, correct float64
		for start := 0; start < trainCount; start += batchSize {
			end := min(start+batchSize, trainCount)
			grads.reset()
			for _, idx := range order[start:end] {
				out := n.backprop(x[idx], y[idx], grads)
				loss += crossEntropy(out, y[idx])
				if (out > 0.5) == (y[idx] > 0.5) {
					correct++
				}
			}
			grads.scale(1 / float64(end-start))
			n.opt.step(n.layers, grads)
		}
		hist.Loss = loss / float64(trainCount)
		hist.Accuracy = correct / float64(trainCount)
	}
	hist.Epochs = epochs

	if trainCount < len(x) {
		var loss, correct float64
		for i := trainCount; i < len(x); i++ {
			out := n.Predict(x[i])
			loss += crossEntropy(out, y[i])
			if (out > 0.5) == (y[i] > 0.5) {
				correct++
			}
		}
		held := float64(len(x) - trainCount)
		hist.ValidationLoss = loss / held
		hist.ValidationAccuracy = correct / held
		hist.ValidationSamples = len(x) - trainCount
	}
	return hist, nil
}

// backprop runs one training forward pass with dropout and accumulates the
// gradients of the cross-entropy loss. It returns the network output.
func (n *Network) backprop(x []float64, y float64, g *gradients) float64 {
	count := len(n.layers)
	inputs := make([][]float64, count)
	pre := make([][]float64, count)
	masks := make([][]float64, count)

	a := x
	for l, layer := range n.layers {
		inputs[l] = a
		z := make([]float64, layer.out)
		next := make([]float64, layer.out)
		layer.forward(a, z, next)
		if l < count-1 && n.dropout > 0 {
			mask := make([]float64, layer.out)
			keep := 1 - n.dropout
			for i := range mask {
				if n.rng.Float64() < keep {
					mask[i] = 1 / keep
				}
				next[i] *= mask[i]
			}
			masks[l] = mask
		}
		pre[l] = z
		a = next
	}
	out := a[0]

	delta := []float64{out - y}
	for l := count - 1; l >= 0; l-- {
		layer := n.layers[l]
		gw, gb := g.w[l], g.b[l]
		for o := 0; o < layer.out; o++ {
			d := delta[o]
			if d == 0 {
				continue
			}
			gb[o] += d
			row := gw[o*layer.in : (o+1)*layer.in]
			for i, v := range inputs[l] {
				row[i] += d * v
			}
		}
		if l == 0 {
			break
		}
		prev := make([]float64, layer.in)
		for o := 0; o < layer.out; o++ {
			d := delta[o]
			if d == 0 {
				continue
			}
			row := layer.w[o*layer.in : (o+1)*layer.in]
			for i := range prev {
				prev[i] += row[i] * d
			}
		}
		for i := range prev {
			if pre[l-1][i] <= 0 {
				prev[i] = 0
				continue
			}
			if masks[l-1] != nil {
				prev[i] *= masks[l-1][i]
			}
		}
		delta = prev
	}
	return out
}

const epsilon = 1e-7

func crossEntropy(p, y float64) float64 {
	p = math.Min(math.Max(p, epsilon), 1-epsilon)
	return -(y*math.Log(p) + (1-y)*math.Log(1-p))
}

type layerSnapshot struct {
	In         int        `json:"in"`
	Out        int        `json:"out"`
	Activation Activation `json:"activation"`
	Weights    []float64  `json:"weights"`
	Bias       []float64  `json:"bias"`
}

type snapshot struct {
	Version      int             `json:"version"`
	Dropout      float64         `json:"dropout"`
	LearningRate float64         `json:"learning_rate"`
	Layers       []layerSnapshot `json:"layers"`
}

// MarshalBinary serializes the weights. Optimizer state is not kept.
func (n *Network) MarshalBinary() ([]byte, error) {
	s := snapshot{Version: snapshotVersion, Dropout: n.dropout, LearningRate: n.learningRate}
	for _, layer := range n.layers {
		s.Layers = append(s.Layers, layerSnapshot{
			In:         layer.in,
			Out:        layer.out,
			Activation: layer.activation,
			Weights:    layer.w,
			Bias:       layer.b,
		})
	}
	return json.Marshal(s)
}

// UnmarshalBinary restores weights written by MarshalBinary and resets the
// optimizer.
func (n *Network) UnmarshalBinary(data []byte) error {
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("nn: decode weights: %w", err)
	}
	if s.Version != snapshotVersion {
		return fmt.Errorf("nn: unsupported weights version %d", s.Version)
	}
	if len(s.Layers) == 0 {
		return fmt.Errorf("%w: no layers", ErrShapeMismatch)
	}
	layers := make([]*dense, len(s.Layers))
	for i, ls := range s.Layers {
		if len(ls.Weights) != ls.In*ls.Out || len(ls.Bias) != ls.Out {
			return fmt.Errorf("%w: layer %d", ErrShapeMismatch, i)
		}
		if i > 0 && ls.In != s.Layers[i-1].Out {
			return fmt.Errorf("%w: layer %d input %d, previous output %d", ErrShapeMismatch, i, ls.In, s.Layers[i-1].Out)
		}
		layers[i] = &dense{in: ls.In, out: ls.Out, activation: ls.Activation, w: ls.Weights, b: ls.Bias}
	}
	if layers[len(layers)-1].out != 1 {
		return fmt.Errorf("%w: output width %d", ErrShapeMismatch, layers[len(layers)-1].out)
	}
	n.layers = layers
	n.dropout = s.Dropout
	if s.LearningRate > 0 {
		n.learningRate = s.LearningRate
	}
	n.opt = nil
	if n.rng == nil {
		n.rng = newRand(0)
	}
	return nil
}
