// Copyright ©2020 The Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dsm

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// MixtureNet is the canonical feature network. A multilayer perceptron
// embeds the features, and three linear heads map the embedding to
// per-instance offsets on the raw shape, offsets on the raw scale, and gate
// logits. The offsets are added to learnable feature-independent base
// parameters so that the unconditional objective can pretrain the bases
// before the embedding has learned anything. Gate logits are divided by a
// temperature to keep the mixture soft early in training.
//
// All parameters live in a single flat slice; the weight matrices are
// views into it, so a trainer can perturb or update the slice in place and
// every subsequent Forward sees the change. MixtureNet is not safe for
// concurrent mutation; once training is done, Forward is read-only.
type MixtureNet struct {
	dist     Distribution
	k        int
	inputDim int
	temp     float64
	discount float64

	params    []float64
	baseShape *mat.Dense // [1, k]
	baseScale *mat.Dense // [1, k]
	hidden    []*mat.Dense
	shapeHead *mat.Dense // [k, lastDim]
	scaleHead *mat.Dense // [k, lastDim]
	gateHead  *mat.Dense // [k, lastDim]
}

// NewMixtureNet constructs a network for inputDim features, k mixture
// components of the given family, and one hidden layer per entry of layers
// (nil means the heads act on the raw features). Base shape and scale start
// at -1 per component; weights are initialized uniformly on
// ±1/sqrt(fan-in) from rnd.
func NewMixtureNet(inputDim, k int, layers []int, dist Distribution, temp, discount float64, rnd *rand.Rand) *MixtureNet {
	if inputDim <= 0 || k <= 0 {
		panic("dsm: nonpositive network dimension")
	}
	n := &MixtureNet{
		dist:     dist,
		k:        k,
		inputDim: inputDim,
		temp:     temp,
		discount: discount,
	}

	lastDim := inputDim
	total := 2 * k
	for _, h := range layers {
		total += h * lastDim
		lastDim = h
	}
	total += 3 * k * lastDim
	n.params = make([]float64, total)

	next := func(r, c int) *mat.Dense {
		m := mat.NewDense(r, c, n.params[:r*c])
		n.params = n.params[r*c:]
		return m
	}
	full := n.params
	n.baseShape = next(1, k)
	n.baseScale = next(1, k)
	lastDim = inputDim
	for _, h := range layers {
		w := next(h, lastDim)
		initUniform(w, lastDim, rnd)
		n.hidden = append(n.hidden, w)
		lastDim = h
	}
	n.shapeHead = next(k, lastDim)
	n.scaleHead = next(k, lastDim)
	n.gateHead = next(k, lastDim)
	initUniform(n.shapeHead, lastDim, rnd)
	initUniform(n.scaleHead, lastDim, rnd)
	initUniform(n.gateHead, lastDim, rnd)
	n.params = full

	for g := 0; g < k; g++ {
		n.baseShape.Set(0, g, -1)
		n.baseScale.Set(0, g, -1)
	}
	return n
}

func initUniform(w *mat.Dense, fanIn int, rnd *rand.Rand) {
	bound := 1 / math.Sqrt(float64(fanIn))
	r, c := w.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			w.Set(i, j, bound*(2*rnd.Float64()-1))
		}
	}
}

// Components returns the number of mixture components.
func (n *MixtureNet) Components() int { return n.k }

// Distribution returns the component family.
func (n *MixtureNet) Distribution() Distribution { return n.dist }

// Discount returns the censoring discount α.
func (n *MixtureNet) Discount() float64 { return n.discount }

// InputDim returns the expected feature dimension.
func (n *MixtureNet) InputDim() int { return n.inputDim }

// Params returns the flat parameter bundle backing the network. Mutating
// the slice mutates the network.
func (n *MixtureNet) Params() []float64 { return n.params }

// Forward maps the [n, inputDim] feature matrix x to raw shape, raw scale
// and gate logits, each [n, k]. Forward panics if the feature dimension
// does not match.
func (n *MixtureNet) Forward(x mat.Matrix) (shape, scale, logits *mat.Dense) {
	xr, xc := x.Dims()
	if xc != n.inputDim {
		panic(dimensionMismatch)
	}
	h := mat.DenseCopyOf(x)
	for _, w := range n.hidden {
		var next mat.Dense
		next.Mul(h, w.T())
		applyInPlace(&next, relu6)
		h = &next
	}

	shape = headOut(h, n.shapeHead)
	scale = headOut(h, n.scaleHead)
	applyInPlace(shape, selu)
	applyInPlace(scale, selu)
	for i := 0; i < xr; i++ {
		for g := 0; g < n.k; g++ {
			shape.Set(i, g, shape.At(i, g)+n.baseShape.At(0, g))
			scale.Set(i, g, scale.At(i, g)+n.baseScale.At(0, g))
		}
	}

	logits = headOut(h, n.gateHead)
	applyInPlace(logits, func(v float64) float64 { return v / n.temp })
	return shape, scale, logits
}

// ShapeScale returns the feature-independent base parameters, each [1, k].
// The returned matrices alias the parameter bundle.
func (n *MixtureNet) ShapeScale() (shape, scale *mat.Dense) {
	return n.baseShape, n.baseScale
}

func headOut(h mat.Matrix, w *mat.Dense) *mat.Dense {
	var out mat.Dense
	out.Mul(h, w.T())
	return &out
}

func applyInPlace(m *mat.Dense, f func(float64) float64) {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		row := m.RawRowView(i)
		for j := 0; j < c; j++ {
			row[j] = f(row[j])
		}
	}
}

func relu6(v float64) float64 {
	return math.Min(math.Max(v, 0), 6)
}

const (
	seluAlpha  = 1.6732632423543772
	seluLambda = 1.0507009873554805
)

func selu(v float64) float64 {
	if v > 0 {
		return seluLambda * v
	}
	return seluLambda * seluAlpha * (math.Exp(v) - 1)
}
